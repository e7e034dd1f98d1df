// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/token"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	code := coreerr.CodeOf(err)
	writeJSON(w, coreerr.HTTPStatus(code), coreerr.ToBody(err))
}

func decodeSignedRequest(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return coreerr.New(coreerr.BadEnvelope, "malformed request body")
	}
	return nil
}

// authenticate verifies the bearer access token and returns the
// decoded claims.
func (d *Deps) authenticate(r *http.Request) (*token.AccessClaims, error) {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return nil, coreerr.New(coreerr.Unauthorized, "missing bearer token")
	}
	raw := strings.TrimPrefix(h, prefix)
	claims, err := token.VerifyAccessToken(d.TokenConfig.KJWT, raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// withAuth wraps a handler that requires a verified bearer token.
func (d *Deps) withAuth(next func(http.ResponseWriter, *http.Request, *token.AccessClaims)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := d.authenticate(r)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r, claims)
	}
}
