// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/token"
)

type refreshRequest struct {
	NewPubKey string `json:"new_pub_key"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresAt    int64  `json:"expires_at"`
	Rotated      bool   `json:"rotated"`
	ServerPubKey string `json:"server_pub_key,omitempty"`
}

// bearerToken extracts the Authorization bearer token, if any, without
// requiring or verifying it -- /api/refresh accepts it only to
// recognize the "access still valid" no-op case.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(h, prefix) {
		return ""
	}
	return strings.TrimPrefix(h, prefix)
}

// handleRefresh implements POST /api/refresh: applies the 1/3-vs-2/3
// refresh policy to the refresh_token cookie. The request body is a
// SignedRequest carrying {new_pub_key}, signed with the current
// ed25519_session_pub bound to the refresh cookie -- per section 4.3
// every inbound request is verified before its payload is acted on.
func (d *Deps) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(token.RefreshCookieName)
	if err != nil {
		writeError(w, coreerr.New(coreerr.Unauthorized, "missing refresh cookie"))
		return
	}

	refreshClaims, err := token.VerifyRefreshCookie(d.TokenConfig.KRefresh, cookie.Value)
	if err != nil {
		writeError(w, err)
		return
	}
	boundPub, err := codec.Base64URLDecode(refreshClaims.Ed25519SessionPub)
	if err != nil || len(boundPub) != ed25519.PublicKeySize {
		writeError(w, coreerr.New(coreerr.Unauthorized, "malformed bound key in refresh cookie"))
		return
	}

	var req envelope.SignedRequest
	if err := decodeSignedRequest(r, &req); err != nil {
		writeError(w, err)
		return
	}
	canon, err := envelope.VerifyRequest(&req, ed25519.PublicKey(boundPub))
	if err != nil {
		writeError(w, err)
		return
	}
	var payload refreshRequest
	if err := json.Unmarshal(canon, &payload); err != nil {
		writeError(w, coreerr.New(coreerr.BadEnvelope, "malformed refresh payload"))
		return
	}
	newPubKey, err := codec.Base64URLDecode(payload.NewPubKey)
	if err != nil || len(newPubKey) != ed25519.PublicKeySize {
		writeError(w, coreerr.New(coreerr.ValidationFailed, "malformed new_pub_key"))
		return
	}

	result, err := token.Refresh(d.TokenConfig, cookie.Value, bearerToken(r), newPubKey, d.ServerEd.Public().(ed25519.PublicKey), d.Now())
	if err != nil {
		if coreerr.CodeOf(err) == coreerr.BothTokensExpired {
			http.SetCookie(w, token.ClearRefreshHTTPCookie(d.UIHost, d.Secure))
		}
		writeError(w, err)
		return
	}

	resp := refreshResponse{
		AccessToken: result.AccessToken,
		ExpiresAt:   result.AccessExpiresAt.Unix(),
		Rotated:     result.Rotated,
	}
	if result.Rotated {
		http.SetCookie(w, newRefreshCookieFromResult(d, result.NewRefreshToken, result.NewRefreshExpiresAt))
		resp.ServerPubKey = codec.Base64URLEncode(result.ServerPubKey)
	}
	writeJSON(w, http.StatusOK, resp)
}
