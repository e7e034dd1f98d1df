// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/veilmark/corevault/envelope"
)

// handleLoginIssue implements POST /api/login/: request a magic link.
func (d *Deps) handleLoginIssue(w http.ResponseWriter, r *http.Request) {
	var req envelope.SignedRequest
	if err := decodeSignedRequest(r, &req); err != nil {
		writeError(w, err)
		return
	}
	resp, err := d.MagicLink.Issue(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLoginRedeem implements POST /api/login/magiclink/: redeem a
// magic link into an access token, refresh cookie, and sealed
// private-key context.
func (d *Deps) handleLoginRedeem(w http.ResponseWriter, r *http.Request) {
	var req envelope.SignedRequest
	if err := decodeSignedRequest(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := d.MagicLink.Redeem(r.Context(), &req, d.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, newRefreshCookieFromResult(d, outcome.RefreshToken, outcome.RefreshTokenExpiresAt))
	writeJSON(w, http.StatusOK, outcome.Response)
}
