// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"crypto/ed25519"
	"encoding/json"
	"net/http"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/envelope"
	"github.com/veilmark/corevault/sharedsecret"
	"github.com/veilmark/corevault/token"
)

// sessionPubKey extracts the Ed25519 session key bound to an
// authenticated caller's bearer token -- every signed request or
// query from an authenticated endpoint must verify against this key,
// never against a key the payload itself asserts.
func sessionPubKey(claims *token.AccessClaims) (ed25519.PublicKey, error) {
	pub, err := codec.Base64URLDecode(claims.Ed25519SessionPub)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, coreerr.New(coreerr.Unauthorized, "malformed bound session key")
	}
	return ed25519.PublicKey(pub), nil
}

// handleSharedSecretCreate implements POST /api/shared-secret/create.
func (d *Deps) handleSharedSecretCreate(w http.ResponseWriter, r *http.Request, claims *token.AccessClaims) {
	var req envelope.SignedRequest
	if err := decodeSignedRequest(r, &req); err != nil {
		writeError(w, err)
		return
	}

	pub, err := sessionPubKey(claims)
	if err != nil {
		writeError(w, err)
		return
	}
	canon, err := envelope.VerifyRequest(&req, pub)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload sharedsecret.CreatePayload
	if err := json.Unmarshal(canon, &payload); err != nil {
		writeError(w, coreerr.New(coreerr.BadEnvelope, "malformed create payload"))
		return
	}

	resp, err := d.SharedSecret.Create(r.Context(), &payload, claims.UserID, d.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSharedSecretRetrieve implements GET and POST
// /api/shared-secret/{hash}: GET is the no-OTP variant, POST carries
// an OTP in its signed body.
func (d *Deps) handleSharedSecretRetrieve(w http.ResponseWriter, r *http.Request, claims *token.AccessClaims) {
	hash := r.PathValue("hash")
	params, sig := paramsFromQuery(r)

	otp := ""
	if r.Method == http.MethodPost {
		var req envelope.SignedRequest
		if err := decodeSignedRequest(r, &req); err != nil {
			writeError(w, err)
			return
		}
		pub, err := sessionPubKey(claims)
		if err != nil {
			writeError(w, err)
			return
		}
		canon, err := envelope.VerifyRequest(&req, pub)
		if err != nil {
			writeError(w, err)
			return
		}
		var body struct {
			OTP string `json:"otp"`
		}
		if err := json.Unmarshal(canon, &body); err != nil {
			writeError(w, coreerr.New(coreerr.BadEnvelope, "malformed retrieve payload"))
			return
		}
		otp = body.OTP
	}

	resp, err := d.SharedSecret.Retrieve(r.Context(), hash, claims, params, sig, otp, d.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSharedSecretConfirmRead implements GET /api/shared-secret/confirm-read.
func (d *Deps) handleSharedSecretConfirmRead(w http.ResponseWriter, r *http.Request, claims *token.AccessClaims) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, coreerr.New(coreerr.ValidationFailed, "missing hash"))
		return
	}
	params, sig := paramsFromQuery(r)

	resp, err := d.SharedSecret.ConfirmRead(r.Context(), hash, claims, params, sig, d.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSharedSecretDelete implements DELETE /api/shared-secret/{hash}.
func (d *Deps) handleSharedSecretDelete(w http.ResponseWriter, r *http.Request, claims *token.AccessClaims) {
	hash := r.PathValue("hash")
	params, sig := paramsFromQuery(r)

	if err := d.SharedSecret.Delete(r.Context(), hash, claims, params, sig, d.Now()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// paramsFromQuery extracts the signed-query params and signature from
// the request's query string. The path-bound hash and confirm-read's
// hash query param are both excluded from the signed set.
func paramsFromQuery(r *http.Request) (map[string]string, string) {
	params, sig := envelope.ParamsFromURL(r.URL.Query())
	delete(params, "hash")
	return params, sig
}
