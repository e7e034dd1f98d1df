// SPDX-License-Identifier: LGPL-3.0-or-later

// Package envelope implements the signed-request / signed-response
// wire protocol every client<->server message body rides in: a
// canonically-serialized, base64url-encoded JSON payload together
// with a base58-encoded Ed25519 signature over the base64url string
// itself (never over the decoded bytes, never over the raw JSON).
//
// SignedRequest and SignedResponse are modeled as distinct types even
// though they share a wire shape, per the re-architecture guidance
// against dynamic envelope dispatch: callers never probe a payload's
// shape to decide how to interpret it.
package envelope

import (
	"crypto/ed25519"
	"encoding/json"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/internal/metrics"
)

// SignedRequest is the wire shape of every client->server message body.
type SignedRequest struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// SignedResponse is the wire shape of every server->client message
// body. It is structurally identical to SignedRequest but kept as a
// separate type so a handler can never accidentally verify one as the
// other.
type SignedResponse struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// BuildRequest canonically serializes payload, base64url-encodes it,
// signs the resulting string with sk, and base58-encodes the
// signature.
func BuildRequest(payload any, sk ed25519.PrivateKey) (*SignedRequest, error) {
	p, sig, err := sign(payload, sk)
	if err != nil {
		return nil, err
	}
	return &SignedRequest{Payload: p, Signature: sig}, nil
}

// BuildResponse is BuildRequest's server-side counterpart.
func BuildResponse(payload any, sk ed25519.PrivateKey) (*SignedResponse, error) {
	p, sig, err := sign(payload, sk)
	if err != nil {
		return nil, err
	}
	metrics.EnvelopesSigned.Inc()
	return &SignedResponse{Payload: p, Signature: sig}, nil
}

func sign(payload any, sk ed25519.PrivateKey) (string, string, error) {
	canon, err := codec.Canonical(payload)
	if err != nil {
		return "", "", coreerr.Wrap(coreerr.BadEnvelope, "envelope: canonicalize payload", err)
	}
	p := codec.Base64URLEncode(canon)
	sig := ed25519.Sign(sk, []byte(p))
	return p, codec.Base58Encode(sig), nil
}

// VerifyRequest runs the full inbound verification order against a
// SignedRequest: structural check, signature check over the exact
// base64url string, then decode. pub is the already-identified
// signer's Ed25519 public key (from the payload's ed25519_pub field at
// magic-link issuance, from the key bound at issuance at magic-link
// redemption, or from the bearer token's bound key for
// authenticated ones -- identification happens one layer up, this
// function only verifies). On success it returns the canonical JSON
// bytes of the decoded payload.
func VerifyRequest(req *SignedRequest, pub ed25519.PublicKey) ([]byte, error) {
	raw, err := verify(req.Payload, req.Signature, pub, "body")
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// VerifyResponse is VerifyRequest's client-side counterpart, used by
// tests that play both roles of the protocol.
func VerifyResponse(resp *SignedResponse, pub ed25519.PublicKey) ([]byte, error) {
	return verify(resp.Payload, resp.Signature, pub, "body")
}

func verify(payload, signature string, pub ed25519.PublicKey, kind string) ([]byte, error) {
	if payload == "" || signature == "" {
		metrics.EnvelopeVerifications.WithLabelValues(kind, "bad_envelope").Inc()
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: missing payload or signature")
	}
	sig, err := codec.Base58Decode(signature)
	if err != nil || len(sig) != ed25519.SignatureSize {
		metrics.EnvelopeVerifications.WithLabelValues(kind, "bad_envelope").Inc()
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: malformed signature")
	}
	if !ed25519.Verify(pub, []byte(payload), sig) {
		metrics.EnvelopeVerifications.WithLabelValues(kind, "bad_signature").Inc()
		return nil, coreerr.New(coreerr.BadSignature, "envelope: signature verification failed")
	}
	raw, err := codec.Base64URLDecode(payload)
	if err != nil {
		metrics.EnvelopeVerifications.WithLabelValues(kind, "bad_envelope").Inc()
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: malformed payload encoding")
	}
	canon, err := codec.CanonicalizeJSON(raw)
	if err != nil {
		metrics.EnvelopeVerifications.WithLabelValues(kind, "bad_envelope").Inc()
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: payload is not valid JSON")
	}
	metrics.EnvelopeVerifications.WithLabelValues(kind, "ok").Inc()
	return canon, nil
}

// AnonymousSigner extracts the self-signed ed25519_pub field a payload
// carries on an anonymous endpoint (magic-link issuance), without assuming anything else about the payload's shape.
func AnonymousSigner(raw []byte) (ed25519.PublicKey, error) {
	var shape struct {
		PubKey string `json:"ed25519_pub"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil || shape.PubKey == "" {
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: missing ed25519_pub")
	}
	pub, err := codec.Base64URLDecode(shape.PubKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return nil, coreerr.New(coreerr.BadEnvelope, "envelope: malformed ed25519_pub")
	}
	return ed25519.PublicKey(pub), nil
}
