// SPDX-License-Identifier: LGPL-3.0-or-later

package envelope

import (
	"crypto/ed25519"
	"net/url"
	"sort"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/internal/metrics"
)

// SignQuery assembles params into a canonically-serialized object,
// signs it, and returns a url.Values with the base58 signature
// appended under "signature". Used for GET/DELETE requests, where the
// signer is always the ed25519_session_pub bound in the caller's
// bearer token -- it is never re-sent on the wire.
func SignQuery(params map[string]string, sk ed25519.PrivateKey) url.Values {
	sig := signQueryParams(params, sk)
	out := url.Values{}
	for k, v := range params {
		out.Set(k, v)
	}
	out.Set("signature", sig)
	return out
}

func signQueryParams(params map[string]string, sk ed25519.PrivateKey) string {
	obj := make(map[string]any, len(params))
	for k, v := range params {
		obj[k] = v
	}
	canon, err := codec.Canonical(obj)
	if err != nil {
		// Canonical() only fails on non-JSON-marshalable input, which a
		// map[string]string can never produce.
		panic(err)
	}
	p := codec.Base64URLEncode(canon)
	sig := ed25519.Sign(sk, []byte(p))
	return codec.Base58Encode(sig)
}

// VerifyQuery re-derives the canonical base64url string from params
// (which MUST NOT include "signature") and checks sig against pub,
// the ed25519_session_pub bound in the caller's bearer token.
func VerifyQuery(params map[string]string, sig string, pub ed25519.PublicKey) error {
	if sig == "" {
		metrics.EnvelopeVerifications.WithLabelValues("query", "bad_envelope").Inc()
		return coreerr.New(coreerr.BadEnvelope, "envelope: missing query signature")
	}
	sigBytes, err := codec.Base58Decode(sig)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		metrics.EnvelopeVerifications.WithLabelValues("query", "bad_envelope").Inc()
		return coreerr.New(coreerr.BadEnvelope, "envelope: malformed query signature")
	}
	obj := make(map[string]any, len(params))
	for k, v := range params {
		obj[k] = v
	}
	canon, err := codec.Canonical(obj)
	if err != nil {
		metrics.EnvelopeVerifications.WithLabelValues("query", "bad_envelope").Inc()
		return coreerr.New(coreerr.BadEnvelope, "envelope: unencodable query params")
	}
	p := codec.Base64URLEncode(canon)
	if !ed25519.Verify(pub, []byte(p), sigBytes) {
		metrics.EnvelopeVerifications.WithLabelValues("query", "bad_signature").Inc()
		return coreerr.New(coreerr.BadSignature, "envelope: query signature verification failed")
	}
	metrics.EnvelopeVerifications.WithLabelValues("query", "ok").Inc()
	return nil
}

// ParamsFromURL extracts a plain map[string]string from a parsed
// query string, dropping the "signature" key so callers get exactly
// the params the signer covered.
func ParamsFromURL(values url.Values) (map[string]string, string) {
	params := make(map[string]string, len(values))
	sig := ""
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "signature" {
			sig = values.Get(k)
			continue
		}
		params[k] = values.Get(k)
	}
	return params, sig
}
