// SPDX-License-Identifier: LGPL-3.0-or-later

package envelope

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmark/corevault/codec"
)

func TestBuildAndVerifyRequest(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	payload := map[string]any{"email": "me@x.org", "next": "/dashboard"}

	req, err := BuildRequest(payload, sk)
	require.NoError(t, err)
	assert.NotEmpty(t, req.Payload)
	assert.NotEmpty(t, req.Signature)

	raw, err := VerifyRequest(req, pub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"me@x.org","next":"/dashboard"}`, string(raw))
}

func TestVerifyRequestRejectsWrongKey(t *testing.T) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	req, err := BuildRequest(map[string]any{"a": 1}, sk)
	require.NoError(t, err)

	_, err = VerifyRequest(req, otherPub)
	assert.Error(t, err)
}

func TestVerifyRequestRejectsTamperedPayload(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	req, err := BuildRequest(map[string]any{"a": 1}, sk)
	require.NoError(t, err)

	tampered := &SignedRequest{Payload: req.Payload + "x", Signature: req.Signature}
	_, err = VerifyRequest(tampered, pub)
	assert.Error(t, err)
}

func TestVerifyRequestRejectsMissingFields(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = VerifyRequest(&SignedRequest{}, pub)
	assert.Error(t, err)
}

func TestBuildAndVerifyResponse(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	resp, err := BuildResponse(map[string]any{"status": "OK"}, sk)
	require.NoError(t, err)

	raw, err := VerifyResponse(resp, pub)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK"}`, string(raw))
}

func TestSignQueryRoundTrip(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	params := map[string]string{"hash": "abc123"}
	values := SignQuery(params, sk)

	got, sig := ParamsFromURL(values)
	require.NoError(t, VerifyQuery(got, sig, pub))
}

func TestVerifyQueryRejectsModifiedParam(t *testing.T) {
	pub, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	params := map[string]string{"hash": "abc123"}
	values := SignQuery(params, sk)
	got, sig := ParamsFromURL(values)
	got["hash"] = "tampered"

	assert.Error(t, VerifyQuery(got, sig, pub))
}

func TestAnonymousSigner(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	raw := []byte(`{"ed25519_pub":"` + codec.Base64URLEncode(pub) + `","email":"me@x.org"}`)
	got, err := AnonymousSigner(raw)
	require.NoError(t, err)
	assert.Equal(t, pub, got)
}
