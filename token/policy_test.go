// SPDX-License-Identifier: LGPL-3.0-or-later

package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmark/corevault/coreerr"
)

func testConfig() Config {
	return Config{
		KJWT:       []byte("test-k-jwt-secret"),
		KRefresh:   []byte("test-k-refresh-secret"),
		AccessTTL:  60 * time.Second,
		RefreshTTL: 300 * time.Second,
	}
}

func TestDecideOutcome(t *testing.T) {
	iat := time.Unix(1000, 0)
	exp := iat.Add(300 * time.Second)

	assert.Equal(t, AccessOnly, DecideOutcome(iat, exp, iat.Add(50*time.Second)))
	assert.Equal(t, FullRotation, DecideOutcome(iat, exp, iat.Add(150*time.Second)))
	assert.Equal(t, FullRotation, DecideOutcome(iat, exp, iat.Add(299*time.Second)))
	assert.Equal(t, Denied, DecideOutcome(iat, exp, iat.Add(300*time.Second)))
	assert.Equal(t, Denied, DecideOutcome(iat, exp, iat.Add(400*time.Second)))
}

func TestRefreshFirstThirdWindowPreservesKey(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	refreshToken, _, err := MintRefreshCookie(cfg.KRefresh, pub, "user-1", cfg.RefreshTTL, iat)
	require.NoError(t, err)

	now := iat.Add(50 * time.Second) // < 300/3 = 100s
	result, err := Refresh(cfg, refreshToken, "", pub, nil, now)
	require.NoError(t, err)
	assert.Equal(t, AccessOnly, result.Outcome)
	assert.False(t, result.Rotated)
	assert.Empty(t, result.NewRefreshToken)
	assert.Nil(t, result.ServerPubKey)
}

func TestRefreshFirstThirdWindowRejectsKeyChange(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	refreshToken, _, err := MintRefreshCookie(cfg.KRefresh, pub, "user-1", cfg.RefreshTTL, iat)
	require.NoError(t, err)

	now := iat.Add(50 * time.Second)
	_, err = Refresh(cfg, refreshToken, "", otherPub, nil, now)
	require.Error(t, err)
	assert.Equal(t, coreerr.Unauthorized, coreerr.CodeOf(err))
}

func TestRefreshSecondThirdWindowRotates(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	newPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	serverPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	refreshToken, _, err := MintRefreshCookie(cfg.KRefresh, pub, "user-1", cfg.RefreshTTL, iat)
	require.NoError(t, err)

	now := iat.Add(150 * time.Second) // >= 300/3 = 100s
	result, err := Refresh(cfg, refreshToken, "", newPub, serverPub, now)
	require.NoError(t, err)
	assert.Equal(t, FullRotation, result.Outcome)
	assert.True(t, result.Rotated)
	assert.NotEmpty(t, result.NewRefreshToken)
	assert.Equal(t, serverPub, result.ServerPubKey)
}

func TestRefreshBothExpired(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	refreshToken, _, err := MintRefreshCookie(cfg.KRefresh, pub, "user-1", cfg.RefreshTTL, iat)
	require.NoError(t, err)

	now := iat.Add(301 * time.Second)
	_, err = Refresh(cfg, refreshToken, "", pub, nil, now)
	require.Error(t, err)
	assert.Equal(t, coreerr.BothTokensExpired, coreerr.CodeOf(err))
}

func TestRefreshNoOpWhenAccessStillValid(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	refreshToken, _, err := MintRefreshCookie(cfg.KRefresh, pub, "user-1", cfg.RefreshTTL, iat)
	require.NoError(t, err)
	accessToken, accessExp, err := MintAccessToken(cfg.KJWT, pub, "user-1", cfg.AccessTTL, iat)
	require.NoError(t, err)

	now := iat.Add(10 * time.Second) // access still valid, well within the 1/3 window too
	result, err := Refresh(cfg, refreshToken, accessToken, pub, nil, now)
	require.NoError(t, err)
	assert.Equal(t, NoOp, result.Outcome)
	assert.Equal(t, accessToken, result.AccessToken)
	assert.Equal(t, accessExp, result.AccessExpiresAt)
	assert.False(t, result.Rotated)
	assert.Empty(t, result.NewRefreshToken)
}

func TestAccessTokenExpiry(t *testing.T) {
	cfg := testConfig()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	iat := time.Unix(10_000, 0)
	tok, _, err := MintAccessToken(cfg.KJWT, pub, "user-1", cfg.AccessTTL, iat)
	require.NoError(t, err)

	_, err = VerifyAccessToken(cfg.KJWT, tok)
	require.Error(t, err)
	assert.Equal(t, coreerr.TokenExpired, coreerr.CodeOf(err))
}
