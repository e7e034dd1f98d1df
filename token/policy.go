// SPDX-License-Identifier: LGPL-3.0-or-later

package token

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
	"github.com/veilmark/corevault/crypto"
	"github.com/veilmark/corevault/internal/metrics"
)

// Outcome is the three-valued-plus-denied result of applying the
// 1/3-vs-2/3 refresh policy to a refresh cookie's timestamps, computed
// from timestamps alone per the re-architecture guidance.
type Outcome string

const (
	// NoOp means neither token needs minting (access token is still valid).
	NoOp Outcome = "no_op"
	// AccessOnly mints a new access token bound to the existing signing
	// key; no refresh-cookie rotation.
	AccessOnly Outcome = "access_only"
	// FullRotation mints a new access token bound to a new signing key
	// and a new refresh cookie with a fresh iat.
	FullRotation Outcome = "full_rotation"
	// Denied means the refresh cookie itself has expired.
	Denied Outcome = "denied"
)

// DecideOutcome computes the refresh outcome from the refresh
// cookie's iat/exp and the current time: elapsed = now - iat, T =
// exp - iat. elapsed < T/3 is the "first 1/3 window" (AccessOnly);
// T/3 <= elapsed < T is the "2/3 window" (FullRotation); elapsed >= T
// is Denied.
func DecideOutcome(iat, exp, now time.Time) Outcome {
	if !now.Before(exp) {
		return Denied
	}
	t := exp.Sub(iat)
	elapsed := now.Sub(iat)
	if elapsed < t/3 {
		return AccessOnly
	}
	return FullRotation
}

// RefreshResult is what a successful /api/refresh call produces.
type RefreshResult struct {
	Outcome             Outcome
	AccessToken         string
	AccessExpiresAt     time.Time
	Rotated             bool
	NewRefreshToken     string
	NewRefreshExpiresAt time.Time
	// ServerPubKey is set only on FullRotation, signalling the client
	// must trust this key for subsequent server-signature verification.
	ServerPubKey ed25519.PublicKey
}

// Config bundles the secrets and TTLs the refresh state machine needs.
type Config struct {
	KJWT       []byte
	KRefresh   []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Refresh applies the 1/3-vs-2/3 policy to refreshToken and returns
// the new token(s). currentAccessToken is the bearer token the client
// presented alongside the refresh cookie, if any -- when it is still
// valid at now and bound to the same (user_id, ed25519_session_pub) as the
// refresh cookie, the "access valid, refresh valid" row of the state
// machine applies and no new token is minted at all. newPubKey is the
// client's requested signing key for this refresh -- in the first-1/3
// window it MUST equal the existing bound key (no-rotation
// assertion); in the 2/3 window it becomes the new bound key.
// serverPub is included in the result only on FullRotation.
func Refresh(cfg Config, refreshToken, currentAccessToken string, newPubKey []byte, serverPub ed25519.PublicKey, now time.Time) (*RefreshResult, error) {
	claims, err := VerifyRefreshCookie(cfg.KRefresh, refreshToken)
	if err != nil {
		return nil, err
	}

	boundPub, err := codec.Base64URLDecode(claims.Ed25519SessionPub)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.Unauthorized, "token: malformed bound key in refresh cookie", err)
	}

	if currentAccessToken != "" {
		accessClaims := &AccessClaims{}
		_, err := jwt.ParseWithClaims(currentAccessToken, accessClaims, func(*jwt.Token) (any, error) {
			return cfg.KJWT, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithTimeFunc(func() time.Time { return now }))
		if err == nil &&
			accessClaims.UserID == claims.UserID &&
			accessClaims.Ed25519SessionPub == claims.Ed25519SessionPub {
			metrics.RefreshOutcomes.WithLabelValues(string(NoOp)).Inc()
			return &RefreshResult{
				Outcome:         NoOp,
				AccessToken:     currentAccessToken,
				AccessExpiresAt: accessClaims.ExpiresAt.Time,
			}, nil
		}
	}

	iat := claims.IssuedAt.Time
	exp := claims.ExpiresAt.Time
	outcome := DecideOutcome(iat, exp, now)
	metrics.RefreshOutcomes.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case Denied:
		return &RefreshResult{Outcome: Denied}, coreerr.New(coreerr.BothTokensExpired, "token: both access and refresh tokens expired")

	case AccessOnly:
		if len(newPubKey) != len(boundPub) || !crypto.HMACEqual(newPubKey, boundPub) {
			return nil, coreerr.New(coreerr.Unauthorized, "token: new_pub_key must equal the existing bound key in the first 1/3 window")
		}
		access, accessExp, err := MintAccessToken(cfg.KJWT, boundPub, claims.UserID, cfg.AccessTTL, now)
		if err != nil {
			return nil, err
		}
		metrics.TokensMinted.WithLabelValues("access").Inc()
		return &RefreshResult{
			Outcome:         AccessOnly,
			AccessToken:     access,
			AccessExpiresAt: accessExp,
		}, nil

	case FullRotation:
		access, accessExp, err := MintAccessToken(cfg.KJWT, newPubKey, claims.UserID, cfg.AccessTTL, now)
		if err != nil {
			return nil, err
		}
		refresh, refreshExp, err := MintRefreshCookie(cfg.KRefresh, newPubKey, claims.UserID, cfg.RefreshTTL, now)
		if err != nil {
			return nil, err
		}
		metrics.TokensMinted.WithLabelValues("access").Inc()
		metrics.TokensMinted.WithLabelValues("refresh").Inc()
		return &RefreshResult{
			Outcome:             FullRotation,
			AccessToken:         access,
			AccessExpiresAt:     accessExp,
			Rotated:             true,
			NewRefreshToken:     refresh,
			NewRefreshExpiresAt: refreshExp,
			ServerPubKey:        serverPub,
		}, nil
	}
	return nil, coreerr.New(coreerr.Internal, "token: unreachable refresh outcome")
}

// RefreshCookieName is the HTTP cookie name carrying the refresh token.
const RefreshCookieName = "refresh_token"

// NewRefreshHTTPCookie builds the Set-Cookie value for a freshly
// minted or rotated refresh token, scoped to uiHost per section 6.
func NewRefreshHTTPCookie(value, uiHost string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Domain:   uiHost,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(ttl.Seconds()),
	}
}

// ClearRefreshHTTPCookie builds the Max-Age=0 cookie reset emitted on
// BothTokensExpired.
func ClearRefreshHTTPCookie(uiHost string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Domain:   uiHost,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	}
}
