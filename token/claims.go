// SPDX-License-Identifier: LGPL-3.0-or-later

// Package token implements the access-token / refresh-cookie
// authority: HMAC-signed JWTs for both token kinds, and the 1/3-vs-2/3
// refresh policy that decides whether a refresh also rotates the
// Ed25519 signing key bound to the session.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/veilmark/corevault/codec"
	"github.com/veilmark/corevault/coreerr"
)

// AccessClaims is the decoded form of an access-token JWT.
type AccessClaims struct {
	UserID            string `json:"user_id"`
	Ed25519SessionPub string `json:"ed25519_session_pub"` // base64url
	jwt.RegisteredClaims
}

// RefreshClaims is the decoded form of a refresh-cookie JWT.
type RefreshClaims struct {
	UserID            string `json:"user_id"`
	Ed25519SessionPub string `json:"ed25519_session_pub"`
	jwt.RegisteredClaims
}

// MintAccessToken mints an access token bound to (userID, ed25519Pub)
// with the configured access TTL.
func MintAccessToken(kJWT []byte, ed25519Pub []byte, userID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := AccessClaims{
		UserID:            userID,
		Ed25519SessionPub: codec.Base64URLEncode(ed25519Pub),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(kJWT)
	if err != nil {
		return "", time.Time{}, coreerr.Wrap(coreerr.Internal, "token: mint access token", err)
	}
	return signed, exp, nil
}

// VerifyAccessToken verifies the MAC and expiry of an access token.
func VerifyAccessToken(kJWT []byte, tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return kJWT, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		if isExpired(err) {
			return nil, coreerr.New(coreerr.TokenExpired, "token: access token expired")
		}
		return nil, coreerr.Wrap(coreerr.Unauthorized, "token: invalid access token", err)
	}
	return claims, nil
}

// MintRefreshCookie mints a refresh cookie bound to (userID,
// ed25519Pub) with the configured refresh TTL.
func MintRefreshCookie(kRefresh []byte, ed25519Pub []byte, userID string, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := RefreshClaims{
		UserID:            userID,
		Ed25519SessionPub: codec.Base64URLEncode(ed25519Pub),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(kRefresh)
	if err != nil {
		return "", time.Time{}, coreerr.Wrap(coreerr.Internal, "token: mint refresh cookie", err)
	}
	return signed, exp, nil
}

// VerifyRefreshCookie parses a refresh cookie without rejecting an
// expired one -- the 1/3-2/3 policy needs to distinguish "expired"
// from "malformed/bad MAC", and the caller (not this function)
// decides what an expired-but-well-formed cookie means.
func VerifyRefreshCookie(kRefresh []byte, tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	_, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return kRefresh, nil
	})
	if err != nil && !isExpired(err) {
		return nil, coreerr.Wrap(coreerr.Unauthorized, "token: invalid refresh cookie", err)
	}
	return claims, nil
}

func isExpired(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
