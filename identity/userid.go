// SPDX-License-Identifier: LGPL-3.0-or-later

// Package identity derives the opaque user_id every component keys
// its per-user state on, from a process-wide secret and a normalized
// email address.
package identity

import (
	"strings"

	"github.com/veilmark/corevault/crypto"
)

// NormalizeEmail lowercases and trims an email address to the form
// user_id derivation and every other email-keyed lookup must agree on.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserID derives the 16-byte opaque user_id: HMAC(kUser,
// normalize(email))[0:16]. The same (kUser, email) always yields the
// same user_id.
func UserID(kUser []byte, email string) []byte {
	mac := crypto.HMACSHA256(kUser, []byte(NormalizeEmail(email)))
	return mac[:16]
}
