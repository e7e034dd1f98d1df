// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/veilmark/corevault/token"
)

// newRefreshCookieFromResult builds the Set-Cookie value for a
// freshly minted or rotated refresh token, scoped to the
// configured UI host.
func newRefreshCookieFromResult(d *Deps, value string, expiresAt time.Time) *http.Cookie {
	ttl := expiresAt.Sub(d.Now())
	if ttl < 0 {
		ttl = 0
	}
	return token.NewRefreshHTTPCookie(value, d.UIHost, ttl, d.Secure)
}
