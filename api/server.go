// SPDX-License-Identifier: LGPL-3.0-or-later

// Package api wires the cryptographic core's services onto an HTTP
// surface using the stdlib's method-prefixed ServeMux, the same mux
// style the teacher's cmd/test-server uses for its own HTTP control
// plane.
package api

import (
	"crypto/ed25519"
	"net/http"
	"time"

	"github.com/veilmark/corevault/crypto/keys"
	"github.com/veilmark/corevault/internal/logger"
	"github.com/veilmark/corevault/internal/metrics"
	"github.com/veilmark/corevault/magiclink"
	"github.com/veilmark/corevault/pkg/health"
	"github.com/veilmark/corevault/sharedsecret"
	"github.com/veilmark/corevault/token"
)

// Deps bundles every dependency a handler needs: the two domain
// services, the token config used to verify bearer/refresh tokens,
// the server's long-term keys, and the UI host cookies are scoped to.
type Deps struct {
	MagicLink    *magiclink.Service
	SharedSecret *sharedsecret.Service
	TokenConfig  token.Config
	ServerEd     ed25519.PrivateKey
	ServerX      *keys.X25519KeyPair
	UIHost       string
	Secure       bool
	Health       *health.Checker
	Log          logger.Logger
	Now          func() time.Time
}

// NewServer builds the full HTTP handler: the eight domain endpoints
// plus the ambient health and metrics surface.
func NewServer(d *Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = logger.GetDefaultLogger()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/login/", d.handleLoginIssue)
	mux.HandleFunc("POST /api/login/magiclink/", d.handleLoginRedeem)
	mux.HandleFunc("POST /api/refresh", d.handleRefresh)

	mux.HandleFunc("POST /api/shared-secret/create", d.withAuth(d.handleSharedSecretCreate))
	mux.HandleFunc("GET /api/shared-secret/confirm-read", d.withAuth(d.handleSharedSecretConfirmRead))
	mux.HandleFunc("GET /api/shared-secret/{hash}", d.withAuth(d.handleSharedSecretRetrieve))
	mux.HandleFunc("POST /api/shared-secret/{hash}", d.withAuth(d.handleSharedSecretRetrieve))
	mux.HandleFunc("DELETE /api/shared-secret/{hash}", d.withAuth(d.handleSharedSecretDelete))

	mux.HandleFunc("GET /health", d.handleHealth)
	mux.HandleFunc("GET /health/live", d.handleHealthLive)
	mux.HandleFunc("GET /health/ready", d.handleHealthReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return d.withAccessLog(mux)
}

// withAccessLog logs method, path, status, and duration for every
// request, mirroring the teacher's httputil.DumpRequest-style
// request logging in cmd/test-server but via the structured logger.
func (d *Deps) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		d.Log.Info("http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", sw.status),
			logger.Duration("duration", time.Since(start)),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
