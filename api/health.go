// SPDX-License-Identifier: LGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/veilmark/corevault/pkg/health"
)

// handleHealth implements GET /health: the full combined storage and
// system check.
func (d *Deps) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := d.Health.CheckAll()
	code := http.StatusOK
	if status.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// handleHealthLive implements GET /health/live: process liveness only,
// never touches storage.
func (d *Deps) handleHealthLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealthReady implements GET /health/ready: readiness gates on
// storage connectivity.
func (d *Deps) handleHealthReady(w http.ResponseWriter, r *http.Request) {
	status := d.Health.CheckAll()
	if status.StorageStatus == nil || status.StorageStatus.Status != health.StatusHealthy {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
