package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sbilibin2017/gw-operation-ledger/internal/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger checks that a dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthResponse is the body of the liveness and readiness endpoints.
type HealthResponse struct {
	// ok or unavailable
	Status string `json:"status"`

	// Per dependency result, "ok" or the error text
	Checks map[string]string `json:"checks,omitempty"`
}

// NewLivenessHandler returns a handler that reports the process is up.
func NewLivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

// NewReadinessHandler returns a handler that pings every dependency and
// answers 503 when any of them fails.
func NewReadinessHandler(checks map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK

		for name, ping := range checks {
			if err := ping(ctx); err != nil {
				logger.Log.Errorw("readiness check failed", "dependency", name, "error", err)
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		writeHealth(w, status, resp)
	}
}

func writeHealth(w http.ResponseWriter, status int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
