package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dinahmaccodes/stellar-insights/internal/horizon"
	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// readinessTimeout bounds every dependency probe on /ready.
const readinessTimeout = 5 * time.Second

// HealthChecker reports whether a dependency can serve traffic.
type HealthChecker func(ctx context.Context) error

// NewOpsMux serves liveness, readiness and Prometheus metrics on the
// operational port, away from the public API. upstream, when non-nil,
// adds a Horizon introspection endpoint; it never gates readiness, since
// the API keeps serving fallback data through a Horizon outage.
func NewOpsMux(metrics *observability.Metrics, logger *observability.Logger, checks map[string]HealthChecker, upstream func() horizon.ClientHealth) *http.ServeMux {
	mux := http.NewServeMux()

	// Liveness: the process is up
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Readiness: every registered dependency answers within the timeout
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.LogWarn(ctx, "Readiness check failed", "dependency", name, "error", err.Error())
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","dependency":%q}`, name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	if upstream != nil {
		mux.HandleFunc("/health/upstream", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(upstream()); err != nil {
				logger.LogWarn(r.Context(), "Failed to encode upstream health", "error", err.Error())
			}
		})
	}

	mux.Handle("/metrics", metrics.Handler())

	return mux
}
