package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	applog "github.com/janisto/device-profile-api/internal/platform/logging"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	pingTimeout     = 2 * time.Second
)

// Response is the payload for the health endpoint.
type Response struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Pinger checks a dependency. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler returns a plain HTTP handler reporting process and database
// health. A failed ping answers 503 so load balancers stop routing here.
func Handler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := Response{Status: statusHealthy, Database: statusHealthy}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if db == nil {
			resp.Database = statusUnhealthy
		} else if err := db.Ping(ctx); err != nil {
			applog.LogError(r.Context(), "health check: database ping failed", err)
			resp.Database = statusUnhealthy
		}
		if resp.Database != statusHealthy {
			resp.Status = statusUnhealthy
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
