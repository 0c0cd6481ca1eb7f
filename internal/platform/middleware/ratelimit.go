package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/janisto/device-profile-api/internal/platform/respond"
)

// RateLimit limits each client IP to requestsPerMinute. A non-positive
// limit disables the middleware. Rejections are rendered as problems.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByRealIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respond.WriteProblem(w, r, respond.New(http.StatusTooManyRequests, respond.KindRateLimited,
				"rate limit exceeded; retry later"))
		}),
	)
}
