package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware for browser clients. Conditional request headers
// are allowed and the entity tag, location and pagination headers are
// exposed so scripts can drive optimistic updates and paging.
func CORS(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"If-Match",
			"If-None-Match",
			"X-Request-Id",
		},
		ExposedHeaders: []string{"ETag", "Link", "Location", "X-Request-Id", "Retry-After"},
		MaxAge:         300,
	})
}
