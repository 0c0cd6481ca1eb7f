package middleware

import "net/http"

// Vary lists the request headers that select among representations:
// Accept (JSON or CBOR) and Authorization (owner-scoped content).
// Origin is added separately by the CORS middleware.
func Vary() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept")
			w.Header().Add("Vary", "Authorization")
			next.ServeHTTP(w, r)
		})
	}
}
