package http

import (
	"net/http"
	"strings"
)

// swaggerContentSecurityPolicy lets Swagger UI load its scripts, styles and images.
const swaggerContentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"

// SecurityHeaders adds security-related headers to all responses. pagePolicy
// is the Content-Security-Policy for everything outside /swagger/.
func SecurityHeaders(pagePolicy string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if strings.HasPrefix(r.URL.Path, "/swagger/") {
				h.Set("Content-Security-Policy", swaggerContentSecurityPolicy)
			} else {
				h.Set("Content-Security-Policy", pagePolicy)
			}

			next.ServeHTTP(w, r)
		})
	}
}
