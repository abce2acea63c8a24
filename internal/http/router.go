package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/redmonkez12/go-auth-verify/internal/auth"
	"github.com/redmonkez12/go-auth-verify/internal/config"
	"github.com/redmonkez12/go-auth-verify/internal/httputil"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
)

// pageContentSecurityPolicy covers the HTML pages. They load no scripts or
// styles. form-action does not fall back to default-src, so it is pinned to
// this origin explicitly.
const pageContentSecurityPolicy = "default-src 'none'; form-action 'self'; frame-ancestors 'none'"

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, authHandler *auth.Handler, logger *logging.Logger) (*chi.Mux, error) {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	csrf, err := CrossOriginProtection(cfg.Server.TrustedOrigins)
	if err != nil {
		return nil, err
	}

	// Global middleware
	r.Use(SecurityHeaders(pageContentSecurityPolicy)) // Security headers on all responses
	r.Use(middleware.Recoverer)                       // Recover from panics
	r.Use(middleware.RequestID)                       // Add request ID
	r.Use(middleware.RealIP)                          // Set RemoteAddr to real IP
	r.Use(logging.RequestLogger(logger))              // Structured logging with request context
	r.Use(csrf)                                       // Reject cross-origin form posts
	r.Use(middleware.Compress(5))                     // Compress responses

	r.Get("/health", handleHealth)

	// Swagger UI - only in development
	if cfg.Server.IsDevelopment() {
		logger.Info("Swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	} else {
		logger.Info("Swagger UI disabled (production mode)")
	}

	authHandler.Mount(r)

	return r, nil
}

// CrossOriginProtection rejects unsafe cross-origin requests, based on
// Sec-Fetch-Site and Origin, unless the origin is trusted.
func CrossOriginProtection(trustedOrigins []string) (func(http.Handler) http.Handler, error) {
	protection := http.NewCrossOriginProtection()
	for _, origin := range trustedOrigins {
		if err := protection.AddTrustedOrigin(origin); err != nil {
			return nil, fmt.Errorf("invalid trusted origin %q: %w", origin, err)
		}
	}
	return protection.Handler, nil
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the service is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
