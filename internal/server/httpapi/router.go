package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vposukhov/stockpilot/internal/metrics"
	"github.com/vposukhov/stockpilot/internal/server/config"
)

// NewRouter assembles the identity server's routes. The credential endpoints
// sit behind a per-IP rate limiter.
func NewRouter(h *Handler, m *metrics.Metrics, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	limiter := newIPRateLimiter(cfg.TokenRateLimit, cfg.TokenRateBurst)

	r.Route("/auth/v1", func(r chi.Router) {
		r.With(limiter.middleware(m)).Post("/signup", h.SignUp)
		r.With(limiter.middleware(m)).Post("/token", h.Token)
		r.Post("/logout", h.Logout)
		r.Get("/user", h.CurrentUser)
	})

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	return r
}
