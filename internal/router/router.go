package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dsm-gateway/internal/config"
	"dsm-gateway/internal/middleware"
	"dsm-gateway/internal/model"
	"dsm-gateway/internal/proxy"
)

// Handlers bundles the route targets the router wires up.
type Handlers struct {
	Auth *proxy.AuthHandler
	User *proxy.UserHandler

	// Pages receives every non-API request the session middleware lets
	// through, typically a reverse proxy to the front-end origin.
	Pages http.Handler
}

func New(cfg *config.Config, session *middleware.SessionMiddleware, h Handlers) http.Handler {
	r := chi.NewRouter()
	rateLimit := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimit.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Everything below the health check flows through the session state
	// machine before any handler runs.
	r.Group(func(g chi.Router) {
		g.Use(session.Handler)
		g.Use(middleware.Timeout(cfg.UpstreamTimeout))

		g.Post("/api/auth/login", h.Auth.Login)
		g.Post("/api/auth/refresh", h.Auth.Refresh)
		g.Post("/api/auth/logout", h.Auth.Logout)

		g.Get("/api/users/me", h.User.Me)
		g.Put("/api/users/me", h.User.UpdateMe)
		g.Get("/api/users", h.User.List)
		g.Get("/api/users/menus", h.User.Menus)
		g.Get("/api/users/permissions", h.User.Permissions)

		g.HandleFunc("/api/*", func(w http.ResponseWriter, _ *http.Request) {
			proxy.WriteEnvelope(w, model.Fail(http.StatusNotFound, "not found"))
		})
		g.Handle("/*", h.Pages)
	})

	return r
}
