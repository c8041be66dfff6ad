package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-blog-backend/internal/config"
	"go-blog-backend/internal/handler"
	"go-blog-backend/internal/middleware"
	"go-blog-backend/internal/websocket"
)

type Handlers struct {
	Auth   *handler.AuthHandler
	Post   *handler.PostHandler
	Docs   *handler.DocsHandler
	Health *handler.HealthHandler
}

func New(cfg *config.Config, authMiddleware *middleware.AuthMiddleware, h Handlers, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	metrics := middleware.NewMetrics()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(metrics.Instrument)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", h.Health.Check)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/openapi.yaml", h.Docs.OpenAPI)
	r.Get("/docs", h.Docs.SwaggerUI)

	r.Route("/api", func(api chi.Router) {
		// The feed is long-lived and needs the raw connection.
		if hub != nil {
			api.Get("/feed", hub.Handler(cfg.CORSOrigins))
		}

		api.Group(func(rest chi.Router) {
			rest.Use(middleware.Timeout(cfg.RequestTimeout))
			rest.Use(middleware.MaxBody(cfg.MaxBodyBytes))

			rest.Route("/auth", func(auth chi.Router) {
				auth.Post("/register", h.Auth.Register)
				auth.Post("/login", h.Auth.Login)
				auth.With(authMiddleware.RequireAuth).Get("/me", h.Auth.Me)
			})

			rest.With(authMiddleware.RequireAuth).Post("/create-post", h.Post.Create)
			rest.Get("/posts", h.Post.List)
			rest.Get("/posts/{id}", h.Post.Get)
			rest.Get("/posts/{id}/cover", h.Post.Cover)
			rest.With(authMiddleware.RequireAuth).Delete("/posts/{id}", h.Post.Delete)
		})
	})

	return r
}
