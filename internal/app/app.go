package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"go-blog-backend/internal/auth"
	"go-blog-backend/internal/config"
	"go-blog-backend/internal/database"
	"go-blog-backend/internal/event"
	"go-blog-backend/internal/handler"
	"go-blog-backend/internal/middleware"
	"go-blog-backend/internal/repository"
	"go-blog-backend/internal/router"
	"go-blog-backend/internal/service"
	"go-blog-backend/internal/websocket"
)

type App struct {
	server       *http.Server
	hub          *websocket.Hub
	relay        *event.RedisRelay
	cleanupFuncs []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{cleanupFuncs: []func(){db.Close}}

	if err := db.Migrate(ctx); err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	slog.Info("database ready")

	userRepo := repository.NewUserRepository(db.Pool)
	postRepo := repository.NewPostRepository(db.Pool)

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTAccessTTL)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize token issuer: %w", err)
	}

	var bus event.Bus = event.NewBus()
	if cfg.RedisURL != "" {
		client, err := event.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.cleanup()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cleanupFuncs = append(a.cleanupFuncs, closeRedis(client))
		a.relay = event.NewRedisRelay(client, cfg.FeedChannel, bus)
		bus = a.relay
	}

	authService := service.NewAuthService(userRepo, issuer, cfg.BcryptCost)
	resolver := service.NewIdentityResolver(userRepo, issuer)
	postService := service.NewPostService(postRepo, bus, cfg.PostsPublishedOnly)

	a.hub = websocket.NewHub(bus)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(resolver), router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Post:   handler.NewPostHandler(postService),
		Docs:   handler.NewDocsHandler(),
		Health: handler.NewHealthHandler(db),
	}, a.hub)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.cleanup()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.relay != nil {
		if err := a.relay.Start(runCtx); err != nil {
			return fmt.Errorf("failed to start feed relay: %w", err)
		}
		defer func() {
			if err := a.relay.Close(); err != nil {
				slog.Warn("feed relay close failed", "error", err)
			}
		}()
	}

	go a.hub.Run(runCtx)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func closeRedis(client *redis.Client) func() {
	return func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis close failed", "error", err)
		}
	}
}
