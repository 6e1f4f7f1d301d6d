package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"dsm-gateway/internal/config"
	"dsm-gateway/internal/gateway"
	"dsm-gateway/internal/identity"
	"dsm-gateway/internal/locale"
	"dsm-gateway/internal/middleware"
	"dsm-gateway/internal/proxy"
	"dsm-gateway/internal/router"
	"dsm-gateway/internal/token"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	tokens := token.NewStore(token.Policy{
		Secure:         cfg.SecureCookies,
		AccessHTTPOnly: cfg.AccessCookieHTTPOnly,
		AccessMaxAge:   cfg.AccessCookieMaxAge,
		RefreshMaxAge:  cfg.RefreshCookieMaxAge,
	})
	locales := locale.NewResolver(cfg.Locales, cfg.DefaultLocale)

	var cleanup []func()
	var clientOpts []gateway.Option
	upstreamURL := cfg.UpstreamBaseURL

	if cfg.MockIdentity {
		store, pgCleanup, err := identityStore(cfg)
		if err != nil {
			return nil, err
		}
		if pgCleanup != nil {
			cleanup = append(cleanup, pgCleanup)
		}

		service := identity.NewService(store, cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
		handler := identity.NewHandler(service)
		clientOpts = append(clientOpts, gateway.WithTransport(identity.NewTransport(handler.Routes())))
		upstreamURL = "http://identity.internal"
		slog.Info("mock identity backend enabled")
	}

	client := gateway.New(upstreamURL, cfg.UpstreamTimeout, clientOpts...)

	session := middleware.NewSessionMiddleware(tokens, locales, client, cfg.ProtectedPaths)

	pages, err := pageHandler(cfg.FrontendOrigin)
	if err != nil {
		return nil, err
	}

	appRouter := router.New(cfg, session, router.Handlers{
		Auth:  proxy.NewAuthHandler(client, tokens),
		User:  proxy.NewUserHandler(client),
		Pages: pages,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: cleanup}, nil
}

// identityStore picks the backing store for the mock identity backend:
// Postgres when DATABASE_URL is set, otherwise the seeded memory store.
func identityStore(cfg *config.Config) (identity.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		store, err := identity.NewMemoryStore()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to seed identity store: %w", err)
		}
		return store, nil, nil
	}

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := identity.NewPGStore(pool)
	if err := store.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, nil, err
	}

	slog.Info("identity store backed by postgres")
	return store, pool.Close, nil
}

// pageHandler forwards page requests to the rendering front-end. When
// no origin is configured, pages answer with a plain placeholder so the
// gateway still runs standalone.
func pageHandler(origin string) (http.Handler, error) {
	if origin == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("dsm-gateway: no front-end origin configured\n"))
		}), nil
	}

	target, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("invalid FRONTEND_ORIGIN: %w", err)
	}

	return httputil.NewSingleHostReverseProxy(target), nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
