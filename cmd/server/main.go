package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/danniokta/notesafe/internal/api"
	"github.com/danniokta/notesafe/internal/auth"
	"github.com/danniokta/notesafe/internal/config"
	"github.com/danniokta/notesafe/internal/health"
	"github.com/danniokta/notesafe/internal/logger"
	"github.com/danniokta/notesafe/internal/metrics"
	authmw "github.com/danniokta/notesafe/internal/middleware"
	"github.com/danniokta/notesafe/internal/ratelimit"
	"github.com/danniokta/notesafe/internal/repository"
	"github.com/danniokta/notesafe/internal/sanitizer"
)

const version = "1.0.0"

// logResetSender surfaces password reset links through the log instead of
// an external delivery channel.
type logResetSender struct {
	log *slog.Logger
}

func (s logResetSender) Send(_ context.Context, username, resetPath string) error {
	s.log.Info("Password reset link issued", "username", username, "path", resetPath)
	return nil
}

func main() {
	cfg := config.Load()
	log := logger.New(logger.DefaultConfig())

	// Database pool
	dbPool, err := setupDatabase(cfg)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Connected to database",
		"db_name", cfg.Database.DBName,
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
	)

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	apiTokenRepo := repository.NewAPITokenRepository(dbPool)
	resetRepo := repository.NewPasswordResetRepository(dbPool)

	// Services
	hasher := auth.NewPasswordHasher()
	sessionService := auth.NewSessionService(sessionRepo, cfg.Auth, log)
	resetService := auth.NewPasswordResetService(resetRepo, cfg.Auth, log)
	apiTokenService := auth.NewAPITokenService(apiTokenRepo, log)
	authService := auth.NewAuthService(
		userRepo,
		sessionService,
		resetService,
		hasher,
		sanitizer.NewTextPolicy(),
		log,
	)

	cookies := auth.CookiePolicy{Secure: cfg.Server.IsProduction()}

	// No mail transport is wired yet; outside production the reset link is
	// written to the log so the flow stays usable during development.
	var resetSender auth.ResetSender
	if !cfg.Server.IsProduction() {
		resetSender = logResetSender{log: log}
	}

	// Handlers and middleware
	authHandler := auth.NewHandler(authService, apiTokenService, cookies, resetSender, log)
	apiHandler := api.NewHandler(log)
	sessionAuth := authmw.NewSessionAuth(sessionService, cookies)
	bearerAuth := authmw.NewBearerAuth(apiTokenService)
	requestLogger := authmw.NewLoggingMiddleware(log)

	// Rate limiters (fixed window, per client IP, in-process)
	globalLimiter := ratelimit.New(cfg.RateLimit.GlobalWindow, cfg.RateLimit.GlobalMax)
	defer globalLimiter.Stop()
	authLimiter := ratelimit.New(cfg.RateLimit.AuthWindow, cfg.RateLimit.AuthMax)
	defer authLimiter.Stop()

	// Health endpoints and DB pool metrics
	healthHandler := health.NewHandler(health.Config{
		DBPool:  dbPool,
		Version: version,
	})
	dbStats := metrics.NewDBStatsCollector(dbPool, log)
	dbStats.Start(15 * time.Second)
	defer dbStats.Stop()

	// Router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger.Handler)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Probes and metrics stay outside the auth surface and the limiter
	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Readiness)
	r.Get("/health/live", healthHandler.Liveness)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(globalLimiter, "global"))

		// Browser surface: session cookie resolution on every request,
		// stricter limiter on the credential endpoints
		r.Group(func(r chi.Router) {
			r.Use(sessionAuth.Handler)
			auth.RegisterRoutes(r, authHandler,
				authmw.RequireUser,
				authmw.RequireSession,
				ratelimit.Middleware(authLimiter, "auth"),
			)
		})

		// Programmatic surface: bearer tokens only
		r.Route("/api/v1", func(r chi.Router) {
			api.RegisterRoutes(r, apiHandler, bearerAuth.Handler)
		})
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Starting server", "addr", addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	healthHandler.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// setupDatabase creates and configures the database connection pool
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 5 * time.Minute
	poolConfig.MaxConnIdleTime = 1 * time.Minute
	poolConfig.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
