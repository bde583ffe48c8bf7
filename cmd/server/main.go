package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skillora/skillora/internal"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/email"
	"github.com/skillora/skillora/internal/handler"
	"github.com/skillora/skillora/internal/metrics"
	"github.com/skillora/skillora/internal/middleware"
	"github.com/skillora/skillora/internal/repository"
	"github.com/skillora/skillora/internal/scorer"
	"github.com/skillora/skillora/internal/service"
	"github.com/skillora/skillora/internal/storage"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	// Initialize repository
	repo := repository.New(db)

	// Initialize object storage
	var files storage.Storage
	switch cfg.StorageProvider {
	case storage.ProviderR2:
		files, err = storage.NewR2Storage(storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
		}, logger)
	default:
		files, err = storage.NewLocalStorage(storage.LocalConfig{
			BasePath: cfg.LocalStoragePath,
			BaseURL:  cfg.LocalStorageURL,
		}, logger)
	}
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}

	// Initialize the resume scorer
	var resumeScorer scorer.Scorer
	if cfg.ScorerProvider == "http" {
		resumeScorer = scorer.NewClient(cfg.ScorerURL, cfg.ScorerTimeout, logger)
	} else {
		resumeScorer = scorer.NewMock()
		logger.Warn("using mock resume scorer")
	}

	// Review notifications
	emailService := email.NewSMTPService(email.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, logger)

	// Initialize services
	clock := service.SystemClock()
	userService := service.NewUserService(repo, service.UserServiceConfig{
		JWTSecret: []byte(cfg.JWTSecret),
		TokenTTL:  cfg.TokenTTL,
	}, logger)
	entitlementService := service.NewEntitlementService(repo, clock, logger)
	subscriptionService := service.NewSubscriptionService(repo, clock, emailService, logger)
	analysisService := service.NewAnalysisService(repo, entitlementService, resumeScorer, files, logger)
	sweeper := service.NewSweeper(repo, clock, cfg.SweepInterval, logger)

	// Initialize middleware
	isSecure := cfg.Env != "development"
	authMw := middleware.NewAuthMiddleware(userService, cfg.AdminEmails, logger)
	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	securityMw := middleware.NewSecurityHeadersMiddleware(isSecure)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	authLimiter := middleware.NewAuthRateLimiter(logger)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(userService, logger)
	entitlementHandler := handler.NewEntitlementHandler(entitlementService, logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, files, service.NewImagingProcessor(), logger)
	adminHandler := handler.NewAdminHandler(subscriptionService, sweeper, files, logger)
	healthHandler := handler.NewHealthHandler(db, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	requireUser := middleware.Stack(authMw.WithUser, authMw.RequireUser)
	requireRecruiter := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireTier(domain.TierRecruiter))
	requireAdmin := middleware.Stack(authMw.WithUser, authMw.RequireUser, authMw.RequireAdmin)

	// Health and metrics
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", metricsAuthMw.Handler(promhttp.Handler()))

	// Auth routes (public, rate limited)
	mux.Handle("POST /auth/register", authLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /auth/login", authLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))

	// Profile and entitlement
	mux.Handle("GET /me", requireUser(http.HandlerFunc(entitlementHandler.Me)))
	mux.Handle("GET /me/usage", requireUser(http.HandlerFunc(entitlementHandler.Usage)))
	mux.Handle("GET /me/features", requireUser(http.HandlerFunc(entitlementHandler.Features)))

	// Resume analysis
	mux.Handle("POST /resumes/analyze", requireUser(http.HandlerFunc(analysisHandler.Analyze)))
	mux.Handle("POST /resumes/batch-analyze", requireRecruiter(http.HandlerFunc(analysisHandler.BatchAnalyze)))
	mux.Handle("GET /resumes/analyses", requireUser(http.HandlerFunc(analysisHandler.History)))

	// Subscription requests
	mux.Handle("POST /subscriptions", requireUser(http.HandlerFunc(subscriptionHandler.Create)))
	mux.Handle("GET /subscriptions", requireUser(http.HandlerFunc(subscriptionHandler.ListMine)))

	// Admin review queue and manual sweep
	mux.Handle("GET /admin/subscriptions", requireAdmin(http.HandlerFunc(adminHandler.Queue)))
	mux.Handle("POST /admin/subscriptions/{id}/approve", requireAdmin(http.HandlerFunc(adminHandler.Approve)))
	mux.Handle("POST /admin/subscriptions/{id}/reject", requireAdmin(http.HandlerFunc(adminHandler.Reject)))
	mux.Handle("POST /admin/subscriptions/{id}/dates", requireAdmin(http.HandlerFunc(adminHandler.SetDates)))
	mux.Handle("POST /admin/sweep", requireAdmin(http.HandlerFunc(adminHandler.Sweep)))

	// Serve local storage over HTTP in development
	if cfg.StorageProvider == storage.ProviderLocal {
		filesFS := http.FileServer(http.Dir(cfg.LocalStoragePath))
		mux.Handle("GET /files/", requireAdmin(http.StripPrefix("/files/", filesFS)))
	}

	// Outer middleware: logging wraps everything, then security headers and
	// request metrics.
	root := middleware.Stack(
		loggingMw.Handler,
		securityMw.Handler,
		metrics.Middleware,
	)(mux)

	// ==========================================================================
	// Start background sweeper
	// ==========================================================================

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	if cfg.SweepEnabled {
		go sweeper.Start(sweepCtx)
	} else {
		logger.Warn("expiry sweeper disabled")
	}

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: root,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
