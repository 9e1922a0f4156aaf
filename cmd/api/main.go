package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/keystone/internal/auth"
	"github.com/BradenHooton/keystone/internal/background"
	"github.com/BradenHooton/keystone/internal/config"
	"github.com/BradenHooton/keystone/internal/database"
	"github.com/BradenHooton/keystone/internal/handlers"
	middlewareCustom "github.com/BradenHooton/keystone/internal/middleware"
	"github.com/BradenHooton/keystone/internal/models"
	"github.com/BradenHooton/keystone/internal/repositories"
	"github.com/BradenHooton/keystone/internal/routes"
	"github.com/BradenHooton/keystone/internal/services"
	pkgauth "github.com/BradenHooton/keystone/pkg/auth"
	pkghttp "github.com/BradenHooton/keystone/pkg/http"
	pkglogger "github.com/BradenHooton/keystone/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("api_version", cfg.Server.APIVersion))
	warnOnExpiryDrift(cfg.Auth, logger)

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		err := db.Migrate(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	credentialRepo := repositories.NewCredentialRepository(db)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry, cfg.Auth.RememberMeTokenExpiry)

	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:   cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs: cfg.Auth.TimingDelayRandomMs,
	})
	if timingDelay.Enabled() {
		logger.Info("login response padding enabled",
			slog.Int("base_ms", cfg.Auth.TimingDelayBaseMs),
			slog.Int("random_ms", cfg.Auth.TimingDelayRandomMs))
	}

	var notifier services.LockoutNotifier = services.NoopLockoutNotifier{}
	if cfg.Email.NotificationsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err := services.NewSESLockoutNotifier(ctx, cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize lockout notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid TRUSTED_PROXIES", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := pkglogger.NewAuditLogger(logger)
	authService := services.NewAuthService(credentialRepo, tokenManager, timingDelay, notifier, logger, auditLogger)
	authHandler := handlers.NewAuthHandler(authService, ipConfig, logger)

	// Bootstrap an account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureBootstrapAccount(ctx, credentialRepo, logger); err != nil {
		logger.Error("failed to ensure bootstrap account", slog.Any("error", err))
	}
	cancel()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get("/health", routes.HealthHandler(db))
	routes.RegisterRoutes(router, cfg.Server.APIVersion, authHandler, tokenManager, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Auth.LoginRateLimitPerMin,
		IPConfig:          ipConfig,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	cleanupManager := background.NewCleanupManager(credentialRepo, logger, cfg.Auth.SessionCleanupInterval, cfg.Auth.FailureRetention)
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupManager.Stop()
	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	// Let in-flight lockout emails finish
	authService.Wait()

	logger.Info("server stopped gracefully")
}

// warnOnExpiryDrift flags token lifetimes that no longer match the audit expiry
// stamped on user_session rows.
func warnOnExpiryDrift(cfg config.AuthConfig, logger *slog.Logger) {
	if cfg.TokenExpiry != services.SessionExpiry {
		logger.Warn("JWT_EXPIRES_IN differs from the session audit expiry",
			slog.Duration("token_expiry", cfg.TokenExpiry),
			slog.Duration("audit_expiry", services.SessionExpiry))
	}
	if cfg.RememberMeTokenExpiry != services.RememberMeSessionExpiry {
		logger.Warn("JWT_REMEMBER_ME_EXPIRES_IN differs from the session audit expiry",
			slog.Duration("token_expiry", cfg.RememberMeTokenExpiry),
			slog.Duration("audit_expiry", services.RememberMeSessionExpiry))
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureBootstrapAccount creates an account from ADMIN_EMAIL and ADMIN_PASSWORD when both are set
func ensureBootstrapAccount(ctx context.Context, repo *repositories.CredentialRepository, logger *slog.Logger) error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")

	if email == "" || password == "" {
		logger.Debug("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping bootstrap account")
		return nil
	}

	_, err := repo.GetAccountByEmail(ctx, email)
	if err == nil {
		logger.Info("bootstrap account already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check bootstrap account: %w", err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap password: %w", err)
	}

	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Admin"
	}

	id, err := repo.CreateAccount(ctx, name, email, hash, true)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap account: %w", err)
	}

	logger.Info("bootstrap account created",
		slog.Int64("account_id", id),
		slog.String("email", pkglogger.MaskEmail(email)))
	return nil
}
