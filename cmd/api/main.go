package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BradenHooton/adminguard/internal/auth"
	"github.com/BradenHooton/adminguard/internal/background"
	"github.com/BradenHooton/adminguard/internal/config"
	"github.com/BradenHooton/adminguard/internal/database"
	"github.com/BradenHooton/adminguard/internal/gateway"
	"github.com/BradenHooton/adminguard/internal/metrics"
	middlewareCustom "github.com/BradenHooton/adminguard/internal/middleware"
	"github.com/BradenHooton/adminguard/internal/repositories"
	"github.com/BradenHooton/adminguard/internal/repositories/memory"
	"github.com/BradenHooton/adminguard/internal/routes"
	"github.com/BradenHooton/adminguard/internal/services"
	pkghttp "github.com/BradenHooton/adminguard/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
)

type sessionStore interface {
	services.SessionRepository
	background.Sweeper
}

type auditStore interface {
	services.AuditEventRepository
	background.Sweeper
}

type windowStore interface {
	services.RateLimitWindowRepository
	background.Sweeper
}

type ledgerStore interface {
	services.CostLedgerRepository
	background.Sweeper
}

// stores holds the selected backend for each kind of state
type stores struct {
	sessions sessionStore
	audit    auditStore
	windows  windowStore
	ledger   ledgerStore
	checks   map[string]routes.HealthChecker
	closers  []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("store_backend", cfg.Store.Backend),
		slog.String("rate_limit_backend", cfg.Store.RateLimitBackend))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := openStores(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to open stores", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	policies, err := config.LoadPolicies(cfg.Limiter.PolicyFile)
	if err != nil {
		logger.Error("failed to load rate limit policies", slog.Any("error", err))
		os.Exit(1)
	}

	m := metrics.New()

	// API limiter guards our own metered outbound calls as well
	limiter := services.NewAPILimiter(st.windows, st.ledger, services.APILimiterConfig{
		Policies:           policies,
		DailyCostThreshold: cfg.Limiter.DailyCostThreshold,
	}, m, logger)

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer initCancel()

	if cfg.Limiter.AlertEmailTo != "" {
		notifier, err := services.NewSESAlertNotifier(initCtx, cfg.AWS.Region,
			cfg.Limiter.AlertEmailFrom, cfg.Limiter.AlertEmailTo,
			limiter, config.APISendAlertEmail, logger)
		if err != nil {
			logger.Error("failed to initialize alert notifier", slog.Any("error", err))
			os.Exit(1)
		}
		limiter.SetNotifier(notifier)
	} else {
		limiter.SetNotifier(services.NewLogAlertNotifier(logger))
	}

	var fetcher services.SecretFetcher
	if cfg.Gateway.SecurityConfigFile != "" {
		fetcher = services.FileSecretFetcher{Path: cfg.Gateway.SecurityConfigFile}
	} else {
		fetcher, err = services.NewSecretsManagerFetcher(initCtx, cfg.AWS.Region, limiter, config.APIGetSecretValue)
		if err != nil {
			logger.Error("failed to initialize secret fetcher", slog.Any("error", err))
			os.Exit(1)
		}
	}

	securityConfig := services.NewSecurityConfigService(fetcher, cfg.Gateway.SecurityConfigSecretID, logger)
	auditService := services.NewAuditService(st.audit, logger, m)
	bruteForceGuard := services.NewBruteForceGuard(st.audit, logger)
	sessionService := services.NewSessionService(st.sessions, auditService, logger)

	origin, err := gateway.NewOrigin(cfg.Gateway.OriginURL, cfg.Gateway.OriginDir, logger)
	if err != nil {
		logger.Error("failed to initialize origin", slog.Any("error", err))
		os.Exit(1)
	}

	ipConfig := &pkghttp.IPConfig{
		TrustForwardedHeaders: cfg.Gateway.TrustForwardedHeaders,
		TrustedProxies:        cfg.Gateway.TrustedProxies,
	}

	cookieConfig := auth.DefaultCookieConfig()
	cookieConfig.Domain = cfg.Gateway.CookieDomain
	cookieConfig.Secure = cfg.Gateway.CookieSecure

	gw := gateway.New(gateway.Config{
		Env:              cfg.Server.Env,
		LoginPagePath:    cfg.Gateway.LoginPagePath,
		IPConfig:         ipConfig,
		Cookie:           cookieConfig,
		MFAPendingWindow: cfg.Gateway.MFAPendingWindow,
		LoginRateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.Gateway.LoginRequestsPerMinute,
		},
		Timing: auth.NewTimingDelay(auth.TimingConfig{
			BaseDelayMs:   cfg.Gateway.TimingBaseDelayMs,
			RandomDelayMs: cfg.Gateway.TimingRandomDelayMs,
		}),
	}, gateway.Dependencies{
		Configs:  securityConfig,
		Audit:    auditService,
		Guard:    bruteForceGuard,
		Sessions: sessionService,
		Usage:    limiter,
		Origin:   origin,
	}, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(m.Instrument)
	router.Use(middlewareCustom.SecureLogger(logger, cfg.Server.Env))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, gw, m.Handler(), st.checks)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Postgres has no native TTL; memory stores are swept the same way
	cleanupManager := background.NewCleanupManager(map[string]background.Sweeper{
		"sessions":           st.sessions,
		"audit_events":       st.audit,
		"rate_limit_windows": st.windows,
		"daily_costs":        st.ledger,
	}, logger, cfg.Store.CleanupInterval)

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

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// openStores connects the configured backends and runs migrations when
// Postgres is in use
func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*stores, error) {
	st := &stores{checks: make(map[string]routes.HealthChecker)}

	var db *database.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.checks["postgres"] = db

		if err := db.Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		st.sessions = repositories.NewSessionRepository(db)
		st.audit = repositories.NewAuditEventRepository(db)
		st.ledger = repositories.NewCostLedgerRepository(db)
	default:
		st.sessions = memory.NewSessionStore()
		st.audit = memory.NewAuditStore()
		st.ledger = memory.NewCostLedgerStore()
	}

	switch cfg.Store.RateLimitBackend {
	case config.BackendPostgres:
		st.windows = repositories.NewRateLimitWindowRepository(db)
	case config.BackendRedis:
		client, err := repositories.NewRedisClient(ctx, repositories.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
		})
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, closeRedis(client, logger))
		repo := repositories.NewRedisWindowRepository(client, logger)
		st.windows = repo
		st.checks["redis"] = repo
	default:
		st.windows = memory.NewWindowStore()
	}

	return st, nil
}

func closeRedis(client *redis.Client, logger *slog.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
