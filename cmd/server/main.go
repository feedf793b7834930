package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/redis/go-redis/v9"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/api/middleware"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/config"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/database"
	seclog "github.com/welldanyogia/webrana-mailguard-backend/internal/logger"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/repository"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/seed"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/session"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/smtp"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/websocket"
	"golang.org/x/time/rate"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWithValidation()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return err
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	security := logger.With(slog.String("component", "security"))
	securityLogger := seclog.NewSecurityLoggerFrom(security)

	slog.Info("Starting MailGuard Backend Server...")
	cfg.LogConfig(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	gormLevel := gormlogger.Warn
	if cfg.LogLevel == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := database.Connect(database.Options{
		Driver:     cfg.DatabaseDriver,
		URL:        cfg.DatabaseURL,
		Production: cfg.IsProduction(),
		LogLevel:   gormLevel,
	})
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Redis is optional
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("Connected to redis successfully")
	}

	var sessionStore session.Store = session.NewMemoryStore(cfg.SessionTTL)
	if rdb != nil {
		sessionStore = session.NewRedisStore(rdb, cfg.SessionTTL)
	}

	// Risk evaluation; without a backend every message gets the fallback verdict
	var backend risk.Backend
	if cfg.ClassifierURL != "" {
		backend = risk.NewHTTPBackend(cfg.ClassifierURL, cfg.ClassifierAPIKey, &http.Client{})
		if rdb != nil {
			backend = risk.NewCachedBackend(backend, rdb, cfg.ClassifierCacheTTL, logger)
		}
	} else {
		slog.Warn("CLASSIFIER_URL not set, all mail will be scored with the fallback assessment")
	}
	evaluator := risk.NewEvaluator(risk.EvaluatorConfig{
		Backend: backend,
		Timeout: cfg.ClassifierTimeout,
		Logger:  security,
	})

	// Live events
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	// Services share one write lock
	store := repository.NewStore(db)
	lock := &sync.Mutex{}
	audit := services.NewAuditTrail(store, logger, nil)
	directory, err := services.NewDirectoryService(store, audit, services.DirectoryConfig{
		Security:     securityLogger,
		Lock:         lock,
		OnRoleChange: hub.RoleChanged,
	})
	if err != nil {
		return err
	}
	sessions := services.NewSessionService(directory, sessionStore, audit)
	mail := services.NewMailService(store, directory, evaluator, audit, services.MailConfig{
		Security: securityLogger,
		Notifier: hub,
		Lock:     lock,
	})

	if err := seed.NewSeeder(store, directory, logger, nil).Run(ctx, seed.Options{
		DemoData: cfg.SeedDemoData,
		File:     cfg.SeedFile,
	}); err != nil {
		return fmt.Errorf("failed to seed store: %w", err)
	}

	// HTTP API
	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitRequests), cfg.RateLimitBurst)
	limiter.StartCleanup(ctx, time.Minute)

	router := api.NewRouter(&api.RouterConfig{
		DB:             db,
		Redis:          rdb,
		Directory:      directory,
		Sessions:       sessions,
		Mail:           mail,
		Audit:          audit,
		Hub:            hub,
		Logger:         logger,
		Security:       securityLogger,
		AllowedOrigins: cfg.Origins(),
		Production:     cfg.IsProduction(),
		Limiter:        limiter,
	})

	errCh := make(chan error, 2)
	go func() {
		addr := ":" + strconv.Itoa(cfg.APIPort)
		slog.Info("HTTP server listening", slog.String("addr", addr))
		if err := router.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Inbound SMTP
	var smtpServer *gosmtp.Server
	if cfg.SMTPEnabled {
		smtpServer = smtp.NewSecureServer(smtp.NewBackend(&smtp.BackendConfig{
			Directory:       directory,
			Mail:            mail,
			DeliveryTimeout: cfg.ClassifierTimeout + 5*time.Second,
			Logger:          logger,
		}), &smtp.ServerConfig{
			Addr:   ":" + strconv.Itoa(cfg.SMTPPort),
			Domain: cfg.SMTPDomain,
		})
		go func() {
			slog.Info("SMTP server listening", slog.String("addr", smtpServer.Addr))
			if err := smtpServer.ListenAndServe(); err != nil && !errors.Is(err, gosmtp.ErrServerClosed) {
				errCh <- fmt.Errorf("smtp server: %w", err)
			}
		}()
	}

	// Graceful shutdown
	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down server...")
	case runErr = <-errCh:
		slog.Error("server failed, shutting down", slog.Any("error", runErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", slog.Any("error", err))
	}
	if smtpServer != nil {
		if err := smtpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("smtp shutdown failed", slog.Any("error", err))
		}
	}

	slog.Info("Server stopped")
	return runErr
}
