package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"schooldesk/internal/audit"
	"schooldesk/internal/config"
	"schooldesk/internal/dispatch"
	"schooldesk/internal/httpapi"
	"schooldesk/internal/lock"
	"schooldesk/internal/logger"
	"schooldesk/internal/metrics"
	"schooldesk/internal/queue"
	"schooldesk/internal/school"
	"schooldesk/internal/store"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	log := logger.NewWithServiceContext("schooldesk-api", version, cfg.Env)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Set Gin mode based on environment
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, closeRows, err := store.OpenRows(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeRows() }()
	log.Info("row store ready", "backend", cfg.StoreBackend)

	var redisClient *store.Redis
	if cfg.NeedsRedis() {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer func() { _ = redisClient.Close() }()
		if !redisClient.Healthy(ctx) {
			log.Warn("redis not reachable yet", "addr", cfg.RedisAddr)
		}
	}

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	var locker lock.Locker = lock.NewLocal()
	if cfg.LockBackend == config.LockRedis {
		locker = lock.NewRedis(redisClient.Client, "", cfg.LockTTL)
	}
	locker = lock.Observed(locker, m.RecordLockWait)

	svc := school.NewService(rows, locker, school.Options{AdminSheet: cfg.AdminSheet})
	if err := svc.Bootstrap(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	// With the in-memory feed nobody else can consume it, so the audit
	// consumer runs here.
	var publisher queue.Publisher
	switch cfg.QueueBackend {
	case config.QueueMemory:
		q := queue.NewInMemory(256)
		publisher = q
		go func() {
			if err := audit.NewRecorder(rows, log).Run(ctx, q); err != nil {
				log.Error("audit consumer stopped", "error", err)
			}
		}()
	case config.QueueRedis:
		publisher = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, log)
	}

	d := dispatch.New(svc, dispatch.Options{Logger: log, Metrics: m, Publisher: publisher})
	router := httpapi.NewRouter(httpapi.Options{
		Dispatcher: d,
		Store:      rows,
		Redis:      redisClient,
		Logger:     log,
		Auth: httpapi.AuthConfig{
			Required:   cfg.AuthRequired,
			SigningKey: cfg.JWTSigningKey,
			Issuer:     cfg.JWTIssuer,
			TTL:        cfg.SessionTTL,
		},
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
	})

	// Grade saves may wait 20s for the lock, so writes get headroom.
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}

	log.Info("server exited")
	return nil
}
