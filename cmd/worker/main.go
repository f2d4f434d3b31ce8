package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"schooldesk/internal/audit"
	"schooldesk/internal/config"
	"schooldesk/internal/logger"
	"schooldesk/internal/queue"
	"schooldesk/internal/school"
	"schooldesk/internal/store"
)

var version = "dev"

// Worker consumes the Redis change feed and appends the audit trail.
func main() {
	cfg, err := config.Load()
	log := logger.NewWithServiceContext("schooldesk-worker", version, cfg.Env)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != config.QueueRedis {
		log.Error("worker needs QUEUE_BACKEND=redis; the memory feed is consumed inside the api process", "queue_backend", cfg.QueueBackend)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rows, closeRows, err := store.OpenRows(ctx, cfg)
	if err != nil {
		log.Error("row store open failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeRows() }()

	// Sheets are created here too so the worker can start before the api.
	svc := school.NewService(rows, nil, school.Options{AdminSheet: cfg.AdminSheet})
	if err := svc.Bootstrap(ctx, "", ""); err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer func() { _ = redisClient.Close() }()

	q := queue.NewRedisQueue(redisClient.Client, cfg.QueueKey, log)
	if err := audit.NewRecorder(rows, log).Run(ctx, q); err != nil {
		log.Error("worker failed", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
