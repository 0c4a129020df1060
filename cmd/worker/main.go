// Package main is the entry point for the gestock background worker.
// It drains the transactional outbox and reports pool statistics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gestock/internal/config"
	"gestock/internal/infrastructure/storage/postgres"
	"gestock/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.App.Env == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting gestock worker", "env", cfg.App.Env)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN()))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	relay := postgres.NewOutboxRelay(pool, cfg.Worker.BatchSize, &logHandler{log: log.WithComponent("outbox")})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, cfg, pool, relay, log.WithComponent("worker"))
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, pool *postgres.Pool, relay *postgres.OutboxRelay, log *logger.Logger) {
	ticker := time.NewTicker(cfg.Worker.PollInterval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(cfg.Worker.StatsPeriod)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			processed, err := relay.ProcessBatch(ctx)
			if err != nil {
				log.Errorw("outbox batch failed", "error", err)
				continue
			}
			if processed > 0 {
				log.Debugw("processed outbox batch", "count", processed)
			}
		case <-statsTicker.C:
			pool.LogStats(ctx)
		}
	}
}

// logHandler delivers outbox messages to the structured log. Downstream
// consumers tail the event stream from there; a broker can replace this
// handler without touching the relay.
type logHandler struct {
	log *logger.Logger
}

func (h *logHandler) Handle(_ context.Context, msg *postgres.OutboxMessage) error {
	var payload map[string]any
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	h.log.Infow("event",
		"event_type", msg.EventType,
		"aggregate_type", msg.AggregateType,
		"aggregate_id", msg.AggregateID,
		"payload", payload,
	)
	return nil
}
