// Command protectionsinkd runs the Protection Event Sink's durable
// half: it consumes the best-effort events receivers publish over
// Kafka and persists them to Postgres, where the Trust Loop and the
// operator dashboard both read them from. It also drives retention,
// archiving and deleting events older than the configured window.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/protection"
	"github.com/JMS-tesoy/EASync/internal/registry"
)

func main() {
	logger := obs.NewLogger("protectionsinkd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("protectionsinkd: load config: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("protectionsinkd: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger obs.Logger) error {
	pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	store := protection.NewStore(pgClient.DB())
	if err := store.Migrate(); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.RetentionArchiveDir, 0o755); err != nil {
		return fmt.Errorf("protectionsinkd: create archive dir: %w", err)
	}
	retention := protection.NewRetention(store, cfg.RetentionMaxAge, cfg.RetentionBatch)
	go runRetention(ctx, retention, cfg.RetentionArchiveDir, cfg.RetentionInterval, logger)

	consumer := protection.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroupIDProtection, cfg.KafkaTopicProtection)
	defer consumer.Close()

	logger.Infof("consuming %s as group %s", cfg.KafkaTopicProtection, cfg.KafkaGroupIDProtection)
	err = consumer.Consume(ctx, store.Insert)
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

// runRetention archives and deletes aged-out events on a ticker. Each
// tick drains the backlog in batches, one archive file per batch, until
// a batch finds nothing left to archive.
func runRetention(ctx context.Context, retention *protection.Retention, archiveDir string, interval time.Duration, logger obs.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := drainRetention(ctx, retention, archiveDir, now, logger); err != nil {
				logger.Warnf("retention: %v", err)
			}
		}
	}
}

func drainRetention(ctx context.Context, retention *protection.Retention, archiveDir string, now time.Time, logger obs.Logger) error {
	for batch := 0; ; batch++ {
		path := filepath.Join(archiveDir, fmt.Sprintf("protection-events-%d-%d.jsonl.zst", now.UnixNano(), batch))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create archive file: %w", err)
		}

		n, err := retention.Run(ctx, now, f)
		closeErr := f.Close()
		if err != nil {
			_ = os.Remove(path)
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		if n == 0 {
			_ = os.Remove(path)
			return nil
		}
		logger.Infof("archived %d protection events to %s", n, path)
	}
}
