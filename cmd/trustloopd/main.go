// Command trustloopd runs the Trust Score / Auto-Pause Loop: a periodic
// job that scores every subscriber's recent rejection history and
// pauses or resumes their subscriptions accordingly.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/protection"
	"github.com/JMS-tesoy/EASync/internal/registry"
	"github.com/JMS-tesoy/EASync/internal/trust"
)

func main() {
	logger := obs.NewLogger("trustloopd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("trustloopd: load config: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("trustloopd: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config, logger obs.Logger) error {
	pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
	if err != nil {
		return err
	}
	defer pgClient.Close()
	if err := pgClient.Migrate(); err != nil {
		return err
	}
	store := registry.NewStore(pgClient)

	protectionStore := protection.NewStore(pgClient.DB())
	if err := protectionStore.Migrate(); err != nil {
		return err
	}

	scores := trust.NewPostgresScoreStore(pgClient.DB())
	if err := scores.Migrate(); err != nil {
		return err
	}

	events := trust.NewProtectionEventSource(pgClient.DB(), protectionStore)
	pauser := trust.NewRegistryPauser(pgClient, store)
	loop := trust.NewLoop(events, scores, pauser, cfg.TrustRollingWindow)

	ticker := time.NewTicker(cfg.TrustLoopInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			runPass(ctx, store, loop, logger)
		}
	}
}

// runPass scores every distinct subscriber currently in the registry.
// A failure for one subscriber is logged and skipped rather than
// aborting the rest of the pass.
func runPass(ctx context.Context, store *registry.Store, loop *trust.Loop, logger obs.Logger) {
	subs, err := store.ListAll(ctx)
	if err != nil {
		logger.Errorf("list subscriptions: %v", err)
		return
	}

	seen := make(map[string]bool)
	now := time.Now()
	for _, sub := range subs {
		if seen[sub.SubscriberID] {
			continue
		}
		seen[sub.SubscriberID] = true

		result, err := loop.RunOnce(ctx, sub.SubscriberID, now)
		if err != nil {
			logger.Errorf("score subscriber %s: %v", sub.SubscriberID, err)
			continue
		}
		if result.ShouldPause || result.Delta != 0 {
			logger.Infof("subscriber %s score=%d delta=%d %s", sub.SubscriberID, result.NewScore, result.Delta, result.Recommendation)
		}
	}
}
