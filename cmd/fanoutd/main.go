// Command fanoutd runs the Fan-out Distributor: it holds the live push
// channel to every connected receiver and replays the Signal Log to
// each one in strict per-master order.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	redis "github.com/redis/go-redis/v9"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/fanout"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/registry"
	"github.com/JMS-tesoy/EASync/internal/signallog"
)

func main() {
	logger := obs.NewLogger("fanoutd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("fanoutd: load config: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("fanoutd: %v", err)
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

	cursors := fanout.NewCursorStore(pgClient.DB())
	if err := cursors.Migrate(); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	signalLog := signallog.NewRedisLog(redisClient, "easync:signals")

	distributor := fanout.NewDistributor(signalLog, cursors, store, cfg.SuppressNonSyncedDelivery)
	defer distributor.Close()

	consumer := fanout.NewNotificationConsumer(cfg.KafkaBrokers, cfg.KafkaGroupIDFanout, cfg.KafkaTopicSignals)
	defer consumer.Close()
	go func() {
		err := consumer.Consume(ctx, distributor.HandleSignal)
		if err != nil && ctx.Err() == nil {
			logger.Errorf("notification consumer stopped: %v", err)
		}
	}()

	srv := fanout.NewServer(cfg.FanoutAddr, distributor, store)
	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Infof("listening on %s", cfg.FanoutAddr)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.Close()
	}()

	return srv.Serve(ctx)
}
