// Command gatewayd runs the Ingest Gateway: the TCP front door masters
// connect to, admitting signed trade signals into the Signal Log.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/fanout"
	"github.com/JMS-tesoy/EASync/internal/gateway"
	"github.com/JMS-tesoy/EASync/internal/idgen"
	"github.com/JMS-tesoy/EASync/internal/license"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/registry"
	"github.com/JMS-tesoy/EASync/internal/signallog"
)

func main() {
	logger := obs.NewLogger("gatewayd")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("gatewayd: load config: %v", err)
	}

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("gatewayd: %v", err)
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

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	signalLog := signallog.NewRedisLog(redisClient, "easync:signals")

	secrets, err := loadSecretsFile(os.Getenv("GATEWAY_SECRETS_FILE"))
	if err != nil {
		return err
	}
	secretResolver := gateway.NewStaticSecretResolver(secrets)

	tracker := license.NewPostgresTracker(pgClient)
	detector := license.NewDetector(tracker, 0)

	pool := gateway.NewLogClientPool(signalLog, 256)
	limiters := gateway.NewRateLimiterFactory(cfg.RateLimitPerSecond)

	notifier := fanout.NewNotificationPublisher(cfg.KafkaBrokers, cfg.KafkaTopicSignals)
	defer notifier.Close()

	metrics := obs.NewMetrics()
	gw := gateway.New(store, store, detector, secretResolver, pool, limiters)
	gw.ClockSkewBudget = cfg.ClockSkewBudget
	gw.Notifier = notifier
	gw.Metrics = metrics
	gw.OnWarning = func(err error) {
		logger.Warnf("%s: %v", idgen.NewCorrelationID(), err)
	}

	srv := gateway.NewServer(cfg.GatewayAddr, gw)
	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Infof("listening on %s", cfg.GatewayAddr)

	go reportMetricsPeriodically(ctx, logger, metrics)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = srv.Close()
	}()

	return srv.Serve(ctx)
}

// loadSecretsFile reads a YAML map of secret ref to raw key string. An
// empty path is valid: the gateway simply starts with no secrets
// registered, which only matters once a subscription resolves to an
// unknown ref.
func loadSecretsFile(path string) (map[string][]byte, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gatewayd: read secrets file: %w", err)
	}
	var encoded map[string]string
	if err := yaml.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("gatewayd: parse secrets file: %w", err)
	}
	secrets := make(map[string][]byte, len(encoded))
	for ref, value := range encoded {
		secrets[ref] = []byte(value)
	}
	return secrets, nil
}

// reportMetricsPeriodically logs an admission/latency snapshot every
// interval, giving an operator watching logs a cheap substitute for a
// scrape endpoint.
func reportMetricsPeriodically(ctx context.Context, logger obs.Logger, metrics *obs.Metrics) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := metrics.Snapshot()
			logger.Infof("accepted=%d rejected=%d ingest_avg=%s", snap.AcceptedTotal, snap.RejectedTotal, snap.IngestLatency.Avg)
		}
	}
}
