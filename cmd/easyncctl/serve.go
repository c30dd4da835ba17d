package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/fanout"
	"github.com/JMS-tesoy/EASync/internal/gateway"
	"github.com/JMS-tesoy/EASync/internal/idgen"
	"github.com/JMS-tesoy/EASync/internal/license"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/protection"
	"github.com/JMS-tesoy/EASync/internal/registry"
	"github.com/JMS-tesoy/EASync/internal/signallog"
	"github.com/JMS-tesoy/EASync/internal/trust"
)

func withSignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

var serveGatewayCmd = &cobra.Command{
	Use:   "serve-gateway",
	Short: "Run the Ingest Gateway in this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := obs.NewLogger("easyncctl/gateway")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := withSignalContext()
		defer cancel()
		return serveGateway(ctx, cfg, logger)
	},
}

var serveFanoutCmd = &cobra.Command{
	Use:   "serve-fanout",
	Short: "Run the Fan-out Distributor in this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := obs.NewLogger("easyncctl/fanout")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := withSignalContext()
		defer cancel()
		return serveFanout(ctx, cfg, logger)
	},
}

var serveTrustLoopCmd = &cobra.Command{
	Use:   "serve-trustloop",
	Short: "Run the Trust Score / Auto-Pause Loop in this process",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := obs.NewLogger("easyncctl/trustloop")
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		ctx, cancel := withSignalContext()
		defer cancel()
		return serveTrustLoop(ctx, cfg, logger)
	},
}

func serveGateway(ctx context.Context, cfg config.Config, logger obs.Logger) error {
	pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
	if err != nil {
		return err
	}
	defer pgClient.Close()
	if err := pgClient.Migrate(); err != nil {
		return err
	}
	store := registry.NewStore(pgClient)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
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

	gw := gateway.New(store, store, detector, secretResolver, pool, limiters)
	gw.ClockSkewBudget = cfg.ClockSkewBudget
	gw.Notifier = notifier
	gw.Metrics = obs.NewMetrics()
	gw.OnWarning = func(err error) { logger.Warnf("%s: %v", idgen.NewCorrelationID(), err) }

	srv := gateway.NewServer(cfg.GatewayAddr, gw)
	if err := srv.Listen(); err != nil {
		return err
	}
	logger.Infof("listening on %s", cfg.GatewayAddr)

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	return srv.Serve(ctx)
}

func serveFanout(ctx context.Context, cfg config.Config, logger obs.Logger) error {
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

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer redisClient.Close()
	signalLog := signallog.NewRedisLog(redisClient, "easync:signals")

	distributor := fanout.NewDistributor(signalLog, cursors, store, cfg.SuppressNonSyncedDelivery)
	defer distributor.Close()

	consumer := fanout.NewNotificationConsumer(cfg.KafkaBrokers, cfg.KafkaGroupIDFanout, cfg.KafkaTopicSignals)
	defer consumer.Close()
	go func() {
		if err := consumer.Consume(ctx, distributor.HandleSignal); err != nil && ctx.Err() == nil {
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
		_ = srv.Close()
	}()
	return srv.Serve(ctx)
}

func serveTrustLoop(ctx context.Context, cfg config.Config, logger obs.Logger) error {
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
			subs, err := store.ListAll(ctx)
			if err != nil {
				logger.Errorf("list subscriptions: %v", err)
				continue
			}
			seen := make(map[string]bool)
			now := time.Now()
			for _, sub := range subs {
				if seen[sub.SubscriberID] {
					continue
				}
				seen[sub.SubscriberID] = true
				if result, err := loop.RunOnce(ctx, sub.SubscriberID, now); err != nil {
					logger.Errorf("score subscriber %s: %v", sub.SubscriberID, err)
				} else if result.ShouldPause || result.Delta != 0 {
					logger.Infof("subscriber %s score=%d delta=%d", sub.SubscriberID, result.NewScore, result.Delta)
				}
			}
		}
	}
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
		return nil, err
	}
	var encoded map[string]string
	if err := yaml.Unmarshal(raw, &encoded); err != nil {
		return nil, err
	}
	secrets := make(map[string][]byte, len(encoded))
	for ref, value := range encoded {
		secrets[ref] = []byte(value)
	}
	return secrets, nil
}
