// Command guardsim simulates the receiver-side host process: it dials
// the Fan-out Distributor's push channel for one subscription, runs
// every delivered signal through an ExecutionGuard, and logs the
// resulting admission decision in place of a real terminal integration.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/guard"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/protection"
	"github.com/JMS-tesoy/EASync/internal/quote"
	"github.com/JMS-tesoy/EASync/internal/wallet"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// simConfig describes the single subscription this simulated host
// process guards. Unlike cmd/gatewayd/cmd/fanoutd, guardsim runs
// colocated with one subscriber's terminal and is handed its policy
// and secret directly rather than resolving them from the registry
// over the network (spec §4.2: the guard trusts nothing outside its
// own process boundary).
type simConfig struct {
	SubscriptionID  string             `yaml:"subscription_id"`
	SubscriberID    string             `yaml:"subscriber_id"`
	MasterID        string             `yaml:"master_id"`
	SecretHex       string             `yaml:"secret_hex"`
	Policy          domain.Policy      `yaml:"policy"`
	FanoutAddr      string             `yaml:"fanout_addr"`
	SequenceDBPath  string             `yaml:"sequence_db_path"`
	WalletOracleURL string             `yaml:"wallet_oracle_url"`
	KafkaBrokers    []string           `yaml:"kafka_brokers"`
	ProtectionTopic string             `yaml:"protection_topic"`
	InitialQuotes   map[string]float64 `yaml:"initial_quotes"`
}

func loadSimConfig(path string) (simConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return simConfig{}, fmt.Errorf("guardsim: read config: %w", err)
	}
	var cfg simConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return simConfig{}, fmt.Errorf("guardsim: parse config: %w", err)
	}
	return cfg, nil
}

func main() {
	logger := obs.NewLogger("guardsim")

	configPath := "guardsim.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := loadSimConfig(configPath)
	if err != nil {
		log.Fatalf("guardsim: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		log.Fatalf("guardsim: %v", err)
	}
}

func run(ctx context.Context, cfg simConfig, logger obs.Logger) error {
	// WalletFailClosed is an ambient ops toggle shared with every other
	// service, not part of this subscription's local identity/policy, so
	// it comes from the same env-driven config the daemons read rather
	// than guardsim.yaml.
	ambient, err := config.Load()
	if err != nil {
		return fmt.Errorf("guardsim: load ambient config: %w", err)
	}

	sequences, err := guard.NewSequenceStore(cfg.SequenceDBPath)
	if err != nil {
		return err
	}
	defer sequences.Close()

	quotes := quote.NewMemorySource()
	for symbol, price := range cfg.InitialQuotes {
		quotes.Set(symbol, price, time.Now())
	}

	var oracle wallet.Oracle = wallet.NewHTTPOracle(cfg.WalletOracleURL, 3*time.Second)
	oracle = wallet.NewCachedOracle(oracle, 2*time.Second)

	publisher := protection.NewPublisher(cfg.KafkaBrokers, cfg.ProtectionTopic)
	defer publisher.Close()

	terminal := &loggingTerminal{logger: logger}

	g, err := guard.New(cfg.SubscriptionID, cfg.SubscriberID, cfg.MasterID, []byte(cfg.SecretHex), cfg.Policy, sequences, quotes, oracle, terminal, publisher, ambient.WalletFailClosed)
	if err != nil {
		return fmt.Errorf("guardsim: construct guard: %w", err)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := runSession(ctx, cfg, g, logger); err != nil {
			logger.Warnf("session ended: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(2 * time.Second):
		}
	}
}

// runSession holds one TCP connection to the distributor, replaying
// every pushed signal through the guard until the connection drops.
func runSession(ctx context.Context, cfg simConfig, g *guard.Guard, logger obs.Logger) error {
	conn, err := net.Dial("tcp", cfg.FanoutAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.FanoutAddr, err)
	}
	defer conn.Close()

	req := &wire.PushSyncRequest{SubscriptionID: cfg.SubscriptionID, HaveThrough: g.LastAccepted()}
	body, err := wire.EncodeSyncRequest(req)
	if err != nil {
		return fmt.Errorf("encode sync request: %w", err)
	}
	if err := wire.WriteFrame(conn, body); err != nil {
		return fmt.Errorf("write sync request: %w", err)
	}
	logger.Infof("connected, have_through=%d", g.LastAccepted())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("read push signal: %w", err)
		}
		push, err := wire.DecodePushSignal(frame)
		if err != nil {
			return fmt.Errorf("decode push signal: %w", err)
		}
		sig := wire.SignalFromPushSignal(push)

		var decision guard.Decision
		if g.State() == domain.StateDegradedGap {
			decision, err = g.AdmitFullSync(ctx, sig)
		} else {
			decision, err = g.Admit(ctx, sig)
		}
		if err != nil {
			return fmt.Errorf("admit sequence %d: %w", sig.SequenceNumber, err)
		}

		if !decision.Accepted {
			logger.Warnf("rejected sequence %d: %s", sig.SequenceNumber, decision.Reason)
		}

		var reverse []byte
		if decision.FullSyncHaveThrough != nil {
			reverse, err = wire.EncodeReverseSyncRequest(&wire.PushSyncRequest{
				SubscriptionID: cfg.SubscriptionID,
				HaveThrough:    *decision.FullSyncHaveThrough,
			})
		} else {
			// The ack reports that the push was processed, not that the
			// order was accepted: a guard rejection still delivered the
			// signal, so it still advances the distributor's cursor.
			reverse, err = wire.EncodeReverseAck(&wire.PushAck{LastAcceptedSequence: sig.SequenceNumber})
		}
		if err != nil {
			return fmt.Errorf("encode reverse frame: %w", err)
		}
		if err := wire.WriteFrame(conn, reverse); err != nil {
			return fmt.Errorf("write reverse frame: %w", err)
		}
	}
}

// loggingTerminal simulates order placement: it always succeeds, which
// is enough to exercise the guard's commit protocol without a real
// terminal integration (explicitly out of scope).
type loggingTerminal struct {
	logger obs.Logger
}

func (t *loggingTerminal) PlaceOrder(ctx context.Context, sig *domain.Signal) error {
	t.logger.Infof("placed order: %s %s vol=%.2f price=%.5f seq=%d", sig.Symbol, sig.Side, sig.Volume, sig.Price, sig.SequenceNumber)
	return nil
}
