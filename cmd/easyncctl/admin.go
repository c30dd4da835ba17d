package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/idgen"
	"github.com/JMS-tesoy/EASync/internal/registry"
)

var createSubscriptionFlags struct {
	subscriberID          string
	masterID              string
	maxPriceDeviationPips float64
	maxTTLMillis          int64
	maxLot                float64
	secretKeyRef          string
	maxDevices            int
}

var adminCreateSubscriptionCmd = &cobra.Command{
	Use:   "create-subscription",
	Short: "Onboard a new subscription with a fresh time-sortable ID",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
		if err != nil {
			return err
		}
		defer pgClient.Close()
		store := registry.NewStore(pgClient)

		sub := &domain.Subscription{
			ID:           idgen.NewRecordID(),
			SubscriberID: createSubscriptionFlags.subscriberID,
			MasterID:     createSubscriptionFlags.masterID,
			State:        domain.StateSynced,
			Policy: domain.Policy{
				MaxPriceDeviationPips: createSubscriptionFlags.maxPriceDeviationPips,
				MaxTTLMillis:          createSubscriptionFlags.maxTTLMillis,
				MaxLot:                createSubscriptionFlags.maxLot,
				SecretKeyRef:          createSubscriptionFlags.secretKeyRef,
				MaxDevices:            createSubscriptionFlags.maxDevices,
			},
		}
		if err := store.Create(context.Background(), sub); err != nil {
			return fmt.Errorf("create subscription for %s -> %s: %w", sub.SubscriberID, sub.MasterID, err)
		}

		fmt.Printf("created %s (%s -> %s)\n", sub.ID, sub.SubscriberID, sub.MasterID)
		return nil
	},
}

func init() {
	flags := adminCreateSubscriptionCmd.Flags()
	flags.StringVar(&createSubscriptionFlags.subscriberID, "subscriber-id", "", "subscriber onboarding this subscription")
	flags.StringVar(&createSubscriptionFlags.masterID, "master-id", "", "master stream to subscribe to")
	flags.Float64Var(&createSubscriptionFlags.maxPriceDeviationPips, "max-price-deviation-pips", 5, "price guard tolerance in pips")
	flags.Int64Var(&createSubscriptionFlags.maxTTLMillis, "max-ttl-millis", 30_000, "TTL guard tolerance in milliseconds")
	flags.Float64Var(&createSubscriptionFlags.maxLot, "max-lot", 1, "maximum lot size per signal")
	flags.StringVar(&createSubscriptionFlags.secretKeyRef, "secret-key-ref", "", "reference to the shared signing secret")
	flags.IntVar(&createSubscriptionFlags.maxDevices, "max-devices", 0, "device fingerprint cap (0 = registry default)")
	adminCreateSubscriptionCmd.MarkFlagRequired("subscriber-id")
	adminCreateSubscriptionCmd.MarkFlagRequired("master-id")
	adminCmd.AddCommand(adminCreateSubscriptionCmd)
}

var adminSuspendCmd = &cobra.Command{
	Use:   "suspend <subscription-id>",
	Short: "Transition a subscription into SUSPENDED_ADMIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyAdminEvent(args[0], domain.EventAdminSuspend)
	},
}

var adminResumeCmd = &cobra.Command{
	Use:   "resume <subscription-id>",
	Short: "Resume a subscription out of SUSPENDED_ADMIN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return applyAdminEvent(args[0], domain.EventAdminResume)
	},
}

func applyAdminEvent(subscriptionID string, event domain.Event) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
	if err != nil {
		return err
	}
	defer pgClient.Close()
	store := registry.NewStore(pgClient)

	sub, err := store.ApplyEvent(context.Background(), subscriptionID, event)
	if err != nil {
		return fmt.Errorf("apply %s to %s: %w", event, subscriptionID, err)
	}

	fmt.Printf("%s is now %s\n", sub.ID, sub.State)
	return nil
}
