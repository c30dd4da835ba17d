package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

func TestSubscriptionRowRoundTrip(t *testing.T) {
	sub := &domain.Subscription{
		ID:                   "sub-1",
		SubscriberID:         "subscriber-1",
		MasterID:             "master-1",
		State:                domain.StateDegradedGap,
		LastAcceptedSequence: 42,
		Policy: domain.Policy{
			MaxPriceDeviationPips: 5,
			MaxTTLMillis:          1500,
			MaxLot:                10,
			SecretKeyRef:          "key-ref-1",
			MaxDevices:            2,
		},
		HWM:     42,
		Version: 3,
	}

	row := rowFromSubscription(sub)
	back := subscriptionFromRow(row)

	if diff := cmp.Diff(sub, back); diff != "" {
		t.Errorf("subscription round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLicenseCredentialRowRoundTrip(t *testing.T) {
	c := &domain.LicenseCredential{
		TokenHash:         "hash-1",
		SubscriptionID:    "sub-1",
		IsActive:          true,
		EAInstanceBinding: "ea-instance-1",
	}
	row := rowFromCredential(c)
	back := credentialFromRow(row)
	if diff := cmp.Diff(c, back); diff != "" {
		t.Errorf("credential round trip mismatch (-want +got):\n%s", diff)
	}
}
