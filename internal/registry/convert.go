package registry

import "github.com/JMS-tesoy/EASync/internal/domain"

func rowFromSubscription(s *domain.Subscription) *SubscriptionRow {
	return &SubscriptionRow{
		ID:                    s.ID,
		SubscriberID:          s.SubscriberID,
		MasterID:              s.MasterID,
		State:                 string(s.State),
		LastAcceptedSequence:  s.LastAcceptedSequence,
		PolicyMaxPriceDevPips: s.Policy.MaxPriceDeviationPips,
		PolicyMaxTTLMillis:    s.Policy.MaxTTLMillis,
		PolicyMaxLot:          s.Policy.MaxLot,
		PolicySecretKeyRef:    s.Policy.SecretKeyRef,
		PolicyMaxDevices:      s.Policy.MaxDevices,
		HWM:                   s.HWM,
		Version:               s.Version,
	}
}

func subscriptionFromRow(r *SubscriptionRow) *domain.Subscription {
	return &domain.Subscription{
		ID:                   r.ID,
		SubscriberID:         r.SubscriberID,
		MasterID:             r.MasterID,
		State:                domain.SubscriptionState(r.State),
		LastAcceptedSequence: r.LastAcceptedSequence,
		Policy: domain.Policy{
			MaxPriceDeviationPips: r.PolicyMaxPriceDevPips,
			MaxTTLMillis:          r.PolicyMaxTTLMillis,
			MaxLot:                r.PolicyMaxLot,
			SecretKeyRef:          r.PolicySecretKeyRef,
			MaxDevices:            r.PolicyMaxDevices,
		},
		HWM:     r.HWM,
		Version: r.Version,
	}
}

func rowFromCredential(c *domain.LicenseCredential) *LicenseCredentialRow {
	return &LicenseCredentialRow{
		TokenHash:         c.TokenHash,
		SubscriptionID:    c.SubscriptionID,
		IsActive:          c.IsActive,
		ExpiresAt:         c.ExpiresAt,
		EAInstanceBinding: c.EAInstanceBinding,
	}
}

func credentialFromRow(r *LicenseCredentialRow) *domain.LicenseCredential {
	return &domain.LicenseCredential{
		TokenHash:         r.TokenHash,
		SubscriptionID:    r.SubscriptionID,
		IsActive:          r.IsActive,
		ExpiresAt:         r.ExpiresAt,
		EAInstanceBinding: r.EAInstanceBinding,
	}
}
