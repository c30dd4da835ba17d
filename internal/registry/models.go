package registry

import "time"

// SubscriptionRow is the persisted form of domain.Subscription.
// Version is the optimistic-locking column: every update must match
// the Version it read, and every successful update increments it.
type SubscriptionRow struct {
	ID                    string `gorm:"primaryKey"`
	SubscriberID          string `gorm:"index"`
	MasterID              string `gorm:"index"`
	State                 string
	LastAcceptedSequence  int64
	PolicyMaxPriceDevPips float64
	PolicyMaxTTLMillis    int64
	PolicyMaxLot          float64
	PolicySecretKeyRef    string
	PolicyMaxDevices      int
	HWM                   int64
	Version               int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (SubscriptionRow) TableName() string { return "subscriptions" }

// LicenseCredentialRow is the persisted form of domain.LicenseCredential.
type LicenseCredentialRow struct {
	TokenHash         string `gorm:"primaryKey"`
	SubscriptionID    string `gorm:"index"`
	IsActive          bool
	ExpiresAt         time.Time
	EAInstanceBinding string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (LicenseCredentialRow) TableName() string { return "license_credentials" }

// DeviceFingerprintRow records a single observed device fingerprint for
// a license token, used by the multi-device detector.
type DeviceFingerprintRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	TokenHash   string `gorm:"index"`
	Fingerprint string `gorm:"index"`
	FirstSeen   time.Time
	LastSeen    time.Time
}

func (DeviceFingerprintRow) TableName() string { return "license_device_fingerprints" }
