// Package license resolves license tokens to subscriptions and guards
// against license sharing across more devices than a policy allows,
// adapted from a Python multi-device detector into a single
// synchronous check the Ingest Gateway can call per connection.
package license

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/zeebo/blake3"
)

// HashToken derives the stored lookup key for a raw license token.
// Tokens are never stored or logged in the clear; only their hash is.
func HashToken(rawToken string) string {
	sum := blake3.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// DeviceFingerprint identifies the physical/virtual endpoint using a
// license token, following the original detector's composition of
// connection IP, EA instance ID, and trading account number.
type DeviceFingerprint struct {
	IPAddress    string
	EAInstanceID string
	MT5Account   int64
}

func (f DeviceFingerprint) key() string {
	return fmt.Sprintf("%s|%s|%d", f.IPAddress, f.EAInstanceID, f.MT5Account)
}

// ErrTooManyDevices is returned when a new, previously unseen device
// would push a license over its allowed device count.
var ErrTooManyDevices = fmt.Errorf("license: device limit exceeded")

// DeviceTracker records which fingerprints have used a license token
// and decides whether a new one is admissible.
type DeviceTracker interface {
	// KnownFingerprints returns every fingerprint seen for tokenHash.
	KnownFingerprints(ctx context.Context, tokenHash string) ([]SeenFingerprint, error)
	// RecordFingerprint upserts a fingerprint's last-seen time,
	// inserting it as new if this is its first appearance.
	RecordFingerprint(ctx context.Context, tokenHash string, fp DeviceFingerprint, seenAt time.Time) error
}

// SeenFingerprint pairs a DeviceFingerprint with the window the
// tracker has observed it in.
type SeenFingerprint struct {
	Fingerprint DeviceFingerprint
	FirstSeen   time.Time
	LastSeen    time.Time
}

// Detector enforces a maximum number of distinct devices per license
// token, mirroring the original's default of two (primary + backup).
type Detector struct {
	tracker    DeviceTracker
	maxDevices int
}

func NewDetector(tracker DeviceTracker, maxDevices int) *Detector {
	if maxDevices <= 0 {
		maxDevices = 2
	}
	return &Detector{tracker: tracker, maxDevices: maxDevices}
}

// Check records fp's usage of tokenHash and reports whether it is
// allowed under the device limit. A known fingerprint is always
// allowed; a new fingerprint is allowed only while under the limit.
func (d *Detector) Check(ctx context.Context, tokenHash string, fp DeviceFingerprint, now time.Time) error {
	known, err := d.tracker.KnownFingerprints(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("license: load fingerprints: %w", err)
	}

	for _, k := range known {
		if k.Fingerprint.key() == fp.key() {
			return d.tracker.RecordFingerprint(ctx, tokenHash, fp, now)
		}
	}

	if len(known) >= d.maxDevices {
		return ErrTooManyDevices
	}
	return d.tracker.RecordFingerprint(ctx, tokenHash, fp, now)
}
