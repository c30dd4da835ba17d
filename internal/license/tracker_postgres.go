package license

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/JMS-tesoy/EASync/internal/registry"
)

// PostgresTracker persists device fingerprints alongside the
// Subscription Registry's other tables.
type PostgresTracker struct {
	db *gorm.DB
}

func NewPostgresTracker(c *registry.PostgresClient) *PostgresTracker {
	return &PostgresTracker{db: c.DB()}
}

func (t *PostgresTracker) KnownFingerprints(ctx context.Context, tokenHash string) ([]SeenFingerprint, error) {
	var rows []registry.DeviceFingerprintRow
	if err := t.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("license: query fingerprints: %w", err)
	}

	out := make([]SeenFingerprint, 0, len(rows))
	for _, r := range rows {
		fp, err := parseFingerprintKey(r.Fingerprint)
		if err != nil {
			continue
		}
		out = append(out, SeenFingerprint{Fingerprint: fp, FirstSeen: r.FirstSeen, LastSeen: r.LastSeen})
	}
	return out, nil
}

func (t *PostgresTracker) RecordFingerprint(ctx context.Context, tokenHash string, fp DeviceFingerprint, seenAt time.Time) error {
	row := registry.DeviceFingerprintRow{
		TokenHash:   tokenHash,
		Fingerprint: fp.key(),
		FirstSeen:   seenAt,
		LastSeen:    seenAt,
	}

	result := t.db.WithContext(ctx).
		Model(&registry.DeviceFingerprintRow{}).
		Where("token_hash = ? AND fingerprint = ?", tokenHash, fp.key()).
		Update("last_seen", seenAt)
	if result.Error != nil {
		return fmt.Errorf("license: update fingerprint: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("license: insert fingerprint: %w", err)
	}
	return nil
}

func parseFingerprintKey(key string) (DeviceFingerprint, error) {
	parts := strings.SplitN(key, "|", 3)
	if len(parts) != 3 {
		return DeviceFingerprint{}, fmt.Errorf("license: malformed fingerprint key %q", key)
	}
	mt5, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return DeviceFingerprint{}, fmt.Errorf("license: malformed fingerprint key %q: %w", key, err)
	}
	return DeviceFingerprint{IPAddress: parts[0], EAInstanceID: parts[1], MT5Account: mt5}, nil
}
