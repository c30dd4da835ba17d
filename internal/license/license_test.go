package license

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHashTokenDeterministic(t *testing.T) {
	a := HashToken("raw-token-123")
	b := HashToken("raw-token-123")
	require.Equal(t, a, b)
	require.NotEqual(t, a, HashToken("raw-token-456"))
}

func TestDetectorAllowsUpToMaxDevices(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryTracker()
	d := NewDetector(tracker, 2)

	now := time.Now()
	require.NoError(t, d.Check(ctx, "hash-1", DeviceFingerprint{IPAddress: "1.1.1.1", EAInstanceID: "ea-a", MT5Account: 111}, now))
	require.NoError(t, d.Check(ctx, "hash-1", DeviceFingerprint{IPAddress: "2.2.2.2", EAInstanceID: "ea-b", MT5Account: 222}, now))
}

func TestDetectorAllowsKnownDeviceRepeatedly(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryTracker()
	d := NewDetector(tracker, 1)

	now := time.Now()
	fp := DeviceFingerprint{IPAddress: "1.1.1.1", EAInstanceID: "ea-a", MT5Account: 111}
	require.NoError(t, d.Check(ctx, "hash-1", fp, now))
	require.NoError(t, d.Check(ctx, "hash-1", fp, now.Add(time.Minute)))
}

func TestDetectorRejectsBeyondMaxDevices(t *testing.T) {
	ctx := context.Background()
	tracker := NewMemoryTracker()
	d := NewDetector(tracker, 2)

	now := time.Now()
	require.NoError(t, d.Check(ctx, "hash-1", DeviceFingerprint{IPAddress: "1.1.1.1", EAInstanceID: "ea-a", MT5Account: 111}, now))
	require.NoError(t, d.Check(ctx, "hash-1", DeviceFingerprint{IPAddress: "2.2.2.2", EAInstanceID: "ea-b", MT5Account: 222}, now))

	err := d.Check(ctx, "hash-1", DeviceFingerprint{IPAddress: "3.3.3.3", EAInstanceID: "ea-c", MT5Account: 333}, now)
	require.ErrorIs(t, err, ErrTooManyDevices)
}
