package gateway

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/license"
	"github.com/JMS-tesoy/EASync/internal/signing"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

type fakeLookup struct {
	credentials map[string]*domain.LicenseCredential
	subs        map[string]*domain.Subscription
}

func (f *fakeLookup) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, ok := f.subs[id]
	if !ok {
		return nil, fmt.Errorf("no such subscription %s", id)
	}
	cp := *sub
	return &cp, nil
}

func (f *fakeLookup) GetCredential(ctx context.Context, tokenHash string) (*domain.LicenseCredential, error) {
	cred, ok := f.credentials[tokenHash]
	if !ok {
		return nil, fmt.Errorf("no such credential")
	}
	return cred, nil
}

type fakeHWM struct {
	values map[string]int64
}

func (f *fakeHWM) AdvanceHWM(ctx context.Context, subscriptionID string, seq int64) error {
	if f.values == nil {
		f.values = make(map[string]int64)
	}
	f.values[subscriptionID] = seq
	return nil
}

type allowAllDevices struct{}

func (allowAllDevices) Check(ctx context.Context, tokenHash string, fp license.DeviceFingerprint, now time.Time) error {
	return nil
}

type fakeAppender struct {
	appended []*domain.Signal
	fail     bool
}

func (f *fakeAppender) Append(ctx context.Context, s *domain.Signal) (string, error) {
	if f.fail {
		return "", fmt.Errorf("log down")
	}
	f.appended = append(f.appended, s)
	return fmt.Sprintf("%d", len(f.appended)), nil
}

func testGateway(t *testing.T) (*Gateway, *fakeLookup, *fakeAppender, []byte) {
	t.Helper()
	secret := []byte("shared-secret")
	sub := &domain.Subscription{
		ID:       "sub-1",
		MasterID: "master-1",
		State:    domain.StateSynced,
		Policy:   domain.Policy{SecretKeyRef: "ref-1"},
		HWM:      10,
		Version:  1,
	}
	tokenHash := license.HashToken("raw-token")
	lookup := &fakeLookup{
		credentials: map[string]*domain.LicenseCredential{
			tokenHash: {TokenHash: tokenHash, SubscriptionID: "sub-1", IsActive: true},
		},
		subs: map[string]*domain.Subscription{"sub-1": sub},
	}
	appender := &fakeAppender{}
	gw := New(lookup, &fakeHWM{}, allowAllDevices{}, NewStaticSecretResolver(map[string][]byte{"ref-1": secret}), appender, NewRateLimiterFactory(1000))
	return gw, lookup, appender, secret
}

func signedPacket(secret []byte, seq int64, generatedAt int64) *wire.SignalPacket {
	pkt := &wire.SignalPacket{
		SubscriptionID:    "sub-1",
		SequenceNumber:    seq,
		GeneratedAtMillis: generatedAt,
		Symbol:            "EURUSD",
		Side:              int32(domain.SideBuy),
		Volume:            1,
		Price:             1.1,
		StopLoss:          1.09,
		TakeProfit:        1.12,
	}
	sig := &domain.Signal{
		SubscriptionID:    pkt.SubscriptionID,
		SequenceNumber:    pkt.SequenceNumber,
		GeneratedAtMillis: pkt.GeneratedAtMillis,
		Symbol:            pkt.Symbol,
		Side:              domain.Side(pkt.Side),
		Volume:            pkt.Volume,
		Price:             pkt.Price,
		StopLoss:          pkt.StopLoss,
		TakeProfit:        pkt.TakeProfit,
	}
	mac, err := signing.Sign(secret, wire.CanonicalPayload(sig))
	if err != nil {
		panic(err)
	}
	pkt.Signature = mac
	return pkt
}

func TestHandshakeAcceptsKnownToken(t *testing.T) {
	gw, _, _, _ := testGateway(t)
	cs, reason, err := gw.Handshake(context.Background(), wire.Handshake{Token: "raw-token", EAInstanceID: "ea-1", MT5Account: 1}, "1.2.3.4")
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if cs == nil {
		t.Fatalf("expected accepted handshake, got reason %s", reason)
	}
	if cs.last != 10 {
		t.Errorf("last = %d, want 10 (seeded from subscription HWM)", cs.last)
	}
}

func TestHandshakeRejectsUnknownToken(t *testing.T) {
	gw, _, _, _ := testGateway(t)
	cs, reason, err := gw.Handshake(context.Background(), wire.Handshake{Token: "bogus"}, "1.2.3.4")
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if cs != nil {
		t.Fatal("expected nil connState for unknown token")
	}
	if reason != domain.ReasonInvalidCredential {
		t.Errorf("reason = %s, want %s", reason, domain.ReasonInvalidCredential)
	}
}

func TestAdmitAcceptsValidPacket(t *testing.T) {
	gw, _, appender, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	pkt := signedPacket(secret, 11, now.UnixMilli())
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if !ack.Accepted {
		t.Fatalf("expected accepted ack, got reason %s", ack.Reason)
	}
	if cs.last != 11 {
		t.Errorf("last = %d, want 11", cs.last)
	}
	if len(appender.appended) != 1 {
		t.Errorf("appended %d signals, want 1", len(appender.appended))
	}
}

func TestAdmitRejectsReplay(t *testing.T) {
	gw, _, _, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	pkt := signedPacket(secret, 10, now.UnixMilli())
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ack.Accepted || ack.Reason != string(domain.ReasonReplayOrDuplicate) {
		t.Errorf("ack = %+v, want REPLAY_OR_DUPLICATE rejection", ack)
	}
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	gw, _, _, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	pkt := signedPacket(secret, 11, now.UnixMilli())
	pkt.Signature = "not-the-right-mac"
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ack.Accepted || ack.Reason != string(domain.ReasonInvalidSignature) {
		t.Errorf("ack = %+v, want INVALID_SIGNATURE rejection", ack)
	}
}

func TestAdmitRejectsClockSkew(t *testing.T) {
	gw, _, _, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	stale := now.Add(-2 * time.Minute).UnixMilli()
	pkt := signedPacket(secret, 11, stale)
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ack.Accepted || ack.Reason != string(domain.ReasonClockSkew) {
		t.Errorf("ack = %+v, want CLOCK_SKEW rejection", ack)
	}
}

func TestAdmitRejectsLogUnavailable(t *testing.T) {
	gw, _, appender, secret := testGateway(t)
	appender.fail = true
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	pkt := signedPacket(secret, 11, now.UnixMilli())
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ack.Accepted || ack.Reason != string(domain.ReasonLogUnavailable) {
		t.Errorf("ack = %+v, want LOG_UNAVAILABLE rejection", ack)
	}
	if cs.last != 10 {
		t.Errorf("last advanced on a failed append: got %d, want 10", cs.last)
	}
}

func TestAdmitRejectsMismatchedSubscriptionID(t *testing.T) {
	gw, _, _, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }
	cs := &connState{subscriptionID: "sub-1", masterID: "master-1", secret: secret, last: 10}

	pkt := signedPacket(secret, 11, now.UnixMilli())
	pkt.SubscriptionID = "sub-2"
	ack, err := gw.Admit(context.Background(), cs, pkt)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if ack.Accepted || ack.Reason != string(domain.ReasonInvalidCredential) {
		t.Errorf("ack = %+v, want INVALID_CREDENTIAL rejection", ack)
	}
}
