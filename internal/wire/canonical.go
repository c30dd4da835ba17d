// Package wire implements the three wire encodings this system depends
// on: the canonical MAC payload (a fixed compatibility contract between
// producer, ingest gateway, and receiver), the length-prefixed framing
// used on producer ingress, and the two binary envelopes used internally
// (a CBOR envelope for the receiver push channel, a protobuf-wire
// envelope for Signal Log entries).
package wire

import (
	"fmt"
	"strings"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// CanonicalPayload builds the exact byte sequence that both the producer
// and every downstream verifier (ingest gateway, receiver ExecutionGuard)
// must MAC identically. Field order, units, and numeric formatting are a
// compatibility contract fixed once, here, per spec §6/§9:
//
//	subscription_id | sequence_number | generated_at_ms | symbol | side |
//	volume(%.5f) | price(%.5f) | stop_loss(%.5f) | take_profit(%.5f)
//
// generated_at is carried in UTC milliseconds (resolving the spec's open
// question about seconds vs. milliseconds): this matches the Rust
// reference ingest server, which stamps server_arrival_time in millis,
// and keeps one unit across the whole pipeline.
func CanonicalPayload(s *domain.Signal) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%d|%d|%s|%d|%.5f|%.5f|%.5f|%.5f",
		s.SubscriptionID,
		s.SequenceNumber,
		s.GeneratedAtMillis,
		s.Symbol,
		int32(s.Side),
		s.Volume,
		s.Price,
		s.StopLoss,
		s.TakeProfit,
	)
	return []byte(b.String())
}
