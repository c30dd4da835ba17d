// Package signing implements the keyed MAC used to authenticate every
// Signal, from the producer through the ingest gateway to the receiver's
// ExecutionGuard. All three parties must compute the exact same digest
// over wire.CanonicalPayload or the wire compatibility contract is
// broken (spec §6/§9).
package signing

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Sign computes the keyed MAC over payload using secret as the key.
// blake2b's native keying (rather than an HMAC wrapper around an
// unkeyed hash) is used here, matching how the example pack reaches for
// golang.org/x/crypto's keyed primitives directly instead of hand-rolling
// HMAC.
func Sign(secret []byte, payload []byte) (string, error) {
	h, err := blake2b.New256(secret)
	if err != nil {
		return "", fmt.Errorf("signing: init keyed hash: %w", err)
	}
	if _, err := h.Write(payload); err != nil {
		return "", fmt.Errorf("signing: hash payload: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify recomputes the MAC and compares it against signatureHex in
// constant time. It never short-circuits on length or content, as
// required for signature comparisons on a hostile-input path.
func Verify(secret []byte, payload []byte, signatureHex string) (bool, error) {
	want, err := Sign(secret, payload)
	if err != nil {
		return false, err
	}
	wantBytes, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("signing: decode computed signature: %w", err)
	}
	gotBytes, err := hex.DecodeString(signatureHex)
	if err != nil {
		// A malformed signature is not a program error; it is simply an
		// invalid signature from the caller's point of view.
		return false, nil
	}
	if len(wantBytes) != len(gotBytes) {
		return false, nil
	}
	return subtle.ConstantTimeCompare(wantBytes, gotBytes) == 1, nil
}
