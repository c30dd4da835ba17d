package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxFrameSize bounds a single producer-ingress frame. Anything larger is
// a protocol violation, not a slow client: close the connection.
const MaxFrameSize = 64 * 1024

// ErrFrameTooLarge signals a length-prefixed frame that exceeds
// MaxFrameSize. The caller must close the connection (spec §4.1: decode
// errors are connection-level protocol violations; never resync mid-stream).
var ErrFrameTooLarge = errors.New("wire: frame exceeds max size")

// ReadFrame reads one big-endian uint32 length prefix followed by that
// many bytes, the framing producers use on ingest. It never attempts to
// resynchronize on a bad length; the caller closes the connection.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	if n > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("wire: read frame body: %w", err)
	}
	return buf, nil
}

// WriteFrame writes a length-prefixed frame in the same format ReadFrame
// expects, used for acks flowing back to the producer.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// SignalPacket is the decoded form of one producer-ingress frame, before
// credential resolution. Field order matches the canonical MAC contract.
type SignalPacket struct {
	SubscriptionID    string
	SequenceNumber    int64
	GeneratedAtMillis int64
	Symbol            string
	Side              int32
	Volume            float64
	Price             float64
	StopLoss          float64
	TakeProfit        float64
	Signature         string
}

// DecodeSignalPacket parses a frame body into a SignalPacket. A decode
// error here is a connection-level protocol violation (spec §4.1).
func DecodeSignalPacket(body []byte) (*SignalPacket, error) {
	r := &byteReader{buf: body}

	subID, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("wire: decode subscription_id: %w", err)
	}
	seq, err := r.readInt64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode sequence_number: %w", err)
	}
	genAt, err := r.readInt64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode generated_at_ms: %w", err)
	}
	symbol, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("wire: decode symbol: %w", err)
	}
	side, err := r.readInt32()
	if err != nil {
		return nil, fmt.Errorf("wire: decode side: %w", err)
	}
	volume, err := r.readFloat64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode volume: %w", err)
	}
	price, err := r.readFloat64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode price: %w", err)
	}
	sl, err := r.readFloat64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode stop_loss: %w", err)
	}
	tp, err := r.readFloat64()
	if err != nil {
		return nil, fmt.Errorf("wire: decode take_profit: %w", err)
	}
	sig, err := r.readString()
	if err != nil {
		return nil, fmt.Errorf("wire: decode signature: %w", err)
	}
	if !r.exhausted() {
		return nil, errors.New("wire: trailing bytes after signal packet")
	}

	return &SignalPacket{
		SubscriptionID:    subID,
		SequenceNumber:    seq,
		GeneratedAtMillis: genAt,
		Symbol:            symbol,
		Side:              side,
		Volume:            volume,
		Price:             price,
		StopLoss:          sl,
		TakeProfit:        tp,
		Signature:         sig,
	}, nil
}

// EncodeSignalPacket is the inverse of DecodeSignalPacket, used by test
// helpers and by any in-process producer simulator.
func EncodeSignalPacket(p *SignalPacket) []byte {
	w := &byteWriter{}
	w.writeString(p.SubscriptionID)
	w.writeInt64(p.SequenceNumber)
	w.writeInt64(p.GeneratedAtMillis)
	w.writeString(p.Symbol)
	w.writeInt32(p.Side)
	w.writeFloat64(p.Volume)
	w.writeFloat64(p.Price)
	w.writeFloat64(p.StopLoss)
	w.writeFloat64(p.TakeProfit)
	w.writeString(p.Signature)
	return w.buf
}
