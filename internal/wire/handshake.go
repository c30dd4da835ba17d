package wire

import "fmt"

// Handshake is the first frame a producer connection sends, before any
// SignalPacket frames. It carries the opaque license token (never stored
// in the clear past this point) plus the device-fingerprint fields the
// multi-device detector needs.
type Handshake struct {
	Token        string
	EAInstanceID string
	MT5Account   int64
}

// EncodeHandshake serializes h using the same length-prefixed field
// encoding as SignalPacket.
func EncodeHandshake(h Handshake) []byte {
	w := &byteWriter{}
	w.writeString(h.Token)
	w.writeString(h.EAInstanceID)
	w.writeInt64(h.MT5Account)
	return w.buf
}

// DecodeHandshake is the inverse of EncodeHandshake.
func DecodeHandshake(body []byte) (Handshake, error) {
	r := &byteReader{buf: body}
	token, err := r.readString()
	if err != nil {
		return Handshake{}, fmt.Errorf("wire: decode handshake token: %w", err)
	}
	ea, err := r.readString()
	if err != nil {
		return Handshake{}, fmt.Errorf("wire: decode handshake ea_instance_id: %w", err)
	}
	mt5, err := r.readInt64()
	if err != nil {
		return Handshake{}, fmt.Errorf("wire: decode handshake mt5_account: %w", err)
	}
	if !r.exhausted() {
		return Handshake{}, fmt.Errorf("wire: trailing bytes after handshake")
	}
	return Handshake{Token: token, EAInstanceID: ea, MT5Account: mt5}, nil
}

// HandshakeAck is the gateway's reply to a Handshake: whether the
// connection may proceed to stream SignalPacket frames.
type HandshakeAck struct {
	Accepted bool
	Reason   string
}

func EncodeHandshakeAck(a HandshakeAck) []byte {
	w := &byteWriter{}
	w.writeInt32(boolToInt32(a.Accepted))
	w.writeString(a.Reason)
	return w.buf
}

func DecodeHandshakeAck(body []byte) (HandshakeAck, error) {
	r := &byteReader{buf: body}
	accepted, err := r.readInt32()
	if err != nil {
		return HandshakeAck{}, fmt.Errorf("wire: decode handshake ack accepted: %w", err)
	}
	reason, err := r.readString()
	if err != nil {
		return HandshakeAck{}, fmt.Errorf("wire: decode handshake ack reason: %w", err)
	}
	return HandshakeAck{Accepted: accepted != 0, Reason: reason}, nil
}

func boolToInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
