package wire

import "fmt"

// Ack is the bounded response the Ingest Gateway sends for every
// SignalPacket frame it processes, per spec §4.1 step 7.
type Ack struct {
	SequenceNumber int64
	Accepted       bool
	Reason         string
}

func EncodeAck(a Ack) []byte {
	w := &byteWriter{}
	w.writeInt64(a.SequenceNumber)
	w.writeInt32(boolToInt32(a.Accepted))
	w.writeString(a.Reason)
	return w.buf
}

func DecodeAck(body []byte) (Ack, error) {
	r := &byteReader{buf: body}
	seq, err := r.readInt64()
	if err != nil {
		return Ack{}, fmt.Errorf("wire: decode ack sequence_number: %w", err)
	}
	accepted, err := r.readInt32()
	if err != nil {
		return Ack{}, fmt.Errorf("wire: decode ack accepted: %w", err)
	}
	reason, err := r.readString()
	if err != nil {
		return Ack{}, fmt.Errorf("wire: decode ack reason: %w", err)
	}
	return Ack{SequenceNumber: seq, Accepted: accepted != 0, Reason: reason}, nil
}
