package wire

import (
	"encoding/binary"
	"errors"
	"math"
)

// byteReader/byteWriter implement the small length-prefixed binary
// encoding used for SignalPacket fields: each string is a uint32 length
// followed by UTF-8 bytes; each number is a fixed-width big-endian field.
// This is deliberately not protobuf: the producer-ingest wire is a fixed
// compatibility contract (spec §6), and a hand-rolled fixed layout is
// easier to keep bit-for-bit stable across languages than a schema that
// could silently renumber fields.
type byteReader struct {
	buf []byte
	pos int
}

var errShortBuffer = errors.New("wire: unexpected end of buffer")

func (r *byteReader) exhausted() bool {
	return r.pos >= len(r.buf)
}

func (r *byteReader) readString() (string, error) {
	if r.pos+4 > len(r.buf) {
		return "", errShortBuffer
	}
	n := int(binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4]))
	r.pos += 4
	if n < 0 || r.pos+n > len(r.buf) {
		return "", errShortBuffer
	}
	s := string(r.buf[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *byteReader) readInt64() (int64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, errShortBuffer
	}
	v := int64(binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8]))
	r.pos += 8
	return v, nil
}

func (r *byteReader) readInt32() (int32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, errShortBuffer
	}
	v := int32(binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4]))
	r.pos += 4
	return v, nil
}

func (r *byteReader) readFloat64() (float64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, errShortBuffer
	}
	bits := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

type byteWriter struct {
	buf []byte
}

func (w *byteWriter) writeString(s string) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	w.buf = append(w.buf, lenBuf[:]...)
	w.buf = append(w.buf, s...)
}

func (w *byteWriter) writeInt64(v int64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	w.buf = append(w.buf, buf[:]...)
}

func (w *byteWriter) writeInt32(v int32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	w.buf = append(w.buf, buf[:]...)
}

func (w *byteWriter) writeFloat64(v float64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(v))
	w.buf = append(w.buf, buf[:]...)
}
