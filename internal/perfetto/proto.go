// Package perfetto hand-encodes the handful of Perfetto trace-packet
// messages the visualizer emits, directly to protobuf wire format. There
// is no generated perfetto_trace_pb2-equivalent anywhere in the
// retrieval pack (no example repo vendors or go-generates Perfetto
// bindings), so this package plays the role spec.md §1 assigns the wire
// codec: a small, fixed external encoder, not a place for invented
// abstractions.
package perfetto

import "encoding/binary"

type wireType uint64

const (
	wireVarint wireType = 0
	wireLength wireType = 2
)

// Message is an append-only protobuf message builder. Fields must be
// written in the order the caller chooses; the wire format doesn't
// require field ordering, so callers just call the field methods in
// whatever order matches the source struct.
type Message struct {
	buf []byte
}

// NewMessage returns an empty message builder.
func NewMessage() *Message { return &Message{} }

func (m *Message) tag(field int, wt wireType) {
	m.buf = appendVarint(m.buf, uint64(field)<<3|uint64(wt))
}

func appendVarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Varint writes an unsigned varint-typed field.
func (m *Message) Varint(field int, v uint64) {
	m.tag(field, wireVarint)
	m.buf = appendVarint(m.buf, v)
}

// Int writes a signed field using proto3's plain (non-zigzag) int64
// encoding, which is what Perfetto's own .proto schema uses for
// timestamps and ids.
func (m *Message) Int(field int, v int64) {
	m.Varint(field, uint64(v))
}

// Bool writes a bool field.
func (m *Message) Bool(field int, v bool) {
	if v {
		m.Varint(field, 1)
	} else {
		m.Varint(field, 0)
	}
}

// String writes a length-delimited UTF-8 string field.
func (m *Message) String(field int, s string) {
	m.Bytes(field, []byte(s))
}

// Bytes writes a length-delimited raw-bytes field.
func (m *Message) Bytes(field int, b []byte) {
	m.tag(field, wireLength)
	m.buf = appendVarint(m.buf, uint64(len(b)))
	m.buf = append(m.buf, b...)
}

// Embed writes child as a length-delimited nested message field.
func (m *Message) Embed(field int, child *Message) {
	if child == nil {
		return
	}
	m.Bytes(field, child.Marshal())
}

// RepeatedVarint writes each value as its own unpacked varint field
// entry. Unpacked repeated scalar fields are always valid to decode even
// where proto3 defaults to packed encoding, so this keeps the encoder
// from needing a second wire representation for the one repeated field
// (flow_ids) this package ever emits.
func (m *Message) RepeatedVarint(field int, values []uint64) {
	for _, v := range values {
		m.Varint(field, v)
	}
}

// Marshal returns the accumulated wire bytes.
func (m *Message) Marshal() []byte { return m.buf }
