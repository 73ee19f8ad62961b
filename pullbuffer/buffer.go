// Package pullbuffer implements the credit-based flow-control queue from
// spec.md §4.3: an in-order queue owned by a pull-mode input pad that
// issues upstream demand and, when fed by a push-mode peer, detects
// overflow via "toilet" watermarks.
package pullbuffer

import "sync/atomic"

// Payload is an opaque, reference-countable chunk of stream data
// (spec.md §3: "an opaque, reference-countable payload plus metadata").
// corestream never inspects Bytes; codecs and wire formats are out of scope.
type Payload struct {
	Bytes []byte
	PTS   int64 // nominal presentation time, unit defined by the element
	DTS   int64
	refs  atomic.Int32
}

// NewPayload wraps data with a single reference already held by the caller.
func NewPayload(data []byte) *Payload {
	p := &Payload{Bytes: data}
	p.refs.Store(1)
	return p
}

// Ref increments the reference count and returns the payload for chaining.
func (p *Payload) Ref() *Payload {
	p.refs.Add(1)
	return p
}

// Unref decrements the reference count and reports whether it reached zero.
func (p *Payload) Unref() bool {
	return p.refs.Add(-1) == 0
}

// Buffer is one timestamped unit of payload flowing downstream.
type Buffer struct {
	Payload  *Payload
	Metadata map[string]any
}

// Len returns the buffer's byte length, used by the ByteMetric.
func (b Buffer) Len() int {
	if b.Payload == nil {
		return 0
	}
	return len(b.Payload.Bytes)
}
