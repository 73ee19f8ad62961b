// Package pad implements the typed, directional endpoint and linking
// protocol from spec.md §4.2: pad storage, mode/direction invariants, and
// the link/unlink handshake (including toilet-mode activation when a
// push-mode output feeds a pull-mode input).
package pad

import (
	"sync"
	"sync/atomic"

	"corestream/pullbuffer"
)

// Direction is a pad's fixed direction, immutable after creation.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Input {
		return "input"
	}
	return "output"
}

// Mode is a pad's flow-control mode, immutable after creation.
type Mode int

const (
	Push Mode = iota
	Pull
)

func (m Mode) String() string {
	if m == Push {
		return "push"
	}
	return "pull"
}

// DemandUnit is the metric a pad counts demand in.
type DemandUnit int

const (
	Buffers DemandUnit = iota
	Bytes
)

// Availability describes whether a pad is always present or created
// on-request, per spec.md §4.2.
type Availability int

const (
	Always Availability = iota
	OnRequest
)

// Ref identifies one pad instance. Static pads use a bare name; dynamic
// pads carry a generation counter, per spec.md §3 ("either equal to name
// for static pads, or a (name, generation) tuple for dynamic pads").
type Ref struct {
	Name       string
	Generation int
	dynamic    bool
}

// StaticRef returns the ref for a statically-declared pad.
func StaticRef(name string) Ref { return Ref{Name: name} }

// IsDynamic reports whether this ref carries a generation (an on-request pad).
func (r Ref) IsDynamic() bool { return r.dynamic }

func (r Ref) String() string {
	if !r.dynamic {
		return r.Name
	}
	return r.Name + "#" + itoa(r.Generation)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// PeerRef identifies the other side of a link: a remote element's address
// (opaque to this package — the element package supplies a concrete type)
// plus that element's pad ref.
type PeerRef struct {
	Element any
	Pad     Ref
}

// CapsMatcher is the consumed half of the caps-matching DSL (out of scope
// per spec.md §1); corestream only needs the predicate.
type CapsMatcher func(caps any) bool

// StaticPad is the declaration an element author registers before any
// instance exists, used to validate dynamic-pad availability and mode.
//
// PreferredSize, MinDemand and ToiletWarn/ToiletFail are the per-pad
// configuration options from spec.md §6 ("preferred_size, min_demand,
// toilet { warn, fail } per pad"). Zero PreferredSize and MinDemand fall
// back to pullbuffer.Options' own defaults; zero ToiletWarn and ToiletFail
// fall back to the element package's default watermarks.
type StaticPad struct {
	Name            string
	Direction       Direction
	Mode            Mode
	DemandUnit      DemandUnit
	OtherDemandUnit DemandUnit
	AcceptedCaps    CapsMatcher
	Availability    Availability
	PreferredSize   int
	MinDemand       int
	ToiletWarn      int
	ToiletFail      int
}

// Pad is one typed endpoint owned by exactly one Element (spec.md §3).
type Pad struct {
	Ref             Ref
	Direction       Direction
	Mode            Mode
	DemandUnit      DemandUnit
	OtherDemandUnit DemandUnit
	AcceptedCaps    CapsMatcher
	PreferredSize   int
	MinDemand       int
	ToiletWarn      int
	ToiletFail      int

	mu   sync.Mutex
	caps any
	peer *PeerRef

	// buffer is populated for pull-mode input pads only. It is written only
	// by the owning element's dispatch loop but read by cross-goroutine
	// introspection (element.Registry.Pads), hence the atomic pointer
	// rather than a plain field guarded by mu.
	buffer atomic.Pointer[pullbuffer.PullBuffer]

	// demand is the signed credit counter for output pads and pull input
	// pads (spec.md §3's `demand ≥ 0` invariant applies outside re-entry).
	demand atomic.Int64

	// DemandPads lists the upstream input refs an auto-demand output pad
	// keeps balanced (spec.md §4.4 step 3).
	DemandPads []Ref

	startOfStream atomic.Bool
	endOfStream   atomic.Bool
}

func newPad(ref Ref, decl StaticPad) *Pad {
	return &Pad{
		Ref:             ref,
		Direction:       decl.Direction,
		Mode:            decl.Mode,
		DemandUnit:      decl.DemandUnit,
		OtherDemandUnit: decl.OtherDemandUnit,
		AcceptedCaps:    decl.AcceptedCaps,
		PreferredSize:   decl.PreferredSize,
		MinDemand:       decl.MinDemand,
		ToiletWarn:      decl.ToiletWarn,
		ToiletFail:      decl.ToiletFail,
	}
}

// Caps returns the last-negotiated format, or nil if none yet.
func (p *Pad) Caps() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps
}

func (p *Pad) setCaps(c any) {
	p.mu.Lock()
	p.caps = c
	p.mu.Unlock()
}

// SetCaps records newly negotiated caps after a handle_caps callback has
// accepted them.
func (p *Pad) SetCaps(c any) { p.setCaps(c) }

// Peer returns the linked remote endpoint, or nil if unlinked.
func (p *Pad) Peer() *PeerRef {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer
}

func (p *Pad) setPeer(peer *PeerRef) {
	p.mu.Lock()
	p.peer = peer
	p.mu.Unlock()
}

// Linked reports whether the pad currently has a peer.
func (p *Pad) Linked() bool { return p.Peer() != nil }

// Buffer returns the pad's PullBuffer, or nil for a push-mode or output pad.
func (p *Pad) Buffer() *pullbuffer.PullBuffer { return p.buffer.Load() }

// SetBuffer installs or clears the pad's PullBuffer.
func (p *Pad) SetBuffer(pb *pullbuffer.PullBuffer) { p.buffer.Store(pb) }

// Demand returns the current signed credit counter.
func (p *Pad) Demand() int64 { return p.demand.Load() }

// AddDemand atomically adds delta to the demand counter and returns the total.
func (p *Pad) AddDemand(delta int) int64 { return p.demand.Add(int64(delta)) }

// SetDemand overwrites the demand counter.
func (p *Pad) SetDemand(v int64) { p.demand.Store(v) }

// StartOfStream reports the monotone start-of-stream flag.
func (p *Pad) StartOfStream() bool { return p.startOfStream.Load() }

// EndOfStream reports the monotone end-of-stream flag.
func (p *Pad) EndOfStream() bool { return p.endOfStream.Load() }

// MarkStartOfStream transitions the flag false->true. It reports false if
// it was already set (the caller should treat a repeat as a protocol
// error per spec.md §4.5).
func (p *Pad) MarkStartOfStream() bool { return p.startOfStream.CompareAndSwap(false, true) }

// MarkEndOfStream transitions the flag false->true.
func (p *Pad) MarkEndOfStream() bool { return p.endOfStream.CompareAndSwap(false, true) }
