package pad

import (
	"fmt"
	"sync"

	"corestream/pullbuffer"
)

// CheckModeCompatibility implements the table in spec.md §4.2. toilet is
// true exactly for the push-output/pull-input combination, where the
// receiver builds a toilet-mode PullBuffer instead of a credit-based one.
func CheckModeCompatibility(outputMode, inputMode Mode) (ok, toilet bool) {
	switch {
	case outputMode == Push && inputMode == Push:
		return true, false
	case outputMode == Pull && inputMode == Pull:
		return true, false
	case outputMode == Push && inputMode == Pull:
		return true, true
	default: // Pull output -> Push input
		return false, false
	}
}

// DemandSender delivers an upstream Demand(n, inputRef) for a credit-based
// pull link. PadSet needs this to build a non-toilet PullBuffer at link
// time; the element package supplies an implementation that reaches into
// the peer element's mailbox.
type DemandSender func(peer PeerRef, n int, inputRef any) error

// PadSet owns every pad belonging to one element and implements the
// link/unlink protocol from spec.md §4.2.
type PadSet struct {
	mu       sync.Mutex
	statics  map[string]StaticPad
	pads     map[string]*Pad
	nextGen  map[string]int
	sendDemand DemandSender
	metricFor  func(u DemandUnit) pullbuffer.Metric
}

// NewPadSet registers static pad declarations and creates Pad entries for
// every Availability-Always declaration. sendDemand is used to build
// credit-based PullBuffers for pull-pull links; metricFor maps a
// DemandUnit to the pullbuffer.Metric that counts it.
func NewPadSet(statics []StaticPad, sendDemand DemandSender, metricFor func(DemandUnit) pullbuffer.Metric) *PadSet {
	ps := &PadSet{
		statics:    make(map[string]StaticPad),
		pads:       make(map[string]*Pad),
		nextGen:    make(map[string]int),
		sendDemand: sendDemand,
		metricFor:  metricFor,
	}
	for _, s := range statics {
		ps.statics[s.Name] = s
		if s.Availability == Always {
			ref := StaticRef(s.Name)
			ps.pads[ref.String()] = newPad(ref, s)
		}
	}
	return ps
}

// Get returns the pad for ref, if it exists.
func (ps *PadSet) Get(ref Ref) (*Pad, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	p, ok := ps.pads[ref.String()]
	return p, ok
}

// All returns a snapshot of every currently-existing pad.
func (ps *PadSet) All() []*Pad {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	out := make([]*Pad, 0, len(ps.pads))
	for _, p := range ps.pads {
		out = append(out, p)
	}
	return out
}

// GetPadRef resolves a static pad's ref, or allocates a fresh generation
// for an on-request pad, per spec.md §4.2.
func (ps *PadSet) GetPadRef(name string) (Ref, error) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	decl, ok := ps.statics[name]
	if !ok {
		return Ref{}, ErrUnknownPad(name)
	}
	if decl.Availability == Always {
		return StaticRef(name), nil
	}

	gen := ps.nextGen[name]
	ps.nextGen[name] = gen + 1
	ref := Ref{Name: name, Generation: gen, dynamic: true}
	ps.pads[ref.String()] = newPad(ref, decl)
	return ref, nil
}

// LinkResult is the outcome of a successful HandleLink call.
type LinkResult struct {
	Pad                    *Pad
	PushModeAnnounceNeeded bool // true: thisRef itself is a pull input awaiting its own toilet buffer
}

// HandleLink validates and records a link, per spec.md §4.2. thisRef must
// already have a Pad entry (via GetPadRef for dynamic pads, or static
// declaration for Always pads). peer describes the remote endpoint and its
// declared mode/demand unit/accepted caps.
func (ps *PadSet) HandleLink(thisRef Ref, peer PeerRef, otherMode Mode, otherDemandUnit DemandUnit, otherAcceptedCaps CapsMatcher, otherCaps any) (LinkResult, error) {
	ps.mu.Lock()
	p, ok := ps.pads[thisRef.String()]
	if !ok {
		ps.mu.Unlock()
		return LinkResult{}, ErrUnknownPad(thisRef.Name)
	}
	ps.mu.Unlock()

	if p.Linked() {
		return LinkResult{}, ErrAlreadyLinked(thisRef)
	}

	var outputMode, inputMode Mode
	if p.Direction == Output {
		outputMode, inputMode = p.Mode, otherMode
	} else {
		outputMode, inputMode = otherMode, p.Mode
	}
	ok2, toilet := CheckModeCompatibility(outputMode, inputMode)
	if !ok2 {
		return LinkResult{}, ErrModeMismatch(outputMode, inputMode)
	}

	if p.DemandUnit != otherDemandUnit && p.Mode == Pull && otherMode == Pull {
		return LinkResult{}, ErrDemandUnitMismatch(thisRef)
	}

	if p.AcceptedCaps != nil && otherCaps != nil && !p.AcceptedCaps(otherCaps) {
		return LinkResult{}, ErrCapsMismatch(thisRef)
	}
	if otherAcceptedCaps != nil && p.Caps() != nil && !otherAcceptedCaps(p.Caps()) {
		return LinkResult{}, ErrCapsMismatch(thisRef)
	}

	peerCopy := peer
	p.setPeer(&peerCopy)

	announce := false
	if p.Direction == Input && p.Mode == Pull {
		if toilet {
			// Built reactively once the push_mode_announcement arrives
			// from upstream, per spec.md §4.2's enable_toilet_if_pull.
			announce = true
		} else if p.Buffer() == nil {
			metric := ps.metricFor(p.DemandUnit)
			sender := &padUpstream{send: ps.sendDemand, peer: peerCopy}
			p.SetBuffer(pullbuffer.New(thisRef.String(), sender, thisRef, metric, pullbuffer.Options{
				PreferredSize: p.PreferredSize,
				MinDemand:     p.MinDemand,
			}))
		}
	}

	return LinkResult{Pad: p, PushModeAnnounceNeeded: announce}, nil
}

type padUpstream struct {
	send DemandSender
	peer PeerRef
}

func (u *padUpstream) SendDemand(n int, inputRef any) error {
	if u.send == nil {
		return fmt.Errorf("pad: no demand sender configured")
	}
	return u.send(u.peer, n, inputRef)
}

// LinkingFinished signals that no more links will be added in this batch;
// callers use this to decide when to emit handle_pad_added notifications
// for dynamic pads (spec.md §4.2). PadSet itself has no state to flip here
// — it exists as an explicit operation so element.Runtime can sequence
// notifications deterministically.
func (ps *PadSet) LinkingFinished() {}

// HandleUnlink clears a pad's peer, drops buffered data, and reports
// whether the pad existed and was linked.
func (ps *PadSet) HandleUnlink(ref Ref) (*Pad, bool) {
	ps.mu.Lock()
	p, ok := ps.pads[ref.String()]
	ps.mu.Unlock()
	if !ok {
		return nil, false
	}
	wasLinked := p.Linked()
	p.setPeer(nil)
	p.SetBuffer(nil)
	return p, wasLinked
}

// EnableToiletIfPull switches ref's PullBuffer into toilet mode, invoked
// when a push_mode_announcement arrives from the peer of a pull input pad
// (spec.md §4.2).
func (ps *PadSet) EnableToiletIfPull(ref Ref, warn, fail int) error {
	p, ok := ps.Get(ref)
	if !ok {
		return ErrUnknownPad(ref.Name)
	}
	if p.Direction != Input || p.Mode != Pull {
		return &LinkError{Reason: fmt.Sprintf("%s is not a pull input pad", ref)}
	}
	if p.Buffer() == nil {
		metric := ps.metricFor(p.DemandUnit)
		p.SetBuffer(pullbuffer.New(ref.String(), nil, ref, metric, pullbuffer.Options{
			PreferredSize: p.PreferredSize,
			MinDemand:     p.MinDemand,
			Toilet:        &pullbuffer.Toilet{WarnLevel: warn, FailLevel: fail},
		}))
	} else {
		p.Buffer().EnableToilet(warn, fail)
	}
	return nil
}
