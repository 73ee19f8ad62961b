package element

import "corestream/pad"

// syncEvent reports whether ev is delivered in "sync" mode: ordered with
// the buffer stream rather than dispatched out-of-band. The two
// structural events are always sync; anything else defers to the Value
// field's Sync flag when present.
func syncEvent(ev Event) bool {
	if ev.Kind == EventStartOfStream || ev.Kind == EventEndOfStream {
		return true
	}
	if s, ok := ev.Value.(interface{ Sync() bool }); ok {
		return s.Sync()
	}
	return false
}

// handleEventMsg implements the input-side Event Controller from spec.md
// §4.5.
func (rt *Runtime) handleEventMsg(msg EventMsg) error {
	p, ok := rt.pads.Get(msg.Pad)
	if !ok {
		return &InvalidMessage{Reason: "event for unknown pad " + msg.Pad.String()}
	}

	if err := rt.checkStreamOrder(p, msg.Event); err != nil {
		return err
	}

	if syncEvent(msg.Event) && p.Mode == pad.Pull && p.Buffer() != nil && !p.Buffer().Empty() {
		p.Buffer().StoreNonBuffer("event", msg.Event)
		return nil
	}
	return rt.dispatchEvent(p, msg.Event)
}

// checkStreamOrder enforces the StartOfStream/EndOfStream ordering
// invariants from spec.md §4.5: input-only, StartOfStream first and
// exactly once, EndOfStream requires a prior StartOfStream and is final.
func (rt *Runtime) checkStreamOrder(p *pad.Pad, ev Event) error {
	switch ev.Kind {
	case EventStartOfStream:
		if p.Direction != pad.Input {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "start_of_stream on non-input pad"}
		}
		if !p.MarkStartOfStream() {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "duplicate start_of_stream"}
		}
	case EventEndOfStream:
		if p.Direction != pad.Input {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "end_of_stream on non-input pad"}
		}
		if !p.StartOfStream() {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "end_of_stream before start_of_stream"}
		}
		if !p.MarkEndOfStream() {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "duplicate end_of_stream"}
		}
	}
	return nil
}

func (rt *Runtime) dispatchEvent(p *pad.Pad, ev Event) error {
	res, err := rt.behavior.HandleEvent(p.Ref, ev, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	return rt.applyActions("handle_event", res.Actions)
}

// drainPadMarker dispatches one non-buffer marker taken from a pull pad's
// PullBuffer through the event/caps dispatch path. drainPull calls it in
// stored order, so markers keep their position relative to the buffers.
func (rt *Runtime) drainPadMarker(p *pad.Pad, kind string, value any) error {
	switch kind {
	case "event":
		return rt.dispatchEvent(p, value.(Event))
	case "caps":
		return rt.dispatchCaps(p, value)
	default:
		return nil
	}
}
