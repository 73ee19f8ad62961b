package element

import "corestream/pad"

// handleCapsMsg implements the input-side Caps Controller from spec.md
// §4.5: validate against accepted_caps, then store-if-buffered or
// dispatch, updating the pad's negotiated caps after the callback runs.
func (rt *Runtime) handleCapsMsg(msg CapsMsg) error {
	p, ok := rt.pads.Get(msg.Pad)
	if !ok {
		return &InvalidMessage{Reason: "caps for unknown pad " + msg.Pad.String()}
	}
	if p.AcceptedCaps != nil && !p.AcceptedCaps(msg.Caps) {
		return &InvalidCaps{Pad: p.Ref.String(), Reason: "caps do not match accepted_caps"}
	}

	if p.Mode == pad.Pull && p.Buffer() != nil && !p.Buffer().Empty() {
		p.Buffer().StoreNonBuffer("caps", msg.Caps)
		return nil
	}
	return rt.dispatchCaps(p, msg.Caps)
}

func (rt *Runtime) dispatchCaps(p *pad.Pad, caps any) error {
	res, err := rt.behavior.HandleCaps(p.Ref, caps, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	if err := rt.applyActions("handle_caps", res.Actions); err != nil {
		return err
	}
	p.SetCaps(caps)
	return nil
}
