package element

import "corestream/pad"

// handleDemandMsg implements the Demand Controller from spec.md §4.4.
func (rt *Runtime) handleDemandMsg(msg DemandMsg) error {
	p, ok := rt.pads.Get(msg.Pad)
	if !ok {
		return &InvalidMessage{Reason: "demand for unknown pad " + msg.Pad.String()}
	}
	if p.Direction != pad.Output || p.Mode == pad.Push {
		// push output pads ignore demand; nothing to do.
		return nil
	}

	total := p.AddDemand(msg.Size)
	rt.autoDemandCouple(p)

	if total > 0 && !p.EndOfStream() {
		return rt.invokeDemand(p, int(total), msg.Unit)
	}
	return nil
}

// autoDemandCouple implements step 3: for an auto-demand output pad (one
// with DemandPads populated), top up any upstream input that has run low,
// provided every sibling demand-linked input still has positive
// outstanding demand. This is the conservative reading resolved in
// DESIGN.md: a single depleted input does not get re-armed while a
// sibling is still at zero.
func (rt *Runtime) autoDemandCouple(out *pad.Pad) {
	if len(out.DemandPads) == 0 {
		return
	}
	ups := make([]*pad.Pad, 0, len(out.DemandPads))
	for _, ref := range out.DemandPads {
		p, ok := rt.pads.Get(ref)
		if !ok {
			return
		}
		ups = append(ups, p)
	}
	for i, p := range ups {
		preferred := int64(p.PreferredSize)
		if preferred <= 0 {
			preferred = int64(metricFor(p.DemandUnit).DefaultPreferredSize())
		}
		if p.Demand() > preferred/2 {
			continue
		}
		siblingsPositive := true
		for j, q := range ups {
			if i == j {
				continue
			}
			if q.Demand() <= 0 {
				siblingsPositive = false
				break
			}
		}
		if !siblingsPositive {
			continue
		}
		rt.sendUpstreamDemand(p, int(preferred))
	}
}

// sendUpstreamDemand issues Demand(preferred_size, peer_ref) to an
// auto-demand input's peer and records the credit locally.
func (rt *Runtime) sendUpstreamDemand(in *pad.Pad, size int) {
	peer := in.Peer()
	if peer == nil {
		return
	}
	in.AddDemand(size)
	if addr, ok := peer.Element.(*Address); ok {
		addr.Send(DemandMsg{Pad: peer.Pad, Size: size, Unit: in.DemandUnit})
	}
}

// invokeDemand calls HandleDemand and processes the resulting actions,
// re-checking the demand>0 ∧ ¬end_of_stream predicate between
// split-continuation points as spec.md §4.4 step 4 requires.
func (rt *Runtime) invokeDemand(p *pad.Pad, total int, unit pad.DemandUnit) error {
	res, err := rt.behavior.HandleDemand(p.Ref, total, unit, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	for _, a := range res.Actions {
		if err := rt.applyAction("handle_demand", a); err != nil {
			return err
		}
		if p.Demand() <= 0 || p.EndOfStream() {
			break
		}
	}
	return nil
}
