package element

import (
	"corestream/pad"
	"corestream/pullbuffer"
)

func (rt *Runtime) applyActions(callback string, actions []Action) error {
	for _, a := range actions {
		if err := rt.applyAction(callback, a); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) applyAction(callback string, a Action) error {
	var p *pad.Pad
	if requiresPad(a.Kind) {
		var ok bool
		p, ok = rt.pads.Get(a.Pad)
		if !ok {
			return &InvalidAction{Callback: callback, Reason: "unknown pad " + a.Pad.String()}
		}
	}
	if err := validateAction(callback, a, p); err != nil {
		return err
	}

	switch a.Kind {
	case ActionBuffer:
		return rt.sendBuffers(p, a.Buffers)
	case ActionCaps:
		p.SetCaps(a.Caps)
		return rt.sendCaps(p, a.Caps)
	case ActionEvent:
		return rt.sendEvent(p, a.Event)
	case ActionDemand:
		return rt.sendDemandAction(p, a.Size, a.Unit)
	case ActionRedemand:
		total := p.Demand()
		if total > 0 && !p.EndOfStream() {
			return rt.invokeDemand(p, int(total), p.DemandUnit)
		}
		return nil
	case ActionForward:
		if a.Target != nil {
			a.Target.Send(OtherMsg{Payload: a.Msg})
		}
		return nil
	case ActionNotify:
		rt.notify(a.Msg)
		return nil
	case ActionStartTimer:
		return rt.startTimer(a.TimerID, a.Interval, a.Clock)
	case ActionStopTimer:
		return rt.stopTimer(a.TimerID)
	case ActionEndOfStream:
		if !p.MarkEndOfStream() {
			return &StreamProtocol{Pad: p.Ref.String(), Reason: "duplicate end_of_stream"}
		}
		return rt.sendEvent(p, Event{Kind: EventEndOfStream})
	}
	return nil
}

func requiresPad(k ActionKind) bool {
	switch k {
	case ActionForward, ActionNotify, ActionStartTimer, ActionStopTimer:
		return false
	default:
		return true
	}
}

func (rt *Runtime) sendBuffers(p *pad.Pad, buffers []pullbuffer.Buffer) error {
	peer := p.Peer()
	if peer == nil {
		rt.log.Printf("%s: dropped %d buffer(s), pad unlinked", p.Ref, len(buffers))
		return nil
	}
	addr, ok := peer.Element.(*Address)
	if !ok {
		return nil
	}
	addr.Send(BufferMsg{Pad: peer.Pad, Buffers: buffers})
	return nil
}

func (rt *Runtime) sendCaps(p *pad.Pad, caps any) error {
	peer := p.Peer()
	if peer == nil {
		return nil
	}
	if addr, ok := peer.Element.(*Address); ok {
		addr.Send(CapsMsg{Pad: peer.Pad, Caps: caps})
	}
	return nil
}

func (rt *Runtime) sendEvent(p *pad.Pad, ev Event) error {
	peer := p.Peer()
	if peer == nil {
		return nil
	}
	if addr, ok := peer.Element.(*Address); ok {
		addr.Send(EventMsg{Pad: peer.Pad, Event: ev})
	}
	return nil
}

func (rt *Runtime) sendDemandAction(p *pad.Pad, size int, unit pad.DemandUnit) error {
	peer := p.Peer()
	if peer == nil {
		return nil
	}
	p.AddDemand(size)
	if addr, ok := peer.Element.(*Address); ok {
		addr.Send(DemandMsg{Pad: peer.Pad, Size: size, Unit: unit})
	}
	return nil
}

func (rt *Runtime) notify(msg any) {
	select {
	case rt.notifyCh <- msg:
	default:
	}
}
