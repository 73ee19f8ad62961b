package element

import (
	"corestream/pad"
	"corestream/pullbuffer"
)

// handleBufferMsg implements the input-side buffer path from spec.md §4.1
// and §4.3: push-mode buffers invoke handle_process directly; pull-mode
// buffers are stored into the pad's PullBuffer and then everything stored
// is drained through drainPull.
func (rt *Runtime) handleBufferMsg(msg BufferMsg) error {
	p, ok := rt.pads.Get(msg.Pad)
	if !ok {
		return &InvalidMessage{Reason: "buffer for unknown pad " + msg.Pad.String()}
	}
	if p.Direction != pad.Input {
		return &InvalidMessage{Reason: "buffer delivered to non-input pad " + msg.Pad.String()}
	}
	if p.EndOfStream() {
		return &StreamProtocol{Pad: p.Ref.String(), Reason: "buffer after end_of_stream"}
	}

	if p.Mode == pad.Push {
		return rt.processBuffers(p, msg.Buffers)
	}

	if p.Buffer() == nil {
		return &InvalidMessage{Reason: "buffer on unlinked pull pad " + msg.Pad.String()}
	}
	if err := p.Buffer().StoreBuffers(msg.Buffers); err != nil {
		return err
	}
	return rt.drainPull(p)
}

// drainPull takes everything currently available from a pull input pad's
// PullBuffer and feeds it through handle_process / handle_event /
// handle_caps in the order it was stored.
func (rt *Runtime) drainPull(p *pad.Pad) error {
	for {
		size := p.Buffer().CurrentSize()
		if size <= 0 {
			return nil
		}
		res, err := p.Buffer().Take(size)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}
		var pending []pullbuffer.Buffer
		flush := func() error {
			if len(pending) == 0 {
				return nil
			}
			bufs := pending
			pending = nil
			return rt.processBuffers(p, bufs)
		}
		for _, item := range res.Items {
			switch item.Kind {
			case pullbuffer.ItemBuffer:
				pending = append(pending, item.Buffer)
			case pullbuffer.ItemNonBuffer:
				if err := flush(); err != nil {
					return err
				}
				if err := rt.drainPadMarker(p, item.NonBuffer.Kind, item.NonBuffer.Value); err != nil {
					return err
				}
			}
		}
		if err := flush(); err != nil {
			return err
		}
		if !res.HasBuffers {
			return nil
		}
	}
}

// processBuffers invokes handle_process and applies the resulting actions;
// this is the body both the hot-path shortcut and the generic dispatcher
// call into, keeping the two paths behaviorally identical (spec.md §4.1).
func (rt *Runtime) processBuffers(p *pad.Pad, buffers []pullbuffer.Buffer) error {
	res, err := rt.behavior.HandleProcess(p.Ref, buffers, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	return rt.applyActions("handle_process", res.Actions)
}
