package element

import (
	"errors"

	"corestream/pad"
)

// dispatch is the single entry point every mailbox receive passes
// through. It implements spec.md §4.1's two-tier structure: a hot-path
// shortcut for push-mode input buffers while playing, then the general
// control/data classification for everything else.
func (rt *Runtime) dispatch(msg Message) error {
	if bm, ok := msg.(BufferMsg); ok && rt.getPlayback() == Playing {
		if p, ok := rt.pads.Get(bm.Pad); ok && p.Direction == pad.Input && p.Mode == pad.Push {
			if p.EndOfStream() {
				return &StreamProtocol{Pad: p.Ref.String(), Reason: "buffer after end_of_stream"}
			}
			return rt.processBuffers(p, bm.Buffers)
		}
	}

	if msg.isData() {
		if rt.getPlayback() != Playing {
			rt.buffer.Push(msg)
			return nil
		}
		return rt.dispatchData(msg)
	}
	return rt.dispatchControl(msg)
}

func (rt *Runtime) dispatchData(msg Message) error {
	switch m := msg.(type) {
	case BufferMsg:
		return rt.handleBufferMsg(m)
	case CapsMsg:
		return rt.handleCapsMsg(m)
	case EventMsg:
		return rt.handleEventMsg(m)
	case DemandMsg:
		return rt.handleDemandMsg(m)
	default:
		return &InvalidMessage{Reason: "unrecognized data message"}
	}
}

func (rt *Runtime) dispatchControl(msg Message) error {
	switch m := msg.(type) {
	case PlaybackMsg:
		// A rejected (BadActivityRequest) or aborted (transitionAborted,
		// spec.md §4.6's drain failure) transition is a request-level
		// failure: reported to the caller, not fatal to the runtime. Any
		// other error from a playback-transition callback follows the
		// general rule in spec.md §7 and is fatal.
		err := rt.handlePlayback(m.Target)
		if m.Reply != nil {
			m.Reply <- err
		}
		var bad *BadActivityRequest
		var aborted *transitionAborted
		if err == nil || errors.As(err, &bad) || errors.As(err, &aborted) {
			return nil
		}
		return err
	case LinkMsg:
		return rt.handleLinkMsg(m)
	case UnlinkMsg:
		return rt.handleUnlinkMsg(m)
	case PushModeAnnounceMsg:
		return rt.handlePushModeAnnounce(m)
	case PadAddedMsg:
		return rt.handlePadAdded(m.Ref)
	case PadRemovedMsg:
		return rt.handlePadRemoved(m.Ref)
	case TimerTickMsg:
		return rt.handleTimerTick(m)
	case ClockRatioMsg:
		return nil
	case DownMsg:
		return &ParentCrash{Parent: m.Parent, Reason: m.Reason}
	case OtherMsg:
		return rt.handleOther(m)
	default:
		return &InvalidMessage{Reason: "unrecognized control message"}
	}
}
