package element

import (
	"corestream/clock"
	"corestream/pad"
	"corestream/pullbuffer"
)

// Message is anything the runtime mailbox can carry. isData distinguishes
// spec.md §4.1's two dispatch categories: control messages (playback,
// link, unlink, timers, clock) are handled immediately in any playback
// state; data messages (buffer, caps, event, demand) are deferred into the
// PlaybackBuffer unless the element is already playing.
type Message interface {
	isData() bool
}

// BufferMsg delivers buffers arriving on ref (spec.md §4's handle_process).
type BufferMsg struct {
	Pad     pad.Ref
	Buffers []pullbuffer.Buffer
}

func (BufferMsg) isData() bool { return true }

// CapsMsg announces new caps negotiated on ref.
type CapsMsg struct {
	Pad  pad.Ref
	Caps any
}

func (CapsMsg) isData() bool { return true }

// EventMsg carries a stream event along ref.
type EventMsg struct {
	Pad   pad.Ref
	Event Event
}

func (EventMsg) isData() bool { return true }

// DemandMsg is a downstream request for more output on ref.
type DemandMsg struct {
	Pad  pad.Ref
	Size int
	Unit pad.DemandUnit
}

func (DemandMsg) isData() bool { return true }

// PlaybackMsg requests a playback state transition (control).
type PlaybackMsg struct {
	Target PlaybackState
	Reply  chan error
}

func (PlaybackMsg) isData() bool { return false }

// LinkMsg requests this element link thisRef to peer (control).
type LinkMsg struct {
	ThisRef           pad.Ref
	Peer              pad.PeerRef
	OtherMode         pad.Mode
	OtherDemandUnit   pad.DemandUnit
	OtherAcceptedCaps pad.CapsMatcher
	OtherCaps         any
	Reply             chan linkReplyResult
}

func (LinkMsg) isData() bool { return false }

type linkReplyResult struct {
	Result pad.LinkResult
	Err    error
}

// UnlinkMsg requests ref be unlinked (control).
type UnlinkMsg struct {
	Pad   pad.Ref
	Reply chan struct{}
}

func (UnlinkMsg) isData() bool { return false }

// PushModeAnnounceMsg notifies a pull-mode input pad that its peer is
// push-mode and it must enable its toilet buffer (control).
type PushModeAnnounceMsg struct {
	Pad             pad.Ref
	WarnLevel, Fail int
}

func (PushModeAnnounceMsg) isData() bool { return false }

// PadAddedMsg drives a dynamic pad's handle_pad_added notification through
// the dispatch loop once its link has resolved and linking_finished has
// fired (control), per spec.md §4.2.
type PadAddedMsg struct {
	Ref pad.Ref
}

func (PadAddedMsg) isData() bool { return false }

// PadRemovedMsg drives a dynamic pad's handle_pad_removed notification
// through the dispatch loop after it has been unlinked (control), per
// spec.md §4.2.
type PadRemovedMsg struct {
	Ref pad.Ref
}

func (PadRemovedMsg) isData() bool { return false }

// TimerTickMsg delivers a fired timer tick (control).
type TimerTickMsg struct {
	TimerID string
}

func (TimerTickMsg) isData() bool { return false }

// ClockRatioMsg delivers a clock ratio update (control).
type ClockRatioMsg struct {
	Update clock.Update
}

func (ClockRatioMsg) isData() bool { return false }

// DownMsg reports a monitored parent's crash (control).
type DownMsg struct {
	Parent string
	Reason string
}

func (DownMsg) isData() bool { return false }

// OtherMsg wraps an arbitrary user message routed to HandleOther (control).
type OtherMsg struct {
	Payload any
}

func (OtherMsg) isData() bool { return false }
