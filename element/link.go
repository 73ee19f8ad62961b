package element

import (
	"github.com/google/uuid"

	"corestream/pad"
)

// LinkRequest/LinkReply describe a token-tagged link request/response pair.
// Link does not send them: it sends a LinkMsg whose own Reply channel
// already pairs the answer with the request. Link mints a token only to
// write it into its own log line; the peer never receives it.
type LinkRequest struct {
	Token uuid.UUID
	Pad   pad.Ref
	Peer  pad.PeerRef
}

type LinkReply struct {
	Token  uuid.UUID
	Result pad.LinkResult
	Err    error
}

// Link asks the element behind peer to link its pad to (name on this
// runtime), blocking until the peer replies.
func (rt *Runtime) Link(thisPadName string, peer *Address, peerPadRef pad.Ref) (pad.LinkResult, error) {
	ref, err := rt.pads.GetPadRef(thisPadName)
	if err != nil {
		return pad.LinkResult{}, err
	}
	p, _ := rt.pads.Get(ref)

	token := uuid.New()
	reply := make(chan linkReplyResult, 1)
	ok := peer.Send(LinkMsg{
		ThisRef:           peerPadRef,
		Peer:              pad.PeerRef{Element: rt.addr, Pad: ref},
		OtherMode:         p.Mode,
		OtherDemandUnit:   p.DemandUnit,
		OtherAcceptedCaps: p.AcceptedCaps,
		OtherCaps:         p.Caps(),
		Reply:             reply,
	})
	if !ok {
		return pad.LinkResult{}, &pad.LinkError{Reason: "peer mailbox unreachable"}
	}
	rep := <-reply
	if rep.Err != nil {
		return pad.LinkResult{}, rep.Err
	}

	rt.log.Printf("link %s token=%s peer=%s", ref, token, peer.Name())

	res, err := rt.pads.HandleLink(ref, pad.PeerRef{Element: peer, Pad: peerPadRef}, rep.Result.Pad.Mode, rep.Result.Pad.DemandUnit, rep.Result.Pad.AcceptedCaps, rep.Result.Pad.Caps())
	if err != nil {
		return pad.LinkResult{}, err
	}
	if res.PushModeAnnounceNeeded {
		// ref (not the peer's pad) is the pull input awaiting its toilet.
		// Route the announcement through our own mailbox rather than
		// enabling it inline, so it still goes through the single dispatch
		// loop like every other push_mode_announcement, per spec.md §4.2.
		warn, fail := toiletWatermarks(p)
		rt.addr.Send(PushModeAnnounceMsg{Pad: ref, WarnLevel: warn, Fail: fail})
	}
	rt.pads.LinkingFinished()
	if ref.IsDynamic() {
		rt.addr.Send(PadAddedMsg{Ref: ref})
	}
	rt.telemetry.Emit(linkEvent(rt.name, ref))
	return res, nil
}

const (
	defaultToiletWarn = 1000
	defaultToiletFail = 2000
)

// toiletWatermarks resolves p's configured toilet watermarks, falling back
// to the package defaults when its StaticPad declaration left them unset,
// per spec.md §6's per-pad "toilet { warn, fail }" option.
func toiletWatermarks(p *pad.Pad) (warn, fail int) {
	warn, fail = p.ToiletWarn, p.ToiletFail
	if warn <= 0 {
		warn = defaultToiletWarn
	}
	if fail <= 0 {
		fail = defaultToiletFail
	}
	return warn, fail
}

func (rt *Runtime) handleLinkMsg(msg LinkMsg) error {
	res, err := rt.pads.HandleLink(msg.ThisRef, msg.Peer, msg.OtherMode, msg.OtherDemandUnit, msg.OtherAcceptedCaps, msg.OtherCaps)
	msg.Reply <- linkReplyResult{Result: res, Err: err}
	if err != nil {
		return nil
	}
	if res.PushModeAnnounceNeeded {
		// msg.ThisRef is this runtime's own pad; enabling the toilet
		// targets it, never msg.Peer's pad on the other element.
		p, _ := rt.pads.Get(msg.ThisRef)
		warn, fail := toiletWatermarks(p)
		rt.addr.Send(PushModeAnnounceMsg{Pad: msg.ThisRef, WarnLevel: warn, Fail: fail})
	}
	rt.pads.LinkingFinished()
	rt.telemetry.Emit(linkEvent(rt.name, msg.ThisRef))
	if msg.ThisRef.IsDynamic() {
		return rt.handlePadAdded(msg.ThisRef)
	}
	return nil
}

func (rt *Runtime) handleUnlinkMsg(msg UnlinkMsg) error {
	_, wasLinked := rt.pads.HandleUnlink(msg.Pad)
	if msg.Reply != nil {
		close(msg.Reply)
	}
	if !wasLinked || !msg.Pad.IsDynamic() {
		return nil
	}
	return rt.handlePadRemoved(msg.Pad)
}

func (rt *Runtime) handlePushModeAnnounce(msg PushModeAnnounceMsg) error {
	return rt.pads.EnableToiletIfPull(msg.Pad, msg.WarnLevel, msg.Fail)
}

// handlePadAdded invokes handle_pad_added once a dynamic pad's link has
// resolved and linking_finished has fired, per spec.md §4.2.
func (rt *Runtime) handlePadAdded(ref pad.Ref) error {
	res, err := rt.behavior.HandlePadAdded(ref, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	return rt.applyActions("handle_pad_added", res.Actions)
}

// handlePadRemoved invokes handle_pad_removed after a dynamic pad has been
// unlinked, per spec.md §4.2.
func (rt *Runtime) handlePadRemoved(ref pad.Ref) error {
	res, err := rt.behavior.HandlePadRemoved(ref, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	return rt.applyActions("handle_pad_removed", res.Actions)
}
