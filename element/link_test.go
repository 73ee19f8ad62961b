package element

import (
	"testing"

	"corestream/pad"
)

func fakePeerAddress() *Address {
	return &Address{name: "peer", mailbox: make(chan Message, 1)}
}

func TestHandleLinkMsgEmitsPadAddedForDynamicPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "sink_%u", Direction: pad.Input, Mode: pad.Push, Availability: pad.OnRequest},
	})
	ref, err := rt.pads.GetPadRef("sink_%u")
	if err != nil {
		t.Fatalf("GetPadRef: %v", err)
	}

	reply := make(chan linkReplyResult, 1)
	if err := rt.handleLinkMsg(LinkMsg{
		ThisRef:   ref,
		Peer:      pad.PeerRef{Element: fakePeerAddress(), Pad: pad.StaticRef("src")},
		OtherMode: pad.Push,
		Reply:     reply,
	}); err != nil {
		t.Fatalf("handleLinkMsg: %v", err)
	}
	if rep := <-reply; rep.Err != nil {
		t.Fatalf("link result error: %v", rep.Err)
	}

	if len(fb.padsAdded) != 1 || fb.padsAdded[0] != ref {
		t.Fatalf("expected handle_pad_added(%v), got %v", ref, fb.padsAdded)
	}
}

func TestHandleLinkMsgSkipsPadAddedForStaticPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "sink", Direction: pad.Input, Mode: pad.Push, Availability: pad.Always},
	})
	ref := pad.StaticRef("sink")

	reply := make(chan linkReplyResult, 1)
	if err := rt.handleLinkMsg(LinkMsg{
		ThisRef:   ref,
		Peer:      pad.PeerRef{Element: fakePeerAddress(), Pad: pad.StaticRef("src")},
		OtherMode: pad.Push,
		Reply:     reply,
	}); err != nil {
		t.Fatalf("handleLinkMsg: %v", err)
	}
	<-reply

	if len(fb.padsAdded) != 0 {
		t.Fatalf("a static pad's link should never emit handle_pad_added, got %v", fb.padsAdded)
	}
}

func TestHandleUnlinkMsgEmitsPadRemovedForDynamicPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "sink_%u", Direction: pad.Input, Mode: pad.Push, Availability: pad.OnRequest},
	})
	ref, _ := rt.pads.GetPadRef("sink_%u")

	reply := make(chan linkReplyResult, 1)
	if err := rt.handleLinkMsg(LinkMsg{
		ThisRef:   ref,
		Peer:      pad.PeerRef{Element: fakePeerAddress(), Pad: pad.StaticRef("src")},
		OtherMode: pad.Push,
		Reply:     reply,
	}); err != nil {
		t.Fatalf("handleLinkMsg: %v", err)
	}
	<-reply

	unlinkReply := make(chan struct{})
	if err := rt.handleUnlinkMsg(UnlinkMsg{Pad: ref, Reply: unlinkReply}); err != nil {
		t.Fatalf("handleUnlinkMsg: %v", err)
	}

	if len(fb.padsRemoved) != 1 || fb.padsRemoved[0] != ref {
		t.Fatalf("expected handle_pad_removed(%v), got %v", ref, fb.padsRemoved)
	}
}

func TestHandleUnlinkMsgSkipsPadRemovedWhenNeverLinked(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "sink_%u", Direction: pad.Input, Mode: pad.Push, Availability: pad.OnRequest},
	})
	ref, _ := rt.pads.GetPadRef("sink_%u")

	if err := rt.handleUnlinkMsg(UnlinkMsg{Pad: ref}); err != nil {
		t.Fatalf("handleUnlinkMsg: %v", err)
	}
	if len(fb.padsRemoved) != 0 {
		t.Fatalf("an unlinked pad was never added; should not emit handle_pad_removed, got %v", fb.padsRemoved)
	}
}

// TestHandleLinkMsgTargetsOwnPadForPushModeAnnounce guards the routing fix:
// the push_mode_announcement this runtime queues for itself must name its
// own pull-input pad (and that pad's configured watermarks), never the
// peer's pad.
func TestHandleLinkMsgTargetsOwnPadForPushModeAnnounce(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "in", Direction: pad.Input, Mode: pad.Pull, DemandUnit: pad.Buffers, Availability: pad.Always, ToiletWarn: 10, ToiletFail: 20},
	})
	ref := pad.StaticRef("in")

	reply := make(chan linkReplyResult, 1)
	if err := rt.handleLinkMsg(LinkMsg{
		ThisRef:   ref,
		Peer:      pad.PeerRef{Element: fakePeerAddress(), Pad: pad.StaticRef("src")},
		OtherMode: pad.Push,
		Reply:     reply,
	}); err != nil {
		t.Fatalf("handleLinkMsg: %v", err)
	}
	if rep := <-reply; rep.Err != nil {
		t.Fatalf("link result error: %v", rep.Err)
	}

	select {
	case msg := <-rt.addr.mailbox:
		pm, ok := msg.(PushModeAnnounceMsg)
		if !ok {
			t.Fatalf("expected a queued PushModeAnnounceMsg, got %T", msg)
		}
		if pm.Pad != ref {
			t.Fatalf("push_mode_announcement must target this runtime's own pad %v, got %v", ref, pm.Pad)
		}
		if pm.WarnLevel != 10 || pm.Fail != 20 {
			t.Fatalf("expected the pad's configured watermarks (10, 20), got (%d, %d)", pm.WarnLevel, pm.Fail)
		}
	default:
		t.Fatal("expected a push_mode_announcement queued in this runtime's own mailbox")
	}
}
