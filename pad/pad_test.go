package pad

import (
	"testing"

	"corestream/pullbuffer"
)

func testMetricFor(DemandUnit) pullbuffer.Metric { return pullbuffer.BufferMetric{} }

func noopSender(PeerRef, int, any) error { return nil }

func TestCheckModeCompatibilityTable(t *testing.T) {
	cases := []struct {
		out, in    Mode
		wantOK     bool
		wantToilet bool
	}{
		{Push, Push, true, false},
		{Pull, Pull, true, false},
		{Push, Pull, true, true},
		{Pull, Push, false, false},
	}
	for _, c := range cases {
		ok, toilet := CheckModeCompatibility(c.out, c.in)
		if ok != c.wantOK || toilet != c.wantToilet {
			t.Errorf("CheckModeCompatibility(%v,%v) = (%v,%v), want (%v,%v)",
				c.out, c.in, ok, toilet, c.wantOK, c.wantToilet)
		}
	}
}

func TestGetPadRefStaticReturnsName(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "sink", Direction: Input, Mode: Push, Availability: Always},
	}, noopSender, testMetricFor)

	ref, err := ps.GetPadRef("sink")
	if err != nil {
		t.Fatalf("GetPadRef: %v", err)
	}
	if ref.IsDynamic() || ref.Name != "sink" {
		t.Fatalf("ref = %+v, want static sink", ref)
	}
}

func TestGetPadRefDynamicAllocatesGenerations(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "src_%u", Direction: Output, Mode: Push, Availability: OnRequest},
	}, noopSender, testMetricFor)

	r1, err := ps.GetPadRef("src_%u")
	if err != nil {
		t.Fatalf("GetPadRef 1: %v", err)
	}
	r2, err := ps.GetPadRef("src_%u")
	if err != nil {
		t.Fatalf("GetPadRef 2: %v", err)
	}
	if !r1.IsDynamic() || !r2.IsDynamic() {
		t.Fatal("expected dynamic refs")
	}
	if r1.Generation == r2.Generation {
		t.Fatalf("expected distinct generations, got %d twice", r1.Generation)
	}
}

func TestHandleLinkRejectsPullOutputPushInput(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Push, Availability: Always},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	_, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Pull, Buffers, nil, nil)
	if err == nil {
		t.Fatal("expected mode mismatch error for pull output -> push input")
	}
}

func TestHandleLinkCreatesCreditBufferForPullPull(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Pull, DemandUnit: Buffers, Availability: Always},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	res, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Pull, Buffers, nil, nil)
	if err != nil {
		t.Fatalf("HandleLink: %v", err)
	}
	if res.PushModeAnnounceNeeded {
		t.Fatal("pull-pull link should not need a push mode announcement")
	}
	if res.Pad.Buffer() == nil {
		t.Fatal("expected a PullBuffer to be created for a pull input pad")
	}
}

func TestHandleLinkPushOutputPullInputDefersToiletCreation(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Pull, DemandUnit: Buffers, Availability: Always},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	res, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Push, Buffers, nil, nil)
	if err != nil {
		t.Fatalf("HandleLink: %v", err)
	}
	if !res.PushModeAnnounceNeeded {
		t.Fatal("push output -> pull input should require an announcement")
	}
	if res.Pad.Buffer() != nil {
		t.Fatal("toilet buffer should not be created until the announcement arrives")
	}

	if err := ps.EnableToiletIfPull(ref, 200, 400); err != nil {
		t.Fatalf("EnableToiletIfPull: %v", err)
	}
	p, _ := ps.Get(ref)
	if p.Buffer() == nil {
		t.Fatal("expected toilet buffer after EnableToiletIfPull")
	}
}

func TestHandleLinkHonorsPerPadPreferredSize(t *testing.T) {
	sent := 0
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Pull, DemandUnit: Buffers, Availability: Always, PreferredSize: 50},
	}, func(_ PeerRef, n int, _ any) error { sent = n; return nil }, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	if _, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Pull, Buffers, nil, nil); err != nil {
		t.Fatalf("HandleLink: %v", err)
	}
	if got := sent; got != 50 {
		t.Fatalf("expected initial demand to follow the pad's configured preferred_size of 50, got %d", got)
	}
}

func TestEnableToiletIfPullHonorsPerPadPreferredSize(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Pull, DemandUnit: Buffers, Availability: Always, PreferredSize: 40, MinDemand: 10},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	if _, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Push, Buffers, nil, nil); err != nil {
		t.Fatalf("HandleLink: %v", err)
	}
	if err := ps.EnableToiletIfPull(ref, 200, 400); err != nil {
		t.Fatalf("EnableToiletIfPull: %v", err)
	}
	p, _ := ps.Get(ref)
	if p.Buffer() == nil {
		t.Fatal("expected a toilet buffer")
	}
}

func TestHandleLinkRejectsDoubleLink(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Push, Availability: Always},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	if _, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Push, Buffers, nil, nil); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if _, err := ps.HandleLink(ref, PeerRef{Pad: StaticRef("out2")}, Push, Buffers, nil, nil); err == nil {
		t.Fatal("expected AlreadyLinked error on second link")
	}
}

func TestHandleUnlinkIsIdempotent(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Push, Availability: Always},
	}, noopSender, testMetricFor)

	ref, _ := ps.GetPadRef("in")
	ps.HandleLink(ref, PeerRef{Pad: StaticRef("out")}, Push, Buffers, nil, nil)

	p, wasLinked := ps.HandleUnlink(ref)
	if p == nil || !wasLinked {
		t.Fatal("expected first unlink to report the pad was linked")
	}
	if p.Linked() {
		t.Fatal("pad should be unlinked after HandleUnlink")
	}

	// Idempotent: a second unlink does not error or panic.
	p2, wasLinked2 := ps.HandleUnlink(ref)
	if p2 == nil || wasLinked2 {
		t.Fatal("second unlink should report already-unlinked, not error")
	}
}

func TestStartEndOfStreamMonotone(t *testing.T) {
	ps := NewPadSet([]StaticPad{
		{Name: "in", Direction: Input, Mode: Push, Availability: Always},
	}, noopSender, testMetricFor)
	ref, _ := ps.GetPadRef("in")
	p, _ := ps.Get(ref)

	if !p.MarkStartOfStream() {
		t.Fatal("first MarkStartOfStream should succeed")
	}
	if p.MarkStartOfStream() {
		t.Fatal("second MarkStartOfStream should report already set")
	}
	if p.EndOfStream() {
		t.Fatal("end of stream should still be false")
	}
	if !p.MarkEndOfStream() {
		t.Fatal("first MarkEndOfStream should succeed")
	}
	if !p.StartOfStream() {
		t.Fatal("start of stream must precede end of stream")
	}
}
