package element

import (
	"testing"

	"corestream/pad"
)

func TestValidateActionRejectsBufferFromInputPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "in", Direction: pad.Input, Mode: pad.Push, Availability: pad.Always},
	})
	ref := pad.StaticRef("in")

	err := rt.applyAction("handle_process", BufferAction(ref, buf()))
	if _, ok := err.(*InvalidAction); !ok {
		t.Fatalf("expected *InvalidAction, got %v", err)
	}
}

func TestValidateActionAllowsBufferFromOutputPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "out", Direction: pad.Output, Mode: pad.Push, Availability: pad.Always},
	})
	ref := pad.StaticRef("out")

	if err := rt.applyAction("handle_process", BufferAction(ref, buf())); err != nil {
		t.Fatalf("unexpected error for a valid buffer action on an unlinked output pad: %v", err)
	}
}

func TestValidateActionRejectsDemandFromOutputPad(t *testing.T) {
	fb := &fakeBehavior{}
	rt := newTestRuntime(t, fb, []pad.StaticPad{
		{Name: "out", Direction: pad.Output, Mode: pad.Push, Availability: pad.Always},
	})
	ref := pad.StaticRef("out")

	err := rt.applyAction("handle_process", DemandAction(ref, 10, pad.Buffers))
	if _, ok := err.(*InvalidAction); !ok {
		t.Fatalf("expected *InvalidAction, got %v", err)
	}
}
