// Toy source->filter->sink chain exercising the full corestream stack end
// to end: a timer-driven push-mode source, a pass-through filter, and a
// counting sink. These behaviors are deliberately trivial — the callback
// bodies are the "black box" spec.md §1 puts out of scope — they exist
// only to give cmd/elementctl something real to link, play, and introspect.
package main

import (
	"fmt"
	"sync/atomic"
	"time"

	"corestream/clock"
	"corestream/element"
	"corestream/pad"
	"corestream/pullbuffer"
)

const tickTimerID = "tick"

// toneSource emits one buffer downstream every tick, on a push-mode output
// pad, the same shape as the teacher's virtual test bot that "emits a 440 Hz
// tone" (rustyguts-bken's -test-user flag) adapted to corestream's Behavior
// contract instead of an audio track.
type toneSource struct {
	element.BaseBehavior
	interval time.Duration
	clk      *clock.Clock
	seq      atomic.Int64
}

func newToneSource(interval time.Duration, clk *clock.Clock) *toneSource {
	return &toneSource{interval: interval, clk: clk}
}

func (s *toneSource) pads() []pad.StaticPad {
	return []pad.StaticPad{
		{Name: "src", Direction: pad.Output, Mode: pad.Push, DemandUnit: pad.Buffers},
	}
}

func (s *toneSource) HandlePreparedToPlaying(_ *element.Context, state any) (element.Result, error) {
	return element.Result{
		State:   state,
		Actions: []element.Action{element.StartTimerAction(tickTimerID, s.interval, s.clk)},
	}, nil
}

func (s *toneSource) HandlePlayingToPrepared(_ *element.Context, state any) (element.Result, error) {
	return element.Result{
		State:   state,
		Actions: []element.Action{element.StopTimerAction(tickTimerID)},
	}, nil
}

func (s *toneSource) HandleTick(id string, _ *element.Context, state any) (element.Result, error) {
	if id != tickTimerID {
		return element.Result{State: state}, nil
	}
	n := s.seq.Add(1)
	payload := pullbuffer.NewPayload([]byte(fmt.Sprintf("sample-%d", n)))
	buf := pullbuffer.Buffer{Payload: payload, Metadata: map[string]any{"seq": n}}
	return element.Result{
		State:   state,
		Actions: []element.Action{element.BufferAction(pad.StaticRef("src"), buf)},
	}, nil
}

// passthroughFilter relays every buffer it receives to its output pad
// unchanged, after stamping a "filtered" metadata key — enough to prove
// handle_process ran rather than a no-op pass.
type passthroughFilter struct {
	element.BaseBehavior
}

func (f *passthroughFilter) pads() []pad.StaticPad {
	return []pad.StaticPad{
		{Name: "sink", Direction: pad.Input, Mode: pad.Push, DemandUnit: pad.Buffers},
		{Name: "src", Direction: pad.Output, Mode: pad.Push, DemandUnit: pad.Buffers},
	}
}

func (f *passthroughFilter) HandleProcess(ref pad.Ref, buffers []pullbuffer.Buffer, _ *element.Context, state any) (element.Result, error) {
	out := make([]pullbuffer.Buffer, len(buffers))
	for i, b := range buffers {
		meta := make(map[string]any, len(b.Metadata)+1)
		for k, v := range b.Metadata {
			meta[k] = v
		}
		meta["filtered"] = true
		out[i] = pullbuffer.Buffer{Payload: b.Payload, Metadata: meta}
	}
	return element.Result{
		State:   state,
		Actions: []element.Action{element.BufferAction(pad.StaticRef("src"), out...)},
	}, nil
}

func (f *passthroughFilter) HandleEvent(ref pad.Ref, ev element.Event, _ *element.Context, state any) (element.Result, error) {
	if ref.Name != "sink" {
		return element.Result{State: state}, nil
	}
	return element.Result{
		State:   state,
		Actions: []element.Action{element.EventAction(pad.StaticRef("src"), ev)},
	}, nil
}

// counterSinkState is the user state threaded through every callback,
// counting received buffers so the demo has something observable.
type counterSinkState struct {
	received int
}

type counterSink struct {
	element.BaseBehavior
	// received mirrors counterSinkState.received for callers outside the
	// runtime's dispatch loop (RunMetrics in main.go): state is only safe
	// to read from the owning goroutine, so the count is also kept here
	// behind an atomic for cross-goroutine reporting.
	received atomic.Int64
}

// Received returns the running total of buffers seen so far.
func (s *counterSink) Received() int64 { return s.received.Load() }

func (s *counterSink) pads() []pad.StaticPad {
	return []pad.StaticPad{
		{Name: "sink", Direction: pad.Input, Mode: pad.Push, DemandUnit: pad.Buffers},
	}
}

func (s *counterSink) HandleInit(opts any) (any, error) {
	return &counterSinkState{}, nil
}

func (s *counterSink) HandleProcess(_ pad.Ref, buffers []pullbuffer.Buffer, _ *element.Context, state any) (element.Result, error) {
	st := state.(*counterSinkState)
	st.received += len(buffers)
	s.received.Store(int64(st.received))
	return element.Result{State: st}, nil
}
