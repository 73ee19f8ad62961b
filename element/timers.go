package element

import (
	"time"

	"corestream/clock"
)

// startTimer begins a clock-scaled recurring timer owned by this runtime.
func (rt *Runtime) startTimer(id string, interval time.Duration, clk *clock.Clock) error {
	if clk == nil {
		// No clock given: run unscaled on a private clock at ratio 1.0.
		clk = clock.New("unscaled:" + id)
	}
	if err := rt.timers.Start(id, interval, clk); err != nil {
		return &TimerError{ID: id, Reason: err.Error()}
	}
	return nil
}

func (rt *Runtime) stopTimer(id string) error {
	if err := rt.timers.Stop(id); err != nil {
		return &TimerError{ID: id, Reason: err.Error()}
	}
	return nil
}

// forwardTicks relays fired ticks from the shared timer controller channel
// into this runtime's own mailbox, so tick handling goes through the same
// single dispatch loop as every other message instead of racing the
// playback state from a second goroutine.
func (rt *Runtime) forwardTicks() {
	for due := range rt.timers.Ticks() {
		if !rt.addr.Send(TimerTickMsg{TimerID: due.ID}) {
			rt.log.Printf("dropped tick for timer %s, mailbox full", due.ID)
		}
	}
}

func (rt *Runtime) handleTimerTick(msg TimerTickMsg) error {
	res, err := rt.behavior.HandleTick(msg.TimerID, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	if err := rt.applyActions("handle_tick", res.Actions); err != nil {
		return err
	}
	// Advance the timer's own next_tick by interval/ratio now that the
	// callback has returned, per spec.md §4.8 — Stop may already have
	// removed it (handle_tick can stop itself), which Advance treats as
	// a no-op.
	rt.timers.Advance(msg.TimerID)
	return nil
}
