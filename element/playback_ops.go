package element

import "corestream/pullbuffer"

// handlePlayback drives the playback state machine one adjacent step at a
// time from the current state to target, per spec.md §4.3.
func (rt *Runtime) handlePlayback(target PlaybackState) error {
	for rt.getPlayback() != target {
		next, err := nextStep(rt.getPlayback(), target)
		if err != nil {
			return err
		}
		if err := rt.transition(next); err != nil {
			return err
		}
	}
	return nil
}

func (rt *Runtime) transition(next PlaybackState) error {
	var res Result
	var err error
	var callback string

	cur := rt.getPlayback()
	switch {
	case cur == Stopped && next == Prepared:
		callback = "handle_stopped_to_prepared"
		res, err = rt.behavior.HandleStoppedToPrepared(rt.ctx(), rt.state)
	case cur == Prepared && next == Playing:
		callback = "handle_prepared_to_playing"
		res, err = rt.behavior.HandlePreparedToPlaying(rt.ctx(), rt.state)
	case cur == Playing && next == Prepared:
		callback = "handle_playing_to_prepared"
		res, err = rt.behavior.HandlePlayingToPrepared(rt.ctx(), rt.state)
	case cur == Prepared && next == Stopped:
		callback = "handle_prepared_to_stopped"
		res, err = rt.behavior.HandlePreparedToStopped(rt.ctx(), rt.state)
	default:
		return &BadActivityRequest{From: cur, To: next}
	}
	if err != nil {
		return err
	}
	rt.state = res.State
	if err := rt.applyActions(callback, res.Actions); err != nil {
		return err
	}

	if next == Playing {
		if err := rt.drainIntoPlaying(); err != nil {
			// Abort: the element remains Prepared and the undrained tail
			// of the queue stays in place for the next attempt, per
			// spec.md §4.6. Wrapped so the caller sees the underlying
			// error but the dispatch loop treats it as request-level
			// rather than fatal.
			return &transitionAborted{Err: err}
		}
	}
	rt.setPlayback(next)
	return nil
}

// drainIntoPlaying empties the PlaybackBuffer in FIFO order, coalescing
// runs of consecutive Buffer messages addressed to the same pad into a
// single handle_process call (spec.md §8 scenario 3: two queued buffers
// for one pad surface as exactly one handle_process([b1, b2]) call, not
// two). A message is only popped off the queue once it (and, for a
// coalesced run, every message folded into it) has been dispatched
// successfully, so a failure partway through leaves the untouched
// remainder queued for the next attempt.
func (rt *Runtime) drainIntoPlaying() error {
	for {
		msg, ok := rt.buffer.Peek(0)
		if !ok {
			return nil
		}
		bm, isBuffer := msg.(BufferMsg)
		if !isBuffer {
			if err := rt.dispatchData(msg); err != nil {
				return err
			}
			rt.buffer.PopN(1)
			continue
		}

		batch := append([]pullbuffer.Buffer(nil), bm.Buffers...)
		n := 1
		for {
			next, ok := rt.buffer.Peek(n)
			if !ok {
				break
			}
			nb, ok := next.(BufferMsg)
			if !ok || nb.Pad != bm.Pad {
				break
			}
			batch = append(batch, nb.Buffers...)
			n++
		}
		if err := rt.dispatchData(BufferMsg{Pad: bm.Pad, Buffers: batch}); err != nil {
			return err
		}
		rt.buffer.PopN(n)
	}
}
