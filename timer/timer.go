// Package timer implements the per-element Timer Controller from spec.md
// §4.8: scheduled ticks whose period is the nominal interval scaled by a
// clock's ratio. Firing is delivered asynchronously on a channel so the
// owning Element can fold timer_tick into its single-threaded message loop
// (spec.md §5) instead of racing a controller goroutine against callback
// state.
package timer

import (
	"fmt"
	"sync"
	"time"

	"corestream/clock"
)

// Due is a single fired timer notification, delivered on Controller.Ticks().
type Due struct {
	ID string
}

type entry struct {
	id       string
	interval time.Duration
	clk      *clock.Clock
	ratio    float64
	nextTick time.Time
}

// Controller owns every Timer belonging to one Element.
type Controller struct {
	mu       sync.Mutex
	timers   map[string]*entry
	clockSub map[string]func() // clock ID -> unsubscribe
	wake     chan struct{}
	due      chan Due
	closed   bool
	done     chan struct{}
}

// NewController starts the controller's scheduling goroutine. Call Close to
// stop it and release clock subscriptions.
func NewController() *Controller {
	c := &Controller{
		timers:   make(map[string]*entry),
		clockSub: make(map[string]func()),
		wake:     make(chan struct{}, 1),
		due:      make(chan Due, 16),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

// Ticks returns the channel on which fired timer IDs are delivered. The
// owning Element's message loop should forward each Due as a timer_tick
// message and, once the behavior's handle_tick callback returns, call
// Advance(id) to schedule the next occurrence.
func (c *Controller) Ticks() <-chan Due { return c.due }

// Start registers a new timer. Duplicate ids are rejected, matching
// spec.md §4.8 ("start_timer: rejects duplicate id").
func (c *Controller) Start(id string, interval time.Duration, clk *clock.Clock) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.timers[id]; exists {
		return fmt.Errorf("timer: duplicate id %q", id)
	}

	ratio := clk.Ratio()
	e := &entry{
		id:       id,
		interval: interval,
		clk:      clk,
		ratio:    ratio,
		nextTick: time.Now().Add(scaled(interval, ratio)),
	}
	c.timers[id] = e

	if _, subscribed := c.clockSub[clk.ID()]; !subscribed {
		ch, unsubscribe := clk.Subscribe()
		c.clockSub[clk.ID()] = unsubscribe
		go c.watchClock(clk.ID(), ch)
	}

	c.wakeLocked()
	return nil
}

// Stop removes a timer. If it was the last timer bound to its clock, the
// controller unsubscribes from that clock.
func (c *Controller) Stop(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.timers[id]
	if !ok {
		return fmt.Errorf("timer: unknown id %q", id)
	}
	delete(c.timers, id)

	stillUsed := false
	for _, other := range c.timers {
		if other.clk.ID() == e.clk.ID() {
			stillUsed = true
			break
		}
	}
	if !stillUsed {
		if unsubscribe, ok := c.clockSub[e.clk.ID()]; ok {
			unsubscribe()
			delete(c.clockSub, e.clk.ID())
		}
	}
	return nil
}

// Advance moves a fired timer's next_tick forward by interval/ratio, per
// spec.md §4.8 ("handle_tick... then advances the timer's next_tick").
// It must be called after the owner's handle_tick callback has returned.
func (c *Controller) Advance(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.timers[id]
	if !ok {
		return
	}
	e.nextTick = time.Now().Add(scaled(e.interval, e.ratio))
	c.wakeLocked()
}

// Close stops the scheduling goroutine and every clock subscription.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, unsubscribe := range c.clockSub {
		unsubscribe()
	}
	c.clockSub = map[string]func(){}
	c.mu.Unlock()
	close(c.done)
}

func (c *Controller) watchClock(clockID string, ch <-chan clock.Update) {
	for u := range ch {
		c.handleClockUpdate(clockID, u.Ratio)
	}
}

// handleClockUpdate implements spec.md §4.8's handle_clock_update: every
// timer bound to the clock gets the new ratio and a recomputed next_tick.
func (c *Controller) handleClockUpdate(clockID string, ratio float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.timers {
		if e.clk.ID() != clockID {
			continue
		}
		e.ratio = ratio
		e.nextTick = time.Now().Add(scaled(e.interval, ratio))
	}
	c.wakeLocked()
}

func (c *Controller) wakeLocked() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) loop() {
	t := time.NewTimer(time.Hour)
	defer t.Stop()

	for {
		next, id, ok := c.earliest()
		if !ok {
			// Nothing scheduled; wait for a wake signal or shutdown.
			select {
			case <-c.done:
				return
			case <-c.wake:
				continue
			}
		}

		if !t.Stop() {
			select {
			case <-t.C:
			default:
			}
		}
		d := time.Until(next)
		if d < 0 {
			d = 0
		}
		t.Reset(d)

		select {
		case <-c.done:
			return
		case <-c.wake:
			continue
		case <-t.C:
			select {
			case c.due <- Due{ID: id}:
			case <-c.done:
				return
			}
		}
	}
}

func (c *Controller) earliest() (time.Time, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var best *entry
	for _, e := range c.timers {
		if best == nil || e.nextTick.Before(best.nextTick) {
			best = e
		}
	}
	if best == nil {
		return time.Time{}, "", false
	}
	return best.nextTick, best.id, true
}

func scaled(interval time.Duration, ratio float64) time.Duration {
	if ratio <= 0 {
		ratio = 1.0
	}
	return time.Duration(float64(interval) / ratio)
}
