// Package clock implements the shared time source described in spec.md §3
// and §9: a Clock publishes a running ratio that scales nominal stream time
// to wall-clock time. Only the clock's owner ever mutates the ratio; timers
// and other subscribers observe updates through a broadcast channel.
package clock

import "sync"

// Update is one ratio notification delivered to a subscriber.
type Update struct {
	ClockID string
	Ratio   float64
}

// subBuf is the per-subscriber channel capacity. Ratio updates are rare
// relative to the tick rate they govern, so a small buffer combined with a
// non-blocking send (dropping the stale update in favor of the fresh one)
// keeps a slow subscriber from wedging the owner's SetRatio call.
const subBuf = 1

// Clock is a shared, named time-scaling source. A Clock built by New has
// ratio 1.0 (nominal time == wall-clock time) until the owner calls SetRatio.
type Clock struct {
	id string

	mu    sync.RWMutex
	ratio float64
	subs  map[int]chan Update
	nextN int
}

// New returns a Clock identified by id, with an initial ratio of 1.0.
func New(id string) *Clock {
	return &Clock{
		id:    id,
		ratio: 1.0,
		subs:  make(map[int]chan Update),
	}
}

// ID returns the clock's identity, used by timers to detect a shared clock.
func (c *Clock) ID() string { return c.id }

// Ratio returns the current ratio.
func (c *Clock) Ratio() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ratio
}

// Subscribe registers a new listener for ratio updates. The returned
// unsubscribe function must be called exactly once to release the slot.
func (c *Clock) Subscribe() (<-chan Update, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextN
	c.nextN++
	ch := make(chan Update, subBuf)
	c.subs[id] = ch

	unsubscribe := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(existing)
		}
	}
	return ch, unsubscribe
}

// SetRatio updates the clock's ratio and broadcasts the change to every
// subscriber. Per spec.md §5, only the clock's owner calls this.
func (c *Clock) SetRatio(ratio float64) {
	c.mu.Lock()
	c.ratio = ratio
	update := Update{ClockID: c.id, Ratio: ratio}
	subs := make([]chan Update, 0, len(c.subs))
	for _, ch := range c.subs {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			// Drain the stale pending update and replace it with the fresh
			// one; a subscriber only ever needs the most recent ratio.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}
}
