// Package syncbarrier implements the multi-element rendezvous from
// spec.md §4.7: N registered participants block on Sync until all have
// called it, then are released simultaneously up to latency compensation.
package syncbarrier

import (
	"errors"
	"sync"
	"time"
)

// ErrBadActivityRequest is returned for an operation forbidden in the
// barrier's current state (spec.md §7, BadActivityRequest).
var ErrBadActivityRequest = errors.New("syncbarrier: bad activity request")

// ParticipantID identifies one registered participant.
type ParticipantID string

type status int

const (
	statusRegistered status = iota
	statusSync
)

type participant struct {
	status  status
	latency time.Duration
	release chan struct{}
}

// Barrier is the sync rendezvous object described in spec.md §4.7.
type Barrier struct {
	mu           sync.Mutex
	participants map[ParticipantID]*participant
	active       bool
	emptyExit    bool
	onEmpty      func()
}

// New returns an inactive Barrier. If emptyExit is true, the barrier
// considers itself finished (onEmpty, if set, fires once) when the last
// registered participant is removed.
func New(emptyExit bool) *Barrier {
	return &Barrier{
		participants: make(map[ParticipantID]*participant),
		emptyExit:    emptyExit,
	}
}

// OnEmpty installs a callback invoked when emptyExit is set and the last
// participant has been unregistered, so an owner can self-terminate.
func (b *Barrier) OnEmpty(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEmpty = fn
}

// Register adds a participant. Only permitted while the barrier is inactive.
func (b *Barrier) Register(id ParticipantID) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.active {
		return ErrBadActivityRequest
	}
	b.participants[id] = &participant{status: statusRegistered}
	return nil
}

// Unregister removes a participant, modeling the monitor-observed exit in
// spec.md §4.7. If emptyExit is set and no participants remain, onEmpty
// fires (at most once per emptiness transition).
func (b *Barrier) Unregister(id ParticipantID) {
	b.mu.Lock()
	p, ok := b.participants[id]
	if ok {
		delete(b.participants, id)
		if p.release != nil {
			close(p.release)
		}
	}
	empty := len(b.participants) == 0
	onEmpty := b.onEmpty
	b.mu.Unlock()

	if ok && empty && b.emptyExit && onEmpty != nil {
		onEmpty()
	}
}

// Activate flips the barrier active. Re-activating an already-active
// barrier is an error.
func (b *Barrier) Activate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.active {
		return ErrBadActivityRequest
	}
	b.active = true
	return nil
}

// Deactivate flips the barrier inactive. Deactivating an already-inactive
// barrier is an error.
func (b *Barrier) Deactivate() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.active {
		return ErrBadActivityRequest
	}
	b.active = false
	return nil
}

// Active reports whether the barrier currently accepts Sync calls.
func (b *Barrier) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Sync is called by a registered participant to join the current round.
// If the barrier is inactive, the returned channel is already closed
// (immediate release). If active, the channel closes once every registered
// participant has called Sync, delayed by (max_latency - latency) so all
// cohorts land on a common deadline (spec.md §4.7, scenario 4 in §8).
func (b *Barrier) Sync(id ParticipantID, latency time.Duration) (<-chan struct{}, error) {
	b.mu.Lock()

	if !b.active {
		b.mu.Unlock()
		ch := make(chan struct{})
		close(ch)
		return ch, nil
	}

	p, ok := b.participants[id]
	if !ok {
		b.mu.Unlock()
		return nil, errors.New("syncbarrier: unknown participant")
	}

	p.status = statusSync
	p.latency = latency
	p.release = make(chan struct{})
	ch := p.release

	if !b.allSyncedLocked() {
		b.mu.Unlock()
		return ch, nil
	}

	b.releaseRoundLocked()
	b.mu.Unlock()
	return ch, nil
}

func (b *Barrier) allSyncedLocked() bool {
	if len(b.participants) == 0 {
		return false
	}
	for _, p := range b.participants {
		if p.status != statusSync {
			return false
		}
	}
	return true
}

// releaseRoundLocked groups participants by latency and schedules each
// group's release at (max_latency - latency) from now, then resets every
// participant to registered for the next round. Must be called with b.mu
// held.
func (b *Barrier) releaseRoundLocked() {
	var maxLatency time.Duration
	for _, p := range b.participants {
		if p.latency > maxLatency {
			maxLatency = p.latency
		}
	}

	groups := make(map[time.Duration][]chan struct{})
	for _, p := range b.participants {
		groups[p.latency] = append(groups[p.latency], p.release)
	}

	for latency, chans := range groups {
		delay := maxLatency - latency
		chans := chans
		if delay <= 0 {
			for _, ch := range chans {
				close(ch)
			}
			continue
		}
		time.AfterFunc(delay, func() {
			for _, ch := range chans {
				close(ch)
			}
		})
	}

	for _, p := range b.participants {
		p.status = statusRegistered
		p.release = nil
	}
}
