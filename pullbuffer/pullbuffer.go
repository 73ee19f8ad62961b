package pullbuffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dustin/go-humanize"

	"corestream/internal/elog"
)

// ErrToiletOverflow is returned when a toilet-mode PullBuffer crosses its
// fail_level, per spec.md §7 (ToiletOverflow{pad, size}).
type ErrToiletOverflow struct {
	Pad  string
	Size int
}

func (e *ErrToiletOverflow) Error() string {
	return fmt.Sprintf("pullbuffer: toilet overflow on %s at size %s", e.Pad, humanize.Comma(int64(e.Size)))
}

// ErrEmptySplit is a programming-error guard: spec.md §7 treats invariant
// violations as bugs, not recoverable conditions.
var ErrEmptySplit = errors.New("pullbuffer: split produced an empty head")

// Upstream is the minimal interface a PullBuffer needs to issue demand.
// PullBuffer sits below the pad package in the dependency order (spec.md
// §2), so it cannot reference pad.Ref directly; inputRef is opaque here and
// is whatever the owning pad package passes through at construction.
type Upstream interface {
	SendDemand(toDemand int, inputRef any) error
}

// NonBuffer is an in-order marker for an event or caps value that must be
// delivered relative to buffers in the order it was stored.
type NonBuffer struct {
	Kind  string // "event" or "caps"
	Value any
}

type recordKind int

const (
	kindBuffers recordKind = iota
	kindNonBuffer
)

type record struct {
	kind      recordKind
	buffers   []Buffer
	count     int
	nonBuffer NonBuffer
}

// ItemKind distinguishes the entries returned by Take.
type ItemKind int

const (
	ItemBuffer ItemKind = iota
	ItemNonBuffer
)

// Item is one ordered entry in a TakeResult.
type Item struct {
	Kind      ItemKind
	Buffer    Buffer
	NonBuffer NonBuffer
}

// TakeResult is the outcome of Take, distinguishing "at least one buffer
// was produced" (Value in spec.md §4.3) from "only markers were available"
// (Empty in spec.md §4.3).
type TakeResult struct {
	Items      []Item
	HasBuffers bool
}

// Toilet holds the overflow watermarks for a push-fed pull input, per
// spec.md §3 ("a pair (warn_level, fail_level)").
type Toilet struct {
	WarnLevel int
	FailLevel int
	warned    bool
}

// Options configures a new PullBuffer. A zero PreferredSize falls back to
// the metric's default and a zero MinDemand to PreferredSize/4, per
// spec.md §4.3.
type Options struct {
	PreferredSize int
	MinDemand     int
	Toilet        *Toilet
}

// PullBuffer is the in-order queue described in spec.md §4.3.
type PullBuffer struct {
	name      string
	upstream  Upstream
	inputRef  any
	metric    Metric
	log       elog.Logger

	mu            sync.Mutex
	preferredSize int
	minDemand     int
	currentSize   int
	demand        int
	toilet        *Toilet
	queue         []record
}

// New builds a PullBuffer and, unless in toilet mode, immediately issues
// an initial demand of preferred_size upstream (spec.md §4.3).
func New(name string, upstream Upstream, inputRef any, metric Metric, opts Options) *PullBuffer {
	preferred := opts.PreferredSize
	if preferred <= 0 {
		preferred = metric.DefaultPreferredSize()
	}
	minDemand := opts.MinDemand
	if minDemand <= 0 {
		minDemand = preferred / 4
	}

	pb := &PullBuffer{
		name:          name,
		upstream:      upstream,
		inputRef:      inputRef,
		metric:        metric,
		log:           elog.New("pullbuffer"),
		preferredSize: preferred,
		minDemand:     minDemand,
		toilet:        opts.Toilet,
	}

	if pb.toilet == nil {
		pb.applyDemandDelta(preferred)
	}
	return pb
}

// EnableToilet switches a non-toilet PullBuffer into toilet mode, invoked
// when a push-mode peer announces itself to a pull input pad (spec.md
// §4.2's enable_toilet_if_pull).
func (pb *PullBuffer) EnableToilet(warn, fail int) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.toilet = &Toilet{WarnLevel: warn, FailLevel: fail}
}

// Empty reports whether the buffer holds no buffered payload units.
func (pb *PullBuffer) Empty() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.currentSize == 0
}

// CurrentSize returns the sum of counts of enqueued buffer records,
// maintained as the invariant in spec.md §3.
func (pb *PullBuffer) CurrentSize() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.currentSize
}

// Demand returns the outstanding signed credit counter.
func (pb *PullBuffer) Demand() int {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.demand
}

// StoreBuffers appends a batch of buffers, per spec.md §4.3. In toilet
// mode, crossing warn_level logs a warning and crossing fail_level returns
// ErrToiletOverflow (the batch is still enqueued; overflow is fatal to the
// receiving element, not to the queue itself, per spec.md §7).
func (pb *PullBuffer) StoreBuffers(batch []Buffer) error {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	count := pb.metric.Count(batch)
	before := pb.currentSize
	pb.queue = append(pb.queue, record{kind: kindBuffers, buffers: batch, count: count})
	pb.currentSize += count

	if pb.toilet != nil {
		return pb.checkToiletLocked(before)
	}

	if before >= pb.preferredSize {
		pb.log.Printf("%s: overdelivery, current_size=%s preferred_size=%s",
			pb.name, humanize.Comma(int64(pb.currentSize)), humanize.Comma(int64(pb.preferredSize)))
	}
	return nil
}

// StoreNonBuffer appends an in-order event/caps marker, preserving delivery
// order relative to buffers (spec.md §4.3).
func (pb *PullBuffer) StoreNonBuffer(kind string, value any) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.queue = append(pb.queue, record{kind: kindNonBuffer, nonBuffer: NonBuffer{Kind: kind, Value: value}})
}

func (pb *PullBuffer) checkToiletLocked(before int) error {
	t := pb.toilet
	if pb.currentSize >= t.FailLevel {
		return &ErrToiletOverflow{Pad: pb.name, Size: pb.currentSize}
	}
	if !t.warned && before < t.WarnLevel && pb.currentSize >= t.WarnLevel {
		t.warned = true
		pb.log.Printf("%s: toilet warn_level crossed, current_size=%s warn_level=%s",
			pb.name, humanize.Comma(int64(pb.currentSize)), humanize.Comma(int64(t.WarnLevel)))
	}
	return nil
}

// Take pops up to count units, splitting a buffer record at a boundary
// when necessary, and returns the ordered items produced (spec.md §4.3).
// After returning, it drives the demand algorithm with the number of
// units actually consumed.
func (pb *PullBuffer) Take(count int) (TakeResult, error) {
	pb.mu.Lock()

	var items []Item
	consumed := 0
	sawBuffer := false

	for len(pb.queue) > 0 {
		rec := pb.queue[0]

		if rec.kind == kindNonBuffer {
			items = append(items, Item{Kind: ItemNonBuffer, NonBuffer: rec.nonBuffer})
			pb.queue = pb.queue[1:]
			continue
		}

		if count <= 0 || consumed >= count {
			break
		}

		remaining := count - consumed
		recCount := pb.metric.Count(rec.buffers)

		if recCount <= remaining {
			for _, b := range rec.buffers {
				items = append(items, Item{Kind: ItemBuffer, Buffer: b})
			}
			consumed += recCount
			pb.currentSize -= recCount
			sawBuffer = true
			pb.queue = pb.queue[1:]
			continue
		}

		head, tail := pb.metric.Split(rec.buffers, remaining)
		if len(head) == 0 {
			// Splitting here would produce an empty head; leave the
			// record whole and stop (spec.md §4.3).
			break
		}
		for _, b := range head {
			items = append(items, Item{Kind: ItemBuffer, Buffer: b})
		}
		headCount := pb.metric.Count(head)
		consumed += headCount
		pb.currentSize -= headCount
		sawBuffer = true

		if len(tail) == 0 {
			pb.queue = pb.queue[1:]
		} else {
			pb.queue[0] = record{kind: kindBuffers, buffers: tail, count: pb.metric.Count(tail)}
		}
	}

	toilet := pb.toilet
	pb.mu.Unlock()

	if toilet == nil && consumed > 0 {
		pb.applyDemandDelta(consumed)
	}

	return TakeResult{Items: items, HasBuffers: sawBuffer}, nil
}

// applyDemandDelta runs the demand algorithm from spec.md §4.3, steps 1-3.
func (pb *PullBuffer) applyDemandDelta(delta int) {
	pb.mu.Lock()
	newDemand := pb.demand + delta
	currentSize := pb.currentSize
	preferred := pb.preferredSize
	minDemand := pb.minDemand

	var toDemand int
	send := false
	if currentSize < preferred && newDemand > 0 {
		toDemand = newDemand
		if minDemand > toDemand {
			toDemand = minDemand
		}
		pb.demand = newDemand - toDemand
		send = true
	} else {
		pb.demand = newDemand
	}
	upstream, inputRef := pb.upstream, pb.inputRef
	pb.mu.Unlock()

	if send && upstream != nil {
		if err := upstream.SendDemand(toDemand, inputRef); err != nil {
			pb.log.Printf("%s: send demand %d failed: %v", pb.name, toDemand, err)
		}
	}
}
