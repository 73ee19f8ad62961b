// Package element's Runtime is the actor-like heart of corestream: one
// goroutine and one mailbox per element, running a Behavior's callbacks
// single-threaded and applying the Actions each callback returns.
package element

import (
	"fmt"
	"sync/atomic"

	"corestream/internal/elog"
	"corestream/pad"
	"corestream/telemetry"
	"corestream/timer"
)

// Options configures a new Runtime.
type Options struct {
	Name          string
	Behavior      Behavior
	Pads          []pad.StaticPad
	InitOpts      any
	Registry      *Registry
	Telemetry     telemetry.Sink
	Parent        *Address
	MailboxSize   int
	NotifyBufSize int
}

// Runtime owns one element's mailbox, pad set, playback state machine and
// per-element timer controller.
type Runtime struct {
	name     string
	addr     *Address
	pads     *pad.PadSet
	behavior Behavior
	state    any
	// playback is read from the registry's introspection goroutine as well
	// as this runtime's own dispatch loop, so it is stored atomically even
	// though the loop itself is the only writer.
	playback  atomic.Int32
	buffer    PlaybackBuffer
	timers    *timer.Controller
	registry  *Registry
	telemetry telemetry.Sink
	log       elog.Logger
	parent    *Address
	notifyCh  chan any
	done      chan struct{}
}

// NewRuntime constructs a Runtime in the stopped state and runs
// HandleInit. It does not start the dispatch loop; call Start for that.
func NewRuntime(opts Options) (*Runtime, error) {
	if opts.Behavior == nil {
		return nil, &InitError{Reason: "behavior is required"}
	}
	mailboxSize := opts.MailboxSize
	if mailboxSize <= 0 {
		mailboxSize = 64
	}
	notifyBuf := opts.NotifyBufSize
	if notifyBuf <= 0 {
		notifyBuf = 16
	}
	sink := opts.Telemetry
	if sink == nil {
		sink = telemetry.Nop{}
	}

	rt := &Runtime{
		name:      opts.Name,
		addr:      &Address{name: opts.Name, mailbox: make(chan Message, mailboxSize)},
		timers:    timer.NewController(),
		registry:  opts.Registry,
		telemetry: sink,
		log:       elog.New(opts.Name),
		parent:    opts.Parent,
		notifyCh:  make(chan any, notifyBuf),
		done:      make(chan struct{}),
	}
	rt.pads = pad.NewPadSet(opts.Pads, rt.sendDemandToPeer, metricFor)

	state, err := opts.Behavior.HandleInit(opts.InitOpts)
	if err != nil {
		return nil, &InitError{Reason: err.Error()}
	}
	rt.behavior = opts.Behavior
	rt.state = state
	return rt, nil
}

// Address returns this runtime's mailbox handle.
func (rt *Runtime) Address() *Address { return rt.addr }

// Notifications returns the channel ActionNotify delivers to.
func (rt *Runtime) Notifications() <-chan any { return rt.notifyCh }

// Start launches the dispatch loop and tick-forwarding goroutine, and
// registers the runtime for introspection.
func (rt *Runtime) Start() {
	if rt.registry != nil {
		rt.registry.add(rt)
	}
	rt.telemetry.Emit(lifecycleEvent("element.init", rt.name))
	go rt.forwardTicks()
	go rt.run()
}

// SetPlayback requests a playback state change and blocks until it
// completes or fails.
func (rt *Runtime) SetPlayback(target PlaybackState) error {
	reply := make(chan error, 1)
	if !rt.addr.Send(PlaybackMsg{Target: target, Reply: reply}) {
		return fmt.Errorf("element: mailbox unreachable")
	}
	return <-reply
}

func (rt *Runtime) run() {
	defer rt.shutdown()
	for {
		select {
		case msg, ok := <-rt.addr.mailbox:
			if !ok {
				return
			}
			if err := rt.dispatch(msg); err != nil {
				rt.fail(err)
				return
			}
		case <-rt.done:
			return
		}
	}
}

// fail implements spec.md §7's callback-error propagation rule: a
// callback error (from a data/control dispatch or a playback-transition
// callback) transitions the runtime to Stopped and notifies the parent,
// rather than leaving the last successful playback state in place behind
// a dead mailbox.
func (rt *Runtime) fail(err error) {
	rt.log.Printf("fatal: %v", err)
	rt.setPlayback(Stopped)
	rt.notify(err)
	if rt.parent != nil {
		rt.parent.Send(DownMsg{Parent: rt.name, Reason: err.Error()})
	}
}

// Stop terminates the dispatch loop without running HandlePreparedToStopped.
func (rt *Runtime) Stop() {
	close(rt.done)
}

func (rt *Runtime) shutdown() {
	rt.timers.Close()
	rt.behavior.HandleShutdown(rt.state)
	rt.telemetry.Emit(lifecycleEvent("element.terminate", rt.name))
	if rt.registry != nil {
		rt.registry.remove(rt.name)
	}
}

// getPlayback and setPlayback are the only accessors for rt.playback; the
// dispatch loop is the sole writer, but introspection (Registry.Snapshot)
// reads it from another goroutine, hence the atomic backing.
func (rt *Runtime) getPlayback() PlaybackState { return PlaybackState(rt.playback.Load()) }
func (rt *Runtime) setPlayback(s PlaybackState) { rt.playback.Store(int32(s)) }

func (rt *Runtime) ctx() *Context {
	return &Context{Name: rt.name, Pads: rt.pads}
}

func (rt *Runtime) info() Info {
	names := make([]string, 0)
	for _, p := range rt.pads.All() {
		names = append(names, p.Ref.String())
	}
	return Info{Name: rt.name, State: rt.getPlayback().String(), Pads: names}
}

func (rt *Runtime) handleOther(msg OtherMsg) error {
	res, err := rt.behavior.HandleOther(msg.Payload, rt.ctx(), rt.state)
	if err != nil {
		return err
	}
	rt.state = res.State
	return rt.applyActions("handle_other", res.Actions)
}

// sendDemandToPeer implements pad.DemandSender: it is invoked by a
// credit-based PullBuffer to ask the upstream element for more data.
func (rt *Runtime) sendDemandToPeer(peer pad.PeerRef, n int, inputRef any) error {
	addr, ok := peer.Element.(*Address)
	if !ok {
		return fmt.Errorf("element: peer is not an address")
	}
	unit := pad.Buffers
	if ref, ok := inputRef.(pad.Ref); ok {
		if p, ok := rt.pads.Get(ref); ok {
			unit = p.DemandUnit
		}
	}
	if !addr.Send(DemandMsg{Pad: peer.Pad, Size: n, Unit: unit}) {
		return fmt.Errorf("element: send demand to %s failed", addr.Name())
	}
	return nil
}
