package element

import (
	"corestream/pad"
	"corestream/pullbuffer"
)

// fakeBehavior records the calls tests care about and otherwise behaves
// like BaseBehavior; tests override individual hooks via the onX fields.
type fakeBehavior struct {
	BaseBehavior

	processCalls        [][]pullbuffer.Buffer
	onDemand            func(ref pad.Ref, size int, unit pad.DemandUnit) Result
	onStoppedToPrepared func() (Result, error)
	padsAdded           []pad.Ref
	padsRemoved         []pad.Ref
}

func (f *fakeBehavior) HandlePadAdded(ref pad.Ref, ctx *Context, state any) (Result, error) {
	f.padsAdded = append(f.padsAdded, ref)
	return Result{State: state}, nil
}

func (f *fakeBehavior) HandlePadRemoved(ref pad.Ref, ctx *Context, state any) (Result, error) {
	f.padsRemoved = append(f.padsRemoved, ref)
	return Result{State: state}, nil
}

func (f *fakeBehavior) HandleStoppedToPrepared(ctx *Context, state any) (Result, error) {
	if f.onStoppedToPrepared != nil {
		return f.onStoppedToPrepared()
	}
	return Result{State: state}, nil
}

func (f *fakeBehavior) HandleProcess(ref pad.Ref, buffers []pullbuffer.Buffer, ctx *Context, state any) (Result, error) {
	f.processCalls = append(f.processCalls, buffers)
	return Result{State: state}, nil
}

func (f *fakeBehavior) HandleDemand(ref pad.Ref, size int, unit pad.DemandUnit, ctx *Context, state any) (Result, error) {
	if f.onDemand != nil {
		return f.onDemand(ref, size, unit), nil
	}
	return Result{State: state}, nil
}
