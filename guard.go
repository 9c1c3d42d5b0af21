package safedrive

import (
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/xbroquer/safe-drive/runtime"
)

// GuardCondition is a reference-counted, userspace-triggerable wake source
// (spec.md §2 item 5, §4.4). Triggering it from any goroutine wakes any
// Selector it is registered with, with this guard marked ready.
type GuardCondition struct {
	ctx    *Context
	handle runtime.GuardHandle
	id     uuid.UUID
	refs   atomic.Int32
}

func newGuardCondition(ctx *Context) (*GuardCondition, error) {
	h, err := ctx.gate.NewGuardCondition(ctx.handle)
	if err != nil {
		return nil, &BadAllocError{What: "guard condition", Cause: err}
	}
	g := &GuardCondition{ctx: ctx, handle: h, id: uuid.New()}
	g.refs.Store(1)
	return g, nil
}

// Context returns the guard condition's owning Context.
func (g *GuardCondition) Context() *Context { return g.ctx }

// Trigger wakes every Selector this guard is registered with.
func (g *GuardCondition) Trigger() error {
	return g.ctx.gate.TriggerGuardCondition(g.handle)
}

// Clone returns another reference to the same underlying guard condition,
// incrementing its reference count (spec.md §3: "shared, Selector holds one
// reference; triggerer holds another"). Close must be called once per
// Clone, including the original, before the guard condition is actually
// destroyed.
func (g *GuardCondition) Clone() *GuardCondition {
	g.refs.Add(1)
	return g
}

// Close releases one reference; the underlying runtime guard condition is
// destroyed only when the last reference is closed.
func (g *GuardCondition) Close() error {
	if g.refs.Add(-1) > 0 {
		return nil
	}
	return g.ctx.gate.DestroyGuardCondition(g.handle)
}
