package safedrive

import (
	"context"
	"sync"
	"time"
	"unsafe"

	"github.com/google/uuid"
	"github.com/xbroquer/safe-drive/runtime"
)

// Context is an owned handle to one initialized middleware instance (spec.md
// §2 item 2, §3). Nodes, guard conditions, and selectors are all rooted in
// a Context; none of them may outlive it. Context itself tracks none of
// them back — see node.go's doc comment on back-references without cycles.
type Context struct {
	gate   *gate
	handle runtime.ContextHandle
	name   string

	asyncOnce sync.Once
	asyncSel  *asyncSelector
	asyncErr  error
}

// NewContext initializes a Context against the given middleware.
func NewContext(mw runtime.Middleware, opts ...ContextOption) (*Context, error) {
	o := resolveContextOptions(opts)
	g := newGate(mw)
	h, err := g.NewContext()
	if err != nil {
		return nil, &BadAllocError{What: "context", Cause: err}
	}
	logf(LevelDebug, "context initialized", map[string]any{"name": o.name})
	return &Context{gate: g, handle: h, name: o.name}, nil
}

// id returns the context's identity, used for the context-mismatch check in
// AddSubscriber and its siblings (spec.md §4 supplemented feature 3). It is
// derived from the Context's own address rather than its runtime handle ID,
// since two independent middleware instances may hand out the same handle
// ID for different contexts.
func (c *Context) id() runtime.HandleID { return runtime.HandleID(uintptr(unsafe.Pointer(c))) }

// CreateNode creates a named, namespaced Node rooted in this Context.
func (c *Context) CreateNode(name string, opts ...NodeOption) (*Node, error) {
	o := resolveNodeOptions(opts)
	h, err := c.gate.NewNode(c.handle, name, o.namespace)
	if err != nil {
		return nil, &BadAllocError{What: "node " + name, Cause: err}
	}
	return &Node{ctx: c, handle: h, name: name, namespace: o.namespace, id: uuid.New()}, nil
}

// CreateGuardCondition creates a userspace-triggerable wake source rooted in
// this Context (spec.md §2 item 5).
func (c *Context) CreateGuardCondition() (*GuardCondition, error) {
	return newGuardCondition(c)
}

// CreateSelector creates a synchronous demultiplexer bound to this Context.
func (c *Context) CreateSelector(opts ...SelectorOption) (*Selector, error) {
	return newSelector(c, opts...)
}

// asyncSelector lazily creates this Context's async selector singleton on
// first use (spec.md §3: "lazily created on first async await").
func (c *Context) asyncSelector() (*asyncSelector, error) {
	c.asyncOnce.Do(func() {
		c.asyncSel, c.asyncErr = newAsyncSelector(c)
	})
	return c.asyncSel, c.asyncErr
}

// Sleep suspends the calling goroutine until dur has elapsed or ctx is
// done, whichever comes first. It is the timer future half of spec.md
// §4.7's async public surface ("futures produced by recv() on
// Subscriber/Server/Client, and a timer future"), sharing this Context's
// background async selector rather than spawning a bare time.Timer.
func (c *Context) Sleep(ctx context.Context, dur time.Duration) error {
	as, err := c.asyncSelector()
	if err != nil {
		return err
	}
	woken := make(chan struct{}, 1)
	as.timer(dur, func() {
		select {
		case woken <- struct{}{}:
		default:
		}
	})
	select {
	case <-woken:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close destroys the underlying middleware instance. The caller must ensure
// every Node, guard condition, and Selector derived from this Context has
// already been closed (spec.md §3 invariant: no entity outlives its
// context). If an async selector was lazily created, it is torn down
// first.
func (c *Context) Close() error {
	if c.asyncSel != nil {
		_ = c.asyncSel.Close()
	}
	return c.gate.DestroyContext(c.handle)
}
