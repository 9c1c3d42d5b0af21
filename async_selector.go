package safedrive

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xbroquer/safe-drive/runtime"
)

// asyncSource is implemented by every typed endpoint that can be awaited:
// it can install a one-shot, no-drain "wake me when ready" registration on
// a Selector it does not otherwise own.
type asyncSource interface {
	innerID() runtime.HandleID
	registerWake(sel *Selector, wake func()) bool
}

type asyncCmdKind int

const (
	asyncCmdRegister asyncCmdKind = iota
	asyncCmdUnregister
	asyncCmdTimer
)

type asyncCmd struct {
	kind   asyncCmdKind
	id     runtime.HandleID
	source asyncSource
	wake   func()
	delay  time.Duration
}

// asyncSelector is the per-context singleton described in spec.md §2 item
// 9 and §4.7: a background goroutine owning an inner Selector, and a
// mailbox accepting Register(endpoint, waker)/Unregister(endpoint)
// commands. Grounded on inprocgrpc/channel.go's pattern of a loop-owned
// state machine fed by a thread-safe mailbox, with completion threaded back
// through captured closures instead of that package's gRPC stream frames.
type asyncSelector struct {
	sel       *Selector
	wakeGuard *GuardCondition

	mu      sync.Mutex
	pending []asyncCmd

	stopped atomic.Bool
	group   errgroup.Group
}

func newAsyncSelector(ctx *Context) (*asyncSelector, error) {
	sel, err := newSelector(ctx)
	if err != nil {
		return nil, err
	}
	wakeGuard, err := ctx.CreateGuardCondition()
	if err != nil {
		_ = sel.Close()
		return nil, err
	}
	sel.AddGuardCondition(wakeGuard, nil, false)

	as := &asyncSelector{sel: sel, wakeGuard: wakeGuard}
	as.group.Go(as.run)
	return as, nil
}

func (as *asyncSelector) run() error {
	for {
		as.drainMailbox()
		if as.stopped.Load() {
			return nil
		}
		err := as.sel.Wait()
		if err != nil {
			if errors.Is(err, Signaled) {
				return nil
			}
			logf(LevelError, "async selector wait failed", map[string]any{"error": err.Error()})
			return err
		}
		if as.stopped.Load() {
			return nil
		}
	}
}

func (as *asyncSelector) drainMailbox() {
	as.mu.Lock()
	cmds := as.pending
	as.pending = nil
	as.mu.Unlock()

	for _, c := range cmds {
		switch c.kind {
		case asyncCmdRegister:
			if !c.source.registerWake(as.sel, c.wake) {
				logf(LevelWarn, "async register rejected: context mismatch", map[string]any{"id": c.id})
			}
		case asyncCmdUnregister:
			as.sel.removeByID(c.id)
		case asyncCmdTimer:
			as.sel.AddTimer(c.delay, c.wake)
		}
	}
}

// register asks the background goroutine to install a one-shot wake
// registration for source, returning the id later passed to unregister.
func (as *asyncSelector) register(source asyncSource, wake func()) runtime.HandleID {
	id := source.innerID()
	as.push(asyncCmd{kind: asyncCmdRegister, id: id, source: source, wake: wake})
	return id
}

// unregister asks the background goroutine to drop any pending
// registration for id. Safe to call even if the registration already fired
// (it will simply find nothing to remove).
func (as *asyncSelector) unregister(id runtime.HandleID) {
	as.push(asyncCmd{kind: asyncCmdUnregister, id: id})
}

// timer asks the background goroutine to arm a one-shot timer that calls
// wake after dur elapses. This is the "timer future" half of spec.md
// §4.7's async public surface, alongside Subscriber/Server/Client recv().
// There is no corresponding unregister: an abandoned timer simply fires
// into a wake closure nobody observes, the same way an abandoned
// subscription registration's wake channel is simply never read again.
func (as *asyncSelector) timer(dur time.Duration, wake func()) {
	as.push(asyncCmd{kind: asyncCmdTimer, wake: wake, delay: dur})
}

func (as *asyncSelector) push(cmd asyncCmd) {
	as.mu.Lock()
	as.pending = append(as.pending, cmd)
	as.mu.Unlock()
	_ = as.wakeGuard.Trigger()
}

// Close signals the background goroutine to stop, waits for it to exit,
// then releases the inner Selector and the wake guard condition.
func (as *asyncSelector) Close() error {
	as.stopped.Store(true)
	_ = as.wakeGuard.Trigger()
	_ = as.group.Wait()
	err := as.sel.Close()
	_ = as.wakeGuard.Close()
	return err
}
