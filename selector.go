package safedrive

import (
	"errors"
	"time"

	"github.com/xbroquer/safe-drive/runtime"
)

// selectorResult is what a wrapped handler returns after running: whether
// its registration should persist or be removed (spec.md §4.6).
type selectorResult int

const (
	resultOk selectorResult = iota
	resultRemove
)

// conditionHandler is the registration record described in spec.md §3: an
// event reference (implicit in which map it lives in, keyed by
// runtime.HandleID), a wrapped callback, a one-shot flag, and a state
// machine tracking Registered/Firing/Unregistered.
type conditionHandler struct {
	run   func() selectorResult
	once  bool
	state *fastState
}

// timerEntry is the payload stored in a Selector's delta list: either a
// one-shot or a periodic ("wall") timer.
type timerEntry struct {
	handler  func()
	periodic bool
	period   time.Duration
}

// hasInnerID is satisfied by every typed endpoint, for explicit unregister
// calls that don't need the endpoint's message/service type parameters.
type hasInnerID interface {
	innerID() runtime.HandleID
}

// Selector is the synchronous event demultiplexer (spec.md §2 item 8, §4.6).
// It is strictly single-threaded: create it, register sources on it, and
// call Wait from one goroutine only.
type Selector struct {
	ctx    *Context
	gate   *gate
	handle runtime.WaitSetHandle
	opts   *selectorOptions

	timers  *deltaList[*timerEntry]
	subs    map[runtime.HandleID]*conditionHandler
	servers map[runtime.HandleID]*conditionHandler
	clients map[runtime.HandleID]*conditionHandler
	guards  map[runtime.HandleID]*conditionHandler

	shutdownGuard *GuardCondition
	lifecycle     *fastLifecycle
	metrics       *Metrics
}

// newSelector creates a Selector bound to ctx, registering its private
// shutdown guard exactly as original_source/src/selector.rs's
// Selector::new registers its signal_cond (spec.md §4 supplemented feature
// 4).
func newSelector(ctx *Context, opts ...SelectorOption) (*Selector, error) {
	o := resolveSelectorOptions(opts)
	wsHandle, err := ctx.gate.NewWaitSet(ctx.handle)
	if err != nil {
		return nil, &BadAllocError{What: "wait-set", Cause: err}
	}
	sel := &Selector{
		ctx:       ctx,
		gate:      ctx.gate,
		handle:    wsHandle,
		opts:      o,
		timers:    newDeltaList[*timerEntry](),
		subs:      make(map[runtime.HandleID]*conditionHandler),
		servers:   make(map[runtime.HandleID]*conditionHandler),
		clients:   make(map[runtime.HandleID]*conditionHandler),
		guards:    make(map[runtime.HandleID]*conditionHandler),
		lifecycle: newFastLifecycle(),
	}
	if o.metricsEnabled {
		sel.metrics = newMetrics()
	}
	guard, err := ctx.CreateGuardCondition()
	if err != nil {
		_ = ctx.gate.DestroyWaitSet(wsHandle)
		return nil, err
	}
	sel.shutdownGuard = guard
	registerSignalGuard(guard)
	sel.guards[guard.handle.ID] = &conditionHandler{
		run:   func() selectorResult { return resultOk },
		once:  false,
		state: newFastState(stateRegistered),
	}
	return sel, nil
}

// Metrics returns the Selector's Prometheus collector, or nil if the
// Selector was created without WithSelectorMetrics(true).
func (sel *Selector) Metrics() *Metrics { return sel.metrics }

// Close unregisters the shutdown guard and releases the wait-set. It does
// not close any endpoint registered with the Selector.
func (sel *Selector) Close() error {
	if !sel.lifecycle.TryTransition(lifecycleOpen, lifecycleClosed) {
		return nil
	}
	unregisterSignalGuard(sel.shutdownGuard)
	_ = sel.shutdownGuard.Close()
	return sel.gate.DestroyWaitSet(sel.handle)
}

// --- Raw (identity-keyed, type-erased) registration, used by AddSubscriber
// et al. and by the async selector's wake-only trampolines. ---

func (sel *Selector) addSubscriptionRaw(id, ctxID runtime.HandleID, run func() selectorResult, once bool) bool {
	if ctxID != sel.ctx.id() {
		return false
	}
	sel.subs[id] = &conditionHandler{run: run, once: once, state: newFastState(stateRegistered)}
	return true
}

func (sel *Selector) addServerRaw(id, ctxID runtime.HandleID, run func() selectorResult, once bool) bool {
	if ctxID != sel.ctx.id() {
		return false
	}
	sel.servers[id] = &conditionHandler{run: run, once: once, state: newFastState(stateRegistered)}
	return true
}

func (sel *Selector) addClientRaw(id, ctxID runtime.HandleID, run func() selectorResult, once bool) bool {
	if ctxID != sel.ctx.id() {
		return false
	}
	sel.clients[id] = &conditionHandler{run: run, once: once, state: newFastState(stateRegistered)}
	return true
}

// removeByID drops id from whichever class map holds it; a no-op if none
// does. Used for explicit unregistration where the caller only has a
// runtime.HandleID (e.g. the async selector's mailbox).
func (sel *Selector) removeByID(id runtime.HandleID) {
	delete(sel.subs, id)
	delete(sel.servers, id)
	delete(sel.clients, id)
	delete(sel.guards, id)
}

// --- Typed registration API ---

// AddSubscriber registers sub with sel. It rejects with false if sub
// belongs to a different context than sel (spec.md §4.6, §8 scenario 5).
// The installed handler repeatedly tries to receive, invoking onMsg for
// each message, until a soft time budget elapses or nothing more is
// available.
func AddSubscriber[T MessageType](sel *Selector, sub *Subscriber[T], onMsg func(T), once bool) bool {
	budget := sel.opts.subscriptionBudget
	return sel.addSubscriptionRaw(sub.innerID(), sub.contextID(), func() selectorResult {
		deadline := now().Add(budget)
		for {
			msg, err := sub.TryRecv()
			if err == nil {
				onMsg(msg)
				if now().After(deadline) {
					return resultOk
				}
				continue
			}
			if errors.Is(err, RetryLater) {
				return resultOk
			}
			logf(LevelDebug, "subscription take failed, removing", map[string]any{"topic": sub.topic, "error": err.Error()})
			if sel.metrics != nil {
				sel.metrics.handlerRemoved("error")
			}
			return resultRemove
		}
	}, once)
}

// RemoveSubscriber unregisters e from sel, if registered.
func (sel *Selector) RemoveSubscriber(e hasInnerID) { delete(sel.subs, e.innerID()) }

// AddServer registers srv with sel, mirroring AddSubscriber but threading a
// one-shot Responder through the callback (spec.md §4.6).
func AddServer[Req MessageType, Resp MessageType](sel *Selector, srv *Server[Req, Resp], handler func(*Responder[Resp], Req, runtime.RequestHeader), once bool) bool {
	budget := sel.opts.subscriptionBudget
	return sel.addServerRaw(srv.innerID(), srv.contextID(), func() selectorResult {
		deadline := now().Add(budget)
		for {
			responder, req, header, err := srv.TryRecvWithResponder()
			if err == nil {
				handler(responder, req, header)
				if now().After(deadline) {
					return resultOk
				}
				continue
			}
			if errors.Is(err, RetryLater) {
				return resultOk
			}
			logf(LevelDebug, "server take failed, removing", map[string]any{"service": srv.service, "error": err.Error()})
			if sel.metrics != nil {
				sel.metrics.handlerRemoved("error")
			}
			return resultRemove
		}
	}, once)
}

// RemoveServer unregisters e from sel, if registered.
func (sel *Selector) RemoveServer(e hasInnerID) { delete(sel.servers, e.innerID()) }

// AddClient registers cli with sel; handler receives each response and its
// RequestID as it is taken.
func AddClient[Req MessageType, Resp MessageType](sel *Selector, cli *Client[Req, Resp], handler func(Resp, runtime.RequestID), once bool) bool {
	budget := sel.opts.subscriptionBudget
	return sel.addClientRaw(cli.innerID(), cli.contextID(), func() selectorResult {
		deadline := now().Add(budget)
		for {
			resp, id, err := cli.TryRecvResponse()
			if err == nil {
				handler(resp, id)
				if now().After(deadline) {
					return resultOk
				}
				continue
			}
			if errors.Is(err, RetryLater) {
				return resultOk
			}
			logf(LevelDebug, "client take failed, removing", map[string]any{"service": cli.service, "error": err.Error()})
			if sel.metrics != nil {
				sel.metrics.handlerRemoved("error")
			}
			return resultRemove
		}
	}, once)
}

// RemoveClient unregisters e from sel, if registered.
func (sel *Selector) RemoveClient(e hasInnerID) { delete(sel.clients, e.innerID()) }

// AddGuardCondition registers a wake-only source (spec.md §4.4).
func (sel *Selector) AddGuardCondition(g *GuardCondition, handler func(), once bool) bool {
	if g.ctx.id() != sel.ctx.id() {
		return false
	}
	sel.guards[g.handle.ID] = &conditionHandler{
		run: func() selectorResult {
			if handler != nil {
				handler()
			}
			return resultOk
		},
		once:  once,
		state: newFastState(stateRegistered),
	}
	return true
}

// RemoveGuardCondition unregisters g from sel, if registered.
func (sel *Selector) RemoveGuardCondition(g *GuardCondition) { delete(sel.guards, g.handle.ID) }

// AddTimer schedules a one-shot timer firing after dur.
func (sel *Selector) AddTimer(dur time.Duration, handler func()) {
	sel.timers.InsertTimer(dur, &timerEntry{handler: handler, periodic: false})
}

// AddWallTimer schedules a periodic timer that re-arms with the same
// period after each fire.
func (sel *Selector) AddWallTimer(period time.Duration, handler func()) {
	sel.timers.InsertTimer(period, &timerEntry{handler: handler, periodic: true, period: period})
}

// Wait runs one iteration of the wait loop described in spec.md §4.6.
func (sel *Selector) Wait() error {
	start := now()
	if sel.metrics != nil {
		defer func() { sel.metrics.waitDuration(now().Sub(start)) }()
		sel.metrics.waitCalled()
	}

	if Halted() {
		if sel.metrics != nil {
			sel.metrics.waitSignaled()
		}
		return Signaled
	}

	if err := sel.gate.ClearWaitSet(sel.handle); err != nil {
		return err
	}
	if err := sel.gate.ResizeWaitSet(sel.handle, len(sel.subs), len(sel.guards), len(sel.clients), len(sel.servers)); err != nil {
		return err
	}
	for id := range sel.subs {
		if err := sel.gate.AddSubscriptionToWaitSet(sel.handle, runtime.SubscriptionHandle{ID: id}); err != nil {
			return err
		}
	}
	for id := range sel.guards {
		if err := sel.gate.AddGuardConditionToWaitSet(sel.handle, runtime.GuardHandle{ID: id}); err != nil {
			return err
		}
	}
	for id := range sel.clients {
		if err := sel.gate.AddClientToWaitSet(sel.handle, runtime.ClientHandle{ID: id}); err != nil {
			return err
		}
	}
	for id := range sel.servers {
		if err := sel.gate.AddServerToWaitSet(sel.handle, runtime.ServerHandle{ID: id}); err != nil {
			return err
		}
	}

	timeout := sel.computeTimeout()
	ready, err := sel.gate.Wait(sel.handle, timeout)
	if err != nil {
		return err
	}

	if Halted() {
		if sel.metrics != nil {
			sel.metrics.waitSignaled()
		}
		return Signaled
	}

	sel.fireDueTimers()
	sel.dispatch(sel.subs, toIDs(ready.Subscriptions))
	sel.dispatch(sel.servers, toIDsServer(ready.Servers))
	sel.dispatch(sel.clients, toIDsClient(ready.Clients))
	sel.dispatch(sel.guards, toIDsGuard(ready.GuardConditions))
	return nil
}

// computeTimeout implements spec.md §4.6 step 2: block indefinitely if no
// timer is pending, else the delay to the head's deadline, floored at
// zero. Duration saturates at its own max rather than overflowing.
func (sel *Selector) computeTimeout() time.Duration {
	delta, ok := sel.timers.FrontDelta()
	if !ok {
		return -1
	}
	elapsed := now().Sub(sel.timers.BaseTime())
	remaining := delta - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// fireDueTimers implements spec.md §4.6 step 5: fire timers first, in
// deadline order, advancing base_time by each fired entry's delay and
// re-inserting periodic ones with their period.
func (sel *Selector) fireDueTimers() {
	for {
		delta, ok := sel.timers.FrontDelta()
		if !ok {
			return
		}
		if now().Before(sel.timers.BaseTime().Add(delta)) {
			return
		}
		entry, ok := sel.timers.PopHead()
		if !ok {
			return
		}
		if entry.handler != nil {
			entry.handler()
		}
		if sel.metrics != nil {
			sel.metrics.timerFired(timerKind(entry.periodic))
		}
		if entry.periodic {
			sel.timers.InsertTimer(entry.period, entry)
		}
	}
}

func timerKind(periodic bool) string {
	if periodic {
		return "periodic"
	}
	return "oneshot"
}

// dispatch fans readiness out to the handlers named by ids, in the order
// the runtime returned them (spec.md §4.6 step 6, §9 Open Question (a)).
func (sel *Selector) dispatch(class map[runtime.HandleID]*conditionHandler, ids []runtime.HandleID) {
	for _, id := range ids {
		h, ok := class[id]
		if !ok {
			continue
		}
		h.state.Store(stateFiring)
		result := h.run()
		if result == resultRemove || h.once {
			delete(class, id)
			h.state.Store(stateUnregistered)
			if sel.metrics != nil && result == resultRemove {
				sel.metrics.handlerRemoved("remove")
			} else if sel.metrics != nil && h.once {
				sel.metrics.handlerRemoved("once")
			}
			continue
		}
		h.state.Store(stateRegistered)
	}
}

func toIDs(hs []runtime.SubscriptionHandle) []runtime.HandleID {
	ids := make([]runtime.HandleID, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	return ids
}

func toIDsServer(hs []runtime.ServerHandle) []runtime.HandleID {
	ids := make([]runtime.HandleID, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	return ids
}

func toIDsClient(hs []runtime.ClientHandle) []runtime.HandleID {
	ids := make([]runtime.HandleID, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	return ids
}

func toIDsGuard(hs []runtime.GuardHandle) []runtime.HandleID {
	ids := make([]runtime.HandleID, len(hs))
	for i, h := range hs {
		ids[i] = h.ID
	}
	return ids
}
