package safedrive

import (
	"sync"
	"time"

	"github.com/xbroquer/safe-drive/runtime"
)

// gate is the runtime handle layer from spec.md §4.1: every call into the
// underlying middleware crosses exactly one of its two halves. Creates,
// destroys, and wait-set mutations are documented non-reentrant in the
// original implementation, so they share one process-wide mutex
// (serialized). Publish/take/trigger/wait are documented reentrant and go
// straight through (threadSafe) with no locking at this layer — the
// middleware is responsible for its own internal synchronization there.
type gate struct {
	mu *sync.Mutex
	mw runtime.Middleware
}

// serializedMu is the process-wide mutex every gate's serialized façade
// shares, whichever Context the gate belongs to.
var serializedMu sync.Mutex

func newGate(mw runtime.Middleware) *gate {
	return &gate{mu: &serializedMu, mw: mw}
}

// --- Serialized façade ---

func (g *gate) NewContext() (runtime.ContextHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewContext()
}

func (g *gate) DestroyContext(ctx runtime.ContextHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyContext(ctx)
}

func (g *gate) NewNode(ctx runtime.ContextHandle, name, namespace string) (runtime.NodeHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewNode(ctx, name, namespace)
}

func (g *gate) DestroyNode(n runtime.NodeHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyNode(n)
}

func (g *gate) NewPublisher(node runtime.NodeHandle, topic string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.PublisherHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewPublisher(node, topic, ts, qos)
}

func (g *gate) DestroyPublisher(p runtime.PublisherHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyPublisher(p)
}

func (g *gate) NewSubscription(node runtime.NodeHandle, topic string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.SubscriptionHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewSubscription(node, topic, ts, qos)
}

func (g *gate) DestroySubscription(s runtime.SubscriptionHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroySubscription(s)
}

func (g *gate) NewServer(node runtime.NodeHandle, service string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.ServerHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewServer(node, service, ts, qos)
}

func (g *gate) DestroyServer(s runtime.ServerHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyServer(s)
}

func (g *gate) NewClient(node runtime.NodeHandle, service string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.ClientHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewClient(node, service, ts, qos)
}

func (g *gate) DestroyClient(c runtime.ClientHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyClient(c)
}

func (g *gate) NewGuardCondition(ctx runtime.ContextHandle) (runtime.GuardHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewGuardCondition(ctx)
}

func (g *gate) DestroyGuardCondition(h runtime.GuardHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyGuardCondition(h)
}

func (g *gate) NewWaitSet(ctx runtime.ContextHandle) (runtime.WaitSetHandle, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.NewWaitSet(ctx)
}

func (g *gate) DestroyWaitSet(ws runtime.WaitSetHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.DestroyWaitSet(ws)
}

func (g *gate) ClearWaitSet(ws runtime.WaitSetHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.ClearWaitSet(ws)
}

func (g *gate) ResizeWaitSet(ws runtime.WaitSetHandle, subs, guards, clients, services int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.ResizeWaitSet(ws, subs, guards, clients, services)
}

func (g *gate) AddSubscriptionToWaitSet(ws runtime.WaitSetHandle, s runtime.SubscriptionHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.AddSubscriptionToWaitSet(ws, s)
}

func (g *gate) AddGuardConditionToWaitSet(ws runtime.WaitSetHandle, h runtime.GuardHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.AddGuardConditionToWaitSet(ws, h)
}

func (g *gate) AddClientToWaitSet(ws runtime.WaitSetHandle, c runtime.ClientHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.AddClientToWaitSet(ws, c)
}

func (g *gate) AddServerToWaitSet(ws runtime.WaitSetHandle, s runtime.ServerHandle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mw.AddServerToWaitSet(ws, s)
}

// --- Thread-safe façade: no gate lock, direct pass-through ---

func (g *gate) Publish(p runtime.PublisherHandle, msg any) error {
	return g.mw.Publish(p, msg)
}

func (g *gate) TryTake(s runtime.SubscriptionHandle) (any, runtime.TakeStatus, error) {
	return g.mw.TryTake(s)
}

func (g *gate) SendRequest(c runtime.ClientHandle, req any) (runtime.RequestID, error) {
	return g.mw.SendRequest(c, req)
}

func (g *gate) TryTakeResponse(c runtime.ClientHandle) (any, runtime.RequestID, runtime.TakeStatus, error) {
	return g.mw.TryTakeResponse(c)
}

func (g *gate) TryTakeRequest(s runtime.ServerHandle) (any, runtime.RequestHeader, runtime.TakeStatus, error) {
	return g.mw.TryTakeRequest(s)
}

func (g *gate) SendResponse(s runtime.ServerHandle, h runtime.RequestHeader, resp any) error {
	return g.mw.SendResponse(s, h, resp)
}

func (g *gate) TriggerGuardCondition(h runtime.GuardHandle) error {
	return g.mw.TriggerGuardCondition(h)
}

func (g *gate) Wait(ws runtime.WaitSetHandle, timeout time.Duration) (runtime.ReadySet, error) {
	return g.mw.Wait(ws, timeout)
}
