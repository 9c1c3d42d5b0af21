// Package fake is an in-memory stand-in for a real runtime.Middleware,
// used by safe-drive's own test suite. It simulates topic fan-out and
// service request/reply without any network or serialization, so tests can
// exercise Selector/async-selector behavior deterministically.
package fake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xbroquer/safe-drive/runtime"
)

// Runtime is a single simulated middleware instance. Each Context created
// against the same *Runtime shares nothing with another Context: topics and
// services are scoped per-context, matching the isolation a real middleware
// domain would provide.
type Runtime struct {
	mu     sync.Mutex
	cond   *sync.Cond
	nextID uint64

	contexts map[runtime.HandleID]*domain
	nodes    map[runtime.HandleID]runtime.HandleID // node -> context
	subs     map[runtime.HandleID]*subState
	pubs     map[runtime.HandleID]*pubState
	servers  map[runtime.HandleID]*serverState
	clients  map[runtime.HandleID]*clientState
	guards   map[runtime.HandleID]*guardState
	waitsets map[runtime.HandleID]*waitSetState
}

// New creates an empty fake runtime.
func New() *Runtime {
	r := &Runtime{
		contexts: make(map[runtime.HandleID]*domain),
		nodes:    make(map[runtime.HandleID]runtime.HandleID),
		subs:     make(map[runtime.HandleID]*subState),
		pubs:     make(map[runtime.HandleID]*pubState),
		servers:  make(map[runtime.HandleID]*serverState),
		clients:  make(map[runtime.HandleID]*clientState),
		guards:   make(map[runtime.HandleID]*guardState),
		waitsets: make(map[runtime.HandleID]*waitSetState),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

var _ runtime.Middleware = (*Runtime)(nil)

type domain struct {
	topics   map[string]*topicState
	services map[string]*serviceState
}

type topicState struct {
	subs []runtime.HandleID
}

type serviceState struct {
	server  runtime.HandleID
	hasSrv  bool
	clients map[runtime.HandleID]bool
}

type subState struct {
	ctxID   runtime.HandleID
	topic   string
	qos     runtime.Profile
	pending [][]byte
	msgs    []any // queued messages, oldest first; pending is never filled
}

type pubState struct {
	ctxID runtime.HandleID
	topic string
	qos   runtime.Profile
}

type pendingRequest struct {
	header runtime.RequestHeader
	req    any
}

type pendingResponse struct {
	id   runtime.RequestID
	resp any
}

type serverState struct {
	ctxID    runtime.HandleID
	service  string
	requests []pendingRequest
}

type clientState struct {
	ctxID     runtime.HandleID
	service   string
	nextReqID uint64
	responses []pendingResponse
}

type guardState struct {
	ctxID     runtime.HandleID
	triggered bool
}

type waitSetState struct {
	ctxID runtime.HandleID
	subs  []runtime.SubscriptionHandle
	guard []runtime.GuardHandle
	cli   []runtime.ClientHandle
	srv   []runtime.ServerHandle
}

func (r *Runtime) allocID() runtime.HandleID {
	r.nextID++
	return runtime.HandleID(r.nextID)
}

func (r *Runtime) wakeAll() {
	r.cond.Broadcast()
}

// --- Context / Node ---

func (r *Runtime) NewContext() (runtime.ContextHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.allocID()
	r.contexts[id] = &domain{
		topics:   make(map[string]*topicState),
		services: make(map[string]*serviceState),
	}
	return runtime.ContextHandle{ID: id}, nil
}

func (r *Runtime) DestroyContext(ctx runtime.ContextHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contexts, ctx.ID)
	return nil
}

func (r *Runtime) NewNode(ctx runtime.ContextHandle, name, namespace string) (runtime.NodeHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[ctx.ID]; !ok {
		return runtime.NodeHandle{}, fmt.Errorf("fake: unknown context")
	}
	id := r.allocID()
	r.nodes[id] = ctx.ID
	return runtime.NodeHandle{ID: id}, nil
}

func (r *Runtime) DestroyNode(node runtime.NodeHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, node.ID)
	return nil
}

func (r *Runtime) domainOf(node runtime.NodeHandle) (runtime.HandleID, *domain, error) {
	ctxID, ok := r.nodes[node.ID]
	if !ok {
		return 0, nil, fmt.Errorf("fake: unknown node")
	}
	d, ok := r.contexts[ctxID]
	if !ok {
		return 0, nil, fmt.Errorf("fake: node's context was destroyed")
	}
	return ctxID, d, nil
}

func (d *domain) topic(name string) *topicState {
	t, ok := d.topics[name]
	if !ok {
		t = &topicState{}
		d.topics[name] = t
	}
	return t
}

func (d *domain) service(name string) *serviceState {
	s, ok := d.services[name]
	if !ok {
		s = &serviceState{clients: make(map[runtime.HandleID]bool)}
		d.services[name] = s
	}
	return s
}

// --- Publisher / Subscription ---

func (r *Runtime) NewPublisher(node runtime.NodeHandle, topic string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.PublisherHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctxID, _, err := r.domainOf(node)
	if err != nil {
		return runtime.PublisherHandle{}, err
	}
	id := r.allocID()
	r.pubs[id] = &pubState{ctxID: ctxID, topic: topic, qos: qos}
	return runtime.PublisherHandle{ID: id}, nil
}

func (r *Runtime) DestroyPublisher(pub runtime.PublisherHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pubs, pub.ID)
	return nil
}

func (r *Runtime) Publish(pub runtime.PublisherHandle, msg any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pubs[pub.ID]
	if !ok {
		return fmt.Errorf("fake: publish on unknown publisher")
	}
	d := r.contexts[p.ctxID]
	if d == nil {
		return fmt.Errorf("fake: publisher's context was destroyed")
	}
	t := d.topic(p.topic)
	for _, subID := range t.subs {
		s, ok := r.subs[subID]
		if !ok {
			continue
		}
		s.msgs = append(s.msgs, msg)
		if s.qos.History == runtime.HistoryKeepLast && s.qos.Depth > 0 && len(s.msgs) > s.qos.Depth {
			drop := len(s.msgs) - s.qos.Depth
			s.msgs = s.msgs[drop:]
		}
	}
	r.wakeAll()
	return nil
}

func (r *Runtime) NewSubscription(node runtime.NodeHandle, topic string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.SubscriptionHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctxID, d, err := r.domainOf(node)
	if err != nil {
		return runtime.SubscriptionHandle{}, err
	}
	id := r.allocID()
	r.subs[id] = &subState{ctxID: ctxID, topic: topic, qos: qos}
	t := d.topic(topic)
	t.subs = append(t.subs, id)
	return runtime.SubscriptionHandle{ID: id}, nil
}

func (r *Runtime) DestroySubscription(sub runtime.SubscriptionHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[sub.ID]
	if !ok {
		return nil
	}
	if d := r.contexts[s.ctxID]; d != nil {
		t := d.topic(s.topic)
		for i, id := range t.subs {
			if id == sub.ID {
				t.subs = append(t.subs[:i], t.subs[i+1:]...)
				break
			}
		}
	}
	delete(r.subs, sub.ID)
	return nil
}

func (r *Runtime) TryTake(sub runtime.SubscriptionHandle) (any, runtime.TakeStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[sub.ID]
	if !ok {
		return nil, runtime.TakeFailed, fmt.Errorf("fake: take on unknown subscription")
	}
	if len(s.msgs) == 0 {
		return nil, runtime.TakeRetryLater, nil
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, runtime.TakeOK, nil
}

// --- Server / Client ---

func (r *Runtime) NewServer(node runtime.NodeHandle, service string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.ServerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctxID, d, err := r.domainOf(node)
	if err != nil {
		return runtime.ServerHandle{}, err
	}
	id := r.allocID()
	r.servers[id] = &serverState{ctxID: ctxID, service: service}
	svc := d.service(service)
	svc.server = id
	svc.hasSrv = true
	return runtime.ServerHandle{ID: id}, nil
}

func (r *Runtime) DestroyServer(srv runtime.ServerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[srv.ID]
	if ok {
		if d := r.contexts[s.ctxID]; d != nil {
			if svc, ok := d.services[s.service]; ok && svc.server == srv.ID {
				svc.hasSrv = false
			}
		}
	}
	delete(r.servers, srv.ID)
	return nil
}

func (r *Runtime) NewClient(node runtime.NodeHandle, service string, ts runtime.TypeSupport, qos runtime.Profile) (runtime.ClientHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctxID, d, err := r.domainOf(node)
	if err != nil {
		return runtime.ClientHandle{}, err
	}
	id := r.allocID()
	r.clients[id] = &clientState{ctxID: ctxID, service: service}
	svc := d.service(service)
	svc.clients[id] = true
	return runtime.ClientHandle{ID: id}, nil
}

func (r *Runtime) DestroyClient(cli runtime.ClientHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[cli.ID]
	if ok {
		if d := r.contexts[c.ctxID]; d != nil {
			if svc, ok := d.services[c.service]; ok {
				delete(svc.clients, cli.ID)
			}
		}
	}
	delete(r.clients, cli.ID)
	return nil
}

func (r *Runtime) SendRequest(cli runtime.ClientHandle, req any) (runtime.RequestID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[cli.ID]
	if !ok {
		return 0, fmt.Errorf("fake: request on unknown client")
	}
	d := r.contexts[c.ctxID]
	if d == nil {
		return 0, fmt.Errorf("fake: client's context was destroyed")
	}
	svc, ok := d.services[c.service]
	if !ok || !svc.hasSrv {
		return 0, errors.New("fake: no server for service")
	}
	c.nextReqID++
	id := runtime.RequestID(c.nextReqID)
	srv := r.servers[svc.server]
	srv.requests = append(srv.requests, pendingRequest{
		header: runtime.RequestHeader{RequestID: id, ClientID: cli.ID},
		req:    req,
	})
	r.wakeAll()
	return id, nil
}

func (r *Runtime) TryTakeResponse(cli runtime.ClientHandle) (any, runtime.RequestID, runtime.TakeStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[cli.ID]
	if !ok {
		return nil, 0, runtime.TakeFailed, fmt.Errorf("fake: take response on unknown client")
	}
	if len(c.responses) == 0 {
		return nil, 0, runtime.TakeRetryLater, nil
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return resp.resp, resp.id, runtime.TakeOK, nil
}

func (r *Runtime) TryTakeRequest(srv runtime.ServerHandle) (any, runtime.RequestHeader, runtime.TakeStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.servers[srv.ID]
	if !ok {
		return nil, runtime.RequestHeader{}, runtime.TakeFailed, fmt.Errorf("fake: take request on unknown server")
	}
	if len(s.requests) == 0 {
		return nil, runtime.RequestHeader{}, runtime.TakeRetryLater, nil
	}
	pr := s.requests[0]
	s.requests = s.requests[1:]
	return pr.req, pr.header, runtime.TakeOK, nil
}

func (r *Runtime) SendResponse(srv runtime.ServerHandle, header runtime.RequestHeader, resp any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[header.ClientID]
	if !ok {
		return fmt.Errorf("fake: response for unknown client")
	}
	c.responses = append(c.responses, pendingResponse{id: header.RequestID, resp: resp})
	r.wakeAll()
	return nil
}

// --- Guard condition ---

func (r *Runtime) NewGuardCondition(ctx runtime.ContextHandle) (runtime.GuardHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[ctx.ID]; !ok {
		return runtime.GuardHandle{}, fmt.Errorf("fake: unknown context")
	}
	id := r.allocID()
	r.guards[id] = &guardState{ctxID: ctx.ID}
	return runtime.GuardHandle{ID: id}, nil
}

func (r *Runtime) DestroyGuardCondition(g runtime.GuardHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.guards, g.ID)
	return nil
}

func (r *Runtime) TriggerGuardCondition(g runtime.GuardHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	gs, ok := r.guards[g.ID]
	if !ok {
		return fmt.Errorf("fake: trigger on unknown guard condition")
	}
	gs.triggered = true
	r.wakeAll()
	return nil
}

// --- Wait-set ---

func (r *Runtime) NewWaitSet(ctx runtime.ContextHandle) (runtime.WaitSetHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.contexts[ctx.ID]; !ok {
		return runtime.WaitSetHandle{}, fmt.Errorf("fake: unknown context")
	}
	id := r.allocID()
	r.waitsets[id] = &waitSetState{ctxID: ctx.ID}
	return runtime.WaitSetHandle{ID: id}, nil
}

func (r *Runtime) DestroyWaitSet(ws runtime.WaitSetHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.waitsets, ws.ID)
	return nil
}

func (r *Runtime) ClearWaitSet(ws runtime.WaitSetHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: clear on unknown wait-set")
	}
	w.subs = w.subs[:0]
	w.guard = w.guard[:0]
	w.cli = w.cli[:0]
	w.srv = w.srv[:0]
	return nil
}

func (r *Runtime) ResizeWaitSet(ws runtime.WaitSetHandle, subs, guards, clients, services int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: resize on unknown wait-set")
	}
	w.subs = make([]runtime.SubscriptionHandle, 0, subs)
	w.guard = make([]runtime.GuardHandle, 0, guards)
	w.cli = make([]runtime.ClientHandle, 0, clients)
	w.srv = make([]runtime.ServerHandle, 0, services)
	return nil
}

func (r *Runtime) AddSubscriptionToWaitSet(ws runtime.WaitSetHandle, sub runtime.SubscriptionHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: add to unknown wait-set")
	}
	w.subs = append(w.subs, sub)
	return nil
}

func (r *Runtime) AddGuardConditionToWaitSet(ws runtime.WaitSetHandle, g runtime.GuardHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: add to unknown wait-set")
	}
	w.guard = append(w.guard, g)
	return nil
}

func (r *Runtime) AddClientToWaitSet(ws runtime.WaitSetHandle, c runtime.ClientHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: add to unknown wait-set")
	}
	w.cli = append(w.cli, c)
	return nil
}

func (r *Runtime) AddServerToWaitSet(ws runtime.WaitSetHandle, s runtime.ServerHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.waitsets[ws.ID]
	if !ok {
		return fmt.Errorf("fake: add to unknown wait-set")
	}
	w.srv = append(w.srv, s)
	return nil
}

// Wait blocks until a source registered in ws is ready or timeout elapses.
// timeout < 0 blocks indefinitely.
func (r *Runtime) Wait(ws runtime.WaitSetHandle, timeout time.Duration) (runtime.ReadySet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.waitsets[ws.ID]
	if !ok {
		return runtime.ReadySet{}, fmt.Errorf("fake: wait on unknown wait-set")
	}

	var expired bool
	var timer *time.Timer
	if timeout >= 0 {
		timer = time.AfterFunc(timeout, func() {
			r.mu.Lock()
			expired = true
			r.cond.Broadcast()
			r.mu.Unlock()
		})
		defer timer.Stop()
	}

	for {
		rs := r.computeReady(w)
		if len(rs.Subscriptions) > 0 || len(rs.Servers) > 0 || len(rs.Clients) > 0 || len(rs.GuardConditions) > 0 {
			return rs, nil
		}
		if expired {
			return runtime.ReadySet{}, nil
		}
		r.cond.Wait()
	}
}

// computeReady must be called with r.mu held.
func (r *Runtime) computeReady(w *waitSetState) runtime.ReadySet {
	var rs runtime.ReadySet
	for _, sh := range w.subs {
		if s, ok := r.subs[sh.ID]; ok && len(s.msgs) > 0 {
			rs.Subscriptions = append(rs.Subscriptions, sh)
		}
	}
	for _, gh := range w.guard {
		if g, ok := r.guards[gh.ID]; ok && g.triggered {
			rs.GuardConditions = append(rs.GuardConditions, gh)
			g.triggered = false
		}
	}
	for _, ch := range w.cli {
		if c, ok := r.clients[ch.ID]; ok && len(c.responses) > 0 {
			rs.Clients = append(rs.Clients, ch)
		}
	}
	for _, sh := range w.srv {
		if s, ok := r.servers[sh.ID]; ok && len(s.requests) > 0 {
			rs.Servers = append(rs.Servers, sh)
		}
	}
	return rs
}
