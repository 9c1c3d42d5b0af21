package safedrive

import (
	"context"
	"errors"
	"fmt"

	"github.com/xbroquer/safe-drive/runtime"
)

// Responder finalizes exactly one reply on the Server that produced it
// (spec.md §4.3: "server reception yields (responder, request, header)
// where responder.send(resp) finalizes the reply").
type Responder[Resp MessageType] struct {
	header runtime.RequestHeader
	send   func(runtime.RequestHeader, Resp) error
}

// Send finalizes the reply this Responder was created for.
func (r *Responder[Resp]) Send(resp Resp) error {
	return r.send(r.header, resp)
}

// Server is a typed reply endpoint (spec.md §2 item 4, §3).
type Server[Req MessageType, Resp MessageType] struct {
	node    *Node
	handle  runtime.ServerHandle
	service string
	qos     QoSProfile
}

// CreateServer creates a Server for service on node. qos is optional; if
// omitted, ServicesQoS is used.
func CreateServer[Req MessageType, Resp MessageType](node *Node, service string, svc ServiceType, qos ...QoSProfile) (*Server[Req, Resp], error) {
	profile := ServicesQoS()
	if len(qos) > 0 {
		profile = qos[0]
	}
	h, err := node.ctx.gate.NewServer(node.handle, service, svc.ServiceTypeSupport(), profile)
	if err != nil {
		return nil, &BadAllocError{What: "server on " + service, Cause: err}
	}
	return &Server[Req, Resp]{node: node, handle: h, service: service, qos: profile}, nil
}

func (s *Server[Req, Resp]) innerID() runtime.HandleID { return s.handle.ID }

func (s *Server[Req, Resp]) contextID() runtime.HandleID { return s.node.ctx.id() }

// TryRecv never blocks: it returns a request and its header, RetryLater, or
// a TakeFailed error.
func (s *Server[Req, Resp]) TryRecv() (Req, runtime.RequestHeader, error) {
	var zero Req
	msg, header, status, err := s.node.ctx.gate.TryTakeRequest(s.handle)
	switch status {
	case runtime.TakeOK:
		m, ok := msg.(Req)
		if !ok {
			return zero, header, &TakeFailedError{Cause: fmt.Errorf("unexpected request type %T", msg)}
		}
		return m, header, nil
	case runtime.TakeRetryLater:
		return zero, header, RetryLater
	default:
		return zero, header, &TakeFailedError{Cause: err}
	}
}

// Respond sends resp for the request named by header, finalizing that
// exchange.
func (s *Server[Req, Resp]) Respond(header runtime.RequestHeader, resp Resp) error {
	if err := s.node.ctx.gate.SendResponse(s.handle, header, resp); err != nil {
		return &ServiceCallFailedError{Service: s.service, Cause: err}
	}
	return nil
}

// TryRecvWithResponder is TryRecv plus a bound Responder for the request it
// returns, matching spec.md §4.3's (responder, request, header) shape.
func (s *Server[Req, Resp]) TryRecvWithResponder() (*Responder[Resp], Req, runtime.RequestHeader, error) {
	req, header, err := s.TryRecv()
	if err != nil {
		var zero Req
		return nil, zero, header, err
	}
	return &Responder[Resp]{header: header, send: s.Respond}, req, header, nil
}

// registerWake installs a one-shot, no-drain handler with sel.
func (s *Server[Req, Resp]) registerWake(sel *Selector, wake func()) bool {
	return sel.addServerRaw(s.innerID(), s.contextID(), func() selectorResult {
		wake()
		return resultOk
	}, true)
}

// Recv is the asynchronous version of TryRecvWithResponder: it tries a
// non-blocking receive first, and only suspends on the Node's context-wide
// async selector if nothing was available (spec.md §4.7's "futures produced
// by recv() on Subscriber/Server/Client").
func (s *Server[Req, Resp]) Recv(ctx context.Context) (*Responder[Resp], Req, runtime.RequestHeader, error) {
	var zero Req
	for {
		responder, req, header, err := s.TryRecvWithResponder()
		if err == nil {
			return responder, req, header, nil
		}
		if !errors.Is(err, RetryLater) {
			return nil, zero, header, err
		}
		as, aerr := s.node.ctx.asyncSelector()
		if aerr != nil {
			return nil, zero, header, aerr
		}
		woken := make(chan struct{}, 1)
		id := as.register(s, func() {
			select {
			case woken <- struct{}{}:
			default:
			}
		})
		select {
		case <-woken:
		case <-ctx.Done():
			as.unregister(id)
			return nil, zero, header, ctx.Err()
		}
	}
}

// Close destroys the server's runtime handle.
func (s *Server[Req, Resp]) Close() error {
	return s.node.ctx.gate.DestroyServer(s.handle)
}
