package safedrive

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/xbroquer/safe-drive/runtime"
)

// Client is a typed request endpoint (spec.md §2 item 4, §3).
type Client[Req MessageType, Resp MessageType] struct {
	node    *Node
	handle  runtime.ClientHandle
	service string
	qos     QoSProfile

	mu      sync.Mutex
	pending map[runtime.RequestID]Resp
}

// CreateClient creates a Client for service on node. qos is optional; if
// omitted, ServicesQoS is used.
func CreateClient[Req MessageType, Resp MessageType](node *Node, service string, svc ServiceType, qos ...QoSProfile) (*Client[Req, Resp], error) {
	profile := ServicesQoS()
	if len(qos) > 0 {
		profile = qos[0]
	}
	h, err := node.ctx.gate.NewClient(node.handle, service, svc.ServiceTypeSupport(), profile)
	if err != nil {
		return nil, &BadAllocError{What: "client on " + service, Cause: err}
	}
	return &Client[Req, Resp]{node: node, handle: h, service: service, qos: profile, pending: make(map[runtime.RequestID]Resp)}, nil
}

func (c *Client[Req, Resp]) innerID() runtime.HandleID { return c.handle.ID }

func (c *Client[Req, Resp]) contextID() runtime.HandleID { return c.node.ctx.id() }

// SendRequest submits req and returns the RequestID a later response will
// echo back.
func (c *Client[Req, Resp]) SendRequest(req Req) (runtime.RequestID, error) {
	id, err := c.node.ctx.gate.SendRequest(c.handle, req)
	if err != nil {
		return 0, &ServiceCallFailedError{Service: c.service, Cause: err}
	}
	return id, nil
}

// TryRecvResponse never blocks: it returns a response and its RequestID,
// RetryLater, or a TakeFailed error.
func (c *Client[Req, Resp]) TryRecvResponse() (Resp, runtime.RequestID, error) {
	var zero Resp
	msg, id, status, err := c.node.ctx.gate.TryTakeResponse(c.handle)
	switch status {
	case runtime.TakeOK:
		m, ok := msg.(Resp)
		if !ok {
			return zero, id, &TakeFailedError{Cause: fmt.Errorf("unexpected response type %T", msg)}
		}
		return m, id, nil
	case runtime.TakeRetryLater:
		return zero, 0, RetryLater
	default:
		return zero, 0, &TakeFailedError{Cause: err}
	}
}

// registerWake installs a one-shot, no-drain handler with sel.
func (c *Client[Req, Resp]) registerWake(sel *Selector, wake func()) bool {
	return sel.addClientRaw(c.innerID(), c.contextID(), func() selectorResult {
		wake()
		return resultOk
	}, true)
}

// Call sends req and suspends until the matching response arrives or ctx is
// cancelled. Responses to other in-flight requests on the same Client are
// buffered rather than discarded, so overlapping calls still resolve
// correctly.
func (c *Client[Req, Resp]) Call(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	id, err := c.SendRequest(req)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	if resp, ok := c.pending[id]; ok {
		delete(c.pending, id)
		c.mu.Unlock()
		return resp, nil
	}
	c.mu.Unlock()

	for {
		resp, gotID, err := c.TryRecvResponse()
		if err == nil {
			if gotID == id {
				return resp, nil
			}
			c.mu.Lock()
			c.pending[gotID] = resp
			c.mu.Unlock()
			continue
		}
		if !errors.Is(err, RetryLater) {
			return zero, err
		}
		as, aerr := c.node.ctx.asyncSelector()
		if aerr != nil {
			return zero, aerr
		}
		woken := make(chan struct{}, 1)
		token := as.register(c, func() {
			select {
			case woken <- struct{}{}:
			default:
			}
		})
		select {
		case <-woken:
		case <-ctx.Done():
			as.unregister(token)
			return zero, ctx.Err()
		}
	}
}

// Close destroys the client's runtime handle.
func (c *Client[Req, Resp]) Close() error {
	return c.node.ctx.gate.DestroyClient(c.handle)
}
