package safedrive

import (
	"context"
	"errors"
	"fmt"

	"github.com/xbroquer/safe-drive/runtime"
)

// Subscriber is a typed inbound endpoint (spec.md §2 item 4, §3). Its
// inner runtime handle is what the Selector registers by identity; the
// Subscriber wrapper itself is exclusive at the user level.
type Subscriber[T MessageType] struct {
	node   *Node
	handle runtime.SubscriptionHandle
	topic  string
	qos    QoSProfile
}

// CreateSubscriber creates a Subscriber for topic on node. qos is optional;
// if omitted, DefaultQoS is used.
func CreateSubscriber[T MessageType](node *Node, topic string, qos ...QoSProfile) (*Subscriber[T], error) {
	profile := resolveQoS(qos)
	var zero T
	h, err := node.ctx.gate.NewSubscription(node.handle, topic, zero.TypeSupport(), profile)
	if err != nil {
		return nil, &BadAllocError{What: "subscription on " + topic, Cause: err}
	}
	return &Subscriber[T]{node: node, handle: h, topic: topic, qos: profile}, nil
}

// Topic returns the subscriber's topic name.
func (s *Subscriber[T]) Topic() string { return s.topic }

// innerID is the identity the Selector keys its registration map on
// (spec.md §3 invariant: "identified by the stable address of its inner
// runtime handle").
func (s *Subscriber[T]) innerID() runtime.HandleID { return s.handle.ID }

func (s *Subscriber[T]) contextID() runtime.HandleID { return s.node.ctx.id() }

// TryRecv never blocks: it returns a message, RetryLater, or a TakeFailed
// error (spec.md §4.3).
func (s *Subscriber[T]) TryRecv() (T, error) {
	var zero T
	msg, status, err := s.node.ctx.gate.TryTake(s.handle)
	switch status {
	case runtime.TakeOK:
		m, ok := msg.(T)
		if !ok {
			return zero, &TakeFailedError{Cause: fmt.Errorf("unexpected message type %T", msg)}
		}
		return m, nil
	case runtime.TakeRetryLater:
		return zero, RetryLater
	default:
		return zero, &TakeFailedError{Cause: err}
	}
}

// registerWake installs a one-shot, no-drain handler with sel: when the
// subscription becomes ready, wake is called and the registration is
// removed. It never itself calls TryRecv, so it cannot steal a message
// from the future that is about to re-poll (spec.md §4.7).
func (s *Subscriber[T]) registerWake(sel *Selector, wake func()) bool {
	return sel.addSubscriptionRaw(s.innerID(), s.contextID(), func() selectorResult {
		wake()
		return resultOk
	}, true)
}

// Recv is the asynchronous version of TryRecv: it tries a non-blocking
// receive first (so a message that arrived before Recv was ever called is
// still observed), and only suspends on the Node's context-wide async
// selector if nothing was available (spec.md §4.3, §4.7, and the
// async_pubsub.rs-derived ordering requirement in SPEC_FULL.md §4.5).
func (s *Subscriber[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		msg, err := s.TryRecv()
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, RetryLater) {
			return zero, err
		}
		as, aerr := s.node.ctx.asyncSelector()
		if aerr != nil {
			return zero, aerr
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
			return zero, ctx.Err()
		}
	}
}

// Close destroys the subscription's runtime handle.
func (s *Subscriber[T]) Close() error {
	return s.node.ctx.gate.DestroySubscription(s.handle)
}
