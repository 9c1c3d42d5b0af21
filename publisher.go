package safedrive

import "github.com/xbroquer/safe-drive/runtime"

// Publisher is a typed outbound endpoint (spec.md §2 item 4, §3). It keeps
// a strong reference to its Node so the node cannot be finalized while the
// publisher exists.
type Publisher[T MessageType] struct {
	node   *Node
	handle runtime.PublisherHandle
	topic  string
	qos    QoSProfile
}

// CreatePublisher creates a Publisher for topic on node. qos is optional;
// if omitted, DefaultQoS is used (spec.md §4.2).
func CreatePublisher[T MessageType](node *Node, topic string, qos ...QoSProfile) (*Publisher[T], error) {
	profile := resolveQoS(qos)
	var zero T
	h, err := node.ctx.gate.NewPublisher(node.handle, topic, zero.TypeSupport(), profile)
	if err != nil {
		return nil, &BadAllocError{What: "publisher on " + topic, Cause: err}
	}
	return &Publisher[T]{node: node, handle: h, topic: topic, qos: profile}, nil
}

// Send copies msg into the runtime.
func (p *Publisher[T]) Send(msg T) error {
	if err := p.node.ctx.gate.Publish(p.handle, msg); err != nil {
		return &PublishFailedError{Topic: p.topic, Cause: err}
	}
	return nil
}

// Topic returns the publisher's topic name.
func (p *Publisher[T]) Topic() string { return p.topic }

// Close destroys the publisher's runtime handle.
func (p *Publisher[T]) Close() error {
	return p.node.ctx.gate.DestroyPublisher(p.handle)
}
