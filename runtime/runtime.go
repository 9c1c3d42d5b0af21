// Package runtime fixes the boundary between safe-drive and the underlying
// middleware that actually does transport and discovery. safe-drive never
// talks to a network or a wire format directly: every create, destroy,
// publish, take, and wait crosses this interface. Concrete middleware
// integrations, and the generated message/service types that accompany
// them, are external collaborators supplied by the application.
package runtime

import "time"

// HandleID identifies an object owned by the middleware. IDs are unique and
// stable for the lifetime of the object they name: once assigned, an ID is
// never reused while its object is alive. safe-drive keys its registries by
// HandleID rather than by any user-visible name, mirroring the
// pointer-identity keying the original implementation uses for its wait-set
// entries.
type HandleID uint64

// ContextHandle names one initialized middleware instance.
type ContextHandle struct{ ID HandleID }

// NodeHandle names one participant within a context.
type NodeHandle struct{ ID HandleID }

// PublisherHandle names one outbound endpoint.
type PublisherHandle struct{ ID HandleID }

// SubscriptionHandle names one inbound endpoint.
type SubscriptionHandle struct{ ID HandleID }

// ServerHandle names one request/reply responder endpoint.
type ServerHandle struct{ ID HandleID }

// ClientHandle names one request/reply requester endpoint.
type ClientHandle struct{ ID HandleID }

// GuardHandle names one userspace-triggerable wake source.
type GuardHandle struct{ ID HandleID }

// WaitSetHandle names one wait-set, the middleware's aggregate of
// ready-sources a Selector blocks on.
type WaitSetHandle struct{ ID HandleID }

// RequestID correlates a Client's request to the Server's eventual reply
// within one service, as middleware request/reply headers do.
type RequestID uint64

// RequestHeader accompanies a request taken by a Server; Responder.Send
// must echo it back so the middleware can route the reply to the
// originating Client.
type RequestHeader struct {
	RequestID RequestID
	ClientID  HandleID
}

// TypeSupport is the opaque type-support handle every message or service
// schema must supply: the middleware uses it to locate the schema's
// (de)serializer. safe-drive never inspects it; it only threads it through.
type TypeSupport struct {
	// Name is the schema's fully-qualified name, e.g. "std_msgs/msg/Float32"
	// or "example_srvs/srv/AddTwoInts". Used only for diagnostics/logging.
	Name string
}

// TakeStatus reports the outcome of a non-blocking take.
type TakeStatus int

const (
	// TakeOK indicates a message or request was taken.
	TakeOK TakeStatus = iota
	// TakeRetryLater indicates nothing was available; not an error.
	TakeRetryLater
	// TakeFailed indicates the middleware reported a transient take failure.
	TakeFailed
)

// ReadySet reports, after a Wait call, which handles in each class became
// ready. Within a class, order is whatever the middleware returns and must
// not be relied upon (see spec Open Question (a)).
type ReadySet struct {
	Subscriptions   []SubscriptionHandle
	Servers         []ServerHandle
	Clients         []ClientHandle
	GuardConditions []GuardHandle
}

// Middleware is the full surface safe-drive consumes from the underlying
// pub/sub and request/reply transport. One implementation wraps a real
// middleware's C or Go bindings; another (runtime/fake) simulates one
// in-process for tests. Every method may be called from any goroutine;
// implementations are responsible for their own internal synchronization
// (safe-drive additionally serializes the subset of calls documented as
// non-reentrant via its own runtime façade, see ../runtime_gate.go).
type Middleware interface {
	NewContext() (ContextHandle, error)
	DestroyContext(ContextHandle) error

	NewNode(ctx ContextHandle, name, namespace string) (NodeHandle, error)
	DestroyNode(NodeHandle) error

	NewPublisher(node NodeHandle, topic string, ts TypeSupport, qos Profile) (PublisherHandle, error)
	DestroyPublisher(PublisherHandle) error
	Publish(pub PublisherHandle, msg any) error

	NewSubscription(node NodeHandle, topic string, ts TypeSupport, qos Profile) (SubscriptionHandle, error)
	DestroySubscription(SubscriptionHandle) error
	TryTake(sub SubscriptionHandle) (msg any, status TakeStatus, err error)

	NewServer(node NodeHandle, service string, ts TypeSupport, qos Profile) (ServerHandle, error)
	DestroyServer(ServerHandle) error
	TryTakeRequest(srv ServerHandle) (req any, header RequestHeader, status TakeStatus, err error)
	SendResponse(srv ServerHandle, header RequestHeader, resp any) error

	NewClient(node NodeHandle, service string, ts TypeSupport, qos Profile) (ClientHandle, error)
	DestroyClient(ClientHandle) error
	SendRequest(cli ClientHandle, req any) (RequestID, error)
	TryTakeResponse(cli ClientHandle) (resp any, id RequestID, status TakeStatus, err error)

	NewGuardCondition(ctx ContextHandle) (GuardHandle, error)
	DestroyGuardCondition(GuardHandle) error
	TriggerGuardCondition(GuardHandle) error

	NewWaitSet(ctx ContextHandle) (WaitSetHandle, error)
	DestroyWaitSet(WaitSetHandle) error
	ClearWaitSet(ws WaitSetHandle) error
	ResizeWaitSet(ws WaitSetHandle, subs, guards, clients, services int) error
	AddSubscriptionToWaitSet(ws WaitSetHandle, sub SubscriptionHandle) error
	AddGuardConditionToWaitSet(ws WaitSetHandle, g GuardHandle) error
	AddClientToWaitSet(ws WaitSetHandle, c ClientHandle) error
	AddServerToWaitSet(ws WaitSetHandle, s ServerHandle) error

	// Wait blocks until a registered source is ready or timeout elapses.
	// A negative timeout blocks indefinitely. A zero ReadySet with a nil
	// error means the call timed out, which is not itself an error at
	// this layer (the caller maps it).
	Wait(ws WaitSetHandle, timeout time.Duration) (ReadySet, error)
}
