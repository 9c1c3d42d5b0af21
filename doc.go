// Package safedrive is a safe, typed client library for a distributed
// robotics publish/subscribe and request/reply middleware.
//
// # Architecture
//
// An application creates a Context against a concrete runtime.Middleware,
// derives one or more Nodes from it, and creates typed endpoints
// (Publisher, Subscriber, Server, Client) from each Node. Endpoints are
// driven either synchronously, by registering them with a Selector and
// calling Wait in a loop, or asynchronously, by calling their Recv/Call
// methods, which suspend on a per-Context background Selector (the "async
// selector") until data is ready. Context.Sleep is the same async
// selector's timer future, for code that needs to suspend without being
// tied to any single endpoint.
//
// # Platform/transport boundary
//
// safedrive never talks to a network or a wire format directly. Every
// create, destroy, publish, take, and wait crosses the runtime.Middleware
// interface; runtime/fake provides an in-memory implementation used by this
// package's own tests, and a production build supplies a real one.
//
// # Thread safety
//
// Context, Node, and every typed endpoint are safe to share and call
// concurrently from multiple goroutines: creates, destroys, and wait-set
// mutations cross a single process-wide critical section (see
// runtime_gate.go), while hot paths (Send, TryRecv, and friends) go
// straight to the middleware. A Selector itself is not: it must be created,
// registered on, and waited on from exactly one goroutine.
//
// # Execution model
//
// Selector.Wait runs one iteration of: clear and resize the wait-set,
// compute a timeout from the pending timer with the nearest deadline, block
// in the middleware's Wait call, fire due timers, then fan out readiness to
// subscriptions, servers, clients, and guard conditions in that fixed
// order. The async selector runs this same loop on a dedicated goroutine,
// turning each readiness event into a one-shot wake of whichever future is
// waiting on that endpoint.
//
// # Usage
//
//	mw := fake.New()
//	ctx, _ := safedrive.NewContext(mw)
//	node, _ := ctx.CreateNode("talker")
//	pub, _ := safedrive.CreatePublisher[Float32](node, "chatter")
//	_ = pub.Send(Float32{Data: 1.5})
//
// # Errors
//
// Lifecycle misuse, invalid arguments, and allocation failures are typed
// errors (AlreadyInitError, NotInitError, InvalidArgumentError,
// BadAllocError); transient take/publish/service failures are
// TakeFailedError, PublishFailedError, and ServiceCallFailedError; an empty
// non-blocking read is the RetryLater sentinel, not an error; Selector.Wait
// returns the Signaled sentinel when the process-wide halt flag was
// observed set.
package safedrive
