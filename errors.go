package safedrive

import (
	"errors"
	"fmt"
)

// RetryLater is the sentinel for "nothing available right now" returned by
// TryRecv, Server try-receive, and Client try-receive. It is deliberately
// not an error a caller needs to log; match it with errors.Is.
var RetryLater = errors.New("safedrive: retry later")

// Signaled is returned by Selector.Wait when the process-wide halt flag was
// observed set, either before the blocking wait or after it returned.
var Signaled = errors.New("safedrive: signaled")

// AlreadyInitError reports a lifecycle misuse: a Context, Node, or endpoint
// was initialized twice.
type AlreadyInitError struct {
	What string
}

func (e *AlreadyInitError) Error() string { return fmt.Sprintf("safedrive: %s already initialized", e.What) }

// NotInitError reports a lifecycle misuse: an operation was attempted on a
// Context, Node, or endpoint before it was initialized, or after it was
// destroyed.
type NotInitError struct {
	What string
}

func (e *NotInitError) Error() string { return fmt.Sprintf("safedrive: %s not initialized", e.What) }

// InvalidArgumentError reports the runtime refusing an operation because of
// a malformed argument (empty topic name, zero-depth keep-last QoS, etc).
type InvalidArgumentError struct {
	What  string
	Cause error
}

func (e *InvalidArgumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("safedrive: invalid argument: %s: %v", e.What, e.Cause)
	}
	return fmt.Sprintf("safedrive: invalid argument: %s", e.What)
}

func (e *InvalidArgumentError) Unwrap() error { return e.Cause }

// BadAllocError reports the runtime failing to allocate an object (a
// publisher, subscription, wait-set, or similar).
type BadAllocError struct {
	What  string
	Cause error
}

func (e *BadAllocError) Error() string {
	return fmt.Sprintf("safedrive: allocation failed: %s: %v", e.What, e.Cause)
}

func (e *BadAllocError) Unwrap() error { return e.Cause }

// TakeFailedError reports a transient failure taking a message, request, or
// response from the runtime. It is not RetryLater: something was pending
// but the runtime could not hand it over.
type TakeFailedError struct {
	Cause error
}

func (e *TakeFailedError) Error() string { return fmt.Sprintf("safedrive: take failed: %v", e.Cause) }

func (e *TakeFailedError) Unwrap() error { return e.Cause }

// PublishFailedError reports Publisher.Send failing at the runtime layer.
type PublishFailedError struct {
	Topic string
	Cause error
}

func (e *PublishFailedError) Error() string {
	return fmt.Sprintf("safedrive: publish on %q failed: %v", e.Topic, e.Cause)
}

func (e *PublishFailedError) Unwrap() error { return e.Cause }

// ServiceCallFailedError reports a Server/Client request or response path
// failing at the runtime layer.
type ServiceCallFailedError struct {
	Service string
	Cause   error
}

func (e *ServiceCallFailedError) Error() string {
	return fmt.Sprintf("safedrive: service call on %q failed: %v", e.Service, e.Cause)
}

func (e *ServiceCallFailedError) Unwrap() error { return e.Cause }

// ContextMismatchError reports an attempt to register an endpoint with a
// Selector built on a different Context. AddSubscriber and its siblings
// return false rather than this error, per spec: mismatch
// is a normal boolean outcome, not a propagated failure. This type exists
// so callers that want to distinguish "rejected: wrong context" from other
// reasons a register call might decline can still do so explicitly.
type ContextMismatchError struct {
	Endpoint string
}

func (e *ContextMismatchError) Error() string {
	return fmt.Sprintf("safedrive: %s belongs to a different context than this selector", e.Endpoint)
}

// WrapError attaches a message to a lower-level cause, the way the rest of
// this package's errors do when no dedicated type fits.
func WrapError(message string, cause error) error {
	return fmt.Errorf("safedrive: %s: %w", message, cause)
}
