package safedrive

import "github.com/xbroquer/safe-drive/runtime"

// MessageType is the contract every message schema must satisfy (spec.md
// §6 "Message schema contract"). Unlike the original implementation, Go has
// no manual init/fini pair to expose: a message is just a value, and the
// garbage collector retires it. What remains, and is still load-bearing,
// is the type-support handle the runtime uses to locate a (de)serializer;
// TypeSupport is called on the zero value of T, so it must not depend on
// any field being populated.
//
// Generated message types (outside this package's scope, see spec.md §1)
// implement this with a value receiver, e.g.:
//
//	type Float32 struct{ Data float32 }
//	func (Float32) TypeSupport() runtime.TypeSupport {
//		return runtime.TypeSupport{Name: "std_msgs/msg/Float32"}
//	}
type MessageType interface {
	TypeSupport() runtime.TypeSupport
}

// ServiceType is the contract a service schema must satisfy (spec.md §6
// "Service schema contract"): a service-level type-support handle shared by
// its Request/Response pair. A marker type with no fields typically
// implements this, e.g.:
//
//	type AddTwoInts struct{}
//	func (AddTwoInts) ServiceTypeSupport() runtime.TypeSupport {
//		return runtime.TypeSupport{Name: "example_srvs/srv/AddTwoInts"}
//	}
type ServiceType interface {
	ServiceTypeSupport() runtime.TypeSupport
}

// Sequence is a bounded or unbounded contiguous buffer of T, matching the
// sequence contract in spec.md §6: data/size/capacity, with a compile-time
// maximum N. N == 0 means unbounded. Grounded on
// original_source/src/msg/.../float_32.rs's FloatSequence, generalized with
// Go generics instead of one generated type per element type.
type Sequence[T any] struct {
	data []T
	max  int
}

// NewSequence allocates a sequence of the given size. If max != 0 and size
// exceeds it, it fails with InvalidArgumentError ("capacity exceeded"), per
// spec.md §6.
func NewSequence[T any](size, max int) (*Sequence[T], error) {
	if max != 0 && size > max {
		return nil, &InvalidArgumentError{What: "sequence capacity exceeded"}
	}
	return &Sequence[T]{data: make([]T, size), max: max}, nil
}

// Size reports the sequence's current length.
func (s *Sequence[T]) Size() int { return len(s.data) }

// Capacity reports the sequence's compile-time maximum, or 0 if unbounded.
func (s *Sequence[T]) Capacity() int { return s.max }

// AsSlice exposes the sequence's contents for reading.
func (s *Sequence[T]) AsSlice() []T { return s.data }

// AsSliceMut exposes the sequence's contents for writing.
func (s *Sequence[T]) AsSliceMut() []T { return s.data }

// Resize grows or shrinks the sequence, subject to the same bound
// NewSequence enforces.
func (s *Sequence[T]) Resize(size int) error {
	if s.max != 0 && size > s.max {
		return &InvalidArgumentError{What: "sequence capacity exceeded"}
	}
	if size <= len(s.data) {
		s.data = s.data[:size]
		return nil
	}
	grown := make([]T, size)
	copy(grown, s.data)
	s.data = grown
	return nil
}
