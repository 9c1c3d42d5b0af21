package safedrive

import "sync/atomic"

// registrationState is the per-ConditionHandler lifecycle named in spec
// §4.6: Registered -> Firing (callback executing) -> Registered (on Ok) or
// Unregistered (on Remove/once). Timer entries carry no state of their own.
type registrationState uint32

const (
	stateRegistered registrationState = iota
	stateFiring
	stateUnregistered
)

func (s registrationState) String() string {
	switch s {
	case stateRegistered:
		return "registered"
	case stateFiring:
		return "firing"
	case stateUnregistered:
		return "unregistered"
	default:
		return "unknown"
	}
}

// fastState is a cache-line-padded CAS state machine holding each
// conditionHandler's registrationState; the Selector's own lifecycle uses
// the separate fastLifecycle below. The padding avoids false sharing when
// many handlers sit in the same slice or map bucket.
type fastState struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newFastState(initial registrationState) *fastState {
	s := &fastState{}
	s.v.Store(uint32(initial))
	return s
}

func (s *fastState) Load() registrationState {
	return registrationState(s.v.Load())
}

func (s *fastState) Store(v registrationState) {
	s.v.Store(uint32(v))
}

// TryTransition performs a compare-and-swap from `from` to `to`, reporting
// whether it won the race.
func (s *fastState) TryTransition(from, to registrationState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// selectorLifecycle mirrors fastState's shape for the Selector's own
// open/closed lifecycle, kept as a distinct type so the two
// state spaces can never be confused at a call site.
type selectorLifecycle uint32

const (
	lifecycleOpen selectorLifecycle = iota
	lifecycleClosing
	lifecycleClosed
)

type fastLifecycle struct {
	_ [64]byte
	v atomic.Uint32
	_ [60]byte
}

func newFastLifecycle() *fastLifecycle {
	l := &fastLifecycle{}
	l.v.Store(uint32(lifecycleOpen))
	return l
}

func (l *fastLifecycle) Load() selectorLifecycle {
	return selectorLifecycle(l.v.Load())
}

func (l *fastLifecycle) TryTransition(from, to selectorLifecycle) bool {
	return l.v.CompareAndSwap(uint32(from), uint32(to))
}

func (l *fastLifecycle) IsOpen() bool {
	return l.Load() == lifecycleOpen
}
