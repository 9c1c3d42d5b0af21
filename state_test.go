package safedrive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastStateTryTransition(t *testing.T) {
	s := newFastState(stateRegistered)
	require.Equal(t, stateRegistered, s.Load())

	require.True(t, s.TryTransition(stateRegistered, stateFiring))
	require.Equal(t, stateFiring, s.Load())

	// A transition from the wrong source state must fail and leave state
	// untouched.
	require.False(t, s.TryTransition(stateRegistered, stateUnregistered))
	require.Equal(t, stateFiring, s.Load())

	require.True(t, s.TryTransition(stateFiring, stateUnregistered))
	require.Equal(t, stateUnregistered, s.Load())
}

func TestFastLifecycle(t *testing.T) {
	l := newFastLifecycle()
	require.True(t, l.IsOpen())
	require.True(t, l.TryTransition(lifecycleOpen, lifecycleClosed))
	require.False(t, l.IsOpen())
	require.False(t, l.TryTransition(lifecycleOpen, lifecycleClosed))
}
