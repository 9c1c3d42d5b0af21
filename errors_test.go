package safedrive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRetryLaterSentinelMatching(t *testing.T) {
	wrapped := WrapError("take", RetryLater)
	require.ErrorIs(t, wrapped, RetryLater)
}

func TestInvalidArgumentErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := &InvalidArgumentError{What: "topic name", Cause: cause}
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "topic name")
}

func TestTakeFailedErrorUnwraps(t *testing.T) {
	cause := errors.New("runtime exploded")
	err := &TakeFailedError{Cause: cause}
	require.ErrorIs(t, err, cause)
}
