package safedrive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Grounded on original_source/tests/async_pubsub.rs: messages sent with an
// inter-message delay must be observed, in order, by successive async Recv
// calls (SPEC_FULL.md §4 supplemented feature 5).
func TestAsyncSubscriberRecvOrdering(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)
	pub, err := CreatePublisher[testFloat32](node, "t")
	require.NoError(t, err)
	sub, err := CreateSubscriber[testFloat32](node, "t")
	require.NoError(t, err)

	go func() {
		for i := 0; i < 3; i++ {
			_ = pub.Send(testFloat32{Data: float32(i)})
			time.Sleep(30 * time.Millisecond)
		}
	}()

	recvCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		msg, err := sub.Recv(recvCtx)
		require.NoError(t, err)
		require.Equal(t, float32(i), msg.Data)
	}
}

// A message already sitting in the subscription before Recv is ever called
// must be observed by the non-blocking try, not lost waiting on a wake that
// never comes.
func TestAsyncSubscriberRecvSeesPriorMessage(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)
	pub, err := CreatePublisher[testFloat32](node, "t")
	require.NoError(t, err)
	sub, err := CreateSubscriber[testFloat32](node, "t")
	require.NoError(t, err)

	require.NoError(t, pub.Send(testFloat32{Data: 7}))

	recvCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.Recv(recvCtx)
	require.NoError(t, err)
	require.Equal(t, float32(7), msg.Data)
}

func TestAsyncSubscriberRecvCancellation(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)
	sub, err := CreateSubscriber[testFloat32](node, "t")
	require.NoError(t, err)

	recvCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = sub.Recv(recvCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

// The timer future half of spec.md §4.7's async public surface: Sleep
// resolves once its duration elapses.
func TestContextSleepResolvesAfterDuration(t *testing.T) {
	ctx := newTestContext(t)

	sleepCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, ctx.Sleep(sleepCtx, 60*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestContextSleepCancellation(t *testing.T) {
	ctx := newTestContext(t)

	sleepCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := ctx.Sleep(sleepCtx, time.Hour)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
