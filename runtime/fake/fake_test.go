package fake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbroquer/safe-drive/runtime"
)

func setup(t *testing.T) (*Runtime, runtime.ContextHandle, runtime.NodeHandle) {
	t.Helper()
	r := New()
	ctx, err := r.NewContext()
	require.NoError(t, err)
	node, err := r.NewNode(ctx, "n", "")
	require.NoError(t, err)
	return r, ctx, node
}

func TestPublishSubscribeFanOut(t *testing.T) {
	r, _, node := setup(t)
	pub, err := r.NewPublisher(node, "t", runtime.TypeSupport{Name: "x"}, runtime.DefaultProfile())
	require.NoError(t, err)
	sub, err := r.NewSubscription(node, "t", runtime.TypeSupport{Name: "x"}, runtime.DefaultProfile())
	require.NoError(t, err)

	_, status, _ := r.TryTake(sub)
	require.Equal(t, runtime.TakeRetryLater, status)

	require.NoError(t, r.Publish(pub, "hello"))

	msg, status, err := r.TryTake(sub)
	require.NoError(t, err)
	require.Equal(t, runtime.TakeOK, status)
	require.Equal(t, "hello", msg)

	_, status, _ = r.TryTake(sub)
	require.Equal(t, runtime.TakeRetryLater, status)
}

func TestKeepLastDropsOldest(t *testing.T) {
	r, _, node := setup(t)
	profile := runtime.DefaultProfile()
	profile.Depth = 2
	pub, err := r.NewPublisher(node, "t", runtime.TypeSupport{Name: "x"}, profile)
	require.NoError(t, err)
	sub, err := r.NewSubscription(node, "t", runtime.TypeSupport{Name: "x"}, profile)
	require.NoError(t, err)

	require.NoError(t, r.Publish(pub, 1))
	require.NoError(t, r.Publish(pub, 2))
	require.NoError(t, r.Publish(pub, 3))

	first, _, _ := r.TryTake(sub)
	second, _, _ := r.TryTake(sub)
	require.Equal(t, 2, first)
	require.Equal(t, 3, second)
}

func TestServerClientRoundTrip(t *testing.T) {
	r, _, node := setup(t)
	srv, err := r.NewServer(node, "svc", runtime.TypeSupport{Name: "s"}, runtime.ServicesProfile())
	require.NoError(t, err)
	cli, err := r.NewClient(node, "svc", runtime.TypeSupport{Name: "s"}, runtime.ServicesProfile())
	require.NoError(t, err)

	reqID, err := r.SendRequest(cli, "ping")
	require.NoError(t, err)

	req, header, status, err := r.TryTakeRequest(srv)
	require.NoError(t, err)
	require.Equal(t, runtime.TakeOK, status)
	require.Equal(t, "ping", req)
	require.Equal(t, reqID, header.RequestID)

	require.NoError(t, r.SendResponse(srv, header, "pong"))

	resp, gotID, status, err := r.TryTakeResponse(cli)
	require.NoError(t, err)
	require.Equal(t, runtime.TakeOK, status)
	require.Equal(t, "pong", resp)
	require.Equal(t, reqID, gotID)
}

func TestGuardConditionWaitSet(t *testing.T) {
	r, ctx, _ := setup(t)
	guard, err := r.NewGuardCondition(ctx)
	require.NoError(t, err)
	ws, err := r.NewWaitSet(ctx)
	require.NoError(t, err)
	require.NoError(t, r.ResizeWaitSet(ws, 0, 1, 0, 0))
	require.NoError(t, r.AddGuardConditionToWaitSet(ws, guard))

	done := make(chan runtime.ReadySet, 1)
	go func() {
		ready, err := r.Wait(ws, -1)
		require.NoError(t, err)
		done <- ready
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, r.TriggerGuardCondition(guard))

	select {
	case ready := <-done:
		require.Len(t, ready.GuardConditions, 1)
		require.Equal(t, guard, ready.GuardConditions[0])
	case <-time.After(time.Second):
		t.Fatal("wait did not return after trigger")
	}
}

func TestWaitTimesOutWithEmptyReadySet(t *testing.T) {
	r, ctx, _ := setup(t)
	ws, err := r.NewWaitSet(ctx)
	require.NoError(t, err)
	require.NoError(t, r.ResizeWaitSet(ws, 0, 0, 0, 0))

	ready, err := r.Wait(ws, 20*time.Millisecond)
	require.NoError(t, err)
	require.Empty(t, ready.Subscriptions)
	require.Empty(t, ready.GuardConditions)
}
