package safedrive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xbroquer/safe-drive/runtime"
)

type testAddReq struct{ A, B int64 }

func (testAddReq) TypeSupport() runtime.TypeSupport {
	return runtime.TypeSupport{Name: "test_srvs/srv/AddTwoInts_Request"}
}

type testAddResp struct{ Sum int64 }

func (testAddResp) TypeSupport() runtime.TypeSupport {
	return runtime.TypeSupport{Name: "test_srvs/srv/AddTwoInts_Response"}
}

type testAddTwoInts struct{}

func (testAddTwoInts) ServiceTypeSupport() runtime.TypeSupport {
	return runtime.TypeSupport{Name: "test_srvs/srv/AddTwoInts"}
}

func TestServerTryRecvRespondRoundTrip(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)

	srv, err := CreateServer[testAddReq, testAddResp](node, "add", testAddTwoInts{})
	require.NoError(t, err)
	cli, err := CreateClient[testAddReq, testAddResp](node, "add", testAddTwoInts{})
	require.NoError(t, err)

	_, _, err = srv.TryRecv()
	require.ErrorIs(t, err, RetryLater)

	reqID, err := cli.SendRequest(testAddReq{A: 2, B: 3})
	require.NoError(t, err)

	req, header, err := srv.TryRecv()
	require.NoError(t, err)
	require.Equal(t, reqID, header.RequestID)
	require.Equal(t, int64(2), req.A)

	require.NoError(t, srv.Respond(header, testAddResp{Sum: req.A + req.B}))

	resp, gotID, err := cli.TryRecvResponse()
	require.NoError(t, err)
	require.Equal(t, reqID, gotID)
	require.Equal(t, int64(5), resp.Sum)
}

// Exercises Server.Recv (the async half of spec.md §4.7's "futures produced
// by recv() on Subscriber/Server/Client") together with Client.Call.
func TestServerRecvRespondsToAsyncClientCall(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)
	srv, err := CreateServer[testAddReq, testAddResp](node, "add", testAddTwoInts{})
	require.NoError(t, err)
	cli, err := CreateClient[testAddReq, testAddResp](node, "add", testAddTwoInts{})
	require.NoError(t, err)

	srvDone := make(chan error, 1)
	go func() {
		recvCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		responder, req, _, err := srv.Recv(recvCtx)
		if err != nil {
			srvDone <- err
			return
		}
		srvDone <- responder.Send(testAddResp{Sum: req.A + req.B})
	}()

	callCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := cli.Call(callCtx, testAddReq{A: 4, B: 5})
	require.NoError(t, err)
	require.Equal(t, int64(9), resp.Sum)
	require.NoError(t, <-srvDone)
}

func TestServerRecvCancellation(t *testing.T) {
	ctx := newTestContext(t)
	node, err := ctx.CreateNode("n")
	require.NoError(t, err)
	srv, err := CreateServer[testAddReq, testAddResp](node, "add", testAddTwoInts{})
	require.NoError(t, err)

	recvCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, _, err = srv.Recv(recvCtx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
