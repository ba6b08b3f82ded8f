package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvbridge/internal/rpc"
)

func echoHandler(_ context.Context, _ json.RawMessage, params json.RawMessage) (json.RawMessage, error) {
	return params, nil
}

func TestDispatchEchoesRequestID(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register("echo", echoHandler)

	req := rpc.NewRequest(rpc.Int64ID(3), "echo", []byte(`["print 1"]`))
	resp := r.Dispatch(context.Background(), req)

	assert.Equal(t, string(rpc.Int64ID(3)), string(resp.ID))
	assert.JSONEq(t, `["print 1"]`, string(resp.Result))
	assert.Nil(t, resp.Error)
}

func TestDispatchUnknownMethod(t *testing.T) {
	r := NewRegistry(slog.Default())

	req := rpc.NewRequest(rpc.Int64ID(8), "no_such_method", nil)
	resp := r.Dispatch(context.Background(), req)

	require.NotNil(t, resp.Error)
	assert.Equal(t, rpc.CodeMethodNotFound, resp.Error.Code)
	assert.Equal(t, string(rpc.Int64ID(8)), string(resp.ID))
}

func TestDispatchHandlerErrorBecomesResult(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register("broken", func(context.Context, json.RawMessage, json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("script blew up")
	})

	resp := r.Dispatch(context.Background(), rpc.NewRequest(rpc.Int64ID(1), "broken", nil))

	require.Nil(t, resp.Error, "handler failures never become protocol errors")
	assert.JSONEq(t, `"script blew up"`, string(resp.Result))
}

func TestDispatchHandlerPanicBecomesResult(t *testing.T) {
	r := NewRegistry(slog.Default())
	r.Register("panicky", func(context.Context, json.RawMessage, json.RawMessage) (json.RawMessage, error) {
		panic("boom")
	})

	resp := r.Dispatch(context.Background(), rpc.NewRequest(rpc.Int64ID(2), "panicky", nil))

	require.Nil(t, resp.Error)
	assert.JSONEq(t, `"boom"`, string(resp.Result))
}

func TestDispatchNotificationDiscardsOutcome(t *testing.T) {
	r := NewRegistry(slog.Default())
	called := false
	r.Register("fire", func(context.Context, json.RawMessage, json.RawMessage) (json.RawMessage, error) {
		called = true
		return nil, errors.New("ignored")
	})

	r.DispatchNotification(context.Background(), rpc.NewNotification("fire", nil))
	assert.True(t, called)

	// Unknown methods are silently dropped too.
	r.DispatchNotification(context.Background(), rpc.NewNotification("missing", nil))
}

func TestPingEchoesSequence(t *testing.T) {
	r := NewRegistry(slog.Default())

	req := rpc.NewRequest(rpc.Int64ID(5), "ping", []byte(`{"seq":7}`))
	resp := r.Dispatch(context.Background(), req)

	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"seq":7}`, string(resp.Result))
	assert.Equal(t, string(rpc.Int64ID(5)), string(resp.ID))
}

func TestPingWithoutParams(t *testing.T) {
	r := NewRegistry(slog.Default())

	resp := r.Dispatch(context.Background(), rpc.NewRequest(rpc.Int64ID(6), "ping", nil))

	require.Nil(t, resp.Error)
	assert.JSONEq(t, `{"seq":null}`, string(resp.Result))
}
