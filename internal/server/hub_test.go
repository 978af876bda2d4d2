package server

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestHub_BroadcastsToOtherClientsNotSender(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	httpSrv := httptest.NewServer(hub)
	t.Cleanup(httpSrv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, _, err := websocket.Dial(ctx, wsURL(httpSrv.URL), nil)
	require.NoError(t, err)
	defer a.CloseNow()

	b, _, err := websocket.Dial(ctx, wsURL(httpSrv.URL), nil)
	require.NoError(t, err)
	defer b.CloseNow()

	// Give the hub a moment to register both clients before A speaks.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte("hello")))

	typ, data, err := b.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, websocket.MessageText, typ)
	require.Equal(t, updateMessage, string(data))
}

func TestHub_SenderDoesNotReceiveItsOwnBroadcast(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	httpSrv := httptest.NewServer(hub)
	t.Cleanup(httpSrv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	a, _, err := websocket.Dial(ctx, wsURL(httpSrv.URL), nil)
	require.NoError(t, err)
	defer a.CloseNow()

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, a.Write(ctx, websocket.MessageText, []byte("hello")))

	readCtx, readCancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer readCancel()

	_, _, err = a.Read(readCtx)
	require.Error(t, err, "sender should not receive its own broadcast")
}
