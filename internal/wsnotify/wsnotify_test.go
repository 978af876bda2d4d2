package wsnotify

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEchoServer(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()

		for _, m := range messages {
			if err := conn.Write(ctx, websocket.MessageText, []byte(m)); err != nil {
				return
			}
		}

		// Keep the connection open briefly so the client has time to read.
		time.Sleep(200 * time.Millisecond)
	}))

	t.Cleanup(srv.Close)

	return srv
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestClient_UpdateMessageSignalsUpdates(t *testing.T) {
	t.Parallel()

	srv := newEchoServer(t, "update")

	c := New(wsURL(srv.URL), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.Run(ctx)

	select {
	case <-c.Updates():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update signal")
	}
}

func TestClient_LegacyUpdatedMessageSignalsUpdates(t *testing.T) {
	t.Parallel()

	srv := newEchoServer(t, "Updated")

	c := New(wsURL(srv.URL), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.Run(ctx)

	select {
	case <-c.Updates():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update signal")
	}
}

func TestClient_UnrecognizedMessageIsIgnored(t *testing.T) {
	t.Parallel()

	srv := newEchoServer(t, "noise")

	c := New(wsURL(srv.URL), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	go c.Run(ctx)

	select {
	case <-c.Updates():
		t.Fatal("should not have received an update signal for unrecognized message")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestClient_BurstOfUpdatesCoalescesToOnePending(t *testing.T) {
	t.Parallel()

	srv := newEchoServer(t, "update", "update", "update")

	c := New(wsURL(srv.URL), testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go c.Run(ctx)

	require.Eventually(t, func() bool {
		select {
		case <-c.Updates():
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	// The channel is buffered to 1: a second immediate receive should not
	// be ready (bursts coalesce rather than queue).
	select {
	case <-c.Updates():
		t.Fatal("expected coalesced updates, got a second immediately queued signal")
	default:
	}
}

func TestClient_UnreachableServerReturnsWithoutPanicking(t *testing.T) {
	t.Parallel()

	c := New("ws://127.0.0.1:1/ws", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		c.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
