// Package wsnotify implements the client half of the Notification Bus (C7):
// a persistent websocket connection to the server's /ws endpoint that wakes
// the scheduler early whenever another client's cycle touches the
// authoritative log (spec.md §4.7).
//
// Grounded on original_source's drive sync/client/src/connection.rs
// create_socket/connect_to_ws, redesigned per spec.md §9's note: one reader
// goroutine owns the connection and publishes to a channel, instead of the
// source's shared-mutex-guarded socket polled every 100ms from a second
// thread.
package wsnotify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/coder/websocket"
)

// reconnectDelay is how long Run waits before redialing after the
// connection drops or fails to dial.
const reconnectDelay = 3 * time.Second

// updateMessage is the text payload the server broadcasts to every other
// connected client on activity (spec.md §4.7). "Updated" is accepted for
// compatibility with the source's broadcast spelling.
const (
	updateMessage       = "update"
	legacyUpdateMessage = "Updated"
)

// Client maintains a reconnecting websocket connection to a server and
// delivers a signal on Updates() each time the server reports activity.
type Client struct {
	url     string
	logger  *slog.Logger
	updates chan struct{}
}

// New returns a Client that will dial wsURL (e.g. "ws://host:port/ws") once
// Run is called.
func New(wsURL string, logger *slog.Logger) *Client {
	return &Client{
		url:     wsURL,
		logger:  logger,
		updates: make(chan struct{}, 1),
	}
}

// Updates returns the channel the scheduler should select on to wake early.
// It is buffered to 1 and coalesces bursts of server broadcasts into a
// single pending wakeup.
func (c *Client) Updates() <-chan struct{} {
	return c.updates
}

// Run dials the server and reads update notifications until ctx is
// cancelled, reconnecting with a fixed delay on any failure. It never
// returns an error to the caller; dial and read failures are logged and
// retried, since a lost notification connection must not stop the
// scheduler's own polling fallback (spec.md §4.7, §4.8).
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.runOnce(ctx); err != nil {
			c.logger.Warn("notification connection lost", slog.Any("err", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// runOnce dials the server once and reads messages until the connection
// closes or ctx is cancelled.
func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	c.logger.Debug("notification connection established", slog.String("url", c.url))

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		if typ != websocket.MessageText {
			continue
		}

		msg := strings.TrimSpace(string(data))
		if msg != updateMessage && msg != legacyUpdateMessage {
			continue
		}

		c.signal()
	}
}

// signal pushes a wakeup, dropping it if one is already pending.
func (c *Client) signal() {
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
