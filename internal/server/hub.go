package server

import (
	"context"
	"encoding/binary"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// updateMessage is broadcast to every other connected client whenever any
// client sends a text message over /ws (spec.md §4.7). "Updated" matches
// original_source's literal broadcast spelling; wsnotify accepts either.
const updateMessage = "update"

// Hub implements C7: the per-client registry of outbound channels and the
// broadcast-on-activity behavior every connected client observes.
// Grounded on original_source's Clients/client_loop/broadcast_clients
// (server/src/main.rs), redesigned per spec.md §9's note: a reader
// goroutine and a writer goroutine each own one half of the connection, so
// no mutex ever guards the socket itself — only the client registry is
// locked.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[uint64]chan string
}

// NewHub returns an empty Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[uint64]chan string),
	}
}

// ServeHTTP upgrades the request to a websocket connection and runs it
// until the client disconnects or the request context is cancelled.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("err", err))
		return
	}

	h.serve(r.Context(), conn)
}

// serve registers a client, runs its reader and writer halves, and
// unregisters it on exit.
func (h *Hub) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.CloseNow()

	id, outbound := h.register()
	defer h.unregister(id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		defer cancel()
		h.readLoop(ctx, conn, id)
	}()

	go func() {
		defer wg.Done()
		defer cancel()
		h.writeLoop(ctx, conn, outbound)
	}()

	wg.Wait()
}

// readLoop owns the read half of the connection: every text message it
// receives triggers a broadcast to every other registered client.
func (h *Hub) readLoop(ctx context.Context, conn *websocket.Conn, selfID uint64) {
	for {
		typ, _, err := conn.Read(ctx)
		if err != nil {
			return
		}

		if typ != websocket.MessageText {
			continue
		}

		h.broadcast(selfID)
	}
}

// writeLoop owns the write half of the connection, draining outbound
// until ctx is cancelled.
func (h *Hub) writeLoop(ctx context.Context, conn *websocket.Conn, outbound <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-outbound:
			if !ok {
				return
			}

			if err := conn.Write(ctx, websocket.MessageText, []byte(msg)); err != nil {
				return
			}
		}
	}
}

// register adds a new client to the hub under a random non-negative
// integer id (spec.md §4.7 — ClientRegistry keys connections by "an
// opaque client identifier", assigned randomly rather than sequentially)
// and returns that id and its outbound channel.
func (h *Hub) register() (uint64, chan string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := randomClientID()
	for {
		if _, exists := h.clients[id]; !exists {
			break
		}

		id = randomClientID()
	}

	ch := make(chan string, 8)
	h.clients[id] = ch

	return id, ch
}

// randomClientID returns a random non-negative uint64, derived from a
// v4 UUID's entropy rather than a weaker PRNG seed.
func randomClientID() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8]) &^ (1 << 63)
}

// unregister removes a client and closes its outbound channel.
func (h *Hub) unregister(id uint64) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		close(ch)
	}
}

// broadcast sends updateMessage to every registered client except
// excludeID, dropping the message for any client whose outbound buffer is
// full rather than blocking the broadcaster.
func (h *Hub) broadcast(excludeID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.clients {
		if id == excludeID {
			continue
		}

		select {
		case ch <- updateMessage:
		default:
		}
	}
}
