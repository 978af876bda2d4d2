// Package pipeline implements the Exchange Client (C4): one cycle of
// compact-fetch-exchange-drain that reconciles a client's local changes
// against the server's authoritative log (spec.md §4.4).
package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/syncbridge/filesync/internal/changelog"
	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/transferclient"
)

// Config names every path a cycle touches, all relative to or equal to
// the client's data directory.
type Config struct {
	// SyncRoot is the absolute local directory being synchronized.
	SyncRoot string
	// ChangesPath is the on-disk changes log C1/C2 append to.
	ChangesPath string
	// HistoryPath is the on-disk log of events already shipped to the
	// server.
	HistoryPath string
}

// Pipeline holds the state shared across C1, C2, C4, and C9 for one
// client: the Analysing flag, the change buffer, and the transfer client.
//
// Grounded on spec.md §9's design note: the source's module-level atomic
// `analysing` becomes a field of a single Pipeline value passed by shared
// reference, rather than a package-level global.
type Pipeline struct {
	cfg    Config
	client *transferclient.Client
	buffer *changelog.Buffer
	errLog *transferclient.ErrorLog
	logger *slog.Logger

	// Analysing gates Capture's on-disk-vs-queued behavior (spec.md §4.2).
	// Exported so C1's watcher can read it on every captured event without
	// a package-level global.
	Analysing atomic.Bool
}

// New constructs a Pipeline for one client cycle loop.
func New(cfg Config, client *transferclient.Client, errLog *transferclient.ErrorLog, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		client: client,
		buffer: changelog.New(cfg.ChangesPath),
		errLog: errLog,
		logger: logger,
	}
}

// Capture is called by C1 on every filtered filesystem notification.
func (p *Pipeline) Capture(e event.Event) error {
	return p.buffer.Capture(e, p.Analysing.Load())
}
