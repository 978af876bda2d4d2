// Package watcher implements Event Capture (C1): subscribing to recursive
// filesystem notifications rooted at the sync directory, filtering out
// uninteresting events, and normalizing the survivors into event.Events
// handed to the pipeline's Capture sink (spec.md §4.1).
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/syncbridge/filesync/internal/event"
)

// FsWatcher abstracts the notification source so tests can inject a fake
// without touching the real filesystem. Satisfied by *fsnotify.Watcher
// through fsnotifyWrapper. Grounded on the teacher's
// internal/sync/observer_local.go FsWatcher interface.
type FsWatcher interface {
	Add(name string) error
	Remove(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWrapper struct{ w *fsnotify.Watcher }

func (fw *fsnotifyWrapper) Add(name string) error         { return fw.w.Add(name) }
func (fw *fsnotifyWrapper) Remove(name string) error       { return fw.w.Remove(name) }
func (fw *fsnotifyWrapper) Close() error                   { return fw.w.Close() }
func (fw *fsnotifyWrapper) Events() <-chan fsnotify.Event  { return fw.w.Events }
func (fw *fsnotifyWrapper) Errors() <-chan error           { return fw.w.Errors }

// Sink receives one normalized, filtered event per filesystem notification.
// Satisfied by (*pipeline.Pipeline).Capture.
type Sink func(event.Event) error

// renamePairWindow bounds how long a captured RenameFrom waits for its
// matching Create (fsnotify folds a rename's destination half, inotify's
// IN_MOVED_TO, into a bare Create — there is no cookie in fsnotify's public
// API to correlate it directly). A Create arriving within this window of a
// pending RenameFrom is treated as the rename's destination (RenameTo); a
// Create arriving after it, or with no pending RenameFrom, is a bare create
// and is filtered (spec.md §4.1 — "every create is followed by a modify
// that carries the real content").
const renamePairWindow = 250 * time.Millisecond

// Watcher recursively watches a sync root and emits filtered, normalized
// events to a Sink. Grounded on the teacher's internal/sync/observer_local.go
// LocalObserver.Watch/watchLoop shape, stripped of the baseline-diff/hash
// machinery (this spec is pure event-driven — no rescan-against-baseline
// reconciliation model).
type Watcher struct {
	root           string
	sink           Sink
	logger         *slog.Logger
	watcherFactory func() (FsWatcher, error)

	pendingFrom   *event.Event
	pendingFromAt time.Time
}

// New returns a Watcher rooted at root, delivering filtered events to sink.
func New(root string, sink Sink, logger *slog.Logger) *Watcher {
	return &Watcher{
		root:   root,
		sink:   sink,
		logger: logger,
		watcherFactory: func() (FsWatcher, error) {
			w, err := fsnotify.NewWatcher()
			if err != nil {
				return nil, err
			}

			return &fsnotifyWrapper{w: w}, nil
		},
	}
}

// Run subscribes to the sync root and blocks until ctx is cancelled or the
// notification source closes its channels.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := w.watcherFactory()
	if err != nil {
		return fmt.Errorf("watcher: creating filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addWatchesRecursive(watcher, w.root); err != nil {
		return fmt.Errorf("watcher: adding initial watches: %w", err)
	}

	pairTimer := time.NewTimer(time.Hour)
	if !pairTimer.Stop() {
		<-pairTimer.C
	}
	defer pairTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case fsEvent, ok := <-watcher.Events():
			if !ok {
				return nil
			}

			w.handleEvent(watcher, fsEvent, pairTimer)

		case watchErr, ok := <-watcher.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.Any("err", watchErr))

		case <-pairTimer.C:
			w.flushPendingAsRemove()
		}
	}
}

// addWatchesRecursive walks root and adds a watch on every directory.
func (w *Watcher) addWatchesRecursive(watcher FsWatcher, root string) error {
	return filepath.WalkDir(root, func(fsPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("walk error during watch setup", slog.String("path", fsPath), slog.Any("err", walkErr))
			return nil
		}

		if !d.IsDir() {
			return nil
		}

		if err := watcher.Add(fsPath); err != nil {
			w.logger.Warn("failed to add watch", slog.String("path", fsPath), slog.Any("err", err))
		}

		return nil
	})
}

// handleEvent classifies a single fsnotify event per spec.md §4.1's
// filter and hands survivors to the sink.
func (w *Watcher) handleEvent(watcher FsWatcher, fsEvent fsnotify.Event, pairTimer *time.Timer) {
	rel, err := filepath.Rel(w.root, fsEvent.Name)
	if err != nil {
		w.logger.Warn("failed to compute relative path", slog.String("path", fsEvent.Name), slog.Any("err", err))
		return
	}

	relPath := event.NormalizePath(rel)
	if relPath == "" {
		return
	}

	if err := event.ValidatePath(relPath); err != nil {
		w.logger.Warn("rejecting event with invalid path", slog.String("path", relPath), slog.Any("err", err))
		return
	}

	now := time.Now()

	switch {
	case fsEvent.Has(fsnotify.Create):
		w.handleCreate(watcher, fsEvent.Name, relPath, now, pairTimer)

	case fsEvent.Has(fsnotify.Write):
		w.flushPendingAsRemove()

		if isDir(fsEvent.Name) {
			// Directory mtime changes are noise (spec.md §4.1): the
			// contained file generates its own Modify event.
			return
		}

		w.emit(event.KindModify, relPath, now)

	case fsEvent.Has(fsnotify.Remove):
		w.flushPendingAsRemove()
		w.emit(event.KindRemove, relPath, now)

	case fsEvent.Has(fsnotify.Rename):
		w.flushPendingAsRemove()

		e, err := event.New(event.KindRenameFrom, relPath, now)
		if err != nil {
			w.logger.Warn("dropping malformed rename event", slog.Any("err", err))
			return
		}

		w.pendingFrom = &e
		w.pendingFromAt = now
		pairTimer.Reset(renamePairWindow)

	case fsEvent.Has(fsnotify.Chmod):
		// Attribute-only changes (the closest fsnotify equivalent to the
		// source notify crate's open/close access events) carry no
		// content change and are dropped.
	}
}

// handleCreate decides whether a Create event is the destination half of a
// pending rename or a bare create. Bare creates are filtered per spec.md
// §4.1, but a newly created directory still needs a recursive watch added.
func (w *Watcher) handleCreate(watcher FsWatcher, fsPath, relPath string, now time.Time, pairTimer *time.Timer) {
	if w.pendingFrom != nil && now.Sub(w.pendingFromAt) <= renamePairWindow {
		pairTimer.Stop()

		w.emitEvent(*w.pendingFrom)

		e, err := event.New(event.KindRenameTo, relPath, now)
		if err == nil {
			w.emitEvent(e)
		} else {
			w.logger.Warn("dropping malformed rename-to event", slog.Any("err", err))
		}

		w.pendingFrom = nil

		if isDir(fsPath) {
			if addErr := w.addWatchesRecursive(watcher, fsPath); addErr != nil {
				w.logger.Warn("failed to add watches under renamed directory", slog.Any("err", addErr))
			}
		}

		return
	}

	// Bare create: not synced directly (a Modify always follows with the
	// real content), but a new directory still needs a watch.
	if isDir(fsPath) {
		if err := w.addWatchesRecursive(watcher, fsPath); err != nil {
			w.logger.Warn("failed to add watches under new directory", slog.Any("err", err))
		}
	}
}

// flushPendingAsRemove resolves a pending RenameFrom that never found its
// matching Create within the pairing window: some filesystems announce a
// deletion as a bare RenameFrom, and the compactor applies the same rule
// again defensively (spec.md §4.3).
func (w *Watcher) flushPendingAsRemove() {
	if w.pendingFrom == nil {
		return
	}

	e, err := event.New(event.KindRemove, w.pendingFrom.Path, w.pendingFrom.Time)
	if err == nil {
		w.emitEvent(e)
	}

	w.pendingFrom = nil
}

func (w *Watcher) emit(kind event.Kind, relPath string, t time.Time) {
	e, err := event.New(kind, relPath, t)
	if err != nil {
		w.logger.Warn("dropping malformed event", slog.Any("err", err))
		return
	}

	w.emitEvent(e)
}

func (w *Watcher) emitEvent(e event.Event) {
	if err := w.sink(e); err != nil {
		w.logger.Warn("capture sink failed", slog.String("path", e.Path), slog.Any("err", err))
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.IsDir()
}
