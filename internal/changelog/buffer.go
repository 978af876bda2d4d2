// Package changelog implements the Change Buffer (C2): the two-state
// capture point between the file watcher and the on-disk changes log
// (spec.md §4.2).
package changelog

import (
	"sync"

	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/logfile"
)

// Buffer captures events from C1 into one of two places depending on
// whether a pipeline cycle is currently analysing the changes file:
//
//   - not analysing — append the event straight to the on-disk changes
//     file.
//   - analysing — push it onto an in-memory queue (mutex-protected),
//     since the changes file is being read and rewritten by the cycle.
//
// Grounded on the teacher's internal/sync/buffer.go Buffer (mutex +
// pending slice + flush-then-clear), narrowed to FIFO append in capture
// order rather than per-path grouping — spec.md §3's EventBatch ordering
// is capture order, not last-write-per-path.
type Buffer struct {
	changesPath string

	mu     sync.Mutex
	queued []event.Event
}

// New returns a Buffer that appends directly to the file at changesPath
// when not analysing, and queues in memory otherwise.
func New(changesPath string) *Buffer {
	return &Buffer{changesPath: changesPath}
}

// Capture records e, choosing the on-disk or in-memory path based on
// analysing. Called by C1 on every filtered filesystem notification.
func (b *Buffer) Capture(e event.Event, analysing bool) error {
	if analysing {
		b.mu.Lock()
		b.queued = append(b.queued, e)
		b.mu.Unlock()

		return nil
	}

	return logfile.Append(b.changesPath, e)
}

// Drain removes and returns every event queued while analysing was true,
// in capture order, leaving the in-memory queue empty. Callers are
// expected to truncate the changes file and append the drained batch
// back to it (spec.md §4.4 steps 7–8), preserving any event captured
// between the truncate and the drain (I5).
func (b *Buffer) Drain() event.Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	drained := make(event.Batch, len(b.queued))
	copy(drained, b.queued)
	b.queued = b.queued[:0]

	return drained
}

// Pending reports how many events are currently queued in memory,
// without draining them. Useful for diagnostics and tests.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.queued)
}
