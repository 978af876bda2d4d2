// Package compact implements the pure, idempotent event-log compaction
// function shared by the client's changes-file compaction and the
// server's authoritative-log compaction (spec.md §4.3, §4.6).
package compact

import (
	"sort"
	"strings"

	"github.com/syncbridge/filesync/internal/event"
)

// Compact reduces a batch of events to the minimal set that preserves
// their net effect: a rename pair is spliced into a single Rename, and any
// event dominated by a later event on the same or a containing path is
// dropped (invariants I3, I4). The result is sorted by time ascending.
//
// Compact is idempotent: Compact(Compact(es)) produces the same events as
// Compact(es) (property P1).
func Compact(events []event.Event) []event.Event {
	paired := pairRenames(events)
	survivors := dominance(paired)

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Time.Before(survivors[j].Time)
	})

	return survivors
}

// pairRenames implements pass 1: a RenameFrom immediately followed by its
// matching RenameTo becomes a single Rename event whose path is the
// "from$-$to" join and whose time is the RenameTo's time. A RenameFrom
// that is never fused is rewritten as Remove, since some filesystems
// announce a deletion as a bare RenameFrom.
func pairRenames(events []event.Event) []event.Event {
	out := make([]event.Event, 0, len(events))

	var pendingFrom *event.Event

	flushPending := func() {
		if pendingFrom != nil {
			out = append(out, event.Event{
				Kind: event.KindRemove,
				Path: pendingFrom.Path,
				Time: pendingFrom.Time,
			})
			pendingFrom = nil
		}
	}

	for i := range events {
		e := events[i]

		switch e.Kind {
		case event.KindRenameFrom:
			flushPending()
			from := e
			pendingFrom = &from
		case event.KindRenameTo:
			if pendingFrom != nil {
				out = append(out, event.Event{
					Kind: event.KindRename,
					Path: event.JoinRename(pendingFrom.Path, e.Path),
					Time: e.Time,
				})
				pendingFrom = nil
			} else {
				out = append(out, e)
			}
		default:
			flushPending()
			out = append(out, e)
		}
	}

	flushPending()

	return out
}

// scored pairs a candidate event with the path dominance keys off of (the
// rename's "from" half rather than its joined path) and its input order,
// used for deterministic tie-breaking.
type scored struct {
	event event.Event
	path  string
	order int
}

type dedupKey struct {
	path string
	kind event.Kind
}

// dominance implements pass 2. A Remove is dominated by a later Modify or
// Rename on the same path. A Modify or Rename is dominated by a later
// Remove on its path or any prefix directory of its path. A surviving
// Modify whose prefix has been renamed by a surviving Rename is rewritten
// to carry both the rename and the content write.
func dominance(events []event.Event) []event.Event {
	latestModifyOrRenameAt := make(map[string]int64)
	latestRemoveAt := make(map[string]int64)

	candidates := make([]scored, 0, len(events))

	for i, e := range events {
		switch e.Kind {
		case event.KindModify:
			candidates = append(candidates, scored{event: e, path: e.Path, order: i})
			if ts := e.Time.UnixNano(); ts > latestModifyOrRenameAt[e.Path] {
				latestModifyOrRenameAt[e.Path] = ts
			}
		case event.KindRemove:
			candidates = append(candidates, scored{event: e, path: e.Path, order: i})
			if ts := e.Time.UnixNano(); ts > latestRemoveAt[e.Path] {
				latestRemoveAt[e.Path] = ts
			}
		case event.KindRename:
			from, _, ok := event.SplitRename(e.Path)
			if !ok {
				from = e.Path
			}
			candidates = append(candidates, scored{event: e, path: from, order: i})
			if ts := e.Time.UnixNano(); ts > latestModifyOrRenameAt[from] {
				latestModifyOrRenameAt[from] = ts
			}
		}
	}

	// For prefix-dominance: the latest Remove time among all Removes on a
	// path itself or any ancestor directory of it.
	latestDominatingRemove := func(p string) (int64, bool) {
		best := int64(0)
		found := false

		for removedPath, ts := range latestRemoveAt {
			if event.IsUnderDir(p, removedPath) {
				if !found || ts > best {
					best = ts
					found = true
				}
			}
		}

		return best, found
	}

	// Dedup keyed by (path, kind), keeping the later-time entry; ties
	// broken by later input order (I3).
	best := make(map[dedupKey]scored)

	for _, c := range candidates {
		dk := dedupKey{path: c.path, kind: c.event.Kind}

		existing, ok := best[dk]
		if !ok {
			best[dk] = c
			continue
		}

		if c.event.Time.After(existing.event.Time) ||
			(c.event.Time.Equal(existing.event.Time) && c.order > existing.order) {
			best[dk] = c
		}
	}

	survivors := make([]scored, 0, len(best))

	for _, c := range best {
		switch c.event.Kind {
		case event.KindRemove:
			if latest, ok := latestModifyOrRenameAt[c.path]; ok && latest > c.event.Time.UnixNano() {
				continue // dominated by a later Modify/Rename on the same path
			}
		case event.KindModify, event.KindRename:
			if removeTS, ok := latestDominatingRemove(c.path); ok && removeTS > c.event.Time.UnixNano() {
				continue // dominated by a later Remove on this path or an ancestor
			}
		}

		survivors = append(survivors, c)
	}

	// Restore input order (map iteration order is random) so Compact's
	// stable sort by time breaks ties deterministically.
	sort.Slice(survivors, func(i, j int) bool {
		return survivors[i].order < survivors[j].order
	})

	return rewriteRenamedPrefixes(survivors)
}

// rewriteRenamedPrefixes implements the third dominance-pass rule: a
// surviving Modify on path p whose prefix directory was renamed by a
// surviving Rename old->new gets its path rewritten to carry both the
// rename and the write, so the consumer knows to perform both actions.
// A Modify whose path already contains RenameSep was rewritten by a prior
// call — skipped so repeated compaction stays idempotent (P1).
func rewriteRenamedPrefixes(survivors []scored) []event.Event {
	type rename struct{ old, new string }

	var renames []rename

	for _, s := range survivors {
		if s.event.Kind != event.KindRename {
			continue
		}

		old, newPath, ok := event.SplitRename(s.event.Path)
		if !ok {
			continue
		}

		renames = append(renames, rename{old: old, new: newPath})
	}

	out := make([]event.Event, 0, len(survivors))

	for _, s := range survivors {
		e := s.event

		if e.Kind == event.KindModify && !strings.Contains(e.Path, event.RenameSep) {
			for _, r := range renames {
				if r.old == e.Path {
					continue // the rename event itself covers this path
				}

				if event.IsUnderDir(e.Path, r.old) {
					rewritten := event.RewriteUnderRename(e.Path, r.old, r.new)
					e.Path = event.JoinRename(e.Path, rewritten)

					break
				}
			}
		}

		out = append(out, e)
	}

	return out
}
