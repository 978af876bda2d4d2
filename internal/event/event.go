package event

import "time"

// Event is the unit of change the pipeline moves between a change log, a
// history log, and the authoritative log (spec §3). Path is always in
// canonical form (NormalizePath); for Kind == KindRename it is the joined
// "from$-$to" form (JoinRename).
type Event struct {
	Kind Kind
	Path string
	Time time.Time
}

// New constructs an Event in canonical form, validating its path.
func New(kind Kind, path string, t time.Time) (Event, error) {
	path = NormalizePath(path)
	if err := ValidatePath(path); err != nil {
		return Event{}, err
	}

	return Event{Kind: kind, Path: path, Time: t}, nil
}

// Equal reports whether two events carry the same kind, path, and time.
// Time is compared with time.Time.Equal so differing monotonic readings or
// locations on an otherwise identical instant still compare equal.
func (e Event) Equal(other Event) bool {
	return e.Kind == other.Kind && e.Path == other.Path && e.Time.Equal(other.Time)
}

// Batch is an ordered sequence of events, the unit exchanged over the wire
// (GET/POST /logs) and persisted to a log file. Order is capture order
// unless a specific log's contract says otherwise.
type Batch []Event

// Equal reports whether two batches contain the same events in the same
// order.
func (b Batch) Equal(other Batch) bool {
	if len(b) != len(other) {
		return false
	}

	for i := range b {
		if !b[i].Equal(other[i]) {
			return false
		}
	}

	return true
}

// Clone returns an independent copy of the batch.
func (b Batch) Clone() Batch {
	out := make(Batch, len(b))
	copy(out, b)

	return out
}
