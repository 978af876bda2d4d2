package transferclient

import (
	"errors"
	"fmt"
)

// ErrServerUnreachable is returned by Health (and wraps transport failures
// from it) when the server cannot be reached. RunCycle logs this error and
// returns nil, so the scheduler sees a no-op tick, not a user-facing error
// (spec.md §4.4 step 1).
var ErrServerUnreachable = errors.New("transferclient: server unreachable")

// TransferError records a non-2xx response to a single file transfer
// call. The pipeline appends these to the error log and continues with
// the next event — transfer failures are best-effort, not transactional
// (spec.md §4.5, §7).
type TransferError struct {
	Event  string
	Status int
	Path   string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transferclient: %s %s: status %d", e.Event, e.Path, e.Status)
}
