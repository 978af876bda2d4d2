package transferclient

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrorLog appends failed-transfer records to a plain-text file in the
// exact `event:<what>|response:<status>|path:<p>` line format
// original_source's write_err_logs uses (spec.md §5, §7) — an on-disk
// format predating this port, kept verbatim rather than redesigned.
type ErrorLog struct {
	path string
}

// NewErrorLog returns an ErrorLog appending to the file at path.
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Append writes one line recording a failed transfer.
func (l *ErrorLog) Append(te *TransferError) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("transferclient: mkdir for error log: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("transferclient: open error log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("event:%s|response:%d|path:%s\n", te.Event, te.Status, te.Path)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("transferclient: write error log: %w", err)
	}

	return nil
}
