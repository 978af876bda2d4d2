// Package logfile implements the shared load/append/truncate operations
// against the three on-disk event logs (ChangeLog, HistoryLog,
// AuthoritativeLog — spec.md §3), each of which is a single TOML document
// of `[[events]]` blocks.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/syncbridge/filesync/internal/event"
)

// Load reads and decodes the event log at path. A missing file is treated
// as an empty log (the first pipeline cycle on a fresh client or a
// freshly initialized server both start this way).
func Load(path string) (event.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return event.Batch{}, nil
		}

		return nil, fmt.Errorf("logfile: read %s: %w", path, err)
	}

	batch, err := event.DecodeTOML(data)
	if err != nil {
		return nil, fmt.Errorf("logfile: decode %s: %w", path, err)
	}

	return batch, nil
}

// Save overwrites path with the TOML encoding of batch, creating parent
// directories as needed.
func Save(path string, batch event.Batch) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logfile: mkdir for %s: %w", path, err)
	}

	data, err := event.EncodeTOML(batch)
	if err != nil {
		return fmt.Errorf("logfile: encode %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("logfile: write %s: %w", path, err)
	}

	return nil
}

// Append loads the log at path, appends the given events in order, and
// saves the result. Used by C1's "analysing = false" append-immediately
// path (spec.md §4.2).
func Append(path string, events ...event.Event) error {
	existing, err := Load(path)
	if err != nil {
		return err
	}

	existing = append(existing, events...)

	return Save(path, existing)
}

// Truncate overwrites path with an empty log (spec.md §4.4 steps 7, and
// the ChangeLog truncation at the start of §4.2's drain).
func Truncate(path string) error {
	return Save(path, event.Batch{})
}
