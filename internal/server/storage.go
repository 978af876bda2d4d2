package server

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/syncbridge/filesync/internal/event"
)

// Storage implements C8: the authoritative storage root every client
// mirrors. Grounded on original_source's server/src/route_handlers.rs
// get_file/post_file/delete_file/rename_file, translated into the
// teacher's os/io idiom.
type Storage struct {
	root string
}

// NewStorage returns a Storage rooted at root. root must already exist.
func NewStorage(root string) *Storage {
	return &Storage{root: root}
}

// resolve joins a wire-relative path onto the storage root, rejecting any
// path event.ValidatePath would reject. It also resolves the legacy
// "from$-$to" spelling a POST /files/{*path} URL can carry (spec.md
// §4.5/§6): the server looks for whichever half already exists on disk,
// defaulting to the "to" half when neither does, matching post_file's
// rename-in-flight heuristic.
func (s *Storage) resolve(relPath string) (string, error) {
	relPath = event.NormalizePath(relPath)

	if from, to, ok := event.SplitRename(relPath); ok {
		if _, err := os.Stat(filepath.Join(s.root, to)); err == nil {
			relPath = to
		} else if _, err := os.Stat(filepath.Join(s.root, from)); err == nil {
			relPath = from
		} else {
			relPath = to
		}
	}

	if err := event.ValidatePath(relPath); err != nil {
		return "", fmt.Errorf("server: storage: %w", err)
	}

	return filepath.Join(s.root, filepath.FromSlash(relPath)), nil
}

// Open returns a reader for the file at relPath (GET /files/{*path}).
func (s *Storage) Open(relPath string) (io.ReadCloser, error) {
	abs, err := s.resolve(relPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Write stores body at relPath, creating parent directories as needed
// (POST /files/{*path}). Writes to a temp file in the same directory and
// renames it into place so a concurrent Open or GET /logs-driven reader
// never observes a partially-written file (spec.md §4.5/I2 — "atomic from
// the client's perspective"), matching original_source's whole-buffer
// `fs::write` rather than a truncate-in-place stream.
func (s *Storage) Write(relPath string, body io.Reader) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("server: storage: mkdir for %s: %w", relPath, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("server: storage: create temp file for %s: %w", relPath, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("server: storage: write %s: %w", relPath, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("server: storage: close temp file for %s: %w", relPath, err)
	}

	if err := os.Rename(tmp.Name(), abs); err != nil {
		return fmt.Errorf("server: storage: rename into place %s: %w", relPath, err)
	}

	return nil
}

// Remove deletes the file or directory at relPath (DELETE /files/{*path}).
// A missing target is reported via os.IsNotExist so the route handler can
// answer 404 (spec.md §6's idempotent-remove contract).
func (s *Storage) Remove(relPath string) error {
	abs, err := s.resolve(relPath)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	if info.IsDir() {
		return os.RemoveAll(abs)
	}

	return os.Remove(abs)
}

// Rename moves from to to within the storage root (PUT /files).
func (s *Storage) Rename(from, to string) error {
	absFrom, err := s.resolve(from)
	if err != nil {
		return err
	}

	absTo, err := s.resolve(to)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(absTo), 0o755); err != nil {
		return fmt.Errorf("server: storage: mkdir for rename target %s: %w", to, err)
	}

	if err := os.Rename(absFrom, absTo); err != nil {
		return fmt.Errorf("server: storage: rename %s -> %s: %w", from, to, err)
	}

	return nil
}
