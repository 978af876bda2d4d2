package changelog

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/logfile"
)

func TestCaptureNotAnalysingAppendsToDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changes.toml")
	buf := New(path)

	now := time.Now().UTC()
	require.NoError(t, buf.Capture(event.Event{Kind: event.KindModify, Path: "a.txt", Time: now}, false))

	got, err := logfile.Load(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Zero(t, buf.Pending())
}

func TestCaptureAnalysingQueuesInMemory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changes.toml")
	buf := New(path)

	now := time.Now().UTC()
	require.NoError(t, buf.Capture(event.Event{Kind: event.KindModify, Path: "a.txt", Time: now}, true))

	got, err := logfile.Load(path)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 1, buf.Pending())
}

func TestDrainPreservesCaptureOrderAndClears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "changes.toml")
	buf := New(path)

	now := time.Now().UTC()
	e1 := event.Event{Kind: event.KindModify, Path: "a.txt", Time: now}
	e2 := event.Event{Kind: event.KindModify, Path: "b.txt", Time: now.Add(time.Second)}

	require.NoError(t, buf.Capture(e1, true))
	require.NoError(t, buf.Capture(e2, true))

	drained := buf.Drain()
	require.True(t, event.Batch{e1, e2}.Equal(drained))
	require.Zero(t, buf.Pending())
}
