package server

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncbridge/filesync/internal/event"
)

func TestLogStore_PostThenGetRoundTrips(t *testing.T) {
	t.Parallel()

	ls := NewLogStore(filepath.Join(t.TempDir(), "logs.toml"))
	ls.debounceInterval = time.Millisecond

	e, err := event.New(event.KindModify, "a.txt", time.UnixMilli(1000))
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() { done <- ls.Post(event.Batch{e}) }()
	require.NoError(t, <-done)

	batch, err := ls.Get()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "a.txt", batch[0].Path)
}

func TestLogStore_GetOnEmptyLogReturnsEmptyBatch(t *testing.T) {
	t.Parallel()

	ls := NewLogStore(filepath.Join(t.TempDir(), "logs.toml"))

	batch, err := ls.Get()
	require.NoError(t, err)
	require.Empty(t, batch)
}

func TestLogStore_GetBlocksUntilPostClearsBusy(t *testing.T) {
	t.Parallel()

	ls := NewLogStore(filepath.Join(t.TempDir(), "logs.toml"))
	ls.mu.Lock()
	ls.busy = true
	ls.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)

	unblocked := make(chan struct{})

	go func() {
		defer wg.Done()
		_, _ = ls.Get()
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("Get returned before busy was cleared")
	case <-time.After(50 * time.Millisecond):
	}

	ls.mu.Lock()
	ls.busy = false
	ls.cond.Broadcast()
	ls.mu.Unlock()

	select {
	case <-unblocked:
	case <-time.After(time.Second):
		t.Fatal("Get did not unblock after busy cleared")
	}

	wg.Wait()
}

func TestLogStore_PostCompactsAgainstExisting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs.toml")
	ls := NewLogStore(path)
	ls.debounceInterval = time.Millisecond

	older, err := event.New(event.KindModify, "a.txt", time.UnixMilli(1000))
	require.NoError(t, err)
	newer, err := event.New(event.KindRemove, "a.txt", time.UnixMilli(2000))
	require.NoError(t, err)

	require.NoError(t, ls.Post(event.Batch{older}))
	require.NoError(t, ls.Post(event.Batch{newer}))

	batch, err := ls.Get()
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, event.KindRemove, batch[0].Kind)
}
