package transferclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncbridge/filesync/internal/event"
)

func TestHealthOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	require.NoError(t, c.Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	c := New(http.DefaultClient, "http://127.0.0.1:1")
	err := c.Health(context.Background())
	require.ErrorIs(t, err, ErrServerUnreachable)
}

func TestFetchLogsNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	batch, err := c.FetchLogs(context.Background())
	require.NoError(t, err)
	require.Empty(t, batch)
}

func TestFetchLogsOK(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	want := event.Batch{{Kind: event.KindModify, Path: "a.txt", Time: now}}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := event.EncodeTOML(want)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	got, err := c.FetchLogs(context.Background())
	require.NoError(t, err)
	require.True(t, want.Equal(got))
}

func TestFetchLogsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	_, err := c.FetchLogs(context.Background())
	require.Error(t, err)
}

func TestModifyNon2xxReturnsTransferError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	err := c.Modify(context.Background(), "a.txt", strings.NewReader("contents"))

	var te *TransferError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "Modify", te.Event)
	require.Equal(t, http.StatusInternalServerError, te.Status)
}

func TestRemove404IsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	require.NoError(t, c.Remove(context.Background(), "gone.txt"))
}

func TestRenamePutsJSONBody(t *testing.T) {
	var gotPath string
	var gotBody renameBody

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, http.MethodPut, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	require.NoError(t, c.Rename(context.Background(), "old.txt", "new.txt"))
	require.Equal(t, "/files", gotPath)
	require.Equal(t, renameBody{From: "old.txt", To: "new.txt"}, gotBody)
}

func TestErrorLogAppendFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "errors.log")
	log := NewErrorLog(path)

	require.NoError(t, log.Append(&TransferError{Event: "Remove", Status: 500, Path: "a.txt"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "event:Remove|response:500|path:a.txt\n", string(data))
}
