package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syncbridge/filesync/internal/event"
	"github.com/syncbridge/filesync/internal/logfile"
	"github.com/syncbridge/filesync/internal/transferclient"
)

func newTestPipeline(t *testing.T, srv *httptest.Server) (*Pipeline, string) {
	t.Helper()

	root := t.TempDir()
	dataDir := t.TempDir()

	cfg := Config{
		SyncRoot:    root,
		ChangesPath: filepath.Join(dataDir, "changes.toml"),
		HistoryPath: filepath.Join(dataDir, "history.toml"),
	}

	client := transferclient.New(srv.Client(), srv.URL)
	errLog := transferclient.NewErrorLog(filepath.Join(dataDir, "errors.log"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(cfg, client, errLog, logger), root
}

func TestRunCycleUploadsLocalModify(t *testing.T) {
	var uploadedBody []byte

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /logs", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("POST /files/a.txt", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		uploadedBody = body
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, root := newTestPipeline(t, srv)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, logfile.Append(p.cfg.ChangesPath, event.Event{
		Kind: event.KindModify,
		Path: "a.txt",
	}))

	require.NoError(t, p.RunCycle(context.TODO()))
	require.Equal(t, "hello", string(uploadedBody))
	require.False(t, p.Analysing.Load())

	changes, err := logfile.Load(p.cfg.ChangesPath)
	require.NoError(t, err)
	require.Empty(t, changes)

	history, err := logfile.Load(p.cfg.HistoryPath)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestRunCycleAppliesInboundModify(t *testing.T) {
	serverBatch := event.Batch{{Kind: event.KindModify, Path: "remote.txt"}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /logs", func(w http.ResponseWriter, r *http.Request) {
		data, err := event.EncodeTOML(serverBatch)
		require.NoError(t, err)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
	mux.HandleFunc("POST /logs", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("GET /files/remote.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("remote contents"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	p, root := newTestPipeline(t, srv)

	require.NoError(t, p.RunCycle(context.TODO()))

	got, err := os.ReadFile(filepath.Join(root, "remote.txt"))
	require.NoError(t, err)
	require.Equal(t, "remote contents", string(got))

	history, err := logfile.Load(p.cfg.HistoryPath)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestRunCycleServerUnreachableIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.Close() // closed immediately: every request now fails to connect

	p, _ := newTestPipeline(t, srv)

	require.NoError(t, p.RunCycle(context.TODO()))
	require.False(t, p.Analysing.Load())
}
