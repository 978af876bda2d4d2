package server

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/syncbridge/filesync/internal/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()

	root := t.TempDir()
	storage := NewStorage(root)
	logs := NewLogStore(filepath.Join(root, "logs.toml"))
	logs.debounceInterval = time.Millisecond

	srv := New(storage, logs, NewHub(testLogger()), testLogger())
	httpSrv := httptest.NewServer(srv.Mux())
	t.Cleanup(httpSrv.Close)

	return httpSrv, srv
}

func TestRoutes_Health(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	resp, err := http.Get(httpSrv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoutes_GetLogsEmptyReturns204(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	resp, err := http.Get(httpSrv.URL + "/logs")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRoutes_PostThenGetLogsRoundTrips(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	e, err := event.New(event.KindModify, "a.txt", time.UnixMilli(1000))
	require.NoError(t, err)

	body, err := event.EncodeJSON(event.Batch{e})
	require.NoError(t, err)

	resp, err := http.Post(httpSrv.URL+"/logs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(httpSrv.URL + "/logs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	batch, err := event.DecodeTOML(data)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.Equal(t, "a.txt", batch[0].Path)
}

func TestRoutes_FileUploadDownloadRoundTrips(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, httpSrv.URL+"/files/dir/doc.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(httpSrv.URL + "/files/dir/doc.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestRoutes_GetMissingFileReturns404(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	resp, err := http.Get(httpSrv.URL + "/files/missing.txt")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_DeleteFile(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, httpSrv.URL+"/files/a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodDelete, httpSrv.URL+"/files/a.txt", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(httpSrv.URL + "/files/a.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_DeleteMissingFileReturns404(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, httpSrv.URL+"/files/missing.txt", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRoutes_PutRenameMovesFile(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, httpSrv.URL+"/files/old.txt", strings.NewReader("payload"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodPut, httpSrv.URL+"/files", strings.NewReader(`{"from":"old.txt","to":"new.txt"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(httpSrv.URL + "/files/new.txt")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestRoutes_PutRenameMissingFieldsReturns400(t *testing.T) {
	t.Parallel()

	httpSrv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, httpSrv.URL+"/files", strings.NewReader(`{"from":"a.txt"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
