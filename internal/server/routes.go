package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/syncbridge/filesync/internal/event"
)

// Server bundles everything a request handler needs: the storage root,
// the authoritative log, and the notification hub.
type Server struct {
	storage *Storage
	logs    *LogStore
	hub     *Hub
	logger  *slog.Logger
}

// New returns a Server wiring storage, logs, and hub together.
func New(storage *Storage, logs *LogStore, hub *Hub, logger *slog.Logger) *Server {
	return &Server{storage: storage, logs: logs, hub: hub, logger: logger}
}

// Mux builds the net/http.ServeMux wiring every endpoint in spec.md §6.
// Grounded on the teacher's own stdlib-mux callback server
// (internal/graph/auth.go:startCallbackServer) — no web framework, matching
// the rest of this pack's preference for net/http directly.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /logs", s.handleGetLogs)
	mux.HandleFunc("POST /logs", s.handlePostLogs)
	mux.HandleFunc("GET /files/{path...}", s.handleGetFile)
	mux.HandleFunc("POST /files/{path...}", s.handlePostFile)
	mux.HandleFunc("DELETE /files/{path...}", s.handleDeleteFile)
	mux.HandleFunc("PUT /files", s.handlePutRename)
	mux.HandleFunc("GET /ws", s.hub.ServeHTTP)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	batch, err := s.logs.Get()
	if err != nil {
		s.logger.Error("GET /logs failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if len(batch) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	data, err := event.EncodeTOML(batch)
	if err != nil {
		s.logger.Error("GET /logs: encoding failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/toml")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handlePostLogs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "reading body", http.StatusBadRequest)
		return
	}

	batch, err := event.DecodeJSON(body)
	if err != nil {
		http.Error(w, "decoding body", http.StatusBadRequest)
		return
	}

	if err := s.logs.Post(batch); err != nil {
		s.logger.Error("POST /logs failed", slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	s.hub.broadcast(0)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Logs Received"})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	relPath := r.PathValue("path")

	f, err := s.storage.Open(relPath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		s.logger.Error("GET /files failed", slog.String("path", relPath), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	io.Copy(w, f)
}

func (s *Server) handlePostFile(w http.ResponseWriter, r *http.Request) {
	relPath := r.PathValue("path")

	if err := s.storage.Write(relPath, r.Body); err != nil {
		s.logger.Error("POST /files failed", slog.String("path", relPath), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	relPath := r.PathValue("path")

	if err := s.storage.Remove(relPath); err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		s.logger.Error("DELETE /files failed", slog.String("path", relPath), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}

// renamePayload is the JSON body PUT /files expects (spec.md §6).
type renamePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handlePutRename(w http.ResponseWriter, r *http.Request) {
	var payload renamePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "decoding body", http.StatusBadRequest)
		return
	}

	if payload.From == "" || payload.To == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}

	if err := s.storage.Rename(payload.From, payload.To); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		s.logger.Error("PUT /files failed", slog.String("from", payload.From), slog.String("to", payload.To), slog.Any("err", err))
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusOK)
}
