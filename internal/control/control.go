// Package control implements the HTTP/JSON control surface spec.md §6.3
// describes abstractly: submit-update, poll-next-message, add-task,
// remove-task, clear-tasks, list-sessions, set-session/get-session,
// cancel, add-visualization. Grounded on the teacher's internal/net
// (Server: listener + accept loop + per-connection goroutine lifecycle)
// and internal/handler (one function per command), reshaped from the
// teacher's binary opcode dispatch into net/http's mux-and-handler idiom
// since this surface is JSON over HTTP rather than the L1 binary
// protocol. Operator-key auth reuses golang.org/x/crypto/bcrypt the way
// the teacher guards account passwords.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/session"
)

// Server is the HTTP control surface for one Manager. It owns no
// session state itself; every handler delegates straight to Manager, the
// single per-process owner of all sessions (spec.md §5).
type Server struct {
	manager    *session.Manager
	apiKeyHash []byte // nil disables auth
	log        *zap.Logger

	httpServer *http.Server
}

type Config struct {
	BindAddress  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// APIKeyHash, if non-empty, is a bcrypt hash every request's
	// X-Api-Key header must match.
	APIKeyHash string
}

func NewServer(cfg Config, manager *session.Manager, log *zap.Logger) *Server {
	s := &Server{
		manager: manager,
		log:     log,
	}
	if cfg.APIKeyHash != "" {
		s.apiKeyHash = []byte(cfg.APIKeyHash)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/submit-update", s.withAuth(s.handleSubmitUpdate))
	mux.HandleFunc("/poll-next-message", s.withAuth(s.handlePollNextMessage))
	mux.HandleFunc("/add-task", s.withAuth(s.handleAddTask))
	mux.HandleFunc("/remove-task", s.withAuth(s.handleRemoveTask))
	mux.HandleFunc("/clear-tasks", s.withAuth(s.handleClearTasks))
	mux.HandleFunc("/list-sessions", s.withAuth(s.handleListSessions))
	mux.HandleFunc("/get-session", s.withAuth(s.handleGetSession))
	mux.HandleFunc("/set-session", s.withAuth(s.handleSetSession))
	mux.HandleFunc("/cancel", s.withAuth(s.handleCancel))
	mux.HandleFunc("/add-visualization", s.withAuth(s.handleAddVisualization))

	s.httpServer = &http.Server{
		Addr:         cfg.BindAddress,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Serve blocks until ctx is cancelled or the listener fails, mirroring
// the teacher's AcceptLoop-runs-in-its-own-goroutine shape but collapsed
// into one call net/http already makes blocking.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) withAuth(h http.HandlerFunc) http.HandlerFunc {
	if s.apiKeyHash == nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if bcrypt.CompareHashAndPassword(s.apiKeyHash, []byte(key)) != nil {
			writeJSON(w, http.StatusUnauthorized, protocol.Error("invalid api key"))
			return
		}
		h(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Error("malformed request body: "+err.Error()))
		return false
	}
	return true
}

func (s *Server) handleSubmitUpdate(w http.ResponseWriter, r *http.Request) {
	var u protocol.Update
	if !decodeJSON(w, r, &u) {
		return
	}
	s.manager.SubmitUpdate(r.Context(), u)
	writeJSON(w, http.StatusOK, protocol.Ok())
}

func (s *Server) handlePollNextMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64 `json:"session"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.manager.PollNextMessage(req.Session))
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64           `json:"session"`
		Name    string          `json:"name"`
		Params  json.RawMessage `json:"params"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := s.manager.AddTask(req.Session, req.Name, req.Params)
	if err != nil {
		writeJSON(w, http.StatusNotFound, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, struct {
		TaskID int64 `json:"task_id"`
	}{TaskID: id})
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64 `json:"session"`
		TaskID  int64 `json:"task_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.manager.RemoveTask(req.Session, req.TaskID); err != nil {
		writeJSON(w, http.StatusNotFound, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, protocol.Ok())
}

func (s *Server) handleClearTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64 `json:"session"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.manager.ClearTasks(req.Session); err != nil {
		writeJSON(w, http.StatusNotFound, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, protocol.Ok())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.Sessions(s.manager.ListSessions()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64 `json:"session"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	data, err := s.manager.GetSession(req.Session)
	if err != nil {
		writeJSON(w, http.StatusNotFound, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, protocol.SessionDataMessage(req.Session, data))
}

func (s *Server) handleSetSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64  `json:"session"`
		Data    []byte `json:"data"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.manager.SetSession(r.Context(), req.Session, req.Data); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, protocol.Ok())
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64 `json:"session"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.manager.Cancel(req.Session); err != nil {
		writeJSON(w, http.StatusNotFound, protocol.Error(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, protocol.Ok())
}

// handleAddVisualization is best-effort per spec.md §6.3: an unknown
// session is not an error.
func (s *Server) handleAddVisualization(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session int64  `json:"session"`
		Data    []byte `json:"data"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	s.manager.AddVisualization(req.Session, req.Data)
	writeJSON(w, http.StatusOK, protocol.Ok())
}

// HashAPIKey bcrypt-hashes an operator key for storage in config.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
