package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// Manager owns the set of live sessions and is the sole entry point
// internal/control talks to. Sessions are created lazily on the first
// submit-update for an unseen id, mirroring the teacher's connection
// registry in internal/net.Server.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	db       worldmap.MapDb
	registry Registry
	log      *zap.Logger
}

func NewManager(db worldmap.MapDb, registry Registry, log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		db:       db,
		registry: registry,
		log:      log,
	}
}

// getOrCreate returns the session for id, starting its Run goroutine the
// first time it is seen.
func (m *Manager) getOrCreate(ctx context.Context, id int64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := New(id, m.db, m.registry, m.log)
	m.sessions[id] = s
	go s.Run(ctx)
	return s
}

func (m *Manager) get(id int64) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// SubmitUpdate creates the session on first sight and hands it the
// update. A Close event transitions the session's own state machine to
// Closing (spec.md §4.8) but the session stays listed: list-sessions
// reflects every session ever created, not just the still-running ones.
func (m *Manager) SubmitUpdate(ctx context.Context, u protocol.Update) {
	s := m.getOrCreate(ctx, u.Session)
	s.Submit(u)
}

func (m *Manager) PollNextMessage(id int64) protocol.Message {
	s, ok := m.get(id)
	if !ok {
		return protocol.Ok()
	}
	msg, ok := s.PollNextMessage()
	if !ok {
		return protocol.Ok()
	}
	return msg
}

func (m *Manager) AddTask(id int64, name string, params []byte) (int64, error) {
	s, ok := m.get(id)
	if !ok {
		return 0, fmt.Errorf("session: unknown session %d", id)
	}
	return s.AddTask(name, params)
}

func (m *Manager) RemoveTask(id, taskID int64) error {
	s, ok := m.get(id)
	if !ok {
		return fmt.Errorf("session: unknown session %d", id)
	}
	s.RemoveTask(taskID)
	return nil
}

func (m *Manager) ClearTasks(id int64) error {
	s, ok := m.get(id)
	if !ok {
		return fmt.Errorf("session: unknown session %d", id)
	}
	s.ClearTasks()
	return nil
}

func (m *Manager) ListSessions() []protocol.SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]protocol.SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.Info())
	}
	return result
}

func (m *Manager) GetSession(id int64) ([]byte, error) {
	s, ok := m.get(id)
	if !ok {
		return nil, fmt.Errorf("session: unknown session %d", id)
	}
	return s.Snapshot()
}

func (m *Manager) SetSession(ctx context.Context, id int64, data []byte) error {
	s := m.getOrCreate(ctx, id)
	return s.SetSnapshot(data)
}

func (m *Manager) Cancel(id int64) error {
	s, ok := m.get(id)
	if !ok {
		return fmt.Errorf("session: unknown session %d", id)
	}
	s.Cancel()
	return nil
}

// AddVisualization is best-effort per spec.md §6.3: a missing session is
// not an error, since visualization is an optional overlay.
func (m *Manager) AddVisualization(id int64, data []byte) {
	s, ok := m.get(id)
	if !ok {
		return
	}
	s.Submit(protocol.Update{Session: id, Number: 0, Event: protocol.Event{
		Type:              protocol.EventVisualizationAdd,
		VisualizationData: data,
	}})
}
