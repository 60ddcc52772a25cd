// Package session implements the per-session scheduler described by
// spec.md §4.8: event intake, task multiplexing, and message emission for
// one player's replica. Grounded on original_source/src/bot/session.rs
// and process.rs, in the shape of the teacher's internal/core/system
// (phase-ordered runner) and internal/net.Session (one goroutine per
// connection, channel-driven).
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
	"github.com/elsid/hafen-botserver/internal/scene"
	"github.com/elsid/hafen-botserver/internal/tasks"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// State is the scheduler's coarse phase, exposed for diagnostics only;
// all transitions happen inside the single per-session goroutine.
type State int32

const (
	StateCreated State = iota
	StateReceiving
	StateUpdating
	StateEmitting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateReceiving:
		return "receiving"
	case StateUpdating:
		return "updating"
	case StateEmitting:
		return "emitting"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// TaskSlot is one instantiated task plus the bookkeeping needed to
// re-offer it over the wire (add-task/remove-task acks) and snapshot it.
type TaskSlot struct {
	ID     int64
	Name   string
	Params json.RawMessage
	Task   tasks.Task
}

// Session owns one event-sourced replica and its task set, and is driven
// by exactly one goroutine (Run). Reads from other goroutines (HTTP
// accessors, list-sessions) take the RLock.
type Session struct {
	ID int64

	mu     sync.RWMutex
	world  *replica.World
	player *player.Player
	tasks  []TaskSlot

	// scene is the pure-data visualization overlay (spec.md §4.9); it is
	// independent of task scheduling and safe to read from a visualizer
	// goroutine via Scene().
	scene       *scene.Scene
	areasHandle *scene.Handle

	taskIDCounter   int64
	lastUpdate      int64
	pendingMessages []protocol.Message
	outbound        []protocol.Message

	cancel *atomic.Bool
	state  atomic.Int32

	inbox     chan protocol.Update
	registry  Registry
	resolveName func(int64) string

	log *zap.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
}

// New creates a session ready to Run. db is the cross-session MapDb cache
// (may be nil for a purely in-memory replica, e.g. in tests).
func New(id int64, db worldmap.MapDb, registry Registry, log *zap.Logger) *Session {
	s := &Session{
		ID:       id,
		world:    replica.New(db),
		player:   player.New(),
		scene:    scene.New(),
		cancel:   &atomic.Bool{},
		inbox:    make(chan protocol.Update, 64),
		registry: registry,
		closeCh:  make(chan struct{}),
		log:      log.With(zap.Int64("session", id)),
	}
	s.resolveName = func(resourceID int64) string {
		s.mu.RLock()
		defer s.mu.RUnlock()
		t, ok := s.world.Map.GetTileByID(int32(resourceID))
		if !ok {
			return ""
		}
		return t.Name
	}
	// A freshly created session asks the caller whether a checkpoint
	// exists for it before doing anything else (spec.md scenario S2).
	s.outbound = append(s.outbound, protocol.GetSessionData())
	s.state.Store(int32(StateCreated))
	return s
}

func (s *Session) State() State { return State(s.state.Load()) }

// Scene exposes the session's visualization overlay for a read-only
// accessor (spec.md §6.3's optional add-visualization surface); the
// returned Scene is safe for concurrent reads while Run mutates it.
func (s *Session) Scene() *scene.Scene { return s.scene }

// Submit enqueues an update for processing by Run. It waits until the
// inbox accepts the update or the session closes: a full inbox disconnects nothing (there is no transport here to drop), it
// simply blocks the caller, matching spec.md's blocking-FIFO intake.
func (s *Session) Submit(u protocol.Update) {
	select {
	case s.inbox <- u:
	case <-s.closeCh:
	}
}

// PollNextMessage drains one outbound message, or reports none pending.
func (s *Session) PollNextMessage() (protocol.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.outbound) == 0 {
		return protocol.Message{}, false
	}
	msg := s.outbound[0]
	s.outbound = s.outbound[1:]
	return msg, true
}

// Cancel sets the cooperative cancellation flag the pathfinder polls.
func (s *Session) Cancel() { s.cancel.Store(true) }

// Info summarizes the session for list-sessions.
func (s *Session) Info() protocol.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return protocol.SessionInfo{
		ID:       s.ID,
		Tasks:    len(s.tasks),
		Updates:  s.lastUpdate,
		Messages: len(s.outbound),
	}
}

// Close stops Run and releases the inbox.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closeCh) })
}

// Run drives the Created → Receiving ⇄ Updating → Emitting → Receiving
// state machine until Close, EventClose, or ctx cancellation.
func (s *Session) Run(ctx context.Context) {
	s.state.Store(int32(StateReceiving))
	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateClosing))
			return
		case <-s.closeCh:
			s.state.Store(int32(StateClosing))
			return
		case u := <-s.inbox:
			if done := s.process(u); done {
				s.state.Store(int32(StateClosing))
				return
			}
		}
	}
}

// process runs one Receiving/Updating/Emitting cycle for a single inbound
// update and reports whether the session should close.
func (s *Session) process(u protocol.Update) bool {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	e := u.Event
	switch e.Type {
	case protocol.EventClose:
		return true
	case protocol.EventSessionData:
		if err := s.restoreSnapshot(e.SessionData); err != nil {
			s.log.Error("failed to restore session snapshot", zap.Error(err))
		}
		return false
	case protocol.EventCancel:
		s.cancel.Store(true)
		return false
	case protocol.EventGetSessionData:
		data, err := s.captureSnapshotLocked()
		if err != nil {
			s.log.Error("failed to capture session snapshot", zap.Error(err))
			return false
		}
		s.outbound = append(s.outbound, protocol.SessionDataMessage(s.ID, data))
		return false
	case protocol.EventTaskAdd:
		s.addTaskLocked(e.TaskID, e.TaskName, e.TaskParams)

		// A newly added task gets an immediate Emitting pass rather than
		// waiting for the next unrelated update (spec.md scenario S3:
		// the add-task ack is immediately followed by the task's first
		// synthesized message).
		s.emitLocked(now)
		return false
	case protocol.EventTaskRemove:
		s.removeTaskLocked(e.TaskID)
		s.emitLocked(now)
		return false
	case protocol.EventVisualizationAdd:
		// Best-effort overlay data; not part of the ordered update stream.
		return false
	}

	if u.Number <= s.lastUpdate {
		s.log.Warn("dropping stale update", zap.Int64("number", u.Number), zap.Int64("last_update", s.lastUpdate))
		return false
	}
	if u.Number > s.lastUpdate+1 {
		s.log.Warn("update number gap", zap.Int64("expected", s.lastUpdate+1), zap.Int64("got", u.Number))
	}
	s.lastUpdate = u.Number

	s.state.Store(int32(StateUpdating))
	if pw, ok := replica.ForPlayer(s.world, s.player); ok {
		for _, slot := range s.tasks {
			slot.Task.Update(now, pw, e)
		}
	}
	s.player.Update(now, s.world, e)
	s.world.Update(s.player, e)
	s.refreshSceneLocked()

	s.state.Store(int32(StateEmitting))
	s.emitLocked(now)
	s.state.Store(int32(StateReceiving))
	return false
}

// emitLocked drains pending task-add/remove acks first, then offers every
// task a turn in declaration order. Caller holds s.mu.
func (s *Session) emitLocked(now time.Time) {
	if len(s.pendingMessages) > 0 {
		s.outbound = append(s.outbound, s.pendingMessages...)
		s.pendingMessages = nil
	}

	pw, ok := replica.ForPlayer(s.world, s.player)
	if !ok {
		return
	}

	var final protocol.Message
	var hasFinal bool
	for _, slot := range s.tasks {
		msg, got := slot.Task.GetNextMessage(now, pw)
		if !got {
			continue
		}
		final = msg
		hasFinal = true
		if !msg.IsDone() {
			break
		}
	}
	if hasFinal {
		s.outbound = append(s.outbound, final)
	}
}

// refreshSceneLocked republishes the player's current-grid area overlay
// (spec.md §4.7.10) whenever the player is located in a known grid.
// Visualization-only: nothing in the driving loop reads this back.
// Caller holds s.mu.
func (s *Session) refreshSceneLocked() {
	if !s.player.HasGridID {
		return
	}
	grid, ok := s.world.Map.GetGridByID(s.player.GridID)
	if !ok {
		return
	}
	node := scene.AreasNode{GridID: grid.ID, Areas: scene.MakeAreas(grid)}
	if s.areasHandle == nil {
		s.areasHandle = s.scene.Add(node)
	} else {
		s.scene.Set(s.areasHandle, node)
	}
}

// addTaskLocked instantiates and appends a task, assigning a fresh id when
// id is 0 (the control-surface path) or adopting the given id otherwise
// (the TaskAdd event path, where the caller names the id). Caller holds
// s.mu.
func (s *Session) addTaskLocked(id int64, name string, params json.RawMessage) (int64, error) {
	task, err := s.registry.instantiate(name, params, Deps{Cancel: s.cancel, ResourceName: s.resolveName})
	if err != nil {
		s.log.Warn("failed to add task", zap.String("name", name), zap.Error(err))
		s.outbound = append(s.outbound, protocol.Error(fmt.Sprintf("add-task %s: %v", name, err)))
		return 0, err
	}
	if id == 0 {
		s.taskIDCounter++
		id = s.taskIDCounter
	} else if id > s.taskIDCounter {
		s.taskIDCounter = id
	}
	s.tasks = append(s.tasks, TaskSlot{ID: id, Name: name, Params: params, Task: task})
	s.pendingMessages = append(s.pendingMessages, protocol.UIMessage(s.player.GameUIID, "add-task", []protocol.Value{
		protocol.Long(id), protocol.Str(name), protocol.Bytes(params),
	}))
	return id, nil
}

func (s *Session) removeTaskLocked(id int64) {
	for i, slot := range s.tasks {
		if slot.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			s.pendingMessages = append(s.pendingMessages, protocol.UIMessage(s.player.GameUIID, "remove-task", []protocol.Value{
				protocol.Long(id),
			}))
			return
		}
	}
}

// AddTask and RemoveTask are the synchronous entry points used by
// internal/control; they reuse the same locked helpers Run uses for
// TaskAdd/TaskRemove events so add-task/remove-task behave identically
// whether they arrive as control calls or as events in the update stream.
func (s *Session) AddTask(name string, params json.RawMessage) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTaskLocked(0, name, params)
}

func (s *Session) RemoveTask(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeTaskLocked(id)
}

func (s *Session) ClearTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range s.tasks {
		s.pendingMessages = append(s.pendingMessages, protocol.UIMessage(s.player.GameUIID, "remove-task", []protocol.Value{
			protocol.Long(slot.ID),
		}))
	}
	s.tasks = nil
}

// Snapshot captures a SessionData checkpoint.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureSnapshotLocked()
}

// SetSnapshot replaces the session's world/player/tasks wholesale.
func (s *Session) SetSnapshot(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreSnapshot(data)
}
