package session

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/replica"
)

// Snapshot is the JSON-serializable SessionData form described by
// spec.md §6.5.
type Snapshot struct {
	ID            int64                 `json:"id"`
	LastUpdate    int64                 `json:"last_update"`
	World         replica.WorldSnapshot `json:"world"`
	Player        player.Snapshot       `json:"player"`
	TaskIDCounter int64                 `json:"task_id_counter"`
	Tasks         []TaskSnapshot        `json:"tasks"`
}

// TaskSnapshot is one task's persisted identity: enough to re-instantiate
// it by name and let Restore rebuild its transient indices.
type TaskSnapshot struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Params json.RawMessage `json:"params"`
}

// captureSnapshotLocked serializes the session. Caller holds s.mu.
func (s *Session) captureSnapshotLocked() ([]byte, error) {
	snap := Snapshot{
		ID:            s.ID,
		LastUpdate:    s.lastUpdate,
		World:         s.world.Snapshot(),
		Player:        s.player.Snapshot(),
		TaskIDCounter: s.taskIDCounter,
		Tasks:         make([]TaskSnapshot, len(s.tasks)),
	}
	for i, slot := range s.tasks {
		snap.Tasks[i] = TaskSnapshot{ID: slot.ID, Name: slot.Name, Params: slot.Params}
	}
	return json.Marshal(snap)
}

// restoreSnapshot replaces world/player/tasks wholesale from a SessionData
// payload and re-invokes Restore on every re-instantiated task so
// transient indices (e.g. the pathfinder's cached route) rebuild from the
// restored replica. Caller holds s.mu.
func (s *Session) restoreSnapshot(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("session: decode snapshot: %w", err)
	}

	s.world.LoadSnapshot(snap.World)
	s.player.LoadSnapshot(snap.Player)
	s.lastUpdate = snap.LastUpdate
	s.taskIDCounter = snap.TaskIDCounter

	deps := Deps{Cancel: s.cancel, ResourceName: s.resolveName}
	tasksList := make([]TaskSlot, 0, len(snap.Tasks))
	for _, ts := range snap.Tasks {
		task, err := s.registry.instantiate(ts.Name, ts.Params, deps)
		if err != nil {
			s.log.Warn("failed to restore task", zap.String("name", ts.Name), zap.Error(err))
			continue
		}
		tasksList = append(tasksList, TaskSlot{ID: ts.ID, Name: ts.Name, Params: ts.Params, Task: task})
	}
	s.tasks = tasksList

	if pw, ok := replica.ForPlayer(s.world, s.player); ok {
		for _, slot := range s.tasks {
			slot.Task.Restore(pw)
		}
	}
	return nil
}
