// Package tasks implements the cooperative task state machines that
// drive a session's shared player: item manipulation, drinking,
// pathfinding, exploration, and scripted character creation. Grounded
// on original_source/src/bot/tasks/*.rs and actions/*.rs.
package tasks

import (
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
)

// Task is the shared vtable every task implements (spec.md §4.7). now is
// threaded through explicitly rather than read from the wall clock so
// tests stay deterministic.
type Task interface {
	Name() string
	GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool)
	Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event)
	Restore(pw *replica.PlayerWorld)
}
