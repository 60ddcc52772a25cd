// Package scene is the pure-data visualization overlay tasks may publish
// debug nodes into (spec.md §4.9, §4.7.10): a flat id-keyed node table,
// independent of anything that renders it. Grounded on
// original_source/src/bot/scene.rs (Scene/Layer/Node), reshaped from
// Rust's Arc<Mutex<...>> + Drop-releases-the-node idiom into a Go handle
// with an explicit Close, and from the fixed Node enum into a small
// interface so new overlay shapes don't require touching Scene itself.
package scene

import (
	"sync"
	"sync/atomic"
)

// Node is anything a task can publish into the scene graph: a point, a
// path, a polygon, a label. Scene itself only owns the id-keyed table and
// lifecycle; the one concrete shape so far is AreasNode in areas.go.
type Node interface {
	// Kind names the node's shape for inspection/serialization, e.g.
	// "path", "polygon", "point".
	Kind() string
}

// Scene is the per-session overlay: a flat, concurrency-safe map from a
// monotonically increasing id to the last Node a task published under
// it. Safe for concurrent use from the session goroutine and a read-only
// visualization accessor.
type Scene struct {
	idCounter atomic.Uint64

	mu    sync.Mutex
	nodes map[uint64]Node
}

func New() *Scene {
	return &Scene{nodes: make(map[uint64]Node)}
}

// Add inserts node under a fresh id and returns a Handle that removes it
// on Close. Tasks call Close when their own tracked state is cleared
// (spec.md's "tasks insert/remove nodes through a handle whose drop
// removes the node").
func (s *Scene) Add(node Node) *Handle {
	id := s.idCounter.Add(1)
	s.mu.Lock()
	s.nodes[id] = node
	s.mu.Unlock()
	return &Handle{scene: s, id: id}
}

// Set replaces the node at an already-held handle's id, for tasks that
// update their overlay every tick instead of re-adding.
func (s *Scene) Set(h *Handle, node Node) {
	if h == nil {
		return
	}
	s.mu.Lock()
	s.nodes[h.id] = node
	s.mu.Unlock()
}

func (s *Scene) remove(id uint64) {
	s.mu.Lock()
	delete(s.nodes, id)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current node table, safe to read without
// holding Scene's lock further.
func (s *Scene) Snapshot() map[uint64]Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint64]Node, len(s.nodes))
	for id, n := range s.nodes {
		out[id] = n
	}
	return out
}

// Handle owns one node's lifetime in a Scene. Close is idempotent.
type Handle struct {
	scene *Scene
	id    uint64
	once  sync.Once
}

func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.once.Do(func() { h.scene.remove(h.id) })
}
