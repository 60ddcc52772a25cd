package scene

import "testing"

type pointNode struct{ X, Y float64 }

func (pointNode) Kind() string { return "point" }

func TestAddAndClose(t *testing.T) {
	s := New()
	h := s.Add(pointNode{X: 1, Y: 2})
	if len(s.Snapshot()) != 1 {
		t.Fatalf("expected 1 node after Add, got %d", len(s.Snapshot()))
	}
	h.Close()
	if len(s.Snapshot()) != 0 {
		t.Fatalf("expected 0 nodes after Close, got %d", len(s.Snapshot()))
	}
	// Close is idempotent.
	h.Close()
}

func TestSetReplacesNode(t *testing.T) {
	s := New()
	h := s.Add(pointNode{X: 0, Y: 0})
	s.Set(h, pointNode{X: 5, Y: 5})
	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 node, got %d", len(snap))
	}
	for _, n := range snap {
		p, ok := n.(pointNode)
		if !ok || p.X != 5 || p.Y != 5 {
			t.Fatalf("expected replaced node {5 5}, got %+v", n)
		}
	}
}

func TestNilHandleCloseIsNoop(t *testing.T) {
	var h *Handle
	h.Close()
}
