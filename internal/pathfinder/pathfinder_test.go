package pathfinder

import (
	"sync/atomic"
	"testing"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

const (
	tileGrass int32 = 1
	tileWall  int32 = 2
)

// openFieldLookup reports every tile as known grass, giving an
// obstacle-free field for basic search tests.
func openFieldLookup(vec2.I) (int32, bool) { return tileGrass, true }

func TestFindPathSameTileReturnsSingleton(t *testing.T) {
	p := vec2.NewI(5, 5)
	path := FindPath(p, p, TileWeights{tileGrass: 1}, openFieldLookup, Options{}, nil)
	if len(path) != 1 || path[0] != p {
		t.Fatalf("FindPath(p,p) = %v, want [p]", path)
	}
}

func TestFindPathUnreachableDestinationReturnsEmpty(t *testing.T) {
	lookup := func(vec2.I) (int32, bool) { return tileWall, true }
	path := FindPath(vec2.NewI(0, 0), vec2.NewI(5, 5), TileWeights{tileGrass: 1}, lookup, Options{}, nil)
	if len(path) != 0 {
		t.Fatalf("expected empty path to unreachable destination, got %v", path)
	}
}

func TestFindPathCancelledReturnsEmpty(t *testing.T) {
	var cancel atomic.Bool
	cancel.Store(true)
	path := FindPath(vec2.NewI(0, 0), vec2.NewI(5, 5), TileWeights{tileGrass: 1}, openFieldLookup, Options{}, &cancel)
	if len(path) != 0 {
		t.Fatalf("expected empty path when cancelled before first iteration, got %v", path)
	}
}

func TestFindPathReachesDestinationOnOpenField(t *testing.T) {
	src := vec2.NewI(0, 0)
	dst := vec2.NewI(10, 0)
	path := FindPath(src, dst, TileWeights{tileGrass: 1}, openFieldLookup, Options{}, nil)
	if len(path) == 0 {
		t.Fatal("expected a non-empty path on an open field")
	}
	if path[len(path)-1] != dst {
		t.Fatalf("last waypoint = %v, want destination %v", path[len(path)-1], dst)
	}
	if path[0] != src && !isValidShortcut(src, path[0], TileWeights{tileGrass: 1}, openFieldLookup, 100) {
		t.Fatalf("first waypoint %v is not reachable directly from src %v", path[0], src)
	}
}

func TestFindPathAroundWallDetour(t *testing.T) {
	// A vertical wall of known tiles with no weight (so disallowed) at x=5, y in [-2,2],
	// forcing the path to detour around it.
	wallWeights := TileWeights{tileGrass: 1}
	lookup := func(pos vec2.I) (int32, bool) {
		if pos.X == 5 && pos.Y >= -2 && pos.Y <= 2 {
			return tileWall, true
		}
		return tileGrass, true
	}
	src := vec2.NewI(0, 0)
	dst := vec2.NewI(10, 0)
	path := FindPath(src, dst, wallWeights, lookup, Options{}, nil)
	if len(path) == 0 {
		t.Fatal("expected a detour path around the wall")
	}
	if path[len(path)-1] != dst {
		t.Fatalf("last waypoint = %v, want %v", path[len(path)-1], dst)
	}
	for _, p := range path {
		if tile, _ := lookup(p); tile == tileWall {
			t.Fatalf("path waypoint %v lands on a wall tile", p)
		}
	}
}

func TestFindPathIterationLimitReturnsEmpty(t *testing.T) {
	src := vec2.NewI(0, 0)
	dst := vec2.NewI(1000, 1000)
	path := FindPath(src, dst, TileWeights{tileGrass: 1}, openFieldLookup, Options{MaxIterations: 1}, nil)
	if len(path) != 0 {
		t.Fatalf("expected empty path under a 1-iteration budget, got %v", path)
	}
}

func TestIsValidShortcutAxisAlignedRejectsBlockedTile(t *testing.T) {
	lookup := func(pos vec2.I) (int32, bool) {
		if pos == (vec2.I{X: 2, Y: 0}) {
			return tileWall, true
		}
		return tileGrass, true
	}
	weights := TileWeights{tileGrass: 1}
	if isValidShortcut(vec2.NewI(0, 0), vec2.NewI(4, 0), weights, lookup, 10) {
		t.Fatal("expected shortcut through a blocked tile to be invalid")
	}
}

func TestIsValidShortcutRejectsBeyondMaxLength(t *testing.T) {
	weights := TileWeights{tileGrass: 1}
	if isValidShortcut(vec2.NewI(0, 0), vec2.NewI(20, 0), weights, openFieldLookup, 5) {
		t.Fatal("expected shortcut longer than max_length to be invalid")
	}
}
