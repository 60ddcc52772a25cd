package worldmap

import (
	"testing"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

func newTiles() []int32 {
	return make([]int32, GridSize*GridSize)
}

type allowAll struct{}

func (allowAll) Contains(int32) bool { return true }

func TestAddGridWithoutNeighboursStartsOwnSegment(t *testing.T) {
	m := New(nil)
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.ZeroI(), Tiles: newTiles()}, nil)

	g, ok := m.GetGridByID(1)
	if !ok {
		t.Fatal("expected grid 1 to exist")
	}
	if g.SegmentID != 1 {
		t.Fatalf("SegmentID = %d, want 1", g.SegmentID)
	}
}

func TestAddGridAdoptsNeighbourSegmentAndOffset(t *testing.T) {
	m := New(nil)
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.NewI(5, 5), Tiles: newTiles()}, nil)

	// Grid 1 is hinted as lying one grid to the east (offset X=1) of grid 2,
	// so grid 2 lands one grid to the west of grid 1.
	m.AddGrid(Grid{ID: 2, SegmentID: 2, Position: vec2.ZeroI(), Tiles: newTiles()}, []GridNeighbour{
		{ID: 1, Offset: vec2.OnlyX(1)},
	})

	g2, ok := m.GetGridByID(2)
	if !ok {
		t.Fatal("expected grid 2 to exist")
	}
	if g2.SegmentID != 1 {
		t.Fatalf("grid 2 SegmentID = %d, want adopted segment 1", g2.SegmentID)
	}
	want := vec2.NewI(5, 5).Sub(vec2.OnlyX(1))
	if g2.Position != want {
		t.Fatalf("grid 2 Position = %v, want %v", g2.Position, want)
	}
}

func TestAddGridMergesLargerSegmentWins(t *testing.T) {
	m := New(nil)
	// Segment 1: two grids (larger).
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.NewI(0, 0), Tiles: newTiles()}, nil)
	m.AddGrid(Grid{ID: 2, SegmentID: 1, Position: vec2.NewI(1, 0), Tiles: newTiles()}, []GridNeighbour{
		{ID: 1, Offset: vec2.OnlyX(-1)},
	})
	// Segment 2: one grid (smaller), placed far away in its own coordinates.
	m.AddGrid(Grid{ID: 3, SegmentID: 2, Position: vec2.NewI(50, 50), Tiles: newTiles()}, nil)

	// New grid 4 touches both grid 2 (segment 1) and grid 3 (segment 2),
	// forcing a merge; segment 1 is bigger so it should absorb segment 2.
	m.AddGrid(Grid{ID: 4, SegmentID: 3, Position: vec2.ZeroI(), Tiles: newTiles()}, []GridNeighbour{
		{ID: 2, Offset: vec2.OnlyX(1)},
		{ID: 3, Offset: vec2.OnlyY(1)},
	})

	g3, ok := m.GetGridByID(3)
	if !ok {
		t.Fatal("expected grid 3 to exist")
	}
	if g3.SegmentID != 1 {
		t.Fatalf("grid 3 SegmentID after merge = %d, want absorbed into segment 1", g3.SegmentID)
	}

	g4, ok := m.GetGridByID(4)
	if !ok {
		t.Fatal("expected grid 4 to exist")
	}
	if g4.SegmentID != 1 {
		t.Fatalf("grid 4 SegmentID = %d, want 1", g4.SegmentID)
	}
	wantG4Pos := vec2.NewI(1, 0).Sub(vec2.OnlyX(1))
	if g4.Position != wantG4Pos {
		t.Fatalf("grid 4 Position = %v, want %v", g4.Position, wantG4Pos)
	}
}

func TestUpdateGridShiftsSegmentSiblings(t *testing.T) {
	m := New(nil)
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.NewI(0, 0), Tiles: newTiles()}, nil)
	m.AddGrid(Grid{ID: 2, SegmentID: 1, Position: vec2.NewI(1, 0), Tiles: newTiles()}, []GridNeighbour{
		{ID: 1, Offset: vec2.OnlyX(-1)},
	})

	moved := *m.grids[1]
	moved.Position = vec2.NewI(3, 3)
	m.UpdateGrid(moved)

	g2, _ := m.GetGridByID(2)
	if g2.Position != vec2.NewI(4, 3) {
		t.Fatalf("sibling grid 2 Position after shift = %v, want (4,3)", g2.Position)
	}
}

func TestGetTileReadsFromLocalGrid(t *testing.T) {
	m := New(nil)
	tiles := newTiles()
	tiles[TilePosToTileIndex(vec2.NewI(2, 3))] = 7
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.ZeroI(), Tiles: tiles}, nil)

	tile, ok := m.GetTile(1, vec2.NewI(2, 3))
	if !ok || tile != 7 {
		t.Fatalf("GetTile = (%d, %v), want (7, true)", tile, ok)
	}
}

func TestFindBorderTilesSingleGridReturnsAllFourEdges(t *testing.T) {
	m := New(nil)
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.ZeroI(), Tiles: newTiles()}, nil)

	border := m.FindBorderTiles(1, allowAll{})
	want := int(GridSize) * 4
	if len(border) != want {
		t.Fatalf("len(border) = %d, want %d", len(border), want)
	}
}

func TestFindBorderTilesExcludesSharedEdgeBetweenAdjacentGrids(t *testing.T) {
	m := New(nil)
	m.AddGrid(Grid{ID: 1, SegmentID: 1, Position: vec2.NewI(0, 0), Tiles: newTiles()}, nil)
	m.AddGrid(Grid{ID: 2, SegmentID: 1, Position: vec2.NewI(1, 0), Tiles: newTiles()}, []GridNeighbour{
		{ID: 1, Offset: vec2.OnlyX(-1)},
	})

	border := m.FindBorderTiles(1, allowAll{})
	// Each grid contributes 3 full edges (left/right swapped out for the
	// shared one) plus the shared edge is excluded on both sides.
	want := int(GridSize) * 6
	if len(border) != want {
		t.Fatalf("len(border) = %d, want %d", len(border), want)
	}
}

func TestSetTileIgnoresStaleVersion(t *testing.T) {
	m := New(nil)
	m.SetTile(Tile{ID: 1, Version: 2, Name: "grass"})
	m.SetTile(Tile{ID: 1, Version: 1, Name: "stale"})

	tile, ok := m.GetTileByID(1)
	if !ok || tile.Name != "grass" {
		t.Fatalf("GetTileByID = (%v, %v), want (grass, true)", tile, ok)
	}
}

func TestTilePosGridPosRoundTrip(t *testing.T) {
	tilePos := vec2.NewI(-137, 243)
	gridPos := TilePosToGridPos(tilePos)
	rel := tilePosToRelativeTilePos(tilePos, gridPos)
	if rel.X < 0 || rel.X >= GridSize || rel.Y < 0 || rel.Y >= GridSize {
		t.Fatalf("relative tile pos %v out of bounds for grid size %d", rel, GridSize)
	}
	if MakeTilePos(gridPos, rel) != tilePos {
		t.Fatalf("MakeTilePos(%v, %v) = %v, want %v", gridPos, rel, MakeTilePos(gridPos, rel), tilePos)
	}
}
