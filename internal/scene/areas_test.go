package scene

import (
	"testing"

	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

func uniformGrid(n int32, tileID int32) *worldmap.Grid {
	tiles := make([]int32, n*n)
	for i := range tiles {
		tiles[i] = tileID
	}
	return &worldmap.Grid{Tiles: tiles, Heights: make([]float32, n*n)}
}

func TestMakeAreasSingleUniformGrid(t *testing.T) {
	grid := uniformGrid(worldmap.GridSize, 7)
	areas := MakeAreas(grid)
	if len(areas) != 1 {
		t.Fatalf("expected 1 area for a uniform grid, got %d", len(areas))
	}
	if areas[0].TileID != 7 {
		t.Fatalf("expected tile id 7, got %d", areas[0].TileID)
	}
	if len(areas[0].Cells) != int(worldmap.GridSize*worldmap.GridSize) {
		t.Fatalf("expected every cell covered, got %d", len(areas[0].Cells))
	}
}

func TestFloodFillSplitsByTileID(t *testing.T) {
	n := int32(4)
	tiles := make([]int32, n*n)
	for y := int32(0); y < n; y++ {
		for x := int32(0); x < n; x++ {
			id := int32(1)
			if x >= n/2 {
				id = 2
			}
			tiles[y*n+x] = id
		}
	}
	// MakeAreas assumes worldmap.GridSize cells; exercise floodFill
	// directly against the smaller fixture instead.
	visited := make([]bool, n*n)
	left := floodFill(tiles, visited, int(n), 0, 0, 1)
	if len(left) != 8 {
		t.Fatalf("expected left half (8 cells) flood-filled, got %d", len(left))
	}
	for _, c := range left {
		if c.X >= n/2 {
			t.Fatalf("flood fill crossed into right half at %v", c)
		}
	}
	visited2 := make([]bool, n*n)
	right := floodFill(tiles, visited2, int(n), int(n/2), 0, 2)
	if len(right) != 8 {
		t.Fatalf("expected right half (8 cells) flood-filled, got %d", len(right))
	}
	_ = vec2.I{}
}

func TestSmoothBoundaryCollapsesCollinearRuns(t *testing.T) {
	pts := []vec2.F{
		vec2.NewF(0, 0),
		vec2.NewF(1, 0),
		vec2.NewF(2, 0),
		vec2.NewF(2, 1),
	}
	out := smoothBoundary(pts)
	for _, p := range out {
		if p == vec2.NewF(1, 0) {
			t.Fatalf("expected collinear midpoint (1,0) to be removed, got %v", out)
		}
	}
}
