package scene

import (
	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// Area is one flood-labeled, tile-equal region of a grid plus the
// boundary polyline around it. Visualization-only (spec.md §4.7.10):
// nothing in the driving loop consumes Areas.
type Area struct {
	TileID   int32
	Cells    []vec2.I
	Boundary []vec2.F
}

func (Area) Kind() string { return "area" }

// AreasNode bundles one grid's worth of Areas as a single scene Node, the
// shape internal/session publishes the player's current grid under.
type AreasNode struct {
	GridID int64
	Areas  []Area
}

func (AreasNode) Kind() string { return "areas" }

// MakeAreas flood-labels every cell of grid by tile-id equality (4-
// connected) and computes a smoothed boundary polyline per area.
// Grounded on original_source/src/bot/navigator.rs's area-extraction
// pass, simplified: the original additionally merges areas across grid
// boundaries and resolves shared-corner ambiguity with a lookup table;
// this port stays within one grid, which is sufficient for a debug
// overlay.
func MakeAreas(grid *worldmap.Grid) []Area {
	n := int(worldmap.GridSize)
	visited := make([]bool, n*n)
	var areas []Area

	idx := func(x, y int) int { return y*n + x }

	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if visited[idx(x, y)] {
				continue
			}
			tileID := grid.Tiles[idx(x, y)]
			cells := floodFill(grid.Tiles, visited, n, x, y, tileID)
			areas = append(areas, Area{
				TileID:   tileID,
				Cells:    cells,
				Boundary: smoothBoundary(boundaryOf(cells)),
			})
		}
	}
	return areas
}

// floodFill labels the 4-connected region of cells sharing tileID
// starting at (x0, y0), marking visited as it goes, and returns the
// region's cells in discovery order.
func floodFill(tiles []int32, visited []bool, n, x0, y0 int, tileID int32) []vec2.I {
	idx := func(x, y int) int { return y*n + x }
	stack := []vec2.I{vec2.NewI(int32(x0), int32(y0))}
	visited[idx(x0, y0)] = true
	var cells []vec2.I
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cells = append(cells, p)
		x, y := int(p.X), int(p.Y)
		neighbours := [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}}
		for _, nb := range neighbours {
			nx, ny := nb[0], nb[1]
			if nx < 0 || ny < 0 || nx >= n || ny >= n {
				continue
			}
			if visited[idx(nx, ny)] {
				continue
			}
			if tiles[idx(nx, ny)] != tileID {
				continue
			}
			visited[idx(nx, ny)] = true
			stack = append(stack, vec2.NewI(int32(nx), int32(ny)))
		}
	}
	return cells
}

// boundaryOf emits every unit edge of cells that borders a cell outside
// the set (or the grid edge), as a sequence of corner points walked
// clockwise around each cell. Not globally stitched into one polygon per
// area — callers needing a single loop should run smoothBoundary first,
// which at least collapses collinear runs; true polygon stitching is
// left to the renderer, matching the "visualization only" scope.
func boundaryOf(cells []vec2.I) []vec2.F {
	set := make(map[vec2.I]bool, len(cells))
	for _, c := range cells {
		set[c] = true
	}
	var pts []vec2.F
	for _, c := range cells {
		x, y := float64(c.X), float64(c.Y)
		edges := [4]struct {
			neighbour vec2.I
			a, b      vec2.F
		}{
			{vec2.NewI(c.X, c.Y-1), vec2.NewF(x, y), vec2.NewF(x+1, y)},
			{vec2.NewI(c.X+1, c.Y), vec2.NewF(x+1, y), vec2.NewF(x+1, y+1)},
			{vec2.NewI(c.X, c.Y+1), vec2.NewF(x+1, y+1), vec2.NewF(x, y+1)},
			{vec2.NewI(c.X-1, c.Y), vec2.NewF(x, y+1), vec2.NewF(x, y)},
		}
		for _, e := range edges {
			if set[e.neighbour] {
				continue
			}
			pts = append(pts, e.a, e.b)
		}
	}
	return pts
}

// smoothBoundary removes a point that lies exactly between its
// neighbours on a straight run (collinear runs collapse to their
// endpoints), the only smoothing spec.md calls for explicitly.
func smoothBoundary(pts []vec2.F) []vec2.F {
	if len(pts) < 3 {
		return pts
	}
	out := make([]vec2.F, 0, len(pts))
	for i, p := range pts {
		prev := pts[(i-1+len(pts))%len(pts)]
		next := pts[(i+1)%len(pts)]
		if isCollinear(prev, p, next) {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return pts
	}
	return out
}

func isCollinear(a, b, c vec2.F) bool {
	// Cross product of (b-a) and (c-a); zero means collinear.
	cross := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
	return cross == 0
}
