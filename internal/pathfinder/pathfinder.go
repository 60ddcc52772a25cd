// Package pathfinder implements the weighted A* tile search and the
// subsequent shortcut-based path shortening used by navigation tasks.
// Grounded on original_source/src/bot/world.rs (find_path /
// find_reversed_tiles_path / shorten_reversed_tiles_path /
// is_valid_shortcut) and original_source/src/bot/tasks/path_finder.rs.
// The open-set priority queue uses container/heap; no example repo in
// the retrieval pack imports a dedicated graph-search library, so the
// stdlib heap is the idiomatic choice here (kelindar-tile's heap.go and
// path.go show the same A* shape and are a design reference only).
package pathfinder

import (
	"container/heap"
	"math"
	"sync/atomic"

	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/walkgrid"
)

// TileWeights maps a tile id to a traversal cost in (0, +Inf).
type TileWeights map[int32]float64

// TileLookup resolves the tile id at a tile position, reporting whether
// the tile is known to the replica at all.
type TileLookup func(pos vec2.I) (tile int32, known bool)

// Options bounds the search and the subsequent shortening pass.
type Options struct {
	MaxIterations     int
	MaxShortcutLength float64
	ReportIterations  int
	// OnProgress, if set, is called every ReportIterations iterations so
	// the caller can log long-running searches.
	OnProgress func(iterations int)
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100000
	}
	if o.MaxShortcutLength <= 0 {
		o.MaxShortcutLength = 10
	}
	if o.ReportIterations <= 0 {
		o.ReportIterations = 10000
	}
	return o
}

var directions = [8]vec2.I{
	{X: 1, Y: 0}, {X: -1, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: -1},
	{X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: 1}, {X: -1, Y: -1},
}

func isReachable(lookup TileLookup, weights TileWeights, pos vec2.I) bool {
	tile, known := lookup(pos)
	if !known {
		return true
	}
	_, ok := weights[tile]
	return ok
}

func stepCost(lookup TileLookup, weights TileWeights, a, b vec2.I) (float64, bool) {
	tileA, knownA := lookup(a)
	tileB, knownB := lookup(b)
	costA := 1.0
	if knownA {
		w, ok := weights[tileA]
		if !ok {
			return 0, false
		}
		costA = w
	}
	costB := 1.0
	if knownB {
		w, ok := weights[tileB]
		if !ok {
			return 0, false
		}
		costB = w
	}
	dist := vec2.FromI(a).Distance(vec2.FromI(b))
	return dist * (costA + costB) / 2, true
}

// canStep reports whether moving from a to b is admissible, applying
// corner-cut prevention for diagonal moves and margin-1 obstacle
// inflation for every move.
func canStep(lookup TileLookup, weights TileWeights, a, b vec2.I) bool {
	if !isReachable(lookup, weights, b) {
		return false
	}
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx != 0 && dy != 0 {
		corner1 := vec2.NewI(a.X, b.Y)
		corner2 := vec2.NewI(b.X, a.Y)
		if !isReachable(lookup, weights, corner1) || !isReachable(lookup, weights, corner2) {
			return false
		}
	}
	for _, d := range directions[:4] {
		n := b.Add(d)
		if n == a {
			continue
		}
		if !isReachable(lookup, weights, n) {
			return false
		}
	}
	return true
}

func heuristic(a, b vec2.I) float64 {
	return a.Center().Distance(b.Center())
}

// FindPath runs weighted A* from src to dst and returns the sparse,
// shortcut-compressed waypoint list. An empty slice means no path was
// found, the search was cancelled, or max iterations were exhausted.
func FindPath(src, dst vec2.I, weights TileWeights, lookup TileLookup, opts Options, cancel *atomic.Bool) []vec2.I {
	if src == dst {
		return []vec2.I{dst}
	}
	opts = opts.withDefaults()
	if !isReachable(lookup, weights, dst) {
		return nil
	}

	reversed := findReversedTilesPath(src, dst, weights, lookup, opts, cancel)
	if reversed == nil {
		return nil
	}
	return shortenReversedTilesPath(reversed, weights, lookup, opts)
}

type searchNode struct {
	pos      vec2.I
	priority float64
	seq      int
}

type openSet []searchNode

func (s openSet) Len() int { return len(s) }
func (s openSet) Less(i, j int) bool {
	if s[i].priority != s[j].priority {
		return s[i].priority < s[j].priority
	}
	return s[i].seq < s[j].seq
}
func (s openSet) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s *openSet) Push(x any)        { *s = append(*s, x.(searchNode)) }
func (s *openSet) Pop() any {
	old := *s
	n := len(old)
	item := old[n-1]
	*s = old[:n-1]
	return item
}

// findReversedTilesPath returns the path from dst back to src (inclusive
// of both ends), or nil if no path exists, the search was cancelled, or
// the iteration budget ran out.
func findReversedTilesPath(src, dst vec2.I, weights TileWeights, lookup TileLookup, opts Options, cancel *atomic.Bool) []vec2.I {
	open := &openSet{}
	heap.Init(open)
	seq := 0
	heap.Push(open, searchNode{pos: src, priority: heuristic(src, dst), seq: seq})
	seq++

	gScore := map[vec2.I]float64{src: 0}
	cameFrom := map[vec2.I]vec2.I{}

	iterations := 0
	for open.Len() > 0 {
		if cancel != nil && cancel.Load() {
			return nil
		}
		iterations++
		if iterations > opts.MaxIterations {
			return nil
		}
		if opts.OnProgress != nil && opts.ReportIterations > 0 && iterations%opts.ReportIterations == 0 {
			opts.OnProgress(iterations)
		}

		current := heap.Pop(open).(searchNode)
		if current.pos == dst {
			return buildReversedPath(cameFrom, dst, src)
		}
		currentG, ok := gScore[current.pos]
		if !ok || current.priority > currentG+heuristic(current.pos, dst)+1e-9 {
			// Stale queue entry: a cheaper path to this tile was already found.
			continue
		}

		for _, d := range directions {
			neighbour := current.pos.Add(d)
			if !canStep(lookup, weights, current.pos, neighbour) {
				continue
			}
			cost, ok := stepCost(lookup, weights, current.pos, neighbour)
			if !ok {
				continue
			}
			tentativeG := currentG + cost
			if existing, ok := gScore[neighbour]; ok && existing <= tentativeG {
				continue
			}
			gScore[neighbour] = tentativeG
			cameFrom[neighbour] = current.pos
			heap.Push(open, searchNode{pos: neighbour, priority: tentativeG + heuristic(neighbour, dst), seq: seq})
			seq++
		}
	}
	return nil
}

func buildReversedPath(cameFrom map[vec2.I]vec2.I, dst, src vec2.I) []vec2.I {
	path := []vec2.I{dst}
	current := dst
	for current != src {
		prev, ok := cameFrom[current]
		if !ok {
			break
		}
		path = append(path, prev)
		current = prev
	}
	return path
}

// shortenReversedTilesPath greedily pulls the earliest valid shortcut
// predecessor working from the destination back to the source, then
// reverses the result into source-to-destination order.
func shortenReversedTilesPath(reversed []vec2.I, weights TileWeights, lookup TileLookup, opts Options) []vec2.I {
	if len(reversed) == 0 {
		return nil
	}
	shortened := []vec2.I{reversed[0]}
	currentIdx := 0
	for currentIdx < len(reversed)-1 {
		current := reversed[currentIdx]
		next := currentIdx + 1
		for candidate := len(reversed) - 1; candidate > currentIdx; candidate-- {
			if isValidShortcut(current, reversed[candidate], weights, lookup, opts.MaxShortcutLength) {
				next = candidate
				break
			}
		}
		shortened = append(shortened, reversed[next])
		currentIdx = next
	}

	result := make([]vec2.I, len(shortened))
	for i, p := range shortened {
		result[len(shortened)-1-i] = p
	}
	return result
}

// isValidShortcut reports whether a direct hop from a to b stays within
// max_length and never crosses unreachable or corner-pinched tiles.
func isValidShortcut(a, b vec2.I, weights TileWeights, lookup TileLookup, maxLength float64) bool {
	if a.X == b.X {
		return isValidShortcutAxis(a.Y, b.Y, func(v int32) vec2.I { return vec2.NewI(a.X, v) }, weights, lookup, maxLength)
	}
	if a.Y == b.Y {
		return isValidShortcutAxis(a.X, b.X, func(v int32) vec2.I { return vec2.NewI(v, a.Y) }, weights, lookup, maxLength)
	}
	return isValidShortcutDiagonal(a, b, weights, lookup, maxLength)
}

func isValidShortcutAxis(from, to int32, make func(int32) vec2.I, weights TileWeights, lookup TileLookup, maxLength float64) bool {
	step := int32(1)
	if to < from {
		step = -1
	}
	length := 0
	for v := from; ; v += step {
		pos := make(v)
		if !isReachable(lookup, weights, pos) {
			return false
		}
		if v == to {
			break
		}
		length++
		if float64(length) > maxLength {
			return false
		}
	}
	return true
}

func isValidShortcutDiagonal(a, b vec2.I, weights TileWeights, lookup TileLookup, maxLength float64) bool {
	begin := a.Center()
	end := b.Center()
	valid := true
	var lastTile *vec2.I
	walkgrid.Walk(begin, end, func(position vec2.F) bool {
		tilePos := vec2.NewI(int32(math.Floor(position.X)), int32(math.Floor(position.Y)))
		if begin.Distance(position) > maxLength {
			valid = false
			return false
		}
		if !isReachable(lookup, weights, tilePos) {
			valid = false
			return false
		}
		if lastTile != nil && lastTile.X != tilePos.X && lastTile.Y != tilePos.Y {
			corner1 := vec2.NewI(lastTile.X, tilePos.Y)
			corner2 := vec2.NewI(tilePos.X, lastTile.Y)
			if !isReachable(lookup, weights, corner1) || !isReachable(lookup, weights, corner2) {
				valid = false
				return false
			}
		}
		lastTile = &tilePos
		return true
	})
	return valid
}
