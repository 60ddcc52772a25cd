// Package worldmap implements the replica's map: interned tiles, fixed-size
// grids, and the segments (connected components of grids) that stitch them
// together. Grounded on original_source/src/bot/map.rs, adapted to Go's
// map[K]V in place of Rust's BTreeMap (ordering is not load-bearing here —
// only key lookup and the find_border_tiles iteration order, which the
// caller re-sorts where it matters).
package worldmap

import (
	"sort"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

const (
	// GridSize is the number of tiles along one edge of a grid.
	GridSize int32 = 100
	// TileSize is the number of world units spanned by one tile.
	TileSize float64 = 11.0
	// Resolution is the number of world units addressed by one map-click unit.
	Resolution float64 = (1.0 / 1024.0) * TileSize
)

// Tile is an interned terrain cell definition.
type Tile struct {
	ID      int32
	Version int32
	Name    string
	Color   int32
}

// GridNeighbour hints that a newly added grid touches an existing grid at
// the given offset (in grid units).
type GridNeighbour struct {
	ID     int64
	Offset vec2.I
}

// Grid is a GridSize x GridSize chunk of tiles belonging to exactly one
// segment.
type Grid struct {
	ID         int64
	Revision   int64
	SegmentID  int64
	Position   vec2.I
	Heights    []float32
	Tiles      []int32
}

func (g *Grid) GetTile(tilePos vec2.I) int32 {
	return g.Tiles[TilePosToTileIndex(tilePos)]
}

func (g *Grid) GetHeight(tilePos vec2.I) float32 {
	return g.Heights[TilePosToTileIndex(tilePos)]
}

// MapDb is the external, cross-session tile cache. Implemented by
// internal/mapdb; consumed here only on a local miss.
type MapDb interface {
	GetTiles() []Tile
	GetTileIDByName(name string) (int32, bool)
	SetTile(tile Tile)
	GetGridIDsBySegmentID(segmentID int64) []int64
	GetGridByID(id int64) (*Grid, bool)
	GetGrid(segmentID int64, position vec2.I) (*Grid, bool)
	AddGrid(id int64, heights []float32, tiles []int32, neighbours []GridNeighbour)
	UpdateGrid(id int64, heights []float32, tiles []int32)
}

// TileSet reports whether a tile id is admitted by some predicate (usually
// "has a pathfinding weight").
type TileSet interface {
	Contains(tile int32) bool
}

// Map owns the in-memory tile/grid/segment state of one session's replica.
type Map struct {
	tiles        map[int32]Tile
	tilesByName  map[string]int32
	grids        map[int64]*Grid
	gridsByCoord map[int64]map[vec2.I]int64
	db           MapDb
}

func New(db MapDb) *Map {
	m := &Map{
		tiles:        make(map[int32]Tile),
		tilesByName:  make(map[string]int32),
		grids:        make(map[int64]*Grid),
		gridsByCoord: make(map[int64]map[vec2.I]int64),
		db:           db,
	}
	if db != nil {
		for _, t := range db.GetTiles() {
			m.tiles[t.ID] = t
			m.tilesByName[t.Name] = t.ID
		}
	}
	return m
}

// SetTile inserts or supersedes a tile by strictly greater version.
func (m *Map) SetTile(tile Tile) {
	if existing, ok := m.tiles[tile.ID]; ok && existing.Version >= tile.Version {
		return
	}
	if m.db != nil {
		m.db.SetTile(tile)
	}
	m.tilesByName[tile.Name] = tile.ID
	m.tiles[tile.ID] = tile
}

// AddGrid inserts a new grid, resolving neighbour hints into a target
// segment and, when multiple segments are touched, merging them.
func (m *Map) AddGrid(grid Grid, neighbours []GridNeighbour) {
	type seg struct {
		segmentID int64
		offset    vec2.I
		position  vec2.I
	}
	var segments []seg
	seen := make(map[int64]bool)
	for _, n := range neighbours {
		g, ok := m.grids[n.ID]
		if !ok {
			continue
		}
		if seen[g.SegmentID] {
			continue
		}
		seen[g.SegmentID] = true
		segments = append(segments, seg{g.SegmentID, n.Offset, g.Position})
	}

	if len(segments) > 0 {
		sort.Slice(segments, func(i, j int) bool {
			li, lj := len(m.gridsByCoord[segments[i].segmentID]), len(m.gridsByCoord[segments[j].segmentID])
			if li != lj {
				return li > lj
			}
			return segments[i].segmentID < segments[j].segmentID
		})
		target := segments[0]
		grid.SegmentID = target.segmentID
		grid.Position = target.position.Sub(target.offset)

		if len(segments) > 1 {
			for i := 1; i < len(segments); i++ {
				s := segments[i]
				shift := target.position.Sub(target.offset).Add(s.offset).Sub(s.position)
				segmentGrids := m.gridsByCoord[s.segmentID]
				delete(m.gridsByCoord, s.segmentID)
				for _, gridID := range segmentGrids {
					g := m.grids[gridID]
					g.SegmentID = target.segmentID
					g.Position = g.Position.Add(shift)
					g.Revision++
					m.insertCoord(target.segmentID, g.Position, gridID)
				}
			}
		}
	}

	if m.db != nil {
		m.db.AddGrid(grid.ID, grid.Heights, grid.Tiles, neighbours)
	}
	stored := grid
	m.insertCoord(stored.SegmentID, stored.Position, stored.ID)
	m.grids[stored.ID] = &stored
}

// UpdateGrid replaces a grid's contents; if its position moved, every
// sibling grid in the same segment is shifted by the same delta so
// segment-internal geometry is preserved.
func (m *Map) UpdateGrid(grid Grid) {
	if existing, ok := m.grids[grid.ID]; ok {
		shift := grid.Position.Sub(existing.Position)
		if shift != vec2.ZeroI() {
			for _, g := range m.grids {
				if g.SegmentID == grid.SegmentID {
					g.Position = g.Position.Add(shift)
				}
			}
			if coords, ok := m.gridsByCoord[grid.SegmentID]; ok {
				shifted := make(map[vec2.I]int64, len(coords))
				for pos, id := range coords {
					shifted[pos.Add(shift)] = id
				}
				m.gridsByCoord[grid.SegmentID] = shifted
			}
		}
	}
	if m.db != nil {
		m.db.UpdateGrid(grid.ID, grid.Heights, grid.Tiles)
	}
	stored := grid
	m.grids[stored.ID] = &stored
}

func (m *Map) insertCoord(segmentID int64, position vec2.I, gridID int64) {
	coords, ok := m.gridsByCoord[segmentID]
	if !ok {
		coords = make(map[vec2.I]int64)
		m.gridsByCoord[segmentID] = coords
	}
	coords[position] = gridID
}

// GetTile resolves the tile at tilePos within segmentID, consulting the
// external cache only when the grid is not held locally.
func (m *Map) GetTile(segmentID int64, tilePos vec2.I) (int32, bool) {
	gridPos := TilePosToGridPos(tilePos)
	if g := m.getGrid(segmentID, gridPos); g != nil {
		rel := tilePosToRelativeTilePos(tilePos, gridPos)
		return g.GetTile(rel), true
	}
	if m.db == nil {
		return 0, false
	}
	localGrid, ok := m.grids[segmentID]
	if !ok {
		return 0, false
	}
	dbGrid, ok := m.db.GetGridByID(segmentID)
	if !ok {
		return 0, false
	}
	shift := dbGrid.Position.Sub(localGrid.Position)
	position := gridPos.Add(shift)
	cached, ok := m.db.GetGrid(dbGrid.SegmentID, position)
	if !ok {
		return 0, false
	}
	rel := tilePosToRelativeTilePos(tilePos.Add(GridPosToTilePos(shift)), position)
	return cached.GetTile(rel), true
}

func (m *Map) getGrid(segmentID int64, gridPos vec2.I) *Grid {
	coords, ok := m.gridsByCoord[segmentID]
	if !ok {
		return nil
	}
	id, ok := coords[gridPos]
	if !ok {
		return nil
	}
	return m.grids[id]
}

func (m *Map) GetGridByID(id int64) (*Grid, bool) {
	g, ok := m.grids[id]
	return g, ok
}

func (m *Map) GetTileIDByName(name string) (int32, bool) {
	if id, ok := m.tilesByName[name]; ok {
		return id, true
	}
	if m.db != nil {
		return m.db.GetTileIDByName(name)
	}
	return 0, false
}

func (m *Map) GetTileByID(id int32) (Tile, bool) {
	t, ok := m.tiles[id]
	return t, ok
}

// AllTiles returns every locally interned tile, for snapshotting.
func (m *Map) AllTiles() []Tile {
	tiles := make([]Tile, 0, len(m.tiles))
	for _, t := range m.tiles {
		tiles = append(tiles, t)
	}
	return tiles
}

// AllGrids returns every locally held grid, for snapshotting.
func (m *Map) AllGrids() []Grid {
	grids := make([]Grid, 0, len(m.grids))
	for _, g := range m.grids {
		grids = append(grids, *g)
	}
	return grids
}

// LoadSnapshot replaces the map's local state wholesale, as done when a
// session restores from a SessionData checkpoint. It does not consult or
// populate the external MapDb.
func (m *Map) LoadSnapshot(tiles []Tile, grids []Grid) {
	m.tiles = make(map[int32]Tile, len(tiles))
	m.tilesByName = make(map[string]int32, len(tiles))
	for _, t := range tiles {
		m.tiles[t.ID] = t
		m.tilesByName[t.Name] = t.ID
	}
	m.grids = make(map[int64]*Grid, len(grids))
	m.gridsByCoord = make(map[int64]map[vec2.I]int64)
	for i := range grids {
		g := grids[i]
		m.grids[g.ID] = &g
		m.insertCoord(g.SegmentID, g.Position, g.ID)
	}
}

// FindBorderTiles returns every cell on the outer boundary of segmentID
// (a grid-edge cell whose neighbouring grid position is absent from the
// segment) whose tile is allowed.
func (m *Map) FindBorderTiles(segmentID int64, allowed TileSet) []vec2.I {
	var result []vec2.I
	coords, ok := m.gridsByCoord[segmentID]
	if !ok {
		return result
	}
	for gridPos, gridID := range coords {
		grid := m.grids[gridID]
		if _, ok := coords[gridPos.Sub(vec2.OnlyX(1))]; !ok {
			for y := int32(0); y < GridSize; y++ {
				rel := vec2.OnlyY(y)
				if tile := grid.GetTile(rel); allowed.Contains(tile) {
					result = append(result, MakeTilePos(gridPos, rel))
				}
			}
		}
		if _, ok := coords[gridPos.Add(vec2.OnlyX(1))]; !ok {
			for y := int32(0); y < GridSize; y++ {
				rel := vec2.NewI(GridSize-1, y)
				if tile := grid.GetTile(rel); allowed.Contains(tile) {
					result = append(result, MakeTilePos(gridPos, rel))
				}
			}
		}
		if _, ok := coords[gridPos.Sub(vec2.OnlyY(1))]; !ok {
			for x := int32(0); x < GridSize; x++ {
				rel := vec2.NewI(x, 0)
				if tile := grid.GetTile(rel); allowed.Contains(tile) {
					result = append(result, MakeTilePos(gridPos, rel))
				}
			}
		}
		if _, ok := coords[gridPos.Add(vec2.OnlyY(1))]; !ok {
			for x := int32(0); x < GridSize; x++ {
				rel := vec2.NewI(x, GridSize-1)
				if tile := grid.GetTile(rel); allowed.Contains(tile) {
					result = append(result, MakeTilePos(gridPos, rel))
				}
			}
		}
	}
	return result
}

// --- coordinate conversions ---

func RelTilePosToPos(tilePos vec2.F) vec2.F { return tilePos.MulScalar(TileSize) }

func PosToRelTilePos(pos vec2.F) vec2.F { return pos.DivScalar(TileSize) }

func PosToTilePos(pos vec2.F) vec2.I { return vec2.FromF(PosToRelTilePos(pos).Floor()) }

func TilePosToPos(tilePos vec2.I) vec2.F { return RelTilePosToPos(vec2.FromI(tilePos)) }

func MapPosToPos(mapPos vec2.I) vec2.F { return mapPos.Center().MulScalar(Resolution) }

func MapPosToTilePos(mapPos vec2.I) vec2.I { return PosToTilePos(MapPosToPos(mapPos)) }

func PosToMapPos(pos vec2.F) vec2.I { return vec2.FromF(pos.FloorBy(Resolution)) }

func PosToGridPos(pos vec2.F) vec2.I { return TilePosToGridPos(PosToTilePos(pos)) }

func GridPosToPos(gridPos vec2.I) vec2.F { return TilePosToPos(GridPosToTilePos(gridPos)) }

func tilePosToRelativeTilePos(tilePos, gridPos vec2.I) vec2.I {
	return tilePos.Sub(GridPosToTilePos(gridPos))
}

func GridPosToTilePos(gridPos vec2.I) vec2.I { return gridPos.MulScalar(GridSize) }

func TilePosToTileIndex(tilePos vec2.I) int {
	return int(tilePos.X) + int(tilePos.Y)*int(GridSize)
}

func TileIndexToTilePos(index int) vec2.I {
	return vec2.NewI(int32(index)%GridSize, int32(index)/GridSize)
}

func MakeTilePos(gridPos, relativeTilePos vec2.I) vec2.I {
	return GridPosToTilePos(gridPos).Add(relativeTilePos)
}

func TilePosToGridPos(tilePos vec2.I) vec2.I { return tilePos.FloorDiv(GridSize) }
