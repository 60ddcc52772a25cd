// Package replica owns one session's authoritative World (map + objects)
// and produces the read-only PlayerWorld view tasks and the pathfinder
// operate against. Grounded on original_source/src/bot/world.rs.
package replica

import (
	"github.com/elsid/hafen-botserver/internal/objects"
	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// World is the event sink for everything not owned by the Player
// projection: tiles, grids, and dynamic objects.
type World struct {
	Revision int64
	Map      *worldmap.Map
	Objects  *objects.Objects

	gridPositions map[int64]vec2.I // grid id -> grid position, for player-grid resolution
	gridSegments  map[int64]int64  // grid id -> segment id
}

func New(db worldmap.MapDb) *World {
	return &World{
		Map:           worldmap.New(db),
		Objects:       objects.New(),
		gridPositions: make(map[int64]vec2.I),
		gridSegments:  make(map[int64]int64),
	}
}

// Update applies one event to the world and bumps the revision counter on
// any mutation. p, if non-nil, is notified of grid bindings relevant to
// its current position.
func (w *World) Update(p *player.Player, e protocol.Event) {
	switch e.Type {
	case protocol.EventMapTile:
		w.Map.SetTile(worldmap.Tile{ID: e.Tile.ID, Version: e.Tile.Version, Name: e.Tile.Name, Color: e.Tile.Color})
		w.Revision++
	case protocol.EventMapGridAdd:
		neighbours := make([]worldmap.GridNeighbour, len(e.Neighbours))
		for i, n := range e.Neighbours {
			neighbours[i] = worldmap.GridNeighbour{ID: n.ID, Offset: n.Offset}
		}
		w.Map.AddGrid(worldmap.Grid{
			ID:      e.Grid.ID,
			Tiles:   e.Grid.Tiles,
			Heights: e.Grid.Heights,
		}, neighbours)
		if g, ok := w.Map.GetGridByID(e.Grid.ID); ok {
			w.gridPositions[e.Grid.ID] = g.Position
			w.gridSegments[e.Grid.ID] = g.SegmentID
		}
		w.Revision++
		w.rebindPlayerGrid(p)
	case protocol.EventMapGridUpdate:
		w.Map.UpdateGrid(worldmap.Grid{
			ID:      e.Grid.ID,
			Tiles:   e.Grid.Tiles,
			Heights: e.Grid.Heights,
		})
		if g, ok := w.Map.GetGridByID(e.Grid.ID); ok {
			w.gridPositions[e.Grid.ID] = g.Position
			w.gridSegments[e.Grid.ID] = g.SegmentID
		}
		w.Revision++
		w.rebindPlayerGrid(p)
	case protocol.EventMapGridRemove:
		delete(w.gridPositions, e.ID)
		delete(w.gridSegments, e.ID)
		w.Revision++
	case protocol.EventGobAdd:
		w.Objects.Add(objects.Object{ID: e.ObjectID, Name: e.Name, Position: [2]float64{e.Position.X, e.Position.Y}, Angle: e.Angle})
		w.Revision++
		w.rebindPlayerGrid(p)
	case protocol.EventGobMove:
		w.Objects.Update(e.ObjectID, func(obj *objects.Object) {
			obj.Position = [2]float64{e.Position.X, e.Position.Y}
			obj.Angle = e.Angle
		})
		w.Revision++
		w.rebindPlayerGrid(p)
	case protocol.EventGobRemove:
		w.Objects.Remove(e.ID)
		w.Revision++
	}
}

// WorldSnapshot is the JSON-serializable form of World, used by session
// checkpointing (spec.md §6.5).
type WorldSnapshot struct {
	Revision int64             `json:"revision"`
	Objects  []objects.Object  `json:"objects"`
	Tiles    []worldmap.Tile   `json:"tiles"`
	Grids    []worldmap.Grid   `json:"grids"`
}

// Snapshot captures the world state for a SessionData checkpoint.
func (w *World) Snapshot() WorldSnapshot {
	return WorldSnapshot{
		Revision: w.Revision,
		Objects:  w.Objects.All(),
		Tiles:    w.Map.AllTiles(),
		Grids:    w.Map.AllGrids(),
	}
}

// LoadSnapshot replaces the world's state wholesale and rebuilds the
// grid-position/segment indexes used to resolve the player's enclosing
// grid, as done when a session restores from a checkpoint.
func (w *World) LoadSnapshot(s WorldSnapshot) {
	w.Revision = s.Revision
	w.Objects.LoadSnapshot(s.Objects)
	w.Map.LoadSnapshot(s.Tiles, s.Grids)
	w.gridPositions = make(map[int64]vec2.I, len(s.Grids))
	w.gridSegments = make(map[int64]int64, len(s.Grids))
	for _, g := range s.Grids {
		w.gridPositions[g.ID] = g.Position
		w.gridSegments[g.ID] = g.SegmentID
	}
}

// rebindPlayerGrid resolves the grid enclosing the player's current
// position, if known, and binds it into the projection.
func (w *World) rebindPlayerGrid(p *player.Player) {
	if p == nil || !p.HasPosition {
		return
	}
	if gridID, ok := w.GridIDAtPosition(p.Position); ok {
		p.BindGrid(gridID)
	}
}

// ObjectPosition implements player.World, letting the projection backfill
// an object's position for a gameui widget that names an already-known
// object.
func (w *World) ObjectPosition(objectID int64) (vec2.F, bool) {
	obj, ok := w.Objects.GetByID(objectID)
	if !ok {
		return vec2.F{}, false
	}
	return vec2.NewF(obj.Position[0], obj.Position[1]), true
}

// GridIDAtPosition implements player.World, resolving the grid enclosing
// a world position, if the replica has that grid locally.
func (w *World) GridIDAtPosition(pos vec2.F) (int64, bool) {
	tilePos := worldmap.PosToTilePos(pos)
	gridPos := worldmap.TilePosToGridPos(tilePos)
	for gridID, p := range w.gridPositions {
		if p == gridPos {
			return gridID, true
		}
	}
	return 0, false
}

// PlayerWorld is the read-only, segment-local view handed to tasks and
// the pathfinder. It only exists once every required locator resolves.
type PlayerWorld struct {
	World     *World
	Player    *player.Player
	SegmentID int64
	// GridOffset is the offset (in grid units) between the segment's
	// coordinate origin and the player's current grid.
	GridOffset vec2.I
}

// ForPlayer performs the eligibility check from spec.md §3 and, when it
// succeeds, returns a PlayerWorld precomputing the player's segment id
// and grid offset so every subsequent query is segment-local.
func ForPlayer(w *World, p *player.Player) (*PlayerWorld, bool) {
	if !p.Ready() {
		return nil, false
	}
	segmentID, ok := w.gridSegments[p.GridID]
	if !ok {
		return nil, false
	}
	gridPos, ok := w.gridPositions[p.GridID]
	if !ok {
		return nil, false
	}
	return &PlayerWorld{World: w, Player: p, SegmentID: segmentID, GridOffset: gridPos}, true
}

// GetTile resolves the tile at a tile position relative to the player's
// grid (GridOffset); it adds GridOffset back before reading the segment.
func (pw *PlayerWorld) GetTile(tilePos vec2.I) (int32, bool) {
	rebased := tilePos.Add(worldmap.GridPosToTilePos(pw.GridOffset))
	return pw.World.Map.GetTile(pw.SegmentID, rebased)
}

// PlayerTilePos is the player's current position expressed as a tile
// coordinate relative to GridOffset, the frame GetTile takes.
func (pw *PlayerWorld) PlayerTilePos() vec2.I {
	absolute := worldmap.PosToTilePos(pw.Player.Position)
	return absolute.Sub(worldmap.GridPosToTilePos(pw.GridOffset))
}

// FindBorderTiles returns border tiles of the player's segment, in tile
// coordinates relative to GridOffset (the frame GetTile takes).
func (pw *PlayerWorld) FindBorderTiles(allowed worldmap.TileSet) []vec2.I {
	tiles := pw.World.Map.FindBorderTiles(pw.SegmentID, allowed)
	offset := worldmap.GridPosToTilePos(pw.GridOffset)
	result := make([]vec2.I, len(tiles))
	for i, t := range tiles {
		result[i] = t.Sub(offset)
	}
	return result
}
