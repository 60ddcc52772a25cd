package tasks

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/elsid/hafen-botserver/internal/pathfinder"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// TileFamily names a set of tile-weight tables the player's current tile
// can belong to (e.g. "water", "ice"); PathFinder only paths within a
// single family at a time.
type TileFamily struct {
	Name    string
	Weights pathfinder.TileWeights
}

// PathFinderConfig bounds the search and shortcut passes.
type PathFinderConfig struct {
	FindPathMaxShortcutLength  float64
	FindPathMaxIterations      int
	MaxNextPointShortcutLength float64
}

// PathFinder walks the player toward an operator- or task-adopted
// destination map position. Grounded on
// original_source/src/bot/tasks/path_finder.rs.
type PathFinder struct {
	Config     PathFinderConfig
	Families   []TileFamily
	MapViewID  int64
	Cancel     *atomic.Bool

	hasDestination bool
	destination    vec2.I // segment-local tile position
	path           []vec2.I
}

func NewPathFinder(cfg PathFinderConfig, families []TileFamily, mapViewID int64, cancel *atomic.Bool) *PathFinder {
	return &PathFinder{Config: cfg, Families: families, MapViewID: mapViewID, Cancel: cancel}
}

func (t *PathFinder) Name() string { return "PathFinder" }

func (t *PathFinder) SetDestination(dst vec2.I) {
	t.hasDestination = true
	t.destination = dst
	t.path = nil
}

func (t *PathFinder) ClearDestination() {
	t.hasDestination = false
	t.path = nil
}

func (t *PathFinder) familyFor(tile int32) (TileFamily, bool) {
	for _, f := range t.Families {
		if _, ok := f.Weights[tile]; ok {
			return f, true
		}
	}
	return TileFamily{}, false
}

func (t *PathFinder) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if !t.hasDestination {
		return protocol.Message{}, false
	}
	playerTile := pw.PlayerTilePos()
	if playerTile == t.destination {
		t.ClearDestination()
		return protocol.Done(t.Name()), true
	}

	currentTileID, _ := pw.GetTile(playerTile)
	family, ok := t.familyFor(currentTileID)
	if !ok {
		t.ClearDestination()
		return protocol.Message{}, false
	}
	if dstTileID, known := pw.GetTile(t.destination); known {
		if _, ok := family.Weights[dstTileID]; !ok {
			t.ClearDestination()
			return protocol.Message{}, false
		}
	}

	if len(t.path) == 0 {
		lookup := func(pos vec2.I) (int32, bool) { return pw.GetTile(pos) }
		t.path = pathfinder.FindPath(playerTile, t.destination, family.Weights, lookup, pathfinder.Options{
			MaxIterations:     t.Config.FindPathMaxIterations,
			MaxShortcutLength: t.Config.FindPathMaxShortcutLength,
		}, t.Cancel)
		if len(t.path) == 0 {
			t.ClearDestination()
			return protocol.Message{}, false
		}
	}

	t.consumePath(pw, family, playerTile)
	if len(t.path) == 0 {
		t.ClearDestination()
		return protocol.Message{}, false
	}

	mapPos := worldmap.PosToMapPos(worldmap.TilePosToPos(t.path[0]))
	return protocol.WidgetMessage(t.MapViewID, "click", []protocol.Value{
		protocol.Int(0), protocol.Coord(mapPos), protocol.Int(int32(protocol.LeftClick)), protocol.Int(int32(protocol.ModifierNone)),
	}), true
}

func (t *PathFinder) consumePath(pw *replica.PlayerWorld, family TileFamily, playerTile vec2.I) {
	playerPos := worldmap.PosToRelTilePos(pw.Player.Position)

	for len(t.path) >= 2 {
		nextCenter := t.path[1].Center()
		if playerPos.Distance(nextCenter) <= t.Config.MaxNextPointShortcutLength {
			t.path = t.path[1:]
			continue
		}
		break
	}

	for len(t.path) > 0 && t.path[0] != playerTile {
		d := playerPos.Distance(t.path[0].Center())
		if d <= math.Sqrt(2*worldmap.TileSize) {
			t.path = t.path[1:]
			continue
		}
		break
	}
}

func (t *PathFinder) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	if e.Type != protocol.EventWidgetMessage || e.Sender != t.MapViewID || e.Message != "click" {
		return
	}
	if len(e.Arguments) < 4 {
		return
	}
	if !e.Arguments[2].EqualsInt(int64(protocol.LeftClick)) || !e.Arguments[3].EqualsInt(int64(protocol.ModifierAlt)) {
		return
	}
	if e.Arguments[1].Kind != protocol.ValueCoord {
		return
	}
	mapPos := e.Arguments[1].Coord
	tilePos := worldmap.MapPosToTilePos(mapPos)
	t.SetDestination(tilePos)
}

func (t *PathFinder) Restore(pw *replica.PlayerWorld) {}
