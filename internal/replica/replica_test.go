package replica

import (
	"testing"
	"time"

	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

func newTiles() []int32 { return make([]int32, worldmap.GridSize*worldmap.GridSize) }

func newTestPlayer() *player.Player { return player.New() }

const testStaminaResourceName = "gfx/hud/meter/stam"

func applyReadyEvents(w *World, p *player.Player, now time.Time) {
	p.Update(now, w, protocol.Event{Type: protocol.EventResourceAdd, ResourceID: 10, ResourceName: testStaminaResourceName})
	p.Update(now, w, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 1, Kind: "gameui",
		Cargs: []protocol.Value{protocol.Str("Hero"), protocol.Int(100)}})
	p.Update(now, w, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 2, Kind: "mapview"})
	p.Update(now, w, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 3, Kind: "im",
		Cargs: []protocol.Value{protocol.Int(10)}})
	p.Update(now, w, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 4, Kind: "epry"})
	p.Update(now, w, protocol.Event{Type: protocol.EventGobAdd, ObjectID: 100, Position: vec2.NewF(1, 1)})
}

func TestForPlayerFailsWhenNotReady(t *testing.T) {
	w := New(nil)
	p := newTestPlayer()
	if _, ok := ForPlayer(w, p); ok {
		t.Fatal("expected ForPlayer to fail before the player is ready")
	}
}

func TestForPlayerSucceedsAfterFullBinding(t *testing.T) {
	w := New(nil)
	now := time.Unix(0, 0)

	w.Update(nil, protocol.Event{
		Type: protocol.EventMapGridAdd,
		Grid: protocol.MapGrid{ID: 1, Tiles: newTiles()},
	})

	p := newTestPlayer()
	applyReadyEvents(w, p, now)

	// Position (1,1) should fall inside grid 1 at segment-local position (0,0).
	w.Update(p, protocol.Event{Type: protocol.EventGobMove, ObjectID: 100, Position: vec2.NewF(1, 1)})

	pw, ok := ForPlayer(w, p)
	if !ok {
		t.Fatal("expected ForPlayer to succeed once every locator resolves")
	}
	if pw.SegmentID == 0 && pw.GridOffset != vec2.ZeroI() {
		t.Fatalf("unexpected segment/offset %d %v", pw.SegmentID, pw.GridOffset)
	}
}

func TestWorldRevisionIncrementsOnMutation(t *testing.T) {
	w := New(nil)
	before := w.Revision
	w.Update(nil, protocol.Event{Type: protocol.EventGobAdd, ObjectID: 1, Name: "boar"})
	if w.Revision != before+1 {
		t.Fatalf("Revision = %d, want %d", w.Revision, before+1)
	}
}
