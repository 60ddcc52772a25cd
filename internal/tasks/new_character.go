package tasks

import (
	"sync/atomic"
	"time"

	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
	"github.com/elsid/hafen-botserver/internal/vec2"
)

// NewCharacterConfig carries the fixed route to the name-changer NPC and
// the object name used to recognize it.
type NewCharacterConfig struct {
	Waypoints        []vec2.I
	NameChangerName  string
	PathFinderConfig PathFinderConfig
	Families         []TileFamily
}

// NewCharacter walks a hard-coded route to an NPC and submits a new
// character name through its dialog. Grounded on
// original_source/src/bot/tasks/new_character.rs.
type NewCharacter struct {
	cfg           NewCharacterConfig
	characterName string

	finder       *PathFinder
	waypointIdx  int
	textWidgetID int64
	submitted    bool
	done         bool
}

func NewNewCharacter(characterName string, cfg NewCharacterConfig, mapViewID int64, cancel *atomic.Bool) *NewCharacter {
	return &NewCharacter{
		cfg:           cfg,
		characterName: characterName,
		finder:        NewPathFinder(cfg.PathFinderConfig, cfg.Families, mapViewID, cancel),
	}
}

func (t *NewCharacter) Name() string { return "NewCharacter" }

func (t *NewCharacter) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.done {
		return protocol.Done(t.Name()), true
	}

	if npcID, ok := t.findNameChanger(pw); ok {
		if t.textWidgetID == 0 {
			return protocol.WidgetMessage(npcID, "click", []protocol.Value{
				protocol.Int(0), protocol.Int(int32(protocol.RightClick)), protocol.Int(int32(protocol.ModifierNone)),
			}), true
		}
		if !t.submitted {
			t.submitted = true
			return protocol.WidgetMessage(t.textWidgetID, "settext", []protocol.Value{protocol.Str(t.characterName)}), true
		}
		return protocol.Message{}, false
	}

	if !t.finder.hasDestination {
		if t.waypointIdx >= len(t.cfg.Waypoints) {
			return protocol.Message{}, false
		}
		t.finder.SetDestination(t.cfg.Waypoints[t.waypointIdx])
		t.waypointIdx++
	}
	msg, ok := t.finder.GetNextMessage(now, pw)
	if ok && msg.IsDone() {
		return protocol.Message{}, false
	}
	return msg, ok
}

func (t *NewCharacter) findNameChanger(pw *replica.PlayerWorld) (int64, bool) {
	for _, obj := range pw.World.Objects.GetByName(t.cfg.NameChangerName) {
		return obj.ID, true
	}
	return 0, false
}

func (t *NewCharacter) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	t.finder.Update(now, pw, e)
	switch {
	case e.Type == protocol.EventNewWidget && player.FoldContains(e.Kind, "text"):
		t.textWidgetID = e.WidgetID
	case e.Type == protocol.EventUIMessage && e.Sender == t.textWidgetID && e.Message == "settext":
		t.done = true
	}
}

func (t *NewCharacter) Restore(pw *replica.PlayerWorld) {}
