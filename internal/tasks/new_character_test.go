package tasks

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/elsid/hafen-botserver/internal/objects"
	"github.com/elsid/hafen-botserver/internal/protocol"
)

func TestNewCharacterClicksNameChangerThenSubmitsName(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.World.Objects.Add(objects.Object{ID: 7, Name: "gfx/terobjs/names"})

	cfg := NewCharacterConfig{NameChangerName: "gfx/terobjs/names"}
	task := NewNewCharacter("Hero", cfg, 1, new(atomic.Bool))

	msg, ok := task.GetNextMessage(now, pw)
	if !ok || msg.Type != protocol.MessageWidgetMessage || msg.Sender != 7 || msg.Kind != "click" {
		t.Fatalf("expected a right-click WidgetMessage on the name changer, got (%v, %v)", msg, ok)
	}

	task.Update(now, pw, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 20, Kind: "namechange-text"})

	msg, ok = task.GetNextMessage(now, pw)
	if !ok || msg.Type != protocol.MessageWidgetMessage || msg.Sender != 20 || msg.Kind != "settext" {
		t.Fatalf("expected a settext WidgetMessage on the text widget, got (%v, %v)", msg, ok)
	}

	task.Update(now, pw, protocol.Event{Type: protocol.EventUIMessage, Sender: 20, Message: "settext"})
	msg, ok = task.GetNextMessage(now, pw)
	if !ok || !msg.IsDone() {
		t.Fatalf("expected Done once the name is submitted, got (%v, %v)", msg, ok)
	}
}

func TestNewCharacterIdlesWithNoWaypointsAndNoNameChanger(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)

	cfg := NewCharacterConfig{NameChangerName: "gfx/terobjs/names"}
	task := NewNewCharacter("Hero", cfg, 1, new(atomic.Bool))

	_, ok := task.GetNextMessage(now, pw)
	if ok {
		t.Fatal("expected no message with no waypoints and no name changer visible")
	}
}
