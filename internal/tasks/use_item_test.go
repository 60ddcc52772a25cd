package tasks

import (
	"testing"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
)

func TestUseItemFullSequence(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	task := NewUseItem(42, "Drink", time.Second)

	msg, ok := task.GetNextMessage(now, pw)
	if !ok || msg.Type != protocol.MessageLockWidget {
		t.Fatalf("first message = (%v, %v), want LockWidget", msg, ok)
	}

	msg, ok = task.GetNextMessage(now, pw)
	if !ok || msg.Kind != "iact" {
		t.Fatalf("second message = (%v, %v), want iact", msg, ok)
	}

	task.Update(now, pw, protocol.Event{Type: protocol.EventNewWidget, Kind: "sm", WidgetID: 5,
		Cargs: []protocol.Value{protocol.Str("Eat"), protocol.Str("Drink")}})
	task.Update(now, pw, protocol.Event{Type: protocol.EventAddWidget, WidgetID: 5})

	msg, ok = task.GetNextMessage(now, pw)
	if !ok || msg.Kind != "cl" {
		t.Fatalf("third message = (%v, %v), want cl", msg, ok)
	}
	if msg.Arguments[0].Long != 1 {
		t.Fatalf("action index = %d, want 1 (Drink is cargs[1])", msg.Arguments[0].Long)
	}

	task.Update(now, pw, protocol.Event{Type: protocol.EventUIMessage, Sender: 5, Message: "act"})
	msg, ok = task.GetNextMessage(now, pw)
	if !ok || !msg.IsDone() {
		t.Fatalf("expected Done after act acknowledgement, got (%v, %v)", msg, ok)
	}
}

func TestUseItemCancelResets(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	task := NewUseItem(42, "Drink", time.Second)

	task.GetNextMessage(now, pw)
	task.GetNextMessage(now, pw)
	task.Update(now, pw, protocol.Event{Type: protocol.EventNewWidget, Kind: "sm", WidgetID: 5,
		Cargs: []protocol.Value{protocol.Str("Drink")}})
	task.Update(now, pw, protocol.Event{Type: protocol.EventUIMessage, Sender: 5, Message: "cancel"})

	if task.hasAction {
		t.Fatal("expected hasAction to reset on cancel")
	}
}

func TestOpenBeltDoneWhenWindowAlreadyOpen(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 9, Kind: "wnd"})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventAddWidget, WidgetID: 9,
		PargsAdd: []protocol.Value{protocol.Int(0), protocol.Int(0),
			protocol.List([]protocol.Value{protocol.Str("id"), protocol.Str("toolbelt")})}})

	task := NewOpenBelt(time.Second)
	msg, ok := task.GetNextMessage(now, pw)
	if !ok || !msg.IsDone() {
		t.Fatalf("expected Done when toolbelt window already open, got (%v, %v)", msg, ok)
	}
}

func TestOpenBeltNotDoneForUnrelatedWindow(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 9, Kind: "wnd",
		Cargs: []protocol.Value{protocol.Int(0), protocol.Str("Belt")}})

	task := NewOpenBelt(time.Second)
	msg, ok := task.GetNextMessage(now, pw)
	if !ok || msg.IsDone() {
		t.Fatalf("expected belt equipment slot alone not to satisfy OpenBelt, got (%v, %v)", msg, ok)
	}
}
