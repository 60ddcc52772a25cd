package tasks

import (
	"testing"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
)

func resourceNameStub(m map[int64]string) func(int64) string {
	return func(id int64) string { return m[id] }
}

func TestDrinkerDoneWhenStaminaFull(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.Player.StaminaValue = 100

	task := NewDrinker(DrinkerConfig{MaxStamina: 100, StaminaThreshold: 50}, resourceNameStub(nil))
	msg, ok := task.GetNextMessage(now, pw)
	if !ok || !msg.IsDone() {
		t.Fatalf("expected Done at full stamina, got (%v, %v)", msg, ok)
	}
}

func TestDrinkerIdlesAboveThreshold(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.Player.StaminaValue = 80

	task := NewDrinker(DrinkerConfig{MaxStamina: 100, StaminaThreshold: 50}, resourceNameStub(nil))
	_, ok := task.GetNextMessage(now, pw)
	if ok {
		t.Fatal("expected Drinker to idle while stamina is above threshold")
	}
}

func TestDrinkerOpensBeltThenUsesContainer(t *testing.T) {
	now := time.Unix(0, 0)
	pw, _ := newFixturePlayerWorld(now)
	pw.Player.StaminaValue = 10
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 9, Kind: "wnd",
		Cargs: []protocol.Value{protocol.Int(0), protocol.Str("Belt")}})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventAddWidget, WidgetID: 9,
		PargsAdd: []protocol.Value{protocol.Int(0), protocol.Int(0),
			protocol.List([]protocol.Value{protocol.Str("id"), protocol.Str("toolbelt")})}})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 50, Kind: "inv",
		ParentID: pw.Player.GameUIID, Pargs: []protocol.Value{protocol.Str("inv")}})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventNewWidget, WidgetID: 60, Kind: "item", ParentID: 50})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventResourceAdd, ResourceID: 1, ResourceName: "ui/tt/cont"})
	pw.Player.Update(now, nil, protocol.Event{Type: protocol.EventResourceAdd, ResourceID: 2, ResourceName: "ui/tt/name"})
	pw.Player.Update(now, nil, protocol.Event{
		Type: protocol.EventUIMessage, Sender: 60, Message: "tt",
		Arguments: []protocol.Value{
			protocol.Int(1), protocol.Int(0),
			protocol.List([]protocol.Value{protocol.List([]protocol.Value{protocol.Int(2), protocol.Str("water")})}),
		},
	})

	cfg := DrinkerConfig{
		MaxStamina:       100,
		StaminaThreshold: 50,
		SipTimeout:       time.Second,
		OpenBeltTimeout:  time.Second,
		LiquidContainers: map[string]bool{"flask": true},
		Contents:         []ContentConfig{{Name: "wat", Action: "Drink", WaitInterval: time.Second}},
	}
	task := NewDrinker(cfg, resourceNameStub(map[int64]string{0: "flask"}))

	msg, ok := task.GetNextMessage(now, pw)
	if !ok || msg.Type != protocol.MessageLockWidget {
		t.Fatalf("expected Drinker to start a UseItem via LockWidget, got (%v, %v)", msg, ok)
	}
}
