package protocol

import (
	"encoding/json"
	"testing"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

func TestEventRoundTrip(t *testing.T) {
	e := Event{
		Type:     EventWidgetMessage,
		Sender:   5,
		Message:  "click",
		Arguments: []Value{Int(0), Coord(vec2.NewI(1, 2)), Int(int32(LeftClick)), Int(int32(ModifierAlt))},
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != e.Type || got.Sender != e.Sender || got.Message != e.Message {
		t.Fatalf("got %+v, want %+v", got, e)
	}
	if len(got.Arguments) != len(e.Arguments) {
		t.Fatalf("arguments length = %d, want %d", len(got.Arguments), len(e.Arguments))
	}
}

func TestUpdateRoundTrip(t *testing.T) {
	u := Update{Session: 1, Number: 42, Event: Event{Type: EventDestroy, ID: 9}}
	data, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Update
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Session != u.Session || got.Number != u.Number || got.Event.Type != u.Event.Type || got.Event.ID != u.Event.ID {
		t.Fatalf("got %+v, want %+v", got, u)
	}
}

func TestMessageRoundTrip(t *testing.T) {
	m := WidgetMessage(3, "take", []Value{Coord(vec2.NewI(0, 0))})
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != m.Type || got.Sender != m.Sender || got.Kind != m.Kind {
		t.Fatalf("got %+v, want %+v", got, m)
	}
}

func TestDoneIsDone(t *testing.T) {
	if !Done("Drinker").IsDone() {
		t.Fatal("Done(...).IsDone() = false")
	}
	if Ok().IsDone() {
		t.Fatal("Ok().IsDone() = true")
	}
}
