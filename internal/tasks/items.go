package tasks

import (
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
)

// TakeItem moves an item from its current container into hand.
// Grounded on original_source/src/bot/actions (TakeItem is a thin
// WidgetMessage + acknowledgement wait, same shape as UseItem/OpenBelt).
type TakeItem struct {
	ItemID  int64
	Timeout time.Duration

	lastMessage time.Time
	done        bool
}

func NewTakeItem(itemID int64, timeout time.Duration) *TakeItem {
	return &TakeItem{ItemID: itemID, Timeout: timeout}
}

func (t *TakeItem) Name() string { return "TakeItem" }

func (t *TakeItem) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.done {
		return protocol.Done(t.Name()), true
	}
	if !t.lastMessage.IsZero() && now.Sub(t.lastMessage) < t.Timeout {
		return protocol.Message{}, false
	}
	t.lastMessage = now
	position, ok := findItemPosition(pw, t.ItemID)
	if !ok {
		return protocol.Error("item is not found"), true
	}
	return protocol.WidgetMessage(t.ItemID, "take", []protocol.Value{position}), true
}

// findItemPosition locates itemID in any of the player's inventories and
// returns its last-known widget position (spec.md:140).
func findItemPosition(pw *replica.PlayerWorld, itemID int64) (protocol.Value, bool) {
	for _, items := range pw.Player.Inventories {
		if item, ok := items[itemID]; ok {
			return item.Position, true
		}
	}
	return protocol.Value{}, false
}

func (t *TakeItem) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	if e.Type != protocol.EventNewWidget || e.Kind != "item" || e.ParentID != pw.Player.GameUIID {
		return
	}
	if len(e.Pargs) > 0 && e.Pargs[0].EqualsStr("hand") {
		t.done = true
	}
}

func (t *TakeItem) Restore(pw *replica.PlayerWorld) {}

// PutItem drops the item currently in hand at a target widget/position.
type PutItem struct {
	WidgetID int64
	Position protocol.Value
	Timeout  time.Duration

	lastMessage time.Time
	done        bool
	failed      bool
}

func NewPutItem(widgetID int64, position protocol.Value, timeout time.Duration) *PutItem {
	return &PutItem{WidgetID: widgetID, Position: position, Timeout: timeout}
}

func (t *PutItem) Name() string { return "PutItem" }

func (t *PutItem) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.done {
		return protocol.Done(t.Name()), true
	}
	if !pw.Player.HasHand {
		t.failed = true
		return protocol.Error("PutItem: hand is empty"), true
	}
	if !t.lastMessage.IsZero() && now.Sub(t.lastMessage) < t.Timeout {
		return protocol.Message{}, false
	}
	t.lastMessage = now
	return protocol.WidgetMessage(t.WidgetID, "drop", []protocol.Value{t.Position}), true
}

func (t *PutItem) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	if e.Type != protocol.EventNewWidget || e.Kind != "item" || e.ParentID != t.WidgetID {
		return
	}
	if len(e.Pargs) > 0 && e.Pargs[0].Equals(t.Position) {
		t.done = true
	}
}

func (t *PutItem) Restore(pw *replica.PlayerWorld) {}

// MoveItem sequences TakeItem then PutItem.
type MoveItem struct {
	take *TakeItem
	put  *PutItem

	widgetID int64
	position protocol.Value
	timeout  time.Duration
}

func NewMoveItem(itemID, widgetID int64, position protocol.Value, timeout time.Duration) *MoveItem {
	return &MoveItem{
		take:     NewTakeItem(itemID, timeout),
		widgetID: widgetID,
		position: position,
		timeout:  timeout,
	}
}

func (t *MoveItem) Name() string { return "MoveItem" }

func (t *MoveItem) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.put != nil {
		msg, ok := t.put.GetNextMessage(now, pw)
		if ok && msg.IsDone() {
			return protocol.Done(t.Name()), true
		}
		return msg, ok
	}
	msg, ok := t.take.GetNextMessage(now, pw)
	if ok && msg.IsDone() {
		t.put = NewPutItem(t.widgetID, t.position, t.timeout)
		return protocol.Message{}, false
	}
	return msg, ok
}

func (t *MoveItem) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	if t.put != nil {
		t.put.Update(now, pw, e)
		return
	}
	t.take.Update(now, pw, e)
}

func (t *MoveItem) Restore(pw *replica.PlayerWorld) {}
