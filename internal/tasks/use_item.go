package tasks

import (
	"strings"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
	"github.com/elsid/hafen-botserver/internal/vec2"
)

// UseItem drives the client through a right-click item action: lock the
// selection menu widget, trigger the interaction, find the action by
// name in the menu's cargs, click it, and wait for acknowledgement.
// Grounded on original_source/src/bot/actions/use_item.rs.
type UseItem struct {
	ItemID     int64
	ActionName string
	Timeout    time.Duration

	menuWidgetID int64
	actionIndex  int64
	hasAction    bool
	ready        bool
	done         bool
	lockedMenu   bool
	lastMessage  time.Time
}

func NewUseItem(itemID int64, actionName string, timeout time.Duration) *UseItem {
	return &UseItem{ItemID: itemID, ActionName: actionName, Timeout: timeout}
}

func (t *UseItem) Name() string { return "UseItem" }

func (t *UseItem) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.done {
		return protocol.Done(t.Name()), true
	}
	if !t.lockedMenu {
		t.lockedMenu = true
		return protocol.LockWidget("sm"), true
	}
	if t.ready {
		t.lastMessage = now
		return protocol.WidgetMessage(t.menuWidgetID, "cl", []protocol.Value{protocol.Long(t.actionIndex), protocol.Int(0)}), true
	}
	if !t.hasAction {
		if !t.lastMessage.IsZero() && now.Sub(t.lastMessage) < t.Timeout {
			return protocol.Message{}, false
		}
		t.lastMessage = now
		return protocol.WidgetMessage(t.ItemID, "iact", []protocol.Value{protocol.Coord(vec2.ZeroI()), protocol.Int(0)}), true
	}
	return protocol.Message{}, false
}

func (t *UseItem) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	switch {
	case e.Type == protocol.EventNewWidget && e.Kind == "sm" && !t.hasAction:
		for i, carg := range e.Cargs {
			if carg.Kind == protocol.ValueStr && strings.EqualFold(carg.Str, t.ActionName) {
				t.menuWidgetID = e.WidgetID
				t.actionIndex = int64(i)
				t.hasAction = true
				return
			}
		}
	case e.Type == protocol.EventAddWidget && e.WidgetID == t.menuWidgetID && t.hasAction:
		t.ready = true
	case e.Type == protocol.EventUIMessage && e.Sender == t.menuWidgetID && e.Message == "act":
		t.done = true
	case e.Type == protocol.EventUIMessage && e.Sender == t.menuWidgetID && e.Message == "cancel":
		t.hasAction = false
		t.ready = false
		t.menuWidgetID = 0
	}
}

func (t *UseItem) Restore(pw *replica.PlayerWorld) {}

// OpenBelt ensures the toolbelt window is open, interacting with the
// equipped belt item if it is not. Grounded on
// original_source/src/bot/actions/open_belt.rs.
type OpenBelt struct {
	Timeout time.Duration

	widgetID    int64
	lastMessage time.Time
}

func NewOpenBelt(timeout time.Duration) *OpenBelt { return &OpenBelt{Timeout: timeout} }

func (t *OpenBelt) Name() string { return "OpenBelt" }

func (t *OpenBelt) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if t.toolbeltWindowOpen(pw) {
		return protocol.Done(t.Name()), true
	}
	beltItemID, ok := pw.Player.Equipment.Belt()
	if !ok {
		return protocol.Error("OpenBelt: belt not equipped"), true
	}
	if !t.lastMessage.IsZero() && now.Sub(t.lastMessage) < t.Timeout {
		return protocol.Message{}, false
	}
	t.lastMessage = now
	return protocol.WidgetMessage(beltItemID, "iact", []protocol.Value{protocol.Coord(vec2.ZeroI()), protocol.Int(0)}), true
}

func (t *OpenBelt) toolbeltWindowOpen(pw *replica.PlayerWorld) bool {
	_, ok := pw.Player.ToolbeltWidgetID()
	return ok
}

func (t *OpenBelt) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {}

func (t *OpenBelt) Restore(pw *replica.PlayerWorld) {}
