package tasks

import (
	"strings"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
)

const expWndKindPrefix = "ui/expwnd:"

// ExpWndCloser closes experience-gain popup windows as they appear.
// Grounded on the original's window-closing task family; the pattern of
// "track by kind prefix, emit close, forget on Destroy" is shared with
// OpenBelt's window-presence check.
type ExpWndCloser struct {
	order   []int64
	tracked map[int64]bool
}

func NewExpWndCloser() *ExpWndCloser {
	return &ExpWndCloser{tracked: make(map[int64]bool)}
}

func (t *ExpWndCloser) Name() string { return "ExpWndCloser" }

func (t *ExpWndCloser) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	for _, id := range t.order {
		if t.tracked[id] {
			return protocol.WidgetMessage(id, "close", nil), true
		}
	}
	return protocol.Message{}, false
}

func (t *ExpWndCloser) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	switch e.Type {
	case protocol.EventNewWidget:
		if strings.HasPrefix(e.Kind, expWndKindPrefix) {
			t.tracked[e.WidgetID] = true
			t.order = append(t.order, e.WidgetID)
		}
	case protocol.EventDestroy:
		t.forget(e.ID)
	case protocol.EventUIMessage:
		if e.Message == "close" {
			t.forget(e.Sender)
		}
	}
}

func (t *ExpWndCloser) forget(id int64) {
	if !t.tracked[id] {
		return
	}
	delete(t.tracked, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *ExpWndCloser) Restore(pw *replica.PlayerWorld) {
	// Widget state lives on the player projection, already rebuilt from
	// the snapshot by the time tasks restore; this task carries no
	// further state to rebuild from it.
}
