package tasks

import (
	"time"

	"github.com/elsid/hafen-botserver/internal/player"
	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
)

// ContentConfig names one drinkable content and the action used to
// consume it, with a debounce interval between sips of it.
type ContentConfig struct {
	Name         string
	Action       string
	WaitInterval time.Duration
}

// DrinkerConfig is loaded from the task-family config (internal/config).
type DrinkerConfig struct {
	OpenBeltTimeout  time.Duration
	SipTimeout       time.Duration
	MaxStamina       int32
	StaminaThreshold int32
	LiquidContainers map[string]bool
	Contents         []ContentConfig
}

// Drinker keeps the player topped up on stamina by opening the belt and
// using a liquid container when stamina drops below a threshold.
// Grounded on original_source/src/bot/tasks/drinker.rs.
type Drinker struct {
	Config DrinkerConfig

	openBelt *OpenBelt
	useItem  *UseItem
	content  ContentConfig
	lastSip  time.Time

	resourceName func(resourceID int64) string
}

func NewDrinker(cfg DrinkerConfig, resourceName func(int64) string) *Drinker {
	return &Drinker{Config: cfg, resourceName: resourceName}
}

func (t *Drinker) Name() string { return "Drinker" }

func (t *Drinker) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if pw.Player.StaminaValue >= t.Config.MaxStamina {
		t.useItem = nil
		return protocol.Done(t.Name()), true
	}

	if t.useItem != nil {
		if t.stillValidContainer(pw) {
			msg, ok := t.useItem.GetNextMessage(now, pw)
			if ok && msg.IsDone() {
				t.useItem = nil
				t.lastSip = now
				return protocol.Message{}, false
			}
			return msg, ok
		}
		t.useItem = nil
		t.lastSip = now
	}

	if pw.Player.StaminaValue > t.Config.StaminaThreshold {
		return protocol.Message{}, false
	}
	if !t.lastSip.IsZero() && now.Sub(t.lastSip) < t.minWaitInterval() {
		return protocol.Message{}, false
	}

	if t.openBelt == nil {
		t.openBelt = NewOpenBelt(t.Config.OpenBeltTimeout)
	}
	msg, ok := t.openBelt.GetNextMessage(now, pw)
	if !ok {
		return protocol.Message{}, false
	}
	if !msg.IsDone() {
		return msg, true
	}
	t.openBelt = nil

	var itemID int64
	var found bool
	for _, content := range t.Config.Contents {
		if _, id, ok := pw.Player.FindContainerWithContent(content.Name, t.Config.LiquidContainers, t.resourceName); ok {
			itemID = id
			t.content = content
			found = true
			break
		}
	}
	if !found {
		return protocol.Message{}, false
	}
	t.useItem = NewUseItem(itemID, t.content.Action, t.Config.SipTimeout)
	return t.useItem.GetNextMessage(now, pw)
}

func (t *Drinker) minWaitInterval() time.Duration {
	if t.content.WaitInterval > 0 {
		return t.content.WaitInterval
	}
	return t.Config.SipTimeout
}

func (t *Drinker) stillValidContainer(pw *replica.PlayerWorld) bool {
	for _, items := range pw.Player.Inventories {
		if item, ok := items[t.useItem.ItemID]; ok {
			return item.Content != nil && player.FoldContains(item.Content.Name, t.content.Name) &&
				t.Config.LiquidContainers[t.resourceName(item.Resource)]
		}
	}
	return false
}

func (t *Drinker) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	if t.useItem != nil {
		t.useItem.Update(now, pw, e)
	}
	if t.openBelt != nil {
		t.openBelt.Update(now, pw, e)
	}
}

func (t *Drinker) Restore(pw *replica.PlayerWorld) {}
