// Package player projects the flow of widget, object, and resource events
// into the structured Player view consumed by tasks. Grounded on
// original_source/src/bot/player.rs for the event-dispatch shape; the
// field set follows spec.md §3/§4.4, which is materially richer than the
// original's baseline (equipment, inventories, hand, stamina meter).
package player

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/vec2"
)

var foldCaser = cases.Fold()

// FoldContains reports whether haystack contains needle, ignoring case
// and full/half-width variants (item content and widget names arrive in
// mixed width/case the way the game's CJK protocol strings do).
func FoldContains(haystack, needle string) bool {
	fold := func(s string) string { return width.Fold.String(foldCaser.String(s)) }
	return strings.Contains(fold(haystack), fold(needle))
}

// Resource role names recognized out of the incoming ResourceAdd stream.
// Exact strings are the ones the glossary documents; names not listed
// here are tracked but otherwise ignored by the projection.
const (
	roleStaminaMeter = "gfx/hud/meter/stam"
	roleItemTooltip  = "ui/tt/cont"
	roleContentName  = "ui/tt/name"
	roleContentQual  = "ui/tt/quality"
)

const (
	kindGameUI  = "gameui"
	kindMapView = "mapview"
	kindStamina = "im"
	kindEquip   = "epry"
	kindItem    = "item"
	kindInv     = "inv"
	kindWindow  = "wnd"
)

// Item is one inventory/equipment slot's contents.
type Item struct {
	ID       int64
	Resource int64
	Content  *ItemContent
	Position protocol.Value
}

// ItemContent decodes a tooltip's content-name/quality pair.
type ItemContent struct {
	Name    string
	Quality string
}

// Widget is the subset of generic widget state the projection needs to
// keep to resolve later events (reparenting, destruction, arg lookups).
type Widget struct {
	ID       int64
	ParentID int64
	Kind     string
	Pargs    []protocol.Value
	Cargs    []protocol.Value
	PargsAdd []protocol.Value
}

// Equipment tracks slot -> item-widget-id bindings under the epry widget.
type Equipment struct {
	WidgetID int64
	Slots    map[int64]int64
}

// BeltSlot is the epry slot index the client assigns to the belt.
const BeltSlot int64 = 11

func (e Equipment) Belt() (int64, bool) {
	id, ok := e.Slots[BeltSlot]
	return id, ok
}

// World is the subset of the replica's world state the projection needs
// to backfill an already-known object's position and grid when the
// gameui widget naming that object arrives after the object itself
// (original's player.rs::update takes the whole &World for this lookup;
// this narrower interface avoids an import cycle with internal/replica).
type World interface {
	ObjectPosition(objectID int64) (vec2.F, bool)
	GridIDAtPosition(pos vec2.F) (int64, bool)
}

// Player is the event-sourced projection described by spec.md §3/§4.4.
type Player struct {
	MapViewID int64
	GameUIID  int64
	BeltID    int64
	InventoryID     int64
	BeltInventoryID int64

	Name     string
	ObjectID int64
	HasObjectID bool
	GridID   int64
	HasGridID bool
	Position vec2.F
	HasPosition bool

	StaminaValue    int32
	StaminaWidgetID int64
	HasStamina      bool

	Equipment   Equipment
	Inventories map[int64]map[int64]Item

	HandItemID int64
	HasHand    bool

	Stuck StuckDetector

	widgets       map[int64]*Widget
	resourceRoles map[string]int64
	inventoryIDs  map[int64]bool
}

func New() *Player {
	return &Player{
		Equipment:     Equipment{Slots: make(map[int64]int64)},
		Inventories:   make(map[int64]map[int64]Item),
		widgets:       make(map[int64]*Widget),
		resourceRoles: make(map[string]int64),
		inventoryIDs:  make(map[int64]bool),
	}
}

// Update applies one event to the projection. now is used to feed the
// stuck detector on position-carrying events. w gives read access to the
// object table so a gameui widget naming an already-known object can
// backfill that object's position (and, if the enclosing grid is already
// known, its grid id) immediately rather than waiting for the next
// GobAdd/GobMove of that object.
func (p *Player) Update(now time.Time, w World, e protocol.Event) {
	switch e.Type {
	case protocol.EventResourceAdd:
		p.onResourceAdd(e)
	case protocol.EventNewWidget:
		p.onNewWidget(w, e)
	case protocol.EventAddWidget:
		p.onAddWidget(e)
	case protocol.EventUIMessage:
		p.onUIMessage(e)
	case protocol.EventDestroy:
		p.onDestroy(e)
	case protocol.EventMapGridAdd:
		p.onMapGridAdd(e)
	case protocol.EventMapGridRemove:
		p.onMapGridRemove(e)
	case protocol.EventGobAdd, protocol.EventGobMove:
		p.onGobAddOrMove(now, e)
	case protocol.EventGobRemove:
		p.onGobRemove(e)
	}
}

func (p *Player) onResourceAdd(e protocol.Event) {
	p.resourceRoles[e.ResourceName] = e.ResourceID
}

func (p *Player) onNewWidget(world World, e protocol.Event) {
	w := &Widget{ID: e.WidgetID, ParentID: e.ParentID, Kind: e.Kind, Pargs: e.Pargs, Cargs: e.Cargs}
	p.widgets[w.ID] = w

	switch {
	case w.Kind == kindGameUI:
		p.GameUIID = w.ID
		if len(w.Cargs) >= 2 {
			if w.Cargs[0].Kind == protocol.ValueStr {
				p.Name = w.Cargs[0].Str
			}
			if w.Cargs[1].Kind == protocol.ValueInt || w.Cargs[1].Kind == protocol.ValueLong {
				p.ObjectID = scalarInt(w.Cargs[1])
				p.HasObjectID = true
				p.backfillFromObject(world)
			}
		}
	case w.Kind == kindMapView:
		p.MapViewID = w.ID
	case w.Kind == kindStamina:
		if staminaID, ok := p.resourceRoles[roleStaminaMeter]; ok && len(w.Cargs) > 0 && w.Cargs[0].EqualsInt(staminaID) {
			p.StaminaWidgetID = w.ID
			p.HasStamina = true
		}
	case w.Kind == kindEquip:
		p.Equipment.WidgetID = w.ID
	case w.Kind == kindItem:
		p.onNewItemWidget(w)
	case w.Kind == kindInv:
		p.onNewInventoryWidget(w)
	case w.Kind == kindWindow:
		if len(w.Cargs) > 1 && w.Cargs[1].EqualsStr("Belt") {
			p.BeltID = w.ID
		}
	}
}

func (p *Player) onNewItemWidget(w *Widget) {
	if w.ParentID == p.GameUIID {
		p.HandItemID = w.ID
		p.HasHand = true
		return
	}
	if _, ok := p.Inventories[w.ParentID]; ok {
		p.addItemToInventory(w.ParentID, w)
		return
	}
	if w.ParentID == p.Equipment.WidgetID && len(w.Pargs) > 0 {
		p.Equipment.Slots[scalarInt(w.Pargs[0])] = w.ID
	}
}

func (p *Player) addItemToInventory(inventoryID int64, w *Widget) {
	item := Item{ID: w.ID}
	if len(w.Pargs) > 0 {
		item.Position = w.Pargs[0]
	}
	p.Inventories[inventoryID][w.ID] = item
}

func (p *Player) onNewInventoryWidget(w *Widget) {
	p.inventoryIDs[w.ID] = true
	p.Inventories[w.ID] = make(map[int64]Item)
	if w.ParentID == p.GameUIID && len(w.Pargs) > 0 && w.Pargs[0].EqualsStr("inv") {
		p.InventoryID = w.ID
	}
	if w.ParentID == p.BeltID {
		p.BeltInventoryID = w.ID
	}
}

func (p *Player) onAddWidget(e protocol.Event) {
	w, ok := p.widgets[e.WidgetID]
	if !ok {
		return
	}
	w.ParentID = e.ParentID
	w.PargsAdd = e.PargsAdd
	if w.Kind == kindItem {
		if inv, ok := p.Inventories[w.ParentID]; ok {
			item := inv[w.ID]
			item.ID = w.ID
			if len(w.PargsAdd) > 0 {
				item.Position = w.PargsAdd[0]
			}
			inv[w.ID] = item
		}
	}
}

func (p *Player) onUIMessage(e protocol.Event) {
	switch {
	case e.Sender == p.MapViewID && e.Message == "plob":
		if len(e.Arguments) > 0 && !e.Arguments[0].IsNil() {
			p.ObjectID = scalarInt(e.Arguments[0])
			p.HasObjectID = true
		} else {
			p.HasObjectID = false
		}
	case e.Sender == p.StaminaWidgetID && e.Message == "set":
		if len(e.Arguments) > 1 {
			p.StaminaValue = int32(scalarInt(e.Arguments[1]))
		}
	case e.Message == "tt":
		p.onItemTooltip(e)
	}
}

func (p *Player) onItemTooltip(e protocol.Event) {
	if len(e.Arguments) < 3 {
		return
	}
	contentID, ok := p.resourceRoles[roleItemTooltip]
	if !ok || !e.Arguments[0].EqualsInt(contentID) {
		p.clearItemContent(e.Sender)
		return
	}
	list := e.Arguments[2]
	if list.Kind != protocol.ValueList {
		p.clearItemContent(e.Sender)
		return
	}
	content := decodeItemContent(list.List, p.resourceRoles)
	p.setItemContent(e.Sender, content)
}

func decodeItemContent(pairs []protocol.Value, roles map[string]int64) *ItemContent {
	nameID, hasName := roles[roleContentName]
	qualID, hasQual := roles[roleContentQual]
	content := &ItemContent{}
	found := false
	for _, pair := range pairs {
		if pair.Kind != protocol.ValueList || len(pair.List) < 2 {
			continue
		}
		key, value := pair.List[0], pair.List[1]
		if hasName && key.EqualsInt(nameID) {
			content.Name = value.Str
			found = true
		}
		if hasQual && key.EqualsInt(qualID) {
			content.Quality = value.Str
			found = true
		}
	}
	if !found {
		return nil
	}
	return content
}

func (p *Player) itemLocation(itemID int64) (int64, bool) {
	for inventoryID, items := range p.Inventories {
		if _, ok := items[itemID]; ok {
			return inventoryID, true
		}
	}
	return 0, false
}

func (p *Player) setItemContent(itemID int64, content *ItemContent) {
	if content == nil {
		p.clearItemContent(itemID)
		return
	}
	if inventoryID, ok := p.itemLocation(itemID); ok {
		item := p.Inventories[inventoryID][itemID]
		item.Content = content
		p.Inventories[inventoryID][itemID] = item
	}
}

func (p *Player) clearItemContent(itemID int64) {
	if inventoryID, ok := p.itemLocation(itemID); ok {
		item := p.Inventories[inventoryID][itemID]
		item.Content = nil
		p.Inventories[inventoryID][itemID] = item
	}
}

func (p *Player) onDestroy(e protocol.Event) {
	id := e.ID
	switch {
	case id == p.MapViewID:
		p.MapViewID = 0
	case id == p.GameUIID:
		p.GameUIID = 0
	case id == p.BeltID:
		p.BeltID = 0
	case id == p.StaminaWidgetID:
		p.HasStamina = false
		p.StaminaWidgetID = 0
	case id == p.HandItemID:
		p.HasHand = false
		p.HandItemID = 0
	}
	delete(p.widgets, id)
	if inventoryID, ok := p.itemLocation(id); ok {
		delete(p.Inventories[inventoryID], id)
	}
	if _, ok := p.Inventories[id]; ok {
		delete(p.Inventories, id)
		delete(p.inventoryIDs, id)
	}
	for slot, widgetID := range p.Equipment.Slots {
		if widgetID == id {
			delete(p.Equipment.Slots, slot)
		}
	}
}

// onMapGridAdd is a no-op here: grid binding is pushed into the
// projection via BindGrid, resolved by the replica which alone knows the
// segment-local grid layout.
func (p *Player) onMapGridAdd(protocol.Event) {}

func (p *Player) onMapGridRemove(e protocol.Event) {
	if p.HasGridID && p.GridID == e.ID {
		p.HasGridID = false
	}
}

func (p *Player) onGobAddOrMove(now time.Time, e protocol.Event) {
	if !p.HasObjectID || e.ObjectID != p.ObjectID {
		return
	}
	p.Position = e.Position
	p.HasPosition = true
	p.Stuck.Update(now, e.Position)
}

// ToolbeltWidgetID returns the id of the "wnd" widget tagged as the
// toolbelt window by its third add-args entry (pargs_add[2] ==
// ["id","toolbelt"]), per spec.md §4.7.3 and the original's
// open_belt.rs scan. Distinct from BeltID, which names the belt
// equipment slot's "wnd" widget (tagged by its title cargs instead) and
// exists as soon as a belt is equipped, before its window is ever opened.
func (p *Player) ToolbeltWidgetID() (int64, bool) {
	for id, w := range p.widgets {
		if w.Kind != kindWindow || len(w.PargsAdd) < 3 {
			continue
		}
		tag := w.PargsAdd[2]
		if tag.Kind == protocol.ValueList && len(tag.List) == 2 &&
			tag.List[0].EqualsStr("id") && tag.List[1].EqualsStr("toolbelt") {
			return id, true
		}
	}
	return 0, false
}

// BindGrid records the grid the player's current position was resolved
// into, called by the replica once it locates the grid for the player's
// segment-local position.
func (p *Player) BindGrid(gridID int64) {
	p.GridID = gridID
	p.HasGridID = true
}

// backfillFromObject fills in the player's position (and grid id, if
// already known) from the object table when the gameui widget naming
// the player's object arrives after that object was already added
// (spec.md §4.4's gameui rule: "if the object already exists, updates
// position and (if corresponding grid is known) grid_id").
func (p *Player) backfillFromObject(world World) {
	if world == nil || !p.HasObjectID {
		return
	}
	pos, ok := world.ObjectPosition(p.ObjectID)
	if !ok {
		return
	}
	p.Position = pos
	p.HasPosition = true
	if gridID, ok := world.GridIDAtPosition(pos); ok {
		p.BindGrid(gridID)
	}
}

func (p *Player) onGobRemove(e protocol.Event) {
	if p.HasObjectID && e.ID == p.ObjectID {
		p.HasObjectID = false
		p.HasPosition = false
		p.HasGridID = false
	}
}

// Ready reports whether every locator PlayerWorld needs has resolved.
func (p *Player) Ready() bool {
	return p.MapViewID != 0 && p.GameUIID != 0 && p.Name != "" &&
		p.HasObjectID && p.HasGridID && p.HasStamina && p.Equipment.WidgetID != 0 && p.HasPosition
}

func scalarInt(v protocol.Value) int64 {
	switch v.Kind {
	case protocol.ValueInt:
		return int64(v.Int)
	case protocol.ValueLong:
		return v.Long
	default:
		return 0
	}
}

// FindContainerWithContent returns the inventory id and item id of an item
// in the belt or tracked inventories (belt first) that has a content whose
// name contains substr (case/width insensitive) and whose item resource
// name is in allowedResources; ok is false when there is none.
func (p *Player) FindContainerWithContent(substr string, allowedResources map[string]bool, resourceName func(resourceID int64) string) (inventoryID, itemID int64, ok bool) {
	search := func(invID int64) (int64, bool) {
		items := p.Inventories[invID]
		for id, item := range items {
			if item.Content == nil {
				continue
			}
			if !FoldContains(item.Content.Name, substr) {
				continue
			}
			if !allowedResources[resourceName(item.Resource)] {
				continue
			}
			return id, true
		}
		return 0, false
	}
	if id, found := search(p.BeltInventoryID); found {
		return p.BeltInventoryID, id, true
	}
	for invID := range p.inventoryIDs {
		if invID == p.BeltInventoryID {
			continue
		}
		if id, found := search(invID); found {
			return invID, id, true
		}
	}
	return 0, 0, false
}

// Snapshot is the JSON-serializable form of a Player, used by session
// checkpointing. It carries the unexported widget/role/inventory caches
// explicitly so a restored projection behaves identically to a live one.
type Snapshot struct {
	MapViewID       int64
	GameUIID        int64
	BeltID          int64
	InventoryID     int64
	BeltInventoryID int64

	Name        string
	ObjectID    int64
	HasObjectID bool
	GridID      int64
	HasGridID   bool
	Position    vec2.F
	HasPosition bool

	StaminaValue    int32
	StaminaWidgetID int64
	HasStamina      bool

	Equipment   Equipment
	Inventories map[int64]map[int64]Item

	HandItemID int64
	HasHand    bool

	Widgets       map[int64]Widget
	ResourceRoles map[string]int64
	InventoryIDs  map[int64]bool
}

// Snapshot captures the full projection state for a SessionData checkpoint.
func (p *Player) Snapshot() Snapshot {
	widgets := make(map[int64]Widget, len(p.widgets))
	for id, w := range p.widgets {
		widgets[id] = *w
	}
	roles := make(map[string]int64, len(p.resourceRoles))
	for k, v := range p.resourceRoles {
		roles[k] = v
	}
	invIDs := make(map[int64]bool, len(p.inventoryIDs))
	for k, v := range p.inventoryIDs {
		invIDs[k] = v
	}
	return Snapshot{
		MapViewID: p.MapViewID, GameUIID: p.GameUIID, BeltID: p.BeltID,
		InventoryID: p.InventoryID, BeltInventoryID: p.BeltInventoryID,
		Name: p.Name, ObjectID: p.ObjectID, HasObjectID: p.HasObjectID,
		GridID: p.GridID, HasGridID: p.HasGridID,
		Position: p.Position, HasPosition: p.HasPosition,
		StaminaValue: p.StaminaValue, StaminaWidgetID: p.StaminaWidgetID, HasStamina: p.HasStamina,
		Equipment:   p.Equipment,
		Inventories: p.Inventories,
		HandItemID:  p.HandItemID, HasHand: p.HasHand,
		Widgets: widgets, ResourceRoles: roles, InventoryIDs: invIDs,
	}
}

// LoadSnapshot replaces the projection's state wholesale, as done when a
// session restores from a SessionData checkpoint.
func (p *Player) LoadSnapshot(s Snapshot) {
	p.MapViewID, p.GameUIID, p.BeltID = s.MapViewID, s.GameUIID, s.BeltID
	p.InventoryID, p.BeltInventoryID = s.InventoryID, s.BeltInventoryID
	p.Name, p.ObjectID, p.HasObjectID = s.Name, s.ObjectID, s.HasObjectID
	p.GridID, p.HasGridID = s.GridID, s.HasGridID
	p.Position, p.HasPosition = s.Position, s.HasPosition
	p.StaminaValue, p.StaminaWidgetID, p.HasStamina = s.StaminaValue, s.StaminaWidgetID, s.HasStamina
	p.Equipment = s.Equipment
	if p.Equipment.Slots == nil {
		p.Equipment.Slots = make(map[int64]int64)
	}
	p.Inventories = s.Inventories
	if p.Inventories == nil {
		p.Inventories = make(map[int64]map[int64]Item)
	}
	p.HandItemID, p.HasHand = s.HandItemID, s.HasHand

	p.widgets = make(map[int64]*Widget, len(s.Widgets))
	for id, w := range s.Widgets {
		w := w
		p.widgets[id] = &w
	}
	p.resourceRoles = make(map[string]int64, len(s.ResourceRoles))
	for k, v := range s.ResourceRoles {
		p.resourceRoles[k] = v
	}
	p.inventoryIDs = make(map[int64]bool, len(s.InventoryIDs))
	for k, v := range s.InventoryIDs {
		p.inventoryIDs[k] = v
	}
}
