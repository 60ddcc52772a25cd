package protocol

import "github.com/elsid/hafen-botserver/internal/vec2"

// EventType discriminates the inbound event union (spec.md §6.1).
type EventType string

const (
	EventNewWidget         EventType = "new_widget"
	EventUIMessage         EventType = "ui_message"
	EventDestroy           EventType = "destroy"
	EventAddWidget         EventType = "add_widget"
	EventMapTile           EventType = "map_tile"
	EventMapGridAdd        EventType = "map_grid_add"
	EventMapGridUpdate     EventType = "map_grid_update"
	EventMapGridRemove     EventType = "map_grid_remove"
	EventGobAdd            EventType = "gob_add"
	EventGobRemove         EventType = "gob_remove"
	EventGobMove           EventType = "gob_move"
	EventResourceAdd       EventType = "resource_add"
	EventWidgetMessage     EventType = "widget_message"
	EventClose             EventType = "close"
	EventTaskAdd           EventType = "task_add"
	EventTaskRemove        EventType = "task_remove"
	EventVisualizationAdd  EventType = "visualization_add"
	EventSessionData       EventType = "session_data"
	EventGetSessionData    EventType = "get_session_data"
	EventCancel            EventType = "cancel"
)

// Button identifies a mouse button carried in a click WidgetMessage.
type Button int32

const (
	LeftClick  Button = 1
	RightClick Button = 3
)

// Modifier is a bitmask of keyboard modifiers held during a click.
type Modifier int32

const (
	ModifierNone  Modifier = 0
	ModifierShift Modifier = 1
	ModifierCtrl  Modifier = 2
	ModifierAlt   Modifier = 4
)

// MapGrid is the wire shape of a grid carried by MapGridAdd/MapGridUpdate.
type MapGrid struct {
	ID       int64     `json:"id"`
	Position vec2.I    `json:"position"`
	Heights  []float32 `json:"heights"`
	Tiles    []int32   `json:"tiles"`
}

// GridNeighbourWire is the wire shape of a segment-stitching hint attached
// to a MapGridAdd event.
type GridNeighbourWire struct {
	ID     int64  `json:"id"`
	Offset vec2.I `json:"offset"`
}

// Event is one inbound protocol event. All variant fields are present on
// the struct; only the ones meaningful for Type are populated, matching
// the flattened discriminated-row encoding the session snapshot format
// already uses for persistence.
type Event struct {
	Type EventType `json:"type"`

	// NewWidget / AddWidget
	WidgetID int64   `json:"widget_id,omitempty"`
	ParentID int64   `json:"parent_id,omitempty"`
	Kind     string  `json:"kind,omitempty"`
	Pargs    []Value `json:"pargs,omitempty"`
	Cargs    []Value `json:"cargs,omitempty"`
	PargsAdd []Value `json:"pargs_add,omitempty"`

	// Destroy
	ID int64 `json:"id,omitempty"`

	// MapTile
	Tile Tile `json:"tile"`

	// MapGridAdd / MapGridUpdate / MapGridRemove
	Grid       MapGrid             `json:"grid"`
	Neighbours []GridNeighbourWire `json:"neighbours,omitempty"`

	// GobAdd / GobRemove / GobMove
	ObjectID int64   `json:"object_id,omitempty"`
	Position vec2.F  `json:"position"`
	Angle    float64 `json:"angle,omitempty"`
	Name     string  `json:"name,omitempty"`

	// ResourceAdd
	ResourceID      int64  `json:"resource_id,omitempty"`
	ResourceVersion int32  `json:"resource_version,omitempty"`
	ResourceName    string `json:"resource_name,omitempty"`

	// UIMessage / WidgetMessage
	Sender    int64   `json:"sender,omitempty"`
	Message   string  `json:"message,omitempty"`
	Arguments []Value `json:"arguments,omitempty"`

	// SessionData / GetSessionData
	SessionData []byte `json:"session_data,omitempty"`

	// TaskAdd / TaskRemove
	TaskID     int64  `json:"task_id,omitempty"`
	TaskName   string `json:"task_name,omitempty"`
	TaskParams []byte `json:"task_params,omitempty"`

	// VisualizationAdd
	VisualizationData []byte `json:"visualization_data,omitempty"`
}

// Tile mirrors worldmap.Tile on the wire; kept distinct so this package
// never imports internal/worldmap.
type Tile struct {
	ID      int32  `json:"id"`
	Version int32  `json:"version"`
	Name    string `json:"name"`
	Color   int32  `json:"color"`
}

// Update is one numbered event delivered for a session.
type Update struct {
	Session int64 `json:"session"`
	Number  int64 `json:"number"`
	Event   Event `json:"event"`
}
