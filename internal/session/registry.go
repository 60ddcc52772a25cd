package session

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/tasks"
)

// Deps are the per-session values a task factory needs beyond its own
// declared params: the shared cancellation flag and a resource-id-to-name
// resolver backed by the replica's tile/resource tables.
type Deps struct {
	Cancel       *atomic.Bool
	ResourceName func(resourceID int64) string
}

// Factory instantiates one task by name, parsing params as that task's
// declared schema (spec.md §4.8's "closed registry").
type Factory func(params json.RawMessage, deps Deps) (tasks.Task, error)

// Registry is the closed set of task names a session's TaskAdd may name.
type Registry map[string]Factory

func unmarshalParams(params json.RawMessage, v any) error {
	if len(params) == 0 {
		return nil
	}
	return json.Unmarshal(params, v)
}

type takeItemParams struct {
	ItemID  int64
	Timeout time.Duration
}

type putItemParams struct {
	WidgetID int64
	Position protocol.Value
	Timeout  time.Duration
}

type moveItemParams struct {
	ItemID   int64
	WidgetID int64
	Position protocol.Value
	Timeout  time.Duration
}

type useItemParams struct {
	ItemID     int64
	ActionName string
	Timeout    time.Duration
}

type openBeltParams struct {
	Timeout time.Duration
}

type explorerParams struct {
	Config   tasks.PathFinderConfig
	Families []tasks.TileFamily
	MapViewID int64
}

type newCharacterParams struct {
	CharacterName string
	Config        tasks.NewCharacterConfig
	MapViewID     int64
}

type pathFinderParams struct {
	Config    tasks.PathFinderConfig
	Families  []tasks.TileFamily
	MapViewID int64
}

// DefaultRegistry wires every task kind a session may instantiate by
// name. Config-bearing tasks (Drinker, Explorer, NewCharacter, PathFinder)
// take their tuning tables from params rather than a global default,
// mirroring spec.md's "parse params as the task's declared schema".
func DefaultRegistry() Registry {
	return Registry{
		"TakeItem": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p takeItemParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewTakeItem(p.ItemID, p.Timeout), nil
		},
		"PutItem": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p putItemParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewPutItem(p.WidgetID, p.Position, p.Timeout), nil
		},
		"MoveItem": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p moveItemParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewMoveItem(p.ItemID, p.WidgetID, p.Position, p.Timeout), nil
		},
		"UseItem": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p useItemParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewUseItem(p.ItemID, p.ActionName, p.Timeout), nil
		},
		"OpenBelt": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p openBeltParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewOpenBelt(p.Timeout), nil
		},
		"Drinker": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var cfg tasks.DrinkerConfig
			if err := unmarshalParams(params, &cfg); err != nil {
				return nil, err
			}
			return tasks.NewDrinker(cfg, deps.ResourceName), nil
		},
		"ExpWndCloser": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			return tasks.NewExpWndCloser(), nil
		},
		"Explorer": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p explorerParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewExplorer(p.Config, p.Families, p.MapViewID, deps.Cancel), nil
		},
		"NewCharacter": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p newCharacterParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewNewCharacter(p.CharacterName, p.Config, p.MapViewID, deps.Cancel), nil
		},
		"PathFinder": func(params json.RawMessage, deps Deps) (tasks.Task, error) {
			var p pathFinderParams
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
			return tasks.NewPathFinder(p.Config, p.Families, p.MapViewID, deps.Cancel), nil
		},
	}
}

func (r Registry) instantiate(name string, params json.RawMessage, deps Deps) (tasks.Task, error) {
	factory, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("session: unknown task %q", name)
	}
	return factory(params, deps)
}
