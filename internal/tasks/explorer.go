package tasks

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/elsid/hafen-botserver/internal/protocol"
	"github.com/elsid/hafen-botserver/internal/replica"
	"github.com/elsid/hafen-botserver/internal/vec2"
	"github.com/elsid/hafen-botserver/internal/worldmap"
)

// Explorer walks the player toward the farthest unreached border tile,
// re-discovering targets once the current list is exhausted. Grounded
// on the border-tile discovery in original_source/src/bot/world.rs
// (find_border_tiles) combined with the clustering helpers.
type Explorer struct {
	finder  *PathFinder
	targets []vec2.I
}

func NewExplorer(cfg PathFinderConfig, families []TileFamily, mapViewID int64, cancel *atomic.Bool) *Explorer {
	return &Explorer{finder: NewPathFinder(cfg, families, mapViewID, cancel)}
}

func (t *Explorer) Name() string { return "Explorer" }

func (t *Explorer) allowedTileSet() worldmap.TileSet {
	allowed := make(allowedSet)
	for _, f := range t.finder.Families {
		for tile := range f.Weights {
			allowed[tile] = true
		}
	}
	return allowed
}

type allowedSet map[int32]bool

func (s allowedSet) Contains(tile int32) bool { return s[tile] }

func (t *Explorer) GetNextMessage(now time.Time, pw *replica.PlayerWorld) (protocol.Message, bool) {
	if !t.finder.hasDestination {
		if len(t.targets) == 0 {
			t.discover(pw)
		}
		if len(t.targets) == 0 {
			return protocol.Message{}, false
		}
		t.finder.SetDestination(t.targets[len(t.targets)-1])
		t.targets = t.targets[:len(t.targets)-1]
	}

	msg, ok := t.finder.GetNextMessage(now, pw)
	if ok && msg.IsDone() {
		return protocol.Message{}, false
	}
	if !ok && !t.finder.hasDestination {
		// Target turned out unreachable; drop it and try the next one
		// on a future tick.
		return protocol.Message{}, false
	}
	return msg, ok
}

func (t *Explorer) discover(pw *replica.PlayerWorld) {
	border := pw.FindBorderTiles(t.allowedTileSet())
	clusters := AdjacentTilesClusters(border)
	medians := make([]vec2.I, 0, len(clusters))
	for _, c := range clusters {
		medians = append(medians, ClusterMedian(c))
	}
	playerPos := worldmap.PosToRelTilePos(pw.Player.Position)
	sort.Slice(medians, func(i, j int) bool {
		return medians[i].Center().Distance(playerPos) < medians[j].Center().Distance(playerPos)
	})
	t.targets = medians
}

func (t *Explorer) Update(now time.Time, pw *replica.PlayerWorld, e protocol.Event) {
	t.finder.Update(now, pw, e)
}

func (t *Explorer) Restore(pw *replica.PlayerWorld) {
	t.targets = nil
}
