package player

import (
	"time"

	"github.com/elsid/hafen-botserver/internal/vec2"
)

const stuckMinDuration = time.Second

// StuckDetector flags the player as stuck once its position has stopped
// changing for more than stuckMinDuration. Grounded on
// original_source/src/bot/stuck_detector.rs.
type StuckDetector struct {
	lastPosition *vec2.F
	lastUpdate   time.Time
}

// Check reports whether pos is unchanged since the last Update call for
// long enough to be considered stuck.
func (d *StuckDetector) Check(now time.Time, pos vec2.F) bool {
	if d.lastPosition == nil {
		return false
	}
	return *d.lastPosition == pos && now.Sub(d.lastUpdate) > stuckMinDuration
}

// Update records pos as the latest observed position.
func (d *StuckDetector) Update(now time.Time, pos vec2.F) {
	p := pos
	d.lastPosition = &p
	d.lastUpdate = now
}
