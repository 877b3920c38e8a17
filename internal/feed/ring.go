package feed

import (
	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// DefaultBufferSize is the rolling window length when the caller does
// not configure one.
const DefaultBufferSize = 180

// Ring is the rolling telemetry buffer plus latest-value cache. Arrival
// order is authoritative: Push never reorders by timestamp, and latest
// is overwritten unconditionally even by an out-of-order point. Ring is
// not safe for concurrent use; the feed's event loop is its only writer
// and guards reads itself.
type Ring struct {
	max    int
	points []telemetry.Point
	latest *telemetry.Point
}

// NewRing builds a buffer bounded to max points; non-positive max falls
// back to DefaultBufferSize.
func NewRing(max int) *Ring {
	if max <= 0 {
		max = DefaultBufferSize
	}
	return &Ring{max: max, points: make([]telemetry.Point, 0, max)}
}

// Push appends p, evicting the oldest entries once the window is full.
func (r *Ring) Push(p telemetry.Point) {
	r.points = append(r.points, p)
	if n := len(r.points); n > r.max {
		copy(r.points, r.points[n-r.max:])
		r.points = r.points[:r.max]
	}
	cp := p
	r.latest = &cp
}

// Len reports the number of buffered points.
func (r *Ring) Len() int { return len(r.points) }

// Latest returns the most recently pushed point, or nil before the
// first push.
func (r *Ring) Latest() *telemetry.Point {
	if r.latest == nil {
		return nil
	}
	cp := *r.latest
	return &cp
}

// Snapshot returns a consistent copy of the window and the latest
// point. The returned slice is the caller's to keep.
func (r *Ring) Snapshot() ([]telemetry.Point, *telemetry.Point) {
	out := make([]telemetry.Point, len(r.points))
	copy(out, r.points)
	return out, r.Latest()
}
