package transport

import (
	"sync"
	"time"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// captureSink records adapter output for assertions.
type captureSink struct {
	mu       sync.Mutex
	statuses []Status
	points   []telemetry.Point
	notify   chan struct{}
}

func newCaptureSink() *captureSink {
	return &captureSink{notify: make(chan struct{}, 64)}
}

func (c *captureSink) OnStatus(s Status) {
	c.mu.Lock()
	c.statuses = append(c.statuses, s)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *captureSink) OnPoint(p telemetry.Point) {
	c.mu.Lock()
	c.points = append(c.points, p)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

func (c *captureSink) snapshot() ([]Status, []telemetry.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Status(nil), c.statuses...), append([]telemetry.Point(nil), c.points...)
}

// waitFor polls cond until it holds or the deadline passes.
func (c *captureSink) waitFor(timeout time.Duration, cond func(statuses []Status, points []telemetry.Point) bool) bool {
	deadline := time.After(timeout)
	for {
		st, pts := c.snapshot()
		if cond(st, pts) {
			return true
		}
		select {
		case <-deadline:
			return false
		case <-c.notify:
		case <-time.After(5 * time.Millisecond):
		}
	}
}

const testPointJSON = `{"ts":"2026-08-31T10:00:00+00:00","frequency_hz":50.0,"rocof_hz_s":0.0,` +
	`"stress_score":0.2,"total_load_kw":1000,"safe_shift_kw":100,"carbon_g_per_kwh":210,` +
	`"rack_temp_c":35,"cooling_kw":200}`

func hasStatus(statuses []Status, want Status) bool {
	for _, s := range statuses {
		if s == want {
			return true
		}
	}
	return false
}
