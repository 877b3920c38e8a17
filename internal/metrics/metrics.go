package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "gridninja_"

// Feed holds the collectors exported by the telemetry feed. A nil *Feed
// is valid and records nothing, so the feed can run unobserved in tests.
type Feed struct {
	PointsReceived    *prometheus.CounterVec
	PointsDiscarded   prometheus.Counter
	TransportSwitches prometheus.Counter
	SocketReconnects  prometheus.Counter
	BufferLen         prometheus.Gauge
}

// NewFeed builds and registers the feed collectors on reg.
func NewFeed(reg prometheus.Registerer) *Feed {
	f := &Feed{
		PointsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "points_received_total",
			Help: "Telemetry points accepted into the buffer, by transport tier",
		}, []string{"tier"}),
		PointsDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "points_discarded_total",
			Help: "Messages dropped because they failed telemetry decoding",
		}),
		TransportSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "transport_switches_total",
			Help: "Tier demotions performed by the failover controller",
		}),
		SocketReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "socket_reconnects_total",
			Help: "Socket reconnect attempts scheduled after a drop",
		}),
		BufferLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "buffer_points",
			Help: "Points currently held in the rolling buffer",
		}),
	}
	reg.MustRegister(f.PointsReceived, f.PointsDiscarded, f.TransportSwitches, f.SocketReconnects, f.BufferLen)
	return f
}

// PointReceived records one accepted point for tier.
func (f *Feed) PointReceived(tier string) {
	if f == nil {
		return
	}
	f.PointsReceived.WithLabelValues(tier).Inc()
}

// PointDiscarded records one rejected payload.
func (f *Feed) PointDiscarded() {
	if f == nil {
		return
	}
	f.PointsDiscarded.Inc()
}

// TierSwitched records one tier demotion.
func (f *Feed) TierSwitched() {
	if f == nil {
		return
	}
	f.TransportSwitches.Inc()
}

// ReconnectScheduled records one socket reconnect attempt.
func (f *Feed) ReconnectScheduled() {
	if f == nil {
		return
	}
	f.SocketReconnects.Inc()
}

// SetBufferLen publishes the current rolling buffer length.
func (f *Feed) SetBufferLen(n int) {
	if f == nil {
		return
	}
	f.BufferLen.Set(float64(n))
}
