// Package feed owns the live telemetry subsystem: it supervises one
// active transport at a time, demotes tiers on sustained failure, and
// maintains the rolling buffer and latest-value cache consumers render
// from. Activate builds a fresh subsystem; Close tears everything down
// and suppresses any late callbacks from in-flight work.
package feed

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/DaeVac/GridNinja/internal/metrics"
	"github.com/DaeVac/GridNinja/internal/telemetry"
	"github.com/DaeVac/GridNinja/internal/transport"
)

// Config describes one feed activation.
type Config struct {
	// SocketURL, StreamURL, PollURL are the backend's three telemetry
	// endpoints (ws/telemetry, telemetry/stream, telemetry/latest).
	SocketURL string
	StreamURL string
	PollURL   string

	// BufferSize bounds the rolling window; DefaultBufferSize if zero.
	BufferSize int

	// PollInterval is the poll tier's request period;
	// transport.DefaultPollInterval if zero.
	PollInterval time.Duration

	// OnPoint, when set, is invoked from the feed's event loop for each
	// accepted point, after the buffer has been updated.
	OnPoint func(telemetry.Point)

	// Dialer and HTTPClient override transport internals, mainly for
	// tests.
	Dialer     *websocket.Dialer
	HTTPClient *http.Client

	Metrics *metrics.Feed
	Logger  zerolog.Logger
}

// Feed is a live telemetry subsystem handle. All accessors are safe for
// concurrent use and keep working (returning the final state) after
// Close.
type Feed struct {
	cfg Config
	log zerolog.Logger

	events chan event
	done   chan struct{}
	closer sync.Once

	mu      sync.RWMutex
	state   machineState
	ring    *Ring
	epoch   int
	adapter transport.Adapter
	timer   *time.Timer
}

type eventKind int

const (
	evStatus eventKind = iota
	evPoint
	evReconnect
)

type event struct {
	epoch  int
	kind   eventKind
	status transport.Status
	point  telemetry.Point
}

// adapterSink routes one adapter instance's callbacks into the feed's
// event loop. The epoch stamps every event so anything arriving after
// that adapter was retired is dropped instead of mutating fresh state.
type adapterSink struct {
	f     *Feed
	epoch int
}

func (s adapterSink) OnStatus(st transport.Status) {
	s.f.post(event{epoch: s.epoch, kind: evStatus, status: st})
}

func (s adapterSink) OnPoint(p telemetry.Point) {
	s.f.post(event{epoch: s.epoch, kind: evPoint, point: p})
}

func (f *Feed) post(e event) {
	select {
	case f.events <- e:
	case <-f.done:
	}
}

// Activate creates and starts a fresh subsystem: empty buffer, socket
// tier, connecting status. Each call returns an independent Feed.
func Activate(cfg Config) *Feed {
	f := &Feed{
		cfg:    cfg,
		log:    cfg.Logger,
		events: make(chan event, 64),
		done:   make(chan struct{}),
		state:  initialState(),
		ring:   NewRing(cfg.BufferSize),
	}
	f.mu.Lock()
	f.adapter = f.newAdapter(f.state.Tier)
	adapter := f.adapter
	f.mu.Unlock()

	go f.loop()
	adapter.Start()
	return f
}

// Close tears the subsystem down: stops the active adapter, cancels any
// pending reconnect, and ends the event loop. Idempotent; no state
// mutation happens after it returns.
func (f *Feed) Close() {
	f.closer.Do(func() {
		close(f.done)
		f.mu.Lock()
		adapter := f.adapter
		f.adapter = nil
		if f.timer != nil {
			f.timer.Stop()
			f.timer = nil
		}
		f.epoch++ // retire stragglers
		f.mu.Unlock()
		if adapter != nil {
			adapter.Stop()
		}
	})
}

// Status reports the active transport's current status.
func (f *Feed) Status() transport.Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Status
}

// Transport reports the active tier.
func (f *Feed) Transport() transport.Tier {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state.Tier
}

// Latest returns the newest accepted point, or nil before the first.
func (f *Feed) Latest() *telemetry.Point {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ring.Latest()
}

// Buffer returns the rolling window in arrival order.
func (f *Feed) Buffer() []telemetry.Point {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pts, _ := f.ring.Snapshot()
	return pts
}

// Snapshot returns status, tier, latest and buffer as one consistent
// view, never half-updated.
func (f *Feed) Snapshot() (transport.Status, transport.Tier, *telemetry.Point, []telemetry.Point) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	pts, latest := f.ring.Snapshot()
	return f.state.Status, f.state.Tier, latest, pts
}

func (f *Feed) loop() {
	for {
		select {
		case <-f.done:
			return
		case e := <-f.events:
			f.handle(e)
		}
	}
}

func (f *Feed) handle(e event) {
	f.mu.Lock()
	if e.epoch != f.epoch {
		f.mu.Unlock()
		return
	}

	switch e.kind {
	case evPoint:
		f.ring.Push(e.point)
		f.cfg.Metrics.PointReceived(string(f.state.Tier))
		f.cfg.Metrics.SetBufferLen(f.ring.Len())
		onPoint := f.cfg.OnPoint
		f.mu.Unlock()
		if onPoint != nil {
			onPoint(e.point)
		}
		return

	case evReconnect:
		f.startLocked(transport.TierSocket)
		f.mu.Unlock()
		return

	case evStatus:
		d := transition(f.state, e.status)
		f.state = d.State
		switch d.Effect {
		case effectNone:
			f.mu.Unlock()
			return
		case effectRestartSocket:
			f.retireLocked()
			f.scheduleReconnectLocked(d.Delay)
			f.cfg.Metrics.ReconnectScheduled()
			f.mu.Unlock()
			return
		case effectSwitchTier:
			f.retireLocked()
			f.startLocked(f.state.Tier)
			f.cfg.Metrics.TierSwitched()
			tier := f.state.Tier
			f.mu.Unlock()
			f.log.Info().Str("tier", string(tier)).Msg("telemetry transport demoted")
			return
		}
	}
	f.mu.Unlock()
}

// retireLocked detaches the current adapter and bumps the epoch so its
// remaining callbacks are ignored. The adapter is stopped outside the
// event path via a goroutine; Stop is cheap but may close sockets.
func (f *Feed) retireLocked() {
	old := f.adapter
	f.adapter = nil
	f.epoch++
	if old != nil {
		go old.Stop()
	}
}

// startLocked builds and starts the adapter for tier under the current
// epoch. Caller holds f.mu.
func (f *Feed) startLocked(tier transport.Tier) {
	if f.isClosed() {
		return
	}
	a := f.newAdapter(tier)
	f.adapter = a
	// Start outside the lock path: Start is non-blocking by contract,
	// but its first status event must not deadlock on f.mu.
	go a.Start()
}

func (f *Feed) scheduleReconnectLocked(delay time.Duration) {
	if f.isClosed() {
		return
	}
	epoch := f.epoch
	f.timer = time.AfterFunc(delay, func() {
		f.post(event{epoch: epoch, kind: evReconnect})
	})
}

func (f *Feed) isClosed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Feed) newAdapter(tier transport.Tier) transport.Adapter {
	sink := adapterSink{f: f, epoch: f.epoch}
	discard := func() { f.cfg.Metrics.PointDiscarded() }
	switch tier {
	case transport.TierServerPush:
		return transport.NewServerPush(f.cfg.StreamURL, sink, transport.ServerPushOptions{
			Client:  f.cfg.HTTPClient,
			Discard: discard,
			Logger:  f.log,
		})
	case transport.TierPoll:
		return transport.NewPoll(f.cfg.PollURL, sink, transport.PollOptions{
			Interval: f.cfg.PollInterval,
			Client:   f.cfg.HTTPClient,
			Discard:  discard,
			Logger:   f.log,
		})
	default:
		return transport.NewSocket(f.cfg.SocketURL, sink, transport.SocketOptions{
			Dialer:  f.cfg.Dialer,
			Discard: discard,
			Logger:  f.log,
		})
	}
}
