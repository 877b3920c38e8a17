// Package transport provides the three mechanisms GridNinja uses to
// receive live telemetry from the control backend: a websocket stream,
// a server-sent-event stream, and interval polling. Adapters normalize
// everything into telemetry.Point values and coarse status transitions;
// tier selection and failover live in the feed package.
package transport

import (
	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// Status describes the health of the currently active transport, not
// the subsystem's overall availability.
type Status string

const (
	StatusConnecting Status = "connecting"
	StatusOpen       Status = "open"
	StatusError      Status = "error"
	StatusClosed     Status = "closed"
)

// Tier identifies one of the transport mechanisms, ordered by
// preference: socket first, then server push, then polling.
type Tier string

const (
	TierSocket     Tier = "socket"
	TierServerPush Tier = "serverPush"
	TierPoll       Tier = "poll"
)

// Sink receives adapter output. Adapters invoke it from their own
// goroutines; implementations must tolerate concurrent delivery and
// calls arriving after Stop.
type Sink interface {
	OnPoint(telemetry.Point)
	OnStatus(Status)
}

// Adapter is the common contract of the three telemetry transports.
// Start is asynchronous and non-blocking; failures are reported through
// the sink, never returned. Stop is idempotent and safe to call before
// Start or more than once.
type Adapter interface {
	Start()
	Stop()
	Tier() Tier
}

// forward decodes a raw message and hands it to the sink. Payloads that
// do not decode into a telemetry point are dropped without touching
// connection status; a data problem is not a transport problem.
func forward(sink Sink, data []byte, onDiscard func()) {
	p, err := telemetry.Decode(data)
	if err != nil {
		if onDiscard != nil {
			onDiscard()
		}
		return
	}
	sink.OnPoint(p)
}
