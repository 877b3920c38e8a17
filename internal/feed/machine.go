package feed

import (
	"time"

	"github.com/DaeVac/GridNinja/internal/transport"
)

// Failover policy constants.
const (
	// socketGiveUpThreshold is how many times the socket may close
	// without ever opening before the controller demotes to server
	// push. A socket blocked by network policy fails fast and
	// repeatedly; two strikes is treated as that signal.
	socketGiveUpThreshold = 2

	// reconnectBaseDelay and reconnectMaxDelay bound the exponential
	// backoff for socket reconnects: 250, 500, 1000, 2000, 3000, 3000…
	reconnectBaseDelay = 250 * time.Millisecond
	reconnectMaxDelay  = 3 * time.Second
)

// machineState is the failover controller's explicit state. Transitions
// are pure so the whole policy table is testable without I/O.
type machineState struct {
	Tier            transport.Tier
	Status          transport.Status
	FailsBeforeOpen int
	Retries         int
	EverOpened      bool
}

// initialState is where every activation begins.
func initialState() machineState {
	return machineState{
		Tier:   transport.TierSocket,
		Status: transport.StatusConnecting,
	}
}

// effect tells the runner what to do after a transition.
type effect int

const (
	effectNone effect = iota
	// effectRestartSocket: stop the current adapter and dial a fresh
	// socket after Delay.
	effectRestartSocket
	// effectSwitchTier: stop the current adapter and start the adapter
	// for the new state's tier immediately.
	effectSwitchTier
)

// decision pairs the successor state with the side effect it demands.
type decision struct {
	State  machineState
	Effect effect
	Delay  time.Duration
}

// backoffDelay computes the reconnect delay for the given retry count.
func backoffDelay(retries int) time.Duration {
	d := reconnectBaseDelay
	for i := 0; i < retries; i++ {
		d *= 2
		if d >= reconnectMaxDelay {
			return reconnectMaxDelay
		}
	}
	return d
}

// transition applies one adapter status event to the machine. Point
// arrivals do not pass through here; they only touch the buffer.
func transition(s machineState, status transport.Status) decision {
	switch s.Tier {
	case transport.TierSocket:
		return socketTransition(s, status)
	case transport.TierServerPush:
		return serverPushTransition(s, status)
	case transport.TierPoll:
		// Poll is terminal for the activation: status updates pass
		// through, the tier never changes until teardown.
		s.Status = status
		return decision{State: s}
	}
	return decision{State: s}
}

func socketTransition(s machineState, status transport.Status) decision {
	switch status {
	case transport.StatusOpen:
		s.Status = transport.StatusOpen
		s.EverOpened = true
		s.FailsBeforeOpen = 0
		s.Retries = 0
		return decision{State: s}

	case transport.StatusClosed:
		if !s.EverOpened {
			s.FailsBeforeOpen++
			if s.FailsBeforeOpen >= socketGiveUpThreshold {
				// Do not retry the socket again this activation.
				s.Tier = transport.TierServerPush
				s.Status = transport.StatusConnecting
				s.Retries = 0
				return decision{State: s, Effect: effectSwitchTier}
			}
		}
		// Transient drop (or a first pre-open failure): reconnect with
		// exponential backoff, uncapped attempts.
		delay := backoffDelay(s.Retries)
		s.Retries++
		s.Status = transport.StatusClosed
		return decision{State: s, Effect: effectRestartSocket, Delay: delay}

	default:
		s.Status = status
		return decision{State: s}
	}
}

func serverPushTransition(s machineState, status transport.Status) decision {
	switch status {
	case transport.StatusError, transport.StatusClosed:
		// No server-push retry within an activation: straight to the
		// universal last resort.
		s.Tier = transport.TierPoll
		s.Status = transport.StatusConnecting
		return decision{State: s, Effect: effectSwitchTier}
	default:
		s.Status = status
		return decision{State: s}
	}
}
