package transport

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Socket receives telemetry over a bidirectional websocket. It opens a
// single connection and never reconnects on its own; after a close the
// failover controller decides whether to dial a fresh Socket or demote.
type Socket struct {
	url     string
	sink    Sink
	log     zerolog.Logger
	dialer  *websocket.Dialer
	discard func()

	mu      sync.Mutex
	conn    *websocket.Conn
	started bool
	stopped bool
}

// SocketOptions configures a Socket adapter.
type SocketOptions struct {
	// Dialer overrides the default websocket dialer, mainly for tests.
	Dialer *websocket.Dialer
	// Discard, when set, is invoked once per dropped malformed message.
	Discard func()
	Logger  zerolog.Logger
}

// NewSocket builds a socket adapter dialing url.
func NewSocket(url string, sink Sink, opts SocketOptions) *Socket {
	d := opts.Dialer
	if d == nil {
		d = &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	}
	return &Socket{
		url:     url,
		sink:    sink,
		log:     opts.Logger,
		dialer:  d,
		discard: opts.Discard,
	}
}

func (s *Socket) Tier() Tier { return TierSocket }

// Start dials the endpoint in the background. Exactly one dial per
// adapter instance; a second Start is a no-op.
func (s *Socket) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.sink.OnStatus(StatusConnecting)
	go s.run()
}

func (s *Socket) run() {
	conn, resp, err := s.dialer.Dial(s.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.log.Debug().Err(err).Str("url", s.url).Msg("socket dial failed")
		s.sink.OnStatus(StatusClosed)
		return
	}
	s.conn = conn
	s.mu.Unlock()

	s.sink.OnStatus(StatusOpen)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		forward(s.sink, data, s.discard)
	}

	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		s.sink.OnStatus(StatusClosed)
	}
}

// Stop tears down the connection. Safe before Start and repeatedly.
func (s *Socket) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
}
