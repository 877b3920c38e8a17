package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// ServerPush receives telemetry over a long-lived server-sent-events
// response. Any failure (request error, non-2xx status, wrong content
// type, or a broken stream after opening) is reported as StatusError
// so the controller can demote straight to polling; server push is
// never retried within an activation.
type ServerPush struct {
	url     string
	sink    Sink
	log     zerolog.Logger
	client  *http.Client
	discard func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// ServerPushOptions configures a ServerPush adapter.
type ServerPushOptions struct {
	// Client overrides the default HTTP client. The default has no
	// overall timeout; the response body is a stream that stays open.
	Client  *http.Client
	Discard func()
	Logger  zerolog.Logger
}

// NewServerPush builds a server-push adapter reading url.
func NewServerPush(url string, sink Sink, opts ServerPushOptions) *ServerPush {
	c := opts.Client
	if c == nil {
		c = &http.Client{}
	}
	return &ServerPush{
		url:     url,
		sink:    sink,
		log:     opts.Logger,
		client:  c,
		discard: opts.Discard,
	}
}

func (p *ServerPush) Tier() Tier { return TierServerPush }

// Start opens the event stream in the background.
func (p *ServerPush) Start() {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	p.sink.OnStatus(StatusConnecting)
	go p.run(ctx)
}

func (p *ServerPush) run(ctx context.Context) {
	err := p.stream(ctx)
	p.mu.Lock()
	stopped := p.stopped
	p.mu.Unlock()
	if stopped {
		return
	}
	p.log.Debug().Err(err).Str("url", p.url).Msg("server push ended")
	p.sink.OnStatus(StatusError)
}

func (p *ServerPush) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server push: unexpected status %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		return fmt.Errorf("server push: unexpected content type %q", ct)
	}

	p.sink.OnStatus(StatusOpen)

	// One event per blank-line-terminated block; only data: lines carry
	// payload, everything else (event:, id:, comments) is ignored.
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	var data bytes.Buffer
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if data.Len() > 0 {
				forward(p.sink, data.Bytes(), p.discard)
				data.Reset()
			}
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(rest, " "))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("server push: stream closed")
}

// Stop cancels the in-flight request and stream read.
func (p *ServerPush) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
