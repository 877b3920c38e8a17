package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is the fixed delay between poll requests.
const DefaultPollInterval = time.Second

// pollErrorThreshold is how many consecutive request failures it takes
// before the adapter reports StatusError. It keeps retrying regardless;
// polling is the last tier and only an external Stop ends it.
const pollErrorThreshold = 3

// Poll fetches the latest telemetry point from a plain HTTP endpoint on
// a fixed interval, starting with an immediate request.
type Poll struct {
	url      string
	interval time.Duration
	sink     Sink
	log      zerolog.Logger
	client   *http.Client
	discard  func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool
	stopped bool
}

// PollOptions configures a Poll adapter.
type PollOptions struct {
	// Interval between requests; DefaultPollInterval when zero.
	Interval time.Duration
	Client   *http.Client
	Discard  func()
	Logger   zerolog.Logger
}

// NewPoll builds a poll adapter fetching url.
func NewPoll(url string, sink Sink, opts PollOptions) *Poll {
	iv := opts.Interval
	if iv <= 0 {
		iv = DefaultPollInterval
	}
	c := opts.Client
	if c == nil {
		c = &http.Client{Timeout: 10 * time.Second}
	}
	return &Poll{
		url:      url,
		interval: iv,
		sink:     sink,
		log:      opts.Logger,
		client:   c,
		discard:  opts.Discard,
	}
}

func (p *Poll) Tier() Tier { return TierPoll }

// Start begins the request loop in the background.
func (p *Poll) Start() {
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

func (p *Poll) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		if err := p.fetch(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			p.log.Debug().Err(err).Int("failures", failures).Msg("poll request failed")
			if failures == pollErrorThreshold {
				p.sink.OnStatus(StatusError)
			}
		} else {
			failures = 0
			p.sink.OnStatus(StatusOpen)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poll) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}
	// Intermediate caches must not serve a stale "latest" point.
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("poll: unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	forward(p.sink, data, p.discard)
	return nil
}

// Stop ends the request loop and cancels any in-flight request.
func (p *Poll) Stop() {
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
