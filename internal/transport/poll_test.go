package transport

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

func TestPollErrorAfterThreeFailuresThenRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(testPointJSON))
	}))
	defer srv.Close()

	sink := newCaptureSink()
	p := NewPoll(srv.URL, sink, PollOptions{Interval: 10 * time.Millisecond})
	p.Start()
	defer p.Stop()

	ok := sink.waitFor(5*time.Second, func(st []Status, pts []telemetry.Point) bool {
		return hasStatus(st, StatusError) && hasStatus(st, StatusOpen) && len(pts) > 0
	})
	if !ok {
		st, pts := sink.snapshot()
		t.Fatalf("poll did not recover: statuses=%v points=%d", st, len(pts))
	}

	st, _ := sink.snapshot()
	if st[0] != StatusConnecting {
		t.Fatalf("first status = %v, want connecting", st[0])
	}
	// error must come before the first open: three failures precede any success
	errIdx, openIdx := -1, -1
	for i, s := range st {
		if s == StatusError && errIdx < 0 {
			errIdx = i
		}
		if s == StatusOpen && openIdx < 0 {
			openIdx = i
		}
	}
	if errIdx < 0 || openIdx < 0 || errIdx > openIdx {
		t.Fatalf("status order wrong: %v", st)
	}
}

func TestPollMalformedBodyKeepsStatusOpen(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"not":"telemetry"}`))
			return
		}
		w.Write([]byte(testPointJSON))
	}))
	defer srv.Close()

	var discarded atomic.Int32
	sink := newCaptureSink()
	p := NewPoll(srv.URL, sink, PollOptions{
		Interval: 10 * time.Millisecond,
		Discard:  func() { discarded.Add(1) },
	})
	p.Start()
	defer p.Stop()

	if !sink.waitFor(5*time.Second, func(st []Status, pts []telemetry.Point) bool { return len(pts) > 0 }) {
		t.Fatal("never received a valid point")
	}
	st, _ := sink.snapshot()
	if hasStatus(st, StatusError) {
		t.Fatalf("malformed body must not produce error status: %v", st)
	}
	if discarded.Load() == 0 {
		t.Fatal("discard hook not invoked for malformed body")
	}
}

func TestPollStopIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPointJSON))
	}))
	defer srv.Close()

	sink := newCaptureSink()
	p := NewPoll(srv.URL, sink, PollOptions{Interval: 10 * time.Millisecond})
	p.Start()
	p.Stop()
	p.Stop()

	// Stop before Start must also be safe.
	q := NewPoll(srv.URL, newCaptureSink(), PollOptions{})
	q.Stop()
	q.Start()
	q.Stop()
}
