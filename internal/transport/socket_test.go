package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSocketDeliversMessagesThenCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i := 0; i < 2; i++ {
			conn.WriteMessage(websocket.TextMessage, []byte(testPointJSON))
		}
		conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
	}))
	defer srv.Close()

	sink := newCaptureSink()
	s := NewSocket(wsURL(srv), sink, SocketOptions{})
	s.Start()
	defer s.Stop()

	ok := sink.waitFor(5*time.Second, func(st []Status, pts []telemetry.Point) bool {
		return hasStatus(st, StatusOpen) && hasStatus(st, StatusClosed) && len(pts) == 2
	})
	if !ok {
		st, pts := sink.snapshot()
		t.Fatalf("socket flow wrong: statuses=%v points=%d", st, len(pts))
	}
	st, _ := sink.snapshot()
	if st[0] != StatusConnecting {
		t.Fatalf("first status = %v, want connecting", st[0])
	}
}

func TestSocketDialFailureReportsClosed(t *testing.T) {
	// Plain HTTP endpoint: the websocket handshake is rejected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := newCaptureSink()
	s := NewSocket(wsURL(srv), sink, SocketOptions{})
	s.Start()
	defer s.Stop()

	ok := sink.waitFor(5*time.Second, func(st []Status, pts []telemetry.Point) bool {
		return hasStatus(st, StatusClosed)
	})
	if !ok {
		t.Fatal("failed dial must report closed")
	}
	st, _ := sink.snapshot()
	if hasStatus(st, StatusOpen) {
		t.Fatalf("must not report open on failed handshake: %v", st)
	}
}

func TestSocketStopSuppressesClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	sink := newCaptureSink()
	s := NewSocket(wsURL(srv), sink, SocketOptions{})
	s.Start()
	if !sink.waitFor(5*time.Second, func(st []Status, pts []telemetry.Point) bool {
		return hasStatus(st, StatusOpen)
	}) {
		t.Fatal("socket never opened")
	}
	s.Stop()
	s.Stop()
	time.Sleep(50 * time.Millisecond)
	st, _ := sink.snapshot()
	if hasStatus(st, StatusClosed) {
		t.Fatalf("intentional stop must not emit closed: %v", st)
	}
}
