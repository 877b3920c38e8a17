package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DaeVac/GridNinja/internal/api"
	"github.com/DaeVac/GridNinja/internal/feed"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pointJSON = `{"ts":"2026-08-31T10:00:00+00:00","frequency_hz":50.0,"rocof_hz_s":0.0,` +
	`"stress_score":0.2,"total_load_kw":1000,"safe_shift_kw":100,"carbon_g_per_kwh":210,` +
	`"rack_temp_c":35,"cooling_kw":200}`

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	// Socket backend feeding the live feed.
	ws := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage, []byte(pointJSON))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ws.Close)

	// Request/response backend for the proxy routes.
	rest := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/kpi/summary":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"window_s":900,"unsafe_actions_prevented_total":3}`)
		case "/grid/topology":
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"nodes":[{"id":"1","label":"Bus 1"}],"edges":[],"meta":{}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(rest.Close)

	f := feed.Activate(feed.Config{
		SocketURL: "ws" + strings.TrimPrefix(ws.URL, "http"),
	})
	t.Cleanup(f.Close)

	deadline := time.Now().Add(5 * time.Second)
	for f.Latest() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	require.NotNil(t, f.Latest(), "feed never received the seed point")

	app := fiber.New()
	Register(app, f, api.New(rest.URL))
	return app
}

func TestLiveEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/live", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string `json:"status"`
		Transport string `json:"transport"`
		Latest    *struct {
			TS string `json:"ts"`
		} `json:"latest"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "open", body.Status)
	assert.Equal(t, "socket", body.Transport)
	require.NotNil(t, body.Latest)
	assert.Equal(t, "2026-08-31T10:00:00+00:00", body.Latest.TS)
}

func TestHistoryEndpoint(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Points []json.RawMessage `json:"points"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Points)
}

func TestKpiProxy(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/kpi", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var k api.KpiSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&k))
	assert.Equal(t, 3, k.UnsafeActionsPreventedTotal)
}

func TestDecisionValidation(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/decision", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProxyErrorSurfacesAsBadGateway(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/trace", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
