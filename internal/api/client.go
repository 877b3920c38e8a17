package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// Client talks to the backend's request/response endpoints. The live
// telemetry stream is the feed package's job; this covers everything a
// dashboard fetches on demand (KPIs, decision log, topology, demo
// control).
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.getJSON(ctx, "/health", &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// Timeseries fetches the historical window the backend holds, for
// backfilling charts on first render. mode is "live" or "replay".
func (c *Client) Timeseries(ctx context.Context, windowS int, mode string) ([]telemetry.Point, error) {
	params := url.Values{}
	params.Set("window_s", strconv.Itoa(windowS))
	if mode != "" {
		params.Set("mode", mode)
	}
	var out []telemetry.Point
	if err := c.getJSON(ctx, "/telemetry/timeseries", &out, params); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) KpiSummary(ctx context.Context, windowS int) (*KpiSummary, error) {
	params := url.Values{}
	params.Set("window_s", strconv.Itoa(windowS))
	var out KpiSummary
	if err := c.getJSON(ctx, "/kpi/summary", &out, params); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TraceLatest(ctx context.Context, limit int) (*TraceLatestResponse, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out TraceLatestResponse
	if err := c.getJSON(ctx, "/trace/latest", &out, params); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecisionLatest asks the controller to evaluate a proposed load shift.
func (c *Client) DecisionLatest(ctx context.Context, req DecisionRequest) (*DecisionResponse, error) {
	params := url.Values{}
	params.Set("deltaP_request_kw", formatFloat(req.DeltaPRequestKw))
	params.Set("P_site_kw", formatFloat(req.PSiteKw))
	if req.GridHeadroomKw != nil {
		params.Set("grid_headroom_kw", formatFloat(*req.GridHeadroomKw))
	}
	if req.HorizonS > 0 {
		params.Set("horizon_s", strconv.Itoa(req.HorizonS))
	}
	if req.RampRateKwPerS > 0 {
		params.Set("ramp_rate_kw_per_s", formatFloat(req.RampRateKwPerS))
	}
	var out DecisionResponse
	if err := c.getJSON(ctx, "/decision/latest", &out, params); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GridTopology(ctx context.Context) (*GridTopologyResponse, error) {
	var out GridTopologyResponse
	if err := c.getJSON(ctx, "/grid/topology", &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GridPredict(ctx context.Context, nodeID int) (*GridPredictionResponse, error) {
	params := url.Values{}
	params.Set("node_id", strconv.Itoa(nodeID))
	var out GridPredictionResponse
	if err := c.getJSON(ctx, "/grid/predict", &out, params); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunScenario starts a demo/replay scenario on the backend.
func (c *Client) RunScenario(ctx context.Context, name string) error {
	return c.post(ctx, "/demo/scenario/"+url.PathEscape(name))
}

// ResetDemo stops any running scenario and restores live mode.
func (c *Client) ResetDemo(ctx context.Context) error {
	return c.post(ctx, "/demo/reset")
}

func (c *Client) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s failed: %s", path, resp.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any, params url.Values) error {
	u := c.baseURL + path
	if params != nil {
		if q := params.Encode(); q != "" {
			u += "?" + q
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
