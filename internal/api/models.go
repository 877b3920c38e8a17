package api

// Response models for the backend's request/response surface. The live
// telemetry stream has its own model in internal/telemetry; everything
// here is fetched on demand.

type Health struct {
	Status string `json:"status"`
	TS     string `json:"ts"`
}

type KpiSummary struct {
	WindowS                     int            `json:"window_s"`
	UnsafeActionsPreventedTotal int            `json:"unsafe_actions_prevented_total"`
	BlockedDecisionsUnique      int            `json:"blocked_decisions_unique"`
	BlockedRatePct              float64        `json:"blocked_rate_pct"`
	TopBlockedRules             []string       `json:"top_blocked_rules"`
	MoneySavedUsd               float64        `json:"money_saved_usd"`
	CO2AvoidedKg                float64        `json:"co2_avoided_kg"`
	SlaPenaltyUsd               float64        `json:"sla_penalty_usd"`
	JobsCompletedOnTimePct      float64        `json:"jobs_completed_on_time_pct"`
	UnsafePreventedByComponent  map[string]int `json:"unsafe_prevented_by_component"`
	UnsafePreventedByRule       map[string]int `json:"unsafe_prevented_by_rule"`
}

type TraceEvent struct {
	TS         string   `json:"ts"`
	DecisionID *string  `json:"decision_id,omitempty"`
	Component  string   `json:"component"`
	RuleID     string   `json:"rule_id"`
	Status     string   `json:"status"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
	Value      *float64 `json:"value,omitempty"`
	Threshold  *float64 `json:"threshold,omitempty"`
	Units      *string  `json:"units,omitempty"`
}

type TraceLatestResponse struct {
	TS     string       `json:"ts"`
	Events []TraceEvent `json:"events"`
}

type RampPlanStep struct {
	TOffsetS         int     `json:"t_offset_s"`
	ProposedDeltaPKw float64 `json:"proposed_deltaP_kw"`
	RackTempC        float64 `json:"rack_temp_c"`
	CoolingKw        float64 `json:"cooling_kw"`
	ThermalOk        bool    `json:"thermal_ok"`
	ThermalHeadroom  float64 `json:"thermal_headroom_kw"`
	Reason           string  `json:"reason"`
}

// RampPlan is the stepwise schedule the controller commits to when a
// shift is approved (or the empty plan explaining why it was not).
type RampPlan struct {
	RequestedDeltaPKw float64        `json:"requested_deltaP_kw"`
	ApprovedDeltaPKw  float64        `json:"approved_deltaP_kw"`
	Blocked           bool           `json:"blocked"`
	Reason            string         `json:"reason"`
	Steps             []RampPlanStep `json:"steps"`
}

type DecisionResponse struct {
	TS         string `json:"ts"`
	DecisionID string `json:"decision_id"`

	RequestedDeltaPKw float64 `json:"requested_deltaP_kw"`
	ApprovedDeltaPKw  float64 `json:"approved_deltaP_kw"`
	Blocked           bool    `json:"blocked"`
	Reason            string  `json:"reason"`

	Plan  RampPlan     `json:"plan"`
	Trace []TraceEvent `json:"trace"`
}

// DecisionRequest carries the query parameters for /decision/latest.
type DecisionRequest struct {
	DeltaPRequestKw float64
	PSiteKw         float64
	GridHeadroomKw  *float64
	HorizonS        int
	RampRateKwPerS  float64
}

type GridNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type GridEdge struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	ROhm   float64 `json:"r_ohm"`
	XOhm   float64 `json:"x_ohm"`
}

type GridTopologyResponse struct {
	Nodes []GridNode     `json:"nodes"`
	Edges []GridEdge     `json:"edges"`
	Meta  map[string]any `json:"meta"`
}

type GridPredictionResponse struct {
	NodeID      string  `json:"node_id"`
	SafeShiftKw float64 `json:"safe_shift_kw"`
	Confidence  float64 `json:"confidence"`
	ReasonCode  string  `json:"reason_code"`
}
