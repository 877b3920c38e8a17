package telemetry

import (
	"encoding/json"
	"fmt"
)

// Point is one timestamped snapshot of grid and facility measurements,
// matching the backend's wire shape. Optional fields are absent when the
// backend runs without the thermal debug or demo layers.
type Point struct {
	TS string `json:"ts"`

	FrequencyHz   float64 `json:"frequency_hz"`
	RocofHzS      float64 `json:"rocof_hz_s"`
	StressScore   float64 `json:"stress_score"`
	TotalLoadKw   float64 `json:"total_load_kw"`
	SafeShiftKw   float64 `json:"safe_shift_kw"`
	CarbonGPerKwh float64 `json:"carbon_g_per_kwh"`
	RackTempC     float64 `json:"rack_temp_c"`
	CoolingKw     float64 `json:"cooling_kw"`

	ITLoadKw        *float64 `json:"it_load_kw,omitempty"`
	QPassiveKw      *float64 `json:"q_passive_kw,omitempty"`
	QActiveKw       *float64 `json:"q_active_kw,omitempty"`
	CoolingTargetKw *float64 `json:"cooling_target_kw,omitempty"`
	CoolingCop      *float64 `json:"cooling_cop,omitempty"`
	PriceUsdPerMwh  *float64 `json:"price_usd_per_mwh,omitempty"`

	ScenarioID *string  `json:"scenario_id,omitempty"`
	SimTimeS   *float64 `json:"t_sim_s,omitempty"`
}

// requiredKeys are the fields every backend mode emits. Decode rejects
// payloads missing any of them so partial objects never reach the buffer.
var requiredKeys = []string{
	"ts",
	"frequency_hz",
	"rocof_hz_s",
	"stress_score",
	"total_load_kw",
	"safe_shift_kw",
	"carbon_g_per_kwh",
	"rack_temp_c",
	"cooling_kw",
}

// Decode parses a raw message into a Point. It returns an error for
// anything that is not a JSON object carrying all required fields; the
// caller discards such messages without touching connection state.
func Decode(data []byte) (Point, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Point{}, fmt.Errorf("telemetry decode: %w", err)
	}
	for _, k := range requiredKeys {
		v, ok := raw[k]
		if !ok || string(v) == "null" {
			return Point{}, fmt.Errorf("telemetry decode: missing field %q", k)
		}
	}

	var p Point
	if err := json.Unmarshal(data, &p); err != nil {
		return Point{}, fmt.Errorf("telemetry decode: %w", err)
	}
	if p.TS == "" {
		return Point{}, fmt.Errorf("telemetry decode: empty ts")
	}
	return p, nil
}
