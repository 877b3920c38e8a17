package repository

import (
	"github.com/jmoiron/sqlx"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// Schema for the telemetry archive. The recorder applies it on start so
// a fresh database works out of the box.
const Schema = `
CREATE TABLE IF NOT EXISTS telemetry_points (
	id                BIGSERIAL PRIMARY KEY,
	ts                TEXT NOT NULL,
	frequency_hz      DOUBLE PRECISION NOT NULL,
	rocof_hz_s        DOUBLE PRECISION NOT NULL,
	stress_score      DOUBLE PRECISION NOT NULL,
	total_load_kw     DOUBLE PRECISION NOT NULL,
	safe_shift_kw     DOUBLE PRECISION NOT NULL,
	carbon_g_per_kwh  DOUBLE PRECISION NOT NULL,
	rack_temp_c       DOUBLE PRECISION NOT NULL,
	cooling_kw        DOUBLE PRECISION NOT NULL,
	it_load_kw        DOUBLE PRECISION,
	price_usd_per_mwh DOUBLE PRECISION,
	scenario_id       TEXT
)`

// pointRow maps archive columns onto the wire model.
type pointRow struct {
	TS             string   `db:"ts"`
	FrequencyHz    float64  `db:"frequency_hz"`
	RocofHzS       float64  `db:"rocof_hz_s"`
	StressScore    float64  `db:"stress_score"`
	TotalLoadKw    float64  `db:"total_load_kw"`
	SafeShiftKw    float64  `db:"safe_shift_kw"`
	CarbonGPerKwh  float64  `db:"carbon_g_per_kwh"`
	RackTempC      float64  `db:"rack_temp_c"`
	CoolingKw      float64  `db:"cooling_kw"`
	ITLoadKw       *float64 `db:"it_load_kw"`
	PriceUsdPerMwh *float64 `db:"price_usd_per_mwh"`
	ScenarioID     *string  `db:"scenario_id"`
}

func (r pointRow) point() telemetry.Point {
	return telemetry.Point{
		TS:             r.TS,
		FrequencyHz:    r.FrequencyHz,
		RocofHzS:       r.RocofHzS,
		StressScore:    r.StressScore,
		TotalLoadKw:    r.TotalLoadKw,
		SafeShiftKw:    r.SafeShiftKw,
		CarbonGPerKwh:  r.CarbonGPerKwh,
		RackTempC:      r.RackTempC,
		CoolingKw:      r.CoolingKw,
		ITLoadKw:       r.ITLoadKw,
		PriceUsdPerMwh: r.PriceUsdPerMwh,
		ScenarioID:     r.ScenarioID,
	}
}

type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

// Migrate creates the archive table if missing.
func (r *Repos) Migrate() error {
	_, err := r.db.Exec(Schema)
	return err
}

// InsertPoint archives one telemetry point.
func (r *Repos) InsertPoint(p telemetry.Point) error {
	_, err := r.db.Exec(
		`INSERT INTO telemetry_points
			(ts, frequency_hz, rocof_hz_s, stress_score, total_load_kw, safe_shift_kw,
			 carbon_g_per_kwh, rack_temp_c, cooling_kw, it_load_kw, price_usd_per_mwh, scenario_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.TS, p.FrequencyHz, p.RocofHzS, p.StressScore, p.TotalLoadKw, p.SafeShiftKw,
		p.CarbonGPerKwh, p.RackTempC, p.CoolingKw, p.ITLoadKw, p.PriceUsdPerMwh, p.ScenarioID,
	)
	return err
}

// RecentPoints returns the newest n archived points, oldest first.
func (r *Repos) RecentPoints(n int) ([]telemetry.Point, error) {
	var rows []pointRow
	err := r.db.Select(&rows, `
		SELECT ts, frequency_hz, rocof_hz_s, stress_score, total_load_kw, safe_shift_kw,
		       carbon_g_per_kwh, rack_temp_c, cooling_kw, it_load_kw, price_usd_per_mwh, scenario_id
		FROM (
			SELECT * FROM telemetry_points ORDER BY id DESC LIMIT $1
		) recent ORDER BY id ASC`, n)
	if err != nil {
		return nil, err
	}
	out := make([]telemetry.Point, len(rows))
	for i, row := range rows {
		out[i] = row.point()
	}
	return out, nil
}
