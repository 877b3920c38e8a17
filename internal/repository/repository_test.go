package repository

import (
	"os"
	"testing"

	"github.com/DaeVac/GridNinja/internal/database"
	"github.com/DaeVac/GridNinja/internal/telemetry"
)

func TestArchiveRoundTrip(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := database.Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	repos := New(db)
	if err := repos.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM telemetry_points WHERE scenario_id = 'repo-it'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	scenario := "repo-it"
	itLoad := 812.5
	for i, ts := range []string{"t0", "t1", "t2"} {
		p := telemetry.Point{
			TS:            ts,
			FrequencyHz:   50.0,
			RocofHzS:      0.001,
			StressScore:   0.2,
			TotalLoadKw:   1000 + float64(i),
			SafeShiftKw:   100,
			CarbonGPerKwh: 210,
			RackTempC:     35,
			CoolingKw:     200,
			ITLoadKw:      &itLoad,
			ScenarioID:    &scenario,
		}
		if err := repos.InsertPoint(p); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	pts, err := repos.RecentPoints(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(pts) != 2 {
		t.Fatalf("len = %d, want 2", len(pts))
	}
	if pts[0].TS != "t1" || pts[1].TS != "t2" {
		t.Fatalf("order wrong: %q, %q", pts[0].TS, pts[1].TS)
	}
	if pts[1].ITLoadKw == nil || *pts[1].ITLoadKw != itLoad {
		t.Fatalf("it_load_kw = %v", pts[1].ITLoadKw)
	}
}
