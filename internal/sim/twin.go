package sim

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/DaeVac/GridNinja/internal/telemetry"
)

// Twin generates plausible telemetry for local development and demos.
// It is not a physics model: just smooth noisy curves in realistic
// ranges so dashboards and the feed have something to chew on.
type Twin struct {
	mu       sync.Mutex
	rng      *rand.Rand
	start    time.Time
	tick     int
	rackTemp float64
	cooling  float64
	lastFreq float64

	scenario  *string
	scenStart time.Time
}

// NewTwin seeds a generator. seed 0 uses the clock.
func NewTwin(seed int64) *Twin {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Twin{
		rng:      rand.New(rand.NewSource(seed)),
		start:    time.Now(),
		rackTemp: 34.0,
		cooling:  200.0,
		lastFreq: 50.0,
	}
}

// StartScenario marks a demo scenario active; its id rides along on
// every generated point.
func (t *Twin) StartScenario(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scenario = &id
	t.scenStart = time.Now()
}

// Reset clears any active scenario.
func (t *Twin) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scenario = nil
}

// Next produces the next telemetry point.
func (t *Twin) Next() telemetry.Point {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tick++
	now := time.Now().UTC()
	elapsed := now.Sub(t.start).Seconds()

	// Grid frequency wanders around 50 Hz with slow oscillation.
	freq := 50.0 + 0.03*math.Sin(elapsed/45.0) + t.rng.NormFloat64()*0.008
	rocof := (freq - t.lastFreq) / 1.0
	t.lastFreq = freq

	// IT load follows a gentle daily-ish curve plus jitter.
	itLoad := 800.0 + 120.0*math.Sin(elapsed/600.0) + t.rng.NormFloat64()*15.0

	// Thermal state drifts toward load-driven equilibrium.
	targetTemp := 30.0 + itLoad/120.0
	t.rackTemp += (targetTemp - t.rackTemp) * 0.05
	t.cooling += ((itLoad * 0.25) - t.cooling) * 0.1

	stress := math.Abs(freq-50.0)/0.2 + math.Max(0, t.rackTemp-42.0)/10.0
	if stress > 1.0 {
		stress = 1.0
	}

	carbon := 210.0 + 40.0*math.Sin(elapsed/900.0)
	price := 60.0 + 12.0*math.Sin(elapsed/1200.0)
	safeShift := math.Max(0, 180.0-stress*150.0)

	qPassive := (t.rackTemp - 20.0) * 2.5
	qActive := t.cooling * 0.8
	coolingTarget := itLoad * 0.25
	cop := 3.2 - stress

	p := telemetry.Point{
		TS:            now.Format(time.RFC3339),
		FrequencyHz:   round3(freq),
		RocofHzS:      round3(rocof),
		StressScore:   round3(stress),
		TotalLoadKw:   round1(itLoad + t.cooling),
		SafeShiftKw:   round1(safeShift),
		CarbonGPerKwh: round1(carbon),
		RackTempC:     round1(t.rackTemp),
		CoolingKw:     round1(t.cooling),

		ITLoadKw:        ptr(round1(itLoad)),
		QPassiveKw:      ptr(round1(qPassive)),
		QActiveKw:       ptr(round1(qActive)),
		CoolingTargetKw: ptr(round1(coolingTarget)),
		CoolingCop:      ptr(round3(cop)),
		PriceUsdPerMwh:  ptr(round1(price)),
	}

	if t.scenario != nil {
		p.ScenarioID = t.scenario
		p.SimTimeS = ptr(now.Sub(t.scenStart).Seconds())
	}
	return p
}

func ptr(f float64) *float64 { return &f }

func round1(f float64) float64 { return math.Round(f*10) / 10 }
func round3(f float64) float64 { return math.Round(f*1000) / 1000 }
