package synthetic

import (
	"testing"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestHistoryShape(t *testing.T) {
	now := time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)
	g := New(WithSeed(1), WithClock(fixedClock(now)))

	rs := g.History(24)
	if len(rs) != 24 {
		t.Fatalf("expected 24 samples, got %d", len(rs))
	}
	for i := 1; i < len(rs); i++ {
		if !rs[i].Timestamp.After(rs[i-1].Timestamp) {
			t.Fatalf("samples not chronological at %d: %s !> %s", i, rs[i].Timestamp, rs[i-1].Timestamp)
		}
	}
	if !rs[len(rs)-1].Timestamp.Equal(now) {
		t.Fatalf("newest sample should be now, got %s", rs[len(rs)-1].Timestamp)
	}
}

func TestHistoryWithinClampBounds(t *testing.T) {
	g := New(WithSeed(42))
	for _, r := range g.History(24 * 14) {
		if r.Temperature < reading.TemperatureMin || r.Temperature > reading.TemperatureMax {
			t.Fatalf("temperature out of bounds: %.2f", r.Temperature)
		}
		if r.Humidity < reading.HumidityMin || r.Humidity > reading.HumidityMax {
			t.Fatalf("humidity out of bounds: %.2f", r.Humidity)
		}
		if r.SmallDust < reading.SmallDustMin || r.SmallDust > reading.SmallDustMax {
			t.Fatalf("small dust out of bounds: %.2f", r.SmallDust)
		}
		if r.LargeParticles < reading.LargePartMin || r.LargeParticles > reading.LargePartMax {
			t.Fatalf("large particles out of bounds: %.2f", r.LargeParticles)
		}
	}
}

func TestHistoryMinimumOneSample(t *testing.T) {
	g := New(WithSeed(7))
	if got := len(g.History(0)); got != 1 {
		t.Fatalf("expected one sample for a zero-hour request, got %d", got)
	}
}

func TestShapeIsDeterministicForSeed(t *testing.T) {
	now := time.Date(2026, time.July, 1, 9, 0, 0, 0, time.UTC)
	a := New(WithSeed(99), WithClock(fixedClock(now))).History(12)
	b := New(WithSeed(99), WithClock(fixedClock(now))).History(12)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed and clock produced different sample %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDustBuildsBetweenCleanings(t *testing.T) {
	now := time.Date(2026, time.January, 5, 12, 0, 0, 0, time.UTC)
	g := New(WithSeed(3), WithClock(fixedClock(now)))

	// Two days into the cleaning week carries more dust than a fresh day,
	// noise notwithstanding (build is 3.0 vs 0.0 against ±2 noise).
	fresh := g.at(0)
	stale := g.at(48)
	if stale.SmallDust <= fresh.SmallDust-4 {
		t.Fatalf("expected dust accumulation, fresh=%.2f stale=%.2f", fresh.SmallDust, stale.SmallDust)
	}
}
