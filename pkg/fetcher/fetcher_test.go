package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
	"github.com/beanops/warehouse-sync-go/pkg/synthetic"
)

type fakePrimary struct {
	rs   []reading.Reading
	err  error
	hits int
}

func (f *fakePrimary) FetchWindow(_ context.Context, _, _ int) ([]reading.Reading, error) {
	f.hits++
	return f.rs, f.err
}

type fakeSecondary struct {
	rs  []reading.Reading
	err error
}

func (f *fakeSecondary) SelectRecent(_ context.Context, _, _ int) ([]reading.Reading, error) {
	return f.rs, f.err
}

type fakePersister struct {
	upserts int
	gotLen  int
	err     error
}

func (f *fakePersister) UpsertReadings(_ context.Context, rs []reading.Reading) (int, error) {
	f.upserts++
	f.gotLen = len(rs)
	return len(rs), f.err
}

func window(n int) []reading.Reading {
	base := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	out := make([]reading.Reading, n)
	for i := range out {
		out[i] = reading.Reading{
			ExternalID:  string(rune('a' + i)),
			Temperature: 21, Humidity: 60, SmallDust: 15, LargeParticles: 9,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func newGen() *synthetic.Generator {
	return synthetic.New(synthetic.WithSeed(1))
}

func TestPrimarySuccessIsLiveAndPersistedOnce(t *testing.T) {
	primary := &fakePrimary{rs: window(10)}
	persister := &fakePersister{}
	f := New(newGen(), WithPrimary(primary), WithPersister(persister))

	rs, prov := f.Fetch(context.Background(), 24, 100)
	if prov != reading.Live {
		t.Fatalf("expected live provenance, got %s", prov)
	}
	if len(rs) != 10 {
		t.Fatalf("expected 10 readings, got %d", len(rs))
	}
	if persister.upserts != 1 || persister.gotLen != 10 {
		t.Fatalf("expected one upsert of 10 readings, got %d of %d", persister.upserts, persister.gotLen)
	}
}

func TestPersistenceFailureDoesNotAffectResult(t *testing.T) {
	primary := &fakePrimary{rs: window(5)}
	persister := &fakePersister{err: errors.New("db down")}
	f := New(newGen(), WithPrimary(primary), WithPersister(persister))

	rs, prov := f.Fetch(context.Background(), 24, 100)
	if prov != reading.Live || len(rs) != 5 {
		t.Fatalf("persistence failure leaked into result: prov=%s len=%d", prov, len(rs))
	}
}

func TestPrimaryFailureFallsBackToSecondary(t *testing.T) {
	primary := &fakePrimary{err: errors.New("timeout")}
	secondary := &fakeSecondary{rs: window(6)}
	f := New(newGen(), WithPrimary(primary), WithSecondary(secondary))

	rs, prov := f.Fetch(context.Background(), 24, 100)
	if prov != reading.Secondary {
		t.Fatalf("expected secondary provenance, got %s", prov)
	}
	if len(rs) != 6 {
		t.Fatalf("expected 6 readings, got %d", len(rs))
	}
}

func TestPrimaryEmptyFallsThrough(t *testing.T) {
	primary := &fakePrimary{rs: nil}
	secondary := &fakeSecondary{rs: window(3)}
	f := New(newGen(), WithPrimary(primary), WithSecondary(secondary))

	_, prov := f.Fetch(context.Background(), 24, 100)
	if prov != reading.Secondary {
		t.Fatalf("expected secondary provenance for empty primary, got %s", prov)
	}
}

func TestFallbackChainEndsSynthetic(t *testing.T) {
	primary := &fakePrimary{err: errors.New("timeout")}
	secondary := &fakeSecondary{err: errors.New("cache cold")}
	f := New(newGen(), WithPrimary(primary), WithSecondary(secondary))

	rs, prov := f.Fetch(context.Background(), 24, 100)
	if prov != reading.Synthetic {
		t.Fatalf("expected synthetic provenance, got %s", prov)
	}
	if len(rs) != 24 {
		t.Fatalf("expected a full 24-sample synthetic window, got %d", len(rs))
	}
}

func TestSyntheticRespectsMaxSamples(t *testing.T) {
	f := New(newGen())
	rs, prov := f.Fetch(context.Background(), 48, 12)
	if prov != reading.Synthetic {
		t.Fatalf("expected synthetic provenance, got %s", prov)
	}
	if len(rs) != 12 {
		t.Fatalf("expected 12 samples, got %d", len(rs))
	}
}

func TestFetchedReadingsAreClamped(t *testing.T) {
	rs := window(2)
	rs[1].Temperature = 99
	rs[1].Humidity = 5
	primary := &fakePrimary{rs: rs}
	f := New(newGen(), WithPrimary(primary))

	got, _ := f.Fetch(context.Background(), 24, 100)
	if got[1].Temperature != reading.TemperatureMax {
		t.Fatalf("fetched temperature not clamped: %.1f", got[1].Temperature)
	}
	if got[1].Humidity != reading.HumidityMin {
		t.Fatalf("fetched humidity not clamped: %.1f", got[1].Humidity)
	}
}

func TestHasPrimary(t *testing.T) {
	if New(newGen()).HasPrimary() {
		t.Fatal("generator-only fetcher must not report a primary")
	}
	if !New(newGen(), WithPrimary(&fakePrimary{})).HasPrimary() {
		t.Fatal("fetcher with a primary must report it")
	}
}
