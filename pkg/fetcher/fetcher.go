// Package fetcher answers "what do the sensors currently show", trying
// sources in priority order: the channel API, then the persisted/cached
// secondary feed, then the synthetic generator. It never returns an error;
// failure degrades provenance instead.
package fetcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Primary is the remote channel API.
type Primary interface {
	FetchWindow(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, error)
}

// Secondary is the cached or persisted alternate feed.
type Secondary interface {
	SelectRecent(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, error)
}

// Persister takes best-effort write-through of live readings.
type Persister interface {
	UpsertReadings(ctx context.Context, rs []reading.Reading) (int, error)
}

// Generator produces synthetic readings when nothing real is available.
type Generator interface {
	History(hours int) []reading.Reading
}

// Fetcher composes the three sources. Primary, secondary and persister are
// all optional; the generator is required.
type Fetcher struct {
	primary   Primary
	secondary Secondary
	persister Persister
	gen       Generator
	log       *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPrimary sets the remote channel source.
func WithPrimary(p Primary) Option {
	return func(f *Fetcher) { f.primary = p }
}

// WithSecondary sets the cached/persisted fallback source.
func WithSecondary(s Secondary) Option {
	return func(f *Fetcher) { f.secondary = s }
}

// WithPersister enables write-through of live readings.
func WithPersister(p Persister) Option {
	return func(f *Fetcher) { f.persister = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) { f.log = l }
}

// New builds a fetcher around the given generator.
func New(gen Generator, opts ...Option) *Fetcher {
	f := &Fetcher{gen: gen, log: zap.L()}
	for _, o := range opts {
		o(f)
	}
	return f
}

// HasPrimary reports whether a remote source is configured at all. The
// orchestrator uses it to decide whether synthetic results count as
// degradation.
func (f *Fetcher) HasPrimary() bool {
	return f.primary != nil
}

// Fetch returns the freshest window it can get, oldest first, clamped to
// display bounds and tagged with its provenance. It never fails: the worst
// case is a fully synthetic window of the requested length.
func (f *Fetcher) Fetch(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, reading.Provenance) {
	if f.primary != nil {
		rs, err := f.primary.FetchWindow(ctx, windowHours, maxSamples)
		if err == nil && len(rs) > 0 {
			f.writeThrough(ctx, rs)
			return reading.ClampAll(rs), reading.Live
		}
		if err != nil {
			f.log.Warn("primary source unavailable", zap.Error(err))
		} else {
			f.log.Warn("primary source returned no samples")
		}
	}

	if f.secondary != nil {
		rs, err := f.secondary.SelectRecent(ctx, windowHours, maxSamples)
		if err == nil && len(rs) > 0 {
			return reading.ClampAll(rs), reading.Secondary
		}
		if err != nil {
			f.log.Warn("secondary source unavailable", zap.Error(err))
		}
	}

	rs := f.gen.History(windowHours)
	if len(rs) > maxSamples && maxSamples > 0 {
		rs = rs[len(rs)-maxSamples:]
	}
	return rs, reading.Synthetic
}

// writeThrough persists live readings so the secondary feed stays warm.
// Persistence trouble never blocks serving fresh data.
func (f *Fetcher) writeThrough(ctx context.Context, rs []reading.Reading) {
	if f.persister == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	n, err := f.persister.UpsertReadings(ctx, rs)
	if err != nil {
		f.log.Warn("write-through failed", zap.Error(err), zap.Int("readings", len(rs)))
		return
	}
	f.log.Debug("write-through complete", zap.Int("inserted", n), zap.Int("readings", len(rs)))
}
