// Package syncer owns the mutable warehouse sensor state. It polls the
// fetcher on an error- and provenance-aware cadence, triggers remote syncs,
// and optionally rides a live-update channel as a freshness shortcut. It is
// the only component in the service with shared mutable state.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/beanops/warehouse-sync-go/pkg/live"
	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

const (
	// How long after start before attempting the live channel.
	liveGraceDelay = 5 * time.Second
	// How long the live subscription gets to confirm before being dropped.
	liveConfirmTimeout = 10 * time.Second
)

// FetchSource is the never-failing multi-source fetcher.
type FetchSource interface {
	Fetch(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, reading.Provenance)
	HasPrimary() bool
}

// Config controls one orchestrator instance.
type Config struct {
	// WindowHours is the lookback window fetched each cycle. Must be >= 1.
	WindowHours int
	// MaxSamples bounds the history length. Must be >= 1.
	MaxSamples int
	// AutoSync triggers the remote sync before every scheduled fetch.
	AutoSync bool
	// LiveUpdates enables the optional push channel.
	LiveUpdates bool
}

func (c Config) validate() error {
	if c.WindowHours < 1 {
		return fmt.Errorf("syncer: window hours must be >= 1, got %d", c.WindowHours)
	}
	if c.MaxSamples < 1 {
		return fmt.Errorf("syncer: max samples must be >= 1, got %d", c.MaxSamples)
	}
	return nil
}

// Orchestrator runs the sync state machine. Construct with New, run with
// Start, stop with Close.
type Orchestrator struct {
	cfg    Config
	source FetchSource
	remote RemoteSync
	feed   live.Feed
	log    *zap.Logger
	clock  func() time.Time
	inst   instruments

	started atomic.Bool

	// cycleMu serializes scheduled cycles, forced syncs and live-triggered
	// refreshes so state writes never interleave.
	cycleMu sync.Mutex

	mu           sync.RWMutex
	state        SensorState
	hasState     bool
	errors       int
	interval     time.Duration
	lastSyncedAt time.Time
	closed       bool

	kick      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	liveMu sync.Mutex
	handle live.Handle
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRemoteSync wires the remote sync trigger.
func WithRemoteSync(r RemoteSync) Option {
	return func(o *Orchestrator) { o.remote = r }
}

// WithLiveFeed wires the optional push channel.
func WithLiveFeed(f live.Feed) Option {
	return func(o *Orchestrator) { o.feed = f }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.clock = now }
}

// New builds an orchestrator around a fetch source.
func New(source FetchSource, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		source:   source,
		log:      zap.L(),
		clock:    time.Now,
		inst:     newInstruments(),
		interval: IntervalNormal,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start validates the config, runs the first cycle immediately, and then
// polls in the background until ctx ends or Close is called. The first
// cycle has completed by the time Start returns, so State is already
// populated.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.cfg.validate(); err != nil {
		return err
	}
	if !o.started.CompareAndSwap(false, true) {
		return fmt.Errorf("syncer: already started")
	}

	o.runCycle(ctx, false)

	o.wg.Add(1)
	go o.loop(ctx)

	if o.cfg.LiveUpdates && o.feed != nil {
		o.wg.Add(1)
		go o.liveLoop(ctx)
	}
	return nil
}

func (o *Orchestrator) loop(ctx context.Context) {
	defer o.wg.Done()

	timer := time.NewTimer(o.Interval())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			o.runCycle(ctx, false)
			timer.Reset(o.Interval())
		case <-o.kick:
			// Live notification: refresh now, but leave the timer's own
			// schedule alone.
			o.refresh(ctx)
		case <-ctx.Done():
			return
		case <-o.done:
			return
		}
	}
}

// runCycle performs one sync+fetch cycle and commits the result. forced
// marks an out-of-band ForceSync, which triggers the remote sync even when
// AutoSync is off.
func (o *Orchestrator) runCycle(ctx context.Context, forced bool) SyncOutcome {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	if o.isClosed() {
		return SyncOutcome{Warning: "orchestrator closed"}
	}

	now := o.clock()

	var status SyncStatus
	var syncErr error
	if o.remote != nil && (o.cfg.AutoSync || forced) {
		status, syncErr = o.remote.TriggerSync(ctx)
		if syncErr != nil {
			o.log.Warn("remote sync trigger failed", zap.Error(syncErr))
		}
	}

	rs, prov := o.source.Fetch(ctx, o.cfg.WindowHours, o.cfg.MaxSamples)
	if len(rs) == 0 {
		// The fetcher contract guarantees a non-empty window; keep the
		// last-known-good state if a source ever violates it.
		o.bumpErrors()
		return SyncOutcome{Warning: "fetch returned no samples"}
	}

	// A cycle is degraded when the remote sync failed, or when a configured
	// primary source left us on synthetic data. Generator-only deployments
	// are never degraded.
	failed := syncErr != nil || (prov == reading.Synthetic && o.source.HasPrimary())

	warning := ""
	switch {
	case syncErr != nil:
		warning = syncErr.Error()
	case failed:
		warning = "primary source unavailable; serving synthetic data"
	case status.Message != "" && !status.Success:
		warning = status.Message
	}

	current := rs[len(rs)-1]

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return SyncOutcome{Warning: "orchestrator closed"}
	}
	if failed {
		o.errors++
	} else {
		o.errors = 0
		o.lastSyncedAt = now
	}
	o.state = SensorState{
		Current:      current,
		History:      rs,
		Provenance:   prov,
		Quality:      reading.Classify(current),
		LastSyncedAt: o.lastSyncedAt,
	}
	o.hasState = true
	o.interval = nextInterval(o.errors, prov, o.lastSyncedAt, now)
	intervalSecs := int64(o.interval / time.Second)
	errs := int64(o.errors)
	o.mu.Unlock()

	o.inst.record(ctx, current, prov, failed, intervalSecs, errs)
	o.log.Info("sync cycle complete",
		zap.String("provenance", prov.String()),
		zap.Bool("failed", failed),
		zap.Int("samples", len(rs)),
		zap.Int64("intervalSeconds", intervalSecs),
		zap.Int64("consecutiveErrors", errs),
	)

	return SyncOutcome{
		Success:     !failed,
		SyncedCount: status.SyncedCount,
		Provenance:  prov,
		Warning:     warning,
	}
}

// refresh re-fetches the snapshot without touching sync health. Used for
// live-channel nudges, where the poll loop stays the source of truth for
// cadence and error accounting.
func (o *Orchestrator) refresh(ctx context.Context) {
	o.cycleMu.Lock()
	defer o.cycleMu.Unlock()

	if o.isClosed() {
		return
	}

	rs, prov := o.source.Fetch(ctx, o.cfg.WindowHours, o.cfg.MaxSamples)
	if len(rs) == 0 {
		return
	}
	current := rs[len(rs)-1]

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.state = SensorState{
		Current:      current,
		History:      rs,
		Provenance:   prov,
		Quality:      reading.Classify(current),
		LastSyncedAt: o.lastSyncedAt,
	}
	o.hasState = true
	o.mu.Unlock()

	o.log.Debug("live refresh complete", zap.String("provenance", prov.String()), zap.Int("samples", len(rs)))
}

// liveLoop establishes the optional push subscription after a grace delay
// and forwards notifications into the poll loop. Any trouble here is logged
// and dropped; polling is unaffected.
func (o *Orchestrator) liveLoop(ctx context.Context) {
	defer o.wg.Done()

	select {
	case <-time.After(liveGraceDelay):
	case <-ctx.Done():
		return
	case <-o.done:
		return
	}

	if o.Provenance() == reading.Synthetic {
		o.log.Debug("skipping live channel: running on synthetic data")
		return
	}

	sctx, cancel := context.WithTimeout(ctx, liveConfirmTimeout)
	h, err := o.feed.Subscribe(sctx)
	cancel()
	if err != nil {
		o.log.Warn("live channel unavailable, polling continues", zap.Error(err))
		return
	}

	o.liveMu.Lock()
	if o.isClosed() {
		o.liveMu.Unlock()
		h.Close()
		return
	}
	o.handle = h
	o.liveMu.Unlock()

	o.log.Info("live channel active", zap.String("state", h.State().String()))

	for {
		select {
		case _, ok := <-h.Notify():
			if !ok {
				o.log.Warn("live channel ended", zap.String("state", h.State().String()))
				return
			}
			select {
			case o.kick <- struct{}{}:
			default:
			}
		case <-ctx.Done():
			return
		case <-o.done:
			return
		}
	}
}

// ForceSync runs an out-of-band sync+fetch cycle right now. It updates
// shared state and error counters exactly like a scheduled cycle, is
// serialized against the timer, and never fails: problems come back in the
// outcome.
func (o *Orchestrator) ForceSync(ctx context.Context) SyncOutcome {
	return o.runCycle(ctx, true)
}

// Close stops the poll loop and tears down the live subscription. Safe to
// call any number of times.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() {
		o.mu.Lock()
		o.closed = true
		o.mu.Unlock()

		close(o.done)

		o.liveMu.Lock()
		if o.handle != nil {
			o.handle.Close()
		}
		o.liveMu.Unlock()

		o.wg.Wait()
		o.log.Info("orchestrator closed")
	})
}

func (o *Orchestrator) bumpErrors() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.errors++
	o.interval = nextInterval(o.errors, o.state.Provenance, o.lastSyncedAt, o.clock())
}

func (o *Orchestrator) isClosed() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.closed
}

// State returns a copy of the latest snapshot. ok is false before the
// first cycle completes.
func (o *Orchestrator) State() (SensorState, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if !o.hasState {
		return SensorState{}, false
	}
	return o.state.clone(), true
}

// Provenance reports where the current snapshot came from.
func (o *Orchestrator) Provenance() reading.Provenance {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state.Provenance
}

// ConsecutiveErrors reports the current failure streak.
func (o *Orchestrator) ConsecutiveErrors() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.errors
}

// Interval reports the current polling cadence.
func (o *Orchestrator) Interval() time.Duration {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.interval
}

// LastSyncedAt reports the last successful cycle time. ok is false when no
// cycle has succeeded yet.
func (o *Orchestrator) LastSyncedAt() (time.Time, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.lastSyncedAt, !o.lastSyncedAt.IsZero()
}
