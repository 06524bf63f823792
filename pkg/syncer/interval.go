package syncer

import (
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Polling cadences. Degradation is graduated, recovery is immediate.
const (
	IntervalFast     = 30 * time.Second
	IntervalNormal   = 60 * time.Second
	IntervalSlow     = 120 * time.Second
	IntervalFallback = 300 * time.Second

	// A sync within this window means the remote side is actively fresh,
	// so we poll fast to pick up what it just pulled.
	syncRecencyWindow = 2 * time.Minute
)

// nextInterval picks the cadence for the next cycle. The rules are
// evaluated in priority order; error count always wins over the synthetic
// fast path.
func nextInterval(consecutiveErrors int, prov reading.Provenance, lastSyncedAt, now time.Time) time.Duration {
	switch {
	case consecutiveErrors >= 3:
		return IntervalFallback
	case consecutiveErrors >= 1:
		return IntervalSlow
	case prov == reading.Synthetic:
		// Synthetic refresh is local and cheap, keep it snappy.
		return IntervalFast
	case !lastSyncedAt.IsZero() && now.Sub(lastSyncedAt) <= syncRecencyWindow:
		return IntervalFast
	default:
		return IntervalNormal
	}
}
