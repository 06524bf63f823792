package syncer

import (
	"context"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// SensorState is the orchestrator's owned snapshot. It is replaced
// wholesale on every cycle; readers always see one complete cycle's view.
type SensorState struct {
	Current      reading.Reading    `json:"current"`
	History      []reading.Reading  `json:"history"`
	Provenance   reading.Provenance `json:"-"`
	Quality      reading.Quality    `json:"quality"`
	LastSyncedAt time.Time          `json:"last_synced_at"`
}

// clone copies the snapshot so callers can't alias the orchestrator's
// history slice.
func (s SensorState) clone() SensorState {
	out := s
	out.History = make([]reading.Reading, len(s.History))
	copy(out.History, s.History)
	return out
}

// SyncStatus is what the remote sync trigger reported.
type SyncStatus struct {
	Success      bool   `json:"success"`
	SyncedCount  int    `json:"syncedCount"`
	Message      string `json:"message"`
	FallbackMode bool   `json:"fallbackMode,omitempty"`
}

// RemoteSync triggers a remote-side pull of the latest channel data.
type RemoteSync interface {
	TriggerSync(ctx context.Context) (SyncStatus, error)
}

// RemoteSyncFunc adapts a function to RemoteSync.
type RemoteSyncFunc func(ctx context.Context) (SyncStatus, error)

// TriggerSync implements RemoteSync.
func (f RemoteSyncFunc) TriggerSync(ctx context.Context) (SyncStatus, error) {
	return f(ctx)
}

// SyncOutcome is ForceSync's reply. Failures are encoded here, never
// raised.
type SyncOutcome struct {
	Success     bool               `json:"success"`
	SyncedCount int                `json:"synced_count"`
	Provenance  reading.Provenance `json:"-"`
	Warning     string             `json:"warning,omitempty"`
}
