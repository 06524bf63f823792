// Package live is the optional push channel for change notifications on
// the readings table. It is a freshness optimization only: the poll loop
// stays the source of truth, and a feed that cannot be established is torn
// down silently.
package live

import "context"

// State is the explicit subscription lifecycle.
type State int

const (
	Connecting State = iota
	Active
	Failed
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Failed:
		return "failed"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Handle is one established subscription.
type Handle interface {
	// State reports the current lifecycle state.
	State() State
	// Notify delivers one signal per observed change. Bursts may be
	// coalesced. The channel may be closed when the subscription ends;
	// consumers must tolerate both.
	Notify() <-chan struct{}
	// Close tears the subscription down. Safe to call more than once.
	Close()
}

// Feed can open subscriptions. Subscribe blocks until the subscription is
// confirmed active or the context ends.
type Feed interface {
	Subscribe(ctx context.Context) (Handle, error)
}
