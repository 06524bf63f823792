package live

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisFeed subscribes to the store's change-notification channel.
type RedisFeed struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisFeed builds a feed over an existing Redis client.
func NewRedisFeed(rdb *redis.Client, channel string, log *zap.Logger) *RedisFeed {
	if log == nil {
		log = zap.L()
	}
	return &RedisFeed{rdb: rdb, channel: channel, log: log}
}

// Subscribe opens the pub/sub subscription and waits for the broker to
// confirm it before returning.
func (f *RedisFeed) Subscribe(ctx context.Context) (Handle, error) {
	ps := f.rdb.Subscribe(ctx, f.channel)

	// Receive blocks until the subscription confirmation (or ctx ends),
	// which is our Connecting -> Active transition.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("live: redis subscribe: %w", err)
	}

	h := &redisHandle{ps: ps, notify: make(chan struct{}, 1), log: f.log}
	h.state.Store(int32(Active))
	go h.pump(ps.Channel())
	return h, nil
}

type redisHandle struct {
	ps     *redis.PubSub
	notify chan struct{}
	state  atomic.Int32
	once   sync.Once
	log    *zap.Logger
}

func (h *redisHandle) State() State            { return State(h.state.Load()) }
func (h *redisHandle) Notify() <-chan struct{} { return h.notify }

func (h *redisHandle) Close() {
	h.once.Do(func() {
		h.state.Store(int32(Closed))
		if err := h.ps.Close(); err != nil {
			h.log.Debug("closing redis subscription", zap.Error(err))
		}
	})
}

// pump forwards broker messages into the notify channel until the message
// channel ends, then marks the handle Failed unless it was closed on
// purpose.
func (h *redisHandle) pump(ch <-chan *redis.Message) {
	defer close(h.notify)
	for range ch {
		// Coalesce bursts; one pending signal is enough.
		select {
		case h.notify <- struct{}{}:
		default:
		}
	}
	if h.State() != Closed {
		h.state.Store(int32(Failed))
	}
}
