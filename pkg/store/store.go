// Package store persists readings in Postgres and keeps a hot copy of the
// recent window in Redis. It also publishes a Redis notification on every
// write so interested consumers can refresh without polling.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

const (
	recentKey = "warehouse:readings:recent"
	recentTTL = 24 * time.Hour

	// NotifyChannel carries change notifications for the readings table.
	NotifyChannel = "warehouse:readings:changed"
)

// Store wraps the Postgres pool and the Redis client behind the upsert and
// read operations the rest of the service needs.
type Store struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New connects to both backends and verifies the connections.
func New(ctx context.Context, postgresURL, redisAddr string, opts ...Option) (*Store, error) {
	pool, err := pgxpool.New(ctx, postgresURL)
	if err != nil {
		return nil, fmt.Errorf("store: postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: postgres unreachable: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: redis unreachable: %w", err)
	}

	s := &Store{pool: pool, rdb: rdb, log: zap.L()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close releases both connections.
func (s *Store) Close() {
	s.pool.Close()
	if err := s.rdb.Close(); err != nil {
		s.log.Warn("closing redis", zap.Error(err))
	}
}

// Redis returns the underlying Redis client, for the pub/sub live feed.
func (s *Store) Redis() *redis.Client {
	return s.rdb
}

// UpsertReadings writes newly observed readings. The conflict key is
// (external_id, recorded_at), so duplicate delivery and reordering are
// no-ops by construction. Returns how many rows were actually inserted.
func (s *Store) UpsertReadings(ctx context.Context, rs []reading.Reading) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	const q = `
		INSERT INTO readings (external_id, recorded_at, temperature, humidity, small_dust, large_particles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_id, recorded_at) DO NOTHING`

	batch := &pgx.Batch{}
	for _, r := range rs {
		batch.Queue(q, r.ExternalID, r.Timestamp, r.Temperature, r.Humidity, r.SmallDust, r.LargeParticles)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range rs {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("store: upsert: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}

	s.refreshCache(ctx, rs)

	if inserted > 0 {
		if err := s.rdb.Publish(ctx, NotifyChannel, inserted).Err(); err != nil {
			// Notification is best-effort; pollers catch up anyway.
			s.log.Debug("publish change notification", zap.Error(err))
		}
	}
	return inserted, nil
}

// refreshCache stores the freshly observed window as the hot secondary
// feed. Cache trouble never fails a write.
func (s *Store) refreshCache(ctx context.Context, rs []reading.Reading) {
	payload, err := json.Marshal(rs)
	if err != nil {
		s.log.Warn("marshal recent window", zap.Error(err))
		return
	}
	if err := s.rdb.Set(ctx, recentKey, payload, recentTTL).Err(); err != nil {
		s.log.Warn("cache recent window", zap.Error(err))
	}
}

// SelectRecent reads back the most recent window, oldest first. It prefers
// the Redis hot copy and falls back to Postgres.
func (s *Store) SelectRecent(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, error) {
	if cached, err := s.cachedRecent(ctx, windowHours, maxSamples); err == nil && len(cached) > 0 {
		return cached, nil
	}

	const q = `
		SELECT external_id, recorded_at, temperature, humidity, small_dust, large_particles
		FROM readings
		WHERE recorded_at >= $1
		ORDER BY recorded_at DESC
		LIMIT $2`

	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	rows, err := s.pool.Query(ctx, q, since, maxSamples)
	if err != nil {
		return nil, fmt.Errorf("store: select recent: %w", err)
	}
	defer rows.Close()

	var out []reading.Reading
	for rows.Next() {
		var r reading.Reading
		if err := rows.Scan(&r.ExternalID, &r.Timestamp, &r.Temperature, &r.Humidity, &r.SmallDust, &r.LargeParticles); err != nil {
			return nil, fmt.Errorf("store: scan reading: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: select recent: %w", err)
	}

	// Query returned newest first; consumers want chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *Store) cachedRecent(ctx context.Context, windowHours, maxSamples int) ([]reading.Reading, error) {
	payload, err := s.rdb.Get(ctx, recentKey).Bytes()
	if err != nil {
		return nil, err
	}
	var rs []reading.Reading
	if err := json.Unmarshal(payload, &rs); err != nil {
		return nil, err
	}

	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	filtered := rs[:0]
	for _, r := range rs {
		if !r.Timestamp.Before(since) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) > maxSamples {
		filtered = filtered[len(filtered)-maxSamples:]
	}
	return filtered, nil
}
