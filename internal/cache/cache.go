// Package cache keeps short-lived copies of read-heavy data in Redis: the
// public-group snapshot used for cart matching and dedup markers for consumed
// payment events. Redis is never the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/groupcart/internal/models"
)

// New returns a client for addr.
func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Snapshots caches the list of public groups.
//
// Each snapshot is stored under the generation that was current when its read
// began. Invalidate bumps the generation, so a Put from a read that raced a
// mutation lands on a key nobody reads again and expires with its TTL.
type Snapshots struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSnapshots returns a snapshot cache. ttl <= 0 uses TTLSnapshot.
func NewSnapshots(rdb *redis.Client, ttl time.Duration) *Snapshots {
	if ttl <= 0 {
		ttl = TTLSnapshot
	}
	return &Snapshots{rdb: rdb, ttl: ttl}
}

func (s *Snapshots) generation(ctx context.Context) (int64, error) {
	gen, err := s.rdb.Get(ctx, KeySnapshotGeneration).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached public groups and the generation they belong to.
// ok is false on a miss; gen is still valid then and must be passed to Put.
func (s *Snapshots) Get(ctx context.Context) (groups []*models.Group, gen int64, ok bool, err error) {
	gen, err = s.generation(ctx)
	if err != nil {
		return nil, 0, false, err
	}
	b, err := s.rdb.Get(ctx, SnapshotKey(gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if err := json.Unmarshal(b, &groups); err != nil {
		return nil, 0, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	for _, g := range groups {
		g.EnsureMaps()
	}
	return groups, gen, true, nil
}

// Put stores groups as the snapshot of generation gen.
func (s *Snapshots) Put(ctx context.Context, gen int64, groups []*models.Group) error {
	if groups == nil {
		groups = []*models.Group{}
	}
	b, err := json.Marshal(groups)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, SnapshotKey(gen), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Invalidate starts a new generation so the next read goes to the store.
func (s *Snapshots) Invalidate(ctx context.Context) error {
	if err := s.rdb.Incr(ctx, KeySnapshotGeneration).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// Dedup remembers which events a consumer has already handled.
type Dedup struct {
	rdb      *redis.Client
	consumer string
	ttl      time.Duration
}

// NewDedup returns a dedup set scoped to consumer.
func NewDedup(rdb *redis.Client, consumer string) *Dedup {
	return &Dedup{rdb: rdb, consumer: consumer, ttl: TTLDedup}
}

func (d *Dedup) key(eventID string) string {
	return fmt.Sprintf(KeyDedup, d.consumer, eventID)
}

// Seen reports whether eventID was marked done.
func (d *Dedup) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup key: %w", err)
	}
	return n > 0, nil
}

// Mark records eventID as done. Call it only after the event was fully handled
// so a crash mid-way leaves the event eligible for redelivery.
func (d *Dedup) Mark(ctx context.Context, eventID string) error {
	if err := d.rdb.Set(ctx, d.key(eventID), "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set dedup key: %w", err)
	}
	return nil
}
