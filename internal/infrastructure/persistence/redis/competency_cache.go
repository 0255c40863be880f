package redis

import (
	"context"
	"errors"
	"time"

	"github.com/veritas-school/assessment-ledger/internal/domain/competency"
	"github.com/veritas-school/assessment-ledger/internal/domain/shared"
)

// PrefixSnapshot namespaces competency snapshot keys.
const PrefixSnapshot = "competency:snapshot:"

// TTLSnapshot bounds staleness even if an invalidation is lost.
const TTLSnapshot = 10 * time.Minute

// CompetencyCache caches full competency snapshots per student. It satisfies
// both the query-side SnapshotCache and the command-side SnapshotInvalidator.
type CompetencyCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewCompetencyCache creates a snapshot cache. A non-positive ttl falls back
// to TTLSnapshot.
func NewCompetencyCache(cache *Cache, ttl time.Duration) *CompetencyCache {
	if ttl <= 0 {
		ttl = TTLSnapshot
	}
	return &CompetencyCache{cache: cache, ttl: ttl}
}

func snapshotKey(studentID shared.StudentID) string {
	return PrefixSnapshot + studentID.String()
}

// Get returns the cached snapshot for a student. The second return value
// reports whether the entry was present.
func (c *CompetencyCache) Get(ctx context.Context, studentID shared.StudentID) ([]competency.Record, bool, error) {
	var records []competency.Record
	err := c.cache.Get(ctx, snapshotKey(studentID), &records)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return records, true, nil
}

// Set stores the snapshot with the configured TTL.
func (c *CompetencyCache) Set(ctx context.Context, studentID shared.StudentID, records []competency.Record) error {
	return c.cache.Set(ctx, snapshotKey(studentID), records, c.ttl)
}

// Invalidate drops the student's snapshot entry.
func (c *CompetencyCache) Invalidate(ctx context.Context, studentID shared.StudentID) error {
	return c.cache.Delete(ctx, snapshotKey(studentID))
}
