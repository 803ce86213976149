package redis

import (
	"context"
	"errors"
	"time"

	"github.com/G2-Spool/spool-progress-service/internal/application/query"
	"github.com/G2-Spool/spool-progress-service/internal/metrics"
)

// DashboardCache caches composed dashboard snapshots. The dashboard is the
// most expensive read path (summary + gamification + metrics + chart), so
// even a short TTL absorbs most of the load.
type DashboardCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDashboardCache creates a new DashboardCache. A non-positive ttl falls
// back to TTLDashboardCache.
func NewDashboardCache(cache *Cache, ttl time.Duration) *DashboardCache {
	if ttl <= 0 {
		ttl = TTLDashboardCache
	}
	return &DashboardCache{cache: cache, ttl: ttl}
}

// Get returns the cached dashboard for a student; the second return value
// is false on a miss.
func (d *DashboardCache) Get(ctx context.Context, studentID string) (*query.GetDashboardResult, bool, error) {
	var result query.GetDashboardResult
	err := d.cache.Get(ctx, DashboardKey(studentID), &result)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			metrics.RecordCacheLookup("dashboard", false)
			return nil, false, nil
		}
		return nil, false, err
	}
	metrics.RecordCacheLookup("dashboard", true)
	return &result, true, nil
}

// Set stores the dashboard snapshot for a student.
func (d *DashboardCache) Set(ctx context.Context, studentID string, result *query.GetDashboardResult) error {
	if result == nil {
		return nil
	}
	return d.cache.Set(ctx, DashboardKey(studentID), result, d.ttl)
}

// Invalidate drops a student's dashboard snapshot.
func (d *DashboardCache) Invalidate(ctx context.Context, studentID string) error {
	return d.cache.Delete(ctx, DashboardKey(studentID))
}
