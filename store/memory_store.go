package store

import (
	"context"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryRecorder is an in-memory implementation of the Recorder interface.
// It uses go-cache for storage so retained sessions age out on their own
// after the configured retention. The lifetime count is kept separately and
// is not affected by expiry.
type MemoryRecorder struct {
	cache *cache.Cache
	total atomic.Int64
}

// NewMemoryRecorder creates a new in-memory recorder.
//
// Parameters:
//   - retention: How long a recorded session stays readable via Recent
//     (non-positive keeps sessions until the process exits)
//
// Returns:
//   - A new MemoryRecorder instance
func NewMemoryRecorder(retention time.Duration) Recorder {
	expiration := retention
	cleanup := retention
	if retention <= 0 {
		expiration = cache.NoExpiration
		cleanup = 0
	}

	return &MemoryRecorder{
		cache: cache.New(expiration, cleanup),
	}
}

// Record implements Recorder. Records are keyed by service name plus
// session ID: servers assign session IDs independently, each starting at
// 1, so the ID alone is not unique when servers share one recorder.
func (r *MemoryRecorder) Record(ctx context.Context, s Session) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.cache.Set(s.Service+":"+strconv.FormatUint(s.ID, 10), s, cache.DefaultExpiration)
	r.total.Add(1)
	return nil
}

// Recent implements Recorder.
func (r *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	items := r.cache.Items()
	sessions := make([]Session, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(Session); ok {
			sessions = append(sessions, s)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})

	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

// Count implements Recorder.
func (r *MemoryRecorder) Count(ctx context.Context) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	return r.total.Load(), nil
}

// Close implements Recorder. The in-memory store holds no external
// resources.
func (r *MemoryRecorder) Close() error {
	return nil
}
