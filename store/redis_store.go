package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	// sessionListKey is the redis list the session log lives in, newest
	// session at the head.
	sessionListKey = "lineserv:sessions"
	// sessionCountKey is the redis counter holding the lifetime session
	// count.
	sessionCountKey = "lineserv:sessions:total"
)

// redisRecorder is a redis-based implementation of the Recorder interface.
// Sessions are kept as JSON in a bounded list so several server processes
// can share one log, and the lifetime count lives in a redis counter that
// survives restarts.
type redisRecorder struct {
	client *redis.Client
	maxLog int64
}

// NewRedisRecorder creates a new redis-based recorder instance.
// It takes a redis client and returns a Recorder that appends sessions
// to a shared list, trimmed to maxLog entries.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	recorder := store.NewRedisRecorder(client, 1000)
func NewRedisRecorder(client *redis.Client, maxLog int64) Recorder {
	return &redisRecorder{
		client: client,
		maxLog: maxLog,
	}
}

// Record implements Recorder.
func (r *redisRecorder) Record(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.LPush(ctx, sessionListKey, data).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if r.maxLog > 0 {
		if err := r.client.LTrim(ctx, sessionListKey, 0, r.maxLog-1).Err(); err != nil {
			return fmt.Errorf("failed to trim session log: %w", err)
		}
	}

	if err := r.client.Incr(ctx, sessionCountKey).Err(); err != nil {
		return fmt.Errorf("failed to count session: %w", err)
	}

	return nil
}

// Recent implements Recorder. The list is pushed at the head, so redis
// already returns sessions newest first.
func (r *redisRecorder) Recent(ctx context.Context, limit int) ([]Session, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	entries, err := r.client.LRange(ctx, sessionListKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session log: %w", err)
	}

	sessions := make([]Session, 0, len(entries))
	for _, entry := range entries {
		var s Session
		if err := json.Unmarshal([]byte(entry), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, nil
}

// Count implements Recorder.
func (r *redisRecorder) Count(ctx context.Context) (int64, error) {
	count, err := r.client.Get(ctx, sessionCountKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read session count: %w", err)
	}

	return count, nil
}

// Close implements Recorder.
func (r *redisRecorder) Close() error {
	return r.client.Close()
}
