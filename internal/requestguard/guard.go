// Package requestguard discards results of superseded requests: each request
// takes a token and only the holder of the latest token may commit.
package requestguard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Token identifies one issued request.
type Token uint64

// Guard issues monotonically increasing tokens.
type Guard struct {
	latest atomic.Uint64
}

// Next issues a new token, superseding every earlier one.
func (g *Guard) Next() Token {
	return Token(g.latest.Add(1))
}

// Current reports whether t is still the latest token.
func (g *Guard) Current(t Token) bool {
	return uint64(t) == g.latest.Load()
}

// FetchFunc loads a full snapshot.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Refresher keeps the latest committed snapshot of T. A refresh replaces the
// snapshot in full, and only when no newer refresh was started meanwhile. On
// failure the previous snapshot is kept.
type Refresher[T any] struct {
	name    string
	fetch   FetchFunc[T]
	timeout time.Duration
	logger  *zap.Logger

	guard Guard

	mu        sync.RWMutex
	snapshot  T
	has       bool
	updatedAt time.Time
	lastErr   error
}

// NewRefresher creates a refresher. timeout bounds every fetch; zero means
// no bound beyond the caller's context.
func NewRefresher[T any](name string, fetch FetchFunc[T], timeout time.Duration, logger *zap.Logger) *Refresher[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher[T]{
		name:    name,
		fetch:   fetch,
		timeout: timeout,
		logger:  logger,
	}
}

// Refresh fetches a new snapshot. It returns committed=false when the result
// was discarded because a newer refresh superseded it, or when the fetch
// failed. The returned error is the fetch error, if any.
func (r *Refresher[T]) Refresh(ctx context.Context) (committed bool, err error) {
	token := r.guard.Next()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	value, err := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.guard.Current(token) {
		r.logger.Debug("discarding superseded result", zap.String("refresher", r.name), zap.Uint64("token", uint64(token)))
		return false, err
	}

	if err != nil {
		r.lastErr = err
		r.logger.Warn("refresh failed, keeping stale snapshot",
			zap.String("refresher", r.name),
			zap.Bool("has_snapshot", r.has),
			zap.Error(err),
		)
		return false, err
	}

	r.snapshot = value
	r.has = true
	r.updatedAt = time.Now()
	r.lastErr = nil
	return true, nil
}

// Snapshot returns the last committed value and whether one exists.
func (r *Refresher[T]) Snapshot() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot, r.has
}

// Stale reports whether the most recent latest-token refresh failed.
func (r *Refresher[T]) Stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr != nil
}

// UpdatedAt is when the snapshot was last committed.
func (r *Refresher[T]) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}
