// Package queue implements the fair-share request queue fronting the
// inference engine (spec.md §4.7, §5): a global concurrency cap plus a
// per-user token-bucket rate limit. Overflow is a user-visible message
// (RateLimited or QueueFull), never a Go panic or an opaque error.
//
// Grounded on SPEC_FULL.md's DOMAIN STACK wiring: golang.org/x/sync/semaphore
// for the global cap (the teacher's go.mod carries golang.org/x/sync) and
// golang.org/x/time/rate for the per-user token bucket (the rate-limiting
// idiom the AKJUS-bsc-erigon pack repo's go.mod pulls in for its own
// request shaping).
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/mladen1312/nyx-light-racunovodja/internal/apperr"
	"github.com/mladen1312/nyx-light-racunovodja/internal/logging"
)

// Config configures the queue (spec.md §4.7: "global cap on concurrent
// in-flight generations (e.g. 3); per-user token-bucket rate limit
// (e.g. 10/min)").
type Config struct {
	GlobalConcurrency int
	PerUserRatePerMin int
}

// Queue is the request queue: callers within their per-user budget wait
// for a global slot in arrival (FIFO) order across all users. It does not
// round-robin between users; a user with budget left can take several
// consecutive slots while others wait.
type Queue struct {
	cfg     Config
	sem     *semaphore.Weighted
	inFlight int64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New builds a Queue from cfg.
func New(cfg Config) *Queue {
	if cfg.GlobalConcurrency <= 0 {
		cfg.GlobalConcurrency = 3
	}
	if cfg.PerUserRatePerMin <= 0 {
		cfg.PerUserRatePerMin = 10
	}
	return &Queue{
		cfg:      cfg,
		sem:      semaphore.NewWeighted(int64(cfg.GlobalConcurrency)),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (q *Queue) limiterFor(userID string) *rate.Limiter {
	q.mu.Lock()
	defer q.mu.Unlock()
	l, ok := q.limiters[userID]
	if !ok {
		// bucket size = the per-minute budget, refilled continuously.
		l = rate.NewLimiter(rate.Limit(float64(q.cfg.PerUserRatePerMin)/60.0), q.cfg.PerUserRatePerMin)
		q.limiters[userID] = l
	}
	return l
}

// Release is returned by Submit; the caller must call it exactly once
// when the in-flight generation completes, to free the global slot.
type Release func()

// Submit waits for a global concurrency slot, subject to the per-user rate
// limit, and returns a Release to call when the generation finishes.
// Fails fast (no OS-level blocking beyond this call) with RateLimited if
// the user has exceeded their budget, or QueueFull if no global slot frees
// up before ctx is done.
func (q *Queue) Submit(ctx context.Context, userID string) (Release, error) {
	log := logging.For(logging.CategoryQueue)

	limiter := q.limiterFor(userID)
	if !limiter.Allow() {
		reserve := limiter.Reserve()
		retryAfter := reserve.Delay()
		reserve.Cancel()
		log.Warn("rate limited", zap.String("user", userID), zap.Duration("retry_after", retryAfter))
		return nil, apperr.Newf(apperr.KindRateLimited, "rate limited, retry after %.0fs", retryAfter.Seconds())
	}

	if err := q.sem.Acquire(ctx, 1); err != nil {
		log.Warn("queue full", zap.String("user", userID))
		return nil, apperr.New(apperr.KindQueueFull, "inference queue is full, try again shortly")
	}
	atomic.AddInt64(&q.inFlight, 1)

	released := false
	return func() {
		if released {
			return
		}
		released = true
		atomic.AddInt64(&q.inFlight, -1)
		q.sem.Release(1)
	}, nil
}

// InFlight reports how many global slots are currently occupied. Useful
// for health/metrics endpoints; not part of the core contract.
func (q *Queue) InFlight() int64 {
	return atomic.LoadInt64(&q.inFlight)
}

// WaitTimeout is the default bound a caller should apply to ctx when
// calling Submit in the chat path, matching spec.md §5's suspension-point
// contract for Queue.submit ("waits for slot or rejects").
const WaitTimeout = 5 * time.Second
