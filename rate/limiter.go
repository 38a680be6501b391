package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultKeyPrefix    = "rl:"
	defaultStoreTimeout = 2 * time.Second
)

// Config holds fixed-window limiter parameters.
type Config struct {
	Limit        int           // allowed requests per window per key
	Window       time.Duration // window length
	KeyPrefix    string
	StoreTimeout time.Duration
	Now          func() time.Time
	Logger       zerolog.Logger
}

// Limiter enforces a fixed window of at most Limit requests per key. With a
// redis client the counters are shared across instances (atomic INCR with a
// TTL set on the first hit in the window); without one, or during an outage,
// a process-local counter with the same semantics takes over.
type Limiter struct {
	redis   redis.UniversalClient
	config  Config
	now     func() time.Time
	log     zerolog.Logger
	timeout time.Duration

	mu    sync.Mutex
	local map[string]*window
}

type window struct {
	start time.Time
	count int
}

// NewLimiter creates a Limiter. client may be nil for local-only operation.
func NewLimiter(client redis.UniversalClient, cfg Config) (*Limiter, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate window must be positive, got %s", cfg.Window)
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Limiter{
		redis:   client,
		config:  cfg,
		now:     cfg.Now,
		log:     cfg.Logger,
		timeout: cfg.StoreTimeout,
		local:   make(map[string]*window),
	}, nil
}

// Allow consumes one request from the key's window budget. It returns nil
// when the request is admitted, or a *LimitError with the remaining window
// time when the budget is exhausted.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if l.redis != nil {
		err, ok := l.allowShared(ctx, key)
		if ok {
			return err
		}
		// Shared path failed; the local window below covers the outage.
	}
	return l.allowLocal(key)
}

// allowShared returns (result, true) on a definitive shared-store answer and
// (_, false) when the backend was unreachable.
func (l *Limiter) allowShared(ctx context.Context, key string) (error, bool) {
	redisKey := l.config.KeyPrefix + key

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	count, err := l.redis.Incr(callCtx, redisKey).Result()
	if err != nil {
		l.log.Warn().
			Err(fmt.Errorf("%w: %v", ErrBackendUnavailable, err)).
			Msg("rate: shared counter unreachable, using local window")
		return nil, false
	}

	// Fixed-window semantics: the TTL is set only by the first hit.
	if count == 1 {
		if err := l.redis.Expire(callCtx, redisKey, l.config.Window).Err(); err != nil {
			l.log.Warn().
				Err(fmt.Errorf("%w: %v", ErrBackendUnavailable, err)).
				Msg("rate: failed to arm window TTL")
			return nil, false
		}
	}

	if count > int64(l.config.Limit) {
		retryAfter := l.config.Window
		if ttl, err := l.redis.TTL(callCtx, redisKey).Result(); err == nil && ttl > 0 {
			retryAfter = ttl
		}
		return &LimitError{RetryAfter: retryAfter}, true
	}
	return nil, true
}

func (l *Limiter) allowLocal(key string) error {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.local[key]
	if w == nil || now.Sub(w.start) >= l.config.Window {
		l.local[key] = &window{start: now, count: 1}
		l.pruneLocked(now)
		return nil
	}

	w.count++
	if w.count > l.config.Limit {
		return &LimitError{RetryAfter: w.start.Add(l.config.Window).Sub(now)}
	}
	return nil
}

// pruneLocked drops stale windows so the fallback map stays bounded.
// Caller holds l.mu.
func (l *Limiter) pruneLocked(now time.Time) {
	for key, w := range l.local {
		if now.Sub(w.start) >= l.config.Window {
			delete(l.local, key)
		}
	}
}
