// Package revocation answers "has this credential identifier been revoked?"
// across every instance of the service. The preferred tier is a shared redis
// store with per-entry TTLs; when it is unreachable the store degrades to a
// process-local map with the same expiry semantics. The downgrade is
// explicit: local entries protect only the instance that took the revoke
// call, and every fallback transition is logged.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrStoreUnavailable indicates the shared store could not be reached.
// It is handled internally by falling back to the local tier and is logged
// rather than surfaced to callers.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

const (
	defaultKeyPrefix     = "rvk:"
	defaultStoreTimeout  = 2 * time.Second
	defaultSweepInterval = time.Minute
)

// Config holds revocation store tuning parameters.
type Config struct {
	KeyPrefix     string
	StoreTimeout  time.Duration // upper bound on any shared-store call
	SweepInterval time.Duration // period of the local fallback sweep
	Now           func() time.Time
	Logger        zerolog.Logger
}

// Store is the two-tier revocation set. Safe for concurrent use.
type Store struct {
	redis   redis.UniversalClient // nil means local-only operation
	prefix  string
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	mu    sync.Mutex
	local map[string]time.Time // token id -> expiry

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStore creates a Store backed by the given redis client. A nil client
// puts the store in permanent single-instance mode, which is reported once
// at construction. The periodic local sweep starts immediately and runs
// until Close.
func NewStore(client redis.UniversalClient, cfg Config) *Store {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &Store{
		redis:   client,
		prefix:  cfg.KeyPrefix,
		timeout: cfg.StoreTimeout,
		now:     cfg.Now,
		log:     cfg.Logger,
		local:   make(map[string]time.Time),
		stop:    make(chan struct{}),
	}

	if client == nil {
		s.log.Warn().Msg("revocation: no shared store configured, running in single-instance mode")
	}

	s.wg.Add(1)
	go s.sweepLoop(cfg.SweepInterval)

	return s
}

// Revoke inserts an entry for the token identifier, expiring when the
// credential itself would have expired. Revoking an already-expired token is
// a no-op, as is revoking the same identifier twice.
func (s *Store) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return errors.New("token id is required")
	}

	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	if s.redis != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := s.redis.Set(callCtx, s.prefix+tokenID, 1, ttl).Err()
		cancel()
		if err == nil {
			return nil
		}
		s.log.Warn().
			Err(fmt.Errorf("%w: %v", ErrStoreUnavailable, err)).
			Str("token_id", tokenID).
			Msg("revocation: shared store write failed, falling back to local entry")
	}

	s.mu.Lock()
	s.local[tokenID] = expiresAt
	s.mu.Unlock()
	return nil
}

// IsRevoked reports whether the token identifier has been revoked. A
// positive from either tier is authoritative: an entry present locally is
// honored even if the shared store has no record of it, and vice versa.
// During a shared-store outage entries written by other instances cannot be
// seen; that false-negative window is the documented degraded mode.
func (s *Store) IsRevoked(ctx context.Context, tokenID string) bool {
	if tokenID == "" {
		return false
	}

	if s.redis != nil {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		n, err := s.redis.Exists(callCtx, s.prefix+tokenID).Result()
		cancel()
		if err == nil && n > 0 {
			return true
		}
		if err != nil {
			s.log.Warn().
				Err(fmt.Errorf("%w: %v", ErrStoreUnavailable, err)).
				Msg("revocation: shared store lookup failed, answering from local entries only")
		}
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.local[tokenID]
	if !ok {
		return false
	}
	if !expiry.After(now) {
		// Lazy sweep on access.
		delete(s.local, tokenID)
		return false
	}
	return true
}

// LocalLen returns the number of live local fallback entries. Exposed for
// observability and tests.
func (s *Store) LocalLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.local)
}

// Close stops the background sweep. The store remains usable for lookups
// afterwards; only periodic expiry stops.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
}

func (s *Store) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

// sweep removes expired local entries. It snapshots under the lock,
// evaluates expiry outside it, then re-checks before deleting, so the lock
// is never held across the whole pass.
func (s *Store) sweep() {
	now := s.now()

	s.mu.Lock()
	snapshot := make(map[string]time.Time, len(s.local))
	for id, expiry := range s.local {
		snapshot[id] = expiry
	}
	s.mu.Unlock()

	var expired []string
	for id, expiry := range snapshot {
		if !expiry.After(now) {
			expired = append(expired, id)
		}
	}
	if len(expired) == 0 {
		return
	}

	s.mu.Lock()
	for _, id := range expired {
		if expiry, ok := s.local[id]; ok && !expiry.After(now) {
			delete(s.local, id)
		}
	}
	s.mu.Unlock()
}
