package rate

import (
	"fmt"
	"sync"
	"time"
)

// AuthConfig holds the stricter authentication limiter parameters.
type AuthConfig struct {
	MaxAttempts     int           // failed attempts tolerated per window
	Window          time.Duration // sliding window over failed attempts
	LockoutDuration time.Duration // fixed lockout once the budget is spent
	Now             func() time.Time
}

// AuthLimiter throttles authentication attempts per client key. Failed
// attempts are tracked in a sliding window; reaching the budget places the
// key in a lockout that denies everything until its fixed deadline,
// regardless of window state. A successful authentication does not clear
// prior failures, so a counter cannot be laundered with an unrelated
// successful call from the same key. State is process-local and serialized
// per key under a single critical section; all operations are non-blocking.
type AuthLimiter struct {
	config AuthConfig
	now    func() time.Time

	mu    sync.Mutex
	state map[string]*authState
}

type authState struct {
	attempts    []time.Time
	lockedUntil time.Time
}

// NewAuthLimiter validates the configuration and returns an AuthLimiter.
func NewAuthLimiter(cfg AuthConfig) (*AuthLimiter, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("auth attempt budget must be positive, got %d", cfg.MaxAttempts)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("auth window must be positive, got %s", cfg.Window)
	}
	if cfg.LockoutDuration <= 0 {
		return nil, fmt.Errorf("lockout duration must be positive, got %s", cfg.LockoutDuration)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &AuthLimiter{
		config: cfg,
		now:    cfg.Now,
		state:  make(map[string]*authState),
	}, nil
}

// Allow reports whether an authentication attempt for the key may proceed.
// A locked-out key gets a *LockoutError with the fixed deadline; the
// deadline never moves, even if attempts keep arriving.
func (a *AuthLimiter) Allow(key string) error {
	if key == "" {
		return nil
	}
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state[key]
	if st == nil {
		return nil
	}

	if !st.lockedUntil.IsZero() {
		if now.Before(st.lockedUntil) {
			return &LockoutError{Until: st.lockedUntil}
		}
		// Lockout expired at its deadline; the key starts fresh.
		delete(a.state, key)
		return nil
	}

	st.attempts = pruneAttempts(st.attempts, now.Add(-a.config.Window))
	if len(st.attempts) == 0 {
		delete(a.state, key)
	}
	return nil
}

// RecordFailure registers a failed authentication attempt for the key. When
// the failure count within the window reaches the budget, the key enters
// lockout for the configured fixed duration.
func (a *AuthLimiter) RecordFailure(key string) {
	if key == "" {
		return
	}
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state[key]
	if st == nil {
		st = &authState{}
		a.state[key] = st
	}

	if !st.lockedUntil.IsZero() {
		// Already locked; the deadline is fixed and does not extend.
		return
	}

	st.attempts = pruneAttempts(st.attempts, now.Add(-a.config.Window))
	st.attempts = append(st.attempts, now)

	if len(st.attempts) >= a.config.MaxAttempts {
		st.lockedUntil = now.Add(a.config.LockoutDuration)
		st.attempts = nil
	}
}

// Attempts returns the current in-window failure count for the key.
// Exposed for observability and tests.
func (a *AuthLimiter) Attempts(key string) int {
	now := a.now()

	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state[key]
	if st == nil {
		return 0
	}
	st.attempts = pruneAttempts(st.attempts, now.Add(-a.config.Window))
	return len(st.attempts)
}

func pruneAttempts(attempts []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(attempts) && !attempts[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return attempts
	}
	return append(attempts[:0], attempts[idx:]...)
}
