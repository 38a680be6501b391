package rate

import (
	"errors"
	"testing"
	"time"
)

func newAuthLimiter(t *testing.T, now *time.Time) *AuthLimiter {
	t.Helper()

	limiter, err := NewAuthLimiter(AuthConfig{
		MaxAttempts:     5,
		Window:          900 * time.Second,
		LockoutDuration: 1800 * time.Second,
		Now:             func() time.Time { return *now },
	})
	if err != nil {
		t.Fatalf("NewAuthLimiter error: %v", err)
	}
	return limiter
}

func TestSixthAttemptIsLockedOut(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 5; i++ {
		if err := limiter.Allow("key"); err != nil {
			t.Fatalf("attempt %d unexpectedly denied: %v", i+1, err)
		}
		limiter.RecordFailure("key")
	}

	err := limiter.Allow("key")
	if !errors.Is(err, ErrLockedOut) {
		t.Fatalf("sixth attempt: expected ErrLockedOut, got %v", err)
	}

	var lockErr *LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockoutError, got %T", err)
	}
	want := current.Add(1800 * time.Second)
	if !lockErr.Until.Equal(want) {
		t.Fatalf("lockout deadline %s, want %s", lockErr.Until, want)
	}
}

func TestLockoutOutlivesWindowReset(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 5; i++ {
		limiter.RecordFailure("key")
	}

	// Past the 900s window but inside the 1800s lockout.
	current = current.Add(1000 * time.Second)
	if err := limiter.Allow("key"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("lockout must outlive the window, got %v", err)
	}

	// Lockout expires exactly at its fixed deadline.
	current = current.Add(801 * time.Second)
	if err := limiter.Allow("key"); err != nil {
		t.Fatalf("attempt after lockout expiry denied: %v", err)
	}
}

func TestLockoutDeadlineDoesNotExtend(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 5; i++ {
		limiter.RecordFailure("key")
	}
	deadline := current.Add(1800 * time.Second)

	// Hammering a locked key must not move the deadline.
	current = current.Add(900 * time.Second)
	limiter.RecordFailure("key")

	err := limiter.Allow("key")
	var lockErr *LockoutError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected *LockoutError, got %v", err)
	}
	if !lockErr.Until.Equal(deadline) {
		t.Fatalf("deadline moved from %s to %s", deadline, lockErr.Until)
	}
}

func TestFailuresExpireWithWindow(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 4; i++ {
		limiter.RecordFailure("key")
	}
	if got := limiter.Attempts("key"); got != 4 {
		t.Fatalf("expected 4 in-window failures, got %d", got)
	}

	current = current.Add(901 * time.Second)
	if got := limiter.Attempts("key"); got != 0 {
		t.Fatalf("window expiry must clear failures, got %d", got)
	}

	// A fifth failure after the window reset must not trigger lockout.
	limiter.RecordFailure("key")
	if err := limiter.Allow("key"); err != nil {
		t.Fatalf("unexpected denial: %v", err)
	}
}

func TestSuccessDoesNotLaunderFailures(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 4; i++ {
		limiter.RecordFailure("key")
	}

	// A successful authentication consults Allow but records nothing; the
	// prior failure count must survive it.
	if err := limiter.Allow("key"); err != nil {
		t.Fatalf("unexpected denial: %v", err)
	}
	if got := limiter.Attempts("key"); got != 4 {
		t.Fatalf("success cleared failures: got %d, want 4", got)
	}

	limiter.RecordFailure("key")
	if err := limiter.Allow("key"); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("fifth failure should trigger lockout, got %v", err)
	}
}

func TestKeysAreIsolated(t *testing.T) {
	current := time.Now()
	limiter := newAuthLimiter(t, &current)

	for i := 0; i < 5; i++ {
		limiter.RecordFailure("attacker")
	}

	if err := limiter.Allow("victim"); err != nil {
		t.Fatalf("unrelated key must not be affected: %v", err)
	}
}

func TestNewAuthLimiterValidation(t *testing.T) {
	base := AuthConfig{MaxAttempts: 5, Window: time.Minute, LockoutDuration: time.Minute}

	cfg := base
	cfg.MaxAttempts = 0
	if _, err := NewAuthLimiter(cfg); err == nil {
		t.Fatal("expected zero attempt budget to be rejected")
	}

	cfg = base
	cfg.Window = 0
	if _, err := NewAuthLimiter(cfg); err == nil {
		t.Fatal("expected zero window to be rejected")
	}

	cfg = base
	cfg.LockoutDuration = 0
	if _, err := NewAuthLimiter(cfg); err == nil {
		t.Fatal("expected zero lockout duration to be rejected")
	}
}
