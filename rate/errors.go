package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrLimited is the sentinel for window-based denials.
	ErrLimited = errors.New("rate limited")
	// ErrLockedOut is the sentinel for lockout denials.
	ErrLockedOut = errors.New("locked out")
	// ErrBackendUnavailable indicates the shared counter backend is unreachable.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)

// LimitError is a window denial carrying the remaining window time. The hint
// exposes only the numeric wait, never the configured thresholds.
type LimitError struct {
	RetryAfter time.Duration
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// Unwrap makes errors.Is(err, ErrLimited) hold.
func (e *LimitError) Unwrap() error { return ErrLimited }

// LockoutError is a lockout denial carrying the fixed lockout deadline.
type LockoutError struct {
	Until time.Time
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("locked out until %s", e.Until.UTC().Format(time.RFC3339))
}

// Unwrap makes errors.Is(err, ErrLockedOut) hold.
func (e *LockoutError) Unwrap() error { return ErrLockedOut }
