package authcore

import (
	"errors"

	"github.com/taskhive/authcore/rate"
	"github.com/taskhive/authcore/token"
)

// Failure taxonomy surfaced by the Gateway. Authentication and authorization
// failures are always typed rejections, never generic faults. Entries
// aliased from subpackages keep errors.Is working against either name.
var (
	// ErrInvalidCredentials is returned on login failure. It never reveals
	// whether the identity was unknown or the secret was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited denies a request over the window budget. The concrete
	// error is a *rate.LimitError carrying the retry-after hint.
	ErrRateLimited = rate.ErrLimited

	// ErrLockedOut denies every authentication attempt for a locked key.
	// The concrete error is a *rate.LockoutError carrying the deadline.
	ErrLockedOut = rate.ErrLockedOut

	// ErrTokenExpired marks a credential past its expiry.
	ErrTokenExpired = token.ErrExpired

	// ErrTokenRevoked marks a credential revoked before its natural expiry.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrTokenTampered marks a credential whose signature does not verify.
	ErrTokenTampered = token.ErrSignatureInvalid

	// ErrTokenMalformed marks input that is not a well-formed credential.
	ErrTokenMalformed = token.ErrMalformed

	// ErrWrongTokenType rejects an access token where a refresh token is
	// required, and vice versa.
	ErrWrongTokenType = token.ErrWrongType

	// ErrInsufficientRole denies an authorization check. Distinct from
	// authentication failures so callers can log it separately.
	ErrInsufficientRole = errors.New("insufficient role")

	// ErrUserNotFound is returned by UserSource implementations for unknown
	// identifiers. The Gateway maps it to ErrInvalidCredentials before it
	// reaches any caller.
	ErrUserNotFound = errors.New("user not found")
)
