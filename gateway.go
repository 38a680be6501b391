package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskhive/authcore/audit"
	"github.com/taskhive/authcore/metrics"
	"github.com/taskhive/authcore/password"
	"github.com/taskhive/authcore/rate"
	"github.com/taskhive/authcore/revocation"
	"github.com/taskhive/authcore/roles"
	"github.com/taskhive/authcore/token"
)

// Gateway composes the credential issuer, secret hasher, revocation store,
// limiters and role hierarchy into the operations consumed by transports.
// All methods are safe for concurrent use; no method blocks beyond the
// bounded shared-store timeout.
type Gateway struct {
	config       Config
	hasher       *password.Hasher
	issuer       *token.Issuer
	revocations  *revocation.Store
	requests     *rate.Limiter
	attempts     *rate.AuthLimiter
	users        UserSource
	log          zerolog.Logger
	auditor      *audit.Dispatcher
	metrics      *metrics.Metrics
	decoyHash    string
	ephemeralKey bool
	sharedStore  bool
}

// Login authenticates an identifier/secret pair. clientKey feeds the
// auth-specific limiter; when empty, the key attached via WithClientKey is
// used. The failure response is identical — in shape and in timing — whether
// the identity is unknown or the secret is wrong.
func (g *Gateway) Login(ctx context.Context, identifier, secret, clientKey string) (TokenPair, error) {
	if clientKey == "" {
		clientKey = ClientKeyFromContext(ctx)
	}

	if err := g.attempts.Allow(clientKey); err != nil {
		if errors.Is(err, ErrLockedOut) {
			g.metrics.RateLimited(metrics.LimiterLockout)
		} else {
			g.metrics.RateLimited(metrics.LimiterAuth)
		}
		g.emit(ctx, audit.Event{
			Decision:  audit.DecisionLogin,
			ClientKey: clientKey,
			Allowed:   false,
			Reason:    err.Error(),
		})
		return TokenPair{}, err
	}

	user, err := g.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			g.log.Error().Err(err).Msg("authcore: user source lookup failed")
		}
		// Burn a verification against the decoy hash so unknown identities
		// cost the same as wrong secrets.
		g.hasher.Verify(secret, g.decoyHash)
		return TokenPair{}, g.loginRejected(ctx, clientKey)
	}

	if !user.Role.Valid() {
		g.log.Error().Str("role", string(user.Role)).Msg("authcore: user record carries unknown role")
		g.hasher.Verify(secret, g.decoyHash)
		return TokenPair{}, g.loginRejected(ctx, clientKey)
	}

	if !g.hasher.Verify(secret, user.SecretHash) {
		return TokenPair{}, g.loginRejected(ctx, clientKey)
	}

	pair, err := g.issuePair(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, err
	}

	// A success does not reset the limiter: failed-attempt counts within the
	// window survive, so a counter cannot be laundered.
	g.metrics.Login(metrics.OutcomeSuccess)
	g.emit(ctx, audit.Event{
		Decision:  audit.DecisionLogin,
		Subject:   user.ID,
		ClientKey: clientKey,
		Allowed:   true,
	})
	return pair, nil
}

func (g *Gateway) loginRejected(ctx context.Context, clientKey string) error {
	g.attempts.RecordFailure(clientKey)
	g.metrics.Login(metrics.OutcomeDenied)
	g.emit(ctx, audit.Event{
		Decision:  audit.DecisionLogin,
		ClientKey: clientKey,
		Allowed:   false,
		Reason:    "invalid credentials",
	})
	return ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new access token. When rotation
// is enabled the old refresh token is revoked and a fresh one returned;
// otherwise the original refresh token stays in the returned pair.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := g.issuer.Decode(refreshToken)
	if err != nil {
		g.metrics.Refresh(outcomeForTokenErr(err))
		g.emit(ctx, audit.Event{Decision: audit.DecisionRefresh, Allowed: false, Reason: err.Error()})
		return TokenPair{}, err
	}

	if claims.TokenType != token.TypeRefresh {
		g.metrics.Refresh(metrics.OutcomeDenied)
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionRefresh,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  false,
			Reason:   "access token presented for refresh",
		})
		return TokenPair{}, ErrWrongTokenType
	}

	if err := g.requests.Allow(ctx, "refresh:"+claims.ID); err != nil {
		g.metrics.RateLimited(metrics.LimiterGeneral)
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionRefresh,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  false,
			Reason:   err.Error(),
		})
		return TokenPair{}, err
	}

	if g.revocations.IsRevoked(ctx, claims.ID) {
		g.metrics.Refresh(metrics.OutcomeRevoked)
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionRefresh,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  false,
			Reason:   "token revoked",
		})
		return TokenPair{}, ErrTokenRevoked
	}

	access, _, err := g.issuer.IssueAccess(claims.Subject, claims.Role)
	if err != nil {
		return TokenPair{}, err
	}

	newRefresh := refreshToken
	if g.config.RotateRefreshTokens {
		rotated, _, err := g.issuer.IssueRefresh(claims.Subject, claims.Role)
		if err != nil {
			return TokenPair{}, err
		}
		if err := g.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
			return TokenPair{}, err
		}
		g.metrics.Revocation()
		newRefresh = rotated
	}

	g.metrics.Refresh(metrics.OutcomeSuccess)
	g.emit(ctx, audit.Event{
		Decision: audit.DecisionRefresh,
		Subject:  claims.Subject,
		TokenID:  claims.ID,
		Allowed:  true,
	})
	return TokenPair{AccessToken: access, RefreshToken: newRefresh}, nil
}

// Logout revokes the given tokens (typically the access/refresh pair).
// Revoking twice, or revoking an already-expired token, is not an error.
// Tampered or malformed input is still rejected.
func (g *Gateway) Logout(ctx context.Context, tokens ...string) error {
	for _, tokenStr := range tokens {
		claims, err := g.issuer.Decode(tokenStr)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				// Natural expiry is already terminal; nothing to revoke.
				continue
			}
			return err
		}

		if err := g.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
			return err
		}
		g.metrics.Revocation()
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionLogout,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  true,
		})
	}
	return nil
}

// ResolvePrincipal verifies an access token and returns the principal it
// asserts. This is the single authentication path for every transport:
// request-response handlers and streaming connection handshakes both call
// it, so authorization semantics cannot diverge between them.
func (g *Gateway) ResolvePrincipal(ctx context.Context, tokenStr string) (Principal, error) {
	claims, err := g.issuer.Decode(tokenStr)
	if err != nil {
		g.metrics.Resolution(outcomeForTokenErr(err))
		g.emit(ctx, audit.Event{Decision: audit.DecisionResolve, Allowed: false, Reason: err.Error()})
		return Principal{}, err
	}

	if claims.TokenType != token.TypeAccess {
		g.metrics.Resolution(metrics.OutcomeDenied)
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionResolve,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  false,
			Reason:   "refresh token presented for access",
		})
		return Principal{}, ErrWrongTokenType
	}

	if g.revocations.IsRevoked(ctx, claims.ID) {
		g.metrics.Resolution(metrics.OutcomeRevoked)
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionResolve,
			Subject:  claims.Subject,
			TokenID:  claims.ID,
			Allowed:  false,
			Reason:   "token revoked",
		})
		return Principal{}, ErrTokenRevoked
	}

	g.metrics.Resolution(metrics.OutcomeSuccess)
	return Principal{ID: claims.Subject, Role: claims.Role}, nil
}

// Authorize checks the principal's role against the required role. Denials
// are emitted as their own decision kind, distinct from authentication
// failures.
func (g *Gateway) Authorize(ctx context.Context, principal Principal, required roles.Role) error {
	if !principal.Role.Allows(required) {
		g.emit(ctx, audit.Event{
			Decision: audit.DecisionAuthorize,
			Subject:  principal.ID,
			Allowed:  false,
			Reason:   fmt.Sprintf("role %s does not satisfy %s", principal.Role, required),
		})
		return fmt.Errorf("%w: %s requires %s", ErrInsufficientRole, principal.Role, required)
	}

	g.emit(ctx, audit.Event{
		Decision: audit.DecisionAuthorize,
		Subject:  principal.ID,
		Allowed:  true,
	})
	return nil
}

// Allow consumes one request from the general per-key window budget. It is
// exposed for the transport layer's request throttling.
func (g *Gateway) Allow(ctx context.Context, clientKey string) error {
	if err := g.requests.Allow(ctx, clientKey); err != nil {
		g.metrics.RateLimited(metrics.LimiterGeneral)
		return err
	}
	return nil
}

// Roles returns the role hierarchy in ascending rank order, for input
// validation on user-management endpoints.
func (g *Gateway) Roles() []roles.Role {
	return roles.All()
}

// NeedsRehash reports whether a stored secret form should be re-hashed.
// Hosts call this after a successful login to migrate legacy hashes.
func (g *Gateway) NeedsRehash(storedForm string) bool {
	return g.hasher.NeedsRehash(storedForm)
}

// HashSecret produces a stored form for a new secret, for the host's
// user-management endpoints.
func (g *Gateway) HashSecret(secret string) (string, error) {
	return g.hasher.Hash(secret)
}

// SecurityReport returns a snapshot of the effective security posture.
func (g *Gateway) SecurityReport() SecurityReport {
	return SecurityReport{
		ProductionMode:      g.config.Mode == ModeProduction,
		SigningAlgorithm:    g.config.JWT.Algorithm,
		EphemeralSigningKey: g.ephemeralKey,
		AccessTTL:           g.config.JWT.AccessTTL,
		RefreshTTL:          g.config.JWT.RefreshTTL,
		HashMemoryKB:        g.config.Password.Memory,
		HashTime:            g.config.Password.Time,
		HashParallelism:     g.config.Password.Parallelism,
		RefreshRotation:     g.config.RotateRefreshTokens,
		SharedStoreWired:    g.sharedStore,
	}
}

// Close stops background work: the revocation sweep and the audit
// dispatcher. Safe to call more than once.
func (g *Gateway) Close() {
	g.revocations.Close()
	g.auditor.Close()
}

func (g *Gateway) issuePair(subject string, role roles.Role) (TokenPair, error) {
	access, _, err := g.issuer.IssueAccess(subject, role)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := g.issuer.IssueRefresh(subject, role)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (g *Gateway) emit(ctx context.Context, event audit.Event) {
	if g.auditor == nil {
		return
	}
	event.Timestamp = time.Now()
	g.auditor.Emit(ctx, event)
}

func outcomeForTokenErr(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return metrics.OutcomeExpired
	case errors.Is(err, token.ErrSignatureInvalid), errors.Is(err, token.ErrMalformed):
		return metrics.OutcomeMalformed
	default:
		return metrics.OutcomeDenied
	}
}
