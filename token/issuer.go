// Package token mints and parses the signed bearer credentials exchanged
// with clients. Tokens are compact JWS structures (header.payload.signature)
// signed with HS256; the payload carries subject, role, token type, issue and
// expiry instants, and a unique token identifier used for revocation.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/taskhive/authcore/roles"
)

// Type distinguishes the two credential kinds. An access token is never
// accepted where a refresh token is required, and vice versa.
type Type string

const (
	// TypeAccess marks short-lived credentials presented on every call.
	TypeAccess Type = "access"
	// TypeRefresh marks long-lived credentials exchanged for new access tokens.
	TypeRefresh Type = "refresh"
)

// MinKeyBytes is the minimum accepted signing key length.
const MinKeyBytes = 32

// Decode failure kinds. Callers distinguish "log in again" (ErrExpired) from
// "tampered token" (ErrSignatureInvalid) from garbage input (ErrMalformed).
var (
	ErrExpired          = errors.New("token expired")
	ErrSignatureInvalid = errors.New("token signature invalid")
	ErrMalformed        = errors.New("token malformed")
	ErrWrongType        = errors.New("wrong token type")
)

// Claims is the fixed-shape decoded payload. Missing or mistyped required
// fields reject the whole token at decode; nothing is silently defaulted.
type Claims struct {
	Subject   string
	Role      roles.Role
	TokenType Type
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds issuer parameters, fixed at construction.
type Config struct {
	SigningKey []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Now        func() time.Time
}

// Issuer signs and verifies credentials. Safe for concurrent use.
type Issuer struct {
	config Config
	now    func() time.Time
}

type wireClaims struct {
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// NewIssuer validates the configuration and returns an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey) < MinKeyBytes {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinKeyBytes)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{config: cfg, now: now}, nil
}

// IssueAccess mints a short-lived access token for the subject and role.
func (i *Issuer) IssueAccess(subject string, role roles.Role) (string, Claims, error) {
	return i.issue(subject, role, TypeAccess, i.config.AccessTTL)
}

// IssueRefresh mints a long-lived refresh token for the subject and role.
func (i *Issuer) IssueRefresh(subject string, role roles.Role) (string, Claims, error) {
	return i.issue(subject, role, TypeRefresh, i.config.RefreshTTL)
}

func (i *Issuer) issue(subject string, role roles.Role, typ Type, ttl time.Duration) (string, Claims, error) {
	if subject == "" {
		return "", Claims{}, errors.New("subject is required")
	}
	if !role.Valid() {
		return "", Claims{}, fmt.Errorf("%w: %q", roles.ErrUnknownRole, role)
	}

	now := i.now()
	claims := Claims{
		Subject:   subject,
		Role:      role,
		TokenType: typ,
		ID:        uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	wire := wireClaims{
		Role:      string(role),
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        claims.ID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(i.config.SigningKey)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Decode verifies the signature and expiry and extracts the claims. On
// ErrExpired the returned Claims are still populated from the (authentic)
// payload, so callers such as logout can reach the token identifier of an
// expired token. For all other failures the Claims are zero.
func (i *Issuer) Decode(tokenStr string) (Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &wireClaims{}, func(t *jwt.Token) (interface{}, error) {
		return i.config.SigningKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			// Signature checked out; surface the claims with the failure.
			if parsed != nil {
				if wire, ok := parsed.Claims.(*wireClaims); ok {
					if claims, convErr := fromWire(wire); convErr == nil {
						return claims, ErrExpired
					}
				}
			}
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrSignatureInvalid
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	wire, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrMalformed
	}
	claims, err := fromWire(wire)
	if err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// fromWire enforces the fixed payload shape: every required field must be
// present and well-typed.
func fromWire(wire *wireClaims) (Claims, error) {
	if wire.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	if wire.ID == "" {
		return Claims{}, fmt.Errorf("%w: missing token id", ErrMalformed)
	}
	if wire.IssuedAt == nil || wire.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing timestamps", ErrMalformed)
	}

	role, err := roles.Parse(wire.Role)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	typ := Type(wire.TokenType)
	if typ != TypeAccess && typ != TypeRefresh {
		return Claims{}, fmt.Errorf("%w: unknown token type %q", ErrMalformed, wire.TokenType)
	}

	return Claims{
		Subject:   wire.Subject,
		Role:      role,
		TokenType: typ,
		ID:        wire.ID,
		IssuedAt:  wire.IssuedAt.Time,
		ExpiresAt: wire.ExpiresAt.Time,
	}, nil
}
