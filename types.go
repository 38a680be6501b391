package authcore

import (
	"context"
	"time"

	"github.com/taskhive/authcore/roles"
)

// Principal is the authenticated identity and role resolved from a
// credential. It is a value type, never persisted by this core.
type Principal struct {
	ID   string
	Role roles.Role
}

// TokenPair is the access+refresh credential pair returned by Login and
// Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserRecord is the credential record the host application stores for an
// identity. SecretHash is a stored form produced by the password package
// (or a legacy bcrypt form during migration).
type UserRecord struct {
	ID         string
	SecretHash string
	Role       roles.Role
}

// UserSource is the host-side lookup the Gateway authenticates against.
// Implementations return ErrUserNotFound for unknown identifiers; the
// Gateway folds that into the uniform ErrInvalidCredentials response.
type UserSource interface {
	FindByIdentifier(ctx context.Context, identifier string) (UserRecord, error)
}

// SecurityReport is a read-only snapshot of the gateway's effective
// security posture, for admin tooling.
type SecurityReport struct {
	ProductionMode      bool
	SigningAlgorithm    string
	EphemeralSigningKey bool
	AccessTTL           time.Duration
	RefreshTTL          time.Duration
	HashMemoryKB        uint32
	HashTime            uint32
	HashParallelism     uint8
	RefreshRotation     bool
	SharedStoreWired    bool
}
