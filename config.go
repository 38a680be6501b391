package authcore

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskhive/authcore/audit"
	"github.com/taskhive/authcore/password"
	"github.com/taskhive/authcore/token"
)

// Mode selects the runtime hardening profile.
type Mode string

const (
	// ModeProduction refuses to start without an explicit signing key.
	ModeProduction Mode = "production"
	// ModeDevelopment permits an ephemeral random signing key.
	ModeDevelopment Mode = "development"
)

// Config is the full gateway configuration. Zero values are filled from
// defaultConfig at Build; the struct is treated as immutable afterwards.
type Config struct {
	Mode                Mode
	JWT                 JWTConfig
	Password            password.Config
	Revocation          RevocationConfig
	RateLimit           RateLimitConfig
	Audit               audit.Config
	RotateRefreshTokens bool

	// RedisAddr is the shared key-value store endpoint. Empty means
	// single-instance mode (degraded revocation consistency, local rate
	// windows). Ignored when a client is injected via Builder.WithRedis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// JWTConfig holds credential signing parameters.
type JWTConfig struct {
	// SigningKey is the HS256 key. Production mode requires at least
	// token.MinKeyBytes bytes; development mode generates an ephemeral key
	// when empty.
	SigningKey []byte
	// Algorithm is informational; only HS256 is supported.
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// RevocationConfig tunes the two-tier revocation store.
type RevocationConfig struct {
	KeyPrefix     string
	StoreTimeout  time.Duration
	SweepInterval time.Duration
}

// RateLimitConfig tunes both limiter variants.
type RateLimitConfig struct {
	// General fixed-window budget per client key.
	RequestLimit  int
	RequestWindow time.Duration

	// Auth-specific sliding window and lockout.
	AuthMaxAttempts int
	AuthWindow      time.Duration
	LockoutDuration time.Duration
}

func defaultConfig() Config {
	return Config{
		Mode: ModeDevelopment,
		JWT: JWTConfig{
			Algorithm:  "HS256",
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "authcore",
		},
		// Targets roughly 200-300 ms per hash on commodity server hardware.
		Password: password.Config{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Revocation: RevocationConfig{
			KeyPrefix:     "rvk:",
			StoreTimeout:  2 * time.Second,
			SweepInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestLimit:    100,
			RequestWindow:   60 * time.Second,
			AuthMaxAttempts: 5,
			AuthWindow:      900 * time.Second,
			LockoutDuration: 1800 * time.Second,
		},
		Audit: audit.Config{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		RotateRefreshTokens: true,
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()

	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = def.JWT.Algorithm
	}
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = def.JWT.Issuer
	}
	if c.Password == (password.Config{}) {
		c.Password = def.Password
	}
	if c.Revocation.KeyPrefix == "" {
		c.Revocation.KeyPrefix = def.Revocation.KeyPrefix
	}
	if c.Revocation.StoreTimeout == 0 {
		c.Revocation.StoreTimeout = def.Revocation.StoreTimeout
	}
	if c.Revocation.SweepInterval == 0 {
		c.Revocation.SweepInterval = def.Revocation.SweepInterval
	}
	if c.RateLimit.RequestLimit == 0 {
		c.RateLimit.RequestLimit = def.RateLimit.RequestLimit
	}
	if c.RateLimit.RequestWindow == 0 {
		c.RateLimit.RequestWindow = def.RateLimit.RequestWindow
	}
	if c.RateLimit.AuthMaxAttempts == 0 {
		c.RateLimit.AuthMaxAttempts = def.RateLimit.AuthMaxAttempts
	}
	if c.RateLimit.AuthWindow == 0 {
		c.RateLimit.AuthWindow = def.RateLimit.AuthWindow
	}
	if c.RateLimit.LockoutDuration == 0 {
		c.RateLimit.LockoutDuration = def.RateLimit.LockoutDuration
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeProduction, ModeDevelopment:
	default:
		return fmt.Errorf("unknown runtime mode %q", c.Mode)
	}

	if c.JWT.Algorithm != "HS256" {
		return fmt.Errorf("unsupported signing algorithm %q", c.JWT.Algorithm)
	}

	if c.Mode == ModeProduction && len(c.JWT.SigningKey) < token.MinKeyBytes {
		return errors.New("production mode requires an explicitly configured signing key of at least 32 bytes")
	}

	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}
