package authcore

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskhive/authcore/audit"
	"github.com/taskhive/authcore/metrics"
	"github.com/taskhive/authcore/password"
	"github.com/taskhive/authcore/rate"
	"github.com/taskhive/authcore/revocation"
	"github.com/taskhive/authcore/token"
)

// Builder assembles a Gateway. Revocation, rate-limit and audit state are
// owned by the built Gateway instance, never process-wide, so independent
// gateways (and tests with fakes) stay isolated.
type Builder struct {
	config    Config
	configSet bool
	redis     redis.UniversalClient
	users     UserSource
	logger    zerolog.Logger
	loggerSet bool
	sink      audit.Sink
	metrics   *metrics.Metrics
	clock     func() time.Time
	built     bool
}

// New returns a Builder seeded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the configuration. Unset fields are filled with
// defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	b.configSet = true
	return b
}

// WithRedis injects the shared key-value store client. Without one (and
// without Config.RedisAddr) the gateway runs in single-instance mode.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserSource injects the host-side credential lookup. Required.
func (b *Builder) WithUserSource(users UserSource) *Builder {
	b.users = users
	return b
}

// WithLogger injects the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	b.loggerSet = true
	return b
}

// WithAuditSink injects the decision sink for the external observability
// collaborator. Without one, decisions are dropped.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.sink = sink
	return b
}

// WithMetrics injects a metrics handle. Nil disables instrumentation.
func (b *Builder) WithMetrics(m *metrics.Metrics) *Builder {
	b.metrics = m
	return b
}

// WithClock overrides the time source for every time-sensitive component:
// token expiry, revocation TTLs and both limiter windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and wires the Gateway. A Builder is
// single-use.
func (b *Builder) Build() (*Gateway, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.users == nil {
		return nil, errors.New("a user source is required")
	}

	cfg := b.config
	if b.configSet {
		cfg.applyDefaults()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := b.logger
	if !b.loggerSet {
		log = zerolog.Nop()
	}

	ephemeralKey := false
	if len(cfg.JWT.SigningKey) == 0 {
		// validate already refused this in production mode.
		key := make([]byte, token.MinKeyBytes)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("generate ephemeral signing key: %w", err)
		}
		cfg.JWT.SigningKey = key
		ephemeralKey = true
		log.Warn().Msg("authcore: using an ephemeral signing key; other instances will reject this instance's tokens — unsuitable for multi-instance deployments")
	}

	hasher, err := password.New(cfg.Password)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(token.Config{
		SigningKey: cfg.JWT.SigningKey,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Now:        b.clock,
	})
	if err != nil {
		return nil, err
	}

	client := b.redis
	if client == nil && cfg.RedisAddr != "" {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}

	revocations := revocation.NewStore(client, revocation.Config{
		KeyPrefix:     cfg.Revocation.KeyPrefix,
		StoreTimeout:  cfg.Revocation.StoreTimeout,
		SweepInterval: cfg.Revocation.SweepInterval,
		Now:           b.clock,
		Logger:        log,
	})

	requests, err := rate.NewLimiter(client, rate.Config{
		Limit:        cfg.RateLimit.RequestLimit,
		Window:       cfg.RateLimit.RequestWindow,
		StoreTimeout: cfg.Revocation.StoreTimeout,
		Now:          b.clock,
		Logger:       log,
	})
	if err != nil {
		revocations.Close()
		return nil, err
	}

	attempts, err := rate.NewAuthLimiter(rate.AuthConfig{
		MaxAttempts:     cfg.RateLimit.AuthMaxAttempts,
		Window:          cfg.RateLimit.AuthWindow,
		LockoutDuration: cfg.RateLimit.LockoutDuration,
		Now:             b.clock,
	})
	if err != nil {
		revocations.Close()
		return nil, err
	}

	// Pre-computed stored form burned on unknown-identity logins so their
	// timing matches the wrong-secret path.
	decoyHash, err := hasher.Hash("authcore-decoy-secret")
	if err != nil {
		revocations.Close()
		return nil, err
	}

	return &Gateway{
		config:       cfg,
		hasher:       hasher,
		issuer:       issuer,
		revocations:  revocations,
		requests:     requests,
		attempts:     attempts,
		users:        b.users,
		log:          log,
		auditor:      audit.NewDispatcher(cfg.Audit, b.sink),
		metrics:      b.metrics,
		decoyHash:    decoyHash,
		ephemeralKey: ephemeralKey,
		sharedStore:  client != nil,
	}, nil
}
