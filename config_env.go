package authcore

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names consumed by ConfigFromEnv.
const (
	envMode            = "AUTHCORE_MODE"
	envSigningKey      = "AUTHCORE_SIGNING_KEY"
	envSigningAlg      = "AUTHCORE_SIGNING_ALG"
	envAccessTTL       = "AUTHCORE_ACCESS_TTL"
	envRefreshTTL      = "AUTHCORE_REFRESH_TTL"
	envIssuer          = "AUTHCORE_ISSUER"
	envHashMemoryKB    = "AUTHCORE_HASH_MEMORY_KB"
	envHashTime        = "AUTHCORE_HASH_TIME"
	envHashParallelism = "AUTHCORE_HASH_PARALLELISM"
	envRequestLimit    = "AUTHCORE_REQUEST_LIMIT"
	envRequestWindow   = "AUTHCORE_REQUEST_WINDOW"
	envAuthMaxAttempts = "AUTHCORE_AUTH_MAX_ATTEMPTS"
	envAuthWindow      = "AUTHCORE_AUTH_WINDOW"
	envLockoutDuration = "AUTHCORE_LOCKOUT_DURATION"
	envRotateRefresh   = "AUTHCORE_ROTATE_REFRESH"
	envRedisAddr       = "AUTHCORE_REDIS_ADDR"
	envRedisPassword   = "AUTHCORE_REDIS_PASSWORD"
	envRedisDB         = "AUTHCORE_REDIS_DB"
)

// ConfigFromEnv builds a Config from the process environment, loading a
// .env file first when one exists. Unset variables keep their defaults;
// malformed values are rejected rather than silently ignored.
func ConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if v := os.Getenv(envMode); v != "" {
		cfg.Mode = Mode(v)
	}
	if v := os.Getenv(envSigningKey); v != "" {
		cfg.JWT.SigningKey = []byte(v)
	}
	if v := os.Getenv(envSigningAlg); v != "" {
		cfg.JWT.Algorithm = v
	}
	if v := os.Getenv(envIssuer); v != "" {
		cfg.JWT.Issuer = v
	}
	cfg.RedisAddr = os.Getenv(envRedisAddr)
	cfg.RedisPassword = os.Getenv(envRedisPassword)

	var err error
	if cfg.JWT.AccessTTL, err = envDuration(envAccessTTL, cfg.JWT.AccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.JWT.RefreshTTL, err = envDuration(envRefreshTTL, cfg.JWT.RefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.RequestWindow, err = envDuration(envRequestWindow, cfg.RateLimit.RequestWindow); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.AuthWindow, err = envDuration(envAuthWindow, cfg.RateLimit.AuthWindow); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.LockoutDuration, err = envDuration(envLockoutDuration, cfg.RateLimit.LockoutDuration); err != nil {
		return Config{}, err
	}

	if cfg.RateLimit.RequestLimit, err = envInt(envRequestLimit, cfg.RateLimit.RequestLimit); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.AuthMaxAttempts, err = envInt(envAuthMaxAttempts, cfg.RateLimit.AuthMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.RedisDB, err = envInt(envRedisDB, 0); err != nil {
		return Config{}, err
	}

	memory, err := envInt(envHashMemoryKB, int(cfg.Password.Memory))
	if err != nil {
		return Config{}, err
	}
	cfg.Password.Memory = uint32(memory)

	timeCost, err := envInt(envHashTime, int(cfg.Password.Time))
	if err != nil {
		return Config{}, err
	}
	cfg.Password.Time = uint32(timeCost)

	parallelism, err := envInt(envHashParallelism, int(cfg.Password.Parallelism))
	if err != nil {
		return Config{}, err
	}
	cfg.Password.Parallelism = uint8(parallelism)

	if v := os.Getenv(envRotateRefresh); v != "" {
		rotate, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %v", envRotateRefresh, err)
		}
		cfg.RotateRefreshTokens = rotate
	}

	return cfg, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return d, nil
}

func envInt(name string, fallback int) (int, error) {
	v := os.Getenv(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", name, err)
	}
	return n, nil
}
