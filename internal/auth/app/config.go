package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/aussiebroadwan/tenantauth/pkg/cryptox"
	"github.com/aussiebroadwan/tenantauth/pkg/jwtx"
)

type Config struct {
	Issuer        string `env:"AUTH_ISSUER"         envDefault:"tenantauth"`
	Algorithm     string `env:"AUTH_ALGORITHM"      envDefault:"EdDSA"` // HS256 or EdDSA
	SigningSecret string `env:"AUTH_SIGNING_SECRET"`                    // Required for HS256, at least 32 bytes
	NumKeys       int    `env:"AUTH_NUM_KEYS"       envDefault:"3"`     // EdDSA only

	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TOKEN_TTL"  envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	ClockSkew       time.Duration `env:"AUTH_CLOCK_SKEW"        envDefault:"30s"`

	PasswordHasher string `env:"AUTH_PASSWORD_HASHER" envDefault:"bcrypt"` // bcrypt or argon2id
	BcryptCost     int    `env:"AUTH_BCRYPT_COST"     envDefault:"12"`
	PepperFile     string `env:"AUTH_PEPPER_FILE"     envDefault:"pepper"`

	LockoutThreshold int           `env:"AUTH_LOCKOUT_THRESHOLD" envDefault:"5"`
	LockoutDuration  time.Duration `env:"AUTH_LOCKOUT_DURATION"  envDefault:"15m"`
	ResetTokenTTL    time.Duration `env:"AUTH_RESET_TOKEN_TTL"   envDefault:"1h"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`

	Env                  string        `env:"ENV"                   envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	// RateLimitScale multiplies every rate limit. Only meant for load tests.
	RateLimitScale int `env:"RATE_LIMIT_SCALE" envDefault:"1"`

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// LoadConfig parses the environment into a Config and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Algorithm {
	case jwtx.AlgorithmHS256:
		if len(c.SigningSecret) < jwtx.MinHS256SecretLength {
			errs = append(errs, fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes for HS256", jwtx.MinHS256SecretLength))
		}
	case jwtx.AlgorithmEdDSA:
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_ALGORITHM %q", c.Algorithm))
	}

	switch cryptox.Algorithm(c.PasswordHasher) {
	case cryptox.AlgorithmBcrypt:
		if c.BcryptCost < cryptox.MinBcryptCost {
			errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be at least %d", cryptox.MinBcryptCost))
		}
	case cryptox.AlgorithmArgon2id:
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_PASSWORD_HASHER %q", c.PasswordHasher))
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL must be shorter than AUTH_REFRESH_TOKEN_TTL"))
	}
	if c.ClockSkew < 0 {
		errs = append(errs, errors.New("AUTH_CLOCK_SKEW must not be negative"))
	}
	if c.LockoutThreshold < 1 {
		errs = append(errs, errors.New("AUTH_LOCKOUT_THRESHOLD must be at least 1"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}

	return errors.Join(errs...)
}
