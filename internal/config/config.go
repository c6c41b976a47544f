// Package config loads and validates service configuration from the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	pkgconfig "github.com/guardkit/guardkit/pkg/config"
)

// devJWTSecret is the default signing secret shipped for local development.
// It must never survive into any other environment.
const devJWTSecret = "insecure-dev-secret-change-me-0123456789"

// minJWTSecretLength is the minimum signing secret length in bytes. A shorter
// secret is a fatal misconfiguration regardless of environment.
const minJWTSecretLength = 32

// ErrMisconfiguredSecret is returned by Load when the JWT signing secret is
// unusable. The process must not serve traffic in that state.
var ErrMisconfiguredSecret = errors.New("misconfigured jwt secret")

// Config holds all configuration for the auth service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"guardkit"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"guardkit_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"guardkit"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Connection pool tuning
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging threshold in milliseconds (0 disables)
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Redis (optional; backs the rate limiter when enabled)
	RedisEnabled  bool   `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string        `env:"JWT_SECRET" envDefault:"insecure-dev-secret-change-me-0123456789"`
	JWTAlgorithm     string        `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"30m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Password hashing (argon2id cost parameters)
	HashMemoryKiB   uint32 `env:"HASH_MEMORY_KIB" envDefault:"65536"`
	HashIterations  uint32 `env:"HASH_ITERATIONS" envDefault:"3"`
	HashParallelism uint8  `env:"HASH_PARALLELISM" envDefault:"4"`

	// Login rate limiting
	RateLimitEnabled       bool          `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitLoginAttempts int           `env:"RATE_LIMIT_LOGIN_ATTEMPTS" envDefault:"5"`
	RateLimitLoginWindow   time.Duration `env:"RATE_LIMIT_LOGIN_WINDOW" envDefault:"15m"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables. Validate runs as part
// of loading, so a returned Config is always usable.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load auth config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the cross-field rules the flat env tags cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Tokens are signed symmetrically; the secret length floor holds in every
	// environment, development included.
	if len(c.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("%w: JWT_SECRET must be at least %d bytes, got %d",
			ErrMisconfiguredSecret, minJWTSecretLength, len(c.JWTSecret))
	}
	if c.Environment != "development" && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("%w: JWT_SECRET must be explicitly set in %q mode",
			ErrMisconfiguredSecret, c.Environment)
	}

	if c.JWTAlgorithm != "HS256" {
		return fmt.Errorf("unsupported JWT_ALGORITHM %q: only HS256 is supported", c.JWTAlgorithm)
	}

	if c.JWTAccessExpiry <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRY must be positive, got %s", c.JWTAccessExpiry)
	}
	if c.JWTRefreshExpiry <= c.JWTAccessExpiry {
		return fmt.Errorf("JWT_REFRESH_TOKEN_EXPIRY (%s) must exceed JWT_ACCESS_TOKEN_EXPIRY (%s)",
			c.JWTRefreshExpiry, c.JWTAccessExpiry)
	}

	if c.HashMemoryKiB == 0 || c.HashIterations == 0 || c.HashParallelism == 0 {
		return fmt.Errorf("hash parameters must be positive: memory=%d iterations=%d parallelism=%d",
			c.HashMemoryKiB, c.HashIterations, c.HashParallelism)
	}

	if c.RateLimitEnabled {
		if c.RateLimitLoginAttempts < 1 {
			return fmt.Errorf("RATE_LIMIT_LOGIN_ATTEMPTS must be at least 1, got %d", c.RateLimitLoginAttempts)
		}
		if c.RateLimitLoginWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_LOGIN_WINDOW must be positive, got %s", c.RateLimitLoginWindow)
		}
	}

	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// RedisAddr returns the host:port address of the Redis server.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}
