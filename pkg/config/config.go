package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "OAKLINE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names used by tests and deploy tooling.
const (
	EnvAppEnv        = "OAKLINE_APP_ENV"
	EnvPort          = "OAKLINE_APP_PORT"
	EnvDBDSN         = "OAKLINE_DB_DSN"
	EnvDBHost        = "OAKLINE_DB_HOST"
	EnvDBUser        = "OAKLINE_DB_USER"
	EnvDBName        = "OAKLINE_DB_NAME"
	EnvRedisURL      = "OAKLINE_REDIS_URL"
	EnvJWTSecret     = "OAKLINE_JWT_SECRET"
	EnvJWTIssuer     = "OAKLINE_JWT_ISSUER"
	EnvJWTExpMins    = "OAKLINE_JWT_EXPIRATION_MINUTES"
	EnvGatewayKey    = "OAKLINE_GATEWAY_KEY_ID"
	EnvGatewaySecret = "OAKLINE_GATEWAY_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Pricing      PricingConfig
	Gateway      GatewayConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"OAKLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"OAKLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"OAKLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"OAKLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"OAKLINE_DB_DSN"`
	Driver string `envconfig:"OAKLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"OAKLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"OAKLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"OAKLINE_DB_USER"`
	LegacyPassword string `envconfig:"OAKLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"OAKLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"OAKLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"OAKLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"OAKLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"OAKLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"OAKLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"OAKLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"OAKLINE_REDIS_ADDR"`
	Password     string        `envconfig:"OAKLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"OAKLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"OAKLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"OAKLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"OAKLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"OAKLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"OAKLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"OAKLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"OAKLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"OAKLINE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// PricingConfig carries the fallback money policy used when a setting has no
// database override. Percentages are decimal strings to keep floats away from
// money math.
type PricingConfig struct {
	TaxRatePercent       string `envconfig:"OAKLINE_TAX_RATE_PERCENT" default:"5.00"`
	FeePercentUPI        string `envconfig:"OAKLINE_PLATFORM_FEE_UPI" default:"0.00"`
	FeePercentCard       string `envconfig:"OAKLINE_PLATFORM_FEE_CARD" default:"2.36"`
	FeePercentNetBanking string `envconfig:"OAKLINE_PLATFORM_FEE_NETBANKING" default:"2.36"`
	FeePercentWallet     string `envconfig:"OAKLINE_PLATFORM_FEE_WALLET" default:"2.36"`
	FeePercentCOD        string `envconfig:"OAKLINE_PLATFORM_FEE_COD" default:"0.00"`
	FlatShipping         string `envconfig:"OAKLINE_FLAT_SHIPPING" default:"0.00"`
	Currency             string `envconfig:"OAKLINE_CURRENCY" default:"INR"`
}

type GatewayConfig struct {
	BaseURL    string        `envconfig:"OAKLINE_GATEWAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	KeyID      string        `envconfig:"OAKLINE_GATEWAY_KEY_ID" required:"true"`
	Secret     string        `envconfig:"OAKLINE_GATEWAY_SECRET" required:"true"`
	Timeout    time.Duration `envconfig:"OAKLINE_GATEWAY_TIMEOUT" default:"10s"`
	MaxRetries uint64        `envconfig:"OAKLINE_GATEWAY_MAX_RETRIES" default:"3"`
	RetryDelay time.Duration `envconfig:"OAKLINE_GATEWAY_RETRY_DELAY" default:"250ms"`
}

type CheckoutConfig struct {
	// ReservationTTL bounds how long a gateway checkout may hold stock
	// without a verified payment before the sweep reclaims it.
	ReservationTTL           time.Duration `envconfig:"OAKLINE_CHECKOUT_RESERVATION_TTL" default:"30m"`
	CompletionIdempotencyTTL time.Duration `envconfig:"OAKLINE_CHECKOUT_COMPLETION_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"OAKLINE_CRON_INTERVAL" default:"5m"`
	LockTTL     time.Duration `envconfig:"OAKLINE_CRON_LOCK_TTL" default:"10m"`
	MetricsPort string        `envconfig:"OAKLINE_CRON_METRICS_PORT" default:"9102"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"OAKLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"OAKLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"OAKLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Channel        string `envconfig:"OAKLINE_OUTBOX_CHANNEL" default:"oakline:events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"OAKLINE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
