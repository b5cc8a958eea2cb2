package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App     AppConfig
	Service ServiceConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Stripe  StripeConfig
	Billing BillingConfig
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
	Env          string `envconfig:"FARMCRATE_APP_ENV" required:"true"`
	Port         string `envconfig:"FARMCRATE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FARMCRATE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FARMCRATE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"FARMCRATE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FARMCRATE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"FARMCRATE_DB_DSN"`

	Host     string `envconfig:"FARMCRATE_DB_HOST"`
	Port     int    `envconfig:"FARMCRATE_DB_PORT" default:"5432"`
	User     string `envconfig:"FARMCRATE_DB_USER"`
	Password string `envconfig:"FARMCRATE_DB_PASSWORD"`
	Name     string `envconfig:"FARMCRATE_DB_NAME"`
	SSLMode  string `envconfig:"FARMCRATE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMCRATE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMCRATE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMCRATE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMCRATE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	if db.Host == "" {
		missing = append(missing, "FARMCRATE_DB_HOST")
	}
	if db.User == "" {
		missing = append(missing, "FARMCRATE_DB_USER")
	}
	if db.Name == "" {
		missing = append(missing, "FARMCRATE_DB_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("database config incomplete: set FARMCRATE_DB_DSN or %s", strings.Join(missing, ", "))
	}

	db.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FARMCRATE_REDIS_URL"`
	Address      string        `envconfig:"FARMCRATE_REDIS_ADDR"`
	Password     string        `envconfig:"FARMCRATE_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMCRATE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMCRATE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMCRATE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMCRATE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMCRATE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMCRATE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMCRATE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMCRATE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FARMCRATE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey            string `envconfig:"FARMCRATE_STRIPE_API_KEY"`
	WebhookSecret     string `envconfig:"FARMCRATE_STRIPE_WEBHOOK_SECRET"`
	Env               string `envconfig:"FARMCRATE_STRIPE_ENV" default:"test"`
	SuccessURL        string `envconfig:"FARMCRATE_STRIPE_SUCCESS_URL"`
	CancelURL         string `envconfig:"FARMCRATE_STRIPE_CANCEL_URL"`
	OnboardRefreshURL string `envconfig:"FARMCRATE_STRIPE_ONBOARD_REFRESH_URL"`
	OnboardReturnURL  string `envconfig:"FARMCRATE_STRIPE_ONBOARD_RETURN_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type BillingConfig struct {
	BaseHostingFee        int64         `envconfig:"FARMCRATE_BILLING_BASE_HOSTING_FEE" default:"50"`
	CommissionRateBps     int64         `envconfig:"FARMCRATE_BILLING_COMMISSION_RATE_BPS" default:"1200"`
	RunInterval           time.Duration `envconfig:"FARMCRATE_BILLING_RUN_INTERVAL" default:"24h"`
	WebhookIdempotencyTTL time.Duration `envconfig:"FARMCRATE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}
