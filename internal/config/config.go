package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Minio    MinioConfig
	JWT      JWTConfig
	MPesa    MPesaConfig
	Pricing  PricingConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	AppEnv         string
	Port           int
	RequestTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type PostgresConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	UseSSL        bool
	Bucket        string
	PublicBaseURL string
}

// JWTConfig selects token verification. When JWKSURL is set, tokens are verified
// against the identity provider keys instead of the shared secret.
type JWTConfig struct {
	Secret  string
	JWKSURL string
}

// MPesaConfig holds Daraja STK push credentials. CallbackToken is appended to
// CallbackURL and checked on every callback.
type MPesaConfig struct {
	BaseURL             string
	ConsumerKey         string
	ConsumerSecret      string
	ShortCode           string
	PassKey             string
	CallbackURL         string
	CallbackToken       string
	ConfirmationTimeout time.Duration
}

// Enabled reports whether STK push credentials are configured.
func (m MPesaConfig) Enabled() bool {
	return m.ConsumerKey != "" && m.ConsumerSecret != ""
}

// PricingConfig holds the rates used when an organization has not configured its own.
type PricingConfig struct {
	DiscountRate decimal.Decimal
	TaxRate      decimal.Decimal
	TaxLabel     string
}

type JobsConfig struct {
	AlertInterval    time.Duration
	ExpiryHorizonDay int
}

// Load reads environment variables (optionally from envFile) into a Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// a missing .env is fine when the environment is set directly
		_ = godotenv.Load()
	}

	cfg := &Config{
		Server: ServerConfig{
			AppEnv:         getEnv("APP_ENV", "dev"),
			Port:           getEnvInt("PORT", 8080),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOGGER_LEVEL", "info"),
			Encoding: getEnv("LOGGER_ENCODING", "json"),
		},
		Postgres: PostgresConfig{
			DSN:             os.Getenv("DATABASE_URL"),
			MaxConns:        int32(getEnvInt("DATABASE_MAX_CONNS", 20)),
			MinConns:        int32(getEnvInt("DATABASE_MIN_CONNS", 2)),
			MaxConnLifetime: getEnvDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimPrefix(strings.TrimPrefix(getEnv("REDIS_ADDR", "localhost:6379"), "redis://"), "rediss://"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Minio: MinioConfig{
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey:     getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:        getEnvBool("MINIO_USE_SSL", false),
			Bucket:        getEnv("MINIO_BUCKET", "dukapos-uploads"),
			PublicBaseURL: os.Getenv("MINIO_PUBLIC_BASE_URL"),
		},
		JWT: JWTConfig{
			Secret:  os.Getenv("JWT_SECRET"),
			JWKSURL: os.Getenv("JWT_JWKS_URL"),
		},
		MPesa: MPesaConfig{
			BaseURL:             getEnv("MPESA_BASE_URL", "https://sandbox.safaricom.co.ke"),
			ConsumerKey:         os.Getenv("MPESA_CONSUMER_KEY"),
			ConsumerSecret:      os.Getenv("MPESA_CONSUMER_SECRET"),
			ShortCode:           getEnv("MPESA_SHORTCODE", "174379"),
			PassKey:             os.Getenv("MPESA_PASSKEY"),
			CallbackURL:         os.Getenv("MPESA_CALLBACK_URL"),
			CallbackToken:       os.Getenv("MPESA_CALLBACK_TOKEN"),
			ConfirmationTimeout: getEnvDuration("MPESA_CONFIRMATION_TIMEOUT", 90*time.Second),
		},
		Pricing: PricingConfig{
			DiscountRate: getEnvDecimal("PRICING_DISCOUNT_RATE", decimal.RequireFromString("0.10")),
			TaxRate:      getEnvDecimal("PRICING_TAX_RATE", decimal.RequireFromString("0.025")),
			TaxLabel:     getEnv("PRICING_TAX_LABEL", "Tax"),
		},
		Jobs: JobsConfig{
			AlertInterval:    getEnvDuration("JOBS_ALERT_INTERVAL", 30*time.Minute),
			ExpiryHorizonDay: getEnvInt("JOBS_EXPIRY_HORIZON_DAYS", 14),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.MPesa.ConfirmationTimeout <= 0 {
		return errors.New("MPESA_CONFIRMATION_TIMEOUT must be positive")
	}
	if c.MPesa.Enabled() && c.MPesa.CallbackToken == "" {
		return errors.New("MPESA_CALLBACK_TOKEN is required when M-Pesa credentials are set")
	}
	if !validRate(c.Pricing.DiscountRate) {
		return fmt.Errorf("PRICING_DISCOUNT_RATE must be in [0,1), got %s", c.Pricing.DiscountRate)
	}
	if !validRate(c.Pricing.TaxRate) {
		return fmt.Errorf("PRICING_TAX_RATE must be in [0,1), got %s", c.Pricing.TaxRate)
	}
	if c.Jobs.AlertInterval <= 0 {
		return errors.New("JOBS_ALERT_INTERVAL must be positive")
	}
	return nil
}

func validRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThan(decimal.NewFromInt(1))
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}
