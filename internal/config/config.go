package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/subosito/gotenv"
)

// Credit store drivers
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Host     string
	Port     string
	Env      string
	LogLevel string

	DatabaseURL            string
	DatabaseMaxConnections int
	DatabaseMaxIdleTime    time.Duration

	RedisURL string

	JWTSecret         string
	AdminEmail        string
	AdminPasswordHash string

	CreditsStore               string
	CreditsDefaultAllocation   int64
	CreditsLowBalanceThreshold int64
	RefundOnRelayFailure       bool

	N8NBaseURL           string
	N8NWebhookPath       string
	N8NSharedSecret      string
	N8NTimeout           time.Duration
	N8NCallbackTolerance time.Duration

	AIQueryCost        int64
	ProductCreateCost  int64
	ListingPublishCost int64
}

func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = gotenv.Load()

	cfg := &Config{
		Host:     getEnvString("HOST", "localhost"),
		Port:     getEnvString("PORT", "8080"),
		Env:      getEnvString("ENV", "development"),
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		DatabaseURL:            getEnvString("DATABASE_URL", "postgres://localhost/agency_dev?sslmode=disable"),
		DatabaseMaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
		DatabaseMaxIdleTime:    getEnvDuration("DATABASE_MAX_IDLE_TIME", 15*time.Minute),

		RedisURL: getEnvString("REDIS_URL", "redis://localhost:6379/0"),

		JWTSecret:         getEnvString("JWT_SECRET", ""),
		AdminEmail:        getEnvString("ADMIN_EMAIL", ""),
		AdminPasswordHash: getEnvString("ADMIN_PASSWORD_HASH", ""),

		CreditsStore:               strings.ToLower(getEnvString("CREDITS_STORE", StoreMemory)),
		CreditsDefaultAllocation:   getEnvInt64("CREDITS_DEFAULT_ALLOCATION", 1000),
		CreditsLowBalanceThreshold: getEnvInt64("CREDITS_LOW_BALANCE_THRESHOLD", 100),
		RefundOnRelayFailure:       getEnvBool("CREDITS_REFUND_ON_RELAY_FAILURE", false),

		// relay settings are checked per call, not here
		N8NBaseURL:           getEnvString("N8N_BASE_URL", ""),
		N8NWebhookPath:       getEnvString("N8N_WEBHOOK_PATH", ""),
		N8NSharedSecret:      getEnvString("N8N_SHARED_SECRET", ""),
		N8NTimeout:           getEnvDuration("N8N_TIMEOUT", 5*time.Second),
		N8NCallbackTolerance: getEnvDuration("N8N_CALLBACK_TOLERANCE", 5*time.Minute),

		AIQueryCost:        getEnvInt64("AI_QUERY_COST", 5),
		ProductCreateCost:  getEnvInt64("PRODUCT_CREATE_COST", 10),
		ListingPublishCost: getEnvInt64("LISTING_PUBLISH_COST", 3),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every startup problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.JWTSecret == "" {
		result = multierror.Append(result, fmt.Errorf("JWT_SECRET is required"))
	}

	switch c.CreditsStore {
	case StoreMemory, StorePostgres, StoreRedis:
	default:
		result = multierror.Append(result, fmt.Errorf("CREDITS_STORE must be one of memory, postgres, redis (got %q)", c.CreditsStore))
	}

	if c.CreditsDefaultAllocation < 0 {
		result = multierror.Append(result, fmt.Errorf("CREDITS_DEFAULT_ALLOCATION must not be negative"))
	}

	for name, cost := range map[string]int64{
		"AI_QUERY_COST":        c.AIQueryCost,
		"PRODUCT_CREATE_COST":  c.ProductCreateCost,
		"LISTING_PUBLISH_COST": c.ListingPublishCost,
	} {
		if cost <= 0 {
			result = multierror.Append(result, fmt.Errorf("%s must be positive", name))
		}
	}

	if (c.AdminEmail == "") != (c.AdminPasswordHash == "") {
		result = multierror.Append(result, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD_HASH must be set together"))
	}

	return result.ErrorOrNil()
}

// RelayConfigured reports whether all relay settings are present. Missing
// settings are not fatal at startup; each relay call reports them instead.
func (c *Config) RelayConfigured() bool {
	if c.N8NBaseURL == "" || c.N8NWebhookPath == "" || c.N8NSharedSecret == "" {
		return false
	}
	u, err := url.Parse(c.N8NBaseURL)
	return err == nil && u.IsAbs()
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
