package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	SessionSecret       string
	DatabaseURL         string
	SQLitePath          string // used when DatabaseURL is empty
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
	HealthAdminKey      string

	FinnhubBaseURL    string
	FinnhubAPIKey     string
	YahooChartBaseURL string
	QuoteCacheTTL     time.Duration
	QuoteFailureTTL   time.Duration // 0 disables failure caching
	ProviderTimeout   time.Duration
	FetchWorkers      int
	SeedBalance       decimal.Decimal
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DATABASE_SQLITE_PATH", "papertrade.db")
	viper.SetDefault("FINNHUB_BASE_URL", "https://finnhub.io/api/v1")
	viper.SetDefault("YAHOO_CHART_BASE_URL", "https://query2.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("QUOTE_CACHE_TTL", "300s")
	viper.SetDefault("QUOTE_FAILURE_TTL", "30s")
	viper.SetDefault("PROVIDER_TIMEOUT", "10s")
	viper.SetDefault("FETCH_WORKERS", 15)
	viper.SetDefault("SEED_BALANCE", "10000.00")
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults()

	env := viper.GetString("NODE_ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	seed, err := decimal.NewFromString(viper.GetString("SEED_BALANCE"))
	if err != nil {
		return nil, fmt.Errorf("config: SEED_BALANCE: %w", err)
	}
	if seed.IsNegative() {
		return nil, fmt.Errorf("config: SEED_BALANCE must not be negative")
	}
	workers := viper.GetInt("FETCH_WORKERS")
	if workers <= 0 {
		return nil, fmt.Errorf("config: FETCH_WORKERS must be positive")
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		LogLevel:            viper.GetString("LOG_LEVEL"),
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		SQLitePath:          viper.GetString("DATABASE_SQLITE_PATH"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		FinnhubBaseURL:      viper.GetString("FINNHUB_BASE_URL"),
		FinnhubAPIKey:       viper.GetString("FINNHUB_API_KEY"),
		YahooChartBaseURL:   viper.GetString("YAHOO_CHART_BASE_URL"),
		QuoteCacheTTL:       viper.GetDuration("QUOTE_CACHE_TTL"),
		QuoteFailureTTL:     viper.GetDuration("QUOTE_FAILURE_TTL"),
		ProviderTimeout:     viper.GetDuration("PROVIDER_TIMEOUT"),
		FetchWorkers:        workers,
		SeedBalance:         seed,
	}, nil
}
