package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Mode        string
	Environment string

	DefaultOrgID int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis RedisConfig

	LLM LLMConfig

	Signing SigningConfig

	SchedulerInterval time.Duration
}

// RedisConfig configures the shared redis client used for rate limiting.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LLMConfig carries provider credentials and endpoint overrides.
type LLMConfig struct {
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	AnthropicBaseURL string
	GoogleAPIKey    string
	GoogleBaseURL   string

	RequestTimeout time.Duration
}

// SigningConfig controls contract signing defaults.
type SigningConfig struct {
	ExpiryDays int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	mode := normalizeMode(getenv("APP_MODE", ModeOSS))
	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "accordly"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Mode:         mode,
		Environment:  environment,
		DefaultOrgID: getenvInt64("DEFAULT_ORG", 0),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:     getenv("DATABASE_TYPE", "postgres"),
		DBHost:     getenv("DATABASE_HOST", "localhost"),
		DBPort:     getenv("DATABASE_PORT", "5432"),
		DBName:     getenv("DATABASE_NAME", "accordly"),
		DBUser:     getenv("DATABASE_USER", "postgres"),
		DBPassword: getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:  getenv("DATABASE_SSLMODE", "disable"),

		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},

		LLM: LLMConfig{
			OpenAIAPIKey:     strings.TrimSpace(getenv("OPENAI_API_KEY", "")),
			OpenAIBaseURL:    getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			AnthropicAPIKey:  strings.TrimSpace(getenv("ANTHROPIC_API_KEY", "")),
			AnthropicBaseURL: getenv("ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
			GoogleAPIKey:     strings.TrimSpace(getenv("GOOGLE_API_KEY", "")),
			GoogleBaseURL:    getenv("GOOGLE_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			RequestTimeout:   time.Duration(getenvInt("LLM_REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		},

		Signing: SigningConfig{
			ExpiryDays: getenvInt("SIGNING_EXPIRY_DAYS", 30),
		},

		SchedulerInterval: time.Duration(getenvInt("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
	}

	return cfg
}

var Module = fx.Module("config", fx.Provide(Load))

const (
	ModeOSS   = "oss"
	ModeCloud = "cloud"
)

func (c Config) IsCloud() bool {
	return c.Mode == ModeCloud
}

func normalizeMode(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case ModeCloud:
		return ModeCloud
	default:
		return ModeOSS
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}
