package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port     string
	Env      string // dev|prod
	LogLevel string
	LogDir   string

	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	UsageBackend  string // redis|memory

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	OpenAIBaseURL     string
	OpenAIAPIKey      string
	DefaultModel      string
	HeuristicDelayMin time.Duration
	HeuristicDelayMax time.Duration
	MaxUploadBytes    int64

	StripeSecretKey     string
	StripeWebhookSecret string
	StripePricePremium  string
	StripePricePro      string

	FrontendURL    string
	AllowedOrigins []string

	// SettingsSecret encrypts saved user API keys at rest.
	SettingsSecret string
}

func Load() *Config {
	return &Config{
		Port:     getenv("PORT", "8080"),
		Env:      strings.ToLower(getenv("ENV", "prod")),
		LogLevel: strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogDir:   getenv("LOG_DIR", "logs"),

		PostgresDSN:   getenv("POSTGRES_DSN", ""),
		MongoURI:      getenv("MONGO_URI", ""),
		MongoDB:       getenv("MONGO_DB", "pdf_chat"),
		RedisAddr:     getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		UsageBackend:  strings.ToLower(getenv("USAGE_BACKEND", "redis")),

		MinioEndpoint:  getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey: getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getenv("MINIO_BUCKET", "pdf-chat-uploads"),
		MinioUseSSL:    getenv("MINIO_USE_SSL", "false") == "true",

		OpenAIBaseURL:     getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIAPIKey:      getenv("OPENAI_API_KEY", ""),
		DefaultModel:      getenv("OPENAI_MODEL", "gpt-4o"),
		HeuristicDelayMin: getenvDuration("HEURISTIC_DELAY_MIN", time.Second),
		HeuristicDelayMax: getenvDuration("HEURISTIC_DELAY_MAX", 2*time.Second),
		MaxUploadBytes:    getenvInt64("MAX_UPLOAD_BYTES", 10<<20),

		StripeSecretKey:     getenv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getenv("STRIPE_WEBHOOK_SECRET", ""),
		StripePricePremium:  getenv("STRIPE_PRICE_PREMIUM", ""),
		StripePricePro:      getenv("STRIPE_PRICE_PRO", ""),

		FrontendURL:    strings.TrimRight(getenv("FRONTEND_URL", "http://localhost:5173"), "/"),
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),

		SettingsSecret: getenv("SETTINGS_SECRET", ""),
	}
}

// Validate returns warnings for optional integrations and an error when a
// required store is not configured.
func (c *Config) Validate() (warnings []string, err error) {
	if c.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if c.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if c.UsageBackend != "redis" && c.UsageBackend != "memory" {
		return nil, errors.New("USAGE_BACKEND must be redis or memory")
	}

	if c.StripeSecretKey == "" {
		warnings = append(warnings, "STRIPE_SECRET_KEY is empty, checkout is disabled")
	}
	if c.StripeWebhookSecret == "" {
		warnings = append(warnings, "STRIPE_WEBHOOK_SECRET is empty, webhooks will be rejected")
	}
	if c.StripePricePremium == "" || c.StripePricePro == "" {
		warnings = append(warnings, "Stripe price ids are not fully configured")
	}
	if c.OpenAIAPIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY is empty, users must bring their own key")
	}
	if c.SettingsSecret == "" {
		warnings = append(warnings, "SETTINGS_SECRET is empty, saved API keys are stored unencrypted")
	}
	if c.HeuristicDelayMax < c.HeuristicDelayMin {
		warnings = append(warnings, "HEURISTIC_DELAY_MAX is below HEURISTIC_DELAY_MIN, using the minimum")
	}
	return warnings, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getenv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func getenvInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(getenv(key, ""), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
