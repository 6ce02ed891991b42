package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Mapstructure tags are used to map environment variables and config file keys.
type Config struct {
	// Server Configuration
	ServerAddress      string `mapstructure:"SERVER_ADDRESS"` // e.g., ":8080"
	AppEnv             string `mapstructure:"APP_ENV"`        // "production" switches gin to release mode
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RateLimitPerMinute uint   `mapstructure:"RATE_LIMIT_PER_MINUTE"` // applied to the generation routes

	// Logging
	LogLevel    string `mapstructure:"LOG_LEVEL"`    // debug, info, warn, error
	LogEncoding string `mapstructure:"LOG_ENCODING"` // json or console

	// AI Configuration
	AIProvider       string        `mapstructure:"AI_PROVIDER"` // "gemini" or "openai"
	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL    string        `mapstructure:"GEMINI_BASE_URL"`
	OpenAIKey        string        `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel      string        `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL    string        `mapstructure:"OPENAI_BASE_URL"`
	AIRequestTimeout time.Duration `mapstructure:"AI_REQUEST_TIMEOUT"` // 0 disables the client timeout

	// Document Store
	StoreDriver   string `mapstructure:"STORE_DRIVER"` // "sqlite" or "redis"
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Session tokens are minted by the identity provider and signed with this secret.
	SessionSecret string `mapstructure:"SESSION_SECRET"`

	// Preview & uploads
	PreviewExtractor string `mapstructure:"PREVIEW_EXTRACTOR"` // "regex" or "scan"
	PreviewCDNBase   string `mapstructure:"PREVIEW_CDN_BASE"`
	DesignMaxBytes   int64  `mapstructure:"DESIGN_MAX_BYTES"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":        ":8080",
	"APP_ENV":               "development",
	"CORS_ALLOWED_ORIGINS":  "http://localhost:3000",
	"RATE_LIMIT_PER_MINUTE": 20,
	"LOG_LEVEL":             "info",
	"LOG_ENCODING":          "json",
	"AI_PROVIDER":           "gemini",
	"GEMINI_API_KEY":        "",
	"GEMINI_MODEL":          "gemini-pro",
	"GEMINI_BASE_URL":       "https://generativelanguage.googleapis.com",
	"OPENAI_API_KEY":        "",
	"OPENAI_MODEL":          "gpt-4o",
	"OPENAI_BASE_URL":       "",
	"AI_REQUEST_TIMEOUT":    "0s",
	"STORE_DRIVER":          "sqlite",
	"SQLITE_PATH":           "data/generated_apps.db",
	"REDIS_ADDR":            "localhost:6379",
	"REDIS_PASSWORD":        "",
	"REDIS_DB":              0,
	"SESSION_SECRET":        "",
	"PREVIEW_EXTRACTOR":     "regex",
	"PREVIEW_CDN_BASE":      "https://unpkg.com",
	"DESIGN_MAX_BYTES":      10 << 20,
}

// LoadConfig reads configuration from file and environment variables.
// Returns the config file in use ("" when only the environment was read).
func LoadConfig(path string) (config Config, used string, err error) {
	v := viper.New()
	v.AddConfigPath(path)     // Path to look for the config file in
	v.SetConfigName("config") // Name of config file (without extension)
	v.SetConfigType("yaml")

	// AutomaticEnv only resolves keys viper already knows about, so every key gets a default.
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, "", fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		used = v.ConfigFileUsed()
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, "", fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err = config.Validate(); err != nil {
		return Config{}, "", err
	}
	return config, used, nil
}

// Validate checks cross-field requirements that defaults can't express.
func (c Config) Validate() error {
	switch strings.ToLower(c.AIProvider) {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when AI_PROVIDER=gemini")
		}
	case "openai":
		if c.OpenAIKey == "" {
			return errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AIProvider)
	}

	switch strings.ToLower(c.StoreDriver) {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch strings.ToLower(c.PreviewExtractor) {
	case "regex", "scan":
	default:
		return fmt.Errorf("unsupported PREVIEW_EXTRACTOR %q", c.PreviewExtractor)
	}
	return nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
