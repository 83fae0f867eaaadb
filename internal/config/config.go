package config

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL             = "https://api.openai.com/v1"
	DefaultModel               = "gpt-3.5-turbo"
	DefaultTemperature         = 0.7
	DefaultMaxTokens           = 120
	DefaultRateLimitAttempts   = 3
	DefaultRateLimitRetryDelay = 5 * time.Second
	DefaultCompletionTimeout   = 30 * time.Second
)

// ErrMissingAPIKey is returned by Load when no completion API key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set")

type Config struct {
	Port    string
	GinMode string

	// Completion service credential. Never logged.
	OpenAIAPIKey string

	Generation GenerationConfig `yaml:"generation"`

	// Server
	ServerShutdownTimeoutSeconds int

	// CORS
	CORSAllowedOrigins string

	// Logging
	LogLevel  string
	LogFormat string
}

// GenerationConfig holds the parameters of the remote completion call.
type GenerationConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	// RequestTimeout bounds a single HTTP call to the completion service.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	RateLimit RateLimitRetryConfig `yaml:"rate_limit"`
}

// RateLimitRetryConfig controls retries after the completion service rejects a call with 429.
type RateLimitRetryConfig struct {
	// MaxAttempts counts the first call, so 3 means two retries.
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// Validate fills defaults for zero values and rejects settings the completion call cannot use.
func (g *GenerationConfig) Validate() error {
	if g.BaseURL == "" {
		g.BaseURL = DefaultBaseURL
	}
	g.BaseURL = strings.TrimRight(g.BaseURL, "/")

	if g.Model == "" {
		g.Model = DefaultModel
	}
	if g.Temperature == 0 {
		g.Temperature = DefaultTemperature
	}
	if g.MaxTokens == 0 {
		g.MaxTokens = DefaultMaxTokens
	}
	if g.RequestTimeout == 0 {
		g.RequestTimeout = DefaultCompletionTimeout
	}
	if g.RateLimit.MaxAttempts == 0 {
		g.RateLimit.MaxAttempts = DefaultRateLimitAttempts
	}
	if g.RateLimit.RetryDelay == 0 {
		g.RateLimit.RetryDelay = DefaultRateLimitRetryDelay
	}

	switch {
	case g.Temperature < 0 || g.Temperature > 2:
		return fmt.Errorf("generation temperature %v out of range [0, 2]", g.Temperature)
	case g.MaxTokens < 0:
		return fmt.Errorf("generation max_tokens must be positive, got %d", g.MaxTokens)
	case g.RateLimit.MaxAttempts < 0:
		return fmt.Errorf("rate_limit max_attempts must be positive, got %d", g.RateLimit.MaxAttempts)
	case g.RateLimit.RetryDelay < 0:
		return fmt.Errorf("rate_limit retry_delay must not be negative, got %v", g.RateLimit.RetryDelay)
	}

	return nil
}

// Load builds the configuration once at program start from .env, the process
// environment and an optional YAML file named by CONFIG_FILE.
//
// Environment variables override the YAML generation block.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		OpenAIAPIKey: strings.TrimSpace(getEnvOrDefault("OPENAI_API_KEY", "")),

		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		CORSAllowedOrigins: getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	switch {
	case err == nil:
		defer configFile.Close()
		log.Printf("Loading config file: %v", configFilePath)
		if err := LoadConfigFile(configFile, cfg); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configFilePath, err)
		}
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults", configFilePath)
	default:
		return nil, fmt.Errorf("open config file %s: %w", configFilePath, err)
	}

	applyGenerationEnv(&cfg.Generation)

	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return cfg, nil
}

func applyGenerationEnv(g *GenerationConfig) {
	g.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", g.BaseURL)
	g.Model = getEnvOrDefault("OPENAI_MODEL", g.Model)
	g.RequestTimeout = getEnvAsDuration("COMPLETION_TIMEOUT", g.RequestTimeout)
	g.RateLimit.MaxAttempts = getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", g.RateLimit.MaxAttempts)
	g.RateLimit.RetryDelay = getEnvAsDuration("RATE_LIMIT_RETRY_DELAY", g.RateLimit.RetryDelay)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

// LoadConfigFile decodes a YAML document into config.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return nil
}
