package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	PlatformMindsDB = "mindsdb"
	PlatformDirect  = "direct"

	ProviderOpenAI      = "openai"
	ProviderHuggingFace = "huggingface"

	// SentimentEngineVADER scores comments locally. Only the direct platform
	// can run it.
	SentimentEngineVADER = "vader"
)

type Config struct {
	Env           string
	Port          string
	LogLevel      string
	AllowedOrigin string

	Platform        string
	ModelProvider   string
	SentimentEngine string
	ClassifyWorkers int

	MindsDBURL      string
	MindsDBEmail    string
	MindsDBPassword string
	ProjectName     string
	DatabaseName    string

	YouTubeAPIKey     string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	HuggingFaceAPIKey string
	HuggingFaceURL    string

	DefaultCommentLimit int
	MaxCommentLimit     int

	RequestTimeout      time.Duration
	ClientTimeout       time.Duration
	PollInterval        time.Duration
	TrainingTimeout     time.Duration
	HealthcheckInterval time.Duration

	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Env:           getEnv("APP_ENV", "dev"),
		Port:          getEnv("PORT", "5000"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		AllowedOrigin: getEnv("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),

		Platform:        strings.ToLower(getEnv("PLATFORM", PlatformMindsDB)),
		ModelProvider:   strings.ToLower(getEnv("MODEL_PROVIDER", ProviderOpenAI)),
		SentimentEngine: strings.ToLower(os.Getenv("SENTIMENT_ENGINE")),
		ClassifyWorkers: getEnvAsInt("CLASSIFY_WORKERS", 8),

		MindsDBURL:      strings.TrimRight(getEnv("MINDSDB_URL", "https://cloud.mindsdb.com"), "/"),
		MindsDBEmail:    os.Getenv("MINDSDB_EMAIL"),
		MindsDBPassword: os.Getenv("MINDSDB_PASSWORD"),
		ProjectName:     getEnv("MINDSDB_PROJECT", "youtube_insights"),
		DatabaseName:    getEnv("MINDSDB_DATABASE", "mindsdb_youtube"),

		YouTubeAPIKey:     os.Getenv("YOUTUBE_API_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		HuggingFaceAPIKey: os.Getenv("HUGGINGFACE_API_KEY"),
		HuggingFaceURL:    getEnv("HUGGINGFACE_URL", "https://api-inference.huggingface.co"),

		DefaultCommentLimit: getEnvAsInt("DEFAULT_COMMENT_LIMIT", 10),
		MaxCommentLimit:     getEnvAsInt("MAX_COMMENT_LIMIT", 0),

		RequestTimeout:      getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		ClientTimeout:       getEnvAsDuration("CLIENT_TIMEOUT", 30*time.Second),
		PollInterval:        getEnvAsDuration("MODEL_POLL_INTERVAL", time.Second),
		TrainingTimeout:     getEnvAsDuration("MODEL_TRAINING_TIMEOUT", 5*time.Minute),
		HealthcheckInterval: getEnvAsDuration("HEALTHCHECK_INTERVAL", 15*time.Second),

		ValkeyAddress:  os.Getenv("VALKEY_INIT_ADDRESS"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),
		ValkeyTLS:      getEnvAsBool("VALKEY_TLS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every credential the selected platform and provider
// need is present.
func (c *Config) Validate() error {
	switch c.Platform {
	case PlatformMindsDB:
		if err := require("MINDSDB_EMAIL", c.MindsDBEmail); err != nil {
			return err
		}
		if err := require("MINDSDB_PASSWORD", c.MindsDBPassword); err != nil {
			return err
		}
	case PlatformDirect:
	default:
		return fmt.Errorf("invalid PLATFORM %q: must be %q or %q", c.Platform, PlatformMindsDB, PlatformDirect)
	}

	if err := require("YOUTUBE_API_KEY", c.YouTubeAPIKey); err != nil {
		return err
	}

	switch c.ModelProvider {
	case ProviderOpenAI:
		if err := require("OPENAI_API_KEY", c.OpenAIAPIKey); err != nil {
			return err
		}
	case ProviderHuggingFace:
		// mindsdb holds its own hugging face credentials
		if c.Platform == PlatformDirect {
			if err := require("HUGGINGFACE_API_KEY", c.HuggingFaceAPIKey); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("invalid MODEL_PROVIDER %q: must be %q or %q", c.ModelProvider, ProviderOpenAI, ProviderHuggingFace)
	}

	switch c.SentimentEngine {
	case "", c.ModelProvider:
	case SentimentEngineVADER:
		if c.Platform != PlatformDirect {
			return fmt.Errorf("SENTIMENT_ENGINE %q needs PLATFORM %q", c.SentimentEngine, PlatformDirect)
		}
	default:
		return fmt.Errorf("invalid SENTIMENT_ENGINE %q: must be empty or %q", c.SentimentEngine, SentimentEngineVADER)
	}

	if c.ClassifyWorkers <= 0 {
		return fmt.Errorf("invalid CLASSIFY_WORKERS %d: must be positive", c.ClassifyWorkers)
	}
	if c.DefaultCommentLimit <= 0 {
		return fmt.Errorf("invalid DEFAULT_COMMENT_LIMIT %d: must be positive", c.DefaultCommentLimit)
	}
	if c.MaxCommentLimit < 0 {
		return fmt.Errorf("invalid MAX_COMMENT_LIMIT %d: must not be negative", c.MaxCommentLimit)
	}
	if c.ClientTimeout <= 0 {
		return fmt.Errorf("invalid CLIENT_TIMEOUT %s: must be positive", c.ClientTimeout)
	}
	if c.PollInterval <= 0 || c.TrainingTimeout <= 0 {
		return fmt.Errorf("MODEL_POLL_INTERVAL and MODEL_TRAINING_TIMEOUT must be positive")
	}

	return nil
}

func require(key, value string) error {
	if value == "" {
		return fmt.Errorf("please set the %s environment variable", key)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
