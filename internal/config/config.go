// Package config reads run settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	// Text generation
	LLMProvider         string
	OpenAIAPIKey        string
	OpenAIModel         string
	OpenAIBaseURL       string
	GeminiAPIKey        string
	GeminiModel         string
	Temperature         float32
	MaxTokens           int
	MaxAnalysisRequests int // generation calls per run (0 = unlimited)

	// Collection
	FeedsConfigPath    string
	RecencyWindow      time.Duration
	CollectConcurrency int
	RequestTimeout     time.Duration

	// Selection
	TopK int

	// Storage
	StorageBackend string
	SupabaseURL    string
	SupabaseKey    string
	DatabaseURL    string
	SQLitePath     string
	StorageTable   string
	RetryAttempts  int
	RetryDelay     time.Duration

	// Telegram run summary, optional
	TelegramToken  string
	TelegramChatID string

	// App settings
	Debug     bool
	LogLevel  string
	LogFormat string
	DryRun    bool
}

// Defaults returns a config with every default filled in.
func Defaults() *Config {
	return &Config{
		LLMProvider:        ProviderOpenAI,
		OpenAIModel:        "gpt-4o-mini",
		GeminiModel:        "gemini-1.5-flash",
		Temperature:        0.3,
		MaxTokens:          500,
		FeedsConfigPath:    "configs/feeds.yaml",
		RecencyWindow:      24 * time.Hour,
		CollectConcurrency: 1,
		RequestTimeout:     30 * time.Second,
		TopK:               10,
		StorageBackend:     BackendSupabase,
		SQLitePath:         "data/aiinsight.db",
		StorageTable:       "news_items",
		RetryAttempts:      3,
		RetryDelay:         2 * time.Second,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// FromEnv overlays environment variables on the defaults. Malformed
// values are reported, not ignored.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("LLM_PROVIDER", &cfg.LLMProvider)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	str("OPENAI_MODEL", &cfg.OpenAIModel)
	str("OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	str("GEMINI_MODEL", &cfg.GeminiModel)
	if v := strings.TrimSpace(os.Getenv("LLM_TEMPERATURE")); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			cfg.Temperature = float32(f)
		}
	}
	integer("LLM_MAX_TOKENS", &cfg.MaxTokens)
	integer("MAX_ANALYSIS_REQUESTS", &cfg.MaxAnalysisRequests)

	str("FEEDS_CONFIG_PATH", &cfg.FeedsConfigPath)
	duration("RECENCY_WINDOW", &cfg.RecencyWindow)
	integer("COLLECT_CONCURRENCY", &cfg.CollectConcurrency)
	duration("REQUEST_TIMEOUT", &cfg.RequestTimeout)
	integer("TOP_K", &cfg.TopK)

	str("STORAGE_BACKEND", &cfg.StorageBackend)
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	cfg.SupabaseURL = os.Getenv("SUPABASE_URL")
	cfg.SupabaseKey = os.Getenv("SUPABASE_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	str("SQLITE_PATH", &cfg.SQLitePath)
	str("STORAGE_TABLE", &cfg.StorageTable)
	integer("RETRY_ATTEMPTS", &cfg.RetryAttempts)
	duration("RETRY_DELAY", &cfg.RetryDelay)

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	return cfg, errors.Join(errs...)
}

// Load reads the environment, applies the overrides in order and
// validates the result.
func Load(overrides ...func(*Config)) (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'openai' or 'gemini', got %q", c.LLMProvider)
	}

	if c.RecencyWindow <= 0 {
		return fmt.Errorf("recency window must be positive")
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be within [0,2]")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}
	if c.CollectConcurrency < 1 {
		return fmt.Errorf("COLLECT_CONCURRENCY must be at least 1")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	if c.DryRun {
		return nil
	}
	return c.ValidateStorage()
}

// ValidateStorage checks the credentials of the selected backend.
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY are required")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be 'supabase', 'postgres' or 'sqlite', got %q", c.StorageBackend)
	}
	return nil
}

// TelegramEnabled reports whether the run summary goes to Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}
