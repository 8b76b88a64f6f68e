package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	MaxUploadBytes     int64

	// Logging
	LogLevel  string
	LogFormat string

	// AI backend selection
	AIBackend        string
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	AIMaxConcurrency int

	// Insights and extraction
	InsightsTimeout     time.Duration
	ExtractionCacheSize int
	ExtractionCacheTTL  time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker
	JournalDBPath  string
	WorkerPrefetch int

	// Google Sheets mirror of journaled transactions (worker only)
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Discord insight notifications
	DiscordBotToken  string
	DiscordChannelID string

	// Ledger
	SeedPeers bool
}

var validAIBackends = []string{"gemini", "openai", "offline"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		MaxUploadBytes:     int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AIBackend:        getEnv("AI_BACKEND", "offline"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIMaxConcurrency: getEnvInt("AI_MAX_CONCURRENCY", 3),

		InsightsTimeout:     getEnvDuration("INSIGHTS_TIMEOUT", 60*time.Second),
		ExtractionCacheSize: getEnvInt("EXTRACTION_CACHE_SIZE", 64),
		ExtractionCacheTTL:  getEnvDuration("EXTRACTION_CACHE_TTL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_journal"),

		JournalDBPath:  getEnv("JOURNAL_DB_PATH", "./data/journal.db"),
		WorkerPrefetch: getEnvInt("WORKER_PREFETCH", 10),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Transações"),

		DiscordBotToken:  getEnv("DISCORD_BOT_TOKEN", ""),
		DiscordChannelID: getEnv("DISCORD_CHANNEL_ID", ""),

		SeedPeers: getEnvBool("SEED_PEERS", true),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	isValidBackend := false
	for _, backend := range validAIBackends {
		if c.AIBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid AI backend '%s': must be one of %v", c.AIBackend, validAIBackends))
	}

	switch c.AIBackend {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errors = append(errors, "GEMINI_API_KEY is required when using gemini backend")
		}
		if c.GeminiModel == "" {
			errors = append(errors, "GEMINI_MODEL cannot be empty when using gemini backend")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errors = append(errors, "OPENAI_API_KEY is required when using openai backend")
		}
		if c.OpenAIBaseURL != "" {
			if parsedURL, err := url.Parse(c.OpenAIBaseURL); err != nil {
				errors = append(errors, fmt.Sprintf("invalid OpenAI base URL '%s': %v", c.OpenAIBaseURL, err))
			} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
				errors = append(errors, fmt.Sprintf("invalid OpenAI base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
			}
		}
	}

	if c.AIMaxConcurrency < 1 || c.AIMaxConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid AI max concurrency %d: must be between 1 and 32", c.AIMaxConcurrency))
	}

	if c.InsightsTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid insights timeout %v: must be at least 1 second", c.InsightsTimeout))
	} else if c.InsightsTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid insights timeout %v: must be at most 10 minutes", c.InsightsTimeout))
	}

	if c.ExtractionCacheSize < 1 || c.ExtractionCacheSize > 10000 {
		errors = append(errors, fmt.Sprintf("invalid extraction cache size %d: must be between 1 and 10000", c.ExtractionCacheSize))
	}
	if c.ExtractionCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid extraction cache TTL %v: must be at least 1 minute", c.ExtractionCacheTTL))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.MaxUploadBytes < 1<<10 || c.MaxUploadBytes > 50<<20 {
		errors = append(errors, fmt.Sprintf("invalid max upload size %d: must be between 1KB and 50MB", c.MaxUploadBytes))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if (c.DiscordBotToken == "") != (c.DiscordChannelID == "") {
		errors = append(errors, "DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateWorker checks what the journal worker needs on top of Validate.
func (c *Config) ValidateWorker() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the journal worker")
	}

	if c.JournalDBPath == "" {
		errors = append(errors, "journal database path cannot be empty")
	} else {
		dir := filepath.Dir(c.JournalDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create journal database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.WorkerPrefetch < 1 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at least 1", c.WorkerPrefetch))
	} else if c.WorkerPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be at most 1000", c.WorkerPrefetch))
	}

	if err := c.Validate(); err != nil {
		errors = append(errors, strings.TrimPrefix(err.Error(), "configuration validation failed:\n- "))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
