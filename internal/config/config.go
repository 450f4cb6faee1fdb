package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL PostgreSQLConfig
	Server     ServerConfig
	Analysis   AnalysisConfig
	Scraper    ScraperConfig
	Maps       MapsConfig
	OpenAI     OpenAIConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration. The
// database is optional: when no DSN or host is configured, the
// analysis audit log is disabled and sessions stay purely in-memory.
type PostgreSQLConfig struct {
	DSN                string // full connection string, takes precedence
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
	Enabled            bool
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

// AnalysisConfig holds analysis-session configuration
type AnalysisConfig struct {
	// HistoryTurnBudget caps how many transcript turns are folded into
	// a follow-up prompt; older turns are dropped FIFO. The first
	// structured analysis is retained regardless.
	HistoryTurnBudget int
	// DescriptionExcerptLen caps the listing description length in
	// prompts, in characters.
	DescriptionExcerptLen int
	// SessionTTLMinutes is how long an idle session survives before
	// the sweeper evicts it.
	SessionTTLMinutes int
	// SweepSchedule is the cron expression for the eviction sweeper.
	SweepSchedule string
}

// ScraperConfig holds listing-scraper configuration
type ScraperConfig struct {
	Timeout      int // seconds
	RequestDelay int // seconds between requests
	UserAgent    string
}

// MapsConfig holds Google Maps (Routes + Places) configuration
type MapsConfig struct {
	APIKey  string
	Timeout int // seconds
	Enabled bool
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string // Model for persona analysis and chat
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":true}})
	EmbeddingModel      string // Model for embeddings
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON string for extra_body (e.g., {"truncate":"NONE"})
	BatchSize           int
	Timeout             int
	Enabled             bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	dsn := getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", "")))

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			DSN:                dsn,
			Host:               getEnv("PG_HOST", ""),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "property_analysis"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
			Enabled:            dsn != "" || getEnv("PG_HOST", "") != "",
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Analysis: AnalysisConfig{
			HistoryTurnBudget:     getEnvAsInt("ANALYSIS_HISTORY_TURN_BUDGET", 20),
			DescriptionExcerptLen: getEnvAsInt("ANALYSIS_DESCRIPTION_EXCERPT_LEN", 2000),
			SessionTTLMinutes:     getEnvAsInt("ANALYSIS_SESSION_TTL_MINUTES", 120),
			SweepSchedule:         getEnv("ANALYSIS_SWEEP_SCHEDULE", "@every 10m"),
		},
		Scraper: ScraperConfig{
			Timeout:      getEnvAsInt("SCRAPER_TIMEOUT", 30),
			RequestDelay: getEnvAsInt("SCRAPER_REQUEST_DELAY", 2),
			UserAgent: getEnv("SCRAPER_USER_AGENT",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"),
		},
		Maps: MapsConfig{
			APIKey:  getEnv("GOOGLE_MAP_API_KEY", ""),
			Timeout: getEnvAsInt("MAPS_TIMEOUT", 15),
			Enabled: getEnv("GOOGLE_MAP_API_KEY", "") != "",
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://integrate.api.nvidia.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "deepseek-ai/deepseek-v3.1-terminus"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.4),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 8192),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", `{"chat_template_kwargs":{"thinking":true}}`),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "baai/bge-m3"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1024),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", `{"truncate":"NONE"}`),
			BatchSize:           getEnvAsInt("OPENAI_BATCH_SIZE", 100),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 60),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
	}

	return cfg, nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}
