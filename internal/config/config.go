// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.lectern/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - AI: Claude model for answer generation, embedder model for retrieval
//   - Ingest: chunk size/overlap for the document processor
//   - Retrieval: result and history limits
//   - Storage: PostgreSQL connection for the pgvector-backed store
//
// Secrets (API keys, the database password) are read from the environment and
// never written back to the config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Sentinel errors for configuration validation, checked with errors.Is().
var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidModel indicates the generation model name is invalid.
	ErrInvalidModel = errors.New("invalid model name")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidChunking indicates chunk size/overlap values are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidMaxResults indicates the search result limit is out of range.
	ErrInvalidMaxResults = errors.New("invalid max results")

	// ErrInvalidMaxHistory indicates the history limit is out of range.
	ErrInvalidMaxHistory = errors.New("invalid max history")

	// ErrInvalidPostgres indicates the PostgreSQL configuration is invalid.
	ErrInvalidPostgres = errors.New("invalid PostgreSQL configuration")
)

const (
	// DefaultModel is the Claude model used for answer generation.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultEmbedderModel is the Gemini embedder used for vector search.
	// gemini-embedding-001 supports truncation to 768 dimensions, matching
	// the vector(768) columns in the store schema.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 800

	// DefaultChunkOverlap is the sentence-overlap budget between chunks.
	DefaultChunkOverlap = 100

	// DefaultMaxResults is the search result limit per tool call.
	DefaultMaxResults = 5

	// DefaultMaxHistory is the number of question/answer exchanges kept per
	// session.
	DefaultMaxHistory = 2

	// DefaultMaxToolRounds bounds sequential tool-call rounds per query.
	DefaultMaxToolRounds = 2
)

// Config stores application configuration.
type Config struct {
	// AI configuration
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"` // SENSITIVE: env only
	Model           string `mapstructure:"model"`
	EmbedderModel   string `mapstructure:"embedder_model"`
	MaxToolRounds   int    `mapstructure:"max_tool_rounds"`

	// Document processing configuration
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`

	// Retrieval configuration
	MaxResults int `mapstructure:"max_results"`
	MaxHistory int `mapstructure:"max_history"`

	// Storage configuration
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: env only
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	v := viper.New()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".lectern")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values on v.
func setDefaults(v *viper.Viper) {
	v.SetDefault("model", DefaultModel)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("max_tool_rounds", DefaultMaxToolRounds)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)

	v.SetDefault("max_results", DefaultMaxResults)
	v.SetDefault("max_history", DefaultMaxHistory)

	// PostgreSQL defaults target a local development instance.
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "lectern")
	v.SetDefault("postgres_password", "lectern_dev_password")
	v.SetDefault("postgres_db_name", "lectern")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variables explicitly.
// ANTHROPIC_API_KEY keeps the name the Anthropic SDK documents; everything
// else uses the LECTERN_ prefix.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key string, envVars ...string) {
		args := append([]string{key}, envVars...)
		if err := v.BindEnv(args...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", key, err))
		}
	}

	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")
	mustBind("model", "LECTERN_MODEL")
	mustBind("embedder_model", "LECTERN_EMBEDDER_MODEL")

	mustBind("postgres_host", "LECTERN_POSTGRES_HOST")
	mustBind("postgres_port", "LECTERN_POSTGRES_PORT")
	mustBind("postgres_user", "LECTERN_POSTGRES_USER")
	mustBind("postgres_password", "LECTERN_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "LECTERN_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "LECTERN_POSTGRES_SSL_MODE")

	mustBind("log_level", "LECTERN_LOG_LEVEL")
	mustBind("log_json", "LECTERN_LOG_JSON")

	// NOTE: GEMINI_API_KEY is read directly by the Genkit googlegenai plugin,
	// not via Viper. Validation checks its presence in Validate().
}

// PostgresURL returns the connection string in URL format, as expected by
// golang-migrate.
func (c *Config) PostgresURL() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     c.PostgresDBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.PostgresSSLMode),
	}
	return u.String()
}

// PostgresConnectionString returns the keyword/value connection string used
// by pgxpool.
func (c *Config) PostgresConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresPort,
		c.PostgresUser,
		quoteDSNValue(c.PostgresPassword),
		c.PostgresDBName,
		c.PostgresSSLMode,
	)
}
