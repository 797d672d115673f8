package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a configuration that passes Validate.
func validConfig() *Config {
	return &Config{
		AnthropicAPIKey:  "test-api-key",
		Model:            DefaultModel,
		EmbedderModel:    DefaultEmbedderModel,
		MaxToolRounds:    DefaultMaxToolRounds,
		ChunkSize:        DefaultChunkSize,
		ChunkOverlap:     DefaultChunkOverlap,
		MaxResults:       DefaultMaxResults,
		MaxHistory:       DefaultMaxHistory,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "lectern",
		PostgresPassword: "secret",
		PostgresDBName:   "lectern",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate_OK(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")

	require.NoError(t, validConfig().Validate())
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	assert.ErrorIs(t, cfg.Validate(), ErrConfigNil)
}

func TestValidate_MissingAnthropicKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")

	cfg := validConfig()
	cfg.AnthropicAPIKey = ""
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
}

func TestValidate_MissingGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	assert.ErrorIs(t, validConfig().Validate(), ErrMissingAPIKey)
}

func TestValidate_Ranges(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-gemini-key")

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"empty model", func(c *Config) { c.Model = "" }, ErrInvalidModel},
		{"empty embedder", func(c *Config) { c.EmbedderModel = "" }, ErrInvalidEmbedderModel},
		{"zero tool rounds", func(c *Config) { c.MaxToolRounds = 0 }, ErrInvalidModel},
		{"tiny chunk size", func(c *Config) { c.ChunkSize = 10 }, ErrInvalidChunking},
		{"overlap >= size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, ErrInvalidChunking},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, ErrInvalidChunking},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, ErrInvalidMaxResults},
		{"huge max results", func(c *Config) { c.MaxResults = 100 }, ErrInvalidMaxResults},
		{"negative history", func(c *Config) { c.MaxHistory = -1 }, ErrInvalidMaxHistory},
		{"empty host", func(c *Config) { c.PostgresHost = "" }, ErrInvalidPostgres},
		{"bad port", func(c *Config) { c.PostgresPort = 70000 }, ErrInvalidPostgres},
		{"empty db name", func(c *Config) { c.PostgresDBName = "" }, ErrInvalidPostgres},
		{"bad sslmode", func(c *Config) { c.PostgresSSLMode = "maybe" }, ErrInvalidPostgres},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestPostgresURL(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	url := cfg.PostgresURL()

	assert.True(t, strings.HasPrefix(url, "postgres://"), "url: %s", url)
	assert.Contains(t, url, "localhost:5432")
	assert.Contains(t, url, "sslmode=disable")
}

func TestPostgresURL_EscapesPassword(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "p@ss:word/with?chars"
	url := cfg.PostgresURL()

	// The raw password must not appear unescaped in the URL.
	assert.NotContains(t, url, "p@ss:word/with?chars@")
}

func TestPostgresConnectionString_QuotesPassword(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.PostgresPassword = "has spaces and 'quotes'"
	dsn := cfg.PostgresConnectionString()

	assert.Contains(t, dsn, `password='has spaces and \'quotes\''`)
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "dbname=lectern")
}
