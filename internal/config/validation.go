package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq-compatible drivers.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// quoteDSNValue quotes a value for PostgreSQL key=value DSN format.
// Within single quotes, backslashes and single quotes are escaped, which
// keeps passwords with spaces or '=' intact.
func quoteDSNValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API keys: Claude answers questions, Gemini embeds documents.
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("%w: ANTHROPIC_API_KEY environment variable is required", ErrMissingAPIKey)
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for embeddings", ErrMissingAPIKey)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: model cannot be empty", ErrInvalidModel)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.MaxToolRounds < 1 || c.MaxToolRounds > 5 {
		return fmt.Errorf("%w: max_tool_rounds must be between 1 and 5, got %d", ErrInvalidModel, c.MaxToolRounds)
	}

	// Chunking: overlap must leave room for fresh content in every chunk.
	if c.ChunkSize < 100 || c.ChunkSize > 10000 {
		return fmt.Errorf("%w: chunk_size must be between 100 and 10,000, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.MaxResults < 1 || c.MaxResults > 20 {
		return fmt.Errorf("%w: max_results must be between 1 and 20, got %d", ErrInvalidMaxResults, c.MaxResults)
	}
	if c.MaxHistory < 0 || c.MaxHistory > 50 {
		return fmt.Errorf("%w: max_history must be between 0 and 50, got %d", ErrInvalidMaxHistory, c.MaxHistory)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgres)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidPostgres, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgres)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: sslmode must be one of %v, got %q", ErrInvalidPostgres, validSSLModes, c.PostgresSSLMode)
	}

	return nil
}
