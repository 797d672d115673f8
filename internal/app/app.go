// Package app assembles the application from its parts: configuration,
// logging, database, embeddings, tools, and the RAG pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/lectern0/lectern/db"
	"github.com/lectern0/lectern/internal/ai"
	"github.com/lectern0/lectern/internal/config"
	"github.com/lectern0/lectern/internal/course"
	"github.com/lectern0/lectern/internal/log"
	"github.com/lectern0/lectern/internal/rag"
	"github.com/lectern0/lectern/internal/session"
	"github.com/lectern0/lectern/internal/store"
	"github.com/lectern0/lectern/internal/tools"
)

// App holds the assembled components and their cleanup.
type App struct {
	Config *config.Config
	Logger log.Logger
	Pool   *pgxpool.Pool
	Store  *store.Store
	RAG    *rag.System

	cleanups []func()
}

// Setup builds a ready-to-use App from configuration.
// Call Close when done.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	a := &App{Config: cfg, Logger: logger}

	pool, err := providePool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Pool = pool
	a.cleanups = append(a.cleanups, pool.Close)

	embedder, err := provideEmbedder(ctx, cfg)
	if err != nil {
		a.Close()

		return nil, err
	}

	a.Store = store.New(store.NewPgxQuerier(pool), embedder, cfg.MaxResults, logger)

	tm := tools.NewManager(logger)
	tm.Register(tools.NewSearchTool(a.Store, logger))
	tm.Register(tools.NewOutlineTool(a.Store))

	generator := ai.NewGenerator(ai.NewClient(cfg.AnthropicAPIKey), ai.Config{
		Model:         cfg.Model,
		MaxToolRounds: cfg.MaxToolRounds,
	}, logger)

	sessions := session.NewManager(cfg.MaxHistory)
	parser := course.NewParser(course.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap))

	a.RAG = rag.New(a.Store, generator, tm, sessions, parser, logger)

	logger.Info("application ready",
		"model", cfg.Model,
		"embedder", cfg.EmbedderModel,
		"database", cfg.PostgresDBName)

	return a, nil
}

// Close releases all resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// providePool runs migrations and opens the connection pool. pgvector
// types are registered on every new connection so embeddings can be
// bound as query parameters.
func providePool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// provideEmbedder initializes Genkit with the Google AI plugin and
// returns the configured embedder. The plugin reads GEMINI_API_KEY
// from the environment.
func provideEmbedder(ctx context.Context, cfg *config.Config) (store.Embedder, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with gemini provider")
	}

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not available", cfg.EmbedderModel)
	}

	return store.NewGenkitEmbedder(embedder), nil
}
