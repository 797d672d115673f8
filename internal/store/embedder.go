package store

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
)

// Embedder produces a vector embedding for a piece of text. It is the only
// contract the store has with the embedding provider, which keeps tests free
// of network calls.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// genkitEmbedder adapts a Genkit ai.Embedder to the store's Embedder
// interface.
type genkitEmbedder struct {
	embedder ai.Embedder
}

// NewGenkitEmbedder wraps a Genkit embedder (e.g. the googlegenai plugin's
// gemini-embedding-001) for use by the store.
func NewGenkitEmbedder(embedder ai.Embedder) Embedder {
	return &genkitEmbedder{embedder: embedder}
}

func (g *genkitEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			ai.DocumentFromText(text, nil),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("embed failed: %w", err)
	}

	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return resp.Embeddings[0].Embedding, nil
}
