package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jlcilliers/cvchat/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DefaultEmbedTimeout bounds a single outbound embedding call.
const DefaultEmbedTimeout = 15 * time.Second

// embedOne calls the embedding service under a per-call timeout and maps
// every failure, including the timeout, to an EmbeddingError.
func embedOne(ctx context.Context, client EmbeddingClient, text string, timeout time.Duration) ([]float32, error) {
	if timeout <= 0 {
		timeout = DefaultEmbedTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	vec, err := client.GenerateEmbedding(callCtx, text)
	if err != nil {
		return nil, domain.NewEmbeddingError("failed to generate embedding", err)
	}
	if len(vec) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	return vec, nil
}

func checkDimensions(embeddings []domain.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	dim := len(embeddings[0].Embedding)
	for _, e := range embeddings[1:] {
		if len(e.Embedding) != dim {
			return fmt.Errorf("%s has %d dimensions, expected %d: %w", e.ID, len(e.Embedding), dim, domain.ErrEmbeddingDimensionMix)
		}
	}
	return nil
}
