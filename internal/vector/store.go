package vector

import (
	"context"
	"errors"

	"docchat/internal/models"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Store holds the embedded chunks of one index.
type Store interface {
	Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, query []float32, topK int) ([]models.ChunkResult, error)
	Drop(ctx context.Context) error
}

// Opener creates a fresh, empty Store for a new index.
type Opener interface {
	Backend() string
	Open(ctx context.Context, indexID string, dim int) (Store, error)
}

func checkBatch(chunks []models.Chunk, vectors [][]float32, dim int) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunk and vector counts differ")
	}
	for _, v := range vectors {
		if len(v) != dim {
			return ErrDimensionMismatch
		}
	}
	return nil
}
