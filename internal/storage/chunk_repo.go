package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

type ChunkRecord struct {
	IndexID   string
	ChunkID   string
	Ordinal   int
	Text      string
	Embedding pgvector.Vector
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) InsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx insert chunks: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, c := range chunks {
		_, err := tx.Exec(ctx, `
INSERT INTO docchat_chunks (index_id, chunk_id, ordinal, text, embedding)
VALUES ($1::uuid, $2, $3, $4, $5)
ON CONFLICT (index_id, chunk_id)
DO UPDATE SET
  text = EXCLUDED.text,
  embedding = EXCLUDED.embedding`,
			c.IndexID, c.ChunkID, c.Ordinal, c.Text, c.Embedding,
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunks tx: %w", err)
	}
	return nil
}

func (r *ChunkRepo) DeleteIndex(ctx context.Context, indexID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM docchat_chunks WHERE index_id = $1::uuid`, indexID); err != nil {
		return fmt.Errorf("delete index %s: %w", indexID, err)
	}
	return nil
}
