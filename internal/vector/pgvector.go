package vector

import (
	"context"
	"fmt"

	"docchat/internal/models"
	"docchat/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Searcher runs nearest-neighbour queries over docchat_chunks.
type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

func (s *Searcher) SearchChunks(ctx context.Context, indexID string, queryVec []float32, topK int) ([]models.ChunkResult, error) {
	if topK <= 0 {
		topK = 2
	}
	rows, err := s.q.Query(ctx, `
SELECT chunk_id,
       ordinal,
       text,
       1 - (embedding <=> $2) AS score
FROM docchat_chunks
WHERE index_id = $1::uuid
ORDER BY embedding <=> $2, ordinal
LIMIT $3`, indexID, pgvector.NewVector(queryVec), topK)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.ChunkResult, 0, topK)
	for rows.Next() {
		var r models.ChunkResult
		if err := rows.Scan(&r.ChunkID, &r.Ordinal, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// PGVectorOpener keeps every index in one table, partitioned by index id.
type PGVectorOpener struct {
	repo     *storage.ChunkRepo
	searcher *Searcher
}

func NewPGVectorOpener(db *storage.DB) *PGVectorOpener {
	return &PGVectorOpener{repo: storage.NewChunkRepo(db), searcher: NewSearcher(db.Pool)}
}

func (o *PGVectorOpener) Backend() string { return "pgvector" }

func (o *PGVectorOpener) Open(ctx context.Context, indexID string, dim int) (Store, error) {
	return &PGVectorStore{indexID: indexID, dim: dim, repo: o.repo, searcher: o.searcher}, nil
}

type PGVectorStore struct {
	indexID  string
	dim      int
	repo     *storage.ChunkRepo
	searcher *Searcher
}

func (s *PGVectorStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors, s.dim); err != nil {
		return err
	}
	records := make([]storage.ChunkRecord, 0, len(chunks))
	for i, c := range chunks {
		records = append(records, storage.ChunkRecord{
			IndexID:   s.indexID,
			ChunkID:   c.ChunkID,
			Ordinal:   c.Ordinal,
			Text:      c.Text,
			Embedding: pgvector.NewVector(vectors[i]),
		})
	}
	return s.repo.InsertChunks(ctx, records)
}

func (s *PGVectorStore) Search(ctx context.Context, query []float32, topK int) ([]models.ChunkResult, error) {
	if len(query) != s.dim {
		return nil, ErrDimensionMismatch
	}
	return s.searcher.SearchChunks(ctx, s.indexID, query, topK)
}

func (s *PGVectorStore) Drop(ctx context.Context) error {
	return s.repo.DeleteIndex(ctx, s.indexID)
}
