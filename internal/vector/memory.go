package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"docchat/internal/models"
)

type memItem struct {
	chunk models.Chunk
	vec   []float32
	norm  float64
}

// MemoryStore is a brute-force cosine similarity store.
type MemoryStore struct {
	mu    sync.RWMutex
	dim   int
	items []memItem
}

func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim}
}

func (s *MemoryStore) Add(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if err := checkBatch(chunks, vectors, s.dim); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range chunks {
		v := append([]float32(nil), vectors[i]...)
		s.items = append(s.items, memItem{chunk: c, vec: v, norm: l2(v)})
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, topK int) ([]models.ChunkResult, error) {
	if len(query) != s.dim {
		return nil, ErrDimensionMismatch
	}
	if topK <= 0 {
		topK = 2
	}
	qn := l2(query)
	s.mu.RLock()
	results := make([]models.ChunkResult, 0, len(s.items))
	for _, it := range s.items {
		results = append(results, models.ChunkResult{
			ChunkID: it.chunk.ChunkID,
			Ordinal: it.chunk.Ordinal,
			Text:    it.chunk.Text,
			Score:   cosine(query, it.vec, qn, it.norm),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].Ordinal < results[j].Ordinal
		}
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Drop is a no-op: the chunks are reclaimed with the store, and an in-flight
// query holding it keeps reading a consistent snapshot.
func (s *MemoryStore) Drop(ctx context.Context) error { return nil }

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

type MemoryOpener struct{}

func (MemoryOpener) Backend() string { return "memory" }

func (MemoryOpener) Open(ctx context.Context, indexID string, dim int) (Store, error) {
	return NewMemoryStore(dim), nil
}

func l2(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
