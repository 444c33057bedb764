package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/vector"

	"github.com/google/uuid"
)

// Index is the searchable form of one uploaded document.
type Index struct {
	ID        string
	Filename  string
	Chunks    int
	Backend   string
	CreatedAt time.Time

	store    vector.Store
	embedder providers.EmbeddingProvider
	topK     int
}

// Build opens a fresh store and fills it. On failure the store is dropped and
// no Index is returned.
func Build(ctx context.Context, opener vector.Opener, embedder providers.EmbeddingProvider, prep Prepared, topK int) (*Index, error) {
	if len(prep.Chunks) == 0 || len(prep.Vectors) == 0 {
		return nil, errors.New("nothing to index")
	}
	id := uuid.NewString()
	store, err := opener.Open(ctx, id, len(prep.Vectors[0]))
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", opener.Backend(), err)
	}
	if err := store.Add(ctx, prep.Chunks, prep.Vectors); err != nil {
		_ = store.Drop(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("fill %s store: %w", opener.Backend(), err)
	}
	if topK <= 0 {
		topK = 2
	}
	return &Index{
		ID:        id,
		Filename:  prep.Filename,
		Chunks:    len(prep.Chunks),
		Backend:   opener.Backend(),
		CreatedAt: time.Now().UTC(),
		store:     store,
		embedder:  embedder,
		topK:      topK,
	}, nil
}

// Retrieve returns the topK passages most similar to question.
func (ix *Index) Retrieve(ctx context.Context, question string) ([]models.ChunkResult, error) {
	vecs, _, err := ix.embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "query",
		InputType: providers.InputTypeQuery,
		Inputs:    []string{question},
	})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vecs))
	}
	results, err := ix.store.Search(ctx, vecs[0], ix.topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}

// Query retrieves context for question and streams the model's answer to
// onDelta.
func (ix *Index) Query(ctx context.Context, llm providers.LLMProvider, question string, onDelta func(string) error) (providers.ProviderInfo, error) {
	results, err := ix.Retrieve(ctx, question)
	if err != nil {
		return providers.ProviderInfo{}, err
	}
	passages := make([]string, 0, len(results))
	for _, r := range results {
		passages = append(passages, r.Text)
	}
	return llm.GenerateStream(ctx, providers.GenerateRequest{
		Operation: "query",
		System:    providers.QASystemPrompt,
		Prompt:    providers.RenderQAPrompt(question, passages),
	}, onDelta)
}

// Release drops the backing store.
func (ix *Index) Release(ctx context.Context) error {
	return ix.store.Drop(ctx)
}

func (ix *Index) Info() models.IndexInfo {
	return models.IndexInfo{
		IndexID:   ix.ID,
		Filename:  ix.Filename,
		Chunks:    ix.Chunks,
		Backend:   ix.Backend,
		CreatedAt: ix.CreatedAt,
	}
}
