package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"docchat/internal/extract"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/util"
)

// Prepared is everything needed to fill a vector store for one document.
type Prepared struct {
	Filename string         `json:"filename"`
	Chunks   []models.Chunk `json:"chunks"`
	Vectors  [][]float32    `json:"vectors"`
	Embedder string         `json:"embedder"`
}

// Preparer turns a validated file path into embedded chunks.
type Preparer interface {
	Prepare(ctx context.Context, path string) (Prepared, error)
}

// Pipeline prepares documents in-process.
type Pipeline struct {
	registry     *extract.Registry
	embedder     providers.EmbeddingProvider
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

func NewPipeline(registry *extract.Registry, embedder providers.EmbeddingProvider, chunkSize, chunkOverlap int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry:     registry,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger.With("component", "pipeline"),
	}
}

func (p *Pipeline) Prepare(ctx context.Context, path string) (Prepared, error) {
	start := time.Now()
	doc, err := p.registry.Extract(ctx, path)
	if err != nil {
		return Prepared{}, err
	}
	chunks := SplitDocument(doc, p.chunkSize, p.chunkOverlap)
	if len(chunks) == 0 {
		return Prepared{}, util.ErrNoChunks
	}
	vectors, info, err := EmbedChunks(ctx, p.embedder, chunks)
	if err != nil {
		return Prepared{}, err
	}
	p.logger.Info("document prepared",
		"file", doc.Filename,
		"chars", len(doc.Text),
		"chunks", len(chunks),
		"embedder", info.Name,
		"elapsed", time.Since(start),
	)
	return Prepared{Filename: doc.Filename, Chunks: chunks, Vectors: vectors, Embedder: info.Name + "/" + info.Model}, nil
}

// SplitDocument sanitizes the document text and cuts it into ordered chunks.
func SplitDocument(doc models.Document, chunkSize, chunkOverlap int) []models.Chunk {
	parts := util.ChunkText(util.SanitizeText(doc.Text), chunkSize, chunkOverlap)
	chunks := make([]models.Chunk, 0, len(parts))
	for _, part := range parts {
		ordinal := len(chunks)
		chunks = append(chunks, models.Chunk{
			ChunkID: util.ChunkID(doc.Filename, ordinal, part),
			Ordinal: ordinal,
			Text:    part,
		})
	}
	return chunks
}

// EmbedChunks embeds chunk texts as documents and checks that the provider
// returned one vector of a consistent width per chunk.
func EmbedChunks(ctx context.Context, embedder providers.EmbeddingProvider, chunks []models.Chunk) ([][]float32, providers.ProviderInfo, error) {
	inputs := make([]string, 0, len(chunks))
	for _, c := range chunks {
		inputs = append(inputs, c.Text)
	}
	vectors, info, err := embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "index_build",
		InputType: providers.InputTypeDocument,
		Inputs:    inputs,
	})
	if err != nil {
		return nil, info, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, info, fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dim := len(vectors[0])
	for _, v := range vectors {
		if dim == 0 || len(v) != dim {
			return nil, info, fmt.Errorf("embed chunks: inconsistent vector width")
		}
	}
	return vectors, info, nil
}
