package activities

import (
	"context"
	"errors"
	"fmt"

	"docchat/internal/extract"
	"docchat/internal/index"
	"docchat/internal/models"
	"docchat/internal/providers"
	"docchat/internal/storage"
	"docchat/internal/util"

	"go.temporal.io/sdk/temporal"
)

type Activities struct {
	registry     *extract.Registry
	embedder     providers.EmbeddingProvider
	chunkSize    int
	chunkOverlap int
	llmAuditRepo *storage.LLMAuditRepo
}

// New wires the build activities. db may be nil, in which case call logging
// is skipped.
func New(registry *extract.Registry, embedder providers.EmbeddingProvider, chunkSize, chunkOverlap int, db *storage.DB) *Activities {
	a := &Activities{
		registry:     registry,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
	if db != nil {
		a.llmAuditRepo = storage.NewLLMAuditRepo(db)
	}
	return a
}

func (a *Activities) ExtractTextActivity(ctx context.Context, in ExtractTextInput) (ExtractTextOutput, error) {
	doc, err := a.registry.Extract(ctx, in.Path)
	if err != nil {
		var ve *extract.ValidationError
		if errors.As(err, &ve) || errors.Is(err, util.ErrNoExtractableText) {
			return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), "extract", err)
		}
		return ExtractTextOutput{}, err
	}
	text := util.SanitizeText(doc.Text)
	if text == "" {
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(util.ErrNoExtractableText.Error(), "extract", util.ErrNoExtractableText)
	}
	return ExtractTextOutput{Filename: doc.Filename, Text: text}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.chunkSize
	}
	if in.ChunkOverlap < 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.chunkOverlap
	}
	chunks := index.SplitDocument(models.Document{Filename: in.Filename, Text: in.Text}, in.ChunkSize, in.ChunkOverlap)
	if len(chunks) == 0 {
		return ChunkTextOutput{}, temporal.NewNonRetryableApplicationError(util.ErrNoChunks.Error(), "chunk", util.ErrNoChunks)
	}
	return ChunkTextOutput{Chunks: chunks}, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	vectors, info, err := index.EmbedChunks(ctx, a.embedder, in.Chunks)
	if err != nil {
		return EmbedChunksOutput{ProviderName: info.Name, Model: info.Model}, fmt.Errorf("embed via %s: %w", info.Name, err)
	}
	return EmbedChunksOutput{
		Vectors:      vectors,
		ProviderName: info.Name,
		Model:        info.Model,
	}, nil
}

func (a *Activities) LogLLMCallActivity(ctx context.Context, in LogLLMCallInput) error {
	if a.llmAuditRepo == nil {
		return nil
	}
	return a.llmAuditRepo.Insert(ctx, storage.LLMCallRecord{
		Operation:    in.Operation,
		Filename:     in.Filename,
		ProviderName: in.ProviderName,
		Model:        in.Model,
		Status:       in.Status,
		ErrorType:    in.ErrorType,
		LatencyMS:    in.LatencyMS,
	})
}
