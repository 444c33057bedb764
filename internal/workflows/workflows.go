package workflows

import (
	"time"

	"docchat/internal/activities"
	"docchat/internal/index"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetBuildStatus = "GetBuildStatus"

const (
	StageExtracting = "extracting"
	StageChunking   = "chunking"
	StageEmbedding  = "embedding"
	StageDone       = "done"
	StageFailed     = "failed"
)

// IndexBuildWorkflow extracts, chunks and embeds one document and returns the
// result to the caller, which owns the vector store.
func IndexBuildWorkflow(ctx workflow.Context, input IndexBuildInput) (index.Prepared, error) {
	progress := IndexBuildProgress{Path: input.Path, Stage: StageExtracting}
	if err := workflow.SetQueryHandler(ctx, QueryGetBuildStatus, func() (IndexBuildProgress, error) {
		return progress, nil
	}); err != nil {
		return index.Prepared{}, err
	}
	fail := func(err error) (index.Prepared, error) {
		progress.Stage = StageFailed
		progress.Error = err.Error()
		return index.Prepared{}, err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var extracted activities.ExtractTextOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractTextActivity", activities.ExtractTextInput{Path: input.Path}).Get(ctx, &extracted); err != nil {
		return fail(err)
	}
	progress.Filename = extracted.Filename
	progress.Stage = StageChunking

	var chunked activities.ChunkTextOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkTextActivity", activities.ChunkTextInput{
		Filename:     extracted.Filename,
		Text:         extracted.Text,
		ChunkSize:    input.ChunkSize,
		ChunkOverlap: input.ChunkOverlap,
	}).Get(ctx, &chunked); err != nil {
		return fail(err)
	}
	progress.Chunks = len(chunked.Chunks)
	progress.Stage = StageEmbedding

	started := workflow.Now(ctx)
	var embedded activities.EmbedChunksOutput
	embedErr := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{Chunks: chunked.Chunks}).Get(ctx, &embedded)
	status := "ok"
	if embedErr != nil {
		status = "error"
	}
	_ = workflow.ExecuteActivity(ctx, "LogLLMCallActivity", activities.LogLLMCallInput{
		Operation:    "embed_chunks",
		Filename:     extracted.Filename,
		ProviderName: embedded.ProviderName,
		Model:        embedded.Model,
		Status:       status,
		LatencyMS:    workflow.Now(ctx).Sub(started).Milliseconds(),
	}).Get(ctx, nil)
	if embedErr != nil {
		return fail(embedErr)
	}

	progress.Embedder = embedded.ProviderName + "/" + embedded.Model
	progress.Stage = StageDone
	return index.Prepared{
		Filename: extracted.Filename,
		Chunks:   chunked.Chunks,
		Vectors:  embedded.Vectors,
		Embedder: progress.Embedder,
	}, nil
}
