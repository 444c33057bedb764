package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"docchat/internal/index"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// TemporalPreparer runs IndexBuildWorkflow on a worker and waits for its
// result.
type TemporalPreparer struct {
	client       tclient.Client
	taskQueue    string
	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

func NewTemporalPreparer(c tclient.Client, taskQueue string, chunkSize, chunkOverlap int, logger *slog.Logger) *TemporalPreparer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalPreparer{
		client:       c,
		taskQueue:    taskQueue,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		logger:       logger.With("component", "temporal-preparer"),
	}
}

func (p *TemporalPreparer) Prepare(ctx context.Context, path string) (index.Prepared, error) {
	we, err := p.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                    "index-build-" + uuid.NewString(),
		TaskQueue:             p.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, IndexBuildWorkflow, IndexBuildInput{
		Path:         path,
		ChunkSize:    p.chunkSize,
		ChunkOverlap: p.chunkOverlap,
	})
	if err != nil {
		return index.Prepared{}, fmt.Errorf("start index build: %w", err)
	}
	p.logger.Info("index build started", "workflow_id", we.GetID(), "run_id", we.GetRunID())

	var out index.Prepared
	if err := we.Get(ctx, &out); err != nil {
		return index.Prepared{}, fmt.Errorf("index build %s: %w", we.GetID(), err)
	}
	return out, nil
}
