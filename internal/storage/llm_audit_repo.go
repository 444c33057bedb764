package storage

import (
	"context"
	"fmt"
)

type LLMCallRecord struct {
	Operation    string
	IndexID      string
	Filename     string
	ProviderName string
	Model        string
	Status       string
	ErrorType    string
	LatencyMS    int64
}

type LLMAuditRepo struct {
	db *DB
}

func NewLLMAuditRepo(db *DB) *LLMAuditRepo {
	return &LLMAuditRepo{db: db}
}

func (r *LLMAuditRepo) Insert(ctx context.Context, rec LLMCallRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO llm_calls(operation, index_id, filename, provider_name, model, status, error_type, latency_ms)
VALUES ($1, NULLIF($2,'')::uuid, NULLIF($3,''), $4, $5, $6, NULLIF($7,''), $8)`,
		rec.Operation, rec.IndexID, rec.Filename, rec.ProviderName, rec.Model, rec.Status, rec.ErrorType, rec.LatencyMS)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}
