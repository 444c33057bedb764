package storage

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS docchat_chunks (
  index_id   uuid        NOT NULL,
  chunk_id   text        NOT NULL,
  ordinal    int         NOT NULL,
  text       text        NOT NULL,
  embedding  vector      NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (index_id, chunk_id)
)`,
	`CREATE TABLE IF NOT EXISTS llm_calls (
  call_id       uuid        PRIMARY KEY DEFAULT gen_random_uuid(),
  operation     text        NOT NULL,
  index_id      uuid,
  filename      text,
  provider_name text        NOT NULL,
  model         text        NOT NULL,
  status        text        NOT NULL,
  error_type    text,
  latency_ms    bigint      NOT NULL DEFAULT 0,
  created_at    timestamptz NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS llm_calls_created_at_idx ON llm_calls (created_at DESC)`,
}

// EnsureSchema creates the tables used by the pgvector store and the audit
// log. It is safe to run on every start.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
