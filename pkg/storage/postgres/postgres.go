// Package postgres implements storage.Driver against a relational store
// with pgvector-backed similarity search, per spec.md §4.A. Grounded on
// the teacher's pkg/storage/postgres.go for the "parse config, open pool,
// wrap in a Driver" shape, HanFromTokyoDrift-agent-mem's db.go for the
// pgvector extension/AfterConnect/cosine-operator pattern, and
// vasic-digital-SuperAgent's pgvector client for pool-tuning fields.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"go.uber.org/zap"
)

// Driver is the Postgres-backed implementation of storage.Driver.
type Driver struct {
	pool   *pgxpool.Pool
	dim    int
	logger *zap.Logger
}

// New opens a connection pool against cfg.DSN, registers pgvector's wire
// codecs on every new connection, and returns a ready Driver. It does not
// create the schema — call EnsureSchema for that, mirroring the teacher's
// separation of "open pool" from "migrate."
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	def := DefaultConfig()
	if cfg.MaxConns == 0 {
		cfg.MaxConns = def.MaxConns
	}
	if cfg.MinConns == 0 {
		cfg.MinConns = def.MinConns
	}
	if cfg.MaxConnLifetime == 0 {
		cfg.MaxConnLifetime = def.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime == 0 {
		cfg.MaxConnIdleTime = def.MaxConnIdleTime
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = def.EmbeddingDim
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{pool: pool, dim: cfg.EmbeddingDim, logger: logger}, nil
}

// EnsureSchema creates the vector extension and every table/index this
// driver depends on, idempotently. It does not perform destructive
// migrations — spec.md's Non-goals exclude automatic schema migration.
func (d *Driver) EnsureSchema(ctx context.Context) error {
	if _, err := d.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("postgres: create extension vector: %w", err)
	}
	if _, err := d.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		return fmt.Errorf("postgres: create extension pgcrypto: %w", err)
	}

	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS memories (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  text TEXT NOT NULL,
  kind TEXT NOT NULL,
  visibility TEXT NOT NULL,
  importance INT NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  is_temporal BOOLEAN NOT NULL DEFAULT false,
  tags JSONB NOT NULL DEFAULT '[]',
  metadata JSONB NOT NULL DEFAULT '{}',
  embedding VECTOR(%[1]d),
  status TEXT NOT NULL DEFAULT 'active',
  superseded_by TEXT,
  is_deleted BOOLEAN NOT NULL DEFAULT false,
  source_type TEXT NOT NULL DEFAULT 'explicit',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_reinforced_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS memories_project_subject_idx ON memories (project_id, subject_id, created_at DESC);
CREATE INDEX IF NOT EXISTS memories_embedding_hnsw ON memories USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS claims (
  claim_id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  predicate TEXT NOT NULL,
  object_value TEXT NOT NULL,
  slot TEXT NOT NULL,
  claim_type TEXT NOT NULL,
  confidence DOUBLE PRECISION NOT NULL,
  importance DOUBLE PRECISION NOT NULL,
  tags JSONB NOT NULL DEFAULT '[]',
  source_memory_id TEXT,
  subject_entity TEXT NOT NULL DEFAULT 'self',
  status TEXT NOT NULL DEFAULT 'active',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  retracted_at TIMESTAMPTZ,
  retract_reason TEXT,
  valid_from TIMESTAMPTZ,
  valid_until TIMESTAMPTZ,
  embedding VECTOR(%[1]d)
);
CREATE INDEX IF NOT EXISTS claims_project_subject_slot_idx ON claims (project_id, subject_id, slot);

CREATE TABLE IF NOT EXISTS claim_assertions (
  assertion_id TEXT PRIMARY KEY,
  claim_id TEXT NOT NULL REFERENCES claims(claim_id) ON DELETE CASCADE,
  memory_id TEXT,
  value_type TEXT NOT NULL,
  value_string TEXT NOT NULL DEFAULT '',
  value_number DOUBLE PRECISION,
  value_date TIMESTAMPTZ,
  value_json JSONB,
  confidence DOUBLE PRECISION NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS claim_assertions_claim_idx ON claim_assertions (claim_id);

CREATE TABLE IF NOT EXISTS claim_edges (
  project_id TEXT NOT NULL,
  from_claim TEXT NOT NULL,
  to_claim TEXT NOT NULL,
  edge_type TEXT NOT NULL,
  weight DOUBLE PRECISION NOT NULL DEFAULT 1,
  reason_code TEXT NOT NULL DEFAULT '',
  reason_text TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  UNIQUE (project_id, from_claim, to_claim, edge_type)
);
CREATE INDEX IF NOT EXISTS claim_edges_from_idx ON claim_edges (from_claim);
CREATE INDEX IF NOT EXISTS claim_edges_to_idx ON claim_edges (to_claim);

CREATE TABLE IF NOT EXISTS slot_state (
  project_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  slot TEXT NOT NULL,
  active_claim_id TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  replaced_by_claim_id TEXT,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (project_id, subject_id, slot)
);

CREATE TABLE IF NOT EXISTS memory_recall_events (
  id TEXT PRIMARY KEY,
  project_id TEXT NOT NULL,
  memory_id TEXT NOT NULL,
  chat_id TEXT NOT NULL DEFAULT '',
  message_index INT NOT NULL DEFAULT 0,
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  request_type TEXT NOT NULL DEFAULT '',
  model_id TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS recall_events_chat_idx ON memory_recall_events (chat_id, created_at ASC);
CREATE INDEX IF NOT EXISTS recall_events_memory_idx ON memory_recall_events (memory_id, created_at DESC);
`, d.dim)

	if _, err := d.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

// Ping checks the pool can reach the database, for the composed health
// check (spec.md §6 GET /health).
func (d *Driver) Ping(ctx context.Context) error {
	return d.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (d *Driver) Close() error {
	d.pool.Close()
	return nil
}
