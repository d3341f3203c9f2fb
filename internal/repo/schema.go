package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    document   JSONB NOT NULL,
    is_active  BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS executions (
    id                 UUID PRIMARY KEY,
    workflow_id        UUID REFERENCES workflows(id) ON DELETE SET NULL,
    trigger            TEXT NOT NULL,
    status             TEXT NOT NULL,
    steps              JSONB,
    actions_dispatched INT NOT NULL DEFAULT 0,
    error_kind         TEXT,
    error_node         BIGINT,
    error              TEXT,
    idempotency_key    TEXT,
    started_at         TIMESTAMPTZ,
    finished_at        TIMESTAMPTZ,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_executions_idempotency
    ON executions(idempotency_key) WHERE idempotency_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_executions_workflow ON executions(workflow_id, created_at DESC);

CREATE TABLE IF NOT EXISTS action_submissions (
    id           UUID PRIMARY KEY,
    execution_id UUID REFERENCES executions(id) ON DELETE CASCADE,
    node_id      BIGINT NOT NULL,
    action_type  TEXT NOT NULL,
    params       JSONB NOT NULL DEFAULT '{}',
    status       TEXT NOT NULL,
    attempt      INT NOT NULL DEFAULT 0,
    outputs      JSONB,
    error        TEXT,
    started_at   TIMESTAMPTZ,
    finished_at  TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_actions_execution ON action_submissions(execution_id);
CREATE INDEX IF NOT EXISTS idx_actions_queued ON action_submissions(created_at) WHERE status = 'QUEUED';

CREATE TABLE IF NOT EXISTS schedules (
    id                UUID PRIMARY KEY,
    workflow_id       UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
    name              TEXT,
    cron_expr         TEXT,
    interval_sec      INT,
    timezone          TEXT NOT NULL DEFAULT 'UTC',
    enabled           BOOLEAN NOT NULL DEFAULT TRUE,
    next_due_at       TIMESTAMPTZ,
    last_run_at       TIMESTAMPTZ,
    last_execution_id UUID,
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (cron_expr IS NOT NULL OR interval_sec IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules(next_due_at) WHERE enabled;
`

// EnsureSchema создаёт таблицы и индексы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
