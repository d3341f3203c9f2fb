package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/zapflow/internal/domain"
)

// ActionRepo — репозиторий отправленных действий.
type ActionRepo struct {
	pool *pgxpool.Pool
}

// NewActionRepo создаёт ActionRepo.
func NewActionRepo(pool *pgxpool.Pool) *ActionRepo {
	return &ActionRepo{pool: pool}
}

const actionColumns = `id, execution_id, node_id, action_type, params, status, attempt,
	outputs, error, started_at, finished_at, created_at`

// Create сохраняет действие.
func (r *ActionRepo) Create(ctx context.Context, a *domain.ActionSubmission) error {
	params, err := marshalJSON("params", a.Params)
	if err != nil {
		return err
	}
	if params == nil {
		params = []byte("{}")
	}
	outputs, err := marshalJSON("outputs", a.Outputs)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO action_submissions (`+actionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		a.ID,
		nullUUID(a.ExecutionID),
		int64(a.NodeID),
		a.Type,
		params,
		a.Status,
		a.Attempt,
		outputs,
		nullString(a.Error),
		a.StartedAt,
		a.FinishedAt,
		a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", mapError(err))
	}
	return nil
}

// ListByExecution возвращает действия выполнения в порядке отправки.
func (r *ActionRepo) ListByExecution(ctx context.Context, executionID uuid.UUID) ([]domain.ActionSubmission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+actionColumns+`
		FROM action_submissions
		WHERE execution_id = $1
		ORDER BY created_at ASC
	`, executionID)
	if err != nil {
		return nil, fmt.Errorf("list actions by execution: %w", err)
	}
	return collect(rows, scanAction)
}

// ListQueued возвращает действия в статусе QUEUED, старые первыми.
func (r *ActionRepo) ListQueued(ctx context.Context, limit int) ([]domain.ActionSubmission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+actionColumns+`
		FROM action_submissions
		WHERE status = 'QUEUED'
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queued actions: %w", err)
	}
	return collect(rows, scanAction)
}

// Update сохраняет статус, попытку и результат.
func (r *ActionRepo) Update(ctx context.Context, a *domain.ActionSubmission) error {
	outputs, err := marshalJSON("outputs", a.Outputs)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE action_submissions
		SET status = $2, attempt = $3, outputs = $4, error = $5,
		    started_at = $6, finished_at = $7
		WHERE id = $1
	`,
		a.ID,
		a.Status,
		a.Attempt,
		outputs,
		nullString(a.Error),
		a.StartedAt,
		a.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimQueued атомарно переводит действие из QUEUED в RUNNING.
// Возвращает ErrNotFound, если действие уже забрал другой воркер.
func (r *ActionRepo) ClaimQueued(ctx context.Context, id uuid.UUID) (*domain.ActionSubmission, error) {
	return scanAction(r.pool.QueryRow(ctx, `
		UPDATE action_submissions
		SET status = 'RUNNING', attempt = attempt + 1, started_at = NOW(), finished_at = NULL, error = NULL
		WHERE id = $1 AND status = 'QUEUED'
		RETURNING `+actionColumns,
		id,
	))
}

func scanAction(row scanner) (*domain.ActionSubmission, error) {
	var a domain.ActionSubmission
	var nodeID int64
	var params, outputs []byte
	var errMsg *string

	err := row.Scan(
		&a.ID,
		&a.ExecutionID,
		&nodeID,
		&a.Type,
		&params,
		&a.Status,
		&a.Attempt,
		&outputs,
		&errMsg,
		&a.StartedAt,
		&a.FinishedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, scanError("action", err)
	}

	a.NodeID = domain.NodeID(nodeID)
	a.Error = deref(errMsg)
	if a.Params, err = unmarshalJSON("params", params); err != nil {
		return nil, err
	}
	if a.Outputs, err = unmarshalJSON("outputs", outputs); err != nil {
		return nil, err
	}
	return &a, nil
}
