package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/zapflow/internal/domain"
)

// ExecutionRepo — репозиторий выполнений.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

const executionColumns = `id, workflow_id, trigger, status, steps, actions_dispatched,
	error_kind, error_node, error, idempotency_key, started_at, finished_at, created_at`

// Create сохраняет выполнение. Повтор ключа идемпотентности — ErrAlreadyExists.
func (r *ExecutionRepo) Create(ctx context.Context, e *domain.Execution) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO executions (`+executionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		e.ID,
		nullUUID(e.WorkflowID),
		e.Trigger,
		e.Status,
		rawOrNil(e.Steps),
		e.ActionsDispatched,
		nullString(e.ErrorKind),
		nodeOrNil(e.ErrorNode),
		nullString(e.Error),
		nullString(e.IdempotencyKey),
		e.StartedAt,
		e.FinishedAt,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", mapError(err))
	}
	return nil
}

// GetByID возвращает выполнение по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	return scanExecution(r.pool.QueryRow(ctx, `
		SELECT `+executionColumns+` FROM executions WHERE id = $1
	`, id))
}

// GetByIdempotencyKey возвращает выполнение по ключу идемпотентности.
func (r *ExecutionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error) {
	return scanExecution(r.pool.QueryRow(ctx, `
		SELECT `+executionColumns+` FROM executions WHERE idempotency_key = $1
	`, key))
}

// ExecutionFilter — параметры фильтрации выполнений.
type ExecutionFilter struct {
	WorkflowID *uuid.UUID
	Status     *domain.ExecutionStatus
	Page
}

// List возвращает выполнения, новые первыми. Steps не загружаются.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	page := filter.Page.normalize()

	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow_id, trigger, status, NULL::jsonb, actions_dispatched,
		       error_kind, error_node, error, idempotency_key, started_at, finished_at, created_at
		FROM executions
		WHERE ($1::uuid IS NULL OR workflow_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, nullUUID(filter.WorkflowID), filter.Status, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return collect(rows, scanExecution)
}

// Update сохраняет статус, шаги и ошибку выполнения.
func (r *ExecutionRepo) Update(ctx context.Context, e *domain.Execution) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE executions
		SET status = $2, steps = $3, actions_dispatched = $4, error_kind = $5,
		    error_node = $6, error = $7, started_at = $8, finished_at = $9
		WHERE id = $1
	`,
		e.ID,
		e.Status,
		rawOrNil(e.Steps),
		e.ActionsDispatched,
		nullString(e.ErrorKind),
		nodeOrNil(e.ErrorNode),
		nullString(e.Error),
		e.StartedAt,
		e.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update execution: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanExecution(row scanner) (*domain.Execution, error) {
	var e domain.Execution
	var steps []byte
	var errorKind, errMsg, idempKey *string
	var errorNode *int64

	err := row.Scan(
		&e.ID,
		&e.WorkflowID,
		&e.Trigger,
		&e.Status,
		&steps,
		&e.ActionsDispatched,
		&errorKind,
		&errorNode,
		&errMsg,
		&idempKey,
		&e.StartedAt,
		&e.FinishedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, scanError("execution", err)
	}

	e.Steps = steps
	e.ErrorKind = deref(errorKind)
	e.Error = deref(errMsg)
	e.IdempotencyKey = deref(idempKey)
	if errorNode != nil {
		id := domain.NodeID(*errorNode)
		e.ErrorNode = &id
	}
	return &e, nil
}

// rawOrNil возвращает nil для пустого JSON, чтобы записать NULL.
func rawOrNil(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nodeOrNil(id *domain.NodeID) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)
	return &v
}
