package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/zapflow/internal/domain"
)

// WorkflowRepo — репозиторий workflows.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

const workflowColumns = `id, name, document, is_active, created_at, updated_at`

// Create сохраняет новый workflow. Дубликат имени — ErrAlreadyExists.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	doc, err := json.Marshal(wf.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, wf.ID, wf.Name, doc, wf.IsActive, wf.CreatedAt, wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", mapError(err))
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return scanWorkflow(r.pool.QueryRow(ctx, `
		SELECT `+workflowColumns+` FROM workflows WHERE id = $1
	`, id))
}

// WorkflowFilter — параметры фильтрации workflows.
type WorkflowFilter struct {
	IsActive *bool
	Page
}

// List возвращает workflows, новые первыми.
func (r *WorkflowRepo) List(ctx context.Context, filter WorkflowFilter) ([]domain.Workflow, error) {
	page := filter.Page.normalize()

	rows, err := r.pool.Query(ctx, `
		SELECT `+workflowColumns+`
		FROM workflows
		WHERE ($1::boolean IS NULL OR is_active = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, filter.IsActive, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	return collect(rows, scanWorkflow)
}

// Update обновляет имя, документ и активность.
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	doc, err := json.Marshal(wf.Document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	wf.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, `
		UPDATE workflows
		SET name = $2, document = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`, wf.ID, wf.Name, doc, wf.IsActive, wf.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update workflow: %w", mapError(err))
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDocument заменяет только документ графа.
func (r *WorkflowRepo) UpdateDocument(ctx context.Context, id uuid.UUID, document domain.Document) error {
	doc, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE workflows SET document = $2, updated_at = NOW() WHERE id = $1
	`, id, doc)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow вместе с его расписаниями.
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWorkflow(row scanner) (*domain.Workflow, error) {
	var wf domain.Workflow
	var doc []byte

	err := row.Scan(&wf.ID, &wf.Name, &doc, &wf.IsActive, &wf.CreatedAt, &wf.UpdatedAt)
	if err != nil {
		return nil, scanError("workflow", err)
	}

	if err := json.Unmarshal(doc, &wf.Document); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &wf, nil
}

// scanError оборачивает ошибку сканирования, сохраняя ErrNotFound.
func scanError(entity string, err error) error {
	if mapped := mapError(err); mapped == ErrNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("scan %s: %w", entity, err)
}
