package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/orchestrator"
	"github.com/shaiso/zapflow/internal/repo"
)

// WorkflowStore — операции над workflows. Реализуется repo.WorkflowRepo.
type WorkflowStore interface {
	Create(ctx context.Context, wf *domain.Workflow) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
	List(ctx context.Context, filter repo.WorkflowFilter) ([]domain.Workflow, error)
	Update(ctx context.Context, wf *domain.Workflow) error
	UpdateDocument(ctx context.Context, id uuid.UUID, doc domain.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExecutionStore — чтение выполнений. Реализуется repo.ExecutionRepo.
type ExecutionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	List(ctx context.Context, filter repo.ExecutionFilter) ([]domain.Execution, error)
}

// ActionStore — чтение действий. Реализуется repo.ActionRepo.
type ActionStore interface {
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]domain.ActionSubmission, error)
}

// ScheduleStore — операции над расписаниями. Реализуется repo.ScheduleRepo.
type ScheduleStore interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Player запускает workflows. Реализуется orchestrator.Orchestrator.
type Player interface {
	Play(ctx context.Context, workflowID uuid.UUID, opts orchestrator.PlayOptions) (*domain.Execution, error)
	ExecuteDocument(ctx context.Context, doc domain.Document, opts orchestrator.PlayOptions) (*domain.Execution, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	workflows  WorkflowStore
	executions ExecutionStore
	actions    ActionStore
	schedules  ScheduleStore
	player     Player
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Workflows  WorkflowStore
	Executions ExecutionStore
	Actions    ActionStore
	Schedules  ScheduleStore
	Player     Player
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		actions:    cfg.Actions,
		schedules:  cfg.Schedules,
		player:     cfg.Player,
		logger:     logger,
	}
}
