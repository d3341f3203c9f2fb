package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/repo"
	"github.com/shaiso/zapflow/internal/telemetry"
)

// WorkflowStore — чтение workflows. Реализуется repo.WorkflowRepo.
type WorkflowStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
}

// ExecutionStore — запись выполнений. Реализуется repo.ExecutionRepo.
type ExecutionStore interface {
	Create(ctx context.Context, e *domain.Execution) error
	Update(ctx context.Context, e *domain.Execution) error
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Execution, error)
}

// Orchestrator запускает workflows и записывает выполнения.
type Orchestrator struct {
	workflows  WorkflowStore
	executions ExecutionStore
	engine     *engine.Engine
	logger     *slog.Logger
}

// Config — конфигурация Orchestrator.
type Config struct {
	Workflows  WorkflowStore
	Executions ExecutionStore

	// Engine — движок с настроенным диспетчером действий.
	Engine *engine.Engine

	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	eng := cfg.Engine
	if eng == nil {
		eng = engine.New(engine.Options{Logger: logger})
	}

	return &Orchestrator{
		workflows:  cfg.Workflows,
		executions: cfg.Executions,
		engine:     eng,
		logger:     logger,
	}
}

// PlayOptions — параметры запуска.
type PlayOptions struct {
	// Trigger — источник запуска. По умолчанию MANUAL (ADHOC для ExecuteDocument).
	Trigger domain.Trigger

	// IdempotencyKey — ключ идемпотентности. Пустой — без проверки.
	IdempotencyKey string
}

// Play запускает сохранённый workflow.
//
// Ошибка выполнения графа не является ошибкой Play: она записывается
// в Execution (FAILED). Ошибка возвращается, если workflow не найден,
// выключен, или не удалось сохранить выполнение. При повторе ключа
// идемпотентности возвращается существующее выполнение вместе
// с ErrDuplicateExecution.
func (o *Orchestrator) Play(ctx context.Context, workflowID uuid.UUID, opts PlayOptions) (*domain.Execution, error) {
	wf, err := o.workflows.GetByID(ctx, workflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	if !wf.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowInactive, wf.Name)
	}

	if opts.Trigger == "" {
		opts.Trigger = domain.TriggerManual
	}
	return o.execute(ctx, &wf.ID, wf.Document, opts)
}

// ExecuteDocument выполняет документ, не сохранённый как workflow.
func (o *Orchestrator) ExecuteDocument(ctx context.Context, doc domain.Document, opts PlayOptions) (*domain.Execution, error) {
	if opts.Trigger == "" {
		opts.Trigger = domain.TriggerAdHoc
	}
	return o.execute(ctx, nil, doc, opts)
}

func (o *Orchestrator) execute(ctx context.Context, workflowID *uuid.UUID, doc domain.Document, opts PlayOptions) (*domain.Execution, error) {
	if opts.IdempotencyKey != "" {
		existing, err := o.executions.GetByIdempotencyKey(ctx, opts.IdempotencyKey)
		if err == nil {
			return existing, ErrDuplicateExecution
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
	}

	exec := &domain.Execution{
		ID:             uuid.New(),
		WorkflowID:     workflowID,
		Trigger:        opts.Trigger,
		IdempotencyKey: opts.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	exec.MarkRunning()

	if err := o.executions.Create(ctx, exec); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) && opts.IdempotencyKey != "" {
			existing, getErr := o.executions.GetByIdempotencyKey(ctx, opts.IdempotencyKey)
			if getErr != nil {
				return nil, fmt.Errorf("get concurrent execution: %w", getErr)
			}
			return existing, ErrDuplicateExecution
		}
		return nil, fmt.Errorf("create execution: %w", err)
	}

	logger := telemetry.WithExecutionID(o.logger, exec.ID.String())
	if workflowID != nil {
		logger = telemetry.WithWorkflowID(logger, workflowID.String())
	}
	logger.Info("execution started", "trigger", exec.Trigger, "nodes", len(doc))

	ctx = engine.WithExecutionID(ctx, exec.ID)
	result, walkErr := o.engine.Execute(ctx, doc)

	if err := o.finish(exec, result, walkErr); err != nil {
		return nil, err
	}

	if err := o.executions.Update(ctx, exec); err != nil {
		return nil, fmt.Errorf("update execution: %w", err)
	}

	o.record(exec, result)

	if exec.Status == domain.ExecutionStatusSucceeded {
		logger.Info("execution succeeded",
			"actions_dispatched", exec.ActionsDispatched,
			"duration", exec.Duration(),
		)
	} else {
		logger.Warn("execution failed",
			"error_kind", exec.ErrorKind,
			"error_node", exec.ErrorNode,
			"error", exec.Error,
		)
	}
	return exec, nil
}

// finish переводит выполнение в финальный статус по результату обхода.
func (o *Orchestrator) finish(exec *domain.Execution, result *engine.Result, walkErr error) error {
	var steps json.RawMessage
	dispatched := 0
	if result != nil {
		b, err := json.Marshal(result.Steps)
		if err != nil {
			return fmt.Errorf("marshal steps: %w", err)
		}
		steps = b
		dispatched = result.ActionsDispatched
	}

	if walkErr == nil {
		exec.MarkSucceeded(steps, dispatched)
		return nil
	}

	exec.Steps = steps
	exec.ActionsDispatched = dispatched
	exec.MarkFailed(errorKind(walkErr), errorNode(walkErr), walkErr.Error())
	return nil
}

func (o *Orchestrator) record(exec *domain.Execution, result *engine.Result) {
	outcome := string(exec.Status)
	if exec.Status == domain.ExecutionStatusFailed {
		outcome = exec.ErrorKind
	}
	telemetry.ExecutionsTotal.WithLabelValues(string(exec.Trigger), outcome).Inc()
	telemetry.ExecutionDuration.Observe(exec.Duration().Seconds())

	if result == nil {
		return
	}
	for kind, n := range result.VisitedByKind() {
		telemetry.NodesVisitedTotal.WithLabelValues(string(kind)).Add(float64(n))
	}
	telemetry.BranchesSkippedTotal.Add(float64(result.BranchesSkipped))
}

// errorKind возвращает вид ошибки для записи в Execution.
func errorKind(err error) string {
	if kind := engine.KindOf(err); kind != "" {
		return kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindCanceled
	}
	return ErrorKindInternal
}

func errorNode(err error) *domain.NodeID {
	var execErr *engine.ExecError
	if errors.As(err, &execErr) {
		return execErr.Node()
	}
	return nil
}
