package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/orchestrator"
)

// ScheduleStore — хранилище расписаний. Реализуется repo.ScheduleRepo.
type ScheduleStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
}

// Player запускает workflow. Реализуется orchestrator.Orchestrator.
type Player interface {
	Play(ctx context.Context, workflowID uuid.UUID, opts orchestrator.PlayOptions) (*domain.Execution, error)
}

// Leader — блокировка лидерства. Реализуется repo.LeaderLock.
type Leader interface {
	TryAcquire(ctx context.Context) (bool, error)
	Release(ctx context.Context)
}

// Scheduler — планировщик, обрабатывающий due schedules.
type Scheduler struct {
	schedules ScheduleStore
	player    Player
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

// Config — конфигурация Scheduler.
type Config struct {
	Schedules ScheduleStore
	Player    Player
	Logger    *slog.Logger
	BatchSize int // количество schedules за один тик (default: 100)

	// Now — источник времени (для тестов).
	Now func() time.Time
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		schedules: cfg.Schedules,
		player:    cfg.Player,
		logger:    logger,
		batchSize: batchSize,
		now:       now,
	}
}

// Run вызывает Tick с заданным интервалом, пока удерживается лидерство.
// leader == nil — лидерство не проверяется. Блокируется до отмены ctx.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, leader Leader) {
	tk := time.NewTicker(interval)
	defer tk.Stop()

	var hasLock bool
	defer func() {
		if hasLock {
			leader.Release(context.Background())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.C:
		}

		if leader != nil && !hasLock {
			ok, err := leader.TryAcquire(ctx)
			if err != nil {
				s.logger.Error("leader lock error", "error", err)
				continue
			}
			if !ok {
				// не лидер — пропускаем тик
				continue
			}
			hasLock = true
			s.logger.Info("acquired scheduler leadership")
		}

		if err := s.Tick(ctx); err != nil {
			s.logger.Error("scheduler tick failed", "error", err)
		}
	}
}

// Tick выполняет один тик планировщика.
//
// 1. Находит due schedules (enabled=true, next_due_at <= now)
// 2. Для каждого запускает workflow с ключом идемпотентности
// 3. Обновляет next_due_at и last_execution_id
//
// Ошибки одного schedule не блокируют обработку остальных.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now()

	schedules, err := s.schedules.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return fmt.Errorf("list due schedules: %w", err)
	}

	if len(schedules) == 0 {
		return nil
	}

	s.logger.Debug("found due schedules", "count", len(schedules))

	var processed, started int
	for i := range schedules {
		sched := &schedules[i]

		created, err := s.processSchedule(ctx, sched, now)
		if err != nil {
			s.logger.Error("failed to process schedule",
				"schedule_id", sched.ID,
				"schedule_name", sched.Name,
				"error", err,
			)
			continue
		}

		processed++
		if created {
			started++
		}
	}

	s.logger.Info("scheduler tick completed",
		"due", len(schedules),
		"processed", processed,
		"executions_started", started,
	)

	return nil
}

// IdempotencyKey возвращает ключ запуска расписания на момент next_due_at.
func IdempotencyKey(sched *domain.Schedule) string {
	var due int64
	if sched.NextDueAt != nil {
		due = sched.NextDueAt.Unix()
	}
	return fmt.Sprintf("%s_%d", sched.ID, due)
}

// processSchedule обрабатывает один schedule.
// Возвращает true, если было создано новое выполнение.
func (s *Scheduler) processSchedule(ctx context.Context, sched *domain.Schedule, now time.Time) (bool, error) {
	idempKey := IdempotencyKey(sched)

	exec, err := s.player.Play(ctx, sched.WorkflowID, orchestrator.PlayOptions{
		Trigger:        domain.TriggerSchedule,
		IdempotencyKey: idempKey,
	})

	created := false
	switch {
	case err == nil:
		created = true
		s.logger.Info("started execution from schedule",
			"execution_id", exec.ID,
			"schedule_id", sched.ID,
			"schedule_name", sched.Name,
			"workflow_id", sched.WorkflowID,
			"status", exec.Status,
		)
	case errors.Is(err, orchestrator.ErrDuplicateExecution):
		s.logger.Debug("execution already exists (idempotency)",
			"schedule_id", sched.ID,
			"execution_id", exec.ID,
			"idempotency_key", idempKey,
		)
	case errors.Is(err, orchestrator.ErrWorkflowInactive), errors.Is(err, orchestrator.ErrWorkflowNotFound):
		// Пропускаем запуск, но сдвигаем next_due_at, чтобы не выбирать расписание каждый тик
		s.logger.Warn("schedule skipped", "schedule_id", sched.ID, "reason", err)
		exec = nil
	default:
		return false, fmt.Errorf("play workflow: %w", err)
	}

	nextDue, err := CalculateNextDue(sched, now)
	if err != nil {
		s.logger.Error("failed to calculate next due",
			"schedule_id", sched.ID,
			"error", err,
		)
		// Schedule некорректный — лучше не трогать next_due_at
		return created, nil
	}

	if exec != nil {
		sched.RecordRun(exec.ID, nextDue)
	} else {
		sched.NextDueAt = &nextDue
		sched.UpdatedAt = now
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return created, fmt.Errorf("update schedule: %w", err)
	}

	return created, nil
}
