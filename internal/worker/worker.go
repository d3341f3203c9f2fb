package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/action"
	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
)

// ActionStore — хранилище действий, нужное воркеру.
// Реализуется repo.ActionRepo.
type ActionStore interface {
	ListQueued(ctx context.Context, limit int) ([]domain.ActionSubmission, error)
	ClaimQueued(ctx context.Context, id uuid.UUID) (*domain.ActionSubmission, error)
	Update(ctx context.Context, sub *domain.ActionSubmission) error
}

// Worker выполняет действия, отправленные движком.
//
// Worker — stateless компонент системы, который:
//   - Получает action.ready из очереди actions.ready (event-driven)
//   - Периодически проверяет QUEUED-действия в БД (polling fallback)
//   - Атомарно забирает действие (QUEUED → RUNNING) и выполняет его через action.Runner
//
// Workers масштабируются горизонтально: захват действия через
// UPDATE ... WHERE status = 'QUEUED' не даёт выполнить его дважды.
type Worker struct {
	actions ActionStore
	runner  *action.Runner

	conn     *mq.Connection
	consumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int
	prefetch     int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// Actions — хранилище действий (обязательно).
	Actions ActionStore

	// Runner — исполнитель с retry (обязательно).
	Runner *action.Runner

	// Conn — соединение с RabbitMQ. Nil — только polling.
	Conn *mq.Connection

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество действий за один poll (default: 50)
	Prefetch     int           // prefetch consumer'а (default: 5)

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		actions:      cfg.Actions,
		runner:       cfg.Runner,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		prefetch:     prefetch,
		logger:       logger,
	}
}

// Start запускает Worker.
//
// Запускает:
//   - Consumer для actions.ready (если есть соединение с RabbitMQ)
//   - Polling горутину для fallback
func (w *Worker) Start(ctx context.Context) error {
	if w.IsStopped() {
		return ErrWorkerStopped
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"poll_interval", w.pollInterval,
		"batch_size", w.batchSize,
		"consumer", w.conn != nil,
	)

	if w.conn != nil {
		w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
			Queue:    mq.QueueActionsReady,
			Handler:  w.handleActionReady,
			Prefetch: w.prefetch,
		})

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.Error("action consumer error", "error", err)
			}
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pollLoop(ctx)
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения текущих действий.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// pollLoop — цикл polling для fallback.
func (w *Worker) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем действия, созданные пока были выключены)
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (w *Worker) poll(ctx context.Context) {
	queued, err := w.actions.ListQueued(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("failed to list queued actions", "error", err)
		return
	}

	if len(queued) == 0 {
		return
	}

	w.logger.Debug("poll found queued actions", "count", len(queued))

	for i := range queued {
		if ctx.Err() != nil {
			return
		}
		id := queued[i].ID
		if err := w.processAction(ctx, id); err != nil && !errors.Is(err, ErrActionNotQueued) {
			w.logger.Error("failed to process action from poll",
				"action_id", id,
				"error", err,
			)
		}
	}
}
