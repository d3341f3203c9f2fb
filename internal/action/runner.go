package action

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/telemetry"
)

// Стратегии backoff.
const (
	BackoffExponential = "exponential"
	BackoffFixed       = "fixed"
)

// RetryPolicy — политика повторов действия.
type RetryPolicy struct {
	// MaxAttempts — максимум попыток, включая первую. 0 — одна попытка.
	MaxAttempts int

	// Backoff — "exponential" или "fixed".
	Backoff string

	// InitialDelay — задержка перед первым повтором. По умолчанию 1s.
	InitialDelay time.Duration

	// MaxDelay — верхняя граница задержки. По умолчанию 30s.
	MaxDelay time.Duration

	// OnStatus — HTTP-коды relayer'а, при которых логическая ошибка повторяется.
	// Пустой список — повторяется любая логическая ошибка.
	OnStatus []int
}

// DefaultRetryPolicy возвращает политику по умолчанию: 3 попытки с
// экспоненциальной задержкой, повтор только для 429 и 5xx.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		Backoff:      BackoffExponential,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		OnStatus:     []int{429, 500, 502, 503, 504},
	}
}

// Updater сохраняет состояние действия.
type Updater interface {
	Update(ctx context.Context, sub *domain.ActionSubmission) error
}

// RunnerConfig — настройки Runner.
type RunnerConfig struct {
	Registry *Registry
	Retry    RetryPolicy

	// RatePerSec — ограничение попыток в секунду. 0 — без ограничения.
	RatePerSec float64

	// Burst — размер всплеска для limiter'а. По умолчанию 1.
	Burst int

	Logger *slog.Logger
}

// Runner выполняет действие через Executor с повторами и ограничением частоты.
type Runner struct {
	registry *Registry
	policy   RetryPolicy
	limiter  *rate.Limiter
	logger   *slog.Logger

	// sleep ждёт d или отмены ctx. Подменяется в тестах.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner создаёт Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}

	return &Runner{
		registry: cfg.Registry,
		policy:   cfg.Retry,
		limiter:  rate.NewLimiter(limit, cfg.Burst),
		logger:   cfg.Logger,
		sleep:    sleepContext,
	}
}

// Run выполняет действие до успеха или исчерпания попыток.
//
// Действие в статусе QUEUED переводится в RUNNING здесь; уже захваченное
// (RUNNING) выполняется сразу. Итог записывается в sub (SUCCEEDED/FAILED)
// и сохраняется через store, если он задан. Ошибка возвращается только
// при отмене контекста или сбое сохранения: неуспешное действие — это
// FAILED в sub, а не ошибка Run.
func (r *Runner) Run(ctx context.Context, sub *domain.ActionSubmission, store Updater) error {
	logger := r.logger.With("action_id", sub.ID, "action_type", sub.Type)

	if sub.Status == domain.ActionStatusQueued {
		sub.MarkRunning()
		if err := persist(ctx, store, sub); err != nil {
			return fmt.Errorf("update action to running: %w", err)
		}
	}

	logger.Info("action started", "node_id", sub.NodeID, "attempt", sub.Attempt)

	result, execErr := r.executeWithRetry(ctx, sub, store, logger)
	if ctx.Err() != nil && execErr == ctx.Err() {
		return execErr
	}

	if execErr == nil && !result.Failed() {
		var outputs map[string]any
		if result != nil {
			outputs = result.Outputs
		}
		sub.MarkSucceeded(outputs)
		if err := persist(ctx, store, sub); err != nil {
			return fmt.Errorf("update action to succeeded: %w", err)
		}
		logger.Info("action succeeded", "attempt", sub.Attempt, "duration", sub.Duration())
		return nil
	}

	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	} else {
		errMsg = result.Error
	}

	sub.MarkFailed(errMsg)
	if err := persist(ctx, store, sub); err != nil {
		return fmt.Errorf("update action to failed: %w", err)
	}
	logger.Warn("action failed", "attempt", sub.Attempt, "error", errMsg)
	return nil
}

// executeWithRetry выполняет действие с повторами согласно политике.
func (r *Runner) executeWithRetry(ctx context.Context, sub *domain.ActionSubmission, store Updater, logger *slog.Logger) (*ExecutionResult, error) {
	executor, err := r.registry.Get(sub.Type)
	if err != nil {
		return nil, err
	}

	maxAttempts := max(r.policy.MaxAttempts, 1)

	var lastResult *ExecutionResult
	var lastErr error

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, ctx.Err()
		}

		lastResult, lastErr = executor.Execute(ctx, sub)
		r.recordAttempt(sub, lastResult, lastErr)

		if lastErr == nil && !lastResult.Failed() {
			return lastResult, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !sub.CanRetry(maxAttempts) || !r.shouldRetry(lastResult, lastErr) {
			break
		}

		delay := calculateBackoff(sub.Attempt, r.policy)
		logger.Debug("retrying action", "attempt", sub.Attempt, "delay", delay)

		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}

		sub.ResetForRetry()
		sub.MarkRunning()
		if err := persist(ctx, store, sub); err != nil {
			return nil, fmt.Errorf("update action for retry: %w", err)
		}
	}

	return lastResult, lastErr
}

func (r *Runner) recordAttempt(sub *domain.ActionSubmission, result *ExecutionResult, err error) {
	status := string(domain.ActionStatusSucceeded)
	if err != nil || result.Failed() {
		status = string(domain.ActionStatusFailed)
	}
	telemetry.ActionAttemptsTotal.WithLabelValues(string(sub.Type), status).Inc()
}

// shouldRetry определяет, нужно ли повторять попытку.
func (r *Runner) shouldRetry(result *ExecutionResult, execErr error) bool {
	// Инфраструктурная ошибка — всегда retry
	if execErr != nil {
		return true
	}

	if len(r.policy.OnStatus) == 0 {
		return true
	}

	// Логическая ошибка без status_code (невалидные параметры) — не retry
	if code, ok := result.Outputs["status_code"].(int); ok {
		return slices.Contains(r.policy.OnStatus, code)
	}
	return false
}

// calculateBackoff вычисляет задержку перед повтором.
func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	initialDelay := policy.InitialDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initialDelay
	if policy.Backoff == BackoffExponential {
		// delay = initialDelay * 2^(attempt-1)
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				break
			}
		}
	}

	return min(delay, maxDelay)
}

func persist(ctx context.Context, store Updater, sub *domain.ActionSubmission) error {
	if store == nil {
		return nil
	}
	return store.Update(ctx, sub)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
