package action

import (
	"context"
	"fmt"
	"sort"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
)

// Executor выполняет действие конкретного типа.
//
// Инфраструктурные ошибки (сеть, breaker) возвращаются через error.
// Логические (relayer ответил 4xx/5xx) — через ExecutionResult.Error,
// outputs при этом сохраняются.
type Executor interface {
	Execute(ctx context.Context, sub *domain.ActionSubmission) (*ExecutionResult, error)
}

// ExecutorFunc — адаптер функции к Executor.
type ExecutorFunc func(ctx context.Context, sub *domain.ActionSubmission) (*ExecutionResult, error)

// Execute вызывает f.
func (f ExecutorFunc) Execute(ctx context.Context, sub *domain.ActionSubmission) (*ExecutionResult, error) {
	return f(ctx, sub)
}

// ExecutionResult — результат одной попытки.
type ExecutionResult struct {
	// Outputs — выходные данные (status_code, tx_hash, ...).
	Outputs map[string]any

	// Error — логическая ошибка выполнения.
	Error string
}

// Failed возвращает true, если попытка завершилась логической ошибкой.
func (r *ExecutionResult) Failed() bool {
	return r != nil && r.Error != ""
}

// Registry — реестр executor'ов по типу действия.
type Registry struct {
	executors map[domain.ActionType]Executor
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[domain.ActionType]Executor)}
}

// NewSwapRegistry создаёт реестр, где все типы swap обслуживает executor.
func NewSwapRegistry(executor Executor) *Registry {
	r := NewRegistry()
	r.Register(domain.ActionSwapExactETHForTokens, executor)
	return r
}

// Register добавляет executor для типа действия.
func (r *Registry) Register(t domain.ActionType, executor Executor) {
	r.executors[t] = executor
}

// Get возвращает executor для типа действия.
func (r *Registry) Get(t domain.ActionType) (Executor, error) {
	executor, ok := r.executors[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrUnsupportedActionType, t)
	}
	return executor, nil
}

// Types возвращает зарегистрированные типы в алфавитном порядке.
func (r *Registry) Types() []domain.ActionType {
	out := make([]domain.ActionType, 0, len(r.executors))
	for t := range r.executors {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
