package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
)

// Action — действие, которое walker передаёт исполнителю.
type Action struct {
	// ExecutionID — выполнение, в котором действие создано (uuid.Nil вне выполнения).
	ExecutionID uuid.UUID

	// NodeID — ACTION-узел.
	NodeID domain.NodeID

	// Type — тип действия.
	Type domain.ActionType

	// Params — разрешённые параметры: token_from_address, token_to_address,
	// token_from_amount.
	Params map[string]Value
}

// Dispatcher принимает действия на асинхронное выполнение.
//
// Submit не должен блокироваться на выполнении действия: walker
// продолжает обход сразу после вызова и результат не наблюдает.
type Dispatcher interface {
	Submit(a Action)
}

// DispatcherFunc — адаптер функции к Dispatcher.
type DispatcherFunc func(a Action)

// Submit вызывает f(a).
func (f DispatcherFunc) Submit(a Action) { f(a) }

// Options — параметры движка.
type Options struct {
	// Dispatcher — получатель действий. Nil — действия отбрасываются.
	Dispatcher Dispatcher

	// Logger — логгер. По умолчанию slog.Default().
	Logger *slog.Logger

	// Arithmetic — политика для арифметики над разными числовыми вариантами.
	Arithmetic MixedPolicy
}

// Engine строит граф из документа и обходит его.
type Engine struct {
	dispatcher Dispatcher
	logger     *slog.Logger
	policy     MixedPolicy
}

// New создаёт движок.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = DispatcherFunc(func(Action) {})
	}
	return &Engine{
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		policy:     opts.Arithmetic,
	}
}

// Execute строит граф и обходит его от корня.
//
// Структурные ошибки возвращаются до начала обхода. Ошибка выполнения
// прерывает весь обход; Result при этом содержит шаги, пройденные до
// ошибки. Уже отправленные действия не отменяются.
func (e *Engine) Execute(ctx context.Context, doc domain.Document) (*Result, error) {
	g, err := BuildGraph(doc)
	if err != nil {
		return nil, err
	}
	return e.Walk(ctx, g)
}

// Walk обходит уже построенный граф.
func (e *Engine) Walk(ctx context.Context, g *Graph) (*Result, error) {
	w := &walker{
		ctx:        ctx,
		dispatcher: e.dispatcher,
		logger:     e.logger,
		policy:     e.policy,
		execID:     ExecutionIDFrom(ctx),
		result:     &Result{Steps: make([]Step, 0, g.Size())},
	}

	root := g.Root()
	env := NewEnv()
	w.record(root, env)

	if err := w.descend(root, env); err != nil {
		return w.result, err
	}
	return w.result, nil
}

// Result — итог обхода.
type Result struct {
	// Steps — посещённые узлы в порядке обхода.
	Steps []Step `json:"steps"`

	// ActionsDispatched — количество отправленных действий.
	ActionsDispatched int `json:"actions_dispatched"`

	// BranchesSkipped — рёбра, условие которых оказалось ложным.
	BranchesSkipped int `json:"branches_skipped"`
}

// Step — посещение узла.
type Step struct {
	NodeID domain.NodeID   `json:"node_id"`
	Kind   domain.NodeKind `json:"kind"`
	// Env — окружение ветки после применения узла.
	Env *Env `json:"env"`
}

// VisitedByKind возвращает количество посещений по типам узлов.
func (r *Result) VisitedByKind() map[domain.NodeKind]int {
	out := make(map[domain.NodeKind]int, 3)
	for _, s := range r.Steps {
		out[s.Kind]++
	}
	return out
}

type ctxKey struct{}

// WithExecutionID сохраняет id выполнения в контексте.
// Walker проставляет его в каждое отправленное Action.
func WithExecutionID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// ExecutionIDFrom извлекает id выполнения из контекста.
func ExecutionIDFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(ctxKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
