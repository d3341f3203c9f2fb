package action

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/telemetry"
)

// Handler обрабатывает одно действие, принятое диспетчером.
type Handler interface {
	Handle(ctx context.Context, a engine.Action) error
}

// HandlerFunc — адаптер функции к Handler.
type HandlerFunc func(ctx context.Context, a engine.Action) error

// Handle вызывает f.
func (f HandlerFunc) Handle(ctx context.Context, a engine.Action) error {
	return f(ctx, a)
}

// DispatcherConfig — настройки AsyncDispatcher.
type DispatcherConfig struct {
	// Handler — обработчик действий (обязательно).
	Handler Handler

	// Workers — количество горутин-обработчиков. По умолчанию 4.
	Workers int

	Logger *slog.Logger
}

// AsyncDispatcher реализует engine.Dispatcher.
//
// Submit кладёт действие в неограниченную очередь в памяти и сразу
// возвращается. Пул горутин разбирает очередь и передаёт действия
// Handler'у. Порядок завершения действий не гарантируется.
type AsyncDispatcher struct {
	handler Handler
	workers int
	logger  *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []engine.Action
	started bool
	closed  bool

	wg sync.WaitGroup
}

var _ engine.Dispatcher = (*AsyncDispatcher)(nil)

// NewAsyncDispatcher создаёт диспетчер. Обработка начинается после Start.
func NewAsyncDispatcher(cfg DispatcherConfig) *AsyncDispatcher {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	d := &AsyncDispatcher{
		handler: cfg.Handler,
		workers: cfg.Workers,
		logger:  cfg.Logger,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Start запускает горутины-обработчики. ctx передаётся в Handler.
func (d *AsyncDispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for range d.workers {
		d.wg.Add(1)
		go d.loop(ctx)
	}

	d.logger.Info("action dispatcher started", "workers", d.workers)
}

// Submit ставит действие в очередь. Никогда не блокируется на выполнении.
// После Stop действие отбрасывается с предупреждением.
func (d *AsyncDispatcher) Submit(a engine.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.logger.Warn("action dropped: dispatcher stopped",
			"node_id", a.NodeID,
			"action_type", a.Type,
		)
		return
	}

	d.queue = append(d.queue, a)
	telemetry.ActionsDispatchedTotal.WithLabelValues(string(a.Type)).Inc()
	telemetry.DispatchQueueDepth.Inc()
	d.cond.Signal()
}

// Pending возвращает количество действий в очереди.
func (d *AsyncDispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Stop перестаёт принимать действия, дожидается обработки очереди
// и завершения горутин.
func (d *AsyncDispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	d.cond.Broadcast()
	d.mu.Unlock()

	if started {
		d.wg.Wait()
	}
	d.logger.Info("action dispatcher stopped")
}

func (d *AsyncDispatcher) loop(ctx context.Context) {
	defer d.wg.Done()

	for {
		a, ok := d.next()
		if !ok {
			return
		}

		if err := d.handler.Handle(ctx, a); err != nil {
			d.logger.Error("action handling failed",
				"execution_id", a.ExecutionID,
				"node_id", a.NodeID,
				"action_type", a.Type,
				"error", err,
			)
		}
	}
}

// next ждёт действие. false — очередь пуста и диспетчер остановлен.
func (d *AsyncDispatcher) next() (engine.Action, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for len(d.queue) == 0 && !d.closed {
		d.cond.Wait()
	}
	if len(d.queue) == 0 {
		return engine.Action{}, false
	}

	a := d.queue[0]
	d.queue[0] = engine.Action{}
	d.queue = d.queue[1:]
	telemetry.DispatchQueueDepth.Dec()
	return a, true
}
