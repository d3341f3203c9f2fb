package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/mq"
)

// Store сохраняет действия.
type Store interface {
	Create(ctx context.Context, sub *domain.ActionSubmission) error
	Updater
}

// ReadyPublisher публикует событие action.ready.
type ReadyPublisher interface {
	PublishActionReady(ctx context.Context, payload mq.ActionReadyPayload) error
}

// QueueHandler сохраняет действие в статусе QUEUED и публикует action.ready.
// Выполняет его worker.
type QueueHandler struct {
	Store     Store
	Publisher ReadyPublisher
	Logger    *slog.Logger
}

// Handle реализует Handler.
func (h *QueueHandler) Handle(ctx context.Context, a engine.Action) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sub := NewSubmission(a)
	if err := h.Store.Create(ctx, sub); err != nil {
		return fmt.Errorf("create action: %w", err)
	}

	if h.Publisher == nil {
		return nil
	}

	payload := mq.ActionReadyPayload{
		ActionID:    sub.ID,
		ExecutionID: sub.ExecutionID,
		NodeID:      uint32(sub.NodeID),
		ActionType:  string(sub.Type),
	}
	if err := h.Publisher.PublishActionReady(ctx, payload); err != nil {
		// Действие уже в БД: worker подхватит его через polling
		logger.Warn("failed to publish action.ready",
			"action_id", sub.ID,
			"error", err,
		)
	}
	return nil
}

// LocalHandler выполняет действие в текущем процессе через Runner.
// Store необязателен: без него действие не сохраняется.
type LocalHandler struct {
	Runner *Runner
	Store  Store
}

// Handle реализует Handler.
func (h *LocalHandler) Handle(ctx context.Context, a engine.Action) error {
	sub := NewSubmission(a)

	var updater Updater
	if h.Store != nil {
		if err := h.Store.Create(ctx, sub); err != nil {
			return fmt.Errorf("create action: %w", err)
		}
		updater = h.Store
	}

	return h.Runner.Run(ctx, sub, updater)
}
