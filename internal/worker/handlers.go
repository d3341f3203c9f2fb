package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/mq"
	"github.com/shaiso/zapflow/internal/repo"
	"github.com/shaiso/zapflow/internal/telemetry"
)

// handleActionReady обрабатывает событие из очереди actions.ready.
func (w *Worker) handleActionReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.ActionReadyPayload](&delivery.Message)
	if err != nil {
		w.logger.Error("failed to parse action.ready payload", "error", err)
		return mq.Permanent(err)
	}
	if payload.ActionID == uuid.Nil {
		return mq.Permanent(fmt.Errorf("action.ready without action_id"))
	}

	w.logger.Debug("received action.ready event",
		"action_id", payload.ActionID,
		"execution_id", payload.ExecutionID,
	)

	if err := w.processAction(ctx, payload.ActionID); err != nil {
		// Действие уже забрал другой воркер или polling — ack
		if errors.Is(err, ErrActionNotQueued) {
			w.logger.Debug("action not processed", "action_id", payload.ActionID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process action", "action_id", payload.ActionID, "error", err)
		return err
	}

	return nil
}

// processAction забирает действие из БД и выполняет его.
func (w *Worker) processAction(ctx context.Context, id uuid.UUID) error {
	sub, err := w.actions.ClaimQueued(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrActionNotQueued, id)
		}
		return fmt.Errorf("claim action: %w", err)
	}

	telemetry.WithActionID(w.logger, sub.ID.String()).Debug("action claimed",
		"node_id", sub.NodeID,
		"attempt", sub.Attempt,
	)

	return w.runner.Run(ctx, sub, w.actions)
}
