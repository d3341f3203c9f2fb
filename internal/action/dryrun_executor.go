package action

import (
	"context"
	"log/slog"

	"github.com/shaiso/zapflow/internal/domain"
)

// DryRunExecutor ничего не отправляет: логирует действие и возвращает
// его параметры как outputs.
type DryRunExecutor struct {
	Logger *slog.Logger
}

// Execute реализует Executor.
func (e *DryRunExecutor) Execute(_ context.Context, sub *domain.ActionSubmission) (*ExecutionResult, error) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("dry run action",
		"action_id", sub.ID,
		"node_id", sub.NodeID,
		"action_type", sub.Type,
		"params", sub.Params,
	)

	return &ExecutionResult{
		Outputs: map[string]any{
			"dry_run": true,
			"params":  sub.Params,
		},
	}, nil
}
