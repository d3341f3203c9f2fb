package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/orchestrator"
	"github.com/shaiso/zapflow/internal/repo"
)

// PlayWorkflow запускает сохранённый workflow.
// POST /api/v1/workflows/{id}/play
//
// Обход синхронный: ответ содержит итог (SUCCEEDED/FAILED). Повтор
// idempotency_key возвращает существующее выполнение с кодом 200.
func (h *Handler) PlayWorkflow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "workflow")
	if !ok {
		return
	}

	var req PlayRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			BadRequest(w, "invalid request body")
			return
		}
	}

	exec, err := h.player.Play(r.Context(), id, orchestrator.PlayOptions{
		Trigger:        domain.TriggerManual,
		IdempotencyKey: req.IdempotencyKey,
	})
	switch {
	case err == nil:
		Created(w, ExecutionFromDomain(*exec))
	case errors.Is(err, orchestrator.ErrDuplicateExecution):
		Success(w, ExecutionFromDomain(*exec))
	case errors.Is(err, orchestrator.ErrWorkflowNotFound):
		NotFound(w, "workflow not found")
	case errors.Is(err, orchestrator.ErrWorkflowInactive):
		InvalidState(w, err.Error())
	default:
		InternalError(w, h.logger, err)
	}
}

// ExecuteDocument выполняет документ без сохранения workflow.
// POST /api/v1/executions
//
// Структурные ошибки документа записываются как FAILED-выполнение
// с видом MalformedDocument.
func (h *Handler) ExecuteDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := readDocument(w, r)
	if !ok {
		return
	}

	exec, err := h.player.ExecuteDocument(r.Context(), doc, orchestrator.PlayOptions{
		Trigger:        domain.TriggerAdHoc,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	switch {
	case err == nil:
		Created(w, ExecutionFromDomain(*exec))
	case errors.Is(err, orchestrator.ErrDuplicateExecution):
		Success(w, ExecutionFromDomain(*exec))
	default:
		InternalError(w, h.logger, err)
	}
}

// ListExecutions возвращает список выполнений с фильтрацией.
// GET /api/v1/executions?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{Page: queryPage(r)}

	if wfIDStr := r.URL.Query().Get("workflow_id"); wfIDStr != "" {
		wfID, err := uuid.Parse(wfIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &wfID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		s := domain.ExecutionStatus(status)
		if !s.IsTerminal() && s != domain.ExecutionStatusRunning {
			BadRequest(w, "invalid status")
			return
		}
		filter.Status = &s
	}

	executions, err := h.executions.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}

	List(w, result, len(result))
}

// GetExecution возвращает выполнение вместе с шагами обхода.
// GET /api/v1/executions/{id}
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "execution")
	if !ok {
		return
	}

	exec, err := h.executions.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(*exec))
}

// ListExecutionActions возвращает действия, отправленные выполнением.
// GET /api/v1/executions/{id}/actions
func (h *Handler) ListExecutionActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "execution")
	if !ok {
		return
	}

	// Проверяем, что выполнение существует
	if _, err := h.executions.GetByID(r.Context(), id); HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	actions, err := h.actions.ListByExecution(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ActionResponse, len(actions))
	for i, a := range actions {
		result[i] = ActionFromDomain(a)
	}

	List(w, result, len(result))
}
