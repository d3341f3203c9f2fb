package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Execution — один запуск workflow.
//
// Execution создаётся когда:
// - Пользователь запускает workflow (POST /workflows/{id}/play)
// - Пользователь присылает документ на разовое выполнение
// - Scheduler запускает workflow по расписанию
type Execution struct {
	// ID — уникальный идентификатор выполнения.
	ID uuid.UUID `json:"id"`

	// WorkflowID — сохранённый workflow. Nil для разовых выполнений.
	WorkflowID *uuid.UUID `json:"workflow_id,omitempty"`

	// Trigger — источник запуска.
	Trigger Trigger `json:"trigger"`

	// Status — текущий статус.
	Status ExecutionStatus `json:"status"`

	// Steps — посещённые узлы в порядке обхода вместе с окружением ветки.
	// Хранится как JSON, формат задаёт engine.
	Steps json.RawMessage `json:"steps,omitempty"`

	// ActionsDispatched — сколько действий отправлено исполнителю.
	ActionsDispatched int `json:"actions_dispatched"`

	// ErrorKind — вид ошибки ("UnresolvedVariable", "DivisionByZero", ...).
	ErrorKind string `json:"error_kind,omitempty"`

	// ErrorNode — узел, на котором произошла ошибка.
	ErrorNode *NodeID `json:"error_node,omitempty"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — ключ идемпотентности (для запусков по расписанию).
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — начало обхода.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — конец обхода.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания записи.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если выполнение ещё не завершено.
func (e *Execution) Duration() time.Duration {
	if e.StartedAt == nil || e.FinishedAt == nil {
		return 0
	}
	return e.FinishedAt.Sub(*e.StartedAt)
}

// IsFinished возвращает true, если выполнение завершено.
func (e *Execution) IsFinished() bool {
	return e.Status.IsTerminal()
}

// MarkRunning переводит выполнение в статус RUNNING.
func (e *Execution) MarkRunning() {
	now := time.Now()
	e.Status = ExecutionStatusRunning
	e.StartedAt = &now
}

// MarkSucceeded переводит выполнение в статус SUCCEEDED.
func (e *Execution) MarkSucceeded(steps json.RawMessage, dispatched int) {
	now := time.Now()
	e.Status = ExecutionStatusSucceeded
	e.FinishedAt = &now
	e.Steps = steps
	e.ActionsDispatched = dispatched
}

// MarkFailed переводит выполнение в статус FAILED.
// node может быть nil, если ошибка не привязана к узлу.
func (e *Execution) MarkFailed(kind string, node *NodeID, err string) {
	now := time.Now()
	e.Status = ExecutionStatusFailed
	e.FinishedAt = &now
	e.ErrorKind = kind
	e.ErrorNode = node
	e.Error = err
}
