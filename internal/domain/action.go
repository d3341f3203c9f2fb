package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionSubmission — действие, переданное движком исполнителю.
//
// Создаётся при обходе ACTION-узла. Выполняется воркером независимо
// от обхода графа: результат в окружение переменных не возвращается.
type ActionSubmission struct {
	// ID — уникальный идентификатор.
	ID uuid.UUID `json:"id"`

	// ExecutionID — выполнение, в котором действие было отправлено.
	ExecutionID *uuid.UUID `json:"execution_id,omitempty"`

	// NodeID — ACTION-узел документа.
	NodeID NodeID `json:"node_id"`

	// Type — тип действия.
	Type ActionType `json:"action_type"`

	// Params — разрешённые параметры (адреса, сумма).
	Params map[string]any `json:"params,omitempty"`

	// Attempt — номер попытки (начиная с 1).
	Attempt int `json:"attempt"`

	// Status — текущий статус.
	Status ActionStatus `json:"status"`

	// Outputs — результат исполнителя (например, tx_hash).
	Outputs map[string]any `json:"outputs,omitempty"`

	// StartedAt — начало выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — конец выполнения.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — текст ошибки.
	Error string `json:"error,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`
}

// Duration возвращает продолжительность выполнения.
func (a *ActionSubmission) Duration() time.Duration {
	if a.StartedAt == nil || a.FinishedAt == nil {
		return 0
	}
	return a.FinishedAt.Sub(*a.StartedAt)
}

// IsFinished возвращает true, если действие завершено.
func (a *ActionSubmission) IsFinished() bool {
	return a.Status.IsTerminal()
}

// MarkRunning переводит действие в статус RUNNING.
func (a *ActionSubmission) MarkRunning() {
	now := time.Now()
	a.Status = ActionStatusRunning
	a.StartedAt = &now
	a.Attempt++
}

// MarkSucceeded переводит действие в статус SUCCEEDED с результатами.
func (a *ActionSubmission) MarkSucceeded(outputs map[string]any) {
	now := time.Now()
	a.Status = ActionStatusSucceeded
	a.FinishedAt = &now
	a.Outputs = outputs
	a.Error = ""
}

// MarkFailed переводит действие в статус FAILED с ошибкой.
func (a *ActionSubmission) MarkFailed(err string) {
	now := time.Now()
	a.Status = ActionStatusFailed
	a.FinishedAt = &now
	a.Error = err
}

// ResetForRetry подготавливает действие к повторной попытке.
func (a *ActionSubmission) ResetForRetry() {
	a.Status = ActionStatusQueued
	a.StartedAt = nil
	a.FinishedAt = nil
	a.Error = ""
	// Attempt увеличится при следующем MarkRunning()
}

// CanRetry проверяет, можно ли сделать ещё одну попытку.
func (a *ActionSubmission) CanRetry(maxAttempts int) bool {
	return a.Attempt < maxAttempts
}
