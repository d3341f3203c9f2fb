package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrWorkflowNotFound — workflow не найден в БД.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowInactive — workflow выключен и не запускается.
	ErrWorkflowInactive = errors.New("workflow is not active")

	// ErrDuplicateExecution — выполнение с таким ключом идемпотентности уже есть.
	// Возвращается вместе с существующим выполнением.
	ErrDuplicateExecution = errors.New("execution with this idempotency key already exists")
)

// Виды ошибок выполнения, не относящиеся к движку.
const (
	ErrorKindCanceled = "Canceled"
	ErrorKindInternal = "Internal"
)
