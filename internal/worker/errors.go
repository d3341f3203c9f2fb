package worker

import "errors"

// Ошибки воркера.
var (
	// ErrActionNotQueued — действие не найдено или уже забрано другим воркером.
	ErrActionNotQueued = errors.New("action is not in QUEUED status")

	// ErrWorkerStopped — воркер остановлен.
	ErrWorkerStopped = errors.New("worker stopped")
)
