package domain

// ExecutionStatus — статус выполнения workflow.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
//
// Выполнение синхронное, поэтому промежуточного PENDING нет.
type ExecutionStatus string

const (
	// ExecutionStatusRunning — обход графа в процессе.
	ExecutionStatusRunning ExecutionStatus = "RUNNING"

	// ExecutionStatusSucceeded — обход завершён без ошибок.
	ExecutionStatusSucceeded ExecutionStatus = "SUCCEEDED"

	// ExecutionStatusFailed — обход прерван ошибкой.
	ExecutionStatusFailed ExecutionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case ExecutionStatusSucceeded, ExecutionStatusFailed:
		return true
	default:
		return false
	}
}

// ActionStatus — статус отправленного действия.
//
// Жизненный цикл:
//
//	QUEUED → RUNNING → SUCCEEDED
//	                 ↘ FAILED (после всех retry)
type ActionStatus string

const (
	// ActionStatusQueued — действие ждёт исполнителя.
	ActionStatusQueued ActionStatus = "QUEUED"

	// ActionStatusRunning — действие выполняется воркером.
	ActionStatusRunning ActionStatus = "RUNNING"

	// ActionStatusSucceeded — действие выполнено.
	ActionStatusSucceeded ActionStatus = "SUCCEEDED"

	// ActionStatusFailed — действие завершилось ошибкой.
	ActionStatusFailed ActionStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный.
func (s ActionStatus) IsTerminal() bool {
	switch s {
	case ActionStatusSucceeded, ActionStatusFailed:
		return true
	default:
		return false
	}
}

// Trigger — источник запуска выполнения.
type Trigger string

const (
	// TriggerManual — запуск сохранённого workflow через API/CLI.
	TriggerManual Trigger = "MANUAL"

	// TriggerSchedule — запуск по расписанию.
	TriggerSchedule Trigger = "SCHEDULE"

	// TriggerAdHoc — выполнение документа, который не сохранён как workflow.
	TriggerAdHoc Trigger = "ADHOC"
)
