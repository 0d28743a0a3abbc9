package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → COMPLETED
//	                  ↘ FAILED
//	          (или) → CANCELLED (из PENDING или RUNNING)
type RunStatus string

const (
	// RunStatusPending — run создан, но ещё не начал выполняться.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted — run завершён и ни один узел не провалился.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed — хотя бы один узел или merge провалился.
	// continue_on_fail влияет только на то, продолжают ли ветки
	// выполняться после ошибки, но не на итоговый вердикт.
	RunStatusFailed RunStatus = "FAILED"

	// RunStatusCancelled — run отменён пользователем или извне.
	RunStatusCancelled RunStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// NodeStatus — статус выполнения узла.
//
// Жизненный цикл:
//
//	RUNNING → SUCCEEDED
//	        ↘ FAILED
//	        ↘ CANCELLED (ветка отменена merge-ом any/first или извне)
type NodeStatus string

const (
	// NodeStatusRunning — узел выполняется.
	NodeStatusRunning NodeStatus = "RUNNING"

	// NodeStatusSucceeded — узел успешно завершён.
	NodeStatusSucceeded NodeStatus = "SUCCEEDED"

	// NodeStatusFailed — узел завершился с ошибкой.
	NodeStatusFailed NodeStatus = "FAILED"

	// NodeStatusCancelled — выполнение узла отменено до завершения.
	NodeStatusCancelled NodeStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s NodeStatus) IsTerminal() bool {
	switch s {
	case NodeStatusSucceeded, NodeStatusFailed, NodeStatusCancelled:
		return true
	default:
		return false
	}
}
