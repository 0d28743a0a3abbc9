package worker

import "errors"

// Ошибки обработки runs.
var (
	// ErrRunNotFound — run не найден в БД.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunNotPending — run уже взят в работу или завершён.
	ErrRunNotPending = errors.New("run is not pending")

	// ErrWorkflowNotFound — workflow, на который ссылается run, не найден.
	ErrWorkflowNotFound = errors.New("workflow not found")
)
