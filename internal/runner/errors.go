package runner

import "errors"

// Ошибки выполнения run.
var (
	// ErrCancelledBranch — ветка отменена кооперативно:
	// run отменили снаружи или сиблинг выиграл any/first merge.
	ErrCancelledBranch = errors.New("branch cancelled")

	// ErrMergeFailed — merge узел перешёл в состояние FAILED.
	ErrMergeFailed = errors.New("merge failed")
)
