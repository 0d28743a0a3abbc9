package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Apiary/internal/domain"
)

// Event — событие завершения узла. Эмитится по мере выполнения,
// чтобы вызывающая сторона могла отображать живые результаты.
type Event struct {
	// NodeID — узел, завершивший выполнение.
	NodeID string

	// Result — результат узла (успех, провал или отмена).
	Result *domain.NodeResult
}

// Summary — итоговая сводка run.
type Summary struct {
	// RunID — идентификатор run.
	RunID uuid.UUID

	// Status — терминальный статус: COMPLETED, FAILED или CANCELLED.
	Status domain.RunStatus

	// Results — последний результат каждого выполненного узла.
	// Узлы, до которых выполнение не дошло, отсутствуют.
	Results map[string]*domain.NodeResult

	// Variables — переменные run после применения всех экстракторов.
	Variables map[string]any

	// Error — первая ошибка узла, завалившая run.
	Error string

	// StartedAt, FinishedAt — границы выполнения.
	StartedAt  time.Time
	FinishedAt time.Time
}

// RunHandle — дескриптор выполняющегося run.
//
// События читаются из Events(); канал закрывается, когда run завершён.
// Сводка доступна после закрытия Done().
type RunHandle struct {
	// RunID — идентификатор run.
	RunID uuid.UUID

	events chan Event
	done   chan struct{}
	cancel context.CancelFunc

	mu      sync.Mutex
	summary *Summary
}

// Events возвращает поток событий завершения узлов.
//
// Канал буферизован; если потребитель не успевает, события
// отбрасываются — авторитетный источник результатов это Summary.
func (h *RunHandle) Events() <-chan Event {
	return h.events
}

// Done закрывается при завершении run.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Cancel отменяет run кооперативно. Ветки, находящиеся в точке
// приостановки (HTTP-запрос, delay), прерываются; их узлы получают
// статус CANCELLED.
func (h *RunHandle) Cancel() {
	h.cancel()
}

// Wait блокируется до завершения run или отмены ctx.
func (h *RunHandle) Wait(ctx context.Context) (*Summary, error) {
	select {
	case <-h.done:
		return h.Summary(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Summary возвращает сводку или nil, если run ещё идёт.
func (h *RunHandle) Summary() *Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.summary
}

// finish фиксирует сводку и закрывает каналы.
func (h *RunHandle) finish(s *Summary) {
	h.mu.Lock()
	h.summary = s
	h.mu.Unlock()

	close(h.events)
	close(h.done)
}

// emit отправляет событие без блокировки.
func (h *RunHandle) emit(result *domain.NodeResult) {
	select {
	case h.events <- Event{NodeID: result.NodeID, Result: result}:
	default:
	}
}
