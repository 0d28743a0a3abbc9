package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/mq"
	"github.com/shaiso/Apiary/internal/repo"
	"github.com/shaiso/Apiary/internal/runner"
)

// handleRunPending обрабатывает событие о новом run из очереди runs.pending.
func (w *Worker) handleRunPending(ctx context.Context, msg *mq.Message) error {
	// Парсим payload; нечитаемый payload не станет читаемым при retry
	payload, err := mq.ParsePayload[mq.RunPendingPayload](msg)
	if err != nil {
		w.logger.Error("failed to parse run.pending payload", "error", err)
		return fmt.Errorf("%w: %v", mq.ErrDrop, err)
	}

	w.logger.Debug("received run.pending event", "run_id", payload.RunID)

	// Обрабатываем run
	if err := w.ProcessRun(ctx, payload.RunID); err != nil {
		// Ожидаемые ситуации — не возвращаем ошибку (ack):
		// run уже взят другим worker-ом или удалён
		if errors.Is(err, ErrRunNotFound) || errors.Is(err, ErrRunNotPending) {
			w.logger.Debug("run not processed", "run_id", payload.RunID, "reason", err)
			return nil
		}
		w.logger.Error("failed to process run", "run_id", payload.RunID, "error", err)
		return err
	}

	return nil
}

// ProcessRun загружает run из БД, выполняет граф и сохраняет итог.
//
// Экспортирован: API вызывает его напрямую (inline fallback), когда
// брокер недоступен и событие run.pending опубликовать нельзя.
func (w *Worker) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	// 1. Загружаем run
	run, err := w.runRepo.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return fmt.Errorf("get run: %w", err)
	}

	// 2. Проверяем статус
	if run.Status != domain.RunStatusPending {
		return ErrRunNotPending
	}

	// 3. Загружаем workflow
	wf, err := w.workflowRepo.GetByID(ctx, run.WorkflowID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return w.failRun(ctx, run, fmt.Sprintf("workflow %s not found", run.WorkflowID))
		}
		return fmt.Errorf("get workflow: %w", err)
	}

	// 4. Помечаем как running
	run.MarkRunning()
	if err := w.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to running: %w", err)
	}

	w.logger.Info("run started",
		"run_id", run.ID,
		"workflow_id", wf.ID,
		"workflow", wf.Name,
	)

	// 5. Выполняем граф
	summary, results, err := w.executeRun(ctx, run, wf)
	if err != nil {
		// Граф не прошёл валидацию — run завершается сразу
		return w.failRun(ctx, run, err.Error())
	}

	// 6. Сохраняем результаты узлов
	if err := w.resultRepo.ReplaceForRun(ctx, run.ID, results); err != nil {
		w.logger.Error("failed to persist node results", "run_id", run.ID, "error", err)
	}

	// 7. Финализируем run
	run.Variables = summary.Variables
	switch summary.Status {
	case domain.RunStatusCompleted:
		run.MarkCompleted()
	case domain.RunStatusCancelled:
		run.MarkCancelled()
	default:
		run.MarkFailed(summary.Error)
	}

	if err := w.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to %s: %w", run.Status, err)
	}

	w.logger.Info("run finished",
		"run_id", run.ID,
		"status", run.Status,
		"nodes", len(results),
	)

	w.publishRunFinished(ctx, run)
	return nil
}

// executeRun запускает движок и транслирует события завершения узлов
// в очередь событий. Возвращает сводку и результаты в порядке
// завершения узлов.
func (w *Worker) executeRun(ctx context.Context, run *domain.Run, wf *domain.Workflow) (*runner.Summary, []domain.NodeResult, error) {
	handle, err := w.engine.RunWithID(ctx, run.ID, wf, wf.Settings, run.Variables)
	if err != nil {
		return nil, nil, err
	}

	var results []domain.NodeResult
	for ev := range handle.Events() {
		results = append(results, *ev.Result)
		w.publishNodeCompleted(ctx, run.ID, ev.Result)
	}

	// Events закрывается после фиксации сводки
	return handle.Summary(), results, nil
}

// failRun помечает run как FAILED и публикует событие завершения.
func (w *Worker) failRun(ctx context.Context, run *domain.Run, errMsg string) error {
	run.MarkFailed(errMsg)
	if err := w.runRepo.Update(ctx, run); err != nil {
		return fmt.Errorf("update run to failed: %w", err)
	}

	w.logger.Warn("run failed", "run_id", run.ID, "error", errMsg)

	w.publishRunFinished(ctx, run)
	return nil
}

// publishNodeCompleted публикует событие run.node_completed.
func (w *Worker) publishNodeCompleted(ctx context.Context, runID uuid.UUID, result *domain.NodeResult) {
	if w.publisher == nil {
		return
	}

	payload := mq.NodeCompletedPayload{
		RunID:  runID,
		NodeID: result.NodeID,
		Status: string(result.Status),
		Error:  result.Error,
	}

	if err := w.publisher.PublishNodeCompleted(ctx, payload); err != nil {
		w.logger.Warn("failed to publish run.node_completed",
			"run_id", runID,
			"node_id", result.NodeID,
			"error", err,
		)
		// Не возвращаем ошибку — события best-effort, авторитетный
		// источник результатов это БД
	}
}

// publishRunFinished публикует событие run.finished.
func (w *Worker) publishRunFinished(ctx context.Context, run *domain.Run) {
	if w.publisher == nil {
		w.logger.Debug("publisher not available, skipping run.finished publish",
			"run_id", run.ID,
		)
		return
	}

	payload := mq.RunFinishedPayload{
		RunID:  run.ID,
		Status: string(run.Status),
		Error:  run.Error,
	}

	if err := w.publisher.PublishRunFinished(ctx, payload); err != nil {
		w.logger.Warn("failed to publish run.finished",
			"run_id", run.ID,
			"error", err,
		)
	}
}
