package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/repo"
)

// ListRuns возвращает список runs с фильтрацией.
// GET /api/v1/runs?workflow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	filter := repo.RunFilter{}

	// Парсим query параметры
	if wfIDStr := r.URL.Query().Get("workflow_id"); wfIDStr != "" {
		wfID, err := uuid.Parse(wfIDStr)
		if err != nil {
			BadRequest(w, "invalid workflow_id")
			return
		}
		filter.WorkflowID = &wfID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.RunStatus(status)
	}

	filter.Limit = queryInt(r, "limit", 50)
	filter.Offset = queryInt(r, "offset", 0)

	runs, err := h.runRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]RunResponse, len(runs))
	for i, run := range runs {
		result[i] = RunFromDomain(run)
	}

	List(w, result, len(result))
}

// CreateRun создаёт новый run для workflow.
// POST /api/v1/workflows/{id}/runs
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	// Проверяем, что workflow существует
	wf, err := h.workflowRepo.GetByID(r.Context(), workflowID)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	// Проверяем idempotency key
	if req.IdempotencyKey != "" {
		existingRun, err := h.runRepo.GetByIdempotencyKey(r.Context(), workflowID, req.IdempotencyKey)
		if err == nil && existingRun != nil {
			// Возвращаем существующий run
			Success(w, RunFromDomain(*existingRun))
			return
		}
	}

	run := &domain.Run{
		ID:             uuid.New(),
		WorkflowID:     wf.ID,
		Status:         domain.RunStatusPending,
		Variables:      req.Variables,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}

	if err := h.runRepo.Create(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	h.dispatchRun(r.Context(), run.ID)

	Created(w, RunFromDomain(*run))
}

// dispatchRun передаёт run на выполнение: публикует run.pending либо,
// без брокера, выполняет run в фоне прямо из API-процесса.
func (h *Handler) dispatchRun(ctx context.Context, runID uuid.UUID) {
	if h.publisher != nil {
		err := h.publisher.PublishRunPending(ctx, runID)
		if err == nil {
			return
		}
		h.logger.Warn("failed to publish run.pending", "run_id", runID, "error", err)
	}

	if h.inline == nil {
		h.logger.Warn("run left pending: no publisher and no inline worker", "run_id", runID)
		return
	}

	go func() {
		// Собственный контекст: выполнение переживает HTTP-запрос
		if err := h.inline.ProcessRun(context.Background(), runID); err != nil {
			h.logger.Error("inline run execution failed", "run_id", runID, "error", err)
		}
	}()
}

// GetRun возвращает run по ID.
// GET /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	Success(w, RunFromDomain(*run))
}

// CancelRun отменяет run.
// POST /api/v1/runs/{id}/cancel
func (h *Handler) CancelRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	run, err := h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	if run.IsFinished() {
		InvalidState(w, "run is already finished")
		return
	}

	run.MarkCancelled()

	if err := h.runRepo.Update(r.Context(), run); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, RunFromDomain(*run))
}

// ListRunResults возвращает per-node результаты run.
// GET /api/v1/runs/{id}/results
func (h *Handler) ListRunResults(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid run id")
		return
	}

	// Проверяем, что run существует
	_, err = h.runRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "run not found") {
		return
	}

	results, err := h.resultRepo.ListByRun(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NodeResultResponse, len(results))
	for i, res := range results {
		result[i] = NodeResultFromDomain(res)
	}

	List(w, result, len(result))
}

// queryInt парсит числовой query-параметр с дефолтным значением.
func queryInt(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}
