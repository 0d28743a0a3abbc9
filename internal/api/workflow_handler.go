package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/engine"
)

// ListWorkflows возвращает список всех workflows.
// GET /api/v1/workflows
func (h *Handler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.workflowRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		result[i] = WorkflowFromDomain(wf)
	}

	List(w, result, len(result))
}

// CreateWorkflow создаёт новый workflow.
// POST /api/v1/workflows
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now()
	wf := &domain.Workflow{
		ID:        uuid.New(),
		Name:      req.Name,
		IsActive:  false,
		Nodes:     req.Nodes,
		Edges:     req.Edges,
		Settings:  req.Settings,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Граф проверяется до сохранения: сломанный workflow в БД
	// не нужен ни UI, ни scheduler-у
	if len(wf.Nodes) > 0 {
		if _, err := engine.Build(wf); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	if err := h.workflowRepo.Create(r.Context(), wf); err != nil {
		if HandleRepoError(w, h.logger, err, "") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	Created(w, WorkflowFromDomain(*wf))
}

// ValidateWorkflow проверяет граф без сохранения.
// POST /api/v1/workflows/validate
//
// UI дёргает этот endpoint при каждом изменении графа, чтобы
// подсвечивать ошибки до запуска.
func (h *Handler) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req ValidateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf := &domain.Workflow{
		Name:     "validate",
		Nodes:    req.Nodes,
		Edges:    req.Edges,
		Settings: req.Settings,
	}

	if _, err := engine.Build(wf); err != nil {
		Success(w, ValidateWorkflowResponse{Valid: false, Error: err.Error()})
		return
	}

	Success(w, ValidateWorkflowResponse{Valid: true})
}

// GetWorkflow возвращает workflow по ID.
// GET /api/v1/workflows/{id}
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// UpdateWorkflow обновляет workflow.
// PUT /api/v1/workflows/{id}
func (h *Handler) UpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req UpdateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	if req.Name != nil {
		wf.Name = *req.Name
	}
	if req.IsActive != nil {
		wf.IsActive = *req.IsActive
	}
	if req.Nodes != nil {
		oldNodes := wf.Nodes
		wf.Nodes = *req.Nodes
		if stripped := stripRemovedVariables(oldNodes, wf.Nodes); len(stripped) > 0 {
			h.logger.Info("stripped dangling variable references",
				"workflow_id", wf.ID,
				"variables", stripped,
			)
		}
	}
	if req.Edges != nil {
		wf.Edges = *req.Edges
	}
	if req.Settings != nil {
		wf.Settings = *req.Settings
	}
	wf.UpdatedAt = time.Now()

	if len(wf.Nodes) > 0 {
		if _, err := engine.Build(wf); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	if err := h.workflowRepo.Update(r.Context(), wf); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}

// DeleteWorkflow удаляет workflow.
// DELETE /api/v1/workflows/{id}
func (h *Handler) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	if err := h.workflowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	NoContent(w)
}

// SetWorkflowActive включает или выключает workflow.
// PUT /api/v1/workflows/{id}/active
func (h *Handler) SetWorkflowActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid workflow id")
		return
	}

	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if err := h.workflowRepo.SetActive(r.Context(), id, req.IsActive); err != nil {
		if HandleRepoError(w, h.logger, err, "workflow not found") {
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	wf, err := h.workflowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "workflow not found") {
		return
	}

	Success(w, WorkflowFromDomain(*wf))
}
