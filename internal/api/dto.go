package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Apiary/internal/domain"
)

// Workflow DTOs

// CreateWorkflowRequest — запрос на создание workflow.
type CreateWorkflowRequest struct {
	Name     string          `json:"name"`
	Nodes    []domain.Node   `json:"nodes"`
	Edges    []domain.Edge   `json:"edges"`
	Settings domain.Settings `json:"settings"`
}

// UpdateWorkflowRequest — запрос на обновление workflow.
// Nodes/Edges обновляются вместе: граф — единый документ.
type UpdateWorkflowRequest struct {
	Name     *string          `json:"name,omitempty"`
	IsActive *bool            `json:"is_active,omitempty"`
	Nodes    *[]domain.Node   `json:"nodes,omitempty"`
	Edges    *[]domain.Edge   `json:"edges,omitempty"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

// SetActiveRequest — запрос на включение/выключение workflow.
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// WorkflowResponse — ответ с workflow.
type WorkflowResponse struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	IsActive  bool            `json:"is_active"`
	Nodes     []domain.Node   `json:"nodes"`
	Edges     []domain.Edge   `json:"edges"`
	Settings  domain.Settings `json:"settings"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WorkflowFromDomain конвертирует domain.Workflow в WorkflowResponse.
func WorkflowFromDomain(wf domain.Workflow) WorkflowResponse {
	return WorkflowResponse{
		ID:        wf.ID,
		Name:      wf.Name,
		IsActive:  wf.IsActive,
		Nodes:     wf.Nodes,
		Edges:     wf.Edges,
		Settings:  wf.Settings,
		CreatedAt: wf.CreatedAt,
		UpdatedAt: wf.UpdatedAt,
	}
}

// ValidateWorkflowRequest — запрос на проверку графа без сохранения.
type ValidateWorkflowRequest struct {
	Nodes    []domain.Node   `json:"nodes"`
	Edges    []domain.Edge   `json:"edges"`
	Settings domain.Settings `json:"settings"`
}

// ValidateWorkflowResponse — результат проверки графа.
type ValidateWorkflowResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Run DTOs

// CreateRunRequest — запрос на создание run.
type CreateRunRequest struct {
	Variables      map[string]any `json:"variables,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
}

// RunResponse — ответ с run.
type RunResponse struct {
	ID             uuid.UUID      `json:"id"`
	WorkflowID     uuid.UUID      `json:"workflow_id"`
	Status         string         `json:"status"`
	Variables      map[string]any `json:"variables,omitempty"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
	Error          string         `json:"error,omitempty"`
	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		WorkflowID:     r.WorkflowID,
		Status:         string(r.Status),
		Variables:      r.Variables,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		Error:          r.Error,
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt,
	}
}

// NodeResult DTOs

// NodeResultResponse — ответ с результатом узла.
type NodeResultResponse struct {
	NodeID     string               `json:"node_id"`
	Type       string               `json:"type"`
	Status     string               `json:"status"`
	HTTP       *domain.HTTPResult   `json:"http,omitempty"`
	Assert     *domain.AssertResult `json:"assert,omitempty"`
	Error      string               `json:"error,omitempty"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	DurationMs int64                `json:"duration_ms"`
}

// NodeResultFromDomain конвертирует domain.NodeResult в NodeResultResponse.
func NodeResultFromDomain(r domain.NodeResult) NodeResultResponse {
	return NodeResultResponse{
		NodeID:     r.NodeID,
		Type:       string(r.Type),
		Status:     string(r.Status),
		HTTP:       r.HTTP,
		Assert:     r.Assert,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
	Enabled     bool           `json:"enabled"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string         `json:"name,omitempty"`
	CronExpr    *string         `json:"cron_expr,omitempty"`
	IntervalSec *int            `json:"interval_sec,omitempty"`
	Timezone    *string         `json:"timezone,omitempty"`
	Variables   *map[string]any `json:"variables,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ со schedule.
type ScheduleResponse struct {
	ID          uuid.UUID      `json:"id"`
	WorkflowID  uuid.UUID      `json:"workflow_id"`
	Name        string         `json:"name"`
	CronExpr    string         `json:"cron_expr,omitempty"`
	IntervalSec int            `json:"interval_sec,omitempty"`
	Timezone    string         `json:"timezone"`
	Enabled     bool           `json:"enabled"`
	NextDueAt   *time.Time     `json:"next_due_at,omitempty"`
	LastRunAt   *time.Time     `json:"last_run_at,omitempty"`
	LastRunID   *uuid.UUID     `json:"last_run_id,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:          s.ID,
		WorkflowID:  s.WorkflowID,
		Name:        s.Name,
		CronExpr:    s.CronExpr,
		IntervalSec: s.IntervalSec,
		Timezone:    s.Timezone,
		Enabled:     s.Enabled,
		NextDueAt:   s.NextDueAt,
		LastRunAt:   s.LastRunAt,
		LastRunID:   s.LastRunID,
		Variables:   s.Variables,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}
