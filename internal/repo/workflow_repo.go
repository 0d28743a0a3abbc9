package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Apiary/internal/domain"
)

// WorkflowRepo — репозиторий для работы с workflows.
//
// Граф (nodes, edges, settings) хранится как JSONB: движок работает
// с workflow как с единым документом, частичные апдейты не нужны.
type WorkflowRepo struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepo создаёт новый WorkflowRepo.
func NewWorkflowRepo(pool *pgxpool.Pool) *WorkflowRepo {
	return &WorkflowRepo{pool: pool}
}

// Create создаёт новый workflow.
func (r *WorkflowRepo) Create(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, edgesJSON, settingsJSON, err := marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, name, is_active, nodes, edges, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.IsActive,
		nodesJSON,
		edgesJSON,
		settingsJSON,
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

// GetByID возвращает workflow по ID.
func (r *WorkflowRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, edges, settings, created_at, updated_at
		FROM workflows
		WHERE id = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, id))
}

// GetByName возвращает workflow по имени.
func (r *WorkflowRepo) GetByName(ctx context.Context, name string) (*domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, edges, settings, created_at, updated_at
		FROM workflows
		WHERE name = $1
	`
	return r.scanWorkflow(r.pool.QueryRow(ctx, query, name))
}

// List возвращает все workflows (без графов узлов целиком — граф
// в списках тоже нужен, UI показывает счётчики узлов).
func (r *WorkflowRepo) List(ctx context.Context) ([]domain.Workflow, error) {
	query := `
		SELECT id, name, is_active, nodes, edges, settings, created_at, updated_at
		FROM workflows
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []domain.Workflow
	for rows.Next() {
		wf, err := r.scanWorkflowFromRows(rows)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, *wf)
	}
	return workflows, rows.Err()
}

// Update обновляет workflow (имя, активность и граф).
func (r *WorkflowRepo) Update(ctx context.Context, wf *domain.Workflow) error {
	nodesJSON, edgesJSON, settingsJSON, err := marshalGraph(wf)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows
		SET name = $2, is_active = $3, nodes = $4, edges = $5, settings = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query,
		wf.ID,
		wf.Name,
		wf.IsActive,
		nodesJSON,
		edgesJSON,
		settingsJSON,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete удаляет workflow.
func (r *WorkflowRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete workflow: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive включает/выключает workflow.
func (r *WorkflowRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE workflows SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Helpers ---

func marshalGraph(wf *domain.Workflow) (nodes, edges, settings []byte, err error) {
	nodes, err = json.Marshal(wf.Nodes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal nodes: %w", err)
	}
	edges, err = json.Marshal(wf.Edges)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal edges: %w", err)
	}
	settings, err = json.Marshal(wf.Settings)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal settings: %w", err)
	}
	return nodes, edges, settings, nil
}

func (r *WorkflowRepo) scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var wf domain.Workflow
	var nodesJSON, edgesJSON, settingsJSON []byte

	err := row.Scan(
		&wf.ID,
		&wf.Name,
		&wf.IsActive,
		&nodesJSON,
		&edgesJSON,
		&settingsJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := unmarshalGraph(&wf, nodesJSON, edgesJSON, settingsJSON); err != nil {
		return nil, err
	}
	return &wf, nil
}

func (r *WorkflowRepo) scanWorkflowFromRows(rows pgx.Rows) (*domain.Workflow, error) {
	var wf domain.Workflow
	var nodesJSON, edgesJSON, settingsJSON []byte

	err := rows.Scan(
		&wf.ID,
		&wf.Name,
		&wf.IsActive,
		&nodesJSON,
		&edgesJSON,
		&settingsJSON,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan workflow: %w", err)
	}

	if err := unmarshalGraph(&wf, nodesJSON, edgesJSON, settingsJSON); err != nil {
		return nil, err
	}
	return &wf, nil
}

func unmarshalGraph(wf *domain.Workflow, nodesJSON, edgesJSON, settingsJSON []byte) error {
	if nodesJSON != nil {
		if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
			return fmt.Errorf("unmarshal nodes: %w", err)
		}
	}
	if edgesJSON != nil {
		if err := json.Unmarshal(edgesJSON, &wf.Edges); err != nil {
			return fmt.Errorf("unmarshal edges: %w", err)
		}
	}
	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &wf.Settings); err != nil {
			return fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	return nil
}
