package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Apiary/internal/domain"
)

// ResultRepo — репозиторий для per-node результатов выполнения.
//
// Результаты пишутся runner-демоном одним батчем после завершения run
// и читаются API для Output Panel ({run_id} → список результатов
// в порядке завершения узлов).
type ResultRepo struct {
	pool *pgxpool.Pool
}

// NewResultRepo создаёт новый ResultRepo.
func NewResultRepo(pool *pgxpool.Pool) *ResultRepo {
	return &ResultRepo{pool: pool}
}

// ReplaceForRun атомарно заменяет все результаты run.
//
// Повторное выполнение (retry после сбоя runner-а) не оставляет
// результатов от предыдущей попытки.
func (r *ResultRepo) ReplaceForRun(ctx context.Context, runID uuid.UUID, results []domain.NodeResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM node_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("delete old results: %w", err)
	}

	query := `
		INSERT INTO node_results (run_id, seq, node_id, node_type, status, http, assert, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for i, res := range results {
		httpJSON, assertJSON, err := marshalResultPayload(&res)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, query,
			runID,
			i,
			res.NodeID,
			res.Type,
			res.Status,
			httpJSON,
			assertJSON,
			nullString(res.Error),
			res.StartedAt,
			res.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", res.NodeID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListByRun возвращает результаты run в порядке записи.
func (r *ResultRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]domain.NodeResult, error) {
	query := `
		SELECT node_id, node_type, status, http, assert, error, started_at, finished_at
		FROM node_results
		WHERE run_id = $1
		ORDER BY seq ASC
	`
	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.NodeResult
	for rows.Next() {
		var res domain.NodeResult
		var errText *string
		var httpJSON, assertJSON []byte

		err := rows.Scan(
			&res.NodeID,
			&res.Type,
			&res.Status,
			&httpJSON,
			&assertJSON,
			&errText,
			&res.StartedAt,
			&res.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		if errText != nil {
			res.Error = *errText
		}
		if httpJSON != nil {
			if err := json.Unmarshal(httpJSON, &res.HTTP); err != nil {
				return nil, fmt.Errorf("unmarshal http result: %w", err)
			}
		}
		if assertJSON != nil {
			if err := json.Unmarshal(assertJSON, &res.Assert); err != nil {
				return nil, fmt.Errorf("unmarshal assert result: %w", err)
			}
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// DeleteByRun удаляет результаты run.
func (r *ResultRepo) DeleteByRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM node_results WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("delete results: %w", err)
	}
	return nil
}

func marshalResultPayload(res *domain.NodeResult) (httpJSON, assertJSON []byte, err error) {
	if res.HTTP != nil {
		httpJSON, err = json.Marshal(res.HTTP)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal http result: %w", err)
		}
	}
	if res.Assert != nil {
		assertJSON, err = json.Marshal(res.Assert)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal assert result: %w", err)
		}
	}
	return httpJSON, assertJSON, nil
}
