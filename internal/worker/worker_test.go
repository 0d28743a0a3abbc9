package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/executor"
	"github.com/shaiso/Apiary/internal/runner"
)

func quietWorker(client *http.Client) *Worker {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Config{
		Engine: runner.New(executor.NewRegistry(client), nil, logger),
		Logger: logger,
	})
}

func linearWorkflow(url string) *domain.Workflow {
	return &domain.Workflow{
		ID:   uuid.New(),
		Name: "health",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "ping", Type: domain.NodeTypeHTTP, HTTP: &domain.HTTPConfig{
				Method:  "GET",
				URL:     url,
				Extract: map[string]string{"status": "body.status"},
			}},
			{ID: "end", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{SourceID: "start", TargetID: "ping"},
			{SourceID: "ping", TargetID: "end"},
		},
	}
}

func TestExecuteRunCollectsResultsInCompletionOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	w := quietWorker(srv.Client())
	wf := linearWorkflow(srv.URL)
	run := &domain.Run{ID: uuid.New(), WorkflowID: wf.ID, Status: domain.RunStatusRunning}

	summary, results, err := w.executeRun(context.Background(), run, wf)
	if err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	if summary.Status != domain.RunStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s (error=%q)", summary.Status, summary.Error)
	}
	if summary.RunID != run.ID {
		t.Errorf("summary run id = %s, want %s", summary.RunID, run.ID)
	}

	// Результаты в порядке завершения узлов
	want := []string{"start", "ping", "end"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, id := range want {
		if results[i].NodeID != id {
			t.Errorf("results[%d] = %s, want %s", i, results[i].NodeID, id)
		}
		if results[i].Status != domain.NodeStatusSucceeded {
			t.Errorf("node %s status = %s", id, results[i].Status)
		}
	}

	if summary.Variables["status"] != "ok" {
		t.Errorf("extractor variable missing: %v", summary.Variables)
	}
}

func TestExecuteRunFailedNode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wf := &domain.Workflow{
		ID:   uuid.New(),
		Name: "failing",
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTypeStart},
			{ID: "call", Type: domain.NodeTypeHTTP, HTTP: &domain.HTTPConfig{Method: "GET", URL: srv.URL}},
			{ID: "check", Type: domain.NodeTypeAssert, Assert: &domain.AssertConfig{Assertions: []domain.Assertion{
				{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
			}}},
			{ID: "end", Type: domain.NodeTypeEnd},
		},
		Edges: []domain.Edge{
			{SourceID: "start", TargetID: "call"},
			{SourceID: "call", TargetID: "check"},
			{SourceID: "check", TargetID: "end"},
		},
	}

	w := quietWorker(srv.Client())
	run := &domain.Run{ID: uuid.New(), WorkflowID: wf.ID, Status: domain.RunStatusRunning}

	summary, results, err := w.executeRun(context.Background(), run, wf)
	if err != nil {
		t.Fatalf("executeRun failed: %v", err)
	}

	if summary.Status != domain.RunStatusFailed {
		t.Fatalf("expected FAILED, got %s", summary.Status)
	}
	if summary.Error == "" {
		t.Error("expected run error to be set")
	}

	// Ветка остановилась на провалившемся assertion: end не выполнялся
	for _, res := range results {
		if res.NodeID == "end" {
			t.Error("end node should not run after failed assertion")
		}
	}
}

func TestExecuteRunInvalidGraph(t *testing.T) {
	wf := &domain.Workflow{
		ID:    uuid.New(),
		Name:  "broken",
		Nodes: []domain.Node{{ID: "solo", Type: domain.NodeTypeEnd}},
	}

	w := quietWorker(nil)
	run := &domain.Run{ID: uuid.New(), WorkflowID: wf.ID}

	if _, _, err := w.executeRun(context.Background(), run, wf); err == nil {
		t.Fatal("expected validation error for graph without start node")
	}
}
