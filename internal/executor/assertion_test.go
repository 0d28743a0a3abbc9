package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Apiary/internal/assert"
	"github.com/shaiso/Apiary/internal/domain"
)

func prevHTTP(status int, body any) *domain.NodeResult {
	return &domain.NodeResult{
		NodeID: "req",
		Type:   domain.NodeTypeHTTP,
		Status: domain.NodeStatusSucceeded,
		HTTP:   &domain.HTTPResult{StatusCode: status, Body: body},
	}
}

func TestAssertionExecutorPassThrough(t *testing.T) {
	ectx := emptyContext()
	ectx.Prev = prevHTTP(200, map[string]any{"ok": true})

	node := &domain.Node{
		ID:   "check",
		Type: domain.NodeTypeAssert,
		Assert: &domain.AssertConfig{Assertions: []domain.Assertion{
			{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
		}},
	}

	result, err := (&AssertionExecutor{}).Execute(context.Background(), node, ectx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !result.Assert.Passed {
		t.Error("assertions should pass")
	}
	// HTTP-данные предыдущего узла проброшены: prev.body.* работает
	// сквозь assertion узлы
	if result.HTTP == nil || result.HTTP.StatusCode != 200 {
		t.Errorf("HTTP pass-through lost: %+v", result.HTTP)
	}

	view := result.View()
	if view["statusCode"] != 200 {
		t.Errorf("View statusCode = %v", view["statusCode"])
	}
}

func TestAssertionExecutorFailure(t *testing.T) {
	ectx := emptyContext()
	ectx.Prev = prevHTTP(500, nil)

	node := &domain.Node{
		ID:   "check",
		Type: domain.NodeTypeAssert,
		Assert: &domain.AssertConfig{Assertions: []domain.Assertion{
			{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
		}},
	}

	result, err := (&AssertionExecutor{}).Execute(context.Background(), node, ectx)
	if !errors.Is(err, assert.ErrAssertionFailed) {
		t.Fatalf("error = %v, want ErrAssertionFailed", err)
	}

	if result == nil {
		t.Fatal("failed assertion must still return a result")
	}
	if result.Status != domain.NodeStatusFailed {
		t.Errorf("status = %s", result.Status)
	}
	if result.Error == "" {
		t.Error("result.Error is empty")
	}
	if len(result.Assert.Failures) != 1 {
		t.Errorf("failures = %d", len(result.Assert.Failures))
	}
}

func TestDelayExecutor(t *testing.T) {
	node := &domain.Node{
		ID:    "pause",
		Type:  domain.NodeTypeDelay,
		Delay: &domain.DelayConfig{DurationMs: 30},
	}

	started := time.Now()
	result, err := (&DelayExecutor{}).Execute(context.Background(), node, emptyContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 30*time.Millisecond {
		t.Errorf("delay returned after %s, want >= 30ms", elapsed)
	}
	if result.Status != domain.NodeStatusSucceeded {
		t.Errorf("status = %s", result.Status)
	}
}

func TestDelayExecutorCancelled(t *testing.T) {
	node := &domain.Node{
		ID:    "pause",
		Type:  domain.NodeTypeDelay,
		Delay: &domain.DelayConfig{DurationMs: 5000},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	_, err := (&DelayExecutor{}).Execute(ctx, node, emptyContext())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if time.Since(started) > time.Second {
		t.Error("cancellation did not interrupt the delay")
	}
}

func TestStartEndExecutors(t *testing.T) {
	ectx := emptyContext()

	start, err := (&StartExecutor{}).Execute(context.Background(), &domain.Node{ID: "s", Type: domain.NodeTypeStart}, ectx)
	if err != nil || start.Status != domain.NodeStatusSucceeded {
		t.Errorf("start = %+v, err = %v", start, err)
	}

	end, err := (&EndExecutor{}).Execute(context.Background(), &domain.Node{ID: "e", Type: domain.NodeTypeEnd}, ectx)
	if err != nil || end.Status != domain.NodeStatusSucceeded {
		t.Errorf("end = %+v, err = %v", end, err)
	}
}
