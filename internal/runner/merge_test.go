package runner

import (
	"context"
	"testing"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

func branchResult(id string, status domain.NodeStatus) *domain.NodeResult {
	return &domain.NodeResult{NodeID: id, Type: domain.NodeTypeHTTP, Status: status}
}

func mergeNode(strategy domain.MergeStrategy) *domain.Node {
	return &domain.Node{
		ID:    "join",
		Type:  domain.NodeTypeMerge,
		Merge: &domain.MergeConfig{Strategy: strategy},
	}
}

func emptyExprContext() *expr.Context {
	return &expr.Context{Vars: expr.NewVarStore(nil)}
}

func TestMergeAllWaitsForEveryBranch(t *testing.T) {
	ms := newMergeState(mergeNode(domain.MergeAll), 3)
	ectx := emptyExprContext()

	if out := ms.arrive(0, branchResult("a", domain.NodeStatusSucceeded), nil, ectx, false); out.resolved {
		t.Fatal("merge resolved after 1 of 3 arrivals")
	}
	if out := ms.arrive(2, branchResult("c", domain.NodeStatusSucceeded), nil, ectx, false); out.resolved {
		t.Fatal("merge resolved after 2 of 3 arrivals")
	}

	out := ms.arrive(1, branchResult("b", domain.NodeStatusSucceeded), nil, ectx, false)
	if !out.resolved {
		t.Fatal("merge not resolved after all arrivals")
	}
	if out.result.Status != domain.NodeStatusSucceeded {
		t.Errorf("status = %s", out.result.Status)
	}
	// Последовательность упорядочена индексами веток, не порядком прибытия
	if len(out.branches) != 3 {
		t.Fatalf("branches = %d", len(out.branches))
	}
	if out.branches[0].NodeID != "a" || out.branches[1].NodeID != "b" || out.branches[2].NodeID != "c" {
		t.Errorf("branch order: %s %s %s", out.branches[0].NodeID, out.branches[1].NodeID, out.branches[2].NodeID)
	}
	if out.prev != nil {
		t.Error("all-merge with multiple survivors must not collapse to bare prev")
	}
}

func TestMergeAllFailedBranch(t *testing.T) {
	ms := newMergeState(mergeNode(domain.MergeAll), 2)
	ectx := emptyExprContext()

	failed := branchResult("bad", domain.NodeStatusFailed)
	failed.Error = "request failed"

	ms.arrive(0, branchResult("good", domain.NodeStatusSucceeded), nil, ectx, false)
	out := ms.arrive(1, failed, nil, ectx, false)

	if !out.resolved {
		t.Fatal("merge not resolved")
	}
	if out.result.Status != domain.NodeStatusFailed {
		t.Errorf("status = %s, want FAILED", out.result.Status)
	}

	// Та же ситуация при continueOnFail=true: merge проходит,
	// проваленная ветка входит в последовательность
	ms = newMergeState(mergeNode(domain.MergeAll), 2)
	ms.arrive(0, branchResult("good", domain.NodeStatusSucceeded), nil, ectx, true)
	out = ms.arrive(1, failed, nil, ectx, true)
	if out.result.Status != domain.NodeStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED with continueOnFail", out.result.Status)
	}
	if len(out.branches) != 2 {
		t.Errorf("branches = %d", len(out.branches))
	}
}

func TestMergeAnyFirstArrivalWins(t *testing.T) {
	ms := newMergeState(mergeNode(domain.MergeAny), 3)
	ectx := emptyExprContext()

	cancelled := false
	cancel := context.CancelFunc(func() { cancelled = true })

	winner := branchResult("fast", domain.NodeStatusSucceeded)
	out := ms.arrive(1, winner, cancel, ectx, false)

	if !out.resolved {
		t.Fatal("any-merge did not resolve on first arrival")
	}
	// Единственная выжившая ветка схлопывается в bare prev
	if out.prev != winner {
		t.Errorf("prev = %v, want winner", out.prev)
	}
	if out.branches != nil {
		t.Error("any-merge must not expose a branch sequence")
	}
	if !cancelled {
		t.Error("sibling group not cancelled")
	}

	// Поздние результаты отброшены
	late := ms.arrive(0, branchResult("slow", domain.NodeStatusSucceeded), nil, ectx, false)
	if late.resolved {
		t.Error("late arrival resolved an already-resolved merge")
	}
}

func TestMergeFirstFailedWinner(t *testing.T) {
	ms := newMergeState(mergeNode(domain.MergeFirst), 2)

	failed := branchResult("bad", domain.NodeStatusFailed)
	failed.Error = "boom"

	out := ms.arrive(0, failed, nil, emptyExprContext(), false)
	if !out.resolved || out.result.Status != domain.NodeStatusFailed {
		t.Errorf("out = %+v, want resolved FAILED", out)
	}
}

func TestMergeConditionalORLogic(t *testing.T) {
	node := mergeNode(domain.MergeConditional)
	node.Merge.ConditionLogic = domain.ConditionOR
	node.Merge.Conditions = []domain.Condition{
		{BranchIndex: 0, Field: "{{prev.statusCode}}", Operator: domain.OpEquals, Value: "200"},
		{BranchIndex: 0, Field: "{{prev.statusCode}}", Operator: domain.OpEquals, Value: "201"},
	}

	ms := newMergeState(node, 2)
	ectx := emptyExprContext()

	res := branchResult("a", domain.NodeStatusSucceeded)
	res.HTTP = &domain.HTTPResult{StatusCode: 201}

	ms.arrive(0, res, nil, ectx, false)
	// Вторая ветка без условий проходит по факту успеха
	out := ms.arrive(1, branchResult("b", domain.NodeStatusSucceeded), nil, ectx, false)

	if !out.resolved {
		t.Fatal("merge not resolved")
	}
	// OR: достаточно одного совпавшего условия
	if out.result.Status != domain.NodeStatusSucceeded {
		t.Errorf("status = %s, want SUCCEEDED", out.result.Status)
	}
}
