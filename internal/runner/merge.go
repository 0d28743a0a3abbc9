package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shaiso/Apiary/internal/assert"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// mergeOutcome — решение merge узла после очередного прибытия ветки.
type mergeOutcome struct {
	// resolved — merge перешёл в терминальное состояние этим прибытием;
	// прибывшая ветка продолжает выполнение за merge узлом.
	resolved bool

	// result — результат merge узла.
	result *domain.NodeResult

	// prev — bare prev для downstream при единственной выжившей ветке.
	prev *domain.NodeResult

	// branches — упорядоченная последовательность результатов веток
	// для downstream (адресация prev[N]).
	branches []*domain.NodeResult
}

// mergeState — аккумулятор merge узла.
//
// Состояния: WAITING (копит прибытия) → EVALUATING (критерий стратегии
// достигнут) → MERGED | FAILED. Поздние прибытия после разрешения
// отбрасываются.
type mergeState struct {
	mu sync.Mutex

	node    *domain.Node
	need    int // количество веток, заведённых в merge
	arrived map[int]*domain.NodeResult
	started time.Time
	done    bool

	// cancels — отмены sibling-групп прибывших веток;
	// вызываются при раннем разрешении any/first.
	cancels []context.CancelFunc
}

func newMergeState(node *domain.Node, fanIn int) *mergeState {
	return &mergeState{
		node:    node,
		need:    fanIn,
		arrived: make(map[int]*domain.NodeResult, fanIn),
	}
}

// arrive регистрирует результат ветки с индексом idx.
//
// Возвращает решение merge узла; resolved=true ровно для одного
// прибытия — его goroutine продолжает выполнение downstream.
func (m *mergeState) arrive(idx int, res *domain.NodeResult, cancel context.CancelFunc, ectx *expr.Context, continueOnFail bool) mergeOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done {
		// Стратегия any/first уже разрешилась: поздний результат отброшен
		return mergeOutcome{}
	}

	if len(m.arrived) == 0 {
		m.started = time.Now()
	}
	m.arrived[idx] = res
	if cancel != nil {
		m.cancels = append(m.cancels, cancel)
	}

	strategy := m.node.Merge.Strategy
	switch strategy {
	case domain.MergeAny, domain.MergeFirst:
		// Первое прибытие выигрывает, сиблинги отменяются
		m.done = true
		for _, c := range m.cancels {
			c()
		}
		return m.resolveWinner(res)

	case domain.MergeAll:
		if len(m.arrived) < m.need {
			return mergeOutcome{} // WAITING
		}
		m.done = true
		return m.resolveAll(continueOnFail)

	case domain.MergeConditional:
		if len(m.arrived) < m.need {
			return mergeOutcome{} // WAITING
		}
		m.done = true
		return m.resolveConditional(ectx)

	default:
		m.done = true
		return m.failure(fmt.Sprintf("unknown merge strategy %q", strategy))
	}
}

// resolveWinner разрешает any/first: единственная выжившая ветка
// схлопывается в bare prev.
func (m *mergeState) resolveWinner(winner *domain.NodeResult) mergeOutcome {
	if winner.Failed() {
		return m.failure(fmt.Sprintf("winning branch failed: %s", winner.Error))
	}
	return mergeOutcome{
		resolved: true,
		result:   m.mergedResult(domain.NodeStatusSucceeded, ""),
		prev:     winner,
	}
}

// resolveAll разрешает all: все ветки прибыли.
func (m *mergeState) resolveAll(continueOnFail bool) mergeOutcome {
	ordered := m.orderedResults()

	if !continueOnFail {
		for _, r := range ordered {
			if r.Failed() {
				return m.failure(fmt.Sprintf("branch %s failed: %s", r.NodeID, r.Error))
			}
		}
	}

	return mergeOutcome{
		resolved: true,
		result:   m.mergedResult(domain.NodeStatusSucceeded, ""),
		branches: ordered,
	}
}

// resolveConditional разрешает conditional: каждая ветка оценивается
// независимо по своему списку условий; провал любой ветки валит merge.
func (m *mergeState) resolveConditional(ectx *expr.Context) mergeOutcome {
	ordered := m.orderedResults()
	cfg := m.node.Merge

	var failures []string
	for idx, res := range m.arrived {
		if reason := evalBranchConditions(cfg, idx, res, ectx); reason != "" {
			failures = append(failures, fmt.Sprintf("branch %d: %s", idx, reason))
		}
	}

	if len(failures) > 0 {
		return m.failure(strings.Join(failures, "; "))
	}

	return mergeOutcome{
		resolved: true,
		result:   m.mergedResult(domain.NodeStatusSucceeded, ""),
		branches: ordered,
	}
}

// evalBranchConditions оценивает условия одной ветки.
// Возвращает причину провала или пустую строку.
//
// Ветка с проваленным результатом проваливает свой набор условий;
// ветка без настроенных условий проходит по факту успеха.
func evalBranchConditions(cfg *domain.MergeConfig, idx int, res *domain.NodeResult, ectx *expr.Context) string {
	if res.Failed() {
		return res.Error
	}

	branchCtx := &expr.Context{Prev: res, Vars: ectx.Vars, Env: ectx.Env}

	logic := cfg.ConditionLogic
	if logic == "" {
		logic = domain.ConditionAND
	}

	var matched, total int
	var firstReason string

	for _, cond := range cfg.Conditions {
		if cond.BranchIndex != idx {
			continue
		}
		total++

		reason := evalCondition(cond, branchCtx)
		if reason == "" {
			matched++
		} else if firstReason == "" {
			firstReason = reason
		}
	}

	if total == 0 {
		return ""
	}
	switch logic {
	case domain.ConditionOR:
		if matched > 0 {
			return ""
		}
		return firstReason
	default: // AND
		if matched == total {
			return ""
		}
		return firstReason
	}
}

// evalCondition оценивает одно условие против результата ветки.
func evalCondition(cond domain.Condition, branchCtx *expr.Context) string {
	actual, err := expr.Resolve(cond.Field, branchCtx)
	if err != nil {
		return fmt.Sprintf("field %q: %v", cond.Field, err)
	}
	expected, err := expr.Resolve(cond.Value, branchCtx)
	if err != nil {
		return fmt.Sprintf("value %q: %v", cond.Value, err)
	}

	out := assert.Compare(cond.Operator, actual, expected)
	if out.Passed {
		return ""
	}
	return out.Reason
}

// orderedResults возвращает прибывшие результаты по индексам веток.
func (m *mergeState) orderedResults() []*domain.NodeResult {
	ordered := make([]*domain.NodeResult, 0, m.need)
	for i := 0; i < m.need; i++ {
		if r, ok := m.arrived[i]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered
}

func (m *mergeState) failure(reason string) mergeOutcome {
	err := fmt.Sprintf("%v: %s", ErrMergeFailed, reason)
	return mergeOutcome{
		resolved: true,
		result:   m.mergedResult(domain.NodeStatusFailed, err),
	}
}

// mergedResult формирует NodeResult merge узла.
func (m *mergeState) mergedResult(status domain.NodeStatus, errMsg string) *domain.NodeResult {
	now := time.Now()
	return &domain.NodeResult{
		NodeID:     m.node.ID,
		Type:       domain.NodeTypeMerge,
		Status:     status,
		Error:      errMsg,
		StartedAt:  m.started,
		FinishedAt: now,
	}
}
