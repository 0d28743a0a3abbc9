package executor

import (
	"context"
	"fmt"

	"github.com/shaiso/Apiary/internal/assert"
	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// AssertionExecutor — исполнитель узла assertion.
//
// Выполняет все проверки узла; результат несёт сводку pass/fail
// и прозрачно пробрасывает prev дальше по ветке, чтобы выражения
// prev.body.* работали сквозь assertion узлы.
type AssertionExecutor struct{}

// Execute выполняет проверки узла.
func (e *AssertionExecutor) Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error) {
	cfg := node.Assert
	if cfg == nil {
		return nil, fmt.Errorf("%w: assertion node %s has no assertions config", ErrInvalidConfig, node.ID)
	}

	assertResult := assert.EvaluateAll(cfg.Assertions, ectx)

	result := &domain.NodeResult{
		NodeID: node.ID,
		Type:   domain.NodeTypeAssert,
		Status: domain.NodeStatusSucceeded,
		Assert: assertResult,
	}

	// Pass-through: результат узла наследует HTTP-данные предыдущего
	if ectx.Prev != nil {
		result.HTTP = ectx.Prev.HTTP
	}

	if !assertResult.Passed {
		err := assert.FailedError(assertResult)
		result.Status = domain.NodeStatusFailed
		result.Error = err.Error()
		return result, err
	}

	return result, nil
}
