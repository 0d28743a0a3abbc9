package executor

import (
	"context"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// StartExecutor — исполнитель узла start: тождественный,
// без конфигурации и побочных эффектов. Засеивает начальный контекст run.
type StartExecutor struct{}

// Execute возвращает пустой успешный результат.
func (e *StartExecutor) Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error) {
	return &domain.NodeResult{
		NodeID: node.ID,
		Type:   domain.NodeTypeStart,
		Status: domain.NodeStatusSucceeded,
	}, nil
}

// EndExecutor — исполнитель узла end: завершает свою ветку.
type EndExecutor struct{}

// Execute возвращает пустой успешный результат.
func (e *EndExecutor) Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error) {
	return &domain.NodeResult{
		NodeID: node.ID,
		Type:   domain.NodeTypeEnd,
		Status: domain.NodeStatusSucceeded,
	}, nil
}
