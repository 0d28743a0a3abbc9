package executor

import (
	"context"
	"time"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// DelayExecutor — исполнитель узла delay.
//
// Приостанавливает ветку на заданное количество миллисекунд.
// Побочных эффектов нет; узел всегда успешен, если ветку не отменили.
type DelayExecutor struct{}

// Execute ждёт заданную паузу или отмену ветки.
func (e *DelayExecutor) Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error) {
	var duration time.Duration
	if node.Delay != nil && node.Delay.DurationMs > 0 {
		duration = time.Duration(node.Delay.DurationMs) * time.Millisecond
	}

	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &domain.NodeResult{
		NodeID: node.ID,
		Type:   domain.NodeTypeDelay,
		Status: domain.NodeStatusSucceeded,
	}, nil
}
