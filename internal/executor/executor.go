package executor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// Executor — интерфейс для выполнения конкретного типа узла.
//
// node содержит неразрешённую конфигурацию; шаблоны {{...}} резолвятся
// исполнителем в контексте ветки ectx. ctx несёт отмену ветки
// и таймауты.
//
// Ошибка выполнения возвращается вместе с частичным результатом,
// когда он есть (провал assertion несёт детали провала).
type Executor interface {
	Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error)
}

// Registry — реестр исполнителей по типу узла.
type Registry struct {
	executors map[domain.NodeType]Executor
}

// NewRegistry создаёт реестр с исполнителями по умолчанию.
//
// Регистрирует: start, end, http-request, assertion, delay.
// Merge обрабатывается движком ветвления, исполнитель ему не нужен.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = http.DefaultClient
	}

	r := &Registry{executors: make(map[domain.NodeType]Executor)}
	r.Register(domain.NodeTypeStart, &StartExecutor{})
	r.Register(domain.NodeTypeEnd, &EndExecutor{})
	r.Register(domain.NodeTypeHTTP, &HTTPExecutor{Client: client})
	r.Register(domain.NodeTypeAssert, &AssertionExecutor{})
	r.Register(domain.NodeTypeDelay, &DelayExecutor{})
	return r
}

// Register добавляет исполнитель для типа узла.
func (r *Registry) Register(nodeType domain.NodeType, executor Executor) {
	r.executors[nodeType] = executor
}

// Get возвращает исполнитель для типа узла.
func (r *Registry) Get(nodeType domain.NodeType) (Executor, error) {
	executor, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNodeType, nodeType)
	}
	return executor, nil
}
