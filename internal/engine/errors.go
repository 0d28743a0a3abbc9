package engine

import "errors"

// Ошибки валидации графа workflow.
var (
	// ErrEmptyWorkflow — workflow не содержит узлов.
	ErrEmptyWorkflow = errors.New("workflow has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType — неизвестный тип узла.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrMissingConfig — узел не имеет конфигурации, обязательной для его типа.
	ErrMissingConfig = errors.New("node is missing required config")

	// ErrNoStartNode — в графе нет start узла.
	ErrNoStartNode = errors.New("workflow has no start node")

	// ErrMultipleStartNodes — в графе больше одного start узла.
	ErrMultipleStartNodes = errors.New("workflow has multiple start nodes")

	// ErrUnknownEdgeEndpoint — ребро ссылается на несуществующий узел.
	ErrUnknownEdgeEndpoint = errors.New("edge references unknown node")

	// ErrSelfEdge — ребро соединяет узел с самим собой.
	ErrSelfEdge = errors.New("edge connects node to itself")

	// ErrDuplicateEdge — два ребра с одинаковыми source и target.
	ErrDuplicateEdge = errors.New("duplicate edge")

	// ErrCyclicGraph — обнаружен цикл в графе.
	ErrCyclicGraph = errors.New("workflow graph contains a cycle")

	// ErrUnreachableNode — узел недостижим из start.
	ErrUnreachableNode = errors.New("node is unreachable from start")

	// ErrMergeWithoutFanIn — merge узел имеет меньше двух входящих рёбер.
	ErrMergeWithoutFanIn = errors.New("merge node has fewer than two incoming edges")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
