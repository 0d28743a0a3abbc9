package engine

import (
	"fmt"

	"github.com/shaiso/Apiary/internal/domain"
)

// InEdge — входящее ребро узла с вычисленным индексом ветки.
type InEdge struct {
	// SourceID — узел, из которого приходит ребро.
	SourceID string

	// BranchIndex — индекс ветки на стороне target.
	// Определяется порядком объявления рёбер: первое объявленное ребро,
	// входящее в узел, получает индекс 0, второе — 1, и так далее.
	// Условия conditional merge и выражения prev[N] адресуют ветки
	// именно этими индексами.
	BranchIndex int
}

// Graph — граф workflow, подготовленный к выполнению.
//
// Хранит индексы смежности поверх списков Nodes/Edges.
// Порядок рёбер везде сохраняет порядок их объявления в Workflow.
type Graph struct {
	// Workflow — исходный workflow.
	Workflow *domain.Workflow

	nodes    map[string]*domain.Node
	outgoing map[string][]string // source → упорядоченные target ID
	incoming map[string][]InEdge // target → упорядоченные входящие рёбра
	startID  string
}

// Build строит и валидирует граф из workflow.
//
// Проверки:
//   - граф не пустой, все узлы имеют уникальные непустые ID
//   - каждый узел несёт конфигурацию, обязательную для его типа
//   - ровно один start узел
//   - рёбра ссылаются на существующие узлы, без петель и дубликатов
//   - merge узлы имеют минимум два входящих ребра
//   - нет циклов (алгоритм Кана)
//   - все узлы достижимы из start
func Build(wf *domain.Workflow) (*Graph, error) {
	if len(wf.Nodes) == 0 {
		return nil, ErrEmptyWorkflow
	}

	g := &Graph{
		Workflow: wf,
		nodes:    make(map[string]*domain.Node, len(wf.Nodes)),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]InEdge),
	}

	if err := g.indexNodes(); err != nil {
		return nil, err
	}
	if err := g.indexEdges(); err != nil {
		return nil, err
	}
	if err := g.validateMergeNodes(); err != nil {
		return nil, err
	}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	if err := g.checkReachability(); err != nil {
		return nil, err
	}

	return g, nil
}

// indexNodes заполняет карту узлов и находит start.
func (g *Graph) indexNodes() error {
	for i := range g.Workflow.Nodes {
		node := &g.Workflow.Nodes[i]

		if node.ID == "" {
			return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
		}
		if _, exists := g.nodes[node.ID]; exists {
			return NewValidationError(node.ID, "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		if err := checkNodeConfig(node); err != nil {
			return err
		}

		g.nodes[node.ID] = node

		if node.Type == domain.NodeTypeStart {
			if g.startID != "" {
				return NewValidationError(node.ID, "type",
					"workflow has multiple start nodes", ErrMultipleStartNodes)
			}
			g.startID = node.ID
		}
	}

	if g.startID == "" {
		return ErrNoStartNode
	}
	return nil
}

// checkNodeConfig проверяет наличие конфигурации, обязательной для типа узла.
func checkNodeConfig(node *domain.Node) error {
	switch node.Type {
	case domain.NodeTypeStart, domain.NodeTypeEnd, domain.NodeTypeDelay:
		// delay без конфигурации выполняется как no-op
		return nil
	case domain.NodeTypeHTTP:
		if node.HTTP == nil {
			return NewValidationError(node.ID, "http", "http-request node has no http config", ErrMissingConfig)
		}
	case domain.NodeTypeAssert:
		if node.Assert == nil {
			return NewValidationError(node.ID, "assert", "assertion node has no assertions config", ErrMissingConfig)
		}
	case domain.NodeTypeMerge:
		if node.Merge == nil {
			return NewValidationError(node.ID, "merge", "merge node has no merge config", ErrMissingConfig)
		}
	default:
		return NewValidationError(node.ID, "type",
			fmt.Sprintf("unknown node type: %s", node.Type), ErrUnknownNodeType)
	}
	return nil
}

// indexEdges строит карты смежности, сохраняя порядок объявления рёбер.
func (g *Graph) indexEdges() error {
	seen := make(map[[2]string]bool, len(g.Workflow.Edges))

	for _, edge := range g.Workflow.Edges {
		if _, ok := g.nodes[edge.SourceID]; !ok {
			return NewValidationError(edge.SourceID, "source",
				fmt.Sprintf("edge source references unknown node: %s", edge.SourceID), ErrUnknownEdgeEndpoint)
		}
		if _, ok := g.nodes[edge.TargetID]; !ok {
			return NewValidationError(edge.TargetID, "target",
				fmt.Sprintf("edge target references unknown node: %s", edge.TargetID), ErrUnknownEdgeEndpoint)
		}
		if edge.SourceID == edge.TargetID {
			return NewValidationError(edge.SourceID, "target",
				"edge connects node to itself", ErrSelfEdge)
		}

		key := [2]string{edge.SourceID, edge.TargetID}
		if seen[key] {
			return NewValidationError(edge.SourceID, "target",
				fmt.Sprintf("duplicate edge: %s -> %s", edge.SourceID, edge.TargetID), ErrDuplicateEdge)
		}
		seen[key] = true

		g.outgoing[edge.SourceID] = append(g.outgoing[edge.SourceID], edge.TargetID)
		g.incoming[edge.TargetID] = append(g.incoming[edge.TargetID], InEdge{
			SourceID:    edge.SourceID,
			BranchIndex: len(g.incoming[edge.TargetID]),
		})
	}
	return nil
}

// validateMergeNodes проверяет, что каждый merge узел действительно
// является точкой fan-in.
func (g *Graph) validateMergeNodes() error {
	for id, node := range g.nodes {
		if node.Type != domain.NodeTypeMerge {
			continue
		}
		if len(g.incoming[id]) < 2 {
			return NewValidationError(id, "edges",
				"merge node has fewer than two incoming edges", ErrMergeWithoutFanIn)
		}
	}
	return nil
}

// checkAcyclic проверяет граф на циклы (алгоритм Кана).
func (g *Graph) checkAcyclic() error {
	inDegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		inDegree[id] = len(g.incoming[id])
	}

	queue := make([]string, 0, len(g.nodes))
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		for _, target := range g.outgoing[id] {
			inDegree[target]--
			if inDegree[target] == 0 {
				queue = append(queue, target)
			}
		}
	}

	if visited != len(g.nodes) {
		return ErrCyclicGraph
	}
	return nil
}

// checkReachability проверяет, что все узлы достижимы из start.
func (g *Graph) checkReachability() error {
	reached := make(map[string]bool, len(g.nodes))
	stack := []string{g.startID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if reached[id] {
			continue
		}
		reached[id] = true
		stack = append(stack, g.outgoing[id]...)
	}

	for id := range g.nodes {
		if !reached[id] {
			return NewValidationError(id, "edges",
				fmt.Sprintf("node %s is unreachable from start", id), ErrUnreachableNode)
		}
	}
	return nil
}

// Node возвращает узел по ID или nil.
func (g *Graph) Node(id string) *domain.Node {
	return g.nodes[id]
}

// Start возвращает start узел графа.
func (g *Graph) Start() *domain.Node {
	return g.nodes[g.startID]
}

// Outgoing возвращает исходящие рёбра узла в порядке объявления.
// Несколько исходящих рёбер означают fan-out: каждое порождает ветку.
func (g *Graph) Outgoing(id string) []string {
	return g.outgoing[id]
}

// Incoming возвращает входящие рёбра узла в порядке объявления.
func (g *Graph) Incoming(id string) []InEdge {
	return g.incoming[id]
}

// FanIn возвращает количество входящих рёбер узла.
func (g *Graph) FanIn(id string) int {
	return len(g.incoming[id])
}

// BranchIndex возвращает индекс ветки для ребра source → target.
// Второе значение false, если такого ребра нет.
func (g *Graph) BranchIndex(sourceID, targetID string) (int, bool) {
	for _, in := range g.incoming[targetID] {
		if in.SourceID == sourceID {
			return in.BranchIndex, true
		}
	}
	return 0, false
}

// Size возвращает количество узлов в графе.
func (g *Graph) Size() int {
	return len(g.nodes)
}
