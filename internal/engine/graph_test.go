package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shaiso/Apiary/internal/domain"
)

func startNode(id string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeTypeStart}
}

func endNode(id string) domain.Node {
	return domain.Node{ID: id, Type: domain.NodeTypeEnd}
}

func httpNode(id string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeHTTP,
		HTTP: &domain.HTTPConfig{Method: "GET", URL: "https://api.example.com"},
	}
}

func mergeNode(id string, strategy domain.MergeStrategy) domain.Node {
	return domain.Node{
		ID:    id,
		Type:  domain.NodeTypeMerge,
		Merge: &domain.MergeConfig{Strategy: strategy},
	}
}

func edge(src, dst string) domain.Edge {
	return domain.Edge{SourceID: src, TargetID: dst}
}

func TestBuildLinearGraph(t *testing.T) {
	wf := &domain.Workflow{
		Nodes: []domain.Node{startNode("start"), httpNode("req"), endNode("end")},
		Edges: []domain.Edge{edge("start", "req"), edge("req", "end")},
	}

	g, err := Build(wf)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Start().ID != "start" {
		t.Errorf("Start() = %s, want start", g.Start().ID)
	}
	if g.Size() != 3 {
		t.Errorf("Size() = %d, want 3", g.Size())
	}
	if out := g.Outgoing("start"); len(out) != 1 || out[0] != "req" {
		t.Errorf("Outgoing(start) = %v, want [req]", out)
	}
	if g.FanIn("end") != 1 {
		t.Errorf("FanIn(end) = %d, want 1", g.FanIn("end"))
	}
}

func TestBuildBranchIndexes(t *testing.T) {
	// start разветвляется на две ветки, сходящиеся в merge
	wf := &domain.Workflow{
		Nodes: []domain.Node{
			startNode("start"),
			httpNode("a"),
			httpNode("b"),
			mergeNode("merge", domain.MergeAll),
		},
		Edges: []domain.Edge{
			edge("start", "a"),
			edge("start", "b"),
			edge("a", "merge"),
			edge("b", "merge"),
		},
	}

	g, err := Build(wf)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out := g.Outgoing("start")
	if len(out) != 2 || out[0] != "a" || out[1] != "b" {
		t.Fatalf("Outgoing(start) = %v, want [a b] in declaration order", out)
	}

	idx, ok := g.BranchIndex("a", "merge")
	if !ok || idx != 0 {
		t.Errorf("BranchIndex(a, merge) = %d, %v; want 0, true", idx, ok)
	}
	idx, ok = g.BranchIndex("b", "merge")
	if !ok || idx != 1 {
		t.Errorf("BranchIndex(b, merge) = %d, %v; want 1, true", idx, ok)
	}
	if _, ok := g.BranchIndex("start", "merge"); ok {
		t.Error("BranchIndex(start, merge) should not exist")
	}
}

func TestBuildValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		wf      *domain.Workflow
		wantErr error
	}{
		{
			name:    "empty workflow",
			wf:      &domain.Workflow{},
			wantErr: ErrEmptyWorkflow,
		},
		{
			name: "no start node",
			wf: &domain.Workflow{
				Nodes: []domain.Node{httpNode("req")},
			},
			wantErr: ErrNoStartNode,
		},
		{
			name: "multiple start nodes",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("s1"), startNode("s2")},
			},
			wantErr: ErrMultipleStartNodes,
		},
		{
			name: "duplicate node ID",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), httpNode("dup"), httpNode("dup")},
			},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name: "empty node ID",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("")},
			},
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "unknown node type",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), {ID: "x", Type: "webhook"}},
			},
			wantErr: ErrUnknownNodeType,
		},
		{
			name: "http node without config",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), {ID: "req", Type: domain.NodeTypeHTTP}},
				Edges: []domain.Edge{edge("start", "req")},
			},
			wantErr: ErrMissingConfig,
		},
		{
			name: "edge references unknown node",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start")},
				Edges: []domain.Edge{edge("start", "ghost")},
			},
			wantErr: ErrUnknownEdgeEndpoint,
		},
		{
			name: "self edge",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), httpNode("req")},
				Edges: []domain.Edge{edge("start", "req"), edge("req", "req")},
			},
			wantErr: ErrSelfEdge,
		},
		{
			name: "duplicate edge",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), httpNode("req")},
				Edges: []domain.Edge{edge("start", "req"), edge("start", "req")},
			},
			wantErr: ErrDuplicateEdge,
		},
		{
			name: "cycle",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), httpNode("a"), httpNode("b")},
				Edges: []domain.Edge{
					edge("start", "a"),
					edge("a", "b"),
					edge("b", "a"),
				},
			},
			wantErr: ErrCyclicGraph,
		},
		{
			name: "unreachable node",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), httpNode("a"), httpNode("island")},
				Edges: []domain.Edge{edge("start", "a")},
			},
			wantErr: ErrUnreachableNode,
		},
		{
			name: "merge with single incoming edge",
			wf: &domain.Workflow{
				Nodes: []domain.Node{startNode("start"), mergeNode("merge", domain.MergeAll)},
				Edges: []domain.Edge{edge("start", "merge")},
			},
			wantErr: ErrMergeWithoutFanIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.wf)
			if err == nil {
				t.Fatal("Build succeeded, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseWorkflowRoundTrip(t *testing.T) {
	wf := &domain.Workflow{
		Name: "checkout-smoke",
		Nodes: []domain.Node{
			startNode("start"),
			httpNode("a"),
			httpNode("b"),
			mergeNode("merge", domain.MergeAny),
			endNode("end"),
		},
		Edges: []domain.Edge{
			edge("start", "a"),
			edge("start", "b"),
			edge("a", "merge"),
			edge("b", "merge"),
			edge("merge", "end"),
		},
		Settings: domain.Settings{ContinueOnFail: true},
	}

	data, err := json.Marshal(wf)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	parsed, err := ParseWorkflow(data)
	if err != nil {
		t.Fatalf("ParseWorkflow: %v", err)
	}

	g1, _ := Build(wf)
	g2, err := Build(parsed)
	if err != nil {
		t.Fatalf("Build(parsed): %v", err)
	}

	// Граф после round-trip эквивалентен: те же рёбра в том же порядке
	if g2.Size() != g1.Size() {
		t.Errorf("Size after round-trip = %d, want %d", g2.Size(), g1.Size())
	}
	for _, node := range wf.Nodes {
		out1 := g1.Outgoing(node.ID)
		out2 := g2.Outgoing(node.ID)
		if len(out1) != len(out2) {
			t.Fatalf("Outgoing(%s) length differs after round-trip", node.ID)
		}
		for i := range out1 {
			if out1[i] != out2[i] {
				t.Errorf("Outgoing(%s)[%d] = %s, want %s", node.ID, i, out2[i], out1[i])
			}
		}
	}
	if !parsed.Settings.ContinueOnFail {
		t.Error("Settings.ContinueOnFail lost in round-trip")
	}
}

func TestParseWorkflowInvalidJSON(t *testing.T) {
	if _, err := ParseWorkflow([]byte("{not json")); err == nil {
		t.Fatal("ParseWorkflow accepted invalid JSON")
	}
}
