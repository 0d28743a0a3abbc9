package api

import (
	"testing"

	"github.com/shaiso/Apiary/internal/domain"
)

func extractorNode(id string, extract map[string]string) domain.Node {
	return domain.Node{
		ID:   id,
		Type: domain.NodeTypeHTTP,
		HTTP: &domain.HTTPConfig{
			Method:  "GET",
			URL:     "https://api.example.com/users",
			Extract: extract,
		},
	}
}

func TestStripRemovedVariables(t *testing.T) {
	oldNodes := []domain.Node{
		extractorNode("login", map[string]string{"token": "body.token", "user_id": "body.id"}),
	}

	newNodes := []domain.Node{
		// Экстрактор token исчез, user_id остался
		extractorNode("login", map[string]string{"user_id": "body.id"}),
		{
			ID:   "fetch",
			Type: domain.NodeTypeHTTP,
			HTTP: &domain.HTTPConfig{
				Method:      "GET",
				URL:         "https://api.example.com/users/{{variables.user_id}}",
				HeaderBlock: "Authorization=Bearer {{variables.token}}",
				Body:        `{"token": "{{variables.token}}"}`,
			},
		},
		{
			ID:   "check",
			Type: domain.NodeTypeAssert,
			Assert: &domain.AssertConfig{
				Assertions: []domain.Assertion{
					{Source: domain.SourceVariables, Path: "token", Operator: domain.OpEquals, Expected: "abc"},
					{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
				},
			},
		},
	}

	stripped := stripRemovedVariables(oldNodes, newNodes)

	if len(stripped) != 1 || stripped[0] != "token" {
		t.Fatalf("stripped = %v, want [token]", stripped)
	}

	fetch := newNodes[1].HTTP
	if fetch.HeaderBlock != "Authorization=Bearer " {
		t.Errorf("HeaderBlock = %q, token reference not stripped", fetch.HeaderBlock)
	}
	if fetch.Body != `{"token": ""}` {
		t.Errorf("Body = %q, token reference not stripped", fetch.Body)
	}
	if fetch.URL != "https://api.example.com/users/{{variables.user_id}}" {
		t.Errorf("URL = %q, surviving variable must stay referenced", fetch.URL)
	}

	asserts := newNodes[2].Assert.Assertions
	if len(asserts) != 1 {
		t.Fatalf("got %d assertions, want 1 (variables-sourced dropped)", len(asserts))
	}
	if asserts[0].Source != domain.SourceStatus {
		t.Errorf("surviving assertion source = %s, want status", asserts[0].Source)
	}
}

func TestStripRemovedVariablesNoExtractors(t *testing.T) {
	oldNodes := []domain.Node{{ID: "start", Type: domain.NodeTypeStart}}
	newNodes := []domain.Node{{ID: "start", Type: domain.NodeTypeStart}}

	if stripped := stripRemovedVariables(oldNodes, newNodes); stripped != nil {
		t.Errorf("stripped = %v, want nil for graph without extractors", stripped)
	}
}

func TestStripRemovedVariablesKeptExtractor(t *testing.T) {
	old := []domain.Node{
		extractorNode("login", map[string]string{"token": "body.token"}),
	}
	updated := []domain.Node{
		extractorNode("login", map[string]string{"token": "body.access_token"}),
		{
			ID:   "fetch",
			Type: domain.NodeTypeHTTP,
			HTTP: &domain.HTTPConfig{
				Method:      "GET",
				URL:         "https://api.example.com/me",
				HeaderBlock: "Authorization=Bearer {{variables.token}}",
			},
		},
	}

	if stripped := stripRemovedVariables(old, updated); len(stripped) != 0 {
		t.Fatalf("stripped = %v, want none: extractor still defines token", stripped)
	}
	if updated[1].HTTP.HeaderBlock != "Authorization=Bearer {{variables.token}}" {
		t.Errorf("HeaderBlock = %q, reference must survive", updated[1].HTTP.HeaderBlock)
	}
}
