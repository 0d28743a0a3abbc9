package assert

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

func testContext() *expr.Context {
	return &expr.Context{
		Prev: &domain.NodeResult{
			NodeID: "req",
			Type:   domain.NodeTypeHTTP,
			Status: domain.NodeStatusSucceeded,
			HTTP: &domain.HTTPResult{
				StatusCode: 200,
				Headers:    map[string]string{"Content-Type": "application/json", "X-Request-Id": "r-1"},
				Cookies:    map[string]string{"session": "s-9"},
				Body: map[string]any{
					"token": "tok-1",
					"total": float64(17),
					"items": []any{float64(1), float64(2), float64(3)},
				},
			},
		},
		Vars: expr.NewVarStore(map[string]any{"expectedTotal": "17"}),
	}
}

func TestEvaluateOperators(t *testing.T) {
	ctx := testContext()

	tests := []struct {
		name string
		a    domain.Assertion
		want bool
	}{
		{
			name: "status equals string against int",
			a:    domain.Assertion{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
			want: true,
		},
		{
			name: "status equals mismatch",
			a:    domain.Assertion{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "404"},
			want: false,
		},
		{
			name: "status not equals",
			a:    domain.Assertion{Source: domain.SourceStatus, Operator: domain.OpNotEquals, Expected: "500"},
			want: true,
		},
		{
			name: "body path equals",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpEquals, Expected: "tok-1"},
			want: true,
		},
		{
			name: "count matches",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.items", Operator: domain.OpCount, Expected: "3"},
			want: true,
		},
		{
			name: "count mismatch",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.items", Operator: domain.OpCount, Expected: "2"},
			want: false,
		},
		{
			name: "count on scalar fails",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpCount, Expected: "1"},
			want: false,
		},
		{
			name: "gt numeric",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.total", Operator: domain.OpGT, Expected: "10"},
			want: true,
		},
		{
			name: "lte boundary",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.total", Operator: domain.OpLTE, Expected: "17"},
			want: true,
		},
		{
			name: "lt false",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.total", Operator: domain.OpLT, Expected: "17"},
			want: false,
		},
		{
			name: "gt coercion failure is failed assertion",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpGT, Expected: "1"},
			want: false,
		},
		{
			name: "contains",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpContains, Expected: "tok"},
			want: true,
		},
		{
			name: "not contains",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpNotContains, Expected: "xyz"},
			want: true,
		},
		{
			name: "exists",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpExists},
			want: true,
		},
		{
			name: "exists on missing path",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.ghost", Operator: domain.OpExists},
			want: false,
		},
		{
			name: "not exists on missing path",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.ghost.deep", Operator: domain.OpNotExists},
			want: true,
		},
		{
			name: "not exists on present path",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpNotExists},
			want: false,
		},
		{
			name: "header lookup is case-insensitive",
			a:    domain.Assertion{Source: domain.SourceHeaders, Path: "content-type", Operator: domain.OpContains, Expected: "json"},
			want: true,
		},
		{
			name: "missing header not exists",
			a:    domain.Assertion{Source: domain.SourceHeaders, Path: "X-Missing", Operator: domain.OpNotExists},
			want: true,
		},
		{
			name: "cookie equals",
			a:    domain.Assertion{Source: domain.SourceCookies, Path: "session", Operator: domain.OpEquals, Expected: "s-9"},
			want: true,
		},
		{
			name: "variable equals with template expected",
			a:    domain.Assertion{Source: domain.SourcePrev, Path: "body.total", Operator: domain.OpEquals, Expected: "{{variables.expectedTotal}}"},
			want: true,
		},
		{
			name: "variable source",
			a:    domain.Assertion{Source: domain.SourceVariables, Path: "expectedTotal", Operator: domain.OpEquals, Expected: "17"},
			want: true,
		},
		{
			name: "missing variable exists false",
			a:    domain.Assertion{Source: domain.SourceVariables, Path: "ghost", Operator: domain.OpExists},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Evaluate(tt.a, ctx)
			if out.Passed != tt.want {
				t.Errorf("Evaluate() passed = %v, want %v (reason: %s)", out.Passed, tt.want, out.Reason)
			}
			if !out.Passed && out.Reason == "" {
				t.Error("failed outcome has empty reason")
			}
		})
	}
}

func TestEvaluateWithoutPrev(t *testing.T) {
	ctx := &expr.Context{Vars: expr.NewVarStore(nil)}

	// Без предыдущего результата обычная проверка проваливается с причиной
	out := Evaluate(domain.Assertion{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"}, ctx)
	if out.Passed {
		t.Error("expected failure without previous result")
	}

	// А notExists проходит: пути действительно нет
	out = Evaluate(domain.Assertion{Source: domain.SourcePrev, Path: "body.x", Operator: domain.OpNotExists}, ctx)
	if !out.Passed {
		t.Errorf("notExists without prev should pass, reason: %s", out.Reason)
	}
}

func TestEvaluateAll(t *testing.T) {
	ctx := testContext()

	assertions := []domain.Assertion{
		{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
		{Source: domain.SourcePrev, Path: "body.items", Operator: domain.OpCount, Expected: "5"},
		{Source: domain.SourcePrev, Path: "body.token", Operator: domain.OpEquals, Expected: "wrong"},
	}

	result := EvaluateAll(assertions, ctx)
	if result.Passed {
		t.Fatal("expected overall failure")
	}
	// Отчёт содержит все провалы, не только первый
	if len(result.Failures) != 2 {
		t.Fatalf("failures = %d, want 2", len(result.Failures))
	}
	if result.Failures[0].Index != 1 || result.Failures[1].Index != 2 {
		t.Errorf("failure indexes = %d, %d; want 1, 2", result.Failures[0].Index, result.Failures[1].Index)
	}

	err := FailedError(result)
	if !errors.Is(err, ErrAssertionFailed) {
		t.Errorf("FailedError = %v, want ErrAssertionFailed", err)
	}
	if !strings.Contains(err.Error(), "#1") {
		t.Errorf("error message lacks failure index: %v", err)
	}
}

func TestEvaluateAllPassed(t *testing.T) {
	ctx := testContext()

	result := EvaluateAll([]domain.Assertion{
		{Source: domain.SourceStatus, Operator: domain.OpEquals, Expected: "200"},
	}, ctx)

	if !result.Passed || len(result.Failures) != 0 {
		t.Fatalf("result = %+v, want pass", result)
	}
	if err := FailedError(result); err != nil {
		t.Errorf("FailedError on pass = %v", err)
	}
}
