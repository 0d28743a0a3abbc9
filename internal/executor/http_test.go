package executor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

func emptyContext() *expr.Context {
	return &expr.Context{Vars: expr.NewVarStore(nil)}
}

func httpNode(cfg *domain.HTTPConfig) *domain.Node {
	return &domain.Node{ID: "req", Type: domain.NodeTypeHTTP, HTTP: cfg}
}

func TestHTTPExecutorBasicRequest(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotHeader, gotCookie string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("limit")
		gotHeader = r.Header.Get("X-Api-Key")
		if c, err := r.Cookie("session"); err == nil {
			gotCookie = c.Value
		}

		http.SetCookie(w, &http.Cookie{Name: "trace", Value: "t-1"})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "u-7", "ok": true})
	}))
	defer srv.Close()

	ectx := emptyContext()
	ectx.Vars.Set("apiKey", "k-123")

	node := httpNode(&domain.HTTPConfig{
		Method:      "post",
		URL:         srv.URL + "/users",
		QueryBlock:  "limit=10",
		HeaderBlock: "X-Api-Key={{variables.apiKey}}",
		CookieBlock: "session=s-1",
		Body:        `{"name":"alice"}`,
	})

	exec := &HTTPExecutor{Client: srv.Client()}
	result, err := exec.Execute(context.Background(), node, ectx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if gotMethod != "POST" || gotPath != "/users" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if gotQuery != "10" {
		t.Errorf("query limit = %q", gotQuery)
	}
	if gotHeader != "k-123" {
		t.Errorf("header X-Api-Key = %q, template not resolved", gotHeader)
	}
	if gotCookie != "s-1" {
		t.Errorf("cookie session = %q", gotCookie)
	}

	if result.Status != domain.NodeStatusSucceeded {
		t.Errorf("status = %s", result.Status)
	}
	if result.HTTP.StatusCode != http.StatusCreated {
		t.Errorf("statusCode = %d", result.HTTP.StatusCode)
	}
	body, ok := result.HTTP.Body.(map[string]any)
	if !ok || body["id"] != "u-7" {
		t.Errorf("body = %v", result.HTTP.Body)
	}
	if result.HTTP.Cookies["trace"] != "t-1" {
		t.Errorf("cookies = %v", result.HTTP.Cookies)
	}
	if result.HTTP.DurationMs < 0 {
		t.Errorf("durationMs = %d", result.HTTP.DurationMs)
	}
}

func TestHTTPExecutorExtractors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Request-Id", "r-42")
		json.NewEncoder(w).Encode(map[string]any{
			"token": "tok-9",
			"user":  map[string]any{"id": float64(7)},
		})
	}))
	defer srv.Close()

	ectx := emptyContext()
	node := httpNode(&domain.HTTPConfig{
		Method: "GET",
		URL:    srv.URL,
		Extract: map[string]string{
			"authToken": "body.token",
			"userId":    "body.user.id",
			"requestId": "headers.X-Request-Id",
		},
	})

	exec := &HTTPExecutor{Client: srv.Client()}
	if _, err := exec.Execute(context.Background(), node, ectx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if v, _ := ectx.Vars.Get("authToken"); v != "tok-9" {
		t.Errorf("authToken = %v", v)
	}
	if v, _ := ectx.Vars.Get("userId"); v != float64(7) {
		t.Errorf("userId = %v", v)
	}
	if v, _ := ectx.Vars.Get("requestId"); v != "r-42" {
		t.Errorf("requestId = %v", v)
	}
}

func TestHTTPExecutorExtractorMissingPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	ectx := emptyContext()
	node := httpNode(&domain.HTTPConfig{
		Method:  "GET",
		URL:     srv.URL,
		Extract: map[string]string{"token": "body.missing.token"},
	})

	exec := &HTTPExecutor{Client: srv.Client()}
	result, err := exec.Execute(context.Background(), node, ectx)
	if !errors.Is(err, expr.ErrPathNotFound) {
		t.Errorf("error = %v, want ErrPathNotFound", err)
	}
	// Частичный результат сохраняется для отчёта
	if result == nil || result.HTTP == nil {
		t.Error("expected partial result with HTTP payload")
	}
	if _, ok := ectx.Vars.Get("token"); ok {
		t.Error("variable written despite extractor failure")
	}
}

func TestHTTPExecutorTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	node := httpNode(&domain.HTTPConfig{Method: "GET", URL: srv.URL, TimeoutSec: 0.05})

	exec := &HTTPExecutor{Client: srv.Client()}
	_, err := exec.Execute(context.Background(), node, emptyContext())
	if !errors.Is(err, ErrRequestTimeout) {
		t.Errorf("error = %v, want ErrRequestTimeout", err)
	}
}

func TestHTTPExecutorBranchCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	node := httpNode(&domain.HTTPConfig{Method: "GET", URL: srv.URL})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	exec := &HTTPExecutor{Client: srv.Client()}
	_, err := exec.Execute(ctx, node, emptyContext())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled from branch", err)
	}
}

func TestHTTPExecutorNetworkFailure(t *testing.T) {
	// Закрытый порт — сетевая ошибка
	node := httpNode(&domain.HTTPConfig{Method: "GET", URL: "http://127.0.0.1:1"})

	exec := &HTTPExecutor{Client: &http.Client{}}
	_, err := exec.Execute(context.Background(), node, emptyContext())
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("error = %v, want ErrRequestFailed", err)
	}
}

func TestHTTPExecutorMalformedBlocks(t *testing.T) {
	tests := []struct {
		name string
		cfg  *domain.HTTPConfig
	}{
		{"malformed header line", &domain.HTTPConfig{Method: "GET", URL: "http://x", HeaderBlock: "no-equals-sign"}},
		{"empty key", &domain.HTTPConfig{Method: "GET", URL: "http://x", QueryBlock: "=value"}},
		{"missing url", &domain.HTTPConfig{Method: "GET"}},
	}

	exec := &HTTPExecutor{Client: http.DefaultClient}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := exec.Execute(context.Background(), httpNode(tt.cfg), emptyContext())
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestHTTPExecutorResolvesBodyTemplates(t *testing.T) {
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ectx := emptyContext()
	ectx.Prev = &domain.NodeResult{
		Type:   domain.NodeTypeHTTP,
		Status: domain.NodeStatusSucceeded,
		HTTP: &domain.HTTPResult{
			StatusCode: 200,
			Body:       map[string]any{"id": "u-1"},
		},
	}

	node := httpNode(&domain.HTTPConfig{
		Method: "POST",
		URL:    srv.URL,
		Body:   `{"ref":"{{prev.body.id}}","code":{{status}}}`,
	})

	exec := &HTTPExecutor{Client: srv.Client()}
	if _, err := exec.Execute(context.Background(), node, ectx); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if gotBody["ref"] != "u-1" {
		t.Errorf("body ref = %v", gotBody["ref"])
	}
	if gotBody["code"] != float64(200) {
		t.Errorf("body code = %v", gotBody["code"])
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)

	for _, typ := range []domain.NodeType{
		domain.NodeTypeStart, domain.NodeTypeEnd,
		domain.NodeTypeHTTP, domain.NodeTypeAssert, domain.NodeTypeDelay,
	} {
		if _, err := r.Get(typ); err != nil {
			t.Errorf("Get(%s) failed: %v", typ, err)
		}
	}

	if _, err := r.Get(domain.NodeTypeMerge); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("Get(merge) = %v, want ErrUnknownNodeType", err)
	}
}
