package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPExecutor — исполнитель узла http-request.
//
// Резолвит метод, URL, блоки query/headers/cookies и тело, выполняет
// запрос с таймаутом узла и применяет экстракторы к ответу,
// записывая значения в общие переменные run.
//
// Блоки query/headers/cookies — многострочный текст key=value;
// битая строка даёт ErrInvalidConfig. Превышение таймаута —
// ErrRequestTimeout, сетевая ошибка — ErrRequestFailed.
type HTTPExecutor struct {
	// Client — инжектированный HTTP-клиент.
	Client *http.Client
}

// Execute выполняет HTTP-запрос узла.
func (e *HTTPExecutor) Execute(ctx context.Context, node *domain.Node, ectx *expr.Context) (*domain.NodeResult, error) {
	cfg := node.HTTP
	if cfg == nil {
		return nil, fmt.Errorf("%w: http-request node %s has no http config", ErrInvalidConfig, node.ID)
	}

	req, timeout, err := e.buildRequest(ctx, cfg, ectx)
	if err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req = req.WithContext(reqCtx)

	started := time.Now()
	resp, err := e.Client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: %s %s after %s", ErrRequestTimeout, cfg.Method, req.URL, timeout)
		}
		if ctx.Err() != nil {
			// Отмена ветки, не сетевая ошибка
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}

	result := &domain.NodeResult{
		NodeID: node.ID,
		Type:   domain.NodeTypeHTTP,
		Status: domain.NodeStatusSucceeded,
		HTTP:   buildHTTPResult(resp, respBody, time.Since(started)),
	}

	if err := applyExtractors(cfg.Extract, result, ectx); err != nil {
		return result, err
	}

	return result, nil
}

// buildRequest резолвит конфигурацию и собирает http.Request.
func (e *HTTPExecutor) buildRequest(ctx context.Context, cfg *domain.HTTPConfig, ectx *expr.Context) (*http.Request, time.Duration, error) {
	method, err := expr.ResolveString(cfg.Method, ectx)
	if err != nil {
		return nil, 0, err
	}
	if method == "" {
		method = http.MethodGet
	}

	url, err := expr.ResolveString(cfg.URL, ectx)
	if err != nil {
		return nil, 0, err
	}
	if url == "" {
		return nil, 0, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}

	query, err := parseBlock(cfg.QueryBlock, "query", ectx)
	if err != nil {
		return nil, 0, err
	}
	headers, err := parseBlock(cfg.HeaderBlock, "headers", ectx)
	if err != nil {
		return nil, 0, err
	}
	cookies, err := parseBlock(cfg.CookieBlock, "cookies", ectx)
	if err != nil {
		return nil, 0, err
	}

	var bodyReader io.Reader
	if cfg.Body != "" {
		body, err := expr.ResolveString(cfg.Body, ectx)
		if err != nil {
			return nil, 0, err
		}
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if len(query) > 0 {
		q := req.URL.Query()
		for _, kv := range query {
			q.Add(kv[0], kv[1])
		}
		req.URL.RawQuery = q.Encode()
	}

	for _, kv := range headers {
		req.Header.Set(kv[0], kv[1])
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	for _, kv := range cookies {
		req.AddCookie(&http.Cookie{Name: kv[0], Value: kv[1]})
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec * float64(time.Second))
	}

	return req, timeout, nil
}

// parseBlock разбирает многострочный блок key=value с резолвингом шаблонов.
// Пустые строки пропускаются; строка без '=' — ErrInvalidConfig.
func parseBlock(block, name string, ectx *expr.Context) ([][2]string, error) {
	if strings.TrimSpace(block) == "" {
		return nil, nil
	}

	resolved, err := expr.ResolveString(block, ectx)
	if err != nil {
		return nil, err
	}

	var pairs [][2]string
	for _, line := range strings.Split(resolved, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("%w: malformed %s line %q", ErrInvalidConfig, name, line)
		}
		pairs = append(pairs, [2]string{key, strings.TrimSpace(value)})
	}

	return pairs, nil
}

// buildHTTPResult формирует HTTPResult из ответа.
func buildHTTPResult(resp *http.Response, body []byte, elapsed time.Duration) *domain.HTTPResult {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	cookies := make(map[string]string)
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	// Тело: пробуем JSON, иначе строка
	var parsedBody any
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsedBody); err != nil {
			parsedBody = string(body)
		}
	}

	return &domain.HTTPResult{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Cookies:    cookies,
		Body:       parsedBody,
		DurationMs: elapsed.Milliseconds(),
	}
}

// applyExtractors копирует значения из результата в общие переменные.
// Пути экстракторов навигируют представление результата
// (body.token, headers.X-Request-Id, cookies.session).
func applyExtractors(extract map[string]string, result *domain.NodeResult, ectx *expr.Context) error {
	if len(extract) == 0 || ectx.Vars == nil {
		return nil
	}

	view := result.View()
	for varName, path := range extract {
		value, err := expr.Walk(view, path)
		if err != nil {
			return fmt.Errorf("extractor %q: %w", varName, err)
		}
		ectx.Vars.Set(varName, value)
	}

	return nil
}
