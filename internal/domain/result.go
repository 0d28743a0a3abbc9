package domain

import "time"

// NodeResult — результат выполнения одного узла.
//
// Результаты неизменяемы после создания: движок отдаёт их вниз по
// графу только на чтение (шаблоны, assertions, merge-условия).
// UI Output Panel отображает их как есть.
type NodeResult struct {
	// NodeID — ID узла, который произвёл результат.
	NodeID string `json:"node_id"`

	// Type — тип узла (дискриминатор содержимого).
	Type NodeType `json:"type"`

	// Status — итоговый статус выполнения узла.
	Status NodeStatus `json:"status"`

	// HTTP — данные HTTP-ответа. Заполнено для http-request узлов
	// и для assertion-узлов (pass-through предыдущего результата).
	HTTP *HTTPResult `json:"http,omitempty"`

	// Assert — итог проверок assertion-узла.
	Assert *AssertResult `json:"assert,omitempty"`

	// Error — текст ошибки, если узел завершился с FAILED/CANCELLED.
	// UI показывает его без специальной обработки исключений.
	Error string `json:"error,omitempty"`

	// StartedAt — время начала выполнения узла.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения.
	FinishedAt time.Time `json:"finished_at"`
}

// HTTPResult — содержимое HTTP-ответа.
type HTTPResult struct {
	// StatusCode — HTTP статус-код ответа.
	StatusCode int `json:"status_code"`

	// Headers — заголовки ответа (первое значение каждого).
	Headers map[string]string `json:"headers,omitempty"`

	// Cookies — cookies из Set-Cookie заголовков ответа.
	Cookies map[string]string `json:"cookies,omitempty"`

	// Body — тело ответа: распарсенный JSON или строка.
	Body any `json:"body,omitempty"`

	// DurationMs — длительность запроса в миллисекундах.
	DurationMs int64 `json:"duration_ms"`
}

// AssertResult — итог выполнения assertion-узла.
type AssertResult struct {
	// Passed — true, если прошли все проверки.
	Passed bool `json:"passed"`

	// Failures — провалившиеся проверки (все, не только первая).
	Failures []AssertionFailure `json:"failures,omitempty"`
}

// AssertionFailure — информация об одной провалившейся проверке.
type AssertionFailure struct {
	// Index — позиция проверки в списке узла (с нуля).
	Index int `json:"index"`

	// Source — источник значения.
	Source AssertSource `json:"source"`

	// Path — путь к значению.
	Path string `json:"path,omitempty"`

	// Operator — оператор.
	Operator Operator `json:"operator"`

	// Expected — ожидаемое значение (после резолва шаблона).
	Expected string `json:"expected,omitempty"`

	// Actual — фактическое значение в строковом виде.
	Actual string `json:"actual,omitempty"`

	// Reason — причина провала.
	Reason string `json:"reason"`
}

// Duration возвращает длительность выполнения узла.
func (r *NodeResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed возвращает true, если узел завершился с ошибкой.
func (r *NodeResult) Failed() bool {
	return r.Status == NodeStatusFailed
}

// View возвращает представление результата для JSONPath-навигации
// ({{prev.body.data[0].id}}, экстракторы, merge-условия).
//
// Для assertion-узлов HTTP-часть — это pass-through предыдущего
// результата, поэтому prev-выражения продолжают работать сквозь них.
func (r *NodeResult) View() map[string]any {
	view := make(map[string]any)

	if r.HTTP != nil {
		view["statusCode"] = r.HTTP.StatusCode
		view["body"] = r.HTTP.Body
		view["durationMs"] = r.HTTP.DurationMs

		headers := make(map[string]any, len(r.HTTP.Headers))
		for k, v := range r.HTTP.Headers {
			headers[k] = v
		}
		view["headers"] = headers

		cookies := make(map[string]any, len(r.HTTP.Cookies))
		for k, v := range r.HTTP.Cookies {
			cookies[k] = v
		}
		view["cookies"] = cookies
	}

	if r.Assert != nil {
		view["passed"] = r.Assert.Passed
		failures := make([]any, len(r.Assert.Failures))
		for i, f := range r.Assert.Failures {
			failures[i] = map[string]any{
				"index":    f.Index,
				"operator": string(f.Operator),
				"reason":   f.Reason,
			}
		}
		view["failures"] = failures
	}

	if r.Error != "" {
		view["error"] = r.Error
	}

	return view
}
