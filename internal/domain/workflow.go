package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — граф API-тестового сценария.
//
// Workflow — это "рецепт" проверки: граф типизированных узлов
// (HTTP-запрос, assertion, delay, merge), соединённых рёбрами.
// Граф создаётся визуальным редактором и приходит в движок как
// read-only вход. Каждый запуск (Run) выполняет конкретный граф.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя workflow (например, "checkout-smoke", "auth-flow").
	Name string `json:"name"`

	// IsActive — флаг активности. Неактивные workflows не запускаются по расписанию.
	IsActive bool `json:"is_active"`

	// Nodes — узлы графа. Порядок хранения не несёт семантики.
	Nodes []Node `json:"nodes"`

	// Edges — рёбра графа. Порядок объявления определяет branch index
	// при fan-out (несколько исходящих рёбер) и fan-in (входы merge-узла).
	Edges []Edge `json:"edges"`

	// Settings — настройки выполнения.
	Settings Settings `json:"settings"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения графа.
	UpdatedAt time.Time `json:"updated_at"`
}

// Settings — настройки выполнения workflow.
type Settings struct {
	// ContinueOnFail — продолжать ли ветку после ошибки узла.
	// false (по умолчанию): первая ошибка останавливает ветку,
	// run завершается со статусом FAILED.
	// true: ошибка записывается в результат узла, ветка идёт дальше.
	ContinueOnFail bool `json:"continue_on_fail"`
}

// NodeType — тип узла графа.
type NodeType string

// Типы узлов.
const (
	// NodeTypeStart — точка входа графа. Ровно один на workflow.
	NodeTypeStart NodeType = "start"

	// NodeTypeEnd — завершение ветки. Конфигурации не имеет.
	NodeTypeEnd NodeType = "end"

	// NodeTypeHTTP — HTTP-запрос с шаблонами и экстракторами.
	NodeTypeHTTP NodeType = "http-request"

	// NodeTypeAssert — проверка утверждений над предыдущим результатом.
	NodeTypeAssert NodeType = "assertion"

	// NodeTypeDelay — пауза на заданное число миллисекунд.
	NodeTypeDelay NodeType = "delay"

	// NodeTypeMerge — слияние параллельных веток.
	NodeTypeMerge NodeType = "merge"
)

// Node — узел workflow-графа.
//
// Конфигурация дискриминируется по Type: заполнено ровно одно из
// полей HTTP/Assert/Delay/Merge (для start/end — ни одного).
type Node struct {
	// ID — уникальный идентификатор узла в рамках workflow.
	ID string `json:"id"`

	// Type — тип узла.
	Type NodeType `json:"type"`

	// Label — человекочитаемое имя узла (для UI).
	Label string `json:"label,omitempty"`

	// HTTP — конфигурация для type="http-request".
	HTTP *HTTPConfig `json:"http,omitempty"`

	// Assert — конфигурация для type="assertion".
	Assert *AssertConfig `json:"assert,omitempty"`

	// Delay — конфигурация для type="delay".
	Delay *DelayConfig `json:"delay,omitempty"`

	// Merge — конфигурация для type="merge".
	Merge *MergeConfig `json:"merge,omitempty"`
}

// Edge — ребро графа: переход от узла к узлу.
type Edge struct {
	// SourceID — ID узла-источника.
	SourceID string `json:"source"`

	// TargetID — ID узла-приёмника.
	TargetID string `json:"target"`
}

// HTTPConfig — конфигурация узла http-request.
//
// Все строковые поля — шаблоны: могут содержать {{...}} выражения,
// которые резолвятся перед выполнением запроса.
type HTTPConfig struct {
	// Method — HTTP-метод (GET, POST, PUT, PATCH, DELETE). Default: GET.
	Method string `json:"method,omitempty"`

	// URL — шаблон URL запроса (обязательно).
	URL string `json:"url"`

	// QueryBlock — query-параметры, по одному на строку: "key=value".
	QueryBlock string `json:"query,omitempty"`

	// HeaderBlock — заголовки, по одному на строку: "key=value".
	HeaderBlock string `json:"headers,omitempty"`

	// CookieBlock — cookies, по одному на строку: "key=value".
	CookieBlock string `json:"cookies,omitempty"`

	// Body — шаблон тела запроса.
	Body string `json:"body,omitempty"`

	// TimeoutSec — таймаут запроса в секундах. Default: 30.
	TimeoutSec float64 `json:"timeout_sec,omitempty"`

	// Extract — экстракторы: имя переменной → путь в результате
	// (например "token" → "body.data.token"). Применяются после
	// успешного ответа, пишут в общую карту переменных run.
	Extract map[string]string `json:"extract,omitempty"`
}

// AssertConfig — конфигурация узла assertion.
type AssertConfig struct {
	// Assertions — упорядоченный список проверок. Узел проходит,
	// только если проходят все.
	Assertions []Assertion `json:"assertions"`
}

// AssertSource — источник проверяемого значения.
type AssertSource string

// Источники значений для assertion.
const (
	// SourcePrev — путь в результате предыдущего узла.
	SourcePrev AssertSource = "prev"

	// SourceVariables — путь в общей карте переменных.
	SourceVariables AssertSource = "variables"

	// SourceStatus — HTTP статус-код предыдущего результата.
	SourceStatus AssertSource = "status"

	// SourceCookies — cookie предыдущего результата по имени.
	SourceCookies AssertSource = "cookies"

	// SourceHeaders — заголовок предыдущего результата по имени
	// (регистронезависимо).
	SourceHeaders AssertSource = "headers"
)

// Operator — оператор сравнения assertion или merge-условия.
type Operator string

// Операторы.
const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "notEquals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "notContains"
	OpGT          Operator = "gt"
	OpGTE         Operator = "gte"
	OpLT          Operator = "lt"
	OpLTE         Operator = "lte"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "notExists"
	OpCount       Operator = "count"
)

// Assertion — одна проверка: значение из источника против ожидаемого.
type Assertion struct {
	// Source — откуда брать проверяемое значение.
	Source AssertSource `json:"source"`

	// Path — путь к значению (для prev/variables — JSONPath-подмножество,
	// для cookies/headers — имя; для status игнорируется).
	Path string `json:"path,omitempty"`

	// Operator — оператор сравнения.
	Operator Operator `json:"operator"`

	// Expected — ожидаемое значение (шаблон; для exists/notExists игнорируется).
	Expected string `json:"expected,omitempty"`
}

// DelayConfig — конфигурация узла delay.
type DelayConfig struct {
	// DurationMs — длительность паузы в миллисекундах.
	DurationMs int `json:"duration_ms"`
}

// MergeStrategy — стратегия слияния параллельных веток.
type MergeStrategy string

// Стратегии merge.
const (
	// MergeAll — ждать завершения всех входящих веток.
	MergeAll MergeStrategy = "all"

	// MergeAny — достаточно первой завершившейся ветки, остальные отменяются.
	MergeAny MergeStrategy = "any"

	// MergeFirst — семантически эквивалентна any; отдельное имя
	// оставлено для ясности намерения в конфигурации.
	MergeFirst MergeStrategy = "first"

	// MergeConditional — ждать все ветки, затем проверить условия
	// по каждой ветке; провал условий любой ветки проваливает merge.
	MergeConditional MergeStrategy = "conditional"
)

// ConditionLogic — логика объединения условий одной ветки.
type ConditionLogic string

// Логика условий.
const (
	ConditionAND ConditionLogic = "AND"
	ConditionOR  ConditionLogic = "OR"
)

// MergeConfig — конфигурация узла merge.
type MergeConfig struct {
	// Strategy — стратегия слияния.
	Strategy MergeStrategy `json:"strategy"`

	// Conditions — условия для strategy="conditional".
	Conditions []Condition `json:"conditions,omitempty"`

	// ConditionLogic — как объединять условия одной ветки (default: AND).
	ConditionLogic ConditionLogic `json:"condition_logic,omitempty"`
}

// Condition — условие conditional merge для конкретной ветки.
type Condition struct {
	// BranchIndex — индекс ветки (порядок входящих рёбер merge-узла,
	// с нуля).
	BranchIndex int `json:"branch_index"`

	// Field — путь к значению в результате ветки (шаблонное поле).
	Field string `json:"field"`

	// Operator — оператор сравнения.
	Operator Operator `json:"operator"`

	// Value — ожидаемое значение (шаблон).
	Value string `json:"value,omitempty"`
}

// FindNode возвращает узел по ID или nil.
func (w *Workflow) FindNode(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// StartNode возвращает start-узел графа или nil.
func (w *Workflow) StartNode() *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Type == NodeTypeStart {
			return &w.Nodes[i]
		}
	}
	return nil
}
