package assert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Apiary/internal/domain"
	"github.com/shaiso/Apiary/internal/expr"
)

// Outcome — результат одной проверки.
type Outcome struct {
	// Passed — прошла ли проверка.
	Passed bool

	// Actual — фактическое значение (nil, если путь не разрешился).
	Actual any

	// Reason — причина провала, пустая для пройденной проверки.
	Reason string
}

// Evaluate выполняет одну проверку в контексте ветки.
//
// Любая ошибка резолвинга или приведения типов даёт проваленный Outcome
// с причиной; exists и notExists трактуют недостижимость пути как
// проверяемый исход, а не как ошибку.
func Evaluate(a domain.Assertion, ctx *expr.Context) Outcome {
	actual, err := resolveActual(a, ctx)

	switch a.Operator {
	case domain.OpExists:
		if err != nil {
			return failed(nil, fmt.Sprintf("%s does not exist", describeTarget(a)))
		}
		return passed(actual)
	case domain.OpNotExists:
		if err != nil {
			return passed(nil)
		}
		return failed(actual, fmt.Sprintf("%s exists with value %s", describeTarget(a), expr.Stringify(actual)))
	}

	if err != nil {
		return failed(nil, err.Error())
	}

	expected, err := expr.Resolve(a.Expected, ctx)
	if err != nil {
		return failed(actual, fmt.Sprintf("expected value %q: %v", a.Expected, err))
	}

	return compare(a.Operator, actual, expected)
}

// EvaluateAll выполняет все проверки узла и собирает все провалы.
// Узел проходит, только если прошла каждая проверка.
func EvaluateAll(assertions []domain.Assertion, ctx *expr.Context) *domain.AssertResult {
	result := &domain.AssertResult{Passed: true}

	for i, a := range assertions {
		out := Evaluate(a, ctx)
		if out.Passed {
			continue
		}
		result.Passed = false
		result.Failures = append(result.Failures, domain.AssertionFailure{
			Index:    i,
			Source:   a.Source,
			Path:     a.Path,
			Operator: a.Operator,
			Expected: a.Expected,
			Actual:   expr.Stringify(out.Actual),
			Reason:   out.Reason,
		})
	}

	return result
}

// resolveActual извлекает фактическое значение по правилу источника.
func resolveActual(a domain.Assertion, ctx *expr.Context) (any, error) {
	switch a.Source {
	case domain.SourceStatus:
		return prevField(ctx, "statusCode")

	case domain.SourcePrev, "":
		view, err := prevView(ctx)
		if err != nil {
			return nil, err
		}
		if a.Path == "" {
			return view, nil
		}
		return expr.Walk(view, a.Path)

	case domain.SourceVariables:
		return variableValue(a.Path, ctx)

	case domain.SourceCookies:
		cookies, err := prevField(ctx, "cookies")
		if err != nil {
			return nil, err
		}
		m, _ := cookies.(map[string]any)
		v, ok := m[a.Path]
		if !ok {
			return nil, fmt.Errorf("%w: cookie %q", expr.ErrPathNotFound, a.Path)
		}
		return v, nil

	case domain.SourceHeaders:
		headers, err := prevField(ctx, "headers")
		if err != nil {
			return nil, err
		}
		m, _ := headers.(map[string]any)
		// Имена заголовков сравниваются без учёта регистра
		for k, v := range m {
			if strings.EqualFold(k, a.Path) {
				return v, nil
			}
		}
		return nil, fmt.Errorf("%w: header %q", expr.ErrPathNotFound, a.Path)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, a.Source)
	}
}

// prevView возвращает представление предыдущего результата.
func prevView(ctx *expr.Context) (map[string]any, error) {
	if ctx.Prev == nil {
		return nil, fmt.Errorf("%w: no previous result", expr.ErrUnresolvedReference)
	}
	return ctx.Prev.View(), nil
}

// prevField извлекает поле из представления предыдущего результата.
func prevField(ctx *expr.Context, field string) (any, error) {
	view, err := prevView(ctx)
	if err != nil {
		return nil, err
	}
	v, ok := view[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", expr.ErrPathNotFound, field)
	}
	return v, nil
}

// variableValue ищет переменную по имени с опциональным путём вглубь.
func variableValue(path string, ctx *expr.Context) (any, error) {
	name := path
	rest := ""
	if i := strings.IndexAny(path, ".["); i >= 0 {
		name = path[:i]
		rest = strings.TrimPrefix(path[i:], ".")
	}

	if ctx.Vars == nil {
		return nil, fmt.Errorf("%w: variable %q", expr.ErrPathNotFound, name)
	}
	v, ok := ctx.Vars.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: variable %q", expr.ErrPathNotFound, name)
	}
	if rest == "" {
		return v, nil
	}
	return expr.Walk(v, rest)
}

// Compare применяет оператор к уже разрешённым значениям.
// Используется условиями conditional merge, где фактическое значение
// приходит из шаблона поля, а не из источника.
func Compare(op domain.Operator, actual, expected any) Outcome {
	return compare(op, actual, expected)
}

// compare применяет оператор к фактическому и ожидаемому значениям.
func compare(op domain.Operator, actual, expected any) Outcome {
	switch op {
	case domain.OpEquals:
		if looseEqual(actual, expected) {
			return passed(actual)
		}
		return failed(actual, fmt.Sprintf("expected %s, got %s", expr.Stringify(expected), expr.Stringify(actual)))

	case domain.OpNotEquals:
		if !looseEqual(actual, expected) {
			return passed(actual)
		}
		return failed(actual, fmt.Sprintf("expected value other than %s", expr.Stringify(expected)))

	case domain.OpContains:
		if strings.Contains(expr.Stringify(actual), expr.Stringify(expected)) {
			return passed(actual)
		}
		return failed(actual, fmt.Sprintf("%s does not contain %s", expr.Stringify(actual), expr.Stringify(expected)))

	case domain.OpNotContains:
		if !strings.Contains(expr.Stringify(actual), expr.Stringify(expected)) {
			return passed(actual)
		}
		return failed(actual, fmt.Sprintf("%s contains %s", expr.Stringify(actual), expr.Stringify(expected)))

	case domain.OpGT, domain.OpGTE, domain.OpLT, domain.OpLTE:
		return compareNumeric(op, actual, expected)

	case domain.OpCount:
		return compareCount(actual, expected)

	default:
		return failed(actual, fmt.Sprintf("unknown operator %q", op))
	}
}

// compareNumeric сравнивает значения как числа.
// Ошибка приведения — проваленная проверка, не ошибка выполнения.
func compareNumeric(op domain.Operator, actual, expected any) Outcome {
	a, aok := toFloat(actual)
	e, eok := toFloat(expected)
	if !aok {
		return failed(actual, fmt.Sprintf("actual value %s is not numeric", expr.Stringify(actual)))
	}
	if !eok {
		return failed(actual, fmt.Sprintf("expected value %s is not numeric", expr.Stringify(expected)))
	}

	var ok bool
	switch op {
	case domain.OpGT:
		ok = a > e
	case domain.OpGTE:
		ok = a >= e
	case domain.OpLT:
		ok = a < e
	case domain.OpLTE:
		ok = a <= e
	}

	if ok {
		return passed(actual)
	}
	return failed(actual, fmt.Sprintf("%s %s %s is false", expr.Stringify(actual), op, expr.Stringify(expected)))
}

// compareCount сравнивает длину последовательности с ожидаемым числом.
func compareCount(actual, expected any) Outcome {
	var n int
	switch seq := actual.(type) {
	case []any:
		n = len(seq)
	case []string:
		n = len(seq)
	case map[string]any:
		n = len(seq)
	default:
		return failed(actual, fmt.Sprintf("count requires a sequence, got %T", actual))
	}

	e, ok := toFloat(expected)
	if !ok {
		return failed(actual, fmt.Sprintf("expected count %s is not numeric", expr.Stringify(expected)))
	}

	if float64(n) == e {
		return passed(n)
	}
	return failed(n, fmt.Sprintf("expected count %s, got %d", expr.Stringify(expected), n))
}

// looseEqual — нестрогое сравнение: числовое, когда обе стороны числа,
// иначе через нормализацию в строку.
func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return expr.Stringify(a) == expr.Stringify(b)
}

// toFloat приводит значение к float64, если оно числовое
// или строка с числом.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func passed(actual any) Outcome {
	return Outcome{Passed: true, Actual: actual}
}

func failed(actual any, reason string) Outcome {
	return Outcome{Passed: false, Actual: actual, Reason: reason}
}

// describeTarget описывает источник и путь проверки для сообщений.
func describeTarget(a domain.Assertion) string {
	if a.Path == "" {
		return string(a.Source)
	}
	return fmt.Sprintf("%s.%s", a.Source, a.Path)
}

// FailedError оборачивает провалы в ошибку с сентинелом ErrAssertionFailed.
func FailedError(result *domain.AssertResult) error {
	if result.Passed {
		return nil
	}
	parts := make([]string, len(result.Failures))
	for i, f := range result.Failures {
		parts[i] = fmt.Sprintf("#%d %s %s: %s", f.Index, describeTarget(domain.Assertion{Source: f.Source, Path: f.Path}), f.Operator, f.Reason)
	}
	return fmt.Errorf("%w: %s", ErrAssertionFailed, strings.Join(parts, "; "))
}
