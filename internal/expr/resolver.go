package expr

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shaiso/Apiary/internal/domain"
)

// tokenRe находит токены {{EXPR}} в шаблоне.
var tokenRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// funcCallRe распознаёт вызов динамической функции: name(args).
var funcCallRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\((.*)\)$`)

// EnvProvider — внешний read-only источник переменных окружения.
// Движок не читает окружение процесса напрямую — провайдер инжектируется
// вызывающей стороной.
type EnvProvider interface {
	LookupEnv(name string) (string, bool)
}

// EnvMap — EnvProvider поверх обычной map.
type EnvMap map[string]string

// LookupEnv реализует EnvProvider.
func (m EnvMap) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Context — контекст ветки для резолвинга выражений.
//
// Prev и Branches взаимоисключающие: после fan-in с несколькими выжившими
// ветками заполняется Branches (адресация через prev[N]), единственный
// выживший схлопывается в Prev (адресация через prev.path).
type Context struct {
	// Prev — результат непосредственно предыдущего узла.
	Prev *domain.NodeResult

	// Branches — упорядоченные результаты веток после fan-in.
	Branches []*domain.NodeResult

	// Vars — общее для run хранилище переменных.
	Vars *VarStore

	// Env — источник значений для env.NAME.
	Env EnvProvider
}

// Resolve подставляет все токены {{EXPR}} в шаблоне.
//
// Если весь шаблон — ровно один токен, возвращается типизированное значение
// выражения (число остаётся числом, объект — объектом). Иначе каждый токен
// резолвится независимо, приводится к строке и конкатенируется с литеральным
// текстом.
//
// Ссылка на неопределённую variables.X оставляет токен без изменений
// (pass-through): частично связанный шаблон остаётся видимо неразрешённым
// вместо тихой подстановки пустоты.
func Resolve(tmpl string, ctx *Context) (any, error) {
	loc := tokenRe.FindStringSubmatchIndex(tmpl)
	if loc == nil {
		// Шаблон без токенов — тождественная функция.
		return tmpl, nil
	}

	// Целый шаблон — один токен: типизированный результат.
	if loc[0] == 0 && loc[1] == len(tmpl) {
		expr := tmpl[loc[2]:loc[3]]
		val, passthrough, err := evalExpr(expr, ctx)
		if err != nil {
			return nil, err
		}
		if passthrough {
			return tmpl, nil
		}
		return val, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range tokenRe.FindAllStringSubmatchIndex(tmpl, -1) {
		b.WriteString(tmpl[last:m[0]])

		expr := tmpl[m[2]:m[3]]
		val, passthrough, err := evalExpr(expr, ctx)
		if err != nil {
			return nil, err
		}
		if passthrough {
			b.WriteString(tmpl[m[0]:m[1]])
		} else {
			b.WriteString(Stringify(val))
		}
		last = m[1]
	}
	b.WriteString(tmpl[last:])

	return b.String(), nil
}

// ResolveString резолвит шаблон и приводит результат к строке.
func ResolveString(tmpl string, ctx *Context) (string, error) {
	val, err := Resolve(tmpl, ctx)
	if err != nil {
		return "", err
	}
	return Stringify(val), nil
}

// evalExpr вычисляет одно выражение EXPR.
// passthrough=true означает, что токен нужно оставить как есть.
func evalExpr(expr string, ctx *Context) (val any, passthrough bool, err error) {
	switch {
	case expr == "status":
		// Шорткат для prev.statusCode
		v, err := resolvePrev("statusCode", ctx)
		return v, false, err

	case expr == "prev":
		v, err := resolvePrev("", ctx)
		return v, false, err

	case strings.HasPrefix(expr, "prev.") || strings.HasPrefix(expr, "prev["):
		v, err := resolvePrevExpr(expr[len("prev"):], ctx)
		return v, false, err

	case strings.HasPrefix(expr, "variables."):
		return resolveVariable(expr[len("variables."):], ctx)

	case strings.HasPrefix(expr, "env."):
		name := expr[len("env."):]
		if ctx.Env == nil {
			return nil, false, fmt.Errorf("%w: env.%s (no environment provider)", ErrUnresolvedReference, name)
		}
		v, ok := ctx.Env.LookupEnv(name)
		if !ok {
			return nil, false, fmt.Errorf("%w: env.%s", ErrUnresolvedReference, name)
		}
		return v, false, nil

	default:
		if m := funcCallRe.FindStringSubmatch(expr); m != nil {
			v, err := CallFunc(m[1], splitArgs(m[2]))
			return v, false, err
		}
		return nil, false, fmt.Errorf("%w: %s", ErrUnresolvedReference, expr)
	}
}

// resolvePrevExpr разбирает хвост prev-выражения: ".path" или "[N].path".
func resolvePrevExpr(rest string, ctx *Context) (any, error) {
	if strings.HasPrefix(rest, ".") {
		return resolvePrev(rest[1:], ctx)
	}

	// prev[N] — результат конкретной ветки после fan-in
	end := strings.IndexByte(rest, ']')
	if !strings.HasPrefix(rest, "[") || end < 0 {
		return nil, fmt.Errorf("%w: prev%s", ErrBadPath, rest)
	}
	n, err := strconv.Atoi(rest[1:end])
	if err != nil {
		return nil, fmt.Errorf("%w: prev%s", ErrBadPath, rest)
	}

	if n < 0 || n >= len(ctx.Branches) {
		return nil, fmt.Errorf("%w: prev[%d] (have %d branch results)", ErrUnresolvedReference, n, len(ctx.Branches))
	}

	path := rest[end+1:]
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return ctx.Branches[n].View(), nil
	}
	return Walk(ctx.Branches[n].View(), path)
}

// resolvePrev резолвит путь относительно предыдущего результата.
func resolvePrev(path string, ctx *Context) (any, error) {
	if ctx.Prev == nil {
		if len(ctx.Branches) > 0 {
			return nil, fmt.Errorf("%w: prev is a branch sequence, address it as prev[N]", ErrUnresolvedReference)
		}
		return nil, fmt.Errorf("%w: no previous result", ErrUnresolvedReference)
	}

	view := ctx.Prev.View()
	if path == "" {
		return view, nil
	}
	return Walk(view, path)
}

// resolveVariable резолвит variables.<name>[.<path>].
// Неопределённое имя — pass-through.
func resolveVariable(rest string, ctx *Context) (any, bool, error) {
	name := rest
	path := ""
	if i := strings.IndexAny(rest, ".["); i >= 0 {
		name = rest[:i]
		path = strings.TrimPrefix(rest[i:], ".")
	}

	if ctx.Vars == nil {
		return nil, true, nil
	}
	val, ok := ctx.Vars.Get(name)
	if !ok {
		return nil, true, nil
	}

	if path == "" {
		return val, false, nil
	}
	v, err := Walk(val, path)
	return v, false, err
}

// splitArgs разбирает список аргументов функции.
// Аргументы — литеральные строки через запятую, опционально в кавычках.
func splitArgs(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	args := make([]string, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `"'`)
		args[i] = p
	}
	return args
}

// Stringify приводит резолвленное значение к строке для подстановки в шаблон.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
