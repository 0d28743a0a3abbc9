package expr

import "errors"

// Ошибки резолвинга выражений.
var (
	// ErrUnresolvedReference — выражение ссылается на то, чего нет в контексте:
	// prev без предыдущего результата, prev[N] с несуществующим индексом ветки,
	// env.NAME без такой переменной окружения.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrPathNotFound — путь не найден в значении (отсутствующий ключ,
	// индекс за границами массива, навигация вглубь скаляра).
	ErrPathNotFound = errors.New("path not found")

	// ErrUnknownFunction — вызов неизвестной динамической функции.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrBadFunctionCall — некорректные аргументы динамической функции.
	ErrBadFunctionCall = errors.New("bad function call")

	// ErrBadPath — синтаксически некорректный путь.
	ErrBadPath = errors.New("malformed path")
)
