package executor

import "errors"

// Ошибки выполнения узлов.
var (
	// ErrUnknownNodeType — для типа узла нет исполнителя.
	ErrUnknownNodeType = errors.New("no executor for node type")

	// ErrInvalidConfig — конфигурация узла некорректна
	// (например, битая строка в блоке заголовков).
	ErrInvalidConfig = errors.New("invalid node config")

	// ErrRequestTimeout — HTTP-запрос превысил таймаут узла.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrRequestFailed — сетевая ошибка HTTP-запроса.
	ErrRequestFailed = errors.New("request failed")
)
