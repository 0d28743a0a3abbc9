package assert

import "errors"

// ErrAssertionFailed — хотя бы одна проверка узла провалена.
var ErrAssertionFailed = errors.New("assertion failed")

// ErrUnknownOperator — неизвестный оператор сравнения.
var ErrUnknownOperator = errors.New("unknown assertion operator")

// ErrUnknownSource — неизвестный источник значения.
var ErrUnknownSource = errors.New("unknown assertion source")
