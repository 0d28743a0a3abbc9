// Package expr содержит резолвер шаблонных выражений {{EXPR}}.
//
// Включает:
//   - resolver.go — подстановка токенов {{...}} в строках конфигурации
//   - path.go     — навигация по JSON-значениям (body.items[0].id)
//   - funcs.go    — библиотека динамических функций (uuid(), randomString(), ...)
//   - vars.go     — потокобезопасное хранилище переменных run
//
// Резолвер — чистая функция контекста: один и тот же шаблон с одним и тем же
// контекстом даёт один и тот же результат, кроме динамических функций,
// которые вычисляются заново при каждом вызове.
package expr
