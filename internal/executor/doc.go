// Package executor содержит исполнители узлов workflow.
//
// Каждый исполнитель получает узел с неразрешёнными шаблонами и контекст
// ветки, резолвит конфигурацию и возвращает типизированный NodeResult.
//
// Реализации: HTTPExecutor, AssertionExecutor, DelayExecutor,
// StartExecutor, EndExecutor. Merge узлы выполняются движком ветвления
// напрямую, исполнителя у них нет.
package executor
