// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.pending        — новый run ожидает выполнения
//   - run.node_completed — узел завершён (live-обновления Output Panel)
//   - run.finished       — run завершён
//
// Exchanges:
//   - apiary.runs   — запуск runs (API/Scheduler → Runner)
//   - apiary.events — события хода выполнения (Runner → наблюдатели)
//   - apiary.dlq    — dead letter exchange
package mq
