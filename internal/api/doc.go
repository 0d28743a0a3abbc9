// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go          — Handler с DI (репозитории, publisher, inline worker)
//   - routes.go           — регистрация маршрутов
//   - middleware.go       — middleware (logging, recovery)
//   - response.go         — унифицированные JSON-ответы и обработка ошибок
//   - dto.go              — Data Transfer Objects (request/response)
//   - workflow_handler.go — обработчики для /workflows (CRUD + validate)
//   - run_handler.go      — обработчики для /runs (start, cancel, results)
//   - schedule_handler.go — обработчики для /schedules
//
// API предоставляет REST endpoints для управления workflows, runs
// и schedules. Запуск run публикует run.pending в RabbitMQ; без
// брокера run выполняется в фоне самим API-процессом.
package api
