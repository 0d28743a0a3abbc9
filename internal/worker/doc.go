// Package worker реализует демон выполнения runs.
//
// Worker — компонент, который:
//   - Получает runs из очереди runs.pending (event-driven)
//   - Периодически проверяет PENDING runs в БД (polling fallback)
//   - Выполняет граф workflow через runner.Engine
//   - Сохраняет per-node результаты и финальное состояние run
//   - Публикует события run.node_completed и run.finished
//
// Workers масштабируются горизонтально — несколько экземпляров
// могут потреблять из одной очереди.
package worker
