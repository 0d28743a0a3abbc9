// Package runner содержит движок выполнения workflow.
//
// Движок обходит граф узлов: ветвление после fan-out запускает
// логически параллельные ветки (goroutine на ветку), merge узлы
// собирают результаты веток по стратегии (all / any / first /
// conditional), политика continueOnFail решает, останавливает ли
// ошибка узла свою ветку.
//
// Точка входа — Engine.Run: возвращает RunHandle с потоком событий
// о завершении узлов и итоговой сводкой run.
package runner
