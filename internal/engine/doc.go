// Package engine содержит подготовку графа workflow к выполнению.
//
// Включает:
//   - graph.go  — построение графа смежности из списков узлов и рёбер
//   - parser.go — парсинг Workflow из JSON
//
// Engine отвечает за понимание структуры workflow: валидацию графа,
// вычисление индексов веток и определение точек fan-out / fan-in.
// Само выполнение узлов живёт в пакете runner.
package engine
