// Package assert содержит вычислитель проверок (assertions).
//
// Используется узлами assertion и условиями conditional merge:
// источник (prev / variables / status / cookies / headers) даёт фактическое
// значение, оператор сравнивает его с ожидаемым.
//
// Ошибки приведения типов и резолвинга — проваленная проверка с причиной,
// а не ошибка выполнения. Единственное исключение — exists / notExists,
// для которых недостижимость пути и есть проверяемый исход.
package assert
