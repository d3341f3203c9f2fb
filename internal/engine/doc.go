// Package engine содержит движок выполнения workflow (zap).
//
// Включает:
//   - value.go      — типизированные значения и нормализация литералов
//   - env.go        — окружение переменных ветки
//   - condition.go  — разрешение операндов и условия на рёбрах
//   - arithmetic.go — арифметика с проверкой типов
//   - graph.go      — построение и проверка графа из документа
//   - walker.go     — обход графа в глубину
//   - parser.go     — разбор JSON/YAML и статическая проверка документа
//
// Обход синхронный и однопоточный. Единственная граница конкурентности —
// Dispatcher, которому передаются ACTION-узлы.
package engine
