// Package orchestrator запускает workflows.
//
// Orchestrator отвечает за:
//   - Загрузку сохранённого документа и проверку, что workflow активен
//   - Идемпотентность запусков по расписанию (ключ {schedule_id}_{next_due_unix})
//   - Создание Execution (RUNNING) и обход графа движком
//   - Запись итога (SUCCEEDED/FAILED с видом ошибки и узлом)
//   - Метрики выполнений
//
// Обход синхронный: Play возвращается, когда граф пройден. Действия
// при этом только поставлены в очередь диспетчера движка.
package orchestrator
