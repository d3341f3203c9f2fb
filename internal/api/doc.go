// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler и интерфейсы хранилищ
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (request id, logging, recovery)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - workflow_handler.go  — /workflows, документ графа, /validate
//   - execution_handler.go — запуск и просмотр выполнений
//   - schedule_handler.go  — /schedules
//
// Документ графа принимается в JSON или YAML (Content-Type: application/yaml).
// Структурные ошибки документа возвращаются как 422 INVALID_DOCUMENT
// с видом ошибки и id узла.
package api
