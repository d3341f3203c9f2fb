// Package cli реализует инструмент командной строки Zapflow.
//
// # Локальные команды
//
// validate и run работают без сервера: документ читается из файла
// (.json или .yaml), граф строится и обходится в процессе.
//
//	zapflow validate swap.yaml
//	zapflow run swap.yaml --dry-run
//	zapflow run swap.yaml --relayer-url http://relayer:9000/swap
//
// run поднимает AsyncDispatcher с LocalHandler и ждёт завершения всех
// отправленных действий. Без --relayer-url действия выполняет
// DryRunExecutor. Ошибка обхода даёт ненулевой код выхода, шаги до
// ошибки всё равно печатаются.
//
// # Команды API
//
// Client — HTTP-клиент для Zapflow API. Ответы разбираются в собственные
// типы, internal/api не импортируется.
//
//   - workflow: list, create, show, update, document, play, delete
//   - execution: list, show, actions
//   - schedule: list, create, show, enable, disable, delete
//
// Каждая группа создаётся фабричной функцией (NewWorkflowCmd и т.д.),
// принимающей clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные выводятся в stdout, сообщения — в stderr:
//
//	zapflow execution list --json | jq .
package cli
