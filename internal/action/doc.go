// Package action исполняет действия, отправленные движком при обходе
// ACTION-узлов.
//
// # Поток
//
//	engine.Walk ──Submit──▶ AsyncDispatcher ──▶ Handler
//	                                             ├─ QueueHandler: INSERT QUEUED + publish action.ready
//	                                             └─ LocalHandler: Runner в текущем процессе
//
// Walker не ждёт исполнения: Submit кладёт действие в очередь в памяти
// и сразу возвращается. Результат действия в окружение ветки не попадает.
//
// # Исполнение
//
// Runner берёт Executor из Registry по типу действия и выполняет его
// с повторами по RetryPolicy. Частота попыток ограничивается
// rate.Limiter (ACTION_RATE_PER_SEC).
//
// Реализации Executor:
//   - SwapExecutor — отправляет swap-запрос relayer'у через circuit breaker
//   - DryRunExecutor — только логирует
//
// # Ошибки
//
// Как и в worker, различаются два уровня:
//   - Инфраструктурные (error от Execute) — сеть, разомкнутый breaker; всегда retriable
//   - Логические (ExecutionResult.Error) — relayer ответил 4xx/5xx;
//     retriable, если status_code входит в RetryPolicy.OnStatus
package action
