// Package worker выполняет действия, сохранённые в очередь исполнения.
//
// # Обзор
//
// Worker — stateless компонент системы Zapflow. Движок при обходе
// ACTION-узла только ставит действие в очередь (action.QueueHandler:
// запись QUEUED в action_submissions + событие action.ready). Worker:
//
//   - Получает action.ready из очереди RabbitMQ (event-driven)
//   - Периодически проверяет QUEUED-действия в БД (polling fallback)
//   - Атомарно забирает действие (ClaimQueued: QUEUED → RUNNING, attempt+1)
//   - Выполняет через action.Runner (retry, rate limit, circuit breaker relayer'а)
//   - Сохраняет SUCCEEDED/FAILED
//
//	w := worker.New(worker.Config{
//	    Actions: actionRepo,
//	    Runner:  runner,
//	    Conn:    mqConn,
//	    Logger:  logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Подтверждение сообщений
//
// Сообщение подтверждается (ack), если действие выполнено или уже
// забрано другим воркером. Сбой сохранения — requeue; повторный сбой
// или битый payload — в dlq.actions.
package worker
