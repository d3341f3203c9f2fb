// Package scheduler запускает workflows по расписанию.
//
// Scheduler периодически выбирает расписания с истекшим next_due_at
// и запускает их workflows через Orchestrator.
//
// Структура:
//   - scheduler.go — Tick, processSchedule и цикл Run
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Schedules: scheduleRepo,
//	    Player:    orch,
//	    Logger:    logger,
//	})
//
//	// Тик раз в секунду, только пока удерживается advisory lock
//	sched.Run(ctx, time.Second, repo.NewLeaderLock(pool, lockKey))
//
// Идемпотентность:
//
// Ключ запуска — "{schedule_id}_{next_due_unix}". Если лидер упал после
// запуска, но до обновления next_due_at, новый лидер получит
// существующее выполнение вместо повторного обхода.
package scheduler
