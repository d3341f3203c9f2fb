// Zapflow Scheduler — запускает workflows по расписаниям.
//
// Лидер выбирается через advisory lock PostgreSQL: тикает только один
// экземпляр. Каждый тик выбирает due schedules, запускает workflow с
// ключом идемпотентности {schedule_id}_{next_due_unix} и сдвигает
// next_due_at.
//
// Действия сохраняются QUEUED; при доступном RabbitMQ публикуется
// action.ready, иначе их подбирает polling воркеров.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/zapflow/internal/action"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/mq"
	"github.com/shaiso/zapflow/internal/orchestrator"
	"github.com/shaiso/zapflow/internal/repo"
	"github.com/shaiso/zapflow/internal/scheduler"
	"github.com/shaiso/zapflow/internal/telemetry"
)

const schedLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting zapflow-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	policy, err := engine.ParseMixedPolicy(os.Getenv("ARITHMETIC_POLICY"))
	if err != nil {
		logger.Error("invalid ARITHMETIC_POLICY", "error", err)
		os.Exit(1)
	}

	queue := &action.QueueHandler{Store: repo.NewActionRepo(pool), Logger: logger}

	mqConn, err := mq.Dial(ctx, mq.ConnectionConfig{Attempts: 3, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, actions will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		queue.Publisher = mq.NewPublisher(mqConn, logger)
		logger.Info("RabbitMQ connected")
	}

	dispatcher := action.NewAsyncDispatcher(action.DispatcherConfig{
		Handler: queue,
		Workers: envInt("DISPATCH_WORKERS", 4),
		Logger:  logger,
	})
	dispatcher.Start(context.WithoutCancel(ctx))

	orch := orchestrator.New(orchestrator.Config{
		Workflows:  repo.NewWorkflowRepo(pool),
		Executions: repo.NewExecutionRepo(pool),
		Engine: engine.New(engine.Options{
			Dispatcher: dispatcher,
			Logger:     logger,
			Arithmetic: policy,
		}),
		Logger: logger,
	})

	sched := scheduler.New(scheduler.Config{
		Schedules: repo.NewScheduleRepo(pool),
		Player:    orch,
		Logger:    logger,
	})

	lock := repo.NewLeaderLock(pool, schedLockKey)

	done := make(chan struct{})
	go func() {
		defer close(done)
		sched.Run(ctx, time.Second, lock)
	}()

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		telemetry.HTTPRequestsTotal.WithLabelValues("scheduler").Inc()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHED_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	<-done
	dispatcher.Stop()
	logger.Info("zapflow-scheduler stopped")
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}
