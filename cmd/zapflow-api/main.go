// Zapflow API — HTTP API для workflows, выполнений и расписаний.
//
// API:
//   - Хранит документы графов в PostgreSQL
//   - Выполняет обход графа синхронно в запросе play
//   - Сохраняет действия (QUEUED) и публикует action.ready в RabbitMQ
//
// Без RabbitMQ действия выполняются в процессе API (LocalHandler).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/zapflow/internal/action"
	"github.com/shaiso/zapflow/internal/api"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/mq"
	"github.com/shaiso/zapflow/internal/orchestrator"
	"github.com/shaiso/zapflow/internal/repo"
	"github.com/shaiso/zapflow/internal/telemetry"
)

var startTime = time.Now()

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting zapflow-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
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
	logger.Info("connected to database")

	policy, err := engine.ParseMixedPolicy(os.Getenv("ARITHMETIC_POLICY"))
	if err != nil {
		logger.Error("invalid ARITHMETIC_POLICY", "error", err)
		os.Exit(1)
	}

	// Создаём репозитории
	workflowRepo := repo.NewWorkflowRepo(pool)
	executionRepo := repo.NewExecutionRepo(pool)
	actionRepo := repo.NewActionRepo(pool)
	scheduleRepo := repo.NewScheduleRepo(pool)

	// Обработчик действий: очередь, если брокер доступен, иначе в процессе
	var handler action.Handler
	mqConn, err := mq.Dial(ctx, mq.ConnectionConfig{Attempts: 3, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, executing actions in-process", "error", err)
		handler = &action.LocalHandler{Runner: newLocalRunner(logger), Store: actionRepo}
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		logger.Info("RabbitMQ connected", "topology", mq.TopologyInfo())
		handler = &action.QueueHandler{
			Store:     actionRepo,
			Publisher: mq.NewPublisher(mqConn, logger),
			Logger:    logger,
		}
	}

	dispatcher := action.NewAsyncDispatcher(action.DispatcherConfig{
		Handler: handler,
		Workers: envInt("DISPATCH_WORKERS", 4),
		Logger:  logger,
	})
	// Действия, принятые до сигнала, дорабатываются при остановке
	dispatcher.Start(context.WithoutCancel(ctx))

	orch := orchestrator.New(orchestrator.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Engine: engine.New(engine.Options{
			Dispatcher: dispatcher,
			Logger:     logger,
			Arithmetic: policy,
		}),
		Logger: logger,
	})

	// Создаём API handler
	apiHandler := api.NewHandler(api.Config{
		Workflows:  workflowRepo,
		Executions: executionRepo,
		Actions:    actionRepo,
		Schedules:  scheduleRepo,
		Player:     orch,
		Logger:     logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		telemetry.HTTPRequestsTotal.WithLabelValues("api").Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	apiHandler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	dispatcher.Stop()

	logger.Info("stopped")
}

// newLocalRunner создаёт Runner для выполнения действий в процессе API.
func newLocalRunner(logger *slog.Logger) *action.Runner {
	swap := action.NewSwapExecutor(action.SwapConfig{
		RelayerURL: os.Getenv("SWAP_RELAYER_URL"),
		Recipient:  os.Getenv("ACCOUNT_ADDRESS"),
		Logger:     logger,
	})

	retry := action.DefaultRetryPolicy()
	retry.MaxAttempts = envInt("ACTION_MAX_ATTEMPTS", retry.MaxAttempts)

	return action.NewRunner(action.RunnerConfig{
		Registry:   action.NewSwapRegistry(swap),
		Retry:      retry,
		RatePerSec: envFloat("ACTION_RATE_PER_SEC", 0),
		Logger:     logger,
	})
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}
