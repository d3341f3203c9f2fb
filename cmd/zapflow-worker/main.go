// Zapflow Worker — выполняет отправленные действия.
//
// Worker:
//   - Получает action.ready из RabbitMQ
//   - Забирает действие из БД (QUEUED → RUNNING)
//   - Выполняет swap через relayer с retry и ограничением частоты
//   - Сохраняет результат
//
// Без RabbitMQ работает только polling QUEUED-действий.
// Workers масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/zapflow/internal/action"
	"github.com/shaiso/zapflow/internal/mq"
	"github.com/shaiso/zapflow/internal/repo"
	"github.com/shaiso/zapflow/internal/telemetry"
	"github.com/shaiso/zapflow/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting zapflow-worker")

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

	// RabbitMQ
	mqConn, err := mq.Dial(ctx, mq.ConnectionConfig{Attempts: 3, Logger: logger})
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	relayerURL := os.Getenv("SWAP_RELAYER_URL")
	if relayerURL == "" {
		logger.Warn("SWAP_RELAYER_URL is not set, swaps will fail")
	}

	swap := action.NewSwapExecutor(action.SwapConfig{
		RelayerURL: relayerURL,
		Recipient:  os.Getenv("ACCOUNT_ADDRESS"),
		Logger:     logger,
	})

	retry := action.DefaultRetryPolicy()
	retry.MaxAttempts = envInt("ACTION_MAX_ATTEMPTS", retry.MaxAttempts)

	runner := action.NewRunner(action.RunnerConfig{
		Registry:   action.NewSwapRegistry(swap),
		Retry:      retry,
		RatePerSec: envFloat("ACTION_RATE_PER_SEC", 0),
		Logger:     logger,
	})

	// Создаём worker
	w := worker.New(worker.Config{
		Actions: repo.NewActionRepo(pool),
		Runner:  runner,
		Conn:    mqConn,
		Logger:  logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		telemetry.HTTPRequestsTotal.WithLabelValues("worker").Inc()
		rw.WriteHeader(http.StatusOK)
		rw.Write([]byte("ok breaker=" + swap.BreakerState().String()))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("WORKER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("zapflow-worker stopped")
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
