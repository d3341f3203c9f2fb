package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения workflows.
var (
	// ExecutionsTotal — завершённые выполнения по источнику и итогу.
	// outcome: SUCCEEDED или вид ошибки (DivisionByZero, MalformedDocument, ...).
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapflow_executions_total",
		Help: "Finished workflow executions by trigger and outcome",
	}, []string{"trigger", "outcome"})

	// ExecutionDuration — время обхода графа.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zapflow_execution_duration_seconds",
		Help:    "Graph walk duration",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	// NodesVisitedTotal — посещённые узлы по типу.
	NodesVisitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapflow_nodes_visited_total",
		Help: "Visited graph nodes by kind",
	}, []string{"kind"})

	// BranchesSkippedTotal — рёбра с ложным условием.
	BranchesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zapflow_branches_skipped_total",
		Help: "Edges skipped because their condition evaluated to false",
	})
)

// Метрики действий.
var (
	// ActionsDispatchedTotal — действия, переданные исполнителю.
	ActionsDispatchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapflow_actions_dispatched_total",
		Help: "Actions handed to the dispatcher by type",
	}, []string{"action_type"})

	// ActionAttemptsTotal — попытки выполнения по типу и результату.
	ActionAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zapflow_action_attempts_total",
		Help: "Action execution attempts by type and status",
	}, []string{"action_type", "status"})

	// DispatchQueueDepth — действия в очереди диспетчера.
	DispatchQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zapflow_dispatch_queue_depth",
		Help: "Actions waiting in the in-memory dispatch queue",
	})
)

// HTTPRequestsTotal — обработанные HTTP-запросы по сервису.
var HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "zapflow_http_requests_total",
	Help: "Total HTTP requests handled",
}, []string{"service"})

// HTTPRequestDuration — время обработки запросов API по маршруту и коду ответа.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "zapflow_http_request_duration_seconds",
	Help:    "API request duration by route pattern and status code",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "status"})
