package action

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shaiso/zapflow/internal/domain"
)

const (
	// DefaultSwapDeadline — срок действия swap-запроса для relayer'а.
	DefaultSwapDeadline = 300_000 * time.Millisecond

	defaultRelayerTimeout = 30 * time.Second

	defaultBreakerMaxFailures uint32 = 5
	defaultBreakerTimeout            = 30 * time.Second
	defaultBreakerInterval           = 60 * time.Second
)

// SwapConfig — настройки SwapExecutor.
type SwapConfig struct {
	// RelayerURL — endpoint relayer'а, принимающего swap-запросы (обязательно).
	RelayerURL string

	// Recipient — адрес получателя выходного токена (ACCOUNT_ADDRESS).
	Recipient string

	// Deadline — срок действия запроса. По умолчанию DefaultSwapDeadline.
	Deadline time.Duration

	// Client — HTTP-клиент. По умолчанию клиент с таймаутом 30s.
	Client *http.Client

	// MaxFailures — подряд идущие отказы до размыкания breaker'а.
	MaxFailures uint32

	// BreakerTimeout — сколько breaker остаётся разомкнутым.
	BreakerTimeout time.Duration

	// BreakerInterval — период сброса счётчиков в замкнутом состоянии.
	BreakerInterval time.Duration

	// Now — источник времени (для тестов).
	Now func() time.Time

	Logger *slog.Logger
}

// SwapRequest — тело запроса к relayer'у.
type SwapRequest struct {
	ActionID   string   `json:"action_id"`
	Path       []string `json:"path"`
	AmountIn   string   `json:"amount_in"`
	Recipient  string   `json:"recipient,omitempty"`
	DeadlineMs int64    `json:"deadline_ms"`
}

// SwapExecutor — executor для SWAP_EXACT_ETH_FOR_TOKENS.
//
// Формирует swap-запрос и отправляет его relayer'у. Подпись и отправка
// транзакции в сеть — ответственность relayer'а.
//
// Outputs:
//   - status_code (int): HTTP-код ответа relayer'а
//   - tx_hash (string): хеш транзакции, если relayer его вернул
//   - body (any): тело ответа (JSON или строка)
type SwapExecutor struct {
	cfg     SwapConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*ExecutionResult]
	logger  *slog.Logger
}

// NewSwapExecutor создаёт SwapExecutor.
func NewSwapExecutor(cfg SwapConfig) *SwapExecutor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultSwapDeadline
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: defaultRelayerTimeout}
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultBreakerMaxFailures
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = defaultBreakerTimeout
	}
	if cfg.BreakerInterval == 0 {
		cfg.BreakerInterval = defaultBreakerInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	logger := cfg.Logger
	maxFailures := cfg.MaxFailures
	cb := gobreaker.NewCircuitBreaker[*ExecutionResult](gobreaker.Settings{
		Name:        "relayer:swap",
		MaxRequests: 1,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &SwapExecutor{
		cfg:     cfg,
		client:  cfg.Client,
		breaker: cb,
		logger:  logger,
	}
}

// BreakerState возвращает текущее состояние breaker'а.
func (e *SwapExecutor) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// Execute отправляет swap-запрос relayer'у.
func (e *SwapExecutor) Execute(ctx context.Context, sub *domain.ActionSubmission) (*ExecutionResult, error) {
	params, err := ParseSwapParams(sub.Params)
	if err != nil {
		// Повтор не поможет: параметры не изменятся.
		return &ExecutionResult{Error: err.Error()}, nil
	}

	req := SwapRequest{
		ActionID:   sub.ID.String(),
		Path:       []string{params.From, params.To},
		AmountIn:   strconv.FormatUint(params.Amount, 10),
		Recipient:  e.cfg.Recipient,
		DeadlineMs: e.cfg.Now().Add(e.cfg.Deadline).UnixMilli(),
	}

	result, err := e.breaker.Execute(func() (*ExecutionResult, error) {
		return e.send(ctx, req)
	})
	switch {
	case err == nil:
		return result, nil
	case errors.Is(err, errRelayerServer):
		return result, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %v", ErrRelayerUnavailable, err)
	default:
		return nil, err
	}
}

func (e *SwapExecutor) send(ctx context.Context, swap SwapRequest) (*ExecutionResult, error) {
	if e.cfg.RelayerURL == "" {
		return nil, fmt.Errorf("%w: relayer url is not configured", ErrRelayerRequest)
	}

	body, err := json.Marshal(swap)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrRelayerRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.RelayerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrRelayerRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", swap.ActionID)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRelayerRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRelayerRequest, err)
	}

	outputs := buildOutputs(resp.StatusCode, respBody)

	// HTTP >= 400 — логическая ошибка; outputs сохраняются для retry по status_code
	if resp.StatusCode >= 400 {
		result := &ExecutionResult{
			Outputs: outputs,
			Error:   fmt.Sprintf("relayer HTTP %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
		}
		if resp.StatusCode >= 500 {
			return result, errRelayerServer
		}
		return result, nil
	}

	e.logger.Info("swap submitted to relayer",
		"action_id", swap.ActionID,
		"amount_in", swap.AmountIn,
		"tx_hash", outputs["tx_hash"],
	)
	return &ExecutionResult{Outputs: outputs}, nil
}

// buildOutputs формирует outputs из ответа relayer'а.
func buildOutputs(status int, body []byte) map[string]any {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		parsed = string(body)
	}

	outputs := map[string]any{
		"status_code": status,
		"body":        parsed,
	}
	if m, ok := parsed.(map[string]any); ok {
		if hash, ok := m["tx_hash"].(string); ok {
			outputs["tx_hash"] = hash
		}
	}
	return outputs
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
