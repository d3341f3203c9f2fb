package action

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
)

func swapSubmission() *domain.ActionSubmission {
	return &domain.ActionSubmission{
		ID:   uuid.New(),
		Type: domain.ActionSwapExactETHForTokens,
		Params: map[string]any{
			engine.ParamTokenFromAddress: "0xFROM",
			engine.ParamTokenToAddress:   "0xTO",
			engine.ParamTokenFromAmount:  "1000",
		},
	}
}

func TestSwapExecutor_Success(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	var got SwapRequest
	var idemKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		idemKey = r.Header.Get("Idempotency-Key")
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"tx_hash": "0xabc"})
	}))
	defer server.Close()

	e := NewSwapExecutor(SwapConfig{
		RelayerURL: server.URL,
		Recipient:  "0xME",
		Now:        func() time.Time { return now },
	})

	sub := swapSubmission()
	res, err := e.Execute(context.Background(), sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() {
		t.Fatalf("unexpected logical error: %s", res.Error)
	}
	if res.Outputs["tx_hash"] != "0xabc" || res.Outputs["status_code"] != http.StatusOK {
		t.Errorf("unexpected outputs %v", res.Outputs)
	}

	if len(got.Path) != 2 || got.Path[0] != "0xFROM" || got.Path[1] != "0xTO" {
		t.Errorf("unexpected path %v", got.Path)
	}
	if got.AmountIn != "1000" || got.Recipient != "0xME" {
		t.Errorf("unexpected request %+v", got)
	}
	if got.DeadlineMs != now.UnixMilli()+300_000 {
		t.Errorf("deadline must be now+300000ms, got %d", got.DeadlineMs)
	}
	if idemKey != sub.ID.String() {
		t.Errorf("expected idempotency key %s, got %s", sub.ID, idemKey)
	}
}

func TestSwapExecutor_ClientErrorIsLogical(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("insufficient liquidity"))
	}))
	defer server.Close()

	e := NewSwapExecutor(SwapConfig{RelayerURL: server.URL})
	res, err := e.Execute(context.Background(), swapSubmission())
	if err != nil {
		t.Fatalf("4xx must not be an infrastructure error: %v", err)
	}
	if !res.Failed() || res.Outputs["status_code"] != http.StatusBadRequest {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Outputs["body"] != "insufficient liquidity" {
		t.Errorf("non-json body must be kept as string, got %v", res.Outputs["body"])
	}
}

func TestSwapExecutor_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	e := NewSwapExecutor(SwapConfig{
		RelayerURL:     server.URL,
		MaxFailures:    2,
		BreakerTimeout: time.Hour,
	})

	for i := 0; i < 2; i++ {
		res, err := e.Execute(context.Background(), swapSubmission())
		if err != nil {
			t.Fatalf("attempt %d: 5xx must be reported as logical error, got %v", i, err)
		}
		if res.Outputs["status_code"] != http.StatusServiceUnavailable {
			t.Errorf("attempt %d: unexpected outputs %v", i, res.Outputs)
		}
	}

	_, err := e.Execute(context.Background(), swapSubmission())
	if !errors.Is(err, ErrRelayerUnavailable) {
		t.Fatalf("expected ErrRelayerUnavailable, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("open breaker must not reach relayer, calls = %d", calls.Load())
	}
}

func TestSwapExecutor_InvalidParams(t *testing.T) {
	e := NewSwapExecutor(SwapConfig{RelayerURL: "http://127.0.0.1:0"})
	sub := swapSubmission()
	sub.Params[engine.ParamTokenFromAmount] = "-5"

	res, err := e.Execute(context.Background(), sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Failed() {
		t.Error("invalid params must be a logical failure")
	}
}

func TestSwapExecutor_NoRelayer(t *testing.T) {
	e := NewSwapExecutor(SwapConfig{})
	_, err := e.Execute(context.Background(), swapSubmission())
	if !errors.Is(err, ErrRelayerRequest) {
		t.Fatalf("expected ErrRelayerRequest, got %v", err)
	}
}
