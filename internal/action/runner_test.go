package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
)

// scripted возвращает заранее заданные результаты по очереди.
type scripted struct {
	results []*ExecutionResult
	errs    []error
	calls   int
}

func (s *scripted) Execute(_ context.Context, _ *domain.ActionSubmission) (*ExecutionResult, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i], s.errs[i]
}

type memStore struct {
	mu       sync.Mutex
	created  []*domain.ActionSubmission
	statuses []domain.ActionStatus
}

func (m *memStore) Create(_ context.Context, sub *domain.ActionSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, sub)
	return nil
}

func (m *memStore) Update(_ context.Context, sub *domain.ActionSubmission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, sub.Status)
	return nil
}

func newTestRunner(exec Executor, policy RetryPolicy) (*Runner, *[]time.Duration) {
	r := NewRunner(RunnerConfig{Registry: NewSwapRegistry(exec), Retry: policy})
	var delays []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return r, &delays
}

func queuedSubmission() *domain.ActionSubmission {
	return &domain.ActionSubmission{
		ID:     uuid.New(),
		Type:   domain.ActionSwapExactETHForTokens,
		Status: domain.ActionStatusQueued,
	}
}

func TestRunner_Success(t *testing.T) {
	exec := &scripted{
		results: []*ExecutionResult{{Outputs: map[string]any{"tx_hash": "0x1"}}},
		errs:    []error{nil},
	}
	r, _ := newTestRunner(exec, DefaultRetryPolicy())
	store := &memStore{}
	sub := queuedSubmission()

	if err := r.Run(context.Background(), sub, store); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != domain.ActionStatusSucceeded || sub.Attempt != 1 {
		t.Errorf("unexpected status %s attempt %d", sub.Status, sub.Attempt)
	}
	if sub.Outputs["tx_hash"] != "0x1" {
		t.Errorf("outputs not stored: %v", sub.Outputs)
	}
	want := []domain.ActionStatus{domain.ActionStatusRunning, domain.ActionStatusSucceeded}
	if len(store.statuses) != len(want) || store.statuses[0] != want[0] || store.statuses[1] != want[1] {
		t.Errorf("unexpected persisted statuses %v", store.statuses)
	}
}

func TestRunner_RetriesInfrastructureErrors(t *testing.T) {
	boom := errors.New("connection refused")
	exec := &scripted{
		results: []*ExecutionResult{nil, nil, {}},
		errs:    []error{boom, boom, nil},
	}
	r, delays := newTestRunner(exec, RetryPolicy{
		MaxAttempts:  3,
		Backoff:      BackoffExponential,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
	})
	sub := queuedSubmission()

	if err := r.Run(context.Background(), sub, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != domain.ActionStatusSucceeded || sub.Attempt != 3 || exec.calls != 3 {
		t.Errorf("status %s attempt %d calls %d", sub.Status, sub.Attempt, exec.calls)
	}
	if len(*delays) != 2 || (*delays)[0] != 10*time.Millisecond || (*delays)[1] != 20*time.Millisecond {
		t.Errorf("unexpected delays %v", *delays)
	}
}

func TestRunner_ExhaustsAttempts(t *testing.T) {
	exec := &scripted{
		results: []*ExecutionResult{{Outputs: map[string]any{"status_code": 503}, Error: "relayer HTTP 503"}},
		errs:    []error{nil},
	}
	r, _ := newTestRunner(exec, DefaultRetryPolicy())
	sub := queuedSubmission()

	if err := r.Run(context.Background(), sub, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != domain.ActionStatusFailed || sub.Attempt != 3 {
		t.Errorf("status %s attempt %d", sub.Status, sub.Attempt)
	}
	if sub.Error != "relayer HTTP 503" {
		t.Errorf("unexpected error text %q", sub.Error)
	}
}

func TestRunner_NoRetryOnClientError(t *testing.T) {
	exec := &scripted{
		results: []*ExecutionResult{{Outputs: map[string]any{"status_code": 400}, Error: "bad request"}},
		errs:    []error{nil},
	}
	r, _ := newTestRunner(exec, DefaultRetryPolicy())
	sub := queuedSubmission()

	r.Run(context.Background(), sub, nil)
	if exec.calls != 1 || sub.Status != domain.ActionStatusFailed {
		t.Errorf("calls %d status %s", exec.calls, sub.Status)
	}
}

func TestRunner_UnknownType(t *testing.T) {
	r := NewRunner(RunnerConfig{})
	sub := queuedSubmission()

	if err := r.Run(context.Background(), sub, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.Status != domain.ActionStatusFailed || sub.Error == "" {
		t.Errorf("status %s error %q", sub.Status, sub.Error)
	}
}

func TestRunner_ClaimedSubmissionKeepsAttempt(t *testing.T) {
	exec := &scripted{results: []*ExecutionResult{{}}, errs: []error{nil}}
	r, _ := newTestRunner(exec, DefaultRetryPolicy())

	sub := queuedSubmission()
	sub.Status = domain.ActionStatusRunning
	sub.Attempt = 1

	r.Run(context.Background(), sub, nil)
	if sub.Attempt != 1 {
		t.Errorf("claimed submission must not be re-marked, attempt %d", sub.Attempt)
	}
}

func TestCalculateBackoff(t *testing.T) {
	exp := RetryPolicy{Backoff: BackoffExponential, InitialDelay: time.Second, MaxDelay: 5 * time.Second}
	tests := []struct {
		attempt int
		policy  RetryPolicy
		want    time.Duration
	}{
		{1, exp, time.Second},
		{2, exp, 2 * time.Second},
		{3, exp, 4 * time.Second},
		{4, exp, 5 * time.Second},
		{10, exp, 5 * time.Second},
		{3, RetryPolicy{Backoff: BackoffFixed, InitialDelay: 200 * time.Millisecond}, 200 * time.Millisecond},
		{1, RetryPolicy{}, time.Second},
	}

	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, tt.policy); got != tt.want {
			t.Errorf("attempt %d %s: got %v, want %v", tt.attempt, tt.policy.Backoff, got, tt.want)
		}
	}
}
