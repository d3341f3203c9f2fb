package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
	"github.com/shaiso/zapflow/internal/engine"
	"github.com/shaiso/zapflow/internal/repo"
)

type memWorkflows map[uuid.UUID]*domain.Workflow

func (m memWorkflows) GetByID(_ context.Context, id uuid.UUID) (*domain.Workflow, error) {
	wf, ok := m[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return wf, nil
}

type memExecutions struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]domain.Execution
	created int
}

func newMemExecutions() *memExecutions {
	return &memExecutions{byID: make(map[uuid.UUID]domain.Execution)}
}

func (m *memExecutions) Create(_ context.Context, e *domain.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.IdempotencyKey != "" {
		for _, other := range m.byID {
			if other.IdempotencyKey == e.IdempotencyKey {
				return repo.ErrAlreadyExists
			}
		}
	}
	m.byID[e.ID] = *e
	m.created++
	return nil
}

func (m *memExecutions) Update(_ context.Context, e *domain.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[e.ID]; !ok {
		return repo.ErrNotFound
	}
	m.byID[e.ID] = *e
	return nil
}

func (m *memExecutions) GetByIdempotencyKey(_ context.Context, key string) (*domain.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, repo.ErrNotFound
}

// swapDoc: ROOT → ARITHMETIC(sum = 7 + 3) →[sum > 5] ACTION.
func swapDoc() domain.Document {
	return domain.Document{
		{ID: 1, ZapType: domain.NodeKindRoot, Children: []domain.Edge{{ID: 2}}},
		{ID: 2, ZapType: domain.NodeKindArithmetic,
			Data: &domain.NodeData{Left: "7", Right: "3", Operator: "+", Result: "$sum"},
			Children: []domain.Edge{{ID: 3, Condition: &domain.Condition{Left: "$sum", Right: "5", Operator: ">"}}},
		},
		{ID: 3, ZapType: domain.NodeKindAction, Data: &domain.NodeData{
			ActionType:       domain.ActionSwapExactETHForTokens,
			TokenFromAddress: "0xA",
			TokenToAddress:   "0xB",
			TokenFromAmount:  "$sum",
		}},
	}
}

type harness struct {
	orch      *Orchestrator
	workflows memWorkflows
	execs     *memExecutions
	actions   []engine.Action
}

func newHarness() *harness {
	h := &harness{workflows: memWorkflows{}, execs: newMemExecutions()}
	eng := engine.New(engine.Options{
		Dispatcher: engine.DispatcherFunc(func(a engine.Action) { h.actions = append(h.actions, a) }),
	})
	h.orch = New(Config{Workflows: h.workflows, Executions: h.execs, Engine: eng})
	return h
}

func (h *harness) addWorkflow(doc domain.Document, active bool) uuid.UUID {
	id := uuid.New()
	h.workflows[id] = &domain.Workflow{ID: id, Name: "wf-" + id.String()[:8], Document: doc, IsActive: active}
	return id
}

func TestPlay_Succeeds(t *testing.T) {
	h := newHarness()
	id := h.addWorkflow(swapDoc(), true)

	exec, err := h.orch.Play(context.Background(), id, PlayOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Status != domain.ExecutionStatusSucceeded || exec.Trigger != domain.TriggerManual {
		t.Errorf("status %s trigger %s", exec.Status, exec.Trigger)
	}
	if exec.ActionsDispatched != 1 || len(h.actions) != 1 {
		t.Fatalf("dispatched %d, actions %d", exec.ActionsDispatched, len(h.actions))
	}
	if h.actions[0].ExecutionID != exec.ID {
		t.Error("action must carry execution id")
	}
	if *exec.WorkflowID != id {
		t.Error("workflow id not recorded")
	}

	var steps []map[string]any
	if err := json.Unmarshal(exec.Steps, &steps); err != nil || len(steps) != 3 {
		t.Fatalf("unexpected steps %s (%v)", exec.Steps, err)
	}

	stored := h.execs.byID[exec.ID]
	if stored.Status != domain.ExecutionStatusSucceeded || stored.FinishedAt == nil {
		t.Errorf("stored execution not finalized: %+v", stored)
	}
}

func TestPlay_ExecutionErrorIsRecorded(t *testing.T) {
	h := newHarness()
	doc := domain.Document{
		{ID: 1, ZapType: domain.NodeKindRoot, Children: []domain.Edge{{ID: 2}}},
		{ID: 2, ZapType: domain.NodeKindArithmetic,
			Data: &domain.NodeData{Left: "5", Right: "0", Operator: "/", Result: "$q"}},
	}
	id := h.addWorkflow(doc, true)

	exec, err := h.orch.Play(context.Background(), id, PlayOptions{})
	if err != nil {
		t.Fatalf("execution failure must not be a Play error: %v", err)
	}
	if exec.Status != domain.ExecutionStatusFailed || exec.ErrorKind != "DivisionByZero" {
		t.Errorf("status %s kind %s", exec.Status, exec.ErrorKind)
	}
	if exec.ErrorNode == nil || *exec.ErrorNode != 2 {
		t.Errorf("expected error node 2, got %v", exec.ErrorNode)
	}
}

func TestPlay_MalformedDocument(t *testing.T) {
	h := newHarness()
	id := h.addWorkflow(domain.Document{{ID: 1, ZapType: domain.NodeKindArithmetic}}, true)

	exec, err := h.orch.Play(context.Background(), id, PlayOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Status != domain.ExecutionStatusFailed || exec.ErrorKind != "MalformedDocument" {
		t.Errorf("status %s kind %s", exec.Status, exec.ErrorKind)
	}
	if len(exec.Steps) != 0 {
		t.Errorf("no steps expected before traversal, got %s", exec.Steps)
	}
}

func TestPlay_Refused(t *testing.T) {
	h := newHarness()
	inactive := h.addWorkflow(swapDoc(), false)

	if _, err := h.orch.Play(context.Background(), inactive, PlayOptions{}); !errors.Is(err, ErrWorkflowInactive) {
		t.Errorf("expected ErrWorkflowInactive, got %v", err)
	}
	if _, err := h.orch.Play(context.Background(), uuid.New(), PlayOptions{}); !errors.Is(err, ErrWorkflowNotFound) {
		t.Errorf("expected ErrWorkflowNotFound, got %v", err)
	}
	if h.execs.created != 0 {
		t.Error("refused play must not create executions")
	}
}

func TestPlay_Idempotent(t *testing.T) {
	h := newHarness()
	id := h.addWorkflow(swapDoc(), true)
	opts := PlayOptions{Trigger: domain.TriggerSchedule, IdempotencyKey: "sched_1700000000"}

	first, err := h.orch.Play(context.Background(), id, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := h.orch.Play(context.Background(), id, opts)
	if !errors.Is(err, ErrDuplicateExecution) {
		t.Fatalf("expected ErrDuplicateExecution, got %v", err)
	}
	if second.ID != first.ID || h.execs.created != 1 || len(h.actions) != 1 {
		t.Errorf("duplicate run executed again: created %d actions %d", h.execs.created, len(h.actions))
	}
}

func TestExecuteDocument(t *testing.T) {
	h := newHarness()

	exec, err := h.orch.ExecuteDocument(context.Background(), swapDoc(), PlayOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exec.Trigger != domain.TriggerAdHoc || exec.WorkflowID != nil {
		t.Errorf("trigger %s workflow %v", exec.Trigger, exec.WorkflowID)
	}
	if exec.Status != domain.ExecutionStatusSucceeded {
		t.Errorf("status %s: %s", exec.Status, exec.Error)
	}
}

func TestErrorKind(t *testing.T) {
	if errorKind(context.Canceled) != ErrorKindCanceled {
		t.Error("context.Canceled")
	}
	if errorKind(errors.New("boom")) != ErrorKindInternal {
		t.Error("unknown error")
	}
	if errorKind(engine.ErrTypeMismatch) != "TypeMismatch" {
		t.Error("engine error")
	}
	if errorNode(errors.New("boom")) != nil {
		t.Error("plain error has no node")
	}
}
