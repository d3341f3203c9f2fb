package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/shaiso/zapflow/internal/domain"
)

// recorder собирает отправленные действия.
type recorder struct {
	mu      sync.Mutex
	actions []Action
}

func (r *recorder) Submit(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
}

func swap(id domain.NodeID, amount string, children ...domain.Edge) domain.Node {
	return domain.Node{
		ID:      id,
		ZapType: domain.NodeKindAction,
		Data: &domain.NodeData{
			ActionType:       domain.ActionSwapExactETHForTokens,
			TokenFromAddress: "0xfrom",
			TokenToAddress:   "0xto",
			TokenFromAmount:  amount,
		},
		Children: children,
	}
}

// lastEnv возвращает окружение последнего посещения узла.
func lastEnv(t *testing.T, res *Result, id domain.NodeID) *Env {
	t.Helper()
	for i := len(res.Steps) - 1; i >= 0; i-- {
		if res.Steps[i].NodeID == id {
			return res.Steps[i].Env
		}
	}
	t.Fatalf("node %d was not visited", id)
	return nil
}

func visited(res *Result, id domain.NodeID) bool {
	for _, s := range res.Steps {
		if s.NodeID == id {
			return true
		}
	}
	return false
}

func TestExecute_ConditionTrue(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "2", "+", "3", "$sum", guarded(3, "$sum", ">", "4")),
		arith(3, "$sum", "-", "1", "$final"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env := lastEnv(t, res, 3)
	if v, _ := env.Get("$sum"); !v.Equal(Int(5)) {
		t.Errorf("expected $sum = 5, got %v", v)
	}
	if v, _ := env.Get("$final"); !v.Equal(Int(4)) {
		t.Errorf("expected $final = 4, got %v", v)
	}
	if len(res.Steps) != 3 {
		t.Errorf("expected 3 steps, got %d", len(res.Steps))
	}
}

func TestExecute_ConditionFalse(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "2", "+", "3", "$sum", guarded(3, "$sum", "<", "4")),
		arith(3, "$sum", "-", "1", "$final"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if visited(res, 3) {
		t.Error("node 3 must be skipped")
	}
	if res.BranchesSkipped != 1 {
		t.Errorf("expected 1 skipped branch, got %d", res.BranchesSkipped)
	}
	if _, ok := lastEnv(t, res, 2).Get("$final"); ok {
		t.Error("$final must not be bound")
	}
}

func TestExecute_UnresolvedVariable(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "$missing", "+", "3", "$sum", guarded(3, "$sum", ">", "4")),
		arith(3, "$sum", "-", "1", "$final"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if !errors.Is(err, ErrUnresolvedVariable) {
		t.Fatalf("expected ErrUnresolvedVariable, got %v", err)
	}

	var eErr *ExecError
	if !errors.As(err, &eErr) || !eErr.HasNode || eErr.NodeID != 2 {
		t.Errorf("expected error at node 2, got %v", err)
	}
	if KindOf(err) != "UnresolvedVariable" {
		t.Errorf("expected kind UnresolvedVariable, got %q", KindOf(err))
	}
	if visited(res, 3) {
		t.Error("node 3 must not be reached")
	}
}

func TestExecute_UnresolvedInCondition(t *testing.T) {
	doc := domain.Document{
		root(1, guarded(2, "$nope", "==", "1")),
		arith(2, "1", "+", "1", "$x"),
	}

	_, err := New(Options{}).Execute(context.Background(), doc)

	var eErr *ExecError
	if !errors.As(err, &eErr) || !errors.Is(err, ErrUnresolvedVariable) {
		t.Fatalf("expected ErrUnresolvedVariable, got %v", err)
	}
	if eErr.NodeID != 2 {
		t.Errorf("expected error at edge target 2, got %d", eErr.NodeID)
	}
}

func TestExecute_BranchIsolation(t *testing.T) {
	// 1 → A(2) binds $result
	// 1 → B(3) reads $result: must fail if it leaked, succeed otherwise
	doc := domain.Document{
		root(1, edge(2), edge(3)),
		arith(2, "2", "+", "3", "$result"),
		arith(3, "10", "+", "1", "$other"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := lastEnv(t, res, 3).Get("$result"); ok {
		t.Error("sibling B observed $result bound in A")
	}
	if _, ok := lastEnv(t, res, 1).Get("$result"); ok {
		t.Error("root env mutated by child")
	}

	// Потомок A видит $result
	doc = domain.Document{
		root(1, edge(2), edge(3)),
		arith(2, "2", "+", "3", "$result", edge(4)),
		arith(3, "$result", "+", "1", "$other"),
		arith(4, "$result", "*", "2", "$double"),
	}

	_, err = New(Options{}).Execute(context.Background(), doc)
	var eErr *ExecError
	if !errors.As(err, &eErr) || !errors.Is(err, ErrUnresolvedVariable) || eErr.NodeID != 3 {
		t.Fatalf("expected unresolved $result at node 3, got %v", err)
	}
}

func TestExecute_DescendantSeesBinding(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "2", "+", "3", "$result", edge(3)),
		arith(3, "$result", "*", "2", "$double"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := lastEnv(t, res, 3).Get("$double"); !v.Equal(Int(10)) {
		t.Errorf("expected $double = 10, got %v", v)
	}
}

func TestExecute_EdgeOrder(t *testing.T) {
	doc := domain.Document{
		root(1, edge(3), edge(2)),
		arith(2, "1", "+", "1", "$a"),
		arith(3, "1", "+", "1", "$b", edge(4)),
		arith(4, "1", "+", "1", "$c"),
	}

	res, err := New(Options{}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.NodeID{1, 3, 4, 2}
	if len(res.Steps) != len(want) {
		t.Fatalf("expected %d steps, got %d", len(want), len(res.Steps))
	}
	for i, id := range want {
		if res.Steps[i].NodeID != id {
			t.Errorf("step %d: expected node %d, got %d", i, id, res.Steps[i].NodeID)
		}
	}
}

func TestExecute_DispatchesAction(t *testing.T) {
	rec := &recorder{}
	execID := uuid.New()
	ctx := WithExecutionID(context.Background(), execID)

	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "500", "*", "2", "$amount", guarded(3, "$amount", ">=", "1000")),
		swap(3, "$amount"),
	}

	res, err := New(Options{Dispatcher: rec}).Execute(ctx, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ActionsDispatched != 1 || len(rec.actions) != 1 {
		t.Fatalf("expected 1 action, got %d (recorded %d)", res.ActionsDispatched, len(rec.actions))
	}

	a := rec.actions[0]
	if a.ExecutionID != execID {
		t.Errorf("expected execution id %s, got %s", execID, a.ExecutionID)
	}
	if a.NodeID != 3 || a.Type != domain.ActionSwapExactETHForTokens {
		t.Errorf("unexpected action: %+v", a)
	}
	if v := a.Params[ParamTokenFromAmount]; !v.Equal(Uint(1000)) {
		t.Errorf("expected amount 1000, got %s %v", v.Kind(), v)
	}
	if v := a.Params[ParamTokenFromAddress]; !v.Equal(String("0xfrom")) {
		t.Errorf("expected from 0xfrom, got %v", v)
	}
}

func TestExecute_ActionErrors(t *testing.T) {
	tests := []struct {
		name string
		node domain.Node
		want error
	}{
		{
			name: "negative amount",
			node: swap(2, "-5"),
			want: ErrTypeMismatch,
		},
		{
			name: "float amount",
			node: swap(2, "1.5"),
			want: ErrTypeMismatch,
		},
		{
			name: "unresolved amount",
			node: swap(2, "$nope"),
			want: ErrUnresolvedVariable,
		},
		{
			name: "empty amount",
			node: swap(2, ""),
			want: ErrMissingField,
		},
		{
			name: "no data",
			node: domain.Node{ID: 2, ZapType: domain.NodeKindAction},
			want: ErrMissingField,
		},
		{
			name: "unsupported type",
			node: domain.Node{ID: 2, ZapType: domain.NodeKindAction, Data: &domain.NodeData{
				ActionType: "BRIDGE", TokenFromAddress: "a", TokenToAddress: "b", TokenFromAmount: "1",
			}},
			want: ErrUnsupportedActionType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			doc := domain.Document{root(1, edge(2)), tt.node}

			_, err := New(Options{Dispatcher: rec}).Execute(context.Background(), doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(rec.actions) != 0 {
				t.Errorf("expected no dispatched actions, got %d", len(rec.actions))
			}
		})
	}
}

func TestExecute_ArithmeticErrors(t *testing.T) {
	tests := []struct {
		name string
		node domain.Node
		want error
	}{
		{"division by zero", arith(2, "5", "/", "0", "$x"), ErrDivisionByZero},
		{"unknown operator", arith(2, "5", "**", "2", "$x"), ErrUnknownOperator},
		{"mixed types", arith(2, "5", "+", "0.5", "$x"), ErrTypeMismatch},
		{"empty result", arith(2, "5", "+", "1", ""), ErrMissingField},
		{"no data", domain.Node{ID: 2, ZapType: domain.NodeKindArithmetic}, ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := domain.Document{root(1, edge(2)), tt.node}

			_, err := New(Options{}).Execute(context.Background(), doc)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}

			var eErr *ExecError
			if !errors.As(err, &eErr) || eErr.NodeID != 2 {
				t.Errorf("expected error at node 2, got %v", err)
			}
		})
	}
}

func TestExecute_CoerceFloatPolicy(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "5", "+", "0.5", "$x"),
	}

	res, err := New(Options{Arithmetic: CoerceFloat}).Execute(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := lastEnv(t, res, 2).Get("$x"); !v.Equal(Float(5.5)) {
		t.Errorf("expected 5.5, got %v", v)
	}
}

func TestExecute_MalformedBeforeTraversal(t *testing.T) {
	rec := &recorder{}
	doc := domain.Document{
		root(1, edge(2), edge(9)),
		swap(2, "1"),
	}

	res, err := New(Options{Dispatcher: rec}).Execute(context.Background(), doc)
	if !errors.Is(err, ErrMalformedDocument) {
		t.Fatalf("expected ErrMalformedDocument, got %v", err)
	}
	if res != nil {
		t.Error("expected nil result for structural error")
	}
	if len(rec.actions) != 0 {
		t.Error("no action may be dispatched before the graph is valid")
	}
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "1", "+", "1", "$x"),
	}

	_, err := New(Options{}).Execute(ctx, doc)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
