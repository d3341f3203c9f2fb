package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/zapflow/internal/domain"
)

func TestResolve(t *testing.T) {
	env := NewEnv()
	env.Set("$sum", Int(5))

	if v, ok := Resolve("$sum", env); !ok || !v.Equal(Int(5)) {
		t.Errorf("expected $sum = 5, got %v (ok=%v)", v, ok)
	}
	if _, ok := Resolve("$missing", env); ok {
		t.Error("expected $missing to be unresolved")
	}
	if _, ok := Resolve("", env); ok {
		t.Error("expected empty token to be unresolved")
	}
	if v, ok := Resolve("4", env); !ok || !v.Equal(Int(4)) {
		t.Errorf("expected literal 4, got %v", v)
	}
	// Ключ хранится вместе с "$"
	env.Set("sum", Int(99))
	if v, _ := Resolve("$sum", env); !v.Equal(Int(5)) {
		t.Errorf("$sum must not resolve to key without prefix, got %v", v)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name  string
		left  Value
		right Value
		op    string
		want  bool
	}{
		{"int gt", Int(5), Int(4), ">", true},
		{"int lt", Int(5), Int(4), "<", false},
		{"int eq", Int(4), Int(4), "==", true},
		{"int le", Int(4), Int(4), "<=", true},
		{"uint ge", Uint(7), Uint(8), ">=", false},
		{"float ne", Float(1.5), Float(2.5), "!=", true},
		{"bool eq", Bool(true), Bool(true), "==", true},
		{"bool gt", Bool(true), Bool(false), ">", true},
		{"string lt", String("abc"), String("abd"), "<", true},
		{"int vs float", Int(1), Float(1.0), "==", false},
		{"int vs float ne", Int(1), Float(1.0), "!=", false},
		{"string vs int", String("1"), Int(1), "==", false},
		{"null vs null", Null(), Null(), "==", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.left, tt.right, tt.op)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	_, err := Compare(Int(1), Float(1), "=~")
	if !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("expected ErrUnknownOperator, got %v", err)
	}
}

func TestEvaluateCondition(t *testing.T) {
	env := NewEnv()
	env.Set("$sum", Int(5))

	ok, err := EvaluateCondition(&domain.Condition{Left: "$sum", Right: "4", Operator: ">"}, env)
	if err != nil || !ok {
		t.Errorf("expected true, got %v (err=%v)", ok, err)
	}

	ok, err = EvaluateCondition(nil, env)
	if err != nil || !ok {
		t.Errorf("nil condition must be true, got %v (err=%v)", ok, err)
	}

	_, err = EvaluateCondition(&domain.Condition{Left: "1", Right: "$nope", Operator: "=="}, env)
	if !errors.Is(err, ErrUnresolvedVariable) {
		t.Errorf("expected ErrUnresolvedVariable, got %v", err)
	}

	var eErr *ExecError
	if !errors.As(err, &eErr) || eErr.Field != "condition.right" {
		t.Errorf("expected field condition.right, got %+v", eErr)
	}
}
