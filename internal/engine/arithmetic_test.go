package engine

import (
	"errors"
	"math"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name  string
		left  Value
		right Value
		op    string
		want  Value
	}{
		{"int mod", Int(10), Int(3), "%", Int(1)},
		{"float add", Float(1.5), Float(0.5), "+", Float(2.0)},
		{"int add", Int(2), Int(3), "+", Int(5)},
		{"int sub negative", Int(2), Int(3), "-", Int(-1)},
		{"int mul", Int(-4), Int(3), "*", Int(-12)},
		{"int div truncates", Int(7), Int(2), "/", Int(3)},
		{"uint add", Uint(1 << 63), Uint(1), "+", Uint(1<<63 + 1)},
		{"float div", Float(1), Float(4), "/", Float(0.25)},
		{"float mod", Float(5.5), Float(2), "%", Float(1.5)},
		{"int mod minus one", Int(math.MinInt64), Int(-1), "%", Int(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.left, tt.right, tt.op, RejectMixed)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %s %v, got %s %v", tt.want.Kind(), tt.want, got.Kind(), got)
			}
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	tests := []struct {
		name  string
		left  Value
		right Value
		op    string
		want  error
	}{
		{"int div zero", Int(5), Int(0), "/", ErrDivisionByZero},
		{"int mod zero", Int(5), Int(0), "%", ErrDivisionByZero},
		{"uint div zero", Uint(5), Uint(0), "/", ErrDivisionByZero},
		{"float div zero", Float(5), Float(0), "/", ErrDivisionByZero},
		{"unknown operator", Int(1), Int(1), "^", ErrUnknownOperator},
		{"mixed int float", Int(1), Float(1), "+", ErrTypeMismatch},
		{"string operand", String("a"), Int(1), "+", ErrTypeMismatch},
		{"bool operand", Bool(true), Bool(true), "+", ErrTypeMismatch},
		{"int add overflow", Int(math.MaxInt64), Int(1), "+", ErrArithmeticOverflow},
		{"int sub overflow", Int(math.MinInt64), Int(1), "-", ErrArithmeticOverflow},
		{"int mul overflow", Int(math.MaxInt64), Int(2), "*", ErrArithmeticOverflow},
		{"int min div", Int(math.MinInt64), Int(-1), "/", ErrArithmeticOverflow},
		{"int min mul", Int(math.MinInt64), Int(-1), "*", ErrArithmeticOverflow},
		{"uint sub underflow", Uint(1), Uint(2), "-", ErrArithmeticOverflow},
		{"uint mul overflow", Uint(math.MaxUint64), Uint(2), "*", ErrArithmeticOverflow},
		{"float overflow", Float(math.MaxFloat64), Float(10), "*", ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.left, tt.right, tt.op, RejectMixed)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompute_CoerceFloat(t *testing.T) {
	got, err := Compute(Int(1), Float(0.5), "+", CoerceFloat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(Float(1.5)) {
		t.Errorf("expected 1.5, got %v", got)
	}

	got, err = Compute(Uint(3), Int(2), "*", CoerceFloat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(Float(6)) {
		t.Errorf("expected 6, got %s %v", got.Kind(), got)
	}

	// Нечисловые операнды не приводятся
	if _, err := Compute(String("1"), Float(1), "+", CoerceFloat); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestParseMixedPolicy(t *testing.T) {
	if p, err := ParseMixedPolicy(""); err != nil || p != RejectMixed {
		t.Errorf("expected RejectMixed, got %v (err=%v)", p, err)
	}
	if p, err := ParseMixedPolicy("coerce_float"); err != nil || p != CoerceFloat {
		t.Errorf("expected CoerceFloat, got %v (err=%v)", p, err)
	}
	if _, err := ParseMixedPolicy("null"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
