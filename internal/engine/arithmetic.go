package engine

import (
	"fmt"
	"math"
	"math/bits"
)

// Арифметические операторы.
const (
	OpAdd = "+"
	OpSub = "-"
	OpMul = "*"
	OpDiv = "/"
	OpMod = "%"
)

// IsArithmeticOperator проверяет, что арифметический оператор поддерживается.
func IsArithmeticOperator(op string) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	default:
		return false
	}
}

// MixedPolicy — политика для числовых операндов разных вариантов.
type MixedPolicy int

const (
	// RejectMixed — разные варианты дают ErrTypeMismatch.
	RejectMixed MixedPolicy = iota

	// CoerceFloat — Int/Uint/Float приводятся к Float.
	CoerceFloat
)

// ParseMixedPolicy разбирает значение ARITHMETIC_POLICY.
func ParseMixedPolicy(s string) (MixedPolicy, error) {
	switch s {
	case "", "reject":
		return RejectMixed, nil
	case "coerce_float":
		return CoerceFloat, nil
	default:
		return RejectMixed, fmt.Errorf("unknown arithmetic policy %q", s)
	}
}

// String возвращает имя политики.
func (p MixedPolicy) String() string {
	if p == CoerceFloat {
		return "coerce_float"
	}
	return "reject"
}

// Compute применяет арифметический оператор.
//
// Определено для пар (Float, Float), (Int, Int), (Uint, Uint). Пары разных
// числовых вариантов обрабатываются по policy. Деление и остаток на ноль
// дают ErrDivisionByZero, переполнение целых и нефинитный результат —
// ErrArithmeticOverflow.
func Compute(left, right Value, op string, policy MixedPolicy) (Value, error) {
	if !IsArithmeticOperator(op) {
		return Value{}, &ExecError{Message: ErrUnknownOperator.Error() + ": " + op, Err: ErrUnknownOperator}
	}
	if !left.IsNumeric() || !right.IsNumeric() {
		return Value{}, mismatch(left, right)
	}

	if left.kind != right.kind {
		if policy != CoerceFloat {
			return Value{}, mismatch(left, right)
		}
		l, _ := left.toFloat()
		r, _ := right.toFloat()
		return computeFloat(l, r, op)
	}

	switch left.kind {
	case KindInt:
		return computeInt(left.i, right.i, op)
	case KindUint:
		return computeUint(left.u, right.u, op)
	default:
		return computeFloat(left.f, right.f, op)
	}
}

func mismatch(left, right Value) error {
	return &ExecError{
		Message: fmt.Sprintf("%s: %s and %s", ErrTypeMismatch, left.kind, right.kind),
		Err:     ErrTypeMismatch,
	}
}

func overflow(op string) error {
	return &ExecError{Message: ErrArithmeticOverflow.Error() + " in " + op, Err: ErrArithmeticOverflow}
}

func divByZero() error {
	return &ExecError{Message: ErrDivisionByZero.Error(), Err: ErrDivisionByZero}
}

func computeInt(a, b int64, op string) (Value, error) {
	switch op {
	case OpAdd:
		r := a + b
		if (r > a) != (b > 0) {
			return Value{}, overflow(op)
		}
		return Int(r), nil
	case OpSub:
		r := a - b
		if (r < a) != (b > 0) {
			return Value{}, overflow(op)
		}
		return Int(r), nil
	case OpMul:
		if a == 0 || b == 0 {
			return Int(0), nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return Value{}, overflow(op)
		}
		return Int(r), nil
	case OpDiv:
		if b == 0 {
			return Value{}, divByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return Value{}, overflow(op)
		}
		return Int(a / b), nil
	default:
		if b == 0 {
			return Value{}, divByZero()
		}
		if b == -1 {
			return Int(0), nil
		}
		return Int(a % b), nil
	}
}

func computeUint(a, b uint64, op string) (Value, error) {
	switch op {
	case OpAdd:
		r, carry := bits.Add64(a, b, 0)
		if carry != 0 {
			return Value{}, overflow(op)
		}
		return Uint(r), nil
	case OpSub:
		r, borrow := bits.Sub64(a, b, 0)
		if borrow != 0 {
			return Value{}, overflow(op)
		}
		return Uint(r), nil
	case OpMul:
		hi, lo := bits.Mul64(a, b)
		if hi != 0 {
			return Value{}, overflow(op)
		}
		return Uint(lo), nil
	case OpDiv:
		if b == 0 {
			return Value{}, divByZero()
		}
		return Uint(a / b), nil
	default:
		if b == 0 {
			return Value{}, divByZero()
		}
		return Uint(a % b), nil
	}
}

func computeFloat(a, b float64, op string) (Value, error) {
	var r float64
	switch op {
	case OpAdd:
		r = a + b
	case OpSub:
		r = a - b
	case OpMul:
		r = a * b
	case OpDiv:
		if b == 0 {
			return Value{}, divByZero()
		}
		r = a / b
	default:
		if b == 0 {
			return Value{}, divByZero()
		}
		r = math.Mod(a, b)
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return Value{}, overflow(op)
	}
	return Float(r), nil
}
