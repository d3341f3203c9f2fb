package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind — вариант значения Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
)

// String возвращает имя варианта.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value — типизированное значение переменной.
//
// Закрытое множество вариантов: Null, Bool, Int (int64), Uint (uint64),
// Float (float64), String. Нулевое значение Value — Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
}

// Null возвращает пустое значение.
func Null() Value { return Value{} }

// Bool возвращает булево значение.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int возвращает знаковое целое.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint возвращает беззнаковое целое.
func Uint(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float возвращает число с плавающей точкой.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String возвращает строковое значение.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind возвращает вариант значения.
func (v Value) Kind() Kind { return v.kind }

// IsNull проверяет, что значение пустое.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric проверяет, что значение — число.
func (v Value) IsNumeric() bool {
	switch v.kind {
	case KindInt, KindUint, KindFloat:
		return true
	default:
		return false
	}
}

// AsBool возвращает булево значение и признак совпадения варианта.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt возвращает int64 и признак совпадения варианта.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsUint возвращает uint64 и признак совпадения варианта.
func (v Value) AsUint() (uint64, bool) { return v.u, v.kind == KindUint }

// AsFloat возвращает float64 и признак совпадения варианта.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsString возвращает строку и признак совпадения варианта.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// toFloat приводит любое числовое значение к float64.
func (v Value) toFloat() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// Equal сравнивает значения с учётом варианта.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindUint:
		return v.u == o.u
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	default:
		return false
	}
}

// String возвращает текстовое представление (для логов и параметров действий).
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return "null"
	}
}

// Interface возвращает значение как any (nil для Null).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return nil
	}
}

// MarshalJSON сериализует значение в нативный JSON-тип.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Normalize превращает литерал в типизированное значение.
//
// Порядок: "true"/"false" → Bool; целое со знаком → Int; целое без знака
// (больше MaxInt64) → Uint; конечное число с плавающей точкой → Float;
// всё остальное → String.
func Normalize(s string) Value {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i)
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return Uint(u)
	}
	if isHexLiteral(s) {
		return String(s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Float(f)
	}
	return String(s)
}

// isHexLiteral сообщает, начинается ли s с 0x/0X (после необязательного знака).
// ParseFloat принимает шестнадцатеричные float ("0x1p3"), литералы их не допускают.
func isHexLiteral(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}
