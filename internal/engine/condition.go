package engine

import (
	"cmp"
	"strings"

	"github.com/shaiso/zapflow/internal/domain"
)

// Операторы сравнения.
const (
	OpEq = "=="
	OpNe = "!="
	OpGt = ">"
	OpGe = ">="
	OpLt = "<"
	OpLe = "<="
)

// IsComparisonOperator проверяет, что оператор сравнения поддерживается.
func IsComparisonOperator(op string) bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGe, OpLt, OpLe:
		return true
	default:
		return false
	}
}

// Resolve разрешает операнд.
//
// Токен с префиксом "$" ищется в окружении целиком (ключ включает "$").
// Непустой литерал нормализуется через Normalize. Пустая строка
// и отсутствующая переменная не разрешаются.
func Resolve(token string, env *Env) (Value, bool) {
	if strings.HasPrefix(token, "$") {
		if env == nil {
			return Value{}, false
		}
		return env.Get(token)
	}
	if token == "" {
		return Value{}, false
	}
	return Normalize(token), true
}

// Compare применяет оператор сравнения к двум значениям.
//
// Сравниваются только значения одного варианта (Bool, Int, Uint, Float,
// String). Разные варианты дают false без ошибки. Null ни с чем не равен.
func Compare(left, right Value, op string) (bool, error) {
	if !IsComparisonOperator(op) {
		return false, &ExecError{Message: ErrUnknownOperator.Error() + ": " + op, Err: ErrUnknownOperator}
	}
	if left.kind != right.kind {
		return false, nil
	}

	var c int
	switch left.kind {
	case KindBool:
		c = cmpBool(left.b, right.b)
	case KindInt:
		c = cmp.Compare(left.i, right.i)
	case KindUint:
		c = cmp.Compare(left.u, right.u)
	case KindFloat:
		c = cmp.Compare(left.f, right.f)
	case KindString:
		c = strings.Compare(left.s, right.s)
	default:
		return false, nil
	}

	switch op {
	case OpEq:
		return c == 0, nil
	case OpNe:
		return c != 0, nil
	case OpGt:
		return c > 0, nil
	case OpGe:
		return c >= 0, nil
	case OpLt:
		return c < 0, nil
	default:
		return c <= 0, nil
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// EvaluateCondition разрешает оба операнда условия и сравнивает их.
//
// Возвращает ошибку с ErrUnresolvedVariable, если операнд не разрешён.
// Ошибка не привязана к узлу: walker добавляет id целевого узла ребра.
func EvaluateCondition(cond *domain.Condition, env *Env) (bool, error) {
	if cond == nil {
		return true, nil
	}
	left, ok := Resolve(cond.Left, env)
	if !ok {
		return false, &ExecError{Field: "condition.left", Message: ErrUnresolvedVariable.Error() + ": " + quote(cond.Left), Err: ErrUnresolvedVariable}
	}
	right, ok := Resolve(cond.Right, env)
	if !ok {
		return false, &ExecError{Field: "condition.right", Message: ErrUnresolvedVariable.Error() + ": " + quote(cond.Right), Err: ErrUnresolvedVariable}
	}
	return Compare(left, right, cond.Operator)
}

func quote(s string) string {
	return "\"" + s + "\""
}
