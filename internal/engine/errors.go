package engine

import (
	"errors"
	"fmt"

	"github.com/shaiso/zapflow/internal/domain"
)

// Структурные ошибки документа (до начала обхода).
var (
	// ErrMalformedDocument — документ не образует корректный граф:
	// нет корня, несколько корней, дубликат id, ребро в неизвестный узел, цикл.
	ErrMalformedDocument = errors.New("malformed document")
)

// Ошибки выполнения (обход прерывается целиком).
var (
	// ErrMissingField — у узла нет обязательного поля data.
	ErrMissingField = errors.New("missing required field")

	// ErrUnresolvedVariable — операнд ссылается на неизвестную переменную.
	ErrUnresolvedVariable = errors.New("unresolved variable")

	// ErrTypeMismatch — операнды арифметики несовместимы по типу.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero — деление или остаток от деления на ноль.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownOperator — оператор не из поддерживаемого набора.
	ErrUnknownOperator = errors.New("unknown operator")

	// ErrUnsupportedActionType — тип действия не поддерживается.
	ErrUnsupportedActionType = errors.New("unsupported action type")

	// ErrArithmeticOverflow — переполнение целого или нефинитный результат.
	ErrArithmeticOverflow = errors.New("arithmetic overflow")
)

// kindNames — имена видов ошибок для записи в execution.error_kind.
var kindNames = []struct {
	err  error
	name string
}{
	{ErrMalformedDocument, "MalformedDocument"},
	{ErrMissingField, "MissingField"},
	{ErrUnresolvedVariable, "UnresolvedVariable"},
	{ErrTypeMismatch, "TypeMismatch"},
	{ErrDivisionByZero, "DivisionByZero"},
	{ErrUnknownOperator, "UnknownOperator"},
	{ErrUnsupportedActionType, "UnsupportedActionType"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
}

// KindOf возвращает имя вида ошибки или "" для посторонних ошибок.
func KindOf(err error) string {
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// ExecError — ошибка движка с контекстом.
type ExecError struct {
	NodeID  domain.NodeID // узел, где произошла ошибка
	HasNode bool          // false — ошибка не привязана к узлу
	Field   string        // поле, вызвавшее ошибку
	Message string        // описание ошибки
	Err     error         // базовая ошибка (один из Err*)
}

// Error реализует интерфейс error.
func (e *ExecError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.HasNode {
		return fmt.Sprintf("node %d: %s", e.NodeID, msg)
	}
	return msg
}

// Unwrap возвращает базовую ошибку.
func (e *ExecError) Unwrap() error {
	return e.Err
}

// Node возвращает id узла, если ошибка к нему привязана.
func (e *ExecError) Node() *domain.NodeID {
	if !e.HasNode {
		return nil
	}
	id := e.NodeID
	return &id
}

// nodeError создаёт ошибку, привязанную к узлу.
func nodeError(id domain.NodeID, field string, err error, format string, args ...any) *ExecError {
	return &ExecError{
		NodeID:  id,
		HasNode: true,
		Field:   field,
		Message: err.Error() + ": " + fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// docError создаёт структурную ошибку документа.
func docError(format string, args ...any) *ExecError {
	return &ExecError{
		Message: ErrMalformedDocument.Error() + ": " + fmt.Sprintf(format, args...),
		Err:     ErrMalformedDocument,
	}
}

// docNodeError создаёт структурную ошибку, привязанную к узлу.
func docNodeError(id domain.NodeID, format string, args ...any) *ExecError {
	e := docError(format, args...)
	e.NodeID = id
	e.HasNode = true
	return e
}
