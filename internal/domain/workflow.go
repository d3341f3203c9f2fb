package domain

import (
	"time"

	"github.com/google/uuid"
)

// Workflow — сохранённый workflow (zap) пользователя.
//
// Workflow хранит документ графа целиком. Каждый запуск (Execution)
// строит DAG из документа заново.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя workflow (например, "buy-the-dip").
	Name string `json:"name"`

	// Document — узлы графа вместе с исходящими рёбрами.
	Document Document `json:"document"`

	// IsActive — неактивные workflows не запускаются ни вручную, ни по расписанию.
	IsActive bool `json:"is_active"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения документа или метаданных.
	UpdatedAt time.Time `json:"updated_at"`
}

// Document — сериализованная форма графа: плоский список узлов,
// каждый со своими исходящими рёбрами.
type Document []Node

// NodeID — идентификатор узла, задаётся автором документа.
type NodeID uint32

// NodeKind — тип узла графа.
type NodeKind string

const (
	// NodeKindRoot — точка входа. В документе ровно один такой узел.
	NodeKindRoot NodeKind = "ROOT"

	// NodeKindArithmetic — вычисление left <op> right с записью в переменную result.
	NodeKindArithmetic NodeKind = "ARITHMETIC"

	// NodeKindAction — внешнее действие (например, swap токенов).
	NodeKindAction NodeKind = "ACTION"
)

// IsValid проверяет, что тип узла известен.
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindRoot, NodeKindArithmetic, NodeKindAction:
		return true
	default:
		return false
	}
}

// ActionType — тип внешнего действия. Закрытое множество.
type ActionType string

const (
	// ActionSwapExactETHForTokens — обмен точного количества входного токена на выходной.
	ActionSwapExactETHForTokens ActionType = "SWAP_EXACT_ETH_FOR_TOKENS"
)

// IsValid проверяет, что тип действия поддерживается.
func (t ActionType) IsValid() bool {
	return t == ActionSwapExactETHForTokens
}

// Node — узел документа.
type Node struct {
	// ID — уникальный в пределах документа идентификатор.
	ID NodeID `json:"id" yaml:"id"`

	// Children — исходящие рёбра. Порядок = порядок обхода.
	Children []Edge `json:"children,omitempty" yaml:"children,omitempty"`

	// ZapType — тип узла.
	ZapType NodeKind `json:"zap_type" yaml:"zap_type"`

	// Data — параметры узла; набор обязательных полей зависит от ZapType.
	Data *NodeData `json:"data,omitempty" yaml:"data,omitempty"`
}

// Edge — ребро к дочернему узлу с необязательным условием.
type Edge struct {
	// ID — идентификатор целевого узла.
	ID NodeID `json:"id" yaml:"id"`

	// Condition — условие перехода. Nil — переход безусловный.
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Condition — сравнение двух операндов.
//
// Операнд — либо ссылка на переменную ("$sum"), либо литерал ("42", "true").
type Condition struct {
	Left     string `json:"left" yaml:"left"`
	Right    string `json:"right" yaml:"right"`
	Operator string `json:"operator" yaml:"operator"`
}

// NodeData — параметры узла.
//
// ARITHMETIC: Left, Right, Operator, Result.
// ACTION: ActionType, TokenFromAddress, TokenToAddress, TokenFromAmount.
type NodeData struct {
	Left     string `json:"left,omitempty" yaml:"left,omitempty"`
	Right    string `json:"right,omitempty" yaml:"right,omitempty"`
	Operator string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Result   string `json:"result,omitempty" yaml:"result,omitempty"`

	ActionType       ActionType `json:"action_type,omitempty" yaml:"action_type,omitempty"`
	TokenFromAddress string     `json:"token_from_address,omitempty" yaml:"token_from_address,omitempty"`
	TokenToAddress   string     `json:"token_to_address,omitempty" yaml:"token_to_address,omitempty"`
	TokenFromAmount  string     `json:"token_from_amount,omitempty" yaml:"token_from_amount,omitempty"`
}

// Root возвращает корневой узел документа, если он ровно один.
func (d Document) Root() (*Node, bool) {
	var root *Node
	for i := range d {
		if d[i].ZapType != NodeKindRoot {
			continue
		}
		if root != nil {
			return nil, false
		}
		root = &d[i]
	}
	return root, root != nil
}

// EdgeCount возвращает общее количество рёбер в документе.
func (d Document) EdgeCount() int {
	n := 0
	for i := range d {
		n += len(d[i].Children)
	}
	return n
}
