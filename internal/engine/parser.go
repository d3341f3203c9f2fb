package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/zapflow/internal/domain"
)

// Format — формат сериализованного документа.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath определяет формат по расширению файла.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeDocument разбирает документ из JSON или YAML.
//
// Документ — массив узлов.
func DecodeDocument(data []byte, format Format) (domain.Document, error) {
	var doc domain.Document

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, docError("decode yaml: %v", err)
		}
	default:
		if err := json.Unmarshal(bytes.TrimSpace(data), &doc); err != nil {
			return nil, docError("decode json: %v", err)
		}
	}

	if len(doc) == 0 {
		return nil, docError("document has no nodes")
	}
	return doc, nil
}

// Summary — результат статической проверки документа.
type Summary struct {
	// Nodes — количество узлов.
	Nodes int `json:"nodes"`

	// Edges — количество рёбер.
	Edges int `json:"edges"`

	// Root — id корневого узла.
	Root domain.NodeID `json:"root"`

	// Unreachable — узлы, недостижимые из корня. Они никогда не выполняются.
	Unreachable []domain.NodeID `json:"unreachable,omitempty"`

	// Warnings — проблемы, которые приведут к ошибке при обходе узла.
	Warnings []string `json:"warnings,omitempty"`
}

// Validate проверяет документ.
//
// Структурные ошибки (ErrMalformedDocument) возвращаются как error.
// Проблемы данных узлов (пустые поля, неизвестные операторы и типы
// действий) не являются структурными: они проявятся только если узел
// будет достигнут, поэтому попадают в Summary.Warnings.
func Validate(doc domain.Document) (*Summary, error) {
	g, err := BuildGraph(doc)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Nodes: g.Size(),
		Edges: g.EdgeCount(),
		Root:  g.Root().ID,
	}

	reachable := g.Reachable()
	for _, n := range g.Nodes() {
		if !reachable[n.ID] {
			s.Unreachable = append(s.Unreachable, n.ID)
		}
		s.Warnings = append(s.Warnings, lintNode(n)...)
	}
	slices.Sort(s.Unreachable)

	return s, nil
}

// lintNode проверяет данные узла и условия его рёбер.
func lintNode(n *GraphNode) []string {
	var out []string
	warn := func(format string, args ...any) {
		out = append(out, fmt.Sprintf("node %d: ", n.ID)+fmt.Sprintf(format, args...))
	}

	for _, e := range n.Children {
		if e.Condition != nil && !IsComparisonOperator(e.Condition.Operator) {
			warn("edge to %d: unknown operator %q", e.Target.ID, e.Condition.Operator)
		}
	}

	d := n.Data
	switch n.Kind {
	case domain.NodeKindArithmetic:
		if d == nil {
			warn("arithmetic node has no data")
			return out
		}
		if d.Left == "" || d.Right == "" || d.Result == "" {
			warn("arithmetic node needs left, right and result")
		}
		if d.Result != "" && !strings.HasPrefix(d.Result, "$") {
			warn("result %q is not a $-variable and cannot be referenced", d.Result)
		}
		if !IsArithmeticOperator(d.Operator) {
			warn("unknown operator %q", d.Operator)
		}
	case domain.NodeKindAction:
		if d == nil {
			warn("action node has no data")
			return out
		}
		if !d.ActionType.IsValid() {
			warn("unsupported action type %q", d.ActionType)
		}
		if d.TokenFromAddress == "" || d.TokenToAddress == "" || d.TokenFromAmount == "" {
			warn("action node needs token_from_address, token_to_address and token_from_amount")
		}
	}
	return out
}
