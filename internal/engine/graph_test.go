package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/shaiso/zapflow/internal/domain"
)

func root(id domain.NodeID, children ...domain.Edge) domain.Node {
	return domain.Node{ID: id, ZapType: domain.NodeKindRoot, Children: children}
}

func arith(id domain.NodeID, left, op, right, result string, children ...domain.Edge) domain.Node {
	return domain.Node{
		ID:       id,
		ZapType:  domain.NodeKindArithmetic,
		Data:     &domain.NodeData{Left: left, Right: right, Operator: op, Result: result},
		Children: children,
	}
}

func edge(id domain.NodeID) domain.Edge {
	return domain.Edge{ID: id}
}

func guarded(id domain.NodeID, left, op, right string) domain.Edge {
	return domain.Edge{ID: id, Condition: &domain.Condition{Left: left, Right: right, Operator: op}}
}

func TestBuildGraph_Chain(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "2", "+", "3", "$sum", edge(3)),
		arith(3, "$sum", "-", "1", "$final"),
	}

	g, err := BuildGraph(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if g.Size() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.Size())
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}
	if g.Root().ID != 1 {
		t.Errorf("expected root 1, got %d", g.Root().ID)
	}

	n2 := g.Node(2)
	if len(n2.Children) != 1 || n2.Children[0].Target.ID != 3 {
		t.Error("node 2 should point to node 3")
	}
}

func TestBuildGraph_RootOrderIndependent(t *testing.T) {
	doc := domain.Document{
		arith(2, "1", "+", "1", "$x"),
		root(7, edge(2)),
	}

	g, err := BuildGraph(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Root().ID != 7 {
		t.Errorf("expected root 7, got %d", g.Root().ID)
	}
}

func TestBuildGraph_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  domain.Document
	}{
		{
			name: "no root",
			doc: domain.Document{
				arith(2, "1", "+", "1", "$x"),
			},
		},
		{
			name: "two roots",
			doc: domain.Document{
				root(1, edge(2)),
				root(2),
			},
		},
		{
			name: "duplicate id",
			doc: domain.Document{
				root(1),
				arith(2, "1", "+", "1", "$x"),
				arith(2, "1", "+", "1", "$y"),
			},
		},
		{
			name: "unknown target",
			doc: domain.Document{
				root(1, edge(9)),
			},
		},
		{
			name: "unknown zap_type",
			doc: domain.Document{
				root(1, edge(2)),
				{ID: 2, ZapType: "LOOP"},
			},
		},
		{
			name: "cycle",
			doc: domain.Document{
				root(1, edge(2)),
				arith(2, "1", "+", "1", "$x", edge(3)),
				arith(3, "1", "+", "1", "$y", edge(2)),
			},
		},
		{
			name: "self loop",
			doc: domain.Document{
				root(1, edge(2)),
				arith(2, "1", "+", "1", "$x", edge(2)),
			},
		},
		{
			name: "cycle unreachable from root",
			doc: domain.Document{
				root(1),
				arith(2, "1", "+", "1", "$x", edge(3)),
				arith(3, "1", "+", "1", "$y", edge(2)),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildGraph(tt.doc)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("expected ErrMalformedDocument, got %v", err)
			}
			if KindOf(err) != "MalformedDocument" {
				t.Errorf("expected kind MalformedDocument, got %q", KindOf(err))
			}
		})
	}
}

func TestBuildGraph_DiamondIsNotCycle(t *testing.T) {
	// 1 → 2 → 4
	// 1 → 3 → 4
	doc := domain.Document{
		root(1, edge(2), edge(3)),
		arith(2, "1", "+", "1", "$a", edge(4)),
		arith(3, "1", "+", "2", "$b", edge(4)),
		arith(4, "1", "+", "3", "$c"),
	}

	if _, err := BuildGraph(doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Summary(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "1", "^", "1", "$x"),
		arith(3, "1", "+", "1", "$y"),
	}

	s, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Nodes != 3 || s.Edges != 1 || s.Root != 1 {
		t.Errorf("unexpected summary: %+v", s)
	}
	if len(s.Unreachable) != 1 || s.Unreachable[0] != 3 {
		t.Errorf("expected node 3 unreachable, got %v", s.Unreachable)
	}
	if len(s.Warnings) != 1 {
		t.Errorf("expected 1 warning, got %v", s.Warnings)
	}
}

func TestValidate_ResultWithoutMarker(t *testing.T) {
	doc := domain.Document{
		root(1, edge(2)),
		arith(2, "7", "+", "3", "sum", edge(3)),
		arith(3, "$sum", "-", "1", "$final"),
	}

	s, err := Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Warnings) != 1 || !strings.Contains(s.Warnings[0], `node 2: result "sum" is not a $-variable`) {
		t.Errorf("expected warning for node 2, got %v", s.Warnings)
	}
}

func TestDecodeDocument(t *testing.T) {
	jsonDoc := `[
		{"id": 1, "zap_type": "ROOT", "children": [{"id": 2}]},
		{"id": 2, "zap_type": "ACTION", "data": {
			"action_type": "SWAP_EXACT_ETH_FOR_TOKENS",
			"token_from_address": "0xfrom",
			"token_to_address": "0xto",
			"token_from_amount": "1000"
		}}
	]`

	doc, err := DecodeDocument([]byte(jsonDoc), FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc) != 2 || doc[1].Data.TokenFromAmount != "1000" {
		t.Errorf("unexpected document: %+v", doc)
	}

	yamlDoc := `
- id: 1
  zap_type: ROOT
  children:
    - id: 2
      condition: {left: "1", right: "0", operator: ">"}
- id: 2
  zap_type: ARITHMETIC
  data: {left: "2", right: "3", operator: "+", result: "$sum"}
`
	doc, err = DecodeDocument([]byte(yamlDoc), FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc[0].Children[0].Condition == nil || doc[0].Children[0].Condition.Operator != ">" {
		t.Errorf("condition not decoded: %+v", doc[0].Children[0])
	}
	if doc[1].Data.Result != "$sum" {
		t.Errorf("expected result $sum, got %q", doc[1].Data.Result)
	}

	if _, err := DecodeDocument([]byte(`[]`), FormatJSON); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument for empty document, got %v", err)
	}
	if _, err := DecodeDocument([]byte(`{`), FormatJSON); !errors.Is(err, ErrMalformedDocument) {
		t.Errorf("expected ErrMalformedDocument for broken json, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	if FormatFromPath("zap.YML") != FormatYAML {
		t.Error("expected yaml for .YML")
	}
	if FormatFromPath("zap.json") != FormatJSON {
		t.Error("expected json for .json")
	}
}
