package engine

import (
	"github.com/shaiso/zapflow/internal/domain"
)

// Graph — проверенный граф документа.
//
// Граф только читается во время обхода, поэтому один Graph можно
// обходить многократно.
type Graph struct {
	nodes []*GraphNode
	index map[domain.NodeID]*GraphNode
	root  *GraphNode
	edges int
}

// GraphNode — узел графа с разрешёнными рёбрами.
type GraphNode struct {
	// ID — идентификатор из документа.
	ID domain.NodeID

	// Kind — тип узла.
	Kind domain.NodeKind

	// Data — параметры узла (может быть nil).
	Data *domain.NodeData

	// Children — исходящие рёбра в порядке документа.
	Children []GraphEdge
}

// GraphEdge — ребро к дочернему узлу.
type GraphEdge struct {
	Target    *GraphNode
	Condition *domain.Condition
}

// BuildGraph строит граф из документа.
//
// Первый проход регистрирует узлы и находит единственный ROOT.
// Второй проход разрешает рёбра. Затем DFS с раскраской проверяет
// отсутствие циклов. Все ошибки оборачивают ErrMalformedDocument.
func BuildGraph(doc domain.Document) (*Graph, error) {
	g := &Graph{
		nodes: make([]*GraphNode, 0, len(doc)),
		index: make(map[domain.NodeID]*GraphNode, len(doc)),
	}

	// Первый проход: узлы
	for i := range doc {
		n := &doc[i]

		if !n.ZapType.IsValid() {
			return nil, docNodeError(n.ID, "unknown zap_type %q", n.ZapType)
		}
		if _, exists := g.index[n.ID]; exists {
			return nil, docNodeError(n.ID, "duplicate node id")
		}

		gn := &GraphNode{
			ID:   n.ID,
			Kind: n.ZapType,
			Data: n.Data,
		}
		if n.ZapType == domain.NodeKindRoot {
			if g.root != nil {
				return nil, docNodeError(n.ID, "more than one ROOT node (first is %d)", g.root.ID)
			}
			g.root = gn
		}

		g.nodes = append(g.nodes, gn)
		g.index[n.ID] = gn
	}

	if g.root == nil {
		return nil, docError("no ROOT node")
	}

	// Второй проход: рёбра
	for i := range doc {
		n := &doc[i]
		gn := g.index[n.ID]

		for _, e := range n.Children {
			target, ok := g.index[e.ID]
			if !ok {
				return nil, docNodeError(n.ID, "edge to unknown node %d", e.ID)
			}
			gn.Children = append(gn.Children, GraphEdge{Target: target, Condition: e.Condition})
			g.edges++
		}
	}

	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}

	return g, nil
}

// Цвета для DFS.
const (
	white = iota // не посещён
	grey         // в стеке обхода
	black        // обработан
)

// checkAcyclic ищет обратное ребро DFS-обходом из каждого непосещённого узла.
func (g *Graph) checkAcyclic() error {
	color := make(map[domain.NodeID]int, len(g.nodes))

	var visit func(n *GraphNode) error
	visit = func(n *GraphNode) error {
		color[n.ID] = grey
		for _, e := range n.Children {
			switch color[e.Target.ID] {
			case grey:
				return docNodeError(n.ID, "cycle through edge %d -> %d", n.ID, e.Target.ID)
			case white:
				if err := visit(e.Target); err != nil {
					return err
				}
			}
		}
		color[n.ID] = black
		return nil
	}

	for _, n := range g.nodes {
		if color[n.ID] == white {
			if err := visit(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// Root возвращает корневой узел.
func (g *Graph) Root() *GraphNode {
	return g.root
}

// Node возвращает узел по id.
func (g *Graph) Node(id domain.NodeID) *GraphNode {
	return g.index[id]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// EdgeCount возвращает количество рёбер.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Nodes возвращает узлы в порядке документа.
func (g *Graph) Nodes() []*GraphNode {
	out := make([]*GraphNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Reachable возвращает id узлов, достижимых из корня (без учёта условий).
func (g *Graph) Reachable() map[domain.NodeID]bool {
	seen := make(map[domain.NodeID]bool, len(g.nodes))
	var walk func(n *GraphNode)
	walk = func(n *GraphNode) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		for _, e := range n.Children {
			walk(e.Target)
		}
	}
	walk(g.root)
	return seen
}
