// Package cfg lowers ws function bodies into control flow graphs and
// provides the analyses the compiler runs over them.
//
// A graph always carries two sentinel nodes, entry and exit. Real
// nodes are appended in lowering order: basic blocks of straight line
// statements, branch conditions, and loop conditions. Edges are
// labeled with how control transfers between nodes.
package cfg

import (
	"fmt"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/eval"
)

// NodeIndex identifies a node within a single graph.
type NodeIndex int

// NoNode is the absence of a node.
const NoNode NodeIndex = -1

const (
	entryIndex    NodeIndex = 0
	exitIndex     NodeIndex = 1
	sentinelCount           = 2
)

// NodeKind discriminates graph nodes.
type NodeKind int

const (
	NodeEntry NodeKind = iota
	NodeExit
	NodeBasicBlock
	NodeBranchCondition
	NodeLoopCondition
)

func (k NodeKind) String() string {
	switch k {
	case NodeEntry:
		return "entry"
	case NodeExit:
		return "exit"
	case NodeBasicBlock:
		return "block"
	case NodeBranchCondition:
		return "branch"
	case NodeLoopCondition:
		return "loop"
	}
	return "unknown"
}

// EdgeKind labels a control transfer.
type EdgeKind int

const (
	// EdgeNormal is unconditional fallthrough.
	EdgeNormal EdgeKind = iota
	// EdgeConditionTrue is taken when a condition node evaluates true.
	EdgeConditionTrue
	// EdgeConditionFalse is taken when a condition node evaluates false.
	EdgeConditionFalse
	// EdgeReturn transfers directly to the exit node.
	EdgeReturn
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeNormal:
		return "normal"
	case EdgeConditionTrue:
		return "true"
	case EdgeConditionFalse:
		return "false"
	case EdgeReturn:
		return "return"
	}
	return "unknown"
}

// Node is a single vertex. Basic blocks carry the statements that
// execute straight through; condition nodes carry the expression they
// test.
type Node struct {
	Kind       NodeKind
	Statements []ast.StatementID
	Cond       ast.ExpressionID
}

// Edge is a labeled transfer between two nodes.
type Edge struct {
	From NodeIndex
	To   NodeIndex
	Kind EdgeKind
}

// queuedEdge is an edge whose source is known but whose target is
// not lowered yet. The queue drains into the next real node appended,
// which is how control flow escaping an if or while reconnects with
// whatever statement follows it.
type queuedEdge struct {
	from NodeIndex
	kind EdgeKind
}

// Graph is a control flow graph under construction or finalized.
type Graph struct {
	nodes []Node
	edges []Edge

	// first and last track the first and most recent real node.
	first NodeIndex
	last  NodeIndex

	queue []queuedEdge

	// loopTails marks nodes whose normal successor is a loop
	// back edge. Control never falls through a tail to the next
	// statement.
	loopTails map[NodeIndex]bool

	// hasEarlyReturn is set once every path through the lowered
	// statements has returned. Anything appended afterwards is dead.
	hasEarlyReturn bool

	// value is the folded constant this graph reduces to, when the
	// lowered fragment returns a foldable expression.
	value *eval.Value
}

// NewGraph returns a graph holding only the entry and exit sentinels.
func NewGraph() *Graph {
	return &Graph{
		nodes:     []Node{{Kind: NodeEntry}, {Kind: NodeExit}},
		first:     NoNode,
		last:      NoNode,
		loopTails: make(map[NodeIndex]bool),
	}
}

// Entry returns the index of the entry sentinel.
func (g *Graph) Entry() NodeIndex { return entryIndex }

// Exit returns the index of the exit sentinel.
func (g *Graph) Exit() NodeIndex { return exitIndex }

// Len returns the number of nodes including the sentinels.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node at idx, or nil when idx is out of range.
func (g *Graph) Node(idx NodeIndex) *Node {
	if idx < 0 || int(idx) >= len(g.nodes) {
		return nil
	}
	return &g.nodes[idx]
}

// Edges returns the edge list in insertion order. The slice is shared
// with the graph and must not be mutated.
func (g *Graph) Edges() []Edge { return g.edges }

// OutEdges returns the edges leaving from, in insertion order.
func (g *Graph) OutEdges(from NodeIndex) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.From == from {
			out = append(out, e)
		}
	}
	return out
}

// InDegree returns the number of edges targeting idx.
func (g *Graph) InDegree(idx NodeIndex) int {
	n := 0
	for _, e := range g.edges {
		if e.To == idx {
			n++
		}
	}
	return n
}

// HasEarlyReturn reports whether every lowered path has returned.
func (g *Graph) HasEarlyReturn() bool { return g.hasEarlyReturn }

// Value returns the folded constant the graph reduces to, if any.
func (g *Graph) Value() *eval.Value { return g.value }

// HasConditions reports whether the graph contains any branch or
// loop nodes. A graph without them is straight line code.
func (g *Graph) HasConditions() bool {
	for i := sentinelCount; i < len(g.nodes); i++ {
		if g.nodes[i].Kind != NodeBasicBlock {
			return true
		}
	}
	return false
}

// AddBasicBlock appends a block of straight line statements.
func (g *Graph) AddBasicBlock(stmts []ast.StatementID) NodeIndex {
	return g.appendNode(Node{Kind: NodeBasicBlock, Statements: stmts})
}

// AddBranchCondition appends an if condition node.
func (g *Graph) AddBranchCondition(cond ast.ExpressionID) NodeIndex {
	return g.appendNode(Node{Kind: NodeBranchCondition, Cond: cond})
}

// AddLoopCondition appends a while condition node.
func (g *Graph) AddLoopCondition(cond ast.ExpressionID) NodeIndex {
	return g.appendNode(Node{Kind: NodeLoopCondition, Cond: cond})
}

// appendNode adds a real node. The first real node is wired from the
// entry sentinel; every appended node drains the deferred edge queue
// unless the graph has already fully returned, in which case the node
// is dead and must stay unreachable.
func (g *Graph) appendNode(n Node) NodeIndex {
	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, n)
	if g.first == NoNode {
		g.first = idx
		g.AddEdge(entryIndex, idx, EdgeNormal)
	}
	if !g.hasEarlyReturn {
		g.flushInto(idx)
	}
	g.last = idx
	return idx
}

// AddEdge inserts an edge. Duplicate normal and return edges between
// the same pair are suppressed; condition edges are always kept.
func (g *Graph) AddEdge(from, to NodeIndex, kind EdgeKind) {
	if kind == EdgeNormal || kind == EdgeReturn {
		for _, e := range g.edges {
			if e.From == from && e.To == to && e.Kind == kind {
				return
			}
		}
	}
	g.edges = append(g.edges, Edge{From: from, To: to, Kind: kind})
}

// DeleteNormalEdge removes the normal edge between from and to if one
// exists. Lowering a while body uses this to strip the fallthrough to
// the body's exit before the back edge replaces it.
func (g *Graph) DeleteNormalEdge(from, to NodeIndex) {
	for i, e := range g.edges {
		if e.From == from && e.To == to && e.Kind == EdgeNormal {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return
		}
	}
}

// enqueue defers an edge whose target is not known yet.
func (g *Graph) enqueue(from NodeIndex, kind EdgeKind) {
	g.queue = append(g.queue, queuedEdge{from: from, kind: kind})
}

// flushInto drains the deferred edge queue, pointing every queued
// edge at to.
func (g *Graph) flushInto(to NodeIndex) {
	queued := g.queue
	g.queue = nil
	for _, q := range queued {
		g.AddEdge(q.from, to, q.kind)
	}
}

// canFlowFrom reports whether control can fall through from the given
// node to a following statement. Condition nodes only leave through
// labeled edges, loop tails flow back to their loop, and a block that
// returns never falls through.
func (g *Graph) canFlowFrom(from NodeIndex) bool {
	if from == NoNode || g.loopTails[from] {
		return false
	}
	if g.nodes[from].Kind != NodeBasicBlock {
		return false
	}
	for _, e := range g.edges {
		if e.From == from && e.Kind == EdgeReturn {
			return false
		}
	}
	return true
}

// linkNormal wires fallthrough from a prior node into to, when
// control can actually flow that way.
func (g *Graph) linkNormal(from, to NodeIndex) {
	if g.hasEarlyReturn || !g.canFlowFrom(from) {
		return
	}
	g.AddEdge(from, to, EdgeNormal)
}

// Consume splices child into the graph. Real nodes are copied in
// order. Edges leaving the child's entry are re-sourced from at with
// the entryLabel kind; return edges into the child's exit become
// return edges into this graph's exit; other edges into the child's
// exit are deferred onto the queue so they can attach to whatever is
// lowered next.
//
// statementLevel marks a child spliced inline in statement position
// (a folded branch) rather than hung off a condition node. If the
// graph has already fully returned, a statement level child is dead:
// its entry edges are dropped so it stays unreachable, but its
// internal structure is kept intact.
//
// The child's first node index in this graph is returned; ok is false
// when the child had no real nodes.
func (g *Graph) Consume(child *Graph, entryLabel EdgeKind, at NodeIndex, statementLevel bool) (NodeIndex, bool) {
	if child.first == NoNode {
		return NoNode, false
	}
	dead := statementLevel && g.hasEarlyReturn

	remap := make(map[NodeIndex]NodeIndex, len(child.nodes)-sentinelCount)
	for i := sentinelCount; i < len(child.nodes); i++ {
		idx := NodeIndex(len(g.nodes))
		g.nodes = append(g.nodes, child.nodes[i])
		remap[NodeIndex(i)] = idx
		if g.first == NoNode {
			g.first = idx
		}
		g.last = idx
	}
	for tail := range child.loopTails {
		g.loopTails[remap[tail]] = true
	}

	first := remap[child.first]
	if statementLevel && !dead {
		g.flushInto(first)
	}

	for _, e := range child.edges {
		switch {
		case e.From == entryIndex:
			if dead {
				continue
			}
			if statementLevel && at != entryIndex && !g.canFlowFrom(at) {
				continue
			}
			g.AddEdge(at, remap[e.To], entryLabel)
		case e.To == exitIndex:
			if e.Kind == EdgeReturn {
				g.AddEdge(remap[e.From], exitIndex, EdgeReturn)
				continue
			}
			if child.hasEarlyReturn {
				continue
			}
			g.enqueue(remap[e.From], e.Kind)
		default:
			g.AddEdge(remap[e.From], remap[e.To], e.Kind)
		}
	}

	if g.value == nil && child.value != nil {
		g.value = child.value
	}
	return first, true
}

// finalize closes the graph: the last node falls through to exit when
// control can still reach it, and any deferred edges attach to exit.
// An empty graph becomes a single entry to exit edge.
func (g *Graph) finalize() {
	if g.first == NoNode {
		g.AddEdge(entryIndex, exitIndex, EdgeNormal)
		return
	}
	g.linkNormal(g.last, exitIndex)
	g.flushInto(exitIndex)
}

// FindUnreachableBlocks returns the real nodes no edge targets, in
// index order. Dead code keeps its internal edges, so the head of a
// dead region is the node that shows up here.
func (g *Graph) FindUnreachableBlocks() []NodeIndex {
	in := make([]int, len(g.nodes))
	for _, e := range g.edges {
		if int(e.To) < len(in) {
			in[e.To]++
		}
	}
	var out []NodeIndex
	for i := sentinelCount; i < len(g.nodes); i++ {
		if in[i] == 0 {
			out = append(out, NodeIndex(i))
		}
	}
	return out
}

// Validate checks the structural invariants of a finalized graph.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		if e.From < 0 || int(e.From) >= len(g.nodes) || e.To < 0 || int(e.To) >= len(g.nodes) {
			return fmt.Errorf("edge %d -> %d is out of range", e.From, e.To)
		}
		if e.To == entryIndex {
			return fmt.Errorf("entry node has an incoming edge from %d", e.From)
		}
		if e.From == exitIndex {
			return fmt.Errorf("exit node has an outgoing edge to %d", e.To)
		}
		if e.Kind == EdgeReturn && e.To != exitIndex {
			return fmt.Errorf("return edge %d -> %d does not target exit", e.From, e.To)
		}
	}
	for i := sentinelCount; i < len(g.nodes); i++ {
		kind := g.nodes[i].Kind
		if kind != NodeBranchCondition && kind != NodeLoopCondition {
			continue
		}
		hasTrue, hasFalse := false, false
		for _, e := range g.OutEdges(NodeIndex(i)) {
			switch e.Kind {
			case EdgeConditionTrue:
				hasTrue = true
			case EdgeConditionFalse:
				hasFalse = true
			}
		}
		if !hasTrue || !hasFalse {
			return fmt.Errorf("%s node %d is missing a condition edge", kind, i)
		}
	}
	return nil
}
