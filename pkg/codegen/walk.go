package codegen

import (
	"fmt"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/cfg"
)

// generator rebuilds structured statements from one function's graph.
type generator struct {
	arena   *ast.Arena
	graph   *cfg.Graph
	w       *writer
	names   *minifier
	visited map[cfg.NodeIndex]bool

	// need reports module-level bindings the emitted code references,
	// so the module emitter can pull their definitions in on demand.
	need func(ast.Binding)

	// usedSignal is set when a state declaration is emitted, which
	// decides whether the module needs the signals import.
	usedSignal bool
}

func newGenerator(arena *ast.Arena, graph *cfg.Graph, w *writer, names *minifier) *generator {
	return &generator{
		arena:   arena,
		graph:   graph,
		w:       w,
		names:   names,
		visited: make(map[cfg.NodeIndex]bool),
	}
}

func (g *generator) emitBody() error {
	_, err := g.walk(g.graph.Entry(), nil)
	return err
}

// walk emits statements starting at start and following each node's
// single continuation. It stops when it reaches the exit, a node in
// ends, or a node with no continuation, and returns the ends node it
// stopped on, if any. Branches recurse with a widened ends set; the
// node a branch walk stops on is the join where the paths meet again.
func (g *generator) walk(start cfg.NodeIndex, ends map[cfg.NodeIndex]bool) (cfg.NodeIndex, error) {
	cur := start
	for cur != cfg.NoNode {
		if cur == g.graph.Exit() {
			return cfg.NoNode, nil
		}
		if ends[cur] {
			return cur, nil
		}
		if g.visited[cur] {
			return cfg.NoNode, nil
		}
		g.visited[cur] = true

		node := g.graph.Node(cur)
		if node == nil {
			return cfg.NoNode, fmt.Errorf("walked off the graph at node %d", cur)
		}
		switch node.Kind {
		case cfg.NodeEntry:
			cur = g.normalSuccessor(cur)

		case cfg.NodeBasicBlock:
			for _, sid := range node.Statements {
				g.emitStatement(sid)
			}
			cur = g.normalSuccessor(cur)

		case cfg.NodeBranchCondition:
			next, err := g.walkBranch(cur, node, ends)
			if err != nil {
				return cfg.NoNode, err
			}
			cur = next

		case cfg.NodeLoopCondition:
			next, err := g.walkLoop(cur, node, ends)
			if err != nil {
				return cfg.NoNode, err
			}
			cur = next

		default:
			return cfg.NoNode, fmt.Errorf("node %d has unexpected kind %s", cur, node.Kind)
		}
	}
	return cfg.NoNode, nil
}

// walkBranch rebuilds an if from a branch node. The false target is a
// plain continuation when several paths converge on it; when only the
// branch itself leads there, the false target starts a dedicated else
// branch and the join is wherever the true branch walk stops.
func (g *generator) walkBranch(cur cfg.NodeIndex, node *cfg.Node, ends map[cfg.NodeIndex]bool) (cfg.NodeIndex, error) {
	trueTarget, falseTarget := g.conditionTargets(cur)
	if trueTarget == cfg.NoNode || falseTarget == cfg.NoNode {
		return cfg.NoNode, fmt.Errorf("branch node %d is missing a condition edge", cur)
	}
	cond := g.condJS(node.Cond)

	joinsBelow := falseTarget == g.graph.Exit() || ends[falseTarget] || g.graph.InDegree(falseTarget) >= 2
	if joinsBelow {
		g.w.open("if (" + cond + ")")
		if _, err := g.walk(trueTarget, with(ends, falseTarget)); err != nil {
			return cfg.NoNode, err
		}
		g.w.close()
		return falseTarget, nil
	}

	// The false target is reachable only through this branch, so it
	// is the head of an else. Probe what the else can reach; the
	// first of those nodes the true branch hits is the join.
	reachable := g.reach(falseTarget, ends)
	g.w.open("if (" + cond + ")")
	join, err := g.walk(trueTarget, union(ends, reachable))
	if err != nil {
		return cfg.NoNode, err
	}
	if join == cfg.NoNode {
		// Every true path returned. Emit the false side inline after
		// the if, guard clause style.
		g.w.close()
		return falseTarget, nil
	}
	g.w.elseOpen()
	if _, err := g.walk(falseTarget, with(ends, join)); err != nil {
		return cfg.NoNode, err
	}
	g.w.close()
	return join, nil
}

func (g *generator) walkLoop(cur cfg.NodeIndex, node *cfg.Node, ends map[cfg.NodeIndex]bool) (cfg.NodeIndex, error) {
	trueTarget, falseTarget := g.conditionTargets(cur)
	if trueTarget == cfg.NoNode || falseTarget == cfg.NoNode {
		return cfg.NoNode, fmt.Errorf("loop node %d is missing a condition edge", cur)
	}
	g.w.open("while (" + g.condJS(node.Cond) + ")")
	if _, err := g.walk(trueTarget, with(ends, cur)); err != nil {
		return cfg.NoNode, err
	}
	g.w.close()
	return falseTarget, nil
}

func (g *generator) conditionTargets(cur cfg.NodeIndex) (trueTarget, falseTarget cfg.NodeIndex) {
	trueTarget, falseTarget = cfg.NoNode, cfg.NoNode
	for _, e := range g.graph.OutEdges(cur) {
		switch e.Kind {
		case cfg.EdgeConditionTrue:
			if trueTarget == cfg.NoNode {
				trueTarget = e.To
			}
		case cfg.EdgeConditionFalse:
			if falseTarget == cfg.NoNode {
				falseTarget = e.To
			}
		}
	}
	return trueTarget, falseTarget
}

func (g *generator) normalSuccessor(cur cfg.NodeIndex) cfg.NodeIndex {
	for _, e := range g.graph.OutEdges(cur) {
		if e.Kind == cfg.EdgeNormal {
			return e.To
		}
	}
	return cfg.NoNode
}

// reach collects the nodes reachable from start without expanding
// through any node in bounds. The exit sentinel never counts.
func (g *generator) reach(start cfg.NodeIndex, bounds map[cfg.NodeIndex]bool) map[cfg.NodeIndex]bool {
	seen := map[cfg.NodeIndex]bool{start: true}
	stack := []cfg.NodeIndex{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if bounds[n] {
			continue
		}
		for _, e := range g.graph.OutEdges(n) {
			if e.To == g.graph.Exit() || seen[e.To] {
				continue
			}
			seen[e.To] = true
			stack = append(stack, e.To)
		}
	}
	return seen
}

func with(ends map[cfg.NodeIndex]bool, extra cfg.NodeIndex) map[cfg.NodeIndex]bool {
	out := make(map[cfg.NodeIndex]bool, len(ends)+1)
	for k, v := range ends {
		out[k] = v
	}
	out[extra] = true
	return out
}

func union(ends, more map[cfg.NodeIndex]bool) map[cfg.NodeIndex]bool {
	out := make(map[cfg.NodeIndex]bool, len(ends)+len(more))
	for k, v := range ends {
		out[k] = v
	}
	for k, v := range more {
		out[k] = v
	}
	return out
}
