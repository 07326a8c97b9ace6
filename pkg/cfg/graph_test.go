package cfg

import (
	"testing"

	"github.com/aweary/compiler/pkg/ast"
)

func countEdges(g *Graph, from, to NodeIndex, kind EdgeKind) int {
	n := 0
	for _, e := range g.Edges() {
		if e.From == from && e.To == to && e.Kind == kind {
			n++
		}
	}
	return n
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := NewGraph()
	b1 := g.AddBasicBlock(nil)
	b2 := g.AddBasicBlock(nil)

	g.AddEdge(b1, b2, EdgeNormal)
	g.AddEdge(b1, b2, EdgeNormal)
	if got := countEdges(g, b1, b2, EdgeNormal); got != 1 {
		t.Errorf("normal edge count = %d, want 1", got)
	}

	g.AddEdge(b1, g.Exit(), EdgeReturn)
	g.AddEdge(b1, g.Exit(), EdgeReturn)
	if got := countEdges(g, b1, g.Exit(), EdgeReturn); got != 1 {
		t.Errorf("return edge count = %d, want 1", got)
	}

	g.AddEdge(b1, b2, EdgeConditionTrue)
	g.AddEdge(b1, b2, EdgeConditionTrue)
	if got := countEdges(g, b1, b2, EdgeConditionTrue); got != 2 {
		t.Errorf("condition edge count = %d, want 2 (no dedup)", got)
	}
}

func TestDeleteNormalEdge(t *testing.T) {
	g := NewGraph()
	b1 := g.AddBasicBlock(nil)
	b2 := g.AddBasicBlock(nil)
	g.AddEdge(b1, b2, EdgeNormal)
	g.AddEdge(b1, b2, EdgeConditionTrue)

	g.DeleteNormalEdge(b1, b2)
	if got := countEdges(g, b1, b2, EdgeNormal); got != 0 {
		t.Errorf("normal edge survived deletion")
	}
	if got := countEdges(g, b1, b2, EdgeConditionTrue); got != 1 {
		t.Errorf("condition edge was deleted too")
	}

	// Deleting an edge that does not exist is fine.
	g.DeleteNormalEdge(b2, b1)
}

func TestFirstNodeWiresFromEntry(t *testing.T) {
	g := NewGraph()
	b1 := g.AddBasicBlock(nil)
	b2 := g.AddBasicBlock(nil)
	if got := countEdges(g, g.Entry(), b1, EdgeNormal); got != 1 {
		t.Errorf("entry edge count to first node = %d, want 1", got)
	}
	if got := countEdges(g, g.Entry(), b2, EdgeNormal); got != 0 {
		t.Errorf("entry wired to a later node")
	}
}

func TestQueueDrainsIntoNextNode(t *testing.T) {
	g := NewGraph()
	b1 := g.AddBasicBlock(nil)
	g.enqueue(b1, EdgeConditionFalse)

	b2 := g.AddBasicBlock(nil)
	if got := countEdges(g, b1, b2, EdgeConditionFalse); got != 1 {
		t.Errorf("queued edge did not attach to the next node")
	}
	if len(g.queue) != 0 {
		t.Errorf("queue still holds %d edges", len(g.queue))
	}
}

func TestQueueHeldAfterEarlyReturn(t *testing.T) {
	g := NewGraph()
	b1 := g.AddBasicBlock(nil)
	g.AddEdge(b1, g.Exit(), EdgeReturn)
	g.hasEarlyReturn = true
	g.enqueue(b1, EdgeConditionFalse)

	b2 := g.AddBasicBlock(nil)
	if g.InDegree(b2) != 0 {
		t.Errorf("dead node gained an incoming edge")
	}

	g.finalize()
	if got := countEdges(g, b1, g.Exit(), EdgeConditionFalse); got != 1 {
		t.Errorf("held edge did not attach to exit at finalize")
	}
}

func TestConsumeEmptyChild(t *testing.T) {
	g := NewGraph()
	at := g.AddBasicBlock(nil)

	child := NewGraph()
	child.finalize()

	if _, ok := g.Consume(child, EdgeNormal, at, true); ok {
		t.Fatal("consuming an empty child reported ok")
	}
	if g.Len() != sentinelCount+1 {
		t.Errorf("empty child changed the node count to %d", g.Len())
	}
}

func TestConsumeRetargetsEntryAndExit(t *testing.T) {
	child := NewGraph()
	cb := child.AddBasicBlock(nil)
	child.AddEdge(cb, child.Exit(), EdgeReturn)
	rb := child.AddBasicBlock(nil)
	child.AddEdge(rb, child.Exit(), EdgeNormal)

	g := NewGraph()
	brc := g.AddBranchCondition(ast.NoExpression)
	first, ok := g.Consume(child, EdgeConditionTrue, brc, false)
	if !ok {
		t.Fatal("consume reported empty child")
	}

	if g.Len() != sentinelCount+3 {
		t.Errorf("child sentinels leaked into the parent, node count %d", g.Len())
	}
	if got := countEdges(g, brc, first, EdgeConditionTrue); got != 1 {
		t.Errorf("entry edge was not retargeted onto the condition node")
	}
	if got := countEdges(g, first, g.Exit(), EdgeReturn); got != 1 {
		t.Errorf("return edge was not redirected to the parent exit")
	}
	// The dangling normal edge should be deferred, not wired.
	if got := countEdges(g, first+1, g.Exit(), EdgeNormal); got != 0 {
		t.Errorf("dangling edge was wired straight to exit")
	}
	next := g.AddBasicBlock(nil)
	if got := countEdges(g, first+1, next, EdgeNormal); got != 1 {
		t.Errorf("dangling edge did not defer onto the queue")
	}
}

func TestConsumeRemapsLoopTails(t *testing.T) {
	child := NewGraph()
	cb := child.AddBasicBlock(nil)
	child.loopTails[cb] = true

	g := NewGraph()
	g.AddBasicBlock(nil)
	loop := g.AddLoopCondition(ast.NoExpression)
	first, ok := g.Consume(child, EdgeConditionTrue, loop, false)
	if !ok {
		t.Fatal("consume reported empty child")
	}
	if !g.loopTails[first] {
		t.Errorf("loop tail flag was not remapped onto node %d", first)
	}
}

func TestValidateRejectsMalformedGraphs(t *testing.T) {
	t.Run("return edge not to exit", func(t *testing.T) {
		g := NewGraph()
		b1 := g.AddBasicBlock(nil)
		b2 := g.AddBasicBlock(nil)
		g.AddEdge(b1, b2, EdgeReturn)
		if err := g.Validate(); err == nil {
			t.Error("Validate accepted a return edge between blocks")
		}
	})
	t.Run("condition node missing an edge", func(t *testing.T) {
		g := NewGraph()
		brc := g.AddBranchCondition(ast.NoExpression)
		b := g.AddBasicBlock(nil)
		g.AddEdge(brc, b, EdgeConditionTrue)
		if err := g.Validate(); err == nil {
			t.Error("Validate accepted a branch without a false edge")
		}
	})
	t.Run("edge into entry", func(t *testing.T) {
		g := NewGraph()
		b := g.AddBasicBlock(nil)
		g.AddEdge(b, g.Entry(), EdgeNormal)
		if err := g.Validate(); err == nil {
			t.Error("Validate accepted an edge into entry")
		}
	})
}
