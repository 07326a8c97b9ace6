package cfg

import (
	"errors"
	"fmt"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/eval"
)

// ErrTooDeeplyNested is returned when control flow nests past the
// configured depth limit.
var ErrTooDeeplyNested = errors.New("control flow is nested too deeply")

// ErrUnsupported is returned when lowering meets a statement kind it
// does not handle.
var ErrUnsupported = errors.New("unsupported statement")

const defaultMaxDepth = 200

// FoldFunc evaluates an expression to a constant. It reports false
// when the expression does not fold.
type FoldFunc func(ast.ExpressionID) (eval.Value, bool)

// Option configures lowering.
type Option func(*lowerer)

// WithMaxDepth overrides the nesting depth limit.
func WithMaxDepth(n int) Option {
	return func(l *lowerer) {
		if n > 0 {
			l.maxDepth = n
		}
	}
}

type lowerer struct {
	arena    *ast.Arena
	fold     FoldFunc
	depth    int
	maxDepth int
}

// Lower builds the control flow graph for a function or component
// body. A nil fold disables constant folding, so every if lowers to a
// branch node.
func Lower(arena *ast.Arena, block ast.BlockID, fold FoldFunc, opts ...Option) (*Graph, error) {
	l := &lowerer{arena: arena, fold: fold, maxDepth: defaultMaxDepth}
	for _, opt := range opts {
		opt(l)
	}
	g, err := l.lowerBlock(block)
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (l *lowerer) lowerBlock(id ast.BlockID) (*Graph, error) {
	block := l.arena.Block(id)
	if block == nil {
		return nil, errors.New("lowering an invalid block")
	}
	return l.lowerStatements(block.Statements)
}

// lowerStatements builds a fresh graph for a statement list. Straight
// line statements accumulate into a pending basic block that commits
// when control flow splits or the list ends.
func (l *lowerer) lowerStatements(stmts []ast.StatementID) (*Graph, error) {
	l.depth++
	defer func() { l.depth-- }()
	if l.depth > l.maxDepth {
		return nil, ErrTooDeeplyNested
	}

	g := NewGraph()
	var pending []ast.StatementID
	commit := func() NodeIndex {
		if len(pending) == 0 {
			return NoNode
		}
		prior := g.last
		idx := g.AddBasicBlock(pending)
		pending = nil
		g.linkNormal(prior, idx)
		return idx
	}

	for _, sid := range stmts {
		stmt := l.arena.Statement(sid)
		switch stmt.Kind {
		case ast.StmtLet, ast.StmtState, ast.StmtAssign, ast.StmtExpression:
			pending = append(pending, sid)

		case ast.StmtReturn:
			pending = append(pending, sid)
			idx := commit()
			g.AddEdge(idx, exitIndex, EdgeReturn)
			if g.value == nil && stmt.Value != ast.NoExpression {
				if v, ok := l.foldExpr(stmt.Value); ok {
					g.value = &v
				}
			}
			g.hasEarlyReturn = true

		case ast.StmtIf:
			commit()
			if err := l.lowerIf(g, stmt); err != nil {
				return nil, err
			}

		case ast.StmtWhile:
			commit()
			if err := l.lowerWhile(g, stmt); err != nil {
				return nil, err
			}

		default:
			return nil, fmt.Errorf("%w: kind %d", ErrUnsupported, stmt.Kind)
		}
	}

	commit()
	g.finalize()
	return g, nil
}

func (l *lowerer) foldExpr(id ast.ExpressionID) (eval.Value, bool) {
	if l.fold == nil || id == ast.NoExpression {
		return eval.Value{}, false
	}
	return l.fold(id)
}

// lowerIf appends a branch node and hangs the lowered branches off
// it. When the condition folds to a boolean the branch node is elided
// and only the surviving branch is spliced in.
func (l *lowerer) lowerIf(g *Graph, stmt *ast.Statement) error {
	if v, ok := l.foldExpr(stmt.Cond); ok && v.Kind == eval.KindBool {
		return l.spliceFoldedIf(g, stmt, v.Bool)
	}

	prior := g.last
	brc := g.AddBranchCondition(stmt.Cond)
	g.linkNormal(prior, brc)

	trueGraph, err := l.lowerBlock(stmt.Body)
	if err != nil {
		return err
	}

	herBase := g.hasEarlyReturn
	trueReturns := trueGraph.hasEarlyReturn
	if _, ok := g.Consume(trueGraph, EdgeConditionTrue, brc, false); !ok {
		g.enqueue(brc, EdgeConditionTrue)
		trueReturns = false
	}

	falseReturns := false
	switch {
	case stmt.ElseIf != ast.NoStatement:
		falseGraph, err := l.lowerStatements([]ast.StatementID{stmt.ElseIf})
		if err != nil {
			return err
		}
		if _, ok := g.Consume(falseGraph, EdgeConditionFalse, brc, false); ok {
			falseReturns = falseGraph.hasEarlyReturn
		} else {
			g.enqueue(brc, EdgeConditionFalse)
		}
	case stmt.Else != ast.NoBlock:
		falseGraph, err := l.lowerBlock(stmt.Else)
		if err != nil {
			return err
		}
		if _, ok := g.Consume(falseGraph, EdgeConditionFalse, brc, false); ok {
			falseReturns = falseGraph.hasEarlyReturn
		} else {
			g.enqueue(brc, EdgeConditionFalse)
		}
	default:
		g.enqueue(brc, EdgeConditionFalse)
	}

	// The statements after the if are dead only when both branches
	// returned.
	g.hasEarlyReturn = herBase || (trueReturns && falseReturns)
	return nil
}

// spliceFoldedIf replaces an if whose condition folded with the
// surviving branch, spliced inline at statement level. A surviving
// empty branch makes the whole statement a no-op.
func (l *lowerer) spliceFoldedIf(g *Graph, stmt *ast.Statement, cond bool) error {
	var branch *Graph
	var err error
	switch {
	case cond:
		branch, err = l.lowerBlock(stmt.Body)
	case stmt.ElseIf != ast.NoStatement:
		branch, err = l.lowerStatements([]ast.StatementID{stmt.ElseIf})
	case stmt.Else != ast.NoBlock:
		branch, err = l.lowerBlock(stmt.Else)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	at := g.last
	if at == NoNode {
		at = entryIndex
	}
	if _, ok := g.Consume(branch, EdgeNormal, at, true); !ok {
		return nil
	}
	g.hasEarlyReturn = g.hasEarlyReturn || branch.hasEarlyReturn
	return nil
}

// lowerWhile appends a loop node, hangs the body off its true edge,
// and wires the back edge from the body's last node. The loop's false
// edge is deferred so it attaches to whatever follows the loop.
func (l *lowerer) lowerWhile(g *Graph, stmt *ast.Statement) error {
	prior := g.last
	loop := g.AddLoopCondition(stmt.Cond)
	g.linkNormal(prior, loop)

	body, err := l.lowerBlock(stmt.Body)
	if err != nil {
		return err
	}
	if body.first == NoNode {
		return diag.NewError(diag.Errorf(stmt.Span, "while loops with an empty body are not yet supported"))
	}

	body.DeleteNormalEdge(body.last, exitIndex)
	g.Consume(body, EdgeConditionTrue, loop, false)

	if !body.hasEarlyReturn && g.canFlowFrom(g.last) {
		g.AddEdge(g.last, loop, EdgeNormal)
	}
	g.loopTails[g.last] = true

	g.flushInto(loop)
	g.enqueue(loop, EdgeConditionFalse)
	return nil
}
