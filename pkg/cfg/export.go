package cfg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aweary/compiler/pkg/ast"
)

// NodeInfo describes a single node for external consumers.
type NodeInfo struct {
	Index      int      `json:"index"`
	Kind       string   `json:"kind"`
	Statements []string `json:"statements,omitempty"`
	Condition  string   `json:"condition,omitempty"`
}

// EdgeInfo describes a single edge for external consumers.
type EdgeInfo struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Kind string `json:"kind"`
}

// GraphInfo is the serializable form of a graph, consumed by the cfg
// command for inspection output.
type GraphInfo struct {
	Function    string     `json:"function,omitempty"`
	Nodes       []NodeInfo `json:"nodes"`
	Edges       []EdgeInfo `json:"edges"`
	Unreachable []int      `json:"unreachable,omitempty"`
}

// ExportInfo builds the serializable form of the graph.
func (g *Graph) ExportInfo(arena *ast.Arena, function string) GraphInfo {
	info := GraphInfo{Function: function}
	for i, n := range g.nodes {
		ni := NodeInfo{Index: i, Kind: n.Kind.String()}
		switch n.Kind {
		case NodeBasicBlock:
			for _, sid := range n.Statements {
				ni.Statements = append(ni.Statements, stmtSummary(arena, sid))
			}
		case NodeBranchCondition, NodeLoopCondition:
			ni.Condition = exprSummary(arena, n.Cond)
		}
		info.Nodes = append(info.Nodes, ni)
	}
	for _, e := range g.edges {
		info.Edges = append(info.Edges, EdgeInfo{From: int(e.From), To: int(e.To), Kind: e.Kind.String()})
	}
	for _, idx := range g.FindUnreachableBlocks() {
		info.Unreachable = append(info.Unreachable, int(idx))
	}
	return info
}

// Dump renders the graph as stable text: one line per node, then one
// line per edge in insertion order.
func (g *Graph) Dump(arena *ast.Arena) string {
	var b strings.Builder
	b.WriteString("nodes:\n")
	for i, n := range g.nodes {
		switch n.Kind {
		case NodeBasicBlock:
			parts := make([]string, len(n.Statements))
			for j, sid := range n.Statements {
				parts[j] = stmtSummary(arena, sid)
			}
			fmt.Fprintf(&b, "  %d: block[%s]\n", i, strings.Join(parts, ", "))
		case NodeBranchCondition:
			fmt.Fprintf(&b, "  %d: branch %s\n", i, exprSummary(arena, n.Cond))
		case NodeLoopCondition:
			fmt.Fprintf(&b, "  %d: loop %s\n", i, exprSummary(arena, n.Cond))
		default:
			fmt.Fprintf(&b, "  %d: %s\n", i, n.Kind)
		}
	}
	b.WriteString("edges:\n")
	for _, e := range g.edges {
		fmt.Fprintf(&b, "  %d -> %d %s\n", e.From, e.To, e.Kind)
	}
	return b.String()
}

func stmtSummary(a *ast.Arena, id ast.StatementID) string {
	s := a.Statement(id)
	if s == nil {
		return "?"
	}
	switch s.Kind {
	case ast.StmtLet:
		return "let " + s.Name
	case ast.StmtState:
		return "state " + s.Name
	case ast.StmtAssign:
		if target := a.Expression(s.Target); target != nil && target.Kind == ast.ExprReference {
			return "assign " + a.BindingName(target.Ref)
		}
		return "assign"
	case ast.StmtReturn:
		return "return"
	case ast.StmtExpression:
		return "expr"
	}
	return "stmt"
}

func exprSummary(a *ast.Arena, id ast.ExpressionID) string {
	e := a.Expression(id)
	if e == nil {
		return "?"
	}
	switch e.Kind {
	case ast.ExprNumber:
		return strconv.FormatFloat(e.Num, 'g', -1, 64)
	case ast.ExprBoolean:
		return strconv.FormatBool(e.Bool)
	case ast.ExprString:
		return strconv.Quote(e.Str)
	case ast.ExprReference:
		return a.BindingName(e.Ref)
	case ast.ExprBinary:
		return "(" + exprSummary(a, e.Left) + " " + e.Op.String() + " " + exprSummary(a, e.Right) + ")"
	case ast.ExprCall:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = exprSummary(a, arg)
		}
		return exprSummary(a, e.Callee) + "(" + strings.Join(args, ", ") + ")"
	}
	return "?"
}
