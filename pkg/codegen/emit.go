package codegen

import (
	"strconv"
	"strings"

	"github.com/aweary/compiler/pkg/ast"
)

// writer accumulates JavaScript text. In minified mode it drops
// indentation and newlines and lets the caller compact spacing.
type writer struct {
	b      strings.Builder
	indent int
	minify bool
}

func (w *writer) line(s string) {
	if w.minify {
		w.b.WriteString(s)
		return
	}
	for i := 0; i < w.indent; i++ {
		w.b.WriteString("  ")
	}
	w.b.WriteString(s)
	w.b.WriteByte('\n')
}

func (w *writer) open(head string) {
	if w.minify {
		w.b.WriteString(head + "{")
		return
	}
	w.line(head + " {")
	w.indent++
}

// elseOpen closes the true branch and opens the else in one step so
// the braces stay on a shared line.
func (w *writer) elseOpen() {
	if w.minify {
		w.b.WriteString("}else{")
		return
	}
	w.indent--
	w.line("} else {")
	w.indent++
}

func (w *writer) close() {
	if w.minify {
		w.b.WriteString("}")
		return
	}
	w.indent--
	w.line("}")
}

func (w *writer) String() string { return w.b.String() }

func (g *generator) emitStatement(sid ast.StatementID) {
	stmt := g.arena.Statement(sid)
	if stmt == nil {
		return
	}
	eq := " = "
	if g.w.minify {
		eq = "="
	}
	switch stmt.Kind {
	case ast.StmtLet:
		name := g.bindingName(ast.Binding{Kind: ast.BindLet, Stmt: sid})
		g.w.line("let " + name + eq + g.exprJS(stmt.Value) + ";")

	case ast.StmtState:
		g.usedSignal = true
		decl := g.arena.State(stmt.State)
		name := g.bindingName(ast.Binding{Kind: ast.BindState, State: stmt.State})
		g.w.line("let " + name + eq + "signal(" + g.exprJS(decl.Value) + ");")

	case ast.StmtAssign:
		g.w.line(g.exprJS(stmt.Target) + eq + g.exprJS(stmt.Value) + ";")

	case ast.StmtReturn:
		if stmt.Value == ast.NoExpression {
			g.w.line("return;")
		} else {
			g.w.line("return " + g.exprJS(stmt.Value) + ";")
		}

	case ast.StmtExpression:
		g.w.line(g.exprJS(stmt.Expr) + ";")
	}
}

// exprJS renders an expression. Binary expressions are always
// parenthesized so rebuilt trees never depend on JS precedence.
func (g *generator) exprJS(id ast.ExpressionID) string {
	expr := g.arena.Expression(id)
	if expr == nil {
		return "undefined"
	}
	switch expr.Kind {
	case ast.ExprNumber:
		return numJS(expr.Num)
	case ast.ExprBoolean:
		if expr.Bool {
			return "true"
		}
		return "false"
	case ast.ExprString:
		return strconv.Quote(expr.Str)
	case ast.ExprReference:
		return g.refJS(expr.Ref)
	case ast.ExprBinary:
		sp := " "
		if g.w.minify {
			sp = ""
		}
		return "(" + g.exprJS(expr.Left) + sp + opJS(expr.Op) + sp + g.exprJS(expr.Right) + ")"
	case ast.ExprCall:
		args := make([]string, len(expr.Args))
		for i, arg := range expr.Args {
			args[i] = g.exprJS(arg)
		}
		sep := ", "
		if g.w.minify {
			sep = ","
		}
		return g.exprJS(expr.Callee) + "(" + strings.Join(args, sep) + ")"
	}
	return "undefined"
}

// condJS renders a condition without the outer parentheses, since the
// if or while head supplies its own pair.
func (g *generator) condJS(id ast.ExpressionID) string {
	expr := g.arena.Expression(id)
	if expr != nil && expr.Kind == ast.ExprBinary {
		sp := " "
		if g.w.minify {
			sp = ""
		}
		return g.exprJS(expr.Left) + sp + opJS(expr.Op) + sp + g.exprJS(expr.Right)
	}
	return g.exprJS(id)
}

// refJS renders a reference read. State reads go through the signal's
// value property. Module-level references are reported so their
// definitions get emitted too.
func (g *generator) refJS(b ast.Binding) string {
	if g.need != nil {
		switch b.Kind {
		case ast.BindFunction, ast.BindComponent, ast.BindConst:
			g.need(b)
		}
	}
	name := g.bindingName(b)
	if b.Kind == ast.BindState {
		return name + ".value"
	}
	return name
}

// bindingName picks the emitted name for a binding. Locals are renamed
// when minifying; module level names are part of the output's API and
// always survive.
func (g *generator) bindingName(b ast.Binding) string {
	if g.names != nil {
		switch b.Kind {
		case ast.BindLet, ast.BindState, ast.BindParameter:
			return g.names.name(b)
		}
	}
	return g.arena.BindingName(b)
}

// opJS maps an operator to its JavaScript spelling. Equality uses the
// strict form to match the language's value semantics.
func opJS(op ast.BinOp) string {
	if op == ast.OpEq {
		return "==="
	}
	return op.String()
}

// numJS formats a number the shortest way that round-trips, without
// scientific notation.
func numJS(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
