// Package eval implements compile-time constant folding over arena
// expressions. It is deliberately partial: anything it cannot prove folds
// to "not a constant" rather than an error.
package eval

import (
	"github.com/aweary/compiler/pkg/ast"
)

// Kind tags a folded value.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
)

// Value is a folded compile-time constant.
type Value struct {
	Kind Kind
	Num  float64
	Bool bool
}

// Number wraps a float as a Value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool wraps a bool as a Value.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Equal reports whether two folded values are the same constant.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	if v.Kind == KindNumber {
		return v.Num == other.Num
	}
	return v.Bool == other.Bool
}

// Env supplies folding context beyond the arena: parameter values bound at
// a call site, and a hook that may fold whole calls (the compiler wires
// this to lowering so constant functions fold through their graphs).
type Env struct {
	Params map[ast.ParamID]Value
	Calls  func(callee ast.Binding, args []Value) (Value, bool)
}

// Fold attempts to reduce the expression to a constant. The second result
// is false when the expression is not a compile-time constant.
func Fold(arena *ast.Arena, id ast.ExpressionID, env *Env) (Value, bool) {
	expr := arena.Expression(id)
	if expr == nil {
		return Value{}, false
	}
	switch expr.Kind {
	case ast.ExprNumber:
		return Number(expr.Num), true
	case ast.ExprBoolean:
		return Bool(expr.Bool), true
	case ast.ExprBinary:
		return foldBinary(arena, expr, env)
	case ast.ExprReference:
		return foldReference(arena, expr.Ref, env)
	case ast.ExprCall:
		return foldCall(arena, expr, env)
	default:
		return Value{}, false
	}
}

func foldBinary(arena *ast.Arena, expr *ast.Expression, env *Env) (Value, bool) {
	left, ok := Fold(arena, expr.Left, env)
	if !ok {
		return Value{}, false
	}
	right, ok := Fold(arena, expr.Right, env)
	if !ok {
		return Value{}, false
	}
	if left.Kind != right.Kind {
		return Value{}, false
	}

	if left.Kind == KindNumber {
		switch expr.Op {
		case ast.OpAdd:
			return Number(left.Num + right.Num), true
		case ast.OpSub:
			return Number(left.Num - right.Num), true
		case ast.OpMul:
			return Number(left.Num * right.Num), true
		case ast.OpDiv:
			return Number(left.Num / right.Num), true
		case ast.OpEq:
			return Bool(left.Num == right.Num), true
		case ast.OpLess:
			return Bool(left.Num < right.Num), true
		case ast.OpGreater:
			return Bool(left.Num > right.Num), true
		}
		return Value{}, false
	}

	switch expr.Op {
	case ast.OpAnd:
		return Bool(left.Bool && right.Bool), true
	case ast.OpOr:
		return Bool(left.Bool || right.Bool), true
	case ast.OpEq:
		return Bool(left.Bool == right.Bool), true
	}
	return Value{}, false
}

// foldReference chases a binding back to a constant initializer. State is
// reactive and mutated lets are unknowable, so neither folds.
func foldReference(arena *ast.Arena, b ast.Binding, env *Env) (Value, bool) {
	switch b.Kind {
	case ast.BindLet:
		stmt := arena.Statement(b.Stmt)
		if stmt == nil || stmt.Mutated {
			return Value{}, false
		}
		return Fold(arena, stmt.Value, env)
	case ast.BindConst:
		c := arena.Const(b.Const)
		if c == nil {
			return Value{}, false
		}
		return Fold(arena, c.Value, env)
	case ast.BindParameter:
		if env == nil || env.Params == nil {
			return Value{}, false
		}
		v, ok := env.Params[b.Param]
		return v, ok
	default:
		return Value{}, false
	}
}

func foldCall(arena *ast.Arena, expr *ast.Expression, env *Env) (Value, bool) {
	if env == nil || env.Calls == nil {
		return Value{}, false
	}
	callee := arena.Expression(expr.Callee)
	if callee == nil || callee.Kind != ast.ExprReference {
		return Value{}, false
	}
	args := make([]Value, 0, len(expr.Args))
	for _, arg := range expr.Args {
		v, ok := Fold(arena, arg, env)
		if !ok {
			return Value{}, false
		}
		args = append(args, v)
	}
	return env.Calls(callee.Ref, args)
}
