// Package ast defines the ws syntax tree as plain value structs stored in
// an arena and addressed by typed integer handles. Later stages (lowering,
// codegen) hold only handles, never pointers into the arena.
package ast

import "github.com/aweary/compiler/pkg/source"

// Typed handles into the arena. The zero value of every handle is the
// "no node" sentinel; real handles are 1-based.
type (
	ModuleID     int
	BlockID      int
	StatementID  int
	ExpressionID int
	FunctionID   int
	ComponentID  int
	ConstID      int
	ParamID      int
	StateID      int
)

const (
	NoModule     ModuleID     = 0
	NoBlock      BlockID      = 0
	NoStatement  StatementID  = 0
	NoExpression ExpressionID = 0
	NoFunction   FunctionID   = 0
	NoComponent  ComponentID  = 0
	NoConst      ConstID      = 0
	NoParam      ParamID      = 0
	NoState      StateID      = 0
)

// Module is a single .ws file: an ordered list of top-level definitions.
type Module struct {
	Name        string
	Definitions []Definition
}

// DefinitionKind tags a top-level definition.
type DefinitionKind int

const (
	DefFunction DefinitionKind = iota
	DefComponent
	DefConst
)

// Definition is one module-level item, optionally public.
type Definition struct {
	Kind      DefinitionKind
	Public    bool
	Function  FunctionID
	Component ComponentID
	Const     ConstID
}

// Function is `fn name(params) { body }`.
type Function struct {
	Name     string
	NameSpan source.Span
	Params   []ParamID
	Body     BlockID
}

// Component is `component Name(params) { body }`. Components may declare
// reactive state and compile to classes.
type Component struct {
	Name     string
	NameSpan source.Span
	Params   []ParamID
	Body     BlockID
}

// Const is a module-level `const name = value`.
type Const struct {
	Name     string
	NameSpan source.Span
	Value    ExpressionID
}

// Param is a single function or component parameter.
type Param struct {
	Name string
	Span source.Span
}

// State is the payload of a `state name = value` statement.
type State struct {
	Name     string
	NameSpan source.Span
	Value    ExpressionID
}

// Block is an ordered list of statements between braces.
type Block struct {
	Statements []StatementID
}

// StatementKind tags a statement node.
type StatementKind int

const (
	StmtLet StatementKind = iota
	StmtState
	StmtExpression
	StmtAssign
	StmtReturn
	StmtIf
	StmtWhile
)

// Statement is a tagged union over all statement shapes. Only the fields
// for the active Kind are meaningful.
type Statement struct {
	Kind StatementKind
	Span source.Span

	// StmtLet
	Name     string
	NameSpan source.Span
	Value    ExpressionID // also StmtReturn, StmtAssign
	Mutated  bool         // some assignment targets this let

	// StmtState
	State StateID

	// StmtExpression
	Expr ExpressionID

	// StmtAssign
	Target ExpressionID // a Reference expression

	// StmtIf
	Cond   ExpressionID // also StmtWhile
	Body   BlockID      // also StmtWhile
	ElseIf StatementID  // chained `else if`, NoStatement if absent
	Else   BlockID      // plain `else` block, NoBlock if absent
}

// ExpressionKind tags an expression node.
type ExpressionKind int

const (
	ExprNumber ExpressionKind = iota
	ExprBoolean
	ExprString
	ExprReference
	ExprBinary
	ExprCall
)

// BinOp is a binary operator.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpEq
	OpLess
	OpGreater
	OpAnd
	OpOr
)

func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpEq:
		return "=="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Expression is a tagged union over all expression shapes.
type Expression struct {
	Kind ExpressionKind
	Span source.Span

	Num  float64 // ExprNumber
	Bool bool    // ExprBoolean
	Str  string  // ExprString
	Ref  Binding // ExprReference

	// ExprBinary
	Op    BinOp
	Left  ExpressionID
	Right ExpressionID

	// ExprCall
	Callee ExpressionID
	Args   []ExpressionID
}

// BindingKind tags what a resolved reference points at.
type BindingKind int

const (
	BindLet BindingKind = iota
	BindState
	BindConst
	BindFunction
	BindParameter
	BindComponent
)

// Binding is a resolved reference target. It is a small comparable value
// so it can key maps (the minifier relies on this).
type Binding struct {
	Kind      BindingKind
	Stmt      StatementID // BindLet
	State     StateID     // BindState
	Const     ConstID     // BindConst
	Function  FunctionID  // BindFunction
	Param     ParamID     // BindParameter
	Component ComponentID // BindComponent
}

// Assignable reports whether the binding may be the target of an
// assignment statement.
func (b Binding) Assignable() bool {
	switch b.Kind {
	case BindLet, BindState:
		return true
	default:
		return false
	}
}
