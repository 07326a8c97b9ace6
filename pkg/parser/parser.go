// Package parser builds the ws syntax tree from a token stream.
//
// Parsing is single pass with one exception: module-level definition
// names are collected up front so bodies can reference definitions
// that appear later in the file. All name resolution happens here,
// so downstream passes work with bindings instead of raw identifiers.
package parser

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/lexer"
	"github.com/aweary/compiler/pkg/source"
)

type parser struct {
	arena  *ast.Arena
	file   *source.File
	tokens []lexer.Token
	pos    int
	scopes *scopeStack

	// pending holds arena nodes allocated by the pre-declaration
	// pass, in the order their definitions appear in the file.
	pending     []predeclared
	nextPending int

	inComponent bool
}

type predeclared struct {
	kind      ast.DefinitionKind
	function  ast.FunctionID
	component ast.ComponentID
	constant  ast.ConstID
}

// ParseModule lexes and parses a single ws source file into the arena.
// The first error aborts the parse.
func ParseModule(arena *ast.Arena, file *source.File) (ast.ModuleID, error) {
	tokens, err := lexer.Lex(file)
	if err != nil {
		return ast.NoModule, err
	}
	p := &parser{arena: arena, file: file, tokens: tokens, scopes: newScopeStack()}
	return p.parseModule()
}

// ParseFunctionBody parses a fragment of statements as the body of a
// synthetic function and returns the body block. Engine tests use it
// to build graphs from bare statement lists.
func ParseFunctionBody(arena *ast.Arena, statements string) (ast.BlockID, error) {
	file := source.NewFile("fragment.ws", "fn main() {\n"+statements+"\n}")
	moduleID, err := ParseModule(arena, file)
	if err != nil {
		return ast.NoBlock, err
	}
	for _, def := range arena.Module(moduleID).Definitions {
		if def.Kind == ast.DefFunction {
			return arena.Function(def.Function).Body, nil
		}
	}
	return ast.NoBlock, fmt.Errorf("fragment did not produce a function")
}

func (p *parser) parseModule() (ast.ModuleID, error) {
	p.declareModuleNames()
	var defs []ast.Definition
	for !p.at(lexer.KindEOF) {
		def, err := p.parseDefinition()
		if err != nil {
			return ast.NoModule, err
		}
		defs = append(defs, def)
	}
	module := ast.Module{Name: moduleName(p.file.Name), Definitions: defs}
	return p.arena.AddModule(module), nil
}

// declareModuleNames scans the token stream for module-level
// definition headers and binds each name before any body is parsed.
// This is what lets a function call another one defined below it.
func (p *parser) declareModuleNames() {
	depth := 0
	for i, tok := range p.tokens {
		switch tok.Kind {
		case lexer.KindLBrace:
			depth++
		case lexer.KindRBrace:
			if depth > 0 {
				depth--
			}
		case lexer.KindFn, lexer.KindComponent, lexer.KindConst:
			if depth != 0 || i+1 >= len(p.tokens) {
				continue
			}
			name := p.tokens[i+1]
			if name.Kind != lexer.KindIdent {
				continue
			}
			switch tok.Kind {
			case lexer.KindFn:
				id := p.arena.AddFunction(ast.Function{Name: name.Text, NameSpan: name.Span})
				p.scopes.define(name.Text, ast.Binding{Kind: ast.BindFunction, Function: id})
				p.pending = append(p.pending, predeclared{kind: ast.DefFunction, function: id})
			case lexer.KindComponent:
				id := p.arena.AddComponent(ast.Component{Name: name.Text, NameSpan: name.Span})
				p.scopes.define(name.Text, ast.Binding{Kind: ast.BindComponent, Component: id})
				p.pending = append(p.pending, predeclared{kind: ast.DefComponent, component: id})
			case lexer.KindConst:
				id := p.arena.AddConst(ast.Const{Name: name.Text, NameSpan: name.Span})
				p.scopes.define(name.Text, ast.Binding{Kind: ast.BindConst, Const: id})
				p.pending = append(p.pending, predeclared{kind: ast.DefConst, constant: id})
			}
		}
	}
}

func (p *parser) nextPendingDef() predeclared {
	if p.nextPending < len(p.pending) {
		d := p.pending[p.nextPending]
		p.nextPending++
		return d
	}
	return predeclared{}
}

func (p *parser) parseDefinition() (ast.Definition, error) {
	public := p.eat(lexer.KindPub)
	switch tok := p.peek(); tok.Kind {
	case lexer.KindFn:
		id, err := p.parseFunction()
		return ast.Definition{Kind: ast.DefFunction, Public: public, Function: id}, err
	case lexer.KindComponent:
		id, err := p.parseComponent()
		return ast.Definition{Kind: ast.DefComponent, Public: public, Component: id}, err
	case lexer.KindConst:
		id, err := p.parseConst()
		return ast.Definition{Kind: ast.DefConst, Public: public, Const: id}, err
	case lexer.KindImport, lexer.KindEnum, lexer.KindStruct, lexer.KindInterface:
		return ast.Definition{}, p.errorf(tok.Span, "%s is not yet supported", tok.Text)
	default:
		return ast.Definition{}, p.errorf(tok.Span, "expected a definition, found %s", describe(tok))
	}
}

func (p *parser) parseFunction() (ast.FunctionID, error) {
	if _, err := p.expect(lexer.KindFn); err != nil {
		return ast.NoFunction, err
	}
	name, err := p.expect(lexer.KindIdent)
	if err != nil {
		return ast.NoFunction, err
	}
	d := p.nextPendingDef()
	id := d.function
	if d.kind != ast.DefFunction || id == ast.NoFunction {
		id = p.arena.AddFunction(ast.Function{Name: name.Text, NameSpan: name.Span})
	}

	p.scopes.push()
	defer p.scopes.pop()
	params, err := p.parseParams()
	if err != nil {
		return ast.NoFunction, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.NoFunction, err
	}
	fn := p.arena.Function(id)
	fn.Params = params
	fn.Body = body
	return id, nil
}

func (p *parser) parseComponent() (ast.ComponentID, error) {
	if _, err := p.expect(lexer.KindComponent); err != nil {
		return ast.NoComponent, err
	}
	name, err := p.expect(lexer.KindIdent)
	if err != nil {
		return ast.NoComponent, err
	}
	d := p.nextPendingDef()
	id := d.component
	if d.kind != ast.DefComponent || id == ast.NoComponent {
		id = p.arena.AddComponent(ast.Component{Name: name.Text, NameSpan: name.Span})
	}

	wasComponent := p.inComponent
	p.inComponent = true
	defer func() { p.inComponent = wasComponent }()

	p.scopes.push()
	defer p.scopes.pop()
	params, err := p.parseParams()
	if err != nil {
		return ast.NoComponent, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.NoComponent, err
	}
	c := p.arena.Component(id)
	c.Params = params
	c.Body = body
	return id, nil
}

func (p *parser) parseConst() (ast.ConstID, error) {
	if _, err := p.expect(lexer.KindConst); err != nil {
		return ast.NoConst, err
	}
	name, err := p.expect(lexer.KindIdent)
	if err != nil {
		return ast.NoConst, err
	}
	d := p.nextPendingDef()
	id := d.constant
	if d.kind != ast.DefConst || id == ast.NoConst {
		id = p.arena.AddConst(ast.Const{Name: name.Text, NameSpan: name.Span})
	}
	if _, err := p.expect(lexer.KindAssign); err != nil {
		return ast.NoConst, err
	}
	value, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoConst, err
	}
	p.arena.Const(id).Value = value
	return id, nil
}

func (p *parser) parseParams() ([]ast.ParamID, error) {
	if _, err := p.expect(lexer.KindLParen); err != nil {
		return nil, err
	}
	var params []ast.ParamID
	for !p.at(lexer.KindRParen) {
		name, err := p.expect(lexer.KindIdent)
		if err != nil {
			return nil, err
		}
		id := p.arena.AddParam(ast.Param{Name: name.Text, Span: name.Span})
		p.scopes.define(name.Text, ast.Binding{Kind: ast.BindParameter, Param: id})
		params = append(params, id)
		if !p.eat(lexer.KindComma) {
			break
		}
	}
	if _, err := p.expect(lexer.KindRParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *parser) parseBlock() (ast.BlockID, error) {
	if _, err := p.expect(lexer.KindLBrace); err != nil {
		return ast.NoBlock, err
	}
	p.scopes.push()
	defer p.scopes.pop()
	var stmts []ast.StatementID
	for !p.at(lexer.KindRBrace) && !p.at(lexer.KindEOF) {
		s, err := p.parseStatement()
		if err != nil {
			return ast.NoBlock, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.expect(lexer.KindRBrace); err != nil {
		return ast.NoBlock, err
	}
	return p.arena.AddBlock(ast.Block{Statements: stmts}), nil
}

func (p *parser) parseStatement() (ast.StatementID, error) {
	switch tok := p.peek(); tok.Kind {
	case lexer.KindLet:
		return p.parseLet()
	case lexer.KindState:
		return p.parseState()
	case lexer.KindReturn:
		return p.parseReturn()
	case lexer.KindIf:
		return p.parseIf()
	case lexer.KindWhile:
		return p.parseWhile()
	case lexer.KindFor, lexer.KindImport, lexer.KindEnum, lexer.KindStruct, lexer.KindInterface:
		return ast.NoStatement, p.errorf(tok.Span, "%s is not yet supported", tok.Text)
	default:
		return p.parseExpressionStatement()
	}
}

func (p *parser) parseLet() (ast.StatementID, error) {
	let := p.next()
	name, err := p.expect(lexer.KindIdent)
	if err != nil {
		return ast.NoStatement, err
	}
	if _, err := p.expect(lexer.KindAssign); err != nil {
		return ast.NoStatement, err
	}
	value, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	id := p.arena.AddStatement(ast.Statement{
		Kind:     ast.StmtLet,
		Span:     let.Span.Merge(p.arena.Expression(value).Span),
		Name:     name.Text,
		NameSpan: name.Span,
		Value:    value,
	})
	p.scopes.define(name.Text, ast.Binding{Kind: ast.BindLet, Stmt: id})
	return id, nil
}

func (p *parser) parseState() (ast.StatementID, error) {
	state := p.next()
	if !p.inComponent {
		return ast.NoStatement, p.errorf(state.Span, "state can only be declared inside a component")
	}
	name, err := p.expect(lexer.KindIdent)
	if err != nil {
		return ast.NoStatement, err
	}
	if _, err := p.expect(lexer.KindAssign); err != nil {
		return ast.NoStatement, err
	}
	value, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	sid := p.arena.AddState(ast.State{Name: name.Text, NameSpan: name.Span, Value: value})
	id := p.arena.AddStatement(ast.Statement{
		Kind:     ast.StmtState,
		Span:     state.Span.Merge(p.arena.Expression(value).Span),
		Name:     name.Text,
		NameSpan: name.Span,
		State:    sid,
	})
	p.scopes.define(name.Text, ast.Binding{Kind: ast.BindState, State: sid})
	return id, nil
}

func (p *parser) parseReturn() (ast.StatementID, error) {
	ret := p.next()
	stmt := ast.Statement{Kind: ast.StmtReturn, Span: ret.Span}
	// A bare return is allowed right before the end of a block.
	if !p.at(lexer.KindRBrace) {
		value, err := p.parseExpression(lexer.PrecAssign)
		if err != nil {
			return ast.NoStatement, err
		}
		stmt.Value = value
		stmt.Span = ret.Span.Merge(p.arena.Expression(value).Span)
	}
	return p.arena.AddStatement(stmt), nil
}

func (p *parser) parseIf() (ast.StatementID, error) {
	ifTok := p.next()
	cond, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.NoStatement, err
	}
	stmt := ast.Statement{Kind: ast.StmtIf, Cond: cond, Body: body}
	if p.eat(lexer.KindElse) {
		if p.at(lexer.KindIf) {
			elseIf, err := p.parseIf()
			if err != nil {
				return ast.NoStatement, err
			}
			stmt.ElseIf = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return ast.NoStatement, err
			}
			stmt.Else = elseBlock
		}
	}
	stmt.Span = ifTok.Span.Merge(p.prev().Span)
	return p.arena.AddStatement(stmt), nil
}

func (p *parser) parseWhile() (ast.StatementID, error) {
	whileTok := p.next()
	cond, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return ast.NoStatement, err
	}
	return p.arena.AddStatement(ast.Statement{
		Kind: ast.StmtWhile,
		Span: whileTok.Span.Merge(p.prev().Span),
		Cond: cond,
		Body: body,
	}), nil
}

// parseExpressionStatement parses either a bare expression statement
// or an assignment. Assignment is not an expression in ws, so it is
// only recognized here at statement level.
func (p *parser) parseExpressionStatement() (ast.StatementID, error) {
	expr, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	if !p.at(lexer.KindAssign) {
		span := p.arena.Expression(expr).Span
		return p.arena.AddStatement(ast.Statement{Kind: ast.StmtExpression, Span: span, Expr: expr}), nil
	}
	p.next()
	value, err := p.parseExpression(lexer.PrecAssign)
	if err != nil {
		return ast.NoStatement, err
	}
	target := p.arena.Expression(expr)
	if target.Kind != ast.ExprReference {
		return ast.NoStatement, p.errorf(target.Span, "invalid assignment target")
	}
	if !target.Ref.Assignable() {
		name := p.arena.BindingName(target.Ref)
		return ast.NoStatement, p.errorf(target.Span, "cannot assign to %s %q", bindingNoun(target.Ref.Kind), name)
	}
	if target.Ref.Kind == ast.BindLet {
		if let := p.arena.Statement(target.Ref.Stmt); let != nil {
			let.Mutated = true
		}
	}
	return p.arena.AddStatement(ast.Statement{
		Kind:   ast.StmtAssign,
		Span:   target.Span.Merge(p.arena.Expression(value).Span),
		Target: expr,
		Value:  value,
	}), nil
}

// parseExpression is a precedence climbing loop. min is the binding
// power of the surrounding context; operators bind only while their
// precedence is strictly higher, which makes binary operators left
// associative.
func (p *parser) parseExpression(min lexer.Precedence) (ast.ExpressionID, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return ast.NoExpression, err
	}
	for p.peek().Precedence() > min {
		op := p.next()
		if op.Kind == lexer.KindLParen {
			left, err = p.parseCall(left)
		} else {
			left, err = p.parseBinary(left, op)
		}
		if err != nil {
			return ast.NoExpression, err
		}
	}
	return left, nil
}

func (p *parser) parsePrefix() (ast.ExpressionID, error) {
	tok := p.next()
	switch tok.Kind {
	case lexer.KindNumber:
		num, err := strconv.ParseFloat(lexer.NumberValue(tok), 64)
		if err != nil {
			return ast.NoExpression, p.errorf(tok.Span, "invalid number literal %q", tok.Text)
		}
		return p.arena.AddExpression(ast.Expression{Kind: ast.ExprNumber, Span: tok.Span, Num: num}), nil
	case lexer.KindTrue, lexer.KindFalse:
		return p.arena.AddExpression(ast.Expression{
			Kind: ast.ExprBoolean,
			Span: tok.Span,
			Bool: tok.Kind == lexer.KindTrue,
		}), nil
	case lexer.KindString:
		return p.arena.AddExpression(ast.Expression{Kind: ast.ExprString, Span: tok.Span, Str: lexer.StringValue(tok)}), nil
	case lexer.KindIdent:
		return p.parseReference(tok)
	case lexer.KindLParen:
		expr, err := p.parseExpression(lexer.PrecAssign)
		if err != nil {
			return ast.NoExpression, err
		}
		if _, err := p.expect(lexer.KindRParen); err != nil {
			return ast.NoExpression, err
		}
		return expr, nil
	case lexer.KindAsync, lexer.KindAwait:
		return ast.NoExpression, p.errorf(tok.Span, "%s is not yet supported", tok.Text)
	default:
		return ast.NoExpression, p.errorf(tok.Span, "expected an expression, found %s", describe(tok))
	}
}

func (p *parser) parseReference(tok lexer.Token) (ast.ExpressionID, error) {
	binding, ok := p.scopes.resolve(tok.Text)
	if !ok {
		d := diag.Errorf(tok.Span, "cannot find value %q in this scope", tok.Text)
		if hint, ok := p.scopes.suggest(tok.Text); ok {
			d = d.WithHelp(fmt.Sprintf("did you mean %q?", hint))
		}
		return ast.NoExpression, diag.NewError(d)
	}
	return p.arena.AddExpression(ast.Expression{Kind: ast.ExprReference, Span: tok.Span, Ref: binding}), nil
}

func (p *parser) parseBinary(left ast.ExpressionID, op lexer.Token) (ast.ExpressionID, error) {
	binOp, ok := binaryOp(op.Kind)
	if !ok {
		return ast.NoExpression, p.errorf(op.Span, "unexpected %s in expression", describe(op))
	}
	right, err := p.parseExpression(op.Precedence())
	if err != nil {
		return ast.NoExpression, err
	}
	return p.arena.AddExpression(ast.Expression{
		Kind:  ast.ExprBinary,
		Span:  p.arena.Expression(left).Span.Merge(p.arena.Expression(right).Span),
		Op:    binOp,
		Left:  left,
		Right: right,
	}), nil
}

func (p *parser) parseCall(callee ast.ExpressionID) (ast.ExpressionID, error) {
	var args []ast.ExpressionID
	for !p.at(lexer.KindRParen) {
		arg, err := p.parseExpression(lexer.PrecAssign)
		if err != nil {
			return ast.NoExpression, err
		}
		args = append(args, arg)
		if !p.eat(lexer.KindComma) {
			break
		}
	}
	rparen, err := p.expect(lexer.KindRParen)
	if err != nil {
		return ast.NoExpression, err
	}
	return p.arena.AddExpression(ast.Expression{
		Kind:   ast.ExprCall,
		Span:   p.arena.Expression(callee).Span.Merge(rparen.Span),
		Callee: callee,
		Args:   args,
	}), nil
}

func binaryOp(kind lexer.Kind) (ast.BinOp, bool) {
	switch kind {
	case lexer.KindPlus:
		return ast.OpAdd, true
	case lexer.KindMinus:
		return ast.OpSub, true
	case lexer.KindStar:
		return ast.OpMul, true
	case lexer.KindSlash:
		return ast.OpDiv, true
	case lexer.KindEq:
		return ast.OpEq, true
	case lexer.KindLess:
		return ast.OpLess, true
	case lexer.KindGreater:
		return ast.OpGreater, true
	case lexer.KindAnd:
		return ast.OpAnd, true
	case lexer.KindOr:
		return ast.OpOr, true
	}
	return 0, false
}

func bindingNoun(kind ast.BindingKind) string {
	switch kind {
	case ast.BindConst:
		return "constant"
	case ast.BindFunction:
		return "function"
	case ast.BindParameter:
		return "parameter"
	case ast.BindComponent:
		return "component"
	default:
		return "value"
	}
}

func (p *parser) peek() lexer.Token {
	return p.tokens[p.pos]
}

func (p *parser) next() lexer.Token {
	tok := p.tokens[p.pos]
	if tok.Kind != lexer.KindEOF {
		p.pos++
	}
	return tok
}

func (p *parser) prev() lexer.Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) at(kind lexer.Kind) bool {
	return p.peek().Kind == kind
}

func (p *parser) eat(kind lexer.Kind) bool {
	if p.at(kind) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind lexer.Kind) (lexer.Token, error) {
	if p.at(kind) {
		return p.next(), nil
	}
	tok := p.peek()
	return tok, p.errorf(tok.Span, "expected %s, found %s", kind, describe(tok))
}

func (p *parser) errorf(span source.Span, format string, args ...any) error {
	return diag.NewError(diag.Errorf(span, format, args...))
}

func describe(tok lexer.Token) string {
	if tok.Kind == lexer.KindEOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", tok.Text)
}

func moduleName(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), ".ws")
}
