// Package compiler drives the pipeline for one module: parse, lower
// every definition to a control flow graph, fold constants through
// calls, and emit JavaScript.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/cfg"
	"github.com/aweary/compiler/pkg/codegen"
	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/eval"
	"github.com/aweary/compiler/pkg/parser"
	"github.com/aweary/compiler/pkg/source"
)

// maxCallFoldDepth bounds constant folding through call chains so a
// recursive function degrades to "not a constant" instead of hanging
// the compiler.
const maxCallFoldDepth = 16

// Options controls one compilation.
type Options struct {
	// Minify renames locals and compacts the emitted JavaScript.
	Minify bool

	// NoFold disables constant folding, leaving every condition in the
	// graph. Useful when inspecting control flow.
	NoFold bool

	// Timestamp overrides the generated header timestamp, mainly for
	// reproducible tests. Zero means time.Now.
	Timestamp time.Time
}

// Artifact is the durable output of compiling one module. It is what
// the build cache stores, so it carries no handles into the arena.
type Artifact struct {
	Module      string       `msgpack:"module" json:"module"`
	Hash        string       `msgpack:"hash" json:"hash"`
	JS          string       `msgpack:"js" json:"js"`
	Diagnostics []Diagnostic `msgpack:"diagnostics,omitempty" json:"diagnostics,omitempty"`
}

// Diagnostic is a location-resolved finding that can round trip through
// the cache without the source file it came from.
type Diagnostic struct {
	Severity string `msgpack:"severity" json:"severity"`
	Message  string `msgpack:"message" json:"message"`
	Line     int    `msgpack:"line" json:"line"`
	Column   int    `msgpack:"column" json:"column"`
	Help     string `msgpack:"help,omitempty" json:"help,omitempty"`
}

// HasErrors reports whether any diagnostic is an error.
func (a Artifact) HasErrors() bool {
	for _, d := range a.Diagnostics {
		if d.Severity == diag.SeverityError.String() {
			return true
		}
	}
	return false
}

// Result is the in-memory outcome of one compilation. The arena and
// graphs stay available for inspection (the cfg command, tests).
type Result struct {
	Artifact Artifact
	File     *source.File
	Arena    *ast.Arena
	Module   ast.ModuleID

	// Graphs runs parallel to the module's definitions. Consts and
	// definitions that failed to lower carry nil.
	Graphs []*cfg.Graph

	// Findings keeps the span-carrying diagnostics for rendering.
	Findings []diag.Diagnostic
}

// HasErrors reports whether compilation produced any error.
func (r *Result) HasErrors() bool {
	for _, d := range r.Findings {
		if d.Severity == diag.SeverityError {
			return true
		}
	}
	return false
}

// RenderDiagnostics formats every finding with source context.
func (r *Result) RenderDiagnostics() []string {
	out := make([]string, len(r.Findings))
	for i, d := range r.Findings {
		out[i] = diag.Render(r.File, d)
	}
	return out
}

// GraphFor returns the lowered graph for the named function or
// component, or nil when the module has no such definition.
func (r *Result) GraphFor(name string) *cfg.Graph {
	module := r.Arena.Module(r.Module)
	if module == nil {
		return nil
	}
	for i, def := range module.Definitions {
		if definitionName(r.Arena, def) == name && r.Graphs[i] != nil {
			return r.Graphs[i]
		}
	}
	return nil
}

// DefinitionNames lists the module's function and component names in
// declaration order.
func (r *Result) DefinitionNames() []string {
	module := r.Arena.Module(r.Module)
	if module == nil {
		return nil
	}
	var names []string
	for _, def := range module.Definitions {
		if def.Kind == ast.DefConst {
			continue
		}
		names = append(names, definitionName(r.Arena, def))
	}
	return names
}

func (r *Result) record(d diag.Diagnostic) {
	r.Findings = append(r.Findings, d)
	line, col := r.File.Position(int(d.Span.Start))
	r.Artifact.Diagnostics = append(r.Artifact.Diagnostics, Diagnostic{
		Severity: d.Severity.String(),
		Message:  d.Message,
		Line:     line,
		Column:   col,
		Help:     d.Help,
	})
}

// Compile runs the pipeline over one module source. Diagnostics land in
// the result; the error return is reserved for internal failures. A
// parse error aborts the module, while lowering errors are recorded per
// definition so the rest of the module still gets checked. JS is only
// produced when no errors were found.
func Compile(name, src string, opts Options) (*Result, error) {
	file := source.NewFile(name, src)
	arena := ast.NewArena()
	res := &Result{
		Artifact: Artifact{
			Module: strings.TrimSuffix(filepath.Base(name), ".ws"),
			Hash:   HashSource(src),
		},
		File:  file,
		Arena: arena,
	}

	moduleID, err := parser.ParseModule(arena, file)
	if err != nil {
		var de *diag.Error
		if errors.As(err, &de) {
			res.record(de.Diagnostic)
			return res, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	res.Module = moduleID
	module := arena.Module(moduleID)

	var fold cfg.FoldFunc
	if !opts.NoFold {
		folder := &callFolder{arena: arena}
		fold = folder.fold
	}

	res.Graphs = make([]*cfg.Graph, len(module.Definitions))
	for i, def := range module.Definitions {
		var body ast.BlockID
		var nameSpan source.Span
		switch def.Kind {
		case ast.DefFunction:
			fn := arena.Function(def.Function)
			body, nameSpan = fn.Body, fn.NameSpan
		case ast.DefComponent:
			c := arena.Component(def.Component)
			body, nameSpan = c.Body, c.NameSpan
		default:
			continue
		}

		g, err := cfg.Lower(arena, body, fold)
		if err != nil {
			var de *diag.Error
			switch {
			case errors.As(err, &de):
				res.record(de.Diagnostic)
			case errors.Is(err, cfg.ErrTooDeeplyNested):
				res.record(diag.Errorf(nameSpan, "%s is nested too deeply", definitionName(arena, def)))
			default:
				return nil, fmt.Errorf("lowering %s: %w", definitionName(arena, def), err)
			}
			continue
		}
		res.Graphs[i] = g

		for _, idx := range g.FindUnreachableBlocks() {
			res.record(diag.Warningf(nodeSpan(arena, g, idx), "unreachable code"))
		}
	}

	if !res.HasErrors() {
		js, err := codegen.Emit(codegen.Input{Arena: arena, Module: moduleID, Graphs: res.Graphs}, codegen.Options{
			Minify:    opts.Minify,
			Timestamp: opts.Timestamp,
		})
		if err != nil {
			return nil, err
		}
		res.Artifact.JS = js
	}
	return res, nil
}

// HashSource returns the content hash used for cache keys and dirty
// tracking.
func HashSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

func definitionName(arena *ast.Arena, def ast.Definition) string {
	switch def.Kind {
	case ast.DefFunction:
		if fn := arena.Function(def.Function); fn != nil {
			return fn.Name
		}
	case ast.DefComponent:
		if c := arena.Component(def.Component); c != nil {
			return c.Name
		}
	case ast.DefConst:
		if c := arena.Const(def.Const); c != nil {
			return c.Name
		}
	}
	return ""
}

// nodeSpan picks the span to report for a graph node: the first
// statement of a block, or the condition expression.
func nodeSpan(arena *ast.Arena, g *cfg.Graph, idx cfg.NodeIndex) source.Span {
	node := g.Node(idx)
	if node == nil {
		return source.Span{}
	}
	switch node.Kind {
	case cfg.NodeBranchCondition, cfg.NodeLoopCondition:
		if e := arena.Expression(node.Cond); e != nil {
			return e.Span
		}
	case cfg.NodeBasicBlock:
		if len(node.Statements) > 0 {
			if s := arena.Statement(node.Statements[0]); s != nil {
				return s.Span
			}
		}
	}
	return source.Span{}
}

// callFolder folds calls to constant functions by lowering the callee
// with the argument values bound. A function folds only when its graph
// collapsed to straight line code with a known return value.
type callFolder struct {
	arena *ast.Arena
	depth int
}

func (f *callFolder) fold(id ast.ExpressionID) (eval.Value, bool) {
	return eval.Fold(f.arena, id, &eval.Env{Calls: f.call})
}

func (f *callFolder) call(callee ast.Binding, args []eval.Value) (eval.Value, bool) {
	if callee.Kind != ast.BindFunction || f.depth >= maxCallFoldDepth {
		return eval.Value{}, false
	}
	fn := f.arena.Function(callee.Function)
	if fn == nil || len(args) != len(fn.Params) {
		return eval.Value{}, false
	}
	params := make(map[ast.ParamID]eval.Value, len(args))
	for i, pid := range fn.Params {
		params[pid] = args[i]
	}
	env := &eval.Env{Params: params, Calls: f.call}

	f.depth++
	g, err := cfg.Lower(f.arena, fn.Body, func(id ast.ExpressionID) (eval.Value, bool) {
		return eval.Fold(f.arena, id, env)
	})
	f.depth--

	if err != nil || g.HasConditions() || g.Value() == nil {
		return eval.Value{}, false
	}
	return *g.Value(), true
}
