// Package codegen rebuilds JavaScript source from lowered control flow
// graphs. Each graph is walked from its entry node and the structure is
// recovered on the way out: branch nodes become if statements, loop
// nodes become while statements, and state declarations become signals.
package codegen

import (
	"fmt"
	"strings"
	"time"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/cfg"
)

// Options controls output formatting.
type Options struct {
	// Minify renames locals and drops whitespace.
	Minify bool

	// Timestamp is written into the generated header. The zero value
	// means time.Now.
	Timestamp time.Time
}

// Input is one lowered module. Graphs runs parallel to the module's
// definitions; const definitions carry a nil graph.
type Input struct {
	Arena  *ast.Arena
	Module ast.ModuleID
	Graphs []*cfg.Graph
}

// Emit renders a module to JavaScript. Public definitions are the
// roots; private definitions are pulled in on demand when emitted code
// references them, so unreferenced private code never reaches the
// output. A definition is marked done before its body is generated,
// which breaks recursion cycles.
func Emit(in Input, opts Options) (string, error) {
	module := in.Arena.Module(in.Module)
	if module == nil {
		return "", fmt.Errorf("codegen: no module to emit")
	}
	if len(in.Graphs) != len(module.Definitions) {
		return "", fmt.Errorf("codegen: %d graphs for %d definitions", len(in.Graphs), len(module.Definitions))
	}

	em := newModuleEmitter(in, opts.Minify)
	for i, def := range module.Definitions {
		if def.Public {
			em.emitDefinition(i)
		}
	}
	if em.err != nil {
		return "", em.err
	}

	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	var out strings.Builder
	fmt.Fprintf(&out, "// GENERATED FILE - DO NOT EDIT\n")
	fmt.Fprintf(&out, "// Compiled from module: %s.ws\n", module.Name)
	fmt.Fprintf(&out, "// %s\n", ts.Format(time.RFC3339))
	if em.usedSignal {
		out.WriteString("import {signal} from '@preact/signals-core';\n")
	}
	out.WriteString("\n")
	out.WriteString(strings.Join(em.parts, "\n"))
	if opts.Minify {
		out.WriteString("\n")
	}
	return out.String(), nil
}

// moduleEmitter tracks which definitions have been emitted. Parts are
// appended as each definition completes, so a definition's dependencies
// land ahead of it (consts need that ordering to evaluate).
type moduleEmitter struct {
	arena  *ast.Arena
	module *ast.Module
	graphs []*cfg.Graph
	minify bool

	byFunction  map[ast.FunctionID]int
	byComponent map[ast.ComponentID]int
	byConst     map[ast.ConstID]int

	emitted    map[int]bool
	parts      []string
	usedSignal bool
	err        error
}

func newModuleEmitter(in Input, minify bool) *moduleEmitter {
	module := in.Arena.Module(in.Module)
	em := &moduleEmitter{
		arena:       in.Arena,
		module:      module,
		graphs:      in.Graphs,
		minify:      minify,
		byFunction:  make(map[ast.FunctionID]int),
		byComponent: make(map[ast.ComponentID]int),
		byConst:     make(map[ast.ConstID]int),
		emitted:     make(map[int]bool),
	}
	for i, def := range module.Definitions {
		switch def.Kind {
		case ast.DefFunction:
			em.byFunction[def.Function] = i
		case ast.DefComponent:
			em.byComponent[def.Component] = i
		case ast.DefConst:
			em.byConst[def.Const] = i
		}
	}
	return em
}

// need pulls in a module definition referenced by code being emitted.
func (em *moduleEmitter) need(b ast.Binding) {
	var idx int
	var ok bool
	switch b.Kind {
	case ast.BindFunction:
		idx, ok = em.byFunction[b.Function]
	case ast.BindComponent:
		idx, ok = em.byComponent[b.Component]
	case ast.BindConst:
		idx, ok = em.byConst[b.Const]
	}
	if ok {
		em.emitDefinition(idx)
	}
}

func (em *moduleEmitter) emitDefinition(i int) {
	if em.err != nil || em.emitted[i] {
		return
	}
	em.emitted[i] = true

	def := em.module.Definitions[i]
	w := &writer{minify: em.minify}
	var names *minifier
	if em.minify {
		names = newMinifier()
	}
	g := newGenerator(em.arena, em.graphs[i], w, names)
	g.need = em.need

	export := ""
	if def.Public {
		export = "export "
	}

	switch def.Kind {
	case ast.DefFunction:
		fn := em.arena.Function(def.Function)
		if fn == nil {
			em.err = fmt.Errorf("codegen: definition points at no function")
			return
		}
		if em.graphs[i] == nil {
			em.err = fmt.Errorf("codegen: function %q has no graph", fn.Name)
			return
		}
		w.open(export + "function " + fn.Name + "(" + g.paramList(fn.Params) + ")")
		if err := g.emitBody(); err != nil {
			em.err = fmt.Errorf("codegen: function %q: %w", fn.Name, err)
			return
		}
		w.close()

	case ast.DefComponent:
		c := em.arena.Component(def.Component)
		if c == nil {
			em.err = fmt.Errorf("codegen: definition points at no component")
			return
		}
		if em.graphs[i] == nil {
			em.err = fmt.Errorf("codegen: component %q has no graph", c.Name)
			return
		}
		w.open(export + "class " + c.Name)
		w.open("constructor(" + g.paramList(c.Params) + ")")
		if err := g.emitBody(); err != nil {
			em.err = fmt.Errorf("codegen: component %q: %w", c.Name, err)
			return
		}
		w.close()
		w.close()

	case ast.DefConst:
		cst := em.arena.Const(def.Const)
		if cst == nil {
			em.err = fmt.Errorf("codegen: definition points at no const")
			return
		}
		eq := " = "
		if em.minify {
			eq = "="
		}
		w.line(export + "const " + cst.Name + eq + g.exprJS(cst.Value) + ";")
	}
	if em.err != nil {
		return
	}

	em.parts = append(em.parts, w.String())
	em.usedSignal = em.usedSignal || g.usedSignal
}

func (g *generator) paramList(params []ast.ParamID) string {
	names := make([]string, len(params))
	for i, pid := range params {
		names[i] = g.bindingName(ast.Binding{Kind: ast.BindParameter, Param: pid})
	}
	sep := ", "
	if g.w.minify {
		sep = ","
	}
	return strings.Join(names, sep)
}
