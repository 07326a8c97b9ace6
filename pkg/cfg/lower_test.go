package cfg

import (
	"errors"
	"strings"
	"testing"

	"github.com/aweary/compiler/pkg/ast"
	"github.com/aweary/compiler/pkg/diag"
	"github.com/aweary/compiler/pkg/eval"
	"github.com/aweary/compiler/pkg/parser"
)

func lowerSource(t *testing.T, src string, withFold bool, opts ...Option) (*ast.Arena, *Graph) {
	t.Helper()
	arena := ast.NewArena()
	block, err := parser.ParseFunctionBody(arena, src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var fold FoldFunc
	if withFold {
		fold = func(id ast.ExpressionID) (eval.Value, bool) {
			return eval.Fold(arena, id, nil)
		}
	}
	g, err := Lower(arena, block, fold, opts...)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	return arena, g
}

// The expected graphs below are written out by hand. Node 0 is always
// entry and node 1 is always exit; real nodes follow in lowering
// order. Folding is disabled unless a case says otherwise, so literal
// conditions stay as branch nodes.
func TestLowerShapes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		fold bool
		want string
	}{
		{
			name: "straight line statements",
			src:  "let a = 1\nlet b = 2",
			want: `nodes:
  0: entry
  1: exit
  2: block[let a, let b]
edges:
  0 -> 2 normal
  2 -> 1 normal
`,
		},
		{
			name: "empty body",
			src:  "",
			want: `nodes:
  0: entry
  1: exit
edges:
  0 -> 1 normal
`,
		},
		{
			name: "single return",
			src:  "return 1",
			want: `nodes:
  0: entry
  1: exit
  2: block[return]
edges:
  0 -> 2 normal
  2 -> 1 return
`,
		},
		{
			name: "code after return is disconnected",
			src:  "return 1\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: block[return]
  3: block[let z]
edges:
  0 -> 2 normal
  2 -> 1 return
`,
		},
		{
			name: "if with trailing statement",
			src:  "if true {\n\tlet x = 1\n}\nlet y = 2",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[let x]
  4: block[let y]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 4 normal
  2 -> 4 false
  4 -> 1 normal
`,
		},
		{
			name: "trailing if",
			src:  "let a = 1\nif true {\n\tlet x = 2\n}",
			want: `nodes:
  0: entry
  1: exit
  2: block[let a]
  3: branch true
  4: block[let x]
edges:
  0 -> 2 normal
  2 -> 3 normal
  3 -> 4 true
  4 -> 1 normal
  3 -> 1 false
`,
		},
		{
			name: "if with named condition",
			src:  "let a = 1\nif a == 1 {\n\tlet b = 2\n}",
			want: `nodes:
  0: entry
  1: exit
  2: block[let a]
  3: branch (a == 1)
  4: block[let b]
edges:
  0 -> 2 normal
  2 -> 3 normal
  3 -> 4 true
  4 -> 1 normal
  3 -> 1 false
`,
		},
		{
			name: "if else joining",
			src:  "if true {\n\tlet x = 1\n} else {\n\tlet y = 2\n}\nlet z = 3",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[let x]
  4: block[let y]
  5: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  2 -> 4 false
  3 -> 5 normal
  4 -> 5 normal
  5 -> 1 normal
`,
		},
		{
			name: "both branches return",
			src:  "if true {\n\treturn 1\n} else {\n\treturn 2\n}\nlet z = 3",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[return]
  4: block[return]
  5: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 1 return
  2 -> 4 false
  4 -> 1 return
`,
		},
		{
			name: "early return in true branch",
			src:  "if true {\n\treturn 1\n}\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[return]
  4: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 1 return
  2 -> 4 false
  4 -> 1 normal
`,
		},
		{
			name: "else if chain",
			src: "if true {\n\tlet a = 1\n} else if false {\n\tlet b = 2\n} else {\n\tlet c = 3\n}\nlet d = 4",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[let a]
  4: branch false
  5: block[let b]
  6: block[let c]
  7: block[let d]
edges:
  0 -> 2 normal
  2 -> 3 true
  2 -> 4 false
  4 -> 5 true
  4 -> 6 false
  3 -> 7 normal
  6 -> 7 normal
  5 -> 7 normal
  7 -> 1 normal
`,
		},
		{
			name: "nested ifs",
			src:  "if true {\n\tif false {\n\t\tlet a = 1\n\t}\n\tlet b = 2\n}\nlet c = 3",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: branch false
  4: block[let a]
  5: block[let b]
  6: block[let c]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 4 true
  4 -> 5 normal
  3 -> 5 false
  5 -> 6 normal
  2 -> 6 false
  6 -> 1 normal
`,
		},
		{
			name: "nested empty ifs",
			src:  "if true {\n\tif false {\n\t}\n}",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: branch false
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 1 true
  3 -> 1 false
  2 -> 1 false
`,
		},
		{
			name: "empty if before statement",
			src:  "if true {\n}\nlet z = 1",
			want: `nodes:
  0: entry
  1: exit
  2: branch true
  3: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  2 -> 3 false
  3 -> 1 normal
`,
		},
		{
			name: "interleaved blocks and ifs",
			src:  "let a = 1\nif true {\n\tlet b = 2\n}\nlet c = 3\nif false {\n\tlet d = 4\n}\nlet e = 5",
			want: `nodes:
  0: entry
  1: exit
  2: block[let a]
  3: branch true
  4: block[let b]
  5: block[let c]
  6: branch false
  7: block[let d]
  8: block[let e]
edges:
  0 -> 2 normal
  2 -> 3 normal
  3 -> 4 true
  4 -> 5 normal
  3 -> 5 false
  5 -> 6 normal
  6 -> 7 true
  7 -> 8 normal
  6 -> 8 false
  8 -> 1 normal
`,
		},
		{
			name: "while loop",
			src:  "while true {\n\tlet a = 1\n}",
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: block[let a]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 2 normal
  2 -> 1 false
`,
		},
		{
			name: "while with trailing statement",
			src:  "let i = 0\nwhile i < 3 {\n\ti = i + 1\n}\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: block[let i]
  3: loop (i < 3)
  4: block[assign i]
  5: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 normal
  3 -> 4 true
  4 -> 3 normal
  3 -> 5 false
  5 -> 1 normal
`,
		},
		{
			name: "sequential whiles",
			src:  "while true {\n\tlet x = 1\n}\nwhile false {\n\tlet y = 2\n}\nlet z = 3",
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: block[let x]
  4: loop false
  5: block[let y]
  6: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 2 normal
  2 -> 4 false
  4 -> 5 true
  5 -> 4 normal
  4 -> 6 false
  6 -> 1 normal
`,
		},
		{
			name: "nested whiles",
			src:  "while true {\n\twhile false {\n\t\tlet x = 1\n\t}\n}\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: loop false
  4: block[let x]
  5: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 4 true
  4 -> 3 normal
  3 -> 2 false
  2 -> 5 false
  5 -> 1 normal
`,
		},
		{
			name: "while containing if",
			src:  "while true {\n\tif false {\n\t\tlet x = 1\n\t}\n}\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: branch false
  4: block[let x]
  5: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 4 true
  4 -> 2 normal
  3 -> 2 false
  2 -> 5 false
  5 -> 1 normal
`,
		},
		{
			name: "while body returns",
			src:  "while true {\n\treturn 1\n}\nlet z = 2",
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: block[return]
  4: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 1 return
  2 -> 4 false
  4 -> 1 normal
`,
		},
		{
			name: "folded if splices the true branch",
			src:  "if true {\n\tlet a = 1\n}\nlet z = 2",
			fold: true,
			want: `nodes:
  0: entry
  1: exit
  2: block[let a]
  3: block[let z]
edges:
  0 -> 2 normal
  2 -> 3 normal
  3 -> 1 normal
`,
		},
		{
			name: "folded if drops the dead branch",
			src:  "if false {\n\tlet a = 1\n}\nlet z = 2",
			fold: true,
			want: `nodes:
  0: entry
  1: exit
  2: block[let z]
edges:
  0 -> 2 normal
  2 -> 1 normal
`,
		},
		{
			name: "folded if keeps the else branch",
			src:  "if false {\n\tlet a = 1\n} else {\n\tlet b = 2\n}",
			fold: true,
			want: `nodes:
  0: entry
  1: exit
  2: block[let b]
edges:
  0 -> 2 normal
  2 -> 1 normal
`,
		},
		{
			name: "folded else if chain",
			src:  "if false {\n\tlet a = 1\n} else if true {\n\tlet b = 2\n} else {\n\tlet c = 3\n}",
			fold: true,
			want: `nodes:
  0: entry
  1: exit
  2: block[let b]
edges:
  0 -> 2 normal
  2 -> 1 normal
`,
		},
		{
			name: "folding leaves loops alone",
			src:  "while true {\n\tlet a = 1\n}",
			fold: true,
			want: `nodes:
  0: entry
  1: exit
  2: loop true
  3: block[let a]
edges:
  0 -> 2 normal
  2 -> 3 true
  3 -> 2 normal
  2 -> 1 false
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arena, g := lowerSource(t, tt.src, tt.fold)
			if got := g.Dump(arena); got != tt.want {
				t.Errorf("graph mismatch\ngot:\n%s\nwant:\n%s", got, tt.want)
			}
			if err := g.Validate(); err != nil {
				t.Errorf("Validate failed: %v", err)
			}
		})
	}
}

func TestLowerUnreachable(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []NodeIndex
	}{
		{"fully connected", "let a = 1\nif true {\n\tlet b = 2\n}", nil},
		{"statement after return", "return 1\nlet z = 2", []NodeIndex{3}},
		{"statements after full if return", "if true {\n\treturn 1\n} else {\n\treturn 2\n}\nlet z = 3", []NodeIndex{5}},
		{"if after return keeps dead head only", "return 1\nif true {\n\tlet x = 2\n}\nlet z = 3", []NodeIndex{3, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, g := lowerSource(t, tt.src, false)
			got := g.FindUnreachableBlocks()
			if len(got) != len(tt.want) {
				t.Fatalf("unreachable = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("unreachable = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestLowerFoldedReturnValue(t *testing.T) {
	_, g := lowerSource(t, "if true {\n\treturn 1\n}\nreturn 2", true)
	if g.HasConditions() {
		t.Error("folded graph still contains condition nodes")
	}
	v := g.Value()
	if v == nil {
		t.Fatal("graph has no folded value")
	}
	if !v.Equal(eval.Number(1)) {
		t.Errorf("folded value = %+v, want 1", *v)
	}
	if !g.HasEarlyReturn() {
		t.Error("graph should report an early return")
	}
	if unreachable := g.FindUnreachableBlocks(); len(unreachable) != 1 {
		t.Errorf("unreachable = %v, want exactly the dead return", unreachable)
	}
}

func TestLowerDepthLimit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		b.WriteString("if true {\n")
	}
	b.WriteString("let a = 1\n")
	for i := 0; i < 6; i++ {
		b.WriteString("}\n")
	}

	arena := ast.NewArena()
	block, err := parser.ParseFunctionBody(arena, b.String())
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if _, err := Lower(arena, block, nil, WithMaxDepth(3)); !errors.Is(err, ErrTooDeeplyNested) {
		t.Errorf("Lower returned %v, want ErrTooDeeplyNested", err)
	}
	if _, err := Lower(arena, block, nil); err != nil {
		t.Errorf("Lower with the default limit failed: %v", err)
	}
}

func TestLowerEmptyWhileBody(t *testing.T) {
	arena := ast.NewArena()
	block, err := parser.ParseFunctionBody(arena, "while true {\n}")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Lower(arena, block, nil)
	var derr *diag.Error
	if !errors.As(err, &derr) {
		t.Fatalf("Lower returned %v, want a diagnostic error", err)
	}
	if !strings.Contains(derr.Diagnostic.Message, "not yet supported") {
		t.Errorf("unexpected message %q", derr.Diagnostic.Message)
	}
}
