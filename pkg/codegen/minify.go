package codegen

import (
	"strconv"

	"github.com/aweary/compiler/pkg/ast"
)

// minifier hands out short stable names for local bindings. Names are
// assigned in first-use order within one definition, so two runs over
// the same module produce identical output.
type minifier struct {
	assigned map[ast.Binding]string
	next     int
}

func newMinifier() *minifier {
	return &minifier{assigned: make(map[ast.Binding]string)}
}

func (m *minifier) name(b ast.Binding) string {
	if n, ok := m.assigned[b]; ok {
		return n
	}
	n := shortName(m.next)
	m.next++
	m.assigned[b] = n
	return n
}

// shortName builds names of the form $a_, $b_, ..., $z_, $a1_, $b1_
// and so on. The $ and _ wrapping keeps generated names out of the way
// of anything a user could write.
func shortName(n int) string {
	letter := byte('a' + n%26)
	if n < 26 {
		return "$" + string(letter) + "_"
	}
	return "$" + string(letter) + strconv.Itoa(n/26) + "_"
}
