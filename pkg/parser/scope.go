package parser

import "github.com/aweary/compiler/pkg/ast"

// scopeStack tracks lexical scopes during parsing. Names resolve
// innermost-first, so a block-local let shadows a parameter of the
// same name, which in turn shadows a module-level definition.
type scopeStack struct {
	scopes []map[string]ast.Binding
}

func newScopeStack() *scopeStack {
	return &scopeStack{scopes: []map[string]ast.Binding{{}}}
}

func (s *scopeStack) push() {
	s.scopes = append(s.scopes, map[string]ast.Binding{})
}

func (s *scopeStack) pop() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// define binds name in the innermost scope, shadowing any outer binding.
func (s *scopeStack) define(name string, binding ast.Binding) {
	s.scopes[len(s.scopes)-1][name] = binding
}

func (s *scopeStack) resolve(name string) (ast.Binding, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if b, ok := s.scopes[i][name]; ok {
			return b, true
		}
	}
	return ast.Binding{}, false
}

// suggest returns the visible name closest to the given one, if any
// sits within an edit distance of two. Used for "did you mean"
// diagnostics on unresolved references.
func (s *scopeStack) suggest(name string) (string, bool) {
	best := ""
	bestDist := 3
	for i := len(s.scopes) - 1; i >= 0; i-- {
		for candidate := range s.scopes[i] {
			if candidate == name {
				continue
			}
			d := editDistance(name, candidate)
			if d < bestDist {
				best = candidate
				bestDist = d
			}
		}
	}
	return best, best != ""
}

// editDistance computes the Levenshtein distance between two strings.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
