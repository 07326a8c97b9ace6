package scanner

import (
	"path/filepath"
	"strings"
)

// Pattern is a single .wsignore rule. Patterns follow gitignore-style
// conventions: `!` negates, a trailing `/` matches a directory and
// everything under it, a leading `/` anchors to the project root, and
// `**` spans any number of directories. Plain segments may use the
// usual glob wildcards.
type Pattern struct {
	raw      string
	negated  bool
	dirOnly  bool
	anchored bool
	segments []string
}

// ParsePattern parses one line of a .wsignore file.
func ParsePattern(line string) Pattern {
	p := Pattern{raw: line}

	if strings.HasPrefix(line, "!") {
		p.negated = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.HasPrefix(line, "/") {
		p.anchored = true
		line = line[1:]
	}

	p.segments = strings.Split(line, "/")
	return p
}

// Negated reports whether this pattern re-includes matching paths.
func (p Pattern) Negated() bool {
	return p.negated
}

// Match reports whether the slash-separated relative path matches this
// pattern. Paths always name files; directory rules match by prefix.
func (p Pattern) Match(relPath string) bool {
	path := strings.Split(relPath, "/")

	if p.anchored {
		return matchSegments(p.segments, path, p.dirOnly)
	}
	for i := range path {
		if matchSegments(p.segments, path[i:], p.dirOnly) {
			return true
		}
	}
	return false
}

func matchSegments(pat, path []string, dirOnly bool) bool {
	if len(pat) == 0 {
		if dirOnly {
			return len(path) > 0
		}
		return len(path) == 0
	}
	if pat[0] == "**" {
		for i := 0; i <= len(path); i++ {
			if matchSegments(pat[1:], path[i:], dirOnly) {
				return true
			}
		}
		return false
	}
	if len(path) == 0 {
		return false
	}
	ok, err := filepath.Match(pat[0], path[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pat[1:], path[1:], dirOnly)
}

// ignored applies the rules in order. A later negation overrides an
// earlier match, as in gitignore.
func ignored(relPath string, patterns []Pattern) bool {
	skip := false
	for _, p := range patterns {
		if p.Match(relPath) {
			skip = !p.Negated()
		}
	}
	return skip
}
