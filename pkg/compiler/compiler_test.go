package compiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

func TestCompileSimpleModule(t *testing.T) {
	src := `pub fn add(a, b) {
	return a + b
}`
	res, err := Compile("math.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.Empty(t, res.Findings)
	assert.Equal(t, "math", res.Artifact.Module)
	assert.Len(t, res.Artifact.Hash, 64)
	assert.Contains(t, res.Artifact.JS, "export function add(a, b) {")
	assert.Contains(t, res.Artifact.JS, "// Compiled from module: math.ws")
}

func TestCompileParseErrorAbortsModule(t *testing.T) {
	src := `fn main() {
	return count
}`
	res, err := Compile("app.ws", src, Options{})
	require.NoError(t, err)

	require.Len(t, res.Artifact.Diagnostics, 1)
	d := res.Artifact.Diagnostics[0]
	assert.Equal(t, "error", d.Severity)
	assert.Contains(t, d.Message, `cannot find value "count"`)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, 9, d.Column)
	assert.True(t, res.HasErrors())
	assert.True(t, res.Artifact.HasErrors())
	assert.Empty(t, res.Artifact.JS)

	rendered := res.RenderDiagnostics()
	require.Len(t, rendered, 1)
	assert.Contains(t, rendered[0], "app.ws:2:9: error:")
}

func TestCompileUnreachableWarning(t *testing.T) {
	src := `pub fn main() {
	return 1
	let x = 2
}`
	res, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)

	require.Len(t, res.Artifact.Diagnostics, 1)
	d := res.Artifact.Diagnostics[0]
	assert.Equal(t, "warning", d.Severity)
	assert.Equal(t, "unreachable code", d.Message)
	assert.Equal(t, 3, d.Line)

	// Warnings do not block output.
	assert.False(t, res.HasErrors())
	assert.Contains(t, res.Artifact.JS, "return 1;")
	assert.NotContains(t, res.Artifact.JS, "let x")
}

func TestCompileFoldsConstantCalls(t *testing.T) {
	src := `fn base() {
	return 2
}
fn twice() {
	return base() * 3
}
pub fn main() {
	if twice() == 6 {
		return 1
	}
	return 0
}`
	res, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)
	assert.False(t, res.HasErrors())

	// The condition folded to true, so main compiles straight through
	// and the alternative is reported as dead.
	assert.NotContains(t, res.Artifact.JS, "if (")
	assert.Contains(t, res.Artifact.JS, "return 1;")
	require.Len(t, res.Findings, 1)
	root := res.Artifact.Diagnostics[0]
	assert.Equal(t, "warning", root.Severity)
	assert.Equal(t, "unreachable code", root.Message)
	assert.Equal(t, 11, root.Line)

	g := res.GraphFor("main")
	require.NotNil(t, g)
	assert.False(t, g.HasConditions())
}

func TestCompileFoldsParameters(t *testing.T) {
	src := `fn scale(n) {
	return n * 10
}
pub fn main() {
	if scale(3) == 30 {
		return 1
	}
	return 0
}`
	res, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)
	g := res.GraphFor("main")
	require.NotNil(t, g)
	assert.False(t, g.HasConditions())
}

func TestCompileNoFoldKeepsBranches(t *testing.T) {
	src := `pub fn main() {
	if true {
		return 1
	}
	return 2
}`
	res, err := Compile("app.ws", src, Options{NoFold: true, Timestamp: testTime})
	require.NoError(t, err)
	assert.Contains(t, res.Artifact.JS, "if (true) {")
	assert.Empty(t, res.Findings)

	folded, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)
	assert.NotContains(t, folded.Artifact.JS, "if (")
	require.Len(t, folded.Findings, 1)
}

func TestCompileRecursiveCallDoesNotFold(t *testing.T) {
	src := `fn again() {
	return again()
}
pub fn main() {
	if again() == 1 {
		return 1
	}
	return 0
}`
	res, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)

	assert.False(t, res.HasErrors())
	assert.Contains(t, res.Artifact.JS, "if (")
	g := res.GraphFor("main")
	require.NotNil(t, g)
	assert.True(t, g.HasConditions())
}

func TestCompileRecordsLoweringErrorsPerDefinition(t *testing.T) {
	src := `fn bad() {
	while true {
	}
}
fn good() {
	return 1
}`
	res, err := Compile("app.ws", src, Options{})
	require.NoError(t, err)

	require.Len(t, res.Artifact.Diagnostics, 1)
	assert.Equal(t, "error", res.Artifact.Diagnostics[0].Severity)
	assert.Contains(t, res.Artifact.Diagnostics[0].Message, "empty body")

	assert.Nil(t, res.GraphFor("bad"))
	assert.NotNil(t, res.GraphFor("good"))
	assert.Empty(t, res.Artifact.JS)
}

func TestCompileDefinitionNames(t *testing.T) {
	src := `fn helper() {
	return 1
}
component View() {
	state n = 0
}
const limit = 10`
	res, err := Compile("app.ws", src, Options{Timestamp: testTime})
	require.NoError(t, err)

	assert.Equal(t, []string{"helper", "View"}, res.DefinitionNames())
	assert.NotNil(t, res.GraphFor("View"))
	assert.Nil(t, res.GraphFor("limit"))
	assert.Nil(t, res.GraphFor("missing"))
}

func TestCompileMinify(t *testing.T) {
	src := `pub fn add(a, b) {
	return a + b
}`
	res, err := Compile("app.ws", src, Options{Minify: true, Timestamp: testTime})
	require.NoError(t, err)
	assert.Contains(t, res.Artifact.JS, "$a_")
	assert.NotContains(t, res.Artifact.JS, "\n  ")
}

func TestHashSource(t *testing.T) {
	a := HashSource("fn main() {}")
	b := HashSource("fn main() {}")
	c := HashSource("fn other() {}")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
