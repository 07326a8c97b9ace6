package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweary/compiler/pkg/compiler"
)

func artifact(module, js string) compiler.Artifact {
	return compiler.Artifact{
		Module: module,
		Hash:   compiler.HashSource(js),
		JS:     js,
	}
}

func TestStore_Basic(t *testing.T) {
	s := New(WithMaxEntries(3))

	s.Put("app.ws", "hash_a", artifact("app", "export function a() {}\n"))
	s.Put("lib.ws", "hash_b", artifact("lib", "export function b() {}\n"))

	assert.Equal(t, 2, s.Len())

	got, found := s.Get("app.ws", "hash_a")
	require.True(t, found)
	assert.Equal(t, "app", got.Module)
	assert.Contains(t, got.JS, "function a")
}

func TestStore_StaleHashMiss(t *testing.T) {
	s := New()

	s.Put("app.ws", "old_hash", artifact("app", "export function a() {}\n"))

	// The file changed on disk, so the stored entry no longer applies.
	_, found := s.Get("app.ws", "new_hash")
	assert.False(t, found, "stale entry should miss")
	assert.Equal(t, 0, s.Len(), "stale entry should be dropped")

	stats := s.Stats()
	assert.Equal(t, int64(0), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
}

func TestStore_LRUEviction(t *testing.T) {
	s := New(WithMaxEntries(3))

	s.Put("a.ws", "ha", artifact("a", "a"))
	s.Put("b.ws", "hb", artifact("b", "b"))
	s.Put("c.ws", "hc", artifact("c", "c"))

	// Access 'a.ws' to make it most recently used.
	s.Get("a.ws", "ha")

	// Adding a fourth entry should evict 'b.ws'.
	s.Put("d.ws", "hd", artifact("d", "d"))

	assert.Equal(t, 3, s.Len())

	_, found := s.Get("b.ws", "hb")
	assert.False(t, found, "b.ws should have been evicted")

	_, found = s.Get("a.ws", "ha")
	assert.True(t, found, "a.ws should still be present")

	_, found = s.Get("d.ws", "hd")
	assert.True(t, found, "d.ws should be present")

	assert.Equal(t, int64(1), s.Stats().Evictions)
}

func TestStore_Update(t *testing.T) {
	s := New()

	s.Put("app.ws", "h1", artifact("app", "old"))
	s.Put("app.ws", "h2", artifact("app", "new"))

	assert.Equal(t, 1, s.Len())

	got, found := s.Get("app.ws", "h2")
	require.True(t, found)
	assert.Equal(t, "new", got.JS)
}

func TestStore_Delete(t *testing.T) {
	s := New()

	s.Put("a.ws", "ha", artifact("a", "a"))
	s.Put("b.ws", "hb", artifact("b", "b"))

	s.Delete("a.ws")

	assert.Equal(t, 1, s.Len())

	_, found := s.Get("a.ws", "ha")
	assert.False(t, found)

	_, found = s.Get("b.ws", "hb")
	assert.True(t, found)
}

func TestStore_Clear(t *testing.T) {
	s := New()

	s.Put("a.ws", "ha", artifact("a", "a"))
	s.Put("b.ws", "hb", artifact("b", "b"))

	s.Clear()

	assert.Equal(t, 0, s.Len())
}

func TestStore_FlushLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".wsc", "cache.msgpack")

	s := New(WithPath(path))
	art := artifact("app", "export function main() {}\n")
	art.Diagnostics = []compiler.Diagnostic{{
		Severity: "warning",
		Message:  "unreachable code",
		Line:     3,
		Column:   5,
	}}
	s.Put("app.ws", "hash_a", art)
	s.Put("lib.ws", "hash_b", artifact("lib", "export const x = 1;\n"))

	require.NoError(t, s.Flush())

	loaded := New(WithPath(path))
	require.NoError(t, loaded.Load())

	assert.Equal(t, 2, loaded.Len())

	got, found := loaded.Get("app.ws", "hash_a")
	require.True(t, found)
	assert.Equal(t, art.JS, got.JS)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "unreachable code", got.Diagnostics[0].Message)
	assert.Equal(t, 3, got.Diagnostics[0].Line)
}

func TestStore_LoadPreservesOrder(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cache.msgpack")

	s := New(WithMaxEntries(3), WithPath(path))
	s.Put("a.ws", "ha", artifact("a", "a"))
	s.Put("b.ws", "hb", artifact("b", "b"))
	s.Put("c.ws", "hc", artifact("c", "c"))
	require.NoError(t, s.Flush())

	loaded := New(WithMaxEntries(3), WithPath(path))
	require.NoError(t, loaded.Load())

	// 'a.ws' was the least recently used entry before the flush, so it
	// is the one to go when a fourth entry arrives.
	loaded.Put("d.ws", "hd", artifact("d", "d"))

	_, found := loaded.Get("a.ws", "ha")
	assert.False(t, found, "a.ws should have been evicted")

	_, found = loaded.Get("c.ws", "hc")
	assert.True(t, found, "c.ws should still be present")
}

func TestStore_LoadMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nonexistent.msgpack")

	s := New(WithPath(path))
	require.NoError(t, s.Load(), "loading a missing file should not error")
	assert.Equal(t, 0, s.Len())
}

func TestStore_Stats(t *testing.T) {
	s := New()

	s.Put("a.ws", "ha", artifact("a", "a"))
	s.Get("a.ws", "ha")
	s.Get("b.ws", "hb")

	stats := s.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	assert.Equal(t, 0.5, s.HitRate())
}

func TestStore_HitRateNoLookups(t *testing.T) {
	s := New()
	assert.Equal(t, 0.0, s.HitRate())
}
