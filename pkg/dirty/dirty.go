// Package dirty tracks which source files have changed between builds.
// It records a content hash per file and persists the state as JSON so
// watch sessions survive restarts without recompiling the world.
package dirty

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultStatePath is where the tracker state lives relative to the
// project root.
const DefaultStatePath = ".wsc/dirty.json"

// fileState is the recorded hash of a single file.
type fileState struct {
	Path     string `json:"path"`
	Hash     string `json:"hash"`
	LastSeen int64  `json:"last_seen"`
}

// trackerState is the on-disk JSON structure.
type trackerState struct {
	Version int         `json:"version"`
	Files   []fileState `json:"files"`
}

// Tracker remembers the last seen hash of each source file. Safe for
// concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	files map[string]fileState
	path  string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStatePath sets where Load and Flush keep the tracker state.
func WithStatePath(path string) Option {
	return func(t *Tracker) { t.path = path }
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		files: make(map[string]fileState),
		path:  DefaultStatePath,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// hashContent computes the SHA256 hex digest of content.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Check records the current hash of path and reports whether the file
// is new or its content changed since the last check.
func (t *Tracker) Check(path string, content []byte) bool {
	path = filepath.Clean(path)
	hash := hashContent(content)

	t.mu.Lock()
	defer t.mu.Unlock()

	existing, exists := t.files[path]
	if exists && existing.Hash == hash {
		return false
	}

	t.files[path] = fileState{
		Path:     path,
		Hash:     hash,
		LastSeen: time.Now().Unix(),
	}
	return true
}

// Changed reports whether path is new or changed without recording the
// new hash.
func (t *Tracker) Changed(path string, content []byte) bool {
	path = filepath.Clean(path)
	hash := hashContent(content)

	t.mu.RLock()
	defer t.mu.RUnlock()

	existing, exists := t.files[path]
	return !exists || existing.Hash != hash
}

// Seen reports whether path is tracked.
func (t *Tracker) Seen(path string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.files[filepath.Clean(path)]
	return exists
}

// Hash returns the recorded hash for a tracked file.
func (t *Tracker) Hash(path string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	state, exists := t.files[filepath.Clean(path)]
	return state.Hash, exists
}

// Forget removes one path from tracking.
func (t *Tracker) Forget(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, filepath.Clean(path))
}

// Prune drops every tracked path that is not in keep and returns the
// removed paths. Watch uses it to notice deleted sources.
func (t *Tracker) Prune(keep []string) []string {
	keeping := make(map[string]bool, len(keep))
	for _, path := range keep {
		keeping[filepath.Clean(path)] = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	var removed []string
	for path := range t.files {
		if !keeping[path] {
			removed = append(removed, path)
			delete(t.files, path)
		}
	}
	return removed
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// Clear removes all tracked files.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]fileState)
}

// Load restores the tracker state from disk. A missing state file is a
// clean start, not an error.
func (t *Tracker) Load() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening tracker state: %w", err)
	}
	defer f.Close()

	var state trackerState
	if err := json.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("decoding tracker state: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.files = make(map[string]fileState, len(state.Files))
	for _, fs := range state.Files {
		t.files[fs.Path] = fs
	}
	return nil
}

// Flush persists the tracker state, creating the parent directory when
// needed.
func (t *Tracker) Flush() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	t.mu.RLock()
	files := make([]fileState, 0, len(t.files))
	for _, fs := range t.files {
		files = append(files, fs)
	}
	t.mu.RUnlock()

	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("creating state file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(trackerState{Version: 1, Files: files}); err != nil {
		return fmt.Errorf("encoding tracker state: %w", err)
	}
	return nil
}
