// Package cache persists build artifacts between compiler runs. It is
// an LRU keyed by source path, serialized with msgpack under the
// project's .wsc directory. An entry only counts as a hit when the
// stored source hash still matches, so edited files always recompile.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aweary/compiler/pkg/compiler"
)

// DefaultMaxEntries bounds the store when no option overrides it.
const DefaultMaxEntries = 512

// DefaultPath is where the store lives relative to the project root.
const DefaultPath = ".wsc/cache.msgpack"

// Entry is one cached compilation.
type Entry struct {
	Path       string            `msgpack:"path"`
	Hash       string            `msgpack:"hash"`
	Artifact   compiler.Artifact `msgpack:"artifact"`
	CreatedAt  time.Time         `msgpack:"created_at"`
	AccessedAt time.Time         `msgpack:"accessed_at"`
}

// listItem is a node in the LRU list.
type listItem struct {
	Entry
	prev *listItem
	next *listItem
}

// list is a doubly-linked list with the most recently used entry at the
// front.
type list struct {
	head *listItem
	tail *listItem
	len  int
}

func (l *list) moveToFront(item *listItem) {
	if item == l.head {
		return
	}
	if item.prev != nil {
		item.prev.next = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	}
	if item == l.tail {
		l.tail = item.prev
	}
	item.prev = nil
	item.next = l.head
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
}

func (l *list) pushFront(item *listItem) {
	item.next = l.head
	item.prev = nil
	if l.head != nil {
		l.head.prev = item
	}
	l.head = item
	if l.tail == nil {
		l.tail = item
	}
	l.len++
}

func (l *list) remove(item *listItem) {
	if item.prev != nil {
		item.prev.next = item.next
	} else {
		l.head = item.next
	}
	if item.next != nil {
		item.next.prev = item.prev
	} else {
		l.tail = item.prev
	}
	l.len--
}

func (l *list) removeBack() *listItem {
	if l.tail == nil {
		return nil
	}
	item := l.tail
	l.remove(item)
	return item
}

// Store is the artifact cache. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	items      map[string]*listItem
	lru        *list
	maxEntries int
	path       string

	hits      int64
	misses    int64
	evictions int64
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries bounds the number of cached artifacts.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithPath sets the on-disk location used by Load and Flush.
func WithPath(path string) Option {
	return func(s *Store) { s.path = path }
}

// New builds an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items:      make(map[string]*listItem),
		lru:        &list{},
		maxEntries: DefaultMaxEntries,
		path:       DefaultPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached artifact for path when the stored source hash
// matches hash. A stale entry is dropped and counts as a miss.
func (s *Store) Get(path, hash string) (compiler.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[path]
	if !ok {
		s.misses++
		return compiler.Artifact{}, false
	}
	if item.Hash != hash {
		s.lru.remove(item)
		delete(s.items, path)
		s.misses++
		return compiler.Artifact{}, false
	}
	item.AccessedAt = time.Now()
	s.lru.moveToFront(item)
	s.hits++
	return item.Artifact, true
}

// Put stores the artifact for path, evicting the least recently used
// entries when the store is over capacity.
func (s *Store) Put(path, hash string, artifact compiler.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if item, ok := s.items[path]; ok {
		item.Hash = hash
		item.Artifact = artifact
		item.AccessedAt = now
		s.lru.moveToFront(item)
		return
	}

	item := &listItem{Entry: Entry{
		Path:       path,
		Hash:       hash,
		Artifact:   artifact,
		CreatedAt:  now,
		AccessedAt: now,
	}}
	s.items[path] = item
	s.lru.pushFront(item)

	for s.maxEntries > 0 && s.lru.len > s.maxEntries {
		evicted := s.lru.removeBack()
		if evicted == nil {
			break
		}
		delete(s.items, evicted.Path)
		s.evictions++
	}
}

// Delete removes one path from the store.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[path]
	if !ok {
		return
	}
	s.lru.remove(item)
	delete(s.items, path)
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[string]*listItem)
	s.lru = &list{}
}

// Len returns the number of cached artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Path returns the on-disk location the store loads from and flushes to.
func (s *Store) Path() string { return s.path }

// Load reads the store from disk. A missing file is a clean start, not
// an error.
func (s *Store) Load() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening cache: %w", err)
	}
	defer f.Close()

	var entries []Entry
	if err := msgpack.NewDecoder(f).Decode(&entries); err != nil {
		return fmt.Errorf("decoding cache: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*listItem, len(entries))
	s.lru = &list{}
	// Entries are saved most recent first, so pushing front in reverse
	// restores the original order.
	for i := len(entries) - 1; i >= 0; i-- {
		item := &listItem{Entry: entries[i]}
		s.items[item.Path] = item
		s.lru.pushFront(item)
	}
	return nil
}

// Flush writes the store to disk, creating the parent directory when
// needed.
func (s *Store) Flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	defer f.Close()

	s.mu.RLock()
	entries := make([]Entry, 0, s.lru.len)
	for item := s.lru.head; item != nil; item = item.next {
		entries = append(entries, item.Entry)
	}
	s.mu.RUnlock()

	if err := msgpack.NewEncoder(f).Encode(entries); err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	return nil
}

// Stats holds the store's usage counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Entries:   len(s.items),
		Hits:      s.hits,
		Misses:    s.misses,
		Evictions: s.evictions,
	}
}

// HitRate returns the fraction of lookups served from the store.
func (s *Store) HitRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := s.hits + s.misses
	if total == 0 {
		return 0
	}
	return float64(s.hits) / float64(total)
}
