// Package scanner discovers ws source modules under a project root. It
// honors .wsignore rules, skips hidden and build directories, and
// returns files in a deterministic order so builds are reproducible.
package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SourceExt is the file extension of ws modules.
const SourceExt = ".ws"

// IgnoreFileName is the per-directory ignore file.
const IgnoreFileName = ".wsignore"

// FileInfo describes one discovered source module.
type FileInfo struct {
	Path     string // Relative path from root, slash separated
	FullPath string // Absolute path
	Module   string // Module name derived from the file name
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden  bool     // Skip dotfiles and dot-directories
	ExcludeDirs []string // Directory names never descended into
}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden: true,
		ExcludeDirs: []string{
			"node_modules",
			"dist",
			"build",
			"vendor",
			".git",
			".idea",
			".vscode",
		},
	}
}

// Scanner walks a project tree looking for source modules.
type Scanner struct {
	opts Options
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// Scan recursively walks root and returns every ws module it finds,
// sorted by relative path. Symlinks are not followed.
func (s *Scanner) Scan(root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	patterns, err := loadIgnorePatterns(absRoot)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	var files []FileInfo

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil || relPath == "." {
			return nil
		}
		relPathSlash := filepath.ToSlash(relPath)

		if s.opts.SkipHidden && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if s.isExcluded(info.Name()) {
				return filepath.SkipDir
			}
			nested, err := loadIgnorePatterns(path)
			if err == nil && len(nested) > 0 {
				patterns = append(patterns, nested...)
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if filepath.Ext(path) != SourceExt {
			return nil
		}
		if ignored(relPathSlash, patterns) {
			return nil
		}

		files = append(files, FileInfo{
			Path:     relPathSlash,
			FullPath: path,
			Module:   strings.TrimSuffix(info.Name(), SourceExt),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// isExcluded checks if the directory name is never descended into.
func (s *Scanner) isExcluded(name string) bool {
	for _, exclude := range s.opts.ExcludeDirs {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// loadIgnorePatterns reads the .wsignore file in dir, if any.
func loadIgnorePatterns(dir string) ([]Pattern, error) {
	file, err := os.Open(filepath.Join(dir, IgnoreFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []Pattern
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParsePattern(line))
	}
	return patterns, sc.Err()
}

// Scan walks root with default options.
func Scan(root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(root)
}
