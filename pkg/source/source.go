// Package source holds source file contents and byte-offset spans, and maps
// offsets back to 1-based line/column positions for diagnostics.
package source

import (
	"sort"
	"unicode/utf8"
)

// File is a single .ws source file with precomputed line offsets.
type File struct {
	Name        string
	Content     string
	lineOffsets []int // byte offset of each line start
}

// NewFile builds a File and its line offset table.
func NewFile(name, content string) *File {
	f := &File{Name: name, Content: content}
	f.lineOffsets = []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
	return f
}

// Position returns the 1-based line and column for a byte offset.
// Columns count runes, not bytes.
func (f *File) Position(offset int) (line, col int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(f.Content) {
		offset = len(f.Content)
	}
	i := sort.Search(len(f.lineOffsets), func(i int) bool { return f.lineOffsets[i] > offset }) - 1
	if i < 0 {
		i = 0
	}
	col = 1
	pos := f.lineOffsets[i]
	for pos < offset {
		_, size := utf8.DecodeRuneInString(f.Content[pos:])
		if size <= 0 {
			size = 1
		}
		if pos+size > offset {
			break
		}
		col++
		pos += size
	}
	return i + 1, col
}

// LineText returns the text of a 1-based line without its trailing newline.
// Used for caret rendering in diagnostics.
func (f *File) LineText(line int) string {
	if line < 1 || line > len(f.lineOffsets) {
		return ""
	}
	start := f.lineOffsets[line-1]
	end := len(f.Content)
	if line < len(f.lineOffsets) {
		end = f.lineOffsets[line] - 1
	}
	if end < start {
		end = start
	}
	return f.Content[start:end]
}

// Span is a half-open byte range [Start, End) into a source file.
type Span struct {
	Start uint32
	End   uint32
}

// NewSpan builds a span from byte offsets.
func NewSpan(start, end int) Span {
	return Span{Start: uint32(start), End: uint32(end)}
}

// Merge returns the smallest span covering both s and other.
func (s Span) Merge(other Span) Span {
	merged := s
	if other.Start < merged.Start {
		merged.Start = other.Start
	}
	if other.End > merged.End {
		merged.End = other.End
	}
	return merged
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int {
	if s.End < s.Start {
		return 0
	}
	return int(s.End - s.Start)
}
