// Package source wraps a single compilation unit's text with the display
// identity error reporting needs, independent of where the text came from
// (a file, a REPL line, or a one-shot eval call).
package source

import (
	"path/filepath"
	"strings"
)

// Unit is one piece of source text MathEX compiles.
type Unit struct {
	Name    string // display name, e.g. "formula.mx", "<eval>", "<repl>"
	Path    string // full path, empty for REPL/eval input
	Content string

	lines []string // lazily split, cached
}

// New creates a Unit with an explicit name and path.
func New(name, path, content string) *Unit {
	return &Unit{Name: name, Path: path, Content: content}
}

// FromFile creates a Unit for a file already read into content.
func FromFile(path, content string) *Unit {
	return New(filepath.Base(path), path, content)
}

// FromEval creates a Unit for a one-shot, non-interactive compile call.
func FromEval(content string) *Unit {
	return New("<eval>", "", content)
}

// FromREPL creates a Unit for a single REPL input line.
func FromREPL(content string) *Unit {
	return New("<repl>", "", content)
}

// DisplayPath prefers Path, falling back to Name when there is no file.
func (u *Unit) DisplayPath() string {
	if u.Path != "" {
		return u.Path
	}
	return u.Name
}

// Line returns the 1-based source line n, or "" if out of range.
func (u *Unit) Line(n int) string {
	if u.lines == nil {
		u.lines = strings.Split(u.Content, "\n")
	}
	if n < 1 || n > len(u.lines) {
		return ""
	}
	return u.lines[n-1]
}
