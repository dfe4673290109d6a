// Package errors defines MathEX's error taxonomy: lexical, structural, and
// resource failures, each carrying a Position and a Kind for display.
package errors

import (
	"fmt"
	"strings"

	"github.com/st9007a/MathEX/pkg/source"
)

// Position locates a single span in a source.Unit.
type Position struct {
	Line     int // 1-based
	Column   int // 1-based, byte offset within the line
	StartPos int // 0-based byte offset of the span start
	EndPos   int // 0-based byte offset of the span end (exclusive)
	Source   *source.Unit
}

// MathExError is implemented by every error MathEX's compiler produces.
type MathExError interface {
	error
	Pos() Position
	Kind() string // "Lexical", "Structural", or "Resource"
}

// Lexical error codes, matching spec.md §4.D / §7.
const (
	ErrUnexpectedNumber = -1
	ErrUnexpectedWord   = -2
	ErrUnexpectedParen  = -3
	ErrMissingOperand   = -4
	ErrUnknownOperator  = -5
)

// LexError reports a tokenizer failure: an unexpected number/word/paren, a
// missing operand, or an unrecognized operator lexeme.
type LexError struct {
	Position
	Code int
	Msg  string
}

func (e *LexError) Error() string { return fmt.Sprintf("lexical error at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *LexError) Pos() Position { return e.Position }
func (e *LexError) Kind() string  { return "Lexical" }

// ParseError reports a structural failure: unbalanced parens, an operator
// bound with too few operands, a non-variable assignment target, an unknown
// function/macro used with call syntax, or a malformed macro definition.
type ParseError struct {
	Position
	Msg string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Column, e.Msg) }
func (e *ParseError) Pos() Position { return e.Position }
func (e *ParseError) Kind() string  { return "Structural" }

// ResourceError reports an allocation failure during compile (variable,
// tree node, or function context block). Always fatal for that compilation.
type ResourceError struct {
	Position
	Msg string
}

func (e *ResourceError) Error() string { return fmt.Sprintf("resource error: %s", e.Msg) }
func (e *ResourceError) Pos() Position { return e.Position }
func (e *ResourceError) Kind() string  { return "Resource" }

// Display renders errs as compiler-style diagnostics, one per line, with the
// offending source line and a caret under the error's column when a
// source.Unit is attached.
func Display(errs []MathExError) string {
	var b strings.Builder
	for _, e := range errs {
		pos := e.Pos()
		name := "<input>"
		if pos.Source != nil {
			name = pos.Source.DisplayPath()
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s\n", name, pos.Line, pos.Column, e.Kind(), e.Error())
		if pos.Source != nil {
			if line := pos.Source.Line(pos.Line); line != "" {
				fmt.Fprintf(&b, "    %s\n", line)
				col := pos.Column
				if col < 1 {
					col = 1
				}
				fmt.Fprintf(&b, "    %s^\n", strings.Repeat(" ", col-1))
			}
		}
	}
	return b.String()
}
