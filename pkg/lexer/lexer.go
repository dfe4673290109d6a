// Package lexer implements MathEX's tokenizer: a stateful scanner driven by
// a parser-owned flag word that describes which token kinds are legal next.
//
// The flag word is kept as a bitset.BitSet rather than a plain int so each
// named flag reads as a bit position instead of a magic power of two — the
// same shape godoctor's dataflow analyses use for live/reaching flow-flag
// sets, just applied to lexer state instead of control-flow state.
package lexer

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/source"
)

// Flag bit positions, matching spec's TNUMBER/TWORD/TOPEN/TCLOSE/TOP/UNARY/
// COMMA/TOP_LEVEL.
const (
	BitNumber uint = iota
	BitWord
	BitOpen
	BitClose
	BitOp
	BitUnary
	BitComma
	BitTopLevel
)

// Flags is the parser-owned flag word the tokenizer reads and mutates on
// every lexeme.
type Flags struct {
	bits *bitset.BitSet
}

// NewFlags builds a Flags value with exactly the given bits set.
func NewFlags(on ...uint) *Flags {
	f := &Flags{bits: bitset.New(8)}
	f.Reset(on...)
	return f
}

// DefaultFlags is the flag word a fresh top-level parse starts with: a
// number, a word, or an open paren may begin the first token.
func DefaultFlags() *Flags {
	return NewFlags(BitNumber, BitWord, BitOpen)
}

// Has reports whether bit is currently set.
func (f *Flags) Has(bit uint) bool { return f.bits.Test(bit) }

// Set turns bit on without disturbing the others.
func (f *Flags) Set(bit uint) { f.bits.Set(bit) }

// Clear turns bit off without disturbing the others.
func (f *Flags) Clear(bit uint) { f.bits.Clear(bit) }

// Reset replaces the entire flag word with exactly the given bits, the
// "post-flags = ..." wholesale reassignment most of the tokenizer's
// branches perform.
func (f *Flags) Reset(on ...uint) {
	f.bits.ClearAll()
	for _, b := range on {
		f.bits.Set(b)
	}
}

// SetTopLevel is called by the parser before every token: the TOP_LEVEL bit
// reflects paren/call-frame nesting depth, which only the parser tracks, so
// it is pushed into the flag word rather than derived by the tokenizer.
func (f *Flags) SetTopLevel(v bool) {
	if v {
		f.bits.Set(BitTopLevel)
	} else {
		f.bits.Clear(BitTopLevel)
	}
}

// TokenType classifies a scanned lexeme.
type TokenType int

const (
	TEOF TokenType = iota
	TNumber
	TWord
	TLParen
	TRParen
	TOperator
)

// Token is one scanned lexeme.
type Token struct {
	Type     TokenType
	Literal  string
	Line     int
	Column   int
	StartPos int
	EndPos   int
}

// Lexer scans a source.Unit's content one token at a time.
type Lexer struct {
	unit *source.Unit
	src  []byte
	pos  int
	line int
	col  int
}

// New creates a Lexer over unit's content.
func New(unit *source.Unit) *Lexer {
	return &Lexer{unit: unit, src: []byte(unit.Content), line: 1, col: 1}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isFirstVarChar matches §6's identifier-start class.
func isFirstVarChar(c byte) bool {
	if c == '$' {
		return true
	}
	return c >= '@' && c != '^' && c != '|'
}

func isVarChar(c byte) bool {
	return isFirstVarChar(c) || c == '#' || isDigit(c)
}

func isHSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\v' || c == '\f'
}

func isOneCharUnary(c byte) bool {
	return c == '-' || c == '!' || c == '^'
}

// advance moves the cursor forward n bytes, tracking line/column.
func (l *Lexer) advance(n int) {
	for i := 0; i < n; i++ {
		if l.src[l.pos+i] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
	}
	l.pos += n
}

func (l *Lexer) lexErr(code int, msg string) error {
	return &errors.LexError{
		Position: errors.Position{Line: l.line, Column: l.col, StartPos: l.pos, EndPos: l.pos, Source: l.unit},
		Code:     code,
		Msg:      msg,
	}
}

// Next scans and returns the next token using flags, mutating flags for the
// following call exactly as spec.md §4.D describes. It returns a Token of
// type TEOF, positioned at the end of input, or an error for any of the five
// lexical failure modes.
func (l *Lexer) Next(flags *Flags) (Token, error) {
	for {
		if l.pos >= len(l.src) {
			return Token{Type: TEOF, Line: l.line, Column: l.col, StartPos: l.pos, EndPos: l.pos}, nil
		}
		c := l.src[l.pos]
		startLine, startCol, startPos := l.line, l.col, l.pos

		switch {
		case c == '#':
			// Comment: consume up to, but not including, the newline — the
			// newline still participates in top-level comma synthesis.
			n := 0
			for l.pos+n < len(l.src) && l.src[l.pos+n] != '\n' {
				n++
			}
			l.advance(n)
			continue

		case c == '\n':
			n := 0
			for l.pos+n < len(l.src) && isSpaceByte(l.src[l.pos+n]) {
				n++
			}
			moreFollows := false
			if l.pos+n < len(l.src) && l.src[l.pos+n] != ')' {
				moreFollows = true
			}
			emitComma := false
			if flags.Has(BitTopLevel) {
				if moreFollows {
					flags.Reset(BitNumber, BitWord, BitOpen, BitComma)
					emitComma = true
				} else {
					flags.Clear(BitComma)
				}
			}
			l.advance(n)
			if emitComma {
				return Token{Type: TOperator, Literal: ",", Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil
			}
			continue

		case isHSpace(c):
			n := 0
			for l.pos+n < len(l.src) && isHSpace(l.src[l.pos+n]) {
				n++
			}
			l.advance(n)
			continue

		case isDigit(c):
			if !flags.Has(BitNumber) {
				return Token{}, l.lexErr(errors.ErrUnexpectedNumber, "unexpected number")
			}
			n := 0
			for l.pos+n < len(l.src) && (isDigit(l.src[l.pos+n]) || l.src[l.pos+n] == '.') {
				n++
			}
			flags.Reset(BitOp, BitClose)
			lit := string(l.src[l.pos : l.pos+n])
			l.advance(n)
			return Token{Type: TNumber, Literal: lit, Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil

		case isFirstVarChar(c):
			if !flags.Has(BitWord) {
				return Token{}, l.lexErr(errors.ErrUnexpectedWord, "unexpected word")
			}
			n := 0
			for l.pos+n < len(l.src) && isVarChar(l.src[l.pos+n]) {
				n++
			}
			flags.Reset(BitOp, BitOpen, BitClose)
			lit := string(l.src[l.pos : l.pos+n])
			l.advance(n)
			return Token{Type: TWord, Literal: lit, Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil

		case c == '(' || c == ')':
			if c == '(' && flags.Has(BitOpen) {
				flags.Reset(BitNumber, BitWord, BitOpen, BitClose)
				l.advance(1)
				return Token{Type: TLParen, Literal: "(", Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil
			}
			if c == ')' && flags.Has(BitClose) {
				flags.Reset(BitOp, BitClose)
				l.advance(1)
				return Token{Type: TRParen, Literal: ")", Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil
			}
			return Token{}, l.lexErr(errors.ErrUnexpectedParen, "unexpected parenthesis")

		default:
			if !flags.Has(BitOp) {
				if !isOneCharUnary(c) {
					return Token{}, l.lexErr(errors.ErrMissingOperand, "missing expected operand")
				}
				flags.Reset(BitNumber, BitWord, BitOpen, BitUnary)
				lit := string(c)
				l.advance(1)
				return Token{Type: TOperator, Literal: lit, Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil
			}
			found := false
			n := 0
			for l.pos+n < len(l.src) {
				ch := l.src[l.pos+n]
				if isVarChar(ch) || isHSpace(ch) || ch == '\n' || ch == '(' || ch == ')' {
					break
				}
				if _, ok := FindOp(string(l.src[l.pos:l.pos+n+1]), 0); ok {
					found = true
				} else if found {
					break
				}
				n++
			}
			if !found {
				return Token{}, l.lexErr(errors.ErrUnknownOperator, "unknown operator")
			}
			flags.Reset(BitNumber, BitWord, BitOpen)
			lit := string(l.src[l.pos : l.pos+n])
			l.advance(n)
			return Token{Type: TOperator, Literal: lit, Line: startLine, Column: startCol, StartPos: startPos, EndPos: l.pos}, nil
		}
	}
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// opEntry pairs an operator lexeme with its tree op and unary-ness. "-" and
// "^" each appear twice: once as the ordinary binary/bitwise operator, once
// (last, unary=true) as the bare one-character form the tokenizer recognizes
// before the parser rewrites it to the internal "-u"/"^u" spelling. "!" has
// only that unary entry (rewritten to "!u"), since it is not a binary
// operator on its own.
var opTable = []struct {
	sym   string
	op    ast.Op
	unary bool
}{
	{"**", ast.OpPower, false},
	{"*", ast.OpMultiply, false},
	{"/", ast.OpDivide, false},
	{"%", ast.OpRemainder, false},
	{"+", ast.OpPlus, false},
	{"-", ast.OpMinus, false},
	{"<<", ast.OpShl, false},
	{">>", ast.OpShr, false},
	{"<", ast.OpLt, false},
	{"<=", ast.OpLe, false},
	{">", ast.OpGt, false},
	{">=", ast.OpGe, false},
	{"==", ast.OpEq, false},
	{"!=", ast.OpNe, false},
	{"&", ast.OpBitAnd, false},
	{"|", ast.OpBitOr, false},
	{"^", ast.OpBitXor, false},
	{"&&", ast.OpLogicalAnd, false},
	{"||", ast.OpLogicalOr, false},
	{"=", ast.OpAssign, false},
	{",", ast.OpComma, false},
	{"-u", ast.OpUnaryMinus, true},
	{"!u", ast.OpLogicalNot, true},
	{"^u", ast.OpBitwiseNot, true},
	{"-", ast.OpUnaryMinus, true},
	{"!", ast.OpLogicalNot, true},
	{"^", ast.OpBitwiseNot, true},
}

// FindOp looks up sym, filtered by unaryFilter: -1 matches either, 0 matches
// only non-unary entries, 1 matches only unary entries.
func FindOp(sym string, unaryFilter int) (ast.Op, bool) {
	for _, e := range opTable {
		if e.sym != sym {
			continue
		}
		if unaryFilter == -1 || (e.unary) == (unaryFilter == 1) {
			return e.op, true
		}
	}
	return 0, false
}
