// Package parser turns a token stream into an ast.Node tree: shunting-yard
// over an operand stack, an operator stack carrying two sentinel kinds
// ("(" for grouping, "{" for call frames), and an argument-frame stack for
// call-like constructs, plus a compile-time macro table.
package parser

import (
	"fmt"
	"strconv"

	"github.com/st9007a/MathEX/pkg/ast"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/lexer"
	"github.com/st9007a/MathEX/pkg/source"
	"github.com/st9007a/MathEX/pkg/value"
)

type parenState int

const (
	parenAllowed parenState = iota
	parenExpected
	parenForbidden
)

type osKind int

const (
	osOp osKind = iota
	osParenSentinel
	osCallSentinel
	osCallName
)

type osEntry struct {
	kind osKind
	op   ast.Op
	name string
}

type argFrame struct {
	esLen int
	args  []ast.Node
}

// Parser compiles one source.Unit against a shared environment and function
// registry. A Parser is single-use: call Parse once.
type Parser struct {
	lex   *lexer.Lexer
	flags *lexer.Flags
	env   *env.Environment
	reg   *funcs.Registry
	unit  *source.Unit

	macros map[string][]ast.Node

	es    []ast.Node
	os    []osEntry
	as    []argFrame
	depth int

	pendingWord string
	havePending bool
	pendingTok  lexer.Token
}

// New creates a Parser over unit, resolving variables against e and
// functions/macros against reg.
func New(unit *source.Unit, e *env.Environment, reg *funcs.Registry) *Parser {
	return &Parser{
		lex:    lexer.New(unit),
		flags:  lexer.DefaultFlags(),
		env:    e,
		reg:    reg,
		unit:   unit,
		macros: make(map[string][]ast.Node),
	}
}

func (p *Parser) structErr(tok lexer.Token, msg string) errors.MathExError {
	return &errors.ParseError{
		Position: errors.Position{Line: tok.Line, Column: tok.Column, StartPos: tok.StartPos, EndPos: tok.EndPos, Source: p.unit},
		Msg:      msg,
	}
}

func asMathExError(err error) errors.MathExError {
	if me, ok := err.(errors.MathExError); ok {
		return me
	}
	return &errors.ParseError{Msg: err.Error()}
}

// destroyPartial releases every tree fragment still under construction: the
// operand stack, every argument frame's gathered args, and every registered
// macro body. Called on any compile failure so a rejected parse leaks
// nothing, matching spec's "memory released on both success and failure
// paths" invariant.
func (p *Parser) destroyPartial() {
	for _, n := range p.es {
		ast.Destroy(n)
	}
	for _, f := range p.as {
		for _, a := range f.args {
			ast.Destroy(a)
		}
	}
	for _, body := range p.macros {
		for _, n := range body {
			ast.Destroy(n)
		}
	}
}

// Parse consumes the entire source and returns the compiled tree, or a zero
// ast.Node and the errors that aborted compilation.
func (p *Parser) Parse() (ast.Node, []errors.MathExError) {
	state := parenAllowed

	for {
		p.flags.SetTopLevel(p.depth == 0)
		tok, err := p.lex.Next(p.flags)
		if err != nil {
			p.destroyPartial()
			return ast.Node{}, []errors.MathExError{asMathExError(err)}
		}
		if tok.Type == lexer.TEOF {
			break
		}

		lit := tok.Literal
		if tok.Type == lexer.TOperator && p.flags.Has(lexer.BitUnary) && len(lit) == 1 {
			switch lit {
			case "-":
				lit = "-u"
			case "^":
				lit = "^u"
			case "!":
				lit = "!u"
			}
		}

		if p.havePending {
			if tok.Type == lexer.TLParen {
				name := p.pendingWord
				_, isMacro := p.macros[name]
				_, isFunc := p.reg.Find(name)
				if name != "$" && !isMacro && !isFunc {
					p.destroyPartial()
					return ast.Node{}, []errors.MathExError{p.structErr(p.pendingTok, fmt.Sprintf("%q is not a known function or macro", name))}
				}
				p.os = append(p.os, osEntry{kind: osCallName, name: name})
				state = parenExpected
			} else {
				h, _ := p.env.LookupOrCreate(p.pendingWord)
				p.es = append(p.es, ast.VarNode(h))
				state = parenForbidden
			}
			p.havePending = false
		}

		next := parenAllowed

		switch tok.Type {
		case lexer.TLParen:
			switch state {
			case parenExpected:
				p.os = append(p.os, osEntry{kind: osCallSentinel})
				p.as = append(p.as, argFrame{esLen: len(p.es)})
				p.depth++
			case parenAllowed:
				p.os = append(p.os, osEntry{kind: osParenSentinel})
				p.depth++
			default:
				p.destroyPartial()
				return ast.Node{}, []errors.MathExError{p.structErr(tok, "unexpected '(' after a value")}
			}

		case lexer.TRParen:
			if err := p.reduceUntilSentinel(tok); err != nil {
				p.destroyPartial()
				return ast.Node{}, []errors.MathExError{asMathExError(err)}
			}
			if len(p.os) == 0 {
				p.destroyPartial()
				return ast.Node{}, []errors.MathExError{p.structErr(tok, "unbalanced parentheses")}
			}
			top := p.os[len(p.os)-1]
			p.os = p.os[:len(p.os)-1]
			p.depth--
			if top.kind == osCallSentinel {
				node, err := p.closeCall(tok)
				if err != nil {
					p.destroyPartial()
					return ast.Node{}, []errors.MathExError{asMathExError(err)}
				}
				p.es = append(p.es, node)
			}
			next = parenForbidden

		case lexer.TNumber:
			f, perr := strconv.ParseFloat(lit, 32)
			if perr != nil {
				p.destroyPartial()
				return ast.Node{}, []errors.MathExError{p.structErr(tok, "invalid numeric literal "+lit)}
			}
			p.es = append(p.es, ast.ConstNode(value.Num(f)))
			next = parenForbidden

		case lexer.TWord:
			p.pendingWord = lit
			p.pendingTok = tok
			p.havePending = true

		case lexer.TOperator:
			op, _ := lexer.FindOp(lit, -1)
			if lit == "," && len(p.os) > 0 && p.os[len(p.os)-1].kind == osCallSentinel {
				if len(p.es) == 0 {
					p.destroyPartial()
					return ast.Node{}, []errors.MathExError{p.structErr(tok, "missing argument before ','")}
				}
				v := p.es[len(p.es)-1]
				p.es = p.es[:len(p.es)-1]
				p.as[len(p.as)-1].args = append(p.as[len(p.as)-1].args, v)
				break
			}
			for len(p.os) > 0 {
				top := p.os[len(p.os)-1]
				if top.kind != osOp || !ast.ShouldReduce(op, top.op) {
					break
				}
				node, err := p.bind(top.op, tok)
				if err != nil {
					p.destroyPartial()
					return ast.Node{}, []errors.MathExError{asMathExError(err)}
				}
				p.es = append(p.es, node)
				p.os = p.os[:len(p.os)-1]
			}
			p.os = append(p.os, osEntry{kind: osOp, op: op})
		}

		state = next
	}

	if p.havePending {
		h, _ := p.env.LookupOrCreate(p.pendingWord)
		p.es = append(p.es, ast.VarNode(h))
		p.havePending = false
	}

	for len(p.os) > 0 {
		top := p.os[len(p.os)-1]
		p.os = p.os[:len(p.os)-1]
		if top.kind != osOp {
			p.destroyPartial()
			return ast.Node{}, []errors.MathExError{(&errors.ParseError{
				Position: errors.Position{Source: p.unit},
				Msg:      "unbalanced parentheses",
			})}
		}
		node, err := p.bind(top.op, lexer.Token{})
		if err != nil {
			p.destroyPartial()
			return ast.Node{}, []errors.MathExError{asMathExError(err)}
		}
		p.es = append(p.es, node)
	}

	if len(p.es) == 0 {
		return ast.ConstNode(value.Zero), nil
	}
	root := p.es[len(p.es)-1]
	for _, extra := range p.es[:len(p.es)-1] {
		ast.Destroy(extra)
	}
	return root, nil
}

// reduceUntilSentinel pops and binds operators down to (but not including)
// the nearest sentinel, for a ')' token.
func (p *Parser) reduceUntilSentinel(tok lexer.Token) error {
	for len(p.os) > 0 {
		top := p.os[len(p.os)-1]
		if top.kind != osOp {
			return nil
		}
		node, err := p.bind(top.op, tok)
		if err != nil {
			return err
		}
		p.es = append(p.es, node)
		p.os = p.os[:len(p.os)-1]
	}
	return nil
}

// bind pops the operands op needs off es and pushes the resulting node.
func (p *Parser) bind(op ast.Op, tok lexer.Token) (ast.Node, error) {
	switch {
	case op.IsUnary():
		if len(p.es) < 1 {
			return ast.Node{}, p.structErr(tok, "operator bound with too few operands")
		}
		child := p.es[len(p.es)-1]
		p.es = p.es[:len(p.es)-1]
		return ast.Unary(op, child), nil
	case op.IsBinary():
		if len(p.es) < 2 {
			return ast.Node{}, p.structErr(tok, "operator bound with too few operands")
		}
		rhs := p.es[len(p.es)-1]
		lhs := p.es[len(p.es)-2]
		p.es = p.es[:len(p.es)-2]
		if op == ast.OpAssign && lhs.Op != ast.OpVar {
			ast.Destroy(lhs)
			ast.Destroy(rhs)
			return ast.Node{}, p.structErr(tok, "left-hand side of '=' must be a variable")
		}
		return ast.Binary(op, lhs, rhs), nil
	default:
		return ast.Node{}, p.structErr(tok, "unknown operator")
	}
}

// closeCall finalizes a "{" call frame: macro definition, macro expansion,
// or an ordinary registered-function call, per which name the frame was
// opened under.
func (p *Parser) closeCall(tok lexer.Token) (ast.Node, error) {
	if len(p.os) == 0 || p.os[len(p.os)-1].kind != osCallName {
		return ast.Node{}, p.structErr(tok, "malformed call")
	}
	name := p.os[len(p.os)-1].name
	p.os = p.os[:len(p.os)-1]

	frame := p.as[len(p.as)-1]
	p.as = p.as[:len(p.as)-1]
	if len(p.es) > frame.esLen {
		frame.args = append(frame.args, p.es[len(p.es)-1])
		p.es = p.es[:len(p.es)-1]
	}

	if name == "$" {
		node, err := p.defineMacro(tok, frame.args)
		if err != nil {
			for _, a := range frame.args {
				ast.Destroy(a)
			}
		}
		return node, err
	}
	if body, ok := p.macros[name]; ok {
		return p.expandMacro(body, frame.args), nil
	}
	d, _ := p.reg.Find(name)
	return ast.Call(d, frame.args), nil
}

// defineMacro registers frame.args[1:] as a macro body under the name of
// the variable frame.args[0] was resolved to, and yields Const(0) as the
// $(...) call's own value.
func (p *Parser) defineMacro(tok lexer.Token, args []ast.Node) (ast.Node, error) {
	if len(args) < 1 {
		return ast.Node{}, p.structErr(tok, "$() is missing its variable argument")
	}
	first := args[0]
	if first.Op != ast.OpVar {
		return ast.Node{}, p.structErr(tok, "$()'s first argument must be a variable")
	}
	h, ok := first.Var.(env.Handle)
	if !ok {
		return ast.Node{}, p.structErr(tok, "$()'s first argument must be a variable")
	}
	name, ok := p.env.NameOf(h)
	if !ok {
		return ast.Node{}, p.structErr(tok, "$()'s first argument is not a known variable")
	}
	p.macros[name] = args[1:]
	return ast.ConstNode(value.Zero), nil
}

// expandMacro splices a fresh copy of body into the tree, preceded by
// Assign($1, actual_1), ..., Assign($n, actual_n) for the call's actual
// arguments, all chained right-associatively through Comma so the last
// element (a body element, or the last assignment if the body is empty) is
// the expression's value. The actual argument subtrees are spliced as-is
// (they are fresh, call-site-local trees); body elements are cloned since
// the same macro can be expanded more than once.
func (p *Parser) expandMacro(body []ast.Node, actuals []ast.Node) ast.Node {
	seq := make([]ast.Node, 0, len(actuals)+len(body))
	for j, a := range actuals {
		h, _ := p.env.LookupOrCreate(fmt.Sprintf("$%d", j+1))
		seq = append(seq, ast.Binary(ast.OpAssign, ast.VarNode(h), a))
	}
	for _, b := range body {
		seq = append(seq, b.Clone())
	}
	return foldCommaRight(seq)
}

func foldCommaRight(seq []ast.Node) ast.Node {
	if len(seq) == 0 {
		return ast.ConstNode(value.Zero)
	}
	result := seq[len(seq)-1]
	for i := len(seq) - 2; i >= 0; i-- {
		result = ast.Binary(ast.OpComma, seq[i], result)
	}
	return result
}
