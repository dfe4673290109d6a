// Command mathex is a REPL, single-expression, and file-batch front end for
// the MathEX compiler and evaluator. It is an external collaborator of the
// library, not part of its embeddable contract.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/st9007a/MathEX/pkg/driver"
	"github.com/st9007a/MathEX/pkg/env"
	"github.com/st9007a/MathEX/pkg/errors"
	"github.com/st9007a/MathEX/pkg/funcs"
	"github.com/st9007a/MathEX/pkg/stdfuncs"
)

// balancedParens uses a .NET-style balancing group to check parenthesis
// nesting before the line ever reaches the lexer — RE2 (Go's regexp/syntax,
// and so Go's standard regexp package) cannot express this, which is why
// this check reaches for regexp2 instead.
var balancedParens = regexp2.MustCompile(`^(?:[^()]|(?<Depth>\()|(?<-Depth>\)))*(?(Depth)(?!))$`, regexp2.None)

func isBalanced(line string) bool {
	ok, err := balancedParens.MatchString(line)
	return err == nil && ok
}

func main() {
	exprFlag := flag.String("e", "", "evaluate a single expression and exit")
	flag.Parse()

	printer := message.NewPrinter(language.English)

	switch {
	case *exprFlag != "":
		runExpression(printer, *exprFlag)
	case flag.NArg() == 1:
		runFile(printer, flag.Arg(0))
	case flag.NArg() > 1:
		fmt.Fprintln(os.Stderr, "usage: mathex [-e expression] [file]")
		os.Exit(64)
	default:
		runRepl(printer)
	}
}

func newSession() *driver.Session {
	reg := funcs.NewRegistry()
	stdfuncs.Register(reg)
	return driver.NewSession(reg)
}

func printResult(p *message.Printer, n float64) {
	p.Println(number.Decimal(n))
}

func runExpression(p *message.Printer, expr string) {
	if !isBalanced(expr) {
		fmt.Fprintln(os.Stderr, "error: unbalanced parentheses")
		os.Exit(65)
	}
	s := newSession()
	defer s.Close()

	tree, errs := s.Compile(expr)
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, errors.Display(errs))
		os.Exit(65)
	}
	printResult(p, float64(s.Eval(tree)))
}

func runFile(p *message.Printer, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mathex: %s\n", err)
		os.Exit(66)
	}
	src := string(content)
	if !isBalanced(src) {
		fmt.Fprintln(os.Stderr, "error: unbalanced parentheses")
		os.Exit(65)
	}
	s := newSession()
	defer s.Close()

	tree, errs := s.Compile(src)
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, errors.Display(errs))
		os.Exit(65)
	}
	printResult(p, float64(s.Eval(tree)))
}

func runRepl(p *message.Printer) {
	s := newSession()
	defer s.Close()

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("mathex (:quit to exit, :vars to list variables)")

	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n")

		if strings.TrimSpace(line) != "" {
			switch strings.TrimSpace(line) {
			case ":quit":
				return
			case ":vars":
				printVars(s)
				if err == io.EOF {
					return
				}
				continue
			}

			if !isBalanced(line) {
				fmt.Fprintln(os.Stderr, "error: unbalanced parentheses")
			} else if tree, errs := s.Compile(line); len(errs) > 0 {
				fmt.Fprint(os.Stderr, errors.Display(errs))
			} else {
				printResult(p, float64(s.Eval(tree)))
			}
		}

		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "mathex: %s\n", err)
			return
		}
	}
}

func printVars(s *driver.Session) {
	var lines []string
	s.Env().Iterate(func(h env.Handle) bool {
		lines = append(lines, fmt.Sprintf("%s = %v", h.Name, h.Value))
		return true
	})
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Println(l)
	}
}
