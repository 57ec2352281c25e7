package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/agenthands/zoro/pkg/compiler/ast"
	"github.com/agenthands/zoro/pkg/compiler/emitter"
	"github.com/agenthands/zoro/pkg/compiler/lexer"
	"github.com/agenthands/zoro/pkg/compiler/parser"
	"github.com/agenthands/zoro/pkg/compiler/python"
	"github.com/agenthands/zoro/pkg/vm"
)

const usage = "Usage: zoro [tokens|compile|run] <source> [-gas limit] [-v]"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(stderr, usage)
		return 1
	}

	cmd := flag.NewFlagSet(args[0], flag.ContinueOnError)
	cmd.SetOutput(stderr)
	gasLimit := cmd.Int("gas", 1000000, "Maximum instruction limit")
	verbose := cmd.Bool("v", false, "Print the disassembly before running")

	path := args[1]
	if err := cmd.Parse(args[2:]); err != nil {
		return 1
	}

	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error reading file: %v\n", err)
		return 1
	}

	switch args[0] {
	case "tokens":
		return printTokens(src, stdout, stderr)
	case "compile":
		bc, ok := build(src, isPython(path), stderr)
		if !ok {
			return 1
		}
		vm.Fprint(stdout, bc)
		return 0
	case "run":
		bc, ok := build(src, isPython(path), stderr)
		if !ok {
			return 1
		}
		if *verbose {
			vm.Fprint(stdout, bc)
			fmt.Fprintln(stdout)
		}
		return execute(bc, *gasLimit, stdout, stderr)
	default:
		fmt.Fprintln(stderr, "Unknown command:", args[0])
		fmt.Fprintln(stderr, usage)
		return 1
	}
}

func isPython(path string) bool {
	return filepath.Ext(path) == ".py"
}

func printTokens(src []byte, stdout, stderr io.Writer) int {
	l := lexer.NewLexer(src)
	for {
		tok, err := l.NextToken()
		if errors.Is(err, lexer.ErrEndOfTokens) {
			return 0
		}
		if err != nil {
			fmt.Fprintf(stderr, "Lexical Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "%4d  %s\n", tok.Line, tok)
	}
}

func build(src []byte, py bool, stderr io.Writer) (*vm.Bytecode, bool) {
	var root ast.Node
	var err error
	if py {
		root, err = python.Parse(string(src))
	} else {
		root, err = parser.Parse(src)
	}
	if err != nil {
		var le *lexer.LexicalError
		if errors.As(err, &le) {
			fmt.Fprintf(stderr, "Lexical Error: %v\n", err)
		} else {
			fmt.Fprintf(stderr, "Parse Error: %v\n", err)
		}
		return nil, false
	}

	bc, err := emitter.Compile(root)
	if err != nil {
		fmt.Fprintf(stderr, "Compilation Error: %v\n", err)
		return nil, false
	}
	return bc, true
}

func execute(bc *vm.Bytecode, gasLimit int, stdout, stderr io.Writer) int {
	m := vm.GetMachine()
	defer vm.PutMachine(m)

	m.Load(bc)
	if err := m.Run(gasLimit); err != nil {
		fmt.Fprintf(stderr, "Runtime Error: %v\n", err)
		return 1
	}
	if top, ok := m.Result(); ok {
		fmt.Fprintln(stdout, m.Format(top))
	}
	return 0
}
