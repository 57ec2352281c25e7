package parser_test

import (
	"errors"
	"testing"

	"github.com/agenthands/zoro/pkg/compiler/ast"
	"github.com/agenthands/zoro/pkg/compiler/emitter"
	"github.com/agenthands/zoro/pkg/compiler/lexer"
	"github.com/agenthands/zoro/pkg/compiler/parser"
	"github.com/agenthands/zoro/pkg/vm"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"3 - 5", "(- 3 5)"},
		{"1 + 2 * 3", "(+ 1 (* 2 3))"},
		{"10 - 3 - 2", "(- (- 10 3) 2)"},
		{"2 ** 3 ** 2", "(** 2 (** 3 2))"},
		{"-2 ** 2", "(- (** 2 2))"},
		{"2 ** -1", "(** 2 (- 1))"},
		{"~5 // 2 % 3", "(% (// (~ 5) 2) 3)"},
		{"1 | 2 ^ 3 & 4 << 1", "(| 1 (^ 2 (& 3 (<< 4 1))))"},
		{"1 + 2 < 4", "(< (+ 1 2) 4)"},
		{"not 1 < 2 and True", "(and (not (< 1 2)) True)"},
		{"1 or 2 xor 3 and 4", "(or 1 (xor 2 (and 3 4)))"},
		{"True nand False nor True", "(nor (nand True False) True)"},
		{"(1 + 2) * 3", "(* (+ 1 2) 3)"},
		{`"a" + "b"`, `(+ "a" "b")`},
		{"1.5 + 2", "(+ 1.5 2)"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := parser.Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseStatements(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sequence", "1; 2; 3", "(seq 1 2 3)"},
		{"trailing semicolon", "1; 2;", "(seq 1 2)"},
		{"if", "if True then 1 endif", "(if [True 1])"},
		{
			"if elif else",
			"if 1 > 2 then 1 elif False then 2 else 3 endif",
			"(if [(> 1 2) 1] [False 2] [else 3])",
		},
		{"while", "while False do 1; 2 endwhile", "(while False (seq 1 2))"},
		{"sequence operand", "(1; 2) + 3", "(+ (seq 1 2) 3)"},
		{
			"nested",
			"while False do if True then 1; endif endwhile; 0",
			"(seq (while False (if [True 1])) 0)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := parser.Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := node.String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseLines(t *testing.T) {
	node, err := parser.Parse([]byte("1;\n\nif True then\n  2 + 3\nendif"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	seq, ok := node.(*ast.Sequence)
	if !ok || len(seq.Stmts) != 2 {
		t.Fatalf("expected a two statement sequence, got %s", node)
	}
	cond := seq.Stmts[1].(*ast.If)
	if cond.Line != 3 {
		t.Errorf("expected if on line 3, got %d", cond.Line)
	}
	if sum := cond.Bodies[0]; sum.Pos() != 4 {
		t.Errorf("expected body on line 4, got %d", sum.Pos())
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		line     int
		mismatch bool
	}{
		{"dangling operator", "1 +", 1, true},
		{"identifier", "x + 1", 1, true},
		{"unclosed paren", "(1 + 2", 1, true},
		{"missing endif", "if True then 1", 1, true},
		{"missing do", "while True 1 endwhile", 1, true},
		{"two expressions", "1 2", 1, true},
		{"empty input", "", 1, true},
		{"stray closer", "\n1 endwhile", 2, true},
		{"unterminated string", "1 + \"abc", 1, false},
		{"bad numeral", "\n\n1.2.3", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.src))
			if err == nil {
				t.Fatal("expected error")
			}

			var mm *lexer.TokenMismatchError
			var le *lexer.LexicalError
			switch {
			case errors.As(err, &mm):
				if !tt.mismatch {
					t.Errorf("expected lexical error, got %v", err)
				}
				if mm.Line != tt.line {
					t.Errorf("expected line %d, got %d", tt.line, mm.Line)
				}
			case errors.As(err, &le):
				if tt.mismatch {
					t.Errorf("expected token mismatch, got %v", err)
				}
				if le.Line != tt.line {
					t.Errorf("expected line %d, got %d", tt.line, le.Line)
				}
			default:
				t.Errorf("unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestParseCompileRun(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"3 - 5", "-2"},
		{"7 // 2 + 7 % 2", "4"},
		{"-7 // 2", "-4"},
		{"2 ** 10", "1024"},
		{"1 / 4", "0.25"},
		{`if 1 > 2 then "a" else "b" endif`, "b"},
		{`"ab" + "cd"`, "abcd"},
		{"True xor True", "False"},
		{"1 << 4 | 1", "17"},
		{"while False do 1 endwhile; 42", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := parser.Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			bc, err := emitter.Compile(node)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}

			m := vm.GetMachine()
			defer vm.PutMachine(m)
			m.Load(bc)
			if err := m.Run(10000); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			top, ok := m.Result()
			if !ok {
				t.Fatal("no result")
			}
			if got := m.Format(top); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestStackDepthAfterRun(t *testing.T) {
	tests := []struct {
		src       string
		stmtDepth int
	}{
		{"1 + 2", 1},
		{"1; 2; 3", 1},
		{"while False do 1 endwhile", 0},
		{"while False do 1 endwhile; 7", 1},
		{"if False then 1 endif", 0},
		{"if 1 < 2 then 1 else 2 endif", 1},
		{"(if False then 1 endif; 2) * 3", 1},
		{"True and (False or True)", 1},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := parser.Parse([]byte(tt.src))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}

			m := vm.GetMachine()
			defer vm.PutMachine(m)

			bc, err := emitter.Compile(node)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			m.Load(bc)
			if err := m.Run(10000); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if m.SP != tt.stmtDepth {
				t.Errorf("Compile: expected stack depth %d, got %d", tt.stmtDepth, m.SP)
			}

			expr, err := emitter.CompileExpr(node)
			if err != nil {
				// Statements without a value are rejected in value position.
				if tt.stmtDepth != 0 {
					t.Fatalf("CompileExpr failed: %v", err)
				}
				return
			}
			m.Load(expr)
			if err := m.Run(10000); err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if m.SP != 1 {
				t.Errorf("CompileExpr: expected stack depth 1, got %d", m.SP)
			}
		})
	}
}
