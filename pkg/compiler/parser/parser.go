// Package parser builds an AST from zoro surface syntax.
//
//	program   := stmt { ';' stmt } [';']
//	stmt      := ifStmt | whileStmt | expr
//	ifStmt    := 'if' expr 'then' program { 'elif' expr 'then' program } [ 'else' program ] 'endif'
//	whileStmt := 'while' expr 'do' program 'endwhile'
//
// Expressions bind loosest to tightest: or/nor, xor/xnor, and/nand, not,
// comparisons, |, ^, &, shifts, + -, * / // %, unary - ~, ** and atoms.
// ** is right associative; everything else associates left.
package parser

import (
	"errors"

	"github.com/agenthands/zoro/pkg/compiler/ast"
	"github.com/agenthands/zoro/pkg/compiler/lexer"
)

type nodeKind uint8

const (
	kindMath nodeKind = iota
	kindCnd
	kindBit
	kindLog
)

// level is one left-associative binary precedence tier.
type level struct {
	ops  map[string]struct{}
	kind nodeKind
}

func ops(list ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, op := range list {
		set[op] = struct{}{}
	}
	return set
}

// Loosest first. The "not" tier sits between levels[2] and levels[3].
var levels = []level{
	{ops("or", "nor"), kindLog},
	{ops("xor", "xnor"), kindLog},
	{ops("and", "nand"), kindLog},
	{ops("<", ">", "<=", ">=", "==", "!="), kindCnd},
	{ops("|"), kindBit},
	{ops("^"), kindBit},
	{ops("&"), kindBit},
	{ops("<<", ">>"), kindBit},
	{ops("+", "-"), kindMath},
	{ops("*", "/", "//", "%"), kindMath},
}

const notLevel = 3

// closers end a program without being consumed by it.
var closers = map[string]struct{}{
	"elif": {}, "else": {}, "endif": {}, "endwhile": {},
}

type Parser struct {
	lex *lexer.Lexer
}

func NewParser(l *lexer.Lexer) *Parser {
	return &Parser{lex: l}
}

// Parse reads a whole program. A single statement is returned as is;
// several are wrapped in an ast.Sequence.
func Parse(source []byte) (ast.Node, error) {
	return NewParser(lexer.NewLexer(source)).Parse()
}

func (p *Parser) Parse() (ast.Node, error) {
	prog, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Match(lexer.KindEOF, ""); err != nil {
		return nil, err
	}
	return prog, nil
}

// peek treats the end of input as an ordinary EOF token.
func (p *Parser) peek() (lexer.Token, error) {
	tok, err := p.lex.Peek()
	if errors.Is(err, lexer.ErrEndOfTokens) {
		return tok, nil
	}
	return tok, err
}

func (p *Parser) parseProgram() (ast.Node, error) {
	first, err := p.peek()
	if err != nil {
		return nil, err
	}

	var stmts []ast.Node
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if !tok.Is(lexer.KindSymbol, ";") {
			break
		}
		p.lex.Advance()

		if tok, err = p.peek(); err != nil {
			return nil, err
		}
		if endsProgram(tok) {
			break
		}
	}

	if len(stmts) == 1 {
		return stmts[0], nil
	}
	return &ast.Sequence{Stmts: stmts, Line: first.Line}, nil
}

func endsProgram(tok lexer.Token) bool {
	switch tok.Kind {
	case lexer.KindEOF:
		return true
	case lexer.KindSymbol:
		return tok.Text == ")"
	case lexer.KindKeyword:
		_, ok := closers[tok.Text]
		return ok
	}
	return false
}

func (p *Parser) parseStatement() (ast.Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch {
	case tok.Is(lexer.KindKeyword, "if"):
		return p.parseIf()
	case tok.Is(lexer.KindKeyword, "while"):
		return p.parseWhile()
	}
	return p.parseExpr()
}

func (p *Parser) parseIf() (ast.Node, error) {
	start, err := p.lex.Match(lexer.KindKeyword, "if")
	if err != nil {
		return nil, err
	}
	node := &ast.If{Line: start.Line}

	for {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.lex.Match(lexer.KindKeyword, "then"); err != nil {
			return nil, err
		}
		body, err := p.parseProgram()
		if err != nil {
			return nil, err
		}
		node.Conds = append(node.Conds, cond)
		node.Bodies = append(node.Bodies, body)

		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if !tok.Is(lexer.KindKeyword, "elif") {
			break
		}
		p.lex.Advance()
	}

	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Is(lexer.KindKeyword, "else") {
		p.lex.Advance()
		body, err := p.parseProgram()
		if err != nil {
			return nil, err
		}
		node.Bodies = append(node.Bodies, body)
	}

	if _, err := p.lex.Match(lexer.KindKeyword, "endif"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseWhile() (ast.Node, error) {
	start, err := p.lex.Match(lexer.KindKeyword, "while")
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Match(lexer.KindKeyword, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Match(lexer.KindKeyword, "endwhile"); err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Line: start.Line}, nil
}

func (p *Parser) parseExpr() (ast.Node, error) {
	return p.parseLevel(0)
}

func (p *Parser) parseLevel(depth int) (ast.Node, error) {
	if depth == notLevel {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Is(lexer.KindOperator, "not") {
			p.lex.Advance()
			operand, err := p.parseLevel(depth)
			if err != nil {
				return nil, err
			}
			return &ast.UnOp{Op: "not", Operand: operand, Line: tok.Line}, nil
		}
	}
	if depth == len(levels) {
		return p.parseUnary()
	}

	lvl := levels[depth]
	left, err := p.parseLevel(depth + 1)
	if err != nil {
		return nil, err
	}
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		if tok.Kind != lexer.KindOperator {
			return left, nil
		}
		if _, ok := lvl.ops[tok.Text]; !ok {
			return left, nil
		}
		p.lex.Advance()

		right, err := p.parseLevel(depth + 1)
		if err != nil {
			return nil, err
		}
		left = binary(lvl.kind, tok.Text, left, right, tok.Line)
	}
}

func binary(kind nodeKind, op string, left, right ast.Node, line int) ast.Node {
	switch kind {
	case kindCnd:
		return &ast.CndOp{Op: op, Left: left, Right: right, Line: line}
	case kindBit:
		return &ast.BitOp{Op: op, Left: left, Right: right, Line: line}
	case kindLog:
		return &ast.LogOp{Op: op, Left: left, Right: right, Line: line}
	}
	return &ast.MathOp{Op: op, Left: left, Right: right, Line: line}
}

func (p *Parser) parseUnary() (ast.Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if tok.Is(lexer.KindOperator, "-") || tok.Is(lexer.KindOperator, "~") {
		p.lex.Advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnOp{Op: tok.Text, Operand: operand, Line: tok.Line}, nil
	}
	return p.parsePower()
}

func (p *Parser) parsePower() (ast.Node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}
	if !tok.Is(lexer.KindOperator, "**") {
		return base, nil
	}
	p.lex.Advance()
	// The exponent may itself be signed: 2 ** -1.
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.MathOp{Op: "**", Left: base, Right: exp, Line: tok.Line}, nil
}

func (p *Parser) parseAtom() (ast.Node, error) {
	tok, err := p.peek()
	if err != nil {
		return nil, err
	}

	switch tok.Kind {
	case lexer.KindInt:
		p.lex.Advance()
		return &ast.IntLit{Value: tok.Value.Int(), Line: tok.Line}, nil
	case lexer.KindFloat:
		p.lex.Advance()
		return &ast.FloatLit{Value: tok.Value.Float(), Line: tok.Line}, nil
	case lexer.KindFrac:
		p.lex.Advance()
		return &ast.FracLit{Value: tok.Value.Rat(), Line: tok.Line}, nil
	case lexer.KindString:
		p.lex.Advance()
		return &ast.StringLit{Value: tok.Text, Line: tok.Line}, nil
	case lexer.KindBool:
		p.lex.Advance()
		return &ast.BoolLit{Value: tok.Value.Truthy(), Line: tok.Line}, nil
	}

	if _, err := p.lex.Match(lexer.KindSymbol, "("); err != nil {
		return nil, &lexer.TokenMismatchError{Line: tok.Line, Want: "expression", Got: describe(tok)}
	}
	inner, err := p.parseProgram()
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Match(lexer.KindSymbol, ")"); err != nil {
		return nil, err
	}
	return inner, nil
}

func describe(tok lexer.Token) string {
	if tok.Kind == lexer.KindEOF {
		return "end of input"
	}
	return tok.String()
}
