// Package python lowers a Python-syntax subset into the zoro AST using the
// gpython parser. Only literals, arithmetic, comparisons, boolean
// operators, if/elif/else and while are accepted.
package python

import (
	"errors"
	"fmt"
	"strings"

	pyast "github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/agenthands/zoro/pkg/compiler/ast"
)

var ErrUnsupported = errors.New("unsupported python construct")

// Error reports a construct the frontend cannot lower.
type Error struct {
	Line int
	Node string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("python: line %d: %v: %s", e.Line, e.Err, e.Node)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func unsupported(n pyast.Ast) *Error {
	return &Error{Line: n.GetLineno(), Node: pyast.Dump(n), Err: ErrUnsupported}
}

var binOps = map[pyast.OperatorNumber]struct {
	op  string
	bit bool
}{
	pyast.Add:      {"+", false},
	pyast.Sub:      {"-", false},
	pyast.Mult:     {"*", false},
	pyast.Div:      {"/", false},
	pyast.FloorDiv: {"//", false},
	pyast.Modulo:   {"%", false},
	pyast.Pow:      {"**", false},
	pyast.BitAnd:   {"&", true},
	pyast.BitOr:    {"|", true},
	pyast.BitXor:   {"^", true},
	pyast.LShift:   {"<<", true},
	pyast.RShift:   {">>", true},
}

var cmpOps = map[pyast.CmpOp]string{
	pyast.Eq:    "==",
	pyast.NotEq: "!=",
	pyast.Lt:    "<",
	pyast.LtE:   "<=",
	pyast.Gt:    ">",
	pyast.GtE:   ">=",
}

var unaryOps = map[pyast.UnaryOpNumber]string{
	pyast.Invert: "~",
	pyast.Not:    "not",
	pyast.USub:   "-",
}

// Parse parses Python source in exec mode and lowers the module body.
func Parse(src string) (ast.Node, error) {
	mod, err := parser.Parse(strings.NewReader(src), "<string>", py.ExecMode)
	if err != nil {
		return nil, fmt.Errorf("python parse error: %w", err)
	}
	module, ok := mod.(*pyast.Module)
	if !ok {
		return nil, fmt.Errorf("python: expected *ast.Module, got %T", mod)
	}
	return lowerBody(module.Body, 1)
}

// lowerBody turns a statement list into a single node. line is used for
// an empty body.
func lowerBody(body []pyast.Stmt, line int) (ast.Node, error) {
	stmts := make([]ast.Node, 0, len(body))
	for _, s := range body {
		if _, ok := s.(*pyast.Pass); ok {
			continue
		}
		n, err := lowerStmt(s)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, n)
	}
	if len(stmts) == 1 {
		return stmts[0], nil
	}
	if len(body) > 0 {
		line = body[0].GetLineno()
	}
	return &ast.Sequence{Stmts: stmts, Line: line}, nil
}

func lowerStmt(stmt pyast.Stmt) (ast.Node, error) {
	switch s := stmt.(type) {
	case *pyast.ExprStmt:
		return lowerExpr(s.Value)

	case *pyast.If:
		node := &ast.If{Line: s.Lineno}
		// elif chains arrive as an If alone in the else branch.
		for cur := s; ; {
			cond, err := lowerExpr(cur.Test)
			if err != nil {
				return nil, err
			}
			body, err := lowerBody(cur.Body, cur.Lineno)
			if err != nil {
				return nil, err
			}
			node.Conds = append(node.Conds, cond)
			node.Bodies = append(node.Bodies, body)

			if len(cur.Orelse) == 1 {
				if elif, ok := cur.Orelse[0].(*pyast.If); ok {
					cur = elif
					continue
				}
			}
			if len(cur.Orelse) > 0 {
				els, err := lowerBody(cur.Orelse, cur.Lineno)
				if err != nil {
					return nil, err
				}
				node.Bodies = append(node.Bodies, els)
			}
			return node, nil
		}

	case *pyast.While:
		if len(s.Orelse) > 0 {
			return nil, unsupported(s)
		}
		cond, err := lowerExpr(s.Test)
		if err != nil {
			return nil, err
		}
		body, err := lowerBody(s.Body, s.Lineno)
		if err != nil {
			return nil, err
		}
		return &ast.While{Cond: cond, Body: body, Line: s.Lineno}, nil
	}
	return nil, unsupported(stmt)
}

func lowerExpr(expr pyast.Expr) (ast.Node, error) {
	line := expr.GetLineno()

	switch e := expr.(type) {
	case *pyast.Num:
		switch n := e.N.(type) {
		case py.Int:
			return &ast.IntLit{Value: int64(n), Line: line}, nil
		case py.Float:
			return &ast.FloatLit{Value: float64(n), Line: line}, nil
		case *py.BigInt:
			return nil, &Error{Line: line, Node: pyast.Dump(e), Err: errors.New("integer literal overflows 64 bits")}
		}

	case *pyast.Str:
		return &ast.StringLit{Value: string(e.S), Line: line}, nil

	case *pyast.NameConstant:
		switch e.Value {
		case py.True:
			return &ast.BoolLit{Value: true, Line: line}, nil
		case py.False:
			return &ast.BoolLit{Value: false, Line: line}, nil
		}

	case *pyast.BinOp:
		op, ok := binOps[e.Op]
		if !ok {
			break
		}
		left, err := lowerExpr(e.Left)
		if err != nil {
			return nil, err
		}
		right, err := lowerExpr(e.Right)
		if err != nil {
			return nil, err
		}
		if op.bit {
			return &ast.BitOp{Op: op.op, Left: left, Right: right, Line: line}, nil
		}
		return &ast.MathOp{Op: op.op, Left: left, Right: right, Line: line}, nil

	case *pyast.UnaryOp:
		operand, err := lowerExpr(e.Operand)
		if err != nil {
			return nil, err
		}
		if e.Op == pyast.UAdd {
			return operand, nil
		}
		op, ok := unaryOps[e.Op]
		if !ok {
			break
		}
		return &ast.UnOp{Op: op, Operand: operand, Line: line}, nil

	case *pyast.BoolOp:
		op := "and"
		if e.Op == pyast.Or {
			op = "or"
		}
		var acc ast.Node
		for _, v := range e.Values {
			n, err := lowerExpr(v)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = n
				continue
			}
			acc = &ast.LogOp{Op: op, Left: acc, Right: n, Line: line}
		}
		if acc != nil {
			return acc, nil
		}

	case *pyast.Compare:
		return lowerCompare(e)
	}

	return nil, unsupported(expr)
}

// lowerCompare turns a < b < c into (a < b) and (b < c).
func lowerCompare(e *pyast.Compare) (ast.Node, error) {
	if len(e.Ops) == 0 || len(e.Ops) != len(e.Comparators) {
		return nil, unsupported(e)
	}
	left, err := lowerExpr(e.Left)
	if err != nil {
		return nil, err
	}

	var acc ast.Node
	for i, cmp := range e.Ops {
		op, ok := cmpOps[cmp]
		if !ok {
			return nil, unsupported(e)
		}
		right, err := lowerExpr(e.Comparators[i])
		if err != nil {
			return nil, err
		}
		n := &ast.CndOp{Op: op, Left: left, Right: right, Line: e.Lineno}
		if acc == nil {
			acc = n
		} else {
			acc = &ast.LogOp{Op: "and", Left: acc, Right: n, Line: e.Lineno}
		}
		left = right
	}
	return acc, nil
}
