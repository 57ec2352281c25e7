package emitter

import (
	"fmt"

	"github.com/agenthands/zoro/pkg/compiler/ast"
)

// desugar rewrites the derived logical operators into and/or/not trees.
// Subexpressions are shared, so operands are evaluated more than once;
// expressions have no side effects.
func desugar(n *ast.LogOp) (ast.Node, error) {
	l, r, line := n.Left, n.Right, n.Line
	not := func(x ast.Node) ast.Node { return &ast.UnOp{Op: "not", Operand: x, Line: line} }
	and := func(a, b ast.Node) ast.Node { return &ast.LogOp{Op: "and", Left: a, Right: b, Line: line} }
	or := func(a, b ast.Node) ast.Node { return &ast.LogOp{Op: "or", Left: a, Right: b, Line: line} }

	switch n.Op {
	case "xor":
		return or(and(l, not(r)), and(not(l), r)), nil
	case "nand":
		return not(and(l, r)), nil
	case "nor":
		return not(or(l, r)), nil
	case "xnor":
		return not(&ast.LogOp{Op: "xor", Left: l, Right: r, Line: line}), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownOperator, n.Op)
}
