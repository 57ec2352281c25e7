// Package ast defines the closed set of node kinds the bytecode compiler
// consumes. Trees are built by a frontend and never mutated afterwards.
package ast

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Node represents any node in the Abstract Syntax Tree.
type Node interface {
	// Pos returns the source line the node started on, or 0 if unknown.
	Pos() int
	fmt.Stringer
	node()
}

// MathOp: LEFT op RIGHT for + - * / // ** %
type MathOp struct {
	Op          string
	Left, Right Node
	Line        int
}

func (n *MathOp) Pos() int       { return n.Line }
func (n *MathOp) String() string { return binary(n.Op, n.Left, n.Right) }
func (*MathOp) node()            {}

// CndOp: LEFT op RIGHT for < > <= >= == !=
type CndOp struct {
	Op          string
	Left, Right Node
	Line        int
}

func (n *CndOp) Pos() int       { return n.Line }
func (n *CndOp) String() string { return binary(n.Op, n.Left, n.Right) }
func (*CndOp) node()            {}

// BitOp: LEFT op RIGHT for & | ^ << >>
type BitOp struct {
	Op          string
	Left, Right Node
	Line        int
}

func (n *BitOp) Pos() int       { return n.Line }
func (n *BitOp) String() string { return binary(n.Op, n.Left, n.Right) }
func (*BitOp) node()            {}

// UnOp: op OPERAND for - ~ not
type UnOp struct {
	Op      string
	Operand Node
	Line    int
}

func (n *UnOp) Pos() int       { return n.Line }
func (n *UnOp) String() string { return fmt.Sprintf("(%s %s)", n.Op, n.Operand) }
func (*UnOp) node()            {}

// LogOp: LEFT op RIGHT for and or xor nand nor xnor
type LogOp struct {
	Op          string
	Left, Right Node
	Line        int
}

func (n *LogOp) Pos() int       { return n.Line }
func (n *LogOp) String() string { return binary(n.Op, n.Left, n.Right) }
func (*LogOp) node()            {}

// Sequence evaluates statements in order; its value is the last one's.
type Sequence struct {
	Stmts []Node
	Line  int
}

func (n *Sequence) Pos() int { return n.Line }
func (n *Sequence) String() string {
	if len(n.Stmts) == 0 {
		return "(seq)"
	}
	parts := make([]string, len(n.Stmts))
	for i, s := range n.Stmts {
		parts[i] = s.String()
	}
	return "(seq " + strings.Join(parts, " ") + ")"
}
func (*Sequence) node() {}

// If holds ordered condition/body pairs. Bodies has one extra trailing
// element when an else branch is present.
type If struct {
	Conds  []Node
	Bodies []Node
	Line   int
}

func (n *If) Pos() int { return n.Line }

// Else returns the else body, or nil.
func (n *If) Else() Node {
	if len(n.Bodies) > len(n.Conds) {
		return n.Bodies[len(n.Conds)]
	}
	return nil
}

func (n *If) String() string {
	var sb strings.Builder
	sb.WriteString("(if")
	for i, c := range n.Conds {
		fmt.Fprintf(&sb, " [%s %s]", c, n.Bodies[i])
	}
	if e := n.Else(); e != nil {
		fmt.Fprintf(&sb, " [else %s]", e)
	}
	sb.WriteString(")")
	return sb.String()
}
func (*If) node() {}

// While is a pre-checked loop.
type While struct {
	Cond Node
	Body Node
	Line int
}

func (n *While) Pos() int       { return n.Line }
func (n *While) String() string { return fmt.Sprintf("(while %s %s)", n.Cond, n.Body) }
func (*While) node()            {}

// Literal values

type IntLit struct {
	Value int64
	Line  int
}

func (n *IntLit) Pos() int       { return n.Line }
func (n *IntLit) String() string { return strconv.FormatInt(n.Value, 10) }
func (*IntLit) node()            {}

type FloatLit struct {
	Value float64
	Line  int
}

func (n *FloatLit) Pos() int       { return n.Line }
func (n *FloatLit) String() string { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (*FloatLit) node()            {}

type FracLit struct {
	Value *big.Rat
	Line  int
}

func (n *FracLit) Pos() int       { return n.Line }
func (n *FracLit) String() string { return n.Value.RatString() }
func (*FracLit) node()            {}

type StringLit struct {
	Value string
	Line  int
}

func (n *StringLit) Pos() int       { return n.Line }
func (n *StringLit) String() string { return strconv.Quote(n.Value) }
func (*StringLit) node()            {}

type BoolLit struct {
	Value bool
	Line  int
}

func (n *BoolLit) Pos() int { return n.Line }
func (n *BoolLit) String() string {
	if n.Value {
		return "True"
	}
	return "False"
}
func (*BoolLit) node() {}

func binary(op string, left, right Node) string {
	return fmt.Sprintf("(%s %s %s)", op, left, right)
}
