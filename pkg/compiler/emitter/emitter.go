// Package emitter lowers an AST into a finalized vm.Bytecode unit.
//
// Every node in value position pushes exactly one value. For binary
// operators LEFT is pushed before RIGHT, so the operator's first pop
// yields RIGHT. Nodes in statement position leave the stack unchanged.
package emitter

import (
	"errors"
	"fmt"

	"github.com/agenthands/zoro/pkg/compiler/ast"
	"github.com/agenthands/zoro/pkg/core/value"
	"github.com/agenthands/zoro/pkg/vm"
)

var (
	mathOps = opSet("+", "-", "*", "/", "//", "**", "%")
	cndOps  = opSet("<", ">", "<=", ">=", "==", "!=")
	bitOps  = opSet("&", "|", "^", "<<", ">>")

	unaryOps = map[string]string{
		"-":   "u-",
		"~":   "u~",
		"not": "not",
	}
)

func opSet(ops ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// Emitter holds the state of one compilation. All of it is reset at the
// start of Emit, so an Emitter must not be shared between goroutines but
// may be reused sequentially.
type Emitter struct {
	code *vm.Bytecode
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// Compile lowers root into a fresh unit. The unit's result is the root's
// value when the root has one; a root loop or else-less conditional is
// compiled as a statement.
func Compile(root ast.Node) (*vm.Bytecode, error) {
	return NewEmitter().Emit(root)
}

// CompileExpr is like Compile but requires root to produce a value.
func CompileExpr(root ast.Node) (*vm.Bytecode, error) {
	return NewEmitter().EmitExpr(root)
}

// Emit compiles root, choosing value or statement position by what the
// root can produce.
func (e *Emitter) Emit(root ast.Node) (*vm.Bytecode, error) {
	return e.run(root, yieldsValue(root))
}

// EmitExpr compiles root in value position.
func (e *Emitter) EmitExpr(root ast.Node) (*vm.Bytecode, error) {
	return e.run(root, true)
}

func (e *Emitter) run(root ast.Node, want bool) (bc *vm.Bytecode, err error) {
	e.code = vm.NewBytecode()
	defer func() { e.code = nil }()

	// The unit panics when its 24-bit index space runs out.
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(error); ok && (errors.Is(re, vm.ErrTooManyConstants) || errors.Is(re, vm.ErrTooManyLabels)) {
				bc, err = nil, &CompileError{Err: re}
				return
			}
			panic(r)
		}
	}()

	if root == nil {
		return nil, &CompileError{Err: fmt.Errorf("%w: nil root", ErrMalformedNode)}
	}

	if want {
		err = e.emitValue(root)
	} else {
		err = e.emitStatement(root)
	}
	if err != nil {
		return nil, err
	}

	if err := e.code.Finalize(); err != nil {
		return nil, &CompileError{Line: root.Pos(), Err: err}
	}
	return e.code, nil
}

// yieldsValue reports whether n can be compiled in value position.
func yieldsValue(n ast.Node) bool {
	switch n := n.(type) {
	case *ast.While:
		return false
	case *ast.If:
		if n.Else() == nil {
			return false
		}
		for _, body := range n.Bodies {
			if !yieldsValue(body) {
				return false
			}
		}
		return true
	case *ast.Sequence:
		return len(n.Stmts) > 0 && yieldsValue(n.Stmts[len(n.Stmts)-1])
	}
	return true
}

// emitValue emits code that pushes exactly one value.
func (e *Emitter) emitValue(node ast.Node) error {
	switch n := node.(type) {
	case *ast.IntLit:
		e.push(value.Int(n.Value))

	case *ast.FloatLit:
		e.push(value.Float(n.Value))

	case *ast.FracLit:
		if n.Value == nil {
			return errorAt(n, fmt.Errorf("%w: Frac literal without value", ErrMalformedNode))
		}
		e.push(value.Frac(n.Value))

	case *ast.StringLit:
		e.push(e.code.AddString(n.Value))

	case *ast.BoolLit:
		e.push(value.Bool(n.Value))

	case *ast.MathOp:
		return e.emitBinary(n, "MathOp", mathOps, n.Op, n.Left, n.Right)

	case *ast.CndOp:
		return e.emitBinary(n, "CndOp", cndOps, n.Op, n.Left, n.Right)

	case *ast.BitOp:
		return e.emitBinary(n, "BitOp", bitOps, n.Op, n.Left, n.Right)

	case *ast.UnOp:
		return e.emitUnary(n)

	case *ast.LogOp:
		return e.emitLogical(n)

	case *ast.Sequence:
		return e.emitSequence(n, true)

	case *ast.If:
		return e.emitIf(n, true)

	case *ast.While:
		return errorAt(n, fmt.Errorf("%w: loop used as a value", ErrNoValue))

	default:
		return errorAt(node, fmt.Errorf("%w %T", ErrUnsupportedNode, node))
	}
	return nil
}

// emitStatement emits code with no net stack effect.
func (e *Emitter) emitStatement(node ast.Node) error {
	switch n := node.(type) {
	case *ast.While:
		return e.emitWhile(n)

	case *ast.Sequence:
		return e.emitSequence(n, false)

	case *ast.If:
		if !yieldsValue(n) {
			return e.emitIf(n, false)
		}
	}

	if err := e.emitValue(node); err != nil {
		return err
	}
	e.code.Emit(vm.OP_POP, 0)
	return nil
}

func (e *Emitter) emitBinary(n ast.Node, kind string, allowed map[string]struct{}, op string, left, right ast.Node) error {
	if _, ok := allowed[op]; !ok {
		return errorAt(n, fmt.Errorf("%w %q in %s", ErrUnknownOperator, op, kind))
	}
	opcode, ok := vm.Operator(op)
	if !ok {
		return errorAt(n, fmt.Errorf("%w %q", ErrUnknownOperator, op))
	}
	if err := e.emitValue(left); err != nil {
		return err
	}
	if err := e.emitValue(right); err != nil {
		return err
	}
	e.code.Emit(opcode, 0)
	return nil
}

func (e *Emitter) emitUnary(n *ast.UnOp) error {
	sym, ok := unaryOps[n.Op]
	if !ok {
		return errorAt(n, fmt.Errorf("%w %q in UnOp", ErrUnknownOperator, n.Op))
	}
	opcode, ok := vm.Operator(sym)
	if !ok {
		return errorAt(n, fmt.Errorf("%w %q", ErrUnknownOperator, sym))
	}
	if err := e.emitValue(n.Operand); err != nil {
		return err
	}
	e.code.Emit(opcode, 0)
	return nil
}

// emitLogical short-circuits and/or:
//
//	LEFT; DUP; JMP_IF_FALSE end (JMP_IF_TRUE for or); POP; RIGHT; end:
func (e *Emitter) emitLogical(n *ast.LogOp) error {
	var jump vm.Opcode
	switch n.Op {
	case "and":
		jump = vm.OP_JMP_IF_FALSE
	case "or":
		jump = vm.OP_JMP_IF_TRUE
	default:
		lowered, err := desugar(n)
		if err != nil {
			return errorAt(n, err)
		}
		return e.emitValue(lowered)
	}

	end := e.code.NewLabel()
	if err := e.emitValue(n.Left); err != nil {
		return err
	}
	e.code.Emit(vm.OP_DUP, 0)
	e.code.EmitJump(jump, end)
	e.code.Emit(vm.OP_POP, 0)
	if err := e.emitValue(n.Right); err != nil {
		return err
	}
	return e.bind(n, end)
}

// emitSequence emits each statement, discarding the value of all but the
// last. In value position the last statement's value is the sequence's.
func (e *Emitter) emitSequence(n *ast.Sequence, want bool) error {
	if len(n.Stmts) == 0 {
		if want {
			return errorAt(n, fmt.Errorf("%w: empty sequence", ErrNoValue))
		}
		return nil
	}
	last := len(n.Stmts) - 1
	for _, stmt := range n.Stmts[:last] {
		if err := e.emitStatement(stmt); err != nil {
			return err
		}
	}
	if want {
		return e.emitValue(n.Stmts[last])
	}
	return e.emitStatement(n.Stmts[last])
}

// emitIf emits, for each condition/body pair:
//
//	COND; JMP_IF_FALSE next; BODY; JMP end; next:
//
// followed by the else body, if any, and end:. In value position every
// body pushes one value and the else branch is mandatory.
func (e *Emitter) emitIf(n *ast.If, want bool) error {
	if len(n.Bodies) != len(n.Conds) && len(n.Bodies) != len(n.Conds)+1 {
		return errorAt(n, fmt.Errorf("%w: %d conditions with %d bodies", ErrMalformedNode, len(n.Conds), len(n.Bodies)))
	}
	elseBody := n.Else()
	if want && elseBody == nil {
		return errorAt(n, ErrMissingElse)
	}

	body := e.emitStatement
	if want {
		body = e.emitValue
	}

	end := e.code.NewLabel()
	for i, cond := range n.Conds {
		next := e.code.NewLabel()
		if err := e.emitValue(cond); err != nil {
			return err
		}
		e.code.EmitJump(vm.OP_JMP_IF_FALSE, next)
		if err := body(n.Bodies[i]); err != nil {
			return err
		}
		e.code.EmitJump(vm.OP_JMP, end)
		if err := e.bind(n, next); err != nil {
			return err
		}
	}
	if elseBody != nil {
		if err := body(elseBody); err != nil {
			return err
		}
	}
	return e.bind(n, end)
}

// emitWhile emits a pre-checked loop that re-translates the condition
// at the bottom instead of jumping back to the top check:
//
//	COND; JMP_IF_FALSE end; top: BODY; COND; JMP_IF_FALSE end; JMP top; end:
//
// BODY is compiled as a statement, so a body value is popped before the
// re-check and the loop is stack-neutral whether it runs or not.
func (e *Emitter) emitWhile(n *ast.While) error {
	end := e.code.NewLabel()
	top := e.code.NewLabel()

	if err := e.emitValue(n.Cond); err != nil {
		return err
	}
	e.code.EmitJump(vm.OP_JMP_IF_FALSE, end)
	if err := e.bind(n, top); err != nil {
		return err
	}
	if err := e.emitStatement(n.Body); err != nil {
		return err
	}
	if err := e.emitValue(n.Cond); err != nil {
		return err
	}
	e.code.EmitJump(vm.OP_JMP_IF_FALSE, end)
	e.code.EmitJump(vm.OP_JMP, top)
	return e.bind(n, end)
}

func (e *Emitter) push(v value.Value) {
	e.code.Emit(vm.OP_PUSH, e.code.AddConstant(v))
}

func (e *Emitter) bind(n ast.Node, l vm.Label) error {
	if err := e.code.BindLabel(l); err != nil {
		return errorAt(n, err)
	}
	return nil
}

func errorAt(n ast.Node, err error) *CompileError {
	line := 0
	if n != nil {
		line = n.Pos()
	}
	return &CompileError{Line: line, Err: err}
}
