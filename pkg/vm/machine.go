package vm

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/agenthands/zoro/pkg/core/value"
)

var (
	ErrStackOverflow  = errors.New("vm: stack overflow")
	ErrStackUnderflow = errors.New("vm: stack underflow")
	ErrGasExhausted   = errors.New("vm: gas exhausted")
	ErrDivisionByZero = errors.New("vm: division by zero")
	ErrTypeMismatch   = errors.New("vm: operand type mismatch")
	ErrBadJump        = errors.New("vm: jump to unresolved label")
)

const StackDepth = 256

// Machine executes a finalized Bytecode unit.
// It uses a fixed-size stack to ensure a predictable memory footprint.
type Machine struct {
	Stack [StackDepth]value.Value
	SP    int // Stack Pointer

	IP     int      // Instruction Pointer
	Code   []uint32 // Bytecode instructions
	Labels []int    // Label index -> instruction position

	Constants []value.Value // Constant pool

	// Arena for string data. Concatenation appends to it.
	Arena []byte
}

var machinePool = sync.Pool{
	New: func() any { return new(Machine) },
}

// GetMachine returns a reset machine from the pool.
func GetMachine() *Machine {
	return machinePool.Get().(*Machine)
}

// PutMachine resets m and returns it to the pool.
func PutMachine(m *Machine) {
	m.Reset()
	machinePool.Put(m)
}

// Reset clears the machine state for reuse (sync.Pool compliant).
func (m *Machine) Reset() {
	m.SP = 0
	m.IP = 0
	m.Code = nil
	m.Labels = nil
	m.Constants = nil
	m.Arena = nil

	// Zero out the stack to avoid data leakage between runs
	for i := range m.Stack {
		m.Stack[i] = value.Value{}
	}
}

// Load points the machine at a compiled unit.
func (m *Machine) Load(bc *Bytecode) {
	m.Code = bc.Instructions
	m.Labels = bc.Labels
	m.Constants = bc.Constants
	// Clip so appends never write into the unit's backing array.
	m.Arena = bc.Arena[:len(bc.Arena):len(bc.Arena)]
	m.IP = 0
	m.SP = 0
}

// Push adds a value to the stack. Panics on overflow.
func (m *Machine) Push(v value.Value) {
	if m.SP >= StackDepth {
		panic(ErrStackOverflow)
	}
	m.Stack[m.SP] = v
	m.SP++
}

// Pop removes and returns the top value from the stack. Panics on underflow.
func (m *Machine) Pop() value.Value {
	if m.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	m.SP--
	return m.Stack[m.SP]
}

// Peek returns the top value without removing it. Panics on underflow.
func (m *Machine) Peek() value.Value {
	if m.SP <= 0 {
		panic(ErrStackUnderflow)
	}
	return m.Stack[m.SP-1]
}

// Result returns the top of the stack after a run, if any.
func (m *Machine) Result() (value.Value, bool) {
	if m.SP == 0 {
		return value.Value{}, false
	}
	return m.Stack[m.SP-1], true
}

// Format renders v against the machine's arena.
func (m *Machine) Format(v value.Value) string {
	return v.Format(m.Arena)
}

// Run executes instructions until HALT, error, or gas exhaustion.
func (m *Machine) Run(gasLimit int) (err error) {
	// Convert internal stack panics to errors
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && (e == ErrStackOverflow || e == ErrStackUnderflow) {
				err = fmt.Errorf("%w (IP: %d)", e, m.IP)
				return
			}
			if _, ok := r.(runtime.Error); ok {
				err = fmt.Errorf("vm: %v (IP: %d)", r, m.IP)
				return
			}
			panic(r)
		}
	}()

	for i := 0; i < gasLimit; i++ {
		if m.IP < 0 || m.IP >= len(m.Code) {
			return fmt.Errorf("vm: instruction pointer %d out of range", m.IP)
		}
		op, arg := Decode(m.Code[m.IP])

		switch {
		case op == OP_HALT:
			return nil

		case op == OP_PUSH:
			m.Push(m.Constants[arg])
			m.IP++

		case op == OP_POP:
			m.Pop()
			m.IP++

		case op == OP_DUP:
			m.Push(m.Peek())
			m.IP++

		case op == OP_JMP:
			if err := m.jump(arg); err != nil {
				return err
			}

		case op == OP_JMP_IF_FALSE, op == OP_JMP_IF_TRUE:
			cond := m.Pop().Truthy()
			if cond == (op == OP_JMP_IF_TRUE) {
				if err := m.jump(arg); err != nil {
					return err
				}
			} else {
				m.IP++
			}

		case op == OP_NEG, op == OP_INV, op == OP_NOT:
			res, err := m.unary(op, m.Pop())
			if err != nil {
				return fmt.Errorf("%w (IP: %d)", err, m.IP)
			}
			m.Push(res)
			m.IP++

		case op.IsOperator():
			right := m.Pop()
			left := m.Pop()
			res, err := m.binary(op, left, right)
			if err != nil {
				return fmt.Errorf("%w (IP: %d)", err, m.IP)
			}
			m.Push(res)
			m.IP++

		default:
			return fmt.Errorf("vm: unknown opcode %d at IP %d", uint8(op), m.IP)
		}
	}

	return ErrGasExhausted
}

func (m *Machine) jump(arg uint32) error {
	if int(arg) >= len(m.Labels) || m.Labels[arg] == Unresolved {
		return fmt.Errorf("%w %d (IP: %d)", ErrBadJump, arg, m.IP)
	}
	m.IP = m.Labels[arg]
	return nil
}
