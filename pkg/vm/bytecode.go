package vm

import (
	"errors"

	"github.com/agenthands/zoro/pkg/core/value"
)

var (
	ErrLabelBound       = errors.New("vm: label bound twice")
	ErrLabelUnresolved  = errors.New("vm: label never bound")
	ErrFinalized        = errors.New("vm: bytecode already finalized")
	ErrTooManyConstants = errors.New("vm: constant pool exceeds 24-bit index space")
	ErrTooManyLabels    = errors.New("vm: label table exceeds 24-bit index space")
)

// Unresolved is the position of a label that has not been bound.
const Unresolved = -1

// Label indexes a slot in the Bytecode label table.
type Label uint32

// Bytecode represents the compiled output of a program.
//
// Jump instructions carry a Label index; Labels maps each index to the
// instruction position it was bound to. A finalized unit ends in exactly
// one HALT and has no Unresolved labels.
type Bytecode struct {
	Instructions []uint32
	Constants    []value.Value
	Arena        []byte
	Labels       []int

	stringOffsets map[string]uint32
	finalized     bool
}

// NewBytecode returns an empty, unfinalized unit.
func NewBytecode() *Bytecode {
	return &Bytecode{stringOffsets: make(map[string]uint32)}
}

// Len returns the number of instructions emitted so far.
func (b *Bytecode) Len() int {
	return len(b.Instructions)
}

// Finalized reports whether Finalize has succeeded.
func (b *Bytecode) Finalized() bool {
	return b.finalized
}

// Emit appends one instruction and returns its position.
// It panics if the unit is finalized.
func (b *Bytecode) Emit(op Opcode, arg uint32) int {
	if b.finalized {
		panic(ErrFinalized)
	}
	b.Instructions = append(b.Instructions, Encode(op, arg))
	return len(b.Instructions) - 1
}

// EmitJump appends a jump-family instruction referencing l.
func (b *Bytecode) EmitJump(op Opcode, l Label) int {
	return b.Emit(op, uint32(l))
}

// NewLabel allocates an unresolved label. Panics with ErrTooManyLabels
// once the table outgrows the instruction argument width.
func (b *Bytecode) NewLabel() Label {
	if len(b.Labels) > MaxArg {
		panic(ErrTooManyLabels)
	}
	b.Labels = append(b.Labels, Unresolved)
	return Label(len(b.Labels) - 1)
}

// BindLabel resolves l to the position of the next instruction to be
// appended. A label can be bound only once.
func (b *Bytecode) BindLabel(l Label) error {
	if b.Labels[l] != Unresolved {
		return ErrLabelBound
	}
	b.Labels[l] = len(b.Instructions)
	return nil
}

// Target returns the position l is bound to, or Unresolved.
func (b *Bytecode) Target(l Label) int {
	if int(l) >= len(b.Labels) {
		return Unresolved
	}
	return b.Labels[l]
}

// AddConstant interns v in the constant pool and returns its index.
func (b *Bytecode) AddConstant(v value.Value) uint32 {
	for i, existing := range b.Constants {
		if value.Same(existing, v) {
			return uint32(i)
		}
	}
	if len(b.Constants) > MaxArg {
		panic(ErrTooManyConstants)
	}
	b.Constants = append(b.Constants, v)
	return uint32(len(b.Constants) - 1)
}

// AddString packs s into the arena once and returns the string value.
func (b *Bytecode) AddString(s string) value.Value {
	if b.stringOffsets == nil {
		b.stringOffsets = make(map[string]uint32)
	}
	offset, ok := b.stringOffsets[s]
	if !ok {
		offset = uint32(len(b.Arena))
		b.Arena = append(b.Arena, s...)
		b.stringOffsets[s] = offset
	}
	return value.Value{Type: value.TypeString, Data: value.PackString(offset, uint32(len(s)))}
}

// Finalize appends the terminating HALT and checks that every label is
// bound. On error the unit stays unfinalized.
func (b *Bytecode) Finalize() error {
	if b.finalized {
		return ErrFinalized
	}
	for _, pos := range b.Labels {
		if pos == Unresolved {
			return ErrLabelUnresolved
		}
	}
	b.Emit(OP_HALT, 0)
	b.finalized = true
	return nil
}
