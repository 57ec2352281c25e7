package vm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agenthands/zoro/pkg/core/value"
)

// FormatInstruction renders the instruction at index i. Jumps show the
// label's current position, so an unbound label prints as -1.
func (b *Bytecode) FormatInstruction(i int) string {
	op, arg := Decode(b.Instructions[i])
	switch {
	case op == OP_PUSH:
		return fmt.Sprintf("%4d  %-13s %s", i, op, b.formatConstant(arg))
	case op.IsJump():
		return fmt.Sprintf("%4d  %-13s %d", i, op, b.Target(Label(arg)))
	default:
		return fmt.Sprintf("%4d  %s", i, op)
	}
}

func (b *Bytecode) formatConstant(idx uint32) string {
	if int(idx) >= len(b.Constants) {
		return fmt.Sprintf("<bad constant %d>", idx)
	}
	c := b.Constants[idx]
	if c.Type == value.TypeString {
		return strconv.Quote(value.UnpackString(c.Data, b.Arena))
	}
	return c.Format(b.Arena)
}

// Fprint writes one line per instruction to w.
func Fprint(w io.Writer, b *Bytecode) error {
	for i := range b.Instructions {
		if _, err := fmt.Fprintln(w, b.FormatInstruction(i)); err != nil {
			return err
		}
	}
	return nil
}

// Disassemble returns the Fprint output as a string.
func Disassemble(b *Bytecode) string {
	var sb strings.Builder
	Fprint(&sb, b)
	return sb.String()
}
