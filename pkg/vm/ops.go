package vm

import "fmt"

// Opcode is the top byte of an encoded instruction.
type Opcode uint8

const (
	OP_HALT Opcode = iota
	OP_PUSH
	OP_POP
	OP_DUP
	OP_JMP
	OP_JMP_IF_FALSE
	OP_JMP_IF_TRUE

	// Operators. Binary operators pop RIGHT first, then LEFT.
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_FLOOR_DIV
	OP_POW
	OP_MOD
	OP_GT
	OP_LT
	OP_GTE
	OP_LTE
	OP_EQ
	OP_NE
	OP_BIT_AND
	OP_BIT_OR
	OP_BIT_XOR
	OP_LSHIFT
	OP_RSHIFT
	OP_NEG
	OP_INV
	OP_NOT

	opCount
)

// MaxArg is the largest argument an instruction can carry.
const MaxArg = 0x00FFFFFF

var opNames = [opCount]string{
	OP_HALT:         "HALT",
	OP_PUSH:         "PUSH",
	OP_POP:          "POP",
	OP_DUP:          "DUP",
	OP_JMP:          "JMP",
	OP_JMP_IF_FALSE: "JMP_IF_FALSE",
	OP_JMP_IF_TRUE:  "JMP_IF_TRUE",
	OP_ADD:          "+",
	OP_SUB:          "-",
	OP_MUL:          "*",
	OP_DIV:          "/",
	OP_FLOOR_DIV:    "//",
	OP_POW:          "**",
	OP_MOD:          "%",
	OP_GT:           ">",
	OP_LT:           "<",
	OP_GTE:          ">=",
	OP_LTE:          "<=",
	OP_EQ:           "==",
	OP_NE:           "!=",
	OP_BIT_AND:      "&",
	OP_BIT_OR:       "|",
	OP_BIT_XOR:      "^",
	OP_LSHIFT:       "<<",
	OP_RSHIFT:       ">>",
	OP_NEG:          "u-",
	OP_INV:          "u~",
	OP_NOT:          "not",
}

var operatorOps = make(map[string]Opcode)

func init() {
	for op := Opcode(0); op < opCount; op++ {
		name := opNames[op]
		if name == "" {
			panic(fmt.Sprintf("vm: opcode %d has no name", op))
		}
		if op.IsOperator() {
			operatorOps[name] = op
		}
	}
}

func (op Opcode) String() string {
	if op < opCount {
		return opNames[op]
	}
	return fmt.Sprintf("Opcode(%d)", uint8(op))
}

// IsJump reports whether op takes a label argument.
func (op Opcode) IsJump() bool {
	return op == OP_JMP || op == OP_JMP_IF_FALSE || op == OP_JMP_IF_TRUE
}

// IsOperator reports whether op is an Operator(symbol) instruction.
func (op Opcode) IsOperator() bool {
	return op >= OP_ADD && op < opCount
}

// Operator returns the opcode for an operator symbol. Unary minus and
// complement take a "u" prefix ("u-", "u~"). Logical negation keeps the
// bare word "not" and has no "unot" spelling.
func Operator(symbol string) (Opcode, bool) {
	op, ok := operatorOps[symbol]
	return op, ok
}

// Encode packs an opcode and a 24-bit argument.
func Encode(op Opcode, arg uint32) uint32 {
	return (uint32(op) << 24) | (arg & MaxArg)
}

// Decode splits an instruction into opcode and argument.
func Decode(instr uint32) (Opcode, uint32) {
	return Opcode(instr >> 24), instr & MaxArg
}
