package vm

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/agenthands/zoro/pkg/core/value"
)

var errNegativeShift = errors.New("vm: negative shift count")

// numeric ranks, lowest first. Mixed operands promote to the higher rank.
const (
	rankInt = iota
	rankFrac
	rankFloat
)

func rank(v value.Value) (int, bool) {
	switch v.Type {
	case value.TypeInt, value.TypeBool:
		return rankInt, true
	case value.TypeFrac:
		return rankFrac, true
	case value.TypeFloat:
		return rankFloat, true
	}
	return 0, false
}

func (m *Machine) unary(op Opcode, v value.Value) (value.Value, error) {
	switch op {
	case OP_NOT:
		return value.Bool(!v.Truthy()), nil
	case OP_NEG:
		switch v.Type {
		case value.TypeInt, value.TypeBool:
			return value.Int(-v.Int()), nil
		case value.TypeFloat:
			return value.Float(-v.Float()), nil
		case value.TypeFrac:
			return value.Frac(new(big.Rat).Neg(v.Rat())), nil
		}
	case OP_INV:
		if v.Type == value.TypeInt || v.Type == value.TypeBool {
			return value.Int(^v.Int()), nil
		}
	}
	return value.Value{}, fmt.Errorf("%w: %s %s", ErrTypeMismatch, op, v.Type)
}

func (m *Machine) binary(op Opcode, left, right value.Value) (value.Value, error) {
	if left.Type == value.TypeString && right.Type == value.TypeString {
		return m.stringOp(op, left, right)
	}

	lr, lok := rank(left)
	rr, rok := rank(right)
	if !lok || !rok {
		switch op {
		case OP_EQ:
			return value.Bool(false), nil
		case OP_NE:
			return value.Bool(true), nil
		}
		return value.Value{}, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, left.Type, op, right.Type)
	}

	switch max(lr, rr) {
	case rankInt:
		if left.Type == value.TypeBool && right.Type == value.TypeBool {
			switch op {
			case OP_BIT_AND:
				return value.Bool(left.Data&right.Data != 0), nil
			case OP_BIT_OR:
				return value.Bool(left.Data|right.Data != 0), nil
			case OP_BIT_XOR:
				return value.Bool(left.Data^right.Data != 0), nil
			}
		}
		return intOp(op, left.Int(), right.Int())
	case rankFrac:
		return fracOp(op, left.Rat(), right.Rat())
	default:
		return floatOp(op, left.Float(), right.Float())
	}
}

func (m *Machine) stringOp(op Opcode, left, right value.Value) (value.Value, error) {
	a := value.UnpackString(left.Data, m.Arena)
	b := value.UnpackString(right.Data, m.Arena)
	switch op {
	case OP_ADD:
		offset := uint32(len(m.Arena))
		m.Arena = append(m.Arena, a...)
		m.Arena = append(m.Arena, b...)
		return value.Value{Type: value.TypeString, Data: value.PackString(offset, uint32(len(a)+len(b)))}, nil
	case OP_EQ:
		return value.Bool(a == b), nil
	case OP_NE:
		return value.Bool(a != b), nil
	case OP_LT:
		return value.Bool(a < b), nil
	case OP_GT:
		return value.Bool(a > b), nil
	case OP_LTE:
		return value.Bool(a <= b), nil
	case OP_GTE:
		return value.Bool(a >= b), nil
	}
	return value.Value{}, fmt.Errorf("%w: String %s String", ErrTypeMismatch, op)
}

func intOp(op Opcode, a, b int64) (value.Value, error) {
	switch op {
	case OP_ADD:
		return value.Int(a + b), nil
	case OP_SUB:
		return value.Int(a - b), nil
	case OP_MUL:
		return value.Int(a * b), nil
	case OP_DIV:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		return value.Float(float64(a) / float64(b)), nil
	case OP_FLOOR_DIV:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return value.Int(q), nil
	case OP_MOD:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return value.Int(r), nil
	case OP_POW:
		if b < 0 {
			return value.Float(math.Pow(float64(a), float64(b))), nil
		}
		res := int64(1)
		for base := a; b > 0; b >>= 1 {
			if b&1 == 1 {
				res *= base
			}
			base *= base
		}
		return value.Int(res), nil
	case OP_BIT_AND:
		return value.Int(a & b), nil
	case OP_BIT_OR:
		return value.Int(a | b), nil
	case OP_BIT_XOR:
		return value.Int(a ^ b), nil
	case OP_LSHIFT:
		if b < 0 {
			return value.Value{}, errNegativeShift
		}
		if b >= 64 {
			return value.Int(0), nil
		}
		return value.Int(a << uint(b)), nil
	case OP_RSHIFT:
		if b < 0 {
			return value.Value{}, errNegativeShift
		}
		if b >= 64 {
			b = 63
		}
		return value.Int(a >> uint(b)), nil
	}
	return compare(op, cmpInt(a, b))
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func fracOp(op Opcode, a, b *big.Rat) (value.Value, error) {
	switch op {
	case OP_ADD:
		return value.Frac(new(big.Rat).Add(a, b)), nil
	case OP_SUB:
		return value.Frac(new(big.Rat).Sub(a, b)), nil
	case OP_MUL:
		return value.Frac(new(big.Rat).Mul(a, b)), nil
	case OP_DIV:
		if b.Sign() == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		return value.Frac(new(big.Rat).Quo(a, b)), nil
	case OP_FLOOR_DIV, OP_MOD:
		if b.Sign() == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		q := new(big.Rat).Quo(a, b)
		// Rat denominators are positive, so Euclidean division floors.
		floor := new(big.Rat).SetInt(new(big.Int).Div(q.Num(), q.Denom()))
		if op == OP_FLOOR_DIV {
			return value.Frac(floor), nil
		}
		return value.Frac(new(big.Rat).Sub(a, new(big.Rat).Mul(b, floor))), nil
	case OP_POW:
		if b.IsInt() && b.Num().IsInt64() {
			n := b.Num().Int64()
			base := a
			if n < 0 {
				if a.Sign() == 0 {
					return value.Value{}, ErrDivisionByZero
				}
				base = new(big.Rat).Inv(a)
				n = -n
			}
			res := big.NewRat(1, 1)
			for sq := new(big.Rat).Set(base); n > 0; n >>= 1 {
				if n&1 == 1 {
					res.Mul(res, sq)
				}
				sq.Mul(sq, sq)
			}
			return value.Frac(res), nil
		}
		x, _ := a.Float64()
		y, _ := b.Float64()
		return value.Float(math.Pow(x, y)), nil
	case OP_GT, OP_LT, OP_GTE, OP_LTE, OP_EQ, OP_NE:
		return compare(op, a.Cmp(b))
	}
	return value.Value{}, fmt.Errorf("%w: Frac %s", ErrTypeMismatch, op)
}

func floatOp(op Opcode, a, b float64) (value.Value, error) {
	switch op {
	case OP_ADD:
		return value.Float(a + b), nil
	case OP_SUB:
		return value.Float(a - b), nil
	case OP_MUL:
		return value.Float(a * b), nil
	case OP_DIV:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		return value.Float(a / b), nil
	case OP_FLOOR_DIV:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		return value.Float(math.Floor(a / b)), nil
	case OP_MOD:
		if b == 0 {
			return value.Value{}, ErrDivisionByZero
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return value.Float(r), nil
	case OP_POW:
		return value.Float(math.Pow(a, b)), nil
	case OP_EQ:
		return value.Bool(a == b), nil
	case OP_NE:
		return value.Bool(a != b), nil
	case OP_LT:
		return value.Bool(a < b), nil
	case OP_GT:
		return value.Bool(a > b), nil
	case OP_LTE:
		return value.Bool(a <= b), nil
	case OP_GTE:
		return value.Bool(a >= b), nil
	}
	return value.Value{}, fmt.Errorf("%w: Float %s", ErrTypeMismatch, op)
}

func compare(op Opcode, c int) (value.Value, error) {
	switch op {
	case OP_EQ:
		return value.Bool(c == 0), nil
	case OP_NE:
		return value.Bool(c != 0), nil
	case OP_LT:
		return value.Bool(c < 0), nil
	case OP_GT:
		return value.Bool(c > 0), nil
	case OP_LTE:
		return value.Bool(c <= 0), nil
	case OP_GTE:
		return value.Bool(c >= 0), nil
	}
	return value.Value{}, fmt.Errorf("%w: unsupported operator %s", ErrTypeMismatch, op)
}
