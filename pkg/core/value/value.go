package value

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"unsafe"
)

// Type represents the tag in the Value tagged union.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt
	TypeBool
	TypeFloat
	TypeFrac
	TypeString
)

var typeNames = [...]string{
	TypeVoid:   "void",
	TypeInt:    "Int",
	TypeBool:   "Bool",
	TypeFloat:  "Float",
	TypeFrac:   "Frac",
	TypeString: "String",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// Value is a tagged union.
// Int, Bool and Float live in Data; Frac keeps a *big.Rat in Opaque;
// String packs an arena offset and length into Data.
type Value struct {
	Type   Type
	Data   uint64
	Opaque any
}

// Int wraps an int64.
func Int(i int64) Value {
	return Value{Type: TypeInt, Data: uint64(i)}
}

// Float wraps a float64.
func Float(f float64) Value {
	return Value{Type: TypeFloat, Data: math.Float64bits(f)}
}

// Bool wraps a bool.
func Bool(b bool) Value {
	if b {
		return Value{Type: TypeBool, Data: 1}
	}
	return Value{Type: TypeBool}
}

// Frac wraps a rational. The rational is copied.
func Frac(r *big.Rat) Value {
	return Value{Type: TypeFrac, Opaque: new(big.Rat).Set(r)}
}

// PackString encodes offset and length into the Data register.
func PackString(offset, length uint32) uint64 {
	return (uint64(offset) << 32) | uint64(length)
}

// UnpackString retrieves a string view from the arena.
func UnpackString(data uint64, arena []byte) string {
	offset := uint32(data >> 32)
	length := uint32(data)

	if uint64(offset)+uint64(length) > uint64(len(arena)) {
		panic("value: memory access violation")
	}

	if length == 0 {
		return ""
	}

	return unsafe.String(&arena[offset], length)
}

// Int returns the value as int64.
func (v Value) Int() int64 {
	return int64(v.Data)
}

// Float returns the value as float64, converting Int and Frac.
func (v Value) Float() float64 {
	switch v.Type {
	case TypeFloat:
		return math.Float64frombits(v.Data)
	case TypeFrac:
		f, _ := v.Rat().Float64()
		return f
	}
	return float64(int64(v.Data))
}

// Rat returns the value as a rational. Int converts exactly; Float
// converts through SetFloat64 and yields nil for NaN and infinities.
func (v Value) Rat() *big.Rat {
	switch v.Type {
	case TypeFrac:
		if r, ok := v.Opaque.(*big.Rat); ok {
			return r
		}
		return new(big.Rat)
	case TypeFloat:
		return new(big.Rat).SetFloat64(v.Float())
	}
	return new(big.Rat).SetInt64(int64(v.Data))
}

// Truthy reports whether a jump condition holds for v.
func (v Value) Truthy() bool {
	switch v.Type {
	case TypeFloat:
		return v.Float() != 0
	case TypeFrac:
		return v.Rat().Sign() != 0
	case TypeString:
		return uint32(v.Data) != 0
	case TypeVoid:
		return false
	}
	return v.Data != 0
}

// IsNumeric reports whether v is Int, Float or Frac.
func (v Value) IsNumeric() bool {
	return v.Type == TypeInt || v.Type == TypeFloat || v.Type == TypeFrac
}

// Same reports whether two constants are interchangeable in a constant pool.
// Strings compare by packed location, not content.
func Same(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	if a.Type == TypeFrac {
		return a.Rat().Cmp(b.Rat()) == 0
	}
	return a.Data == b.Data
}

// Format returns a string representation of the value.
func (v Value) Format(arena []byte) string {
	switch v.Type {
	case TypeString:
		return UnpackString(v.Data, arena)
	case TypeInt:
		return fmt.Sprintf("%d", int64(v.Data))
	case TypeFloat:
		f := math.Float64frombits(v.Data)
		s := fmt.Sprintf("%g", f)
		if !strings.ContainsAny(s, ".eIN") {
			s += ".0"
		}
		return s
	case TypeFrac:
		return v.Rat().RatString()
	case TypeBool:
		if v.Data != 0 {
			return "True"
		}
		return "False"
	case TypeVoid:
		return "None"
	default:
		return fmt.Sprintf("%v", v.Data)
	}
}
