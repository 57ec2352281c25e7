package vm_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/agenthands/zoro/pkg/core/value"
	"github.com/agenthands/zoro/pkg/vm"
)

func TestMachineReset(t *testing.T) {
	m := &vm.Machine{}

	// Dirty the machine
	m.SP = 10
	m.IP = 5
	m.Stack[0] = value.Int(100)

	m.Reset()

	if m.SP != 0 || m.IP != 0 {
		t.Errorf("Reset failed: SP=%d, IP=%d", m.SP, m.IP)
	}

	if m.Stack[0].Type != value.TypeVoid {
		t.Errorf("Reset failed to zero out stack")
	}
}

func TestMachineStackOps(t *testing.T) {
	m := &vm.Machine{}

	m.Push(value.Int(42))
	if m.SP != 1 {
		t.Errorf("expected SP=1, got %d", m.SP)
	}

	val := m.Pop()
	if val.Int() != 42 {
		t.Errorf("expected 42, got %d", val.Int())
	}
	if m.SP != 0 {
		t.Errorf("expected SP=0, got %d", m.SP)
	}
}

func TestMachineStackOverflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on stack overflow")
		}
	}()

	m := &vm.Machine{}
	for i := 0; i <= vm.StackDepth; i++ {
		m.Push(value.Int(int64(i)))
	}
}

func TestMachineStackUnderflow(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("expected panic on stack underflow")
		}
	}()

	m := &vm.Machine{}
	m.Pop()
}

// run assembles PUSH of each operand followed by op and HALT.
func run(t *testing.T, op vm.Opcode, operands ...value.Value) (value.Value, error) {
	t.Helper()
	bc := vm.NewBytecode()
	for _, v := range operands {
		bc.Emit(vm.OP_PUSH, bc.AddConstant(v))
	}
	bc.Emit(op, 0)
	if err := bc.Finalize(); err != nil {
		t.Fatal(err)
	}

	m := vm.GetMachine()
	defer vm.PutMachine(m)
	m.Load(bc)
	if err := m.Run(100); err != nil {
		return value.Value{}, err
	}
	res, ok := m.Result()
	if !ok {
		t.Fatalf("no result on stack")
	}
	return res, nil
}

func TestOperandOrder(t *testing.T) {
	tests := []struct {
		name string
		op   vm.Opcode
		l, r int64
		want value.Value
	}{
		{"sub", vm.OP_SUB, 3, 5, value.Int(-2)},
		{"floor div", vm.OP_FLOOR_DIV, 7, 2, value.Int(3)},
		{"floor div negative", vm.OP_FLOOR_DIV, -7, 2, value.Int(-4)},
		{"mod", vm.OP_MOD, 7, 3, value.Int(1)},
		{"mod negative", vm.OP_MOD, -7, 3, value.Int(2)},
		{"pow", vm.OP_POW, 2, 10, value.Int(1024)},
		{"lt", vm.OP_LT, 3, 5, value.Bool(true)},
		{"gt", vm.OP_GT, 3, 5, value.Bool(false)},
		{"lshift", vm.OP_LSHIFT, 1, 4, value.Int(16)},
		{"rshift", vm.OP_RSHIFT, 16, 2, value.Int(4)},
		{"div", vm.OP_DIV, 1, 4, value.Float(0.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := run(t, tt.op, value.Int(tt.l), value.Int(tt.r))
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if !value.Same(got, tt.want) {
				t.Errorf("%d %s %d = %s, want %s", tt.l, tt.op, tt.r, got.Format(nil), tt.want.Format(nil))
			}
		})
	}
}

func TestNumericPromotion(t *testing.T) {
	half := value.Frac(big.NewRat(1, 2))

	got, err := run(t, vm.OP_ADD, value.Int(1), half)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != value.TypeFrac || got.Rat().Cmp(big.NewRat(3, 2)) != 0 {
		t.Errorf("1 + 1/2 = %s, want 3/2", got.Format(nil))
	}

	got, err = run(t, vm.OP_MUL, half, value.Float(3))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != value.TypeFloat || got.Float() != 1.5 {
		t.Errorf("1/2 * 3.0 = %s, want 1.5", got.Format(nil))
	}

	got, err = run(t, vm.OP_POW, half, value.Int(-2))
	if err != nil {
		t.Fatal(err)
	}
	if got.Rat().Cmp(big.NewRat(4, 1)) != 0 {
		t.Errorf("(1/2) ** -2 = %s, want 4", got.Format(nil))
	}
}

func TestUnaryOps(t *testing.T) {
	tests := []struct {
		op   vm.Opcode
		in   value.Value
		want value.Value
	}{
		{vm.OP_NEG, value.Int(5), value.Int(-5)},
		{vm.OP_NEG, value.Float(1.5), value.Float(-1.5)},
		{vm.OP_INV, value.Int(0), value.Int(-1)},
		{vm.OP_NOT, value.Bool(false), value.Bool(true)},
		{vm.OP_NOT, value.Int(3), value.Bool(false)},
	}
	for _, tt := range tests {
		got, err := run(t, tt.op, tt.in)
		if err != nil {
			t.Fatalf("%s %s failed: %v", tt.op, tt.in.Format(nil), err)
		}
		if !value.Same(got, tt.want) {
			t.Errorf("%s %s = %s, want %s", tt.op, tt.in.Format(nil), got.Format(nil), tt.want.Format(nil))
		}
	}
}

func TestStringOps(t *testing.T) {
	bc := vm.NewBytecode()
	bc.Emit(vm.OP_PUSH, bc.AddConstant(bc.AddString("foo")))
	bc.Emit(vm.OP_PUSH, bc.AddConstant(bc.AddString("bar")))
	bc.Emit(vm.OP_ADD, 0)
	if err := bc.Finalize(); err != nil {
		t.Fatal(err)
	}

	m := &vm.Machine{}
	m.Load(bc)
	if err := m.Run(10); err != nil {
		t.Fatal(err)
	}
	res, _ := m.Result()
	if got := m.Format(res); got != "foobar" {
		t.Errorf("expected foobar, got %q", got)
	}
	if string(bc.Arena) != "foobar" {
		t.Errorf("concatenation must not write into the unit's arena, got %q", bc.Arena)
	}
}

func TestRuntimeErrors(t *testing.T) {
	if _, err := run(t, vm.OP_DIV, value.Int(1), value.Int(0)); !errors.Is(err, vm.ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
	if _, err := run(t, vm.OP_BIT_AND, value.Float(1), value.Int(1)); !errors.Is(err, vm.ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := run(t, vm.OP_ADD, value.Int(1)); !errors.Is(err, vm.ErrStackUnderflow) {
		t.Errorf("expected ErrStackUnderflow, got %v", err)
	}
}

func TestGasExhausted(t *testing.T) {
	bc := vm.NewBytecode()
	top := bc.NewLabel()
	bc.BindLabel(top)
	bc.EmitJump(vm.OP_JMP, top)
	if err := bc.Finalize(); err != nil {
		t.Fatal(err)
	}

	m := &vm.Machine{}
	m.Load(bc)
	if err := m.Run(1000); !errors.Is(err, vm.ErrGasExhausted) {
		t.Errorf("expected ErrGasExhausted, got %v", err)
	}
}

func TestJumps(t *testing.T) {
	// if False: 1 else: 2
	bc := vm.NewBytecode()
	next, end := bc.NewLabel(), bc.NewLabel()
	bc.Emit(vm.OP_PUSH, bc.AddConstant(value.Bool(false)))
	bc.EmitJump(vm.OP_JMP_IF_FALSE, next)
	bc.Emit(vm.OP_PUSH, bc.AddConstant(value.Int(1)))
	bc.EmitJump(vm.OP_JMP, end)
	bc.BindLabel(next)
	bc.Emit(vm.OP_PUSH, bc.AddConstant(value.Int(2)))
	bc.BindLabel(end)
	if err := bc.Finalize(); err != nil {
		t.Fatal(err)
	}

	m := &vm.Machine{}
	m.Load(bc)
	if err := m.Run(100); err != nil {
		t.Fatal(err)
	}
	if m.SP != 1 {
		t.Fatalf("expected one value on the stack, got %d", m.SP)
	}
	if res, _ := m.Result(); res.Int() != 2 {
		t.Errorf("expected 2, got %s", m.Format(res))
	}
}
