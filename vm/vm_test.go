package vm

import "testing"

func runReturn(t *testing.T, program *Program) Value {
	t.Helper()
	m := New(program)
	if err := m.Run(); err != nil {
		t.Fatalf("Run() returned error: %v", err)
	}
	rv := m.ReturnValue()
	if rv == nil {
		t.Fatalf("Run() left no return value")
	}
	return *rv
}

func TestArithmeticOpcodes(t *testing.T) {
	tests := []struct {
		name string
		prog []Instruction
		want Value
	}{
		{
			name: "add int",
			prog: []Instruction{
				{Op: LoadInt, D: 0, Imm: IntValue(2)},
				{Op: LoadInt, D: 1, Imm: IntValue(3)},
				{Op: AddInt, D: 2, L: 0, R: 1},
				{Op: Save, S: 2},
			},
			want: IntValue(5),
		},
		{
			name: "mul str by int",
			prog: []Instruction{
				{Op: LoadStr, D: 0, Imm: StrValue("ab")},
				{Op: LoadInt, D: 1, Imm: IntValue(3)},
				{Op: MulStr, D: 2, S: 0, C: 1},
				{Op: Save, S: 2},
			},
			want: StrValue("ababab"),
		},
		{
			name: "mul str by zero",
			prog: []Instruction{
				{Op: LoadStr, D: 0, Imm: StrValue("ab")},
				{Op: LoadInt, D: 1, Imm: IntValue(0)},
				{Op: MulStr, D: 2, S: 0, C: 1},
				{Op: Save, S: 2},
			},
			want: StrValue(""),
		},
		{
			name: "sub float",
			prog: []Instruction{
				{Op: LoadFloat, D: 0, Imm: FloatValue(5.5)},
				{Op: LoadFloat, D: 1, Imm: FloatValue(1.5)},
				{Op: SubFloat, D: 2, L: 0, R: 1},
				{Op: Save, S: 2},
			},
			want: FloatValue(4.0),
		},
		{
			name: "mod float",
			prog: []Instruction{
				{Op: LoadFloat, D: 0, Imm: FloatValue(7)},
				{Op: LoadFloat, D: 1, Imm: FloatValue(2)},
				{Op: ModFloat, D: 2, L: 0, R: 1},
				{Op: Save, S: 2},
			},
			want: FloatValue(1.0),
		},
		{
			name: "neg bool",
			prog: []Instruction{
				{Op: LoadBool, D: 0, Imm: BoolValue(false)},
				{Op: NegBool, D: 1, S: 0},
				{Op: Save, S: 1},
			},
			want: BoolValue(true),
		},
		{
			name: "copy",
			prog: []Instruction{
				{Op: LoadChar, D: 0, Imm: CharValue('q')},
				{Op: Copy, D: 1, S: 0},
				{Op: Save, S: 1},
			},
			want: CharValue('q'),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runReturn(t, &Program{Instructions: tt.prog})
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDivisionByZero(t *testing.T) {
	prog := &Program{Instructions: []Instruction{
		{Op: LoadInt, D: 0, Imm: IntValue(1)},
		{Op: LoadInt, D: 1, Imm: IntValue(0)},
		{Op: DivInt, D: 2, L: 0, R: 1},
	}}
	if err := New(prog).Run(); err != ErrDivisionByZero {
		t.Fatalf("got error %v, want ErrDivisionByZero", err)
	}
}

func TestModuloByZero(t *testing.T) {
	prog := &Program{Instructions: []Instruction{
		{Op: LoadInt, D: 0, Imm: IntValue(1)},
		{Op: LoadInt, D: 1, Imm: IntValue(0)},
		{Op: ModInt, D: 2, L: 0, R: 1},
	}}
	if err := New(prog).Run(); err != ErrModuloByZero {
		t.Fatalf("got error %v, want ErrModuloByZero", err)
	}
}

func TestJumpCondSkipsBodyWhenFalse(t *testing.T) {
	// while (false) { } ; return 9
	prog := &Program{Instructions: []Instruction{
		{Op: LoadBool, D: 0, Imm: BoolValue(false)},
		{Op: JumpCond, C: 0, Offset: 1}, // skip the Jump below, since cond is false
		{Op: Jump, Offset: -1},          // would loop forever if reached
		{Op: LoadInt, D: 1, Imm: IntValue(9)},
		{Op: Save, S: 1},
	}}
	got := runReturn(t, prog)
	if got != IntValue(9) {
		t.Errorf("got %#v, want Int(9)", got)
	}
}

func TestRegistersStartAtZero(t *testing.T) {
	m := New(&Program{Instructions: []Instruction{{Op: Save, S: 200}}})
	if err := m.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := *m.ReturnValue(); got != IntValue(0) {
		t.Errorf("register 200 initial value = %#v, want Int(0)", got)
	}
}

func TestNoSaveLeavesReturnValueNil(t *testing.T) {
	m := New(&Program{Instructions: []Instruction{{Op: LoadInt, D: 0, Imm: IntValue(1)}}})
	if err := m.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if m.ReturnValue() != nil {
		t.Errorf("ReturnValue() = %v, want nil", m.ReturnValue())
	}
}
