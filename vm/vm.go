package vm

import (
	"math"

	"github.com/pkg/errors"
)

const NumRegisters = 256

// Pre-allocated errors for runtime conditions a well-typed program can
// still trigger (the type checker proves operand types, not values).
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrModuloByZero   = errors.New("modulo by zero")
)

// VM executes a compiled Program over a fixed bank of typed registers.
// Execution is single-threaded and synchronous; a VM instance owns its
// register bank exclusively while Run is in progress.
type VM struct {
	program   *Program
	registers [NumRegisters]Value
	pc        int
	returnVal *Value
}

// New creates a VM ready to execute program. Registers start at Int(0).
func New(program *Program) *VM {
	v := &VM{program: program}
	for i := range v.registers {
		v.registers[i] = IntValue(0)
	}
	return v
}

// ReturnValue yields the last value a Save instruction recorded, if any.
func (v *VM) ReturnValue() *Value { return v.returnVal }

// fatalf panics with a stack-carrying error: the conditions it guards
// (an unhandled opcode, a jump landing outside the instruction vector)
// can only arise from a compiler
// bug, never from well-formed source, so they are not returned as errors.
func fatalf(format string, args ...interface{}) {
	panic(errors.Errorf(format, args...))
}

// Run executes the program to completion from PC 0.
func (v *VM) Run() error {
	instrs := v.program.Instructions
	v.pc = 0

	for v.pc < len(instrs) {
		ins := instrs[v.pc]

		switch ins.Op {
		case LoadInt, LoadFloat, LoadBool, LoadStr, LoadChar:
			v.registers[ins.D] = ins.Imm

		case Or:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].B || v.registers[ins.R].B)
		case And:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].B && v.registers[ins.R].B)

		case EqualInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I == v.registers[ins.R].I)
		case EqualFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F == v.registers[ins.R].F)
		case EqualBool:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].B == v.registers[ins.R].B)
		case EqualStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S == v.registers[ins.R].S)
		case EqualChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C == v.registers[ins.R].C)

		case NotEqualInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I != v.registers[ins.R].I)
		case NotEqualFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F != v.registers[ins.R].F)
		case NotEqualBool:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].B != v.registers[ins.R].B)
		case NotEqualStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S != v.registers[ins.R].S)
		case NotEqualChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C != v.registers[ins.R].C)

		case LessThanInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I < v.registers[ins.R].I)
		case LessThanFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F < v.registers[ins.R].F)
		case LessThanStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S < v.registers[ins.R].S)
		case LessThanChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C < v.registers[ins.R].C)

		case LessEqInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I <= v.registers[ins.R].I)
		case LessEqFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F <= v.registers[ins.R].F)
		case LessEqStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S <= v.registers[ins.R].S)
		case LessEqChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C <= v.registers[ins.R].C)

		case GreaterThanInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I > v.registers[ins.R].I)
		case GreaterThanFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F > v.registers[ins.R].F)
		case GreaterThanStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S > v.registers[ins.R].S)
		case GreaterThanChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C > v.registers[ins.R].C)

		case GreaterEqInt:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].I >= v.registers[ins.R].I)
		case GreaterEqFloat:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].F >= v.registers[ins.R].F)
		case GreaterEqStr:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].S >= v.registers[ins.R].S)
		case GreaterEqChar:
			v.registers[ins.D] = BoolValue(v.registers[ins.L].C >= v.registers[ins.R].C)

		case AddInt:
			v.registers[ins.D] = IntValue(v.registers[ins.L].I + v.registers[ins.R].I)
		case AddFloat:
			v.registers[ins.D] = FloatValue(v.registers[ins.L].F + v.registers[ins.R].F)
		case AddStr:
			v.registers[ins.D] = StrValue(v.registers[ins.L].S + v.registers[ins.R].S)

		case SubInt:
			v.registers[ins.D] = IntValue(v.registers[ins.L].I - v.registers[ins.R].I)
		case SubFloat:
			v.registers[ins.D] = FloatValue(v.registers[ins.L].F - v.registers[ins.R].F)

		case MulInt:
			v.registers[ins.D] = IntValue(v.registers[ins.L].I * v.registers[ins.R].I)
		case MulFloat:
			v.registers[ins.D] = FloatValue(v.registers[ins.L].F * v.registers[ins.R].F)
		case MulStr:
			v.registers[ins.D] = StrValue(repeatStr(v.registers[ins.S].S, v.registers[ins.C].I))

		case DivInt:
			divisor := v.registers[ins.R].I
			if divisor == 0 {
				return ErrDivisionByZero
			}
			v.registers[ins.D] = IntValue(v.registers[ins.L].I / divisor)
		case DivFloat:
			v.registers[ins.D] = FloatValue(v.registers[ins.L].F / v.registers[ins.R].F)

		case ModInt:
			divisor := v.registers[ins.R].I
			if divisor == 0 {
				return ErrModuloByZero
			}
			v.registers[ins.D] = IntValue(v.registers[ins.L].I % divisor)
		case ModFloat:
			v.registers[ins.D] = FloatValue(math.Mod(v.registers[ins.L].F, v.registers[ins.R].F))

		case NegInt:
			v.registers[ins.D] = IntValue(-v.registers[ins.S].I)
		case NegFloat:
			v.registers[ins.D] = FloatValue(-v.registers[ins.S].F)
		case NegBool:
			v.registers[ins.D] = BoolValue(!v.registers[ins.S].B)

		case Copy:
			v.registers[ins.D] = v.registers[ins.S]

		case Jump:
			v.pc += int(ins.Offset)

		case JumpCond:
			if !v.registers[ins.C].B {
				v.pc += int(ins.Offset)
			}

		case Save:
			val := v.registers[ins.S]
			v.returnVal = &val

		default:
			fatalf("vm: unhandled opcode %s at pc=%d", ins.Op, v.pc)
		}

		v.pc++
		if v.pc < 0 || v.pc > len(instrs) {
			fatalf("vm: jump landed outside instruction vector (pc=%d, len=%d)", v.pc, len(instrs))
		}
	}
	return nil
}

func repeatStr(s string, n int64) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
