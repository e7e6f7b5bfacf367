package compiler

import (
	"github.com/pkg/errors"

	"tinylang/vm"
)

// Register names a VM register slot together with the type the
// compiler has proven it holds at this point in compilation.
type Register struct {
	Index uint8
	Type  vm.ValueType
}

// Operand is either a register already holding a value, or a pending
// literal the operand stack defers materialising into a register until
// one is actually needed.
type Operand struct {
	IsLiteral bool
	Literal   vm.Value
	Reg       Register
}

func RegisterOperand(r Register) Operand { return Operand{Reg: r} }
func LiteralOperand(v vm.Value) Operand  { return Operand{IsLiteral: true, Literal: v} }

func (o Operand) Type() vm.ValueType {
	if o.IsLiteral {
		return o.Literal.Type
	}
	return o.Reg.Type
}

// RegisterAllocator is a free-list of register indices plus the operand
// stack that defers literal materialisation. It has no notion of
// variable bindings or emitted instructions; the Compiler drives it.
type RegisterAllocator struct {
	freeList    []uint8
	inFreeList  [256]bool
	operands    []Operand
}

// NewRegisterAllocator constructs an allocator in its reset state.
func NewRegisterAllocator() *RegisterAllocator {
	a := &RegisterAllocator{}
	a.Reset()
	return a
}

// Reset empties the operand stack and refills the free list with
// 255..=0 (so Acquire yields 0 first).
func (a *RegisterAllocator) Reset() {
	a.operands = a.operands[:0]
	a.freeList = make([]uint8, 256)
	for i := 0; i < 256; i++ {
		a.freeList[i] = uint8(255 - i)
		a.inFreeList[255-i] = true
	}
}

// Acquire pops the free list. Register-pool exhaustion never arises
// from well-formed source; it is a fatal internal condition.
func (a *RegisterAllocator) Acquire() uint8 {
	if len(a.freeList) == 0 {
		panic(errors.New("compiler: register pool exhausted"))
	}
	idx := a.freeList[len(a.freeList)-1]
	a.freeList = a.freeList[:len(a.freeList)-1]
	a.inFreeList[idx] = false
	return idx
}

// Release returns idx to the free list. Releasing an index twice
// without an intervening Acquire is a compiler bug, not a user error.
func (a *RegisterAllocator) Release(idx uint8) {
	if a.inFreeList[idx] {
		panic(errors.Errorf("compiler: register %d released twice", idx))
	}
	a.freeList = append(a.freeList, idx)
	a.inFreeList[idx] = true
}

// PushOperand pushes a pending operand (literal or register) onto the
// operand stack.
func (a *RegisterAllocator) PushOperand(o Operand) {
	a.operands = append(a.operands, o)
}

// PopOperand pops the most recently pushed operand.
func (a *RegisterAllocator) PopOperand() Operand {
	o := a.operands[len(a.operands)-1]
	a.operands = a.operands[:len(a.operands)-1]
	return o
}
