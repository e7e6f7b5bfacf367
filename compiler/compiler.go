// Package compiler lowers a parsed ast.FunctionBody to a linear vm.Program:
// it type-checks every operator and assignment, allocates destination
// registers from a finite free pool, preserves named-variable registers
// across the function body, backpatches forward control-flow jumps, and
// emits one typed opcode per resolved (operator, operand-type) tuple.
package compiler

import (
	"math"

	"github.com/pkg/errors"

	"tinylang/ast"
	"tinylang/parser"
	"tinylang/vm"
)

// reservedKeywords may never be bound by a let statement.
var reservedKeywords = map[string]bool{"let": true, "return": true}

// Compiler lowers one ast.FunctionBody to a vm.Program. An instance is
// reusable across compilations via Reset, so a REPL and a batch runner
// can share a single code path with one locally constructed Compiler.
type Compiler struct {
	alloc          *RegisterAllocator
	variables      map[string]Register
	boundRegisters [256]bool
	instructions   []vm.Instruction

	filename string
	source   string
}

// New constructs a Compiler in its reset state.
func New() *Compiler {
	c := &Compiler{alloc: NewRegisterAllocator()}
	c.Reset()
	return c
}

// Reset returns the compiler to the state of a freshly constructed one.
func (c *Compiler) Reset() {
	c.alloc.Reset()
	c.variables = make(map[string]Register)
	c.boundRegisters = [256]bool{}
	c.instructions = nil
	c.filename = ""
	c.source = ""
}

// Compile parses source and lowers it to a vm.Program, or returns a
// rendered compiler.Error (or parser error string) on failure.
func Compile(source, filename string) (*vm.Program, error) {
	return New().Compile(source, filename)
}

// Compile is the instance form of the package-level Compile, reusing c's
// register pool and variable bindings after a Reset.
func (c *Compiler) Compile(source, filename string) (*vm.Program, error) {
	c.Reset()
	c.filename = filename
	c.source = source

	body, parseErr := parser.ParseFunctionBody(source)
	if parseErr != "" {
		return nil, errors.New(parseErr)
	}

	for _, item := range body.Items {
		if err := c.compileControlFlow(item); err != nil {
			return nil, err
		}
	}
	return &vm.Program{Instructions: c.instructions}, nil
}

func (c *Compiler) newError(kind ErrorKind, context, errSpan ast.Span) error {
	return &Error{Filename: c.filename, Source: c.source, Kind: kind, Context: context, ErrSpan: errSpan}
}

func (c *Compiler) emit(ins vm.Instruction) int {
	c.instructions = append(c.instructions, ins)
	return len(c.instructions) - 1
}

func (c *Compiler) emitLoad(idx uint8, v vm.Value) {
	var op vm.Opcode
	switch v.Type {
	case vm.IntType:
		op = vm.LoadInt
	case vm.FloatType:
		op = vm.LoadFloat
	case vm.BoolType:
		op = vm.LoadBool
	case vm.StrType:
		op = vm.LoadStr
	case vm.CharType:
		op = vm.LoadChar
	}
	c.emit(vm.Instruction{Op: op, D: idx, Imm: v})
}

func literalToValue(l *ast.Literal) vm.Value {
	switch l.Kind {
	case ast.LiteralInt:
		return vm.IntValue(l.IntVal)
	case ast.LiteralFloat:
		return vm.FloatValue(l.FloatVal)
	case ast.LiteralBool:
		return vm.BoolValue(l.BoolVal)
	case ast.LiteralStr:
		return vm.StrValue(l.StrVal)
	case ast.LiteralChar:
		return vm.CharValue(l.CharVal)
	default:
		return vm.Value{}
	}
}

// materialise ensures o occupies a concrete register, allocating one and
// emitting the matching Load if o is still a pending literal.
func (c *Compiler) materialise(o Operand) Register {
	if !o.IsLiteral {
		return o.Reg
	}
	idx := c.alloc.Acquire()
	c.emitLoad(idx, o.Literal)
	return Register{Index: idx, Type: o.Literal.Type}
}

// materialiseFresh is like materialise, but never hands back a register
// a variable already owns: a `let` binding must get storage of its own,
// never alias an existing variable's register. If o is already a
// temporary (unbound) register, it is adopted as-is — only a bound
// source register forces an extra Copy.
func (c *Compiler) materialiseFresh(o Operand) Register {
	if o.IsLiteral {
		return c.materialise(o)
	}
	if !c.boundRegisters[o.Reg.Index] {
		return o.Reg
	}
	idx := c.alloc.Acquire()
	c.emit(vm.Instruction{Op: vm.Copy, D: idx, S: o.Reg.Index})
	return Register{Index: idx, Type: o.Reg.Type}
}

// intoRegister ensures o ends up in exactly register target: Load for a
// literal, Copy for a register operand elsewhere, nothing if it is
// already there (e.g. a binary op already threaded its result into target).
func (c *Compiler) intoRegister(o Operand, target uint8) Register {
	if o.IsLiteral {
		c.emitLoad(target, o.Literal)
		return Register{Index: target, Type: o.Literal.Type}
	}
	if o.Reg.Index != target {
		c.emit(vm.Instruction{Op: vm.Copy, D: target, S: o.Reg.Index})
		if !c.boundRegisters[o.Reg.Index] {
			c.alloc.Release(o.Reg.Index)
		}
	}
	return Register{Index: target, Type: o.Reg.Type}
}

func (c *Compiler) compileControlFlow(cf ast.ControlFlow) error {
	switch n := cf.(type) {
	case *ast.BasicBlock:
		return c.compileBasicBlock(n)
	case *ast.WhileLoop:
		return c.compileWhileLoop(n)
	default:
		panic(errors.Errorf("compiler: unknown control-flow node %T", cf))
	}
}

func (c *Compiler) compileBasicBlock(b *ast.BasicBlock) error {
	for _, stmt := range b.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStatement(stmt ast.Statement) error {
	switch n := stmt.(type) {
	case *ast.LetStatement:
		return c.compileLet(n)
	case *ast.AssignStatement:
		return c.compileAssign(n)
	case *ast.ReturnStatement:
		return c.compileReturn(n)
	case *ast.ExpressionStatement:
		return c.compileExpressionStatement(n)
	default:
		panic(errors.Errorf("compiler: unknown statement node %T", stmt))
	}
}

// compileLet rejects a reserved-keyword name, compiles the right-hand
// side into a fresh register of its own (never the register of an
// existing variable — see materialiseFresh), marks it non-temporary,
// and binds it. A repeated `let` with the same name overwrites the map
// entry without releasing the previous register — an intentional
// limitation (see DESIGN.md) that eventually exhausts the 256-register
// pool under many shadows of the same name.
func (c *Compiler) compileLet(l *ast.LetStatement) error {
	if reservedKeywords[l.Name] {
		return c.newError(IdentifierIsKeyword(), l.Span(), l.NameSpan)
	}
	if err := c.compileExpression(l.Expr, nil); err != nil {
		return err
	}
	reg := c.materialiseFresh(c.alloc.PopOperand())
	c.boundRegisters[reg.Index] = true
	c.variables[l.Name] = reg
	return nil
}

func (c *Compiler) compileAssign(a *ast.AssignStatement) error {
	leftReg, ok := c.variables[a.Name]
	if !ok {
		return c.newError(IdentifierNotFound(), a.Span(), a.NameSpan)
	}

	if a.Operator == ast.AssignBasic {
		if err := c.compileExpression(a.Expr, &leftReg.Index); err != nil {
			return err
		}
		operand := c.alloc.PopOperand()
		if operand.Type() != leftReg.Type {
			return c.newError(InvalidAssignment(leftReg.Type.String(), operand.Type().String()), a.Span(), a.OperatorSpan)
		}
		c.intoRegister(operand, leftReg.Index)
		return nil
	}

	binOp := compoundToBinary(a.Operator)
	if err := c.compileExpression(a.Expr, nil); err != nil {
		return err
	}
	rhsReg := c.materialise(c.alloc.PopOperand())

	result, err := c.emitBinary(binOp, leftReg, rhsReg, &leftReg.Index, a.Span(), a.OperatorSpan)
	if err != nil {
		return err
	}
	if result.Type != leftReg.Type {
		return c.newError(InvalidAssignment(leftReg.Type.String(), result.Type.String()), a.Span(), a.OperatorSpan)
	}
	return nil
}

func compoundToBinary(op ast.AssignOperator) ast.BinaryOperator {
	switch op {
	case ast.AssignAdd:
		return ast.OpAdd
	case ast.AssignSub:
		return ast.OpSub
	case ast.AssignMul:
		return ast.OpMul
	case ast.AssignDiv:
		return ast.OpDiv
	case ast.AssignMod:
		return ast.OpMod
	default:
		panic(errors.Errorf("compiler: %v is not a compound assignment operator", op))
	}
}

func (c *Compiler) compileReturn(r *ast.ReturnStatement) error {
	if err := c.compileExpression(r.Expr, nil); err != nil {
		return err
	}
	reg := c.materialise(c.alloc.PopOperand())
	c.emit(vm.Instruction{Op: vm.Save, S: reg.Index})
	if !c.boundRegisters[reg.Index] {
		c.alloc.Release(reg.Index)
	}
	return nil
}

func (c *Compiler) compileExpressionStatement(e *ast.ExpressionStatement) error {
	if err := c.compileExpression(e.Expr, nil); err != nil {
		return err
	}
	reg := c.materialise(c.alloc.PopOperand())
	if !c.boundRegisters[reg.Index] {
		c.alloc.Release(reg.Index)
	}
	return nil
}

// compileWhileLoop implements the backpatched-branch lowering: the
// condition's instructions sit between S and the reserved jump slot J;
// the body follows; a backward Jump returns control to S so the
// condition is re-evaluated every iteration; the slot at J is then
// overwritten with the forward-branch-on-false that skips the body.
func (c *Compiler) compileWhileLoop(w *ast.WhileLoop) error {
	startIdx := len(c.instructions)
	if err := c.compileExpression(w.Condition, nil); err != nil {
		return err
	}
	condReg := c.materialise(c.alloc.PopOperand())
	if condReg.Type != vm.BoolType {
		return c.newError(ArgumentInvalidType("bool", condReg.Type.String()), w.Span(), w.Condition.Span())
	}

	jIdx := c.emit(vm.Instruction{}) // placeholder, patched once the body's length is known

	for _, stmt := range w.Body.Statements {
		if err := c.compileStatement(stmt); err != nil {
			return err
		}
	}

	backOffset := -(len(c.instructions) - startIdx + 1)
	checkOffsetRange(backOffset)
	c.emit(vm.Instruction{Op: vm.Jump, Offset: int16(backOffset)})

	forwardOffset := len(c.instructions) - jIdx - 1
	checkOffsetRange(forwardOffset)
	c.instructions[jIdx] = vm.Instruction{Op: vm.JumpCond, C: condReg.Index, Offset: int16(forwardOffset)}

	if !c.boundRegisters[condReg.Index] {
		c.alloc.Release(condReg.Index)
	}
	return nil
}

func checkOffsetRange(offset int) {
	if offset < math.MinInt16 || offset > math.MaxInt16 {
		panic(errors.Errorf("compiler: jump offset %d exceeds the signed 16-bit range", offset))
	}
}

// compileExpression lowers e, leaving exactly one Operand on the operand
// stack. target, when non-nil, is honoured only by the Binary/Unary
// cases: it is the destination register threading mechanism described
// in the glossary, letting the final operation of a computed
// right-hand side write directly into a caller-chosen register (e.g.
// an assignment's left-hand register) instead of via a trailing Copy.
func (c *Compiler) compileExpression(e ast.Expression, target *uint8) error {
	switch n := e.(type) {
	case *ast.Literal:
		c.alloc.PushOperand(LiteralOperand(literalToValue(n)))
		return nil
	case *ast.Identifier:
		reg, ok := c.variables[n.Name]
		if !ok {
			return c.newError(IdentifierNotFound(), n.Span(), n.Span())
		}
		c.alloc.PushOperand(RegisterOperand(reg))
		return nil
	case *ast.UnaryOperation:
		return c.compileUnaryExpr(n, target)
	case *ast.BinaryOperation:
		return c.compileBinaryExpr(n, target)
	default:
		panic(errors.Errorf("compiler: unknown expression node %T", e))
	}
}

// compileBinaryExpr compiles left, compiles right, materialises both
// (right then left, popping LIFO), resolves and emits the typed opcode,
// then pushes the result as a new temporary operand.
func (c *Compiler) compileBinaryExpr(n *ast.BinaryOperation, target *uint8) error {
	if err := c.compileExpression(n.Left, nil); err != nil {
		return err
	}
	if err := c.compileExpression(n.Right, nil); err != nil {
		return err
	}
	rightReg := c.materialise(c.alloc.PopOperand())
	leftReg := c.materialise(c.alloc.PopOperand())

	result, err := c.emitBinary(n.Operator, leftReg, rightReg, target, n.Span(), n.OperatorSpan)
	if err != nil {
		return err
	}
	c.alloc.PushOperand(RegisterOperand(result))
	return nil
}

// emitBinary resolves the opcode for (op, leftReg.Type, rightReg.Type),
// chooses a destination per the §4.1 policy (explicit target; else
// reuse a temporary operand, right then left; else allocate fresh),
// emits the instruction, and releases any temporary source register
// whose index differs from the destination.
func (c *Compiler) emitBinary(op ast.BinaryOperator, leftReg, rightReg Register, target *uint8, span, opSpan ast.Span) (Register, error) {
	opcode, resultType, swapped, ok := resolveBinaryOpcode(op, leftReg.Type, rightReg.Type)
	if !ok {
		return Register{}, c.newError(InvalidBinaryOperation(op.String(), leftReg.Type.String(), rightReg.Type.String()), span, opSpan)
	}

	dest := c.chooseDestination(target, leftReg, rightReg)
	c.emitBinaryInstruction(opcode, dest, leftReg, rightReg, swapped)

	if leftReg.Index != dest && !c.boundRegisters[leftReg.Index] {
		c.alloc.Release(leftReg.Index)
	}
	if rightReg.Index != dest && rightReg.Index != leftReg.Index && !c.boundRegisters[rightReg.Index] {
		c.alloc.Release(rightReg.Index)
	}
	return Register{Index: dest, Type: resultType}, nil
}

func (c *Compiler) chooseDestination(target *uint8, leftReg, rightReg Register) uint8 {
	if target != nil {
		return *target
	}
	if !c.boundRegisters[rightReg.Index] {
		return rightReg.Index
	}
	if !c.boundRegisters[leftReg.Index] {
		return leftReg.Index
	}
	return c.alloc.Acquire()
}

func (c *Compiler) emitBinaryInstruction(op vm.Opcode, dest uint8, left, right Register, swapped bool) {
	if op == vm.MulStr {
		if swapped {
			c.emit(vm.Instruction{Op: op, D: dest, S: right.Index, C: left.Index})
		} else {
			c.emit(vm.Instruction{Op: op, D: dest, S: left.Index, C: right.Index})
		}
		return
	}
	c.emit(vm.Instruction{Op: op, D: dest, L: left.Index, R: right.Index})
}

func (c *Compiler) compileUnaryExpr(n *ast.UnaryOperation, target *uint8) error {
	if err := c.compileExpression(n.Operand, nil); err != nil {
		return err
	}
	reg := c.materialise(c.alloc.PopOperand())

	opcode, resultType, ok := resolveUnaryOpcode(n.Operator, reg.Type)
	if !ok {
		return c.newError(InvalidUnaryOperation(n.Operator.String(), reg.Type.String()), n.Span(), n.OperatorSpan)
	}

	var dest uint8
	switch {
	case target != nil:
		dest = *target
	case !c.boundRegisters[reg.Index]:
		dest = reg.Index
	default:
		dest = c.alloc.Acquire()
	}
	c.emit(vm.Instruction{Op: opcode, D: dest, S: reg.Index})
	if reg.Index != dest && !c.boundRegisters[reg.Index] {
		c.alloc.Release(reg.Index)
	}
	c.alloc.PushOperand(RegisterOperand(Register{Index: dest, Type: resultType}))
	return nil
}
