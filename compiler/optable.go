package compiler

import (
	"tinylang/ast"
	"tinylang/vm"
)

// resolveBinaryOpcode implements the permitted operator x operand-type
// table: the closed set of (operator, left-type, right-type) tuples the
// language accepts, each mapped to exactly one typed opcode. swapped
// reports that the MulStr operands appear as (int, str) rather than
// (str, int), so the caller knows which materialised register holds
// the string and which holds the repeat count.
func resolveBinaryOpcode(op ast.BinaryOperator, lt, rt vm.ValueType) (opcode vm.Opcode, result vm.ValueType, swapped bool, ok bool) {
	switch op {
	case ast.OpAdd:
		switch {
		case lt == vm.IntType && rt == vm.IntType:
			return vm.AddInt, vm.IntType, false, true
		case lt == vm.FloatType && rt == vm.FloatType:
			return vm.AddFloat, vm.FloatType, false, true
		case lt == vm.StrType && rt == vm.StrType:
			return vm.AddStr, vm.StrType, false, true
		}

	case ast.OpSub:
		switch {
		case lt == vm.IntType && rt == vm.IntType:
			return vm.SubInt, vm.IntType, false, true
		case lt == vm.FloatType && rt == vm.FloatType:
			return vm.SubFloat, vm.FloatType, false, true
		}

	case ast.OpMul:
		switch {
		case lt == vm.IntType && rt == vm.IntType:
			return vm.MulInt, vm.IntType, false, true
		case lt == vm.FloatType && rt == vm.FloatType:
			return vm.MulFloat, vm.FloatType, false, true
		case lt == vm.StrType && rt == vm.IntType:
			return vm.MulStr, vm.StrType, false, true
		case lt == vm.IntType && rt == vm.StrType:
			return vm.MulStr, vm.StrType, true, true
		}

	case ast.OpDiv:
		switch {
		case lt == vm.IntType && rt == vm.IntType:
			return vm.DivInt, vm.IntType, false, true
		case lt == vm.FloatType && rt == vm.FloatType:
			return vm.DivFloat, vm.FloatType, false, true
		}

	case ast.OpMod:
		switch {
		case lt == vm.IntType && rt == vm.IntType:
			return vm.ModInt, vm.IntType, false, true
		case lt == vm.FloatType && rt == vm.FloatType:
			return vm.ModFloat, vm.FloatType, false, true
		}

	case ast.OpEqual:
		if lt == rt {
			return equalOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpNotEqual:
		if lt == rt {
			return notEqualOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpLessThan:
		if lt == rt && lt != vm.BoolType {
			return lessThanOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpLessEq:
		if lt == rt && lt != vm.BoolType {
			return lessEqOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpGreaterThan:
		if lt == rt && lt != vm.BoolType {
			return greaterThanOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpGreaterEq:
		if lt == rt && lt != vm.BoolType {
			return greaterEqOpcodeForType(lt), vm.BoolType, false, true
		}

	case ast.OpAnd:
		if lt == vm.BoolType && rt == vm.BoolType {
			return vm.And, vm.BoolType, false, true
		}

	case ast.OpOr:
		if lt == vm.BoolType && rt == vm.BoolType {
			return vm.Or, vm.BoolType, false, true
		}
	}
	return 0, 0, false, false
}

func equalOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.EqualInt
	case vm.FloatType:
		return vm.EqualFloat
	case vm.BoolType:
		return vm.EqualBool
	case vm.StrType:
		return vm.EqualStr
	default:
		return vm.EqualChar
	}
}

func notEqualOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.NotEqualInt
	case vm.FloatType:
		return vm.NotEqualFloat
	case vm.BoolType:
		return vm.NotEqualBool
	case vm.StrType:
		return vm.NotEqualStr
	default:
		return vm.NotEqualChar
	}
}

func lessThanOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.LessThanInt
	case vm.FloatType:
		return vm.LessThanFloat
	case vm.StrType:
		return vm.LessThanStr
	default:
		return vm.LessThanChar
	}
}

func lessEqOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.LessEqInt
	case vm.FloatType:
		return vm.LessEqFloat
	case vm.StrType:
		return vm.LessEqStr
	default:
		return vm.LessEqChar
	}
}

func greaterThanOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.GreaterThanInt
	case vm.FloatType:
		return vm.GreaterThanFloat
	case vm.StrType:
		return vm.GreaterThanStr
	default:
		return vm.GreaterThanChar
	}
}

func greaterEqOpcodeForType(t vm.ValueType) vm.Opcode {
	switch t {
	case vm.IntType:
		return vm.GreaterEqInt
	case vm.FloatType:
		return vm.GreaterEqFloat
	case vm.StrType:
		return vm.GreaterEqStr
	default:
		return vm.GreaterEqChar
	}
}

// resolveUnaryOpcode implements the permitted unary-operator table:
// numeric negation over Int/Float, logical negation over Bool.
func resolveUnaryOpcode(op ast.UnaryOperator, t vm.ValueType) (vm.Opcode, vm.ValueType, bool) {
	switch op {
	case ast.OpNeg:
		switch t {
		case vm.IntType:
			return vm.NegInt, vm.IntType, true
		case vm.FloatType:
			return vm.NegFloat, vm.FloatType, true
		}
	case ast.OpNot:
		if t == vm.BoolType {
			return vm.NegBool, vm.BoolType, true
		}
	}
	return 0, 0, false
}
