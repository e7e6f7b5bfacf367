package vm

import "fmt"

// ValueType tags which variant of Value is active.
type ValueType byte

const (
	IntType ValueType = iota
	FloatType
	BoolType
	StrType
	CharType
)

func (t ValueType) String() string {
	switch t {
	case IntType:
		return "int"
	case FloatType:
		return "float"
	case BoolType:
		return "bool"
	case StrType:
		return "str"
	case CharType:
		return "char"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the language's five primitive kinds. Unlike
// the teacher's unsafe.Pointer-backed union (needed for heap-allocated
// arrays/maps/structs/closures), the value domain here is small and never
// escapes to the heap as a container, so a plain tagged struct is used.
type Value struct {
	Type ValueType
	I    int64
	F    float64
	B    bool
	S    string
	C    rune
}

func IntValue(i int64) Value     { return Value{Type: IntType, I: i} }
func FloatValue(f float64) Value { return Value{Type: FloatType, F: f} }
func BoolValue(b bool) Value     { return Value{Type: BoolType, B: b} }
func StrValue(s string) Value    { return Value{Type: StrType, S: s} }
func CharValue(c rune) Value     { return Value{Type: CharType, C: c} }

func (v Value) AsInt() int64     { return v.I }
func (v Value) AsFloat() float64 { return v.F }
func (v Value) AsBool() bool     { return v.B }
func (v Value) AsStr() string    { return v.S }
func (v Value) AsChar() rune     { return v.C }

// IsTruthy reports whether v, interpreted as Bool, is true. The language
// has no other truthy/falsy conversions; callers only call this on values
// the compiler has already proven to be Bool.
func (v Value) IsTruthy() bool { return v.Type == BoolType && v.B }

// String renders v for display (REPL echo, --debug dumps).
func (v Value) String() string {
	switch v.Type {
	case IntType:
		return fmt.Sprintf("%d", v.I)
	case FloatType:
		return fmt.Sprintf("%g", v.F)
	case BoolType:
		return fmt.Sprintf("%t", v.B)
	case StrType:
		return v.S
	case CharType:
		return string(v.C)
	default:
		return "<invalid>"
	}
}
