// Package types implements the language's small closed type system:
// four scalar base types plus VOID (legal only as a function return
// type), and a fixed-size array modifier on top of any scalar base.
package types

// Base is the closed set of base types a value, variable or expression
// can carry. VOID is only ever legal as a function's return type.
type Base int

const (
	Int Base = iota
	Double
	Char
	Bool
	Void
)

func (b Base) String() string {
	switch b {
	case Int:
		return "int"
	case Double:
		return "double"
	case Char:
		return "char"
	case Bool:
		return "bool"
	case Void:
		return "void"
	default:
		return "?unknown-base?"
	}
}

// Type is a value type: a base type, optionally modified into a
// fixed-size array of that base.
type Type struct {
	Base      Base
	IsArray   bool
	ArraySize int
}

// Scalar builds a non-array type with the given base.
func Scalar(b Base) Type {
	return Type{Base: b}
}

// Array builds a fixed-size array type of the given base and size.
func Array(b Base, size int) Type {
	return Type{Base: b, IsArray: true, ArraySize: size}
}

func (t Type) String() string {
	if t.IsArray {
		return t.Base.String() + "[]"
	}
	return t.Base.String()
}

// BaseEquals reports whether two types share the same base, ignoring
// array-ness and size. This is the comparison the analyzer uses for
// expression rules since the language has no implicit conversions.
func (t Type) BaseEquals(other Type) bool {
	return t.Base == other.Base
}

// Equals reports full equality including array-ness and size.
func (t Type) Equals(other Type) bool {
	return t.Base == other.Base && t.IsArray == other.IsArray && t.ArraySize == other.ArraySize
}

// Numeric reports whether the base type supports arithmetic and
// ordering comparisons (INT or DOUBLE).
func (b Base) Numeric() bool {
	return b == Int || b == Double
}
