// Package value defines the literal values the compiler can reason about at
// compile time. These are the values that appear in syntax trees and in the
// constant pool of compiled code.
package value

import (
	"math"
	"strconv"
)

// Value is a compile-time value. Compiled functions stored in a constant pool
// also satisfy this interface.
type Value interface {
	TypeName() string
	String() string
}

// Unit is the empty value, written ().
type Unit struct{}

// Bool is a boolean value.
type Bool bool

// Int is a signed 64-bit integer.
type Int int64

// Float is a 64-bit floating point number.
type Float float64

// String is an immutable string.
type String string

// Char is a single Unicode code point.
type Char rune

// Name is an interned identifier. Global definitions are addressed by Name
// constants in the constant pool.
type Name string

func (Unit) TypeName() string   { return "unit" }
func (Bool) TypeName() string   { return "bool" }
func (Int) TypeName() string    { return "integer" }
func (Float) TypeName() string  { return "float" }
func (String) TypeName() string { return "string" }
func (Char) TypeName() string   { return "char" }
func (Name) TypeName() string   { return "name" }

func (Unit) String() string { return "()" }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (i Int) String() string { return strconv.FormatInt(int64(i), 10) }

func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
		return s
	}
	for _, r := range s {
		if r == '.' || r == 'e' {
			return s
		}
	}
	return s + ".0"
}

func (s String) String() string { return strconv.Quote(string(s)) }

func (c Char) String() string {
	switch c {
	case ' ':
		return `#\space`
	case '\n':
		return `#\newline`
	case '\t':
		return `#\tab`
	case '\r':
		return `#\return`
	case 0:
		return `#\nul`
	}
	return `#\` + string(rune(c))
}

func (n Name) String() string { return string(n) }

// Equal reports whether two values are structurally equal. Values of
// different types are never equal, so the integer 1 and the float 1.0 are
// distinct. Values outside this package compare by identity.
func Equal(a, b any) bool {
	switch a := a.(type) {
	case Unit:
		_, ok := b.(Unit)
		return ok
	case Bool:
		b, ok := b.(Bool)
		return ok && a == b
	case Int:
		b, ok := b.(Int)
		return ok && a == b
	case Float:
		b, ok := b.(Float)
		return ok && math.Float64bits(float64(a)) == math.Float64bits(float64(b))
	case String:
		b, ok := b.(String)
		return ok && a == b
	case Char:
		b, ok := b.(Char)
		return ok && a == b
	case Name:
		b, ok := b.(Name)
		return ok && a == b
	default:
		return a == b
	}
}

// IsNumber reports whether v is an Int or a Float.
func IsNumber(v Value) bool {
	switch v.(type) {
	case Int, Float:
		return true
	}
	return false
}
