// Package builtins defines the static table of system functions known to the
// compiler. Each builtin has a fixed numeric id, which is the operand of the
// CALL_SYS and CALL_SYS_ARGS instructions, and an arity the compiler checks at
// every call site.
package builtins

import (
	"fmt"
	"sort"
)

// ID identifies a builtin in compiled code.
type ID uint8

// Standard builtin ids. The values are part of the bytecode format.
const (
	Add ID = iota
	Sub
	Mul
	Div
	FloorDiv
	Rem
	Pow
	Eq
	NotEq
	Lt
	Gt
	Le
	Ge
	Not
	Identity
	Floor
	Ceiling
	Round
	Truncate
	Abs
	Min
	Max
	List
	First
	Tail
	Init
	Last
	Append
	Elt
	Concat
	Len
	Null
	TypeOf
	Format
	Print
	Println
)

// Variadic marks an arity without an upper bound.
const Variadic = -1

// Arity is the accepted range of argument counts.
type Arity struct {
	Min int
	Max int // Variadic for no upper bound
}

// Exact returns an arity that accepts exactly n arguments.
func Exact(n int) Arity { return Arity{Min: n, Max: n} }

// AtLeast returns an arity that accepts n or more arguments.
func AtLeast(n int) Arity { return Arity{Min: n, Max: Variadic} }

// Accepts reports whether a call with argc arguments is valid.
func (a Arity) Accepts(argc int) bool {
	if argc < a.Min {
		return false
	}
	return a.Max == Variadic || argc <= a.Max
}

// IsFixed reports whether the arity accepts exactly one argument count.
func (a Arity) IsFixed() bool {
	return a.Max != Variadic && a.Min == a.Max
}

func (a Arity) String() string {
	switch {
	case a.IsFixed():
		return fmt.Sprintf("%d", a.Min)
	case a.Max == Variadic:
		return fmt.Sprintf("%d+", a.Min)
	default:
		return fmt.Sprintf("%d-%d", a.Min, a.Max)
	}
}

// Builtin describes a single system function.
type Builtin struct {
	Name  string
	ID    ID
	Arity Arity
}

// Table maps builtin names to their descriptions. The compiler consumes a
// Table to decide which identifiers are system functions.
type Table interface {
	Lookup(name string) (Builtin, bool)
	Names() []string
}

// Registry is a Table backed by a map.
type Registry struct {
	byName map[string]Builtin
	byID   map[ID]Builtin
}

// NewRegistry creates a registry from the given builtins. Duplicate names or
// ids are rejected.
func NewRegistry(entries ...Builtin) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]Builtin, len(entries)),
		byID:   make(map[ID]Builtin, len(entries)),
	}
	for _, b := range entries {
		if _, found := r.byName[b.Name]; found {
			return nil, fmt.Errorf("builtin %q registered twice", b.Name)
		}
		if other, found := r.byID[b.ID]; found {
			return nil, fmt.Errorf("builtin id %d used by both %q and %q", b.ID, other.Name, b.Name)
		}
		r.byName[b.Name] = b
		r.byID[b.ID] = b
	}
	return r, nil
}

// Lookup returns the builtin with the given name.
func (r *Registry) Lookup(name string) (Builtin, bool) {
	b, ok := r.byName[name]
	return b, ok
}

// ByID returns the builtin with the given id.
func (r *Registry) ByID(id ID) (Builtin, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// Names returns the sorted names of all builtins.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var standardEntries = []Builtin{
	{"+", Add, AtLeast(0)},
	{"-", Sub, AtLeast(1)},
	{"*", Mul, AtLeast(0)},
	{"/", Div, AtLeast(1)},
	{"//", FloorDiv, AtLeast(1)},
	{"rem", Rem, Exact(2)},
	{"^", Pow, Exact(2)},
	{"=", Eq, AtLeast(1)},
	{"/=", NotEq, AtLeast(1)},
	{"<", Lt, AtLeast(1)},
	{">", Gt, AtLeast(1)},
	{"<=", Le, AtLeast(1)},
	{">=", Ge, AtLeast(1)},
	{"not", Not, Exact(1)},
	{"id", Identity, Exact(1)},
	{"floor", Floor, Exact(1)},
	{"ceiling", Ceiling, Exact(1)},
	{"round", Round, Exact(1)},
	{"truncate", Truncate, Exact(1)},
	{"abs", Abs, Exact(1)},
	{"min", Min, AtLeast(1)},
	{"max", Max, AtLeast(1)},
	{"list", List, AtLeast(0)},
	{"first", First, Exact(1)},
	{"tail", Tail, Exact(1)},
	{"init", Init, Exact(1)},
	{"last", Last, Exact(1)},
	{"append", Append, Exact(2)},
	{"elt", Elt, Exact(2)},
	{"concat", Concat, AtLeast(0)},
	{"len", Len, Exact(1)},
	{"null", Null, Exact(1)},
	{"type-of", TypeOf, Exact(1)},
	{"format", Format, AtLeast(1)},
	{"print", Print, AtLeast(1)},
	{"println", Println, AtLeast(0)},
}

var standard *Registry

func init() {
	r, err := NewRegistry(standardEntries...)
	if err != nil {
		panic(err)
	}
	standard = r
}

// Standard returns the standard builtin table.
func Standard() *Registry {
	return standard
}
