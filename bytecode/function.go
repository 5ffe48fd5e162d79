package bytecode

import (
	"fmt"
	"sort"
	"strings"

	"github.com/deepnoodle-ai/kestrel/value"
)

// Function is a compiled function. It is immutable after creation.
type Function struct {
	name           string
	parameterCount int
	captureCount   int
	constants      []any
	code           []byte
	localNames     []string
	filename       string
	locations      []SourceLocation
}

// FunctionParams contains parameters for creating a new Function.
type FunctionParams struct {
	Name           string
	ParameterCount int
	CaptureCount   int
	Constants      []any
	Code           []byte
	LocalNames     []string
	Filename       string
	Locations      []SourceLocation
}

// NewFunction creates a new immutable Function from the given parameters.
// Input slices are copied to ensure immutability.
func NewFunction(params FunctionParams) *Function {
	locations := copySlice(params.Locations)
	sort.SliceStable(locations, func(i, j int) bool {
		return locations[i].Offset < locations[j].Offset
	})
	return &Function{
		name:           params.Name,
		parameterCount: params.ParameterCount,
		captureCount:   params.CaptureCount,
		constants:      copySlice(params.Constants),
		code:           copySlice(params.Code),
		localNames:     copySlice(params.LocalNames),
		filename:       params.Filename,
		locations:      locations,
	}
}

func copySlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

// Name returns the function name, or the empty string for anonymous functions
// and top-level code.
func (f *Function) Name() string {
	return f.name
}

// ParameterCount returns the number of declared parameters.
func (f *Function) ParameterCount() int {
	return f.parameterCount
}

// CaptureCount returns the number of values a closure over this function
// captures. Captured values occupy the slots following the parameters.
func (f *Function) CaptureCount() int {
	return f.captureCount
}

// IsClosure returns true if the function captures values from an enclosing
// function.
func (f *Function) IsClosure() bool {
	return f.captureCount > 0
}

// ConstantCount returns the number of constants.
func (f *Function) ConstantCount() int {
	return len(f.constants)
}

// ConstantAt returns the constant at the given index.
func (f *Function) ConstantAt(index int) any {
	return f.constants[index]
}

// CodeSize returns the length of the instruction byte sequence.
func (f *Function) CodeSize() int {
	return len(f.code)
}

// ByteAt returns the instruction byte at the given offset.
func (f *Function) ByteAt(offset int) byte {
	return f.code[offset]
}

// Bytes returns a copy of the instruction byte sequence.
func (f *Function) Bytes() []byte {
	return copySlice(f.code)
}

// LocalNameCount returns the number of named local slots.
func (f *Function) LocalNameCount() int {
	return len(f.localNames)
}

// LocalNameAt returns the name bound to the given slot.
// Returns an empty string if the slot is out of range.
func (f *Function) LocalNameAt(slot int) string {
	if slot < 0 || slot >= len(f.localNames) {
		return ""
	}
	return f.localNames[slot]
}

// Filename returns the source filename.
func (f *Function) Filename() string {
	return f.filename
}

// LocationCount returns the number of recorded source locations.
func (f *Function) LocationCount() int {
	return len(f.locations)
}

// LocationAt returns the source location at the given index.
func (f *Function) LocationAt(index int) SourceLocation {
	return f.locations[index]
}

// LocationFor returns the source location of the expression that emitted the
// instruction at the given offset, if one was recorded.
func (f *Function) LocationFor(offset int) (SourceLocation, bool) {
	i := sort.Search(len(f.locations), func(i int) bool {
		return f.locations[i].Offset > offset
	})
	if i == 0 {
		return SourceLocation{}, false
	}
	return f.locations[i-1], true
}

// Functions returns the functions stored in this function's constant pool,
// in pool order.
func (f *Function) Functions() []*Function {
	var fns []*Function
	for _, c := range f.constants {
		if fn, ok := c.(*Function); ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

// Flatten returns this function and every function reachable through
// constant pools, each exactly once. Nested functions precede the functions
// that reference them, so the receiver is always last.
func (f *Function) Flatten() []*Function {
	var out []*Function
	seen := map[*Function]bool{}
	var visit func(fn *Function)
	visit = func(fn *Function) {
		if seen[fn] {
			return
		}
		seen[fn] = true
		for _, child := range fn.Functions() {
			visit(child)
		}
		out = append(out, fn)
	}
	visit(f)
	return out
}

// TypeName returns the type name used when a function appears as a value.
func (f *Function) TypeName() string {
	return "function"
}

// String returns a short description of the function.
func (f *Function) String() string {
	var b strings.Builder
	b.WriteString("#<function")
	if f.name != "" {
		b.WriteString(" ")
		b.WriteString(f.name)
	}
	fmt.Fprintf(&b, "/%d", f.parameterCount)
	if f.captureCount > 0 {
		fmt.Fprintf(&b, " closure:%d", f.captureCount)
	}
	b.WriteString(">")
	return b.String()
}

var _ value.Value = (*Function)(nil)
