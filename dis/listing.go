package dis

import (
	"fmt"
	"io"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/fatih/color"
)

// Listing is the disassembly of one function, including its metadata.
type Listing struct {
	Name         string        `json:"name"`
	Parameters   int           `json:"parameters"`
	Captures     int           `json:"captures"`
	Locals       []string      `json:"locals,omitempty"`
	Constants    []string      `json:"constants,omitempty"`
	Instructions []Instruction `json:"instructions"`
}

// Listings disassembles fn and every function nested in its constant pool.
// Nested functions come first, the same order as bytecode.Function.Flatten.
func Listings(fn *bytecode.Function, opts ...Option) ([]Listing, error) {
	var out []Listing
	for _, f := range fn.Flatten() {
		instructions, err := Disassemble(f, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", functionName(f), err)
		}
		l := Listing{
			Name:         functionName(f),
			Parameters:   f.ParameterCount(),
			Captures:     f.CaptureCount(),
			Instructions: instructions,
		}
		for i := 0; i < f.LocalNameCount(); i++ {
			l.Locals = append(l.Locals, f.LocalNameAt(i))
		}
		for i := 0; i < f.ConstantCount(); i++ {
			l.Constants = append(l.Constants, describe(f.ConstantAt(i)))
		}
		out = append(out, l)
	}
	return out, nil
}

// Find returns the function named name among fn and its nested functions.
func Find(fn *bytecode.Function, name string) (*bytecode.Function, bool) {
	for _, f := range fn.Flatten() {
		if f.Name() == name {
			return f, true
		}
	}
	return nil, false
}

func functionName(f *bytecode.Function) string {
	if f.Name() == "" {
		return "<anonymous>"
	}
	return f.Name()
}

// PrintListings writes each listing as a heading followed by its table.
func PrintListings(listings []Listing, w io.Writer) error {
	heading := color.New(color.Bold, color.Underline)
	for i, l := range listings {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		title := fmt.Sprintf("%s/%d", l.Name, l.Parameters)
		if l.Captures > 0 {
			title += fmt.Sprintf(" captures:%d", l.Captures)
		}
		if _, err := fmt.Fprintln(w, heading.Sprint(title)); err != nil {
			return err
		}
		if err := Print(l.Instructions, w); err != nil {
			return err
		}
	}
	return nil
}
