// Package dis supports analysis of Kestrel bytecode by disassembling it.
// This works with the opcodes defined in the `op` package and the decoder
// in the `bytecode` package.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/internal/table"
	"github.com/deepnoodle-ai/kestrel/op"
	"github.com/deepnoodle-ai/kestrel/value"
	"github.com/fatih/color"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int     `json:"offset"`
	Name       string  `json:"opcode"`
	Opcode     op.Code `json:"-"`
	Operands   []uint8 `json:"operands,omitempty"`
	Annotation string  `json:"info,omitempty"`
	Constant   any     `json:"-"`
}

// Option configures disassembly.
type Option func(*disassembler)

// WithBuiltins names CALL_SYS operands using the given table instead of the
// standard one.
func WithBuiltins(t builtins.Table) Option {
	return func(d *disassembler) {
		d.builtins = builtinNames(t)
	}
}

type disassembler struct {
	builtins map[builtins.ID]string
}

func builtinNames(t builtins.Table) map[builtins.ID]string {
	names := make(map[builtins.ID]string)
	for _, name := range t.Names() {
		if b, ok := t.Lookup(name); ok {
			names[b.ID] = name
		}
	}
	return names
}

// Disassemble returns a parsed representation of the function's code.
func Disassemble(fn *bytecode.Function, opts ...Option) ([]Instruction, error) {
	d := &disassembler{}
	for _, opt := range opts {
		opt(d)
	}
	if d.builtins == nil {
		d.builtins = builtinNames(builtins.Standard())
	}
	decoded, err := bytecode.Decode(fn.Bytes())
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, 0, len(decoded))
	for _, ins := range decoded {
		out := Instruction{
			Offset:   ins.Offset,
			Name:     ins.Name(),
			Opcode:   ins.Op,
			Operands: ins.Operands,
		}
		if err := d.annotate(fn, ins, &out); err != nil {
			return nil, err
		}
		instructions = append(instructions, out)
	}
	return instructions, nil
}

func (d *disassembler) annotate(fn *bytecode.Function, ins bytecode.Instruction, out *Instruction) error {
	if slot, ok := ins.Slot(); ok {
		out.Annotation = localName(fn, slot)
		return nil
	}
	if index, ok := ins.PoolIndex(); ok {
		if index >= fn.ConstantCount() {
			return fmt.Errorf("constant index out of range: %d", index)
		}
		out.Constant = fn.ConstantAt(index)
		out.Annotation = describe(out.Constant)
		return nil
	}
	switch {
	case ins.Op == op.CallSys || ins.Op == op.CallSysArgs:
		id := builtins.ID(ins.Operands[0])
		name, ok := d.builtins[id]
		if !ok {
			name = fmt.Sprintf("builtin_%d", id)
		}
		out.Annotation = name
	case op.IsJump(ins.Op):
		out.Annotation = fmt.Sprintf("-> %d", ins.Operands[0])
	}
	return nil
}

func localName(fn *bytecode.Function, slot int) string {
	if name := fn.LocalNameAt(slot); name != "" {
		return name
	}
	return fmt.Sprintf("local_%d", slot)
}

func describe(c any) string {
	switch c := c.(type) {
	case *bytecode.Function:
		name := c.Name()
		if name == "" {
			name = "<anonymous>"
		}
		return "func:" + name
	case value.String:
		if len(c) > 80 {
			c = c[:77] + "..."
		}
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}

var (
	bold    = color.New(color.Bold)
	yellow  = color.New(color.FgYellow)
	green   = color.New(color.FgGreen)
	magenta = color.New(color.FgMagenta)
	cyan    = color.New(color.FgHiCyan)
)

func info(instr Instruction) string {
	if instr.Constant == nil {
		if instr.Annotation == "" {
			return ""
		}
		return cyan.Sprint(instr.Annotation)
	}
	switch instr.Constant.(type) {
	case value.Int, value.Float:
		return yellow.Sprint(instr.Annotation)
	case value.String, value.Char:
		return green.Sprint(instr.Annotation)
	case *bytecode.Function:
		return magenta.Sprint(instr.Annotation)
	default:
		return bold.Sprint(instr.Annotation)
	}
}

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) error {
	t := table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		})
	for _, instr := range instructions {
		t.Append([]string{
			fmt.Sprintf("%d", instr.Offset),
			bold.Sprint(instr.Name),
			formatOperands(instr.Operands),
			info(instr),
		})
	}
	return t.Render()
}

func formatOperands(operands []uint8) string {
	var sb strings.Builder
	for i, o := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", o)
	}
	return sb.String()
}
