package compiler

import (
	"math"
	"strings"

	"github.com/deepnoodle-ai/kestrel/ast"
	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/value"
)

// fold evaluates node at compile time. It succeeds for literals, names
// bound by const, conditionals with a constant condition, and calls of
// foldable builtins whose arguments all fold. Any evaluation error, such as
// integer overflow or division by zero, leaves the expression to run time.
func (c *Compiler) fold(node ast.Node) (value.Value, bool) {
	switch node := node.(type) {
	case *ast.Literal:
		return node.Value, true
	case *ast.Ident:
		res := c.resolve(node.Name)
		if res.Kind == Constant {
			return res.Value, true
		}
	case *ast.If:
		cond, ok := c.fold(node.Cond)
		if !ok {
			return nil, false
		}
		b, ok := cond.(value.Bool)
		if !ok {
			return nil, false
		}
		if b {
			return c.fold(node.Then)
		}
		if node.Else == nil {
			return value.Unit{}, true
		}
		return c.fold(node.Else)
	case *ast.Call:
		ident, ok := node.Fn.(*ast.Ident)
		if !ok {
			return nil, false
		}
		res := c.resolve(ident.Name)
		if res.Kind != Builtin || !res.Builtin.Arity.Accepts(len(node.Args)) {
			return nil, false
		}
		eval, ok := folders[res.Builtin.ID]
		if !ok {
			return nil, false
		}
		args := make([]value.Value, len(node.Args))
		for i, arg := range node.Args {
			v, ok := c.fold(arg)
			if !ok {
				return nil, false
			}
			args[i] = v
		}
		return eval(args)
	}
	return nil, false
}

// foldInt returns the integer node folds to, if any.
func (c *Compiler) foldInt(node ast.Node) (int64, bool) {
	v, ok := c.fold(node)
	if !ok {
		return 0, false
	}
	i, ok := v.(value.Int)
	return int64(i), ok
}

type folder func(args []value.Value) (value.Value, bool)

var folders map[builtins.ID]folder

func init() {
	folders = map[builtins.ID]folder{
		builtins.Add:      foldAdd,
		builtins.Sub:      foldSub,
		builtins.Mul:      foldMul,
		builtins.Div:      foldDiv,
		builtins.FloorDiv: foldFloorDiv,
		builtins.Rem:      foldRem,
		builtins.Eq:       foldEq,
		builtins.NotEq:    foldNotEq,
		builtins.Lt:       compareChain(func(c int) bool { return c < 0 }),
		builtins.Gt:       compareChain(func(c int) bool { return c > 0 }),
		builtins.Le:       compareChain(func(c int) bool { return c <= 0 }),
		builtins.Ge:       compareChain(func(c int) bool { return c >= 0 }),
		builtins.Not:      foldNot,
		builtins.Identity: func(args []value.Value) (value.Value, bool) { return args[0], true },
		builtins.Floor:    rounding(math.Floor),
		builtins.Ceiling:  rounding(math.Ceil),
		builtins.Round:    rounding(math.Round),
		builtins.Truncate: rounding(math.Trunc),
		builtins.Abs:      foldAbs,
		builtins.Min:      extremum(func(c int) bool { return c < 0 }),
		builtins.Max:      extremum(func(c int) bool { return c > 0 }),
	}
}

// numbers returns the arguments as integers when all are integers, or as
// floats when all are numbers and at least one is a float.
func numbers(args []value.Value) (ints []int64, floats []float64, ok bool) {
	allInt := true
	for _, a := range args {
		switch a.(type) {
		case value.Int:
		case value.Float:
			allInt = false
		default:
			return nil, nil, false
		}
	}
	if allInt {
		ints = make([]int64, len(args))
		for i, a := range args {
			ints[i] = int64(a.(value.Int))
		}
		return ints, nil, true
	}
	floats = make([]float64, len(args))
	for i, a := range args {
		switch a := a.(type) {
		case value.Int:
			floats[i] = float64(a)
		case value.Float:
			floats[i] = float64(a)
		}
	}
	return nil, floats, true
}

func addInt(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func subInt(a, b int64) (int64, bool) {
	s := a - b
	if (b > 0 && s > a) || (b < 0 && s < a) {
		return 0, false
	}
	return s, true
}

func mulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, false
	}
	return p, true
}

func foldAdd(args []value.Value) (value.Value, bool) {
	ints, floats, ok := numbers(args)
	if !ok {
		return nil, false
	}
	if floats != nil {
		var sum float64
		for _, f := range floats {
			sum += f
		}
		return value.Float(sum), true
	}
	var sum int64
	for _, i := range ints {
		if sum, ok = addInt(sum, i); !ok {
			return nil, false
		}
	}
	return value.Int(sum), true
}

func foldSub(args []value.Value) (value.Value, bool) {
	ints, floats, ok := numbers(args)
	if !ok {
		return nil, false
	}
	if floats != nil {
		if len(floats) == 1 {
			return value.Float(-floats[0]), true
		}
		r := floats[0]
		for _, f := range floats[1:] {
			r -= f
		}
		return value.Float(r), true
	}
	if len(ints) == 1 {
		r, ok := subInt(0, ints[0])
		return value.Int(r), ok
	}
	r := ints[0]
	for _, i := range ints[1:] {
		if r, ok = subInt(r, i); !ok {
			return nil, false
		}
	}
	return value.Int(r), true
}

func foldMul(args []value.Value) (value.Value, bool) {
	ints, floats, ok := numbers(args)
	if !ok {
		return nil, false
	}
	if floats != nil {
		r := 1.0
		for _, f := range floats {
			r *= f
		}
		return value.Float(r), true
	}
	r := int64(1)
	for _, i := range ints {
		if r, ok = mulInt(r, i); !ok {
			return nil, false
		}
	}
	return value.Int(r), true
}

// divide folds left over the arguments; a single argument is divided into
// one.
func divide(args []value.Value, divInt func(a, b int64) (int64, bool), divFloat func(a, b float64) float64) (value.Value, bool) {
	ints, floats, ok := numbers(args)
	if !ok {
		return nil, false
	}
	if floats != nil {
		if len(floats) == 1 {
			floats = []float64{1, floats[0]}
		}
		r := floats[0]
		for _, f := range floats[1:] {
			if f == 0 {
				return nil, false
			}
			r = divFloat(r, f)
		}
		return value.Float(r), true
	}
	if len(ints) == 1 {
		ints = []int64{1, ints[0]}
	}
	r := ints[0]
	for _, i := range ints[1:] {
		if i == 0 || (r == math.MinInt64 && i == -1) {
			return nil, false
		}
		if r, ok = divInt(r, i); !ok {
			return nil, false
		}
	}
	return value.Int(r), true
}

func foldDiv(args []value.Value) (value.Value, bool) {
	return divide(args,
		func(a, b int64) (int64, bool) { return a / b, a%b == 0 },
		func(a, b float64) float64 { return a / b })
}

func foldFloorDiv(args []value.Value) (value.Value, bool) {
	return divide(args,
		func(a, b int64) (int64, bool) {
			q := a / b
			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}
			return q, true
		},
		func(a, b float64) float64 { return math.Floor(a / b) })
}

func foldRem(args []value.Value) (value.Value, bool) {
	ints, floats, ok := numbers(args)
	if !ok {
		return nil, false
	}
	if floats != nil {
		if floats[1] == 0 {
			return nil, false
		}
		return value.Float(math.Mod(floats[0], floats[1])), true
	}
	if ints[1] == 0 {
		return nil, false
	}
	if ints[1] == -1 {
		return value.Int(0), true
	}
	return value.Int(ints[0] % ints[1]), true
}

// compare orders two values of compatible types. Numbers compare across
// integer and float.
func compare(a, b value.Value) (int, bool) {
	if _, floats, ok := numbers([]value.Value{a, b}); ok {
		if floats == nil {
			x, y := a.(value.Int), b.(value.Int)
			return cmpOrdered(x, y), true
		}
		if math.IsNaN(floats[0]) || math.IsNaN(floats[1]) {
			return 0, false
		}
		return cmpOrdered(floats[0], floats[1]), true
	}
	switch a := a.(type) {
	case value.String:
		if b, ok := b.(value.String); ok {
			return strings.Compare(string(a), string(b)), true
		}
	case value.Char:
		if b, ok := b.(value.Char); ok {
			return cmpOrdered(a, b), true
		}
	case value.Name:
		if b, ok := b.(value.Name); ok {
			return strings.Compare(string(a), string(b)), true
		}
	}
	return 0, false
}

func cmpOrdered[T int64 | float64 | value.Int | value.Char](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// equal compares two values for the = builtin. Numbers compare by value;
// other values must have the same type.
func equal(a, b value.Value) (bool, bool) {
	if c, ok := compare(a, b); ok {
		return c == 0, true
	}
	if value.IsNumber(a) && value.IsNumber(b) {
		// NaN never equals anything
		return false, true
	}
	if a.TypeName() != b.TypeName() {
		return false, false
	}
	return value.Equal(a, b), true
}

func foldEq(args []value.Value) (value.Value, bool) {
	for i := 1; i < len(args); i++ {
		eq, ok := equal(args[i-1], args[i])
		if !ok {
			return nil, false
		}
		if !eq {
			return value.Bool(false), true
		}
	}
	return value.Bool(true), true
}

// foldNotEq is true when no two arguments are equal.
func foldNotEq(args []value.Value) (value.Value, bool) {
	for i := range args {
		for j := i + 1; j < len(args); j++ {
			eq, ok := equal(args[i], args[j])
			if !ok {
				return nil, false
			}
			if eq {
				return value.Bool(false), true
			}
		}
	}
	return value.Bool(true), true
}

func compareChain(test func(int) bool) folder {
	return func(args []value.Value) (value.Value, bool) {
		result := true
		for i := 1; i < len(args); i++ {
			c, ok := compare(args[i-1], args[i])
			if !ok {
				return nil, false
			}
			if !test(c) {
				result = false
			}
		}
		return value.Bool(result), true
	}
}

func foldNot(args []value.Value) (value.Value, bool) {
	b, ok := args[0].(value.Bool)
	if !ok {
		return nil, false
	}
	return !b, true
}

func rounding(fn func(float64) float64) folder {
	return func(args []value.Value) (value.Value, bool) {
		switch a := args[0].(type) {
		case value.Int:
			return a, true
		case value.Float:
			return value.Float(fn(float64(a))), true
		}
		return nil, false
	}
}

func foldAbs(args []value.Value) (value.Value, bool) {
	switch a := args[0].(type) {
	case value.Int:
		if a == math.MinInt64 {
			return nil, false
		}
		if a < 0 {
			return -a, true
		}
		return a, true
	case value.Float:
		return value.Float(math.Abs(float64(a))), true
	}
	return nil, false
}

func extremum(better func(int) bool) folder {
	return func(args []value.Value) (value.Value, bool) {
		if _, _, ok := numbers(args); !ok {
			return nil, false
		}
		best := args[0]
		for _, a := range args[1:] {
			c, ok := compare(a, best)
			if !ok {
				return nil, false
			}
			if better(c) {
				best = a
			}
		}
		return best, true
	}
}
