package builtins

// FuncSpec documents a builtin for the CLI listing.
type FuncSpec struct {
	Name    string
	Args    []string
	Doc     string
	Example string
}

// Docs returns documentation for all standard builtins, ordered by id.
func Docs() []FuncSpec {
	return builtinDocs
}

var builtinDocs = []FuncSpec{
	{Name: "+", Args: []string{"n..."}, Doc: "Sum of the arguments; (+) is 0", Example: "(+ 1 2 3)"},
	{Name: "-", Args: []string{"n", "m..."}, Doc: "Difference; with one argument, negation", Example: "(- 10 4)"},
	{Name: "*", Args: []string{"n..."}, Doc: "Product of the arguments; (*) is 1", Example: "(* 2 3)"},
	{Name: "/", Args: []string{"n", "m..."}, Doc: "Quotient; with one argument, reciprocal", Example: "(/ 1.0 4)"},
	{Name: "//", Args: []string{"n", "m..."}, Doc: "Floor division; with one argument, (// 1 n)", Example: "(// 7 2)"},
	{Name: "rem", Args: []string{"n", "m"}, Doc: "Remainder of integer division", Example: "(rem 7 2)"},
	{Name: "^", Args: []string{"base", "exp"}, Doc: "Exponentiation", Example: "(^ 2 10)"},
	{Name: "=", Args: []string{"a", "b..."}, Doc: "True if all arguments are equal", Example: "(= 1 1)"},
	{Name: "/=", Args: []string{"a", "b..."}, Doc: "True if no two adjacent arguments are equal", Example: "(/= 1 2)"},
	{Name: "<", Args: []string{"a", "b..."}, Doc: "True if arguments are strictly increasing", Example: "(< 1 2 3)"},
	{Name: ">", Args: []string{"a", "b..."}, Doc: "True if arguments are strictly decreasing", Example: "(> 3 2 1)"},
	{Name: "<=", Args: []string{"a", "b..."}, Doc: "True if arguments are non-decreasing", Example: "(<= 1 1 2)"},
	{Name: ">=", Args: []string{"a", "b..."}, Doc: "True if arguments are non-increasing", Example: "(>= 2 2 1)"},
	{Name: "not", Args: []string{"b"}, Doc: "Boolean negation", Example: "(not false)"},
	{Name: "id", Args: []string{"x"}, Doc: "Returns its argument", Example: "(id 1)"},
	{Name: "floor", Args: []string{"n"}, Doc: "Largest integer not greater than n", Example: "(floor 1.5)"},
	{Name: "ceiling", Args: []string{"n"}, Doc: "Smallest integer not less than n", Example: "(ceiling 1.5)"},
	{Name: "round", Args: []string{"n"}, Doc: "Nearest integer, halves away from zero", Example: "(round 2.5)"},
	{Name: "truncate", Args: []string{"n"}, Doc: "Integer part of n", Example: "(truncate -1.5)"},
	{Name: "abs", Args: []string{"n"}, Doc: "Absolute value", Example: "(abs -3)"},
	{Name: "min", Args: []string{"n..."}, Doc: "Smallest argument", Example: "(min 3 1 2)"},
	{Name: "max", Args: []string{"n..."}, Doc: "Largest argument", Example: "(max 3 1 2)"},
	{Name: "list", Args: []string{"x..."}, Doc: "Builds a list", Example: "(list 1 2 3)"},
	{Name: "first", Args: []string{"list"}, Doc: "First element of a list", Example: "(first (list 1 2))"},
	{Name: "tail", Args: []string{"list"}, Doc: "All but the first element", Example: "(tail (list 1 2))"},
	{Name: "init", Args: []string{"list"}, Doc: "All but the last element", Example: "(init (list 1 2))"},
	{Name: "last", Args: []string{"list"}, Doc: "Last element of a list", Example: "(last (list 1 2))"},
	{Name: "append", Args: []string{"list", "x"}, Doc: "List with x added at the end", Example: "(append (list 1) 2)"},
	{Name: "elt", Args: []string{"list", "i"}, Doc: "Element at index i", Example: "(elt (list 1 2) 1)"},
	{Name: "concat", Args: []string{"list..."}, Doc: "Concatenation of lists", Example: "(concat (list 1) (list 2))"},
	{Name: "len", Args: []string{"x"}, Doc: "Length of a list or string", Example: "(len \"abc\")"},
	{Name: "null", Args: []string{"x"}, Doc: "True for the empty value", Example: "(null ())"},
	{Name: "type-of", Args: []string{"x"}, Doc: "Name of the value's type", Example: "(type-of 1)"},
	{Name: "format", Args: []string{"fmt", "x..."}, Doc: "Formats arguments into a string", Example: "(format \"{}\" 1)"},
	{Name: "print", Args: []string{"fmt", "x..."}, Doc: "Prints formatted output", Example: "(print \"hi\")"},
	{Name: "println", Args: []string{"fmt?", "x..."}, Doc: "Prints formatted output and a newline", Example: "(println \"hi\")"},
}
