package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Parse errors
//   - E2xxx: Compile errors
type ErrorCode string

const (
	// Parse errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unexpected token
	E1002 ErrorCode = "E1002" // Unterminated string literal
	E1003 ErrorCode = "E1003" // Invalid syntax
	E1007 ErrorCode = "E1007" // Unclosed delimiter
	E1008 ErrorCode = "E1008" // Invalid number literal
	E1010 ErrorCode = "E1010" // Invalid escape sequence

	// Compile errors (E2xxx)
	E2001 ErrorCode = "E2001" // Unbound name
	E2006 ErrorCode = "E2006" // Duplicate parameter name
	E2007 ErrorCode = "E2007" // Too many local slots
	E2008 ErrorCode = "E2008" // Too many constants
	E2012 ErrorCode = "E2012" // Forward reference
	E2013 ErrorCode = "E2013" // Arity mismatch
	E2014 ErrorCode = "E2014" // Non-constant value in const expression
	E2015 ErrorCode = "E2015" // Duplicate top-level name
	E2016 ErrorCode = "E2016" // Invalid tail position
	E2017 ErrorCode = "E2017" // Jump target out of range
	E2018 ErrorCode = "E2018" // Misplaced definition
	E2019 ErrorCode = "E2019" // Too many arguments
)

// Names for the compile error kinds. Each is an alias of its code.
const (
	UnboundName            = E2001
	DuplicateParameter     = E2006
	TooManyLocals          = E2007
	TooManyConstants       = E2008
	ForwardReference       = E2012
	ArityMismatch          = E2013
	NonConstantInConstExpr = E2014
	DuplicateTopLevelName  = E2015
	InvalidTailPosition    = E2016
	JumpOutOfRange         = E2017
	MisplacedDefinition    = E2018
	TooManyArguments       = E2019
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unexpected token",
	E1002: "unterminated string literal",
	E1003: "invalid syntax",
	E1007: "unclosed delimiter",
	E1008: "invalid number literal",
	E1010: "invalid escape sequence",

	E2001: "unbound name",
	E2006: "duplicate parameter name",
	E2007: "too many local slots",
	E2008: "too many constants",
	E2012: "forward reference",
	E2013: "arity mismatch",
	E2014: "non-constant value in const expression",
	E2015: "duplicate top-level name",
	E2016: "invalid tail position",
	E2017: "jump target out of range",
	E2018: "misplaced definition",
	E2019: "too many arguments",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "parse"
	case '2':
		return "compile"
	default:
		return "unknown"
	}
}
