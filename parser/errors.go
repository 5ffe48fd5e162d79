package parser

import (
	"fmt"

	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/internal/lexer"
	"github.com/deepnoodle-ai/kestrel/token"
)

// newError builds a parse error quoting the line of input it refers to.
func newError(input, filename string, code errors.ErrorCode, start, end token.Position, format string, args ...any) *errors.CompileError {
	err := &errors.CompileError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Filename:   filename,
		Line:       start.LineNumber(),
		Column:     start.ColumnNumber(),
		SourceLine: lexer.LineText(input, start.Line),
	}
	if end.Line == start.Line && end.Column > start.Column {
		err.EndColumn = end.ColumnNumber()
	}
	return err
}
