package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders errors in a compact, Rust-like layout, optionally with
// ANSI colors.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

// forced returns c with color output enabled regardless of the terminal.
// Whether to color at all is decided by Formatter.UseColor.
func forced(c *color.Color) *color.Color {
	c.EnableColor()
	return c
}

var (
	colorError     = forced(color.New(color.FgRed))
	colorErrorBold = forced(color.New(color.FgHiRed, color.Bold))
	colorDim       = forced(color.New(color.FgHiBlack))
	colorLocation  = forced(color.New(color.FgCyan))
	colorCaret     = forced(color.New(color.FgHiRed))
	colorHint      = forced(color.New(color.FgHiYellow))
	colorNote      = forced(color.New(color.FgHiBlue))
)

// FormattedError represents an error ready for display.
type FormattedError struct {
	Code        ErrorCode
	Kind        string // "parse error", "compile error", ...
	Message     string
	Filename    string
	Line        int
	Column      int
	EndColumn   int // For multi-character underlines
	SourceLines []SourceLineEntry
	Hint        string
	Note        string
}

// SourceLineEntry represents a line of source code with its number.
type SourceLineEntry struct {
	Number int
	Text   string
	IsMain bool // True if this is the line with the error
}

func (f *Formatter) paint(c *color.Color, s string) string {
	if !f.UseColor {
		return s
	}
	return c.Sprint(s)
}

// Format formats a single error.
func (f *Formatter) Format(err *FormattedError) string {
	return f.FormatWithPrefix(err, "")
}

// FormatWithPrefix formats the error with an optional prefix like "1/5",
// shown in place of the error code when the error has none.
func (f *Formatter) FormatWithPrefix(err *FormattedError, prefix string) string {
	var b strings.Builder
	width := 2
	if n := len(fmt.Sprint(err.Line)); n > width {
		width = n
	}
	pad := strings.Repeat(" ", width)

	label := "error"
	if err.Kind != "" {
		label = err.Kind
	}
	b.WriteString(f.paint(colorErrorBold, label))
	if err.Code != "" {
		b.WriteString(f.paint(colorDim, "["+string(err.Code)+"]"))
	} else if prefix != "" {
		b.WriteString(f.paint(colorDim, "["+prefix+"]"))
	}
	b.WriteString(f.paint(colorError, ": "))
	b.WriteString(err.Message)
	b.WriteString("\n")

	if loc := location(err); loc != "" {
		b.WriteString(pad)
		b.WriteString(f.paint(colorLocation, "-->"))
		b.WriteString(" ")
		b.WriteString(f.paint(colorLocation, loc))
		b.WriteString("\n")
	}

	if len(err.SourceLines) > 0 {
		b.WriteString(pad)
		b.WriteString(f.paint(colorDim, " |"))
		b.WriteString("\n")
		for _, line := range err.SourceLines {
			b.WriteString(f.paint(colorDim, fmt.Sprintf("%*d | ", width, line.Number)))
			b.WriteString(line.Text)
			b.WriteString("\n")
			if !line.IsMain || err.Column < 1 {
				continue
			}
			n := 1
			if err.EndColumn > err.Column {
				n = err.EndColumn - err.Column + 1
			}
			b.WriteString(pad)
			b.WriteString(f.paint(colorDim, " | "))
			b.WriteString(strings.Repeat(" ", err.Column-1))
			b.WriteString(f.paint(colorCaret, strings.Repeat("^", n)))
			b.WriteString("\n")
		}
	}

	if err.Hint != "" {
		b.WriteString(pad)
		b.WriteString(f.paint(colorDim, " = "))
		b.WriteString(f.paint(colorHint, "hint: "))
		b.WriteString(err.Hint)
		b.WriteString("\n")
	}
	if err.Note != "" {
		b.WriteString(pad)
		b.WriteString(f.paint(colorDim, " = "))
		b.WriteString(f.paint(colorNote, "note: "))
		b.WriteString(err.Note)
		b.WriteString("\n")
	}
	return b.String()
}

func location(err *FormattedError) string {
	switch {
	case err.Filename != "" && err.Line > 0:
		return fmt.Sprintf("%s:%d:%d", err.Filename, err.Line, err.Column)
	case err.Filename != "":
		return err.Filename
	case err.Line > 0:
		return fmt.Sprintf("%d:%d", err.Line, err.Column)
	}
	return ""
}

// FormatMultiple formats several errors, numbering them when there is more
// than one.
func (f *Formatter) FormatMultiple(errs []*FormattedError) string {
	switch len(errs) {
	case 0:
		return ""
	case 1:
		return f.Format(errs[0])
	}
	var b strings.Builder
	for i, err := range errs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.FormatWithPrefix(err, fmt.Sprintf("%d/%d", i+1, len(errs))))
	}
	b.WriteString("\n")
	b.WriteString(f.paint(colorErrorBold, fmt.Sprintf("found %d errors", len(errs))))
	b.WriteString("\n")
	return b.String()
}
