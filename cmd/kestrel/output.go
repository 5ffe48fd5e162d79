package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"slices"

	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/hokaccha/go-prettyjson"
)

var outputFormats = []string{"text", "json"}

func checkFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("unknown output format: %s", format)
	}
	return nil
}

// writeJSON writes v as indented JSON, highlighted when colors are enabled.
func writeJSON(w io.Writer, v any) error {
	var (
		data []byte
		err  error
	)
	if color.NoColor {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = prettyjson.Marshal(v)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// formatError renders compile errors with source context. Other errors are
// printed as they are.
func formatError(err error, useColor bool) string {
	var formatted []*errors.FormattedError
	collect := func(err error) bool {
		var ce *errors.CompileError
		var list *errors.CompileErrors
		switch {
		case stderrors.As(err, &list):
			for _, e := range list.Errors {
				formatted = append(formatted, e.ToFormatted())
			}
		case stderrors.As(err, &ce):
			formatted = append(formatted, ce.ToFormatted())
		default:
			return false
		}
		return true
	}
	var merr *multierror.Error
	if stderrors.As(err, &merr) {
		for _, e := range merr.Errors {
			if !collect(e) {
				formatted = append(formatted, &errors.FormattedError{Kind: "error", Message: e.Error()})
			}
		}
	} else if !collect(err) {
		msg := err.Error()
		if useColor {
			msg = color.New(color.FgRed).Sprint(msg)
		}
		return msg
	}
	return errors.NewFormatter(useColor).FormatMultiple(formatted)
}
