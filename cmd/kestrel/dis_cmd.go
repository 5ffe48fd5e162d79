package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/dis"
	"github.com/spf13/cobra"
)

func newDisCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [files...]",
		Short: "Disassemble Kestrel bytecode",
		Long: `Disassemble compiled code. The input is either source code, which is
compiled first, or a .kbc file written by the compile command.`,
		RunE: a.disHandler,
	}
	addInputFlags(cmd)
	cmd.Flags().String("func", "", "Function to disassemble")
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

func (a *app) disHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	forms, err := a.loadForms(cmd, args)
	if err != nil {
		return err
	}

	if name, _ := cmd.Flags().GetString("func"); name != "" {
		fn, ok := findFunction(forms, name)
		if !ok {
			return fmt.Errorf("function %q not found", name)
		}
		forms = []*bytecode.Function{fn}
	}

	var listings []dis.Listing
	for i, form := range forms {
		ls, err := dis.Listings(form)
		if err != nil {
			return err
		}
		// The last listing is the form itself
		if form.Name() == "" {
			ls[len(ls)-1].Name = fmt.Sprintf("<form %d>", i+1)
		}
		listings = append(listings, ls...)
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), listings)
	}
	return dis.PrintListings(listings, cmd.OutOrStdout())
}

// loadForms reads compiled forms from a single .kbc argument, or compiles
// the input otherwise.
func (a *app) loadForms(cmd *cobra.Command, args []string) ([]*bytecode.Function, error) {
	if len(args) == 1 && filepath.Ext(args[0]) == ".kbc" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		return bytecode.UnmarshalUnit(data)
	}
	u, err := a.readInput(cmd, args)
	if err != nil {
		return nil, err
	}
	return compileUnit(cmd.Context(), u.sources, u.settings, a.log)
}

func findFunction(forms []*bytecode.Function, name string) (*bytecode.Function, bool) {
	for _, form := range forms {
		if fn, ok := dis.Find(form, name); ok {
			return fn, true
		}
	}
	return nil, false
}
