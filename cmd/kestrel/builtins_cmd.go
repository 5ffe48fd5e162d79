package main

import (
	"fmt"

	"github.com/deepnoodle-ai/kestrel/builtins"
	"github.com/deepnoodle-ai/kestrel/internal/table"
	"github.com/spf13/cobra"
)

func newBuiltinsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builtins",
		Short: "List the builtin functions known to the compiler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format); err != nil {
				return err
			}
			return listBuiltins(cmd, builtins.Standard(), format)
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}

type builtinInfo struct {
	Name    string `json:"name"`
	ID      int    `json:"id"`
	Arity   string `json:"arity"`
	Doc     string `json:"doc,omitempty"`
	Example string `json:"example,omitempty"`
}

func listBuiltins(cmd *cobra.Command, t builtins.Table, format string) error {
	docs := map[string]builtins.FuncSpec{}
	for _, spec := range builtins.Docs() {
		docs[spec.Name] = spec
	}
	var infos []builtinInfo
	for _, name := range t.Names() {
		b, _ := t.Lookup(name)
		infos = append(infos, builtinInfo{
			Name:    b.Name,
			ID:      int(b.ID),
			Arity:   b.Arity.String(),
			Doc:     docs[name].Doc,
			Example: docs[name].Example,
		})
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), infos)
	}
	tbl := table.NewTable(cmd.OutOrStdout()).
		WithHeader([]string{"NAME", "ID", "ARITY", "DESCRIPTION"}).
		WithColumnAlignment([]table.Alignment{table.AlignLeft, table.AlignRight, table.AlignLeft, table.AlignLeft})
	for _, info := range infos {
		tbl.Append([]string{info.Name, fmt.Sprint(info.ID), info.Arity, info.Doc})
	}
	return tbl.Render()
}
