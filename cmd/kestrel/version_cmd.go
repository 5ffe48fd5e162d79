package main

import (
	"fmt"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/spf13/cobra"
)

func newVersionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format); err != nil {
				return err
			}
			info := map[string]any{
				"version":  version,
				"commit":   commit,
				"date":     date,
				"bytecode": bytecode.FormatVersion,
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "kestrel %s (commit %s, built %s, bytecode v%d)\n",
				version, commit, date, bytecode.FormatVersion)
			return err
		},
	}
	cmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	return cmd
}
