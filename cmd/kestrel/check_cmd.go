package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Report compile errors without writing output",
		Long: `Compile every file and report all errors found. A file that fails to
compile does not stop the files after it from being checked.`,
		RunE: a.checkHandler,
	}
	addInputFlags(cmd)
	return cmd
}

func (a *app) checkHandler(cmd *cobra.Command, args []string) error {
	u, err := a.readInput(cmd, args)
	if err != nil {
		return err
	}
	if err := checkUnit(cmd.Context(), u.sources, u.settings, a.log); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: %d files\n", len(u.sources))
	return nil
}
