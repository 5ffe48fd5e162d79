package main

import (
	"fmt"
	"time"

	"github.com/deepnoodle-ai/kestrel/internal/table"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the artifact cache",
	}
	cmd.PersistentFlags().String("cache-path", "", "Cache database path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List cached artifacts",
		Args:  cobra.NoArgs,
		RunE:  a.cacheListHandler,
	}
	list.Flags().StringP("format", "f", "text", "Output format (text, json)")

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Remove old artifacts",
		Args:  cobra.NoArgs,
		RunE:  a.cachePruneHandler,
	}
	prune.Flags().Duration("older-than", 30*24*time.Hour, "Remove artifacts older than this")

	cmd.AddCommand(list, prune)
	return cmd
}

// bindCachePath lets --cache-path on the cache commands override the
// setting shared with compile.
func (a *app) bindCachePath(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("cache-path"); f != nil && f.Changed {
		a.v.Set("cache-path", f.Value.String())
	}
}

func (a *app) cacheListHandler(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}
	a.bindCachePath(cmd)
	c, err := a.openCache()
	if err != nil {
		return err
	}
	defer c.Close()
	entries, err := c.List(cmd.Context())
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(cmd.OutOrStdout(), entries)
	}
	tbl := table.NewTable(cmd.OutOrStdout()).
		WithHeader([]string{"ID", "LABEL", "FORMS", "SIZE", "CREATED"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignLeft, table.AlignLeft, table.AlignRight, table.AlignRight, table.AlignLeft,
		})
	for _, e := range entries {
		tbl.Append([]string{
			e.ID.String(),
			e.Label,
			fmt.Sprint(e.Forms),
			fmt.Sprint(e.Size),
			e.CreatedAt.Format(time.RFC3339),
		})
	}
	return tbl.Render()
}

func (a *app) cachePruneHandler(cmd *cobra.Command, args []string) error {
	age, _ := cmd.Flags().GetDuration("older-than")
	a.bindCachePath(cmd)
	c, err := a.openCache()
	if err != nil {
		return err
	}
	defer c.Close()
	n, err := c.Prune(cmd.Context(), time.Now().Add(-age))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d artifacts\n", n)
	return nil
}
