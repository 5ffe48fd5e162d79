package main

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/cache"
	"github.com/spf13/cobra"
)

func newCompileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "compile [files...]",
		Aliases: []string{"build"},
		Short:   "Compile source files to bytecode",
		Long: `Compile source files, in order, into a single bytecode file.

Without arguments the files listed in kestrel.toml are compiled.`,
		RunE: a.compileHandler,
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "Output path (default: derived from the input)")
	cmd.Flags().Bool("cache", false, "Reuse and store results in the artifact cache")
	cmd.Flags().String("cache-path", "", "Cache database path")
	a.v.BindPFlag("cache", cmd.Flags().Lookup("cache"))
	a.v.BindPFlag("cache-path", cmd.Flags().Lookup("cache-path"))
	return cmd
}

func (a *app) compileHandler(cmd *cobra.Command, args []string) error {
	u, err := a.readInput(cmd, args)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultOutput(u)
	}

	useCache := a.v.GetBool("cache") || (u.manifest != nil && u.manifest.Output.Cache)
	var forms []*bytecode.Function
	if useCache {
		forms, err = a.compileCached(cmd, u)
	} else {
		forms, err = compileUnit(cmd.Context(), u.sources, u.settings, a.log)
	}
	if err != nil {
		return err
	}

	data, err := bytecode.MarshalUnit(forms)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	a.log.Debug().Str("output", output).Int("forms", len(forms)).Int("bytes", len(data)).Msg("wrote bytecode")
	fmt.Fprintf(cmd.OutOrStdout(), "compiled %d forms to %s\n", len(forms), output)
	return nil
}

func (a *app) compileCached(cmd *cobra.Command, u *unit) ([]*bytecode.Function, error) {
	ctx := cmd.Context()
	c, err := a.openCache()
	if err != nil {
		return nil, err
	}
	defer c.Close()

	key := cache.Key(u.sources, u.settings.cacheSettings())
	if artifact, err := c.Get(ctx, key); err == nil {
		return artifact.Forms, nil
	} else if !stderrors.Is(err, cache.ErrNotFound) {
		a.log.Warn().Err(err).Msg("ignoring unreadable cache entry")
	}
	forms, err := compileUnit(ctx, u.sources, u.settings, a.log)
	if err != nil {
		return nil, err
	}
	if _, err := c.Put(ctx, key, label(u), forms); err != nil {
		return nil, err
	}
	return forms, nil
}

func (a *app) openCache() (*cache.Cache, error) {
	path := a.v.GetString("cache-path")
	if path == "" {
		var err error
		if path, err = cache.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return cache.Open(path, cache.WithLogger(a.log))
}

// label names a unit in cache listings.
func label(u *unit) string {
	if u.manifest != nil && u.manifest.Project.Name != "" {
		return u.manifest.Project.Name
	}
	names := make([]string, len(u.sources))
	for i, src := range u.sources {
		names[i] = src.Filename
	}
	return strings.Join(names, " ")
}

func defaultOutput(u *unit) string {
	if u.manifest != nil {
		return u.manifest.OutputPath()
	}
	first := u.sources[0].Filename
	if strings.HasPrefix(first, "<") {
		return "out.kbc"
	}
	return strings.TrimSuffix(first, filepath.Ext(first)) + ".kbc"
}
