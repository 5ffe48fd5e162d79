package main

import (
	"errors"
	"io"
	"os"
	"slices"

	"github.com/deepnoodle-ai/kestrel/cache"
	"github.com/deepnoodle-ai/kestrel/manifest"
	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/spf13/cobra"
)

// unit is the input of one command: the sources and the settings to
// compile them with.
type unit struct {
	sources  []cache.Source
	settings settings
	manifest *manifest.Manifest
}

// addInputFlags registers the flags that select where source code comes
// from.
func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "Code to compile")
	cmd.Flags().Bool("stdin", false, "Read code from stdin")
	cmd.Flags().StringP("project", "p", "", "Directory containing kestrel.toml")
}

// readInput determines what code the command works on. There are four
// possibilities:
//  1. --code <code>
//  2. --stdin (read code from stdin)
//  3. paths as args
//  4. a kestrel.toml found in --project or above the working directory
func (a *app) readInput(cmd *cobra.Command, args []string) (*unit, error) {
	flags := cmd.Flags()
	codeSet := flags.Changed("code")
	stdinSet, _ := flags.GetBool("stdin")
	project, _ := flags.GetString("project")

	count := 0
	for _, set := range []bool{codeSet, stdinSet, len(args) > 0, project != ""} {
		if set {
			count++
		}
	}
	if count > 1 {
		return nil, errors.New("multiple input sources specified")
	}

	u := &unit{}
	switch {
	case codeSet:
		code, _ := flags.GetString("code")
		u.sources = []cache.Source{{Filename: "<code>", Text: code}}
	case stdinSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, err
		}
		u.sources = []cache.Source{{Filename: "<stdin>", Text: string(data)}}
	case len(args) > 0:
		srcs, err := readFiles(args)
		if err != nil {
			return nil, err
		}
		u.sources = srcs
	default:
		var (
			m   *manifest.Manifest
			err error
		)
		if project != "" {
			m, err = manifest.Load(project)
		} else {
			m, err = manifest.FindAndLoad(".")
		}
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, errors.New("no input provided")
		}
		srcs, err := readFiles(m.SourcePaths())
		if err != nil {
			return nil, err
		}
		u.sources = srcs
		u.manifest = m
		a.log.Debug().Str("project", m.Project.Name).Str("dir", m.Dir).Msg("loaded manifest")
	}
	u.settings = a.settings(u.manifest)
	return u, nil
}

func readFiles(paths []string) ([]cache.Source, error) {
	srcs := make([]cache.Source, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, cache.Source{Filename: path, Text: string(data)})
	}
	return srcs, nil
}

// settings merges the manifest's compiler settings with the global flags.
// Flags add globals and can only turn late binding on.
func (a *app) settings(m *manifest.Manifest) settings {
	s := settings{
		globals:     a.v.GetStringSlice("globals"),
		lateBinding: a.v.GetBool("late-binding"),
		maxDepth:    a.v.GetInt("max-depth"),
	}
	if m != nil {
		s.globals = append(slices.Clone(m.Compiler.Globals), s.globals...)
		s.lateBinding = s.lateBinding || m.Compiler.LateBinding
		if s.maxDepth == 0 {
			s.maxDepth = m.Compiler.MaxDepth
		}
	}
	if s.maxDepth == 0 {
		s.maxDepth = parser.DefaultMaxDepth
	}
	return s
}
