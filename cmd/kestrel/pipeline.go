package main

import (
	"context"
	stderrors "errors"
	"slices"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/kestrel/bytecode"
	"github.com/deepnoodle-ai/kestrel/cache"
	"github.com/deepnoodle-ai/kestrel/compiler"
	"github.com/deepnoodle-ai/kestrel/errors"
	"github.com/deepnoodle-ai/kestrel/parser"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

type settings struct {
	globals     []string
	lateBinding bool
	maxDepth    int
}

func (s settings) compilerOptions() []compiler.Option {
	return []compiler.Option{
		compiler.WithGlobalNames(s.globals...),
		compiler.WithLateBinding(s.lateBinding),
	}
}

// cacheSettings lists everything besides the sources that changes the
// compiled code.
func (s settings) cacheSettings() map[string]string {
	globals := slices.Clone(s.globals)
	slices.Sort(globals)
	return map[string]string{
		"globals":      strings.Join(slices.Compact(globals), ","),
		"late-binding": strconv.FormatBool(s.lateBinding),
	}
}

// compileSource parses and compiles one source file against env.
func compileSource(ctx context.Context, src cache.Source, env *compiler.Env, s settings, log zerolog.Logger) ([]*bytecode.Function, *compiler.Env, error) {
	nodes, err := parser.Parse(ctx, src.Text,
		parser.WithFilename(src.Filename),
		parser.WithMaxDepth(s.maxDepth))
	if err != nil {
		return nil, env, err
	}
	opts := append(s.compilerOptions(),
		compiler.WithFilename(src.Filename),
		compiler.WithSource(src.Text),
		compiler.WithLogger(log))
	fns, next, err := compiler.New(opts...).CompileAll(env, nodes)
	if err != nil {
		return nil, env, err
	}
	log.Debug().Str("file", src.Filename).Int("forms", len(fns)).Msg("compiled file")
	return fns, next, nil
}

// compileUnit compiles the sources in order, each seeing the definitions of
// the ones before it. It stops at the first failing file.
func compileUnit(ctx context.Context, srcs []cache.Source, s settings, log zerolog.Logger) ([]*bytecode.Function, error) {
	env := compiler.NewEnv()
	var forms []*bytecode.Function
	for _, src := range srcs {
		fns, next, err := compileSource(ctx, src, env, s, log)
		if err != nil {
			return nil, err
		}
		forms = append(forms, fns...)
		env = next
	}
	return forms, nil
}

// checkUnit compiles every source and reports all errors found. A file that
// fails contributes no definitions to the files after it.
func checkUnit(ctx context.Context, srcs []cache.Source, s settings, log zerolog.Logger) error {
	var result *multierror.Error
	env := compiler.NewEnv()
	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, next, err := compileSource(ctx, src, env, s, log)
		if err != nil {
			result = multierror.Append(result, splitErrors(err)...)
			continue
		}
		env = next
	}
	return result.ErrorOrNil()
}

// splitErrors expands a parser error list into its individual errors.
func splitErrors(err error) []error {
	var list *errors.CompileErrors
	if !stderrors.As(err, &list) {
		return []error{err}
	}
	out := make([]error, len(list.Errors))
	for i, e := range list.Errors {
		out[i] = e
	}
	return out
}
