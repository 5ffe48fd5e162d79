package main

import (
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	v   *viper.Viper
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	return newApp().command()
}

func newApp() *app {
	a := &app{v: viper.New(), log: zerolog.Nop()}
	a.v.SetEnvPrefix("kestrel")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	return a
}

// command builds the command tree. Flags are bound to the app's viper
// instance, so each tree has its own settings.
func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "kestrel",
		Short:         "Compiler for the Kestrel language",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.setup(cmd.ErrOrStderr())
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Log compiler activity")
	flags.Bool("no-color", false, "Disable colored output")
	flags.StringSlice("globals", nil, "Names the host defines at run time")
	flags.Bool("late-binding", false, "Compile unknown names in function bodies as global lookups")
	flags.Int("max-depth", 0, "Maximum nesting depth of source forms")
	for _, name := range []string{"verbose", "no-color", "globals", "late-binding", "max-depth"} {
		a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(
		newCompileCmd(a),
		newDisCmd(a),
		newCheckCmd(a),
		newBuiltinsCmd(a),
		newCacheCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup reads the global flags and configures logging and colors.
func (a *app) setup(stderr io.Writer) {
	if a.v.GetBool("no-color") || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
	level := zerolog.InfoLevel
	if a.v.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{
		Out:     stderr,
		NoColor: color.NoColor,
	}).Level(level).With().Timestamp().Logger()
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
