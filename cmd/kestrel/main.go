package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		printError(formatError(err, !color.NoColor))
		os.Exit(1)
	}
}

func printError(msg string) {
	fmt.Fprintln(os.Stderr, strings.TrimRight(msg, "\n"))
}
