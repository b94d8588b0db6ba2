// Command firecheck records fire safety inspections and shows the
// inspection history.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/firecheck/internal/cli"
)

func main() {
	slog.SetDefault(cli.NewLogger(os.Stderr, slog.LevelInfo))

	if err := cli.NewRootCommand().Execute(); err != nil {
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			// Flag and usage errors are returned by cobra before any
			// command output.
			fmt.Fprintln(os.Stderr, "firecheck:", err)
			os.Exit(cli.ExitCommandError)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
