// Command lifetrace replays napi lifetime scenarios and shows what happened
// to every scope, reference, hook and object along the way.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/napi-runtime/engine"
	"github.com/wippyai/napi-runtime/napi"
	"github.com/wippyai/napi-runtime/scenario"
)

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lifetrace",
		Short:         "Replay napi lifetime scenarios",
		Long:          `lifetrace runs TOML scenarios against an in-memory engine heap and reports the status and state after every step`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "log environment activity to stderr")
	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newInspectCmd())
	return root
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup applies the global flags and returns a runner configured with them.
func setup(cmd *cobra.Command) (*scenario.Runner, func(), error) {
	mode, err := cmd.Flags().GetString("color")
	if err != nil {
		return nil, nil, err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, nil, err
	}
	if !verbose {
		return scenario.NewRunner(), func() {}, nil
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}
	napi.SetLogger(logger)
	engine.SetLogger(logger)
	return scenario.NewRunner(scenario.WithLogger(logger)), func() { _ = logger.Sync() }, nil
}
