package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wippyai/napi-runtime/scenario"
)

var (
	okColor     = color.New(color.FgGreen)
	failColor   = color.New(color.FgRed, color.Bold)
	statusColor = color.New(color.FgYellow)
	eventColor  = color.New(color.FgCyan)
	titleColor  = color.New(color.Bold)
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file.toml>",
		Short: "Run a scenario and print the status of every step",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	cmd.Flags().Bool("state", false, "print the final environment state")
	return cmd
}

func runScenario(cmd *cobra.Command, args []string) error {
	runner, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	showState, err := cmd.Flags().GetBool("state")
	if err != nil {
		return fmt.Errorf("failed to get state flag: %w", err)
	}

	trace, err := loadAndRun(runner, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printTrace(out, trace)
	if showState {
		fmt.Fprintln(out)
		printState(out, trace.Final())
	}
	return trace.Err()
}

func loadAndRun(runner *scenario.Runner, path string) (*scenario.Trace, error) {
	f, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}
	return runner.Run(f)
}

func printTrace(w io.Writer, t *scenario.Trace) {
	titleColor.Fprintln(w, t.Name)
	for _, s := range t.Steps {
		mark := okColor.Sprint("ok  ")
		if s.Failed {
			mark = failColor.Sprint("FAIL")
		}
		fmt.Fprintf(w, "%s %3d %-16s %s", mark, s.Index, s.Op, statusColor.Sprint(s.Status))
		if s.Detail != "" {
			fmt.Fprintf(w, "  %s", s.Detail)
		}
		if s.Failed && s.Expect != "" && s.Expect != s.Status.String() {
			fmt.Fprintf(w, "  (want %s)", s.Expect)
		}
		fmt.Fprintln(w)
		for _, ev := range s.Events {
			eventColor.Fprintf(w, "         %s\n", ev)
		}
	}

	failed := len(t.Failures())
	if failed == 0 {
		okColor.Fprintf(w, "%d steps, all passed\n", len(t.Steps))
		return
	}
	failColor.Fprintf(w, "%d steps, %d failed\n", len(t.Steps), failed)
}

func printState(w io.Writer, st scenario.State) {
	fmt.Fprint(w, formatState(st))
}
