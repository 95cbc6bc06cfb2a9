package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/napi-runtime/scenario"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <file.toml>",
		Short: "Run a scenario and save its trace as msgpack",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotScenario,
	}
	cmd.Flags().StringP("output", "o", "", "output file (default: <file>.msgpack)")
	return cmd
}

func snapshotScenario(cmd *cobra.Command, args []string) error {
	runner, done, err := setup(cmd)
	if err != nil {
		return err
	}
	defer done()

	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if output == "" {
		output = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".msgpack"
	}

	trace, err := loadAndRun(runner, args[0])
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	if err := scenario.WriteSnapshot(f, trace); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d steps to %s\n", len(trace.Steps), output)
	return nil
}

// loadTrace replays a .toml scenario or reads a saved .msgpack trace.
func loadTrace(runner *scenario.Runner, path string) (*scenario.Trace, error) {
	if filepath.Ext(path) != ".msgpack" {
		return loadAndRun(runner, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scenario.ReadSnapshot(f)
}
