package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/go-drift/weft/cmd/weft/internal/scenario"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	// Check compares the trace with the scenario's expect list.
	Check bool
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Replay a scenario and print its lifecycle trace",
		Long: `Replay a scenario through a fresh runtime and print the lifecycle trace.

Callback failures are part of the trace and do not fail the command. With
--check the trace is compared with the scenario's expect list.

Exit codes:
  0 - Replay finished (and matched its expectation with --check)
  1 - The trace did not match the expectation
  2 - Command error (unreadable scenario, invalid step, etc.)

Examples:
  weft replay scenarios/tooltip.yaml
  weft replay scenarios/tooltip.yaml --format json
  weft replay scenarios/tooltip.yaml --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Check, "check", false, "fail when the trace differs from the scenario's expect list")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Err: err}
	}

	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	settings := opts.settings
	res, err := scenario.Run(ctx, sc, scenario.Options{
		Logger:          opts.logger(cmd),
		Verbose:         settings.Verbose,
		StrictHookOrder: settings.StrictHookOrder,
		Module:          settings.ModulePath,
	})
	if err != nil {
		return &ExitError{Code: ExitCommandError, Err: fmt.Errorf("replay %s: %w", path, err)}
	}

	out := cmd.OutOrStdout()
	if settings.Format == "json" {
		err = res.WriteJSON(out)
	} else {
		err = res.WriteText(out)
	}
	if err != nil {
		return err
	}

	if opts.Check {
		if err := res.Check(sc.Expect); err != nil {
			return &ExitError{Code: ExitFailure, Err: err}
		}
	}
	return nil
}
