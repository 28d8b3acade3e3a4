// Package cmd implements the weft CLI commands.
//
// The root command carries the global flags and dispatches to the replay
// and version subcommands.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/go-drift/weft/cmd/weft/internal/config"
	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Exit codes returned by the CLI.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // trace did not match its expectation
	ExitCommandError = 2 // bad flags, unreadable config or scenario
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// RootOptions holds the global flags.
type RootOptions struct {
	Verbose    bool
	Format     string
	ConfigPath string

	// settings is resolved from weft.yaml and the flags before any
	// subcommand runs.
	settings *config.Resolved
}

// ExitError carries the process exit code for an error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit code from err. Errors without one are command
// errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "weft",
		Short: "weft - headless component runtime tooling",
		Long: `weft drives the headless component runtime from the command line.

Scenarios describe services, directives, a host tree and components in YAML,
followed by steps that mutate the tree. Replaying a scenario prints every
lifecycle transition the runtime performs.

Use "weft <command> --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs and stack traces)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to weft.yaml (default: search upward from the working directory)")

	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return run(NewRootCommand())
}

// run executes root. A panic is reported through the global error handler
// and returned as a command error.
func run(root *cobra.Command) (err error) {
	defer wefterrors.RecoverWithCallback("weft", func(r any) {
		err = &ExitError{Code: ExitCommandError, Err: fmt.Errorf("internal error: %v", r)}
	})
	return root.Execute()
}

// resolve merges weft.yaml with the flags. Flags set explicitly win.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	settings, err := config.Resolve(wd, o.ConfigPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("format") {
		if !slices.Contains(ValidFormats, o.Format) {
			return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
		}
		settings.Format = o.Format
	}
	if flags.Changed("verbose") {
		settings.Verbose = o.Verbose
	}
	if settings.Verbose && settings.LogLevel > slog.LevelDebug {
		settings.LogLevel = slog.LevelDebug
	}
	o.settings = settings
	return nil
}

// logger writes diagnostics to the command's stderr at the resolved level.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: o.settings.LogLevel}))
}
