// =============================================================================
// Offline Geodatabase Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Called without a
// subcommand, the root command runs the conversion itself, so a host tool
// framework can invoke the binary with just its two parameters.
//
// COBRA CLI STRUCTURE:
//   rootCmd (offlinegdb [OUTPUT_GDB_NAME INPUT_GEODATABASE])
//   ├── inspectCmd (offlinegdb inspect PATH)
//   └── versionCmd (offlinegdb version)
//
// EXIT STATUS:
//   0  conversion ran (stage failures are reported, not escalated), or the
//      required extension was unavailable and gate_failure_exit_code is 0
//   1  configuration or bootstrap failure, or a failed stage with
//      fail_on_stage_error set
//   N  required extension unavailable, N = gate_failure_exit_code
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
)

// =============================================================================
// GLOBAL OPTIONS
// =============================================================================

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	// cfgFile is the path to the configuration file (--config).
	cfgFile string

	// verbose forces DEBUG diagnostics (--verbose).
	verbose bool
}

// loadConfig loads the configuration file. A missing file is an error only
// when --config was given explicitly.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	cfg, err := config.Load(o.cfgFile, explicit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if o.verbose {
		cfg.LogLevel = "DEBUG"
	}
	return cfg, nil
}

// =============================================================================
// EXIT STATUS
// =============================================================================

// exitError carries the process exit status chosen by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "offlinegdb [OUTPUT_GDB_NAME INPUT_GEODATABASE]",
		Short: "Convert an offline field collection geodatabase into a file geodatabase",
		Long: `offlinegdb converts the geodatabase a field collection app syncs down for
offline use into a clean file geodatabase, through an intermediate XML
workspace document.

Steps:
  1. Create an empty file geodatabase in the processing folder
  2. Export the input geodatabase to an XML workspace document
  3. Import the XML workspace document into the new geodatabase

Each step runs even when an earlier one failed. Progress is written to
stdout, or to the host channel when the tool is invoked by a host
framework with positional parameters.

Example Usage:
  offlinegdb                                      # Standalone run, all defaults
  offlinegdb Field.gdb D:/sync/Field.geodatabase  # Hosted tool run
  offlinegdb --config ./offlinegdb.yaml           # Use a custom configuration file`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, opts, args)
		},
	}

	rootCmd.PersistentFlags().StringVar(
		&opts.cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the configuration file",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&opts.verbose,
		"verbose",
		"v",
		false,
		"Enable debug diagnostics",
	)

	rootCmd.AddCommand(newInspectCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI and exits with the status the command chose.
// This is called by main.main().
func Execute() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command tree with args and returns the exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.code != 0 {
			fmt.Fprintf(stderr, "Error: %v\n", exit.err)
		}
		return exit.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return 1
}
