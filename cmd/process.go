// =============================================================================
// Offline Geodatabase Converter - Conversion Run
// =============================================================================
//
// This file holds the conversion run executed by the root command.
//
// PROCESSING PIPELINE:
//   1. Load configuration and set up diagnostics
//   2. Bootstrap the working root and the processing folder
//   3. Detect the execution context and pick the message sink
//   4. Check out the required extension (exit by policy when unavailable)
//   5. Resolve and validate the run parameters
//   6. Run the create, export and import stages
//   7. Write the optional XLSX report and summary log
//
// =============================================================================

package cmd

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/hosting"
	"github.com/ginjaninja78/offline-gdb-converter/internal/logging"
	"github.com/ginjaninja78/offline-gdb-converter/internal/pipeline"
	"github.com/ginjaninja78/offline-gdb-converter/internal/report"
	"github.com/ginjaninja78/offline-gdb-converter/internal/toolkit"
	"github.com/ginjaninja78/offline-gdb-converter/internal/validation"
	"github.com/ginjaninja78/offline-gdb-converter/pkg/utils"
)

var logger = loggo.GetLogger("offlinegdb.cmd")

// runProcess is the main function that orchestrates the conversion run.
func runProcess(cmd *cobra.Command, opts *globalOptions, args []string) error {
	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return errors.Annotate(err, "loading configuration")
	}

	closer, err := logging.Setup(cfg.LogLevel, cfg.LogFile, cmd.ErrOrStderr())
	if err != nil {
		return errors.Annotate(err, "setting up logging")
	}
	defer closer.Close()

	// =========================================================================
	// STEP 2: BOOTSTRAP
	// =========================================================================

	fm := utils.NewFileManager(cfg.WorkingRoot, cfg.ProcessingFolder)
	if err := fm.EnsureDirectories(); err != nil {
		return errors.Annotate(err, "preparing working directories")
	}

	// =========================================================================
	// STEP 3: EXECUTION CONTEXT
	// =========================================================================
	// argv is the program name followed by the positional parameters.

	mode := hosting.Detect(append([]string{cmd.Root().Name()}, args...))
	sink := hosting.NewSink(mode, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger.Debugf("running as %s", mode)

	// =========================================================================
	// STEP 4: CAPABILITY GATE
	// =========================================================================

	tk := toolkit.NewLocal(cfg.LicensedExtensions)
	if err := pipeline.Gate(tk, sink, cfg.RequiredExtension); err != nil {
		logger.Warningf("%v", err)
		return &exitError{code: cfg.GateFailureExitCode, err: err}
	}

	// =========================================================================
	// STEP 5: PARAMETERS
	// =========================================================================

	params := config.Resolve(cfg, mode == hosting.HostedTool, args)
	findings := validation.ValidateParameters(params)
	for _, finding := range findings {
		if finding.Severity == validation.SeverityError {
			sink.Error(finding.Error())
		} else {
			sink.Message(finding.Error())
		}
	}
	if validation.HasErrors(findings) {
		sink.Message("Invalid parameters, the stages that use them will fail")
	}

	// =========================================================================
	// STEP 6: CONVERSION
	// =========================================================================

	run := pipeline.New(cfg, tk, sink).Run(context.Background(), params)

	// =========================================================================
	// STEP 7: REPORTS
	// =========================================================================
	// Report files are a convenience; failing to write one does not change
	// the outcome of the run.

	if cfg.ReportXLSX != "" {
		if err := report.WriteXLSX(run, cfg.ReportXLSX); err != nil {
			logger.Errorf("writing report: %v", err)
		}
	}
	if cfg.SummaryLog != "" {
		if err := utils.WriteSummaryLog(run, cfg.SummaryLog); err != nil {
			logger.Errorf("writing summary log: %v", err)
		}
	}

	if failed := run.Failed(); len(failed) > 0 && cfg.FailOnStageError {
		return &exitError{code: 1, err: errors.Errorf("%d of %d stages failed", len(failed), len(run.Results))}
	}
	return nil
}
