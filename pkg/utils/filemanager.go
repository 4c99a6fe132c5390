// =============================================================================
// Offline Geodatabase Converter - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the converter:
//   - Working directory bootstrap
//   - File existence checks
//   - Plain text run summaries
//
// BOOTSTRAP:
//   The working root and the processing folder are created before anything
//   else runs. Creating them is idempotent: folders that already exist are
//   left as they are.
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/pipeline"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles the converter's working directories.
type FileManager struct {
	// WorkingRoot is the primary temp folder.
	WorkingRoot string

	// ProcessingFolder holds the XML document and the output geodatabase.
	ProcessingFolder string
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(workingRoot, processingFolder string) *FileManager {
	return &FileManager{
		WorkingRoot:      workingRoot,
		ProcessingFolder: processingFolder,
	}
}

// EnsureDirectories creates the working root and the processing folder if
// they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.WorkingRoot, fm.ProcessingFolder} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Annotatef(err, "creating directory %s", dir)
		}
	}
	return nil
}

// FileExists checks if a file or directory exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

const summaryRule = "================================================================================\n"

// WriteSummaryLog writes a plain text summary of a run.
//
// PARAMETERS:
//   - report: The finished run report.
//   - path: The summary file. Its folder is created when missing.
//
// RETURNS:
//   - An error if writing fails.
func WriteSummaryLog(report *pipeline.Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Annotate(err, "creating summary folder")
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Annotatef(err, "creating summary file %q", path)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintf(w, "Offline Geodatabase Converter - Run Summary\n"+
		summaryRule+"\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		report.RunID,
		report.Started.Format("2006-01-02 15:04:05"),
		report.Finished.Format("2006-01-02 15:04:05"),
		report.Finished.Sub(report.Started).Round(time.Millisecond))

	fmt.Fprintf(w, "Parameters:\n")
	for _, pair := range report.Parameters.Pairs() {
		fmt.Fprintf(w, "  %-15s %s\n", pair[0]+":", pair[1])
	}

	fmt.Fprintf(w, "\nStages:\n")
	fmt.Fprintf(w, "--------------------------------------------------------------------------------\n")
	for _, res := range report.Results {
		status := "Succeeded"
		if !res.Success {
			status = "Failed"
		}
		fmt.Fprintf(w, "  %-20s %-10s %s\n", res.Stage, status, res.Elapsed.Round(time.Millisecond))
		if res.Error != nil {
			fmt.Fprintf(w, "    Error: %v\n", res.Error)
		}
	}

	// Nothing is rolled back, so say what a failed run left behind.
	fmt.Fprintf(w, "\nOutputs:\n")
	for _, out := range [][2]string{
		{"Geodatabase:", report.Parameters.OutputGDBPath()},
		{"XML Document:", report.Parameters.OutputXML},
	} {
		state := "missing"
		if FileExists(out[1]) {
			state = "present"
		}
		fmt.Fprintf(w, "  %-15s %s (%s)\n", out[0], out[1], state)
	}

	outcome := "All stages completed successfully."
	if failed := len(report.Failed()); failed > 0 {
		outcome = fmt.Sprintf("%d of %d stages failed.", failed, len(report.Results))
	}
	fmt.Fprintf(w, "\n%s\n"+summaryRule+"End of Summary\n", outcome)

	if err := w.Flush(); err != nil {
		return errors.Annotatef(err, "writing summary file %q", path)
	}
	return errors.Trace(file.Close())
}
