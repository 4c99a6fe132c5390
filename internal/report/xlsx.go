// =============================================================================
// Offline Geodatabase Converter - Run Report Workbook
// =============================================================================
//
// This module writes a run report as an XLSX workbook for operators who keep
// a record of each conversion.
//
// WORKBOOK STRUCTURE:
//
//   Sheet "Stages"
//   | Stage              | Status    | Elapsed (s) | Error                  |
//   |--------------------|-----------|-------------|------------------------|
//   | Create Geodatabase | Succeeded | 0.41        |                        |
//   | Export to XML      | Failed    | 0.02        | geodatabase ... not found |
//
//   Sheet "Parameters"
//   | Name          | Value                          |
//   |---------------|--------------------------------|
//   | Run ID        | 6f1c...                        |
//   | CollGdbOuput  | C:/Temp/Collector_Offline_Tool |
//   | ...           | ...                            |
//
// =============================================================================

package report

import (
	"time"

	"github.com/juju/errors"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/offline-gdb-converter/internal/pipeline"
)

const (
	SheetStages     = "Stages"
	SheetParameters = "Parameters"
)

// Status labels written to the Stages sheet.
const (
	StatusSucceeded = "Succeeded"
	StatusFailed    = "Failed"
)

// WriteXLSX writes the report to a workbook at path, replacing any
// existing file.
//
// PARAMETERS:
//   - report: The finished run report.
//   - path: The output workbook path.
//
// RETURNS:
//   - An error if the workbook cannot be built or saved.
func WriteXLSX(report *pipeline.Report, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with a single "Sheet1".
	if err := f.SetSheetName("Sheet1", SheetStages); err != nil {
		return errors.Trace(err)
	}
	if _, err := f.NewSheet(SheetParameters); err != nil {
		return errors.Trace(err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Trace(err)
	}

	// =========================================================================
	// STAGES
	// =========================================================================

	stages := [][]any{{"Stage", "Status", "Elapsed (s)", "Error"}}
	for _, res := range report.Results {
		status, message := StatusSucceeded, ""
		if !res.Success {
			status = StatusFailed
			if res.Error != nil {
				message = res.Error.Error()
			}
		}
		stages = append(stages, []any{string(res.Stage), status, res.Elapsed.Seconds(), message})
	}
	if err := writeRows(f, SheetStages, stages); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetCellStyle(SheetStages, "A1", "D1", header); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetColWidth(SheetStages, "A", "A", 22); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetColWidth(SheetStages, "D", "D", 60); err != nil {
		return errors.Trace(err)
	}

	// =========================================================================
	// PARAMETERS
	// =========================================================================

	params := [][]any{
		{"Name", "Value"},
		{"Run ID", report.RunID},
		{"Started", report.Started.Format(time.RFC3339)},
		{"Finished", report.Finished.Format(time.RFC3339)},
	}
	for _, pair := range report.Parameters.Pairs() {
		params = append(params, []any{pair[0], pair[1]})
	}
	if err := writeRows(f, SheetParameters, params); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetCellStyle(SheetParameters, "A1", "B1", header); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetColWidth(SheetParameters, "A", "A", 16); err != nil {
		return errors.Trace(err)
	}
	if err := f.SetColWidth(SheetParameters, "B", "B", 60); err != nil {
		return errors.Trace(err)
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Annotatef(err, "saving report %q", path)
	}
	return nil
}

// writeRows writes rows to sheet starting at A1.
func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Trace(err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Annotatef(err, "writing row %d of %s", i+1, sheet)
		}
	}
	return nil
}
