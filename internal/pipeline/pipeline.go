// =============================================================================
// Offline Geodatabase Converter - Conversion Pipeline
// =============================================================================
//
// This module runs the three conversion stages against a toolkit and reports
// their progress to the operator's message sink.
//
// CONVERSION PIPELINE:
//   1. Create an empty file geodatabase in the processing folder
//   2. Export the input geodatabase to an XML workspace document
//   3. Import the XML workspace document into the new geodatabase
//
// FAILURE POLICY:
//   Every stage runs exactly once and in order, whatever happened before.
//   A failed stage logs the toolkit's messages and its failure marker and
//   the pipeline moves on. A stage that depends on an earlier failed one
//   simply fails in turn. Nothing is rolled back.
//
// =============================================================================

package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/loggo/v2"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/hosting"
	"github.com/ginjaninja78/offline-gdb-converter/internal/toolkit"
	"github.com/ginjaninja78/offline-gdb-converter/internal/xmlworkspace"
)

var logger = loggo.GetLogger("offlinegdb.pipeline")

// =============================================================================
// OPERATOR MESSAGES
// =============================================================================

const (
	markerBeginning = "#-----Beginning processing-----#"
	markerSucceeded = "#-----Completed successfully-----#"
)

// banner frames a section title the way the operator sees it.
func banner(title string) string {
	return "############################################### \n" +
		title + "\n" +
		"###############################################"
}

// =============================================================================
// STAGES
// =============================================================================

// Stage identifies one step of the pipeline.
type Stage string

const (
	StageCreate Stage = "Create Geodatabase"
	StageExport Stage = "Export to XML"
	StageImport Stage = "Import from XML"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageCreate, StageExport, StageImport}

// title is the section banner shown before the stage runs.
func (s Stage) title() string {
	switch s {
	case StageCreate:
		return "Creating empty geodatabase"
	case StageExport:
		return "Creating XML input file"
	}
	return "Creating the final output geodatabase"
}

// failureMarker is the line shown after the stage fails.
func (s Stage) failureMarker() string {
	switch s {
	case StageCreate:
		return "#-----Failed to create new Geodatabase-----#"
	case StageExport:
		return "#-----Failed to export to XML file-----#"
	}
	return "#-----Failed to import XML file into new geodatabase-----#"
}

// =============================================================================
// RESULT STRUCTURES
// =============================================================================

// Result represents the outcome of a single stage.
type Result struct {
	// Stage is the stage that ran.
	Stage Stage

	// Success indicates whether the stage completed.
	Success bool

	// Error contains the error if the stage failed.
	// This is nil if the stage succeeded.
	Error error

	// Messages are the toolkit messages the stage left behind.
	Messages string

	// Elapsed is the time the stage took.
	Elapsed time.Duration
}

// Report aggregates the stage results of one run.
type Report struct {
	// RunID uniquely identifies the run.
	RunID string

	// Started and Finished bracket the run.
	Started  time.Time
	Finished time.Time

	// Parameters are the values the run used.
	Parameters config.Parameters

	// Results holds one entry per stage, in execution order.
	Results []Result
}

// Succeeded reports whether every stage succeeded.
func (r *Report) Succeeded() bool {
	return len(r.Failed()) == 0 && len(r.Results) == len(Stages)
}

// Failed returns the results of the stages that failed.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline runs the conversion stages.
type Pipeline struct {
	// Toolkit executes the geoprocessing tools.
	Toolkit toolkit.Toolkit

	// Sink receives the operator messages.
	Sink hosting.Sink

	// Env is passed to every tool call.
	Env toolkit.Env

	// Export and Import are the options of stages 2 and 3.
	Export xmlworkspace.ExportOptions
	Import xmlworkspace.ImportOptions

	// now is replaced in tests.
	now func() time.Time
}

// New returns a pipeline configured from cfg.
func New(cfg *config.Config, tk toolkit.Toolkit, sink hosting.Sink) *Pipeline {
	return &Pipeline{
		Toolkit: tk,
		Sink:    sink,
		Env:     toolkit.Env{OverwriteOutput: cfg.Overwrite()},
		Export: xmlworkspace.ExportOptions{
			Data:     cfg.Export.DataOption,
			Storage:  cfg.Export.StorageType,
			Metadata: cfg.Export.MetadataOption,
		},
		Import: xmlworkspace.ImportOptions{
			Type:          cfg.Import.ImportType,
			ConfigKeyword: cfg.Import.ConfigKeyword,
		},
	}
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// Run echoes the parameters and executes every stage in order.
//
// PARAMETERS:
//   - ctx: Passed to each tool call.
//   - params: The resolved run parameters.
//
// RETURNS:
//   - A Report holding one Result per stage. Stage failures never abort
//     the run and are only visible through the report and the sink.
func (p *Pipeline) Run(ctx context.Context, params config.Parameters) *Report {
	report := &Report{
		RunID:      uuid.New().String(),
		Started:    p.clock(),
		Parameters: params,
	}
	logger.Infof("run %s started", report.RunID)

	p.Sink.Message(banner("Input and output File paths"))
	for _, pair := range params.Pairs() {
		p.Sink.Message(pair[0] + ": " + pair[1])
	}

	p.Sink.Message(markerBeginning)

	for _, stage := range Stages {
		report.Results = append(report.Results, p.runStage(ctx, stage, params))
	}

	report.Finished = p.clock()
	logger.Infof("run %s finished: %d of %d stages failed", report.RunID, len(report.Failed()), len(report.Results))
	return report
}

// runStage executes one stage and reports it to the sink.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, params config.Parameters) Result {
	p.Sink.Message(banner(stage.title()))

	start := p.clock()
	var err error
	switch stage {
	case StageCreate:
		err = p.Toolkit.CreateFileGDB(ctx, params.ProcessingFolder, params.OutputGDBName, p.Env)
	case StageExport:
		err = p.Toolkit.ExportXMLWorkspaceDocument(ctx, params.InputGeodatabase, params.OutputXML, p.Export, p.Env)
	case StageImport:
		err = p.Toolkit.ImportXMLWorkspaceDocument(ctx, params.OutputGDBPath(), params.OutputXML, p.Import, p.Env)
	}

	result := Result{
		Stage:    stage,
		Success:  err == nil,
		Error:    err,
		Messages: p.Toolkit.Messages(toolkit.SeverityAll),
		Elapsed:  p.clock().Sub(start),
	}

	p.Sink.Message(result.Messages)
	if err != nil {
		logger.Warningf("stage %q failed: %v", stage, err)
		p.Sink.Message(stage.failureMarker())
		return result
	}
	logger.Debugf("stage %q completed in %s", stage, result.Elapsed)
	p.Sink.Message(markerSucceeded)
	return result
}
