package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/toolkit"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
	"github.com/ginjaninja78/offline-gdb-converter/internal/xmlworkspace"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// recordingSink keeps every message it receives.
type recordingSink struct {
	lines  []string
	errors []string
}

func (s *recordingSink) Message(msg string) { s.lines = append(s.lines, msg) }
func (s *recordingSink) Error(msg string)   { s.errors = append(s.errors, msg) }

func (s *recordingSink) count(line string) int {
	n := 0
	for _, l := range s.lines {
		if l == line {
			n++
		}
	}
	return n
}

// fakeToolkit counts stage entries and fails the tools named in fail.
type fakeToolkit struct {
	availability toolkit.Availability
	checkOutErr  error
	fail         map[string]error

	calls    []string
	args     map[string][]any
	messages string
}

func newFakeToolkit() *fakeToolkit {
	return &fakeToolkit{
		availability: toolkit.Available,
		fail:         make(map[string]error),
		args:         make(map[string][]any),
	}
}

func (f *fakeToolkit) CheckExtension(string) toolkit.Availability { return f.availability }

func (f *fakeToolkit) CheckOutExtension(string) error {
	f.messages = "check out messages"
	return f.checkOutErr
}

func (f *fakeToolkit) call(tool string, args ...any) error {
	f.calls = append(f.calls, tool)
	f.args[tool] = args
	if err := f.fail[tool]; err != nil {
		f.messages = "ERROR 999999: " + err.Error() + "\nFailed to execute (" + tool + ")."
		return err
	}
	f.messages = "Succeeded " + tool
	return nil
}

func (f *fakeToolkit) CreateFileGDB(_ context.Context, folder, name string, env toolkit.Env) error {
	return f.call("CreateFileGDB", folder, name, env)
}

func (f *fakeToolkit) ExportXMLWorkspaceDocument(_ context.Context, input, output string, options xmlworkspace.ExportOptions, env toolkit.Env) error {
	return f.call("ExportXMLWorkspaceDocument", input, output, options, env)
}

func (f *fakeToolkit) ImportXMLWorkspaceDocument(_ context.Context, target, xmlPath string, options xmlworkspace.ImportOptions, env toolkit.Env) error {
	return f.call("ImportXMLWorkspaceDocument", target, xmlPath, options, env)
}

func (f *fakeToolkit) Messages(int) string { return f.messages }

func defaultParameters() config.Parameters {
	return config.Resolve(config.Default(), false, nil)
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestRunAttemptsEveryStageAfterFailure(t *testing.T) {
	// --- Arrange ---
	tk := newFakeToolkit()
	tk.fail["CreateFileGDB"] = errors.New("disk full")
	sink := &recordingSink{}
	p := New(config.Default(), tk, sink)

	// --- Act ---
	report := p.Run(context.Background(), defaultParameters())

	// --- Assert ---
	require.Equal(t, []string{"CreateFileGDB", "ExportXMLWorkspaceDocument", "ImportXMLWorkspaceDocument"}, tk.calls)

	require.Len(t, report.Results, 3)
	require.Equal(t, StageCreate, report.Results[0].Stage)
	require.False(t, report.Results[0].Success)
	require.EqualError(t, report.Results[0].Error, "disk full")
	require.Contains(t, report.Results[0].Messages, "Failed to execute (CreateFileGDB).")
	require.True(t, report.Results[1].Success)
	require.True(t, report.Results[2].Success)

	require.False(t, report.Succeeded())
	require.Len(t, report.Failed(), 1)

	require.Equal(t, 1, sink.count("#-----Failed to create new Geodatabase-----#"))
	require.Equal(t, 2, sink.count(markerSucceeded))
	require.Empty(t, sink.errors, "stage failures are reported as messages")
}

func TestRunFailureMarkers(t *testing.T) {
	tk := newFakeToolkit()
	for _, tool := range []string{"CreateFileGDB", "ExportXMLWorkspaceDocument", "ImportXMLWorkspaceDocument"} {
		tk.fail[tool] = errors.New("boom")
	}
	sink := &recordingSink{}

	report := New(config.Default(), tk, sink).Run(context.Background(), defaultParameters())

	require.Len(t, report.Failed(), 3)
	require.Zero(t, sink.count(markerSucceeded))
	for _, marker := range []string{
		"#-----Failed to create new Geodatabase-----#",
		"#-----Failed to export to XML file-----#",
		"#-----Failed to import XML file into new geodatabase-----#",
	} {
		require.Equal(t, 1, sink.count(marker), marker)
	}
}

func TestRunMessageSequence(t *testing.T) {
	tk := newFakeToolkit()
	sink := &recordingSink{}

	New(config.Default(), tk, sink).Run(context.Background(), defaultParameters())

	require.Equal(t, []string{
		"############################################### \nInput and output File paths\n###############################################",
		"CollGdbOuput: C:/Temp/Collector_Offline_Tool",
		"CollGdbName: CollOuput.gdb",
		"CollInput: C:/Temp/Input.geodatabase",
		"CollXmlOutput: C:/Temp/Collector_Offline_Tool/Output.xml",
		"#-----Beginning processing-----#",
		"############################################### \nCreating empty geodatabase\n###############################################",
		"Succeeded CreateFileGDB",
		"#-----Completed successfully-----#",
		"############################################### \nCreating XML input file\n###############################################",
		"Succeeded ExportXMLWorkspaceDocument",
		"#-----Completed successfully-----#",
		"############################################### \nCreating the final output geodatabase\n###############################################",
		"Succeeded ImportXMLWorkspaceDocument",
		"#-----Completed successfully-----#",
	}, sink.lines)
}

func TestRunPassesStageArguments(t *testing.T) {
	// --- Arrange ---
	tk := newFakeToolkit()
	cfg := config.Default()
	cfg.Export.StorageType = config.StorageNormalized
	p := New(cfg, tk, &recordingSink{})
	params := config.Resolve(cfg, true, []string{"Field.gdb", "D:/sync/Field.geodatabase"})

	// --- Act ---
	p.Run(context.Background(), params)

	// --- Assert ---
	env := toolkit.Env{OverwriteOutput: true}
	require.Equal(t, []any{"C:/Temp/Collector_Offline_Tool", "Field.gdb", env}, tk.args["CreateFileGDB"])
	require.Equal(t, []any{
		"D:/sync/Field.geodatabase",
		"C:/Temp/Collector_Offline_Tool/Output.xml",
		xmlworkspace.ExportOptions{Data: "DATA", Storage: "NORMALIZED", Metadata: "METADATA"},
		env,
	}, tk.args["ExportXMLWorkspaceDocument"])
	require.Equal(t, []any{
		filepath.Join("C:/Temp/Collector_Offline_Tool", "Field.gdb"),
		"C:/Temp/Collector_Offline_Tool/Output.xml",
		xmlworkspace.ImportOptions{Type: "DATA", ConfigKeyword: "DEFAULTS"},
		env,
	}, tk.args["ImportXMLWorkspaceDocument"])
}

func TestRunHonoursOverwritePolicy(t *testing.T) {
	tk := newFakeToolkit()
	cfg := config.Default()
	off := false
	cfg.OverwriteOutput = &off

	New(cfg, tk, &recordingSink{}).Run(context.Background(), defaultParameters())

	for tool, args := range tk.args {
		require.Equal(t, toolkit.Env{}, args[len(args)-1], tool)
	}
}

func TestReportTiming(t *testing.T) {
	tk := newFakeToolkit()
	p := New(config.Default(), tk, &recordingSink{})
	clock := time.Date(2019, 6, 27, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	report := p.Run(context.Background(), defaultParameters())

	require.Regexp(t, `^[0-9a-f-]{36}$`, report.RunID)
	require.Equal(t, 7*time.Second, report.Finished.Sub(report.Started))
	for _, res := range report.Results {
		require.Equal(t, time.Second, res.Elapsed, res.Stage)
	}
	require.True(t, report.Succeeded())
}

func TestEmptyReportDidNotSucceed(t *testing.T) {
	require.False(t, (&Report{}).Succeeded())
}

// =============================================================================
// GATE
// =============================================================================

func TestGate(t *testing.T) {
	tests := []struct {
		name         string
		availability toolkit.Availability
		checkOutErr  error
		wantErr      bool
	}{
		{"available", toolkit.Available, nil, false},
		{"not licensed", toolkit.NotLicensed, nil, true},
		{"failed", toolkit.Failed, nil, true},
		{"check out refused", toolkit.Available, errors.New("seat taken"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// --- Arrange ---
			tk := newFakeToolkit()
			tk.availability = tt.availability
			tk.checkOutErr = tt.checkOutErr
			tk.messages = "queued diagnostics"
			sink := &recordingSink{}

			// --- Act ---
			err := Gate(tk, sink, "Spatial")

			// --- Assert ---
			if !tt.wantErr {
				require.NoError(t, err)
				require.Equal(t, []string{"Checking out Spatial"}, sink.lines)
				require.Empty(t, sink.errors)
				return
			}
			require.True(t, errors.Is(err, ErrCapabilityUnavailable), "got %v", err)
			require.Equal(t, []string{"Unable to get Spatial Analyst extension"}, sink.errors)
			require.NotEmpty(t, sink.lines)
			require.NotEmpty(t, sink.lines[len(sink.lines)-1], "the toolkit messages follow the error")
		})
	}
}

func TestGateNamesTheRequiredExtension(t *testing.T) {
	tests := []struct {
		extension string
		want      string
	}{
		{"Spatial", "Unable to get Spatial Analyst extension"},
		{"3D", "Unable to get 3D Analyst extension"},
		{"Teleport", "Unable to get Teleport extension"},
	}

	for _, tt := range tests {
		t.Run(tt.extension, func(t *testing.T) {
			sink := &recordingSink{}

			err := Gate(toolkit.NewLocal(nil), sink, tt.extension)

			require.True(t, errors.Is(err, ErrCapabilityUnavailable), "got %v", err)
			require.Equal(t, []string{tt.want}, sink.errors)
		})
	}
}

func TestGateWithLocalToolkit(t *testing.T) {
	sink := &recordingSink{}

	err := Gate(toolkit.NewLocal(nil), sink, "Spatial")

	require.True(t, errors.Is(err, ErrCapabilityUnavailable), "got %v", err)
	require.Contains(t, err.Error(), "NotLicensed")
}

// =============================================================================
// END TO END
// =============================================================================

// seedInput writes a mobile geodatabase with a Parcels feature class holding
// ten records.
func seedInput(t *testing.T, path string) {
	t.Helper()
	gdb, err := geodatabase.CreateMobile(path, false)
	require.NoError(t, err)
	defer gdb.Close()

	_, err = gdb.CreateDataset(&types.Dataset{
		Name:      "Parcels",
		Kind:      types.DatasetFeatureClass,
		ShapeType: "esriGeometryPolygon",
		WKID:      2263,
		Metadata:  "<metadata/>",
		Fields: []types.Field{
			{Name: "OBJECTID", Type: types.FieldTypeOID},
			{Name: "SHAPE", Type: types.FieldTypeGeometry, Nullable: true},
			{Name: "ParcelID", Type: types.FieldTypeString, Length: 12, Nullable: true},
			{Name: "Acres", Type: types.FieldTypeDouble, Nullable: true},
			{Name: "GlobalID", Type: types.FieldTypeGlobalID},
		},
	}, xmlworkspace.KeywordDefaults)
	require.NoError(t, err)

	var records []types.Record
	for i := 0; i < 10; i++ {
		records = append(records, types.Record{nil, []byte{byte(i), 0xaa}, fmt.Sprintf("P-%d", i), float64(i) / 4, nil})
	}
	require.NoError(t, gdb.Insert("Parcels", records))
}

func localParameters(t *testing.T) config.Parameters {
	t.Helper()
	root := t.TempDir()
	folder := filepath.Join(root, "Collector_Offline_Tool")
	cfg := config.Default()
	cfg.WorkingRoot = root
	cfg.ProcessingFolder = folder
	cfg.InputGeodatabase = filepath.Join(root, "Input.geodatabase")
	cfg.OutputXML = filepath.Join(folder, "Output.xml")

	require.NoError(t, os.MkdirAll(folder, 0o755))
	seedInput(t, cfg.InputGeodatabase)
	return config.Resolve(cfg, false, nil)
}

func TestParcelsScenario(t *testing.T) {
	// --- Arrange ---
	params := localParameters(t)
	p := New(config.Default(), toolkit.NewLocal([]string{"Spatial"}), &recordingSink{})

	// --- Act ---
	report := p.Run(context.Background(), params)

	// --- Assert ---
	for _, res := range report.Results {
		require.NoError(t, res.Error, res.Stage)
	}
	require.True(t, report.Succeeded())
	require.FileExists(t, params.OutputXML)

	out, err := geodatabase.Open(filepath.Join(params.ProcessingFolder, "CollOuput.gdb"))
	require.NoError(t, err)
	defer out.Close()

	n, err := out.Count("Parcels")
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestRoundTripFidelity(t *testing.T) {
	params := localParameters(t)
	report := New(config.Default(), toolkit.NewLocal(nil), &recordingSink{}).Run(context.Background(), params)
	require.True(t, report.Succeeded())

	in, err := geodatabase.Open(params.InputGeodatabase)
	require.NoError(t, err)
	defer in.Close()
	out, err := geodatabase.Open(params.OutputGDBPath())
	require.NoError(t, err)
	defer out.Close()

	wantSchema, err := in.Datasets()
	require.NoError(t, err)
	gotSchema, err := out.Datasets()
	require.NoError(t, err)
	require.Equal(t, wantSchema, gotSchema)

	want, err := in.Records("Parcels")
	require.NoError(t, err)
	got, err := out.Records("Parcels")
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestRerunDoesNotDuplicate(t *testing.T) {
	params := localParameters(t)
	p := New(config.Default(), toolkit.NewLocal(nil), &recordingSink{})

	first := p.Run(context.Background(), params)
	second := p.Run(context.Background(), params)

	require.True(t, first.Succeeded())
	require.True(t, second.Succeeded())
	require.NotEqual(t, first.RunID, second.RunID)

	out, err := geodatabase.Open(params.OutputGDBPath())
	require.NoError(t, err)
	defer out.Close()
	datasets, err := out.Datasets()
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	n, err := out.Count("Parcels")
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestMissingInputFailsExportAndImport(t *testing.T) {
	params := localParameters(t)
	params.InputGeodatabase = filepath.Join(params.WorkingRoot, "Absent.geodatabase")
	sink := &recordingSink{}

	report := New(config.Default(), toolkit.NewLocal(nil), sink).Run(context.Background(), params)

	require.True(t, report.Results[0].Success)
	require.False(t, report.Results[1].Success)
	require.False(t, report.Results[2].Success, "import fails when there is no document")
	require.DirExists(t, params.OutputGDBPath(), "nothing is rolled back")
	require.True(t, strings.Contains(report.Results[1].Messages, "ERROR 000732"), report.Results[1].Messages)
}
