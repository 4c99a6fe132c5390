package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

// workspace is a throwaway working root with a seeded input geodatabase and
// a configuration file pointing at it.
type workspace struct {
	root   string
	folder string
	input  string
	config string
}

func newWorkspace(t *testing.T, extra string) workspace {
	t.Helper()
	root := t.TempDir()
	ws := workspace{
		root:   root,
		folder: filepath.Join(root, "Collector_Offline_Tool"),
		input:  filepath.Join(root, "Input.geodatabase"),
		config: filepath.Join(root, "offlinegdb.yaml"),
	}

	gdb, err := geodatabase.CreateMobile(ws.input, false)
	require.NoError(t, err)
	_, err = gdb.CreateDataset(&types.Dataset{
		Name:      "Parcels",
		Kind:      types.DatasetFeatureClass,
		ShapeType: "esriGeometryPoint",
		WKID:      4326,
		Fields: []types.Field{
			{Name: "OBJECTID", Type: types.FieldTypeOID},
			{Name: "SHAPE", Type: types.FieldTypeGeometry, Nullable: true},
			{Name: "ParcelID", Type: types.FieldTypeString, Length: 10, Nullable: true},
		},
	}, "DEFAULTS")
	require.NoError(t, err)
	var records []types.Record
	for i := 1; i <= 10; i++ {
		records = append(records, types.Record{nil, []byte{byte(i)}, fmt.Sprintf("P-%d", i)})
	}
	require.NoError(t, gdb.Insert("Parcels", records))
	require.NoError(t, gdb.Close())

	yaml := fmt.Sprintf(`working_root: %q
processing_folder: %q
input_geodatabase: %q
output_xml: %q
%s`, ws.root, ws.folder, ws.input, filepath.Join(ws.folder, "Output.xml"), extra)
	require.NoError(t, os.WriteFile(ws.config, []byte(yaml), 0o644))
	return ws
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := run("version")

	require.Zero(t, code)
	require.Contains(t, out, "Offline Geodatabase Converter\nVersion:    "+Version)
}

func TestStandaloneRun(t *testing.T) {
	// --- Arrange ---
	ws := newWorkspace(t, "")

	// --- Act ---
	code, out, _ := run("--config", ws.config)

	// --- Assert ---
	require.Zero(t, code)
	require.Contains(t, out, "CollGdbName: CollOuput.gdb\n")
	require.Contains(t, out, "#-----Beginning processing-----#\n")
	require.Equal(t, 3, strings.Count(out, "#-----Completed successfully-----#"))
	require.NotContains(t, out, "INFO ", "standalone output is plain text")

	gdb, err := geodatabase.Open(filepath.Join(ws.folder, "CollOuput.gdb"))
	require.NoError(t, err)
	defer gdb.Close()
	n, err := gdb.Count("Parcels")
	require.NoError(t, err)
	require.Equal(t, 10, n)
	require.FileExists(t, filepath.Join(ws.folder, "Output.xml"))
}

func TestReportFiles(t *testing.T) {
	reports := t.TempDir()
	ws := newWorkspace(t, fmt.Sprintf("report_xlsx: %q\nsummary_log: %q\n",
		filepath.Join(reports, "report.xlsx"), filepath.Join(reports, "summary.txt")))

	code, _, _ := run("--config", ws.config)

	require.Zero(t, code)
	require.FileExists(t, filepath.Join(reports, "report.xlsx"))
	summary, err := os.ReadFile(filepath.Join(reports, "summary.txt"))
	require.NoError(t, err)
	require.Contains(t, string(summary), "All stages completed successfully.")
}

func TestHostedRun(t *testing.T) {
	ws := newWorkspace(t, "")

	code, out, _ := run("--config", ws.config, "Field.gdb", ws.input)

	require.Zero(t, code)
	require.Contains(t, out, "INFO CollGdbName: Field.gdb\n")
	require.Contains(t, out, "INFO CollInput: "+ws.input+"\n")
	require.DirExists(t, filepath.Join(ws.folder, "Field.gdb"))
	require.NoDirExists(t, filepath.Join(ws.folder, "CollOuput.gdb"))
}

func TestRerunIsStable(t *testing.T) {
	ws := newWorkspace(t, "")

	code, _, _ := run("--config", ws.config)
	require.Zero(t, code)
	code, out, _ := run("--config", ws.config)
	require.Zero(t, code)
	require.Equal(t, 3, strings.Count(out, "#-----Completed successfully-----#"))

	gdb, err := geodatabase.Open(filepath.Join(ws.folder, "CollOuput.gdb"))
	require.NoError(t, err)
	defer gdb.Close()
	n, err := gdb.Count("Parcels")
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestGateFailureExitsByPolicy(t *testing.T) {
	tests := []struct {
		name  string
		extra string
		code  int
	}{
		{"default policy", "licensed_extensions: []\n", 0},
		{"configured policy", "licensed_extensions: []\ngate_failure_exit_code: 3\n", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newWorkspace(t, tt.extra)

			code, out, errOut := run("--config", ws.config)

			require.Equal(t, tt.code, code)
			require.Contains(t, errOut, "Unable to get Spatial Analyst extension")
			require.NotContains(t, out, "#-----Beginning processing-----#")
			require.DirExists(t, ws.folder, "bootstrap runs before the gate")
			require.NoDirExists(t, filepath.Join(ws.folder, "CollOuput.gdb"))
		})
	}
}

func TestStageFailurePolicy(t *testing.T) {
	ws := newWorkspace(t, "")
	require.NoError(t, os.Remove(ws.input))

	code, out, _ := run("--config", ws.config)
	require.Zero(t, code, "stage failures are reported, not escalated")
	require.Contains(t, out, "#-----Failed to export to XML file-----#")
	require.Contains(t, out, "#-----Failed to import XML file into new geodatabase-----#")

	strict := newWorkspace(t, "fail_on_stage_error: true\n")
	require.NoError(t, os.Remove(strict.input))
	code, _, errOut := run("--config", strict.config)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Error: 2 of 3 stages failed")
}

func TestConfigErrors(t *testing.T) {
	code, _, errOut := run("--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "loading configuration")

	ws := newWorkspace(t, "export:\n  storage_type: ZIPPED\n")
	code, _, errOut = run("--config", ws.config)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "ZIPPED")
}

func TestTooManyParameters(t *testing.T) {
	code, _, _ := run("a.gdb", "b.geodatabase", "c")
	require.Equal(t, 1, code)
}

func TestInspect(t *testing.T) {
	ws := newWorkspace(t, "")

	code, out, errOut := run("--config", ws.config, "inspect", ws.input)

	require.Zero(t, code, errOut)
	require.Contains(t, out, ws.input+" (mobile, {")
	require.Regexp(t, `Parcels\s+esriDTFeatureClass\s+DEFAULTS\s+3 fields\s+10 records`, out)

	code, _, errOut = run("--config", ws.config, "inspect", filepath.Join(ws.root, "absent.gdb"))
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not found")
}

func TestHostedEmptyParameters(t *testing.T) {
	ws := newWorkspace(t, "")

	code, out, _ := run("--config", ws.config, "", "")

	require.Zero(t, code)
	require.Contains(t, out, "INFO CollGdbName: \n")
	require.Contains(t, out, "INFO Invalid parameters, the stages that use them will fail\n")
	require.Contains(t, out, "#-----Failed to create new Geodatabase-----#")
	require.Contains(t, out, "#-----Failed to export to XML file-----#")
	require.Contains(t, out, "#-----Failed to import XML file into new geodatabase-----#")
	require.NotContains(t, out, "#-----Completed successfully-----#")
}
