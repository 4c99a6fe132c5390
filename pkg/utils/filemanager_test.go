package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/pipeline"
)

func TestEnsureDirectoriesIsIdempotent(t *testing.T) {
	// --- Arrange ---
	root := filepath.Join(t.TempDir(), "Temp")
	folder := filepath.Join(root, "Collector_Offline_Tool")
	fm := NewFileManager(root, folder)

	// --- Act ---
	require.NoError(t, fm.EnsureDirectories())
	require.NoError(t, os.WriteFile(filepath.Join(folder, "keep.txt"), []byte("x"), 0o644))
	require.NoError(t, fm.EnsureDirectories())

	// --- Assert ---
	require.DirExists(t, root)
	require.DirExists(t, folder)
	require.FileExists(t, filepath.Join(folder, "keep.txt"), "existing content is left alone")
}

func TestEnsureDirectoriesFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "Temp")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := NewFileManager(blocker, filepath.Join(blocker, "Collector_Offline_Tool")).EnsureDirectories()

	require.Error(t, err)
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	require.True(t, FileExists(dir))
	require.False(t, FileExists(filepath.Join(dir, "absent")))
}

func TestWriteSummaryLog(t *testing.T) {
	// --- Arrange ---
	started := time.Date(2019, 6, 27, 10, 15, 0, 0, time.UTC)
	report := &pipeline.Report{
		RunID:      "run-1",
		Started:    started,
		Finished:   started.Add(2 * time.Second),
		Parameters: config.Resolve(config.Default(), false, nil),
		Results: []pipeline.Result{
			{Stage: pipeline.StageCreate, Success: true, Elapsed: time.Second},
			{Stage: pipeline.StageExport, Error: errors.New("input not found")},
			{Stage: pipeline.StageImport, Error: errors.New("document not found")},
		},
	}
	path := filepath.Join(t.TempDir(), "logs", "summary.txt")

	// --- Act ---
	require.NoError(t, WriteSummaryLog(report, path))

	// --- Assert ---
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	require.True(t, strings.HasPrefix(text, "Offline Geodatabase Converter - Run Summary\n"))
	require.Contains(t, text, "  Run ID:         run-1\n")
	require.Contains(t, text, "  Duration:       2s\n")
	require.Contains(t, text, "  CollGdbName:    CollOuput.gdb\n")
	require.Contains(t, text, "  Create Geodatabase   Succeeded  1s\n")
	require.Contains(t, text, "    Error: input not found\n")
	require.Contains(t, text, "  Geodatabase:    "+report.Parameters.OutputGDBPath()+" (missing)\n")
	require.Contains(t, text, "2 of 3 stages failed.")
	require.True(t, strings.HasSuffix(text, "End of Summary\n"))
}

func TestWriteSummaryLogOutputs(t *testing.T) {
	// --- Arrange ---
	folder := t.TempDir()
	params := config.Parameters{
		ProcessingFolder: folder,
		OutputGDBName:    "Field.gdb",
		OutputXML:        filepath.Join(folder, "Output.xml"),
	}
	require.NoError(t, os.WriteFile(params.OutputXML, []byte("<Workspace/>"), 0o644))
	report := &pipeline.Report{RunID: "run-2", Parameters: params}
	path := filepath.Join(folder, "summary.txt")

	// --- Act ---
	require.NoError(t, WriteSummaryLog(report, path))

	// --- Assert ---
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), "  Geodatabase:    "+filepath.Join(folder, "Field.gdb")+" (missing)\n")
	require.Contains(t, string(raw), "  XML Document:   "+params.OutputXML+" (present)\n")
}
