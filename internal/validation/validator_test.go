package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

func validParameters(t *testing.T) config.Parameters {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "Input.geodatabase")
	require.NoError(t, os.WriteFile(input, nil, 0o644))

	return config.Parameters{
		WorkingRoot:      dir,
		ProcessingFolder: filepath.Join(dir, "Collector_Offline_Tool"),
		InputGeodatabase: input,
		OutputGDBName:    "CollOuput.gdb",
		OutputXML:        filepath.Join(dir, "Collector_Offline_Tool", "Output.xml"),
	}
}

func TestValidateParametersClean(t *testing.T) {
	require.Empty(t, ValidateParameters(validParameters(t)))
}

func TestValidateParametersFindings(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(p *config.Parameters)
		field    string
		severity string
	}{
		{"empty name", func(p *config.Parameters) { p.OutputGDBName = "" }, "CollGdbName", SeverityError},
		{"name is a path", func(p *config.Parameters) { p.OutputGDBName = "a/b.gdb" }, "CollGdbName", SeverityError},
		{"bad character", func(p *config.Parameters) { p.OutputGDBName = "out?.gdb" }, "CollGdbName", SeverityError},
		{"no gdb suffix", func(p *config.Parameters) { p.OutputGDBName = "CollOuput" }, "CollGdbName", SeverityWarning},
		{"no xml suffix", func(p *config.Parameters) { p.OutputXML = "/tmp/out.txt" }, "CollXmlOutput", SeverityWarning},
		{"missing input", func(p *config.Parameters) { p.InputGeodatabase = "/nowhere/Input.geodatabase" }, "CollInput", SeverityWarning},
		{"empty folder", func(p *config.Parameters) { p.ProcessingFolder = " " }, "CollGdbOuput", SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParameters(t)
			tt.mutate(&p)

			findings := ValidateParameters(p)

			require.NotEmpty(t, findings)
			require.Equal(t, tt.field, findings[0].Field)
			require.Equal(t, tt.severity, findings[0].Severity)
			require.Equal(t, tt.severity == SeverityError, HasErrors(findings))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Severity: SeverityWarning, Field: "CollXmlOutput", Value: "out.txt", Message: "has no .xml extension"}
	require.Equal(t, "[WARNING] CollXmlOutput: has no .xml extension (value: 'out.txt')", err.Error())
}

func TestValidateName(t *testing.T) {
	require.NoError(t, ValidateName("Parcels", MaxDatasetNameLength))
	require.NoError(t, ValidateName("Parcel_ID2", MaxFieldNameLength))

	for _, bad := range []string{"", "2Parcels", "Parcel Lines", "Parcels-1", "SELECT", "GDB_Items", string(make([]byte, 65))} {
		err := ValidateName(bad, MaxFieldNameLength)
		require.Error(t, err, bad)
		require.True(t, errors.Is(err, errors.NotValid), bad)
	}
}

func parcels() *types.Dataset {
	return &types.Dataset{
		Name:      "Parcels",
		Kind:      types.DatasetFeatureClass,
		ShapeType: "esriGeometryPolygon",
		WKID:      4326,
		Fields: []types.Field{
			{Name: "OBJECTID", Type: types.FieldTypeOID},
			{Name: "SHAPE", Type: types.FieldTypeGeometry, Nullable: true},
			{Name: "ParcelID", Type: types.FieldTypeString, Length: 20, Nullable: true},
		},
	}
}

func TestValidateDataset(t *testing.T) {
	require.NoError(t, ValidateDataset(parcels()))

	tests := []struct {
		name   string
		mutate func(ds *types.Dataset)
	}{
		{"bad name", func(ds *types.Dataset) { ds.Name = "1Parcels" }},
		{"bad kind", func(ds *types.Dataset) { ds.Kind = "esriDTRaster" }},
		{"no fields", func(ds *types.Dataset) { ds.Fields = nil }},
		{"duplicate field", func(ds *types.Dataset) { ds.Fields[2].Name = "objectid" }},
		{"unknown type", func(ds *types.Dataset) { ds.Fields[2].Type = "esriFieldTypeRaster" }},
		{"two oids", func(ds *types.Dataset) { ds.Fields[2].Type = types.FieldTypeOID }},
		{"feature class without shape", func(ds *types.Dataset) { ds.Fields = ds.Fields[:1] }},
		{"table with shape", func(ds *types.Dataset) { ds.Kind = types.DatasetTable }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := parcels()
			tt.mutate(ds)
			require.Error(t, ValidateDataset(ds))
		})
	}
}
