// =============================================================================
// Offline Geodatabase Converter - Configuration Module
// =============================================================================
//
// This module loads the run configuration and resolves the five run
// parameters (working root, processing folder, input geodatabase, output
// geodatabase name, output XML document).
//
// CONFIGURATION FILE:
//   A single YAML file (default: offlinegdb.yaml). Every setting is optional;
//   a missing file at the default location means "use the defaults".
//
// PARAMETER SOURCES:
//   - Standalone script: every parameter comes from the configuration.
//   - Hosted tool:       positional parameter [0] overrides the output
//                        geodatabase name, [1] overrides the input path.
//
// =============================================================================

package config

import (
	"os"
	"strings"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultConfigFile is the configuration file looked up when --config
	// is not given.
	DefaultConfigFile = "offlinegdb.yaml"

	DefaultWorkingRoot      = "C:/Temp"
	DefaultProcessingFolder = "C:/Temp/Collector_Offline_Tool"
	DefaultInputGeodatabase = "C:/Temp/Input.geodatabase"
	DefaultOutputXML        = "C:/Temp/Collector_Offline_Tool/Output.xml"
	DefaultOutputGDBName    = "CollOuput.gdb"

	// DefaultRequiredExtension is the toolkit extension checked out before
	// any processing happens.
	DefaultRequiredExtension = "Spatial"
)

// Export option values understood by the XML workspace exporter.
const (
	ExportData       = "DATA"
	ExportSchemaOnly = "SCHEMA_ONLY"

	StorageBinary     = "BINARY"
	StorageNormalized = "NORMALIZED"

	ExportMetadata   = "METADATA"
	ExportNoMetadata = "NO_METADATA"
)

// Import option values understood by the XML workspace importer.
const (
	ImportData       = "DATA"
	ImportSchemaOnly = "SCHEMA_ONLY"

	ConfigKeywordDefaults     = "DEFAULTS"
	ConfigKeywordTextUTF16    = "TEXT_UTF16"
	ConfigKeywordMaxFile4GB   = "MAX_FILE_SIZE_4GB"
	ConfigKeywordMaxFile256TB = "MAX_FILE_SIZE_256TB"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// PATH SETTINGS
	// =========================================================================

	// WorkingRoot is the primary temp folder. It is created on startup.
	WorkingRoot string `yaml:"working_root"`

	// ProcessingFolder holds the intermediate XML document and the output
	// geodatabase. It is created on startup.
	ProcessingFolder string `yaml:"processing_folder"`

	// InputGeodatabase is the geodatabase produced by the field collection app.
	InputGeodatabase string `yaml:"input_geodatabase"`

	// OutputGDBName is the name of the file geodatabase created in
	// ProcessingFolder.
	OutputGDBName string `yaml:"output_gdb_name"`

	// OutputXML is the path of the intermediate XML workspace document.
	OutputXML string `yaml:"output_xml"`

	// =========================================================================
	// RUN POLICY
	// =========================================================================

	// OverwriteOutput lets every stage replace artifacts left by an earlier
	// run. A nil value means the default (true).
	OverwriteOutput *bool `yaml:"overwrite_output"`

	// RequiredExtension is the toolkit extension that must be available.
	RequiredExtension string `yaml:"required_extension"`

	// LicensedExtensions lists the extensions the local toolkit reports as
	// available.
	LicensedExtensions []string `yaml:"licensed_extensions"`

	// GateFailureExitCode is the process exit status used when the required
	// extension is unavailable. Default: 0.
	GateFailureExitCode int `yaml:"gate_failure_exit_code"`

	// FailOnStageError makes the process exit with status 1 when any stage
	// failed. Default: false (stage failures are reported, not escalated).
	FailOnStageError bool `yaml:"fail_on_stage_error"`

	// =========================================================================
	// TOOL OPTIONS
	// =========================================================================

	// Export holds the options passed to the export stage.
	Export ExportSettings `yaml:"export"`

	// Import holds the options passed to the import stage.
	Import ImportSettings `yaml:"import"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ReportXLSX is an optional path for a spreadsheet run report.
	ReportXLSX string `yaml:"report_xlsx"`

	// SummaryLog is an optional path for a plain text run summary.
	SummaryLog string `yaml:"summary_log"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional rolling diagnostic log file.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of diagnostic logging.
	// Valid values: "TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL".
	// Default: "WARNING"
	LogLevel string `yaml:"log_level"`
}

// ExportSettings are the fixed export options of stage 2.
type ExportSettings struct {
	// DataOption is DATA or SCHEMA_ONLY.
	DataOption string `yaml:"data_option"`

	// StorageType is BINARY or NORMALIZED.
	StorageType string `yaml:"storage_type"`

	// MetadataOption is METADATA or NO_METADATA.
	MetadataOption string `yaml:"metadata_option"`
}

// ImportSettings are the fixed import options of stage 3.
type ImportSettings struct {
	// ImportType is DATA or SCHEMA_ONLY.
	ImportType string `yaml:"import_type"`

	// ConfigKeyword is the storage configuration keyword. Default: DEFAULTS.
	ConfigKeyword string `yaml:"config_keyword"`
}

// Overwrite returns the effective overwrite policy.
func (c *Config) Overwrite() bool {
	return c.OverwriteOutput == nil || *c.OverwriteOutput
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Default returns a configuration holding only default values.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - path: The configuration file path.
//   - explicit: Whether the path was given by the user. A missing file is an
//     error only when it was.
//
// RETURNS:
//   - The configuration with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func Load(path string, explicit bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Annotatef(err, "reading config file %q", path)
	}

	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Annotate(err, "parsing config file")
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.Annotate(err, "invalid configuration")
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.WorkingRoot == "" {
		cfg.WorkingRoot = DefaultWorkingRoot
	}
	if cfg.ProcessingFolder == "" {
		cfg.ProcessingFolder = DefaultProcessingFolder
	}
	if cfg.InputGeodatabase == "" {
		cfg.InputGeodatabase = DefaultInputGeodatabase
	}
	if cfg.OutputGDBName == "" {
		cfg.OutputGDBName = DefaultOutputGDBName
	}
	if cfg.OutputXML == "" {
		cfg.OutputXML = DefaultOutputXML
	}
	if cfg.RequiredExtension == "" {
		cfg.RequiredExtension = DefaultRequiredExtension
	}
	if cfg.LicensedExtensions == nil {
		cfg.LicensedExtensions = []string{DefaultRequiredExtension}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "WARNING"
	}

	// Tool options.
	if cfg.Export.DataOption == "" {
		cfg.Export.DataOption = ExportData
	}
	if cfg.Export.StorageType == "" {
		cfg.Export.StorageType = StorageBinary
	}
	if cfg.Export.MetadataOption == "" {
		cfg.Export.MetadataOption = ExportMetadata
	}
	if cfg.Import.ImportType == "" {
		cfg.Import.ImportType = ImportData
	}
	if cfg.Import.ConfigKeyword == "" {
		cfg.Import.ConfigKeyword = ConfigKeywordDefaults
	}

	// Option keywords are case-insensitive in the file.
	cfg.Export.DataOption = strings.ToUpper(cfg.Export.DataOption)
	cfg.Export.StorageType = strings.ToUpper(cfg.Export.StorageType)
	cfg.Export.MetadataOption = strings.ToUpper(cfg.Export.MetadataOption)
	cfg.Import.ImportType = strings.ToUpper(cfg.Import.ImportType)
	cfg.Import.ConfigKeyword = strings.ToUpper(cfg.Import.ConfigKeyword)
}

// validate checks enumerated option values.
func validate(cfg *Config) error {
	checks := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"export.data_option", cfg.Export.DataOption, []string{ExportData, ExportSchemaOnly}},
		{"export.storage_type", cfg.Export.StorageType, []string{StorageBinary, StorageNormalized}},
		{"export.metadata_option", cfg.Export.MetadataOption, []string{ExportMetadata, ExportNoMetadata}},
		{"import.import_type", cfg.Import.ImportType, []string{ImportData, ImportSchemaOnly}},
		{"import.config_keyword", cfg.Import.ConfigKeyword, []string{
			ConfigKeywordDefaults, ConfigKeywordTextUTF16, ConfigKeywordMaxFile4GB, ConfigKeywordMaxFile256TB,
		}},
	}

	for _, check := range checks {
		if !containsFold(check.allowed, check.value) {
			return errors.NotValidf("%s %q (want one of %s)",
				check.name, check.value, strings.Join(check.allowed, ", "))
		}
	}

	if cfg.GateFailureExitCode < 0 || cfg.GateFailureExitCode > 255 {
		return errors.NotValidf("gate_failure_exit_code %d", cfg.GateFailureExitCode)
	}

	return nil
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}
