package xmlworkspace

import (
	"strings"

	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
)

// Export option keywords. The configuration file spells them the same way.
const (
	DataAll        = config.ExportData
	DataSchemaOnly = config.ExportSchemaOnly

	StorageBinary     = config.StorageBinary
	StorageNormalized = config.StorageNormalized

	MetadataInclude = config.ExportMetadata
	MetadataExclude = config.ExportNoMetadata
)

// Configuration keywords accepted on import.
const (
	KeywordDefaults     = config.ConfigKeywordDefaults
	KeywordTextUTF16    = config.ConfigKeywordTextUTF16
	KeywordMaxFile4GB   = config.ConfigKeywordMaxFile4GB
	KeywordMaxFile256TB = config.ConfigKeywordMaxFile256TB
)

// ExportOptions controls what an export writes.
type ExportOptions struct {
	// Data is DATA to include records or SCHEMA_ONLY to omit them.
	Data string `xml:"DataOption"`

	// Storage is BINARY (base64) or NORMALIZED (hex) for binary values.
	Storage string `xml:"StorageType"`

	// Metadata is METADATA or NO_METADATA.
	Metadata string `xml:"MetadataOption"`
}

// DefaultExportOptions returns DATA, BINARY, METADATA.
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Data: DataAll, Storage: StorageBinary, Metadata: MetadataInclude}
}

// normalise fills empty keywords with defaults and checks the rest.
func (o ExportOptions) normalise() (ExportOptions, error) {
	def := DefaultExportOptions()
	o.Data = keyword(o.Data, def.Data)
	o.Storage = keyword(o.Storage, def.Storage)
	o.Metadata = keyword(o.Metadata, def.Metadata)

	if o.Data != DataAll && o.Data != DataSchemaOnly {
		return o, errors.NotValidf("export data option %q", o.Data)
	}
	if o.Storage != StorageBinary && o.Storage != StorageNormalized {
		return o, errors.NotValidf("export storage type %q", o.Storage)
	}
	if o.Metadata != MetadataInclude && o.Metadata != MetadataExclude {
		return o, errors.NotValidf("export metadata option %q", o.Metadata)
	}
	return o, nil
}

// ImportOptions controls what an import loads.
type ImportOptions struct {
	// Type is DATA to load records or SCHEMA_ONLY for empty datasets.
	Type string

	// ConfigKeyword is the storage configuration of created datasets.
	// Empty means DEFAULTS.
	ConfigKeyword string
}

// DefaultImportOptions returns DATA, DEFAULTS.
func DefaultImportOptions() ImportOptions {
	return ImportOptions{Type: DataAll, ConfigKeyword: KeywordDefaults}
}

func (o ImportOptions) normalise() (ImportOptions, error) {
	o.Type = keyword(o.Type, DataAll)
	o.ConfigKeyword = keyword(o.ConfigKeyword, KeywordDefaults)

	if o.Type != DataAll && o.Type != DataSchemaOnly {
		return o, errors.NotValidf("import type %q", o.Type)
	}
	switch o.ConfigKeyword {
	case KeywordDefaults, KeywordTextUTF16, KeywordMaxFile4GB, KeywordMaxFile256TB:
	default:
		return o, errors.NotValidf("configuration keyword %q", o.ConfigKeyword)
	}
	return o, nil
}

func keyword(v, fallback string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}
