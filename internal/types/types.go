// =============================================================================
// Offline Geodatabase Converter - Shared Types
// =============================================================================
//
// This package contains the schema and record types shared by the modules
// that read and write geodatabase content. Keeping them here avoids import
// cycles between:
//   - geodatabase   (SQLite-backed containers)
//   - xmlworkspace  (XML workspace document codec)
//   - validation    (name checks)
//
// =============================================================================

package types

import "strings"

// =============================================================================
// FIELD TYPES
// =============================================================================

// FieldType is the geodatabase field type, spelled the way XML workspace
// documents spell it.
type FieldType string

const (
	FieldTypeOID          FieldType = "esriFieldTypeOID"
	FieldTypeSmallInteger FieldType = "esriFieldTypeSmallInteger"
	FieldTypeInteger      FieldType = "esriFieldTypeInteger"
	FieldTypeSingle       FieldType = "esriFieldTypeSingle"
	FieldTypeDouble       FieldType = "esriFieldTypeDouble"
	FieldTypeString       FieldType = "esriFieldTypeString"
	FieldTypeDate         FieldType = "esriFieldTypeDate"
	FieldTypeGeometry     FieldType = "esriFieldTypeGeometry"
	FieldTypeGlobalID     FieldType = "esriFieldTypeGlobalID"
	FieldTypeGUID         FieldType = "esriFieldTypeGUID"
	FieldTypeBlob         FieldType = "esriFieldTypeBlob"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeOID, FieldTypeSmallInteger, FieldTypeInteger,
		FieldTypeSingle, FieldTypeDouble, FieldTypeString, FieldTypeDate,
		FieldTypeGeometry, FieldTypeGlobalID, FieldTypeGUID, FieldTypeBlob:
		return true
	}
	return false
}

// IsInteger reports whether values of this type are stored as integers.
func (t FieldType) IsInteger() bool {
	return t == FieldTypeOID || t == FieldTypeSmallInteger || t == FieldTypeInteger
}

// IsFloat reports whether values of this type are stored as floats.
func (t FieldType) IsFloat() bool {
	return t == FieldTypeSingle || t == FieldTypeDouble
}

// IsBinary reports whether values of this type are raw bytes.
// Geometry is kept as an opaque shape buffer.
func (t FieldType) IsBinary() bool {
	return t == FieldTypeGeometry || t == FieldTypeBlob
}

// =============================================================================
// DATASET KINDS
// =============================================================================

// DatasetKind distinguishes plain tables from feature classes.
type DatasetKind string

const (
	DatasetTable        DatasetKind = "esriDTTable"
	DatasetFeatureClass DatasetKind = "esriDTFeatureClass"
)

// =============================================================================
// SCHEMA STRUCTURES
// =============================================================================

// Field describes a single column of a dataset.
type Field struct {
	// Name is the physical field name.
	Name string

	// Alias is the display name. Empty means "same as Name".
	Alias string

	// Type is the geodatabase field type.
	Type FieldType

	// Length is the maximum length for string fields. Zero for other types.
	Length int

	// Nullable reports whether the field accepts null values.
	Nullable bool
}

// Dataset describes a table or feature class.
type Dataset struct {
	// Name is the dataset name, unique (case-insensitive) in a geodatabase.
	Name string

	// Alias is the display name.
	Alias string

	// Kind is either a table or a feature class.
	Kind DatasetKind

	// ShapeType is the geometry type of a feature class
	// (e.g. "esriGeometryPolygon"). Empty for tables.
	ShapeType string

	// WKID is the well-known ID of the spatial reference. Zero for tables.
	WKID int

	// DSID is the dataset's unique identifier.
	DSID string

	// Metadata is the dataset's metadata document, kept as opaque XML text.
	Metadata string

	// Fields are the dataset's fields in physical order.
	Fields []Field
}

// FieldIndex returns the position of the named field, or -1.
// Field names are matched case-insensitively.
func (d *Dataset) FieldIndex(name string) int {
	for i, f := range d.Fields {
		if strings.EqualFold(f.Name, name) {
			return i
		}
	}
	return -1
}

// OIDField returns the object ID field, or nil when the dataset has none.
func (d *Dataset) OIDField() *Field {
	for i := range d.Fields {
		if d.Fields[i].Type == FieldTypeOID {
			return &d.Fields[i]
		}
	}
	return nil
}

// =============================================================================
// RECORDS
// =============================================================================

// Record is one row of a dataset. Values are positionally aligned with
// Dataset.Fields and hold one of: nil, int64, float64, string, []byte.
type Record []any
