// =============================================================================
// Offline Geodatabase Converter - Validation
// =============================================================================
//
// This module checks the resolved run parameters and the names of datasets
// and fields before they reach the geodatabase.
//
// VALIDATION STRATEGY:
//   - Parameter problems are collected, not thrown. The run reports them
//     through the message sink and carries on: a bad parameter makes the
//     corresponding stage fail on its own, and the stage result says why.
//   - Dataset and field names are validated by the geodatabase when a
//     dataset is created; an invalid name rejects the dataset.
//
// =============================================================================

package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/config"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels of a validation finding.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is "error" or "warning".
	Severity string

	// Field is the name of the parameter or schema element checked.
	Field string

	// Value is the value that failed validation.
	Value string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.Field,
		e.Message,
		e.Value,
	)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []*ValidationError) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// PARAMETER VALIDATION
// =============================================================================

// ValidateParameters checks the resolved run parameters.
//
// CHECKS:
//   - every value is set
//   - the output geodatabase name is a plain, valid container name
//   - the container name ends in .gdb and the document path in .xml
//   - the input geodatabase exists
func ValidateParameters(p config.Parameters) []*ValidationError {
	var findings []*ValidationError

	add := func(severity, field, value, message string) {
		findings = append(findings, &ValidationError{
			Severity: severity,
			Field:    field,
			Value:    value,
			Message:  message,
		})
	}

	for _, pair := range [][2]string{
		{"WorkingRoot", p.WorkingRoot},
		{"CollGdbOuput", p.ProcessingFolder},
		{"CollGdbName", p.OutputGDBName},
		{"CollInput", p.InputGeodatabase},
		{"CollXmlOutput", p.OutputXML},
	} {
		if strings.TrimSpace(pair[1]) == "" {
			add(SeverityError, pair[0], pair[1], "value is empty")
		}
	}

	if name := p.OutputGDBName; name != "" {
		if strings.ContainsAny(name, `/\`) {
			add(SeverityError, "CollGdbName", name, "must be a name, not a path")
		} else if msg := containerNameProblem(name); msg != "" {
			add(SeverityError, "CollGdbName", name, msg)
		}
		if !strings.EqualFold(filepath.Ext(name), ".gdb") {
			add(SeverityWarning, "CollGdbName", name, "has no .gdb extension; it will be appended")
		}
	}

	if p.OutputXML != "" && !strings.EqualFold(filepath.Ext(p.OutputXML), ".xml") {
		add(SeverityWarning, "CollXmlOutput", p.OutputXML, "has no .xml extension")
	}

	if p.InputGeodatabase != "" {
		if _, err := os.Stat(p.InputGeodatabase); os.IsNotExist(err) {
			add(SeverityWarning, "CollInput", p.InputGeodatabase, "does not exist")
		}
	}

	return findings
}

// containerNameProblem describes why name cannot name a geodatabase
// container, or returns "".
func containerNameProblem(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		return "name is empty"
	}
	for _, r := range base {
		if strings.ContainsRune(`:*?"<>|`, r) || unicode.IsControl(r) {
			return fmt.Sprintf("contains invalid character %q", r)
		}
	}
	return ""
}

// =============================================================================
// CATALOG NAME VALIDATION
// =============================================================================

// Name length limits of the geodatabase catalog.
const (
	MaxDatasetNameLength = 160
	MaxFieldNameLength   = 64
)

// reservedWords cannot be used as dataset or field names.
var reservedWords = map[string]bool{
	"ADD": true, "ALTER": true, "AND": true, "BETWEEN": true, "BY": true,
	"COLUMN": true, "CREATE": true, "DELETE": true, "DROP": true,
	"EXISTS": true, "FOR": true, "FROM": true, "GROUP": true, "IN": true,
	"INSERT": true, "INTO": true, "IS": true, "LIKE": true, "NOT": true,
	"NULL": true, "OR": true, "ORDER": true, "SELECT": true, "SET": true,
	"TABLE": true, "UPDATE": true, "VALUES": true, "WHERE": true,
}

// ValidateName checks a dataset or field name: it must start with a
// letter, contain only letters, digits and underscores, avoid SQL reserved
// words and stay within maxLen characters.
func ValidateName(name string, maxLen int) error {
	if name == "" {
		return errors.NotValidf("empty name")
	}
	if len(name) > maxLen {
		return errors.NotValidf("name %q longer than %d characters", name, maxLen)
	}
	for i, r := range name {
		if i == 0 && !unicode.IsLetter(r) {
			return errors.NotValidf("name %q (must start with a letter)", name)
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return errors.NotValidf("name %q (invalid character %q)", name, r)
		}
	}
	if strings.HasPrefix(strings.ToLower(name), "gdb_") {
		return errors.NotValidf("name %q (gdb_ prefix is reserved)", name)
	}
	if reservedWords[strings.ToUpper(name)] {
		return errors.NotValidf("name %q (reserved word)", name)
	}
	return nil
}

// ValidateDataset checks a dataset definition before it is created.
func ValidateDataset(ds *types.Dataset) error {
	if err := ValidateName(ds.Name, MaxDatasetNameLength); err != nil {
		return errors.Annotate(err, "dataset")
	}

	switch ds.Kind {
	case types.DatasetTable, types.DatasetFeatureClass:
	default:
		return errors.NotValidf("dataset %q kind %q", ds.Name, ds.Kind)
	}

	if len(ds.Fields) == 0 {
		return errors.NotValidf("dataset %q without fields", ds.Name)
	}

	oids, geometries := 0, 0
	for i, f := range ds.Fields {
		if err := ValidateName(f.Name, MaxFieldNameLength); err != nil {
			return errors.Annotatef(err, "dataset %q field", ds.Name)
		}
		if ds.FieldIndex(f.Name) != i {
			return errors.NotValidf("dataset %q duplicate field %q", ds.Name, f.Name)
		}

		if !f.Type.Valid() {
			return errors.NotValidf("dataset %q field %q type %q", ds.Name, f.Name, f.Type)
		}
		switch f.Type {
		case types.FieldTypeOID:
			oids++
		case types.FieldTypeGeometry:
			geometries++
		}
	}

	if oids > 1 {
		return errors.NotValidf("dataset %q with %d object ID fields", ds.Name, oids)
	}
	if ds.Kind == types.DatasetFeatureClass && geometries != 1 {
		return errors.NotValidf("feature class %q with %d geometry fields", ds.Name, geometries)
	}
	if ds.Kind == types.DatasetTable && geometries != 0 {
		return errors.NotValidf("table %q with a geometry field", ds.Name)
	}
	return nil
}
