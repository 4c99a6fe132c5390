package xmlworkspace

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"strconv"

	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

// =============================================================================
// IMPORT
// =============================================================================

// Import loads the XML workspace document at xmlPath into gdb.
//
// PARAMETERS:
//   - gdb: The open target geodatabase.
//   - xmlPath: The document to read.
//   - options: DATA or SCHEMA_ONLY, and the configuration keyword for
//     created datasets.
//   - overwrite: Replace datasets that already exist in gdb.
//
// RETURNS:
//   - The number of datasets created and records loaded.
//   - AlreadyExists when a dataset exists and overwrite is false.
//
// IMPORT PROCESS:
//   1. Read and decode the document
//   2. For each dataset definition:
//      a. Drop the existing dataset when overwriting
//      b. Create the dataset with the configuration keyword
//      c. Decode and insert its records (DATA only)
//
// Datasets imported before a failure stay in gdb.
func Import(ctx context.Context, gdb *geodatabase.Geodatabase, xmlPath string, options ImportOptions, overwrite bool) (Summary, error) {
	var summary Summary

	options, err := options.normalise()
	if err != nil {
		return summary, errors.Trace(err)
	}

	doc, err := ReadFile(xmlPath)
	if err != nil {
		return summary, errors.Trace(err)
	}
	if err := checkData(doc); err != nil {
		return summary, errors.Trace(err)
	}

	for _, el := range doc.Definition.Datasets {
		if err := ctx.Err(); err != nil {
			return summary, errors.Trace(err)
		}

		def, err := datasetOf(el)
		if err != nil {
			return summary, errors.Trace(err)
		}

		exists, err := gdb.Exists(def.Name)
		if err != nil {
			return summary, errors.Trace(err)
		}
		if exists {
			if !overwrite {
				return summary, errors.AlreadyExistsf("dataset %q in %q", def.Name, gdb.Path())
			}
			if err := gdb.DropDataset(def.Name); err != nil {
				return summary, errors.Trace(err)
			}
			logger.Debugf("replacing dataset %q", def.Name)
		}

		ds, err := gdb.CreateDataset(def, options.ConfigKeyword)
		if err != nil {
			return summary, errors.Annotatef(err, "importing %q", def.Name)
		}
		summary.Datasets++

		data := doc.dataFor(el.Name)
		if options.Type != DataAll || data == nil {
			continue
		}
		records, err := decodeRecords(ds, data)
		if err != nil {
			return summary, errors.Trace(err)
		}
		if err := gdb.Insert(ds.Name, records); err != nil {
			return summary, errors.Annotatef(err, "loading records of %q", ds.Name)
		}
		summary.Records += len(records)
	}

	logger.Infof("imported %d datasets (%d records) from %q into %q", summary.Datasets, summary.Records, xmlPath, gdb.Path())
	return summary, nil
}

// checkData rejects record sections for datasets the document never defines.
func checkData(doc *Document) error {
	if doc.Data == nil {
		return nil
	}
	defined := make(map[string]bool, len(doc.Definition.Datasets))
	for _, el := range doc.Definition.Datasets {
		defined[el.Name] = true
	}
	for _, data := range doc.Data.Datasets {
		if !defined[data.DatasetName] {
			return errors.NotValidf("records for undefined dataset %q", data.DatasetName)
		}
	}
	return nil
}

func datasetOf(el DataElement) (*types.Dataset, error) {
	ds := &types.Dataset{
		Name:      el.Name,
		Alias:     el.AliasName,
		Kind:      types.DatasetKind(el.DatasetType),
		ShapeType: el.ShapeType,
		WKID:      el.WKID,
		DSID:      el.DSID,
	}
	if el.Metadata != nil {
		ds.Metadata = el.Metadata.XMLDoc
	}
	for _, f := range el.Fields {
		ds.Fields = append(ds.Fields, types.Field{
			Name:     f.Name,
			Alias:    f.AliasName,
			Type:     types.FieldType(f.Type),
			Length:   f.Length,
			Nullable: f.IsNullable,
		})
	}
	if ds.Name == "" {
		return nil, errors.NotValidf("dataset definition without a name")
	}
	return ds, nil
}

func decodeRecords(ds *types.Dataset, data *DatasetData) ([]types.Record, error) {
	records := make([]types.Record, 0, len(data.Records))
	for n, el := range data.Records {
		if len(el.Values) != len(ds.Fields) {
			return nil, errors.NotValidf("record %d of %q has %d values, want %d", n, ds.Name, len(el.Values), len(ds.Fields))
		}
		record := make(types.Record, len(el.Values))
		for i, v := range el.Values {
			value, err := decodeValue(ds.Fields[i], v)
			if err != nil {
				return nil, errors.Annotatef(err, "record %d of %q", n, ds.Name)
			}
			record[i] = value
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeValue(f types.Field, v ValueElement) (any, error) {
	if v.Null {
		return nil, nil
	}

	text := v.Text
	if v.Encoding != "" {
		var (
			b   []byte
			err error
		)
		switch v.Encoding {
		case "base64":
			b, err = base64.StdEncoding.DecodeString(v.Text)
		case "hex":
			b, err = hex.DecodeString(v.Text)
		default:
			return nil, errors.NotSupportedf("value encoding %q", v.Encoding)
		}
		if err != nil {
			return nil, errors.Annotatef(err, "field %q", f.Name)
		}
		if f.Type.IsBinary() {
			return b, nil
		}
		// Text that could not travel as character data.
		text = string(b)
	}

	switch {
	case f.Type.IsInteger():
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, errors.NotValidf("integer %q for field %q", text, f.Name)
		}
		return i, nil
	case f.Type.IsFloat():
		x, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.NotValidf("number %q for field %q", text, f.Name)
		}
		return x, nil
	case f.Type.IsBinary():
		return []byte(text), nil
	}
	return text, nil
}
