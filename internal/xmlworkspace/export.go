package xmlworkspace

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/ginjaninja78/offline-gdb-converter/internal/geodatabase"
	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

var logger = loggo.GetLogger("offlinegdb.xmlworkspace")

// Summary counts what an export or import moved.
type Summary struct {
	Datasets int
	Records  int
}

// =============================================================================
// EXPORT
// =============================================================================

// Export writes the contents of gdb to an XML workspace document at xmlPath.
//
// PARAMETERS:
//   - gdb: The open source geodatabase.
//   - xmlPath: The output document. Its folder must exist.
//   - options: Data, storage and metadata keywords. Empty keywords take
//     the defaults DATA, BINARY and METADATA.
//   - overwrite: Replace an existing document.
//
// RETURNS:
//   - The number of datasets and records written.
//   - AlreadyExists when xmlPath exists and overwrite is false.
//
// The document is written to a temporary file in the same folder and
// renamed into place, so a failed export never leaves a partial document.
func Export(ctx context.Context, gdb *geodatabase.Geodatabase, xmlPath string, options ExportOptions, overwrite bool) (Summary, error) {
	var summary Summary

	options, err := options.normalise()
	if err != nil {
		return summary, errors.Trace(err)
	}

	dir := filepath.Dir(xmlPath)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return summary, errors.NotFoundf("output folder %q", dir)
	}
	if _, err := os.Stat(xmlPath); err == nil && !overwrite {
		return summary, errors.AlreadyExistsf("XML workspace document %q", xmlPath)
	}

	doc, summary, err := build(ctx, gdb, options)
	if err != nil {
		return summary, errors.Trace(err)
	}

	tmp, err := os.CreateTemp(dir, ".offlinegdb-*.xml")
	if err != nil {
		return summary, errors.Annotatef(err, "creating temporary document in %q", dir)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, doc); err != nil {
		_ = tmp.Close()
		return summary, errors.Annotatef(err, "writing %q", xmlPath)
	}
	if err := tmp.Close(); err != nil {
		return summary, errors.Trace(err)
	}
	if err := os.Rename(tmp.Name(), xmlPath); err != nil {
		return summary, errors.Annotatef(err, "moving document to %q", xmlPath)
	}

	logger.Infof("exported %d datasets (%d records) from %q to %q", summary.Datasets, summary.Records, gdb.Path(), xmlPath)
	return summary, nil
}

// build assembles the document for every dataset of gdb.
func build(ctx context.Context, gdb *geodatabase.Geodatabase, options ExportOptions) (*Document, Summary, error) {
	var summary Summary

	datasets, err := gdb.Datasets()
	if err != nil {
		return nil, summary, errors.Trace(err)
	}

	doc := &Document{
		Definition: Definition{
			WorkspaceType:   workspaceType,
			Version:         documentVersion,
			SourceWorkspace: gdb.ID(),
			ExportTime:      time.Now().UTC().Format(time.RFC3339),
			Options:         options,
		},
	}
	if options.Data == DataAll {
		doc.Data = &Data{}
	}

	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return nil, summary, errors.Trace(err)
		}

		doc.Definition.Datasets = append(doc.Definition.Datasets, definitionOf(ds, options))
		summary.Datasets++

		if doc.Data == nil {
			continue
		}
		records, err := gdb.Records(ds.Name)
		if err != nil {
			return nil, summary, errors.Trace(err)
		}
		data := DatasetData{DatasetName: ds.Name, DatasetType: string(ds.Kind)}
		for _, record := range records {
			data.Records = append(data.Records, encodeRecord(record, options.Storage))
		}
		doc.Data.Datasets = append(doc.Data.Datasets, data)
		summary.Records += len(records)
		logger.Debugf("exported %d records of %q", len(records), ds.Name)
	}
	return doc, summary, nil
}

func definitionOf(ds *types.Dataset, options ExportOptions) DataElement {
	prefix := "/T="
	if ds.Kind == types.DatasetFeatureClass {
		prefix = "/FC="
	}
	el := DataElement{
		CatalogPath: prefix + ds.Name,
		Name:        ds.Name,
		AliasName:   ds.Alias,
		DatasetType: string(ds.Kind),
		DSID:        ds.DSID,
		ShapeType:   ds.ShapeType,
		WKID:        ds.WKID,
	}
	for _, f := range ds.Fields {
		el.Fields = append(el.Fields, FieldElement{
			Name:       f.Name,
			Type:       string(f.Type),
			IsNullable: f.Nullable,
			Length:     f.Length,
			AliasName:  f.Alias,
		})
	}
	if options.Metadata == MetadataInclude && ds.Metadata != "" {
		el.Metadata = &Metadata{XMLDoc: ds.Metadata}
	}
	return el
}

func encodeRecord(record types.Record, storage string) RecordElement {
	el := RecordElement{Values: make([]ValueElement, len(record))}
	for i, v := range record {
		el.Values[i] = encodeValue(v, storage)
	}
	return el
}

func encodeValue(v any, storage string) ValueElement {
	switch x := v.(type) {
	case nil:
		return ValueElement{Null: true}
	case []byte:
		return encodeBytes(x, storage)
	case int64:
		return ValueElement{Text: strconv.FormatInt(x, 10)}
	case float64:
		return ValueElement{Text: strconv.FormatFloat(x, 'g', -1, 64)}
	case string:
		// Character data cannot carry every string; the encoder would
		// silently replace such characters with U+FFFD.
		if !isCharData(x) {
			return encodeBytes([]byte(x), storage)
		}
		return ValueElement{Text: x}
	}
	return ValueElement{Text: fmt.Sprint(v)}
}

func encodeBytes(b []byte, storage string) ValueElement {
	if storage == StorageNormalized {
		return ValueElement{Encoding: "hex", Text: hex.EncodeToString(b)}
	}
	return ValueElement{Encoding: "base64", Text: base64.StdEncoding.EncodeToString(b)}
}

// isCharData reports whether s is valid UTF-8 made only of runes in the XML
// Char production.
func isCharData(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}
