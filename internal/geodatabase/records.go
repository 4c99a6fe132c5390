package geodatabase

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
)

// Insert appends records to a dataset in one transaction. Records are
// positionally aligned with the dataset's fields. A nil object ID lets the
// geodatabase assign one; a nil GlobalID is generated.
func (g *Geodatabase) Insert(name string, records []types.Record) error {
	ds, err := g.Dataset(name)
	if err != nil {
		return errors.Trace(err)
	}
	if len(records) == 0 {
		return nil
	}

	columns := make([]string, len(ds.Fields))
	marks := make([]string, len(ds.Fields))
	for i, f := range ds.Fields {
		columns[i] = quoteIdent(f.Name)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(ds.Name), strings.Join(columns, ", "), strings.Join(marks, ", "))

	tx, err := g.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	prepared, err := tx.Prepare(stmt)
	if err != nil {
		return errors.Annotatef(err, "preparing insert into %q", ds.Name)
	}
	defer prepared.Close()

	for n, record := range records {
		if len(record) != len(ds.Fields) {
			return errors.NotValidf("record %d of %q has %d values, want %d", n, ds.Name, len(record), len(ds.Fields))
		}
		args := make([]any, len(record))
		for i, f := range ds.Fields {
			v, err := coerce(f, record[i])
			if err != nil {
				return errors.Annotatef(err, "record %d of %q", n, ds.Name)
			}
			args[i] = v
		}
		if _, err := prepared.Exec(args...); err != nil {
			return errors.Annotatef(err, "inserting record %d into %q", n, ds.Name)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Trace(err)
	}
	logger.Tracef("inserted %d records into %q", len(records), ds.Name)
	return nil
}

// Records returns every record of a dataset, ordered by object ID when the
// dataset has one.
func (g *Geodatabase) Records(name string) ([]types.Record, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return nil, errors.Trace(err)
	}

	columns := make([]string, len(ds.Fields))
	for i, f := range ds.Fields {
		columns[i] = quoteIdent(f.Name)
	}
	order := "rowid"
	if oid := ds.OIDField(); oid != nil {
		order = quoteIdent(oid.Name)
	}

	rows, err := g.db.Query(fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(columns, ", "), quoteIdent(ds.Name), order))
	if err != nil {
		return nil, errors.Annotatef(err, "reading records of %q", ds.Name)
	}
	defer rows.Close()

	var records []types.Record
	for rows.Next() {
		raw := make([]any, len(ds.Fields))
		ptrs := make([]any, len(ds.Fields))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Trace(err)
		}
		record := make(types.Record, len(raw))
		for i, f := range ds.Fields {
			record[i] = normalise(f.Type, raw[i])
		}
		records = append(records, record)
	}
	return records, errors.Trace(rows.Err())
}

// Count returns the number of records in a dataset.
func (g *Geodatabase) Count(name string) (int, error) {
	ds, err := g.Dataset(name)
	if err != nil {
		return 0, errors.Trace(err)
	}
	var n int
	if err := g.db.QueryRow("SELECT COUNT(*) FROM " + quoteIdent(ds.Name)).Scan(&n); err != nil {
		return 0, errors.Annotatef(err, "counting records of %q", ds.Name)
	}
	return n, nil
}

// =============================================================================
// VALUE CONVERSION
// =============================================================================

// coerce converts a Go value to the storage value of a field.
func coerce(f types.Field, v any) (any, error) {
	if v == nil {
		switch {
		case f.Type == types.FieldTypeOID:
			return nil, nil
		case f.Type == types.FieldTypeGlobalID:
			return newGUID(), nil
		case !f.Nullable:
			return nil, errors.NotValidf("null for non-nullable field %q", f.Name)
		}
		return nil, nil
	}

	switch {
	case f.Type.IsInteger():
		return toInt(f, v)
	case f.Type.IsFloat():
		return toFloat(f, v)
	case f.Type.IsBinary():
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
	case f.Type == types.FieldTypeDate:
		switch d := v.(type) {
		case time.Time:
			return d.UTC().Format(time.RFC3339), nil
		case string:
			return d, nil
		}
	default:
		s, ok := v.(string)
		if !ok {
			s = fmt.Sprint(v)
		}
		if f.Type == types.FieldTypeString && f.Length > 0 && len([]rune(s)) > f.Length {
			return nil, errors.NotValidf("value of %d characters for field %q of length %d", len([]rune(s)), f.Name, f.Length)
		}
		return s, nil
	}
	return nil, errors.NotValidf("%T value for %s field %q", v, f.Type, f.Name)
}

func toInt(f types.Field, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n == math.Trunc(n) {
			return int64(n), nil
		}
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err == nil {
			return i, nil
		}
	}
	return 0, errors.NotValidf("value %v for integer field %q", v, f.Name)
}

func toFloat(f types.Field, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return x, nil
		}
	}
	return 0, errors.NotValidf("value %v for floating point field %q", v, f.Name)
}

// normalise maps a scanned SQLite value to the record value of a field type.
func normalise(t types.FieldType, v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		if t.IsBinary() {
			return append([]byte(nil), x...)
		}
		return string(x)
	case string:
		if t.IsBinary() {
			return []byte(x)
		}
		return x
	case int64:
		if t.IsFloat() {
			return float64(x)
		}
		return x
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	}
	return v
}
