// =============================================================================
// Offline Geodatabase Converter - Geodatabase Containers
// =============================================================================
//
// This module implements geodatabase containers on top of SQLite.
//
// CONTAINER FORMATS:
//   - Mobile geodatabase: a single SQLite file (e.g. Input.geodatabase), the
//     format field collection apps sync down for offline use.
//   - File geodatabase:   a directory whose name ends in .gdb, holding the
//     SQLite catalog file gdb.sqlite.
//   Both share the same catalog layout, so every operation below works on
//   either kind.
//
// CATALOG LAYOUT:
//   gdb_workspace  one row: workspace ID, kind, creation time
//   gdb_items      one row per dataset (table or feature class)
//   gdb_fields     one row per dataset field, in physical order
//   "<dataset>"    one SQLite table per dataset holding its records
//
// =============================================================================

package geodatabase

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ginjaninja78/offline-gdb-converter/internal/types"
	"github.com/ginjaninja78/offline-gdb-converter/internal/validation"
)

var logger = loggo.GetLogger("offlinegdb.geodatabase")

// Kind is the container format of a geodatabase.
type Kind string

const (
	KindFile   Kind = "file"
	KindMobile Kind = "mobile"
)

const (
	// FileSuffix is the directory suffix of a file geodatabase.
	FileSuffix = ".gdb"

	// catalogFile is the SQLite file inside a file geodatabase directory.
	catalogFile = "gdb.sqlite"
)

const catalogSchema = `
CREATE TABLE gdb_workspace (
	id      TEXT NOT NULL,
	kind    TEXT NOT NULL,
	created TEXT NOT NULL
);
CREATE TABLE gdb_items (
	name           TEXT NOT NULL PRIMARY KEY COLLATE NOCASE,
	alias          TEXT NOT NULL DEFAULT '',
	kind           TEXT NOT NULL,
	shape_type     TEXT NOT NULL DEFAULT '',
	wkid           INTEGER NOT NULL DEFAULT 0,
	dsid           TEXT NOT NULL,
	metadata       TEXT NOT NULL DEFAULT '',
	config_keyword TEXT NOT NULL DEFAULT ''
);
CREATE TABLE gdb_fields (
	item     TEXT NOT NULL COLLATE NOCASE,
	position INTEGER NOT NULL,
	name     TEXT NOT NULL,
	alias    TEXT NOT NULL DEFAULT '',
	type     TEXT NOT NULL,
	length   INTEGER NOT NULL DEFAULT 0,
	nullable INTEGER NOT NULL,
	PRIMARY KEY (item, position)
);
`

// Geodatabase is an open geodatabase container.
type Geodatabase struct {
	db   *sql.DB
	path string
	kind Kind
	id   string
}

// =============================================================================
// CREATE / OPEN
// =============================================================================

// CreateFile creates an empty file geodatabase named name inside folder and
// returns it open. The .gdb suffix is appended when name lacks it.
//
// FAILURE MODES:
//   - folder does not exist:                      NotFound
//   - container exists and overwrite is false:    AlreadyExists
//   - something that is not a geodatabase is in
//     the way:                                    NotValid (never removed)
func CreateFile(folder, name string, overwrite bool) (*Geodatabase, error) {
	if name == "" {
		return nil, errors.NotValidf("empty geodatabase name")
	}
	if !strings.EqualFold(filepath.Ext(name), FileSuffix) {
		name += FileSuffix
	}

	info, err := os.Stat(folder)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("output folder %q", folder)
	} else if err != nil {
		return nil, errors.Trace(err)
	} else if !info.IsDir() {
		return nil, errors.NotValidf("output folder %q (not a directory)", folder)
	}

	path := filepath.Join(folder, name)
	if err := clearExisting(path, overwrite); err != nil {
		return nil, errors.Trace(err)
	}

	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, errors.Annotatef(err, "creating %q", path)
	}

	gdb, err := initialise(path, filepath.Join(path, catalogFile), KindFile)
	if err != nil {
		_ = os.RemoveAll(path)
		return nil, errors.Trace(err)
	}
	return gdb, nil
}

// CreateMobile creates an empty single-file mobile geodatabase at path and
// returns it open.
func CreateMobile(path string, overwrite bool) (*Geodatabase, error) {
	if err := clearExisting(path, overwrite); err != nil {
		return nil, errors.Trace(err)
	}

	gdb, err := initialise(path, path, KindMobile)
	if err != nil {
		_ = os.Remove(path)
		return nil, errors.Trace(err)
	}
	return gdb, nil
}

// clearExisting removes a previous geodatabase at path when overwriting.
// Anything that does not look like a geodatabase is left alone.
func clearExisting(path string, overwrite bool) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return errors.Trace(err)
	}

	if !overwrite {
		return errors.AlreadyExistsf("geodatabase %q", path)
	}

	catalog := path
	if info.IsDir() {
		catalog = filepath.Join(path, catalogFile)
	}
	if !isCatalog(catalog) {
		return errors.NotValidf("%q exists and is not a geodatabase, refusing to overwrite", path)
	}

	logger.Debugf("overwriting existing geodatabase %q", path)
	return errors.Annotatef(os.RemoveAll(path), "removing %q", path)
}

// Open opens an existing geodatabase. A directory is opened as a file
// geodatabase, a regular file as a mobile geodatabase.
func Open(path string) (*Geodatabase, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("geodatabase %q", path)
	} else if err != nil {
		return nil, errors.Trace(err)
	}

	kind, catalog := KindMobile, path
	if info.IsDir() {
		kind, catalog = KindFile, filepath.Join(path, catalogFile)
	}
	if !isCatalog(catalog) {
		return nil, errors.NotValidf("%q is not a geodatabase", path)
	}

	db, err := openDB(catalog)
	if err != nil {
		return nil, errors.Trace(err)
	}

	gdb := &Geodatabase{db: db, path: path, kind: kind}
	if err := db.QueryRow(`SELECT id FROM gdb_workspace LIMIT 1`).Scan(&gdb.id); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "reading workspace of %q", path)
	}
	return gdb, nil
}

func openDB(catalog string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", catalog+"?_busy_timeout=5000")
	if err != nil {
		return nil, errors.Annotatef(err, "opening %q", catalog)
	}
	// One connection keeps every statement on the same SQLite handle.
	db.SetMaxOpenConns(1)
	return db, nil
}

// isCatalog reports whether file is a SQLite database with a geodatabase
// catalog. It never creates the file.
func isCatalog(file string) bool {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return false
	}
	db, err := sql.Open("sqlite3", "file:"+filepath.ToSlash(file)+"?mode=ro")
	if err != nil {
		return false
	}
	defer db.Close()

	var n int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'gdb_items'`).Scan(&n)
	return err == nil && n == 1
}

func initialise(path, catalog string, kind Kind) (*Geodatabase, error) {
	db, err := openDB(catalog)
	if err != nil {
		return nil, errors.Trace(err)
	}

	gdb := &Geodatabase{db: db, path: path, kind: kind, id: newGUID()}

	if _, err := db.Exec(catalogSchema); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "writing catalog of %q", path)
	}
	if _, err := db.Exec(
		`INSERT INTO gdb_workspace (id, kind, created) VALUES (?, ?, ?)`,
		gdb.id, string(kind), time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		_ = db.Close()
		return nil, errors.Annotatef(err, "registering workspace of %q", path)
	}

	logger.Debugf("created %s geodatabase %q (%s)", kind, path, gdb.id)
	return gdb, nil
}

// Close releases the SQLite handle.
func (g *Geodatabase) Close() error {
	return errors.Trace(g.db.Close())
}

// Path returns the container path.
func (g *Geodatabase) Path() string { return g.path }

// Kind returns the container format.
func (g *Geodatabase) Kind() Kind { return g.kind }

// ID returns the workspace identifier.
func (g *Geodatabase) ID() string { return g.id }

// =============================================================================
// CATALOG
// =============================================================================

// Datasets returns every dataset definition, ordered by name.
func (g *Geodatabase) Datasets() ([]*types.Dataset, error) {
	rows, err := g.db.Query(`SELECT name FROM gdb_items ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, errors.Annotate(err, "listing datasets")
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, errors.Trace(err)
		}
		names = append(names, name)
	}
	if err := rows.Close(); err != nil {
		return nil, errors.Trace(err)
	}

	datasets := make([]*types.Dataset, 0, len(names))
	for _, name := range names {
		ds, err := g.Dataset(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// Dataset returns the definition of the named dataset, matched
// case-insensitively.
func (g *Geodatabase) Dataset(name string) (*types.Dataset, error) {
	ds := &types.Dataset{}
	var kind string
	err := g.db.QueryRow(
		`SELECT name, alias, kind, shape_type, wkid, dsid, metadata FROM gdb_items WHERE name = ?`, name,
	).Scan(&ds.Name, &ds.Alias, &kind, &ds.ShapeType, &ds.WKID, &ds.DSID, &ds.Metadata)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("dataset %q", name)
	} else if err != nil {
		return nil, errors.Annotatef(err, "reading dataset %q", name)
	}
	ds.Kind = types.DatasetKind(kind)

	rows, err := g.db.Query(
		`SELECT name, alias, type, length, nullable FROM gdb_fields WHERE item = ? ORDER BY position`, ds.Name,
	)
	if err != nil {
		return nil, errors.Annotatef(err, "reading fields of %q", name)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			f     types.Field
			ftype string
		)
		if err := rows.Scan(&f.Name, &f.Alias, &ftype, &f.Length, &f.Nullable); err != nil {
			return nil, errors.Trace(err)
		}
		f.Type = types.FieldType(ftype)
		ds.Fields = append(ds.Fields, f)
	}
	return ds, errors.Trace(rows.Err())
}

// ConfigKeyword returns the configuration keyword the named dataset was
// created with.
func (g *Geodatabase) ConfigKeyword(name string) (string, error) {
	var keyword string
	err := g.db.QueryRow(`SELECT config_keyword FROM gdb_items WHERE name = ?`, name).Scan(&keyword)
	if err == sql.ErrNoRows {
		return "", errors.NotFoundf("dataset %q", name)
	} else if err != nil {
		return "", errors.Annotatef(err, "reading configuration keyword of %q", name)
	}
	return keyword, nil
}

// Exists reports whether a dataset with the name is present.
func (g *Geodatabase) Exists(name string) (bool, error) {
	var n int
	if err := g.db.QueryRow(`SELECT COUNT(*) FROM gdb_items WHERE name = ?`, name).Scan(&n); err != nil {
		return false, errors.Trace(err)
	}
	return n > 0, nil
}

// CreateDataset registers a dataset and creates its record table. A DSID is
// assigned when the definition has none. The stored definition is returned.
func (g *Geodatabase) CreateDataset(def *types.Dataset, configKeyword string) (*types.Dataset, error) {
	if err := validation.ValidateDataset(def); err != nil {
		return nil, errors.Trace(err)
	}

	exists, err := g.Exists(def.Name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if exists {
		return nil, errors.AlreadyExistsf("dataset %q", def.Name)
	}

	ds := *def
	ds.Fields = append([]types.Field(nil), def.Fields...)
	if ds.DSID == "" {
		ds.DSID = newGUID()
	}

	tx, err := g.db.Begin()
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO gdb_items (name, alias, kind, shape_type, wkid, dsid, metadata, config_keyword)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ds.Name, ds.Alias, string(ds.Kind), ds.ShapeType, ds.WKID, ds.DSID, ds.Metadata, configKeyword,
	); err != nil {
		return nil, errors.Annotatef(err, "registering dataset %q", ds.Name)
	}

	for i, f := range ds.Fields {
		if _, err := tx.Exec(
			`INSERT INTO gdb_fields (item, position, name, alias, type, length, nullable) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			ds.Name, i, f.Name, f.Alias, string(f.Type), f.Length, f.Nullable,
		); err != nil {
			return nil, errors.Annotatef(err, "registering field %q of %q", f.Name, ds.Name)
		}
	}

	if _, err := tx.Exec(createTableSQL(&ds)); err != nil {
		return nil, errors.Annotatef(err, "creating table for %q", ds.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Trace(err)
	}

	logger.Debugf("created dataset %q (%s, %d fields) in %q", ds.Name, ds.Kind, len(ds.Fields), g.path)
	return &ds, nil
}

// DropDataset removes a dataset with all its records.
func (g *Geodatabase) DropDataset(name string) error {
	ds, err := g.Dataset(name)
	if err != nil {
		return errors.Trace(err)
	}

	tx, err := g.db.Begin()
	if err != nil {
		return errors.Trace(err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DROP TABLE IF EXISTS ` + quoteIdent(ds.Name),
		`DELETE FROM gdb_fields WHERE item = ?`,
		`DELETE FROM gdb_items WHERE name = ?`,
	} {
		var args []any
		if strings.Contains(stmt, "?") {
			args = append(args, ds.Name)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			return errors.Annotatef(err, "dropping dataset %q", ds.Name)
		}
	}

	logger.Debugf("dropped dataset %q from %q", ds.Name, g.path)
	return errors.Trace(tx.Commit())
}

// createTableSQL renders the record table of a dataset.
func createTableSQL(ds *types.Dataset) string {
	columns := make([]string, len(ds.Fields))
	for i, f := range ds.Fields {
		col := fmt.Sprintf("%s %s", quoteIdent(f.Name), columnType(f.Type))
		switch {
		case f.Type == types.FieldTypeOID:
			col += " PRIMARY KEY"
		case !f.Nullable:
			col += " NOT NULL"
		}
		columns[i] = col
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(ds.Name), strings.Join(columns, ", "))
}

// columnType maps a field type to its SQLite column type.
func columnType(t types.FieldType) string {
	switch {
	case t.IsInteger():
		return "INTEGER"
	case t.IsFloat():
		return "REAL"
	case t.IsBinary():
		return "BLOB"
	default:
		return "TEXT"
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// newGUID returns a registry-formatted GUID, e.g.
// {0E3B6B2A-9C1E-4F55-A2A1-3C3E2F4B1D00}.
func newGUID() string {
	return "{" + strings.ToUpper(uuid.New().String()) + "}"
}
