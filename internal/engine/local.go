package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/kallahq/kalla/internal/registry"
	"github.com/kallahq/kalla/internal/scan"
)

// LocalEngine is the embedded, in-process columnar substrate of §1's
// "assumed pre-existing execution engine": one DuckDB connection per job,
// eagerly materializing every registered source as a DuckDB table and
// running match_sql against it unmodified.
type LocalEngine struct {
	db *sql.DB
}

// NewLocalEngine opens a private, in-memory DuckDB database.
func NewLocalEngine() (*LocalEngine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("op=engine.local.new: %w", err)
	}
	return &LocalEngine{db: db}, nil
}

func (e *LocalEngine) Mode() Mode { return ModeLocal }

// Probe always succeeds for an already-open local engine; local mode is the
// fallback of last resort and has nothing external to fail.
func (e *LocalEngine) Probe(ctx context.Context) error {
	var one int
	return e.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

func (e *LocalEngine) Close() error { return e.db.Close() }

// Query runs sql against the embedded DuckDB database and returns the full
// result as a single-batch streaming reader. Column types are derived from
// DuckDB's own driver-reported column types via the same SQL-type-name
// table C1 uses for relational introspection, since DuckDB's
// database/sql ColumnType.DatabaseTypeName() reports SQL-style names.
func (e *LocalEngine) Query(ctx context.Context, querySQL string) (array.RecordReader, error) {
	rows, err := e.db.QueryContext(ctx, querySQL)
	if err != nil {
		return nil, fmt.Errorf("op=engine.local.Query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("op=engine.local.Query: column types: %w", err)
	}
	cols := make([]scan.Column, len(colTypes))
	for i, ct := range colTypes {
		nullable, _ := ct.Nullable()
		cols[i] = scan.Column{Name: ct.Name(), Type: scan.SQLTypeToArrow(ct.DatabaseTypeName()), Nullable: nullable}
	}
	schema := scan.BuildArrowSchema(cols)

	rec, err := RowsToRecord(rows, schema)
	if err != nil {
		return nil, err
	}
	reader, err := array.NewRecordReader(schema, []arrow.Record{rec})
	if err != nil {
		return nil, fmt.Errorf("op=engine.local.Query: %w", err)
	}
	return reader, nil
}

// RegisterTable materializes reg under alias, either by eagerly scanning it
// into memory and inserting the rows (relational / object-store sources),
// or by delegating straight to DuckDB's own file readers (local file
// sources, per §4.3's "listing delegated to the engine's builtin reader").
func (e *LocalEngine) RegisterTable(ctx context.Context, alias string, reg *registry.Registration) (int64, error) {
	switch reg.Kind {
	case registry.KindRelational:
		return e.materialize(ctx, alias, reg.Relational)
	case registry.KindObjectStoreCSV:
		return e.materialize(ctx, alias, reg.ObjectStore)
	case registry.KindLocalCSV:
		return e.registerBuiltin(ctx, alias, "read_csv_auto", reg.LocalPath)
	case registry.KindLocalColumnar:
		return e.registerBuiltin(ctx, alias, "read_parquet", reg.LocalPath)
	default:
		return 0, fmt.Errorf("op=engine.local.RegisterTable: unsupported source kind %v", reg.Kind)
	}
}

func (e *LocalEngine) registerBuiltin(ctx context.Context, alias, reader, path string) (int64, error) {
	createSQL := fmt.Sprintf(`CREATE TABLE %s AS SELECT * FROM %s(%s)`, scan.QuoteIdent(alias), reader, quoteLiteral(path))
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return 0, fmt.Errorf("op=engine.local.registerBuiltin: %w", err)
	}
	var count int64
	row := e.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, scan.QuoteIdent(alias)))
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("op=engine.local.registerBuiltin: count: %w", err)
	}
	return count, nil
}

// materialize scans t in-process and re-inserts every row into a freshly
// created DuckDB table, via parameterized INSERTs rather than the
// Appender API (the slower but unambiguous path).
func (e *LocalEngine) materialize(ctx context.Context, alias string, t scan.TableProvider) (int64, error) {
	schema := t.Schema()
	if err := e.createTable(ctx, alias, schema); err != nil {
		return 0, err
	}

	records, err := t.Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("op=engine.local.materialize: scan: %w", err)
	}
	defer func() {
		for _, r := range records {
			r.Release()
		}
	}()

	insertSQL := buildInsertSQL(alias, schema)
	stmt, err := e.db.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("op=engine.local.materialize: prepare: %w", err)
	}
	defer stmt.Close()

	var total int64
	for _, rec := range records {
		n, err := insertRecord(ctx, stmt, rec)
		if err != nil {
			return 0, fmt.Errorf("op=engine.local.materialize: insert: %w", err)
		}
		total += n
	}
	return total, nil
}

// appendBatch inserts a single already-executed record under alias,
// creating the table first if this is its first batch. Used by the
// executor daemon's Flight service, which receives leaf operators one
// partition at a time rather than a whole TableProvider.
func (e *LocalEngine) appendBatch(ctx context.Context, alias string, rec arrow.Record) (int64, error) {
	if !e.tableExists(ctx, alias) {
		if err := e.createTable(ctx, alias, rec.Schema()); err != nil {
			return 0, err
		}
	}
	stmt, err := e.db.PrepareContext(ctx, buildInsertSQL(alias, rec.Schema()))
	if err != nil {
		return 0, fmt.Errorf("op=engine.local.appendBatch: prepare: %w", err)
	}
	defer stmt.Close()
	return insertRecord(ctx, stmt, rec)
}

func (e *LocalEngine) tableExists(ctx context.Context, alias string) bool {
	row := e.db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.tables WHERE table_name = ?`, alias)
	var one int
	return row.Scan(&one) == nil
}

func (e *LocalEngine) createTable(ctx context.Context, alias string, schema *arrow.Schema) error {
	cols := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = fmt.Sprintf("%s %s", scan.QuoteIdent(f.Name), duckDBType(f.Type))
	}
	createSQL := fmt.Sprintf(`CREATE TABLE %s (%s)`, scan.QuoteIdent(alias), strings.Join(cols, ", "))
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("op=engine.local.createTable: %w", err)
	}
	return nil
}

func buildInsertSQL(alias string, schema *arrow.Schema) string {
	placeholders := make([]string, schema.NumFields())
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf(`INSERT INTO %s VALUES (%s)`, scan.QuoteIdent(alias), strings.Join(placeholders, ", "))
}

func insertRecord(ctx context.Context, stmt *sql.Stmt, rec arrow.Record) (int64, error) {
	numRows := int(rec.NumRows())
	numCols := int(rec.NumCols())
	for row := 0; row < numRows; row++ {
		args := make([]any, numCols)
		for col := 0; col < numCols; col++ {
			args[col] = cellValue(rec.Column(col), row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, err
		}
	}
	return int64(numRows), nil
}

func cellValue(col arrow.Array, row int) any {
	if col.IsNull(row) {
		return nil
	}
	switch c := col.(type) {
	case *array.Int16:
		return c.Value(row)
	case *array.Int32:
		return c.Value(row)
	case *array.Int64:
		return c.Value(row)
	case *array.Float32:
		return c.Value(row)
	case *array.Float64:
		return c.Value(row)
	case *array.Boolean:
		return c.Value(row)
	case *array.Binary:
		return c.Value(row)
	case *array.String:
		return c.Value(row)
	default:
		return nil
	}
}

func duckDBType(t arrow.DataType) string {
	switch t.ID() {
	case arrow.INT16:
		return "SMALLINT"
	case arrow.INT32:
		return "INTEGER"
	case arrow.INT64:
		return "BIGINT"
	case arrow.FLOAT32:
		return "REAL"
	case arrow.FLOAT64:
		return "DOUBLE"
	case arrow.BOOL:
		return "BOOLEAN"
	case arrow.BINARY:
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// RowsToRecord wraps the rows of a *sql.Rows result as a single
// in-memory arrow.Record built against schema, for callers (the match
// executor) that want their query results back in Arrow form.
func RowsToRecord(rows *sql.Rows, schema *arrow.Schema) (arrow.Record, error) {
	mem := memory.DefaultAllocator
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	numCols := schema.NumFields()
	vals := make([]any, numCols)
	ptrs := make([]any, numCols)
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("op=engine.local.RowsToRecord: scan: %w", err)
		}
		for i, f := range schema.Fields() {
			if err := scan.AppendValueExported(b.Field(i), f.Type, vals[i]); err != nil {
				return nil, fmt.Errorf("op=engine.local.RowsToRecord: column %s: %w", f.Name, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=engine.local.RowsToRecord: %w", err)
	}
	return b.NewRecord(), nil
}
