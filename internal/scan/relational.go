package scan

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// newScanPool opens an ephemeral small pool (≤2 connections) the way
// conn.go's NewPool does for the job-tracking database, traced with
// otelpgx so per-partition queries show up alongside everything else.
func newScanPool(ctx context.Context, connString string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("op=scan.newScanPool: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.ConnConfig.Tracer = otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName())

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("op=scan.newScanPool: %w", err)
	}
	return pool, nil
}

// PartitionedRelationalTable is the eager+lazy C1 relational source entity
// of §3. It is constructed once (schema introspection + COUNT), is
// immutable after that, and owns no connections of its own: every scan
// opens and closes its own ephemeral pool.
type PartitionedRelationalTable struct {
	ConnString    string
	TableName     string
	schema        *arrow.Schema
	totalRows     int64
	NumPartitions int
	OrderColumn   string // optional; empty means partitioning is not reproducible
	Where         string // optional, already-compiled WHERE body (no leading "WHERE")
}

// NewPartitionedRelationalTable probes connString for table's columns and
// row count and returns an immutable table descriptor. Construction failure
// (connection or introspection error) means the source cannot be
// registered, per §4.1's failure semantics.
func NewPartitionedRelationalTable(ctx context.Context, connString, tableName string, numPartitions int, orderColumn, where string) (*PartitionedRelationalTable, error) {
	pool, err := newScanPool(ctx, connString, 2)
	if err != nil {
		return nil, fmt.Errorf("op=scan.relational.construct: %w", err)
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT column_name, data_type
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`, tableName)
	if err != nil {
		return nil, fmt.Errorf("op=scan.relational.construct: introspect columns: %w", err)
	}
	var cols []Column
	for rows.Next() {
		var name, sqlType string
		if err := rows.Scan(&name, &sqlType); err != nil {
			rows.Close()
			return nil, fmt.Errorf("op=scan.relational.construct: scan column: %w", err)
		}
		cols = append(cols, Column{Name: name, Type: SQLTypeToArrow(sqlType), Nullable: true})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=scan.relational.construct: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("op=scan.relational.construct: table %q has no columns", tableName)
	}

	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, QuoteIdent(tableName))
	if where != "" {
		countSQL += " WHERE " + where
	}
	var total int64
	if err := pool.QueryRow(ctx, countSQL).Scan(&total); err != nil {
		return nil, fmt.Errorf("op=scan.relational.construct: count: %w", err)
	}

	return &PartitionedRelationalTable{
		ConnString:    connString,
		TableName:     tableName,
		schema:        BuildArrowSchema(cols),
		totalRows:     total,
		NumPartitions: numPartitions,
		OrderColumn:   orderColumn,
		Where:         where,
	}, nil
}

// Schema implements TableProvider.
func (t *PartitionedRelationalTable) Schema() *arrow.Schema { return t.schema }

// RowCount implements TableProvider.
func (t *PartitionedRelationalTable) RowCount() int64 { return t.totalRows }

// LeafOperators returns the lazy, shippable per-partition form: one
// RelationalScanExec per row range, together covering the table exactly
// once with no overlap or gap (§4.1 coverage invariant).
func (t *PartitionedRelationalTable) LeafOperators() []*RelationalScanExec {
	ranges := PartitionRows(t.totalRows, t.NumPartitions)
	ops := make([]*RelationalScanExec, 0, len(ranges))
	for _, r := range ranges {
		ops = append(ops, &RelationalScanExec{
			ConnString:  t.ConnString,
			TableName:   t.TableName,
			TableSchema: t.schema,
			Offset:      r.Offset,
			Limit:       r.Limit,
			OrderColumn: t.OrderColumn,
			Where:       t.Where,
		})
	}
	return ops
}

// Scan implements the eager table-provider form: fetch every partition
// in-process and return one arrow.Record per partition.
func (t *PartitionedRelationalTable) Scan(ctx context.Context) ([]arrow.Record, error) {
	ops := t.LeafOperators()
	records := make([]arrow.Record, 0, len(ops))
	for _, op := range ops {
		rec, err := op.Execute(ctx, 0)
		if err != nil {
			for _, r := range records {
				r.Release()
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// RelationalScanExec is the lazy, shippable leaf operator form of a single
// partition of a PartitionedRelationalTable (§3 "Per-partition scan
// operators"). It is a leaf: it must not have children.
type RelationalScanExec struct {
	ConnString  string
	TableName   string
	TableSchema *arrow.Schema
	Offset      int64
	Limit       int64
	OrderColumn string
	Where       string
}

// Schema implements LeafOperator.
func (e *RelationalScanExec) Schema() *arrow.Schema { return e.TableSchema }

// Execute opens an ephemeral small pool, runs the partition's
// SELECT ... LIMIT ... OFFSET ..., converts the result to a single arrow
// batch, and closes the pool. partition must be 0.
func (e *RelationalScanExec) Execute(ctx context.Context, partition int) (arrow.Record, error) {
	if partition != 0 {
		return nil, ErrNonZeroPartition
	}

	pool, err := newScanPool(ctx, e.ConnString, 2)
	if err != nil {
		return nil, fmt.Errorf("op=scan.relational.execute: %w", err)
	}
	defer pool.Close()

	colNames := make([]string, e.TableSchema.NumFields())
	for i, f := range e.TableSchema.Fields() {
		colNames[i] = QuoteIdent(f.Name)
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s`, joinComma(colNames), QuoteIdent(e.TableName))
	if e.Where != "" {
		sql += " WHERE " + e.Where
	}
	if e.OrderColumn != "" {
		sql += " ORDER BY " + QuoteIdent(e.OrderColumn)
	}
	sql += " LIMIT $1 OFFSET $2"

	rows, err := pool.Query(ctx, sql, e.Limit, e.Offset)
	if err != nil {
		return nil, fmt.Errorf("op=scan.relational.execute: %w", err)
	}
	defer rows.Close()

	mem := memory.DefaultAllocator
	b := array.NewRecordBuilder(mem, e.TableSchema)
	defer b.Release()

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("op=scan.relational.execute: %w", err)
		}
		for i, f := range e.TableSchema.Fields() {
			if err := appendValue(b.Field(i), f.Type, vals[i]); err != nil {
				return nil, fmt.Errorf("op=scan.relational.execute: column %s: %w", f.Name, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=scan.relational.execute: %w", err)
	}

	rec := b.NewRecord()
	return rec, nil
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
