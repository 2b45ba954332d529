//go:build integration

package scan

import (
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupAccountsTable starts a disposable Postgres container seeded with a
// small accounts table and returns its connection string plus a cleanup
// func.
func setupAccountsTable(t *testing.T) (string, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithImage("postgres:16"),
		tcpostgres.WithDatabase("kalla_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connString)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `
		CREATE TABLE accounts (id BIGINT, name TEXT, balance DOUBLE PRECISION);
		INSERT INTO accounts (id, name, balance) VALUES
			(1, 'alice', 100.50),
			(2, 'bob', 200.25),
			(3, 'carol', 300.00),
			(4, 'dave', 400.75);
	`)
	require.NoError(t, err)
	pool.Close()

	cleanup := func() {
		_ = container.Terminate(ctx)
	}
	return connString, cleanup
}

func TestPartitionedRelationalTable_IntrospectsSchemaAndRowCount(t *testing.T) {
	connString, cleanup := setupAccountsTable(t)
	defer cleanup()

	ctx := context.Background()
	tbl, err := NewPartitionedRelationalTable(ctx, connString, "accounts", 2, "id", "")
	require.NoError(t, err)

	require.Equal(t, int64(4), tbl.RowCount())
	require.Equal(t, 3, tbl.Schema().NumFields())
}

func TestPartitionedRelationalTable_LeafOperatorsCoverTableExactlyOnce(t *testing.T) {
	connString, cleanup := setupAccountsTable(t)
	defer cleanup()

	ctx := context.Background()
	tbl, err := NewPartitionedRelationalTable(ctx, connString, "accounts", 3, "id", "")
	require.NoError(t, err)

	ops := tbl.LeafOperators()
	require.Len(t, ops, 3)

	seen := make(map[int64]bool)
	for _, op := range ops {
		rec, err := op.Execute(ctx, 0)
		require.NoError(t, err)
		idCol := rec.Column(0).(*array.Int64)
		for i := 0; i < idCol.Len(); i++ {
			id := idCol.Value(i)
			require.False(t, seen[id], "row %d scanned by more than one partition", id)
			seen[id] = true
		}
		rec.Release()
	}
	require.Len(t, seen, 4)
}

func TestPartitionedRelationalTable_WhereClauseFiltersRows(t *testing.T) {
	connString, cleanup := setupAccountsTable(t)
	defer cleanup()

	ctx := context.Background()
	tbl, err := NewPartitionedRelationalTable(ctx, connString, "accounts", 1, "id", "balance > 250")
	require.NoError(t, err)

	require.Equal(t, int64(2), tbl.RowCount())
}
