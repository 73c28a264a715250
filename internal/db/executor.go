package db

import (
	"context"
)

const (
	listTablesSQL = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name;`

	describeTableSQL = `
		SELECT
			column_name,
			data_type,
			is_nullable,
			column_default
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = $1
		ORDER BY ordinal_position;`

	tableConstraintsSQL = `
		SELECT
			tc.constraint_name,
			tc.constraint_type,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		LEFT JOIN information_schema.constraint_column_usage ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.table_schema = 'public' AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.column_name;`

	tableIndexesSQL = `
		SELECT
			i.relname AS index_name,
			a.attname AS column_name,
			ix.indisunique AS is_unique,
			ix.indisprimary AS is_primary
		FROM pg_index ix
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_class t ON t.oid = ix.indrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1
		ORDER BY i.relname, a.attname;`

	databaseSizeSQL = `
		SELECT
			pg_database.datname AS database_name,
			pg_size_pretty(pg_database_size(pg_database.datname)) AS size
		FROM pg_database
		WHERE pg_database.datname = current_database();`

	tableSizesSQL = `
		SELECT
			table_name,
			pg_size_pretty(pg_total_relation_size('"' || table_schema || '"."' || table_name || '"')) AS total_size
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY pg_total_relation_size('"' || table_schema || '"."' || table_name || '"') DESC;`
)

// Executor runs SQL through a shared pool. Each session owns its own Executor
// value; the pool behind it is process-wide. Caller-supplied identifiers such
// as table names only ever travel as bind parameters, never spliced into the
// SQL text.
type Executor struct {
	pool Pool
}

func NewExecutor(pool Pool) *Executor {
	return &Executor{pool: pool}
}

// Run executes sqlText with optional positional parameters. It never returns
// an error: acquisition and execution failures become a single error record,
// leaving the pool and the caller's session usable for the next call.
func (e *Executor) Run(ctx context.Context, sqlText string, params []any) []Record {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return []Record{errorRecord(err.Error())}
	}
	defer conn.Release()
	return classifyAndExecute(ctx, conn, sqlText, params)
}

// ListTables returns the tables in the public schema.
func (e *Executor) ListTables(ctx context.Context) []Record {
	return e.Run(ctx, listTablesSQL, nil)
}

// DescribeTable returns column metadata for one table.
func (e *Executor) DescribeTable(ctx context.Context, table string) []Record {
	return e.Run(ctx, describeTableSQL, []any{table})
}

// TableConstraints returns primary key, foreign key and other constraints.
func (e *Executor) TableConstraints(ctx context.Context, table string) []Record {
	return e.Run(ctx, tableConstraintsSQL, []any{table})
}

// TableIndexes returns the indexes defined on one table.
func (e *Executor) TableIndexes(ctx context.Context, table string) []Record {
	return e.Run(ctx, tableIndexesSQL, []any{table})
}

// DatabaseSize returns the current database's pretty-printed size.
func (e *Executor) DatabaseSize(ctx context.Context) []Record {
	return e.Run(ctx, databaseSizeSQL, nil)
}

// TableSizes returns all public tables ordered by total relation size.
func (e *Executor) TableSizes(ctx context.Context) []Record {
	return e.Run(ctx, tableSizesSQL, nil)
}
