package tools

import (
	"context"

	"github.com/hazyhaar/pgtools/internal/db"
	"github.com/hazyhaar/pgtools/pkg/audit"
)

// CoreRegistry builds the catalog exposed on every transport.
func CoreRegistry(auditLog audit.Logger) *Registry {
	reg := NewRegistry(auditLog)

	reg.register(Descriptor{
		Name:        "run_sql_query",
		Description: "Execute any SQL query on the PostgreSQL database (SELECT, INSERT, UPDATE, DELETE, CREATE, etc.)",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":  map[string]string{"type": "string", "description": "SQL query to execute"},
				"params": map[string]any{"type": "array", "description": "Optional parameters for the query", "items": map[string]string{"type": "string"}},
			},
			"required": []string{"query"},
		},
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.Run(ctx, stringArg(args, "query"), listArg(args, "params"))
	})

	reg.register(Descriptor{
		Name:        "list_tables",
		Description: "List all tables in the PostgreSQL database",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, r Runner, _ map[string]any) []db.Record {
		return r.ListTables(ctx)
	})

	reg.register(Descriptor{
		Name:        "describe_table",
		Description: "Get the schema information for a specific table",
		InputSchema: tableNameSchema("Name of the table to describe"),
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.DescribeTable(ctx, stringArg(args, "table_name"))
	})

	reg.register(Descriptor{
		Name:        "get_table_constraints",
		Description: "Get constraints (primary keys, foreign keys, etc.) for a specific table",
		InputSchema: tableNameSchema("Name of the table to get constraints for"),
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.TableConstraints(ctx, stringArg(args, "table_name"))
	})

	reg.register(Descriptor{
		Name:        "get_table_indexes",
		Description: "Get indexes for a specific table",
		InputSchema: tableNameSchema("Name of the table to get indexes for"),
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.TableIndexes(ctx, stringArg(args, "table_name"))
	})

	reg.register(Descriptor{
		Name:        "get_database_size",
		Description: "Get the size of the current database",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, r Runner, _ map[string]any) []db.Record {
		return r.DatabaseSize(ctx)
	})

	reg.register(Descriptor{
		Name:        "get_table_sizes",
		Description: "Get sizes of all tables in the database",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	}, func(ctx context.Context, r Runner, _ map[string]any) []db.Record {
		return r.TableSizes(ctx)
	})

	return reg
}

// HTTPRegistry is the core catalog plus the aliases the HTTP transport has
// always carried for older clients.
func HTTPRegistry(auditLog audit.Logger) *Registry {
	reg := CoreRegistry(auditLog)

	reg.register(Descriptor{
		Name:        "execute_query",
		Description: "Execute a read-only SQL query",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]string{"type": "string", "description": "The SQL query to execute"},
			},
			"required": []string{"query"},
		},
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.Run(ctx, stringArg(args, "query"), nil)
	})

	reg.register(Descriptor{
		Name:        "execute_write",
		Description: "Execute a write SQL statement",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"statement": map[string]string{"type": "string", "description": "The SQL statement to execute"},
			},
			"required": []string{"statement"},
		},
	}, func(ctx context.Context, r Runner, args map[string]any) []db.Record {
		return r.Run(ctx, stringArg(args, "statement"), nil)
	})

	return reg
}

func tableNameSchema(desc string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"table_name": map[string]string{"type": "string", "description": desc},
		},
		"required": []string{"table_name"},
	}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func listArg(args map[string]any, key string) []any {
	v, _ := args[key].([]any)
	return v
}
