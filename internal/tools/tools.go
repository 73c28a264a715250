// Package tools holds the static tool catalog and the dispatcher shared by
// both transports. Descriptors are immutable and process-wide; execution is
// bound at call time to the session's executor handle.
package tools

import (
	"context"
	"errors"

	"github.com/hazyhaar/pgtools/internal/db"
)

// ErrUnknownTool reports a dispatch against an unregistered tool name.
var ErrUnknownTool = errors.New("unknown tool")

// ErrMissingArgument reports a required schema field absent from the
// call's arguments. Raised before any query executes.
var ErrMissingArgument = errors.New("missing required argument")

// Runner is the per-session query surface the tools execute against.
// *db.Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, sqlText string, params []any) []db.Record
	ListTables(ctx context.Context) []db.Record
	DescribeTable(ctx context.Context, table string) []db.Record
	TableConstraints(ctx context.Context, table string) []db.Record
	TableIndexes(ctx context.Context, table string) []db.Record
	DatabaseSize(ctx context.Context) []db.Record
	TableSizes(ctx context.Context) []db.Record
}

// Descriptor describes one tool: its name, what it does, and the JSON-schema
// shape of its input.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Handler executes one tool call against a session's runner.
type Handler func(ctx context.Context, r Runner, args map[string]any) []db.Record
