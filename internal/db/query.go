package db

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Record is one result row. Field order follows the query's column order, and
// the JSON encoding preserves it.
type Record = *orderedmap.OrderedMap[string, any]

// readVerbs are the statement verbs routed through the read path. Everything
// else goes through the write path and reports a command tag.
var readVerbs = map[string]bool{
	"SELECT":  true,
	"SHOW":    true,
	"EXPLAIN": true,
	"WITH":    true,
}

// classify returns the uppercased first token of the first line that is
// neither blank nor a -- comment. ok is false when no such line exists.
func classify(sqlText string) (verb string, ok bool) {
	for _, line := range strings.Split(sqlText, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "--") {
			continue
		}
		return strings.ToUpper(strings.Fields(stripped)[0]), true
	}
	return "", false
}

// classifyAndExecute runs sqlText on conn and normalizes the outcome into
// records. Driver failures never escape: they come back as a single error
// record so the caller always receives a well-formed result.
func classifyAndExecute(ctx context.Context, conn Conn, sqlText string, params []any) []Record {
	verb, ok := classify(sqlText)
	if !ok {
		slog.Warn("query is empty or contains only comments")
		return []Record{errorRecord("query is empty or contains only comments")}
	}

	if readVerbs[verb] {
		return fetchRecords(ctx, conn, sqlText, params)
	}
	return execCommand(ctx, conn, sqlText, params)
}

func fetchRecords(ctx context.Context, conn Conn, sqlText string, params []any) []Record {
	rows, err := conn.Query(ctx, sqlText, params...)
	if err != nil {
		slog.Error("query failed", "error", err)
		return []Record{errorRecord(err.Error())}
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []Record{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			slog.Error("reading row failed", "error", err)
			return []Record{errorRecord(err.Error())}
		}
		rec := orderedmap.New[string, any]()
		for i, fd := range fields {
			rec.Set(fd.Name, jsonValue(values[i]))
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		slog.Error("query failed", "error", err)
		return []Record{errorRecord(err.Error())}
	}
	return results
}

func execCommand(ctx context.Context, conn Conn, sqlText string, params []any) []Record {
	tag, err := conn.Exec(ctx, sqlText, params...)
	if err != nil {
		slog.Error("statement failed", "error", err)
		return []Record{errorRecord(err.Error())}
	}

	// Command tags look like "INSERT 0 3" or "UPDATE 5"; schema statements
	// like "CREATE TABLE" carry no count and report zero.
	affected := int64(0)
	if parts := strings.Fields(tag.String()); len(parts) > 0 {
		if n, err := strconv.ParseInt(parts[len(parts)-1], 10, 64); err == nil {
			affected = n
		}
	}

	rec := orderedmap.New[string, any]()
	rec.Set("affected_rows", affected)
	rec.Set("command", tag.String())
	return []Record{rec}
}

func errorRecord(msg string) Record {
	rec := orderedmap.New[string, any]()
	rec.Set("error", msg)
	return rec
}

// jsonValue converts pgx-native values into JSON-friendly ones: UUIDs arrive
// as [16]byte and byte slices are not meaningful to remote callers as base64.
func jsonValue(v any) any {
	switch b := v.(type) {
	case [16]byte:
		return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
			b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7],
			b[8], b[9], b[10], b[11], b[12], b[13], b[14], b[15])
	case []byte:
		return string(b)
	default:
		return v
	}
}
