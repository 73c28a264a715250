package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRows implements pgx.Rows over an in-memory result set.
type fakeRows struct {
	fields []pgconn.FieldDescription
	rows   [][]any
	pos    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) Next() bool                                   { r.pos++; return r.pos <= len(r.rows) }
func (r *fakeRows) Scan(dest ...any) error                       { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.pos-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

type fakeConn struct {
	rows     *fakeRows
	queryErr error
	execTag  string
	execErr  error

	gotSQL    string
	gotArgs   []any
	queried   bool
	execed    bool
	released  bool
}

func (c *fakeConn) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.queried, c.gotSQL, c.gotArgs = true, sql, args
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.rows == nil {
		c.rows = &fakeRows{}
	}
	return c.rows, nil
}

func (c *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.execed, c.gotSQL, c.gotArgs = true, sql, args
	if c.execErr != nil {
		return pgconn.CommandTag{}, c.execErr
	}
	return pgconn.NewCommandTag(c.execTag), nil
}

func (c *fakeConn) Release() { c.released = true }

type fakePool struct {
	conn       *fakeConn
	acquireErr error
}

func (p *fakePool) Acquire(context.Context) (Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	return p.conn, nil
}

func (p *fakePool) Close() {}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		verb string
		ok   bool
	}{
		{"select", "SELECT * FROM users", "SELECT", true},
		{"lowercase", "select 1", "SELECT", true},
		{"show", "show server_version", "SHOW", true},
		{"explain", "EXPLAIN SELECT 1", "EXPLAIN", true},
		{"cte", "with t as (select 1) select * from t", "WITH", true},
		{"insert", "INSERT INTO t VALUES (1)", "INSERT", true},
		{"leading comment", "-- hello\nSELECT 1", "SELECT", true},
		{"leading blanks", "\n\n  \nUPDATE t SET x = 1", "UPDATE", true},
		{"comment then write", "-- comment\n-- another\nDELETE FROM t", "DELETE", true},
		{"indented comment", "   -- note\n  select 2", "SELECT", true},
		{"empty", "", "", false},
		{"only whitespace", "  \n\t\n", "", false},
		{"only comments", "-- one\n-- two\n", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verb, ok := classify(tt.sql)
			if ok != tt.ok || verb != tt.verb {
				t.Errorf("classify(%q) = %q, %v; want %q, %v", tt.sql, verb, ok, tt.verb, tt.ok)
			}
		})
	}
}

func TestRunRoutesReadsAndWrites(t *testing.T) {
	t.Run("read path", func(t *testing.T) {
		conn := &fakeConn{rows: &fakeRows{
			fields: []pgconn.FieldDescription{{Name: "id"}, {Name: "name"}},
			rows:   [][]any{{int64(1), "alice"}, {int64(2), "bob"}},
		}}
		exec := NewExecutor(&fakePool{conn: conn})

		results := exec.Run(context.Background(), "SELECT id, name FROM users", nil)
		if !conn.queried || conn.execed {
			t.Fatalf("expected read path, got queried=%v execed=%v", conn.queried, conn.execed)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 records, got %d", len(results))
		}
		if v, _ := results[0].Get("name"); v != "alice" {
			t.Errorf("first record name = %v, want alice", v)
		}
		if first := results[0].Oldest(); first.Key != "id" {
			t.Errorf("field order lost: first key = %q, want id", first.Key)
		}
		if !conn.released {
			t.Error("connection not released")
		}
	})

	t.Run("write path", func(t *testing.T) {
		conn := &fakeConn{execTag: "UPDATE 5"}
		exec := NewExecutor(&fakePool{conn: conn})

		results := exec.Run(context.Background(), "UPDATE t SET x = 1", nil)
		if !conn.execed || conn.queried {
			t.Fatalf("expected write path, got queried=%v execed=%v", conn.queried, conn.execed)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 record, got %d", len(results))
		}
		if v, _ := results[0].Get("affected_rows"); v != int64(5) {
			t.Errorf("affected_rows = %v, want 5", v)
		}
	})
}

func TestCommandTagParsing(t *testing.T) {
	tests := []struct {
		tag      string
		affected int64
	}{
		{"INSERT 0 3", 3},
		{"UPDATE 5", 5},
		{"DELETE 0", 0},
		{"CREATE TABLE", 0},
		{"DROP TABLE", 0},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			conn := &fakeConn{execTag: tt.tag}
			exec := NewExecutor(&fakePool{conn: conn})

			results := exec.Run(context.Background(), "INSERT INTO t VALUES (1)", nil)
			if len(results) != 1 {
				t.Fatalf("expected 1 record, got %d", len(results))
			}
			if v, _ := results[0].Get("affected_rows"); v != tt.affected {
				t.Errorf("affected_rows = %v, want %d", v, tt.affected)
			}
			if v, _ := results[0].Get("command"); v != tt.tag {
				t.Errorf("command = %v, want %q preserved verbatim", v, tt.tag)
			}
		})
	}
}

func TestEmptyQuery(t *testing.T) {
	for _, sqlText := range []string{"", "   \n ", "-- only a comment\n"} {
		conn := &fakeConn{}
		exec := NewExecutor(&fakePool{conn: conn})

		results := exec.Run(context.Background(), sqlText, nil)
		if len(results) != 1 {
			t.Fatalf("expected exactly 1 record for %q, got %d", sqlText, len(results))
		}
		if _, ok := results[0].Get("error"); !ok {
			t.Errorf("expected error record for %q", sqlText)
		}
		if conn.queried || conn.execed {
			t.Errorf("empty query %q must not reach the driver", sqlText)
		}
	}
}

func TestEmptyResultSetIsNotAnError(t *testing.T) {
	conn := &fakeConn{rows: &fakeRows{fields: []pgconn.FieldDescription{{Name: "id"}}}}
	exec := NewExecutor(&fakePool{conn: conn})

	results := exec.Run(context.Background(), "SELECT id FROM empty_table", nil)
	if results == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(results) != 0 {
		t.Fatalf("expected 0 records, got %d", len(results))
	}
}

func TestDriverFailuresAbsorbed(t *testing.T) {
	t.Run("query failure", func(t *testing.T) {
		conn := &fakeConn{queryErr: errors.New(`relation "nope" does not exist`)}
		exec := NewExecutor(&fakePool{conn: conn})

		results := exec.Run(context.Background(), "SELECT * FROM nope", nil)
		if len(results) != 1 {
			t.Fatalf("expected 1 record, got %d", len(results))
		}
		if v, _ := results[0].Get("error"); v != `relation "nope" does not exist` {
			t.Errorf("error = %v", v)
		}
		if !conn.released {
			t.Error("connection not released after failure")
		}
	})

	t.Run("exec failure", func(t *testing.T) {
		conn := &fakeConn{execErr: errors.New("syntax error")}
		exec := NewExecutor(&fakePool{conn: conn})

		results := exec.Run(context.Background(), "DELETE FROM", nil)
		if v, _ := results[0].Get("error"); v != "syntax error" {
			t.Errorf("error = %v", v)
		}
		if !conn.released {
			t.Error("connection not released after failure")
		}
	})

	t.Run("acquire failure", func(t *testing.T) {
		exec := NewExecutor(&fakePool{acquireErr: errors.New("pool exhausted")})

		results := exec.Run(context.Background(), "SELECT 1", nil)
		if len(results) != 1 {
			t.Fatalf("expected 1 record, got %d", len(results))
		}
		if v, _ := results[0].Get("error"); v != "pool exhausted" {
			t.Errorf("error = %v", v)
		}
	})

	t.Run("pool usable after failure", func(t *testing.T) {
		conn := &fakeConn{queryErr: errors.New("boom")}
		pool := &fakePool{conn: conn}
		exec := NewExecutor(pool)

		exec.Run(context.Background(), "SELECT 1", nil)
		conn.queryErr = nil
		conn.rows = &fakeRows{fields: []pgconn.FieldDescription{{Name: "n"}}, rows: [][]any{{int64(1)}}}
		results := exec.Run(context.Background(), "SELECT 1", nil)
		if len(results) != 1 {
			t.Fatalf("next call after failure got %d records", len(results))
		}
		if _, isErr := results[0].Get("error"); isErr {
			t.Error("next call after failure still errors")
		}
	})
}

func TestJSONValue(t *testing.T) {
	uuid := [16]byte{0xde, 0xad, 0xbe, 0xef, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 0xa, 0xb}
	if got := jsonValue(uuid); got != "deadbeef-0001-0203-0405-060708090a0b" {
		t.Errorf("uuid = %v", got)
	}
	if got := jsonValue([]byte("raw")); got != "raw" {
		t.Errorf("bytes = %v", got)
	}
	if got := jsonValue(int64(7)); got != int64(7) {
		t.Errorf("passthrough = %v", got)
	}
}
