package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hazyhaar/pgtools/internal/db"
	"github.com/hazyhaar/pgtools/pkg/audit"
)

type entry struct {
	desc    Descriptor
	handler Handler
}

// Registry maps tool names to descriptors and handlers. It is built once at
// startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	order    []string
	tools    map[string]entry
	auditLog audit.Logger
}

func NewRegistry(auditLog audit.Logger) *Registry {
	return &Registry{
		tools:    make(map[string]entry),
		auditLog: auditLog,
	}
}

func (reg *Registry) register(d Descriptor, h Handler) {
	if _, dup := reg.tools[d.Name]; !dup {
		reg.order = append(reg.order, d.Name)
	}
	reg.tools[d.Name] = entry{desc: d, handler: h}
}

// List returns all descriptors in registration order.
func (reg *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(reg.order))
	for _, name := range reg.order {
		out = append(out, reg.tools[name].desc)
	}
	return out
}

// Dispatch validates args against the tool's schema and invokes its handler
// with the session's runner. Unknown names and missing required fields fail
// before any query executes; both are meant to surface as protocol errors at
// the transport boundary, never as faults.
func (reg *Registry) Dispatch(ctx context.Context, r Runner, name string, args map[string]any) ([]db.Record, error) {
	start := time.Now()
	records, err := reg.dispatch(ctx, r, name, args)
	if reg.auditLog != nil {
		reg.record(ctx, name, args, records, err, time.Since(start))
	}
	return records, err
}

func (reg *Registry) dispatch(ctx context.Context, r Runner, name string, args map[string]any) ([]db.Record, error) {
	t, ok := reg.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if required, ok := t.desc.InputSchema["required"].([]string); ok {
		for _, field := range required {
			if _, present := args[field]; !present {
				return nil, fmt.Errorf("%w: %s", ErrMissingArgument, field)
			}
		}
	}
	return t.handler(ctx, r, args), nil
}

func (reg *Registry) record(ctx context.Context, name string, args map[string]any, records []db.Record, err error, d time.Duration) {
	e := &audit.Entry{
		Action:     name,
		Transport:  audit.Transport(ctx),
		DurationMs: d.Milliseconds(),
	}
	if params, jsonErr := json.Marshal(args); jsonErr == nil {
		e.Parameters = string(params)
	}
	if err != nil {
		e.Error = err.Error()
		e.Status = "error"
	} else if result, jsonErr := json.Marshal(records); jsonErr == nil {
		e.Result = string(result)
	}
	reg.auditLog.LogAsync(e)
}
