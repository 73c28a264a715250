package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hazyhaar/pgtools/internal/session"
	"github.com/hazyhaar/pgtools/internal/tools"
)

// JSON-RPC error codes. codeInvalidSession is the reserved server range code
// clients match on to re-establish a session.
const (
	codeInvalidSession = -32000
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternal       = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func errResponse(id any, code int, message string) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}

func resultResponse(id any, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

// processRequest resolves one JSON-RPC request against the registry. Every
// outcome is a well-formed response; dispatch conditions become error objects
// so a bad call cannot close the session.
func (s *Server) processRequest(ctx context.Context, sess *session.Session, req *Request) *Response {
	switch req.Method {
	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": s.reg.List()})

	case "tools/call":
		var p callParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				return errResponse(req.ID, codeInvalidParams, err.Error())
			}
		}
		records, err := s.reg.Dispatch(ctx, sess.Exec, p.Name, p.Arguments)
		if err != nil {
			code := codeInternal
			if errors.Is(err, tools.ErrUnknownTool) || errors.Is(err, tools.ErrMissingArgument) {
				code = codeInvalidParams
			}
			return errResponse(req.ID, code, err.Error())
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return errResponse(req.ID, codeInternal, err.Error())
		}
		return resultResponse(req.ID, map[string]any{
			"content": []map[string]any{{"type": "text", "text": string(data)}},
		})

	case "ping":
		return resultResponse(req.ID, map[string]any{})

	default:
		return errResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}
}
