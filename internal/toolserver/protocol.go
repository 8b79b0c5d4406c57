// Package toolserver implements the JSON-RPC 2.0 tool server (§4.9): a
// line-delimited stdio protocol loop, directly grounded on
// other_examples/5dea602e_m0n0x41d-crucible-code's fpf-server.go
// (JSONRPCRequest/JSONRPCResponse/RPCError/Server.Start/sendResult/sendError),
// renamed throughout to this repository's tool catalogue and generalized
// from a fixed switch statement to a name-keyed Registry so the catalogue
// can grow without touching the dispatch loop itself.
package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
	"go.opentelemetry.io/otel"
)

// JSON-RPC 2.0 reserved error codes (§4.9).
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Request is one line of JSON-RPC input. A nil ID marks a notification: the
// server must never write a response for it.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is one line of JSON-RPC output.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError carries a JSON-RPC error code and message.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ContentItem is one block of a tools/call result, following the MCP
// content-array convention the teacher's reference server also emits.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallToolResult wraps a tool's JSON-encoded output in the content-array
// envelope §4.9 step 6 requires.
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// Server reads JSON-RPC requests from stdin and writes responses to stdout,
// one line in, at most one line out. It never holds request state across
// calls; every tool invocation is independent.
type Server struct {
	registry *Registry
	name     string
	version  string
	log      *slog.Logger

	in  io.Reader
	out io.Writer

	mu      sync.Mutex // guards writes to out, since background workers never write here but a future concurrent dispatch might
	metrics *metrics
}

// NewServer constructs a Server bound to name/version (reported from
// initialize) and serving tools from reg.
func NewServer(reg *Registry, name, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	meter := otel.GetMeterProvider().Meter("membria-core/toolserver")
	return &Server{registry: reg, name: name, version: version, log: log, in: nil, out: nil, metrics: newMetrics(meter)}
}

// Start runs the read-dispatch-write loop against in/out until ctx is
// cancelled or in reaches EOF. A malformed line never crashes the loop: it
// produces a parse-error response (id: null) and continues, per §4.9's
// "never crashes the process on a malformed line" rule.
func (s *Server) Start(ctx context.Context, in io.Reader, out io.Writer) error {
	s.in, s.out = in, out
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
	}()

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(bytesTrimSpace(line)) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.sendError(nil, CodeParseError, "parse error: "+err.Error())
			continue
		}
		s.handle(ctx, req)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("toolserver: reading stdin: %w", err)
	}
	return nil
}

func bytesTrimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func (s *Server) handle(ctx context.Context, req Request) {
	switch req.Method {
	case "initialize":
		s.sendResult(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]any{
				"tools": map[string]any{"listChanged": false},
			},
			"serverInfo": map[string]any{"name": s.name, "version": s.version},
		})
	case "ping":
		s.sendResult(req.ID, map[string]any{})
	case "tools/list":
		s.sendResult(req.ID, map[string]any{"tools": s.registry.Definitions()})
	case "resources/list":
		s.sendResult(req.ID, map[string]any{"resources": []any{}})
	case "prompts/list":
		s.sendResult(req.ID, map[string]any{"prompts": []any{}})
	case "notifications/initialized":
		// No-op: a notification, not a request; never responded to.
	case "tools/call":
		s.handleToolsCall(ctx, req)
	default:
		if req.ID != nil {
			s.sendError(req.ID, CodeMethodNotFound, "method not found: "+req.Method)
		}
	}
}

func (s *Server) handleToolsCall(ctx context.Context, req Request) {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		s.sendError(req.ID, CodeInvalidParams, "invalid params: "+err.Error())
		return
	}
	if params.Arguments == nil {
		params.Arguments = json.RawMessage("{}")
	}

	tool, ok := s.registry.Lookup(params.Name)
	if !ok {
		s.sendError(req.ID, CodeMethodNotFound, "unknown tool: "+params.Name)
		return
	}

	if err := tool.ValidateInput(params.Arguments); err != nil {
		s.sendError(req.ID, CodeInvalidParams, err.Error())
		return
	}

	start := time.Now()
	result, err := tool.Handler(ctx, params.Arguments)
	s.metrics.record(ctx, params.Name, start, err)
	if err != nil {
		s.sendError(req.ID, apperrors.Code(err), err.Error())
		return
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		s.sendError(req.ID, CodeInternalError, "encoding result: "+err.Error())
		return
	}
	if err := tool.ValidateOutput(encoded); err != nil {
		s.sendError(req.ID, CodeInternalError, "output schema mismatch: "+err.Error())
		return
	}

	s.sendResultText(req.ID, string(encoded), false)
}

func (s *Server) sendResultText(id any, text string, isError bool) {
	s.sendResult(id, CallToolResult{Content: []ContentItem{{Type: "text", Text: text}}, IsError: isError})
}

func (s *Server) send(resp Response) {
	if resp.ID == nil && resp.Error == nil && resp.Result == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Error("toolserver: failed to marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := s.out.Write(data); err != nil {
		s.log.Error("toolserver: failed to write response", "error", err)
	}
}

func (s *Server) sendResult(id any, result any) {
	if id == nil {
		// Notification: never answered, whatever the method.
		return
	}
	s.send(Response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) sendError(id any, code int, message string) {
	if id == nil {
		// Per §4.9 framing, a request with id == null is a notification and
		// never gets a response — except a genuine parse error, where id is
		// unknowable and the teacher's reference server still emits one.
		if code != CodeParseError {
			return
		}
	}
	s.send(Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}})
}
