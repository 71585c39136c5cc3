package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/detection"
	"github.com/ironsheep/image-deskew-mcp/internal/export"
	"github.com/ironsheep/image-deskew-mcp/internal/ocr"
	"github.com/ironsheep/image-deskew-mcp/internal/render"
	"github.com/ironsheep/image-deskew-mcp/internal/session"
)

// Name is reported to clients in serverInfo.
const Name = "image-deskew-mcp"

// Options configures a Server.
type Options struct {
	Tuning  config.Tuning
	Version string

	// OCR enables the text-baseline estimator. nil disables it.
	OCR *ocr.Engine
}

// Server handles MCP protocol communication for one client session.
type Server struct {
	tuning  config.Tuning
	version string

	queue    *render.Queue
	store    *session.Store
	exporter *export.Exporter
	arbiter  *detection.Arbiter
	ocr      *ocr.Engine
	log      *logrus.Entry

	outMu sync.Mutex
	out   *json.Encoder

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
	wg       sync.WaitGroup
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance with an empty session.
func New(opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	q := render.NewQueue()
	store := session.NewStore(render.NewPDFRenderer(q, opts.Tuning.Render.DPI))

	var rec detection.LineRecognizer
	if opts.OCR != nil {
		rec = opts.OCR
	}

	return &Server{
		tuning:   opts.Tuning,
		version:  opts.Version,
		queue:    q,
		store:    store,
		exporter: export.NewExporter(store, opts.Tuning.Export, opts.Tuning.Render.DPI),
		arbiter:  detection.NewDefaultArbiter(opts.Tuning, rec),
		ocr:      opts.OCR,
		log:      logrus.WithField("component", "server"),
		inflight: make(map[string]context.CancelFunc),
	}
}

// Close cancels running tool calls, waits for them and stops the render queue.
func (s *Server) Close() {
	s.mu.Lock()
	for _, cancel := range s.inflight {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.queue.Close()
}

// Run reads requests from r and writes responses to w until r is exhausted
// or ctx ends.
//
// Requests are handled in arrival order. Long-running tools (see asyncTools)
// run in the background so that a notifications/cancelled for them can be
// read while they work.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	s.setOutput(w)

	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		var line []byte
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			break
		}
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("failed to parse request")
			continue
		}

		if req.Method == "tools/call" && req.ID != nil && isAsync(req.Params) {
			s.startAsync(ctx, &req)
			continue
		}
		if resp := s.handleRequest(ctx, &req); resp != nil {
			s.send(resp)
		}
	}

	select {
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
	default:
	}
	return nil
}

// startAsync runs a tool call in its own goroutine under a cancellable context
// registered by request id.
func (s *Server) startAsync(ctx context.Context, req *MCPRequest) {
	callCtx, cancel := context.WithCancel(ctx)
	key := requestKey(req.ID)

	s.mu.Lock()
	s.inflight[key] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.inflight, key)
			s.mu.Unlock()
			cancel()
		}()
		if resp := s.handleRequest(callCtx, req); resp != nil {
			s.send(resp)
		}
	}()
}

func requestKey(id interface{}) string {
	return fmt.Sprintf("%v", id)
}

// cancelRequest cancels a running call. Unknown ids are ignored; the call may
// already have finished.
func (s *Server) cancelRequest(id interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.inflight[requestKey(id)]
	if ok {
		cancel()
	}
	return ok
}

func (s *Server) setOutput(w io.Writer) {
	s.outMu.Lock()
	s.out = json.NewEncoder(w)
	s.outMu.Unlock()
}

func (s *Server) send(v interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.out == nil {
		return
	}
	if err := s.out.Encode(v); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}

func (s *Server) notify(method string, params interface{}) {
	s.send(&MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "notifications/cancelled":
		s.handleCancelled(req)
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		if req.ID == nil {
			// unknown notification
			return nil
		}
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

func (s *Server) handleCancelled(req *MCPRequest) {
	var p struct {
		RequestID interface{} `json:"requestId"`
		Reason    string      `json:"reason"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil || p.RequestID == nil {
		return
	}
	found := s.cancelRequest(p.RequestID)
	s.log.WithFields(logrus.Fields{"request": p.RequestID, "reason": p.Reason, "running": found}).Info("cancellation requested")
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": s.version,
			},
		},
	}
}
