package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/detection"
	"github.com/ironsheep/image-deskew-mcp/internal/export"
	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/ocr"
	"github.com/ironsheep/image-deskew-mcp/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "deskew_load", "deskew_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`

	// Meta carries the optional progress token.
	Meta *CallMeta `json:"_meta,omitempty"`
}

// CallMeta is the _meta object of a tools/call request.
type CallMeta struct {
	ProgressToken interface{} `json:"progressToken,omitempty"`
}

// paramError marks a failure caused by the caller's arguments.
type paramError struct{ err error }

func (e *paramError) Error() string { return e.err.Error() }
func (e *paramError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{err: fmt.Errorf(format, args...)}
}

// progressFunc reports progress of a long-running tool.
type progressFunc func(done, total int, message string)

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments, unknown units and out-of-range pages return code -32602;
// any other tool failure returns -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments, s.progressReporter(params.Meta))
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) || errors.Is(err, session.ErrUnknownUnit) || errors.Is(err, session.ErrPageOutOfRange) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		s.log.WithError(err).WithField("tool", params.Name).Warn("tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

func (s *Server) progressReporter(meta *CallMeta) progressFunc {
	if meta == nil || meta.ProgressToken == nil {
		return func(int, int, string) {}
	}
	token := meta.ProgressToken
	return func(done, total int, message string) {
		s.notify("notifications/progress", map[string]interface{}{
			"progressToken": token,
			"progress":      done,
			"total":         total,
			"message":       message,
		})
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage, progress progressFunc) (interface{}, error) {
	switch name {
	// Session
	case "deskew_load":
		return s.handleLoad(ctx, args)
	case "deskew_unload":
		return s.handleUnload(args)
	case "deskew_info":
		return s.handleInfo()

	// Page state
	case "deskew_state_get":
		return s.handleStateGet(args)
	case "deskew_state_set":
		return s.handleStateSet(args)
	case "deskew_state_reset":
		return s.handleStateReset(args)

	// Detection
	case "deskew_detect":
		return s.handleDetect(ctx, args)

	// Export
	case "deskew_export_image":
		return s.handleExportImage(ctx, args)
	case "deskew_export_document":
		return s.handleExportDocument(ctx, args)
	case "deskew_export_all":
		return s.handleExportAll(ctx, args, progress)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; missing arguments decode as {}.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return invalidParams("invalid arguments: %v", err)
	}
	return nil
}

// unitArgs is embedded by every per-unit tool.
type unitArgs struct {
	Unit string `json:"unit"`
	Page int    `json:"page"`
}

func (a *unitArgs) check() error {
	if a.Unit == "" {
		return invalidParams("unit is required")
	}
	if a.Page == 0 {
		a.Page = 1
	}
	return nil
}

// === Session Handlers ===

type loadArgs struct {
	Path string `json:"path"`
}

type loadResult struct {
	session.Info
	*imaging.DimensionsResult
}

func (s *Server) handleLoad(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a loadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, invalidParams("path is required")
	}
	info, err := s.store.LoadFile(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	res := loadResult{Info: info}
	if info.Kind == session.KindImage {
		r, err := s.store.Raster(ctx, info.ID, 1)
		if err != nil {
			return nil, err
		}
		dims := r.Dimensions()
		res.DimensionsResult = &dims
	}
	return res, nil
}

func (s *Server) handleUnload(args json.RawMessage) (interface{}, error) {
	var a unitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	if err := s.store.Unload(a.Unit); err != nil {
		return nil, err
	}
	return map[string]interface{}{"unit": a.Unit, "unloaded": true}, nil
}

type infoResult struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	OCR     ocr.Info       `json:"ocr"`
	Formats []string       `json:"formats"`
	Tuning  config.Tuning  `json:"tuning"`
	Units   []session.Info `json:"units"`
}

func (s *Server) handleInfo() (interface{}, error) {
	res := infoResult{
		Name:    Name,
		Version: s.version,
		Formats: []string{string(imaging.FormatPDF), string(imaging.FormatPNG), string(imaging.FormatJPEG), string(imaging.FormatWebP)},
		Tuning:  s.tuning,
		Units:   s.store.Units(),
	}
	if s.ocr != nil {
		res.OCR = s.ocr.Info()
	} else {
		res.OCR = ocr.Info{Error: "disabled"}
	}
	return res, nil
}

// === Page State Handlers ===

type stateResult struct {
	Unit  string                      `json:"unit"`
	Page  int                         `json:"page"`
	State geometry.PageTransformState `json:"state"`
}

func (s *Server) handleStateGet(args json.RawMessage) (interface{}, error) {
	var a unitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	st, err := s.store.State(a.Unit, a.Page)
	if err != nil {
		return nil, err
	}
	return stateResult{Unit: a.Unit, Page: a.Page, State: st}, nil
}

type stateSetArgs struct {
	unitArgs
	Rotation       *float64 `json:"rotation"`
	RotateBy       *float64 `json:"rotate_by"`
	OffsetX        *float64 `json:"offset_x"`
	OffsetY        *float64 `json:"offset_y"`
	FlipHorizontal *bool    `json:"flip_horizontal"`
	FlipVertical   *bool    `json:"flip_vertical"`
}

func (s *Server) handleStateSet(args json.RawMessage) (interface{}, error) {
	var a stateSetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	if a.Rotation != nil && a.RotateBy != nil {
		return nil, invalidParams("rotation and rotate_by are mutually exclusive")
	}

	st, err := s.store.State(a.Unit, a.Page)
	if err != nil {
		return nil, err
	}
	if a.Rotation != nil {
		st.Rotation = *a.Rotation
	}
	if a.RotateBy != nil {
		st.Rotation += *a.RotateBy
	}
	if a.OffsetX != nil {
		st.Offset.X = *a.OffsetX
	}
	if a.OffsetY != nil {
		st.Offset.Y = *a.OffsetY
	}
	if a.FlipHorizontal != nil {
		st.FlipHorizontal = *a.FlipHorizontal
	}
	if a.FlipVertical != nil {
		st.FlipVertical = *a.FlipVertical
	}

	st, err = s.store.SetState(a.Unit, a.Page, st)
	if err != nil {
		if errors.Is(err, session.ErrUnknownUnit) || errors.Is(err, session.ErrPageOutOfRange) {
			return nil, err
		}
		return nil, &paramError{err: err}
	}
	return stateResult{Unit: a.Unit, Page: a.Page, State: st}, nil
}

func (s *Server) handleStateReset(args json.RawMessage) (interface{}, error) {
	var a unitArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Unit == "" {
		return nil, invalidParams("unit is required")
	}
	// page 0 resets every page
	if err := s.store.Reset(a.Unit, a.Page); err != nil {
		return nil, err
	}
	return map[string]interface{}{"unit": a.Unit, "page": a.Page, "reset": true}, nil
}

// === Detection Handlers ===

type detectArgs struct {
	unitArgs
	Apply bool `json:"apply"`
}

type detectResult struct {
	Unit    string                       `json:"unit"`
	Page    int                          `json:"page"`
	Result  *detection.Result            `json:"result"`
	Applied bool                         `json:"applied"`
	State   *geometry.PageTransformState `json:"state,omitempty"`
}

func (s *Server) handleDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	info, err := s.store.Info(a.Unit)
	if err != nil {
		return nil, err
	}
	raster, err := s.store.Raster(ctx, a.Unit, a.Page)
	if err != nil {
		return nil, err
	}
	res, err := s.arbiter.Detect(ctx, raster)
	if err != nil {
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{
		"unit":       a.Unit,
		"page":       a.Page,
		"method":     res.Method,
		"confidence": res.Confidence,
	})
	out := detectResult{Unit: a.Unit, Page: a.Page, Result: res}
	if !a.Apply || res.Method == detection.MethodNone {
		log.WithField("angle", res.Angle).Info("tilt detected")
		return out, nil
	}

	st, err := s.store.State(a.Unit, a.Page)
	if err != nil {
		return nil, err
	}
	st.Rotation = res.Angle
	if res.Offset != nil {
		st.Offset = geometry.Offset{X: res.Offset.X, Y: res.Offset.Y}
		if info.Kind == session.KindPDF {
			// the offset was measured on the raster; PDF states hold points
			st = st.ScaleOffset(72 / s.tuning.Render.DPI)
		}
	}
	st, err = s.store.SetState(a.Unit, a.Page, st)
	if err != nil {
		return nil, err
	}
	out.Applied = true
	out.State = &st
	log.WithField("angle", res.Angle).Info("tilt detected and applied")
	return out, nil
}

// === Export Handlers ===

type exportResult struct {
	Unit     string `json:"unit"`
	Page     int    `json:"page,omitempty"`
	MimeType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
	Path     string `json:"path,omitempty"`
	Data     string `json:"data_base64,omitempty"`
}

func deliver(res exportResult, data []byte, path string) (exportResult, error) {
	res.Bytes = len(data)
	if path == "" {
		res.Data = base64.StdEncoding.EncodeToString(data)
		return res, nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return exportResult{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	res.Path = path
	return res, nil
}

type exportImageArgs struct {
	unitArgs
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleExportImage(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a exportImageArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.check(); err != nil {
		return nil, err
	}
	if a.Format == "" {
		a.Format = string(imaging.FormatPNG)
	}
	format, err := imaging.ParseFormat(a.Format)
	if err != nil || !format.IsRaster() {
		return nil, invalidParams("format must be png, jpg or webp, got %q", a.Format)
	}

	data, err := s.exporter.Image(ctx, a.Unit, a.Page, format)
	if err != nil {
		return nil, err
	}
	return deliver(exportResult{Unit: a.Unit, Page: a.Page, MimeType: format.MimeType()}, data, a.OutputPath)
}

type exportDocumentArgs struct {
	Unit       string `json:"unit"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleExportDocument(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a exportDocumentArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Unit == "" {
		return nil, invalidParams("unit is required")
	}
	data, err := s.exporter.Document(ctx, a.Unit)
	if err != nil {
		return nil, err
	}
	return deliver(exportResult{Unit: a.Unit, MimeType: imaging.FormatPDF.MimeType()}, data, a.OutputPath)
}

type exportAllArgs struct {
	OutputDir string   `json:"output_dir"`
	Format    string   `json:"format"`
	Units     []string `json:"units"`
}

func (s *Server) handleExportAll(ctx context.Context, args json.RawMessage, progress progressFunc) (interface{}, error) {
	var a exportAllArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutputDir == "" {
		return nil, invalidParams("output_dir is required")
	}
	if a.Format == "" {
		a.Format = string(imaging.FormatPDF)
	}
	format, err := imaging.ParseFormat(a.Format)
	if err != nil {
		return nil, &paramError{err: err}
	}

	ids := a.Units
	if len(ids) == 0 {
		for _, u := range s.store.Units() {
			ids = append(ids, u.ID)
		}
	}
	if len(ids) == 0 {
		return nil, invalidParams("no units loaded")
	}

	return s.exporter.Batch(ctx, ids, a.OutputDir, format, func(p export.Progress) {
		msg := fmt.Sprintf("exported %s", p.Unit.ID)
		if p.Unit.Error != "" {
			msg = fmt.Sprintf("failed %s: %s", p.Unit.ID, p.Unit.Error)
		}
		progress(p.Done, p.Total, msg)
	})
}
