package server

import "encoding/json"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// asyncTools run in the background and can be cancelled with
// notifications/cancelled.
var asyncTools = map[string]bool{
	"deskew_export_all": true,
}

// isAsync reports whether a tools/call params payload names an async tool.
func isAsync(params json.RawMessage) bool {
	var p struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return false
	}
	return asyncTools[p.Name]
}

var unitProperty = map[string]interface{}{
	"type":        "string",
	"description": "Unit id returned by deskew_load",
}

var pageProperty = map[string]interface{}{
	"type":        "integer",
	"description": "1-based page number. Default 1",
	"minimum":     1,
	"default":     1,
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Session
		{
			Name:        "deskew_load",
			Description: "Load an image (PNG, JPEG, GIF, BMP, TIFF, WebP) or a PDF into the session. Returns the unit id, kind and page count. Every page starts untransformed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image or PDF file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "deskew_unload",
			Description: "Remove a unit from the session and free its memory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
				},
				"required": []string{"unit"},
			},
		},
		{
			Name:        "deskew_info",
			Description: "Report the server version, OCR availability, the active tuning table and the loaded units.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Page state
		{
			Name:        "deskew_state_get",
			Description: "Get the transform state of a page: rotation in degrees (positive is clockwise), offset (x right, y up) and mirroring flags.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"page": pageProperty,
				},
				"required": []string{"unit"},
			},
		},
		{
			Name:        "deskew_state_set",
			Description: "Update the transform state of a page. Only the fields given are changed. rotate_by adds to the current rotation instead of replacing it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"page": pageProperty,
					"rotation": map[string]interface{}{
						"type":        "number",
						"description": "Rotation in degrees, positive is clockwise",
					},
					"rotate_by": map[string]interface{}{
						"type":        "number",
						"description": "Degrees to add to the current rotation",
					},
					"offset_x": map[string]interface{}{
						"type":        "number",
						"description": "Horizontal offset, positive moves right (pixels for images, points for PDFs)",
					},
					"offset_y": map[string]interface{}{
						"type":        "number",
						"description": "Vertical offset, positive moves up (pixels for images, points for PDFs)",
					},
					"flip_horizontal": map[string]interface{}{
						"type":        "boolean",
						"description": "Mirror left to right",
					},
					"flip_vertical": map[string]interface{}{
						"type":        "boolean",
						"description": "Mirror top to bottom",
					},
				},
				"required": []string{"unit"},
			},
		},
		{
			Name:        "deskew_state_reset",
			Description: "Reset a page, or every page of the unit when page is omitted, to no rotation, no offset and no mirroring.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"page": map[string]interface{}{
						"type":        "integer",
						"description": "1-based page number. Omit to reset all pages",
						"minimum":     1,
					},
				},
				"required": []string{"unit"},
			},
		},

		// Detection
		{
			Name:        "deskew_detect",
			Description: "Estimate the tilt of a page from straight edges, OCR text baselines and the page outline. Returns the correction angle, confidence and method ('none' when nothing usable was found). With apply=true the angle, and the re-centring offset when the outline was used, are written into the page state.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"page": pageProperty,
					"apply": map[string]interface{}{
						"type":        "boolean",
						"description": "Write the detected correction into the page state. Default false",
						"default":     false,
					},
				},
				"required": []string{"unit"},
			},
		},

		// Export
		{
			Name:        "deskew_export_image",
			Description: "Render one corrected page as an image. Writes the file when output_path is given, otherwise returns it base64-encoded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"page": pageProperty,
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpg", "webp"},
						"description": "Output format. Default png",
						"default":     "png",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to write the image to",
					},
				},
				"required": []string{"unit"},
			},
		},
		{
			Name:        "deskew_export_document",
			Description: "Produce a corrected PDF of a unit. PDF pages are transformed in place, keeping their size and vector content; an image becomes a one-page PDF. Writes the file when output_path is given, otherwise returns it base64-encoded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unit": unitProperty,
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional absolute path to write the PDF to",
					},
				},
				"required": []string{"unit"},
			},
		},
		{
			Name:        "deskew_export_all",
			Description: "Export every loaded unit (or the given ones) into a directory, one after another. Sends progress notifications when the request carries a progress token and stops early on notifications/cancelled, keeping files already written.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path of the output directory; created if missing",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"pdf", "png", "jpg", "webp"},
						"description": "Output format. Default pdf",
						"default":     "pdf",
					},
					"units": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Unit ids to export. Default all, in load order",
					},
				},
				"required": []string{"output_dir"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
