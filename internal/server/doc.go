// Package server implements the MCP (Model Context Protocol) server for
// deskewing scanned images and PDFs.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//   - notifications/cancelled: Cancel a running deskew_export_all
//
// # Available Tools
//
// Session:
//   - deskew_load: Load an image or PDF and get a unit id
//   - deskew_unload: Drop a unit
//   - deskew_info: Versions, OCR availability and tuning
//
// Page state:
//   - deskew_state_get / deskew_state_set / deskew_state_reset
//
// Detection:
//   - deskew_detect: Estimate tilt, optionally writing it into the state
//
// Export:
//   - deskew_export_image: One corrected page as PNG, JPEG or WebP
//   - deskew_export_document: A corrected PDF of one unit
//   - deskew_export_all: Every unit into a directory, with progress
//
// # Session State
//
// Each server holds one session: the loaded units, the transform state of
// every page and the rendered PDF pages. All PDF rendering goes through one
// FIFO render queue. Nothing is persisted.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses with:
//   - code: -32602 for bad arguments, unknown units and out-of-range pages
//   - code: -32000 for any other tool failure (unreadable files, codec errors)
//   - data: the Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Tuning: config.Default()})
//	defer srv.Close()
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
