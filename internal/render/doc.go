// Package render serialises page rasterisation.
//
// A Queue runs jobs one at a time, in the order they were submitted, on a
// single worker goroutine. Each session owns one Queue and hands it to
// anything that needs the shared rendering engine, so pages rendered for
// detection and for export never interleave.
//
// PDFRenderer rasterises PDF pages with MuPDF (go-fitz) through a Queue.
package render
