// Package export turns session units into output files: a corrected raster
// for one page, a corrected PDF for a whole unit, or every unit of a session
// in one sequential, cancellable batch.
//
// Offsets in a page state are raster pixels for images and PDF points for
// PDF pages. Rasterising a PDF page scales its offset by dpi/72 so the
// raster output lines up with the in-place PDF output.
package export
