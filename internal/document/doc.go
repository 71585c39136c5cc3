// Package document re-encodes corrected pages into PDF output.
//
// RotateInPlace rewrites the content streams of an existing PDF so that every
// page with a non-identity transform is drawn rotated, shifted and mirrored
// about its centre while keeping its size and vector content. Assemble builds
// a new PDF from raster pages, one page per image sized to the corrected
// canvas.
package document
