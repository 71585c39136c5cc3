// Package detection estimates how far a scanned page is tilted.
//
// Three estimators look at a page in different ways:
//
//   - Lines: Canny edges, a Hough transform restricted to near-horizontal
//     lines, and segment filtering. Fast, and reliable on pages with ruling
//     lines, tables or long text rows.
//   - Text baselines: OCR word boxes grouped into lines; each line's baseline
//     gives one sample. Slow, so it only runs as a fallback.
//   - Contours: the largest bright blob is taken as the paper sheet and a
//     minimum-area rectangle is fitted to it. Coarse, but also yields an
//     offset that re-centres the sheet.
//
// The Arbiter runs them as a fixed fallback chain and always produces an
// answer; when nothing is found the answer is a zero angle with method "none".
//
// # Sign Convention
//
// Images are y-down, so a line that falls to the right has a positive raw
// angle and looks rotated clockwise. Every Result reports the correction to
// apply instead: the negated raw angle, where positive means "rotate
// clockwise". geometry.Apply uses the same convention.
//
// # Angle Clustering
//
// ClusterAngles is shared by the line and text estimators. Samples are sorted
// and split wherever neighbours differ by more than a tolerance; the largest
// group wins (ties go to the lowest values) and is averaged, trimming 20% from
// each end once the group has five or more members.
//
// # Thread Safety
//
// Estimators hold only configuration and may be used concurrently on
// different rasters.
package detection
