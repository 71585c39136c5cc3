package detection

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/anthonynsimon/bild/segment"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// ContourEstimator estimates tilt and position from the outline of the
// paper sheet, assumed to be the largest bright region of the scan.
type ContourEstimator struct {
	tuning config.ContourTuning
	log    *logrus.Entry
}

// NewContourEstimator creates an estimator with the given tuning.
func NewContourEstimator(t config.ContourTuning) *ContourEstimator {
	return &ContourEstimator{
		tuning: t,
		log:    logrus.WithField("method", MethodContours),
	}
}

// Estimate returns nil when no region covers at least MinAreaFraction of the
// image. The only error it returns is the context's.
func (e *ContourEstimator) Estimate(ctx context.Context, r *imaging.Raster) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.EstimateImage(r.Image()), nil
}

// EstimateImage runs the estimator on any image.
func (e *ContourEstimator) EstimateImage(img image.Image) *Result {
	small, scale := imaging.Downscale(img, e.tuning.MaxDimension)
	bin := segment.Threshold(small, e.tuning.BinaryThreshold)

	b := bin.Bounds()
	width, height := b.Dx(), b.Dy()
	mask := make([][]bool, height)
	for y := 0; y < height; y++ {
		mask[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			mask[y][x] = bin.GrayAt(x+b.Min.X, y+b.Min.Y).Y > 0
		}
	}

	var best *region
	bestArea := 0.0
	for _, reg := range findRegions(mask, width, height) {
		if a := reg.area(); a > bestArea {
			best, bestArea = reg, a
		}
	}

	imageArea := float64(width * height)
	log := e.log.WithField("area_fraction", bestArea/math.Max(imageArea, 1))
	if best == nil || bestArea < e.tuning.MinAreaFraction*imageArea {
		log.Debug("no document contour")
		return nil
	}

	rect, ok := minAreaRect(convexHull(best.outline()))
	if !ok {
		return nil
	}

	angle := normalizeQuarter(rect.angle)
	off := &Offset{
		X: (float64(width)/2 - rect.cx) / scale,
		Y: (rect.cy - float64(height)/2) / scale,
	}
	res := &Result{
		Angle:      correction(angle),
		Confidence: e.tuning.Confidence,
		Method:     MethodContours,
		Offset:     off,
		Samples:    1,
	}
	log.WithFields(logrus.Fields{"angle": res.Angle, "offset_x": off.X, "offset_y": off.Y}).Debug("contour estimate")
	return res
}

// region is a connected foreground component, kept as its horizontal extent per row.
type region struct {
	pixels int
	rows   map[int][2]int
}

// area sums the horizontal extent of every row, so interior holes count as
// covered but the notch of an L or a corner bracket does not.
func (r *region) area() float64 {
	total := 0
	for _, ext := range r.rows {
		total += ext[1] - ext[0] + 1
	}
	return float64(total)
}

// outline returns the pixel corners of the leftmost and rightmost pixel of
// every row. Their convex hull equals the hull of the whole region.
func (r *region) outline() []image.Point {
	pts := make([]image.Point, 0, len(r.rows)*4)
	for y, ext := range r.rows {
		pts = append(pts,
			image.Pt(ext[0], y), image.Pt(ext[0], y+1),
			image.Pt(ext[1]+1, y), image.Pt(ext[1]+1, y+1),
		)
	}
	return pts
}

// findRegions finds 8-connected components of the mask.
func findRegions(mask [][]bool, width, height int) []*region {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	regions := make([]*region, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y][x] && !visited[y][x] {
				reg := &region{rows: make(map[int][2]int)}
				floodFill(mask, visited, x, y, width, height, reg)
				regions = append(regions, reg)
			}
		}
	}
	return regions
}

// floodFill performs iterative flood-fill from a starting point.
//
// Uses a stack-based approach (not recursive) to avoid stack overflow
// on large regions. Uses 8-connectivity (includes diagonal neighbors).
func floodFill(mask, visited [][]bool, startX, startY, width, height int, reg *region) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		reg.pixels++
		if ext, ok := reg.rows[p.Y]; ok {
			if p.X < ext[0] {
				ext[0] = p.X
			}
			if p.X > ext[1] {
				ext[1] = p.X
			}
			reg.rows[p.Y] = ext
		} else {
			reg.rows[p.Y] = [2]int{p.X, p.X}
		}

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// convexHull returns the hull of pts with Andrew's monotone chain, without
// collinear points. Fewer than three distinct points yield what is left.
func convexHull(pts []image.Point) []image.Point {
	if len(pts) < 3 {
		return pts
	}
	sorted := make([]image.Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	cross := func(o, a, b image.Point) int64 {
		return int64(a.X-o.X)*int64(b.Y-o.Y) - int64(a.Y-o.Y)*int64(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(sorted) - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// rotatedRect is a rectangle by centre, side lengths and the angle of its
// first side in degrees.
type rotatedRect struct {
	cx, cy        float64
	width, height float64
	angle         float64
}

// minAreaRect fits the minimum-area enclosing rectangle of a convex polygon
// by rotating calipers: the optimum has one side collinear with a hull edge.
func minAreaRect(hull []image.Point) (rotatedRect, bool) {
	if len(hull) < 3 {
		return rotatedRect{}, false
	}
	best := rotatedRect{}
	bestArea := math.Inf(1)
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		ex, ey := float64(b.X-a.X), float64(b.Y-a.Y)
		l := math.Hypot(ex, ey)
		if l == 0 {
			continue
		}
		ux, uy := ex/l, ey/l
		nx, ny := -uy, ux

		minU, maxU := math.Inf(1), math.Inf(-1)
		minN, maxN := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			px, py := float64(p.X), float64(p.Y)
			u := px*ux + py*uy
			n := px*nx + py*ny
			minU, maxU = math.Min(minU, u), math.Max(maxU, u)
			minN, maxN = math.Min(minN, n), math.Max(maxN, n)
		}
		area := (maxU - minU) * (maxN - minN)
		if area < bestArea {
			bestArea = area
			cu, cn := (minU+maxU)/2, (minN+maxN)/2
			best = rotatedRect{
				cx:     cu*ux + cn*nx,
				cy:     cu*uy + cn*ny,
				width:  maxU - minU,
				height: maxN - minN,
				angle:  math.Atan2(uy, ux) * 180 / math.Pi,
			}
		}
	}
	return best, !math.IsInf(bestArea, 1)
}

// normalizeQuarter folds a rectangle orientation into [-45, 45]. A rectangle
// looks the same every 90 degrees, so its long and short sides are
// interchangeable here.
func normalizeQuarter(deg float64) float64 {
	a := math.Mod(deg, 90)
	if a > 45 {
		a -= 90
	} else if a < -45 {
		a += 90
	}
	return a
}
