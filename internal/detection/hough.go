package detection

import (
	"math"
	"sort"

	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// traceTolerance is the largest distance in pixels between an edge pixel and
// a Hough line for the pixel to count as support.
const traceTolerance = 1.5

// peakRadius is the rho neighbourhood searched for a stronger bin.
const peakRadius = 2

// houghParams controls segment extraction.
type houghParams struct {
	// resolution is the theta bin size in degrees.
	resolution float64
	// window limits theta to lines within this many degrees of horizontal.
	window float64
	// votes is the minimum accumulator count for a peak.
	votes int
	// minLength is the minimum segment span in pixels.
	minLength float64
	// maxGap splits a line's support wherever consecutive pixels are further apart.
	maxGap float64
	// maxSegments bounds the output.
	maxSegments int
}

type houghPeak struct {
	theta int
	rho   int
	votes int
}

// houghSegments extracts line segments from an edge map with a Hough
// transform limited to near-horizontal lines.
//
// # Algorithm
//
//  1. Voting: every edge pixel votes for each (rho, theta) with theta (the
//     line normal) within window of vertical, i.e. the line within window of
//     horizontal.
//  2. Peaks: for each theta, bins with at least votes that no bin within
//     peakRadius along rho exceeds. Neighbouring theta bins are not
//     suppressed, so one strong line yields several near-identical peaks.
//  3. Tracing: the edge pixels within traceTolerance of a peak's line are
//     ordered along it and split at gaps wider than maxGap.
//  4. Fitting: each piece spanning at least minLength is fitted by least
//     squares and clipped to the projection of its pixels.
//
// Peaks are traced strongest first until maxSegments segments exist.
func houghSegments(edges *imaging.EdgeMap, p houghParams) []LineSegment {
	width, height := edges.Width, edges.Height
	if width == 0 || height == 0 || p.resolution <= 0 {
		return nil
	}

	points := make([]Point, 0)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if edges.Edges[y][x] {
				points = append(points, Point{X: x, Y: y})
			}
		}
	}
	if len(points) < 2 {
		return nil
	}

	numThetas := int(math.Round(2*p.window/p.resolution)) + 1
	cosT := make([]float64, numThetas)
	sinT := make([]float64, numThetas)
	for t := 0; t < numThetas; t++ {
		deg := 90 - p.window + float64(t)*p.resolution
		rad := deg * math.Pi / 180
		cosT[t] = math.Cos(rad)
		sinT[t] = math.Sin(rad)
	}

	maxDist := int(math.Ceil(math.Hypot(float64(width), float64(height))))
	numRhos := 2*maxDist + 1
	accumulator := make([]int32, numThetas*numRhos)

	// Vote in Hough space
	for _, pt := range points {
		fx, fy := float64(pt.X), float64(pt.Y)
		for t := 0; t < numThetas; t++ {
			rho := fx*cosT[t] + fy*sinT[t]
			rhoIdx := int(math.Round(rho)) + maxDist
			if rhoIdx >= 0 && rhoIdx < numRhos {
				accumulator[t*numRhos+rhoIdx]++
			}
		}
	}

	// Find peaks along rho for every theta
	peaks := make([]houghPeak, 0)
	for t := 0; t < numThetas; t++ {
		row := accumulator[t*numRhos : (t+1)*numRhos]
		for r, v := range row {
			if int(v) < p.votes {
				continue
			}
			isMax := true
			for dr := -peakRadius; dr <= peakRadius && isMax; dr++ {
				nr := r + dr
				if dr == 0 || nr < 0 || nr >= numRhos {
					continue
				}
				if row[nr] > v {
					isMax = false
				}
			}
			if isMax {
				peaks = append(peaks, houghPeak{theta: t, rho: r - maxDist, votes: int(v)})
			}
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].votes > peaks[j].votes
	})

	segments := make([]LineSegment, 0)
	for _, peak := range peaks {
		if p.maxSegments > 0 && len(segments) >= p.maxSegments {
			break
		}
		segments = append(segments, traceSegments(points, cosT[peak.theta], sinT[peak.theta], float64(peak.rho), p)...)
	}
	if p.maxSegments > 0 && len(segments) > p.maxSegments {
		segments = segments[:p.maxSegments]
	}
	return segments
}

type projected struct {
	x, y  float64
	along float64
}

// traceSegments collects the support of the line x*cos + y*sin = rho and
// turns each gap-free run of it into a fitted segment.
func traceSegments(points []Point, cosA, sinA, rho float64, p houghParams) []LineSegment {
	support := make([]projected, 0)
	for _, pt := range points {
		fx, fy := float64(pt.X), float64(pt.Y)
		if math.Abs(fx*cosA+fy*sinA-rho) < traceTolerance {
			support = append(support, projected{x: fx, y: fy, along: -fx*sinA + fy*cosA})
		}
	}
	if len(support) < 2 {
		return nil
	}
	sort.Slice(support, func(i, j int) bool { return support[i].along < support[j].along })

	var out []LineSegment
	start := 0
	flush := func(end int) {
		run := support[start:end]
		if len(run) >= 2 && run[len(run)-1].along-run[0].along >= p.minLength {
			if seg, ok := fitSegment(run); ok {
				out = append(out, seg)
			}
		}
	}
	for i := 1; i < len(support); i++ {
		if support[i].along-support[i-1].along > p.maxGap {
			flush(i)
			start = i
		}
	}
	flush(len(support))
	return out
}

// fitSegment fits a total least squares line through pts and returns the
// segment between the extreme projections onto it.
func fitSegment(pts []projected) (LineSegment, bool) {
	var cx, cy float64
	for _, q := range pts {
		cx += q.x
		cy += q.y
	}
	n := float64(len(pts))
	cx /= n
	cy /= n

	var sxx, syy, sxy float64
	for _, q := range pts {
		dx, dy := q.x-cx, q.y-cy
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 && syy == 0 {
		return LineSegment{}, false
	}

	phi := 0.5 * math.Atan2(2*sxy, sxx-syy)
	ux, uy := math.Cos(phi), math.Sin(phi)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, q := range pts {
		d := (q.x-cx)*ux + (q.y-cy)*uy
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	return LineSegment{
		X0: cx + lo*ux, Y0: cy + lo*uy,
		X1: cx + hi*ux, Y1: cy + hi*uy,
	}, true
}
