package detection

import (
	"context"
	"image"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// EdgeLineEstimator estimates tilt from straight edges: ruling lines, table
// borders and the tops and bottoms of text rows.
type EdgeLineEstimator struct {
	tuning config.LinesTuning
	log    *logrus.Entry
}

// NewEdgeLineEstimator creates an estimator with the given tuning.
func NewEdgeLineEstimator(t config.LinesTuning) *EdgeLineEstimator {
	return &EdgeLineEstimator{
		tuning: t,
		log:    logrus.WithField("method", MethodLines),
	}
}

// Estimate returns nil when fewer than MinSamples segments survive filtering.
// The only error it returns is the context's.
func (e *EdgeLineEstimator) Estimate(ctx context.Context, r *imaging.Raster) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.EstimateImage(r.Image()), nil
}

// EstimateImage runs the estimator on any image.
func (e *EdgeLineEstimator) EstimateImage(img image.Image) *Result {
	small, _ := imaging.Downscale(img, e.tuning.MaxDimension)
	w, h := small.Bounds().Dx(), small.Bounds().Dy()

	segments := e.Segments(small)
	angles := e.filter(segments, w, h)

	log := e.log.WithFields(logrus.Fields{"segments": len(segments), "samples": len(angles)})
	if len(angles) < e.tuning.MinSamples {
		log.Debug("not enough line samples")
		return nil
	}

	clustered, err := ClusterAngles(angles, e.tuning.ClusterTolerance)
	if err != nil {
		return nil
	}

	res := &Result{
		Angle:      correction(clustered),
		Confidence: e.confidence(clustered, angles),
		Method:     MethodLines,
		Samples:    len(angles),
	}
	log.WithFields(logrus.Fields{"angle": res.Angle, "confidence": res.Confidence}).Debug("line estimate")
	return res
}

// Segments returns the raw near-horizontal segments found in img, before
// border, length and angle filtering. img is used at its own size.
func (e *EdgeLineEstimator) Segments(img image.Image) []LineSegment {
	edges := imaging.CannyEdges(imaging.ToGray(img), e.tuning.EdgeLow, e.tuning.EdgeHigh)
	return houghSegments(edges, houghParams{
		resolution:  e.tuning.AngleResolution,
		window:      e.tuning.AcceptWindow,
		votes:       e.tuning.VoteThreshold,
		minLength:   float64(e.tuning.MinLineLength),
		maxGap:      float64(e.tuning.MaxLineGap),
		maxSegments: e.tuning.MaxSegments,
	})
}

// filter drops segments near the border, short segments and steep segments,
// returning the angles of the rest.
func (e *EdgeLineEstimator) filter(segments []LineSegment, width, height int) []float64 {
	mx := e.tuning.BorderMargin * float64(width)
	my := e.tuning.BorderMargin * float64(height)
	minLen := e.tuning.MinLengthFraction * float64(width)

	inside := func(x, y float64) bool {
		return x >= mx && x <= float64(width-1)-mx && y >= my && y <= float64(height-1)-my
	}

	angles := make([]float64, 0, len(segments))
	for _, s := range segments {
		if !inside(s.X0, s.Y0) || !inside(s.X1, s.Y1) {
			continue
		}
		if s.Length() < minLen {
			continue
		}
		a := s.AngleDegrees()
		if math.IsNaN(a) || math.Abs(a) > e.tuning.AcceptWindow {
			continue
		}
		angles = append(angles, a)
	}
	return angles
}

// confidence scores a clustered angle from the spread and count of the raw samples.
func (e *EdgeLineEstimator) confidence(angle float64, samples []float64) float64 {
	t := e.tuning
	c := t.BaseConfidence

	sd := stdDev(samples)
	if sd > t.HighStdDev {
		c -= t.HighStdPenalty
	} else if sd > t.MidStdDev {
		c -= t.MidStdPenalty
	}

	for _, step := range t.CountSteps {
		if len(samples) > step {
			c += t.CountBonus
		}
	}

	c = clamp01(c)
	if math.Abs(angle) < t.NearZeroAngle {
		c = math.Min(c, t.NearZeroCap)
	}
	return c
}
