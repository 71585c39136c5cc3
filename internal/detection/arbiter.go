package detection

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// Estimator produces a tilt estimate for a raster, or nil for no evidence.
type Estimator interface {
	Estimate(ctx context.Context, r *imaging.Raster) (*Result, error)
}

// Arbiter runs the estimators as a fixed fallback chain:
//
//  1. Lines. A result at or above HighThreshold is returned at once, and the
//     text estimator never runs.
//  2. Text baselines. Any result is returned.
//  3. The line result again, if it reached LowThreshold.
//  4. Contours, when enabled. Any result is returned.
//  5. A zero angle with method "none".
//
// Any estimator may be nil, which counts as no evidence.
type Arbiter struct {
	Lines    Estimator
	Text     Estimator
	Contours Estimator

	tuning config.ArbiterTuning
	log    *logrus.Entry
}

// NewArbiter creates an arbiter over the given estimators.
func NewArbiter(t config.ArbiterTuning, lines, text, contours Estimator) *Arbiter {
	return &Arbiter{
		Lines:    lines,
		Text:     text,
		Contours: contours,
		tuning:   t,
		log:      logrus.WithField("component", "arbiter"),
	}
}

// NewDefaultArbiter wires the three built-in estimators. rec may be nil when
// OCR is not available.
func NewDefaultArbiter(t config.Tuning, rec LineRecognizer) *Arbiter {
	var text Estimator
	if rec != nil {
		text = NewTextBaselineEstimator(t.Text, rec)
	}
	return NewArbiter(t.Arbiter,
		NewEdgeLineEstimator(t.Lines),
		text,
		NewContourEstimator(t.Contours),
	)
}

// Detect returns the chosen estimate. It never fails for lack of evidence;
// the only error is the context's.
func (a *Arbiter) Detect(ctx context.Context, r *imaging.Raster) (*Result, error) {
	lines, err := a.run(ctx, a.Lines, MethodLines, r)
	if err != nil {
		return nil, err
	}
	if lines != nil && lines.Confidence >= a.tuning.HighThreshold {
		return a.chose(lines), nil
	}

	text, err := a.run(ctx, a.Text, MethodTextBaselines, r)
	if err != nil {
		return nil, err
	}
	if text != nil {
		return a.chose(text), nil
	}

	if lines != nil && lines.Confidence >= a.tuning.LowThreshold {
		return a.chose(lines), nil
	}

	if a.tuning.UseContours {
		contours, err := a.run(ctx, a.Contours, MethodContours, r)
		if err != nil {
			return nil, err
		}
		if contours != nil {
			return a.chose(contours), nil
		}
	}

	a.log.Debug("no usable estimate, leaving angle at 0")
	return &Result{Method: MethodNone}, nil
}

// DetectTiltAngle returns the correction angle in degrees, or 0 when nothing
// was detected or the context ended. The result is always finite.
func (a *Arbiter) DetectTiltAngle(ctx context.Context, r *imaging.Raster) float64 {
	res, err := a.Detect(ctx, r)
	if err != nil || res == nil || math.IsNaN(res.Angle) || math.IsInf(res.Angle, 0) {
		return 0
	}
	return res.Angle
}

// run calls est and turns estimator failures into absence. Context errors
// are passed through so the chain stops.
func (a *Arbiter) run(ctx context.Context, est Estimator, m Method, r *imaging.Raster) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if est == nil {
		return nil, nil
	}
	res, err := est.Estimate(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.log.WithError(err).WithField("method", m).Warn("estimator failed")
		return nil, nil
	}
	if res != nil && (math.IsNaN(res.Angle) || math.IsInf(res.Angle, 0)) {
		a.log.WithField("method", m).Warn("estimator returned a non-finite angle")
		return nil, nil
	}
	return res, nil
}

func (a *Arbiter) chose(res *Result) *Result {
	a.log.WithFields(logrus.Fields{
		"method":     res.Method,
		"angle":      res.Angle,
		"confidence": res.Confidence,
	}).Debug("estimate chosen")
	return res
}
