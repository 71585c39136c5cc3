package detection

import (
	"context"
	"image"
	"math"
	"unicode"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/ocr"
)

// LineRecognizer finds text lines in an image. *ocr.Engine implements it.
type LineRecognizer interface {
	RecognizeLines(ctx context.Context, img image.Image) ([]ocr.Line, error)
}

// TextBaselineEstimator estimates tilt from OCR text lines.
type TextBaselineEstimator struct {
	tuning config.TextTuning
	rec    LineRecognizer
	log    *logrus.Entry
}

// NewTextBaselineEstimator creates an estimator backed by rec.
func NewTextBaselineEstimator(t config.TextTuning, rec LineRecognizer) *TextBaselineEstimator {
	return &TextBaselineEstimator{
		tuning: t,
		rec:    rec,
		log:    logrus.WithField("method", MethodTextBaselines),
	}
}

// Estimate returns nil when fewer than MinSamples text lines are usable.
// OCR failures count as no evidence; only the context's error is returned.
func (e *TextBaselineEstimator) Estimate(ctx context.Context, r *imaging.Raster) (*Result, error) {
	if e.rec == nil {
		return nil, nil
	}
	lines, err := e.rec.RecognizeLines(ctx, r.Image())
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		e.log.WithError(err).Warn("OCR failed, skipping text baselines")
		return nil, nil
	}
	return e.fromLines(lines), nil
}

func (e *TextBaselineEstimator) fromLines(lines []ocr.Line) *Result {
	angles := make([]float64, 0, len(lines))
	for _, l := range lines {
		if !e.usable(l) {
			continue
		}
		a, ok := baselineAngle(l)
		if !ok || math.Abs(a) > e.tuning.AcceptWindow {
			continue
		}
		angles = append(angles, a)
	}

	log := e.log.WithFields(logrus.Fields{"lines": len(lines), "samples": len(angles)})
	if len(angles) < e.tuning.MinSamples {
		log.Debug("not enough text baselines")
		return nil
	}

	clustered, err := ClusterAngles(angles, e.tuning.ClusterTolerance)
	if err != nil {
		return nil
	}

	res := &Result{
		Angle:      correction(clustered),
		Confidence: e.confidence(stdDev(angles)),
		Method:     MethodTextBaselines,
		Samples:    len(angles),
	}
	log.WithFields(logrus.Fields{"angle": res.Angle, "confidence": res.Confidence}).Debug("text estimate")
	return res
}

// usable rejects near-empty lines and boxes taller than they are wide.
func (e *TextBaselineEstimator) usable(l ocr.Line) bool {
	chars := 0
	for _, r := range l.Text {
		if !unicode.IsSpace(r) {
			chars++
		}
	}
	if chars < e.tuning.MinTextChars {
		return false
	}
	w, h := l.Box.Dx(), l.Box.Dy()
	if w <= 0 || h <= 0 {
		return false
	}
	return float64(h)/float64(w) <= e.tuning.MaxBoxAspect
}

func (e *TextBaselineEstimator) confidence(sd float64) float64 {
	switch {
	case sd < e.tuning.LowStdDev:
		return e.tuning.HighConfidence
	case sd < e.tuning.MidStdDev:
		return e.tuning.MidConfidence
	default:
		return e.tuning.LowConfidence
	}
}

// baselineAngle fits a line through the bottom-centre of each word and
// returns its angle from horizontal in degrees. Lines with fewer than two
// words have no measurable baseline.
func baselineAngle(l ocr.Line) (float64, bool) {
	if len(l.Words) < 2 {
		return 0, false
	}
	xs := make([]float64, len(l.Words))
	ys := make([]float64, len(l.Words))
	for i, w := range l.Words {
		xs[i] = float64(w.Box.Min.X+w.Box.Max.X) / 2
		ys[i] = float64(w.Box.Max.Y)
	}
	mx, my := mean(xs), mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	if den == 0 {
		return 0, false
	}
	return math.Atan(num/den) * 180 / math.Pi, true
}
