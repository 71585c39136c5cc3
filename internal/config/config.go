// Package config holds the tuning table shared by the estimators, the arbiter,
// the renderer and the exporters.
//
// Every threshold that influences detection lives here rather than inline in
// algorithm code. Default returns the values the detectors were tuned with;
// Load overlays a YAML file on top of those defaults so individual values can
// be changed without restating the whole table.
//
// # Example
//
//	tuning, err := config.Load("/etc/deskew/tuning.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	est := detection.NewEdgeLineEstimator(tuning.Lines)
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
)

// EnvConfigPath names the environment variable consulted when no --config flag is given.
const EnvConfigPath = "IMAGE_DESKEW_CONFIG"

// Tuning is the complete, named configuration table.
type Tuning struct {
	Lines    LinesTuning    `yaml:"lines" json:"lines"`
	Text     TextTuning     `yaml:"text" json:"text"`
	Contours ContourTuning  `yaml:"contours" json:"contours"`
	Arbiter  ArbiterTuning  `yaml:"arbiter" json:"arbiter"`
	Render   RenderTuning   `yaml:"render" json:"render"`
	Export   ExportSettings `yaml:"export" json:"export"`
}

// LinesTuning configures the edge-line estimator.
type LinesTuning struct {
	// MaxDimension caps the longest image side before edge detection. Zero disables.
	MaxDimension int `yaml:"max_dimension" json:"max_dimension"`

	// EdgeLow and EdgeHigh are the Canny hysteresis thresholds on a 0..255 scale.
	EdgeLow  int `yaml:"edge_low" json:"edge_low"`
	EdgeHigh int `yaml:"edge_high" json:"edge_high"`

	// AngleResolution is the Hough theta bin size in degrees.
	AngleResolution float64 `yaml:"angle_resolution" json:"angle_resolution"`
	// VoteThreshold is the minimum number of collinear edge pixels for a Hough peak.
	VoteThreshold int `yaml:"vote_threshold" json:"vote_threshold"`
	// MinLineLength is the minimum segment length in pixels produced by the Hough step.
	MinLineLength int `yaml:"min_line_length" json:"min_line_length"`
	// MaxLineGap is the largest gap in pixels bridged between collinear fragments.
	MaxLineGap int `yaml:"max_line_gap" json:"max_line_gap"`
	// MaxSegments bounds the number of segments extracted from one image.
	MaxSegments int `yaml:"max_segments" json:"max_segments"`

	// BorderMargin is the fraction of the image dimension treated as scan-bed border.
	BorderMargin float64 `yaml:"border_margin" json:"border_margin"`
	// MinLengthFraction is the minimum segment length as a fraction of image width.
	MinLengthFraction float64 `yaml:"min_length_fraction" json:"min_length_fraction"`
	// AcceptWindow is the largest accepted deviation from horizontal, in degrees.
	AcceptWindow float64 `yaml:"accept_window" json:"accept_window"`
	// MinSamples is the fewest surviving segments that still produce a result.
	MinSamples int `yaml:"min_samples" json:"min_samples"`
	// ClusterTolerance is the largest gap between neighbouring angles in one cluster.
	ClusterTolerance float64 `yaml:"cluster_tolerance" json:"cluster_tolerance"`

	BaseConfidence float64 `yaml:"base_confidence" json:"base_confidence"`
	MidStdDev      float64 `yaml:"mid_std_dev" json:"mid_std_dev"`
	MidStdPenalty  float64 `yaml:"mid_std_penalty" json:"mid_std_penalty"`
	HighStdDev     float64 `yaml:"high_std_dev" json:"high_std_dev"`
	HighStdPenalty float64 `yaml:"high_std_penalty" json:"high_std_penalty"`
	// CountSteps lists sample counts; each one exceeded adds CountBonus.
	CountSteps []int   `yaml:"count_steps" json:"count_steps"`
	CountBonus float64 `yaml:"count_bonus" json:"count_bonus"`
	// NearZeroAngle and NearZeroCap limit confidence for "already straight" results.
	NearZeroAngle float64 `yaml:"near_zero_angle" json:"near_zero_angle"`
	NearZeroCap   float64 `yaml:"near_zero_cap" json:"near_zero_cap"`
}

// TextTuning configures the text-baseline estimator.
type TextTuning struct {
	Language         string  `yaml:"language" json:"language"`
	AcceptWindow     float64 `yaml:"accept_window" json:"accept_window"`
	MinSamples       int     `yaml:"min_samples" json:"min_samples"`
	MinTextChars     int     `yaml:"min_text_chars" json:"min_text_chars"`
	MaxBoxAspect     float64 `yaml:"max_box_aspect" json:"max_box_aspect"`
	ClusterTolerance float64 `yaml:"cluster_tolerance" json:"cluster_tolerance"`
	// LowStdDev and MidStdDev split the confidence bands High, Mid and Low.
	LowStdDev      float64 `yaml:"low_std_dev" json:"low_std_dev"`
	MidStdDev      float64 `yaml:"mid_std_dev" json:"mid_std_dev"`
	HighConfidence float64 `yaml:"high_confidence" json:"high_confidence"`
	MidConfidence  float64 `yaml:"mid_confidence" json:"mid_confidence"`
	LowConfidence  float64 `yaml:"low_confidence" json:"low_confidence"`
}

// ContourTuning configures the contour-alignment estimator.
type ContourTuning struct {
	MaxDimension    int     `yaml:"max_dimension" json:"max_dimension"`
	BinaryThreshold uint8   `yaml:"binary_threshold" json:"binary_threshold"`
	MinAreaFraction float64 `yaml:"min_area_fraction" json:"min_area_fraction"`
	Confidence      float64 `yaml:"confidence" json:"confidence"`
}

// ArbiterTuning holds the fallback chain thresholds.
type ArbiterTuning struct {
	HighThreshold float64 `yaml:"high_threshold" json:"high_threshold"`
	LowThreshold  float64 `yaml:"low_threshold" json:"low_threshold"`
	// UseContours enables the contour estimator as the last fallback.
	UseContours bool `yaml:"use_contours" json:"use_contours"`
}

// RenderTuning configures PDF page rasterisation for detection.
type RenderTuning struct {
	DPI float64 `yaml:"dpi" json:"dpi"`
}

// ExportSettings configures raster output.
type ExportSettings struct {
	JPEGQuality  int     `yaml:"jpeg_quality" json:"jpeg_quality"`
	WebPQuality  float32 `yaml:"webp_quality" json:"webp_quality"`
	WebPLossless bool    `yaml:"webp_lossless" json:"webp_lossless"`
	Background   string  `yaml:"background" json:"background"`
	Resampling   string  `yaml:"resampling" json:"resampling"`
}

// Default returns the tuning table the detectors ship with.
func Default() Tuning {
	return Tuning{
		Lines: LinesTuning{
			MaxDimension:      1200,
			EdgeLow:           50,
			EdgeHigh:          150,
			AngleResolution:   0.1,
			VoteThreshold:     40,
			MinLineLength:     30,
			MaxLineGap:        10,
			MaxSegments:       400,
			BorderMargin:      0.04,
			MinLengthFraction: 0.08,
			AcceptWindow:      15,
			MinSamples:        3,
			ClusterTolerance:  0.3,
			BaseConfidence:    0.7,
			MidStdDev:         1.0,
			MidStdPenalty:     0.1,
			HighStdDev:        2.0,
			HighStdPenalty:    0.2,
			CountSteps:        []int{15, 30},
			CountBonus:        0.1,
			NearZeroAngle:     0.1,
			NearZeroCap:       0.5,
		},
		Text: TextTuning{
			Language:         "eng",
			AcceptWindow:     15,
			MinSamples:       2,
			MinTextChars:     2,
			MaxBoxAspect:     1.0,
			ClusterTolerance: 1.0,
			LowStdDev:        1.0,
			MidStdDev:        3.0,
			HighConfidence:   0.9,
			MidConfidence:    0.65,
			LowConfidence:    0.4,
		},
		Contours: ContourTuning{
			MaxDimension:    800,
			BinaryThreshold: 128,
			MinAreaFraction: 0.10,
			Confidence:      0.5,
		},
		Arbiter: ArbiterTuning{
			HighThreshold: 0.7,
			LowThreshold:  0.3,
			UseContours:   true,
		},
		Render: RenderTuning{
			DPI: 150,
		},
		Export: ExportSettings{
			JPEGQuality:  95,
			WebPQuality:  95,
			WebPLossless: true,
			Background:   "#FFFFFF",
			Resampling:   "bilinear",
		},
	}
}

// Load reads a YAML file and overlays it onto Default.
//
// Keys missing from the file keep their default values. An empty path returns
// the defaults unchanged.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// Validate reports every out-of-range value, joined into one error.
func (t Tuning) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	l := t.Lines
	check(l.EdgeLow >= 0 && l.EdgeLow <= l.EdgeHigh && l.EdgeHigh <= 255, "lines: edge thresholds must satisfy 0 <= low <= high <= 255")
	check(l.AngleResolution > 0 && l.AngleResolution <= 1, "lines: angle_resolution must be in (0, 1]")
	check(l.VoteThreshold > 0, "lines: vote_threshold must be positive")
	check(l.MinSamples >= 1, "lines: min_samples must be at least 1")
	check(l.AcceptWindow > 0 && l.AcceptWindow <= 90, "lines: accept_window must be in (0, 90]")
	check(l.ClusterTolerance > 0, "lines: cluster_tolerance must be positive")
	check(l.BorderMargin >= 0 && l.BorderMargin < 0.5, "lines: border_margin must be in [0, 0.5)")

	x := t.Text
	check(x.AcceptWindow > 0 && x.AcceptWindow <= 45, "text: accept_window must be in (0, 45]")
	check(x.MinSamples >= 1, "text: min_samples must be at least 1")
	check(x.ClusterTolerance > 0, "text: cluster_tolerance must be positive")

	c := t.Contours
	check(c.MinAreaFraction >= 0 && c.MinAreaFraction < 1, "contours: min_area_fraction must be in [0, 1)")
	check(c.Confidence >= 0 && c.Confidence <= 1, "contours: confidence must be in [0, 1]")

	a := t.Arbiter
	check(a.LowThreshold >= 0 && a.LowThreshold <= a.HighThreshold && a.HighThreshold <= 1,
		"arbiter: thresholds must satisfy 0 <= low <= high <= 1")

	check(t.Render.DPI > 0, "render: dpi must be positive")

	e := t.Export
	check(e.JPEGQuality >= 1 && e.JPEGQuality <= 100, "export: jpeg_quality must be in [1, 100]")
	if _, err := geometry.ParseResampling(e.Resampling); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}
	if _, err := imaging.ParseBackground(e.Background); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	}

	return errors.Join(errs...)
}

// PathFromEnv returns the tuning file path from the environment, if set.
func PathFromEnv() string {
	return os.Getenv(EnvConfigPath)
}
