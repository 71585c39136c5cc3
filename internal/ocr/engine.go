package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
)

// ErrUnavailable is returned when no Tesseract backend could be loaded.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Word is a single recognised word.
type Word struct {
	Text string `json:"text"`

	// Box is the word's bounding box in image pixels.
	Box image.Rectangle `json:"box"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// Line is a text line: the words Tesseract placed in the same block,
// paragraph and line, ordered left to right.
type Line struct {
	Text  string          `json:"text"`
	Box   image.Rectangle `json:"box"`
	Words []Word          `json:"words"`
}

// Info describes the OCR subsystem for diagnostics.
type Info struct {
	Available bool   `json:"available"`
	Ready     bool   `json:"ready"`
	Version   string `json:"version,omitempty"`
	Language  string `json:"language"`
	Backend   string `json:"backend"`
	Error     string `json:"error,omitempty"`
}

// box is a word box as reported by a backend, with its layout position.
type box struct {
	text  string
	rect  image.Rectangle
	conf  float64
	block int
	par   int
	line  int
	word  int
}

// backend is the recognition engine behind an Engine.
type backend interface {
	recognize(png []byte) ([]box, error)
	version() string
	close() error
}

// Engine recognises text lines. Create one with NewEngine.
type Engine struct {
	language string
	log      *logrus.Entry

	ready   chan struct{}
	initErr error
	backend backend

	mu sync.Mutex
}

// NewEngine starts loading Tesseract for language in the background and
// returns immediately.
func NewEngine(language string) *Engine {
	return startEngine(language, func() (backend, error) { return newBackend(language) })
}

func startEngine(language string, load func() (backend, error)) *Engine {
	e := &Engine{
		language: language,
		log:      logrus.WithField("component", "ocr"),
		ready:    make(chan struct{}),
	}
	go func() {
		defer close(e.ready)
		b, err := load()
		if err != nil {
			e.initErr = err
			e.log.WithError(err).Warn("OCR engine failed to initialise")
			return
		}
		e.backend = b
		e.log.WithField("version", b.version()).Debug("OCR engine ready")
	}()
	return e
}

// Ready returns a channel that is closed once initialisation has finished.
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

// Wait blocks until initialisation has finished and returns its error, or
// returns ctx.Err() if the context ends first.
func (e *Engine) Wait(ctx context.Context) error {
	select {
	case <-e.ready:
		return e.initErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RecognizeLines runs OCR over img and returns its text lines.
//
// Lines without any non-blank word are dropped. The returned error wraps
// ErrUnavailable when the engine could not be initialised.
func (e *Engine) RecognizeLines(ctx context.Context, img image.Image) ([]Line, error) {
	if err := e.Wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	e.mu.Lock()
	boxes, err := e.backend.recognize(buf.Bytes())
	e.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Tesseract reports boxes relative to the encoded image
	off := img.Bounds().Min
	for i := range boxes {
		boxes[i].rect = boxes[i].rect.Add(off)
	}
	return groupLines(boxes), nil
}

// Info reports availability without blocking on initialisation.
func (e *Engine) Info() Info {
	info := Info{Language: e.language, Backend: "gosseract"}
	select {
	case <-e.ready:
	default:
		info.Error = "initialising"
		return info
	}
	info.Ready = true
	if e.initErr != nil {
		info.Error = e.initErr.Error()
		return info
	}
	info.Available = true
	info.Version = e.backend.version()
	return info
}

// Close releases the Tesseract client once initialisation has finished.
func (e *Engine) Close() error {
	<-e.ready
	if e.backend == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend.close()
}

// groupLines collects word boxes into lines keyed by (block, paragraph, line).
// Lines come out in reading order, words left to right.
func groupLines(boxes []box) []Line {
	type key struct{ block, par, line int }
	grouped := make(map[key][]box)
	var order []key
	for _, b := range boxes {
		if strings.TrimSpace(b.text) == "" {
			continue
		}
		k := key{b.block, b.par, b.line}
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], b)
	}

	sort.SliceStable(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.block != b.block {
			return a.block < b.block
		}
		if a.par != b.par {
			return a.par < b.par
		}
		return a.line < b.line
	})

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		words := grouped[k]
		sort.SliceStable(words, func(i, j int) bool {
			return words[i].rect.Min.X < words[j].rect.Min.X
		})

		line := Line{Words: make([]Word, 0, len(words))}
		texts := make([]string, 0, len(words))
		for i, w := range words {
			line.Words = append(line.Words, Word{Text: w.text, Box: w.rect, Confidence: w.conf})
			texts = append(texts, w.text)
			if i == 0 {
				line.Box = w.rect
			} else {
				line.Box = line.Box.Union(w.rect)
			}
		}
		line.Text = strings.Join(texts, " ")
		lines = append(lines, line)
	}
	return lines
}
