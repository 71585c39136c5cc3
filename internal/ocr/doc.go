// Package ocr provides text-line recognition using Tesseract.
//
// The package wraps the Tesseract OCR engine (via gosseract/v2). It is used as
// one signal for tilt detection: words are grouped into text lines whose
// bounding boxes feed the baseline estimator.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// TESSDATA_PREFIX is honoured when set. Binaries built without cgo get an
// Engine whose initialisation fails with ErrUnavailable.
//
// # Initialisation
//
// Loading Tesseract takes a noticeable amount of time, so NewEngine returns
// immediately and initialises in the background. Ready returns a channel that
// is closed once initialisation has finished (successfully or not), and Wait
// blocks until then and returns the initialisation error.
//
// # Thread Safety
//
// An Engine owns a single Tesseract client. RecognizeLines may be called from
// several goroutines; calls are serialised internally.
package ocr
