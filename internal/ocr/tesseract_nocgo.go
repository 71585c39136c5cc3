//go:build !cgo

package ocr

import "fmt"

func newBackend(language string) (backend, error) {
	return nil, fmt.Errorf("%w: built without cgo (language %s)", ErrUnavailable, language)
}
