package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/document"
	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/render"
)

var (
	// ErrUnknownUnit is returned for an id that was never loaded or was unloaded.
	ErrUnknownUnit = errors.New("unknown unit")

	// ErrPageOutOfRange is returned for a page number outside 1..Pages.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Kind tells images and PDFs apart.
type Kind string

const (
	KindImage Kind = "image"
	KindPDF   Kind = "pdf"
)

// Info describes a loaded unit without exposing its bytes.
type Info struct {
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Name  string `json:"name"`
	Path  string `json:"path,omitempty"`
	Pages int    `json:"pages"`
	Bytes int    `json:"bytes"`
}

// Snapshot is a consistent copy of a unit taken for export. Data is shared
// with the store and must not be modified; States is a private copy indexed
// by page-1.
type Snapshot struct {
	Info   Info
	Data   []byte
	States []geometry.PageTransformState
}

type unit struct {
	info   Info
	data   []byte
	states []geometry.PageTransformState
}

// Store is the set of units loaded in one session.
//
// Store is safe for concurrent use. Page states are always handed out as
// copies, so callers can never change a unit's state except through SetState
// and Reset. PDF pages are rasterised through the Rasterizer, which callers
// share with anything else that renders.
type Store struct {
	mu     sync.RWMutex
	units  map[string]*unit
	order  []string
	nextID int

	rasterizer render.Rasterizer
	log        *logrus.Entry
}

// NewStore creates an empty store. r renders PDF pages; it may be nil if
// only images will be loaded.
func NewStore(r render.Rasterizer) *Store {
	return &Store{
		units:      make(map[string]*unit),
		rasterizer: r,
		log:        logrus.WithField("component", "session"),
	}
}

// LoadFile reads a file and adds it as a new unit.
func (s *Store) LoadFile(ctx context.Context, path string) (Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	info, err := s.Load(ctx, filepath.Base(path), data)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	if u, ok := s.units[info.ID]; ok {
		u.info.Path = path
		info = u.info
	}
	s.mu.Unlock()
	return info, nil
}

// Load adds data as a new unit named name. PDFs are recognised by their
// header; anything else must decode as an image. Every page starts at the
// identity state.
func (s *Store) Load(ctx context.Context, name string, data []byte) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	u := &unit{data: data}
	if isPDF(data) {
		pages, err := document.Pages(data)
		if err != nil {
			return Info{}, &imaging.DecodeError{MimeType: "application/pdf", Err: err}
		}
		if len(pages) == 0 {
			return Info{}, &imaging.DecodeError{MimeType: "application/pdf", Err: errors.New("document has no pages")}
		}
		u.info = Info{Kind: KindPDF, Pages: len(pages)}
	} else {
		if _, err := imaging.Decode(data); err != nil {
			return Info{}, err
		}
		u.info = Info{Kind: KindImage, Pages: 1}
	}
	u.info.Name = name
	u.info.Bytes = len(data)
	u.states = make([]geometry.PageTransformState, u.info.Pages)
	for i := range u.states {
		u.states[i] = geometry.Identity()
	}

	s.mu.Lock()
	s.nextID++
	u.info.ID = "u" + strconv.Itoa(s.nextID)
	s.units[u.info.ID] = u
	s.order = append(s.order, u.info.ID)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"unit": u.info.ID, "kind": u.info.Kind, "pages": u.info.Pages}).Info("unit loaded")
	return u.info, nil
}

func isPDF(data []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(data[:min(len(data), 1024)], "\x00\t\r\n "), []byte("%PDF-"))
}

// Units lists every loaded unit in load order.
func (s *Store) Units() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.units[id].info)
	}
	return out
}

// Info returns the description of one unit.
func (s *Store) Info(id string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	return u.info, nil
}

func (s *Store) lookup(id string, page int) (*unit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	if page < 1 || page > u.info.Pages {
		return nil, fmt.Errorf("%w: page %d of %s (has %d)", ErrPageOutOfRange, page, id, u.info.Pages)
	}
	return u, nil
}

// State returns a copy of one page's transform state.
func (s *Store) State(id string, page int) (geometry.PageTransformState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, err := s.lookup(id, page)
	if err != nil {
		return geometry.PageTransformState{}, err
	}
	return u.states[page-1], nil
}

// SetState replaces one page's transform state. The rotation is normalised
// into (-180, 180]; non-finite values are rejected.
func (s *Store) SetState(id string, page int, st geometry.PageTransformState) (geometry.PageTransformState, error) {
	if err := st.Validate(); err != nil {
		return geometry.PageTransformState{}, err
	}
	st = st.Normalized()

	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.lookup(id, page)
	if err != nil {
		return geometry.PageTransformState{}, err
	}
	u.states[page-1] = st
	s.log.WithFields(logrus.Fields{"unit": id, "page": page, "rotation": st.Rotation}).Debug("state updated")
	return st, nil
}

// Reset returns one page, or every page when page is 0, to the identity.
func (s *Store) Reset(id string, page int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if page == 0 {
		u, ok := s.units[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownUnit, id)
		}
		for i := range u.states {
			u.states[i] = geometry.Identity()
		}
		return nil
	}
	u, err := s.lookup(id, page)
	if err != nil {
		return err
	}
	u.states[page-1] = geometry.Identity()
	return nil
}

// Unload drops a unit.
func (s *Store) Unload(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	delete(s.units, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.log.WithField("unit", id).Info("unit unloaded")
	return nil
}

// Snapshot copies a unit for export.
func (s *Store) Snapshot(id string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.units[id]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	return Snapshot{
		Info:   u.info,
		Data:   u.data,
		States: append([]geometry.PageTransformState(nil), u.states...),
	}, nil
}

// Raster decodes one page. Images are decoded from their bytes and PDF pages
// rendered through the Rasterizer on every call; nothing is kept, so the
// caller owns the result.
func (s *Store) Raster(ctx context.Context, id string, page int) (*imaging.Raster, error) {
	s.mu.RLock()
	u, err := s.lookup(id, page)
	if err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	kind, data := u.info.Kind, u.data
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if kind == KindImage {
		return imaging.Decode(data)
	}
	if s.rasterizer == nil {
		return nil, errors.New("no PDF rasterizer configured")
	}
	return s.rasterizer.RenderPage(ctx, data, page)
}
