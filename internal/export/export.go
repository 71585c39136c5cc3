package export

import (
	"context"
	"fmt"
	"image/color"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/config"
	"github.com/ironsheep/image-deskew-mcp/internal/document"
	"github.com/ironsheep/image-deskew-mcp/internal/geometry"
	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/session"
)

// Creator is written into assembled PDFs.
const Creator = "image-deskew-mcp"

// Exporter produces corrected output for units held in a session store.
type Exporter struct {
	store    *session.Store
	settings config.ExportSettings
	dpi      float64
	log      *logrus.Entry
}

// NewExporter creates an exporter. dpi must match the resolution the store's
// rasterizer renders PDF pages at.
func NewExporter(store *session.Store, settings config.ExportSettings, dpi float64) *Exporter {
	return &Exporter{
		store:    store,
		settings: settings,
		dpi:      dpi,
		log:      logrus.WithField("component", "export"),
	}
}

func (e *Exporter) applyOptions(format imaging.Format) (geometry.ApplyOptions, color.NRGBA, error) {
	res, err := geometry.ParseResampling(e.settings.Resampling)
	if err != nil {
		return geometry.ApplyOptions{}, color.NRGBA{}, err
	}
	bg, err := imaging.ParseBackground(e.settings.Background)
	if err != nil {
		return geometry.ApplyOptions{}, color.NRGBA{}, err
	}
	opts := geometry.ApplyOptions{Resampling: res}
	// formats without alpha get the background drawn in; the rest stay transparent
	if format == imaging.FormatJPEG && bg.A != 0 {
		opts.Background = bg
	}
	return opts, bg, nil
}

// Image transforms one page (1-based) and encodes it as a raster format.
func (e *Exporter) Image(ctx context.Context, id string, page int, format imaging.Format) ([]byte, error) {
	if !format.IsRaster() {
		return nil, fmt.Errorf("format %q is not a raster format", format)
	}
	info, err := e.store.Info(id)
	if err != nil {
		return nil, err
	}
	st, err := e.store.State(id, page)
	if err != nil {
		return nil, err
	}
	raster, err := e.store.Raster(ctx, id, page)
	if err != nil {
		return nil, err
	}
	if info.Kind == session.KindPDF {
		st = st.ScaleOffset(e.dpi / 72)
	}

	opts, bg, err := e.applyOptions(format)
	if err != nil {
		return nil, err
	}
	out := geometry.Apply(raster.Image(), st, opts)
	data, err := imaging.Encode(out, format, imaging.EncodeOptions{
		JPEGQuality:  e.settings.JPEGQuality,
		WebPQuality:  e.settings.WebPQuality,
		WebPLossless: e.settings.WebPLossless,
		Background:   bg,
	})
	if err != nil {
		return nil, &document.CodecError{Op: "encode", Err: err}
	}

	e.log.WithFields(logrus.Fields{"unit": id, "page": page, "format": format, "bytes": len(data)}).Debug("page exported")
	return data, nil
}

// Document produces a corrected PDF of a whole unit. PDFs are transformed in
// place; images become a one-page PDF sized to the corrected canvas.
func (e *Exporter) Document(ctx context.Context, id string) ([]byte, error) {
	snap, err := e.store.Snapshot(id)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch snap.Info.Kind {
	case session.KindPDF:
		states := make(map[int]geometry.PageTransformState, len(snap.States))
		for i, st := range snap.States {
			states[i+1] = st
		}
		data, err = document.RotateInPlace(snap.Data, states)
	default:
		raster, rerr := e.store.Raster(ctx, id, 1)
		if rerr != nil {
			return nil, rerr
		}
		opts, _, oerr := e.applyOptions(imaging.FormatPNG)
		if oerr != nil {
			return nil, oerr
		}
		data, err = document.Assemble([]document.AssemblyPage{{Image: raster.Image(), State: snap.States[0]}},
			document.AssembleOptions{Apply: opts, Creator: Creator})
	}
	if err != nil {
		return nil, err
	}

	e.log.WithFields(logrus.Fields{"unit": id, "kind": snap.Info.Kind, "bytes": len(data)}).Debug("document exported")
	return data, nil
}
