package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-deskew-mcp/internal/imaging"
	"github.com/ironsheep/image-deskew-mcp/internal/session"
)

// UnitResult is the outcome of exporting one unit.
type UnitResult struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Files []string `json:"files,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Progress is reported after every unit of a batch.
type Progress struct {
	Done  int        `json:"done"`
	Total int        `json:"total"`
	Unit  UnitResult `json:"unit"`
}

// BatchResult summarises a batch. Cancelled is set when the context ended
// before every unit was processed; files already written stay on disk.
type BatchResult struct {
	Total     int          `json:"total"`
	Exported  []UnitResult `json:"exported"`
	Failed    []UnitResult `json:"failed"`
	Cancelled bool         `json:"cancelled"`
}

// writeUnit exports one unit into dir and returns the paths written, also
// on error. Raster formats write one file per page.
func (e *Exporter) writeUnit(ctx context.Context, info session.Info, dir, base string, format imaging.Format) ([]string, error) {
	if format == imaging.FormatPDF {
		data, err := e.Document(ctx, info.ID)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, base+"_deskewed"+format.Extension())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	var files []string
	for page := 1; page <= info.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		data, err := e.Image(ctx, info.ID, page, format)
		if err != nil {
			return files, err
		}
		name := base + "_deskewed"
		if info.Kind == session.KindPDF {
			name = base + "_p" + strconv.Itoa(page) + "_deskewed"
		}
		path := filepath.Join(dir, name+format.Extension())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return files, fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}

// Batch exports units one after another into dir. A unit that fails is
// recorded and the batch moves on. Cancelling ctx stops the batch at the next
// unit boundary (or inside a unit that is waiting on rendering) and is
// reported through BatchResult.Cancelled rather than as an error.
func (e *Exporter) Batch(ctx context.Context, ids []string, dir string, format imaging.Format, progress func(Progress)) (BatchResult, error) {
	res := BatchResult{Total: len(ids), Exported: []UnitResult{}, Failed: []UnitResult{}}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create output directory: %w", err)
	}

	used := make(map[string]bool)
	for i, id := range ids {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}

		ur := UnitResult{ID: id}
		info, err := e.store.Info(id)
		if err == nil {
			ur.Name = info.Name
			base := stem(info.Name)
			if used[base] {
				base += "_" + id
			}
			used[base] = true
			ur.Files, err = e.writeUnit(ctx, info, dir, base, format)
		}

		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() != nil {
			res.Cancelled = true
			// pages written before the cancel stay on disk
			if len(ur.Files) > 0 {
				ur.Error = "cancelled"
				res.Failed = append(res.Failed, ur)
				if progress != nil {
					progress(Progress{Done: i + 1, Total: len(ids), Unit: ur})
				}
			}
			e.log.WithFields(logrus.Fields{"unit": id, "files": len(ur.Files)}).Info("batch export cancelled")
			break
		}
		if err != nil {
			ur.Error = err.Error()
			res.Failed = append(res.Failed, ur)
			e.log.WithError(err).WithField("unit", id).Warn("unit export failed")
		} else {
			res.Exported = append(res.Exported, ur)
		}
		if progress != nil {
			progress(Progress{Done: i + 1, Total: len(ids), Unit: ur})
		}
	}

	e.log.WithFields(logrus.Fields{
		"exported":  len(res.Exported),
		"failed":    len(res.Failed),
		"cancelled": res.Cancelled,
	}).Info("batch export finished")
	return res, nil
}

func stem(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." {
		return "unit"
	}
	return base
}
