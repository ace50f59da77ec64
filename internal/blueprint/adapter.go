package blueprint

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"heatload_backend/platform/apperr"
)

const (
	// MaxPages is the hard page-count ceiling; commercial sheet sets beyond
	// this are rejected rather than ground through.
	MaxPages = 100

	// LargeFileWarnBytes triggers a non-fatal warning in the document.
	LargeFileWarnBytes = 20 << 20

	// TargetLongSidePx is the requested raster long side. Renderers may land
	// anywhere in [1400, 2000].
	TargetLongSidePx = 1700

	// renderTimeout bounds a single page render.
	renderTimeout = 5 * time.Second

	// renderRetries is how many times a failed page render is retried with
	// exponential backoff.
	renderRetries = 2
)

// PageRenderer is the collaborator that rasterizes pages and extracts text
// runs and vector primitives. The core never renders PDFs itself; production
// wires a renderer process, tests wire fixtures.
type PageRenderer interface {
	RenderPage(ctx context.Context, pdf []byte, pageIndex int, targetLongSidePx int) (PageImage, []TextRun, []Primitive, Rect, error)
}

// Adapter opens PDF documents and exposes their normalized page structures.
type Adapter struct {
	renderer PageRenderer
}

// NewAdapter creates an adapter around a page renderer.
func NewAdapter(renderer PageRenderer) *Adapter {
	return &Adapter{renderer: renderer}
}

// Open validates the PDF and loads every page through the renderer.
// Returns SourceUnreadable for encrypted, header-invalid, zero-page, or
// oversized documents.
func (a *Adapter) Open(ctx context.Context, pdf []byte) (*Document, error) {
	pageCount, err := validatePDF(pdf)
	if err != nil {
		return nil, err
	}

	doc := &Document{Pages: make([]Page, 0, pageCount)}
	if len(pdf) > LargeFileWarnBytes {
		doc.Warnings = append(doc.Warnings,
			fmt.Sprintf("large upload: %d MB, processing may be slow", len(pdf)>>20))
	}

	for i := 0; i < pageCount; i++ {
		page, err := a.loadPage(ctx, pdf, i)
		if err != nil {
			// A page that cannot be rendered degrades the run but does not
			// abort it; downstream extractors work with what loaded.
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("page %d unreadable: %v", i, err))
			continue
		}
		doc.Pages = append(doc.Pages, page)
	}

	if len(doc.Pages) == 0 {
		return nil, apperr.SourceUnreadable("no pages could be loaded").WithOp("blueprint.Open")
	}
	return doc, nil
}

func (a *Adapter) loadPage(ctx context.Context, pdf []byte, index int) (Page, error) {
	var lastErr error
	backoff := 250 * time.Millisecond

	for attempt := 0; attempt <= renderRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Page{}, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		renderCtx, cancel := context.WithTimeout(ctx, renderTimeout)
		img, runs, prims, rect, err := a.renderer.RenderPage(renderCtx, pdf, index, TargetLongSidePx)
		cancel()
		if err == nil {
			return Page{
				Index:    index,
				Rect:     rect,
				Image:    img,
				TextRuns: runs,
				Vectors:  VectorPath{PageIndex: index, Primitives: prims},
			}, nil
		}
		lastErr = err
	}
	return Page{}, lastErr
}

// validatePDF runs pdfcpu structural validation and returns the page count.
func validatePDF(pdf []byte) (int, error) {
	if len(pdf) == 0 {
		return 0, apperr.SourceUnreadable("empty document")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		return 0, apperr.SourceUnreadable("invalid PDF header")
	}

	conf := model.NewDefaultConfiguration()
	rctx, err := api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindSourceUnreadable, "document cannot be parsed", err)
	}
	if rctx.E != nil {
		return 0, apperr.SourceUnreadable("document is encrypted")
	}
	if rctx.PageCount == 0 {
		return 0, apperr.SourceUnreadable("document has no pages")
	}
	if rctx.PageCount > MaxPages {
		return 0, apperr.SourceUnreadable(
			fmt.Sprintf("document has %d pages, maximum is %d", rctx.PageCount, MaxPages))
	}
	return rctx.PageCount, nil
}
