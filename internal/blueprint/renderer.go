package blueprint

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPRenderer talks to the external page-render service. The core never
// rasterizes PDFs itself; the service returns the raster plus text runs and
// vector primitives per page.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRenderer creates a renderer client.
func NewHTTPRenderer(baseURL string) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type renderRequest struct {
	PDFBase64        string `json:"pdf_base64"`
	PageIndex        int    `json:"page_index"`
	TargetPxLongSide int    `json:"target_px_long_side"`
}

type renderResponse struct {
	ImageBase64 string      `json:"image_base64"`
	ImageMIME   string      `json:"image_mime"`
	WidthPx     int         `json:"width_px"`
	HeightPx    int         `json:"height_px"`
	DPI         float64     `json:"dpi"`
	TextRuns    []TextRun   `json:"text_runs"`
	VectorPaths []Primitive `json:"vector_paths"`
	PageRect    Rect        `json:"page_rect"`
}

// RenderPage implements PageRenderer over the render service.
func (r *HTTPRenderer) RenderPage(ctx context.Context, pdf []byte, pageIndex int, targetLongSidePx int) (PageImage, []TextRun, []Primitive, Rect, error) {
	payload, err := json.Marshal(renderRequest{
		PDFBase64:        base64.StdEncoding.EncodeToString(pdf),
		PageIndex:        pageIndex,
		TargetPxLongSide: targetLongSidePx,
	})
	if err != nil {
		return PageImage{}, nil, nil, Rect{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return PageImage{}, nil, nil, Rect{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return PageImage{}, nil, nil, Rect{}, fmt.Errorf("render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return PageImage{}, nil, nil, Rect{}, fmt.Errorf("render service returned %d for page %d", resp.StatusCode, pageIndex)
	}

	var decoded renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return PageImage{}, nil, nil, Rect{}, fmt.Errorf("decode render response: %w", err)
	}

	imageBytes, err := base64.StdEncoding.DecodeString(decoded.ImageBase64)
	if err != nil {
		return PageImage{}, nil, nil, Rect{}, fmt.Errorf("decode page raster: %w", err)
	}

	for i := range decoded.TextRuns {
		decoded.TextRuns[i].PageIndex = pageIndex
	}

	img := PageImage{
		PageIndex: pageIndex,
		Bytes:     imageBytes,
		MIMEType:  decoded.ImageMIME,
		WidthPx:   decoded.WidthPx,
		HeightPx:  decoded.HeightPx,
		DPI:       decoded.DPI,
	}
	return img, decoded.TextRuns, decoded.VectorPaths, decoded.PageRect, nil
}
