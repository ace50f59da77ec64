// Package vision is the boundary to the external vision provider. The
// provider is a capability passed into the pipeline, never assumed present:
// every failure degrades the run to rule-extractor-only operation.
package vision

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/pages"
	"heatload_backend/platform/logger"
)

// ErrUnavailable is returned when every configured provider/model failed.
// Non-fatal: the pipeline continues with rule extractors only.
var ErrUnavailable = errors.New("vision: no provider produced a valid takeoff")

// RoomHint is one room as reported by the vision provider. Center
// coordinates are in feet from the plan origin when the model reports them;
// zero means unknown.
type RoomHint struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"`
	AreaFt2     float64 `json:"area_ft2"`
	WidthFt     float64 `json:"width_ft"`
	HeightFt    float64 `json:"height_ft"`
	CenterXFt   float64 `json:"center_x_ft,omitempty"`
	CenterYFt   float64 `json:"center_y_ft,omitempty"`
	FloorIndex  int     `json:"floor_index"`
	WindowCount int     `json:"window_count"`
	Confidence  float64 `json:"confidence"`
}

// EnvelopeHints are envelope specs the provider read off the sheets.
type EnvelopeHints struct {
	WallR        float64 `json:"wall_r,omitempty"`
	CeilingR     float64 `json:"ceiling_r,omitempty"`
	FloorR       float64 `json:"floor_r,omitempty"`
	WindowU      float64 `json:"window_u,omitempty"`
	WindowSHGC   float64 `json:"window_shgc,omitempty"`
	ACH50        float64 `json:"ach50,omitempty"`
	DuctLocation string  `json:"duct_location,omitempty"`
	Foundation   string  `json:"foundation,omitempty"`
}

// Takeoff is the validated document returned by a provider.
type Takeoff struct {
	FloorAnalysis    string        `json:"floor_analysis"`
	Rooms            []RoomHint    `json:"rooms"`
	Envelope         EnvelopeHints `json:"envelope_hints"`
	ScaleHintPxPerFt float64       `json:"scale_hint,omitempty"`
	Confidence       float64       `json:"confidence"`
	ModelID          string        `json:"model_id"`
}

// Request is what gets sent to a provider.
type Request struct {
	Images  []EncodedImage
	Zip     string
	Prompt  string
	Timeout time.Duration
}

// EncodedImage is a compressed page raster ready for upload.
type EncodedImage struct {
	MIMEType string
	Data     []byte
}

// Provider is one vision backend (a specific model). Implementations must
// honor ctx cancellation.
type Provider interface {
	ModelID() string
	Analyze(ctx context.Context, req Request) (*Takeoff, error)
}

// Analyzer drives an ordered provider fallback list under a shared
// concurrency bound.
type Analyzer struct {
	providers   []Provider
	perCall     time.Duration
	totalBudget time.Duration
	sem         *semaphore.Weighted
	log         *logger.Logger
}

// NewAnalyzer builds an analyzer. concurrency bounds in-flight provider calls
// per worker process.
func NewAnalyzer(providers []Provider, perCall, totalBudget time.Duration, concurrency int, log *logger.Logger) *Analyzer {
	if concurrency <= 0 {
		concurrency = 2
	}
	if perCall <= 0 {
		perCall = 120 * time.Second
	}
	if totalBudget <= 0 {
		totalBudget = 240 * time.Second
	}
	return &Analyzer{
		providers:   providers,
		perCall:     perCall,
		totalBudget: totalBudget,
		sem:         semaphore.NewWeighted(int64(concurrency)),
		log:         log,
	}
}

// Enabled reports whether any provider is configured.
func (a *Analyzer) Enabled() bool { return len(a.providers) > 0 }

// Analyze selects up to five page images (floor plans first, largest first),
// compresses them, and walks the provider list until one returns a valid
// takeoff. There is no retry on the same model; a failure falls through to
// the next provider.
func (a *Analyzer) Analyze(ctx context.Context, doc *blueprint.Document, classifications []pages.Classification, zip string) (*Takeoff, error) {
	if !a.Enabled() {
		return nil, ErrUnavailable
	}

	selected := SelectPages(doc, classifications, maxImagesPerRequest)
	if len(selected) == 0 {
		return nil, ErrUnavailable
	}

	images := make([]EncodedImage, 0, len(selected))
	for _, page := range selected {
		img, err := Compress(page.Image)
		if err != nil {
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, ErrUnavailable
	}

	if err := a.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer a.sem.Release(1)

	budgetCtx, cancel := context.WithTimeout(ctx, a.totalBudget)
	defer cancel()

	req := Request{
		Images:  images,
		Zip:     zip,
		Prompt:  buildPrompt(zip),
		Timeout: a.perCall,
	}

	var lastErr error
	for _, provider := range a.providers {
		if budgetCtx.Err() != nil {
			break
		}
		callCtx, callCancel := context.WithTimeout(budgetCtx, a.perCall)
		start := time.Now()
		takeoff, err := provider.Analyze(callCtx, req)
		callCancel()
		latency := float64(time.Since(start).Milliseconds())

		if err != nil {
			if a.log != nil {
				a.log.VisionCall(provider.ModelID(), false, latency, err)
			}
			lastErr = err
			continue
		}
		takeoff.ModelID = provider.ModelID()
		if a.log != nil {
			a.log.VisionCall(provider.ModelID(), true, latency, nil)
		}
		return takeoff, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return nil, ErrUnavailable
}

// maxImagesPerRequest caps how many page images ride along on one call.
const maxImagesPerRequest = 5

// SelectPages orders pages for upload: floor-plan classified pages first,
// then by raster size descending, capped at limit.
func SelectPages(doc *blueprint.Document, classifications []pages.Classification, limit int) []blueprint.Page {
	kinds := make(map[int]pages.Kind, len(classifications))
	for _, c := range classifications {
		kinds[c.PageIndex] = c.Kind
	}

	ordered := make([]blueprint.Page, len(doc.Pages))
	copy(ordered, doc.Pages)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi := kinds[ordered[i].Index] == pages.KindFloorPlan
		pj := kinds[ordered[j].Index] == pages.KindFloorPlan
		if pi != pj {
			return pi
		}
		return len(ordered[i].Image.Bytes) > len(ordered[j].Image.Bytes)
	})

	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	return ordered
}

func buildPrompt(zip string) string {
	return fmt.Sprintf(`You are analyzing residential architectural blueprints for an HVAC load calculation near ZIP %s.

Return ONLY a JSON object with this shape, no markdown, no commentary:
{
  "floor_analysis": "one paragraph describing the floor plan(s)",
  "rooms": [{"name": "...", "kind": "bedroom|bathroom|kitchen|living|dining|hall|closet|garage|office|laundry|mechanical|bonus|other",
             "area_ft2": 0, "width_ft": 0, "height_ft": 0, "floor_index": 1, "window_count": 0, "confidence": 0.0}],
  "envelope_hints": {"wall_r": 0, "ceiling_r": 0, "floor_r": 0, "window_u": 0, "window_shgc": 0, "ach50": 0,
                     "duct_location": "", "foundation": ""},
  "scale_hint": 0,
  "confidence": 0.0
}

Rules:
- List every labeled room with its dimensions in feet.
- Report envelope R/U values only if they are printed on the sheets; use 0 for unknown.
- rooms may be empty if no floor plan is visible, but the key must be present.`, zip)
}
