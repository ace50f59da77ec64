// Package scale estimates the drawing scale (pixels per foot) of a blueprint
// using three independent methods, each with a confidence score. When no
// method clears the confidence bar the run asks the user instead of guessing.
package scale

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/pages"
)

// Method identifies which detection method produced a Scale.
type Method string

const (
	MethodText           Method = "text"
	MethodDimensionFit   Method = "dimension-fit"
	MethodRoomValidation Method = "room-validation"
	MethodFallback       Method = "fallback"
)

// Scale is one estimate with its provenance.
type Scale struct {
	PixelsPerFoot   float64 `json:"px_per_ft"`
	Notation        string  `json:"notation,omitempty"`
	Confidence      float64 `json:"confidence"`
	Method          Method  `json:"method"`
	VariancePercent float64 `json:"variance_percent"`
	Evidence        string  `json:"evidence,omitempty"`
}

// Result carries the selected scale plus retained alternatives. When no
// candidate clears minSelectableConfidence, NeedsInput is set and the caller
// must ask the user; this is a structured outcome, not an error.
type Result struct {
	Selected       *Scale  `json:"selected,omitempty"`
	Alternatives   []Scale `json:"alternatives"`
	NeedsInput     bool    `json:"needs_input"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// VarianceError reports a dimension fit whose residuals are too inconsistent
// to trust. Recoverable: the estimator falls through to room validation.
type VarianceError struct {
	VariancePercent float64
}

func (e *VarianceError) Error() string {
	return fmt.Sprintf("scale variance %.2f%% exceeds %.0f%% threshold",
		e.VariancePercent*100, maxFitVariance*100)
}

const (
	// minSelectableConfidence is the floor below which the run returns
	// NeedsInput instead of trusting any estimate.
	minSelectableConfidence = 0.5

	// maxFitVariance is the RMSE/mean ceiling for the dimension fit.
	maxFitVariance = 0.05

	// dimensionLabelRadius pairs a dimension label with edges whose center
	// is within this many pixels.
	dimensionLabelRadius = 50.0

	// roomValidationMaxConfidence caps the weakest method.
	roomValidationMaxConfidence = 0.7
)

// candidateScales are the px/ft values tried by room-size validation,
// covering the common architectural notations.
var candidateScales = []float64{12, 24, 36, 48, 64, 96}

var (
	// 1/4" = 1'-0" and friends, with or without a SCALE prefix.
	fractionNotation = regexp.MustCompile(`(\d+)\s*/\s*(\d+)\s*"?\s*=\s*1\s*['’]`)
	wholeInchNotation = regexp.MustCompile(`(\d+)\s*"\s*=\s*1\s*['’]`)
	metricNotation    = regexp.MustCompile(`1\s*:\s*(\d{1,4})\b`)

	// 21'-6", 21', 21.5'
	feetInches  = regexp.MustCompile(`(\d+)\s*['’]\s*-?\s*(\d{1,2})\s*"`)
	feetOnly    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*['’]`)
	dimPair     = regexp.MustCompile(`\b(\d{1,2})\s*[xX]\s*(\d{1,2})\b`)
)

// Estimator detects and scores blueprint scales.
type Estimator struct {
	minRoomSqft  float64
	maxRoomSqft  float64
	minTotalSqft float64
	maxTotalSqft float64
}

// NewEstimator creates an estimator with the pipeline room/total bounds used
// by room-size validation.
func NewEstimator(minRoom, maxRoom, minTotal, maxTotal float64) *Estimator {
	return &Estimator{
		minRoomSqft:  minRoom,
		maxRoomSqft:  maxRoom,
		minTotalSqft: minTotal,
		maxTotalSqft: maxTotal,
	}
}

// Estimate runs all three methods over the floor-plan pages and selects the
// best candidate. override > 0 short-circuits with a user-set scale.
func (e *Estimator) Estimate(doc *blueprint.Document, classifications []pages.Classification, override float64) Result {
	if override > 0 {
		s := Scale{
			PixelsPerFoot: override,
			Confidence:    1.0,
			Method:        MethodFallback,
			Evidence:      "user-supplied SCALE_OVERRIDE",
		}
		return Result{Selected: &s, Alternatives: []Scale{s}}
	}

	planPages := floorPlanPages(doc, classifications)
	if len(planPages) == 0 {
		planPages = doc.Pages
	}

	var candidates []Scale

	for _, page := range planPages {
		if s, ok := e.fromTextNotation(page); ok {
			candidates = append(candidates, s)
		}
	}

	for _, page := range planPages {
		s, err := e.fromDimensionFit(page)
		if err == nil && s.PixelsPerFoot > 0 {
			candidates = append(candidates, s)
		}
	}

	for _, page := range planPages {
		candidates = append(candidates, e.fromRoomValidation(page)...)
	}

	return e.selectBest(candidates)
}

// selectBest prefers the highest-confidence candidate, breaking ties toward
// text notation.
func (e *Estimator) selectBest(candidates []Scale) Result {
	if len(candidates) == 0 {
		return Result{
			NeedsInput:     true,
			Recommendation: defaultRecommendation(),
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return methodRank(candidates[i].Method) < methodRank(candidates[j].Method)
	})

	alternatives := dedupeByValue(candidates)
	best := alternatives[0]

	if best.Confidence < minSelectableConfidence {
		return Result{
			Alternatives:   alternatives,
			NeedsInput:     true,
			Recommendation: recommendationFor(alternatives),
		}
	}
	return Result{Selected: &best, Alternatives: alternatives}
}

func methodRank(m Method) int {
	switch m {
	case MethodText:
		return 0
	case MethodDimensionFit:
		return 1
	case MethodRoomValidation:
		return 2
	default:
		return 3
	}
}

func dedupeByValue(candidates []Scale) []Scale {
	out := make([]Scale, 0, len(candidates))
	for _, c := range candidates {
		dup := false
		for _, kept := range out {
			if math.Abs(kept.PixelsPerFoot-c.PixelsPerFoot) < 0.5 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Method 1: text notation

// fromTextNotation scans text runs for architectural or metric scale
// notation. Matches inside the title block (bottom-right 40% x 30% of the
// page) are preferred; the keyword SCALE raises confidence to 0.9.
func (e *Estimator) fromTextNotation(page blueprint.Page) (Scale, bool) {
	titleBlock := blueprint.Rect{
		X0: page.Rect.X1 - page.Rect.Width()*0.4,
		Y0: page.Rect.Y1 - page.Rect.Height()*0.3,
		X1: page.Rect.X1,
		Y1: page.Rect.Y1,
	}

	var best *Scale
	bestInTitleBlock := false

	for _, run := range page.TextRuns {
		pxPerFt, notation, ok := ParseNotation(run.Text)
		if !ok {
			continue
		}

		conf := 0.8
		if strings.Contains(strings.ToUpper(run.Text), "SCALE") {
			conf = 0.9
		}
		inTitle := titleBlock.Contains(run.BBox.Center())

		s := Scale{
			PixelsPerFoot: pxPerFt,
			Notation:      notation,
			Confidence:    conf,
			Method:        MethodText,
			Evidence:      fmt.Sprintf("notation %q on page %d", notation, page.Index),
		}

		replace := best == nil ||
			(inTitle && !bestInTitleBlock) ||
			(inTitle == bestInTitleBlock && conf > best.Confidence)
		if replace {
			best = &s
			bestInTitleBlock = inTitle
		}
	}

	if best == nil {
		return Scale{}, false
	}
	return *best, true
}

// ParseNotation converts a scale notation string to pixels per foot.
// Architectural: n/d" = 1' maps to 12*d/n px/ft (1/4" -> 48, 1/8" -> 96).
// Metric: 1:N maps to 2304/N px/ft (1:48 -> 48).
func ParseNotation(text string) (pxPerFt float64, notation string, ok bool) {
	if m := fractionNotation.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		den, _ := strconv.ParseFloat(m[2], 64)
		if num > 0 && den > 0 {
			v := 12 * den / num
			if plausibleScale(v) {
				return v, fmt.Sprintf(`%s/%s"=1'`, m[1], m[2]), true
			}
		}
	}
	if m := wholeInchNotation.FindStringSubmatch(text); m != nil {
		num, _ := strconv.ParseFloat(m[1], 64)
		if num > 0 {
			v := 12 / num
			if plausibleScale(v) {
				return v, fmt.Sprintf(`%s"=1'`, m[1]), true
			}
		}
	}
	if m := metricNotation.FindStringSubmatch(text); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		if n > 0 {
			v := 2304 / n
			if plausibleScale(v) {
				return v, "1:" + m[1], true
			}
		}
	}
	return 0, "", false
}

func plausibleScale(v float64) bool { return v >= 2 && v <= 200 }

// ---------------------------------------------------------------------------
// Method 2: dimension fit

type fitSample struct {
	lengthFt float64
	edgePx   float64
}

// fromDimensionFit pairs parsed dimension labels with nearby edges and fits
// edge_px = k * length_ft by least squares through the origin. Fits with
// RMSE/mean above 5% are rejected with VarianceError.
func (e *Estimator) fromDimensionFit(page blueprint.Page) (Scale, error) {
	samples := collectFitSamples(page)
	if len(samples) < 2 {
		return Scale{}, fmt.Errorf("not enough dimension samples on page %d", page.Index)
	}
	k, variance, err := FitScale(samples)
	if err != nil {
		return Scale{}, err
	}

	conf := 1 - variance
	if conf < minSelectableConfidence {
		conf = minSelectableConfidence
	}
	return Scale{
		PixelsPerFoot:   k,
		Confidence:      conf,
		Method:          MethodDimensionFit,
		VariancePercent: variance,
		Evidence:        fmt.Sprintf("%d dimension/edge pairs on page %d", len(samples), page.Index),
	}, nil
}

func collectFitSamples(page blueprint.Page) []fitSample {
	var samples []fitSample
	for _, run := range page.TextRuns {
		lengthFt, ok := ParseDimension(run.Text)
		if !ok || lengthFt <= 0 {
			continue
		}
		center := run.BBox.Center()
		for _, prim := range page.Vectors.Primitives {
			if prim.Kind != blueprint.PrimitiveLine {
				continue
			}
			mid := blueprint.Point{
				X: (prim.Points[0].X + prim.Points[1].X) / 2,
				Y: (prim.Points[0].Y + prim.Points[1].Y) / 2,
			}
			if blueprint.Distance(center, mid) > dimensionLabelRadius {
				continue
			}
			length := prim.Length()
			if length < 10 {
				continue
			}
			samples = append(samples, fitSample{lengthFt: lengthFt, edgePx: length})
			break
		}
	}
	return samples
}

// FitScale solves edge_px = k * length_ft by least squares and returns the
// slope and RMSE/mean variance fraction.
func FitScale(samples []fitSample) (k float64, variance float64, err error) {
	var sumXY, sumXX float64
	for _, s := range samples {
		sumXY += s.lengthFt * s.edgePx
		sumXX += s.lengthFt * s.lengthFt
	}
	if sumXX == 0 {
		return 0, 0, fmt.Errorf("degenerate dimension samples")
	}
	k = sumXY / sumXX

	var sumSq, sumEdge float64
	for _, s := range samples {
		resid := s.edgePx - k*s.lengthFt
		sumSq += resid * resid
		sumEdge += s.edgePx
	}
	rmse := math.Sqrt(sumSq / float64(len(samples)))
	mean := sumEdge / float64(len(samples))
	if mean == 0 {
		return 0, 0, fmt.Errorf("degenerate dimension samples")
	}
	variance = rmse / mean

	if variance > maxFitVariance {
		return 0, variance, &VarianceError{VariancePercent: variance}
	}
	return k, variance, nil
}

// ParseDimension extracts a length in feet from a dimension label.
// Supports 21'-6", 14', 14.5', and 12x10 (first value).
func ParseDimension(text string) (float64, bool) {
	if m := feetInches.FindStringSubmatch(text); m != nil {
		ft, _ := strconv.ParseFloat(m[1], 64)
		in, _ := strconv.ParseFloat(m[2], 64)
		if in < 12 {
			return ft + in/12, true
		}
	}
	if m := feetOnly.FindStringSubmatch(text); m != nil {
		ft, _ := strconv.ParseFloat(m[1], 64)
		if ft > 0 {
			return ft, true
		}
	}
	if m := dimPair.FindStringSubmatch(text); m != nil {
		ft, _ := strconv.ParseFloat(m[1], 64)
		if ft > 0 {
			return ft, true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Method 3: room-size validation

// fromRoomValidation tries the fixed candidate scales and scores each by how
// plausible the resulting room areas are. Confidence is capped at 0.7.
func (e *Estimator) fromRoomValidation(page blueprint.Page) []Scale {
	var rects []blueprint.Rect
	for _, prim := range page.Vectors.Primitives {
		if prim.Kind == blueprint.PrimitiveRectangle && len(prim.Points) == 2 {
			rects = append(rects, blueprint.Rect{
				X0: prim.Points[0].X, Y0: prim.Points[0].Y,
				X1: prim.Points[1].X, Y1: prim.Points[1].Y,
			})
		}
	}
	if len(rects) == 0 {
		return nil
	}

	var out []Scale
	for _, candidate := range candidateScales {
		score := e.scoreRoomSizes(candidate, rects)
		if score <= 0.3 {
			continue
		}
		conf := score * 0.8
		if conf > roomValidationMaxConfidence {
			conf = roomValidationMaxConfidence
		}
		out = append(out, Scale{
			PixelsPerFoot: candidate,
			Confidence:    conf,
			Method:        MethodRoomValidation,
			Evidence: fmt.Sprintf("room sizes plausible at %.0f px/ft on page %d (score %.2f)",
				candidate, page.Index, score),
		})
	}
	return out
}

func (e *Estimator) scoreRoomSizes(scale float64, rects []blueprint.Rect) float64 {
	var areas []float64
	for _, r := range rects {
		w := r.Width() / scale
		h := r.Height() / scale
		if w <= 0 || h <= 0 {
			continue
		}
		areas = append(areas, w*h)
	}
	if len(areas) == 0 {
		return 0
	}

	var score, maxScore float64

	reasonable := 0
	for _, a := range areas {
		if a >= 20 && a <= 500 {
			reasonable++
		}
	}
	score += float64(reasonable) / float64(len(areas)) * 3.0
	maxScore += 3.0

	total := 0.0
	for _, a := range areas {
		total += a
	}
	switch {
	case total >= 1000 && total <= 4000:
		score += 2.0
	case total >= e.minTotalSqft && total <= e.maxTotalSqft:
		score += 1.0
	}
	maxScore += 2.0

	small, medium := 0, 0
	for _, a := range areas {
		if a >= 10 && a < 100 {
			small++
		} else if a >= 100 && a < 300 {
			medium++
		}
	}
	if small > 0 && medium > 0 {
		score += 1.0
	}
	maxScore += 1.0

	noOutliers := true
	for _, a := range areas {
		if a < 5 || a > e.maxRoomSqft {
			noOutliers = false
			break
		}
	}
	if noOutliers {
		score += 1.0
	}
	maxScore += 1.0

	return score / maxScore
}

// ---------------------------------------------------------------------------

func floorPlanPages(doc *blueprint.Document, classifications []pages.Classification) []blueprint.Page {
	kinds := make(map[int]pages.Kind, len(classifications))
	for _, c := range classifications {
		kinds[c.PageIndex] = c.Kind
	}
	var out []blueprint.Page
	for _, page := range doc.Pages {
		if kinds[page.Index] == pages.KindFloorPlan {
			out = append(out, page)
		}
	}
	return out
}

func recommendationFor(alternatives []Scale) string {
	if len(alternatives) == 0 {
		return defaultRecommendation()
	}
	parts := make([]string, 0, 2)
	for i, alt := range alternatives {
		if i >= 2 {
			break
		}
		label := alt.Notation
		if label == "" {
			label = notationForScale(alt.PixelsPerFoot)
		}
		parts = append(parts, fmt.Sprintf("%s (%.0f px/ft)", label, alt.PixelsPerFoot))
	}
	return "Set scale to " + strings.Join(parts, " or ")
}

func defaultRecommendation() string {
	return `Set scale to 1/4"=1' (48 px/ft) or 1/8"=1' (96 px/ft)`
}

func notationForScale(pxPerFt float64) string {
	switch math.Round(pxPerFt) {
	case 12:
		return `1"=1'`
	case 24:
		return `1/2"=1'`
	case 36:
		return `1/3"=1'`
	case 48:
		return `1/4"=1'`
	case 64:
		return `3/16"=1'`
	case 96:
		return `1/8"=1'`
	default:
		return fmt.Sprintf("%.0f px/ft", pxPerFt)
	}
}
