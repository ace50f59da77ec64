// Package reliability blends the primary Manual J candidate with the three
// deterministic baselines into the final result. Weights adapt to blueprint
// quality and inter-method spread, guardrails keep the blend above the code
// minimum, and the confidence score reflects how much the methods agree.
package reliability

import (
	"fmt"
	"math"
	"sort"

	"heatload_backend/internal/baseline"
	"heatload_backend/internal/envelope"
	"heatload_backend/internal/policy"
	"heatload_backend/internal/quality"
)

// Base weights before quality/spread adjustments.
var baseWeights = map[string]float64{
	baseline.CandidatePrimary:  0.75,
	baseline.CandidateCodeMin:  0.10,
	baseline.CandidateUAOA:     0.10,
	baseline.CandidateRegional: 0.05,
}

// candidateOrder fixes the summation order over the weight map so float
// results do not depend on map iteration order.
var candidateOrder = []string{
	baseline.CandidatePrimary,
	baseline.CandidateCodeMin,
	baseline.CandidateUAOA,
	baseline.CandidateRegional,
}

// Adjustment thresholds.
const (
	poorQualityThreshold     = 0.4
	veryPoorQualityThreshold = 0.2
	primaryCapVeryPoor       = 0.45
	extremeSpreadThreshold   = 0.60
)

// orientationVariation is the +-band applied when north is unknown.
const orientationVariation = 0.05

// Band is a min/median/max range.
type Band struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// OrientationBand quantifies orientation uncertainty for both loads.
type OrientationBand struct {
	Heating Band   `json:"heating"`
	Cooling Band   `json:"cooling"`
	Note    string `json:"note"`
}

// Result is the sealed ensemble decision.
type Result struct {
	HeatingBTUH float64 `json:"heating_btuh"`
	CoolingBTUH float64 `json:"cooling_btuh"`
	Confidence  float64 `json:"confidence"`

	QualityScore float64         `json:"quality_score"`
	Routing      quality.Routing `json:"routing"`

	Candidates []baseline.Candidate `json:"candidates"`
	Weights    map[string]float64   `json:"weights"`
	Spread     float64              `json:"spread"`

	OrientationBand *OrientationBand `json:"orientation_band,omitempty"`

	ConservativePolicies []string             `json:"conservative_policies,omitempty"`
	ClampsApplied        []policy.ClampRecord `json:"clamps_applied,omitempty"`
	Notes                []string             `json:"notes,omitempty"`

	Partial bool `json:"partial,omitempty"`
}

// Input is everything the decision consumes. Candidates must contain the
// completed methods only; a missing primary (timeout) is handled by zeroing
// its weight.
type Input struct {
	Candidates           []baseline.Candidate
	Env                  *envelope.Envelope
	Quality              quality.Score
	ConservativePolicies []string
	Snapshot             policy.CalcSnapshot // primary's calc values for the sanity clamps
	NorthKnown           bool
	TimedOut             bool
}

// Engine makes ensemble decisions.
type Engine struct{}

// NewEngine creates an engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Decide blends the candidates and applies guardrails and clamps. Given the
// same inputs and the same completed-candidate set, the result is
// bit-identical across calls.
func (e *Engine) Decide(in Input) *Result {
	res := &Result{
		QualityScore:         in.Quality.Value,
		Routing:              in.Quality.Routing,
		Candidates:           in.Candidates,
		ConservativePolicies: in.ConservativePolicies,
		Partial:              in.TimedOut,
	}

	byName := map[string]baseline.Candidate{}
	for _, c := range in.Candidates {
		byName[c.Name] = c
	}

	_, hasPrimary := byName[baseline.CandidatePrimary]
	if !hasPrimary {
		res.Notes = append(res.Notes, "primary candidate missing: weight redistributed to baselines")
	}

	heatingValues := make([]float64, 0, len(in.Candidates))
	for _, c := range in.Candidates {
		heatingValues = append(heatingValues, c.HeatingBTUH)
	}
	res.Spread = spread(heatingValues)
	res.Notes = append(res.Notes, fmt.Sprintf("method spread %.1f%%", res.Spread*100))

	res.Weights = e.dynamicWeights(in.Quality, res.Spread, byName, &res.Notes)

	var heating, cooling float64
	for _, name := range candidateOrder {
		w := res.Weights[name]
		c := byName[name]
		heating += w * c.HeatingBTUH
		cooling += w * c.CoolingBTUH
	}

	// Guardrail: never below the code-minimum candidate. UA+OA is reported
	// for reference but does not clamp.
	if codeMin, ok := byName[baseline.CandidateCodeMin]; ok && heating < codeMin.HeatingBTUH {
		res.ClampsApplied = append(res.ClampsApplied, policy.ClampRecord{
			Type:          "code_min_floor",
			Reason:        fmt.Sprintf("blended heating %.0f below code minimum %.0f", heating, codeMin.HeatingBTUH),
			OriginalValue: heating,
			ClampedValue:  codeMin.HeatingBTUH,
		})
		heating = codeMin.HeatingBTUH
	}

	// Engineering sanity clamps on the blended result.
	snap := in.Snapshot
	snap.HeatingBTUH = heating
	snap.CoolingBTUH = cooling
	if in.Env != nil {
		clamped, records := policy.ApplySanityClamps(snap, in.Env)
		heating = clamped.HeatingBTUH
		cooling = clamped.CoolingBTUH
		res.ClampsApplied = append(res.ClampsApplied, records...)
	}

	res.HeatingBTUH = heating
	res.CoolingBTUH = cooling

	if !in.NorthKnown {
		res.OrientationBand = orientationBand(in.Candidates)
		res.Notes = append(res.Notes, "north orientation unknown: reported +-5% band")
	}

	res.Confidence = e.confidence(in.Quality, res.Spread, byName)
	if in.TimedOut {
		res.Confidence *= 0.8
		res.Notes = append(res.Notes, "run timed out: partial result with reduced confidence")
	}
	return res
}

// spread is (max - min) / median.
func spread(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	med := median(sorted)
	if med == 0 {
		return 1
	}
	return (sorted[len(sorted)-1] - sorted[0]) / med
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// dynamicWeights adjusts the base weights for quality and spread, zeroes
// missing candidates, and renormalizes to sum exactly 1.
func (e *Engine) dynamicWeights(q quality.Score, spreadValue float64, byName map[string]baseline.Candidate, notes *[]string) map[string]float64 {
	weights := make(map[string]float64, len(baseWeights))
	for name, w := range baseWeights {
		weights[name] = w
	}

	if q.Value < poorQualityThreshold {
		weights[baseline.CandidatePrimary] -= 0.05
		weights[baseline.CandidateUAOA] += 0.04
		weights[baseline.CandidateCodeMin] += 0.01
		*notes = append(*notes, "quality below 0.4: shifted weight toward baselines")
	}
	if q.Value < veryPoorQualityThreshold {
		if weights[baseline.CandidatePrimary] > primaryCapVeryPoor {
			excess := weights[baseline.CandidatePrimary] - primaryCapVeryPoor
			weights[baseline.CandidatePrimary] = primaryCapVeryPoor
			weights[baseline.CandidateCodeMin] += excess / 2
			weights[baseline.CandidateUAOA] += excess / 2
		}
		*notes = append(*notes, "quality below 0.2: primary capped at 0.45")
	}
	if spreadValue > extremeSpreadThreshold {
		weights[baseline.CandidatePrimary] -= 0.02
		weights[baseline.CandidateUAOA] += 0.02
		*notes = append(*notes, "extreme spread: small shift toward UA+OA")
	}

	// Zero out anything that did not complete.
	for name := range weights {
		if _, ok := byName[name]; !ok {
			weights[name] = 0
		}
	}

	total := 0.0
	for _, name := range candidateOrder {
		total += weights[name]
	}
	if total <= 0 {
		// Degenerate: spread evenly over completed candidates.
		for name := range weights {
			if _, ok := byName[name]; ok {
				weights[name] = 1 / float64(len(byName))
			}
		}
		return weights
	}
	for name := range weights {
		weights[name] /= total
	}
	return weights
}

// confidence = 0.4*quality + 0.3*(1-spread) + 0.3*agreement(primary, ua_oa),
// clipped to [0, 1].
func (e *Engine) confidence(q quality.Score, spreadValue float64, byName map[string]baseline.Candidate) float64 {
	spreadFactor := math.Max(0, 1-spreadValue)

	agreement := 0.5 // neutral when either side is missing
	primary, okP := byName[baseline.CandidatePrimary]
	uaoa, okU := byName[baseline.CandidateUAOA]
	if okP && okU && uaoa.HeatingBTUH > 0 {
		agreement = 1 - math.Abs(primary.HeatingBTUH-uaoa.HeatingBTUH)/uaoa.HeatingBTUH
		agreement = math.Max(0, math.Min(1, agreement))
	}

	confidence := 0.4*q.Value + 0.3*spreadFactor + 0.3*agreement
	return math.Max(0, math.Min(1, confidence))
}

// orientationBand reports the candidate min/median/max with the +-5% band
// for unknown north orientation.
func orientationBand(candidates []baseline.Candidate) *OrientationBand {
	if len(candidates) == 0 {
		return nil
	}
	var heat, cool []float64
	for _, c := range candidates {
		heat = append(heat, c.HeatingBTUH)
		cool = append(cool, c.CoolingBTUH)
	}
	sort.Float64s(heat)
	sort.Float64s(cool)

	return &OrientationBand{
		Heating: Band{
			Min:    heat[0] * (1 - orientationVariation),
			Median: median(heat),
			Max:    heat[len(heat)-1] * (1 + orientationVariation),
		},
		Cooling: Band{
			Min:    cool[0] * (1 - orientationVariation),
			Median: median(cool),
			Max:    cool[len(cool)-1] * (1 + orientationVariation),
		},
		Note: "orientation uncertainty band (+-5% variation applied)",
	}
}
