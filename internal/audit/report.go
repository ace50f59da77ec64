// Package audit renders the structured decision report for a run: every
// input resolution with provenance, each candidate's breakdown, the blend
// weights and clamps, and a categorical accuracy prediction. The report is
// the single JSON document the orchestration layer persists.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"heatload_backend/internal/envelope"
	"heatload_backend/internal/reliability"
	"heatload_backend/internal/scale"
)

// SchemaVersion identifies the report layout for downstream consumers.
const SchemaVersion = "1.0"

// RiskLevel categorizes the expected accuracy.
type RiskLevel string

const (
	RiskVeryLow RiskLevel = "very_low"
	RiskLow     RiskLevel = "low"
	RiskMedium  RiskLevel = "medium"
	RiskHigh    RiskLevel = "high"
)

// AccuracyPrediction is the categorical accuracy band.
type AccuracyPrediction struct {
	PredictedRange string    `json:"predicted_range"`
	Risk           RiskLevel `json:"risk_level"`
	RiskFactors    []string  `json:"risk_factors,omitempty"`
}

// FieldProvenance is one envelope field's resolution entry.
type FieldProvenance struct {
	Field      string  `json:"field"`
	Value      float64 `json:"value,omitempty"`
	Text       string  `json:"text,omitempty"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Report is the complete audit document.
type Report struct {
	SchemaVersion string `json:"schema_version"`
	RunID         string `json:"run_id"`
	RequestDigest string `json:"request_digest"`

	Scale   *scale.Scale        `json:"scale,omitempty"`
	Quality float64             `json:"quality"`
	Routing string              `json:"routing"`

	Result *reliability.Result `json:"result"`

	Provenance []FieldProvenance  `json:"provenance"`
	Warnings   []string           `json:"warnings,omitempty"`
	Accuracy   AccuracyPrediction `json:"accuracy_prediction"`
}

// Build assembles the report from the sealed run artifacts.
func Build(runID string, requestDigest string, selectedScale *scale.Scale, env *envelope.Envelope, result *reliability.Result, warnings []string) *Report {
	report := &Report{
		SchemaVersion: SchemaVersion,
		RunID:         runID,
		RequestDigest: requestDigest,
		Scale:         selectedScale,
		Quality:       result.QualityScore,
		Routing:       string(result.Routing),
		Result:        result,
		Warnings:      warnings,
		Accuracy:      predictAccuracy(result),
	}

	if env != nil {
		for name, f := range env.Fields() {
			report.Provenance = append(report.Provenance, FieldProvenance{
				Field:      name,
				Value:      f.Value,
				Source:     string(f.Source),
				Confidence: f.Confidence,
			})
		}
		for name, f := range env.StringFields() {
			report.Provenance = append(report.Provenance, FieldProvenance{
				Field:      name,
				Text:       f.Value,
				Source:     string(f.Source),
				Confidence: f.Confidence,
			})
		}
	}
	sortProvenance(report.Provenance)
	return report
}

// predictAccuracy maps confidence and spread to the categorical band.
func predictAccuracy(result *reliability.Result) AccuracyPrediction {
	var pred AccuracyPrediction
	switch {
	case result.Confidence >= 0.9 && result.Spread <= 0.05:
		pred.PredictedRange = "+-5%"
		pred.Risk = RiskVeryLow
	case result.Confidence >= 0.8 && result.Spread <= 0.10:
		pred.PredictedRange = "+-8%"
		pred.Risk = RiskLow
	case result.Confidence >= 0.6 && result.Spread <= 0.15:
		pred.PredictedRange = "+-12%"
		pred.Risk = RiskMedium
	default:
		pred.PredictedRange = "+-15%"
		pred.Risk = RiskHigh
	}

	if result.QualityScore < 0.5 {
		pred.RiskFactors = append(pred.RiskFactors, "low blueprint quality")
	}
	if result.Spread > 0.25 {
		pred.RiskFactors = append(pred.RiskFactors, "high method disagreement")
	}
	if len(result.ClampsApplied) > 0 {
		pred.RiskFactors = append(pred.RiskFactors, "sanity clamps triggered")
	}
	if len(result.ConservativePolicies) > 3 {
		pred.RiskFactors = append(pred.RiskFactors, "many missing specifications")
	}
	if result.Partial {
		pred.RiskFactors = append(pred.RiskFactors, "run completed partially")
	}
	return pred
}

// Digest fingerprints the request payload for the audit record.
func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// JSON serializes the report. The output is stable: provenance is sorted and
// map-free at the top level.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func sortProvenance(entries []FieldProvenance) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Field < entries[j].Field })
}
