// Package estimate orchestrates a full load-calculation run: blueprint
// ingestion, concurrent extraction with a join barrier, merge, envelope
// resolution, the calculation ensemble, and the audit report.
package estimate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"heatload_backend/internal/audit"
	"heatload_backend/internal/baseline"
	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
	"heatload_backend/internal/estimate/transport"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/manualj"
	"heatload_backend/internal/pages"
	"heatload_backend/internal/policy"
	"heatload_backend/internal/quality"
	"heatload_backend/internal/reliability"
	"heatload_backend/internal/runctx"
	"heatload_backend/internal/scale"
	"heatload_backend/internal/takeoff"
	"heatload_backend/internal/vision"
	"heatload_backend/platform/apperr"
	"heatload_backend/platform/config"
	"heatload_backend/platform/logger"
	"heatload_backend/platform/validator"
)

// NeedsInput is the structured "ask the user" outcome. It is a successful
// return, not an error.
type NeedsInput struct {
	Kind           string        `json:"kind"` // scale | plan_quality
	Details        string        `json:"details"`
	Alternatives   []scale.Scale `json:"alternatives,omitempty"`
	Recommendation string        `json:"recommendation,omitempty"`
}

// Outcome is the result of a run: exactly one of Result or NeedsInput is
// set.
type Outcome struct {
	RunID      string              `json:"run_id"`
	Result     *reliability.Result `json:"result,omitempty"`
	Primary    *manualj.Results    `json:"primary,omitempty"`
	Report     *audit.Report       `json:"report,omitempty"`
	NeedsInput *NeedsInput         `json:"needs_input,omitempty"`
}

// Request is a fully materialized run input: PDF bytes plus assumptions.
type Request struct {
	PDF         []byte
	Zip         string
	Assumptions transport.Assumptions
}

// DocumentOpener loads a PDF into normalized pages. Production wires the
// pdfcpu-backed adapter; tests wire fixtures.
type DocumentOpener interface {
	Open(ctx context.Context, pdf []byte) (*blueprint.Document, error)
}

// Service runs estimates.
type Service struct {
	adapter    DocumentOpener
	classifier *pages.Classifier
	scales     *scale.Estimator
	visionAn   *vision.Analyzer // nil when no provider configured
	merger     *takeoff.Merger
	assembler  *envelope.Assembler
	scorer     *quality.Scorer
	calc       *manualj.Calculator
	engine     *reliability.Engine
	climate    *climate.Registry
	validate   *validator.Validator
	cfg        config.PipelineConfig
	log        *logger.Logger
}

// NewService wires the pipeline. visionAn may be nil; the pipeline then runs
// rule-extractor-only.
func NewService(adapter DocumentOpener, visionAn *vision.Analyzer, cfg config.PipelineConfig, log *logger.Logger) *Service {
	return &Service{
		adapter:    adapter,
		classifier: pages.NewClassifier(),
		scales: scale.NewEstimator(
			cfg.GetMinRoomSqft(), cfg.GetMaxRoomSqft(),
			cfg.GetMinTotalSqft(), cfg.GetMaxTotalSqft(),
		),
		visionAn:  visionAn,
		merger:    takeoff.NewMerger(),
		assembler: envelope.NewAssembler(),
		scorer:    quality.NewScorer(),
		calc:      manualj.NewCalculator(),
		engine:    reliability.NewEngine(),
		climate:   climate.Default(),
		validate:  validator.New(),
		cfg:       cfg,
		log:       log,
	}
}

// Run executes one estimate under the configured run deadline. Critical and
// validation failures return an error; NeedsInput and degraded completions
// return an Outcome.
func (s *Service) Run(ctx context.Context, req Request) (*Outcome, error) {
	rc := runctx.New()
	return s.run(ctx, rc, req)
}

// RunWithID executes a run bound to a pre-allocated run id (queued jobs).
func (s *Service) RunWithID(ctx context.Context, runID string, req Request) (*Outcome, error) {
	rc := runctx.NewWithID(runID)
	return s.run(ctx, rc, req)
}

func (s *Service) run(ctx context.Context, rc *runctx.RunContext, req Request) (*Outcome, error) {
	log := s.log.WithRunID(rc.RunID())

	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	deadline := s.cfg.GetRunDeadline()
	if deadline <= 0 {
		deadline = 300 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	design, err := s.climate.ForZip(req.Zip)
	if err != nil {
		return nil, err
	}
	if design.Source == climate.SourceFallback {
		rc.AddWarning(fmt.Sprintf("zip %s not in climate table, using zone %s defaults", req.Zip, design.Zone))
	}

	doc, err := s.adapter.Open(runCtx, req.PDF)
	if err != nil {
		return nil, err
	}
	for _, w := range doc.Warnings {
		rc.AddWarning(w)
	}

	classifications := s.classifier.ClassifyAll(doc)

	// Concurrent extraction with a join barrier: the vision call on one
	// side, scale estimation feeding the rule extractors on the other. No
	// shared mutable state crosses the barrier.
	var (
		visionTakeoff *vision.Takeoff
		scaleResult   scale.Result
		ruleRooms     []extract.RoomCandidate
		ruleWalls     []extract.WallClassification
		ruleOpenings  []extract.OpeningCandidate
		ruleFindings  []extract.EnvelopeFinding
		schedule      []extract.ScheduleEntry
	)

	group, groupCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		if s.visionAn == nil || !s.visionAn.Enabled() {
			return nil
		}
		takeoffDoc, visionErr := s.visionAn.Analyze(groupCtx, doc, classifications, req.Zip)
		if visionErr != nil {
			// Vision unavailability degrades the run, never fails it.
			log.StageDegraded("vision", visionErr.Error())
			rc.AddWarning("vision provider unavailable: continuing with rule extractors only")
			return nil
		}
		visionTakeoff = takeoffDoc
		return nil
	})

	group.Go(func() error {
		multi := s.scales.EstimateMultiPage(doc, classifications, s.cfg.GetScaleOverride())
		scaleResult = multi.Result
		if !multi.Consistent {
			rc.AddWarning("floor-plan pages disagree on scale; using the dominant cluster")
		}
		if scaleResult.Selected == nil {
			return nil
		}
		pxPerFt := scaleResult.Selected.PixelsPerFoot
		for _, page := range doc.Pages {
			if !isFloorPlan(classifications, page.Index) && len(doc.Pages) > 1 {
				continue
			}
			rooms := extract.DetectRooms(page, pxPerFt)
			walls := extract.ClassifyWalls(rooms, pxPerFt)
			ruleRooms = append(ruleRooms, rooms...)
			ruleWalls = append(ruleWalls, walls...)
			ruleOpenings = append(ruleOpenings, extract.DetectOpenings(page, pxPerFt)...)
		}
		for _, page := range doc.Pages {
			ruleFindings = append(ruleFindings, extract.ExtractEnvelope(page)...)
			schedule = append(schedule, extract.ParseSchedules(page)...)
		}
		return nil
	})

	timedOut := false
	if err := group.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			timedOut = true
		} else {
			return nil, apperr.Wrap(apperr.KindInternal, "extraction failed", err)
		}
	}
	if runCtx.Err() != nil {
		timedOut = true
	}

	// Scale must be resolved before anything downstream trusts geometry.
	if scaleResult.NeedsInput {
		return &Outcome{
			RunID: rc.RunID(),
			NeedsInput: &NeedsInput{
				Kind:           "scale",
				Details:        "no scale method reached the confidence floor",
				Alternatives:   scaleResult.Alternatives,
				Recommendation: scaleResult.Recommendation,
			},
		}, nil
	}
	if err := rc.SetScale(scaleResult.Selected.PixelsPerFoot); err != nil {
		return nil, err
	}

	// Merge into the canonical room graph.
	graph := s.merger.Merge(takeoff.MergeInput{
		PxPerFt:              scaleResult.Selected.PixelsPerFoot,
		RuleRooms:            ruleRooms,
		Walls:                ruleWalls,
		Openings:             ruleOpenings,
		Schedule:             schedule,
		Vision:               visionTakeoff,
		FloorIndex:           floorIndexByPage(classifications),
		NorthKnown:           northKnown(doc),
		SecondFloorSuspected: secondFloorSuspected(doc, classifications),
		MinRoomSqft:          s.cfg.GetMinRoomSqft(),
		MaxRoomSqft:          s.cfg.GetMaxRoomSqft(),
		MaxRoomCount:         s.cfg.GetMaxRoomCount(),
	})
	for _, w := range graph.Warnings {
		rc.AddWarning(w)
	}

	totalArea := graph.TotalAreaFt2()
	if totalArea < s.cfg.GetMinTotalSqft() || totalArea > s.cfg.GetMaxTotalSqft() {
		return &Outcome{
			RunID: rc.RunID(),
			NeedsInput: &NeedsInput{
				Kind: "plan_quality",
				Details: fmt.Sprintf("detected %.0f ft2 of conditioned area, outside the plausible range [%.0f, %.0f]",
					totalArea, s.cfg.GetMinTotalSqft(), s.cfg.GetMaxTotalSqft()),
			},
		}, nil
	}

	// Envelope: climate/era defaults, blueprint detections, user overrides,
	// then the conservative-unknowns policy for whatever is left.
	var hints *vision.EnvelopeHints
	if visionTakeoff != nil {
		hints = &visionTakeoff.Envelope
	}
	env := s.assembler.Assemble(design, ruleFindings, hints, overridesFrom(req.Assumptions))
	for _, w := range env.Warnings {
		rc.AddWarning(w)
	}

	stories := graph.Envelope.FloorCount
	if stories < 1 {
		stories = graph.FloorCount()
	}
	policies := policy.ApplyConservativeUnknowns(env, stories)

	// Quality score, computed once and frozen.
	score := s.scorer.Assess(quality.Input{
		Doc:             doc,
		Classifications: classifications,
		Findings:        ruleFindings,
		Graph:           graph,
		RoomsAttempted:  len(ruleRooms) + visionRoomCount(visionTakeoff),
		DeclaredAreaFt2: declaredArea(doc),
		ClimateFallback: design.Source == climate.SourceFallback,
	})
	if err := rc.SetQuality(score.Value); err != nil {
		return nil, err
	}

	// Candidates: the baselines always complete synchronously; the primary
	// is skipped only when the run deadline already expired.
	b := baseline.Building{
		AreaFt2:         totalArea,
		Stories:         stories,
		PerimeterFt:     graph.Envelope.PerimeterFt,
		CeilingHeightFt: env.CeilingHeightFt.Value,
	}
	candidates := []baseline.Candidate{
		baseline.CodeMin(b, env, design),
		baseline.UAOA(b, env, design),
		baseline.Regional(b, env, design),
	}

	var primary *manualj.Results
	snapshot := policy.CalcSnapshot{AreaFt2: totalArea, Stories: stories}
	if !timedOut {
		primary = s.calc.Calculate(manualj.Input{
			Graph:  graph,
			Env:    env,
			Design: design,
			Fuel:   manualj.HeatingFuel(req.Assumptions.HeatingFuel),
		})
		for _, w := range primary.Warnings {
			rc.AddWarning(w)
		}
		candidates = append([]baseline.Candidate{primary.Candidate()}, candidates...)
		snapshot.ACHNatural = primary.ACHNatural
		snapshot.InfiltrationCFM = primary.InfiltrationCFMWinter
	} else {
		rc.AddWarning("run deadline exceeded before the primary calculation")
	}

	result := s.engine.Decide(reliability.Input{
		Candidates:           candidates,
		Env:                  env,
		Quality:              score,
		ConservativePolicies: policies,
		Snapshot:             snapshot,
		NorthKnown:           graph.Envelope.NorthKnown,
		TimedOut:             timedOut,
	})

	rc.Seal()

	report := audit.Build(rc.RunID(), requestDigest(req), scaleResult.Selected, env, result, rc.Warnings())

	log.StageComplete("estimate", 0)
	return &Outcome{
		RunID:   rc.RunID(),
		Result:  result,
		Primary: primary,
		Report:  report,
	}, nil
}

func (s *Service) validateRequest(req Request) error {
	if len(req.PDF) == 0 {
		return apperr.SourceUnreadable("request carries no document")
	}
	dto := transport.EstimateRequest{Zip: req.Zip, Assumptions: req.Assumptions}
	if err := s.validate.Struct(dto); err != nil {
		return apperr.Wrap(apperr.KindValidation, "invalid request", err)
	}
	return nil
}

func overridesFrom(a transport.Assumptions) envelope.Overrides {
	o := envelope.Overrides{
		DuctConfig:      a.DuctConfig,
		ConstructionEra: a.ConstructionEra,
		FoundationType:  a.FoundationType,
	}
	if a.WindowSpec != nil {
		o.WindowU = a.WindowSpec.UValue
		o.WindowSHGC = a.WindowSpec.SHGC
	}
	if a.EnvelopeOverrides != nil {
		o.WallR = a.EnvelopeOverrides.WallR
		o.CeilingR = a.EnvelopeOverrides.CeilingR
		o.ACH50 = a.EnvelopeOverrides.ACH50
	}
	return o
}

func isFloorPlan(classifications []pages.Classification, pageIndex int) bool {
	for _, c := range classifications {
		if c.PageIndex == pageIndex {
			return c.Kind == pages.KindFloorPlan
		}
	}
	return false
}

func floorIndexByPage(classifications []pages.Classification) map[int]int {
	out := map[int]int{}
	for _, c := range classifications {
		switch c.FloorLabel {
		case "basement":
			out[c.PageIndex] = 0
		case "second":
			out[c.PageIndex] = 2
		case "third":
			out[c.PageIndex] = 3
		default:
			out[c.PageIndex] = 1
		}
	}
	return out
}

func northKnown(doc *blueprint.Document) bool {
	for _, page := range doc.Pages {
		for _, run := range page.TextRuns {
			lower := strings.ToLower(run.Text)
			if strings.Contains(lower, "north arrow") || lower == "n" ||
				strings.Contains(lower, "true north") {
				return true
			}
		}
	}
	return false
}

var stairPattern = regexp.MustCompile(`(?i)\bstairs?\b|\bup\b|\bdn\b`)

// secondFloorSuspected looks for a stair glyph label or a second-floor page
// classification.
func secondFloorSuspected(doc *blueprint.Document, classifications []pages.Classification) bool {
	for _, c := range classifications {
		if c.FloorLabel == "second" || c.FloorLabel == "third" {
			return true
		}
	}
	for _, page := range doc.Pages {
		for _, run := range page.TextRuns {
			if stairPattern.MatchString(run.Text) {
				return true
			}
		}
	}
	return false
}

var declaredAreaPattern = regexp.MustCompile(`(?i)([\d,]{3,6})\s*(?:sq\.?\s*ft|sf|square feet)`)

func declaredArea(doc *blueprint.Document) float64 {
	for _, page := range doc.Pages {
		for _, run := range page.TextRuns {
			if m := declaredAreaPattern.FindStringSubmatch(run.Text); m != nil {
				clean := strings.ReplaceAll(m[1], ",", "")
				if v, err := strconv.ParseFloat(clean, 64); err == nil && v > 100 {
					return v
				}
			}
		}
	}
	return 0
}

func visionRoomCount(t *vision.Takeoff) int {
	if t == nil {
		return 0
	}
	return len(t.Rooms)
}

func requestDigest(req Request) string {
	meta, _ := json.Marshal(struct {
		Zip         string                `json:"zip"`
		Assumptions transport.Assumptions `json:"assumptions"`
		PDFLen      int                   `json:"pdf_len"`
	}{req.Zip, req.Assumptions, len(req.PDF)})
	return audit.Digest(append(meta, req.PDF...))
}
