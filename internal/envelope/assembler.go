package envelope

import (
	"fmt"
	"math"
	"strings"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/vision"
)

// minDetectedConfidence is required before a blueprint-detected value can
// override a default.
const minDetectedConfidence = 0.6

// defaultDoorU is an insulated exterior door.
const defaultDoorU = 0.20

// defaultWWRPerFacade is the assumed window-to-wall ratio per facade when
// neither plan nor elevations resolve it. Held as a named constant because
// the admissible range in the wild runs 0.18-0.20; 0.20 is the conservative
// pick.
const defaultWWRPerFacade = 0.20

// Overrides are the user-supplied assumptions, strongest layer in the
// resolution order.
type Overrides struct {
	DuctConfig      string  // conditioned | basement | crawl | vented_attic | ductless
	ConstructionEra string  // 1960s..2020s | new | 4-digit year
	FoundationType  string  // slab | crawl_vented | crawl_conditioned | basement_unheated | basement_conditioned
	WindowU         float64 // 0 = unset
	WindowSHGC      float64
	WallR           float64
	CeilingR        float64
	ACH50           float64
}

// Assembler resolves envelopes.
type Assembler struct{}

// NewAssembler creates an assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble layers resolution for each field: user override, then
// blueprint-detected (confidence >= 0.6 and within bounds), then era
// override, then zone default. Out-of-bounds detected values are replaced by
// the violated bound with a warning.
func (a *Assembler) Assemble(
	design climate.Design,
	findings []extract.EnvelopeFinding,
	hints *vision.EnvelopeHints,
	overrides Overrides,
) *Envelope {
	zone := climate.DefaultsForZone(design.Zone)
	era, eraKnown := climate.DefaultsForEra(overrides.ConstructionEra)

	env := &Envelope{
		Zone:            design.Zone,
		ConstructionEra: overrides.ConstructionEra,
	}

	detected := collectDetected(findings, hints)

	env.WallR = a.resolve(resolveSpec{
		override:   overrides.WallR,
		detected:   detected.wallR,
		eraValue:   era.WallR,
		eraKnown:   eraKnown,
		zoneValue:  zone.WallR,
		bounds:     wallRBounds(zone.WallR),
		fieldName:  "wall_r",
		warnings:   &env.Warnings,
	})

	env.CeilingR = a.resolve(resolveSpec{
		override:  overrides.CeilingR,
		detected:  detected.ceilingR,
		eraValue:  era.RoofR,
		eraKnown:  eraKnown,
		zoneValue: zone.RoofR,
		bounds:    roofRBounds(zone.RoofR),
		fieldName: "ceiling_r",
		warnings:  &env.Warnings,
	})

	env.FloorR = a.resolve(resolveSpec{
		detected:  detected.floorR,
		eraValue:  era.FloorR,
		eraKnown:  eraKnown,
		zoneValue: zone.FloorR,
		bounds:    bounds{lo: 0, hi: 2.5 * zone.FloorR},
		fieldName: "floor_r",
		warnings:  &env.Warnings,
	})

	env.WindowU = a.resolve(resolveSpec{
		override:  overrides.WindowU,
		detected:  detected.windowU,
		eraValue:  era.WindowU,
		eraKnown:  eraKnown,
		zoneValue: zone.WindowU,
		bounds:    bounds{lo: 0.15, hi: 1.2},
		fieldName: "window_u",
		warnings:  &env.Warnings,
	})

	// SHGC has no era layer and its zone "default" is only a code ceiling,
	// so an undetected SHGC stays unset for the conservative-unknowns policy.
	switch {
	case overrides.WindowSHGC > 0:
		env.WindowSHGC = Field{Value: overrides.WindowSHGC, Source: SourceUserOverride, Confidence: 1.0}
	case detected.windowSHGC != nil && detected.windowSHGC.confidence >= minDetectedConfidence:
		env.WindowSHGC = Field{
			Value:      detected.windowSHGC.value,
			Source:     SourceDetected,
			Confidence: detected.windowSHGC.confidence,
		}
	}

	env.DoorU = Field{Value: defaultDoorU, Source: SourceZoneDefault, Confidence: 0.6}

	// ACH50 resolves from overrides, detection, or the era table. There is no
	// zone fallback: an unknown blower-door number goes to the
	// conservative-unknowns policy, which penalizes harder than code maxima.
	ach50 := bounds{lo: 0.8, hi: 14}
	switch {
	case overrides.ACH50 > 0:
		env.ACH50 = Field{Value: overrides.ACH50, Source: SourceUserOverride, Confidence: 1.0}
	case detected.ach50 != nil && detected.ach50.confidence >= minDetectedConfidence:
		v := detected.ach50.value
		conf := detected.ach50.confidence
		if v < ach50.lo || v > ach50.hi {
			clamped := math.Min(math.Max(v, ach50.lo), ach50.hi)
			env.Warnings = append(env.Warnings, fmt.Sprintf(
				"ach50 detected value %.2f outside [%.2f, %.2f], substituting bound %.2f",
				v, ach50.lo, ach50.hi, clamped))
			v = clamped
			conf *= 0.7
		}
		env.ACH50 = Field{Value: v, Source: SourceDetected, Confidence: conf}
	case eraKnown && era.InfiltrationACH > 0:
		env.ACH50 = Field{Value: era.InfiltrationACH * 20, Source: SourceEraDefault, Confidence: 0.7}
	}

	env.Foundation = a.resolveFoundation(overrides, detected)
	env.DuctLoc, env.Ductless = a.resolveDuct(overrides, detected)

	env.CeilingHeightFt = Field{Value: 9.0, Source: SourceZoneDefault, Confidence: 0.5}
	env.WWRPerFacade = Field{Value: defaultWWRPerFacade, Source: SourceConservativeDefault, Confidence: 0.4}

	return env
}

type bounds struct{ lo, hi float64 }

func wallRBounds(zoneDefault float64) bounds {
	return bounds{lo: math.Max(0.5*zoneDefault, 8), hi: 2.0 * zoneDefault}
}

func roofRBounds(zoneDefault float64) bounds {
	return bounds{lo: math.Max(0.6*zoneDefault, 15), hi: 2.5 * zoneDefault}
}

type resolveSpec struct {
	override  float64
	detected  *detectedValue
	eraValue  float64
	eraKnown  bool
	zoneValue float64
	bounds    bounds
	fieldName string
	warnings  *[]string
}

type detectedValue struct {
	value      float64
	confidence float64
}

func (a *Assembler) resolve(spec resolveSpec) Field {
	if spec.override > 0 {
		return Field{Value: spec.override, Source: SourceUserOverride, Confidence: 1.0}
	}

	if spec.detected != nil && spec.detected.confidence >= minDetectedConfidence {
		v := spec.detected.value
		if v >= spec.bounds.lo && v <= spec.bounds.hi {
			return Field{Value: v, Source: SourceDetected, Confidence: spec.detected.confidence}
		}
		clamped := math.Min(math.Max(v, spec.bounds.lo), spec.bounds.hi)
		*spec.warnings = append(*spec.warnings, fmt.Sprintf(
			"%s detected value %.2f outside [%.2f, %.2f], substituting bound %.2f",
			spec.fieldName, v, spec.bounds.lo, spec.bounds.hi, clamped))
		return Field{Value: clamped, Source: SourceDetected, Confidence: spec.detected.confidence * 0.7}
	}

	if spec.eraKnown && spec.eraValue > 0 {
		return Field{Value: spec.eraValue, Source: SourceEraDefault, Confidence: 0.7}
	}
	return Field{Value: spec.zoneValue, Source: SourceZoneDefault, Confidence: 0.6}
}

func (a *Assembler) resolveFoundation(overrides Overrides, d detectedSet) StringField {
	if overrides.FoundationType != "" {
		return StringField{Value: overrides.FoundationType, Source: SourceUserOverride, Confidence: 1.0}
	}
	if d.foundation != "" {
		return StringField{Value: d.foundation, Source: SourceDetected, Confidence: d.foundationConf}
	}
	// Unset: the conservative-unknowns policy fills this later.
	return StringField{}
}

func (a *Assembler) resolveDuct(overrides Overrides, d detectedSet) (StringField, bool) {
	switch overrides.DuctConfig {
	case "ductless":
		return StringField{Value: string(DuctConditioned), Source: SourceUserOverride, Confidence: 1.0}, true
	case "conditioned", "basement", "crawl", "vented_attic":
		return StringField{Value: overrides.DuctConfig, Source: SourceUserOverride, Confidence: 1.0}, false
	}
	if d.ductLocation != "" {
		return StringField{Value: d.ductLocation, Source: SourceDetected, Confidence: d.ductConf}, false
	}
	return StringField{}, false
}

// ---------------------------------------------------------------------------

type detectedSet struct {
	wallR      *detectedValue
	ceilingR   *detectedValue
	floorR     *detectedValue
	windowU    *detectedValue
	windowSHGC *detectedValue
	ach50      *detectedValue

	foundation     string
	foundationConf float64
	ductLocation   string
	ductConf       float64
}

// collectDetected folds extractor findings and vision hints into the best
// detected value per field (highest confidence wins; rule findings and
// vision hints compete on equal terms).
func collectDetected(findings []extract.EnvelopeFinding, hints *vision.EnvelopeHints) detectedSet {
	var d detectedSet

	consider := func(slot **detectedValue, value, confidence float64) {
		if value <= 0 {
			return
		}
		if *slot == nil || confidence > (*slot).confidence {
			*slot = &detectedValue{value: value, confidence: confidence}
		}
	}

	for _, f := range findings {
		switch f.Kind {
		case extract.FindingWallR:
			consider(&d.wallR, f.Value, f.Confidence)
		case extract.FindingCeilingR:
			consider(&d.ceilingR, f.Value, f.Confidence)
		case extract.FindingFloorR:
			consider(&d.floorR, f.Value, f.Confidence)
		case extract.FindingWindowU:
			consider(&d.windowU, f.Value, f.Confidence)
		case extract.FindingACH50:
			consider(&d.ach50, f.Value, f.Confidence)
		case extract.FindingDuctLocation:
			if d.ductLocation == "" {
				d.ductLocation = classifyDuctText(f.Text)
				d.ductConf = f.Confidence
			}
		case extract.FindingFoundation:
			if d.foundation == "" {
				d.foundation = classifyFoundationText(f.Text)
				d.foundationConf = f.Confidence
			}
		}
	}

	if hints != nil {
		const visionConf = 0.7
		consider(&d.wallR, hints.WallR, visionConf)
		consider(&d.ceilingR, hints.CeilingR, visionConf)
		consider(&d.floorR, hints.FloorR, visionConf)
		consider(&d.windowU, hints.WindowU, visionConf)
		consider(&d.windowSHGC, hints.WindowSHGC, visionConf)
		consider(&d.ach50, hints.ACH50, visionConf)
		if d.ductLocation == "" && hints.DuctLocation != "" {
			d.ductLocation = classifyDuctText(hints.DuctLocation)
			d.ductConf = visionConf
		}
		if d.foundation == "" && hints.Foundation != "" {
			d.foundation = classifyFoundationText(hints.Foundation)
			d.foundationConf = visionConf
		}
	}
	return d
}

func classifyDuctText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "conditioned"):
		return string(DuctConditioned)
	case strings.Contains(lower, "attic"):
		return string(DuctVentedAttic)
	case strings.Contains(lower, "crawl"):
		return string(DuctCrawl)
	case strings.Contains(lower, "basement"):
		return string(DuctBasement)
	}
	return ""
}

func classifyFoundationText(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "slab"):
		return string(FoundationSlab)
	case strings.Contains(lower, "crawl"):
		if strings.Contains(lower, "conditioned") || strings.Contains(lower, "sealed") {
			return string(FoundationCrawlConditioned)
		}
		return string(FoundationCrawlVented)
	case strings.Contains(lower, "basement"):
		if strings.Contains(lower, "unfinish") || strings.Contains(lower, "unheated") || strings.Contains(lower, "unconditioned") {
			return string(FoundationBasementUnheated)
		}
		if strings.Contains(lower, "finish") || strings.Contains(lower, "conditioned") || strings.Contains(lower, "heated") {
			return string(FoundationBasementConditioned)
		}
		return string(FoundationBasementUnheated)
	}
	return ""
}
