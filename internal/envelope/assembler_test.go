package envelope

import (
	"strings"
	"testing"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/vision"
)

func design4A() climate.Design {
	return climate.Design{Zip: "63101", Zone: "4A", Winter99: 14, Summer1: 91}
}

func TestAssembleZoneDefaultsOnly(t *testing.T) {
	env := NewAssembler().Assemble(design4A(), nil, nil, Overrides{DuctConfig: "vented_attic"})

	if env.WallR.Value != 20 || env.WallR.Source != SourceZoneDefault {
		t.Fatalf("wall R should be zone default 20, got %+v", env.WallR)
	}
	if env.CeilingR.Value != 49 {
		t.Fatalf("ceiling R should be zone default 49, got %+v", env.CeilingR)
	}
	if env.WindowU.Value != 0.32 {
		t.Fatalf("window U should be zone default 0.32, got %+v", env.WindowU)
	}
	if env.DuctLoc.Value != "vented_attic" || env.DuctLoc.Source != SourceUserOverride {
		t.Fatalf("duct location must honor the user: %+v", env.DuctLoc)
	}
	if env.Ductless {
		t.Fatalf("vented_attic is not ductless")
	}
}

func TestAssembleEraOverridesZone(t *testing.T) {
	env := NewAssembler().Assemble(design4A(), nil, nil, Overrides{
		DuctConfig:      "basement",
		ConstructionEra: "1970s",
	})

	if env.WallR.Value != 11 || env.WallR.Source != SourceEraDefault {
		t.Fatalf("1970s wall R should be 11 via era default, got %+v", env.WallR)
	}
	if env.WindowU.Value != 0.8 {
		t.Fatalf("1970s window U should be 0.8, got %+v", env.WindowU)
	}
}

func TestAssembleDetectedBeatsEra(t *testing.T) {
	findings := []extract.EnvelopeFinding{
		{Kind: extract.FindingWallR, Value: 21, Confidence: 0.9},
	}
	env := NewAssembler().Assemble(design4A(), findings, nil, Overrides{
		ConstructionEra: "1990s",
	})

	if env.WallR.Value != 21 || env.WallR.Source != SourceDetected {
		t.Fatalf("high-confidence detected value must win: %+v", env.WallR)
	}
	// Other fields still follow the era.
	if env.CeilingR.Value != 30 || env.CeilingR.Source != SourceEraDefault {
		t.Fatalf("undetected fields follow era: %+v", env.CeilingR)
	}
}

func TestAssembleLowConfidenceDetectionIgnored(t *testing.T) {
	findings := []extract.EnvelopeFinding{
		{Kind: extract.FindingWallR, Value: 35, Confidence: 0.5},
	}
	env := NewAssembler().Assemble(design4A(), findings, nil, Overrides{})
	if env.WallR.Source == SourceDetected {
		t.Fatalf("sub-0.6 confidence detection must not be used: %+v", env.WallR)
	}
}

func TestAssembleOutOfBoundsSubstitutesBound(t *testing.T) {
	// Zone 4A wall default is 20 -> valid band is [10, 40].
	findings := []extract.EnvelopeFinding{
		{Kind: extract.FindingWallR, Value: 60, Confidence: 0.9},
	}
	env := NewAssembler().Assemble(design4A(), findings, nil, Overrides{})

	if env.WallR.Value != 40 {
		t.Fatalf("out-of-bounds detection must substitute the bound 40, got %+v", env.WallR)
	}
	found := false
	for _, w := range env.Warnings {
		if strings.Contains(w, "wall_r") {
			found = true
		}
	}
	if !found {
		t.Fatalf("bound substitution must warn: %v", env.Warnings)
	}
}

func TestAssembleUserOverrideBeatsEverything(t *testing.T) {
	findings := []extract.EnvelopeFinding{
		{Kind: extract.FindingWindowU, Value: 0.30, Confidence: 0.9},
	}
	env := NewAssembler().Assemble(design4A(), findings, nil, Overrides{
		WindowU: 0.25,
	})
	if env.WindowU.Value != 0.25 || env.WindowU.Source != SourceUserOverride {
		t.Fatalf("user override must win: %+v", env.WindowU)
	}
	if env.WindowU.Confidence != 1.0 {
		t.Fatalf("user overrides carry full confidence: %+v", env.WindowU)
	}
}

func TestAssembleDuctlessMapsToConditioned(t *testing.T) {
	env := NewAssembler().Assemble(design4A(), nil, nil, Overrides{DuctConfig: "ductless"})
	if env.DuctLoc.Value != string(DuctConditioned) {
		t.Fatalf("ductless resolves to conditioned distribution: %+v", env.DuctLoc)
	}
	if !env.Ductless {
		t.Fatalf("ductless flag must be set")
	}
}

func TestAssembleVisionHintsCompete(t *testing.T) {
	hints := &vision.EnvelopeHints{WallR: 19, ACH50: 3.5, DuctLocation: "ducts in crawl"}
	env := NewAssembler().Assemble(design4A(), nil, hints, Overrides{})

	if env.WallR.Value != 19 || env.WallR.Source != SourceDetected {
		t.Fatalf("vision hints should resolve as detected: %+v", env.WallR)
	}
	if env.ACH50.Value != 3.5 {
		t.Fatalf("vision ACH50 should be used: %+v", env.ACH50)
	}
	if env.DuctLoc.Value != string(DuctCrawl) {
		t.Fatalf("vision duct location should classify to crawl: %+v", env.DuctLoc)
	}
}

func TestAssembleACH50Bounds(t *testing.T) {
	findings := []extract.EnvelopeFinding{
		{Kind: extract.FindingACH50, Value: 25, Confidence: 0.9},
	}
	env := NewAssembler().Assemble(design4A(), findings, nil, Overrides{})
	if env.ACH50.Value != 14 {
		t.Fatalf("ACH50 above 14 must substitute the bound, got %+v", env.ACH50)
	}
}

func TestProvenanceOnResolvedFields(t *testing.T) {
	env := NewAssembler().Assemble(design4A(), nil, nil, Overrides{DuctConfig: "crawl"})

	fields := env.Fields()
	if len(fields) != 9 {
		t.Fatalf("expected 9 numeric fields, got %d", len(fields))
	}
	for name, f := range fields {
		if f.Confidence < 0 || f.Confidence > 1 {
			t.Fatalf("field %s confidence out of range: %f", name, f.Confidence)
		}
		if f.Value != 0 && f.Source == "" {
			t.Fatalf("resolved field %s missing source", name)
		}
	}

	// With nothing detected and no era, SHGC and ACH50 stay unset for the
	// conservative-unknowns policy.
	if env.WindowSHGC.Source != "" {
		t.Fatalf("undetected SHGC must stay unset, got %+v", env.WindowSHGC)
	}
	if env.ACH50.Source != "" {
		t.Fatalf("undetected ACH50 must stay unset, got %+v", env.ACH50)
	}
	if env.Shielding.Source != "" {
		t.Fatalf("wind shielding is the policy's to set, got %+v", env.Shielding)
	}
}

func TestClassifyFoundationText(t *testing.T) {
	cases := map[string]string{
		"SLAB ON GRADE W/ R-10 EDGE":      string(FoundationSlab),
		"VENTED CRAWL SPACE":              string(FoundationCrawlVented),
		"SEALED CRAWL SPACE":              string(FoundationCrawlConditioned),
		"FULL BASEMENT UNFINISHED":        string(FoundationBasementUnheated),
		"FINISHED BASEMENT W/ R-15 WALLS": string(FoundationBasementConditioned),
	}
	for text, want := range cases {
		if got := classifyFoundationText(text); got != want {
			t.Fatalf("classifyFoundationText(%q) = %q, want %q", text, got, want)
		}
	}
}
