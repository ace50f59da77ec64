package baseline

import (
	"testing"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
)

func designFor(t *testing.T, zip string) climate.Design {
	t.Helper()
	d, err := climate.Default().ForZip(zip)
	if err != nil {
		t.Fatalf("ForZip(%s): %v", zip, err)
	}
	return d
}

func envFor(t *testing.T, d climate.Design, duct string) *envelope.Envelope {
	t.Helper()
	return envelope.NewAssembler().Assemble(d, nil, nil, envelope.Overrides{DuctConfig: duct})
}

func ranch() Building {
	return Building{AreaFt2: 1500, Stories: 1}
}

func TestCandidatesAreNonNegative(t *testing.T) {
	for _, zip := range []string{"63101", "77001", "55401", "33101"} {
		d := designFor(t, zip)
		env := envFor(t, d, "vented_attic")
		for _, c := range []Candidate{
			CodeMin(ranch(), env, d),
			UAOA(ranch(), env, d),
			Regional(ranch(), env, d),
		} {
			if c.HeatingBTUH < 0 || c.CoolingBTUH < 0 {
				t.Fatalf("%s in %s produced negative load: %+v", c.Name, zip, c)
			}
		}
	}
}

func TestCodeMinPlausibleRange(t *testing.T) {
	d := designFor(t, "63101") // 4A
	env := envFor(t, d, "vented_attic")
	c := CodeMin(ranch(), env, d)

	perFt2 := c.HeatingBTUH / 1500
	if perFt2 < 8 || perFt2 > 40 {
		t.Fatalf("code-min heating intensity implausible: %.1f BTU/hr-ft2", perFt2)
	}
	if c.Details["duct_factor"] != 1.25 {
		t.Fatalf("single-story unknown ducts should take the attic penalty, got %f", c.Details["duct_factor"])
	}
}

func TestCodeMinConditionedDuctsNoPenalty(t *testing.T) {
	d := designFor(t, "63101")
	env := envFor(t, d, "conditioned")
	c := CodeMin(ranch(), env, d)
	if c.Details["duct_factor"] != 1.0 {
		t.Fatalf("conditioned ducts take no penalty, got %f", c.Details["duct_factor"])
	}
}

func TestUAOADetailsConsistent(t *testing.T) {
	d := designFor(t, "63101")
	env := envFor(t, d, "vented_attic")
	c := UAOA(ranch(), env, d)

	sum := c.Details["ua_walls"] + c.Details["ua_windows"] + c.Details["ua_roof"] + c.Details["ua_floor"]
	if diff := sum - c.Details["ua_total"]; diff > 1e-6 || diff < -1e-6 {
		t.Fatalf("UA breakdown must sum to total: %f vs %f", sum, c.Details["ua_total"])
	}
	if c.Details["envelope_heating"]+c.Details["oa_heating"] != c.HeatingBTUH {
		t.Fatalf("heating must be envelope + OA")
	}
	if c.Details["ach_natural"] < 0.3 {
		t.Fatalf("conservative natural ACH has a 0.3 floor, got %f", c.Details["ach_natural"])
	}
}

func TestRegionalColdBeatsWarm(t *testing.T) {
	cold := designFor(t, "55401")  // 6A
	warm := designFor(t, "77001")  // 2A
	envCold := envFor(t, cold, "vented_attic")
	envWarm := envFor(t, warm, "vented_attic")

	b := ranch()
	rCold := Regional(b, envCold, cold)
	rWarm := Regional(b, envWarm, warm)

	if rCold.HeatingBTUH <= rWarm.HeatingBTUH {
		t.Fatalf("zone 6 regional heating must exceed zone 2: %f vs %f",
			rCold.HeatingBTUH, rWarm.HeatingBTUH)
	}
	if rWarm.CoolingBTUH <= rCold.CoolingBTUH*0.9 {
		t.Fatalf("zone 2 regional cooling should not trail zone 6: %f vs %f",
			rWarm.CoolingBTUH, rCold.CoolingBTUH)
	}
}

func TestRegionalDuctConfigChangesBand(t *testing.T) {
	d := designFor(t, "63101")
	attic := Regional(ranch(), envFor(t, d, "vented_attic"), d)
	crawl := Regional(ranch(), envFor(t, d, "crawl"), d)

	if attic.HeatingBTUH <= crawl.HeatingBTUH {
		t.Fatalf("attic-duct band must exceed other-duct band: %f vs %f",
			attic.HeatingBTUH, crawl.HeatingBTUH)
	}
}

func TestBuildingNormalization(t *testing.T) {
	b := Building{}.normalized()
	if b.AreaFt2 != 2000 || b.Stories != 1 || b.CeilingHeightFt != 9 {
		t.Fatalf("zero building must normalize to defaults: %+v", b)
	}
	if b.PerimeterFt <= 0 {
		t.Fatalf("perimeter must be estimated")
	}

	twoStory := Building{AreaFt2: 2400, Stories: 2}.normalized()
	if twoStory.PerimeterFt >= b.PerimeterFt*1.2 {
		t.Fatalf("two-story perimeter uses the footprint, not total area")
	}
}

func TestBaselinesAreDeterministic(t *testing.T) {
	d := designFor(t, "63101")
	env := envFor(t, d, "vented_attic")
	first := UAOA(ranch(), env, d)
	second := UAOA(ranch(), env, d)
	if first.HeatingBTUH != second.HeatingBTUH || first.CoolingBTUH != second.CoolingBTUH {
		t.Fatalf("pure function must be bit-identical across calls")
	}
}
