package reliability

import (
	"math"
	"testing"

	"heatload_backend/internal/baseline"
	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
	"heatload_backend/internal/policy"
	"heatload_backend/internal/quality"
)

func fourCandidates(primary, codeMin, uaoa, regional float64) []baseline.Candidate {
	return []baseline.Candidate{
		{Name: baseline.CandidatePrimary, HeatingBTUH: primary, CoolingBTUH: primary * 0.7},
		{Name: baseline.CandidateCodeMin, HeatingBTUH: codeMin, CoolingBTUH: codeMin * 0.8},
		{Name: baseline.CandidateUAOA, HeatingBTUH: uaoa, CoolingBTUH: uaoa * 0.75},
		{Name: baseline.CandidateRegional, HeatingBTUH: regional, CoolingBTUH: regional * 0.7},
	}
}

func testEnv(t *testing.T) *envelope.Envelope {
	t.Helper()
	d, err := climate.Default().ForZip("63101")
	if err != nil {
		t.Fatalf("ForZip: %v", err)
	}
	env := envelope.NewAssembler().Assemble(d, nil, nil, envelope.Overrides{DuctConfig: "basement"})
	policy.ApplyConservativeUnknowns(env, 2)
	return env
}

func decide(t *testing.T, in Input) *Result {
	t.Helper()
	return NewEngine().Decide(in)
}

func TestWeightsSumToOne(t *testing.T) {
	res := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})

	total := 0.0
	for _, w := range res.Weights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("weights must sum to 1 within 1e-9, got %.12f", total)
	}
}

func TestBlendNeverBelowCodeMin(t *testing.T) {
	// Primary far below the code floor drags the blend under it.
	res := decide(t, Input{
		Candidates: fourCandidates(12000, 30000, 28000, 26000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})

	if res.HeatingBTUH < 30000 {
		t.Fatalf("result must never be below code minimum, got %f", res.HeatingBTUH)
	}
	found := false
	for _, c := range res.ClampsApplied {
		if c.Type == "code_min_floor" {
			found = true
		}
	}
	if !found {
		t.Fatalf("code-min floor must be logged as a clamp: %+v", res.ClampsApplied)
	}
}

func TestLowQualityShiftsWeights(t *testing.T) {
	base := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})
	low := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.3},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})

	if low.Weights[baseline.CandidatePrimary] >= base.Weights[baseline.CandidatePrimary] {
		t.Fatalf("low quality must reduce primary weight: %f vs %f",
			low.Weights[baseline.CandidatePrimary], base.Weights[baseline.CandidatePrimary])
	}
	if low.Weights[baseline.CandidateUAOA] <= base.Weights[baseline.CandidateUAOA] {
		t.Fatalf("low quality must raise UA+OA weight")
	}
}

func TestVeryPoorQualityCapsPrimary(t *testing.T) {
	res := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.1},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})
	// Cap applies pre-normalization; with all four candidates present the
	// shifted weights still sum to 1, so renormalizing leaves it unchanged.
	if res.Weights[baseline.CandidatePrimary] > primaryCapVeryPoor+1e-9 {
		t.Fatalf("very poor quality caps primary at %.2f, got %f",
			primaryCapVeryPoor, res.Weights[baseline.CandidatePrimary])
	}
}

func TestMissingPrimaryGetsZeroWeight(t *testing.T) {
	candidates := fourCandidates(0, 30000, 34000, 36000)[1:] // drop primary
	res := decide(t, Input{
		Candidates: candidates,
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.6},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
		TimedOut:   true,
	})

	if res.Weights[baseline.CandidatePrimary] != 0 {
		t.Fatalf("missing primary must carry zero weight, got %f", res.Weights[baseline.CandidatePrimary])
	}
	total := 0.0
	for _, w := range res.Weights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("weights must renormalize without primary, got %f", total)
	}
	if !res.Partial {
		t.Fatalf("timed-out run must be flagged partial")
	}
}

func TestSpreadComputation(t *testing.T) {
	// Values 10, 20, 30, 40: spread = (40-10)/25 = 1.2.
	got := spread([]float64{10, 20, 30, 40})
	if math.Abs(got-1.2) > 1e-9 {
		t.Fatalf("expected spread 1.2, got %f", got)
	}
	if spread([]float64{100}) != 0 {
		t.Fatalf("single value has zero spread")
	}
	if spread(nil) != 0 {
		t.Fatalf("empty input has zero spread")
	}
}

func TestConfidenceFormula(t *testing.T) {
	// Perfect agreement and zero spread: 0.4*q + 0.3 + 0.3.
	byName := map[string]baseline.Candidate{
		baseline.CandidatePrimary: {Name: baseline.CandidatePrimary, HeatingBTUH: 30000},
		baseline.CandidateUAOA:    {Name: baseline.CandidateUAOA, HeatingBTUH: 30000},
	}
	got := NewEngine().confidence(quality.Score{Value: 0.5}, 0, byName)
	want := 0.4*0.5 + 0.3 + 0.3
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected confidence %f, got %f", want, got)
	}

	// Confidence is clipped to [0, 1].
	byName[baseline.CandidatePrimary] = baseline.Candidate{Name: baseline.CandidatePrimary, HeatingBTUH: 90000}
	got = NewEngine().confidence(quality.Score{Value: 0}, 2.0, byName)
	if got < 0 || got > 1 {
		t.Fatalf("confidence must be in [0,1], got %f", got)
	}
}

func TestOrientationBandWhenNorthUnknown(t *testing.T) {
	res := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: false,
	})

	if res.OrientationBand == nil {
		t.Fatalf("unknown north must produce an orientation band")
	}
	b := res.OrientationBand.Heating
	if b.Min >= b.Median || b.Median >= b.Max {
		t.Fatalf("band must be ordered: %+v", b)
	}
	if math.Abs(b.Min-30000*0.95) > 1 {
		t.Fatalf("band min is candidate min -5%%: %f", b.Min)
	}
	if math.Abs(b.Max-38000*1.05) > 1 {
		t.Fatalf("band max is candidate max +5%%: %f", b.Max)
	}
}

func TestNoOrientationBandWhenNorthKnown(t *testing.T) {
	res := decide(t, Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	})
	if res.OrientationBand != nil {
		t.Fatalf("known north must not produce a band")
	}
}

func TestDeterminism(t *testing.T) {
	in := Input{
		Candidates: fourCandidates(38000, 30000, 34000, 36000),
		Env:        testEnv(t),
		Quality:    quality.Score{Value: 0.7},
		Snapshot:   policy.CalcSnapshot{AreaFt2: 1500, Stories: 2, ACHNatural: 0.5},
		NorthKnown: true,
	}
	first := decide(t, in)
	second := decide(t, in)
	if first.HeatingBTUH != second.HeatingBTUH || first.CoolingBTUH != second.CoolingBTUH ||
		first.Confidence != second.Confidence || first.Spread != second.Spread {
		t.Fatalf("identical inputs must produce identical results")
	}
}
