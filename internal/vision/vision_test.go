package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/pages"
)

func TestParseTakeoffPlainJSON(t *testing.T) {
	raw := `{"floor_analysis": "single story ranch", "rooms": [{"name": "Living", "kind": "living", "area_ft2": 300, "confidence": 0.9}], "envelope_hints": {"wall_r": 21}, "confidence": 0.85}`
	takeoff, err := ParseTakeoff(raw)
	if err != nil {
		t.Fatalf("ParseTakeoff: %v", err)
	}
	if len(takeoff.Rooms) != 1 || takeoff.Rooms[0].Name != "Living" {
		t.Fatalf("rooms not parsed: %+v", takeoff.Rooms)
	}
	if takeoff.Envelope.WallR != 21 {
		t.Fatalf("envelope hints not parsed: %+v", takeoff.Envelope)
	}
}

func TestParseTakeoffMarkdownFenced(t *testing.T) {
	raw := "Here is the analysis:\n```json\n{\"rooms\": [], \"confidence\": 0.5}\n```\n"
	takeoff, err := ParseTakeoff(raw)
	if err != nil {
		t.Fatalf("fenced JSON must parse: %v", err)
	}
	if takeoff.Rooms == nil || len(takeoff.Rooms) != 0 {
		t.Fatalf("empty rooms list must survive as empty, got %+v", takeoff.Rooms)
	}
}

func TestParseTakeoffRejectsRefusals(t *testing.T) {
	for _, raw := range []string{
		"I can't analyze this image.",
		"I'm sorry, but I cannot help with that.",
		"As an AI, I am unable to process blueprints.",
	} {
		if _, err := ParseTakeoff(raw); err == nil {
			t.Fatalf("refusal %q must be rejected", raw)
		}
	}
}

func TestParseTakeoffRequiresRoomsKey(t *testing.T) {
	if _, err := ParseTakeoff(`{"confidence": 0.9}`); err == nil {
		t.Fatalf("missing rooms key must be rejected")
	}
}

func TestParseTakeoffClampsConfidence(t *testing.T) {
	takeoff, err := ParseTakeoff(`{"rooms": [], "confidence": 3.5}`)
	if err != nil {
		t.Fatalf("ParseTakeoff: %v", err)
	}
	if takeoff.Confidence != 1 {
		t.Fatalf("confidence must clamp to 1, got %f", takeoff.Confidence)
	}
}

func TestParseTakeoffRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "no json here", "{broken"} {
		if _, err := ParseTakeoff(raw); err == nil {
			t.Fatalf("garbage %q must be rejected", raw)
		}
	}
}

// ---------------------------------------------------------------------------

type stubProvider struct {
	id      string
	takeoff *Takeoff
	err     error
	calls   int
}

func (s *stubProvider) ModelID() string { return s.id }
func (s *stubProvider) Analyze(ctx context.Context, req Request) (*Takeoff, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.takeoff, nil
}

func onePageDoc() *blueprint.Document {
	return &blueprint.Document{Pages: []blueprint.Page{{
		Index: 0,
		Image: blueprint.PageImage{PageIndex: 0, Bytes: []byte("fake-png"), MIMEType: "image/png"},
	}}}
}

func TestAnalyzerFallsThroughToNextModel(t *testing.T) {
	failing := &stubProvider{id: "model-a", err: errors.New("quota exceeded")}
	working := &stubProvider{id: "model-b", takeoff: &Takeoff{Rooms: []RoomHint{{Name: "Kitchen"}}}}

	a := NewAnalyzer([]Provider{failing, working}, time.Second, 5*time.Second, 2, nil)
	takeoff, err := a.Analyze(context.Background(), onePageDoc(), nil, "63101")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if takeoff.ModelID != "model-b" {
		t.Fatalf("winning model must stamp the takeoff, got %s", takeoff.ModelID)
	}
	if failing.calls != 1 {
		t.Fatalf("failing model must be tried exactly once (no same-model retry), got %d", failing.calls)
	}
}

func TestAnalyzerAllProvidersFail(t *testing.T) {
	a := NewAnalyzer([]Provider{
		&stubProvider{id: "a", err: errors.New("boom")},
		&stubProvider{id: "b", err: errors.New("boom too")},
	}, time.Second, 5*time.Second, 2, nil)

	_, err := a.Analyze(context.Background(), onePageDoc(), nil, "63101")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAnalyzerNoProviders(t *testing.T) {
	a := NewAnalyzer(nil, time.Second, time.Second, 2, nil)
	if a.Enabled() {
		t.Fatalf("analyzer without providers must report disabled")
	}
	if _, err := a.Analyze(context.Background(), onePageDoc(), nil, "63101"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSelectPagesPrefersFloorPlansLargestFirst(t *testing.T) {
	doc := &blueprint.Document{Pages: []blueprint.Page{
		{Index: 0, Image: blueprint.PageImage{Bytes: make([]byte, 100)}},
		{Index: 1, Image: blueprint.PageImage{Bytes: make([]byte, 900)}},
		{Index: 2, Image: blueprint.PageImage{Bytes: make([]byte, 500)}},
		{Index: 3, Image: blueprint.PageImage{Bytes: make([]byte, 700)}},
		{Index: 4, Image: blueprint.PageImage{Bytes: make([]byte, 50)}},
		{Index: 5, Image: blueprint.PageImage{Bytes: make([]byte, 60)}},
	}}
	cls := []pages.Classification{
		{PageIndex: 2, Kind: pages.KindFloorPlan},
		{PageIndex: 4, Kind: pages.KindFloorPlan},
		{PageIndex: 1, Kind: pages.KindElevation},
	}

	selected := SelectPages(doc, cls, 5)
	if len(selected) != 5 {
		t.Fatalf("expected 5 selected pages, got %d", len(selected))
	}
	// Floor plans first, by size: page 2 (500) then page 4 (50).
	if selected[0].Index != 2 || selected[1].Index != 4 {
		t.Fatalf("floor plans must lead: got %d, %d", selected[0].Index, selected[1].Index)
	}
	// Remaining by size: 1 (900), 3 (700), 0 (100).
	if selected[2].Index != 1 || selected[3].Index != 3 || selected[4].Index != 0 {
		t.Fatalf("non-plan pages out of order: %d %d %d", selected[2].Index, selected[3].Index, selected[4].Index)
	}
}

func TestCompressPassThroughSmallImages(t *testing.T) {
	img := blueprint.PageImage{Bytes: []byte("tiny"), MIMEType: "image/png"}
	out, err := Compress(img)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if out.MIMEType != "image/png" || string(out.Data) != "tiny" {
		t.Fatalf("small images must pass through untouched: %+v", out)
	}
}

func TestCompressRejectsEmpty(t *testing.T) {
	if _, err := Compress(blueprint.PageImage{}); err == nil {
		t.Fatalf("empty image must be rejected")
	}
}

func TestBuildPromptEmbedsZip(t *testing.T) {
	p := buildPrompt("63101")
	if !strings.Contains(p, "63101") {
		t.Fatalf("prompt must embed the ZIP")
	}
	if !strings.Contains(p, "rooms") || !strings.Contains(p, "envelope_hints") {
		t.Fatalf("prompt must describe the takeoff schema")
	}
}
