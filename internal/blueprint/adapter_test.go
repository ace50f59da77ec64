package blueprint

import (
	"testing"

	"heatload_backend/platform/apperr"
)

func TestValidatePDFRejectsEmpty(t *testing.T) {
	_, err := validatePDF(nil)
	if !apperr.Is(err, apperr.KindSourceUnreadable) {
		t.Fatalf("expected source-unreadable for empty input, got %v", err)
	}
}

func TestValidatePDFRejectsBadHeader(t *testing.T) {
	_, err := validatePDF([]byte("this is not a pdf"))
	if !apperr.Is(err, apperr.KindSourceUnreadable) {
		t.Fatalf("expected source-unreadable for bad header, got %v", err)
	}
}

func TestValidatePDFRejectsTruncatedBody(t *testing.T) {
	_, err := validatePDF([]byte("%PDF-1.7\ngarbage"))
	if !apperr.Is(err, apperr.KindSourceUnreadable) {
		t.Fatalf("expected source-unreadable for truncated body, got %v", err)
	}
}

func TestRectHelpers(t *testing.T) {
	r := Rect{X0: 10, Y0: 20, X1: 110, Y1: 70}
	if r.Width() != 100 || r.Height() != 50 {
		t.Fatalf("unexpected dimensions: %f x %f", r.Width(), r.Height())
	}
	if r.Area() != 5000 {
		t.Fatalf("unexpected area: %f", r.Area())
	}
	c := r.Center()
	if c.X != 60 || c.Y != 45 {
		t.Fatalf("unexpected center: %+v", c)
	}
	if !r.Contains(Point{X: 60, Y: 45}) {
		t.Fatalf("center should be contained")
	}
	if r.Contains(Point{X: 0, Y: 0}) {
		t.Fatalf("origin should not be contained")
	}
}

func TestPrimitiveOrientation(t *testing.T) {
	h := Primitive{Kind: PrimitiveLine, Points: []Point{{X: 0, Y: 10}, {X: 100, Y: 11}}}
	if !h.IsHorizontal(2) {
		t.Fatalf("nearly flat line should be horizontal within tolerance")
	}
	if h.IsVertical(2) {
		t.Fatalf("horizontal line must not be vertical")
	}

	v := Primitive{Kind: PrimitiveLine, Points: []Point{{X: 50, Y: 0}, {X: 50, Y: 80}}}
	if !v.IsVertical(2) {
		t.Fatalf("vertical line should be vertical")
	}
	if v.Length() != 80 {
		t.Fatalf("unexpected length %f", v.Length())
	}

	arc := Primitive{Kind: PrimitiveArc, Points: []Point{{X: 0, Y: 0}}, Radius: 3}
	if arc.Length() != 0 {
		t.Fatalf("arc length should be 0 via Length()")
	}
}
