// Package blueprint converts an uploaded PDF sheet set into the normalized
// page structures the extraction pipeline consumes: raster page images, text
// runs with bounding boxes, and vector path primitives.
package blueprint

import "math"

// Point is a coordinate in page space (pixels at render resolution).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle in page space.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Area returns the rectangle area.
func (r Rect) Area() float64 { return r.Width() * r.Height() }

// Center returns the rectangle center point.
func (r Rect) Center() Point {
	return Point{X: (r.X0 + r.X1) / 2, Y: (r.Y0 + r.Y1) / 2}
}

// Contains reports whether p lies inside the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X0 && p.X <= r.X1 && p.Y >= r.Y0 && p.Y <= r.Y1
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// PageImage is a rendered page raster. Immutable once produced.
type PageImage struct {
	PageIndex int    `json:"page_index"`
	Bytes     []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	WidthPx   int    `json:"width_px"`
	HeightPx  int    `json:"height_px"`
	DPI       float64 `json:"dpi"`
}

// TextRun is a text string with its bounding box. Immutable.
type TextRun struct {
	PageIndex int    `json:"page_index"`
	Text      string `json:"text"`
	BBox      Rect   `json:"bbox"`
}

// PrimitiveKind enumerates vector primitive types.
type PrimitiveKind string

const (
	PrimitiveLine      PrimitiveKind = "line"
	PrimitivePolyline  PrimitiveKind = "polyline"
	PrimitiveRectangle PrimitiveKind = "rectangle"
	PrimitiveArc       PrimitiveKind = "arc"
)

// Primitive is one typed vector element with endpoints in page space.
type Primitive struct {
	Kind   PrimitiveKind `json:"kind"`
	Points []Point       `json:"points"` // line: 2; polyline: n; rectangle: corner pair; arc: center
	Radius float64       `json:"radius,omitempty"`
	// SweepDeg is the arc sweep angle; door swings render as quarter circles.
	SweepDeg float64 `json:"sweep_deg,omitempty"`
}

// Length returns the primitive length for line primitives, 0 otherwise.
func (p Primitive) Length() float64 {
	if p.Kind != PrimitiveLine || len(p.Points) != 2 {
		return 0
	}
	return Distance(p.Points[0], p.Points[1])
}

// IsHorizontal reports whether a line primitive is horizontal within tolerance.
func (p Primitive) IsHorizontal(tolerancePx float64) bool {
	if p.Kind != PrimitiveLine || len(p.Points) != 2 {
		return false
	}
	return math.Abs(p.Points[0].Y-p.Points[1].Y) <= tolerancePx
}

// IsVertical reports whether a line primitive is vertical within tolerance.
func (p Primitive) IsVertical(tolerancePx float64) bool {
	if p.Kind != PrimitiveLine || len(p.Points) != 2 {
		return false
	}
	return math.Abs(p.Points[0].X-p.Points[1].X) <= tolerancePx
}

// VectorPath is the set of primitives for one page. Immutable.
type VectorPath struct {
	PageIndex  int         `json:"page_index"`
	Primitives []Primitive `json:"primitives"`
}

// Page bundles everything extracted from a single PDF page.
type Page struct {
	Index    int        `json:"index"`
	Rect     Rect       `json:"rect"`
	Image    PageImage  `json:"image"`
	TextRuns []TextRun  `json:"text_runs"`
	Vectors  VectorPath `json:"vectors"`
}

// Document is a fully loaded sheet set.
type Document struct {
	Pages    []Page   `json:"pages"`
	Warnings []string `json:"warnings"`
}
