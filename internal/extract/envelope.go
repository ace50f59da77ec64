package extract

import (
	"regexp"
	"strconv"
	"strings"

	"heatload_backend/internal/blueprint"
)

// FindingKind identifies what an envelope spec hit describes.
type FindingKind string

const (
	FindingWallR        FindingKind = "wall_r"
	FindingCeilingR     FindingKind = "ceiling_r"
	FindingFloorR       FindingKind = "floor_r"
	FindingRValue       FindingKind = "r_value" // unattributed R-value
	FindingWindowU      FindingKind = "window_u"
	FindingACH50        FindingKind = "ach50"
	FindingConstruction FindingKind = "construction" // SIP / ICF / continuous insulation
	FindingDuctLocation FindingKind = "duct_location"
	FindingFoundation   FindingKind = "foundation"
)

// EnvelopeFinding is one spec hit with its page location and confidence.
type EnvelopeFinding struct {
	Kind       FindingKind    `json:"kind"`
	Value      float64        `json:"value,omitempty"`
	Text       string         `json:"text"`
	PageIndex  int            `json:"page_index"`
	BBox       blueprint.Rect `json:"bbox"`
	Confidence float64        `json:"confidence"`
}

var (
	rValuePattern  = regexp.MustCompile(`(?i)\bR[\s-]?(\d{1,2})\b`)
	uValuePattern  = regexp.MustCompile(`(?i)\bU[\s-]?(0?\.\d{1,3})\b`)
	ach50Pattern   = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*ACH\s*(?:@\s*)?50\b|\bACH50\s*[:=]?\s*(\d+(?:\.\d+)?)`)
	wallContext    = regexp.MustCompile(`(?i)wall|stud|cavity`)
	ceilingContext = regexp.MustCompile(`(?i)ceiling|roof|attic`)
	floorContext   = regexp.MustCompile(`(?i)floor|crawl|slab edge`)
	windowContext  = regexp.MustCompile(`(?i)window|glazing|fenestration`)
)

var constructionTerms = []string{"sip", "icf", "continuous insulation", "ci insulation", "rigid foam"}

var ductTerms = []string{"ducts in attic", "attic ducts", "ducts in crawl", "ducts in basement", "ducts in conditioned"}

var foundationTerms = []string{"slab on grade", "crawl space", "crawlspace", "basement", "stem wall"}

// ExtractEnvelope mines text runs for insulation, leakage, duct, and
// foundation specs. Hits carry confidence 0.7-0.9: attributed values score
// higher than bare numbers.
func ExtractEnvelope(page blueprint.Page) []EnvelopeFinding {
	var out []EnvelopeFinding

	for _, run := range page.TextRuns {
		text := run.Text
		lower := strings.ToLower(text)

		if m := rValuePattern.FindStringSubmatch(text); m != nil {
			value, _ := strconv.ParseFloat(m[1], 64)
			kind := FindingRValue
			conf := 0.7
			switch {
			case wallContext.MatchString(text):
				kind, conf = FindingWallR, 0.9
			case ceilingContext.MatchString(text):
				kind, conf = FindingCeilingR, 0.9
			case floorContext.MatchString(text):
				kind, conf = FindingFloorR, 0.85
			}
			out = append(out, EnvelopeFinding{
				Kind: kind, Value: value, Text: text,
				PageIndex: page.Index, BBox: run.BBox, Confidence: conf,
			})
		}

		if m := uValuePattern.FindStringSubmatch(text); m != nil {
			value, _ := strconv.ParseFloat(m[1], 64)
			conf := 0.7
			if windowContext.MatchString(text) {
				conf = 0.9
			}
			out = append(out, EnvelopeFinding{
				Kind: FindingWindowU, Value: value, Text: text,
				PageIndex: page.Index, BBox: run.BBox, Confidence: conf,
			})
		}

		if m := ach50Pattern.FindStringSubmatch(text); m != nil {
			raw := m[1]
			if raw == "" {
				raw = m[2]
			}
			value, _ := strconv.ParseFloat(raw, 64)
			if value > 0 {
				out = append(out, EnvelopeFinding{
					Kind: FindingACH50, Value: value, Text: text,
					PageIndex: page.Index, BBox: run.BBox, Confidence: 0.9,
				})
			}
		}

		for _, term := range constructionTerms {
			if strings.Contains(lower, term) {
				out = append(out, EnvelopeFinding{
					Kind: FindingConstruction, Text: text,
					PageIndex: page.Index, BBox: run.BBox, Confidence: 0.8,
				})
				break
			}
		}

		for _, term := range ductTerms {
			if strings.Contains(lower, term) {
				out = append(out, EnvelopeFinding{
					Kind: FindingDuctLocation, Text: text,
					PageIndex: page.Index, BBox: run.BBox, Confidence: 0.8,
				})
				break
			}
		}

		for _, term := range foundationTerms {
			if strings.Contains(lower, term) {
				out = append(out, EnvelopeFinding{
					Kind: FindingFoundation, Text: text,
					PageIndex: page.Index, BBox: run.BBox, Confidence: 0.75,
				})
				break
			}
		}
	}
	return out
}
