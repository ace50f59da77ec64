package scale

import (
	"fmt"
	"math"
	"sort"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/pages"
)

// Multi-page reconciliation: sheet sets often carry one scale notation per
// floor plan, and a sloppy set can disagree across sheets. Per-page
// estimates are clustered and the run either converges on one scale or
// surfaces the disagreement.

// pageScaleAgreementTolerance is the relative difference under which two
// page scales count as the same drawing scale.
const pageScaleAgreementTolerance = 0.10

// PageScale is one page's best estimate.
type PageScale struct {
	PageIndex int   `json:"page_index"`
	Scale     Scale `json:"scale"`
}

// MultiPageResult is the reconciled document-level outcome.
type MultiPageResult struct {
	Result
	PerPage    []PageScale `json:"per_page,omitempty"`
	Consistent bool        `json:"consistent"`
}

// EstimateMultiPage estimates per floor-plan page, then reconciles. When
// every page agrees within tolerance the consensus is selected with a small
// confidence boost; disagreement keeps the best page but flags the set.
func (e *Estimator) EstimateMultiPage(doc *blueprint.Document, classifications []pages.Classification, override float64) MultiPageResult {
	if override > 0 {
		return MultiPageResult{Result: e.Estimate(doc, classifications, override), Consistent: true}
	}

	planPages := floorPlanPages(doc, classifications)
	if len(planPages) < 2 {
		return MultiPageResult{Result: e.Estimate(doc, classifications, 0), Consistent: true}
	}

	var perPage []PageScale
	for _, page := range planPages {
		single := blueprint.Document{Pages: []blueprint.Page{page}}
		res := e.Estimate(&single, nil, 0)
		if res.Selected == nil {
			continue
		}
		perPage = append(perPage, PageScale{PageIndex: page.Index, Scale: *res.Selected})
	}

	if len(perPage) == 0 {
		return MultiPageResult{Result: e.Estimate(doc, classifications, 0)}
	}

	clusters := clusterPageScales(perPage)
	best := clusters[0]

	consistent := len(clusters) == 1
	selected := best.representative()
	if consistent && len(best.members) > 1 {
		// Independent agreement across sheets is stronger evidence than any
		// single page.
		selected.Confidence = math.Min(0.98, selected.Confidence+0.05)
		selected.Evidence = fmt.Sprintf("%d floor-plan pages agree at %.0f px/ft",
			len(best.members), selected.PixelsPerFoot)
	}

	out := MultiPageResult{PerPage: perPage, Consistent: consistent}
	if selected.Confidence < minSelectableConfidence {
		alternatives := make([]Scale, 0, len(clusters))
		for _, c := range clusters {
			alternatives = append(alternatives, c.representative())
		}
		out.Result = Result{
			Alternatives:   alternatives,
			NeedsInput:     true,
			Recommendation: recommendationFor(alternatives),
		}
		return out
	}

	out.Result = Result{Selected: &selected, Alternatives: []Scale{selected}}
	if !consistent {
		for _, c := range clusters[1:] {
			out.Result.Alternatives = append(out.Result.Alternatives, c.representative())
		}
	}
	return out
}

type scaleCluster struct {
	members []PageScale
}

// representative returns the highest-confidence member.
func (c scaleCluster) representative() Scale {
	best := c.members[0].Scale
	for _, m := range c.members[1:] {
		if m.Scale.Confidence > best.Confidence {
			best = m.Scale
		}
	}
	return best
}

// clusterPageScales groups page scales that agree within tolerance, largest
// cluster first (ties broken by confidence).
func clusterPageScales(perPage []PageScale) []scaleCluster {
	var clusters []scaleCluster
	for _, ps := range perPage {
		placed := false
		for i := range clusters {
			ref := clusters[i].members[0].Scale.PixelsPerFoot
			if math.Abs(ps.Scale.PixelsPerFoot-ref)/ref <= pageScaleAgreementTolerance {
				clusters[i].members = append(clusters[i].members, ps)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, scaleCluster{members: []PageScale{ps}})
		}
	}

	sort.SliceStable(clusters, func(i, j int) bool {
		if len(clusters[i].members) != len(clusters[j].members) {
			return len(clusters[i].members) > len(clusters[j].members)
		}
		return clusters[i].representative().Confidence > clusters[j].representative().Confidence
	})
	return clusters
}
