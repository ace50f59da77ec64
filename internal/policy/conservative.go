// Package policy holds the conservative-unknowns defaults applied before
// calculation and the engineering sanity clamps applied after. Missing
// envelope information always resolves to the heating-penalizing option so
// sparse blueprints never produce undersized systems.
package policy

import (
	"fmt"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
)

// Conservative defaults.
const (
	ach50DefaultNew      = 5.0
	ach50DefaultExisting = 7.0
	shgcDefaultMid       = 0.30
	wwrDefaultPerFacade  = 0.20
	crawlFloorRDefault   = 19.0
)

// ApplyConservativeUnknowns fills every unset envelope field with its
// heating-penalizing default. Mutates env in place and returns the list of
// applied policies. Applying it twice is a no-op: the second pass finds all
// fields set.
func ApplyConservativeUnknowns(env *envelope.Envelope, stories int) []string {
	var applied []string

	if env.Foundation.Source == "" || env.Foundation.Value == "" {
		env.Foundation = envelope.StringField{
			Value:      string(envelope.FoundationCrawlVented),
			Source:     envelope.SourceConservativeDefault,
			Confidence: 0.4,
		}
		applied = append(applied, "foundation: unknown -> vented crawlspace")

		if env.FloorR.Source == "" || env.FloorR.Value <= 0 {
			env.FloorR = envelope.Field{
				Value:      crawlFloorRDefault,
				Source:     envelope.SourceConservativeDefault,
				Confidence: 0.4,
			}
			applied = append(applied, "floor insulation over crawl: unknown -> R-19")
		}
	}

	if env.DuctLoc.Source == "" || env.DuctLoc.Value == "" {
		if stories <= 1 {
			env.DuctLoc = envelope.StringField{
				Value:      string(envelope.DuctVentedAttic),
				Source:     envelope.SourceConservativeDefault,
				Confidence: 0.4,
			}
			applied = append(applied, "ducts: single-story unknown -> vented attic")
		} else {
			env.DuctLoc = envelope.StringField{
				Value:      string(envelope.DuctCrawl),
				Source:     envelope.SourceConservativeDefault,
				Confidence: 0.4,
			}
			applied = append(applied, "ducts: multi-story unknown -> crawl")
		}
	}

	if env.ACH50.Source == "" || env.ACH50.Value <= 0 {
		value := ach50DefaultExisting
		label := "existing"
		if climate.IsNewEra(env.ConstructionEra) {
			value = ach50DefaultNew
			label = "new construction"
		}
		env.ACH50 = envelope.Field{
			Value:      value,
			Source:     envelope.SourceConservativeDefault,
			Confidence: 0.4,
		}
		applied = append(applied, fmt.Sprintf("ach50: %s unknown -> %.1f", label, value))
	}

	if env.Shielding.Source == "" || env.Shielding.Value == "" {
		if stories <= 1 {
			env.Shielding = envelope.StringField{
				Value:      string(envelope.ShieldingExposed),
				Source:     envelope.SourceConservativeDefault,
				Confidence: 0.4,
			}
			applied = append(applied, "wind shielding: single-story unknown -> exposed")
		} else {
			env.Shielding = envelope.StringField{
				Value:      string(envelope.ShieldingNormal),
				Source:     envelope.SourceConservativeDefault,
				Confidence: 0.4,
			}
			applied = append(applied, "wind shielding: multi-story unknown -> normal")
		}
	}

	if env.WindowU.Source == "" || env.WindowU.Value <= 0 {
		zone := climate.DefaultsForZone(env.Zone)
		env.WindowU = envelope.Field{
			Value:      zone.WindowU,
			Source:     envelope.SourceConservativeDefault,
			Confidence: 0.4,
		}
		applied = append(applied, fmt.Sprintf("window U: unknown -> %.2f (code max for %s)", zone.WindowU, env.Zone))
	}

	if env.WindowSHGC.Source == "" || env.WindowSHGC.Value <= 0 {
		env.WindowSHGC = envelope.Field{
			Value:      shgcDefaultMid,
			Source:     envelope.SourceConservativeDefault,
			Confidence: 0.4,
		}
		applied = append(applied, "window SHGC: unknown -> 0.30 (mid-range)")
	}

	if env.WWRPerFacade.Source == "" || env.WWRPerFacade.Value <= 0 {
		env.WWRPerFacade = envelope.Field{
			Value:      wwrDefaultPerFacade,
			Source:     envelope.SourceConservativeDefault,
			Confidence: 0.4,
		}
		applied = append(applied, "wwr: unknown -> 20% per facade")
	}

	// Rim joists are always treated as part of the infiltration surface;
	// the policy records the assumption for the audit.
	if len(applied) > 0 {
		applied = append(applied, "rim joists: always included in leakage surface")
	}

	return applied
}
