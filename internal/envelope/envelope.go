// Package envelope resolves the thermal envelope for a run by layering
// user overrides over blueprint-detected values over era and climate-zone
// defaults, validating everything against code-plausible bounds. Every field
// carries its source and confidence for the audit trail.
package envelope

// FieldSource tags how an envelope value was resolved.
type FieldSource string

const (
	SourceDetected            FieldSource = "detected"
	SourceZoneDefault         FieldSource = "zone_default"
	SourceEraDefault          FieldSource = "era_default"
	SourceUserOverride        FieldSource = "user_override"
	SourceConservativeDefault FieldSource = "conservative_default"
)

// Field is one resolved envelope value with provenance.
type Field struct {
	Value      float64     `json:"value"`
	Source     FieldSource `json:"source"`
	Confidence float64     `json:"confidence"`
}

// StringField is a resolved enum-valued field with provenance.
type StringField struct {
	Value      string      `json:"value"`
	Source     FieldSource `json:"source"`
	Confidence float64     `json:"confidence"`
}

// FoundationKind enumerates foundation types.
type FoundationKind string

const (
	FoundationSlab               FoundationKind = "slab"
	FoundationCrawlVented        FoundationKind = "crawl_vented"
	FoundationCrawlConditioned   FoundationKind = "crawl_conditioned"
	FoundationBasementUnheated   FoundationKind = "basement_unheated"
	FoundationBasementConditioned FoundationKind = "basement_conditioned"
)

// DuctLocation enumerates where the duct network runs.
type DuctLocation string

const (
	DuctConditioned DuctLocation = "conditioned"
	DuctVentedAttic DuctLocation = "vented_attic"
	DuctCrawl       DuctLocation = "crawl"
	DuctBasement    DuctLocation = "basement"
)

// WindShielding classifies site exposure for infiltration.
type WindShielding string

const (
	ShieldingExposed WindShielding = "exposed"
	ShieldingNormal  WindShielding = "normal"
	ShieldingShielded WindShielding = "shielded"
)

// Envelope is the fully resolved thermal envelope for a run.
type Envelope struct {
	WallR      Field `json:"wall_r"`
	CeilingR   Field `json:"ceiling_r"`
	FloorR     Field `json:"floor_r"`
	WindowU    Field `json:"window_u"`
	WindowSHGC Field `json:"window_shgc"`
	DoorU      Field `json:"door_u"`
	ACH50      Field `json:"ach50"`

	Foundation   StringField `json:"foundation_kind"`
	DuctLoc      StringField `json:"duct_location"`
	Shielding    StringField `json:"wind_shielding"`

	CeilingHeightFt Field `json:"ceiling_height_default"`
	WWRPerFacade    Field `json:"wwr_per_facade"`

	Zone            string   `json:"zone"`
	ConstructionEra string   `json:"construction_era,omitempty"`
	Ductless        bool     `json:"ductless"`
	Warnings        []string `json:"warnings,omitempty"`
}

// FoundationKind returns the typed foundation value.
func (e *Envelope) FoundationKind() FoundationKind {
	return FoundationKind(e.Foundation.Value)
}

// DuctLocation returns the typed duct location value.
func (e *Envelope) DuctLocation() DuctLocation {
	return DuctLocation(e.DuctLoc.Value)
}

// Fields returns every resolved field keyed by name, in support of the
// provenance invariant: exactly one (source, confidence) entry per field.
func (e *Envelope) Fields() map[string]Field {
	return map[string]Field{
		"wall_r":                 e.WallR,
		"ceiling_r":              e.CeilingR,
		"floor_r":                e.FloorR,
		"window_u":               e.WindowU,
		"window_shgc":            e.WindowSHGC,
		"door_u":                 e.DoorU,
		"ach50":                  e.ACH50,
		"ceiling_height_default": e.CeilingHeightFt,
		"wwr_per_facade":         e.WWRPerFacade,
	}
}

// StringFields returns every resolved enum field keyed by name.
func (e *Envelope) StringFields() map[string]StringField {
	return map[string]StringField{
		"foundation_kind": e.Foundation,
		"duct_location":   e.DuctLoc,
		"wind_shielding":  e.Shielding,
	}
}
