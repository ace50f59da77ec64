// Package transport defines the estimate module's request and response
// shapes shared by the HTTP handlers, the worker, and the CLI.
package transport

// Assumptions are the user-provided inputs that accompany a blueprint.
type Assumptions struct {
	DuctConfig      string `json:"duct_config" validate:"required,oneof=conditioned basement crawl vented_attic ductless"`
	HeatingFuel     string `json:"heating_fuel" validate:"required,oneof=gas electric heat_pump"`
	ConstructionEra string `json:"construction_era,omitempty" validate:"omitempty,oneof=1960s 1970s 1980s 1990s 2000s 2010s 2020s new"`
	FoundationType  string `json:"foundation_type,omitempty" validate:"omitempty,oneof=slab crawl_vented crawl_conditioned basement_unheated basement_conditioned"`

	WindowSpec        *WindowSpec        `json:"window_spec,omitempty"`
	EnvelopeOverrides *EnvelopeOverrides `json:"envelope_overrides,omitempty"`
}

// WindowSpec optionally pins the glazing performance.
type WindowSpec struct {
	UValue float64 `json:"u_value" validate:"omitempty,gt=0,lte=1.2"`
	SHGC   float64 `json:"shgc" validate:"omitempty,gt=0,lte=0.9"`
}

// EnvelopeOverrides optionally pins insulation and leakage values.
type EnvelopeOverrides struct {
	WallR    float64 `json:"wall_r,omitempty" validate:"omitempty,gt=0"`
	CeilingR float64 `json:"ceiling_r,omitempty" validate:"omitempty,gt=0"`
	ACH50    float64 `json:"ach50,omitempty" validate:"omitempty,gt=0,lte=20"`
}

// EstimateRequest is the inbound surface consumed from orchestration.
type EstimateRequest struct {
	Zip         string      `json:"zip" validate:"required,uszip"`
	Assumptions Assumptions `json:"assumptions" validate:"required"`
}

// StatusResponse reports run progress to polling clients.
type StatusResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"` // queued | running | done | needs_input | failed
	Error  string `json:"error,omitempty"`
}
