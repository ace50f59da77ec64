package manualj

import (
	"math"

	"heatload_backend/internal/envelope"
)

// AIM-2 / Sherman-Grimsrud infiltration: blower-door leakage converted to an
// effective leakage area, then driven by stack effect and wind.
//
//	Q(cfm) = ELA(in2) * sqrt(Cs*dT + Cw*U^2)

const (
	// elaPerCFM50 converts CFM50 to effective leakage area in square inches.
	elaPerCFM50 = 0.048

	// Design wind speeds per Manual J.
	winterWindMPH = 15.0
	summerWindMPH = 10.0

	// latentFactor is the coefficient in Q_latent = 4840 * CFM * dW.
	latentFactor = 4840.0
)

// stackCoefficient by story count.
func stackCoefficient(stories int) float64 {
	switch {
	case stories <= 1:
		return 0.0150
	case stories == 2:
		return 0.0299
	default:
		return 0.0449
	}
}

// windCoefficient by shielding class and story count.
func windCoefficient(shielding envelope.WindShielding, stories int) float64 {
	if stories <= 1 {
		switch shielding {
		case envelope.ShieldingExposed:
			return 0.0092
		case envelope.ShieldingShielded:
			return 0.0039
		default:
			return 0.0065
		}
	}
	switch shielding {
	case envelope.ShieldingExposed:
		return 0.0121
	case envelope.ShieldingShielded:
		return 0.0051
	default:
		return 0.0086
	}
}

// InfiltrationResult is one design-condition infiltration computation.
type InfiltrationResult struct {
	CFM        float64
	ACHNatural float64
}

// Infiltration computes the natural infiltration flow for one design
// condition from blower-door leakage and drivers.
func Infiltration(ach50, volumeCuFt, deltaT, windMPH float64, shielding envelope.WindShielding, stories int) InfiltrationResult {
	if ach50 <= 0 || volumeCuFt <= 0 {
		return InfiltrationResult{}
	}
	cfm50 := ach50 * volumeCuFt / 60
	ela := cfm50 * elaPerCFM50

	cs := stackCoefficient(stories)
	cw := windCoefficient(shielding, stories)

	driver := cs*math.Abs(deltaT) + cw*windMPH*windMPH
	cfm := ela * math.Sqrt(driver)

	return InfiltrationResult{
		CFM:        cfm,
		ACHNatural: cfm * 60 / volumeCuFt,
	}
}

// LatentLoad returns the latent load for a flow and humidity-ratio
// difference, clipped at zero for dry climates.
func LatentLoad(cfm, humidityRatioOutdoor, humidityRatioIndoor float64) float64 {
	dw := humidityRatioOutdoor - humidityRatioIndoor
	if dw <= 0 {
		return 0
	}
	return latentFactor * cfm * dw
}
