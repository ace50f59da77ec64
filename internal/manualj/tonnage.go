package manualj

import (
	"fmt"
	"math"
)

// Residential equipment ships in half-ton steps within this range.
const (
	minEquipmentTons = 1.5
	maxEquipmentTons = 5.0
	btuhPerTon       = 12000.0
)

// TonnageBand maps a load to the nearest half-ton equipment size, clamped to
// the residential range. Loads beyond five tons report the multi-system
// band.
func TonnageBand(btuh float64) string {
	if btuh <= 0 {
		return "n/a"
	}
	tons := btuh / btuhPerTon
	rounded := math.Round(tons*2) / 2
	switch {
	case rounded < minEquipmentTons:
		rounded = minEquipmentTons
	case rounded > maxEquipmentTons:
		return fmt.Sprintf("%.1f ton (multiple systems)", rounded)
	}
	return fmt.Sprintf("%.1f ton", rounded)
}
