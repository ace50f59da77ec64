// Package climate maps US ZIP codes to IECC climate zones and ASHRAE design
// conditions. Tables ship with the binary; lookups never perform I/O.
package climate

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"heatload_backend/platform/apperr"
)

//go:embed data/zip_prefix_to_zone.csv data/zone_to_design.csv
var dataFS embed.FS

// Source describes how a Design was resolved.
type Source string

const (
	SourceTable    Source = "table"
	SourceFallback Source = "fallback"
)

// FallbackZone is used when a ZIP prefix is not in the table. Downstream
// quality scoring treats fallback climate data as a confidence reduction.
const FallbackZone = "4A"

// Design holds the design conditions for a location.
type Design struct {
	Zip           string  `json:"zip"`
	Zone          string  `json:"zone"`
	Winter99      float64 `json:"winter_99"`
	Summer1       float64 `json:"summer_1"`
	SummerWetBulb float64 `json:"summer_wb"`
	DailyRange    float64 `json:"daily_range"`
	HumidityRatioSummer float64 `json:"humidity_ratio_summer"`
	HumidityRatioWinter float64 `json:"humidity_ratio_winter"`
	Source        Source  `json:"source"`
}

// ZoneNumber returns the numeric part of the IECC zone ("4A" -> 4).
func (d Design) ZoneNumber() int {
	return zoneNumber(d.Zone)
}

func zoneNumber(zone string) int {
	if zone == "" {
		return 4
	}
	n, err := strconv.Atoi(zone[:1])
	if err != nil {
		return 4
	}
	return n
}

var zipPattern = regexp.MustCompile(`^\d{5}$`)

// Registry resolves ZIP codes against the embedded tables.
type Registry struct {
	prefixToZone map[string]string
	zoneDesign   map[string]Design
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// Default returns the process-wide registry backed by the embedded tables.
func Default() *Registry {
	registryOnce.Do(func() {
		r, err := load()
		if err != nil {
			// Embedded data is part of the build; a parse failure here is a
			// broken release, not a runtime condition.
			panic(fmt.Sprintf("climate: embedded tables unreadable: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}

func load() (*Registry, error) {
	r := &Registry{
		prefixToZone: make(map[string]string),
		zoneDesign:   make(map[string]Design),
	}

	if err := readCSV("data/zip_prefix_to_zone.csv", 2, func(rec []string) error {
		r.prefixToZone[rec[0]] = rec[1]
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readCSV("data/zone_to_design.csv", 7, func(rec []string) error {
		vals := make([]float64, 6)
		for i := 0; i < 6; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return fmt.Errorf("zone %s column %d: %w", rec[0], i+1, err)
			}
			vals[i] = v
		}
		r.zoneDesign[rec[0]] = Design{
			Zone:                rec[0],
			Winter99:            vals[0],
			Summer1:             vals[1],
			SummerWetBulb:       vals[2],
			DailyRange:          vals[3],
			HumidityRatioSummer: vals[4],
			HumidityRatioWinter: vals[5],
			Source:              SourceTable,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return r, nil
}

func readCSV(name string, fields int, fn func(rec []string) error) error {
	f, err := dataFS.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = fields
	header := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if header {
			header = false
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// ForZip resolves the design conditions for a 5-digit ZIP code.
// Unknown prefixes fall back to zone 4A with documented defaults and
// Source set to fallback.
func (r *Registry) ForZip(zip string) (Design, error) {
	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return Design{}, apperr.Validation(fmt.Sprintf("zip must be a 5-digit string, got %q", zip))
	}

	zone, ok := r.prefixToZone[zip[:3]]
	if !ok {
		d := r.fallbackDesign()
		d.Zip = zip
		return d, nil
	}

	d, ok := r.zoneDesign[zone]
	if !ok {
		d = r.fallbackDesign()
	}
	d.Zip = zip
	d.Zone = zone
	return d, nil
}

func (r *Registry) fallbackDesign() Design {
	if d, ok := r.zoneDesign[FallbackZone]; ok {
		d.Source = SourceFallback
		return d
	}
	// Documented hard defaults if even the zone table misses 4A.
	return Design{
		Zone:                FallbackZone,
		Winter99:            10,
		Summer1:             90,
		SummerWetBulb:       75,
		DailyRange:          20,
		HumidityRatioSummer: 0.010,
		HumidityRatioWinter: 0.004,
		Source:              SourceFallback,
	}
}
