package extract

import (
	"regexp"
	"strconv"
	"strings"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/takeoff"
)

// ScheduleEntry is one parsed row of a window or door schedule.
type ScheduleEntry struct {
	Mark     string              `json:"mark"`
	Kind     takeoff.OpeningKind `json:"kind"`
	WidthFt  float64             `json:"width_ft"`
	HeightFt float64             `json:"height_ft"`
	UValue   float64             `json:"u_value,omitempty"`
	SHGC     float64             `json:"shgc,omitempty"`
}

// markCode matches architectural size marks like 3050 (3'0" x 5'0") and
// 2868 (2'8" x 6'8").
var markCode = regexp.MustCompile(`\b([1-9])(\d)([1-9])(\d)\b`)

var scheduleHeader = regexp.MustCompile(`(?i)(window|door)\s+schedule`)

// ParseSchedules detects window/door schedules on a page and parses their
// mark codes into opening sizes. U-value and SHGC columns are picked up when
// they appear in the same row text.
func ParseSchedules(page blueprint.Page) []ScheduleEntry {
	kind, found := scheduleKind(page.TextRuns)
	if !found {
		return nil
	}

	var out []ScheduleEntry
	seen := map[string]bool{}
	for _, run := range page.TextRuns {
		m := markCode.FindStringSubmatch(run.Text)
		if m == nil {
			continue
		}
		mark := m[0]
		if seen[mark] {
			continue
		}

		widthFt, okW := feetInchesDigits(m[1], m[2])
		heightFt, okH := feetInchesDigits(m[3], m[4])
		if !okW || !okH {
			continue
		}
		// A 9'x9'+ opening is not a residential window or door mark.
		if widthFt > 8 || heightFt > 8 {
			continue
		}

		entry := ScheduleEntry{
			Mark:     mark,
			Kind:     kind,
			WidthFt:  widthFt,
			HeightFt: heightFt,
		}
		if u, ok := rowUValue(run.Text); ok {
			entry.UValue = u
		}
		if shgc, ok := rowSHGC(run.Text); ok {
			entry.SHGC = shgc
		}
		seen[mark] = true
		out = append(out, entry)
	}
	return out
}

func scheduleKind(runs []blueprint.TextRun) (takeoff.OpeningKind, bool) {
	for _, run := range runs {
		if m := scheduleHeader.FindStringSubmatch(run.Text); m != nil {
			if strings.EqualFold(m[1], "door") {
				return takeoff.OpeningDoor, true
			}
			return takeoff.OpeningWindow, true
		}
	}
	return "", false
}

// feetInchesDigits converts a (feet digit, inches digit) mark pair to feet.
func feetInchesDigits(feet, inches string) (float64, bool) {
	f, err := strconv.ParseFloat(feet, 64)
	if err != nil {
		return 0, false
	}
	i, err := strconv.ParseFloat(inches, 64)
	if err != nil || i >= 12 {
		return 0, false
	}
	return f + i/12, true
}

var rowUPattern = regexp.MustCompile(`(?i)U[\s-]?(0?\.\d{1,3})`)
var rowSHGCPattern = regexp.MustCompile(`(?i)SHGC[\s:=-]*(0?\.\d{1,3})`)

func rowUValue(text string) (float64, bool) {
	if m := rowUPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v, err == nil
	}
	return 0, false
}

func rowSHGC(text string) (float64, bool) {
	if m := rowSHGCPattern.FindStringSubmatch(text); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		return v, err == nil
	}
	return 0, false
}
