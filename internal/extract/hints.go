package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/arkitecto/internal/budget"
)

var (
	// Grouped thousands ("1.000", "12.500,5") are tried before plain decimals
	areaPattern    = regexp.MustCompile(`(\d{1,3}(?:\.\d{3})+(?:,\d+)?|\d+(?:[.,]\d+)?)\s*m[²2]`)
	groupedPattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+(?:,\d+)?$`)
	countPattern   = regexp.MustCompile(`(\d+)\s*(unidad|un|und|u\b|puerta|ventana)`)
)

// Hints extracts the first area ("40m2", "12,5 m²", "1.000 m2") and unit
// count ("3 puertas", "2 un") mentioned in an instruction. Values outside
// budget.MaxArea and budget.MaxCount are treated as absent.
func Hints(instruction string) budget.Hints {
	lower := strings.ToLower(instruction)
	var h budget.Hints

	if m := areaPattern.FindStringSubmatch(lower); m != nil {
		if area, ok := parseArea(m[1]); ok {
			h.Area = area
		}
	}
	if m := countPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= budget.MaxCount {
			h.Count = n
		}
	}
	return h
}

// parseArea reads a Chilean formatted number: "." groups thousands when
// followed by three digits, "," is the decimal mark
func parseArea(raw string) (float64, bool) {
	if groupedPattern.MatchString(raw) {
		raw = strings.ReplaceAll(raw, ".", "")
	}
	area, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil || math.IsInf(area, 0) || math.IsNaN(area) || area > budget.MaxArea {
		return 0, false
	}
	return area, true
}
