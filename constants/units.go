package constants

import "strings"

// Unit tokens recognized in BOQ lines, longest alternatives first so regex
// alternation prefers them.
var UnitTokens = []string{
	"sq.m", "cu.m", "sqm", "cum", "rmt", "cft", "sft", "ft2", "m3", "m2",
	"tonnes", "tonne", "tons", "ton", "mt", "kg", "bags", "bag", "nos", "no",
	"each", "rm", "ltr", "km", "ls", "ft",
}

var unitSynonyms = map[string]string{
	"sq.m":   "m2",
	"sqm":    "m2",
	"cu.m":   "m3",
	"cum":    "m3",
	"rmt":    "rm",
	"sft":    "ft2",
	"tonnes": "mt",
	"tonne":  "mt",
	"tons":   "mt",
	"ton":    "mt",
	"bags":   "bag",
	"no":     "nos",
	"each":   "nos",
}

// CanonicalUnit lowercases a unit token and maps synonyms to one spelling.
func CanonicalUnit(input string) string {
	u := strings.ToLower(strings.TrimSuffix(strings.TrimSpace(input), "."))
	if u == "" {
		return ""
	}
	if c, ok := unitSynonyms[u]; ok {
		return c
	}
	return u
}

// TonnesPerUnit converts one unit of a material group into metric tonnes.
// Returns false for units that are not a mass or volume of bulk material.
func TonnesPerUnit(unit string, group MaterialGroup) (float64, bool) {
	switch CanonicalUnit(unit) {
	case "mt", "":
		return 1, true
	case "kg":
		return 0.001, true
	case "bag":
		return 0.05, true
	case "m3":
		return densityOf(group), true
	case "cft":
		return densityOf(group) * 0.0283168, true
	}
	return 0, false
}

// bulk density in t/m3
func densityOf(group MaterialGroup) float64 {
	switch group {
	case GroupCement:
		return 1.44
	case GroupBitumen:
		return 1.01
	case GroupSteel:
		return 7.85
	case GroupAsphalt:
		return 2.3
	}
	return 1.6
}
