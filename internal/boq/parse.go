// Package boq recovers bill-of-quantities rows from the plain text of a
// tender document.
package boq

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/road-estimator/constants"
)

// Accepted numeric ranges; values outside are unparseable, not zero.
const (
	MinMoney    = 0.01
	MaxMoney    = 1e9
	MinQuantity = 0.01
	MaxQuantity = 1e7
)

// Line is one candidate line of a document with its position in the text.
type Line struct {
	No   int
	Text string
}

var rePageMarker = regexp.MustCompile(`^-{2,}\s*Page\s+\d+\s*-{2,}$`)

// SplitLines breaks text into cleaned candidate lines. Table rules drawn
// with '|' and tabs become spaces; page markers and fragments too short to
// hold a row are dropped.
func SplitLines(text string) []Line {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]Line, 0, len(raw))
	for i, ln := range raw {
		ln = strings.Map(func(r rune) rune {
			switch r {
			case '|', '\t', '\u00a0':
				return ' '
			case '\f':
				return -1
			}
			return r
		}, ln)
		ln = strings.TrimSpace(ln)
		if len(ln) < 5 || rePageMarker.MatchString(ln) {
			continue
		}
		out = append(out, Line{No: i + 1, Text: ln})
	}
	return out
}

// ParseMoney reads a price token such as "Rs. 90,000/-". Everything but
// digits and the decimal point is discarded once the currency prefix is gone.
func ParseMoney(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "/-")
	for _, prefix := range []string{"pkr", "rs"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(strings.TrimPrefix(s, prefix), ".")
			break
		}
	}
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == '.' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || v <= MinMoney || v >= MaxMoney {
		return 0, false
	}
	return v, true
}

// ParseQuantity reads a quantity token, dropping thousands separators.
func ParseQuantity(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || v <= MinQuantity || v >= MaxQuantity {
		return 0, false
	}
	return v, true
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

// swallowedColumn reports whether the description ends in what looks like a
// quantity column ("... 100" or "... 10 MT"), the signature of a loose
// pattern having shifted every numeric column by one.
func swallowedColumn(s string) bool {
	f := strings.Fields(s)
	if len(f) == 0 {
		return false
	}
	if isNumber(f[len(f)-1]) {
		return true
	}
	return len(f) >= 2 && isUnit(f[len(f)-1]) && isNumber(f[len(f)-2])
}

func isNumber(tok string) bool {
	_, err := strconv.ParseFloat(strings.ReplaceAll(tok, ",", ""), 64)
	return err == nil
}

func isUnit(tok string) bool {
	tok = strings.ToLower(strings.TrimSuffix(tok, "."))
	return slices.Contains(constants.UnitTokens, tok)
}
