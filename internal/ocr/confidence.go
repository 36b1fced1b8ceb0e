package ocr

import (
	"regexp"
	"strings"
)

var (
	reQtyUnit = regexp.MustCompile(`\b\d[\d,]*(\.\d+)?\s*(m3|m2|cum|sqm|cft|kg|mt|tons?|bags?|nos|rm)\b`)
	reCurr    = regexp.MustCompile(`\b(rs|pkr)\.?\s*\d`)
	reAmount  = regexp.MustCompile(`\b\d{1,3}(,\d{3})+(\.\d{1,2})?\b|\b\d+\.\d{2}\b`)
	reItemNo  = regexp.MustCompile(`(?m)^\s*\d+(\.\d+)*[.)]?\s+[A-Za-z]`)
)

func hasQuantityUnit(s string) bool { return reQtyUnit.MatchString(s) }
func hasCurrency(s string) bool     { return reCurr.MatchString(s) }
func hasAmount(s string) bool       { return reAmount.MatchString(s) }
func hasItemNumbers(s string) bool  { return reItemNo.MatchString(s) }

// heuristicConfidence scores how much the text looks like a priced BOQ,
// used when the OCR engine reports no confidence of its own.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if hasQuantityUnit(txtL) {
		score += 0.2
	}
	if hasCurrency(txtL) {
		score += 0.15
	}
	if hasAmount(txtL) {
		score += 0.15
	}
	if hasItemNumbers(txt) {
		score += 0.1
	}
	if len(txt) > 500 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
