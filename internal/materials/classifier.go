// Package materials maps BOQ descriptions onto canonical materials and turns
// priced line items into raw price observations.
package materials

import (
	"strings"

	"github.com/joseph-ayodele/road-estimator/constants"
)

// Classifier matches descriptions against an ordered keyword table. The
// first keyword contained in the description wins.
type Classifier struct {
	rules []constants.KeywordRule
}

// NewClassifier uses rules in order, or constants.MaterialKeywords when none
// are given.
func NewClassifier(rules ...constants.KeywordRule) *Classifier {
	if len(rules) == 0 {
		rules = constants.MaterialKeywords
	}
	lowered := make([]constants.KeywordRule, len(rules))
	for i, r := range rules {
		lowered[i] = constants.KeywordRule{Keyword: strings.ToLower(r.Keyword), Material: r.Material}
	}
	return &Classifier{rules: lowered}
}

// Classify returns the canonical material name for desc, or false.
func (c *Classifier) Classify(desc string) (string, bool) {
	d := strings.ToLower(strings.Join(strings.Fields(desc), " "))
	if d == "" {
		return "", false
	}
	for _, r := range c.rules {
		if strings.Contains(d, r.Keyword) {
			return r.Material, true
		}
	}
	return "", false
}
