package boq

import (
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

// dedupKeyLen is how many leading lowercase runes of a description identify a row.
const dedupKeyLen = 50

// Result is the outcome of one extraction.
type Result struct {
	Items      []entity.BOQLineItem
	Lines      int            // candidate lines examined
	PerStage   map[string]int // accepted items by stage, before dedup
	Rejected   int            // pattern matches that failed validation
	Duplicates int
}

// Extractor runs the stage cascade over a document's text.
type Extractor struct {
	stages []Stage
	logger *slog.Logger
}

// NewExtractor returns an extractor over stages, or DefaultStages when none
// are given.
func NewExtractor(logger *slog.Logger, stages ...Stage) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return &Extractor{stages: stages, logger: logger}
}

// Extract returns the deduplicated line items of text, numbered from 1 in
// document order of acceptance. Empty text yields an empty result.
func (e *Extractor) Extract(text string) Result {
	lines := SplitLines(text)
	res := Result{Lines: len(lines), PerStage: make(map[string]int, len(e.stages))}

	remaining := lines
	var found []entity.BOQLineItem
	for _, st := range e.stages {
		if st.RunBelow > 0 && len(found) >= st.RunBelow {
			continue
		}
		if len(remaining) == 0 {
			break
		}
		var matched []entity.BOQLineItem
		var rejected int
		matched, remaining, rejected = st.Apply(remaining)
		res.PerStage[st.Name] = len(matched)
		res.Rejected += rejected
		found = append(found, matched...)
	}

	res.Items = Dedup(found)
	res.Duplicates = len(found) - len(res.Items)
	for i := range res.Items {
		res.Items[i].Sequence = i + 1
	}
	e.logger.Debug("boq extraction finished",
		"lines", res.Lines,
		"items", len(res.Items),
		"per_stage", res.PerStage,
		"rejected", res.Rejected,
		"duplicates", res.Duplicates)
	return res
}

// Dedup keeps the first item for every distinct description prefix.
func Dedup(items []entity.BOQLineItem) []entity.BOQLineItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]entity.BOQLineItem, 0, len(items))
	for _, it := range items {
		key := dedupKey(it.Description)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}

func dedupKey(desc string) string {
	r := []rune(strings.ToLower(desc))
	if len(r) > dedupKeyLen {
		r = r[:dedupKeyLen]
	}
	return string(r)
}
