package metadata

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reISODate = regexp.MustCompile(`\b(\d{4})[-/.](\d{1,2})[-/.](\d{1,2})\b`)
	// day first, as printed on Pakistani procurement notices
	reDMYDate = regexp.MustCompile(`\b(\d{1,2})[-/.](\d{1,2})[-/.](\d{4}|\d{2})\b`)
)

var (
	publishKeywords = []string{"publish", "advertise", "issue", "notice date", "posted"}
	closingKeywords = []string{"closing", "deadline", "submission", "last date", "due date", "opening"}
)

// contextWindow is how far around a date the classifier looks for keywords.
const contextWindow = 50

type dateKind int

const (
	dateUnknown dateKind = iota
	datePublish
	dateClosing
)

type foundDate struct {
	at   time.Time
	kind dateKind
}

// findDates returns every date-like token in text, classified by the nearest
// publish or closing keyword within contextWindow characters.
func findDates(text string) []foundDate {
	lower := asciiLower(text)
	type span struct {
		start, end int
		t          time.Time
	}
	var spans []span
	taken := func(s, e int) bool {
		for _, sp := range spans {
			if s < sp.end && e > sp.start {
				return true
			}
		}
		return false
	}
	for _, m := range reISODate.FindAllStringSubmatchIndex(text, -1) {
		if t, ok := makeDate(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]); ok {
			spans = append(spans, span{m[0], m[1], t})
		}
	}
	for _, m := range reDMYDate.FindAllStringSubmatchIndex(text, -1) {
		if taken(m[0], m[1]) {
			continue
		}
		if t, ok := makeDate(text[m[6]:m[7]], text[m[4]:m[5]], text[m[2]:m[3]]); ok {
			spans = append(spans, span{m[0], m[1], t})
		}
	}

	out := make([]foundDate, 0, len(spans))
	for _, sp := range spans {
		from := max(0, sp.start-contextWindow)
		to := min(len(lower), sp.end+contextWindow)
		out = append(out, foundDate{at: sp.t, kind: classify(lower[from:to], sp.start-from, sp.end-from)})
	}
	// document order
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && spans[j].start < spans[j-1].start; j-- {
			spans[j], spans[j-1] = spans[j-1], spans[j]
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// asciiLower folds A-Z only, so offsets into text stay valid in the result.
// The keywords are ASCII.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func classify(window string, dateStart, dateEnd int) dateKind {
	best, kind := -1, dateUnknown
	check := func(keywords []string, k dateKind) {
		for _, kw := range keywords {
			idx := 0
			for {
				i := strings.Index(window[idx:], kw)
				if i < 0 {
					break
				}
				pos := idx + i
				d := dateStart - (pos + len(kw))
				if pos >= dateEnd {
					d = pos - dateEnd
				}
				if d < 0 {
					d = 0
				}
				if best < 0 || d < best {
					best, kind = d, k
				}
				idx = pos + len(kw)
			}
		}
	}
	check(publishKeywords, datePublish)
	check(closingKeywords, dateClosing)
	return kind
}

func makeDate(y, m, d string) (time.Time, bool) {
	year, err1 := strconv.Atoi(y)
	month, err2 := strconv.Atoi(m)
	day, err3 := strconv.Atoi(d)
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if year < 1990 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, false // e.g. 31/02
	}
	return t, true
}

// ParseDate accepts ISO (2024-03-15) and day-first (15/03/2024, 15-03-24) dates.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if m := reISODate.FindStringSubmatch(s); m != nil && m[0] == s {
		return makeDate(m[1], m[2], m[3])
	}
	if m := reDMYDate.FindStringSubmatch(s); m != nil && m[0] == s {
		return makeDate(m[3], m[2], m[1])
	}
	for _, layout := range []string{"2 January 2006", "January 2, 2006", "02-Jan-2006", "2 Jan 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
