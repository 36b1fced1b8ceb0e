package boq

import (
	"regexp"
	"strings"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const (
	StageStructured = "structured"
	StageRelaxed    = "relaxed"
	StageLoose      = "loose"
	StageKeyword    = "keyword"
)

// Stage is one matcher of the cascade. It runs only while the number of
// items accepted so far is below RunBelow; zero means it always runs.
type Stage struct {
	Name     string
	RunBelow int
	Match    func(line string) (entity.LineInput, bool)
}

// Apply matches every line, returning the accepted items and the lines left
// for later stages. A line that matches the pattern but fails the line-item
// invariants is counted in rejected and stays in remaining.
func (s Stage) Apply(lines []Line) (matches []entity.BOQLineItem, remaining []Line, rejected int) {
	for _, ln := range lines {
		in, ok := s.Match(ln.Text)
		if !ok {
			remaining = append(remaining, ln)
			continue
		}
		in.Stage = s.Name
		in.SourceLine = ln.Text
		item, err := entity.NewBOQLineItem(in)
		if err != nil {
			rejected++
			remaining = append(remaining, ln)
			continue
		}
		matches = append(matches, item)
	}
	return matches, remaining, rejected
}

// DefaultStages is the cascade in order of decreasing strictness.
func DefaultStages() []Stage {
	return []Stage{
		{Name: StageStructured, Match: matchStructured},
		{Name: StageRelaxed, RunBelow: 5, Match: matchRelaxed},
		{Name: StageLoose, RunBelow: 3, Match: matchLoose},
		{Name: StageKeyword, RunBelow: 3, Match: matchKeyword},
	}
}

const (
	codePat  = `(\d{1,4}(?:[.\-]\d{1,3})*[a-z]?)\.?`
	qtyPat   = `(\d[\d,]*(?:\.\d+)?)`
	moneyPat = `((?:(?:rs|pkr)\.?\s*)?\d[\d,]*(?:\.\d+)?(?:/-)?)`
)

var unitPat = func() string {
	alts := make([]string, len(constants.UnitTokens))
	for i, u := range constants.UnitTokens {
		alts[i] = regexp.QuoteMeta(u)
	}
	return `(` + strings.Join(alts, "|") + `)`
}()

var keywordPat = func() string {
	alts := make([]string, len(constants.ConstructionKeywords))
	for i, k := range constants.ConstructionKeywords {
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(k), " ", `\s+`)
	}
	return `(?:` + strings.Join(alts, "|") + `)`
}()

var (
	reStructured = regexp.MustCompile(`(?i)^` + codePat + `\s+(.{10,200}?)\s+` + qtyPat + `\s*` + unitPat + `\.?\s+` + moneyPat + `\s+` + moneyPat + `$`)
	reRelaxed    = regexp.MustCompile(`(?i)^(?:` + codePat + `\s+)?(.{3,300}?)\s+` + qtyPat + `\s*(?:` + unitPat + `\.?)?\s+` + moneyPat + `\s+` + moneyPat + `$`)
	reLoose      = regexp.MustCompile(`(?i)^` + codePat + `\s+(.{3,200}?)\s+` + qtyPat + `\s*(?:` + unitPat + `\.?\s+)?` + moneyPat + `$`)
	reKeyword    = regexp.MustCompile(`(?i)^(.*?\b` + keywordPat + `.*?)\s+` + qtyPat + `\s*(?:` + unitPat + `\.?)?\s+` + moneyPat + `(?:\s+` + moneyPat + `)?$`)
	reLeadCode   = regexp.MustCompile(`^` + codePat + `\s+`)
)

// priced fills the price fields of in from the two money tokens. At least
// one must parse.
func priced(in entity.LineInput, rateTok, totalTok string) (entity.LineInput, bool) {
	rate, rateOK := ParseMoney(rateTok)
	total, totalOK := ParseMoney(totalTok)
	if !rateOK && !totalOK {
		return in, false
	}
	if rateOK {
		in.UnitPrice = &rate
	}
	if totalOK {
		in.TotalPrice = &total
	}
	return in, true
}

// item_no description qty unit rate amount, unit required.
func matchStructured(line string) (entity.LineInput, bool) {
	m := reStructured.FindStringSubmatch(line)
	if m == nil || !hasLetter(m[2]) {
		return entity.LineInput{}, false
	}
	qty, ok := ParseQuantity(m[3])
	if !ok {
		return entity.LineInput{}, false
	}
	return priced(entity.LineInput{
		ItemCode:    m[1],
		Description: m[2],
		Unit:        constants.CanonicalUnit(m[4]),
		Quantity:    qty,
	}, m[5], m[6])
}

// Same shape as structured with an optional item number and unit.
func matchRelaxed(line string) (entity.LineInput, bool) {
	m := reRelaxed.FindStringSubmatch(line)
	if m == nil || !hasLetter(m[2]) {
		return entity.LineInput{}, false
	}
	qty, ok := ParseQuantity(m[3])
	if !ok {
		return entity.LineInput{}, false
	}
	return priced(entity.LineInput{
		ItemCode:    m[1],
		Description: m[2],
		Unit:        constants.CanonicalUnit(m[4]),
		Quantity:    qty,
	}, m[5], m[6])
}

// item_no description qty [unit] [Rs] amount; the single amount is the rate.
func matchLoose(line string) (entity.LineInput, bool) {
	m := reLoose.FindStringSubmatch(line)
	if m == nil || !hasLetter(m[2]) || swallowedColumn(m[2]) {
		return entity.LineInput{}, false
	}
	qty, ok := ParseQuantity(m[3])
	if !ok {
		return entity.LineInput{}, false
	}
	rate, ok := ParseMoney(m[5])
	if !ok {
		return entity.LineInput{}, false
	}
	total := qty * rate
	return entity.LineInput{
		ItemCode:    m[1],
		Description: m[2],
		Unit:        constants.CanonicalUnit(m[4]),
		Quantity:    qty,
		UnitPrice:   &rate,
		TotalPrice:  &total,
	}, true
}

// A construction keyword somewhere before qty [unit] price [amount]. No item
// number is required; a leading one is split off when present.
func matchKeyword(line string) (entity.LineInput, bool) {
	m := reKeyword.FindStringSubmatch(line)
	if m == nil || swallowedColumn(m[1]) {
		return entity.LineInput{}, false
	}
	qty, ok := ParseQuantity(m[2])
	if !ok {
		return entity.LineInput{}, false
	}
	in := entity.LineInput{
		Description: m[1],
		Unit:        constants.CanonicalUnit(m[3]),
		Quantity:    qty,
	}
	if c := reLeadCode.FindStringSubmatch(in.Description); c != nil {
		in.ItemCode = c[1]
		in.Description = in.Description[len(c[0]):]
	}
	if m[5] == "" {
		rate, ok := ParseMoney(m[4])
		if !ok {
			return entity.LineInput{}, false
		}
		in.UnitPrice = &rate
		return in, true
	}
	return priced(in, m[4], m[5])
}
