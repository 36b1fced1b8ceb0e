// Package metadata fills gaps in tender records from the document body and
// loads the optional JSON sidecar that accompanies a scraped PDF.
package metadata

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const (
	minTitleLen = 20
	maxTitleLen = 500
)

// Field names reported by Backfill.
const (
	FieldTenderNo     = "tender_no"
	FieldTitle        = "title"
	FieldCity         = "city"
	FieldProvince     = "province"
	FieldOrganization = "organization"
	FieldDepartment   = "department"
	FieldPublishDate  = "publish_date"
	FieldClosingDate  = "closing_date"
	FieldRoadLength   = "road_length_km"
	FieldRoadWidth    = "road_width_m"
	FieldCost         = "cost_pkr"
	FieldYear         = "year"
)

var (
	reTenderNo = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:contract|tender|bid|ifb|rfp)\s*(?:no|number|#)\.?\s*[:\-#]?\s*([A-Z0-9][A-Z0-9/\-_.()]*[A-Z0-9)])`),
		regexp.MustCompile(`(?i)\bPCN\s*[:\-#]?\s*([A-Z0-9][A-Z0-9/\-_.]*[A-Z0-9])`),
	}
	reTitle = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^\s*(?:project\s+title|name\s+of\s+(?:the\s+)?work|subject)\s*[:\-]\s*(.+)$`),
		regexp.MustCompile(`(?i)\b(?:contract|tender|bid)\s*(?:no|number|#)\.?\s*[:\-#]?\s*\S+\s+for\s+(?:the\s+)?(.+)`),
		regexp.MustCompile(`(?i)\b(?:tenders?|bids?|proposals?)\s+(?:are\s+|is\s+)?(?:hereby\s+)?invited\s+(?:for|from\s+[^\n]*?\s+for)\s+(?:the\s+)?(.+)`),
	}
	reLabel = regexp.MustCompile(`(?im)^\s*(department|organi[sz]ation|procuring\s+agency|employer)\s*[:\-]\s*(.{3,120}?)\s*$`)
	reYear  = regexp.MustCompile(`\b(20\d{2})\b`)

	reLengthKm = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*-?\s*(?:km|kms|kilomet(?:er|re)s?)\b`)
	reWidth    = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(m|meters?|metres?|ft|feet)\s*(?:wide|width)\b`),
		regexp.MustCompile(`(?i)\bwidth\s*(?:of\s*)?[:\-=]?\s*(\d+(?:\.\d+)?)\s*(m|meters?|metres?|ft|feet)\b`),
	}
	reCost = regexp.MustCompile(`(?i)\b(?:estimated|contract|tender|project|approximate)\s+(?:cost|value|amount|price)\s*(?:of\s+(?:the\s+)?(?:works?|project)\s*)?(?:is\s*)?[:\-=]?\s*(?:rs\.?|pkr)?\s*(\d[\d,]*(?:\.\d+)?)\s*(million|mn|m|billion|bn|crores?|lacs?|lakhs?)?\b`)

	cityPatterns = func() []*regexp.Regexp {
		out := make([]*regexp.Regexp, len(majorCities))
		for i, c := range majorCities {
			name := strings.ReplaceAll(regexp.QuoteMeta(c.Name), " ", `\s+`)
			out[i] = regexp.MustCompile(`(?i)\b` + name + `\b`)
		}
		return out
	}()
)

// knownAgencies are matched verbatim when no organization label is present.
var knownAgencies = []string{
	"National Highway Authority",
	"Frontier Works Organization",
	"Capital Development Authority",
	"Lahore Development Authority",
	"Karachi Metropolitan Corporation",
	"Communication and Works Department",
	"Highways Department",
	"Local Government and Community Development",
	"Public Works Department",
}

// Backfill fills empty fields of meta from text. It never overwrites a field
// that is already set and returns the names of the fields it filled.
func Backfill(text string, meta entity.TenderMetadata) (entity.TenderMetadata, []string) {
	var filled []string
	mark := func(field string) { filled = append(filled, field) }
	if strings.TrimSpace(text) == "" {
		if meta.City != "" && meta.Province == "" {
			if p, ok := ProvinceOf(meta.City); ok {
				meta.Province = p
				mark(FieldProvince)
			}
		}
		return meta, filled
	}

	if meta.TenderNo == "" {
		if v := findTenderNo(text); v != "" {
			meta.TenderNo = v
			mark(FieldTenderNo)
		}
	}
	if meta.Title == "" {
		if v := findTitle(text); v != "" {
			meta.Title = v
			mark(FieldTitle)
		}
	}
	if meta.City == "" {
		if v := findCity(text); v != "" {
			meta.City = v
			mark(FieldCity)
		}
	}
	if meta.City != "" && meta.Province == "" {
		if p, ok := ProvinceOf(meta.City); ok {
			meta.Province = p
			mark(FieldProvince)
		}
	}

	dept, org := findLabels(text)
	if meta.Department == "" && dept != "" {
		meta.Department = dept
		mark(FieldDepartment)
	}
	if meta.Organization == "" {
		if org == "" {
			org = findAgency(text)
		}
		if org != "" {
			meta.Organization = org
			mark(FieldOrganization)
		}
	}

	if meta.PublishDate == nil || meta.ClosingDate == nil {
		for _, d := range findDates(text) {
			at := d.at
			switch {
			case d.kind == datePublish && meta.PublishDate == nil:
				meta.PublishDate = &at
				mark(FieldPublishDate)
			case d.kind == dateClosing && meta.ClosingDate == nil:
				meta.ClosingDate = &at
				mark(FieldClosingDate)
			}
		}
	}

	if meta.RoadLengthKm == nil {
		if v, ok := findLength(text); ok {
			meta.RoadLengthKm = &v
			mark(FieldRoadLength)
		}
	}
	if meta.RoadWidthM == nil {
		if v, ok := findWidth(text); ok {
			meta.RoadWidthM = &v
			mark(FieldRoadWidth)
		}
	}
	if meta.CostPKR == nil {
		if v, ok := findCost(text); ok {
			meta.CostPKR = &v
			mark(FieldCost)
		}
	}
	if meta.Year == 0 {
		if m := reYear.FindStringSubmatch(text); m != nil {
			meta.Year, _ = strconv.Atoi(m[1])
			mark(FieldYear)
		}
	}
	return meta, filled
}

func findTenderNo(text string) string {
	for _, re := range reTenderNo {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v := strings.TrimRight(m[1], ".-_/")
			if strings.ContainsAny(v, "0123456789") {
				return v
			}
		}
	}
	return ""
}

func findTitle(text string) string {
	for _, re := range reTitle {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if t := cleanTitle(m[1]); t != "" {
				return t
			}
		}
	}
	return ""
}

func cleanTitle(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimRight(s, " .,;:-")
	if len([]rune(s)) < minTitleLen {
		return ""
	}
	if r := []rune(s); len(r) > maxTitleLen {
		s = string(r[:maxTitleLen])
		if i := strings.LastIndexByte(s, ' '); i > minTitleLen {
			s = s[:i]
		}
	}
	return s
}

// findCity returns the known city mentioned earliest in text.
func findCity(text string) string {
	best, city := -1, ""
	for i, re := range cityPatterns {
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		if best < 0 || loc[0] < best {
			best, city = loc[0], majorCities[i].Name
		}
	}
	return city
}

func findLabels(text string) (dept, org string) {
	for _, m := range reLabel.FindAllStringSubmatch(text, -1) {
		label := strings.ToLower(m[1])
		value := strings.Join(strings.Fields(m[2]), " ")
		if strings.HasPrefix(label, "department") {
			if dept == "" {
				dept = value
			}
			continue
		}
		if org == "" {
			org = value
		}
	}
	return dept, org
}

func findAgency(text string) string {
	lower := strings.ToLower(text)
	best, agency := -1, ""
	for _, a := range knownAgencies {
		if i := strings.Index(lower, strings.ToLower(a)); i >= 0 && (best < 0 || i < best) {
			best, agency = i, a
		}
	}
	return agency
}

func findLength(text string) (float64, bool) {
	for _, m := range reLengthKm.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v > 0 && v < 5000 {
			return v, true
		}
	}
	return 0, false
}

func findWidth(text string) (float64, bool) {
	for _, re := range reWidth {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || v <= 0 {
				continue
			}
			if u := strings.ToLower(m[2]); u == "ft" || u == "feet" {
				v *= 0.3048
			}
			if v < 200 {
				return v, true
			}
		}
	}
	return 0, false
}

var costMultipliers = map[string]float64{
	"million": 1e6, "mn": 1e6, "m": 1e6,
	"billion": 1e9, "bn": 1e9,
	"crore": 1e7, "crores": 1e7,
	"lac": 1e5, "lacs": 1e5, "lakh": 1e5, "lakhs": 1e5,
}

func findCost(text string) (float64, bool) {
	for _, m := range reCost.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || v <= 0 {
			continue
		}
		if mult, ok := costMultipliers[strings.ToLower(m[2])]; ok {
			v *= mult
		}
		return v, true
	}
	return 0, false
}
