package estimate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

// Price sources reported on estimate lines.
const (
	SourceStore    = "yearly_price"
	SourceBaseline = "baseline"
)

// PriceSource returns, per material, the latest price at or before year.
type PriceSource interface {
	ForYear(ctx context.Context, year int) ([]*entity.YearlyPrice, error)
}

type Request struct {
	LengthKm    float64 `json:"length_km"`
	WidthM      float64 `json:"width_m"`
	ProjectType string  `json:"project_type,omitempty"`
	Terrain     string  `json:"terrain,omitempty"`
	Traffic     string  `json:"traffic,omitempty"`
	Year        int     `json:"year"`
}

type Line struct {
	Material    string  `json:"material"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Cost        float64 `json:"cost"`
	PriceYear   int     `json:"price_year,omitempty"`
	PriceSource string  `json:"price_source,omitempty"`
}

type Estimate struct {
	Request  Request  `json:"request"`
	AreaSqm  float64  `json:"area_sqm"`
	Lines    []Line   `json:"lines"`
	Total    float64  `json:"total"`
	Unpriced []string `json:"unpriced,omitempty"`
}

type Estimator struct {
	profile *Profile
	prices  PriceSource
	logger  *slog.Logger
}

// NewEstimator uses the built-in profile when profile is nil. prices may be
// nil, in which case catalogue baselines are used.
func NewEstimator(profile *Profile, prices PriceSource, logger *slog.Logger) *Estimator {
	if profile == nil {
		profile = DefaultProfile()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{profile: profile, prices: prices, logger: logger}
}

// Quantities returns the billing-unit quantity of every profile material.
func (e *Estimator) Quantities(req Request) ([]Line, error) {
	if !(req.LengthKm > 0) || !(req.WidthM > 0) {
		return nil, fmt.Errorf("%w: length and width must be positive", common.ErrInvalidInput)
	}
	ptype := key(req.ProjectType)
	if ptype == "" {
		ptype = e.profile.DefaultProjectType
	}
	factors, ok := e.profile.ProjectTypes[ptype]
	if !ok {
		return nil, fmt.Errorf("%w: unknown project type %q", common.ErrInvalidInput, req.ProjectType)
	}
	var terrain Adjustment
	if t := key(req.Terrain); t != "" {
		if terrain, ok = e.profile.Terrain[t]; !ok {
			return nil, fmt.Errorf("%w: unknown terrain %q", common.ErrInvalidInput, req.Terrain)
		}
	}
	traffic := 1.0
	if t := key(req.Traffic); t != "" {
		if traffic, ok = e.profile.Traffic[t]; !ok {
			return nil, fmt.Errorf("%w: unknown traffic volume %q", common.ErrInvalidInput, req.Traffic)
		}
	}

	area := req.LengthKm * 1000 * req.WidthM
	lines := make([]Line, 0, len(e.profile.Rates))
	for _, r := range e.profile.Rates {
		cat, _ := constants.LookupMaterial(r.Material)
		qty := area * r.PerSqm * factors[r.Factor]
		if terrain.Factor > 0 && contains(terrain.Materials, cat.Name) {
			qty *= terrain.Factor
		}
		if contains(e.profile.TrafficMaterials, cat.Name) {
			qty *= traffic
		}
		lines = append(lines, Line{Material: cat.Name, Unit: cat.Unit, Quantity: qty})
	}
	return lines, nil
}

// Estimate prices the quantities of req with the yearly prices in force for
// req.Year, falling back to catalogue baselines for unpriced materials.
func (e *Estimator) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	lines, err := e.Quantities(req)
	if err != nil {
		return nil, err
	}
	stored := map[string]*entity.YearlyPrice{}
	if e.prices != nil {
		prices, err := e.prices.ForYear(ctx, req.Year)
		if err != nil {
			return nil, fmt.Errorf("load prices for %d: %w", req.Year, err)
		}
		for _, p := range prices {
			stored[constants.MaterialKey(p.MaterialName)] = p
		}
	}

	est := &Estimate{Request: req, AreaSqm: req.LengthKm * 1000 * req.WidthM}
	for i := range lines {
		l := &lines[i]
		cat, _ := constants.LookupMaterial(l.Material)
		if p, ok := stored[constants.MaterialKey(l.Material)]; ok {
			if price, ok := inCatalogueUnit(cat, p); ok {
				l.UnitPrice, l.PriceYear, l.PriceSource = price, p.Year, SourceStore
			}
		}
		if l.PriceSource == "" {
			if year, price, ok := baseline(cat, req.Year); ok {
				l.UnitPrice, l.PriceYear, l.PriceSource = price, year, SourceBaseline
			}
		}
		if l.PriceSource == "" {
			est.Unpriced = append(est.Unpriced, l.Material)
			continue
		}
		l.Cost = l.Quantity * l.UnitPrice
		est.Total += l.Cost
	}
	est.Lines = lines
	e.logger.Debug("estimate",
		"length_km", req.LengthKm,
		"width_m", req.WidthM,
		"project_type", req.ProjectType,
		"year", req.Year,
		"total", est.Total,
		"unpriced", len(est.Unpriced))
	return est, nil
}

// inCatalogueUnit restates a stored price per catalogue billing unit.
func inCatalogueUnit(cat constants.Material, p *entity.YearlyPrice) (float64, bool) {
	if !(p.Price > 0) {
		return 0, false
	}
	if p.Unit == "" || constants.MaterialKey(p.Unit) == constants.MaterialKey(cat.Unit) {
		return p.Price, true
	}
	tpu, ok := constants.TonnesPerUnit(p.Unit, cat.Group)
	if !ok || !(tpu > 0) {
		return 0, false
	}
	return p.Price / tpu * cat.TonnesPerUnit, true
}

// baseline picks the latest catalogue baseline at or before year, or the
// earliest one when year predates them all.
func baseline(cat constants.Material, year int) (int, float64, bool) {
	if len(cat.Baseline) == 0 {
		return 0, 0, false
	}
	years := make([]int, 0, len(cat.Baseline))
	for y := range cat.Baseline {
		years = append(years, y)
	}
	sort.Ints(years)
	pick := years[0]
	for _, y := range years {
		if y <= year {
			pick = y
		}
	}
	return pick, cat.Baseline[pick], true
}
