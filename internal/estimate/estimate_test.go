package estimate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

func quantity(t *testing.T, lines []Line, material string) float64 {
	t.Helper()
	for _, l := range lines {
		if l.Material == material {
			return l.Quantity
		}
	}
	t.Fatalf("no line for %s", material)
	return 0
}

func TestQuantities(t *testing.T) {
	e := NewEstimator(nil, nil, nil)
	cases := []struct {
		name     string
		req      Request
		material string
		want     float64
	}{
		{"highway default", Request{LengthKm: 1, WidthM: 10}, constants.CementOPC, 10000},
		{"bitumen per area", Request{LengthKm: 1, WidthM: 10, ProjectType: "highway"}, constants.Bitumen6070, 120},
		{"expressway", Request{LengthKm: 1, WidthM: 10, ProjectType: "Expressway"}, constants.CementOPC, 14000},
		{"rural steel", Request{LengthKm: 2, WidthM: 5, ProjectType: "rural road"}, constants.SteelBar10mm, 10000 * 4.5 * 0.25},
		{"mountainous", Request{LengthKm: 1, WidthM: 10, Terrain: "mountainous"}, constants.CementOPC, 12500},
		{"mountainous high traffic", Request{LengthKm: 1, WidthM: 10, Terrain: "mountainous", Traffic: "high"}, constants.CementOPC, 15000},
		{"low traffic", Request{LengthKm: 1, WidthM: 10, Traffic: "low"}, constants.Bitumen6070, 120 * 0.85},
		{"terrain skips ppc", Request{LengthKm: 1, WidthM: 10, Terrain: "mountainous"}, constants.CementPPC, 3000},
		{"traffic skips sand", Request{LengthKm: 1, WidthM: 10, Traffic: "high"}, constants.RaviSand, 10000 * 1.589175},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lines, err := e.Quantities(tc.req)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, quantity(t, lines, tc.material), 1e-6)
		})
	}
}

func TestQuantitiesRejectsBadRequest(t *testing.T) {
	e := NewEstimator(nil, nil, nil)
	for _, req := range []Request{
		{LengthKm: 0, WidthM: 7},
		{LengthKm: 3, WidthM: -1},
		{LengthKm: 3, WidthM: 7, ProjectType: "motorway"},
		{LengthKm: 3, WidthM: 7, Terrain: "swamp"},
		{LengthKm: 3, WidthM: 7, Traffic: "extreme"},
	} {
		_, err := e.Quantities(req)
		assert.ErrorIs(t, err, common.ErrInvalidInput, "%+v", req)
	}
}

type fixedPrices []*entity.YearlyPrice

func (f fixedPrices) ForYear(context.Context, int) ([]*entity.YearlyPrice, error) {
	return f, nil
}

type failingPrices struct{}

func (failingPrices) ForYear(context.Context, int) ([]*entity.YearlyPrice, error) {
	return nil, errors.New("connection refused")
}

func lineFor(t *testing.T, est *Estimate, material string) Line {
	t.Helper()
	for _, l := range est.Lines {
		if l.Material == material {
			return l
		}
	}
	t.Fatalf("no line for %s", material)
	return Line{}
}

func TestEstimatePricesFromStoreThenBaseline(t *testing.T) {
	prices := fixedPrices{
		{MaterialName: constants.CementOPC, Year: 2024, Price: 1200, Unit: "50 kg Bag"},
		{MaterialName: "steel bar 10MM", Year: 2023, Price: 245000, Unit: "MT"},
	}
	est, err := NewEstimator(nil, prices, nil).Estimate(context.Background(), Request{LengthKm: 1, WidthM: 10, Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, 10000.0, est.AreaSqm)
	assert.Empty(t, est.Unpriced)

	cement := lineFor(t, est, constants.CementOPC)
	assert.Equal(t, SourceStore, cement.PriceSource)
	assert.Equal(t, 1200.0, cement.UnitPrice)
	assert.InDelta(t, 12_000_000, cement.Cost, 1e-6)

	steel := lineFor(t, est, constants.SteelBar10mm)
	assert.Equal(t, SourceStore, steel.PriceSource)
	assert.Equal(t, 2023, steel.PriceYear)
	assert.InDelta(t, 245, steel.UnitPrice, 1e-9)

	bitumen := lineFor(t, est, constants.Bitumen6070)
	assert.Equal(t, SourceBaseline, bitumen.PriceSource)
	assert.Equal(t, 2024, bitumen.PriceYear)
	assert.Equal(t, 155000.0, bitumen.UnitPrice)

	var sum float64
	for _, l := range est.Lines {
		sum += l.Cost
	}
	assert.InDelta(t, sum, est.Total, 1e-6)
}

func TestEstimateBaselineYears(t *testing.T) {
	e := NewEstimator(nil, nil, nil)
	late, err := e.Estimate(context.Background(), Request{LengthKm: 1, WidthM: 7, Year: 2030})
	require.NoError(t, err)
	assert.Equal(t, 2025, lineFor(t, late, constants.CementOPC).PriceYear)

	early, err := e.Estimate(context.Background(), Request{LengthKm: 1, WidthM: 7, Year: 2001})
	require.NoError(t, err)
	assert.Equal(t, 2023, lineFor(t, early, constants.CementOPC).PriceYear)
	assert.Greater(t, late.Total, early.Total)
}

func TestEstimateStoreFailure(t *testing.T) {
	_, err := NewEstimator(nil, failingPrices{}, nil).Estimate(context.Background(), Request{LengthKm: 1, WidthM: 7, Year: 2024})
	assert.ErrorContains(t, err, "connection refused")
}

func TestDefaultProfileIsValid(t *testing.T) {
	p := DefaultProfile()
	require.NoError(t, p.Validate())
	assert.Equal(t, "highway", p.DefaultProjectType)
	assert.Len(t, p.ProjectTypes, 4)
	assert.Equal(t, 1.25, p.Terrain["mountainous"].Factor)
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "flat.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
name: flat
default_project_type: any
project_types:
  any: {cement: 2}
rates:
  - {material: "Cement OPC Grade 53", per_sqm: 0.5, factor: cement}
`), 0o644))
	p, err := LoadProfile(good)
	require.NoError(t, err)
	lines, err := NewEstimator(p, nil, nil).Quantities(Request{LengthKm: 1, WidthM: 1})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.InDelta(t, 1000, lines[0].Quantity, 1e-9)

	bad := map[string]string{
		"unknown material": "default_project_type: a\nproject_types: {a: {x: 1}}\nrates: [{material: Granite, per_sqm: 1, factor: x}]\n",
		"missing factor":   "default_project_type: a\nproject_types: {a: {x: 1}}\nrates: [{material: Cement PPC, per_sqm: 1, factor: y}]\n",
		"no default":       "project_types: {a: {x: 1}}\nrates: [{material: Cement PPC, per_sqm: 1, factor: x}]\n",
		"not yaml":         "rates: [",
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProfile([]byte(body))
			assert.ErrorIs(t, err, common.ErrValidation)
		})
	}

	_, err = LoadProfile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
