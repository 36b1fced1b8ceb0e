package pricing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

func TestAggregateDropsGrossOutlier(t *testing.T) {
	// μ=373, σ≈263.5: 900 sits 2σ out
	s, ok := Aggregate([]float64{240, 245, 242, 238, 900})
	require.True(t, ok)
	assert.InDelta(t, 241.25, s.Mean, 1e-9)
	assert.Equal(t, 4, s.Kept)
	assert.Equal(t, 1, s.Dropped)
	assert.False(t, s.Fallback)
}

func TestAggregateThreeObservationsKeepsEvery(t *testing.T) {
	cases := []struct {
		prices []float64
		want   float64
	}{
		// 900 is 1.41σ from μ=461.67, inside the band
		{[]float64{240, 245, 900}, 1385.0 / 3},
		{[]float64{100, 110, 130}, 340.0 / 3},
		{[]float64{100, 200, 300}, 200},
	}
	for _, tc := range cases {
		s, ok := Aggregate(tc.prices)
		require.True(t, ok)
		assert.InDelta(t, tc.want, s.Mean, 1e-9, "%v", tc.prices)
		assert.Equal(t, 3, s.Kept, "%v", tc.prices)
		assert.Zero(t, s.Dropped, "%v", tc.prices)
	}
}

func TestAggregateSingleObservation(t *testing.T) {
	s, ok := Aggregate([]float64{1234.5})
	require.True(t, ok)
	assert.Equal(t, 1234.5, s.Mean)
	assert.Equal(t, 1, s.Kept)
}

func TestAggregateEmpty(t *testing.T) {
	_, ok := Aggregate(nil)
	assert.False(t, ok)
}

func TestAggregateCases(t *testing.T) {
	cases := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"identical", []float64{0.1, 0.1, 0.1}, 0.1},
		{"pair", []float64{100, 200}, 150},
		{"band removes high", []float64{100, 100, 100, 500}, 100},
		{"tight cluster", []float64{1000, 1010, 990, 1005, 995}, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, ok := Aggregate(tc.prices)
			require.True(t, ok)
			assert.InDelta(t, tc.want, s.Mean, 1e-9)
		})
	}
}

func TestAggregateStaysWithinObservedRange(t *testing.T) {
	groups := [][]float64{
		{240, 245, 900},
		{1, 2, 4},
		{5, 5, 5, 5, 80000},
		{130000, 155000, 150000, 12, 149000},
		{7},
		{3, 9},
	}
	for _, g := range groups {
		s, ok := Aggregate(g)
		require.True(t, ok)
		assert.GreaterOrEqual(t, s.Mean, slices.Min(g)-1e-9, "%v", g)
		assert.LessOrEqual(t, s.Mean, slices.Max(g)+1e-9, "%v", g)
	}
}

func TestRate(t *testing.T) {
	r, ok := Rate(200, 250)
	require.True(t, ok)
	assert.InDelta(t, 0.25, r, 1e-12)
	_, ok = Rate(0, 250)
	assert.False(t, ok)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeObservations struct {
	byYear map[int][]*entity.RawPriceObservation
}

func (f *fakeObservations) ListByYear(_ context.Context, year int) ([]*entity.RawPriceObservation, error) {
	return f.byYear[year], nil
}

func (f *fakeObservations) Years(context.Context) ([]int, error) {
	var ys []int
	for y := range f.byYear {
		ys = append(ys, y)
	}
	slices.Sort(ys)
	return ys, nil
}

type fakePrices struct {
	mu     sync.Mutex
	failOn uuid.UUID
	stored map[uuid.UUID]*entity.YearlyPrice
}

func (f *fakePrices) UpsertYearly(_ context.Context, p *entity.YearlyPrice) error {
	if p.MaterialID == f.failOn {
		return errors.New("disk full")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored[p.MaterialID] = p
	return nil
}

func (f *fakePrices) ListYearly(context.Context, int) ([]*entity.YearlyPrice, error) {
	return nil, nil
}

func (f *fakePrices) UpsertInflation(context.Context, entity.InflationIndex) error {
	return nil
}

func TestRunYearIsolatesGroupFailures(t *testing.T) {
	steel, cement, bitumen := uuid.New(), uuid.New(), uuid.New()
	obs := &fakeObservations{byYear: map[int][]*entity.RawPriceObservation{
		2024: {
			{MaterialID: steel, Price: 240, Unit: "kg"},
			{MaterialID: cement, Price: 1150, Unit: "50 kg Bag"},
			{MaterialID: steel, Price: 245, Unit: "MT"},
			{MaterialID: bitumen, Price: 155000, Unit: "MT"},
			{MaterialID: steel, Price: 242, Unit: "kg"},
			{MaterialID: steel, Price: 238, Unit: "kg"},
			{MaterialID: steel, Price: 900, Unit: "kg"},
		},
	}}
	prices := &fakePrices{failOn: cement, stored: map[uuid.UUID]*entity.YearlyPrice{}}

	rep, err := NewAggregator(obs, prices, discard(), WithWorkers(2)).RunYear(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Groups)
	assert.Equal(t, 2, rep.Upserted)
	assert.Equal(t, 1, rep.Dropped)
	require.Len(t, rep.Failed, 1)
	assert.Equal(t, cement, rep.Failed[0].MaterialID)

	got := prices.stored[steel]
	require.NotNil(t, got)
	assert.InDelta(t, 241.25, got.Price, 1e-9)
	assert.Equal(t, "kg", got.Unit, "unit comes from the first observation")
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), got.EffectiveDate)
	assert.Equal(t, 4, got.Observations)
	assert.Contains(t, prices.stored, bitumen)
}

func TestAggregatorAgainstStore(t *testing.T) {
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, ":memory:", discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = drv.Close() })
	require.NoError(t, repository.Migrate(ctx, drv))
	store := repository.NewStore(drv, discard())

	steel, err := store.Materials.GetOrCreate(ctx, constants.SteelBar10mm, "kg")
	require.NoError(t, err)
	for _, o := range []struct {
		year  int
		price float64
	}{{2023, 200}, {2024, 240}, {2024, 245}, {2024, 242}, {2024, 238}, {2024, 900}} {
		require.NoError(t, store.Observations.Insert(ctx, &entity.RawPriceObservation{
			MaterialID: steel.ID, Year: o.year, Price: o.price, Unit: "kg", Source: "boq:structured",
		}))
	}

	agg := NewAggregator(store.Observations, store.Prices, discard())
	reports, err := agg.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	// re-running converges to the same rows
	_, err = agg.RunYear(ctx, 2024)
	require.NoError(t, err)

	p, err := store.Prices.Get(ctx, steel.ID, 2024)
	require.NoError(t, err)
	assert.InDelta(t, 241.25, p.Price, 1e-9)
	all, err := store.Prices.ListYearly(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	infl, err := agg.ComputeInflation(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, infl, 1)
	assert.InDelta(t, 0.20625, infl[0].Rate, 1e-9)

	none, err := agg.ComputeInflation(ctx, 2023)
	require.NoError(t, err)
	assert.Empty(t, none)
}
