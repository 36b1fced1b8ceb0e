package pricing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

// Rate is the year-on-year change from prev to cur.
func Rate(prev, cur float64) (float64, bool) {
	if !(prev > 0) {
		return 0, false
	}
	return (cur - prev) / prev, true
}

// ComputeInflation stores the rate of every material priced in both year
// and the year before, and returns what it stored.
func (a *Aggregator) ComputeInflation(ctx context.Context, year int) ([]entity.InflationIndex, error) {
	cur, err := a.prices.ListYearly(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list prices for %d: %w", year, err)
	}
	prev, err := a.prices.ListYearly(ctx, year-1)
	if err != nil {
		return nil, fmt.Errorf("list prices for %d: %w", year-1, err)
	}
	before := make(map[uuid.UUID]float64, len(prev))
	for _, p := range prev {
		before[p.MaterialID] = p.Price
	}

	var out []entity.InflationIndex
	for _, p := range cur {
		last, ok := before[p.MaterialID]
		if !ok {
			continue
		}
		rate, ok := Rate(last, p.Price)
		if !ok {
			continue
		}
		idx := entity.InflationIndex{MaterialID: p.MaterialID, Year: year, Rate: rate}
		if err := a.prices.UpsertInflation(ctx, idx); err != nil {
			return out, fmt.Errorf("store inflation for %s: %w", p.MaterialName, err)
		}
		out = append(out, idx)
	}
	a.logger.Info("inflation computed", "year", year, "materials", len(out))
	return out, nil
}
