package pricing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

// ObservationSource reads raw observations.
type ObservationSource interface {
	ListByYear(ctx context.Context, year int) ([]*entity.RawPriceObservation, error)
	Years(ctx context.Context) ([]int, error)
}

// PriceStore persists yearly prices and inflation indices.
type PriceStore interface {
	UpsertYearly(ctx context.Context, p *entity.YearlyPrice) error
	ListYearly(ctx context.Context, year int) ([]*entity.YearlyPrice, error)
	UpsertInflation(ctx context.Context, idx entity.InflationIndex) error
}

// GroupError records a material group that failed to aggregate.
type GroupError struct {
	MaterialID uuid.UUID
	Err        error
}

// Report summarizes one year's aggregation.
type Report struct {
	Year         int
	Observations int
	Groups       int
	Upserted     int
	Dropped      int
	Failed       []GroupError
}

type Aggregator struct {
	observations ObservationSource
	prices       PriceStore
	logger       *slog.Logger
	workers      int
}

type Option func(*Aggregator)

func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func NewAggregator(observations ObservationSource, prices PriceStore, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		observations: observations,
		prices:       prices,
		logger:       logger,
		workers:      4,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// RunYear recomputes the yearly price of every material observed in year.
// A failing group is reported and does not stop the others; only a failure
// to read the observations is returned as an error.
func (a *Aggregator) RunYear(ctx context.Context, year int) (*Report, error) {
	obs, err := a.observations.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list observations for %d: %w", year, err)
	}
	groups, order := groupByMaterial(obs)
	rep := &Report{Year: year, Observations: len(obs), Groups: len(order)}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(a.workers)
	for _, materialID := range order {
		group := groups[materialID]
		g.Go(func() error {
			yp, s, err := a.aggregateGroup(ctx, year, group)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				a.logger.Error("aggregate group failed", "material_id", materialID, "year", year, "error", err)
				rep.Failed = append(rep.Failed, GroupError{MaterialID: materialID, Err: err})
				return nil
			}
			rep.Upserted++
			rep.Dropped += s.Dropped
			a.logger.Debug("yearly price",
				"material_id", materialID,
				"year", year,
				"price", yp.Price,
				"kept", s.Kept,
				"dropped", s.Dropped,
				"fallback", s.Fallback)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(rep.Failed, func(i, j int) bool {
		return rep.Failed[i].MaterialID.String() < rep.Failed[j].MaterialID.String()
	})
	a.logger.Info("aggregation complete",
		"year", year,
		"observations", rep.Observations,
		"groups", rep.Groups,
		"upserted", rep.Upserted,
		"dropped", rep.Dropped,
		"failed", len(rep.Failed))
	return rep, nil
}

// RunAll aggregates every year that has observations.
func (a *Aggregator) RunAll(ctx context.Context) ([]*Report, error) {
	years, err := a.observations.Years(ctx)
	if err != nil {
		return nil, fmt.Errorf("list observation years: %w", err)
	}
	reports := make([]*Report, 0, len(years))
	for _, y := range years {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := a.RunYear(ctx, y)
		if err != nil {
			return reports, err
		}
		reports = append(reports, rep)
	}
	return reports, nil
}

func (a *Aggregator) aggregateGroup(ctx context.Context, year int, group []*entity.RawPriceObservation) (*entity.YearlyPrice, Summary, error) {
	if err := ctx.Err(); err != nil {
		return nil, Summary{}, err
	}
	prices := make([]float64, len(group))
	for i, o := range group {
		prices[i] = o.Price
	}
	s, ok := Aggregate(prices)
	if !ok {
		return nil, s, fmt.Errorf("no prices")
	}
	yp := &entity.YearlyPrice{
		MaterialID:    group[0].MaterialID,
		Year:          year,
		Price:         s.Mean,
		Unit:          group[0].Unit,
		EffectiveDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		Observations:  s.Kept,
	}
	if err := a.prices.UpsertYearly(ctx, yp); err != nil {
		return nil, s, err
	}
	return yp, s, nil
}

// groupByMaterial keeps the first-seen order of materials and observations.
func groupByMaterial(obs []*entity.RawPriceObservation) (map[uuid.UUID][]*entity.RawPriceObservation, []uuid.UUID) {
	groups := make(map[uuid.UUID][]*entity.RawPriceObservation)
	var order []uuid.UUID
	for _, o := range obs {
		if o == nil {
			continue
		}
		if _, ok := groups[o.MaterialID]; !ok {
			order = append(order, o.MaterialID)
		}
		groups[o.MaterialID] = append(groups[o.MaterialID], o)
	}
	return groups, order
}
