package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const (
	yearlyPricesTable = "yearly_prices"
	inflationTable    = "inflation_indices"
)

type PriceRepository interface {
	// UpsertYearly writes the price for (material, year), replacing any
	// earlier aggregate.
	UpsertYearly(ctx context.Context, p *entity.YearlyPrice) error
	// ForYear returns, per material, the most recent price at or before year.
	ForYear(ctx context.Context, year int) ([]*entity.YearlyPrice, error)
	Get(ctx context.Context, materialID uuid.UUID, year int) (*entity.YearlyPrice, error)
	// ListYearly returns every stored price, or those of one year when year > 0.
	ListYearly(ctx context.Context, year int) ([]*entity.YearlyPrice, error)
	UpsertInflation(ctx context.Context, idx entity.InflationIndex) error
	ListInflation(ctx context.Context, year int) ([]entity.InflationIndex, error)
}

type priceRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewPriceRepository(conn Conn, logger *slog.Logger) PriceRepository {
	return &priceRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *priceRepository) UpsertYearly(ctx context.Context, p *entity.YearlyPrice) error {
	if p.MaterialID == uuid.Nil || p.Year <= 0 {
		return fmt.Errorf("%w: yearly price needs material and year", common.ErrInvalidInput)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.EffectiveDate.IsZero() {
		p.EffectiveDate = time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	p.UpdatedAt = now()
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(yearlyPricesTable).
		Columns("id", "material_id", "year", "price", "unit", "effective_date", "observations", "updated_at").
		Values(p.ID, p.MaterialID, p.Year, p.Price, p.Unit, p.EffectiveDate, p.Observations, p.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("material_id", "year"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("price")
				u.SetExcluded("unit")
				u.SetExcluded("effective_date")
				u.SetExcluded("observations")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := exec(ctx, r.conn, query, args); err != nil {
		return fmt.Errorf("upsert yearly price: %w", err)
	}
	return nil
}

func (r *priceRepository) ForYear(ctx context.Context, year int) ([]*entity.YearlyPrice, error) {
	all, err := r.list(ctx, func(yp *entsql.SelectTable) *entsql.Predicate {
		return entsql.LTE(yp.C("year"), year)
	})
	if err != nil {
		return nil, err
	}
	// rows arrive newest first within each material
	seen := make(map[uuid.UUID]bool, len(all))
	out := make([]*entity.YearlyPrice, 0, len(all))
	for _, p := range all {
		if seen[p.MaterialID] {
			continue
		}
		seen[p.MaterialID] = true
		out = append(out, p)
	}
	return out, nil
}

func (r *priceRepository) Get(ctx context.Context, materialID uuid.UUID, year int) (*entity.YearlyPrice, error) {
	out, err := r.list(ctx, func(yp *entsql.SelectTable) *entsql.Predicate {
		return entsql.And(entsql.EQ(yp.C("material_id"), materialID), entsql.EQ(yp.C("year"), year))
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.ErrNotFound
	}
	return out[0], nil
}

func (r *priceRepository) ListYearly(ctx context.Context, year int) ([]*entity.YearlyPrice, error) {
	if year <= 0 {
		return r.list(ctx, nil)
	}
	return r.list(ctx, func(yp *entsql.SelectTable) *entsql.Predicate {
		return entsql.EQ(yp.C("year"), year)
	})
}

func (r *priceRepository) list(ctx context.Context, where func(*entsql.SelectTable) *entsql.Predicate) ([]*entity.YearlyPrice, error) {
	b := entsql.Dialect(r.conn.Dialect())
	yp := b.Table(yearlyPricesTable).As("yp")
	m := b.Table(materialsTable).As("m")
	sel := b.Select(
		yp.C("id"), yp.C("material_id"), m.C("name"), yp.C("year"), yp.C("price"),
		yp.C("unit"), yp.C("effective_date"), yp.C("observations"), yp.C("updated_at"),
	).
		From(yp).
		Join(m).On(yp.C("material_id"), m.C("id")).
		OrderBy(m.C("name"), entsql.Desc(yp.C("year")))
	if where != nil {
		sel.Where(where(yp))
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query yearly prices: %w", err)
	}
	defer rows.Close()

	var out []*entity.YearlyPrice
	for rows.Next() {
		var p entity.YearlyPrice
		if err := rows.Scan(&p.ID, &p.MaterialID, &p.MaterialName, &p.Year, &p.Price,
			&p.Unit, &p.EffectiveDate, &p.Observations, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan yearly price: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *priceRepository) UpsertInflation(ctx context.Context, idx entity.InflationIndex) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(inflationTable).
		Columns("material_id", "year", "rate", "updated_at").
		Values(idx.MaterialID, idx.Year, idx.Rate, now()).
		OnConflict(
			entsql.ConflictColumns("material_id", "year"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("rate")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := exec(ctx, r.conn, query, args); err != nil {
		return fmt.Errorf("upsert inflation: %w", err)
	}
	return nil
}

func (r *priceRepository) ListInflation(ctx context.Context, year int) ([]entity.InflationIndex, error) {
	b := entsql.Dialect(r.conn.Dialect())
	sel := b.Select("material_id", "year", "rate", "updated_at").
		From(b.Table(inflationTable)).
		OrderBy("year", "material_id")
	if year > 0 {
		sel.Where(entsql.EQ("year", year))
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query inflation: %w", err)
	}
	defer rows.Close()

	var out []entity.InflationIndex
	for rows.Next() {
		var idx entity.InflationIndex
		if err := rows.Scan(&idx.MaterialID, &idx.Year, &idx.Rate, &idx.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inflation: %w", err)
		}
		out = append(out, idx)
	}
	return out, rows.Err()
}
