package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const observationsTable = "raw_price_observations"

var observationColumns = []string{
	"id", "material_id", "tender_id", "year", "price", "unit", "source", "line_sequence", "created_at",
}

type ObservationRepository interface {
	Insert(ctx context.Context, obs *entity.RawPriceObservation) error
	// DeleteByTender drops the observations derived from a tender so that
	// reprocessing it does not double count.
	DeleteByTender(ctx context.Context, tenderID uuid.UUID) (int64, error)
	ListByYear(ctx context.Context, year int) ([]*entity.RawPriceObservation, error)
	Years(ctx context.Context) ([]int, error)
}

type observationRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewObservationRepository(conn Conn, logger *slog.Logger) ObservationRepository {
	return &observationRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *observationRepository) Insert(ctx context.Context, obs *entity.RawPriceObservation) error {
	if obs.MaterialID == uuid.Nil || obs.Year <= 0 || !(obs.Price > 0) {
		return fmt.Errorf("%w: observation needs material, year and positive price", common.ErrInvalidInput)
	}
	if obs.CreatedAt.IsZero() {
		obs.CreatedAt = now()
	}
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(observationsTable).
		Columns(observationColumns[1:]...).
		Values(obs.MaterialID, nullUUID(obs.TenderID), obs.Year, obs.Price, obs.Unit, obs.Source, obs.LineSequence, obs.CreatedAt).
		Returning("id").
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&obs.ID); err != nil {
			return fmt.Errorf("scan observation id: %w", err)
		}
	}
	return rows.Err()
}

func (r *observationRepository) DeleteByTender(ctx context.Context, tenderID uuid.UUID) (int64, error) {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Delete(observationsTable).
		Where(entsql.EQ("tender_id", tenderID)).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return 0, fmt.Errorf("delete observations: %w", err)
	}
	return n, nil
}

func (r *observationRepository) ListByYear(ctx context.Context, year int) ([]*entity.RawPriceObservation, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select(observationColumns...).
		From(b.Table(observationsTable)).
		Where(entsql.EQ("year", year)).
		OrderBy("material_id", "id").
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var out []*entity.RawPriceObservation
	for rows.Next() {
		var (
			o        entity.RawPriceObservation
			tenderID uuid.NullUUID
		)
		if err := rows.Scan(&o.ID, &o.MaterialID, &tenderID, &o.Year, &o.Price, &o.Unit, &o.Source, &o.LineSequence, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.TenderID = uuidPtr(tenderID)
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (r *observationRepository) Years(ctx context.Context) ([]int, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select("year").
		Distinct().
		From(b.Table(observationsTable)).
		OrderBy("year").
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query observation years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}
