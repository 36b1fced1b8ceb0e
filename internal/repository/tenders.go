package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const tendersTable = "tenders"

var tenderColumns = []string{
	"id", "tender_no", "title", "organization", "department", "city", "province",
	"category", "procurement_method", "status", "source_site", "tender_url",
	"publish_date", "closing_date", "opening_date", "road_length_km", "road_width_m",
	"cost_pkr", "year", "source_path", "source_hash", "document_id", "created_at",
}

type TenderRepository interface {
	// Ensure inserts t, or loads the existing tender with the same source
	// hash into t. created reports which happened.
	Ensure(ctx context.Context, t *entity.Tender) (created bool, err error)
	UpdateMetadata(ctx context.Context, id uuid.UUID, meta entity.TenderMetadata) error
	AttachDocument(ctx context.Context, tenderID, documentID uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Tender, error)
	GetBySourceHash(ctx context.Context, hash string) (*entity.Tender, error)
	List(ctx context.Context) ([]*entity.Tender, error)
}

type tenderRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewTenderRepository(conn Conn, logger *slog.Logger) TenderRepository {
	return &tenderRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *tenderRepository) Ensure(ctx context.Context, t *entity.Tender) (bool, error) {
	if t.SourceHash == "" {
		return false, fmt.Errorf("%w: tender source hash is required", common.ErrInvalidInput)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	m := t.TenderMetadata
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(tendersTable).
		Columns(tenderColumns...).
		Values(
			t.ID, m.TenderNo, m.Title, m.Organization, m.Department, m.City, m.Province,
			m.Category, m.ProcurementMethod, m.Status, m.SourceSite, m.TenderURL,
			nullTime(m.PublishDate), nullTime(m.ClosingDate), nullTime(m.OpeningDate),
			nullFloat(m.RoadLengthKm), nullFloat(m.RoadWidthM), nullFloat(m.CostPKR),
			m.Year, t.SourcePath, t.SourceHash, nullUUID(t.DocumentID), t.CreatedAt,
		).
		OnConflict(entsql.ConflictColumns("source_hash"), entsql.DoNothing()).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return false, fmt.Errorf("insert tender: %w", err)
	}

	stored, err := r.GetBySourceHash(ctx, t.SourceHash)
	if err != nil {
		return false, err
	}
	*t = *stored
	if n == 0 {
		r.logger.Debug("tender already stored", "tender_id", t.ID, "source_hash", t.SourceHash)
	}
	return n > 0, nil
}

func (r *tenderRepository) UpdateMetadata(ctx context.Context, id uuid.UUID, m entity.TenderMetadata) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Update(tendersTable).
		Set("tender_no", m.TenderNo).
		Set("title", m.Title).
		Set("organization", m.Organization).
		Set("department", m.Department).
		Set("city", m.City).
		Set("province", m.Province).
		Set("category", m.Category).
		Set("procurement_method", m.ProcurementMethod).
		Set("status", m.Status).
		Set("source_site", m.SourceSite).
		Set("tender_url", m.TenderURL).
		Set("publish_date", nullTime(m.PublishDate)).
		Set("closing_date", nullTime(m.ClosingDate)).
		Set("opening_date", nullTime(m.OpeningDate)).
		Set("road_length_km", nullFloat(m.RoadLengthKm)).
		Set("road_width_m", nullFloat(m.RoadWidthM)).
		Set("cost_pkr", nullFloat(m.CostPKR)).
		Set("year", m.Year).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return fmt.Errorf("update tender metadata: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: tender %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *tenderRepository) AttachDocument(ctx context.Context, tenderID, documentID uuid.UUID) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Update(tendersTable).
		Set("document_id", documentID).
		Where(entsql.EQ("id", tenderID)).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return fmt.Errorf("attach document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: tender %s", common.ErrNotFound, tenderID)
	}
	return nil
}

func (r *tenderRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Tender, error) {
	return r.one(ctx, entsql.EQ("id", id))
}

func (r *tenderRepository) GetBySourceHash(ctx context.Context, hash string) (*entity.Tender, error) {
	return r.one(ctx, entsql.EQ("source_hash", hash))
}

func (r *tenderRepository) List(ctx context.Context) ([]*entity.Tender, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select(tenderColumns...).
		From(b.Table(tendersTable)).
		OrderBy("created_at", "id").
		Query()
	return r.query(ctx, query, args)
}

func (r *tenderRepository) one(ctx context.Context, p *entsql.Predicate) (*entity.Tender, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select(tenderColumns...).
		From(b.Table(tendersTable)).
		Where(p).
		Limit(1).
		Query()
	out, err := r.query(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.ErrNotFound
	}
	return out[0], nil
}

func (r *tenderRepository) query(ctx context.Context, query string, args []any) ([]*entity.Tender, error) {
	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query tenders: %w", err)
	}
	defer rows.Close()

	var out []*entity.Tender
	for rows.Next() {
		var (
			t                        entity.Tender
			publish, closing, opened sql.NullTime
			length, width, cost      sql.NullFloat64
			docID                    uuid.NullUUID
		)
		if err := rows.Scan(
			&t.ID, &t.TenderNo, &t.Title, &t.Organization, &t.Department, &t.City, &t.Province,
			&t.Category, &t.ProcurementMethod, &t.Status, &t.SourceSite, &t.TenderURL,
			&publish, &closing, &opened, &length, &width,
			&cost, &t.Year, &t.SourcePath, &t.SourceHash, &docID, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan tender: %w", err)
		}
		t.PublishDate, t.ClosingDate, t.OpeningDate = timePtr(publish), timePtr(closing), timePtr(opened)
		t.RoadLengthKm, t.RoadWidthM, t.CostPKR = floatPtr(length), floatPtr(width), floatPtr(cost)
		t.DocumentID = uuidPtr(docID)
		out = append(out, &t)
	}
	return out, rows.Err()
}
