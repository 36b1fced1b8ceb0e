package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const documentsTable = "extracted_documents"

var documentColumns = []string{
	"id", "tender_id", "source_path", "text", "method", "pages", "scanned", "confidence", "status", "error", "created_at",
}

type DocumentRepository interface {
	Insert(ctx context.Context, doc *entity.ExtractedDocument) error
	SaveText(ctx context.Context, id uuid.UUID, t entity.DocumentText) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractedDocument, error)
	ListByStatus(ctx context.Context, statuses ...constants.DocumentStatus) ([]*entity.ExtractedDocument, error)
	ListByTender(ctx context.Context, tenderID uuid.UUID) ([]*entity.ExtractedDocument, error)
}

type documentRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewDocumentRepository(conn Conn, logger *slog.Logger) DocumentRepository {
	return &documentRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *documentRepository) Insert(ctx context.Context, doc *entity.ExtractedDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusQueued
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now()
	}
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(documentsTable).
		Columns(append(documentColumns, "updated_at")...).
		Values(doc.ID, doc.TenderID, doc.SourcePath, doc.Text, doc.Method, doc.Pages, doc.Scanned, doc.Confidence,
			string(doc.Status), doc.Error, doc.CreatedAt, doc.CreatedAt).
		Query()
	if _, err := exec(ctx, r.conn, query, args); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// SaveText stores the extraction result and moves the document to TEXT_OK.
func (r *documentRepository) SaveText(ctx context.Context, id uuid.UUID, t entity.DocumentText) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Update(documentsTable).
		Set("text", t.Text).
		Set("method", t.Method).
		Set("pages", t.Pages).
		Set("scanned", t.Scanned).
		Set("confidence", t.Confidence).
		Set("status", string(constants.DocumentStatusTextOK)).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id)).
		Query()
	return r.mustAffect(ctx, id, query, args)
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Update(documentsTable).
		Set("status", string(status)).
		Set("error", errMsg).
		Set("updated_at", now()).
		Where(entsql.EQ("id", id)).
		Query()
	return r.mustAffect(ctx, id, query, args)
}

func (r *documentRepository) mustAffect(ctx context.Context, id uuid.UUID, query string, args []any) error {
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: document %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractedDocument, error) {
	out, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.ErrNotFound
	}
	return out[0], nil
}

func (r *documentRepository) ListByStatus(ctx context.Context, statuses ...constants.DocumentStatus) ([]*entity.ExtractedDocument, error) {
	vals := make([]any, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	return r.list(ctx, entsql.In("status", vals...))
}

func (r *documentRepository) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]*entity.ExtractedDocument, error) {
	return r.list(ctx, entsql.EQ("tender_id", tenderID))
}

func (r *documentRepository) list(ctx context.Context, p *entsql.Predicate) ([]*entity.ExtractedDocument, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select(documentColumns...).
		From(b.Table(documentsTable)).
		Where(p).
		OrderBy("created_at", "id").
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var out []*entity.ExtractedDocument
	for rows.Next() {
		var (
			d       entity.ExtractedDocument
			status  string
			created time.Time
		)
		if err := rows.Scan(&d.ID, &d.TenderID, &d.SourcePath, &d.Text, &d.Method, &d.Pages, &d.Scanned, &d.Confidence, &status, &d.Error, &created); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Status = constants.DocumentStatus(status)
		d.CreatedAt = created
		out = append(out, &d)
	}
	return out, rows.Err()
}
