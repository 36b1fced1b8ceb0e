package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const lineItemsTable = "boq_line_items"

// rows per INSERT; keeps postgres under its 65535 bind-parameter limit
const lineItemBatch = 500

var lineItemColumns = []string{
	"tender_id", "sequence", "document_id", "item_code", "description", "unit",
	"quantity", "unit_price", "total_price", "source_line", "stage",
}

type LineItemRepository interface {
	// Replace deletes the tender's line items and inserts items in their place.
	Replace(ctx context.Context, tenderID, documentID uuid.UUID, items []entity.BOQLineItem) error
	ListByTender(ctx context.Context, tenderID uuid.UUID) ([]entity.BOQLineItem, error)
}

type lineItemRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewLineItemRepository(conn Conn, logger *slog.Logger) LineItemRepository {
	return &lineItemRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *lineItemRepository) Replace(ctx context.Context, tenderID, documentID uuid.UUID, items []entity.BOQLineItem) error {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Delete(lineItemsTable).Where(entsql.EQ("tender_id", tenderID)).Query()
	deleted, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return fmt.Errorf("delete line items: %w", err)
	}

	for start := 0; start < len(items); start += lineItemBatch {
		end := min(start+lineItemBatch, len(items))
		ins := b.Insert(lineItemsTable).Columns(lineItemColumns...)
		for i, it := range items[start:end] {
			seq := it.Sequence
			if seq <= 0 {
				seq = start + i + 1
			}
			ins.Values(tenderID, seq, documentID, it.ItemCode, it.Description, it.Unit,
				it.Quantity, nullFloat(it.UnitPrice), nullFloat(it.TotalPrice), it.SourceLine, it.Stage)
		}
		query, args := ins.Query()
		if _, err := exec(ctx, r.conn, query, args); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}
	}
	r.logger.Debug("line items replaced", "tender_id", tenderID, "deleted", deleted, "inserted", len(items))
	return nil
}

func (r *lineItemRepository) ListByTender(ctx context.Context, tenderID uuid.UUID) ([]entity.BOQLineItem, error) {
	b := entsql.Dialect(r.conn.Dialect())
	query, args := b.Select(lineItemColumns...).
		From(b.Table(lineItemsTable)).
		Where(entsql.EQ("tender_id", tenderID)).
		OrderBy("sequence").
		Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	var out []entity.BOQLineItem
	for rows.Next() {
		var (
			it          entity.BOQLineItem
			rate, total sql.NullFloat64
		)
		if err := rows.Scan(&it.TenderID, &it.Sequence, &it.DocumentID, &it.ItemCode, &it.Description, &it.Unit,
			&it.Quantity, &rate, &total, &it.SourceLine, &it.Stage); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		it.UnitPrice, it.TotalPrice = floatPtr(rate), floatPtr(total)
		out = append(out, it)
	}
	return out, rows.Err()
}
