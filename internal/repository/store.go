package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/common"
)

// Conn is the query surface repositories run on: the driver itself or an
// open transaction.
type Conn interface {
	dialect.ExecQuerier
	Dialect() string
}

type txConn struct {
	dialect.Tx
	name string
}

func (c txConn) Dialect() string { return c.name }

// Store groups the repositories over one connection.
type Store struct {
	conn   Conn
	drv    *entsql.Driver
	logger *slog.Logger

	Tenders      TenderRepository
	Documents    DocumentRepository
	LineItems    LineItemRepository
	Materials    MaterialRepository
	Observations ObservationRepository
	Prices       PriceRepository
}

func NewStore(drv *entsql.Driver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := newStore(drv, logger)
	s.drv = drv
	return s
}

func newStore(conn Conn, logger *slog.Logger) *Store {
	return &Store{
		conn:         conn,
		logger:       logger,
		Tenders:      NewTenderRepository(conn, logger),
		Documents:    NewDocumentRepository(conn, logger),
		LineItems:    NewLineItemRepository(conn, logger),
		Materials:    NewMaterialRepository(conn, logger),
		Observations: NewObservationRepository(conn, logger),
		Prices:       NewPriceRepository(conn, logger),
	}
}

// Dialect names the SQL dialect of the underlying driver.
func (s *Store) Dialect() string { return s.conn.Dialect() }

// Driver returns the root driver; nil for a transaction-scoped store.
func (s *Store) Driver() *entsql.Driver { return s.drv }

// InTx runs fn with a store bound to one transaction, committing when fn
// returns nil and rolling back otherwise. Nested calls reuse the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.drv == nil {
		return fn(s)
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", common.ErrDatabase, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(newStore(txConn{Tx: tx, name: s.drv.Dialect()}, s.logger)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Error("rollback failed", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func now() time.Time { return time.Now().UTC() }

func exec(ctx context.Context, conn Conn, query string, args []any) (int64, error) {
	var res sql.Result
	if err := conn.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil || v.IsZero() {
		return nil
	}
	return v.UTC()
}

func nullUUID(v *uuid.UUID) any {
	if v == nil || *v == uuid.Nil {
		return nil
	}
	return *v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	v := n.UUID
	return &v
}
