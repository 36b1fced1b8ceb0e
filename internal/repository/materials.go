package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

const materialsTable = "canonical_materials"

var materialColumns = []string{"id", "name", "unit", "created_at"}

type MaterialRepository interface {
	// GetOrCreate returns the material whose normalized name matches name,
	// creating it with unit when absent. Safe under concurrent callers.
	GetOrCreate(ctx context.Context, name, unit string) (*entity.CanonicalMaterial, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, unit string) error
	FindByName(ctx context.Context, name string) (*entity.CanonicalMaterial, error)
	List(ctx context.Context) ([]*entity.CanonicalMaterial, error)
}

type materialRepository struct {
	conn   Conn
	logger *slog.Logger
}

func NewMaterialRepository(conn Conn, logger *slog.Logger) MaterialRepository {
	return &materialRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *materialRepository) GetOrCreate(ctx context.Context, name, unit string) (*entity.CanonicalMaterial, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return nil, fmt.Errorf("%w: material name is required", common.ErrInvalidInput)
	}
	query, args := entsql.Dialect(r.conn.Dialect()).
		Insert(materialsTable).
		Columns("id", "name", "name_key", "unit", "created_at").
		Values(uuid.New(), name, constants.MaterialKey(name), strings.TrimSpace(unit), now()).
		OnConflict(entsql.ConflictColumns("name_key"), entsql.DoNothing()).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return nil, fmt.Errorf("insert material: %w", err)
	}
	if n > 0 {
		r.logger.Info("canonical material created", "name", name, "unit", unit)
	}
	return r.FindByName(ctx, name)
}

func (r *materialRepository) UpdateUnit(ctx context.Context, id uuid.UUID, unit string) error {
	query, args := entsql.Dialect(r.conn.Dialect()).
		Update(materialsTable).
		Set("unit", strings.TrimSpace(unit)).
		Where(entsql.EQ("id", id)).
		Query()
	n, err := exec(ctx, r.conn, query, args)
	if err != nil {
		return fmt.Errorf("update material unit: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: material %s", common.ErrNotFound, id)
	}
	return nil
}

func (r *materialRepository) FindByName(ctx context.Context, name string) (*entity.CanonicalMaterial, error) {
	out, err := r.list(ctx, entsql.EQ("name_key", constants.MaterialKey(name)))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: material %q", common.ErrNotFound, name)
	}
	return out[0], nil
}

func (r *materialRepository) List(ctx context.Context) ([]*entity.CanonicalMaterial, error) {
	return r.list(ctx, nil)
}

func (r *materialRepository) list(ctx context.Context, p *entsql.Predicate) ([]*entity.CanonicalMaterial, error) {
	b := entsql.Dialect(r.conn.Dialect())
	sel := b.Select(materialColumns...).From(b.Table(materialsTable)).OrderBy("name")
	if p != nil {
		sel.Where(p)
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := r.conn.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var out []*entity.CanonicalMaterial
	for rows.Next() {
		var m entity.CanonicalMaterial
		if err := rows.Scan(&m.ID, &m.Name, &m.Unit, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
