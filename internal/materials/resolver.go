package materials

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

// SourceBOQ prefixes the source of observations taken from line items.
const SourceBOQ = "boq"

// Store is the part of the material repository the resolver needs.
type Store interface {
	GetOrCreate(ctx context.Context, name, unit string) (*entity.CanonicalMaterial, error)
	UpdateUnit(ctx context.Context, id uuid.UUID, unit string) error
}

// Resolver classifies line items and resolves them to stored materials.
type Resolver struct {
	classifier *Classifier
	logger     *slog.Logger
}

func NewResolver(classifier *Classifier, logger *slog.Logger) *Resolver {
	if classifier == nil {
		classifier = NewClassifier()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{classifier: classifier, logger: logger}
}

// Resolve returns the canonical material for desc, creating its row when it
// does not exist yet. Catalogue materials are created with their catalogue
// unit, anything else with unit. A stored material without a unit adopts
// the one supplied here.
func (r *Resolver) Resolve(ctx context.Context, store Store, desc, unit string) (*entity.CanonicalMaterial, bool, error) {
	name, ok := r.classifier.Classify(desc)
	if !ok {
		return nil, false, nil
	}
	defaultUnit := unit
	if cat, ok := constants.LookupMaterial(name); ok {
		defaultUnit = cat.Unit
	}
	m, err := store.GetOrCreate(ctx, name, defaultUnit)
	if err != nil {
		return nil, false, fmt.Errorf("resolve material %q: %w", name, err)
	}
	if m.Unit == "" && defaultUnit != "" {
		if err := store.UpdateUnit(ctx, m.ID, defaultUnit); err != nil {
			return nil, false, fmt.Errorf("set material unit: %w", err)
		}
		m.Unit = defaultUnit
	}
	return m, true, nil
}

// Observe turns a priced line item into a raw price observation for year.
// It returns nil when the item names no known material or carries no usable
// price. The observation is not stored.
func (r *Resolver) Observe(ctx context.Context, store Store, tenderID uuid.UUID, year int, item entity.BOQLineItem) (*entity.RawPriceObservation, error) {
	price, ok := item.EffectiveUnitPrice()
	if !ok || !(price > 0) || constants.CanonicalUnit(item.Unit) == "ls" {
		return nil, nil
	}
	m, ok, err := r.Resolve(ctx, store, item.Description, item.Unit)
	if err != nil || !ok {
		return nil, err
	}
	price, unit := normalizePrice(m.Name, price, item.Unit)
	id := tenderID
	obs := &entity.RawPriceObservation{
		MaterialID:   m.ID,
		TenderID:     &id,
		Year:         year,
		Price:        price,
		Unit:         unit,
		Source:       SourceBOQ + ":" + item.Stage,
		LineSequence: item.Sequence,
	}
	r.logger.Debug("price observation",
		"tender_id", tenderID,
		"material", m.Name,
		"price", price,
		"unit", unit,
		"line", item.Sequence)
	return obs, nil
}

// normalizePrice restates a price in the catalogue unit of material when
// both units convert to tonnes; otherwise the line's own unit is kept.
func normalizePrice(material string, price float64, lineUnit string) (float64, string) {
	cat, ok := constants.LookupMaterial(material)
	if !ok {
		return price, lineUnit
	}
	if lineUnit == "" {
		return price, cat.Unit
	}
	from, ok := constants.TonnesPerUnit(lineUnit, cat.Group)
	if !ok || from <= 0 || cat.TonnesPerUnit <= 0 {
		return price, lineUnit
	}
	return price / from * cat.TonnesPerUnit, cat.Unit
}

// SeedCatalogue creates every catalogue material so that lookups and exports
// list them before any tender mentions them.
func SeedCatalogue(ctx context.Context, store Store) (int, error) {
	for i, m := range constants.Materials {
		if _, err := store.GetOrCreate(ctx, m.Name, m.Unit); err != nil {
			return i, fmt.Errorf("seed %q: %w", m.Name, err)
		}
	}
	return len(constants.Materials), nil
}
