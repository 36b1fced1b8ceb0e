package features

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/materials"
)

// Vector is a feature vector tagged with the schema it was built for.
type Vector struct {
	Schema Schema
	Values []float64
	// Missing names features that had no source value and were set to 0.
	Missing []string
}

// Get returns the value of the named feature.
func (v Vector) Get(name string) (float64, bool) {
	for i, n := range v.Schema.Names {
		if n == name {
			return v.Values[i], true
		}
	}
	return 0, false
}

type Builder struct {
	schema     Schema
	classifier *materials.Classifier
	logger     *slog.Logger
}

// NewBuilder returns a builder for schema. Every name in schema must be a
// feature the builder knows how to compute.
func NewBuilder(schema Schema, classifier *materials.Classifier, logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = materials.NewClassifier()
	}
	if schema.Version == "" || len(schema.Names) == 0 {
		return nil, fmt.Errorf("%w: empty feature schema", common.ErrInvalidInput)
	}
	known := make(map[string]bool)
	for _, n := range V1().Names {
		known[n] = true
	}
	for _, n := range schema.Names {
		if !known[n] {
			return nil, fmt.Errorf("%w: unknown feature %q", common.ErrSchemaMismatch, n)
		}
	}
	return &Builder{schema: schema, classifier: classifier, logger: logger}, nil
}

func (b *Builder) Schema() Schema {
	return b.schema
}

// Build computes the vector for t. Quantities are tonnes summed over the line
// items of each tracked group; prices are per tonne, taken from prices (the
// yearly prices in force for the tender's year).
func (b *Builder) Build(t *entity.Tender, prices []*entity.YearlyPrice, items []entity.BOQLineItem) (Vector, error) {
	if t == nil {
		return Vector{}, fmt.Errorf("%w: nil tender", common.ErrInvalidInput)
	}
	values := make(map[string]float64, len(b.schema.Names))
	var missing []string

	if t.RoadLengthKm != nil {
		values[RoadLengthKm] = *t.RoadLengthKm
	} else {
		missing = append(missing, RoadLengthKm)
	}
	if t.RoadWidthM != nil {
		values[RoadWidthM] = *t.RoadWidthM
	} else {
		missing = append(missing, RoadWidthM)
	}

	qty := b.quantities(items)
	byName := make(map[string]*entity.YearlyPrice, len(prices))
	for _, p := range prices {
		if p != nil {
			byName[constants.MaterialKey(p.MaterialName)] = p
		}
	}
	var total float64
	for _, g := range trackedGroups {
		values[g.qty] = qty[g.group]
		perTonne, ok := groupPrice(g.group, g.material, byName)
		if !ok {
			missing = append(missing, g.price)
			continue
		}
		values[g.price] = perTonne
		total += qty[g.group] * perTonne
	}
	values[MaterialsTotal] = total

	v := Vector{Schema: b.schema, Values: make([]float64, len(b.schema.Names))}
	for i, n := range b.schema.Names {
		v.Values[i] = values[n]
	}
	for _, m := range missing {
		if _, ok := v.Get(m); ok {
			v.Missing = append(v.Missing, m)
		}
	}
	if len(v.Missing) > 0 {
		b.logger.Debug("features missing", "tender_id", t.ID, "features", strings.Join(v.Missing, ","))
	}
	return v, nil
}

// Record builds a training row labelled with the tender's estimated cost.
func (b *Builder) Record(t *entity.Tender, prices []*entity.YearlyPrice, items []entity.BOQLineItem) (entity.TrainingRecord, error) {
	v, err := b.Build(t, prices, items)
	if err != nil {
		return entity.TrainingRecord{}, err
	}
	var label float64
	if t.CostPKR != nil {
		label = *t.CostPKR
	}
	return entity.NewTrainingRecord(t.ID, b.schema.Version, v.Values, label)
}

func (b *Builder) quantities(items []entity.BOQLineItem) map[constants.MaterialGroup]float64 {
	out := make(map[constants.MaterialGroup]float64)
	for _, it := range items {
		if it.Unit == "" || !(it.Quantity > 0) {
			continue
		}
		name, ok := b.classifier.Classify(it.Description)
		if !ok {
			continue
		}
		cat, ok := constants.LookupMaterial(name)
		if !ok {
			continue
		}
		group, ok := featureGroup(cat.Group)
		if !ok {
			continue
		}
		tpu, ok := constants.TonnesPerUnit(it.Unit, cat.Group)
		if !ok {
			continue
		}
		out[group] += it.Quantity * tpu
	}
	return out
}

// groupPrice prefers the group's representative material and falls back to
// any other catalogue material of the group, in catalogue order.
func groupPrice(group constants.MaterialGroup, preferred string, byName map[string]*entity.YearlyPrice) (float64, bool) {
	candidates := []string{preferred}
	for _, m := range constants.Materials {
		if g, ok := featureGroup(m.Group); ok && g == group && m.Name != preferred {
			candidates = append(candidates, m.Name)
		}
	}
	for _, name := range candidates {
		p, ok := byName[constants.MaterialKey(name)]
		if !ok {
			continue
		}
		if perTonne, ok := pricePerTonne(p); ok {
			return perTonne, true
		}
	}
	return 0, false
}

func pricePerTonne(p *entity.YearlyPrice) (float64, bool) {
	cat, ok := constants.LookupMaterial(p.MaterialName)
	if !ok || !(p.Price > 0) {
		return 0, false
	}
	tpu := cat.TonnesPerUnit
	if p.Unit != "" && constants.MaterialKey(p.Unit) != constants.MaterialKey(cat.Unit) {
		if tpu, ok = constants.TonnesPerUnit(p.Unit, cat.Group); !ok {
			return 0, false
		}
	}
	if !(tpu > 0) {
		return 0, false
	}
	perTonne := p.Price / tpu
	if math.IsInf(perTonne, 0) || math.IsNaN(perTonne) {
		return 0, false
	}
	return perTonne, true
}
