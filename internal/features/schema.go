// Package features turns a tender, its line items and the yearly prices in
// force into the fixed-order vector a cost model is trained on, and guards
// inference against vectors built for a different model.
package features

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/joseph-ayodele/road-estimator/constants"
)

// Feature names of schema v1, in vector order.
const (
	RoadLengthKm    = "road_length_km"
	RoadWidthM      = "road_width_m"
	CementQtyTon    = "cement_qty_ton"
	BitumenQtyTon   = "bitumen_qty_ton"
	SteelQtyTon     = "steel_qty_ton"
	AggregateQtyTon = "aggregate_qty_ton"
	CementPrice     = "cement_price"
	BitumenPrice    = "bitumen_price"
	SteelPrice      = "steel_price"
	AggregatePrice  = "aggregate_price"
	MaterialsTotal  = "materials_total"
)

const (
	CurrentVersion = "v1"
	LabelColumn    = "label_cost"
)

// Schema is a versioned, ordered list of feature names.
type Schema struct {
	Version string   `json:"schema_version"`
	Names   []string `json:"feature_names"`
}

// V1 is the schema the builder produces by default.
func V1() Schema {
	return Schema{
		Version: CurrentVersion,
		Names: []string{
			RoadLengthKm,
			RoadWidthM,
			CementQtyTon,
			BitumenQtyTon,
			SteelQtyTon,
			AggregateQtyTon,
			CementPrice,
			BitumenPrice,
			SteelPrice,
			AggregatePrice,
			MaterialsTotal,
		},
	}
}

// Equal reports whether both schemas name the same features in the same order.
func (s Schema) Equal(o Schema) bool {
	return s.Version == o.Version && slices.Equal(s.Names, o.Names)
}

// Fingerprint is a short digest of the ordered names.
func (s Schema) Fingerprint() string {
	sum := sha256.Sum256([]byte(s.Version + "|" + strings.Join(s.Names, ",")))
	return hex.EncodeToString(sum[:8])
}

// trackedGroups lists the material groups with a quantity and a price
// feature, each with the material whose price represents it.
var trackedGroups = []struct {
	group    constants.MaterialGroup
	qty      string
	price    string
	material string
}{
	{constants.GroupCement, CementQtyTon, CementPrice, constants.CementOPC},
	{constants.GroupBitumen, BitumenQtyTon, BitumenPrice, constants.Bitumen6070},
	{constants.GroupSteel, SteelQtyTon, SteelPrice, constants.SteelBar10mm},
	{constants.GroupAggregate, AggregateQtyTon, AggregatePrice, constants.CrushedStone20mm},
}

// featureGroup folds sand into aggregate; asphalt has no feature of its own.
func featureGroup(g constants.MaterialGroup) (constants.MaterialGroup, bool) {
	switch g {
	case constants.GroupSand:
		return constants.GroupAggregate, true
	case constants.GroupCement, constants.GroupBitumen, constants.GroupSteel, constants.GroupAggregate:
		return g, true
	}
	return "", false
}
