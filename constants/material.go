package constants

import "strings"

// MaterialGroup buckets canonical materials for feature building.
type MaterialGroup string

const (
	GroupCement    MaterialGroup = "cement"
	GroupBitumen   MaterialGroup = "bitumen"
	GroupSteel     MaterialGroup = "steel"
	GroupAggregate MaterialGroup = "aggregate"
	GroupSand      MaterialGroup = "sand"
	GroupAsphalt   MaterialGroup = "asphalt"
)

// Material is one entry of the canonical material catalogue.
type Material struct {
	Name  string
	Unit  string // billing unit
	Group MaterialGroup
	// TonnesPerUnit converts one billing unit into metric tonnes.
	TonnesPerUnit float64
	// Baseline prices (PKR per billing unit) used to seed an empty store.
	Baseline map[int]float64
}

const (
	CementOPC         = "Cement OPC Grade 53"
	CementPPC         = "Cement PPC"
	Bitumen6070       = "Bitumen 60/70"
	Bitumen80100      = "Bitumen 80/100"
	SteelBar10mm      = "Steel Bar 10mm"
	SteelMesh         = "Steel Mesh"
	CrushedStone20mm  = "Crushed Stone 20mm"
	RaviSand          = "Ravi Sand"
	ChenabSand        = "Chenab Sand"
	BrickBallast      = "Brick Ballast"
	AsphalticConcrete = "Asphaltic Concrete"
)

// cft of loose stone/sand at ~1.6 t/m3
const tonnesPerCft = 0.0283168 * 1.6

var Materials = []Material{
	{Name: CementOPC, Unit: "50 kg Bag", Group: GroupCement, TonnesPerUnit: 0.05,
		Baseline: map[int]float64{2023: 900, 2024: 1150, 2025: 1550}},
	{Name: CementPPC, Unit: "50 kg Bag", Group: GroupCement, TonnesPerUnit: 0.05,
		Baseline: map[int]float64{2023: 880, 2024: 1130, 2025: 1530}},
	{Name: Bitumen6070, Unit: "MT", Group: GroupBitumen, TonnesPerUnit: 1,
		Baseline: map[int]float64{2023: 130000, 2024: 155000, 2025: 175000}},
	{Name: Bitumen80100, Unit: "MT", Group: GroupBitumen, TonnesPerUnit: 1,
		Baseline: map[int]float64{2023: 135000, 2024: 160000, 2025: 180000}},
	{Name: SteelBar10mm, Unit: "kg", Group: GroupSteel, TonnesPerUnit: 0.001,
		Baseline: map[int]float64{2023: 220, 2024: 245, 2025: 255}},
	{Name: SteelMesh, Unit: "m2", Group: GroupSteel, TonnesPerUnit: 0.003,
		Baseline: map[int]float64{2023: 500, 2024: 650, 2025: 750}},
	{Name: CrushedStone20mm, Unit: "cft", Group: GroupAggregate, TonnesPerUnit: tonnesPerCft,
		Baseline: map[int]float64{2023: 90, 2024: 135, 2025: 160}},
	{Name: RaviSand, Unit: "cft", Group: GroupSand, TonnesPerUnit: tonnesPerCft,
		Baseline: map[int]float64{2023: 30, 2024: 45, 2025: 55}},
	{Name: ChenabSand, Unit: "cft", Group: GroupSand, TonnesPerUnit: tonnesPerCft,
		Baseline: map[int]float64{2023: 55, 2024: 75, 2025: 85}},
	{Name: BrickBallast, Unit: "cft", Group: GroupAggregate, TonnesPerUnit: 0.0283168 * 1.4,
		Baseline: map[int]float64{2023: 60, 2024: 80, 2025: 95}},
	{Name: AsphalticConcrete, Unit: "MT", Group: GroupAsphalt, TonnesPerUnit: 1,
		Baseline: map[int]float64{2023: 15000, 2024: 20000, 2025: 26000}},
}

// LookupMaterial finds a catalogue entry by case-insensitive name.
func LookupMaterial(name string) (Material, bool) {
	key := MaterialKey(name)
	for _, m := range Materials {
		if MaterialKey(m.Name) == key {
			return m, true
		}
	}
	return Material{}, false
}

// MaterialKey is the normalized form used for case-insensitive material identity.
func MaterialKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// KeywordRule maps a description substring to a canonical material name.
type KeywordRule struct {
	Keyword  string
	Material string
}

// MaterialKeywords is matched in order and the first hit wins, so a keyword
// must come before any rule whose keyword it contains.
var MaterialKeywords = []KeywordRule{
	{"cement opc", CementOPC},
	{"opc cement", CementOPC},
	{"cement ppc", CementPPC},
	{"ppc cement", CementPPC},
	{"bitumen 60", Bitumen6070},
	{"bitumen 80", Bitumen80100},
	{"steel mesh", SteelMesh},
	{"wire mesh", SteelMesh},
	{"steel bar", SteelBar10mm},
	{"steel rebar", SteelBar10mm},
	{"reinforcement", SteelBar10mm},
	{"crushed stone", CrushedStone20mm},
	{"chenab sand", ChenabSand},
	{"ravi sand", RaviSand},
	{"brick ballast", BrickBallast},
	{"asphalt", AsphalticConcrete},
	{"aggregate", CrushedStone20mm},
	{"sand", RaviSand},
	{"brick", BrickBallast},
	{"bitumen", Bitumen6070},
	{"steel", SteelBar10mm},
	{"cement", CementOPC},
	{"concrete", CementOPC},
}

// ConstructionKeywords are the words the BOQ keyword fallback looks for.
var ConstructionKeywords = []string{
	"cement", "concrete", "steel", "bitumen", "asphalt", "aggregate",
	"sand", "excavation", "backfill", "brick", "stone", "subbase",
	"base course", "reinforcement", "earthwork", "embankment", "shingle",
}
