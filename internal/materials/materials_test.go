package materials

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

func TestClassify(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		desc string
		want string
	}{
		{"Cement OPC 50kg bags", constants.CementOPC},
		{"Supply of BITUMEN 60/70 grade", constants.Bitumen6070},
		{"Bitumen 80/100 for prime coat", constants.Bitumen80100},
		{"Crushed stone aggregate 20mm", constants.CrushedStone20mm},
		{"Coarse aggregate for base", constants.CrushedStone20mm},
		{"Chenab   sand filling", constants.ChenabSand},
		{"Steel reinforcement grade 60", constants.SteelBar10mm},
		{"Welded wire mesh", constants.SteelMesh},
		{"Asphalt wearing course 50mm", constants.AsphalticConcrete},
		{"Plain cement concrete 1:4:8", constants.CementOPC},
	}
	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, ok := c.Classify(tc.desc)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}

	_, ok := c.Classify("Dismantling of road signs")
	assert.False(t, ok)
	_, ok = c.Classify("   ")
	assert.False(t, ok)
}

func TestClassifierRuleOrder(t *testing.T) {
	// specific keywords must come before any keyword they contain
	for i, r := range constants.MaterialKeywords {
		for _, earlier := range constants.MaterialKeywords[:i] {
			assert.False(t, strings.Contains(r.Keyword, earlier.Keyword),
				"%q is shadowed by earlier keyword %q", r.Keyword, earlier.Keyword)
		}
	}

	custom := NewClassifier(
		constants.KeywordRule{Keyword: "Geotextile", Material: "Geotextile Fabric"},
	)
	got, ok := custom.Classify("non-woven GEOTEXTILE layer")
	require.True(t, ok)
	assert.Equal(t, "Geotextile Fabric", got)
	_, ok = custom.Classify("cement")
	assert.False(t, ok)
}

type memStore struct {
	byKey   map[string]*entity.CanonicalMaterial
	updates int
	err     error
}

func newMemStore() *memStore {
	return &memStore{byKey: map[string]*entity.CanonicalMaterial{}}
}

func (m *memStore) GetOrCreate(_ context.Context, name, unit string) (*entity.CanonicalMaterial, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := constants.MaterialKey(name)
	if got, ok := m.byKey[key]; ok {
		cp := *got
		return &cp, nil
	}
	cm := &entity.CanonicalMaterial{ID: uuid.New(), Name: name, Unit: unit}
	m.byKey[key] = cm
	cp := *cm
	return &cp, nil
}

func (m *memStore) UpdateUnit(_ context.Context, id uuid.UUID, unit string) error {
	for _, cm := range m.byKey {
		if cm.ID == id {
			cm.Unit = unit
			m.updates++
			return nil
		}
	}
	return errors.New("not found")
}

func TestResolveCreatesOnce(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewResolver(nil, nil)

	a, ok, err := r.Resolve(ctx, store, "Cement OPC bags", "bag")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "50 kg Bag", a.Unit, "catalogue unit wins")

	b, ok, err := r.Resolve(ctx, store, "cement opc grade 53", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, store.byKey, 1)

	_, ok, err = r.Resolve(ctx, store, "Road signs", "nos")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResolveFillsMissingUnit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.byKey[constants.MaterialKey("Geotextile Fabric")] = &entity.CanonicalMaterial{ID: uuid.New(), Name: "Geotextile Fabric"}
	r := NewResolver(NewClassifier(constants.KeywordRule{Keyword: "geotextile", Material: "Geotextile Fabric"}), nil)

	m, ok, err := r.Resolve(ctx, store, "Geotextile layer", "m2")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "m2", m.Unit)
	assert.Equal(t, 1, store.updates)

	store.err = errors.New("connection reset")
	_, _, err = r.Resolve(ctx, store, "Geotextile layer", "m2")
	assert.ErrorContains(t, err, "connection reset")
}

func price(v float64) *float64 { return &v }

func TestObserve(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	r := NewResolver(nil, nil)
	tenderID := uuid.New()

	cases := []struct {
		name  string
		item  entity.BOQLineItem
		price float64
		unit  string
	}{
		{
			name:  "cement per bag",
			item:  entity.BOQLineItem{Sequence: 1, Description: "Cement OPC 50kg bags", Unit: "bag", Quantity: 100, UnitPrice: price(900), TotalPrice: price(90000), Stage: "structured"},
			price: 900,
			unit:  "50 kg Bag",
		},
		{
			name:  "steel per tonne restated per kg",
			item:  entity.BOQLineItem{Sequence: 2, Description: "Steel bar grade 60", Unit: "MT", Quantity: 10, UnitPrice: price(245000), Stage: "relaxed"},
			price: 245,
			unit:  "kg",
		},
		{
			name:  "price derived from total",
			item:  entity.BOQLineItem{Sequence: 3, Description: "Bitumen 60/70", Unit: "ton", Quantity: 4, TotalPrice: price(620000), Stage: "loose"},
			price: 155000,
			unit:  "MT",
		},
		{
			name:  "unconvertible unit kept",
			item:  entity.BOQLineItem{Sequence: 4, Description: "Steel bollards", Unit: "nos", Quantity: 12, UnitPrice: price(8000), Stage: "keyword"},
			price: 8000,
			unit:  "nos",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs, err := r.Observe(ctx, store, tenderID, 2024, tc.item)
			require.NoError(t, err)
			require.NotNil(t, obs)
			assert.InDelta(t, tc.price, obs.Price, 1e-6)
			assert.Equal(t, tc.unit, obs.Unit)
			assert.Equal(t, 2024, obs.Year)
			require.NotNil(t, obs.TenderID)
			assert.Equal(t, tenderID, *obs.TenderID)
			assert.Equal(t, tc.item.Sequence, obs.LineSequence)
			assert.Equal(t, "boq:"+tc.item.Stage, obs.Source)
		})
	}

	skipped := []entity.BOQLineItem{
		{Description: "Earthwork in embankment", Unit: "m3", Quantity: 500, UnitPrice: price(120)},
		{Description: "Cement OPC lump sum", Unit: "LS", Quantity: 1, UnitPrice: price(50000)},
		{Description: "Cement OPC", Unit: "bag", Quantity: 10},
	}
	for _, item := range skipped {
		obs, err := r.Observe(ctx, store, tenderID, 2024, item)
		require.NoError(t, err)
		assert.Nil(t, obs, item.Description)
	}
}

func TestSeedCatalogue(t *testing.T) {
	store := newMemStore()
	n, err := SeedCatalogue(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, len(constants.Materials), n)
	assert.Len(t, store.byKey, len(constants.Materials))

	n, err = SeedCatalogue(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, len(constants.Materials), n)
	assert.Len(t, store.byKey, len(constants.Materials))
}
