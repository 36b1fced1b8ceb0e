package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestNewBOQLineItem(t *testing.T) {
	tests := []struct {
		name    string
		in      LineInput
		wantErr error
	}{
		{
			name: "both prices reconcile",
			in:   LineInput{Description: "Cement OPC", Quantity: 100, UnitPrice: ptr(900), TotalPrice: ptr(90000)},
		},
		{
			name: "within twenty percent",
			in:   LineInput{Description: "Steel bars", Quantity: 10, UnitPrice: ptr(100), TotalPrice: ptr(1190)},
		},
		{
			name:    "outside twenty percent",
			in:      LineInput{Description: "Steel bars", Quantity: 10, UnitPrice: ptr(100), TotalPrice: ptr(1300)},
			wantErr: ErrUnreconciled,
		},
		{
			name: "only total",
			in:   LineInput{Description: "Excavation", Quantity: 5, TotalPrice: ptr(5000)},
		},
		{
			name:    "no prices",
			in:      LineInput{Description: "Excavation", Quantity: 5},
			wantErr: ErrMissingPrice,
		},
		{
			name:    "zero quantity",
			in:      LineInput{Description: "Excavation", Quantity: 0, UnitPrice: ptr(10)},
			wantErr: ErrBadQuantity,
		},
		{
			name:    "blank description",
			in:      LineInput{Description: "   ", Quantity: 1, UnitPrice: ptr(10)},
			wantErr: ErrMissingDescription,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := NewBOQLineItem(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in.Quantity, item.Quantity)
		})
	}
}

func TestNewBOQLineItemCollapsesWhitespace(t *testing.T) {
	item, err := NewBOQLineItem(LineInput{Description: "  Cement \t OPC   bags ", Quantity: 1, UnitPrice: ptr(1)})
	require.NoError(t, err)
	assert.Equal(t, "Cement OPC bags", item.Description)
}

func TestEffectiveUnitPrice(t *testing.T) {
	item := BOQLineItem{Quantity: 4, TotalPrice: ptr(100)}
	p, ok := item.EffectiveUnitPrice()
	require.True(t, ok)
	assert.Equal(t, 25.0, p)

	item.UnitPrice = ptr(30)
	p, _ = item.EffectiveUnitPrice()
	assert.Equal(t, 30.0, p)
}

func TestNewTrainingRecordRejectsNonPositiveLabel(t *testing.T) {
	_, err := NewTrainingRecord(uuid.New(), "v1", []float64{1}, 0)
	require.ErrorIs(t, err, ErrNonPositiveLabel)

	rec, err := NewTrainingRecord(uuid.New(), "v1", []float64{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10.0, rec.Label)
}

func TestResolveYear(t *testing.T) {
	closing := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	m := TenderMetadata{ClosingDate: &closing, Year: 2022}
	assert.Equal(t, 2024, m.ResolveYear(2025))

	m = TenderMetadata{Year: 2022}
	assert.Equal(t, 2022, m.ResolveYear(2025))

	assert.Equal(t, 2025, TenderMetadata{}.ResolveYear(2025))
}
