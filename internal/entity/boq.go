package entity

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// ReconcileTolerance bounds |total - quantity*unit_price| relative to the expected total.
const ReconcileTolerance = 0.20

var (
	ErrMissingDescription = errors.New("boq line: description is required")
	ErrBadQuantity        = errors.New("boq line: quantity must be positive")
	ErrMissingPrice       = errors.New("boq line: unit price or total price is required")
	ErrUnreconciled       = errors.New("boq line: total does not reconcile with quantity x unit price")
)

// BOQLineItem is one row recovered from a document's text.
type BOQLineItem struct {
	TenderID    uuid.UUID `json:"tender_id"`
	DocumentID  uuid.UUID `json:"document_id"`
	Sequence    int       `json:"sequence"`
	ItemCode    string    `json:"item_code,omitempty"`
	Description string    `json:"description"`
	Unit        string    `json:"unit,omitempty"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   *float64  `json:"unit_price,omitempty"`
	TotalPrice  *float64  `json:"total_price,omitempty"`
	SourceLine  string    `json:"source_line"`
	Stage       string    `json:"stage"`
}

// LineInput carries the parsed fields of a candidate line.
type LineInput struct {
	ItemCode    string
	Description string
	Unit        string
	Quantity    float64
	UnitPrice   *float64
	TotalPrice  *float64
	SourceLine  string
	Stage       string
}

// NewBOQLineItem builds a line item, rejecting candidates without a price,
// with a non-positive quantity, or whose prices do not reconcile.
func NewBOQLineItem(in LineInput) (BOQLineItem, error) {
	desc := strings.Join(strings.Fields(in.Description), " ")
	if desc == "" {
		return BOQLineItem{}, ErrMissingDescription
	}
	if !(in.Quantity > 0) || math.IsInf(in.Quantity, 0) {
		return BOQLineItem{}, fmt.Errorf("%w: %v", ErrBadQuantity, in.Quantity)
	}
	if in.UnitPrice == nil && in.TotalPrice == nil {
		return BOQLineItem{}, ErrMissingPrice
	}
	if in.UnitPrice != nil && in.TotalPrice != nil && !Reconciles(in.Quantity, *in.UnitPrice, *in.TotalPrice) {
		return BOQLineItem{}, fmt.Errorf("%w: qty=%v rate=%v total=%v", ErrUnreconciled, in.Quantity, *in.UnitPrice, *in.TotalPrice)
	}
	return BOQLineItem{
		ItemCode:    strings.TrimSpace(in.ItemCode),
		Description: desc,
		Unit:        in.Unit,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		TotalPrice:  in.TotalPrice,
		SourceLine:  in.SourceLine,
		Stage:       in.Stage,
	}, nil
}

// Reconciles reports whether total is within ReconcileTolerance of quantity*unitPrice.
func Reconciles(quantity, unitPrice, total float64) bool {
	expected := quantity * unitPrice
	if expected <= 0 {
		return false
	}
	return math.Abs(total-expected)/expected <= ReconcileTolerance
}

// EffectiveUnitPrice returns the unit price, deriving it from the total when absent.
func (b BOQLineItem) EffectiveUnitPrice() (float64, bool) {
	if b.UnitPrice != nil {
		return *b.UnitPrice, true
	}
	if b.TotalPrice != nil && b.Quantity > 0 {
		return *b.TotalPrice / b.Quantity, true
	}
	return 0, false
}
