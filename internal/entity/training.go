package entity

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ErrNonPositiveLabel marks a training record whose label cost is zero, negative or missing.
var ErrNonPositiveLabel = errors.New("training record: label cost must be positive")

// TrainingRecord is one (tender, feature vector, label cost) row.
type TrainingRecord struct {
	TenderID      uuid.UUID `json:"tender_id"`
	SchemaVersion string    `json:"schema_version"`
	Features      []float64 `json:"features"`
	Label         float64   `json:"label_cost"`
}

func NewTrainingRecord(tenderID uuid.UUID, schemaVersion string, features []float64, label float64) (TrainingRecord, error) {
	if !(label > 0) || math.IsInf(label, 0) {
		return TrainingRecord{}, fmt.Errorf("%w: tender %s label %v", ErrNonPositiveLabel, tenderID, label)
	}
	return TrainingRecord{
		TenderID:      tenderID,
		SchemaVersion: schemaVersion,
		Features:      features,
		Label:         label,
	}, nil
}
