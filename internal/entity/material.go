package entity

import (
	"time"

	"github.com/google/uuid"
)

// CanonicalMaterial is a normalized material name with its billing unit.
type CanonicalMaterial struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"created_at"`
}

// RawPriceObservation is one price seen for a canonical material in a year.
type RawPriceObservation struct {
	ID           int64      `json:"id"`
	MaterialID   uuid.UUID  `json:"material_id"`
	TenderID     *uuid.UUID `json:"tender_id,omitempty"`
	Year         int        `json:"year"`
	Price        float64    `json:"price"`
	Unit         string     `json:"unit"`
	Source       string     `json:"source"`
	LineSequence int        `json:"line_sequence,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// YearlyPrice is the resolved price of a material for one year.
type YearlyPrice struct {
	ID            uuid.UUID `json:"id"`
	MaterialID    uuid.UUID `json:"material_id"`
	MaterialName  string    `json:"material_name,omitempty"`
	Year          int       `json:"year"`
	Price         float64   `json:"price"`
	Unit          string    `json:"unit"`
	EffectiveDate time.Time `json:"effective_date"`
	Observations  int       `json:"observations"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// InflationIndex is the year-over-year price change for a material.
type InflationIndex struct {
	MaterialID uuid.UUID `json:"material_id"`
	Year       int       `json:"year"`
	Rate       float64   `json:"rate"`
	UpdatedAt  time.Time `json:"updated_at"`
}
