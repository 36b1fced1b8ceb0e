package entity

import (
	"time"

	"github.com/google/uuid"
)

// TenderMetadata holds the descriptive fields of a procurement record. Any
// field may be empty; the backfiller fills gaps from the document body.
type TenderMetadata struct {
	TenderNo          string     `json:"tender_no,omitempty"`
	Title             string     `json:"title,omitempty"`
	Organization      string     `json:"organization,omitempty"`
	Department        string     `json:"department,omitempty"`
	City              string     `json:"city,omitempty"`
	Province          string     `json:"province,omitempty"`
	Category          string     `json:"category,omitempty"`
	ProcurementMethod string     `json:"procurement_method,omitempty"`
	Status            string     `json:"status,omitempty"`
	SourceSite        string     `json:"source_site,omitempty"`
	TenderURL         string     `json:"tender_url,omitempty"`
	PublishDate       *time.Time `json:"publish_date,omitempty"`
	ClosingDate       *time.Time `json:"closing_date,omitempty"`
	OpeningDate       *time.Time `json:"opening_date,omitempty"`
	RoadLengthKm      *float64   `json:"road_length_km,omitempty"`
	RoadWidthM        *float64   `json:"road_width_m,omitempty"`
	CostPKR           *float64   `json:"cost_pkr,omitempty"`
	Year              int        `json:"year,omitempty"`
}

// Tender represents a procurement record for data transfer between layers.
type Tender struct {
	ID uuid.UUID `json:"id"`
	TenderMetadata
	SourcePath string     `json:"source_path"`
	SourceHash string     `json:"source_hash"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ResolveYear picks the tender's pricing year: publish date, then closing,
// then opening, then the backfilled year, then fallback.
func (m TenderMetadata) ResolveYear(fallback int) int {
	for _, d := range []*time.Time{m.PublishDate, m.ClosingDate, m.OpeningDate} {
		if d != nil && !d.IsZero() {
			return d.Year()
		}
	}
	if m.Year > 0 {
		return m.Year
	}
	return fallback
}
