package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
)

// ExtractedDocument is the plain-text rendering of one tender's PDF.
type ExtractedDocument struct {
	ID         uuid.UUID                `json:"id"`
	TenderID   uuid.UUID                `json:"tender_id"`
	SourcePath string                   `json:"source_path"`
	Text       string                   `json:"text"`
	Method     string                   `json:"method"`
	Pages      int                      `json:"pages"`
	Scanned    bool                     `json:"scanned"`
	Confidence float64                  `json:"confidence"`
	Status     constants.DocumentStatus `json:"status"`
	Error      string                   `json:"error,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

// DocumentText is what the text stage stores for a document.
type DocumentText struct {
	Text       string
	Method     string
	Pages      int
	Scanned    bool
	Confidence float64
}
