package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/ocr"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

// TextExtractor is satisfied by *ocr.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.ExtractionResult, error)
}

type TextStage struct {
	Docs      repository.DocumentRepository
	Extractor TextExtractor
	Logger    *slog.Logger
}

func NewTextStage(docs repository.DocumentRepository, extractor TextExtractor, logger *slog.Logger) *TextStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextStage{Docs: docs, Extractor: extractor, Logger: logger}
}

// Run marks the document RUNNING, extracts its text and stores it (TEXT_OK).
// Extraction errors mark the document FAILED. Empty text is stored as is;
// the BOQ stage turns it into NO_BOQ.
func (s *TextStage) Run(ctx context.Context, docID uuid.UUID) (*entity.ExtractedDocument, ocr.ExtractionResult, error) {
	doc, err := s.Docs.Get(ctx, docID)
	if err != nil {
		return nil, ocr.ExtractionResult{}, fmt.Errorf("get document: %w", err)
	}
	if err := s.Docs.UpdateStatus(ctx, doc.ID, constants.DocumentStatusRunning, ""); err != nil {
		return doc, ocr.ExtractionResult{}, err
	}

	res, err := s.Extractor.Extract(ctx, doc.SourcePath)
	if err != nil {
		s.fail(ctx, doc.ID, err)
		return doc, res, err
	}
	if res.Empty() {
		s.Logger.Warn("text extraction produced no text",
			"document_id", doc.ID,
			"path", doc.SourcePath,
			"method", res.Method,
			"warnings", res.Warnings)
	}
	method := res.Method
	if method == "" {
		method = constants.MethodNone
	}
	text := entity.DocumentText{
		Text:       res.Text,
		Method:     method,
		Pages:      res.Pages,
		Scanned:    res.Scanned,
		Confidence: float64(res.Confidence),
	}
	if err := s.Docs.SaveText(ctx, doc.ID, text); err != nil {
		return doc, res, err
	}
	doc.Text, doc.Method, doc.Pages, doc.Status = res.Text, method, res.Pages, constants.DocumentStatusTextOK
	doc.Scanned, doc.Confidence = res.Scanned, text.Confidence
	return doc, res, nil
}

// fail records the failure even when ctx is already done.
func (s *TextStage) fail(ctx context.Context, docID uuid.UUID, cause error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Docs.UpdateStatus(fctx, docID, constants.DocumentStatusFailed, cause.Error()); err != nil {
		s.Logger.Error("mark document failed", "document_id", docID, "error", err)
	}
}
