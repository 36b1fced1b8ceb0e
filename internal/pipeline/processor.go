// Package pipeline runs one document through text extraction, metadata
// backfill, BOQ extraction and material classification.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

// Outcome is the result of processing one document.
type Outcome struct {
	DocumentID uuid.UUID
	Method     string
	Pages      int
	Scanned    bool
	Confidence float64
	BOQOutcome
	Duration time.Duration
}

// Processor coordinates the text stage then the BOQ stage.
type Processor struct {
	Logger *slog.Logger
	Text   *TextStage
	BOQ    *BOQStage
}

func NewProcessor(logger *slog.Logger, text *TextStage, boq *BOQStage) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Text: text, BOQ: boq}
}

// NewStoreProcessor wires both stages over one store.
func NewStoreProcessor(store *repository.Store, extractor TextExtractor, defaultYear int, logger *slog.Logger) *Processor {
	return NewProcessor(logger,
		NewTextStage(store.Documents, extractor, logger),
		NewBOQStage(store, nil, nil, defaultYear, logger),
	)
}

// ProcessDocument runs both stages for docID. A BOQ stage failure marks the
// document FAILED; its partial writes are rolled back. A panic in either
// stage also marks it FAILED so the next run does not pick it up again.
func (p *Processor) ProcessDocument(ctx context.Context, docID uuid.UUID) (out Outcome, err error) {
	start := time.Now()
	out = Outcome{DocumentID: docID}
	logger := p.Logger
	if traceID := common.TraceIDFromContext(ctx); traceID != "" {
		logger = logger.With("trace_id", traceID)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing document: %v", r)
			logger.Error("processor.panic", "document_id", docID, "panic", r)
			p.Text.fail(ctx, docID, err)
			out.Status = constants.DocumentStatusFailed
		}
	}()

	doc, res, err := p.Text.Run(ctx, docID)
	if err != nil {
		logger.Error("processor.extract.failed", "document_id", docID, "error", err)
		out.Status = constants.DocumentStatusFailed
		if doc != nil {
			out.TenderID = doc.TenderID
		}
		return out, err
	}
	out.Method, out.Pages, out.TenderID = doc.Method, doc.Pages, doc.TenderID
	out.Scanned, out.Confidence = doc.Scanned, doc.Confidence
	logger.Info("processor.extract.ok",
		"document_id", docID,
		"method", res.Method,
		"engine", res.Engine,
		"scanned", res.Scanned,
		"confidence", res.Confidence,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds())

	b, err := p.BOQ.Run(ctx, docID)
	if err != nil {
		logger.Error("processor.boq.failed", "document_id", docID, "error", err)
		p.Text.fail(ctx, docID, err)
		out.Status = constants.DocumentStatusFailed
		return out, err
	}
	out.BOQOutcome = b
	out.Duration = time.Since(start)
	logger.Info("processor.boq.ok",
		"document_id", docID,
		"tender_id", b.TenderID,
		"status", b.Status,
		"lines", b.Lines,
		"observations", b.Observations,
		"filled", b.Filled,
		"year", b.Year,
		"duration_ms", out.Duration.Milliseconds())
	return out, nil
}

// Fatal reports whether err means the store itself is gone, which should
// end a batch rather than skip one document.
func Fatal(err error) bool {
	return common.IsFatalToBatch(err)
}

// Summary tallies outcomes across a batch. Safe for concurrent use.
type Summary struct {
	mu           sync.Mutex
	Processed    int
	Parsed       int
	NoBOQ        int
	Failed       int
	Scanned      int
	Lines        int
	Observations int
	Failures     map[uuid.UUID]string
}

func (s *Summary) Add(out Outcome, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Processed++
	if err != nil {
		s.Failed++
		if s.Failures == nil {
			s.Failures = make(map[uuid.UUID]string)
		}
		s.Failures[out.DocumentID] = err.Error()
		return
	}
	if out.Scanned {
		s.Scanned++
	}
	switch out.Status {
	case constants.DocumentStatusParsed:
		s.Parsed++
	case constants.DocumentStatusNoBOQ:
		s.NoBOQ++
	}
	s.Lines += out.Lines
	s.Observations += out.Observations
}

func (s *Summary) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("documents=%d parsed=%d no_boq=%d failed=%d scanned=%d line_items=%d observations=%d",
		s.Processed, s.Parsed, s.NoBOQ, s.Failed, s.Scanned, s.Lines, s.Observations)
}

// Log writes the summary as one structured record.
func (s *Summary) Log(logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger.Info("batch summary",
		"documents", s.Processed,
		"parsed", s.Parsed,
		"no_boq", s.NoBOQ,
		"failed", s.Failed,
		"scanned", s.Scanned,
		"line_items", s.Lines,
		"observations", s.Observations)
}
