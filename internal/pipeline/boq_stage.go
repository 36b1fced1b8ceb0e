package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/boq"
	"github.com/joseph-ayodele/road-estimator/internal/materials"
	"github.com/joseph-ayodele/road-estimator/internal/metadata"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

// BOQOutcome summarizes what the BOQ stage stored for one document.
type BOQOutcome struct {
	TenderID     uuid.UUID
	Status       constants.DocumentStatus
	Filled       []string
	Year         int
	Lines        int
	PerStage     map[string]int
	Rejected     int
	Duplicates   int
	Observations int
}

type BOQStage struct {
	Store       *repository.Store
	Extractor   *boq.Extractor
	Resolver    *materials.Resolver
	DefaultYear int
	Logger      *slog.Logger
}

func NewBOQStage(store *repository.Store, extractor *boq.Extractor, resolver *materials.Resolver, defaultYear int, logger *slog.Logger) *BOQStage {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = boq.NewExtractor(logger)
	}
	if resolver == nil {
		resolver = materials.NewResolver(nil, logger)
	}
	return &BOQStage{Store: store, Extractor: extractor, Resolver: resolver, DefaultYear: defaultYear, Logger: logger}
}

// Run backfills the tender from the document text, stores its line items and
// their price observations, and settles the document as PARSED or NO_BOQ.
// Everything is written in one transaction; reprocessing a document replaces
// what an earlier run stored.
func (s *BOQStage) Run(ctx context.Context, docID uuid.UUID) (BOQOutcome, error) {
	var out BOQOutcome
	err := s.Store.InTx(ctx, func(tx *repository.Store) error {
		out = BOQOutcome{}
		doc, err := tx.Documents.Get(ctx, docID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		tender, err := tx.Tenders.Get(ctx, doc.TenderID)
		if err != nil {
			return fmt.Errorf("get tender: %w", err)
		}
		out.TenderID = tender.ID

		meta, filled := metadata.Backfill(doc.Text, tender.TenderMetadata)
		if len(filled) > 0 {
			if err := tx.Tenders.UpdateMetadata(ctx, tender.ID, meta); err != nil {
				return err
			}
			out.Filled = filled
		}
		out.Year = meta.ResolveYear(s.DefaultYear)

		res := s.Extractor.Extract(doc.Text)
		out.Lines, out.PerStage, out.Rejected, out.Duplicates = len(res.Items), res.PerStage, res.Rejected, res.Duplicates
		if err := tx.LineItems.Replace(ctx, tender.ID, doc.ID, res.Items); err != nil {
			return err
		}
		if _, err := tx.Observations.DeleteByTender(ctx, tender.ID); err != nil {
			return err
		}
		for _, item := range res.Items {
			obs, err := s.Resolver.Observe(ctx, tx.Materials, tender.ID, out.Year, item)
			if err != nil {
				return err
			}
			if obs == nil {
				continue
			}
			if err := tx.Observations.Insert(ctx, obs); err != nil {
				return err
			}
			out.Observations++
		}

		out.Status = constants.DocumentStatusParsed
		if len(res.Items) == 0 {
			out.Status = constants.DocumentStatusNoBOQ
			s.Logger.Info("no boq lines found",
				"document_id", doc.ID,
				"tender_id", tender.ID,
				"path", doc.SourcePath,
				"text_chars", len(doc.Text))
		}
		return tx.Documents.UpdateStatus(ctx, doc.ID, out.Status, "")
	})
	return out, err
}
