package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/metadata"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

// FSIngestor registers PDFs from the local filesystem as tenders with one
// QUEUED document each.
type FSIngestor struct {
	Store  *repository.Store
	Logger *slog.Logger
	// OnResult, when set, is called after every file IngestDirectory visits.
	OnResult func(IngestionResult)
}

func NewFSIngestor(store *repository.Store, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Store:  store,
		Logger: logger,
	}
}

// IngestPath hashes path, loads its sidecar if any, and stores the tender.
// A PDF whose bytes were seen before is reported as deduplicated and keeps
// its existing tender and document.
func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	return i.ingest(ctx, path, entity.TenderMetadata{})
}

func (i *FSIngestor) ingest(ctx context.Context, path string, extra entity.TenderMetadata) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("%w: unsupported or missing extension %q", common.ErrInvalidInput, ext)
	}

	sum, err := hashFile(abs)
	if err != nil {
		i.Logger.Error("hash failed", "path", abs, "error", err)
		return out, err
	}
	out.HashHex = sum

	meta, found, err := metadata.LoadSidecar(abs)
	if err != nil {
		return out, fmt.Errorf("sidecar for %s: %w", abs, err)
	}
	out.Sidecar = found
	if meta.TenderURL == "" {
		meta.TenderURL = extra.TenderURL
	}
	if meta.SourceSite == "" {
		meta.SourceSite = extra.SourceSite
	}

	err = i.Store.InTx(ctx, func(tx *repository.Store) error {
		tender := &entity.Tender{TenderMetadata: meta, SourcePath: abs, SourceHash: sum}
		created, err := tx.Tenders.Ensure(ctx, tender)
		if err != nil {
			return err
		}
		out.TenderID = tender.ID
		if !created && tender.DocumentID != nil {
			out.Deduplicated = true
			out.DocumentID = *tender.DocumentID
			return nil
		}
		doc := &entity.ExtractedDocument{TenderID: tender.ID, SourcePath: abs}
		if err := tx.Documents.Insert(ctx, doc); err != nil {
			return err
		}
		out.DocumentID = doc.ID
		return tx.Tenders.AttachDocument(ctx, tender.ID, doc.ID)
	})
	if err != nil {
		return out, err
	}

	i.Logger.Debug("ingested tender",
		"path", abs,
		"tender_id", out.TenderID,
		"document_id", out.DocumentID,
		"deduplicated", out.Deduplicated,
		"sidecar", out.Sidecar)
	return out, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
