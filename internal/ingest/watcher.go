package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PollConfig configures an inbox poller.
type PollConfig struct {
	Root       string
	Interval   time.Duration
	SkipHidden bool
}

// Poll rescans cfg.Root every interval until ctx ends and passes each newly
// stored document to found. Files already ingested are deduplicated by hash,
// so a rescan only reports new PDFs.
func Poll(ctx context.Context, ing Ingestor, cfg PollConfig, logger *slog.Logger, found func(documentID uuid.UUID)) error {
	if cfg.Root == "" {
		return errors.New("no inbox root provided")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	scan := func() {
		results, stats, err := ing.IngestDirectory(ctx, cfg.Root, cfg.SkipHidden)
		if err != nil && ctx.Err() == nil {
			logger.Error("inbox scan failed", "root", cfg.Root, "error", err)
		}
		for _, r := range results {
			if r.Err != "" || r.Deduplicated || r.DocumentID == uuid.Nil {
				continue
			}
			found(r.DocumentID)
		}
		if stats.Succeeded > stats.Deduplicated {
			logger.Info("inbox scan found new documents", "root", cfg.Root, "new", stats.Succeeded-stats.Deduplicated)
		}
	}

	scan()
	t := time.NewTicker(cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			scan()
		}
	}
}
