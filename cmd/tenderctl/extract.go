package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/async"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/pipeline"
)

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract text and BOQ lines from queued documents",
		Long: `Run every queued document through text extraction, metadata backfill,
BOQ extraction and material classification on a bounded worker pool. One
document failing never stops the batch; losing the database does.`,
		RunE: runExtract,
	}
	cmd.Flags().StringSlice("document", nil, "process only these document ids")
	cmd.Flags().Bool("retry-failed", false, "also reprocess FAILED documents")
	cmd.Flags().Bool("all", false, "reprocess every document, including parsed ones")
	cmd.Flags().Int("workers", 0, "worker count (default from config)")
	return cmd
}

func runExtract(cmd *cobra.Command, _ []string) error {
	ids, _ := cmd.Flags().GetStringSlice("document")
	retryFailed, _ := cmd.Flags().GetBool("retry-failed")
	all, _ := cmd.Flags().GetBool("all")
	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = cfg.Pipeline.Workers
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	docIDs, err := selectDocuments(ctx, a.Store.Documents.ListByStatus, ids, retryFailed, all)
	if err != nil {
		return err
	}
	if len(docIDs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to extract")
		return nil
	}

	base, abort := context.WithCancelCause(ctx)
	defer abort(nil)

	var summary pipeline.Summary
	q := async.NewProcessorQueue(a.Processor, logger,
		async.WithWorkers(workers),
		async.WithQueueSize(cfg.Pipeline.QueueSize),
		async.WithProcessTimeout(cfg.Pipeline.JobTimeout),
		async.WithBaseContext(base),
		async.WithResultHandler(func(_ async.Job, out pipeline.Outcome, err error) {
			summary.Add(out, err)
			if pipeline.Fatal(err) {
				logger.Error("database lost, aborting batch", "document_id", out.DocumentID, "error", err)
				abort(err)
			}
		}),
	)
	for _, id := range docIDs {
		if err := q.Enqueue(base, async.Job{DocumentID: id}); err != nil {
			break
		}
	}
	q.Shutdown(context.Background())

	summary.Log(logger)
	fmt.Fprintln(cmd.OutOrStdout(), summary.String())
	if cause := context.Cause(base); cause != nil && pipeline.Fatal(cause) {
		return fmt.Errorf("batch aborted: %w", cause)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

type lister func(ctx context.Context, statuses ...constants.DocumentStatus) ([]*entity.ExtractedDocument, error)

func selectDocuments(ctx context.Context, list lister, explicit []string, retryFailed, all bool) ([]uuid.UUID, error) {
	if len(explicit) > 0 {
		out := make([]uuid.UUID, 0, len(explicit))
		for _, s := range explicit {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("invalid document id %q: %w", s, err)
			}
			out = append(out, id)
		}
		return out, nil
	}

	// RUNNING and TEXT_OK are documents an interrupted run left behind
	statuses := []constants.DocumentStatus{
		constants.DocumentStatusQueued,
		constants.DocumentStatusRunning,
		constants.DocumentStatusTextOK,
	}
	if retryFailed || all {
		statuses = append(statuses, constants.DocumentStatusFailed)
	}
	if all {
		statuses = append(statuses, constants.DocumentStatusParsed, constants.DocumentStatusNoBOQ)
	}
	docs, err := list(ctx, statuses...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	out := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out, nil
}
