package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Register tender PDFs from a directory or URLs",
		Long: `Walk a directory for tender PDFs (with optional <name>.json metadata
sidecars) and register each as a tender with a queued document. PDFs whose
bytes were seen before are skipped. --url downloads documents first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIngest,
	}
	cmd.Flags().StringSlice("url", nil, "tender PDF URL to download and ingest (repeatable)")
	cmd.Flags().Bool("skip-hidden", true, "skip hidden files and directories")
	cmd.Flags().Bool("no-progress", false, "disable the progress bar")
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	urls, _ := cmd.Flags().GetStringSlice("url")
	skipHidden, _ := cmd.Flags().GetBool("skip-hidden")
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if len(args) == 0 && len(urls) == 0 {
		return fmt.Errorf("a directory or at least one --url is required")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ing := ingest.NewFSIngestor(a.Store, logger)
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		root := args[0]
		var bar *progressbar.ProgressBar
		if !noProgress {
			total, err := ingest.CountPDFs(root, skipHidden)
			if err != nil {
				return fmt.Errorf("scan %s: %w", root, err)
			}
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("ingesting"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			ing.OnResult = func(ingest.IngestionResult) { _ = bar.Add(1) }
		}
		results, stats, err := ing.IngestDirectory(ctx, root, skipHidden)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.Err != "" {
				fmt.Fprintf(out, "FAILED  %s: %s\n", r.SourcePath, r.Err)
			}
		}
		fmt.Fprintf(out, "scanned=%d matched=%d ingested=%d duplicates=%d failed=%d\n",
			stats.Scanned, stats.Matched, stats.Succeeded-stats.Deduplicated, stats.Deduplicated, stats.Failed)
	}

	if len(urls) > 0 {
		fetcher := ingest.NewFetcher(cfg.Fetch, logger)
		failed := 0
		for _, u := range urls {
			r, err := ing.IngestURL(ctx, fetcher, u)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAILED  %s: %v\n", u, err)
				continue
			}
			state := "new"
			if r.Deduplicated {
				state = "duplicate"
			}
			fmt.Fprintf(out, "%-9s %s document=%s\n", state, u, r.DocumentID)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d downloads failed", failed, len(urls))
		}
	}
	return nil
}
