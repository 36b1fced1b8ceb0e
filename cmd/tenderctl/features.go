package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/export"
	"github.com/joseph-ayodele/road-estimator/internal/features"
)

func featuresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "features",
		Short: "Build the training set as JSON lines",
		Long: `Build one feature vector per tender with a known estimated cost and write
the records as JSON lines. The first line names the feature schema.`,
		RunE: runFeatures,
	}
	cmd.Flags().StringP("out", "o", "", "output file (default: stdout)")
	return cmd
}

func runFeatures(cmd *cobra.Command, _ []string) error {
	outPath, _ := cmd.Flags().GetString("out")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	builder, err := features.NewBuilder(features.V1(), nil, logger)
	if err != nil {
		return err
	}
	rows, skipped, err := export.NewService(a.Store, builder, cfg.Pipeline.DefaultYear, logger).TrainingSet(ctx)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	schema := builder.Schema()
	header := map[string]any{
		"schema_version": schema.Version,
		"feature_names":  schema.Names,
		"fingerprint":    schema.Fingerprint(),
		"label":          features.LabelColumn,
	}
	if err := enc.Encode(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := enc.Encode(r.TrainingRecord); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "records=%d skipped=%d\n", len(rows), len(skipped))
	return nil
}

func predictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict <tender-id>",
		Short: "Predict a tender's cost with a trained model artifact",
		Args:  cobra.ExactArgs(1),
		RunE:  runPredict,
	}
	cmd.Flags().String("artifact", "", "model artifact (default from config)")
	return cmd
}

func runPredict(cmd *cobra.Command, args []string) error {
	tenderID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid tender id: %w", err)
	}
	path, _ := cmd.Flags().GetString("artifact")
	if path == "" {
		path = cfg.Model.ArtifactPath
	}
	artifact, err := features.LoadArtifact(path)
	if err != nil {
		return err
	}
	predictor, err := features.NewPredictor(artifact)
	if err != nil {
		return err
	}
	builder, err := features.NewBuilder(artifact.Schema(), nil, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tender, err := a.Store.Tenders.Get(ctx, tenderID)
	if err != nil {
		return err
	}
	prices, err := a.Store.Prices.ForYear(ctx, tender.ResolveYear(cfg.Pipeline.DefaultYear))
	if err != nil {
		return err
	}
	items, err := a.Store.LineItems.ListByTender(ctx, tenderID)
	if err != nil {
		return err
	}
	v, err := builder.Build(tender, prices, items)
	if err != nil {
		return err
	}
	cost, err := predictor.Predict(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tender=%s predicted_cost_pkr=%.0f\n", tenderID, cost)
	if len(v.Missing) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: features without source data: %v\n", v.Missing)
	}
	return nil
}
