package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/export"
	"github.com/joseph-ayodele/road-estimator/internal/features"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the training table and yearly prices as XLSX",
		RunE:  runExport,
	}
	cmd.Flags().String("training", "", "training table workbook path")
	cmd.Flags().String("prices", "", "yearly prices workbook path")
	cmd.Flags().Int("year", 0, "limit the prices workbook to one year")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	trainingPath, _ := cmd.Flags().GetString("training")
	pricesPath, _ := cmd.Flags().GetString("prices")
	year, _ := cmd.Flags().GetInt("year")
	if trainingPath == "" && pricesPath == "" {
		return fmt.Errorf("at least one of --training or --prices is required")
	}

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
	svc := export.NewService(a.Store, builder, cfg.Pipeline.DefaultYear, logger)

	if trainingPath != "" {
		data, err := svc.TrainingXLSX(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(trainingPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", trainingPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", trainingPath)
	}
	if pricesPath != "" {
		data, err := svc.PricesXLSX(ctx, year)
		if err != nil {
			return err
		}
		if err := os.WriteFile(pricesPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", pricesPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", pricesPath)
	}
	return nil
}
