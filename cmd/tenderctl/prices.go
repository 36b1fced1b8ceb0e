package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/pricing"
)

func aggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate raw price observations into yearly prices",
		Long: `Group the raw observations of each year by material, drop prices more
than 1.5 standard deviations from the mean, and upsert the mean of the rest
as that material's yearly price.`,
		RunE: runAggregate,
	}
	cmd.Flags().Int("year", 0, "aggregate one year (default: every observed year)")
	cmd.Flags().Int("workers", 4, "material groups aggregated concurrently")
	return cmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	year, _ := cmd.Flags().GetInt("year")
	workers, _ := cmd.Flags().GetInt("workers")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	agg := pricing.NewAggregator(a.Store.Observations, a.Store.Prices, logger, pricing.WithWorkers(workers))
	var reports []*pricing.Report
	if year > 0 {
		r, err := agg.RunYear(ctx, year)
		if err != nil {
			return err
		}
		reports = append(reports, r)
	} else {
		reports, err = agg.RunAll(ctx)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, r := range reports {
		fmt.Fprintf(out, "year=%d observations=%d materials=%d upserted=%d dropped=%d failed=%d\n",
			r.Year, r.Observations, r.Groups, r.Upserted, r.Dropped, len(r.Failed))
		for _, f := range r.Failed {
			fmt.Fprintf(out, "  material %s: %v\n", f.MaterialID, f.Err)
		}
		failed += len(r.Failed)
	}
	if failed > 0 {
		return fmt.Errorf("%d material groups failed to aggregate", failed)
	}
	return nil
}

func inflationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inflation",
		Short: "Compute year-on-year material inflation from yearly prices",
		RunE:  runInflation,
	}
	cmd.Flags().IntSlice("years", nil, "years to compute (default: every priced year after the first)")
	return cmd
}

func runInflation(cmd *cobra.Command, _ []string) error {
	years, _ := cmd.Flags().GetIntSlice("years")

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(years) == 0 {
		prices, err := a.Store.Prices.ListYearly(ctx, 0)
		if err != nil {
			return err
		}
		seen := make(map[int]bool)
		for _, p := range prices {
			seen[p.Year] = true
		}
		for y := range seen {
			if seen[y-1] {
				years = append(years, y)
			}
		}
		sort.Ints(years)
	}

	agg := pricing.NewAggregator(a.Store.Observations, a.Store.Prices, logger)
	out := cmd.OutOrStdout()
	for _, y := range years {
		idx, err := agg.ComputeInflation(ctx, y)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "year=%d materials=%d\n", y, len(idx))
	}
	return nil
}
