package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/estimate"
)

func estimateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate material quantities and cost for a road",
		Long: `Estimate per-material quantities and cost for a road of the given length
and width. Prices come from the stored yearly prices, falling back to the
catalogue baseline. --offline skips the database entirely.`,
		RunE: runEstimate,
	}
	f := cmd.Flags()
	f.Float64("length-km", 0, "road length in kilometres")
	f.Float64("width-m", 0, "carriageway width in metres")
	f.String("type", "", "project type (rural_road, urban_road, highway, expressway)")
	f.String("terrain", "", "terrain (plain, mountainous)")
	f.String("traffic", "", "traffic (low, medium, high)")
	f.Int("year", 0, "price year (default from config)")
	f.String("profile", "", "multiplier profile YAML (default: built in)")
	f.Bool("offline", false, "use catalogue baselines only")
	f.Bool("json", false, "print the estimate as JSON")
	_ = cmd.MarkFlagRequired("length-km")
	_ = cmd.MarkFlagRequired("width-m")
	return cmd
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	var req estimate.Request
	req.LengthKm, _ = f.GetFloat64("length-km")
	req.WidthM, _ = f.GetFloat64("width-m")
	req.ProjectType, _ = f.GetString("type")
	req.Terrain, _ = f.GetString("terrain")
	req.Traffic, _ = f.GetString("traffic")
	req.Year, _ = f.GetInt("year")
	if req.Year == 0 {
		req.Year = cfg.Pipeline.DefaultYear
	}
	profilePath, _ := f.GetString("profile")
	if profilePath == "" {
		profilePath = cfg.Model.ProfilesPath
	}
	offline, _ := f.GetBool("offline")
	asJSON, _ := f.GetBool("json")

	profile := estimate.DefaultProfile()
	if profilePath != "" {
		p, err := estimate.LoadProfile(profilePath)
		if err != nil {
			return err
		}
		profile = p
	}

	ctx := cmd.Context()
	var prices estimate.PriceSource
	if !offline {
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		prices = a.Store.Prices
	}

	est, err := estimate.NewEstimator(profile, prices, logger).Estimate(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATERIAL\tQTY\tUNIT\tUNIT PRICE\tCOST\tSOURCE")
	for _, l := range est.Lines {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%.2f\t%.0f\t%s %d\n",
			l.Material, l.Quantity, l.Unit, l.UnitPrice, l.Cost, l.PriceSource, l.PriceYear)
	}
	fmt.Fprintf(tw, "TOTAL\t\t\t\t%.0f\t\n", est.Total)
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(est.Unpriced) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "no price for: %v\n", est.Unpriced)
	}
	return nil
}
