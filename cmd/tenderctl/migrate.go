package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/internal/materials"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Long: `Apply the schema to the configured database. Safe to run repeatedly.
--seed also registers every catalogue material.`,
		RunE: runMigrate,
	}
	cmd.Flags().Bool("seed", false, "seed the canonical material catalogue")
	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetBool("seed")

	ctx := cmd.Context()
	// connecting applies the schema
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.Store.Dialect())

	if seed {
		n, err := materials.SeedCatalogue(ctx, a.Store.Materials)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "catalogue materials created=%d\n", n)
	}
	return nil
}
