package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

func dbhealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dbhealth",
		Short: "Ping the database and print row counts",
		RunE:  runDBHealth,
	}
}

func runDBHealth(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if err := repository.HealthCheck(ctx, a.Store.Driver(), time.Second, logger); err != nil {
		fmt.Fprintf(out, "DB health: FAIL (%v)\n", err)
		return err
	}
	fmt.Fprintln(out, "DB health: OK")

	tenders, err := a.Store.Tenders.List(ctx)
	if err != nil {
		return err
	}
	mats, err := a.Store.Materials.List(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "tenders: %d\nmaterials: %d\n", len(tenders), len(mats))

	for _, s := range []constants.DocumentStatus{
		constants.DocumentStatusQueued,
		constants.DocumentStatusParsed,
		constants.DocumentStatusNoBOQ,
		constants.DocumentStatusFailed,
	} {
		docs, err := a.Store.Documents.ListByStatus(ctx, s)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "documents %s: %d\n", s, len(docs))
	}
	return nil
}
