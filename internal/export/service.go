package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/road-estimator/internal/entity"
	"github.com/joseph-ayodele/road-estimator/internal/features"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

const (
	trainingSheet  = "Training"
	schemaSheet    = "Schema"
	pricesSheet    = "Prices"
	inflationSheet = "Inflation"
)

// Row is one training record with the tender fields an analyst needs to
// trace it back.
type Row struct {
	entity.TrainingRecord
	TenderNo string
	Year     int
}

// Skipped is a tender left out of the training set.
type Skipped struct {
	TenderID uuid.UUID
	Reason   string
}

// Service is a small façade over the store that assembles the training set
// and writes XLSX workbooks.
type Service struct {
	store       *repository.Store
	builder     *features.Builder
	defaultYear int
	logger      *slog.Logger
}

func NewService(store *repository.Store, builder *features.Builder, defaultYear int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, builder: builder, defaultYear: defaultYear, logger: logger}
}

// TrainingSet builds one record per tender that has a positive estimated
// cost, using the yearly prices in force for each tender's year.
func (s *Service) TrainingSet(ctx context.Context) ([]Row, []Skipped, error) {
	tenders, err := s.store.Tenders.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list tenders: %w", err)
	}

	pricesByYear := make(map[int][]*entity.YearlyPrice)
	var rows []Row
	var skipped []Skipped
	for _, t := range tenders {
		year := t.ResolveYear(s.defaultYear)
		prices, ok := pricesByYear[year]
		if !ok {
			prices, err = s.store.Prices.ForYear(ctx, year)
			if err != nil {
				return nil, nil, fmt.Errorf("prices for %d: %w", year, err)
			}
			pricesByYear[year] = prices
		}
		items, err := s.store.LineItems.ListByTender(ctx, t.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("line items for tender %s: %w", t.ID, err)
		}

		rec, err := s.builder.Record(t, prices, items)
		if errors.Is(err, entity.ErrNonPositiveLabel) {
			skipped = append(skipped, Skipped{TenderID: t.ID, Reason: "no positive estimated cost"})
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, Row{TrainingRecord: rec, TenderNo: t.TenderNo, Year: year})
	}
	s.logger.Info("training set built", "tenders", len(tenders), "rows", len(rows), "skipped", len(skipped))
	return rows, skipped, nil
}

// TrainingXLSX returns a workbook with the training table and a sheet
// recording the feature schema it was built for.
func (s *Service) TrainingXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()
	rows, _, err := s.TrainingSet(ctx)
	if err != nil {
		return nil, err
	}
	schema := s.builder.Schema()

	f := excelize.NewFile()
	defer f.Close()
	if err := useSheet(f, trainingSheet); err != nil {
		return nil, err
	}

	headers := []any{"tender_id", "tender_no", "year"}
	for _, n := range schema.Names {
		headers = append(headers, n)
	}
	headers = append(headers, features.LabelColumn)
	if err := writeRow(f, trainingSheet, 1, headers); err != nil {
		return nil, err
	}
	for i, r := range rows {
		vals := []any{r.TenderID.String(), r.TenderNo, r.Year}
		for _, v := range r.Features {
			vals = append(vals, v)
		}
		vals = append(vals, r.Label)
		if err := writeRow(f, trainingSheet, i+2, vals); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(trainingSheet, "A", "A", 38) // id
	_ = f.SetColWidth(trainingSheet, "B", "B", 22) // tender no

	if _, err := f.NewSheet(schemaSheet); err != nil {
		return nil, err
	}
	meta := [][]any{
		{"schema_version", schema.Version},
		{"fingerprint", schema.Fingerprint()},
		{"label", features.LabelColumn},
		{"rows", len(rows)},
	}
	for i, m := range meta {
		if err := writeRow(f, schemaSheet, i+1, m); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.training.ok",
		"rows", len(rows),
		"schema_version", schema.Version,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// PricesXLSX returns a workbook of yearly prices and inflation rates. A
// year of 0 exports every year.
func (s *Service) PricesXLSX(ctx context.Context, year int) ([]byte, error) {
	start := time.Now()
	prices, err := s.store.Prices.ListYearly(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query yearly prices: %w", err)
	}
	rates, err := s.store.Prices.ListInflation(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("query inflation: %w", err)
	}
	mats, err := s.store.Materials.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	names := make(map[uuid.UUID]string, len(mats))
	for _, m := range mats {
		names[m.ID] = m.Name
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := useSheet(f, pricesSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, pricesSheet, 1, []any{"Material", "Year", "Price (PKR)", "Unit", "Observations", "Effective Date"}); err != nil {
		return nil, err
	}
	for i, p := range prices {
		name := p.MaterialName
		if name == "" {
			name = names[p.MaterialID]
		}
		row := []any{name, p.Year, p.Price, p.Unit, p.Observations, p.EffectiveDate.Format("2006-01-02")}
		if err := writeRow(f, pricesSheet, i+2, row); err != nil {
			return nil, err
		}
	}
	_ = f.SetColWidth(pricesSheet, "A", "A", 34) // material
	_ = f.SetColWidth(pricesSheet, "C", "D", 14) // price, unit

	if _, err := f.NewSheet(inflationSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, inflationSheet, 1, []any{"Material", "Year", "Rate"}); err != nil {
		return nil, err
	}
	for i, r := range rates {
		if err := writeRow(f, inflationSheet, i+2, []any{names[r.MaterialID], r.Year, r.Rate}); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.prices.ok",
		"year", year,
		"prices", len(prices),
		"inflation", len(rates),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// useSheet renames the default sheet to name and makes it active.
func useSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(name)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, vals []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &vals)
}
