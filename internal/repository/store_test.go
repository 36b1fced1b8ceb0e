package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/entity"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	drv, err := OpenSQLite(context.Background(), ":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), drv))
	require.NoError(t, Migrate(context.Background(), drv), "migrate must be re-runnable")
	t.Cleanup(func() { _ = drv.Close() })
	return NewStore(drv, logger)
}

func seedTender(t *testing.T, s *Store, hash string) *entity.Tender {
	t.Helper()
	length := 12.0
	publish := time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)
	tender := &entity.Tender{
		TenderMetadata: entity.TenderMetadata{
			TenderNo:     "NHA/2024/0091",
			City:         "Multan",
			RoadLengthKm: &length,
			PublishDate:  &publish,
		},
		SourcePath: "/inbox/" + hash + ".pdf",
		SourceHash: hash,
	}
	created, err := s.Tenders.Ensure(context.Background(), tender)
	require.NoError(t, err)
	require.True(t, created)
	return tender
}

func TestTenderEnsureDeduplicatesByHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := seedTender(t, s, "abc123")

	again := &entity.Tender{SourcePath: "/elsewhere/copy.pdf", SourceHash: "abc123"}
	created, err := s.Tenders.Ensure(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "NHA/2024/0091", again.TenderNo)
	require.NotNil(t, again.RoadLengthKm)
	assert.InDelta(t, 12.0, *again.RoadLengthKm, 1e-9)
	require.NotNil(t, again.PublishDate)
	assert.Equal(t, 2024, again.PublishDate.Year())

	all, err := s.Tenders.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestTenderUpdateMetadataAndAttach(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tender := seedTender(t, s, "h1")

	meta := tender.TenderMetadata
	meta.Title = "Construction of 12km carriageway near Multan"
	meta.Province = "Punjab"
	require.NoError(t, s.Tenders.UpdateMetadata(ctx, tender.ID, meta))

	doc := &entity.ExtractedDocument{TenderID: tender.ID, SourcePath: tender.SourcePath}
	require.NoError(t, s.Documents.Insert(ctx, doc))
	require.NoError(t, s.Tenders.AttachDocument(ctx, tender.ID, doc.ID))

	got, err := s.Tenders.Get(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, "Punjab", got.Province)
	assert.Contains(t, got.Title, "carriageway")
	require.NotNil(t, got.DocumentID)
	assert.Equal(t, doc.ID, *got.DocumentID)

	err = s.Tenders.AttachDocument(ctx, uuid.New(), doc.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tender := seedTender(t, s, "h2")

	doc := &entity.ExtractedDocument{TenderID: tender.ID, SourcePath: tender.SourcePath}
	require.NoError(t, s.Documents.Insert(ctx, doc))
	assert.Equal(t, constants.DocumentStatusQueued, doc.Status)

	require.NoError(t, s.Documents.UpdateStatus(ctx, doc.ID, constants.DocumentStatusRunning, ""))
	require.NoError(t, s.Documents.SaveText(ctx, doc.ID, entity.DocumentText{
		Text:       "BILL OF QUANTITIES",
		Method:     constants.MethodOCR,
		Pages:      3,
		Scanned:    true,
		Confidence: 0.75,
	}))
	got, err := s.Documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStatusTextOK, got.Status)
	assert.Equal(t, 3, got.Pages)
	assert.True(t, got.Scanned)
	assert.InDelta(t, 0.75, got.Confidence, 1e-9)

	require.NoError(t, s.Documents.UpdateStatus(ctx, doc.ID, constants.DocumentStatusNoBOQ, ""))
	pending, err := s.Documents.ListByStatus(ctx, constants.DocumentStatusQueued, constants.DocumentStatusRunning)
	require.NoError(t, err)
	assert.Empty(t, pending)
	done, err := s.Documents.ListByStatus(ctx, constants.DocumentStatusNoBOQ)
	require.NoError(t, err)
	assert.Len(t, done, 1)

	assert.ErrorIs(t, s.Documents.UpdateStatus(ctx, uuid.New(), constants.DocumentStatusFailed, "x"), common.ErrNotFound)
}

func TestLineItemsReplace(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tender := seedTender(t, s, "h3")
	doc := &entity.ExtractedDocument{TenderID: tender.ID, SourcePath: tender.SourcePath}
	require.NoError(t, s.Documents.Insert(ctx, doc))

	rate, total := 900.0, 90000.0
	items := []entity.BOQLineItem{
		{Sequence: 1, Description: "Cement OPC 50kg bags", Unit: "bag", Quantity: 100, UnitPrice: &rate, TotalPrice: &total, Stage: "structured"},
		{Sequence: 2, Description: "Earthwork embankment", Unit: "m3", Quantity: 500, UnitPrice: &rate, Stage: "keyword"},
	}
	require.NoError(t, s.LineItems.Replace(ctx, tender.ID, doc.ID, items))
	require.NoError(t, s.LineItems.Replace(ctx, tender.ID, doc.ID, items[:1]))

	got, err := s.LineItems.ListByTender(ctx, tender.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Cement OPC 50kg bags", got[0].Description)
	assert.Equal(t, doc.ID, got[0].DocumentID)
	require.NotNil(t, got[0].TotalPrice)
	assert.Equal(t, 90000.0, *got[0].TotalPrice)
}

func TestMaterialGetOrCreateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.Materials.GetOrCreate(ctx, "Steel Bar 10mm", "kg")
	require.NoError(t, err)
	b, err := s.Materials.GetOrCreate(ctx, "  steel bar   10MM ", "MT")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "kg", b.Unit, "existing unit is kept")

	var g errgroup.Group
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		g.Go(func() error {
			m, err := s.Materials.GetOrCreate(ctx, "Bitumen 60/70", "MT")
			if err != nil {
				return err
			}
			ids[i] = m.ID
			return nil
		})
	}
	require.NoError(t, g.Wait())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	all, err := s.Materials.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Materials.UpdateUnit(ctx, a.ID, "MT"))
	got, err := s.Materials.FindByName(ctx, "STEEL BAR 10MM")
	require.NoError(t, err)
	assert.Equal(t, "MT", got.Unit)
}

func TestObservationsAndYearlyPrices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tender := seedTender(t, s, "h4")
	steel, err := s.Materials.GetOrCreate(ctx, "Steel Bar 10mm", "kg")
	require.NoError(t, err)

	for _, p := range []float64{240, 245} {
		obs := &entity.RawPriceObservation{MaterialID: steel.ID, TenderID: &tender.ID, Year: 2024, Price: p, Unit: "kg", Source: "boq"}
		require.NoError(t, s.Observations.Insert(ctx, obs))
		assert.Positive(t, obs.ID)
	}
	require.NoError(t, s.Observations.Insert(ctx, &entity.RawPriceObservation{MaterialID: steel.ID, Year: 2023, Price: 220, Source: "baseline"}))
	err = s.Observations.Insert(ctx, &entity.RawPriceObservation{MaterialID: steel.ID, Year: 2024})
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	obs, err := s.Observations.ListByYear(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, obs, 2)
	years, err := s.Observations.Years(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, years)

	require.NoError(t, s.Prices.UpsertYearly(ctx, &entity.YearlyPrice{MaterialID: steel.ID, Year: 2023, Price: 220, Unit: "kg", Observations: 1}))
	require.NoError(t, s.Prices.UpsertYearly(ctx, &entity.YearlyPrice{MaterialID: steel.ID, Year: 2024, Price: 200, Unit: "kg", Observations: 1}))
	require.NoError(t, s.Prices.UpsertYearly(ctx, &entity.YearlyPrice{MaterialID: steel.ID, Year: 2024, Price: 242.5, Unit: "kg", Observations: 2}))

	all, err := s.Prices.ListYearly(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p2024, err := s.Prices.Get(ctx, steel.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, 242.5, p2024.Price)
	assert.Equal(t, "Steel Bar 10mm", p2024.MaterialName)
	assert.Equal(t, time.January, p2024.EffectiveDate.Month())

	latest, err := s.Prices.ForYear(ctx, 2030)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, 2024, latest[0].Year)
	older, err := s.Prices.ForYear(ctx, 2023)
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, 220.0, older[0].Price)
	none, err := s.Prices.ForYear(ctx, 2000)
	require.NoError(t, err)
	assert.Empty(t, none)

	deleted, err := s.Observations.DeleteByTender(ctx, tender.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	require.NoError(t, s.Prices.UpsertInflation(ctx, entity.InflationIndex{MaterialID: steel.ID, Year: 2024, Rate: 0.1}))
	require.NoError(t, s.Prices.UpsertInflation(ctx, entity.InflationIndex{MaterialID: steel.ID, Year: 2024, Rate: 0.102}))
	infl, err := s.Prices.ListInflation(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, infl, 1)
	assert.InDelta(t, 0.102, infl[0].Rate, 1e-12)
}

func TestInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.Materials.GetOrCreate(ctx, "Ravi Sand", "cft"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Materials.FindByName(ctx, "Ravi Sand")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.InTx(ctx, func(tx *Store) error {
		_, err := tx.Materials.GetOrCreate(ctx, "Ravi Sand", "cft")
		return err
	}))
	_, err = s.Materials.FindByName(ctx, "ravi sand")
	assert.NoError(t, err)
}
