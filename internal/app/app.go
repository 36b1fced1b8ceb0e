// Package app wires configuration into the store, the text extractor and
// the document processor shared by the command-line tools.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/ocr"
	"github.com/joseph-ayodele/road-estimator/internal/pipeline"
	"github.com/joseph-ayodele/road-estimator/internal/repository"
)

type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Store     *repository.Store
	Extractor *ocr.Extractor
	Processor *pipeline.Processor

	closers []func()
}

// New opens the store (migrating it) and builds the processor. Close
// releases everything New acquired.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	store, closeStore, err := repository.Connect(ctx, DatabaseConfig(cfg.Database), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %w", common.ErrDatabase, err)
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	extractor, closeOCR, err := NewExtractor(ctx, cfg.OCR, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Extractor = extractor
	a.closers = append(a.closers, closeOCR)

	a.Processor = pipeline.NewStoreProcessor(store, extractor, cfg.Pipeline.DefaultYear, logger)
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// DatabaseConfig maps loaded settings to the repository's. The in-memory
// flag wins over every other source.
func DatabaseConfig(c common.DatabaseConfig) repository.Config {
	rc := repository.Config{
		DSN:              c.DSN,
		SQLitePath:       c.SQLitePath,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
	if c.InMemory {
		rc.DSN, rc.SQLitePath = "", ":memory:"
	}
	return rc
}

// NewExtractor builds the text layer and OCR engine named in cfg.
func NewExtractor(ctx context.Context, cfg common.OCRConfig, logger *slog.Logger) (*ocr.Extractor, func(), error) {
	runner := ocr.NewExecRunner(logger)

	var layer ocr.TextLayer
	switch cfg.NativeEngine {
	case "pdftotext":
		layer = ocr.NewPopplerTextLayer(cfg.Pdftotext, runner)
	default:
		layer = ocr.NewGoTextLayer()
	}

	closer := func() {}
	var engine ocr.Engine
	switch cfg.Engine {
	case "vision":
		e, closeClient, err := ocr.NewVisionEngine(ctx, cfg.VisionCredentialsFile, logger)
		if err != nil {
			return nil, nil, err
		}
		engine = e
		closer = func() {
			if err := closeClient(); err != nil {
				logger.Warn("close vision client", "error", err)
			}
		}
	case "none":
		engine = ocr.NewNoEngine()
	default:
		engine = ocr.NewTesseractEngine(ocr.TesseractConfig{
			Pdftoppm:    cfg.Pdftoppm,
			Tesseract:   cfg.Tesseract,
			Language:    cfg.Language,
			DPI:         cfg.DPI,
			MaxPages:    cfg.MaxPages,
			TessdataDir: cfg.TessdataDir,
		}, runner, logger)
	}

	return ocr.NewExtractor(ocr.Config{
		MaxPages: cfg.MaxPages,
		Timeout:  cfg.Timeout,
		Retries:  cfg.Retries,
		Workers:  cfg.Workers,
	}, layer, engine, logger), closer, nil
}
