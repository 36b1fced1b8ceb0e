package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
)

const (
	// MinNativeChars is the native-text length above which OCR is never attempted.
	MinNativeChars = 100
	pageBreak      = "\n\f\n"
)

type Config struct {
	MaxPages int           // 0 = no limit
	Timeout  time.Duration // per-document OCR budget, default 5m
	Retries  int           // extra OCR attempts after a transient failure
	Workers  int           // OCR runs allowed at once, default 2
}

type ExtractionResult struct {
	Text       string
	Pages      int
	Method     string // constants.MethodNativeText | constants.MethodOCR | constants.MethodNone
	Engine     string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
	// Scanned is the classifier's verdict on the first pages.
	Scanned bool
}

// Empty reports whether extraction produced no usable text.
func (r ExtractionResult) Empty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Extractor turns a PDF into one plain-text string: native text when the
// document has it, OCR otherwise.
type Extractor struct {
	cfg        Config
	layer      TextLayer
	engine     Engine
	classifier *Classifier
	// ocrSlots keeps CPU-bound recognition off most of the document workers.
	ocrSlots *semaphore.Weighted
	logger   *slog.Logger
}

func NewExtractor(cfg Config, layer TextLayer, engine Engine, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if layer == nil {
		layer = NewGoTextLayer()
	}
	if engine == nil {
		engine = NewNoEngine()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	return &Extractor{
		cfg:        cfg,
		layer:      layer,
		engine:     engine,
		classifier: NewClassifier(layer, logger),
		ocrSlots:   semaphore.NewWeighted(int64(cfg.Workers)),
		logger:     logger,
	}
}

// Extract returns the document text. The classifier's verdict is recorded on
// the result, but native extraction wins whenever it yields more than
// MinNativeChars, whatever the classifier said. When OCR is
// unavailable the result is empty with a nil error; callers must treat empty
// text as "extraction failed", not as an empty document.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	scanned := e.classifier.IsScanned(ctx, path)
	e.logger.Debug("starting text extraction", "path", path, "scanned", scanned)

	pages, err := e.layer.PageTexts(ctx, path, e.cfg.MaxPages)
	if err != nil {
		e.logger.Warn("native text extraction failed", "path", path, "error", err)
	}
	native := Normalize(strings.Join(pages, pageBreak))
	if len([]rune(native)) > MinNativeChars {
		return ExtractionResult{
			Text:       native,
			Pages:      len(pages),
			Method:     constants.MethodNativeText,
			Duration:   time.Since(start),
			Confidence: 1,
			Scanned:    scanned,
		}, nil
	}

	res, err := e.ocr(ctx, path, len(pages))
	res.Duration = time.Since(start)
	res.Scanned = scanned
	if err != nil && errors.Is(err, common.ErrOCRUnavailable) {
		e.logger.Warn("ocr unavailable; returning empty text", "path", path, "engine", e.engine.Name(), "error", err)
		res.Method = constants.MethodNone
		res.Warnings = append(res.Warnings, err.Error())
		return res, nil
	}
	return res, err
}

func (e *Extractor) ocr(ctx context.Context, path string, knownPages int) (ExtractionResult, error) {
	res := ExtractionResult{Method: constants.MethodOCR, Engine: e.engine.Name()}
	if err := e.engine.Available(ctx); err != nil {
		return res, err
	}
	if knownPages == 0 {
		if n, err := e.layer.PageCount(ctx, path); err == nil {
			knownPages = n
		}
	}
	if e.cfg.MaxPages > 0 && (knownPages == 0 || knownPages > e.cfg.MaxPages) {
		knownPages = e.cfg.MaxPages
	}

	var pages []string
	err := common.WithRetry(ctx, e.logger, func(ctx context.Context) error {
		if err := e.ocrSlots.Acquire(ctx, 1); err != nil {
			return err
		}
		defer e.ocrSlots.Release(1)
		octx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
		var err error
		pages, err = e.engine.RecognizePDF(octx, path, knownPages)
		return err
	}, common.RetryOptions{MaxAttempts: e.cfg.Retries + 1, InitialDelay: time.Second, MaxDelay: 10 * time.Second})
	if err != nil {
		return res, fmt.Errorf("%w: ocr %s: %w", common.ErrExtractionFailed, path, err)
	}

	var b strings.Builder
	for i, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n", i+1)
		b.WriteString(p)
	}
	res.Text = Normalize(b.String())
	res.Pages = len(pages)
	if res.Empty() {
		res.Text = ""
		res.Warnings = append(res.Warnings, "ocr produced no text")
		e.logger.Warn("ocr produced no text", "path", path, "engine", e.engine.Name(), "pages", len(pages))
		return res, nil
	}
	res.Confidence = heuristicConfidence(res.Text)
	return res, nil
}
