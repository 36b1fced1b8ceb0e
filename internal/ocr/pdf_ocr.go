package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/road-estimator/internal/common"
)

// maxFailedPageShare is the share of pages that may fail recognition before
// the whole attempt is reported as a retryable failure.
const maxFailedPageShare = 0.5

// Engine recognizes text in a PDF whose pages are images.
type Engine interface {
	Name() string
	// Available returns common.ErrOCRUnavailable when the engine cannot run here.
	Available(ctx context.Context) error
	// RecognizePDF returns one string per page.
	RecognizePDF(ctx context.Context, path string, pageCount int) ([]string, error)
}

// TesseractConfig configures rasterization and recognition.
type TesseractConfig struct {
	Pdftoppm    string
	Tesseract   string
	Language    string
	DPI         int
	MaxPages    int
	TessdataDir string
	PSM         int // 6 treats the page as one uniform block, which suits tables
}

type tesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

// NewTesseractEngine rasterizes with pdftoppm and recognizes with tesseract.
func NewTesseractEngine(cfg TesseractConfig, runner Runner, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM == 0 {
		cfg.PSM = 6
	}
	return &tesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

func (e *tesseractEngine) Name() string { return "tesseract" }

func (e *tesseractEngine) Available(_ context.Context) error {
	for _, bin := range []string{e.cfg.Pdftoppm, e.cfg.Tesseract} {
		if _, err := e.runner.LookPath(bin); err != nil {
			return fmt.Errorf("%w: %s not found: %v", common.ErrOCRUnavailable, bin, err)
		}
	}
	return nil
}

func (e *tesseractEngine) RecognizePDF(ctx context.Context, path string, _ int) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "roadest-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	if _, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	// collect generated pngs (page-1.png, page-2.png, ...); pdftoppm zero-pads
	// the number to the width of the page count, so sort numerically
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Slice(matches, func(i, j int) bool { return pageNumber(matches[i]) < pageNumber(matches[j]) })
	if len(matches) == 0 {
		return nil, errors.New("pdftoppm produced no images")
	}

	pages := make([]string, 0, len(matches))
	var failed int
	var lastErr error
	for _, img := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		txt, err := e.recognizeImage(ctx, img)
		if err != nil {
			e.logger.Warn("page ocr failed", "path", path, "image", filepath.Base(img), "error", err)
			failed++
			lastErr = err
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	if float64(failed) > maxFailedPageShare*float64(len(matches)) {
		return nil, &common.RetryableError{
			Err:       fmt.Errorf("ocr failed on %d of %d pages: %w", failed, len(matches), lastErr),
			Retryable: true,
		}
	}
	return pages, nil
}

func (e *tesseractEngine) recognizeImage(ctx context.Context, img string) (string, error) {
	// tesseract <file> stdout -l <lang> --psm <n>
	args := []string{img, "stdout", "-l", e.cfg.Language, "--psm", strconv.Itoa(e.cfg.PSM)}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func pageNumber(path string) int {
	base := strings.TrimSuffix(filepath.Base(path), ".png")
	i := strings.LastIndex(base, "-")
	n, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return 0
	}
	return n
}

// noEngine is used when OCR is disabled in configuration.
type noEngine struct{}

func NewNoEngine() Engine { return noEngine{} }

func (noEngine) Name() string { return "none" }

func (noEngine) Available(context.Context) error {
	return fmt.Errorf("%w: disabled by configuration", common.ErrOCRUnavailable)
}

func (noEngine) RecognizePDF(context.Context, string, int) ([]string, error) {
	return nil, common.ErrOCRUnavailable
}
