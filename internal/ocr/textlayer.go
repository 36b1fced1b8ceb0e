package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// TextLayer reads the native (embedded) text of a PDF, one string per page.
// maxPages <= 0 reads every page.
type TextLayer interface {
	PageTexts(ctx context.Context, path string, maxPages int) ([]string, error)
	PageCount(ctx context.Context, path string) (int, error)
}

// goTextLayer reads the text layer in-process.
type goTextLayer struct{}

// NewGoTextLayer returns a TextLayer backed by github.com/ledongthuc/pdf.
func NewGoTextLayer() TextLayer { return goTextLayer{} }

func (goTextLayer) PageTexts(ctx context.Context, path string, maxPages int) (pages []string, err error) {
	// the parser panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}
	pages = make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

func (goTextLayer) PageCount(_ context.Context, path string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// popplerTextLayer shells out to pdftotext.
type popplerTextLayer struct {
	bin    string
	runner Runner
}

// NewPopplerTextLayer returns a TextLayer backed by the pdftotext binary.
func NewPopplerTextLayer(bin string, runner Runner) TextLayer {
	if bin == "" {
		bin = "pdftotext"
	}
	return popplerTextLayer{bin: bin, runner: runner}
}

func (l popplerTextLayer) PageTexts(ctx context.Context, path string, maxPages int) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, path, "-")
	out, errb, err := l.runner.Run(ctx, l.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	// A form-feed \f is used as page separator by default
	pages := strings.Split(string(out), "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}

func (l popplerTextLayer) PageCount(ctx context.Context, path string) (int, error) {
	pages, err := l.PageTexts(ctx, path, 0)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}
