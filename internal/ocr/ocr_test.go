package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
)

type fakeLayer struct {
	pages []string
	err   error
}

func (f fakeLayer) PageTexts(_ context.Context, _ string, maxPages int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if maxPages > 0 && len(f.pages) > maxPages {
		return f.pages[:maxPages], nil
	}
	return f.pages, nil
}

func (f fakeLayer) PageCount(context.Context, string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return len(f.pages), nil
}

type fakeEngine struct {
	mu        sync.Mutex
	calls     int
	available error
	pages     []string
	errs      []error
}

func (f *fakeEngine) Name() string                    { return "fake" }
func (f *fakeEngine) Available(context.Context) error { return f.available }
func (f *fakeEngine) RecognizePDF(context.Context, string, int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) >= f.calls && f.errs[f.calls-1] != nil {
		return nil, f.errs[f.calls-1]
	}
	return f.pages, nil
}

func longText(n int) string {
	return strings.Repeat("word ", n/5+1)
}

func TestExtractNativeTextSkipsOCR(t *testing.T) {
	engine := &fakeEngine{pages: []string{"ocr text"}}
	x := NewExtractor(Config{}, fakeLayer{pages: []string{longText(80), longText(80)}}, engine, nil)

	res, err := x.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodNativeText, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "\f")
	assert.Zero(t, engine.calls)
	assert.False(t, res.Scanned)
}

func TestExtractShortNativeFallsBackToOCR(t *testing.T) {
	engine := &fakeEngine{pages: []string{"1 Cement OPC bags 100 bag Rs. 900 Rs. 90,000", "", "page three"}}
	x := NewExtractor(Config{}, fakeLayer{pages: []string{"Scanned by CamScanner", "", ""}}, engine, nil)

	res, err := x.Extract(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodOCR, res.Method)
	assert.Equal(t, 1, engine.calls)
	assert.Contains(t, res.Text, "--- Page 1 ---")
	assert.Contains(t, res.Text, "--- Page 3 ---")
	assert.NotContains(t, res.Text, "--- Page 2 ---")
	assert.Greater(t, res.Confidence, float32(0.2))
	assert.True(t, res.Scanned)
}

func TestExtractOCRUnavailableReturnsEmpty(t *testing.T) {
	engine := &fakeEngine{available: fmt.Errorf("%w: tesseract not found", common.ErrOCRUnavailable)}
	x := NewExtractor(Config{}, fakeLayer{pages: []string{""}}, engine, nil)

	res, err := x.Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.Empty())
	assert.Equal(t, constants.MethodNone, res.Method)
	assert.Zero(t, engine.calls)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractOCRRetriesTransientFailure(t *testing.T) {
	engine := &fakeEngine{
		pages: []string{"recovered text on the second attempt"},
		errs:  []error{context.DeadlineExceeded},
	}
	x := NewExtractor(Config{Retries: 1}, fakeLayer{pages: []string{""}}, engine, nil)

	res, err := x.Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, engine.calls)
	assert.Contains(t, res.Text, "recovered text")
}

func TestExtractOCRExhaustedRetriesFails(t *testing.T) {
	boom := errors.New("engine crashed")
	engine := &fakeEngine{errs: []error{boom, boom}}
	x := NewExtractor(Config{Retries: 1}, fakeLayer{pages: []string{""}}, engine, nil)

	_, err := x.Extract(context.Background(), "scan.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.ErrorIs(t, err, boom)
}

// slowEngine records how many recognitions overlap.
type slowEngine struct {
	mu      sync.Mutex
	running int
	peak    int
}

func (e *slowEngine) Name() string                    { return "slow" }
func (e *slowEngine) Available(context.Context) error { return nil }
func (e *slowEngine) RecognizePDF(context.Context, string, int) ([]string, error) {
	e.mu.Lock()
	e.running++
	e.peak = max(e.peak, e.running)
	e.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	e.mu.Lock()
	e.running--
	e.mu.Unlock()
	return []string{"recognized"}, nil
}

func TestExtractOCRConcurrencyIsBounded(t *testing.T) {
	engine := &slowEngine{}
	x := NewExtractor(Config{Workers: 2}, fakeLayer{pages: []string{""}}, engine, nil)

	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := x.Extract(context.Background(), "scan.pdf")
			assert.NoError(t, err)
			assert.Equal(t, constants.MethodOCR, res.Method)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, engine.peak, 2)
	assert.Positive(t, engine.peak)
}

func TestExtractOCRNoTextIsEmptyNotError(t *testing.T) {
	engine := &fakeEngine{pages: []string{"  ", ""}}
	x := NewExtractor(Config{}, fakeLayer{pages: []string{"", ""}}, engine, nil)

	res, err := x.Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.Empty())
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name  string
		layer fakeLayer
		want  bool
	}{
		{"native first page", fakeLayer{pages: []string{longText(60)}}, false},
		{"native third page", fakeLayer{pages: []string{"", "cover", longText(60)}}, false},
		{"text only after page three", fakeLayer{pages: []string{"", "", "", longText(200)}}, true},
		{"blank", fakeLayer{pages: []string{"", ""}}, true},
		{"exactly fifty chars", fakeLayer{pages: []string{strings.Repeat("x", 50)}}, true},
		{"read error", fakeLayer{err: errors.New("xref broken")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(tt.layer, nil)
			assert.Equal(t, tt.want, c.IsScanned(context.Background(), "doc.pdf"))
		})
	}
}

func TestGoTextLayerMissingFile(t *testing.T) {
	c := NewClassifier(NewGoTextLayer(), nil)
	assert.True(t, c.IsScanned(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")))
}

type stubRunner struct {
	mu      sync.Mutex
	calls   []string
	missing map[string]bool
	run     func(name string, args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
	return s.run(name, args)
}

func (s *stubRunner) LookPath(name string) (string, error) {
	if s.missing[name] {
		return "", errors.New("executable file not found in $PATH")
	}
	return "/usr/bin/" + name, nil
}

func TestPopplerTextLayerSplitsPages(t *testing.T) {
	r := &stubRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		assert.Equal(t, "pdftotext", name)
		assert.Contains(t, args, "-layout")
		assert.Equal(t, "-", args[len(args)-1])
		return []byte("first page\fsecond page\f"), nil, nil
	}}
	layer := NewPopplerTextLayer("", r)

	pages, err := layer.PageTexts(context.Background(), "doc.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"first page", "second page"}, pages)
}

func TestTesseractEngine(t *testing.T) {
	r := &stubRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"01", "02", "10"} {
				require.NoError(t, os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o600))
			}
			return nil, nil, nil
		case "tesseract":
			return []byte("text of " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected %s", name)
	}}
	engine := NewTesseractEngine(TesseractConfig{}, r, nil)
	require.NoError(t, engine.Available(context.Background()))

	pages, err := engine.RecognizePDF(context.Background(), "scan.pdf", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"text of page-01.png", "text of page-02.png", "text of page-10.png"}, pages)
}

// tesseractRunner renders three pages and fails the first failFirst
// tesseract calls.
func tesseractRunner(t *testing.T, failFirst int) *stubRunner {
	var calls int
	return &stubRunner{run: func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2", "3"} {
				require.NoError(t, os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o600))
			}
			return nil, nil, nil
		case "tesseract":
			calls++
			if calls <= failFirst {
				return nil, []byte("Error in pixReadStream"), errors.New("exit status 1")
			}
			return []byte("1 Cement OPC 50kg bags 100 bag Rs. 900 Rs. 90,000 on " + filepath.Base(args[0])), nil, nil
		}
		return nil, nil, fmt.Errorf("unexpected %s", name)
	}}
}

func TestTesseractEngineToleratesOneFailedPage(t *testing.T) {
	engine := NewTesseractEngine(TesseractConfig{}, tesseractRunner(t, 1), nil)
	pages, err := engine.RecognizePDF(context.Background(), "scan.pdf", 0)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Empty(t, pages[0])
	assert.NotEmpty(t, pages[2])
}

func TestTesseractEngineFailedPagesAreRetryable(t *testing.T) {
	engine := NewTesseractEngine(TesseractConfig{}, tesseractRunner(t, 2), nil)
	_, err := engine.RecognizePDF(context.Background(), "scan.pdf", 0)
	require.Error(t, err)
	var retryable *common.RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.True(t, retryable.Retryable)
	assert.Contains(t, err.Error(), "2 of 3 pages")

	// the extractor's retry gets a clean second pass
	r := tesseractRunner(t, 2)
	x := NewExtractor(Config{Retries: 1}, fakeLayer{pages: []string{""}}, NewTesseractEngine(TesseractConfig{}, r, nil), nil)
	res, err := x.Extract(context.Background(), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.MethodOCR, res.Method)
	assert.Contains(t, res.Text, "--- Page 1 ---")
	assert.Contains(t, res.Text, "--- Page 3 ---")
}

func TestTesseractEngineUnavailable(t *testing.T) {
	r := &stubRunner{missing: map[string]bool{"tesseract": true}}
	engine := NewTesseractEngine(TesseractConfig{}, r, nil)
	err := engine.Available(context.Background())
	assert.ErrorIs(t, err, common.ErrOCRUnavailable)
}

type fakeAnnotator struct {
	requests []*visionpb.BatchAnnotateFilesRequest
}

func (f *fakeAnnotator) BatchAnnotateFiles(_ context.Context, req *visionpb.BatchAnnotateFilesRequest, _ ...gax.CallOption) (*visionpb.BatchAnnotateFilesResponse, error) {
	f.requests = append(f.requests, req)
	var pages []*visionpb.AnnotateImageResponse
	for _, n := range req.GetRequests()[0].GetPages() {
		pages = append(pages, &visionpb.AnnotateImageResponse{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: fmt.Sprintf("page %d", n)},
		})
	}
	return &visionpb.BatchAnnotateFilesResponse{
		Responses: []*visionpb.AnnotateFileResponse{{Responses: pages}},
	}, nil
}

func TestVisionEngineBatchesFivePages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))

	ann := &fakeAnnotator{}
	engine := NewVisionEngineWithClient(ann, nil)
	pages, err := engine.RecognizePDF(context.Background(), path, 7)
	require.NoError(t, err)
	require.Len(t, ann.requests, 2)
	assert.Len(t, pages, 7)
	assert.Equal(t, "page 6", pages[5])
}

func TestNormalizeKeepsColumnGaps(t *testing.T) {
	in := "1\tCement  OPC\r\n-----\r\n\n\n\n2  Steel   "
	assert.Equal(t, "1  Cement  OPC\n\n2  Steel", Normalize(in))
}
